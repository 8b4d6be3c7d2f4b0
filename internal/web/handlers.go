package web

import (
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/gofiber/fiber/v2"

	"github.com/shineum/mailform/internal/attachment"
	"github.com/shineum/mailform/internal/compose"
	"github.com/shineum/mailform/internal/draft"
	"github.com/shineum/mailform/internal/importer"
	"github.com/shineum/mailform/internal/notice"
	"github.com/shineum/mailform/internal/recipient"
)

// draftView is the client-facing rendition of a draft.
type draftView struct {
	Recipients     []string                `json:"recipients"`
	Attachments    []attachment.Descriptor `json:"attachments"`
	TotalSize      int64                   `json:"total_size"`
	TotalSizeHuman string                  `json:"total_size_human"`
	MaxFiles       int                     `json:"max_files"`
	Submitting     bool                    `json:"submitting"`
}

func (s *Server) view(d *draft.Draft) draftView {
	stage := attachment.NewStage(d.Attachments)
	recipients := d.Recipients
	if recipients == nil {
		recipients = []string{}
	}
	descriptors := stage.Descriptors()
	if descriptors == nil {
		descriptors = []attachment.Descriptor{}
	}
	return draftView{
		Recipients:     recipients,
		Attachments:    descriptors,
		TotalSize:      stage.TotalSize(),
		TotalSizeHuman: humanize.IBytes(uint64(stage.TotalSize())),
		MaxFiles:       attachment.MaxFiles,
		Submitting:     s.composer.InFlight(d.ID),
	}
}

type mutationResponse struct {
	Notice notice.Notice `json:"notice"`
	Draft  draftView     `json:"draft"`
}

// health reports liveness.
// Endpoint: GET /healthz
func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok", "provider": s.composer.ProviderName()})
}

// index renders the form page.
// Endpoint: GET /
func (s *Server) index(c *fiber.Ctx) error {
	return c.Render("index", fiber.Map{
		"Title":         "Compose message",
		"MaxFiles":      attachment.MaxFiles,
		"MaxFileSize":   humanize.IBytes(attachment.MaxFileSize),
		"ImportMaxSize": humanize.IBytes(uint64(s.cfg.ImportMaxSize)),
	})
}

// getDraft returns the current recipients and attachments.
// Endpoint: GET /api/draft
func (s *Server) getDraft(c *fiber.Ctx) error {
	d, err := s.snapshot(c)
	if err != nil {
		return HandleServiceError(c, err)
	}
	return c.JSON(s.view(d))
}

type addRecipientRequest struct {
	Email string `json:"email" form:"email"`
}

// addRecipient adds one manually entered address.
// Endpoint: POST /api/recipients
func (s *Server) addRecipient(c *fiber.Ctx) error {
	var req addRecipientRequest
	if err := c.BodyParser(&req); err != nil {
		return HandleValidationError(c, "invalid request body")
	}

	var n notice.Notice
	d, err := s.update(c, func(d *draft.Draft) error {
		list := recipient.NewList(d.Recipients)
		var err error
		if n, err = list.Add(req.Email); err != nil {
			return err
		}
		d.Recipients = list.Entries()
		return nil
	})
	if err != nil {
		return HandleServiceError(c, err)
	}
	return c.Status(http.StatusCreated).JSON(mutationResponse{Notice: n, Draft: s.view(d)})
}

// removeRecipient removes one address.
// Endpoint: DELETE /api/recipients/:email
func (s *Server) removeRecipient(c *fiber.Ctx) error {
	email, err := url.PathUnescape(c.Params("email"))
	if err != nil || email == "" {
		return HandleValidationError(c, "email is required")
	}

	var n notice.Notice
	d, err := s.update(c, func(d *draft.Draft) error {
		list := recipient.NewList(d.Recipients)
		n = list.Remove(email)
		d.Recipients = list.Entries()
		return nil
	})
	if err != nil {
		return HandleServiceError(c, err)
	}
	return c.JSON(mutationResponse{Notice: n, Draft: s.view(d)})
}

// clearRecipients empties the recipient list.
// Endpoint: DELETE /api/recipients
func (s *Server) clearRecipients(c *fiber.Ctx) error {
	var n notice.Notice
	d, err := s.update(c, func(d *draft.Draft) error {
		list := recipient.NewList(d.Recipients)
		n = list.Clear()
		d.Recipients = list.Entries()
		return nil
	})
	if err != nil {
		return HandleServiceError(c, err)
	}
	return c.JSON(mutationResponse{Notice: n, Draft: s.view(d)})
}

type importResponse struct {
	Notice notice.Notice    `json:"notice"`
	Result *importer.Result `json:"result"`
	Draft  draftView        `json:"draft"`
}

// importRecipients extracts addresses from an uploaded spreadsheet.
// Endpoint: POST /api/recipients/import
func (s *Server) importRecipients(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return HandleServiceError(c, errMissingFile)
	}
	if !importer.AllowedExtension(fh.Filename) {
		return HandleServiceError(c, errUnsupportedFile)
	}
	if fh.Size > s.cfg.ImportMaxSize {
		return HandleServiceError(c, fmt.Errorf("%w: limit is %s", errImportTooLarge,
			humanize.IBytes(uint64(s.cfg.ImportMaxSize))))
	}

	data, err := readFile(fh)
	if err != nil {
		return HandleServiceError(c, err)
	}

	var res *importer.Result
	d, err := s.update(c, func(d *draft.Draft) error {
		list := recipient.NewList(d.Recipients)
		var err error
		res, err = importer.Import(fh.Filename, data, d.Recipients, addImported(list))
		if err != nil {
			return err
		}
		d.Recipients = list.Entries()
		return nil
	})
	if err != nil {
		return HandleServiceError(c, err)
	}

	return c.JSON(importResponse{Notice: res.Summary(), Result: res, Draft: s.view(d)})
}

type attachResponse struct {
	Notices  []notice.Notice         `json:"notices"`
	Accepted []attachment.Descriptor `json:"accepted"`
	Draft    draftView               `json:"draft"`
}

// addAttachments stages a batch of files. Rejected files are reported per
// file alongside the accepted ones.
// Endpoint: POST /api/attachments
func (s *Server) addAttachments(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return HandleServiceError(c, errMissingFile)
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		return HandleServiceError(c, errMissingFile)
	}

	files := make([]attachment.File, 0, len(headers))
	for _, fh := range headers {
		f := attachment.File{Descriptor: attachment.Descriptor{
			Name:        filepath.Base(fh.Filename),
			Size:        fh.Size,
			ContentType: contentType(fh),
		}}
		// Oversized files are rejected by the stage; skip reading them.
		if fh.Size <= attachment.MaxFileSize {
			if f.Content, err = readFile(fh); err != nil {
				return HandleServiceError(c, err)
			}
		}
		files = append(files, f)
	}

	var (
		accepted []attachment.Descriptor
		rejected []attachment.Rejection
	)
	d, err := s.update(c, func(d *draft.Draft) error {
		stage := attachment.NewStage(d.Attachments)
		accepted, rejected = stage.Add(files...)
		d.Attachments = stage.Files()
		return nil
	})
	if err != nil {
		return HandleServiceError(c, err)
	}

	var notices []notice.Notice
	if len(accepted) > 0 {
		notices = append(notices, attachment.AcceptedNotice(accepted))
	}
	for _, r := range rejected {
		notices = append(notices, r.Notice())
	}
	if accepted == nil {
		accepted = []attachment.Descriptor{}
	}

	return c.JSON(attachResponse{Notices: notices, Accepted: accepted, Draft: s.view(d)})
}

// removeAttachment unstages one file by name.
// Endpoint: DELETE /api/attachments/:name
func (s *Server) removeAttachment(c *fiber.Ctx) error {
	name, err := url.PathUnescape(c.Params("name"))
	if err != nil || name == "" {
		return HandleValidationError(c, "name is required")
	}

	d, err := s.update(c, func(d *draft.Draft) error {
		stage := attachment.NewStage(d.Attachments)
		if !stage.Remove(name) {
			return errAttachmentNotFound
		}
		d.Attachments = stage.Files()
		return nil
	})
	if err != nil {
		return HandleServiceError(c, err)
	}
	return c.JSON(mutationResponse{Notice: notice.Info("%s removed", name), Draft: s.view(d)})
}

type submitResponse struct {
	Notice  notice.Notice    `json:"notice"`
	Receipt *compose.Receipt `json:"receipt"`
}

// submit validates the form and hands the message to the provider. The
// draft lock is not held during delivery so the page stays responsive; the
// composer itself refuses a second concurrent submit of the same draft.
// Endpoint: POST /api/submit
func (s *Server) submit(c *fiber.Ctx) error {
	var form compose.Form
	if err := c.BodyParser(&form); err != nil {
		return HandleValidationError(c, "invalid request body")
	}

	d, err := s.snapshot(c)
	if err != nil {
		return HandleServiceError(c, err)
	}

	receipt, err := s.composer.Submit(c.UserContext(), compose.Submission{
		DraftID:     d.ID,
		Form:        form,
		Recipients:  d.Recipients,
		Attachments: d.Attachments,
	})
	if err != nil {
		return HandleServiceError(c, err)
	}

	// A sent message starts a fresh draft.
	if _, err := s.update(c, func(d *draft.Draft) error {
		d.Recipients = nil
		d.Attachments = nil
		return nil
	}); err != nil {
		return HandleServiceError(c, err)
	}

	return c.JSON(submitResponse{Notice: receipt.Notice(), Receipt: receipt})
}

// addImported appends addresses the importer reports as new. The list
// applies its own rules on top; anything it refuses is logged.
func addImported(list *recipient.List) func(addr string) {
	return func(addr string) {
		if _, err := list.Add(addr); err != nil {
			slog.Debug("imported address rejected", "email", addr, "error", err)
		}
	}
}

func readFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("opening upload %s: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("reading upload %s: %w", fh.Filename, err)
	}
	return data, nil
}

func contentType(fh *multipart.FileHeader) string {
	if ct := fh.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	if ct := mime.TypeByExtension(filepath.Ext(fh.Filename)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
