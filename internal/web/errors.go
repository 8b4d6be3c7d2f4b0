package web

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/shineum/mailform/internal/attachment"
	"github.com/shineum/mailform/internal/compose"
	"github.com/shineum/mailform/internal/importer"
	"github.com/shineum/mailform/internal/notice"
	"github.com/shineum/mailform/internal/recipient"
)

var (
	errMissingFile        = errors.New("please choose a file")
	errUnsupportedFile    = errors.New("please upload an .xlsx, .xls or .csv file")
	errImportTooLarge     = errors.New("the spreadsheet is too large")
	errAttachmentNotFound = errors.New("attachment not found")
	errStorage            = errors.New("draft storage unavailable")
)

const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeInvalidRecipient   = "INVALID_RECIPIENT"
	CodeDuplicateRecipient = "DUPLICATE_RECIPIENT"
	CodeUnsupportedFile    = "UNSUPPORTED_FILE"
	CodeFileTooLarge       = "FILE_TOO_LARGE"
	CodeUnreadableFile     = "UNREADABLE_FILE"
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeNoRecipients       = "NO_RECIPIENTS"
	CodeSubmitInProgress   = "SUBMIT_IN_PROGRESS"
	CodeNotFound           = "NOT_FOUND"
	CodeDeliveryFailed     = "DELIVERY_FAILED"
	CodeStorageError       = "STORAGE_ERROR"
	CodeInternalError      = "INTERNAL_ERROR"
)

// ErrorResponse is the body of every non-2xx API response. Notice is what
// the page shows the user.
type ErrorResponse struct {
	Code    string        `json:"code"`
	Message string        `json:"message"`
	Details interface{}   `json:"details,omitempty"`
	Notice  notice.Notice `json:"notice"`
}

func respondError(c *fiber.Ctx, status int, code, message string, details interface{}) error {
	return c.Status(status).JSON(ErrorResponse{
		Code:    code,
		Message: message,
		Details: details,
		Notice:  notice.Notice{Level: notice.LevelError, Message: message},
	})
}

// HandleServiceError maps domain errors onto status codes.
func HandleServiceError(c *fiber.Ctx, err error) error {
	if err == nil {
		return nil
	}

	var verr *compose.ValidationError
	switch {
	case errors.As(err, &verr):
		return respondError(c, http.StatusUnprocessableEntity, CodeValidationFailed, "Please correct the highlighted fields", verr.Fields)
	case errors.Is(err, recipient.ErrEmpty), errors.Is(err, recipient.ErrInvalid):
		return respondError(c, http.StatusBadRequest, CodeInvalidRecipient, err.Error(), nil)
	case errors.Is(err, recipient.ErrDuplicate):
		return respondError(c, http.StatusConflict, CodeDuplicateRecipient, err.Error(), nil)
	case errors.Is(err, errMissingFile):
		return respondError(c, http.StatusBadRequest, CodeInvalidRequest, err.Error(), nil)
	case errors.Is(err, errUnsupportedFile):
		return respondError(c, http.StatusUnsupportedMediaType, CodeUnsupportedFile, err.Error(), nil)
	case errors.Is(err, errImportTooLarge), errors.Is(err, attachment.ErrTooLarge):
		return respondError(c, http.StatusRequestEntityTooLarge, CodeFileTooLarge, err.Error(), nil)
	case errors.Is(err, importer.ErrUnreadableWorkbook):
		return respondError(c, http.StatusUnprocessableEntity, CodeUnreadableFile,
			"The file could not be read. Please check it is a valid spreadsheet.", nil)
	case errors.Is(err, compose.ErrNoRecipients):
		return respondError(c, http.StatusBadRequest, CodeNoRecipients, err.Error(), nil)
	case errors.Is(err, compose.ErrSubmitInProgress):
		return respondError(c, http.StatusConflict, CodeSubmitInProgress, err.Error(), nil)
	case errors.Is(err, errAttachmentNotFound):
		return respondError(c, http.StatusNotFound, CodeNotFound, err.Error(), nil)
	case errors.Is(err, compose.ErrDeliveryFailed):
		return respondError(c, http.StatusBadGateway, CodeDeliveryFailed,
			"The message could not be sent. Please try again later.", nil)
	case errors.Is(err, errStorage):
		slog.Error("draft storage error", "path", c.Path(), "error", err)
		return respondError(c, http.StatusServiceUnavailable, CodeStorageError, errStorage.Error(), nil)
	default:
		slog.Error("unhandled request error", "path", c.Path(), "error", err)
		return respondError(c, http.StatusInternalServerError, CodeInternalError, "An unexpected error occurred", nil)
	}
}

// HandleValidationError reports a malformed request body.
func HandleValidationError(c *fiber.Ctx, message string) error {
	return respondError(c, http.StatusBadRequest, CodeInvalidRequest, message, nil)
}

// errorHandler catches errors returned from handlers and middleware that
// did not write a response themselves.
func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return respondError(c, fe.Code, CodeInvalidRequest, fe.Message, nil)
	}
	return HandleServiceError(c, err)
}
