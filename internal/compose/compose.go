// Package compose validates a filled-in form, assembles the outgoing message
// and hands it to the configured delivery provider.
package compose

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gofrs/uuid"

	"github.com/shineum/mailform/internal/attachment"
	"github.com/shineum/mailform/internal/email"
	"github.com/shineum/mailform/internal/notice"
	"github.com/shineum/mailform/internal/provider"
)

var (
	ErrNoRecipients     = errors.New("please add at least one recipient")
	ErrSubmitInProgress = errors.New("a submission is already in progress")
	ErrDeliveryFailed   = errors.New("delivery failed")
)

// Receipt describes an accepted submission.
type Receipt struct {
	MessageID  string    `json:"message_id"`
	Recipients int       `json:"recipients"`
	SentAt     time.Time `json:"sent_at"`
}

// Notice renders the receipt for the user.
func (r *Receipt) Notice() notice.Notice {
	if r.Recipients == 1 {
		return notice.Success("Message sent to 1 recipient")
	}
	return notice.Success("Message sent to %d recipients", r.Recipients)
}

// Submission is everything one draft contributes to a message.
type Submission struct {
	DraftID     string
	Form        Form
	Recipients  []string
	Attachments []attachment.File
}

// Composer turns submissions into messages. A draft can have at most one
// submission in flight.
type Composer struct {
	provider provider.Provider
	delay    time.Duration

	// wait and now are replaced in tests.
	wait func(ctx context.Context, d time.Duration) error
	now  func() time.Time

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// New creates a Composer that waits delay before every hand-off to p.
func New(p provider.Provider, delay time.Duration) *Composer {
	return &Composer{
		provider: p,
		delay:    delay,
		wait:     sleepWithContext,
		now:      time.Now,
		inFlight: make(map[string]struct{}),
	}
}

// Submit validates s and delivers it. Field errors come back as a
// *ValidationError; an empty recipient list as ErrNoRecipients. In both
// cases nothing is waited for or sent.
func (c *Composer) Submit(ctx context.Context, s Submission) (*Receipt, error) {
	if err := s.Form.Validate(); err != nil {
		return nil, err
	}
	if len(s.Recipients) == 0 {
		return nil, ErrNoRecipients
	}

	if !c.acquire(s.DraftID) {
		return nil, ErrSubmitInProgress
	}
	defer c.release(s.DraftID)

	msg, err := c.build(s)
	if err != nil {
		return nil, err
	}

	slog.Info("submission staged",
		"draft_id", s.DraftID,
		"message_id", msg.MessageID,
		"sender", msg.From,
		"subject", msg.Subject,
		"recipients", len(msg.To),
		"attachments", len(msg.Attachments),
		"attachment_bytes", humanize.IBytes(uint64(attachmentBytes(s.Attachments))),
		"provider", c.provider.Name(),
	)

	if c.delay > 0 {
		if err := c.wait(ctx, c.delay); err != nil {
			return nil, fmt.Errorf("submission cancelled: %w", err)
		}
	}

	if err := c.provider.Send(ctx, msg); err != nil {
		slog.Error("delivery failed",
			"message_id", msg.MessageID,
			"provider", c.provider.Name(),
			"error", err,
		)
		return nil, fmt.Errorf("%w via %s: %w", ErrDeliveryFailed, c.provider.Name(), err)
	}

	slog.Info("submission delivered",
		"message_id", msg.MessageID,
		"provider", c.provider.Name(),
	)

	return &Receipt{
		MessageID:  msg.MessageID,
		Recipients: len(msg.To),
		SentAt:     msg.Date,
	}, nil
}

// ProviderName names the delivery backend in use.
func (c *Composer) ProviderName() string {
	return c.provider.Name()
}

// InFlight reports whether draftID has a submission running.
func (c *Composer) InFlight(draftID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.inFlight[draftID]
	return ok
}

func (c *Composer) build(s Submission) (*email.Email, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("generating message id: %w", err)
	}

	form := s.Form.Normalize()
	msg := &email.Email{
		FromName:  form.Name,
		From:      form.Email,
		To:        append([]string(nil), s.Recipients...),
		Subject:   form.Subject,
		TextBody:  form.Message,
		MessageID: fmt.Sprintf("<%s@mailform>", id),
		Date:      c.now().UTC(),
	}
	for _, f := range s.Attachments {
		msg.Attachments = append(msg.Attachments, email.Attachment{
			Filename:    f.Name,
			ContentType: f.ContentType,
			Content:     f.Content,
		})
	}
	return msg, nil
}

func (c *Composer) acquire(draftID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inFlight[draftID]; busy {
		return false
	}
	c.inFlight[draftID] = struct{}{}
	return true
}

func (c *Composer) release(draftID string) {
	c.mu.Lock()
	delete(c.inFlight, draftID)
	c.mu.Unlock()
}

func attachmentBytes(files []attachment.File) int64 {
	var n int64
	for _, f := range files {
		n += f.Size
	}
	return n
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
