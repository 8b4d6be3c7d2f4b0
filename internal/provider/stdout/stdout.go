// Package stdout implements the simulated delivery provider: the composed
// payload is printed instead of being sent.
package stdout

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/shineum/mailform/internal/email"
)

const separator = "========================================\n"

// Provider prints email messages in a human-readable format.
type Provider struct {
	mu sync.Mutex
	// writer is the output destination, defaulting to os.Stdout.
	writer io.Writer
}

// New creates a new stdout Provider that writes to os.Stdout.
func New() *Provider {
	return &Provider{writer: os.Stdout}
}

// NewWithWriter creates a new stdout Provider that writes to the given writer.
func NewWithWriter(w io.Writer) *Provider {
	return &Provider{writer: w}
}

// Send prints the payload. It always returns nil: a simulated delivery
// cannot fail.
func (p *Provider) Send(_ context.Context, msg *email.Email) error {
	var b strings.Builder

	b.WriteString(separator)
	fmt.Fprintf(&b, "Message-ID: %s\n", msg.MessageID)
	if !msg.Date.IsZero() {
		fmt.Fprintf(&b, "Date: %s\n", msg.Date.Format(time.RFC3339))
	}
	fmt.Fprintf(&b, "From: %s\n", msg.Sender())
	fmt.Fprintf(&b, "To: %s\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\n", msg.Subject)
	b.WriteString("Body:\n")
	b.WriteString(msg.TextBody + "\n")

	if len(msg.Attachments) > 0 {
		attachments := make([]string, 0, len(msg.Attachments))
		for _, att := range msg.Attachments {
			attachments = append(attachments, fmt.Sprintf("%s (%s)", att.Filename, humanize.IBytes(uint64(len(att.Content)))))
		}
		fmt.Fprintf(&b, "Attachments: %s\n", strings.Join(attachments, ", "))
	}

	b.WriteString(separator)

	p.mu.Lock()
	defer p.mu.Unlock()

	// A write failure is ignored; the simulated send is still reported as
	// delivered.
	_, _ = fmt.Fprint(p.writer, b.String())
	return nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "stdout"
}
