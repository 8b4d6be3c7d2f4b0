package stdout

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shineum/mailform/internal/email"
)

func TestSend_BasicPayload(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := NewWithWriter(&buf)

	msg := &email.Email{
		FromName:  "Jane Doe",
		From:      "jane@example.com",
		To:        []string{"alice@example.com", "bob@example.com"},
		Subject:   "Monthly Report",
		TextBody:  "Please find the report attached.",
		MessageID: "<id-1@mailform>",
		Date:      time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	err := p.Send(context.Background(), msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()

	for _, want := range []string{
		"Message-ID: <id-1@mailform>",
		"Date: 2026-01-02T03:04:05Z",
		"From: Jane Doe <jane@example.com>",
		"To: alice@example.com, bob@example.com",
		"Subject: Monthly Report",
		"Please find the report attached.",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if strings.Contains(output, "Attachments:") {
		t.Error("output should not contain Attachments line when there are none")
	}
	if !strings.HasPrefix(output, separator) {
		t.Error("output should start with separator line")
	}
	if !strings.HasSuffix(output, separator) {
		t.Error("output should end with separator line")
	}
}

func TestSend_SenderWithoutName(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := NewWithWriter(&buf)

	err := p.Send(context.Background(), &email.Email{From: "anon@example.com", To: []string{"a@x.com"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "From: anon@example.com\n") {
		t.Errorf("output should contain bare sender address, got %q", buf.String())
	}
	if strings.Contains(buf.String(), "Date:") {
		t.Error("output should omit Date when it is not set")
	}
}

func TestSend_WithAttachments(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := NewWithWriter(&buf)

	msg := &email.Email{
		From:     "sender@example.com",
		To:       []string{"alice@example.com"},
		Subject:  "Monthly Report",
		TextBody: "Please find the report attached.",
		Attachments: []email.Attachment{
			{
				Filename:    "report.pdf",
				ContentType: "application/pdf",
				Content:     make([]byte, 1258291),
			},
			{
				Filename:    "summary.xlsx",
				ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
				Content:     make([]byte, 46080),
			},
		},
	}

	err := p.Send(context.Background(), msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "Attachments: report.pdf (1.2 MiB), summary.xlsx (45 KiB)") {
		t.Errorf("unexpected Attachments line in %q", output)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, context.Canceled
}

func TestSend_WriteFailureStillSucceeds(t *testing.T) {
	t.Parallel()

	p := NewWithWriter(failingWriter{})
	if err := p.Send(context.Background(), &email.Email{To: []string{"a@x.com"}}); err != nil {
		t.Errorf("Send: got %v, want nil", err)
	}
}

func TestName(t *testing.T) {
	t.Parallel()

	p := New()
	if p.Name() != "stdout" {
		t.Errorf("Name: got %q, want %q", p.Name(), "stdout")
	}
}
