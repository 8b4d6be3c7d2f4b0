package ses

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	sesv2 "github.com/aws/aws-sdk-go-v2/service/sesv2"

	"github.com/shineum/mailform/internal/email"
	"github.com/shineum/mailform/internal/provider"
)

// mockSESClient implements SendEmailAPI for testing.
type mockSESClient struct {
	sendFn    func(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
	callCount int
	lastInput *sesv2.SendEmailInput
}

func (m *mockSESClient) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	m.callCount++
	m.lastInput = params
	if m.sendFn != nil {
		return m.sendFn(ctx, params, optFns...)
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("test-message-id")}, nil
}

func newFastProvider(client SendEmailAPI) *Provider {
	p := NewWithClient("noreply@example.com", client)
	p.retryDelay = time.Millisecond
	return p
}

func TestName(t *testing.T) {
	t.Parallel()
	p := NewWithClient("noreply@example.com", &mockSESClient{})
	if got := p.Name(); got != "ses" {
		t.Errorf("Name(): got %q, want %q", got, "ses")
	}
}

func TestSend_SimpleMessage(t *testing.T) {
	t.Parallel()

	mock := &mockSESClient{}
	p := newFastProvider(mock)

	msg := &email.Email{
		FromName: "Jane Doe",
		From:     "jane@example.com",
		To:       []string{"to1@example.com", "to2@example.com"},
		Subject:  "Test Subject",
		TextBody: "Hello, World!",
	}

	if err := p.Send(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if mock.callCount != 1 {
		t.Errorf("call count: got %d, want 1", mock.callCount)
	}

	input := mock.lastInput
	if input.Content.Simple == nil {
		t.Fatal("expected simple email content, got nil")
	}
	if got := *input.FromEmailAddress; got != "noreply@example.com" {
		t.Errorf("FromEmailAddress: got %q, want %q", got, "noreply@example.com")
	}
	if len(input.ReplyToAddresses) != 1 || input.ReplyToAddresses[0] != "Jane Doe <jane@example.com>" {
		t.Errorf("ReplyToAddresses: got %v", input.ReplyToAddresses)
	}
	if got := len(input.Destination.ToAddresses); got != 2 {
		t.Errorf("ToAddresses: got %d, want 2", got)
	}
	if got := *input.Content.Simple.Subject.Data; got != "Test Subject" {
		t.Errorf("Subject: got %q, want %q", got, "Test Subject")
	}
	if got := *input.Content.Simple.Body.Text.Data; got != "Hello, World!" {
		t.Errorf("TextBody: got %q, want %q", got, "Hello, World!")
	}
	if got := *input.Content.Simple.Body.Text.Charset; got != "UTF-8" {
		t.Errorf("Text charset: got %q, want %q", got, "UTF-8")
	}
}

func TestSend_WithAttachments(t *testing.T) {
	t.Parallel()

	mock := &mockSESClient{}
	p := newFastProvider(mock)

	msg := &email.Email{
		From:     "jane@example.com",
		To:       []string{"to@example.com"},
		Subject:  "With Attachment",
		TextBody: "See attachment",
		Attachments: []email.Attachment{
			{Filename: "test.txt", ContentType: "text/plain", Content: []byte("file content")},
		},
	}

	if err := p.Send(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	input := mock.lastInput
	if input.Content.Raw == nil {
		t.Fatal("expected raw email content for attachment, got nil")
	}
	if input.Content.Simple != nil {
		t.Error("expected no simple content when using raw message")
	}

	rawStr := string(input.Content.Raw.Data)
	for _, want := range []string{
		"From: noreply@example.com",
		"Reply-To: jane@example.com",
		"To: to@example.com",
		"Subject: With Attachment",
		"multipart/mixed",
		"test.txt",
	} {
		if !strings.Contains(rawStr, want) {
			t.Errorf("raw message missing %q", want)
		}
	}
}

func TestSend_RetryOnError(t *testing.T) {
	t.Parallel()

	callCount := 0
	mock := &mockSESClient{
		sendFn: func(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
			callCount++
			if callCount <= 2 {
				return nil, errors.New("transient error")
			}
			return &sesv2.SendEmailOutput{MessageId: aws.String("ok")}, nil
		},
	}
	p := newFastProvider(mock)

	err := p.Send(context.Background(), &email.Email{To: []string{"to@example.com"}, Subject: "Retry"})
	if err != nil {
		t.Fatalf("expected success after retry, got: %v", err)
	}
	if callCount != 3 {
		t.Errorf("call count: got %d, want 3", callCount)
	}
}

func TestSend_AllRetriesExhausted(t *testing.T) {
	t.Parallel()

	mock := &mockSESClient{
		sendFn: func(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
			return nil, errors.New("persistent error")
		},
	}
	p := newFastProvider(mock)

	err := p.Send(context.Background(), &email.Email{To: []string{"to@example.com"}, Subject: "Fail"})
	if err == nil {
		t.Fatal("expected error after all retries exhausted")
	}
	if !strings.Contains(err.Error(), "after 3 retries") {
		t.Errorf("error message: got %q, want to contain 'after 3 retries'", err.Error())
	}
	// 1 initial + 3 retries = 4 total
	if mock.callCount != 4 {
		t.Errorf("call count: got %d, want 4", mock.callCount)
	}
}

func TestSend_ContextCancelled(t *testing.T) {
	t.Parallel()

	mock := &mockSESClient{
		sendFn: func(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
			return nil, errors.New("error")
		},
	}
	p := NewWithClient("noreply@example.com", mock)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Send(ctx, &email.Email{To: []string{"to@example.com"}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Send: got %v, want context.Canceled", err)
	}
	if mock.callCount != 1 {
		t.Errorf("call count: got %d, want 1", mock.callCount)
	}
}

func TestBuildSimpleInput_NoReplyToWithoutSender(t *testing.T) {
	t.Parallel()

	input := buildSimpleInput("noreply@example.com", &email.Email{To: []string{"a@x.com"}})
	if len(input.ReplyToAddresses) != 0 {
		t.Errorf("ReplyToAddresses: got %v, want none", input.ReplyToAddresses)
	}
}

func TestBackoffDelay(t *testing.T) {
	t.Parallel()

	p := NewWithClient("noreply@example.com", &mockSESClient{})
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
	}

	for _, tt := range tests {
		if got := p.backoffDelay(tt.attempt); got != tt.want {
			t.Errorf("backoffDelay(%d): got %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestProviderInterface(t *testing.T) {
	t.Parallel()

	var _ provider.Provider = (*Provider)(nil)
}
