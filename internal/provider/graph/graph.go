// Package graph implements a Provider that hands composed messages to the
// Microsoft Graph sendMail API.
package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/shineum/mailform/internal/email"
)

// maxRetries is the maximum number of retry attempts for transient failures.
const maxRetries = 3

// baseRetryDelay is the initial delay for exponential backoff.
const baseRetryDelay = 1 * time.Second

// Config holds the app registration and mailbox used to send.
type Config struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	Sender       string
}

// Provider sends messages through a single Graph mailbox.
type Provider struct {
	sendURL    string
	httpClient *http.Client
	tokens     *tokenSource
	retryDelay time.Duration
}

// New creates a Provider for the production Graph endpoints.
func New(cfg Config) *Provider {
	tokenURL := fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", cfg.TenantID)
	sendURL := fmt.Sprintf("https://graph.microsoft.com/v1.0/users/%s/sendMail", cfg.Sender)
	return newWithOverrides(cfg, sendURL, tokenURL, &http.Client{Timeout: 30 * time.Second})
}

func newWithOverrides(cfg Config, sendURL, tokenURL string, client *http.Client) *Provider {
	return &Provider{
		sendURL:    sendURL,
		httpClient: client,
		tokens:     newTokenSource(tokenURL, cfg.ClientID, cfg.ClientSecret, client),
		retryDelay: baseRetryDelay,
	}
}

// Send posts msg to sendMail. Transient failures are retried with
// exponential backoff, 429 responses honour Retry-After and a 401 triggers
// one token refresh.
func (p *Provider) Send(ctx context.Context, msg *email.Email) error {
	body, err := json.Marshal(buildSendMailRequest(msg))
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	var lastErr error
	refreshed := false

	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := p.post(ctx, body)
		if err == nil {
			return nil
		}
		lastErr = err

		var se *sendError
		if !errors.As(err, &se) {
			return err
		}

		var delay time.Duration
		switch {
		case se.permanent:
			return se
		case se.statusCode == http.StatusUnauthorized && !refreshed:
			slog.Info("refreshing Graph API token after 401")
			if _, err := p.tokens.Invalidate(ctx); err != nil {
				return fmt.Errorf("token refresh failed: %w", err)
			}
			refreshed = true
			continue
		case se.statusCode == http.StatusTooManyRequests:
			delay = p.retryAfterDelay(se.retryAfter, attempt)
		default:
			delay = p.backoffDelay(attempt)
		}

		slog.Info("Graph API request failed, retrying",
			"status", se.statusCode,
			"attempt", attempt,
			"delay", delay,
			"message_id", msg.MessageID,
		)
		if err := sleepWithContext(ctx, delay); err != nil {
			return fmt.Errorf("context cancelled during retry wait: %w", err)
		}
	}

	return fmt.Errorf("Graph API request failed after %d retries: %w", maxRetries, lastErr)
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "msgraph"
}

func (p *Provider) post(ctx context.Context, body []byte) error {
	token, err := p.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("failed to get access token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.sendURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return &sendError{message: fmt.Sprintf("HTTP request failed: %v", err), transient: true}
	}
	defer resp.Body.Close()

	// sendMail answers 202 Accepted.
	if resp.StatusCode == http.StatusAccepted || resp.StatusCode == http.StatusOK {
		return nil
	}

	raw, _ := io.ReadAll(resp.Body)
	message := string(raw)

	var er errorResponse
	if json.Unmarshal(raw, &er) == nil && er.Error.Message != "" {
		message = er.Error.Message
	}
	return classifyError(resp.StatusCode, message, resp.Header.Get("Retry-After"))
}

// retryAfterDelay honours a numeric Retry-After header and falls back to
// exponential backoff.
func (p *Provider) retryAfterDelay(retryAfter string, attempt int) time.Duration {
	if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return p.backoffDelay(attempt)
}

func (p *Provider) backoffDelay(attempt int) time.Duration {
	delay := p.retryDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
	}
	return delay
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
