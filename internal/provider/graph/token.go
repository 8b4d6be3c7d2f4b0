package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// tokenExpiryBuffer treats a token as expired slightly early so it never
// lapses mid-request.
const tokenExpiryBuffer = 5 * time.Minute

const graphScope = "https://graph.microsoft.com/.default"

// tokenSource caches an OAuth2 client-credentials token. Safe for
// concurrent use.
type tokenSource struct {
	mu        sync.Mutex
	token     string
	expiresAt time.Time

	tokenURL     string
	clientID     string
	clientSecret string
	httpClient   *http.Client
}

func newTokenSource(tokenURL, clientID, clientSecret string, httpClient *http.Client) *tokenSource {
	return &tokenSource{
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   httpClient,
	}
}

// Token returns the cached token, fetching a new one when it is missing or
// about to expire.
func (ts *tokenSource) Token(ctx context.Context) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.token != "" && time.Now().Before(ts.expiresAt) {
		return ts.token, nil
	}
	return ts.fetch(ctx)
}

// Invalidate discards the cached token and fetches a fresh one.
func (ts *tokenSource) Invalidate(ctx context.Context) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	ts.token = ""
	ts.expiresAt = time.Time{}
	return ts.fetch(ctx)
}

// fetch requires ts.mu.
func (ts *tokenSource) fetch(ctx context.Context) (string, error) {
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {ts.clientID},
		"client_secret": {ts.clientSecret},
		"scope":         {graphScope},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := ts.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", fmt.Errorf("failed to parse token response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("token response missing access_token")
	}

	ts.token = tr.AccessToken
	ts.expiresAt = time.Now().Add(time.Duration(tr.ExpiresIn)*time.Second - tokenExpiryBuffer)
	return ts.token, nil
}
