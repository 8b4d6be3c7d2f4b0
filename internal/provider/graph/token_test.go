package graph

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestTokenSource_Caches(t *testing.T) {
	t.Parallel()

	var issued atomic.Int32
	srv := newTokenServer(t, &issued)
	ts := newTokenSource(srv.URL, "id", "secret", srv.Client())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := ts.Token(context.Background()); err != nil {
				t.Errorf("Token: %v", err)
			}
		}()
	}
	wg.Wait()

	if issued.Load() != 1 {
		t.Errorf("tokens issued: got %d, want 1", issued.Load())
	}
}

func TestTokenSource_ExpiredTokenRefetched(t *testing.T) {
	t.Parallel()

	var issued atomic.Int32
	srv := newTokenServer(t, &issued)
	ts := newTokenSource(srv.URL, "id", "secret", srv.Client())

	if _, err := ts.Token(context.Background()); err != nil {
		t.Fatalf("Token: %v", err)
	}
	ts.expiresAt = time.Now().Add(-time.Second)

	got, err := ts.Token(context.Background())
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if got != "token-2" {
		t.Errorf("Token: got %q, want %q", got, "token-2")
	}
}

func TestTokenSource_EndpointError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_client"}`, http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	ts := newTokenSource(srv.URL, "id", "bad", srv.Client())
	if _, err := ts.Token(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestTokenSource_MissingAccessToken(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"expires_in":3600}`))
	}))
	t.Cleanup(srv.Close)

	ts := newTokenSource(srv.URL, "id", "secret", srv.Client())
	if _, err := ts.Token(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
