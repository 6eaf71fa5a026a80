package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/spotmirror/spotmirror/internal/shared"
)

// fixedTokens hands out a static token and records forced refreshes.
type fixedTokens struct {
	token     string
	refreshes int
}

func (f *fixedTokens) Token(ctx context.Context, grant Grant, forceNew bool) (*Token, error) {
	if forceNew {
		f.refreshes++
		f.token = "refreshed-token"
	}
	return &Token{AccessToken: f.token, Expiry: time.Now().Add(time.Hour)}, nil
}

func newTestGateway(t *testing.T, handler http.HandlerFunc) (*Gateway, *httptest.Server, *[]time.Duration) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	var slept []time.Duration
	gateway := NewGateway(GatewayOpts{
		BaseURL: server.URL,
		Tokens:  &fixedTokens{token: "test-token"},
		Sleep: func(ctx context.Context, d time.Duration) error {
			slept = append(slept, d)
			return nil
		},
	})
	return gateway, server, &slept
}

func TestGateway(t *testing.T) {
	ctx := context.Background()

	t.Run("Success Attaches Bearer Token", func(t *testing.T) {
		var gotAuth string
		gateway, _, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			w.Write([]byte(`{"ok":true}`))
		})

		res, err := gateway.Request(ctx, http.MethodGet, "/me", nil, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Status != http.StatusOK {
			t.Errorf("expected 200, got %d", res.Status)
		}
		if gotAuth != "Bearer test-token" {
			t.Errorf("expected bearer header, got %q", gotAuth)
		}
	})

	t.Run("Rate Limit Exhausts Retry Budget", func(t *testing.T) {
		attempts := 0
		gateway, _, slept := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			attempts++
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusTooManyRequests)
		})

		_, err := gateway.Request(ctx, http.MethodGet, "/me/tracks", nil, nil)
		if err == nil {
			t.Fatal("expected rate limit error")
		}

		var rlErr *shared.RateLimitError
		if !errors.As(err, &rlErr) {
			t.Fatalf("expected *shared.RateLimitError, got %T: %v", err, err)
		}
		if attempts != 4 {
			t.Errorf("expected exactly 4 attempts, got %d", attempts)
		}
		if rlErr.Attempts != 4 {
			t.Errorf("expected 4 reported attempts, got %d", rlErr.Attempts)
		}
		if rlErr.Wait != 8*time.Second {
			t.Errorf("expected total wait 8s, got %s", rlErr.Wait)
		}

		var total time.Duration
		for _, d := range *slept {
			total += d
		}
		if total != 8*time.Second {
			t.Errorf("expected simulated wait to sum to 8s, got %s", total)
		}
	})

	t.Run("Rate Limit Then Success", func(t *testing.T) {
		attempts := 0
		gateway, _, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			attempts++
			if attempts == 1 {
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			w.Write([]byte(`{}`))
		})

		res, err := gateway.Request(ctx, http.MethodGet, "/me", nil, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Status != http.StatusOK || attempts != 2 {
			t.Errorf("expected recovery on second attempt, got status %d after %d attempts", res.Status, attempts)
		}
	})

	t.Run("Server Errors Retry With Backoff Then Surface", func(t *testing.T) {
		attempts := 0
		gateway, _, slept := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			attempts++
			http.Error(w, "upstream broke", http.StatusBadGateway)
		})

		_, err := gateway.Request(ctx, http.MethodGet, "/albums/x", nil, nil)
		if err == nil {
			t.Fatal("expected request error")
		}

		var reqErr *shared.RequestError
		if !errors.As(err, &reqErr) {
			t.Fatalf("expected *shared.RequestError, got %T: %v", err, err)
		}
		if attempts != 4 {
			t.Errorf("expected 4 attempts, got %d", attempts)
		}
		if reqErr.Status != http.StatusBadGateway {
			t.Errorf("expected last status 502, got %d", reqErr.Status)
		}

		// exponential: 500ms, 1s, 2s
		want := []time.Duration{500 * time.Millisecond, time.Second, 2 * time.Second}
		if len(*slept) != len(want) {
			t.Fatalf("expected %d backoff sleeps, got %d", len(want), len(*slept))
		}
		for i, d := range want {
			if (*slept)[i] != d {
				t.Errorf("sleep %d: expected %s, got %s", i, d, (*slept)[i])
			}
		}
	})

	t.Run("Unauthorized Forces Single Refresh", func(t *testing.T) {
		attempts := 0
		tokens := &fixedTokens{token: "stale-token"}
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts++
			if r.Header.Get("Authorization") == "Bearer stale-token" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Write([]byte(`{}`))
		}))
		defer server.Close()

		gateway := NewGateway(GatewayOpts{BaseURL: server.URL, Tokens: tokens})

		res, err := gateway.Request(ctx, http.MethodGet, "/me", nil, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Status != http.StatusOK {
			t.Errorf("expected 200 after refresh, got %d", res.Status)
		}
		if tokens.refreshes != 1 {
			t.Errorf("expected exactly one forced refresh, got %d", tokens.refreshes)
		}
		if attempts != 2 {
			t.Errorf("expected 2 attempts, got %d", attempts)
		}
	})

	t.Run("Persistent Unauthorized Is An Auth Error", func(t *testing.T) {
		gateway, _, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})

		_, err := gateway.Request(ctx, http.MethodGet, "/me", nil, nil)
		if !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected auth error, got %v", err)
		}
	})

	t.Run("Forbidden Is Not Retried", func(t *testing.T) {
		attempts := 0
		gateway, _, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			attempts++
			w.WriteHeader(http.StatusForbidden)
		})

		_, err := gateway.Request(ctx, http.MethodPut, "/playlists/x/tracks", nil, nil)
		if !errors.Is(err, shared.ErrInsufficientAuth) {
			t.Errorf("expected scope error, got %v", err)
		}
		if attempts != 1 {
			t.Errorf("expected 1 attempt, got %d", attempts)
		}
	})

	t.Run("Not Found Surfaces", func(t *testing.T) {
		gateway, _, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})

		_, err := gateway.Request(ctx, http.MethodGet, "/playlists/x", nil, nil)
		if !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected not-found error, got %v", err)
		}
	})

	t.Run("Other Client Errors Fail Fast", func(t *testing.T) {
		attempts := 0
		gateway, _, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			attempts++
			http.Error(w, "bad request", http.StatusBadRequest)
		})

		_, err := gateway.Request(ctx, http.MethodGet, "/search", nil, nil)
		var reqErr *shared.RequestError
		if !errors.As(err, &reqErr) {
			t.Fatalf("expected *shared.RequestError, got %v", err)
		}
		if attempts != 1 {
			t.Errorf("expected no retries on 400, got %d attempts", attempts)
		}
	})

	t.Run("No Tokens Configured", func(t *testing.T) {
		gateway := NewGateway(GatewayOpts{BaseURL: "http://localhost:0"})
		_, err := gateway.Request(ctx, http.MethodGet, "/me", nil, nil)
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected not-authenticated, got %v", err)
		}
	})
}
