package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spotmirror/spotmirror/internal/shared"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://api.spotify.com/v1"

// Tokens supplies a valid access token per grant. Implemented by
// [TokenManager]; test doubles substitute fixed tokens.
type Tokens interface {
	Token(ctx context.Context, grant Grant, forceNew bool) (*Token, error)
}

// Result is the outcome of a single gateway call. Expected conditions
// (status codes) are values here, not panics; only unrecoverable
// failures surface as errors.
type Result struct {
	Status int
	Body   []byte
}

// Decode unmarshals the result body into out. A nil out or empty body is
// a no-op, matching 204 responses.
func (r *Result) Decode(out any) error {
	if out == nil || len(r.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// GatewayOpts configures a Gateway.
type GatewayOpts struct {
	BaseURL     string
	HTTPClient  *http.Client
	Tokens      Tokens
	Logger      *log.Logger
	MaxAttempts int           // retry ceiling per request, 429s included
	Backoff     time.Duration // initial backoff, doubled per transient retry
	RateLimit   float64       // client-side requests per second, 0 disables
	Sleep       func(ctx context.Context, d time.Duration) error
}

// Gateway shapes, sends and retries HTTP requests against the Spotify
// Web API. It is synchronous: a call may block for the duration of its
// retries and backoff. Callers needing responsiveness offload to their
// own goroutine.
type Gateway struct {
	baseURL     string
	httpClient  *http.Client
	tokens      Tokens
	limiter     *rate.Limiter
	logger      *log.Logger
	maxAttempts int
	backoff     time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewGateway creates a Gateway with sane defaults for anything unset.
func NewGateway(opts GatewayOpts) *Gateway {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 4
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 500 * time.Millisecond
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepContext
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}

	return &Gateway{
		baseURL:     opts.BaseURL,
		httpClient:  opts.HTTPClient,
		tokens:      opts.Tokens,
		limiter:     limiter,
		logger:      opts.Logger,
		maxAttempts: opts.MaxAttempts,
		backoff:     opts.Backoff,
		sleep:       opts.Sleep,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Request sends one call under the extended (user-scoped) grant.
func (g *Gateway) Request(ctx context.Context, method, endpoint string, params url.Values, body any) (*Result, error) {
	return g.RequestAs(ctx, GrantExtended, method, endpoint, params, body)
}

// RequestAs sends one HTTP call with a valid token for the given grant
// attached, applying the retry, backoff and rate-limit policies:
//
//   - 401: one forced token refresh, then one retry
//   - 403: surfaced immediately, never retried
//   - 404: surfaced as not-found
//   - 429: suspend for the server's Retry-After, retry up to the attempt
//     ceiling, then escalate to a RateLimitError carrying the total wait
//   - 5xx and connection failures: exponential backoff up to the ceiling,
//     then a RequestError carrying the last status and body
func (g *Gateway) RequestAs(ctx context.Context, grant Grant, method, endpoint string, params url.Values, body any) (*Result, error) {
	if g.tokens == nil {
		return nil, shared.ErrNotAuthenticated
	}

	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, &shared.InputError{Field: "body", Value: body, Want: "JSON-encodable value"}
		}
		payload = data
	}

	apiURL := g.baseURL + endpoint
	if len(params) > 0 {
		apiURL += "?" + params.Encode()
	}

	var (
		lastStatus   int
		lastBody     []byte
		lastErr      error
		rateWait     time.Duration
		rateLimited  bool
		forceRefresh bool
		refreshed    bool
		backoff      = g.backoff
	)

	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		if g.limiter != nil {
			if err := g.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		tok, err := g.tokens.Token(ctx, grant, forceRefresh)
		if err != nil {
			return nil, err
		}
		forceRefresh = false

		var reqBody io.Reader
		if payload != nil {
			reqBody = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, apiURL, reqBody)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		start := time.Now()
		resp, err := g.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			g.logger.Warn("request failed", "method", method, "endpoint", endpoint, "attempt", attempt, "err", err)
			if attempt < g.maxAttempts {
				if serr := g.sleep(ctx, backoff); serr != nil {
					return nil, serr
				}
				backoff *= 2
			}
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}

		g.logger.Info("api call",
			"method", method,
			"endpoint", endpoint,
			"status", resp.StatusCode,
			"duration", time.Since(start),
		)

		lastStatus, lastBody, lastErr = resp.StatusCode, respBody, nil

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return &Result{Status: resp.StatusCode, Body: respBody}, nil

		case resp.StatusCode == http.StatusUnauthorized:
			if refreshed {
				return nil, &shared.AuthError{Grant: string(grant), Reason: "token rejected after forced refresh"}
			}
			refreshed, forceRefresh = true, true
			continue

		case resp.StatusCode == http.StatusForbidden:
			return nil, fmt.Errorf("%w: %s %s", shared.ErrInsufficientAuth, method, endpoint)

		case resp.StatusCode == http.StatusNotFound:
			return nil, fmt.Errorf("%w: %s", shared.ErrNotFound, endpoint)

		case resp.StatusCode == http.StatusTooManyRequests:
			rateLimited = true
			wait := retryAfter(resp.Header)
			rateWait += wait
			if serr := g.sleep(ctx, wait); serr != nil {
				return nil, serr
			}
			continue

		case resp.StatusCode >= 500:
			if attempt < g.maxAttempts {
				if serr := g.sleep(ctx, backoff); serr != nil {
					return nil, serr
				}
				backoff *= 2
			}
			continue

		default:
			// remaining 4xx: not transient, do not retry
			return nil, &shared.RequestError{
				Method:   method,
				Endpoint: endpoint,
				Status:   resp.StatusCode,
				Body:     string(respBody),
				Attempts: attempt,
			}
		}
	}

	if rateLimited {
		return nil, &shared.RateLimitError{Endpoint: endpoint, Attempts: g.maxAttempts, Wait: rateWait}
	}

	return nil, &shared.RequestError{
		Method:   method,
		Endpoint: endpoint,
		Status:   lastStatus,
		Body:     string(lastBody),
		Attempts: g.maxAttempts,
		Err:      lastErr,
	}
}

// getJSON performs a GET under the given grant and decodes into out.
func (g *Gateway) getJSON(ctx context.Context, grant Grant, endpoint string, params url.Values, out any) error {
	res, err := g.RequestAs(ctx, grant, http.MethodGet, endpoint, params, nil)
	if err != nil {
		return err
	}
	return res.Decode(out)
}

// retryAfter parses the Retry-After header, defaulting to one second.
func retryAfter(h http.Header) time.Duration {
	if v := h.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return time.Second
}
