package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spotmirror/spotmirror/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"

	// refresh when less than a minute of validity remains
	expiryMargin = time.Minute
)

// Scopes required by the extended grant.
var extendedScopes = []string{
	"user-read-playback-state",
	"user-read-currently-playing",
	"user-modify-playback-state",
	"user-library-read",
	"user-library-modify",
	"user-top-read",
	"user-follow-modify",
	"playlist-modify-public",
	"playlist-modify-private",
	"playlist-read-private",
}

// Grant selects between the two token modes the API supports.
type Grant string

const (
	// GrantRegular is the short-lived client-credentials token; catalog
	// reads only, no user scopes.
	GrantRegular Grant = "regular"
	// GrantExtended is the longer-lived user-scoped authorization grant.
	GrantExtended Grant = "extended"
)

// Token is an access credential with its expiry and granted scopes.
type Token struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
	Scopes       string
}

// Valid reports whether the token is usable now, with a safety margin so
// a request never departs with a token about to expire mid-flight.
func (t *Token) Valid() bool {
	return t != nil && t.AccessToken != "" && time.Until(t.Expiry) > expiryMargin
}

// TokenStore persists tokens across process restarts so a valid refresh
// credential survives without re-authorization.
type TokenStore interface {
	SaveToken(grant string, token *Token) error
	LoadToken(grant string) (*Token, error)
}

// TokenManager owns the token lifecycle for both grants. It is the sole
// owner of refresh logic; callers receive value tokens and never mutate
// shared state.
type TokenManager struct {
	conf   *oauth2.Config
	cc     *clientcredentials.Config
	store  TokenStore
	logger *log.Logger

	mu     sync.Mutex
	cached map[Grant]*Token
}

// NewTokenManager builds a manager from Spotify app credentials.
func NewTokenManager(cfg shared.SpotifyConfig, store TokenStore, logger *log.Logger) (*TokenManager, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: client_id and client_secret are required", shared.ErrMissingCredentials)
	}

	redirectURI := cfg.RedirectURI
	if redirectURI == "" {
		redirectURI = "http://localhost:8080/callback"
	}

	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &TokenManager{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  redirectURI,
			Scopes:       extendedScopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  spotifyAuthURL,
				TokenURL: spotifyTokenURL,
			},
		},
		cc: &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     spotifyTokenURL,
		},
		store:  store,
		logger: logger,
		cached: map[Grant]*Token{},
	}, nil
}

// AuthCodeURL returns the authorization URL to open in a browser. The
// state token must be checked by the callback handler.
func (m *TokenManager) AuthCodeURL(state string) string {
	return m.conf.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades an authorization code for an extended token and
// persists it.
func (m *TokenManager) Exchange(ctx context.Context, code string) (*Token, error) {
	ot, err := m.conf.Exchange(ctx, code)
	if err != nil {
		return nil, &shared.AuthError{Grant: string(GrantExtended), Reason: "code exchange rejected", Err: err}
	}
	return m.adopt(GrantExtended, ot)
}

// Token returns a token guaranteed non-expired at return time for the
// given grant. With forceNew the cached and persisted copies are ignored
// and a fresh credential is obtained.
func (m *TokenManager) Token(ctx context.Context, grant Grant, forceNew bool) (*Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !forceNew {
		if tok := m.cached[grant]; tok.Valid() {
			return tok, nil
		}
		if m.store != nil {
			if tok, err := m.store.LoadToken(string(grant)); err == nil && tok.Valid() {
				m.cached[grant] = tok
				return tok, nil
			} else if err == nil && tok != nil && grant == GrantExtended && tok.RefreshToken != "" {
				// expired but refreshable
				m.cached[grant] = tok
			}
		}
	}

	switch grant {
	case GrantRegular:
		return m.refreshRegular(ctx)
	case GrantExtended:
		return m.refreshExtended(ctx)
	default:
		return nil, &shared.InputError{Field: "grant", Value: string(grant), Want: "regular|extended"}
	}
}

// refreshRegular obtains a fresh client-credentials token. Caller holds mu.
func (m *TokenManager) refreshRegular(ctx context.Context) (*Token, error) {
	ot, err := m.cc.Token(ctx)
	if err != nil {
		return nil, &shared.AuthError{Grant: string(GrantRegular), Reason: "client credentials rejected", Err: err}
	}
	return m.adoptLocked(GrantRegular, ot)
}

// refreshExtended refreshes the user-scoped token using the stored
// refresh credential. Caller holds mu.
func (m *TokenManager) refreshExtended(ctx context.Context) (*Token, error) {
	current := m.cached[GrantExtended]
	if current == nil && m.store != nil {
		current, _ = m.store.LoadToken(string(GrantExtended))
	}
	if current == nil || current.RefreshToken == "" {
		return nil, &shared.AuthError{Grant: string(GrantExtended), Reason: "no refresh token, re-authorization required", Err: shared.ErrNoRefreshToken}
	}

	src := m.conf.TokenSource(ctx, &oauth2.Token{RefreshToken: current.RefreshToken})
	ot, err := src.Token()
	if err != nil {
		// The authorization server rejected the refresh credential;
		// surfaced to the caller, never silently retried.
		return nil, &shared.AuthError{Grant: string(GrantExtended), Reason: "refresh rejected, re-authorization required", Err: err}
	}

	// Spotify may omit the refresh token on refresh; keep the old one.
	if ot.RefreshToken == "" {
		ot.RefreshToken = current.RefreshToken
	}

	return m.adoptLocked(GrantExtended, ot)
}

func (m *TokenManager) adopt(grant Grant, ot *oauth2.Token) (*Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.adoptLocked(grant, ot)
}

// adoptLocked caches and persists a freshly obtained token. Caller holds mu.
func (m *TokenManager) adoptLocked(grant Grant, ot *oauth2.Token) (*Token, error) {
	tok := &Token{
		AccessToken:  ot.AccessToken,
		RefreshToken: ot.RefreshToken,
		Expiry:       ot.Expiry,
	}
	if scope, ok := ot.Extra("scope").(string); ok {
		tok.Scopes = scope
	}

	m.cached[grant] = tok

	if m.store != nil {
		if err := m.store.SaveToken(string(grant), tok); err != nil {
			return nil, fmt.Errorf("failed to persist %s token: %w", grant, err)
		}
	}

	m.logger.Debug("token refreshed", "grant", grant, "expires", tok.Expiry)
	return tok, nil
}
