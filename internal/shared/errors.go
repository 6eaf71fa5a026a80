package shared

import (
	"fmt"
	"time"
)

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTokenExpired     = fmt.Errorf("access token expired")
	ErrRefreshFailed    = fmt.Errorf("token refresh failed")
	ErrNoRefreshToken   = fmt.Errorf("no refresh token available")

	// API and gateway errors
	ErrRequestFailed    = fmt.Errorf("API request failed")
	ErrRateLimited      = fmt.Errorf("rate limited")
	ErrInsufficientAuth = fmt.Errorf("insufficient authorization scope")
	ErrNotFound         = fmt.Errorf("resource not found")

	// Input validation errors
	ErrInvalidInput = fmt.Errorf("invalid input")
	ErrInvalidID    = fmt.Errorf("invalid spotify id")
	ErrInvalidURI   = fmt.Errorf("invalid spotify uri")
	ErrInvalidLimit = fmt.Errorf("invalid limit")

	// Persistence errors
	ErrStorageFailed = fmt.Errorf("storage operation failed")

	// Domain errors
	ErrUnknownEntity = fmt.Errorf("unknown entity")
	ErrNoSuchDevice  = fmt.Errorf("no such device")

	// Engine errors
	ErrServiceUnavailable = fmt.Errorf("service not available")
	ErrFlushInProgress    = fmt.Errorf("flush already in progress")
)

// AuthError indicates the authorization server rejected a credential.
// It is never retried automatically; the caller must re-authorize.
type AuthError struct {
	Grant  string // grant type that failed ("regular" or "extended")
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%v: %s grant: %s", ErrAuthFailed, e.Grant, e.Reason)
}

func (e *AuthError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrAuthFailed, e.Err}
	}
	return []error{ErrAuthFailed}
}

// RequestError carries the final status and body of a request that
// exhausted its retry budget against transient failures (5xx, resets).
type RequestError struct {
	Method   string
	Endpoint string
	Status   int
	Body     string
	Attempts int
	Err      error
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: %s %s after %d attempts: %v", ErrRequestFailed, e.Method, e.Endpoint, e.Attempts, e.Err)
	}
	return fmt.Sprintf("%v: %s %s: status %d after %d attempts", ErrRequestFailed, e.Method, e.Endpoint, e.Status, e.Attempts)
}

func (e *RequestError) Unwrap() error { return ErrRequestFailed }

// RateLimitError is raised when repeated 429 responses exhaust the retry
// budget. Wait is the total retry-after duration the server asked for, so
// callers can suspend before trying again.
type RateLimitError struct {
	Endpoint string
	Attempts int
	Wait     time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%v: %s: %d attempts, retry after %s", ErrRateLimited, e.Endpoint, e.Attempts, e.Wait)
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

// InputError reports a malformed argument before any network call is made.
type InputError struct {
	Field string
	Value any
	Want  string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%v: %s=%v, want %s", ErrInvalidInput, e.Field, e.Value, e.Want)
}

func (e *InputError) Unwrap() error { return ErrInvalidInput }

// StorageError identifies which statement of a transactional batch failed.
// Statement is the zero-based position within the batch, or -1 for
// failures outside a batch (open, begin, commit).
type StorageError struct {
	Statement int
	Query     string
	Err       error
}

func (e *StorageError) Error() string {
	if e.Statement < 0 {
		return fmt.Sprintf("%v: %v", ErrStorageFailed, e.Err)
	}
	return fmt.Sprintf("%v: statement %d (%s): %v", ErrStorageFailed, e.Statement, e.Query, e.Err)
}

func (e *StorageError) Unwrap() error { return ErrStorageFailed }

// DomainError reports a business-rule violation, e.g. operating on a
// device the remote service does not know about.
type DomainError struct {
	Kind string // entity kind: "track", "device", ...
	ID   string
	Err  error
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Kind, e.ID, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }
