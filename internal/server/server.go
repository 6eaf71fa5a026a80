// package server contains the callback listener for the auth flow.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spotmirror/spotmirror/internal/shared"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Handler defines the interface for HTTP request handlers.
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the path patterns this handler serves
}

// Logging returns middleware that records each request's method, path,
// status and duration.
func Logging(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)
			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", recorder.status,
				"duration", time.Since(start),
			)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// CallbackServer is a short-lived loopback HTTP server that exists only to
// receive one OAuth redirect.
type CallbackServer struct {
	server  *http.Server
	handler *OAuthHandler
	logger  *log.Logger
}

// NewCallbackServer binds the OAuth handler to the configured loopback
// address.
func NewCallbackServer(cfg shared.ServerConfig, handler *OAuthHandler, logger *log.Logger) *CallbackServer {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	mux := http.NewServeMux()
	wrapped := Logging(logger)(handler)
	for _, route := range handler.Routes() {
		mux.Handle(route, wrapped)
	}

	return &CallbackServer{
		server: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		handler: handler,
		logger:  logger,
	}
}

// Start begins listening in a background goroutine.
func (s *CallbackServer) Start() {
	go func() {
		s.logger.Debug("callback server listening", "addr", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.handler.Send(OAuthResult{err: fmt.Errorf("callback server failed: %w", err)})
		}
	}()
}

// Wait blocks until the redirect arrives or the context expires, then
// shuts the listener down.
func (s *CallbackServer) Wait(ctx context.Context) (*OAuthResult, error) {
	defer s.Shutdown()

	select {
	case result, ok := <-s.handler.Result():
		if !ok {
			return nil, fmt.Errorf("%w: callback channel closed", shared.ErrAuthFailed)
		}
		if err := result.Error(); err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
		}
		return &result, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, ctx.Err())
	}
}

// Shutdown stops the listener, giving in-flight responses a moment to
// complete.
func (s *CallbackServer) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Debug("callback server shutdown", "err", err)
	}
}
