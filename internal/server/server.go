// Package server exposes the talk pipeline and the license status over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/book-expert/logger"
	"github.com/book-expert/yukkuri-service/internal/talk"
	"github.com/google/uuid"
)

// Talker renders a raw talk request body into audio.
type Talker interface {
	TalkForm(ctx context.Context, contentType string, body io.Reader) (*talk.Result, error)
}

// LicenseReporter reports which license keys are configured.
type LicenseReporter interface {
	Status() map[string]bool
}

// Config holds the listener settings.
type Config struct {
	Address      string
	DocumentRoot string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxBodyBytes int64
}

// Server is the yukkuri HTTP server.
type Server struct {
	httpServer *http.Server
	log        *logger.Logger
	config     Config

	mu       sync.Mutex
	listener net.Listener
}

// New creates a new Server.
func New(cfg Config, talker Talker, licenses LicenseReporter, log *logger.Logger) *Server {
	router := NewRouter(talker, licenses, cfg.DocumentRoot, cfg.MaxBodyBytes, log)

	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Address,
			Handler:           loggingMiddleware(log, router),
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
		},
		log:    log,
		config: cfg,
	}
}

// Start listens and serves until the server is stopped.
func (s *Server) Start() error {
	err := s.listen()
	if err != nil {
		return err
	}

	return s.serve()
}

// StartAsync binds the listener and serves in the background. Bind errors are
// returned synchronously.
func (s *Server) StartAsync() error {
	err := s.listen()
	if err != nil {
		return err
	}

	go func() {
		serveErr := s.serve()
		if serveErr != nil {
			s.log.Error("HTTP server error: %v", serveErr)
		}
	}()

	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("Stopping yukkuri server")

	err := s.httpServer.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("failed to shut down HTTP server: %w", err)
	}

	return nil
}

// Address returns the bound address once listening, otherwise the configured one.
func (s *Server) Address() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return s.listener.Addr().String()
	}

	return s.config.Address
}

func (s *Server) listen() error {
	listener, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Address, err)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	s.log.System("Serving HTTP on %s (document root %s)", listener.Addr(), s.config.DocumentRoot)

	return nil
}

func (s *Server) serve() error {
	s.mu.Lock()
	listener := s.listener
	s.mu.Unlock()

	err := s.httpServer.Serve(listener)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}

// loggingMiddleware logs every request with its status and duration.
func loggingMiddleware(log *logger.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()

		wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		log.Info("HTTP %s %s -> %d in %s [%s %s]",
			r.Method, r.URL.Path, wrapper.statusCode, time.Since(start), requestID, r.RemoteAddr)
	})
}

// responseWrapper wraps http.ResponseWriter to capture the status code.
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWrapper) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}
