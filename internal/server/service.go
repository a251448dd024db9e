package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/leadflow/leadflow/internal/server/ratelimit"
)

type serverImpl struct {
	cfg    Config
	logger *slog.Logger

	httpMux    *http.ServeMux
	httpServer *http.Server

	rateLimiter     ratelimit.Limiter
	authRateLimiter ratelimit.Limiter

	mu      sync.Mutex
	started bool
}

// New creates a new Service instance.
func New(cfg Config, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "server")

	s := &serverImpl{
		cfg:     cfg,
		logger:  logger,
		httpMux: http.NewServeMux(),
	}
	s.rateLimiter, s.authRateLimiter = ratelimit.New(cfg.RateLimit)
	return s
}

func (s *serverImpl) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("server already started")
	}
	s.started = true
	s.initHTTPServer()
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go s.runHTTPServer(errChan)

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		return nil
	}
}

func (s *serverImpl) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	if s.httpServer != nil {
		s.logger.Info("Stopping HTTP server")
		if err := s.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown error: %w", err))
		}
	}

	for _, l := range []ratelimit.Limiter{s.rateLimiter, s.authRateLimiter} {
		if stoppable, ok := l.(ratelimit.Stoppable); ok {
			stoppable.Stop()
		}
	}

	return errors.Join(errs...)
}

func (s *serverImpl) RegisterHTTPHandler(pattern string, handler http.Handler) {
	s.httpMux.Handle(pattern, handler)
}

func (s *serverImpl) HTTPMux() *http.ServeMux {
	return s.httpMux
}

func (s *serverImpl) Handler() http.Handler {
	return s.wrapMiddleware(s.httpMux)
}
