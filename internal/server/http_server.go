package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
)

// initHTTPServer builds the listener for the API. Connection-level errors
// from net/http (TLS handshakes, bad requests) go to the server logger at warn.
func (s *serverImpl) initHTTPServer() {
	s.httpServer = &http.Server{
		Addr:              net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.HTTPPort)),
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.cfg.HTTPReadTimeout,
		ReadTimeout:       s.cfg.HTTPReadTimeout,
		WriteTimeout:      s.cfg.HTTPWriteTimeout,
		IdleTimeout:       s.cfg.HTTPIdleTimeout,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}
}

func (s *serverImpl) runHTTPServer(errChan chan<- error) {
	s.logger.Info("Starting LeadFlow API", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		errChan <- fmt.Errorf("http server error: %w", err)
	}
}
