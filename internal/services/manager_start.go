package services

import (
	"context"
	"errors"
)

var errNotInitialized = errors.New("services: Start called before Init")

// Start runs the HTTP server and the live stream hub in the background.
// Failures are delivered on Errors.
func (m *Manager) Start(ctx context.Context) error {
	if m.server == nil {
		return errNotInitialized
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if err := m.server.Start(runCtx); err != nil {
			m.logger.Error("HTTP server stopped", "error", err)
			m.report(err)
		}
	}()

	if m.gateway.StreamEnabled() {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			if err := m.gateway.Run(runCtx); err != nil {
				m.logger.Error("Lead stream hub stopped", "error", err)
				m.report(err)
			}
		}()
	}

	m.logger.Info("Services started",
		"addr", m.cfg.Server.Host, "port", m.cfg.Server.HTTPPort)
	return nil
}

func (m *Manager) report(err error) {
	select {
	case m.errs <- err:
	default:
	}
}
