package services

import (
	"context"
	"log/slog"
	"sync"

	"github.com/leadflow/leadflow/internal/config"
	"github.com/leadflow/leadflow/internal/core/identity"
	"github.com/leadflow/leadflow/internal/core/leads"
	"github.com/leadflow/leadflow/internal/core/pubsub"
	"github.com/leadflow/leadflow/internal/core/pubsub/memory"
	"github.com/leadflow/leadflow/internal/core/storage"
	"github.com/leadflow/leadflow/internal/gateway"
	"github.com/leadflow/leadflow/internal/server"
)

// Manager owns the lifecycle of every component in the process:
// storage, event publishing, identity, the gateway and the HTTP server.
type Manager struct {
	cfg    *config.Config
	logger *slog.Logger

	storageFactory storage.StorageFactory
	broker         *memory.Broker
	publisher      pubsub.Publisher
	closeNATS      func()

	leadService leads.Service
	authN       identity.AuthN
	authZ       identity.AuthZ
	gateway     *gateway.Server
	server      server.Service

	cancel context.CancelFunc
	errs   chan error
	wg     sync.WaitGroup
}

func NewManager(cfg *config.Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		cfg:    cfg,
		logger: logger.With("component", "services"),
		errs:   make(chan error, 2),
	}
}

// Errors reports fatal failures of background components after Start.
func (m *Manager) Errors() <-chan error {
	return m.errs
}

func (m *Manager) LeadService() leads.Service {
	return m.leadService
}

func (m *Manager) AuthService() identity.AuthN {
	return m.authN
}

func (m *Manager) HTTPServer() server.Service {
	return m.server
}
