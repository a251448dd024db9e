package services

import (
	"context"
	"fmt"

	"github.com/leadflow/leadflow/internal/config"
	"github.com/leadflow/leadflow/internal/core/identity"
	"github.com/leadflow/leadflow/internal/core/leads"
	"github.com/leadflow/leadflow/internal/core/pubsub"
	"github.com/leadflow/leadflow/internal/core/pubsub/memory"
	pubsubnats "github.com/leadflow/leadflow/internal/core/pubsub/nats"
	"github.com/leadflow/leadflow/internal/core/storage"
	"github.com/leadflow/leadflow/internal/gateway"
	"github.com/leadflow/leadflow/internal/metrics"
	"github.com/leadflow/leadflow/internal/server"
)

var storageFactoryFactory = func(ctx context.Context, cfg *config.Config) (storage.StorageFactory, error) {
	return storage.NewFactory(ctx, cfg.Storage)
}

var natsConnect = pubsubnats.Connect

// Init builds every component. On failure anything already opened is released.
func (m *Manager) Init(ctx context.Context) (err error) {
	defer func() {
		if err != nil {
			m.release()
		}
	}()

	if err = m.initStorage(ctx); err != nil {
		return err
	}
	if err = m.initEvents(ctx); err != nil {
		return err
	}
	if err = m.initIdentity(); err != nil {
		return err
	}
	return m.initGateway()
}

func (m *Manager) initStorage(ctx context.Context) error {
	factory, err := storageFactoryFactory(ctx, m.cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	m.storageFactory = factory
	m.logger.Info("Connected to storage")

	if err := factory.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("failed to ensure indexes: %w", err)
	}
	return nil
}

func (m *Manager) initEvents(ctx context.Context) error {
	events := m.cfg.Events
	if !events.Enabled {
		m.publisher = pubsub.Nop{}
		m.logger.Info("Lead events disabled")
		return nil
	}

	m.broker = memory.NewBroker(events.MemoryBuffer)
	pubs := []pubsub.Publisher{
		memory.NewPublisher(m.broker, pubsub.PublisherOptions{OnPublish: metrics.RecordPublish}),
	}

	if events.NATSEnabled() {
		setupCtx, cancel := context.WithTimeout(ctx, events.NATS.SetupTimeout)
		defer cancel()

		pub, closeFn, err := natsConnect(setupCtx, events.NATS.URL, pubsub.PublisherOptions{
			StreamName:    events.NATS.StreamName,
			SubjectPrefix: events.NATS.SubjectPrefix,
			Subjects:      []string{leads.SubjectPrefix + ".>"},
			RetryAttempts: events.NATS.RetryAttempts,
			Storage:       pubsub.ParseStorageType(events.NATS.Storage),
			OnPublish:     metrics.RecordPublish,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize NATS publisher: %w", err)
		}
		m.closeNATS = closeFn
		pubs = append(pubs, pub)
		m.logger.Info("Publishing lead events to NATS", "url", events.NATS.URL, "stream", events.NATS.StreamName)
	}

	m.publisher = pubsub.Fanout(pubs...)
	return nil
}

func (m *Manager) initIdentity() error {
	authN, err := identity.NewAuthN(m.cfg.Identity.AuthN, m.storageFactory.User(), m.storageFactory.Revocation())
	if err != nil {
		return fmt.Errorf("failed to create auth service: %w", err)
	}
	m.authN = authN

	authZ, err := identity.NewAuthZ(m.cfg.Identity.AuthZ)
	if err != nil {
		return fmt.Errorf("failed to load authorization rules: %w", err)
	}
	m.authZ = authZ
	m.logger.Info("Loaded authorization rules", "file", m.cfg.Identity.AuthZ.RulesFile)
	return nil
}

func (m *Manager) initGateway() error {
	m.leadService = leads.NewService(m.storageFactory.Lead(), m.publisher, m.cfg.Leads, m.logger.With("component", "leads"))

	opts := []gateway.ServerOption{
		gateway.WithLeadsConfig(m.cfg.Leads),
		gateway.WithMetrics(metrics.Handler()),
		gateway.WithLogger(m.logger),
	}
	if m.broker != nil {
		opts = append(opts, gateway.WithEvents(m.broker))
	}

	gw, err := gateway.NewServer(m.leadService, m.authN, m.authZ, m.cfg.Gateway, opts...)
	if err != nil {
		return fmt.Errorf("failed to create gateway: %w", err)
	}
	m.gateway = gw

	m.server = server.New(m.cfg.Server, m.logger)
	gw.RegisterRoutes(m.server.HTTPMux())
	m.logger.Info("Gateway routes registered", "stream", gw.StreamEnabled())
	return nil
}

// release closes components in reverse construction order.
func (m *Manager) release() {
	if m.publisher != nil {
		if err := m.publisher.Close(); err != nil {
			m.logger.Warn("Error closing publisher", "error", err)
		}
		m.publisher = nil
	}
	if m.closeNATS != nil {
		m.closeNATS()
		m.closeNATS = nil
	}
	if m.broker != nil {
		if err := m.broker.Close(); err != nil {
			m.logger.Warn("Error closing event broker", "error", err)
		}
		m.broker = nil
	}
	if m.storageFactory != nil {
		if err := m.storageFactory.Close(); err != nil {
			m.logger.Warn("Error closing storage", "error", err)
		}
		m.storageFactory = nil
	}
}
