package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/leadflow/leadflow/internal/core/storage/config"
	"github.com/leadflow/leadflow/internal/core/storage/mongo"
	"github.com/leadflow/leadflow/internal/core/storage/postgres"
	"github.com/leadflow/leadflow/internal/core/storage/types"
	_ "github.com/lib/pq"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
)

// mongoProvider interface to allow mocking
type mongoProvider interface {
	Client() *mongodriver.Client
	DatabaseName() string
}

// Dependency injection for testing
var newMongoProvider = func(ctx context.Context, cfg config.MongoConfig) (Provider, error) {
	return mongo.NewProvider(ctx, cfg.URI, cfg.DatabaseName, cfg.ConnectTimeout)
}

// Dependency injection for postgres
var newPostgresDB = func(ctx context.Context, cfg config.PostgresConfig) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	return db, nil
}

type factory struct {
	providers  map[string]Provider
	postgresDB map[string]*sqlx.DB
	leadStore  types.LeadStore
	usrStore   types.UserStore
	revStore   types.TokenRevocationStore
	mu         sync.Mutex
}

func NewFactory(ctx context.Context, cfg config.Config) (StorageFactory, error) {
	f := &factory{
		providers:  make(map[string]Provider),
		postgresDB: make(map[string]*sqlx.DB),
	}
	success := false
	defer func() {
		if !success {
			f.Close()
		}
	}()

	// 1. Connect backends
	for name, backendCfg := range cfg.Backends {
		switch backendCfg.Type {
		case config.BackendMongo:
			p, err := newMongoProvider(ctx, backendCfg.Mongo)
			if err != nil {
				return nil, fmt.Errorf("failed to initialize backend %s: %w", name, err)
			}
			f.providers[name] = p
		case config.BackendPostgres:
			db, err := newPostgresDB(ctx, backendCfg.Postgres)
			if err != nil {
				return nil, fmt.Errorf("failed to initialize backend %s: %w", name, err)
			}
			f.postgresDB[name] = db
		default:
			return nil, fmt.Errorf("unsupported backend type: %s", backendCfg.Type)
		}
	}

	// 2. Lead store
	leadDB, err := f.mongoDatabase(cfg.Topology.Lead.Backend)
	if err != nil {
		return nil, fmt.Errorf("lead store: %w", err)
	}
	f.leadStore = mongo.NewLeadStore(leadDB, cfg.Topology.Lead.Collection)

	// 3. User store
	userStore, err := f.createUserStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	f.usrStore = userStore

	// 4. Revocation store
	revDB, err := f.mongoDatabase(cfg.Topology.Revocation.Backend)
	if err != nil {
		return nil, fmt.Errorf("revocation store: %w", err)
	}
	f.revStore = mongo.NewRevocationStore(revDB, cfg.Topology.Revocation.Collection)

	success = true
	return f, nil
}

func (f *factory) createUserStore(ctx context.Context, cfg config.Config) (types.UserStore, error) {
	topo := cfg.Topology.User
	backendCfg, ok := cfg.Backends[topo.Backend]
	if !ok {
		return nil, fmt.Errorf("backend not found: %s", topo.Backend)
	}

	switch backendCfg.Type {
	case config.BackendMongo:
		db, err := f.mongoDatabase(topo.Backend)
		if err != nil {
			return nil, err
		}
		return mongo.NewUserStore(db, topo.Collection), nil
	case config.BackendPostgres:
		db, ok := f.postgresDB[topo.Backend]
		if !ok {
			return nil, fmt.Errorf("backend %s is not connected", topo.Backend)
		}
		if err := postgres.EnsureSchema(ctx, db, topo.Collection); err != nil {
			return nil, fmt.Errorf("failed to ensure postgres schema: %w", err)
		}
		return postgres.NewUserStore(db, topo.Collection)
	}
	return nil, fmt.Errorf("unsupported backend type for user store: %s", backendCfg.Type)
}

func (f *factory) getMongoProvider(name string) (mongoProvider, error) {
	p, ok := f.providers[name]
	if !ok {
		return nil, fmt.Errorf("backend not found: %s", name)
	}
	mp, ok := p.(mongoProvider)
	if !ok {
		return nil, fmt.Errorf("backend %s is not a mongo provider", name)
	}
	return mp, nil
}

func (f *factory) mongoDatabase(name string) (*mongodriver.Database, error) {
	p, err := f.getMongoProvider(name)
	if err != nil {
		return nil, err
	}
	return p.Client().Database(p.DatabaseName()), nil
}

func (f *factory) GetMongoClient(name string) (*mongodriver.Client, string, error) {
	p, err := f.getMongoProvider(name)
	if err != nil {
		return nil, "", err
	}
	return p.Client(), p.DatabaseName(), nil
}

func (f *factory) Lead() types.LeadStore {
	return f.leadStore
}

func (f *factory) User() types.UserStore {
	return f.usrStore
}

func (f *factory) Revocation() types.TokenRevocationStore {
	return f.revStore
}

func (f *factory) EnsureIndexes(ctx context.Context) error {
	var errs []error
	if err := f.leadStore.EnsureIndexes(ctx); err != nil {
		errs = append(errs, fmt.Errorf("lead indexes: %w", err))
	}
	if err := f.usrStore.EnsureIndexes(ctx); err != nil {
		errs = append(errs, fmt.Errorf("user indexes: %w", err))
	}
	if err := f.revStore.EnsureIndexes(ctx); err != nil {
		errs = append(errs, fmt.Errorf("revocation indexes: %w", err))
	}
	return errors.Join(errs...)
}

func (f *factory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var errs []error
	for _, p := range f.providers {
		if err := p.Close(context.Background()); err != nil {
			errs = append(errs, err)
		}
	}
	for _, db := range f.postgresDB {
		if err := db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing providers: %v", errs)
	}
	return nil
}
