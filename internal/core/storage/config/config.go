package config

import (
	"fmt"
	"os"
	"time"
)

const (
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"

	defaultMongoBackend = "default_mongo"
)

type Config struct {
	Backends map[string]BackendConfig `yaml:"backends"`
	Topology TopologyConfig           `yaml:"topology"`
}

type BackendConfig struct {
	Type     string         `yaml:"type"` // "mongo" or "postgres"
	Mongo    MongoConfig    `yaml:"mongo"`
	Postgres PostgresConfig `yaml:"postgres"`
}

type MongoConfig struct {
	URI            string        `yaml:"uri"`
	DatabaseName   string        `yaml:"database_name"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

type PostgresConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// TopologyConfig binds each store to a backend.
type TopologyConfig struct {
	Lead       CollectionTopology `yaml:"lead"`
	User       CollectionTopology `yaml:"user"`
	Revocation CollectionTopology `yaml:"revocation"`
}

type CollectionTopology struct {
	Backend    string `yaml:"backend"`
	Collection string `yaml:"collection"`
}

func DefaultConfig() Config {
	return Config{
		Backends: map[string]BackendConfig{
			defaultMongoBackend: {
				Type: BackendMongo,
				Mongo: MongoConfig{
					URI:            "mongodb://localhost:27017",
					DatabaseName:   "leadflow",
					ConnectTimeout: 10 * time.Second,
				},
			},
		},
		Topology: TopologyConfig{
			Lead:       CollectionTopology{Backend: defaultMongoBackend, Collection: "leads"},
			User:       CollectionTopology{Backend: defaultMongoBackend, Collection: "users"},
			Revocation: CollectionTopology{Backend: defaultMongoBackend, Collection: "revocations"},
		},
	}
}

// ApplyDefaults fills in zero values with defaults.
func (c *Config) ApplyDefaults() {
	defaults := DefaultConfig()
	if c.Backends == nil {
		c.Backends = defaults.Backends
	}
	for name, b := range c.Backends {
		if b.Type == BackendMongo && b.Mongo.ConnectTimeout == 0 {
			b.Mongo.ConnectTimeout = defaults.Backends[defaultMongoBackend].Mongo.ConnectTimeout
			c.Backends[name] = b
		}
	}
	applyTopologyDefaults(&c.Topology.Lead, defaults.Topology.Lead)
	applyTopologyDefaults(&c.Topology.User, defaults.Topology.User)
	applyTopologyDefaults(&c.Topology.Revocation, defaults.Topology.Revocation)
}

func applyTopologyDefaults(t *CollectionTopology, d CollectionTopology) {
	if t.Backend == "" {
		t.Backend = d.Backend
	}
	if t.Collection == "" {
		t.Collection = d.Collection
	}
}

// ApplyEnvOverrides applies environment variable overrides.
// MONGODB_URI and MONGO_URI both set the default mongo URI; MONGODB_URI wins.
// POSTGRES_DSN switches the user store to a postgres backend.
func (c *Config) ApplyEnvOverrides() {
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		uri = os.Getenv("MONGO_URI")
	}
	if uri != "" {
		if backend, ok := c.Backends[defaultMongoBackend]; ok {
			backend.Mongo.URI = uri
			c.Backends[defaultMongoBackend] = backend
		}
	}
	if val := os.Getenv("DB_NAME"); val != "" {
		if backend, ok := c.Backends[defaultMongoBackend]; ok {
			backend.Mongo.DatabaseName = val
			c.Backends[defaultMongoBackend] = backend
		}
	}
	if val := os.Getenv("POSTGRES_DSN"); val != "" {
		if c.Backends == nil {
			c.Backends = map[string]BackendConfig{}
		}
		c.Backends["default_postgres"] = BackendConfig{
			Type:     BackendPostgres,
			Postgres: PostgresConfig{DSN: val},
		}
		c.Topology.User.Backend = "default_postgres"
	}
}

// ResolvePaths resolves relative paths using the given base directory.
// No paths to resolve in storage config.
func (c *Config) ResolvePaths(_ string) { _ = c }

func (c *Config) Validate() error {
	for name, b := range c.Backends {
		switch b.Type {
		case BackendMongo:
			if b.Mongo.URI == "" {
				return fmt.Errorf("storage.backends.%s.mongo.uri is required", name)
			}
			if b.Mongo.DatabaseName == "" {
				return fmt.Errorf("storage.backends.%s.mongo.database_name is required", name)
			}
		case BackendPostgres:
			if b.Postgres.DSN == "" {
				return fmt.Errorf("storage.backends.%s.postgres.dsn is required", name)
			}
		default:
			return fmt.Errorf("storage.backends.%s: unsupported backend type %q", name, b.Type)
		}
	}

	for store, t := range map[string]CollectionTopology{
		"lead":       c.Topology.Lead,
		"user":       c.Topology.User,
		"revocation": c.Topology.Revocation,
	} {
		b, ok := c.Backends[t.Backend]
		if !ok {
			return fmt.Errorf("storage.topology.%s references unknown backend '%s'", store, t.Backend)
		}
		if store != "user" && b.Type != BackendMongo {
			return fmt.Errorf("storage.topology.%s requires a mongo backend, got %s", store, b.Type)
		}
	}
	return nil
}
