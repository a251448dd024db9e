package storage

import (
	"context"

	"github.com/leadflow/leadflow/internal/core/storage/types"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
)

// Provider represents a physical connection to a storage backend.
type Provider interface {
	// Close closes the connection.
	Close(ctx context.Context) error
}

// StorageFactory hands out the stores built from the storage config.
type StorageFactory interface {
	// Lead returns the lead store.
	Lead() types.LeadStore

	// User returns the user store.
	User() types.UserStore

	// Revocation returns the token revocation store.
	Revocation() types.TokenRevocationStore

	// GetMongoClient returns the raw MongoDB client and database name of a backend.
	GetMongoClient(name string) (*mongodriver.Client, string, error)

	// EnsureIndexes creates the indexes of every store.
	EnsureIndexes(ctx context.Context) error

	Close() error
}
