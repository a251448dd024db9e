package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Provider owns one MongoDB client and the database the stores live in.
type Provider struct {
	client *mongo.Client
	dbName string
}

// NewProvider connects and pings. A zero connectTimeout means 10 seconds.
func NewProvider(ctx context.Context, uri string, dbName string, connectTimeout time.Duration) (*Provider, error) {
	if connectTimeout <= 0 {
		connectTimeout = 10 * time.Second
	}
	clientOpts := options.Client().ApplyURI(uri)
	if clientOpts.ConnectTimeout == nil {
		clientOpts.SetConnectTimeout(connectTimeout)
	}
	if clientOpts.ServerSelectionTimeout == nil {
		clientOpts.SetServerSelectionTimeout(connectTimeout)
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, err
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	return &Provider{
		client: client,
		dbName: dbName,
	}, nil
}

// Client returns the underlying MongoDB client
func (p *Provider) Client() *mongo.Client {
	return p.client
}

// Database returns the handle of the configured database
func (p *Provider) Database() *mongo.Database {
	return p.client.Database(p.dbName)
}

// DatabaseName returns the configured database name
func (p *Provider) DatabaseName() string {
	return p.dbName
}

// Close closes the MongoDB connection
func (p *Provider) Close(ctx context.Context) error {
	return p.client.Disconnect(ctx)
}
