package nats

import (
	"context"
	"fmt"
	"time"

	"github.com/leadflow/leadflow/internal/core/pubsub"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// JetStream is the subset of jetstream.JetStream used by the publisher.
type JetStream interface {
	CreateOrUpdateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error)
	Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// JetStreamNew is a variable to allow mocking in tests.
var JetStreamNew = func(nc *nats.Conn) (JetStream, error) {
	return jetstream.New(nc)
}

// natsConnect is a variable to allow mocking in tests.
var natsConnect = func(url string, opts ...nats.Option) (*nats.Conn, error) {
	return nats.Connect(url, opts...)
}

// Connect dials the NATS server and returns a publisher on its JetStream context.
// The returned close function drains the connection.
func Connect(ctx context.Context, url string, opts pubsub.PublisherOptions) (pubsub.Publisher, func(), error) {
	nc, err := natsConnect(url,
		nats.Name("leadflow"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}

	js, err := JetStreamNew(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	pub, err := NewPublisher(ctx, js, opts)
	if err != nil {
		nc.Close()
		return nil, nil, err
	}

	closeFn := func() {
		if err := nc.Drain(); err != nil {
			nc.Close()
		}
	}
	return pub, closeFn, nil
}
