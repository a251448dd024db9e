// Package pubsub provides a small pub/sub abstraction for lead change events.
package pubsub

import (
	"context"
	"time"
)

// Message is a delivered event.
type Message struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
}

// Publisher publishes messages to a subject.
type Publisher interface {
	// Publish sends a message to the specified subject.
	Publish(ctx context.Context, subject string, data []byte) error

	// Close releases resources.
	Close() error
}

// Subscriber delivers messages whose subject matches a pattern.
// The returned channel is closed after the cancel function is called
// or the subscriber shuts down.
type Subscriber interface {
	Subscribe(ctx context.Context, pattern string) (<-chan Message, func(), error)
}
