package memory

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/leadflow/leadflow/internal/core/pubsub"
)

type publisher struct {
	broker *Broker
	opts   pubsub.PublisherOptions
	closed atomic.Bool
}

// NewPublisher returns a Publisher that delivers into the broker.
// Closing the publisher leaves the broker open.
func NewPublisher(b *Broker, opts pubsub.PublisherOptions) pubsub.Publisher {
	return &publisher{broker: b, opts: opts}
}

func (p *publisher) Publish(ctx context.Context, subject string, data []byte) error {
	if p.closed.Load() {
		return ErrBrokerClosed
	}

	start := time.Now()

	fullSubject := subject
	if p.opts.SubjectPrefix != "" {
		fullSubject = p.opts.SubjectPrefix + "." + subject
	}

	err := p.broker.Publish(ctx, fullSubject, data)

	if p.opts.OnPublish != nil {
		p.opts.OnPublish(fullSubject, err, time.Since(start))
	}
	return err
}

func (p *publisher) Close() error {
	p.closed.Store(true)
	return nil
}
