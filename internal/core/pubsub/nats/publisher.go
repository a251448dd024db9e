package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/leadflow/leadflow/internal/core/pubsub"
	"github.com/nats-io/nats.go/jetstream"
)

// jetStreamPublisher writes lead events to a JetStream stream.
type jetStreamPublisher struct {
	js   JetStream
	opts pubsub.PublisherOptions
}

// NewPublisher creates a Publisher backed by NATS JetStream. When a stream
// name is set the stream is created or updated to capture the configured
// event subjects.
func NewPublisher(ctx context.Context, js JetStream, opts pubsub.PublisherOptions) (pubsub.Publisher, error) {
	if js == nil {
		return nil, fmt.Errorf("jetstream cannot be nil")
	}
	p := &jetStreamPublisher{js: js, opts: opts}

	if opts.StreamName != "" {
		storage := jetstream.MemoryStorage
		if opts.Storage == pubsub.FileStorage {
			storage = jetstream.FileStorage
		}
		_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
			Name:     opts.StreamName,
			Subjects: p.streamSubjects(),
			Storage:  storage,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to ensure stream %s: %w", opts.StreamName, err)
		}
	}
	return p, nil
}

func (p *jetStreamPublisher) qualify(subject string) string {
	if p.opts.SubjectPrefix == "" {
		return subject
	}
	return p.opts.SubjectPrefix + "." + subject
}

func (p *jetStreamPublisher) streamSubjects() []string {
	if len(p.opts.Subjects) == 0 {
		if p.opts.SubjectPrefix != "" {
			return []string{p.opts.SubjectPrefix + ".>"}
		}
		return []string{p.opts.StreamName + ".>"}
	}
	out := make([]string, 0, len(p.opts.Subjects))
	for _, s := range p.opts.Subjects {
		out = append(out, p.qualify(s))
	}
	return out
}

// eventID reads the "id" of a JSON event payload. JetStream uses it as the
// message ID, so a retried publish of the same event is stored once.
func eventID(data []byte) string {
	var head struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return ""
	}
	return head.ID
}

// Publish sends an event to the prefixed subject.
func (p *jetStreamPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	start := time.Now()
	fullSubject := p.qualify(subject)

	var publishOpts []jetstream.PublishOpt
	if p.opts.RetryAttempts > 0 {
		publishOpts = append(publishOpts, jetstream.WithRetryAttempts(p.opts.RetryAttempts))
	}
	if p.opts.StreamName != "" {
		publishOpts = append(publishOpts, jetstream.WithExpectStream(p.opts.StreamName))
	}
	if id := eventID(data); id != "" {
		publishOpts = append(publishOpts, jetstream.WithMsgID(id))
	}

	_, err := p.js.Publish(ctx, fullSubject, data, publishOpts...)

	if p.opts.OnPublish != nil {
		p.opts.OnPublish(fullSubject, err, time.Since(start))
	}
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", fullSubject, err)
	}
	return nil
}

// Close is a no-op; the connection is owned by Connect's caller.
func (p *jetStreamPublisher) Close() error {
	return nil
}
