package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/leadflow/leadflow/internal/core/pubsub"
)

const defaultBufSize = 64

// Broker routes published messages to in-process subscribers.
// Each pattern has at most one subscriber.
type Broker struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription
	bufSize       int
	closed        atomic.Bool
}

type subscription struct {
	msgCh      chan pubsub.Message
	ctx        context.Context
	cancelFunc context.CancelFunc
}

var _ pubsub.Subscriber = (*Broker)(nil)

// NewBroker creates a broker whose subscription channels hold bufSize messages.
func NewBroker(bufSize int) *Broker {
	if bufSize <= 0 {
		bufSize = defaultBufSize
	}
	return &Broker{
		subscriptions: make(map[string]*subscription),
		bufSize:       bufSize,
	}
}

// Publish delivers a message to every matching subscription, blocking while
// a subscriber's buffer is full until ctx is done.
func (b *Broker) Publish(ctx context.Context, subject string, data []byte) error {
	if b.closed.Load() {
		return ErrBrokerClosed
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	msg := pubsub.Message{Subject: subject, Data: data, Timestamp: time.Now()}
	for pattern, sub := range b.subscriptions {
		if !matchSubject(pattern, subject) {
			continue
		}
		select {
		case sub.msgCh <- msg:
		case <-ctx.Done():
			return ctx.Err()
		case <-sub.ctx.Done():
			// Subscription cancelled, skip
		}
	}
	return nil
}

// Subscribe registers a subscription for pattern.
// Returns the message channel, an unsubscribe function, and any error.
func (b *Broker) Subscribe(ctx context.Context, pattern string) (<-chan pubsub.Message, func(), error) {
	if b.closed.Load() {
		return nil, nil, ErrBrokerClosed
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subscriptions[pattern] != nil {
		return nil, nil, ErrPatternSubscribed
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{
		msgCh:      make(chan pubsub.Message, b.bufSize),
		ctx:        subCtx,
		cancelFunc: cancel,
	}
	b.subscriptions[pattern] = sub

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if b.subscriptions[pattern] == sub {
				delete(b.subscriptions, pattern)
				cancel()
				close(sub.msgCh)
			}
		})
	}

	return sub.msgCh, unsubscribe, nil
}

// Close shuts down the broker and all subscriptions.
func (b *Broker) Close() error {
	if b.closed.Swap(true) {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subscriptions {
		sub.cancelFunc()
		close(sub.msgCh)
	}
	b.subscriptions = map[string]*subscription{}
	return nil
}
