// Package realtime pushes lead change events to websocket clients.
package realtime

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/leadflow/leadflow/internal/core/leads"
	"github.com/leadflow/leadflow/internal/core/pubsub"
	"github.com/leadflow/leadflow/internal/metrics"
)

var ErrHubStopped = errors.New("realtime hub is not running")

// Hub maintains the set of connected clients and fans every lead event out
// to all of them. A client whose buffer is full is dropped.
type Hub struct {
	subscriber pubsub.Subscriber
	logger     *slog.Logger

	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	count      atomic.Int64

	done chan struct{}
}

func NewHub(subscriber pubsub.Subscriber, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		subscriber: subscriber,
		logger:     logger.With("component", "realtime"),
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run subscribes to lead events and serves the hub until ctx is done or the
// subscription ends.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)

	msgs, unsubscribe, err := h.subscriber.Subscribe(ctx, leads.SubjectPrefix+".>")
	if err != nil {
		return err
	}
	defer unsubscribe()
	defer h.closeAll()

	h.logger.Info("Realtime hub started")
	for {
		select {
		case <-ctx.Done():
			return nil
		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.count.Add(1)
			metrics.StreamClientConnected()
		case c := <-h.unregister:
			h.remove(c)
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			h.broadcast(msg.Data)
		}
	}
}

func (h *Hub) broadcast(data []byte) {
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("Dropping slow stream client", "user_id", c.userID)
			h.remove(c)
		}
	}
}

func (h *Hub) remove(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.count.Add(-1)
	metrics.StreamClientDisconnected()
}

func (h *Hub) closeAll() {
	for c := range h.clients {
		h.remove(c)
	}
}

// Register adds c to the hub. It fails once the hub has stopped.
func (h *Hub) Register(c *Client) error {
	select {
	case h.register <- c:
		return nil
	case <-h.done:
		return ErrHubStopped
	}
}

// Unregister removes c; it is a no-op for unknown clients or a stopped hub.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}
