package gateway

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/leadflow/leadflow/internal/core/identity"
	"github.com/leadflow/leadflow/internal/core/leads"
	"github.com/leadflow/leadflow/internal/core/pubsub"
	"github.com/leadflow/leadflow/internal/gateway/config"
	"github.com/leadflow/leadflow/internal/gateway/realtime"
	"github.com/leadflow/leadflow/internal/gateway/rest"
)

// Server is a route registrar for the API layer.
// It registers the REST routes and, when events are available, the lead stream.
type Server struct {
	rest *rest.Handler
	hub  *realtime.Hub
}

// ServerOption is a function that configures a Server.
type ServerOption func(*serverConfig)

type serverConfig struct {
	leadsCfg   leads.Config
	subscriber pubsub.Subscriber
	metrics    http.Handler
	logger     *slog.Logger
}

// WithLeadsConfig sets paging limits and the filter timezone.
func WithLeadsConfig(cfg leads.Config) ServerOption {
	return func(c *serverConfig) { c.leadsCfg = cfg }
}

// WithEvents enables the live lead stream backed by subscriber.
func WithEvents(subscriber pubsub.Subscriber) ServerOption {
	return func(c *serverConfig) { c.subscriber = subscriber }
}

// WithMetrics exposes h at GET /metrics.
func WithMetrics(h http.Handler) ServerOption {
	return func(c *serverConfig) { c.metrics = h }
}

func WithLogger(logger *slog.Logger) ServerOption {
	return func(c *serverConfig) { c.logger = logger }
}

// NewServer creates a new API Server (route registrar).
func NewServer(svc leads.Service, auth identity.AuthN, authz identity.AuthZ, cfg config.GatewayConfig, opts ...ServerOption) (*Server, error) {
	sc := &serverConfig{leadsCfg: leads.DefaultConfig(), logger: slog.Default()}
	for _, opt := range opts {
		opt(sc)
	}

	restOpts := []rest.HandlerOption{
		rest.WithLeadsConfig(sc.leadsCfg),
		rest.WithLimits(cfg.RequestTimeout, cfg.MaxBodySize),
	}
	if sc.metrics != nil {
		restOpts = append(restOpts, rest.WithMetrics(sc.metrics))
	}

	s := &Server{}
	if cfg.Realtime.Enabled && sc.subscriber != nil {
		s.hub = realtime.NewHub(sc.subscriber, sc.logger)
		stream := realtime.NewServer(s.hub, cfg.Realtime)
		restOpts = append(restOpts, rest.WithStream(stream.HandleStream))
	}

	restHandler, err := rest.NewHandler(svc, auth, authz, restOpts...)
	if err != nil {
		return nil, err
	}
	s.rest = restHandler
	return s, nil
}

// RegisterRoutes registers all API routes to the given ServeMux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	s.rest.RegisterRoutes(mux)
}

// Run serves the lead stream until ctx is done. It returns immediately when
// the stream is disabled.
func (s *Server) Run(ctx context.Context) error {
	if s.hub == nil {
		return nil
	}
	return s.hub.Run(ctx)
}

// StreamEnabled reports whether GET /api/leads/stream is served.
func (s *Server) StreamEnabled() bool {
	return s.hub != nil
}
