package realtime

import (
	"net"
	"net/http"
	"net/url"
	"slices"

	"github.com/gorilla/websocket"
	"github.com/leadflow/leadflow/internal/core/identity"
	"github.com/leadflow/leadflow/internal/gateway/config"
)

// Server upgrades authenticated requests to lead event streams.
type Server struct {
	hub      *Hub
	cfg      config.RealtimeConfig
	upgrader websocket.Upgrader
}

func NewServer(hub *Hub, cfg config.RealtimeConfig) *Server {
	s := &Server{hub: hub, cfg: cfg}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// checkOrigin accepts requests without an Origin header (non-browser
// clients), listed origins, and loopback origins when AllowDevOrigin is set.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if slices.Contains(s.cfg.AllowedOrigins, origin) {
		return true
	}
	if !s.cfg.AllowDevOrigin {
		return false
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// HandleStream serves GET /api/leads/stream. The route is expected behind
// the authentication middleware.
func (s *Server) HandleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader already replied
		s.hub.logger.Warn("Stream upgrade failed", "error", err)
		return
	}

	client := &Client{
		hub:        s.hub,
		conn:       conn,
		send:       make(chan []byte, max(s.cfg.SendBuffer, 1)),
		pingPeriod: s.cfg.PingInterval,
	}
	if claims, ok := identity.ClaimsFromContext(r.Context()); ok {
		client.userID = claims.Subject
	}

	if err := s.hub.Register(client); err != nil {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "stream unavailable"))
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
