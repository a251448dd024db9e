package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/leadflow/leadflow/internal/core/pubsub/memory"
	"github.com/leadflow/leadflow/internal/gateway/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*Hub, *memory.Broker) {
	t.Helper()
	broker := memory.NewBroker(16)
	hub := NewHub(broker, nil)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- hub.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-errCh:
		case <-time.After(2 * time.Second):
			t.Error("hub did not stop")
		}
		_ = broker.Close()
	})
	return hub, broker
}

func testRealtimeConfig() config.RealtimeConfig {
	cfg := config.DefaultGatewayConfig().Realtime
	cfg.PingInterval = time.Second
	return cfg
}

func dial(t *testing.T, srv *httptest.Server, header http.Header) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	return websocket.DefaultDialer.Dial(url, header)
}

func TestHub_BroadcastsLeadEvents(t *testing.T) {
	hub, broker := startHub(t)
	srv := httptest.NewServer(http.HandlerFunc(NewServer(hub, testRealtimeConfig()).HandleStream))
	defer srv.Close()

	conn, _, err := dial(t, srv, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	// a registered client implies the hub is subscribed
	require.NoError(t, broker.Publish(context.Background(), "leads.created", []byte(`{"type":"created"}`)))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	mt, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, mt)
	assert.JSONEq(t, `{"type":"created"}`, string(data))
}

func TestHub_IgnoresOtherSubjects(t *testing.T) {
	hub, broker := startHub(t)
	srv := httptest.NewServer(http.HandlerFunc(NewServer(hub, testRealtimeConfig()).HandleStream))
	defer srv.Close()

	conn, _, err := dial(t, srv, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, broker.Publish(context.Background(), "users.created", []byte(`"nope"`)))
	require.NoError(t, broker.Publish(context.Background(), "leads.deleted", []byte(`"yes"`)))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, `"yes"`, string(data))
}

func TestHub_UnregisterOnDisconnect(t *testing.T) {
	hub, _ := startHub(t)
	srv := httptest.NewServer(http.HandlerFunc(NewServer(hub, testRealtimeConfig()).HandleStream))
	defer srv.Close()

	conn, _, err := dial(t, srv, nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_DropsSlowClient(t *testing.T) {
	hub := NewHub(memory.NewBroker(1), nil)
	slow := &Client{hub: hub, send: make(chan []byte, 1)}
	hub.clients[slow] = struct{}{}
	hub.count.Add(1)

	hub.broadcast([]byte("one"))
	hub.broadcast([]byte("two"))

	assert.Equal(t, 0, hub.ClientCount())
	msg, ok := <-slow.send
	assert.True(t, ok)
	assert.Equal(t, "one", string(msg))
	_, ok = <-slow.send
	assert.False(t, ok, "send channel is closed for dropped clients")
}

func TestHub_RegisterAfterStop(t *testing.T) {
	broker := memory.NewBroker(1)
	hub := NewHub(broker, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, hub.Run(ctx))

	assert.ErrorIs(t, hub.Register(&Client{send: make(chan []byte)}), ErrHubStopped)
	hub.Unregister(&Client{})
}

func TestHub_SubscribeError(t *testing.T) {
	broker := memory.NewBroker(1)
	require.NoError(t, broker.Close())

	hub := NewHub(broker, nil)
	assert.Error(t, hub.Run(context.Background()))
}

func TestServer_StoppedHubClosesConnection(t *testing.T) {
	broker := memory.NewBroker(1)
	hub := NewHub(broker, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, hub.Run(ctx))

	srv := httptest.NewServer(http.HandlerFunc(NewServer(hub, testRealtimeConfig()).HandleStream))
	defer srv.Close()

	conn, _, err := dial(t, srv, nil)
	require.NoError(t, err)
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseTryAgainLater))
}

func TestServer_CheckOrigin(t *testing.T) {
	cfg := testRealtimeConfig()
	cfg.AllowedOrigins = []string{"https://app.example.com"}

	tests := []struct {
		name   string
		origin string
		dev    bool
		want   bool
	}{
		{"no origin", "", false, true},
		{"listed", "https://app.example.com", false, true},
		{"unlisted", "https://evil.example.com", false, false},
		{"localhost without dev", "http://localhost:5173", false, false},
		{"localhost with dev", "http://localhost:5173", true, true},
		{"loopback ip with dev", "http://127.0.0.1:8080", true, true},
		{"remote with dev", "https://evil.example.com", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg.AllowDevOrigin = tt.dev
			s := NewServer(nil, cfg)
			r := httptest.NewRequest(http.MethodGet, "/api/leads/stream", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, s.checkOrigin(r))
		})
	}
}

func TestServer_RejectsForbiddenOrigin(t *testing.T) {
	hub, _ := startHub(t)
	cfg := testRealtimeConfig()
	cfg.AllowDevOrigin = false
	cfg.AllowedOrigins = nil
	srv := httptest.NewServer(http.HandlerFunc(NewServer(hub, cfg).HandleStream))
	defer srv.Close()

	_, resp, err := dial(t, srv, http.Header{"Origin": []string{"https://evil.example.com"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, 0, hub.ClientCount())
}
