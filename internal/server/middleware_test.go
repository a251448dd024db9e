package server

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/leadflow/leadflow/internal/server/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestRequestIDMiddleware(t *testing.T) {
	srv := New(Config{}, nil).(*serverImpl)

	handler := srv.requestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Test-Request-ID", GetRequestID(r.Context()))
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, w.Header().Get("X-Request-ID"), w.Header().Get("X-Test-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "existing-id")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, "existing-id", w.Header().Get("X-Test-Request-ID"))
}

func TestGetRequestID_Missing(t *testing.T) {
	assert.Empty(t, GetRequestID(context.Background()))
}

func TestRecoveryMiddleware(t *testing.T) {
	srv := New(Config{}, nil).(*serverImpl)

	handler := srv.recoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("oops")
	}))

	w := httptest.NewRecorder()
	assert.NotPanics(t, func() {
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"success":false,"message":"Internal server error"}`, w.Body.String())
}

func TestCORSMiddleware(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimit.Enabled = false
	srv := New(cfg, nil).(*serverImpl)
	handler := srv.wrapMiddleware(okHandler)

	t.Run("preflight from allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/leads", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		req.Header.Set("Access-Control-Request-Method", http.MethodPut)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPut)
	})

	t.Run("simple request from allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/leads", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("origin not on the list", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/leads", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	srv := New(Config{}, nil).(*serverImpl)

	w := httptest.NewRecorder()
	srv.securityHeadersMiddleware(okHandler).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", w.Header().Get("Referrer-Policy"))
	assert.Equal(t, "default-src 'self'", w.Header().Get("Content-Security-Policy"))
}

func TestRateLimitMiddleware(t *testing.T) {
	cfg := Config{RateLimit: ratelimit.Config{
		Enabled:      true,
		Requests:     2,
		Window:       time.Minute,
		AuthRequests: 1,
		AuthWindow:   30 * time.Second,
	}}
	cfg.ApplyDefaults()
	srv := New(cfg, nil).(*serverImpl)
	defer srv.Stop(context.Background())

	handler := srv.rateLimitMiddleware(okHandler)
	do := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = "192.168.1.1:12345"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, do("/api/leads").Code)
	assert.Equal(t, http.StatusOK, do("/api/leads").Code)
	w := do("/api/leads")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, do("/api/auth/login").Code, "auth routes have their own budget")
	w = do("/api/auth/login")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "30", w.Header().Get("Retry-After"))
}

func TestTimeoutMiddleware(t *testing.T) {
	handler := TimeoutMiddleware(10 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok := r.Context().Deadline()
		assert.True(t, ok)
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

type faultyResponseWriter struct {
	http.ResponseWriter
}

func (f *faultyResponseWriter) Write(b []byte) (int, error) {
	return 0, errors.New("write failed")
}

func TestWriteError_WriteFailure(t *testing.T) {
	fw := &faultyResponseWriter{ResponseWriter: httptest.NewRecorder()}
	assert.NotPanics(t, func() {
		writeError(fw, http.StatusInternalServerError, "msg")
	})
}

type mockHijacker struct {
	http.ResponseWriter
	conn net.Conn
	rw   *bufio.ReadWriter
}

func (m *mockHijacker) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return m.conn, m.rw, nil
}

type mockFlusher struct {
	http.ResponseWriter
	flushed bool
}

func (m *mockFlusher) Flush() {
	m.flushed = true
}

func TestResponseWriter_Hijack(t *testing.T) {
	conn, peer := net.Pipe()
	defer conn.Close()
	defer peer.Close()
	brw := bufio.NewReadWriter(bufio.NewReader(conn), bufio.NewWriter(conn))

	rw := &responseWriter{ResponseWriter: &mockHijacker{ResponseWriter: httptest.NewRecorder(), conn: conn, rw: brw}}
	c, got, err := rw.Hijack()
	require.NoError(t, err)
	assert.Equal(t, conn, c)
	assert.Equal(t, brw, got)

	_, _, err = (&responseWriter{ResponseWriter: httptest.NewRecorder()}).Hijack()
	assert.Equal(t, http.ErrNotSupported, err)
}

func TestResponseWriter_Flush(t *testing.T) {
	flusher := &mockFlusher{ResponseWriter: httptest.NewRecorder()}
	(&responseWriter{ResponseWriter: flusher}).Flush()
	assert.True(t, flusher.flushed)

	assert.NotPanics(t, func() {
		(&responseWriter{ResponseWriter: &faultyResponseWriter{ResponseWriter: httptest.NewRecorder()}}).Flush()
	})
}

func TestLoggingMiddleware_Levels(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		canceled bool
		level    string
	}{
		{"success", http.StatusOK, false, "level=INFO"},
		{"client error", http.StatusNotFound, false, "level=INFO"},
		{"client closed", StatusClientClosedRequest, false, "level=WARN"},
		{"canceled context", http.StatusInternalServerError, true, "level=WARN"},
		{"server error", http.StatusInternalServerError, false, "level=ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))
			srv := New(Config{}, logger).(*serverImpl)

			handler := srv.loggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/leads", nil)
			if tt.canceled {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				req = req.WithContext(ctx)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, buf.String(), tt.level)
			assert.Contains(t, buf.String(), "path=/api/leads")
		})
	}
}
