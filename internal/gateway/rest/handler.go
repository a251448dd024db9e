// Package rest serves the LeadFlow JSON API.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/schema"
	"github.com/leadflow/leadflow/internal/core/identity"
	"github.com/leadflow/leadflow/internal/core/leads"
	"github.com/leadflow/leadflow/internal/server"
	"github.com/leadflow/leadflow/pkg/model"
)

// Default body size limit and request timeout.
const (
	DefaultMaxBodySize    = 1 << 20 // 1MB
	DefaultRequestTimeout = 30 * time.Second
	healthTimeout         = 5 * time.Second
)

// APIVersion is reported by the info endpoint.
const APIVersion = "1.0.0"

type Handler struct {
	leads    leads.Service
	auth     identity.AuthN
	authz    identity.AuthZ
	decoder  *schema.Decoder
	leadsCfg leads.Config
	loc      *time.Location

	requestTimeout time.Duration
	maxBodySize    int64
	stream         http.HandlerFunc
	metrics        http.Handler
	now            func() time.Time
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithLeadsConfig sets paging limits and the filter timezone.
func WithLeadsConfig(cfg leads.Config) HandlerOption {
	return func(h *Handler) { h.leadsCfg = cfg }
}

// WithLimits overrides the per-request timeout and body size.
func WithLimits(timeout time.Duration, maxBody int64) HandlerOption {
	return func(h *Handler) {
		if timeout > 0 {
			h.requestTimeout = timeout
		}
		if maxBody > 0 {
			h.maxBodySize = maxBody
		}
	}
}

// WithStream mounts the live event stream at GET /api/leads/stream.
func WithStream(stream http.HandlerFunc) HandlerOption {
	return func(h *Handler) { h.stream = stream }
}

// WithMetrics mounts a metrics handler at GET /metrics.
func WithMetrics(metrics http.Handler) HandlerOption {
	return func(h *Handler) { h.metrics = metrics }
}

func NewHandler(svc leads.Service, auth identity.AuthN, authz identity.AuthZ, opts ...HandlerOption) (*Handler, error) {
	if svc == nil {
		return nil, errors.New("leads service cannot be nil")
	}
	if auth == nil {
		return nil, errors.New("AuthN service cannot be nil")
	}
	if authz == nil {
		return nil, errors.New("AuthZ service cannot be nil")
	}

	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)

	h := &Handler{
		leads:          svc,
		auth:           auth,
		authz:          authz,
		decoder:        decoder,
		leadsCfg:       leads.DefaultConfig(),
		requestTimeout: DefaultRequestTimeout,
		maxBodySize:    DefaultMaxBodySize,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.leadsCfg.ApplyDefaults()

	loc, err := h.leadsCfg.Location()
	if err != nil {
		return nil, err
	}
	h.loc = loc
	return h, nil
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	t, body := h.requestTimeout, h.maxBodySize

	// Leads. The stream is registered first only for readability; ServeMux
	// prefers the literal segment over {id} regardless of order.
	if h.stream != nil {
		mux.HandleFunc("GET /api/leads/stream", h.protected(h.authorized(h.stream, identity.ActionList)))
	}
	mux.HandleFunc("GET /api/leads", withTimeout(h.protected(h.authorized(h.handleListLeads, identity.ActionList)), t))
	mux.HandleFunc("GET /api/leads/export", withTimeout(h.protected(h.authorized(h.handleExportLeads, identity.ActionExport)), t))
	mux.HandleFunc("POST /api/leads", withTimeout(maxBodySize(h.protected(h.authorized(h.handleCreateLead, identity.ActionCreate)), body), t))
	mux.HandleFunc("GET /api/leads/{id}", withTimeout(h.protected(h.authorized(h.handleGetLead, identity.ActionGet)), t))
	mux.HandleFunc("PUT /api/leads/{id}", withTimeout(maxBodySize(h.protected(h.authorized(h.handleUpdateLead, identity.ActionUpdate)), body), t))
	mux.HandleFunc("DELETE /api/leads/{id}", withTimeout(h.protected(h.authorized(h.handleDeleteLead, identity.ActionDelete)), t))

	// Auth
	mux.HandleFunc("POST /api/auth/register", withTimeout(maxBodySize(h.handleRegister, body), t))
	mux.HandleFunc("POST /api/auth/login", withTimeout(maxBodySize(h.handleLogin, body), t))
	mux.HandleFunc("POST /api/auth/logout", withTimeout(h.handleLogout, t))
	mux.HandleFunc("GET /api/auth/me", withTimeout(h.protected(h.handleMe), t))

	// Info
	mux.HandleFunc("GET /{$}", h.handleInfo)
	mux.HandleFunc("GET /health", withTimeout(h.handleHealth, healthTimeout))
	if h.metrics != nil {
		mux.Handle("GET /metrics", h.metrics)
	}
	mux.HandleFunc("/", h.handleNotFound)
}

func (h *Handler) protected(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.auth.Middleware(handler).ServeHTTP(w, r)
	}
}

// authorized evaluates the CEL rule for action. Create and update payloads
// are exposed to rules as resource.data; the body is restored for the handler.
func (h *Handler) authorized(handler http.HandlerFunc, action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := identity.ClaimsFromContext(r.Context())

		var res *identity.Resource
		if id := r.PathValue("id"); id != "" {
			res = &identity.Resource{ID: id}
		}

		if (action == identity.ActionCreate || action == identity.ActionUpdate) && r.Body != nil {
			bodyBytes, err := io.ReadAll(r.Body)
			if err != nil {
				writeBodyError(w, err)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(bodyBytes))

			var data map[string]any
			if err := json.Unmarshal(bodyBytes, &data); err == nil {
				if res == nil {
					res = &identity.Resource{}
				}
				res.Data = data
			}
			// an unparsable body is reported by the handler
		}

		req := identity.RequestFromClaims(claims, res)
		req.Time = h.now()

		allowed, err := h.authz.Evaluate(r.Context(), action, req)
		if err != nil {
			slog.Warn("Authorization rule evaluation error",
				"action", action,
				"error", err,
				"request_id", server.GetRequestID(r.Context()),
			)
			writeError(w, http.StatusForbidden, "Authorization check failed")
			return
		}
		if !allowed {
			writeError(w, http.StatusForbidden, "Access denied")
			return
		}

		handler(w, r)
	}
}

type errorResponse struct {
	Success bool               `json:"success"`
	Message string             `json:"message"`
	Errors  []model.FieldError `json:"errors,omitempty"`
}

// writeError writes {success:false, message}.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Message: message})
}

// writeInternalError writes a 500, or a bare 499 when the client went away.
func writeInternalError(w http.ResponseWriter, err error, message string) {
	if model.IsCanceled(err) {
		w.WriteHeader(server.StatusClientClosedRequest)
		return
	}
	slog.Error(message, "error", err)
	writeError(w, http.StatusInternalServerError, message)
}

// writeLeadError maps lead service errors to responses. fallback is the
// message for unexpected failures.
func writeLeadError(w http.ResponseWriter, err error, fallback string) {
	var ve *model.ValidationError
	var fe *model.FilterError
	switch {
	case model.IsCanceled(err):
		w.WriteHeader(server.StatusClientClosedRequest)
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: ve.Message, Errors: ve.Fields})
	case errors.As(err, &fe):
		writeError(w, http.StatusBadRequest, fe.Error())
	case errors.Is(err, model.ErrInvalidFilters):
		writeError(w, http.StatusBadRequest, "Invalid filters format")
	case errors.Is(err, model.ErrDuplicateEmail):
		writeError(w, http.StatusBadRequest, "Lead with this email already exists")
	case errors.Is(err, model.ErrInvalidID):
		writeError(w, http.StatusBadRequest, "Invalid lead ID")
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, "Lead not found")
	default:
		writeInternalError(w, err, fallback)
	}
}

// writeBodyError reports an unreadable, invalid or oversized request body.
func writeBodyError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
		return
	}
	// field decoders report their own validation errors
	var ve *model.ValidationError
	if errors.As(err, &ve) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: ve.Message, Errors: ve.Fields})
		return
	}
	writeError(w, http.StatusBadRequest, "Invalid request body")
}

// writeJSON writes a JSON response with proper error handling
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("Failed to encode JSON response", "error", err)
	}
}

// decodeJSON decodes the request body into v, writing the error response on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeBodyError(w, err)
		return false
	}
	return true
}

// maxBodySize wraps a handler with request body size limiting
func maxBodySize(next http.HandlerFunc, maxBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		}
		next(w, r)
	}
}

// withTimeout wraps a handler with a context timeout
func withTimeout(next http.HandlerFunc, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		next(w, r.WithContext(ctx))
	}
}
