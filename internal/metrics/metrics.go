// Package metrics exposes Prometheus collectors for the HTTP server and lead operations.
package metrics

import (
	"bufio"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leadflow_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "leadflow_http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	activeRequests = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "leadflow_http_active_requests",
		Help: "Number of in-flight HTTP requests",
	})

	// Leads
	leadOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leadflow_lead_operations_total",
		Help: "Lead operations by kind and outcome",
	}, []string{"op", "outcome"})

	filterFields = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leadflow_filter_fields_total",
		Help: "Filter descriptors compiled, by field",
	}, []string{"field"})

	// Events
	eventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leadflow_events_published_total",
		Help: "Lead events published, by subject and outcome",
	}, []string{"subject", "outcome"})

	publishLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "leadflow_event_publish_latency_seconds",
		Help: "The latency of event publishing",
	})

	// Realtime
	streamClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "leadflow_stream_clients",
		Help: "Connected live-update websocket clients",
	})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack lets websocket upgrades pass through the recorder.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := r.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, http.ErrNotSupported
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Middleware records request counts and durations. Routes are labelled by
// their mux pattern when one matched, which keeps label cardinality bounded.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		activeRequests.Inc()
		defer activeRequests.Dec()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// RecordLeadOp counts a lead operation; err decides the outcome label.
func RecordLeadOp(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	leadOperations.WithLabelValues(op, outcome).Inc()
}

// RecordFilterField counts one compiled filter descriptor.
func RecordFilterField(field string) {
	filterFields.WithLabelValues(field).Inc()
}

// RecordPublish has the pubsub.PublisherOptions.OnPublish signature.
func RecordPublish(subject string, err error, latency time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	eventsPublished.WithLabelValues(subject, outcome).Inc()
	publishLatency.Observe(latency.Seconds())
}

// StreamClientConnected and StreamClientDisconnected track websocket clients.
func StreamClientConnected()    { streamClients.Inc() }
func StreamClientDisconnected() { streamClients.Dec() }
