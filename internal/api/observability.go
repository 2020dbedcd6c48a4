package api

import (
	"net/http"
	"net/http/pprof"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Metrics with bounded cardinality (no per-player or per-game labels to
// prevent cardinality DoS).
var (
	eventsStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hexempire_relay_events_stored_total",
		Help: "Events accepted into relay storage",
	})

	eventsDuplicate = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hexempire_relay_events_duplicate_total",
		Help: "Publish attempts rejected as duplicates",
	})

	eventsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hexempire_relay_events_rejected_total",
		Help: "Publish attempts rejected before storage",
	}, []string{"reason"}) // Bounded: "unsigned", "no_game", "bad_json", "too_large", "bad_proof"

	queryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "hexempire_relay_query_duration_seconds",
		Help:    "Time spent answering event queries",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
	})

	// DoS detection metrics - use ONLY bounded label values
	connectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hexempire_connection_rejected_total",
		Help: "Connections rejected by rate limiter or origin check",
	}, []string{"reason"}) // Bounded: "rate_limit", "origin", "ws_total_limit", "ws_ip_limit"

	// HTTP metrics with bounded labels
	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hexempire_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"method", "endpoint"})

	wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hexempire_ws_connections_active",
		Help: "Active WebSocket subscribers",
	})

	wsMessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hexempire_ws_messages_total",
		Help: "Events delivered over WebSocket",
	})
)

// ObservabilityConfig controls the debug/metrics side server.
type ObservabilityConfig struct {
	ListenAddr    string // Must stay localhost-only unless auth is configured
	BasicAuthUser string
	BasicAuthPass string
}

// DefaultObservabilityConfig reads the debug server settings from the
// environment. The listener binds to localhost by default so pprof is
// never exposed publicly by accident.
func DefaultObservabilityConfig() ObservabilityConfig {
	cfg := ObservabilityConfig{
		ListenAddr:    "localhost:6060",
		BasicAuthUser: os.Getenv("DEBUG_AUTH_USER"),
		BasicAuthPass: os.Getenv("DEBUG_AUTH_PASS"),
	}
	if addr := os.Getenv("DEBUG_ADDR"); addr != "" {
		cfg.ListenAddr = addr
	}
	return cfg
}

// StartDebugServer starts the pprof + metrics listener in the background.
// Pass an empty address to disable it entirely.
func StartDebugServer(cfg ObservabilityConfig, log logrus.FieldLogger) {
	if cfg.ListenAddr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	var handler http.Handler = mux
	if cfg.BasicAuthUser != "" {
		handler = basicAuthMiddleware(cfg.BasicAuthUser, cfg.BasicAuthPass, mux)
	}

	go func() {
		log.WithField("addr", cfg.ListenAddr).Info("debug server starting")
		if err := http.ListenAndServe(cfg.ListenAddr, handler); err != nil {
			log.WithError(err).Warn("debug server stopped")
		}
	}()
}

// basicAuthMiddleware adds basic authentication to the handler
func basicAuthMiddleware(user, pass string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || u != user || p != pass {
			w.Header().Set("WWW-Authenticate", `Basic realm="debug"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RecordEventStored increments the stored-event counter.
func RecordEventStored() {
	eventsStored.Inc()
}

// RecordEventDuplicate increments the duplicate counter.
func RecordEventDuplicate() {
	eventsDuplicate.Inc()
}

// RecordEventRejected increments the rejection counter.
// reason must be one of: "unsigned", "no_game", "bad_json", "too_large", "bad_proof"
func RecordEventRejected(reason string) {
	eventsRejected.WithLabelValues(reason).Inc()
}

// RecordQuery records query timing for metrics
func RecordQuery(duration time.Duration) {
	queryDuration.Observe(duration.Seconds())
}

// RecordConnectionRejected increments the rejection counter
// reason must be one of: "rate_limit", "origin", "ws_total_limit", "ws_ip_limit"
func RecordConnectionRejected(reason string) {
	connectionRejected.WithLabelValues(reason).Inc()
}

// RecordRequest records HTTP request metrics
func RecordRequest(method, endpoint string, duration time.Duration) {
	requestLatency.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// UpdateWSConnections updates WebSocket connection count
func UpdateWSConnections(count int) {
	wsConnectionsActive.Set(float64(count))
}

// IncrementWSMessages increments WebSocket message counter
func IncrementWSMessages() {
	wsMessagesTotal.Inc()
}
