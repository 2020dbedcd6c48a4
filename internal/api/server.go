// Package api exposes the relay over HTTP and WebSocket: event
// publishing, filtered queries, settings validation, and live
// subscriptions, with per-IP rate limiting in front of all of it.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"hexempire/internal/relay"
)

// Server is the HTTP relay server with WebSocket subscription support.
type Server struct {
	store       Store
	registry    *relay.SubscriptionRegistry
	router      *chi.Mux
	wsHub       *WebSocketHub
	rateLimiter *IPRateLimiter
	log         logrus.FieldLogger
}

// ServerConfig carries the injected dependencies and limits.
type ServerConfig struct {
	Store    Store
	Registry *relay.SubscriptionRegistry
	Verifier ProofVerifier
	Sink     EventSink
	Logger   logrus.FieldLogger

	RateLimit     RateLimitConfig
	CORSOrigins   []string
	MaxBodyBytes  int64
	MaxQueryLimit int
}

// NewServer creates the relay server.
//
// IMPORTANT: no goroutines are started and nothing is listened on until
// Start() is called, so tests can construct a Server and drive its
// Router() with httptest.
func NewServer(cfg ServerConfig) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	registry := cfg.Registry
	if registry == nil {
		registry = relay.NewSubscriptionRegistry(64, logger)
	}

	s := &Server{
		store:    cfg.Store,
		registry: registry,
		log:      logger,
	}

	// Track the limiter so Stop() can halt its cleanup loop.
	limit := cfg.RateLimit
	if limit.RequestsPerSecond <= 0 {
		limit = DefaultRateLimitConfig
	}
	s.rateLimiter = NewIPRateLimiter(limit)

	s.router = NewRouter(RouterConfig{
		Store:         cfg.Store,
		Notifier:      registry,
		Verifier:      cfg.Verifier,
		Sink:          cfg.Sink,
		RateLimiter:   s.rateLimiter,
		CORSOrigins:   cfg.CORSOrigins,
		MaxBodyBytes:  cfg.MaxBodyBytes,
		MaxQueryLimit: cfg.MaxQueryLimit,
	})

	s.wsHub = NewWebSocketHub(registry, logger)
	s.router.Get("/ws", s.handleWS)

	return s
}

// Registry returns the subscription registry shared with the hub, so
// other components (the sync manager, tests) can notify or subscribe.
func (s *Server) Registry() *relay.SubscriptionRegistry {
	return s.registry
}

// Start begins serving. Blocks until the listener fails.
func (s *Server) Start(addr string) error {
	s.log.WithField("addr", addr).Info("relay server starting")
	return http.ListenAndServe(addr, s.router)
}

// Router returns the HTTP handler for use with httptest.
//
// Example:
//
//	server := api.NewServer(cfg)
//	ts := httptest.NewServer(server.Router())
//	defer ts.Close()
func (s *Server) Router() http.Handler {
	return s.router
}

// Stop halts background work. Open WebSocket connections close when the
// process exits.
func (s *Server) Stop() {
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	s.wsHub.HandleWebSocket(w, r)
}
