package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hexempire/internal/chain"
	"hexempire/internal/random"
	"hexempire/internal/relay"
)

// Store is the storage surface the router needs. *relay.Storage
// satisfies it; tests can substitute an in-memory fake.
type Store interface {
	Save(ev *chain.GameEvent) error
	Query(f relay.Filter) ([]*chain.GameEvent, error)
	CountForGame(gameID string) (int, error)
}

// Notifier receives every stored event for fan-out to subscribers.
// *relay.SubscriptionRegistry satisfies it.
type Notifier interface {
	Notify(ev *chain.GameEvent)
}

// ProofVerifier checks randomness proofs attached to events.
// *random.MintProvider and *random.Manager satisfy it.
type ProofVerifier interface {
	VerifyProof(p *random.Proof) (bool, error)
}

// EventSink observes every stored event; *netsync.SyncManager satisfies
// it, feeding stored events into the dedup/batch pipeline.
type EventSink interface {
	IngestEvent(ev *chain.GameEvent) bool
}

// RouterConfig configures the HTTP router.
//
// All dependencies are injected, so the router can be built without a
// database or network listeners in tests.
type RouterConfig struct {
	Store    Store
	Notifier Notifier

	// Verifier, when set, rejects events whose attached randomness
	// proof fails verification. Nil skips the check; peers still
	// verify at replay time.
	Verifier ProofVerifier

	// Sink, when set, observes every stored event.
	Sink EventSink

	// RateLimiter, if nil, a limiter is built from RateLimitConfig
	// (or the defaults when that is nil too).
	RateLimiter     *IPRateLimiter
	RateLimitConfig *RateLimitConfig

	// CORSOrigins overrides the default allowed origins.
	CORSOrigins []string

	// MaxBodyBytes caps request bodies; zero means 1 MiB.
	MaxBodyBytes int64

	// MaxQueryLimit caps a single query's result size; zero means 500.
	MaxQueryLimit int

	// DisableLogging disables request logging (useful in tests).
	DisableLogging bool
}

// NewRouter builds the relay's HTTP router. It is a pure function of its
// config: no goroutines are started and nothing is listened on.
//
// This makes it safe to use in tests with httptest.NewServer.
//
// Example:
//
//	router := api.NewRouter(cfg)
//	ts := httptest.NewServer(router)
//	defer ts.Close()
//	resp, _ := http.Get(ts.URL + "/api/events?game=g1")
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware - Order matters!
	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	// Rate limiting (BEFORE CORS to reject early and save CPU)
	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}
	r.Use(rateLimiter.Middleware)

	// CORS configuration
	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = []string{
			"http://localhost:*",
			"http://127.0.0.1:*",
		}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 1 << 20
	}
	maxLimit := cfg.MaxQueryLimit
	if maxLimit <= 0 {
		maxLimit = 500
	}

	h := &routerHandlers{
		store:    cfg.Store,
		notifier: cfg.Notifier,
		verifier: cfg.Verifier,
		sink:     cfg.Sink,
		maxBody:  maxBody,
		maxLimit: maxLimit,
	}

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Event publishing and retrieval
		r.Post("/events", h.handlePublishEvent)
		r.Get("/events", h.handleQueryEvents)
		r.Post("/events/query", h.handleQueryEventsJSON)

		// Per-game info
		r.Get("/games/{gameID}/count", h.handleGameCount)

		// Pre-flight settings validation for lobby UIs
		r.Post("/settings/validate", h.handleValidateSettings)
	})

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	// Health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	return r
}
