package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"hexempire/internal/api"
	"hexempire/internal/config"
	"hexempire/internal/netsync"
	"hexempire/internal/random"
	"hexempire/internal/relay"
)

func main() {
	// Load .env before anything reads the environment.
	if err := godotenv.Load(".env"); err != nil {
		if err := godotenv.Load("../.env"); err != nil {
			logrus.Info("no .env file found, using environment variables only")
		}
	}

	log := newLogger()
	cfg := config.Load()

	if extra := os.Getenv("ALLOWED_ORIGINS"); extra != "" {
		api.AddAllowedOrigins(strings.Split(extra, ","))
	}

	store, err := relay.OpenStorage(cfg.Relay.DBPath, log)
	if err != nil {
		log.WithError(err).Fatal("failed to open event storage")
	}
	defer store.Close()

	registry := relay.NewSubscriptionRegistry(cfg.Relay.SubscriberBuffer, log)

	// Proof verification is only possible against a live mint; without
	// one, events are stored unverified and peers check at replay.
	var verifier api.ProofVerifier
	if cfg.Mint.URL != "" {
		verifier = random.NewMintProvider(cfg.Mint.URL, cfg.Mint.Timeout)
		log.WithField("mint", cfg.Mint.URL).Info("randomness proof verification enabled")
	}

	syncMgr := netsync.NewSyncManager(syncConfig(cfg.Sync), nil, log)
	if len(cfg.Relay.Peers) > 0 {
		log.WithField("peers", len(cfg.Relay.Peers)).Info("peer relay push enabled")
		go pushToPeers(syncMgr, cfg.Relay.Peers, cfg.Sync.BatchDelay, log)
	}

	server := api.NewServer(api.ServerConfig{
		Store:    store,
		Registry: registry,
		Verifier: verifier,
		Sink:     syncMgr,
		Logger:   log,
		RateLimit: api.RateLimitConfig{
			RequestsPerSecond: cfg.Limits.RequestsPerSecond,
			Burst:             cfg.Limits.Burst,
			CleanupInterval:   api.DefaultRateLimitConfig.CleanupInterval,
		},
		MaxBodyBytes:  cfg.Limits.MaxBodyBytes,
		MaxQueryLimit: cfg.Relay.MaxQueryLimit,
	})

	api.StartDebugServer(api.ObservabilityConfig{ListenAddr: cfg.Server.DebugAddr}, log)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(addr)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		log.WithField("signal", sig.String()).Info("shutting down")
	case err := <-errCh:
		log.WithError(err).Error("server stopped")
	}

	server.Stop()
}

func newLogger() *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if lvl, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		log.SetLevel(lvl)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}
	return log
}

func syncConfig(t config.SyncTuning) netsync.SyncConfig {
	cfg := netsync.DefaultSyncConfig()
	cfg.MaxDeltaChanges = t.MaxDeltaChanges
	cfg.QueueCapacity = t.QueueCapacity
	cfg.BatchSize = t.BatchSize
	cfg.BatchDelay = t.BatchDelay
	cfg.CacheSize = t.CacheSize
	return cfg
}

// pushToPeers drains batched events to each configured peer relay on a
// fixed cadence. A failed push is logged and retried next tick; the
// stored chain stays the source of truth, so peers catch up on replay.
func pushToPeers(mgr *netsync.SyncManager, peers []string, every time.Duration, log *logrus.Logger) {
	if every <= 0 {
		every = time.Second
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for range ticker.C {
		for _, peer := range peers {
			sent, err := mgr.Flush(peer)
			if err != nil {
				log.WithError(err).WithField("peer", peer).Warn("peer push failed")
				continue
			}
			if sent > 0 {
				log.WithFields(logrus.Fields{"peer": peer, "batches": sent}).Debug("pushed batches to peer")
			}
		}
	}
}
