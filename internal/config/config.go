// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for all relay and sync settings.
//
// IMPORTANT: When changing values, only modify this file.
// All other parts of the codebase should reference these values.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port      int
	DebugAddr string // pprof/metrics listener, empty disables it
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:      3000,
		DebugAddr: "localhost:6060",
	}
}

// ServerFromEnv returns server configuration with environment variable overrides.
// Environment variables take precedence over defaults.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if addr := os.Getenv("DEBUG_ADDR"); addr != "" {
		cfg.DebugAddr = addr
	}
	if os.Getenv("DEBUG_DISABLED") == "true" {
		cfg.DebugAddr = ""
	}

	return cfg
}

// =============================================================================
// RELAY STORAGE CONFIGURATION
// =============================================================================

// RelayConfig holds event storage and subscription settings.
type RelayConfig struct {
	DBPath           string   // SQLite database file
	SubscriberBuffer int      // Per-subscriber channel buffer before drops
	MaxQueryLimit    int      // Hard cap on a single query's result size
	Peers            []string // WebSocket URLs of peer relays to push batches to
}

// DefaultRelay returns the default relay configuration.
func DefaultRelay() RelayConfig {
	return RelayConfig{
		DBPath:           "hexempire.db",
		SubscriberBuffer: 64,
		MaxQueryLimit:    500,
	}
}

// RelayFromEnv returns relay configuration with environment variable overrides.
func RelayFromEnv() RelayConfig {
	cfg := DefaultRelay()

	if path := os.Getenv("RELAY_DB_PATH"); path != "" {
		cfg.DBPath = path
	}
	if b := getEnvInt("RELAY_SUB_BUFFER", 0); b > 0 {
		cfg.SubscriberBuffer = b
	}
	if l := getEnvInt("RELAY_MAX_QUERY_LIMIT", 0); l > 0 {
		cfg.MaxQueryLimit = l
	}
	if peers := os.Getenv("PEER_RELAYS"); peers != "" {
		for _, p := range strings.Split(peers, ",") {
			if p = strings.TrimSpace(p); p != "" {
				cfg.Peers = append(cfg.Peers, p)
			}
		}
	}

	return cfg
}

// =============================================================================
// RANDOMNESS MINT CONFIGURATION
// =============================================================================

// MintConfig holds settings for the external randomness mint.
type MintConfig struct {
	URL           string        // Base URL, empty means deterministic-only
	Timeout       time.Duration // Per-request HTTP timeout
	AllowFallback bool          // Fall back to the deterministic provider on outage
}

// DefaultMint returns the default mint configuration.
func DefaultMint() MintConfig {
	return MintConfig{
		URL:           "",
		Timeout:       5 * time.Second,
		AllowFallback: true,
	}
}

// MintFromEnv returns mint configuration with environment variable overrides.
func MintFromEnv() MintConfig {
	cfg := DefaultMint()

	if url := os.Getenv("MINT_URL"); url != "" {
		cfg.URL = url
	}
	if ms := getEnvInt("MINT_TIMEOUT_MS", 0); ms > 0 {
		cfg.Timeout = time.Duration(ms) * time.Millisecond
	}
	if os.Getenv("MINT_ALLOW_FALLBACK") == "false" {
		cfg.AllowFallback = false
	}

	return cfg
}

// =============================================================================
// RATE LIMITING & CONNECTION LIMITS
// =============================================================================

// LimitsConfig controls DoS protection for the HTTP and WebSocket surface.
type LimitsConfig struct {
	RequestsPerSecond float64 // Per-IP sustained HTTP request rate
	Burst             int     // Per-IP burst allowance
	MaxWSPerIP        int     // WebSocket connections per IP
	MaxWSTotal        int     // WebSocket connections overall
	MaxBodyBytes      int64   // Largest accepted request body
}

// DefaultLimits returns the default rate limiting configuration.
func DefaultLimits() LimitsConfig {
	return LimitsConfig{
		RequestsPerSecond: 20,
		Burst:             40,
		MaxWSPerIP:        10,
		MaxWSTotal:        500,
		MaxBodyBytes:      1 << 20, // 1 MiB
	}
}

// LimitsFromEnv returns rate limiting configuration with environment variable overrides.
func LimitsFromEnv() LimitsConfig {
	cfg := DefaultLimits()

	if r := getEnvFloat("RATE_LIMIT_RPS", 0); r > 0 {
		cfg.RequestsPerSecond = r
	}
	if b := getEnvInt("RATE_LIMIT_BURST", 0); b > 0 {
		cfg.Burst = b
	}
	if n := getEnvInt("MAX_WS_PER_IP", 0); n > 0 {
		cfg.MaxWSPerIP = n
	}
	if n := getEnvInt("MAX_WS_TOTAL", 0); n > 0 {
		cfg.MaxWSTotal = n
	}

	return cfg
}

// =============================================================================
// SYNC TUNING
// =============================================================================

// SyncTuning holds delta sync and batching knobs forwarded to the sync
// manager at startup.
type SyncTuning struct {
	MaxDeltaChanges int
	QueueCapacity   int
	BatchSize       int
	BatchDelay      time.Duration
	CacheSize       int
}

// DefaultSyncTuning returns the default sync tuning.
func DefaultSyncTuning() SyncTuning {
	return SyncTuning{
		MaxDeltaChanges: 64,
		QueueCapacity:   1024,
		BatchSize:       16,
		BatchDelay:      200 * time.Millisecond,
		CacheSize:       512,
	}
}

// SyncFromEnv returns sync tuning with environment variable overrides.
func SyncFromEnv() SyncTuning {
	cfg := DefaultSyncTuning()

	if n := getEnvInt("SYNC_MAX_DELTA_CHANGES", 0); n > 0 {
		cfg.MaxDeltaChanges = n
	}
	if n := getEnvInt("SYNC_QUEUE_CAPACITY", 0); n > 0 {
		cfg.QueueCapacity = n
	}
	if n := getEnvInt("SYNC_BATCH_SIZE", 0); n > 0 {
		cfg.BatchSize = n
	}
	if ms := getEnvInt("SYNC_BATCH_DELAY_MS", 0); ms > 0 {
		cfg.BatchDelay = time.Duration(ms) * time.Millisecond
	}
	if n := getEnvInt("SYNC_CACHE_SIZE", 0); n > 0 {
		cfg.CacheSize = n
	}

	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Server ServerConfig
	Relay  RelayConfig
	Mint   MintConfig
	Limits LimitsConfig
	Sync   SyncTuning
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Server: ServerFromEnv(),
		Relay:  RelayFromEnv(),
		Mint:   MintFromEnv(),
		Limits: LimitsFromEnv(),
		Sync:   SyncFromEnv(),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
