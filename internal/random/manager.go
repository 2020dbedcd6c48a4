package random

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

// Manager wraps a provider with a proof cache keyed by the context's
// stable serialization. The replay engine may request randomness for the
// same logical event more than once across retries, and must get back the
// identical proof each time.
type Manager struct {
	provider Provider
	fallback *DeterministicProvider

	// AllowFallback permits answering recoverable mint failures with the
	// deterministic provider instead of propagating the error.
	AllowFallback bool

	mu    sync.Mutex
	cache map[string]*Proof
	log   *logrus.Entry
}

// NewManager wraps provider. fallback may be nil when no deterministic
// fallback seed is available.
func NewManager(provider Provider, fallback *DeterministicProvider, allowFallback bool) *Manager {
	return &Manager{
		provider:      provider,
		fallback:      fallback,
		AllowFallback: allowFallback,
		cache:         make(map[string]*Proof),
		log:           logrus.WithField("component", "randomness"),
	}
}

// RequestRandomness returns the cached proof for the context if one
// exists, otherwise asks the provider (falling back to the deterministic
// provider on recoverable errors when policy allows) and caches the result.
func (m *Manager) RequestRandomness(ctx Context) (*Proof, error) {
	key, err := ctx.Serialize()
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if cached, ok := m.cache[string(key)]; ok {
		m.mu.Unlock()
		return cached, nil
	}
	m.mu.Unlock()

	proof, err := m.provider.RequestRandomness(ctx)
	if err != nil {
		if !m.shouldFallBack(err) {
			return nil, err
		}
		m.log.WithError(err).WithField("kind", ctx.Kind).
			Warn("provider failed, using deterministic fallback")
		proof, err = m.fallback.RequestRandomness(ctx)
		if err != nil {
			return nil, err
		}
	}

	m.mu.Lock()
	// A concurrent request may have won the race; keep the first proof so
	// every caller sees the same bytes.
	if cached, ok := m.cache[string(key)]; ok {
		proof = cached
	} else {
		m.cache[string(key)] = proof
	}
	m.mu.Unlock()

	return proof, nil
}

func (m *Manager) shouldFallBack(err error) bool {
	if !m.AllowFallback || m.fallback == nil {
		return false
	}
	return errors.Is(err, ErrMintUnavailable) || errors.Is(err, ErrNetwork)
}

// VerifyProof delegates to the wrapped provider.
func (m *Manager) VerifyProof(p *Proof) (bool, error) {
	return m.provider.VerifyProof(p)
}

// CachedProofs returns the number of proofs held, for stats endpoints.
func (m *Manager) CachedProofs() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.cache)
}
