package random

import "errors"

// Typed provider failures. MintUnavailable and NetworkError are the
// recoverable ones a caller may answer with the deterministic fallback.
var (
	ErrMintUnavailable  = errors.New("randomness mint unavailable")
	ErrInvalidKeyset    = errors.New("invalid mint keyset")
	ErrInvalidSignature = errors.New("invalid proof signature")
	ErrNetwork          = errors.New("randomness network error")
	ErrProtocol         = errors.New("randomness protocol error")
)

// ProofBytes is the number of random bytes every proof carries.
const ProofBytes = 32

// Proof certifies that a random scalar was produced fairly for a specific
// context. The signature is opaque to the core: verification semantics
// belong to the provider that issued it.
type Proof struct {
	Context     Context `json:"context"`
	RandomBytes []byte  `json:"randomBytes"`
	Signature   []byte  `json:"signature,omitempty"`
	Timestamp   int64   `json:"timestamp"`
}

// Scalar folds the proof's bytes into a float64 in [0, 1). The fold is
// position-dependent so reordered bytes produce a different scalar.
func (p *Proof) Scalar() float64 {
	var acc uint64
	for i, b := range p.RandomBytes {
		acc = acc*31 + uint64(b) + uint64(i)
	}
	return float64(acc%1_000_000) / 1_000_000
}

// Provider is the verifiable-randomness boundary. The mint-backed variant
// talks to an external service; the deterministic variant derives proofs
// from a seed and is the offline/replay fallback.
type Provider interface {
	RequestRandomness(ctx Context) (*Proof, error)
	VerifyProof(p *Proof) (bool, error)
}
