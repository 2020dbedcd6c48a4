package random

import "time"

// DeterministicProvider derives proofs purely from its seed and the
// request context: the same (seed, context) always yields the same bytes,
// which is what lets every peer replay combat identically offline.
type DeterministicProvider struct {
	seed [SeedSize]byte
}

// NewDeterministicProvider creates a provider bound to a 32-byte seed.
func NewDeterministicProvider(seed [SeedSize]byte) *DeterministicProvider {
	return &DeterministicProvider{seed: seed}
}

// RequestRandomness mixes the serialized context into a fresh generator's
// state and draws the proof bytes. A fresh generator per request keeps
// requests order-independent.
func (d *DeterministicProvider) RequestRandomness(ctx Context) (*Proof, error) {
	data, err := ctx.Serialize()
	if err != nil {
		return nil, err
	}

	rng := NewSeededRng(d.seed)
	rng.XorState(data)

	out := make([]byte, ProofBytes)
	rng.Bytes(out)

	return &Proof{
		Context:     ctx,
		RandomBytes: out,
		Timestamp:   time.Now().Unix(),
	}, nil
}

// VerifyProof re-derives the bytes for the proof's context and compares.
func (d *DeterministicProvider) VerifyProof(p *Proof) (bool, error) {
	expected, err := d.RequestRandomness(p.Context)
	if err != nil {
		return false, err
	}
	if len(p.RandomBytes) != len(expected.RandomBytes) {
		return false, nil
	}
	for i := range p.RandomBytes {
		if p.RandomBytes[i] != expected.RandomBytes[i] {
			return false, nil
		}
	}
	return true, nil
}
