// Package random provides the deterministic PRNG every stochastic system
// draws from, plus the pluggable verifiable-randomness provider boundary.
//
// Replay correctness depends on SeededRng producing bit-identical output
// for the same seed on every platform. Nothing in this package may touch
// a platform RNG.
package random

// SeedSize is the required seed length in bytes.
const SeedSize = 32

// SeededRng is an xorshift64* generator seeded by FNV-1a mixing of a
// 32-byte seed. State is owned per instance; there are no package-level
// generators.
type SeededRng struct {
	state uint64
}

const (
	fnvOffset uint64 = 14695981039346656037
	fnvPrime  uint64 = 1099511628211
)

// NewSeededRng mixes the 32-byte seed into the 64-bit state with FNV-1a.
// A zero mixing result is replaced with the FNV offset so the xorshift
// state is never the absorbing zero.
func NewSeededRng(seed [SeedSize]byte) *SeededRng {
	state := fnvOffset
	for _, b := range seed {
		state ^= uint64(b)
		state *= fnvPrime
	}
	if state == 0 {
		state = fnvOffset
	}
	return &SeededRng{state: state}
}

// Uint64 advances the generator one xorshift64* step.
func (r *SeededRng) Uint64() uint64 {
	x := r.state
	x ^= x >> 12
	x ^= x << 25
	x ^= x >> 27
	r.state = x
	return x * 2685821657736338717
}

// Uint32 returns the high 32 bits of the next step.
func (r *SeededRng) Uint32() uint32 {
	return uint32(r.Uint64() >> 32)
}

// Range returns a value in [0, max). Range(0) returns 0.
func (r *SeededRng) Range(max uint32) uint32 {
	if max == 0 {
		return 0
	}
	return r.Uint32() % max
}

// Float32 returns a value in [0, 1) with 24 bits of precision.
func (r *SeededRng) Float32() float32 {
	return float32(r.Uint64()>>40) / float32(1<<24)
}

// Chance reports true with probability p (clamped to [0, 1]).
func (r *SeededRng) Chance(p float32) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return r.Float32() < p
}

// Bytes fills out with the next len(out) bytes of generator output,
// 8 bytes per step, little-endian.
func (r *SeededRng) Bytes(out []byte) {
	for i := 0; i < len(out); i += 8 {
		v := r.Uint64()
		for j := 0; j < 8 && i+j < len(out); j++ {
			out[i+j] = byte(v >> (8 * j))
		}
	}
}

// XorState folds raw bytes into the state without advancing it. The
// deterministic provider uses this to bind a request context to the seed.
func (r *SeededRng) XorState(data []byte) {
	for i, b := range data {
		r.state ^= uint64(b) << (8 * (i % 8))
	}
	if r.state == 0 {
		r.state = fnvOffset
	}
}
