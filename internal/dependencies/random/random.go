package random

import "math/rand/v2"

// Random provides random number generation that can be mocked for testing
type Random interface {
	// Intn returns a random int in [0, n)
	Intn(n int) int
}

// MathRandom implements Random using math/rand/v2. Only used for scheduling
// jitter, where predictability is harmless.
type MathRandom struct{}

// New creates a new MathRandom
func New() *MathRandom {
	return &MathRandom{}
}

// Intn returns a random int in [0, n), or 0 when n <= 0
func (r *MathRandom) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	//nolint:gosec // G404: jitter does not need cryptographic randomness
	return rand.IntN(n)
}
