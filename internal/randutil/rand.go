// Package randutil centralises construction of math/rand/v2 sources so every
// shuffle, Monte Carlo run and AI personality can be replayed from one seed.
package randutil

import (
	rand "math/rand/v2"
	"time"
)

const goldenRatio64 = 0x9e3779b97f4a7c15

// New returns a *rand.Rand seeded deterministically from seed.
func New(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(rand.NewPCG(mix(u), mix(u+goldenRatio64)))
}

// NewOrTime behaves like New for a non-zero seed and seeds from the clock otherwise.
// It returns the seed actually used so callers can log it for replay.
func NewOrTime(seed int64) (*rand.Rand, int64) {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return New(seed), seed
}

// Child derives an independent generator from parent. Successive calls on the
// same parent yield distinct, reproducible streams.
func Child(parent *rand.Rand) *rand.Rand {
	return New(parent.Int64())
}

func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
