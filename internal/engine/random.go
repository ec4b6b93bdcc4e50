package engine

import (
	"math/rand/v2"
	"sync"
	"time"
)

// RandomSource yields uniform draws in [0, 1). Implementations must be
// safe for concurrent use.
type RandomSource interface {
	Float64() float64
}

// lockedSource serializes access to a *rand.Rand, which is not safe for
// concurrent use on its own.
type lockedSource struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewSeededSource returns a concurrency-safe source whose sequence is
// fully determined by seed. A zero seed draws one from the clock.
func NewSeededSource(seed uint64) RandomSource {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &lockedSource{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *lockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Float64()
}
