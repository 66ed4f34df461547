// Package random provides the probability source every resolver draws from.
// Production code uses a seeded PCG stream; tests script the exact rolls.
package random

import (
	"math/rand/v2"
	"sync"
)

// Source yields floats in [0, 1).
type Source interface {
	Float64() float64
}

// Seeded is a reproducible Source backed by a PCG generator.
type Seeded struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSeeded creates a Source whose sequence is fully determined by seed.
func NewSeeded(seed uint64) *Seeded {
	return &Seeded{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Float64 returns the next value of the stream.
func (s *Seeded) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

// Scripted replays a fixed list of rolls, then returns Fallback forever.
// It is meant for tests that need to force a particular branch.
type Scripted struct {
	Rolls    []float64
	Fallback float64

	next int
}

// NewScripted builds a Scripted source. Once rolls are exhausted every draw
// returns 0.999, which fails any chance check below 1.
func NewScripted(rolls ...float64) *Scripted {
	return &Scripted{Rolls: rolls, Fallback: 0.999}
}

// Float64 returns the next scripted roll.
func (s *Scripted) Float64() float64 {
	if s.next < len(s.Rolls) {
		v := s.Rolls[s.next]
		s.next++
		return v
	}
	return s.Fallback
}

// Consumed reports how many scripted rolls have been drawn.
func (s *Scripted) Consumed() int {
	return s.next
}

// Chance rolls once and reports whether the roll landed under p.
// p is clamped to [0, 1] first, so p >= 1 always succeeds and p <= 0 never does.
func Chance(src Source, p float64) bool {
	if p <= 0 {
		src.Float64()
		return false
	}
	if p >= 1 {
		src.Float64()
		return true
	}
	return src.Float64() < p
}

// Uniform draws a float uniformly from [lo, hi).
func Uniform(src Source, lo, hi float64) float64 {
	if hi <= lo {
		src.Float64()
		return lo
	}
	return lo + src.Float64()*(hi-lo)
}

// UniformInt draws an int uniformly from the closed range [lo, hi].
func UniformInt(src Source, lo, hi int) int {
	if hi <= lo {
		src.Float64()
		return lo
	}
	n := lo + int(src.Float64()*float64(hi-lo+1))
	if n > hi {
		n = hi
	}
	return n
}

// Pick returns a uniformly chosen index in [0, n). It returns -1 when n is 0
// without consuming a roll.
func Pick(src Source, n int) int {
	if n <= 0 {
		return -1
	}
	return UniformInt(src, 0, n-1)
}
