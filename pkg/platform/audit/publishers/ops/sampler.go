package ops

import (
	"math/rand/v2"
	"sync"
)

// Sampler decides which ops events are worth keeping. The ops channel is
// lossy by contract, so high-volume actions (request traces, heartbeats)
// can run at a fraction while rarer actions keep the default rate.
type Sampler struct {
	mu        sync.RWMutex
	rate      float64
	overrides map[string]float64
}

// NewSampler returns a sampler keeping the given fraction of events.
// The rate is clamped to [0, 1].
func NewSampler(rate float64) *Sampler {
	return &Sampler{
		rate:      clampRate(rate),
		overrides: make(map[string]float64),
	}
}

// ShouldSample reports whether an event for the action should be kept.
func (s *Sampler) ShouldSample(action string) bool {
	s.mu.RLock()
	rate, ok := s.overrides[action]
	if !ok {
		rate = s.rate
	}
	s.mu.RUnlock()

	return rand.Float64() < rate
}

// SetRate pins a per-action rate, overriding the default. Zero silences an
// action entirely.
func (s *Sampler) SetRate(action string, rate float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[action] = clampRate(rate)
}

func clampRate(rate float64) float64 {
	switch {
	case rate < 0:
		return 0
	case rate > 1:
		return 1
	}
	return rate
}
