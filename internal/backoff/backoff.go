// Package backoff computes the exponential-with-jitter retry delay used by
// the worker when a delivery attempt fails.
package backoff

import (
	"math"
	"math/rand/v2"
	"time"
)

// Policy maps a completed attempt count to the delay before the next
// attempt. The random source is injectable so tests can fix the jitter.
type Policy struct {
	base   time.Duration
	cap    time.Duration
	source *rand.Rand
}

// NewPolicy builds a Policy. A nil source gets its own generator seeded
// from the current time; pass an explicit *rand.Rand for deterministic
// tests.
func NewPolicy(base, cap time.Duration, source *rand.Rand) *Policy {
	if source == nil {
		source = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	return &Policy{base: base, cap: cap, source: source}
}

// NextDelay returns the delay before the attempt that follows
// attemptCount completed attempts. delay = base * 2^(attemptCount-1),
// capped, then scaled by a jitter factor drawn uniformly from [0.5, 1.5].
func (p *Policy) NextDelay(attemptCount int) time.Duration {
	if attemptCount < 1 {
		attemptCount = 1
	}

	exp := math.Pow(2, float64(attemptCount-1))
	delay := time.Duration(float64(p.base) * exp)
	if delay > p.cap || delay < 0 {
		delay = p.cap
	}

	jitter := 0.5 + p.source.Float64()
	return time.Duration(float64(delay) * jitter)
}
