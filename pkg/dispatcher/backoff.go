package dispatcher

import (
	"math"
	"math/rand/v2"
	"time"
)

// Backoff returns the wait before the attempt that follows failed attempt
// number attempt (1-based).
type Backoff interface {
	Delay(attempt int) time.Duration
}

// ExponentialBackoff waits Base * Multiplier^(attempt-1), spread by
// ±Jitter and capped at Max.
type ExponentialBackoff struct {
	Base       time.Duration
	Max        time.Duration
	Multiplier float64
	Jitter     float64
}

// NewBackoff builds the exponential backoff described by cfg.
func NewBackoff(cfg Config) ExponentialBackoff {
	return ExponentialBackoff{Base: cfg.BaseDelay, Max: cfg.MaxDelay, Multiplier: 2, Jitter: cfg.Jitter}
}

func (b ExponentialBackoff) Delay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	base := b.Base
	if base <= 0 {
		base = time.Second
	}
	limit := b.Max
	if limit <= 0 {
		limit = 5 * time.Minute
	}
	mult := b.Multiplier
	if mult <= 1 {
		mult = 2
	}

	d := float64(base) * math.Pow(mult, float64(attempt-1))
	if b.Jitter > 0 {
		d *= 1 + (rand.Float64()*2-1)*b.Jitter
	}
	if d > float64(limit) {
		d = float64(limit)
	}
	return time.Duration(d)
}
