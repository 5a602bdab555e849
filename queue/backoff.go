package queue

import (
	"math"
	"time"
)

// Backoff configures how blocking calls wait between NotReady retries.
type Backoff struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultBackoff starts at a microsecond and doubles up to a millisecond.
func DefaultBackoff() Backoff {
	return Backoff{
		InitialDelay: time.Microsecond,
		MaxDelay:     time.Millisecond,
		Multiplier:   2,
	}
}

// Delay returns the wait before retry attempt N (1-based).
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt <= 1 || b.InitialDelay <= 0 {
		return max(b.InitialDelay, 0)
	}
	mult := b.Multiplier
	if mult < 1.0 {
		mult = 1.0
	}
	delay := float64(b.InitialDelay) * math.Pow(mult, float64(attempt-1))
	if b.MaxDelay > 0 && delay > float64(b.MaxDelay) {
		delay = float64(b.MaxDelay)
	}
	return time.Duration(delay)
}
