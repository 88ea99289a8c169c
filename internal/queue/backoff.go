package queue

import (
	"math"
	"time"
)

// Backoff computes the delay before a failed job becomes claimable again:
// base doubled per attempt, bounded by cap. Delays are non-decreasing in
// the attempt count.
type Backoff struct {
	Base time.Duration
	Cap  time.Duration
}

func (b Backoff) Delay(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	factor := math.Pow(2, float64(attempts-1))
	delay := time.Duration(float64(b.Base) * factor)
	if delay > b.Cap || delay <= 0 {
		return b.Cap
	}
	return delay
}
