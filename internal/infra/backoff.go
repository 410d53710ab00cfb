package infra

import (
	"math"
	"time"
)

const (
	DefaultBaseDelay = 1 * time.Second
	DefaultMaxDelay  = 60 * time.Second
	// MaxRetries resets the retry counter so the delay does not stay pinned forever.
	MaxRetries = 10
)

// CalculateBackoff returns the exponential delay for a retry attempt, capped at maxDelay.
func CalculateBackoff(retryCount int, baseDelay, maxDelay time.Duration) time.Duration {
	// Cap retry count to prevent overflow
	if retryCount > 30 {
		return maxDelay
	}
	delay := baseDelay * time.Duration(math.Pow(2, float64(retryCount)))
	if delay > maxDelay || delay <= 0 {
		delay = maxDelay
	}
	return delay
}
