// ABOUTME: Reconnect backoff policy: exponential growth with full jitter, capped.
// ABOUTME: Keeps a flapping server from being hammered by reconnect attempts.
package realtime

import (
	"math"
	"math/rand/v2"
	"time"
)

// ReconnectPolicy controls the delay between automatic reconnect attempts.
type ReconnectPolicy struct {
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
	Jitter     bool
}

// DefaultReconnectPolicy returns the standard policy: 500ms base, 30s cap,
// doubling, full jitter.
func DefaultReconnectPolicy() ReconnectPolicy {
	return ReconnectPolicy{
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   30 * time.Second,
		Multiplier: 2.0,
		Jitter:     true,
	}
}

// Delay computes the wait before the given 0-indexed reconnect attempt.
func (p ReconnectPolicy) Delay(attempt int) time.Duration {
	delayFloat := float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt))
	if delayFloat > float64(p.MaxDelay) {
		delayFloat = float64(p.MaxDelay)
	}
	delay := time.Duration(delayFloat)
	if p.Jitter && delay > 0 {
		delay = time.Duration(rand.Int64N(int64(delay) + 1))
	}
	return delay
}
