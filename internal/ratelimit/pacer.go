package ratelimit

import (
	"time"

	"golang.org/x/time/rate"
)

// Pacer hands out start slots for outbound requests. Each call to Reserve
// claims the next slot and returns the delay until it opens, so slots are
// granted in call order.
type Pacer interface {
	Reserve() time.Duration
}

// TokenBucket paces requests at a steady rate with a burst allowance.
type TokenBucket struct {
	limiter *rate.Limiter
}

// NewTokenBucket creates a pacer admitting perSecond requests per second.
// With burst 1 and perSecond 10 the n-th reservation opens n*100ms after the first.
func NewTokenBucket(perSecond float64, burst int) *TokenBucket {
	return &TokenBucket{limiter: newRateLimiter(perSecond, burst)}
}

// Reserve implements Pacer
func (tb *TokenBucket) Reserve() time.Duration {
	return tb.limiter.Reserve().Delay()
}

// Unlimited returns a pacer that never delays.
func Unlimited() Pacer {
	return NewTokenBucket(0, 1)
}

type apiPacer struct {
	l   *Limiter
	api API
}

func (p apiPacer) Reserve() time.Duration {
	return p.l.Reserve(p.api)
}
