package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// API represents the different external APIs we interact with
type API string

const (
	// APIFinnhub represents the Finnhub API
	APIFinnhub API = "finnhub"
	// APIAlphaVantage represents the AlphaVantage API
	APIAlphaVantage API = "alphavantage"
)

// Limit describes a token bucket: Rate events per second with a Burst capacity.
type Limit struct {
	Rate  float64
	Burst int
}

// PerMinute builds a Limit allowing n events per minute.
func PerMinute(n int) Limit {
	return Limit{Rate: float64(n) / 60, Burst: n}
}

// Limiter manages rate limits for different APIs
type Limiter struct {
	limiters map[API]*rate.Limiter
	mu       sync.RWMutex
}

// New creates a Limiter with one bucket per configured API.
// APIs without an entry are not limited.
func New(limits map[API]Limit) *Limiter {
	l := &Limiter{
		limiters: make(map[API]*rate.Limiter, len(limits)),
	}
	for api, lim := range limits {
		l.Set(api, lim)
	}
	return l
}

// Set replaces the bucket for api. A non-positive rate means unlimited.
func (l *Limiter) Set(api API, lim Limit) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.limiters[api] = newRateLimiter(lim.Rate, lim.Burst)
}

// Wait blocks until the rate limiter permits an event for the given API
// It returns an error if the context is canceled before the event can proceed
func (l *Limiter) Wait(ctx context.Context, api API) error {
	limiter := l.get(api)
	if limiter == nil {
		return nil
	}

	return limiter.Wait(ctx)
}

// Reserve claims the next slot for api and returns how long the caller must
// wait before acting on it.
func (l *Limiter) Reserve(api API) time.Duration {
	limiter := l.get(api)
	if limiter == nil {
		return 0
	}

	return limiter.Reserve().Delay()
}

// Pacer returns a Pacer drawing from api's bucket.
func (l *Limiter) Pacer(api API) Pacer {
	return apiPacer{l: l, api: api}
}

func (l *Limiter) get(api API) *rate.Limiter {
	if l == nil {
		return nil
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.limiters[api]
}

func newRateLimiter(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}
