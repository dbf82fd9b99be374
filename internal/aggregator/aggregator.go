// Package aggregator resolves quotes for one or many tickers through an
// ordered chain of providers, falling through to the next provider whenever
// one fails or reports no data.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"breakouttracker/internal/fetcher"
	"breakouttracker/internal/quote"
	"breakouttracker/internal/ratelimit"
)

const (
	// DefaultCallTimeout bounds each provider call
	DefaultCallTimeout = 5 * time.Second
	// DefaultBatchTimeout bounds a whole FetchMany call
	DefaultBatchTimeout = 30 * time.Second
	// DefaultBatchRate paces batch lookups at one start every 100ms
	DefaultBatchRate = 10
)

// Aggregator looks up quotes through an ordered provider chain
type Aggregator struct {
	providers    []fetcher.Provider
	pacer        ratelimit.Pacer
	callTimeout  time.Duration
	batchTimeout time.Duration
	logger       *slog.Logger
	now          func() time.Time
}

// Option configures an Aggregator
type Option func(*Aggregator)

// WithPacer sets the pacer that spaces out lookup starts within a batch.
func WithPacer(p ratelimit.Pacer) Option {
	return func(a *Aggregator) {
		if p != nil {
			a.pacer = p
		}
	}
}

// WithCallTimeout bounds every individual provider call. Zero disables it.
func WithCallTimeout(d time.Duration) Option {
	return func(a *Aggregator) { a.callTimeout = d }
}

// WithBatchTimeout bounds a whole FetchMany call. Zero disables it.
func WithBatchTimeout(d time.Duration) Option {
	return func(a *Aggregator) { a.batchTimeout = d }
}

// WithLogger sets the logger used for provider diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithClock overrides the clock used to stamp ObservedAt.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}

// New creates an Aggregator that consults providers in the given order
func New(providers []fetcher.Provider, opts ...Option) *Aggregator {
	a := &Aggregator{
		providers:    providers,
		pacer:        ratelimit.NewTokenBucket(DefaultBatchRate, 1),
		callTimeout:  DefaultCallTimeout,
		batchTimeout: DefaultBatchTimeout,
		logger:       slog.Default(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// FetchOne returns the best available quote for ticker.
// The boolean is false when the ticker is blank or no provider produced a
// usable quote; the reason is only logged.
func (a *Aggregator) FetchOne(ctx context.Context, ticker string) (quote.Quote, bool) {
	t, ok := quote.NormalizeTicker(ticker)
	if !ok {
		a.logger.Debug("skipping blank ticker")
		return quote.Quote{}, false
	}
	return a.lookup(ctx, t)
}

// FetchMany looks up every ticker concurrently and returns the quotes keyed
// by normalized ticker. Lookup starts are spaced by the pacer in input order.
// Tickers without data are absent from the result. For repeated tickers the
// last successful position wins.
func (a *Aggregator) FetchMany(ctx context.Context, tickers []string) map[string]quote.Quote {
	quotes := make(map[string]quote.Quote, len(tickers))
	if len(tickers) == 0 {
		return quotes
	}

	if a.batchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.batchTimeout)
		defer cancel()
	}

	// Create a channel for collecting results
	resultChan := make(chan fetcher.Result, len(tickers))

	// WaitGroup to track all worker goroutines
	var wg sync.WaitGroup

	for i, raw := range tickers {
		// Slots are reserved in input order so position i never starts before slot i opens.
		delay := a.pacer.Reserve()

		ticker, ok := quote.NormalizeTicker(raw)
		if !ok {
			resultChan <- fetcher.Result{Index: i}
			continue
		}

		wg.Add(1)
		go func(i int, ticker string, delay time.Duration) {
			defer wg.Done()

			res := fetcher.Result{Index: i, Ticker: ticker}
			if sleep(ctx, delay) {
				res.Quote, res.OK = a.lookup(ctx, ticker)
			} else {
				a.logger.Debug("batch ended before lookup started", "ticker", ticker, "delay", delay)
			}
			resultChan <- res
		}(i, ticker, delay)
	}

	// Close the result channel when all workers are done
	go func() {
		wg.Wait()
		close(resultChan)
	}()

	results := make([]fetcher.Result, len(tickers))
	for res := range resultChan {
		results[res.Index] = res
	}

	for _, res := range results {
		if res.OK {
			quotes[res.Ticker] = res.Quote
		}
	}

	return quotes
}

// lookup walks the provider chain for an already normalized ticker.
func (a *Aggregator) lookup(ctx context.Context, ticker string) (quote.Quote, bool) {
	for _, p := range a.providers {
		if ctx.Err() != nil {
			break
		}

		q, err := a.try(ctx, p, ticker)
		if err == nil {
			q.ObservedAt = a.now()
			return q, true
		}
		a.logFailure(p.Name(), ticker, err)
	}

	a.logger.Info("no quote available", "ticker", ticker)
	return quote.Quote{}, false
}

// try runs a single provider call and turns every failure mode, including a
// sentinel quote and a panic, into a *fetcher.FetchError.
func (a *Aggregator) try(ctx context.Context, p fetcher.Provider, ticker string) (q quote.Quote, err error) {
	if a.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.callTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			q, err = quote.Quote{}, &fetcher.FetchError{
				Type:    fetcher.ErrorTypeUnknown,
				Message: fmt.Sprintf("provider panicked: %v", r),
			}
		}
	}()

	q, err = p.Lookup(ctx, ticker)
	if err != nil {
		return quote.Quote{}, fetcher.ClassifyTransportError(err)
	}
	if q.Empty() {
		return quote.Quote{}, fetcher.NewNoDataError(ticker)
	}
	return q, nil
}

func (a *Aggregator) logFailure(provider, ticker string, err error) {
	attrs := []any{"provider", provider, "ticker", ticker, "error", err, "error_type", fetcher.TypeOf(err)}
	var fe *fetcher.FetchError
	if errors.As(err, &fe) {
		attrs = append(attrs, "retryable", fe.Retryable)
		if fe.StatusCode > 0 {
			attrs = append(attrs, "status_code", fe.StatusCode)
		}
	}
	a.logger.Warn("provider lookup failed", attrs...)
}

// sleep waits for d or until ctx is done, reporting whether the wait completed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
