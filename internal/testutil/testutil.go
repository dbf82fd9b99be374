package testutil

import (
	"context"
	"sync"
	"time"

	"breakouttracker/internal/fetcher"
	"breakouttracker/internal/quote"
)

// StubProvider is a hand-rolled implementation of fetcher.Provider for testing.
// It records the ticker and start time of every call.
type StubProvider struct {
	NameValue  string
	LookupFunc func(ctx context.Context, ticker string) (quote.Quote, error)

	mu    sync.Mutex
	calls []Call
}

// Call is one recorded Lookup invocation
type Call struct {
	Ticker string
	At     time.Time
}

// Name implements the Provider interface
func (s *StubProvider) Name() string {
	if s.NameValue != "" {
		return s.NameValue
	}
	return "stub"
}

// Lookup implements the Provider interface
func (s *StubProvider) Lookup(ctx context.Context, ticker string) (quote.Quote, error) {
	s.mu.Lock()
	s.calls = append(s.calls, Call{Ticker: ticker, At: time.Now()})
	s.mu.Unlock()

	if s.LookupFunc != nil {
		return s.LookupFunc(ctx, ticker)
	}
	return quote.Quote{}, fetcher.NewNoDataError(ticker)
}

// Calls returns a copy of the recorded calls
func (s *StubProvider) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// NewStubProvider creates a stub that answers from a fixed table.
// Tickers missing from quotes fail with err, or with a no-data error when err is nil.
func NewStubProvider(name string, quotes map[string]quote.Quote, err error) *StubProvider {
	return &StubProvider{
		NameValue: name,
		LookupFunc: func(ctx context.Context, ticker string) (quote.Quote, error) {
			if q, ok := quotes[ticker]; ok {
				return q, nil
			}
			if err != nil {
				return quote.Quote{}, err
			}
			return quote.Quote{}, fetcher.NewNoDataError(ticker)
		},
	}
}
