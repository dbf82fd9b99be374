package fetcher

import (
	"context"

	"breakouttracker/internal/quote"
)

//go:generate mockgen -source=fetcher.go -destination=mock/provider.go -package=mock

// Provider is one market-data source in the aggregator's fallback chain.
// Implementations never return a partially populated quote: on any failure
// the error is a *FetchError and the quote is the zero value.
type Provider interface {
	// Name identifies the provider in logs.
	Name() string

	// Lookup fetches a snapshot for an already normalized ticker.
	Lookup(ctx context.Context, ticker string) (quote.Quote, error)
}
