package fetcher

import "breakouttracker/internal/quote"

// Result represents the outcome of one ticker lookup inside a batch.
// It's sent through a channel from worker goroutines to the collector
// that assembles the keyed result set.
type Result struct {
	// Index is the ticker's position in the batch input
	Index int

	// Ticker is the normalized symbol, empty when the input was blank
	Ticker string

	// Quote is the snapshot, valid only when OK is true
	Quote quote.Quote

	// OK reports whether any provider produced a usable quote
	OK bool
}
