// Package watchlist stores the tickers a user follows together with their
// breakout levels, and overlays live quotes onto those rows for display.
package watchlist

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"breakouttracker/internal/quote"
)

var (
	// ErrNotFound is returned when no item has the requested id.
	ErrNotFound = errors.New("watchlist item not found")
	// ErrBlankTicker is returned when inserting an item without a ticker.
	ErrBlankTicker = errors.New("ticker is required")
)

// Item is one watchlist row. ID and CreatedAt are assigned by the store.
type Item struct {
	ID        uuid.UUID `json:"id"`
	Ticker    string    `json:"ticker"`
	Breakout  string    `json:"breakout"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
}

// NewItem holds the user-supplied fields of an item to insert.
type NewItem struct {
	Ticker   string
	Breakout string
	Notes    string
}

// Changes holds the fields to overwrite on an existing item. A nil field
// keeps its current value.
type Changes struct {
	Breakout *string
	Notes    *string
}

// Store persists watchlist items.
type Store interface {
	// List returns all items, newest first.
	List(ctx context.Context) ([]Item, error)
	// Insert stores a new item and returns it with its assigned id and timestamp.
	Insert(ctx context.Context, item NewItem) (Item, error)
	// Update applies the non-nil fields of changes to an existing item.
	Update(ctx context.Context, id uuid.UUID, changes Changes) (Item, error)
	// Delete removes an item.
	Delete(ctx context.Context, id uuid.UUID) error
}

// normalize validates a NewItem and uppercases its ticker.
func (n NewItem) normalize() (NewItem, error) {
	t, ok := quote.NormalizeTicker(n.Ticker)
	if !ok {
		return NewItem{}, ErrBlankTicker
	}
	n.Ticker = t
	n.Breakout = strings.TrimSpace(n.Breakout)
	return n, nil
}

// apply copies the set fields of c onto item.
func (c Changes) apply(item *Item) {
	if c.Breakout != nil {
		item.Breakout = strings.TrimSpace(*c.Breakout)
	}
	if c.Notes != nil {
		item.Notes = *c.Notes
	}
}

// BreakoutLevel parses the free-text breakout value. The second return value
// is false when the text is not a positive number.
func (i Item) BreakoutLevel() (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(i.Breakout), 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

// Row is an item with its live quote attached.
type Row struct {
	Item
	// Quote is nil when no data is available for the ticker.
	Quote *quote.Quote
	// AboveBreakout reports whether the current price has reached the breakout level.
	AboveBreakout bool
}

// Overlay attaches quotes to items, keeping item order.
func Overlay(items []Item, quotes map[string]quote.Quote) []Row {
	rows := make([]Row, 0, len(items))
	for _, it := range items {
		row := Row{Item: it}
		if q, ok := quotes[it.Ticker]; ok {
			row.Quote = &q
			if level, ok := it.BreakoutLevel(); ok && q.CurrentPrice > 0 {
				row.AboveBreakout = q.CurrentPrice >= level
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// Filter keeps items whose ticker, breakout or notes contain search,
// ignoring case. An empty search keeps everything.
func Filter(items []Item, search string) []Item {
	needle := strings.ToLower(search)
	if needle == "" {
		return items
	}
	var out []Item
	for _, it := range items {
		hay := strings.ToLower(it.Ticker + " " + it.Breakout + " " + it.Notes)
		if strings.Contains(hay, needle) {
			out = append(out, it)
		}
	}
	return out
}

// Tickers returns the ticker of every item in order.
func Tickers(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Ticker
	}
	return out
}
