package quote

import (
	"strings"
	"time"
)

// Quote is a point-in-time market snapshot for a single ticker.
type Quote struct {
	CurrentPrice  float64   `json:"currentPrice"`
	PreviousClose float64   `json:"previousClose"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"changePercent"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	Open          float64   `json:"open"`
	ObservedAt    time.Time `json:"observedAt"`
}

// Empty reports whether both the current price and the previous close carry
// the zero "no data" sentinel.
func (q Quote) Empty() bool {
	return q.CurrentPrice == 0 && q.PreviousClose == 0
}

// NormalizeTicker trims and uppercases a ticker symbol.
// The second return value is false when nothing is left after trimming.
func NormalizeTicker(ticker string) (string, bool) {
	t := strings.ToUpper(strings.TrimSpace(ticker))
	return t, t != ""
}
