package alphavantage

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"resty.dev/v3"

	"breakouttracker/internal/fetcher"
	"breakouttracker/internal/quote"
	"breakouttracker/internal/ratelimit"
)

// DefaultBaseURL is the production AlphaVantage query endpoint
const DefaultBaseURL = "https://www.alphavantage.co/query"

// GlobalQuote is the quote object nested in a GLOBAL_QUOTE response.
// Every value is string encoded.
type GlobalQuote struct {
	Symbol           string `json:"01. symbol"`
	Open             string `json:"02. open"`
	High             string `json:"03. high"`
	Low              string `json:"04. low"`
	Price            string `json:"05. price"`
	Volume           string `json:"06. volume"`
	LatestTradingDay string `json:"07. latest trading day"`
	PreviousClose    string `json:"08. previous close"`
	Change           string `json:"09. change"`
	ChangePercent    string `json:"10. change percent"`
}

// GlobalQuoteResponse represents the AlphaVantage API response for stock quotes.
// Throttled requests come back as 200 with only Note or Information set.
type GlobalQuoteResponse struct {
	GlobalQuote GlobalQuote `json:"Global Quote"`
	Note        string      `json:"Note"`
	Information string      `json:"Information"`
}

// QuoteProvider fetches quotes from AlphaVantage
type QuoteProvider struct {
	apiKey  string
	client  *resty.Client
	limiter *ratelimit.Limiter
}

// NewQuoteProvider creates a new AlphaVantage quote provider.
// limiter may be nil, in which case requests are not throttled locally.
func NewQuoteProvider(apiKey, baseURL string, timeout time.Duration, limiter *ratelimit.Limiter) *QuoteProvider {
	return &QuoteProvider{
		apiKey:  apiKey,
		client:  fetcher.NewHTTPClient(baseURL, timeout),
		limiter: limiter,
	}
}

// Name implements fetcher.Provider
func (p *QuoteProvider) Name() string {
	return "alphavantage"
}

// Lookup retrieves the current quote for ticker
func (p *QuoteProvider) Lookup(ctx context.Context, ticker string) (quote.Quote, error) {
	if err := p.limiter.Wait(ctx, ratelimit.APIAlphaVantage); err != nil {
		return quote.Quote{}, fetcher.ClassifyTransportError(err)
	}

	var result GlobalQuoteResponse

	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"apikey":   p.apiKey,
			"function": "GLOBAL_QUOTE",
			"symbol":   ticker,
		}).
		SetResult(&result).
		Get("")

	if err != nil {
		return quote.Quote{}, fetcher.ClassifyTransportError(err)
	}

	if !resp.IsSuccess() {
		return quote.Quote{}, fetcher.ClassifyHTTPError(resp.StatusCode())
	}

	if result.GlobalQuote.Price == "" {
		if result.Note != "" || result.Information != "" {
			return quote.Quote{}, fetcher.NewRateLimitError(resp.StatusCode())
		}
		return quote.Quote{}, fetcher.NewValidationError(fmt.Sprintf("price not found in response for %s", ticker))
	}

	return result.GlobalQuote.Quote()
}

// Quote decodes the string fields. Any field that fails to parse fails the
// whole quote.
func (g GlobalQuote) Quote() (quote.Quote, error) {
	var q quote.Quote
	fields := []struct {
		name string
		raw  string
		dst  *float64
	}{
		{"price", g.Price, &q.CurrentPrice},
		{"previous close", g.PreviousClose, &q.PreviousClose},
		{"change", g.Change, &q.Change},
		{"open", g.Open, &q.Open},
		{"high", g.High, &q.High},
		{"low", g.Low, &q.Low},
	}
	for _, f := range fields {
		v, err := parseNumber(f.raw)
		if err != nil {
			return quote.Quote{}, fetcher.NewParseError(fmt.Sprintf("failed to parse %s %q", f.name, f.raw), err)
		}
		*f.dst = v
	}

	pct, err := ParsePercent(g.ChangePercent)
	if err != nil {
		return quote.Quote{}, fetcher.NewParseError(fmt.Sprintf("failed to parse change percent %q", g.ChangePercent), err)
	}
	q.ChangePercent = pct

	return q, nil
}

// ParsePercent parses values such as "0.9802%" or "-1.25%".
// The trailing percent sign is required.
func ParsePercent(s string) (float64, error) {
	s = strings.TrimSpace(s)
	num, ok := strings.CutSuffix(s, "%")
	if !ok {
		return 0, fmt.Errorf("missing percent sign in %q", s)
	}
	return parseNumber(num)
}

// parseNumber accepts finite decimal values only; strconv also takes "NaN"
// and "Inf", which are never a price.
func parseNumber(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite number %q", s)
	}
	return v, nil
}
