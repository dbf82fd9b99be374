package finnhub

import (
	"context"
	"time"

	"resty.dev/v3"

	"breakouttracker/internal/fetcher"
	"breakouttracker/internal/quote"
)

// DefaultBaseURL is the production Finnhub REST endpoint
const DefaultBaseURL = "https://finnhub.io/api/v1"

// QuoteResponse represents the Finnhub /quote response.
// Finnhub answers unknown symbols with zeros (and nulls for d/dp).
type QuoteResponse struct {
	Current       float64 `json:"c"`
	Change        float64 `json:"d"`
	ChangePercent float64 `json:"dp"`
	High          float64 `json:"h"`
	Low           float64 `json:"l"`
	Open          float64 `json:"o"`
	PreviousClose float64 `json:"pc"`
	Timestamp     int64   `json:"t"`
}

// QuoteProvider fetches quotes from Finnhub
type QuoteProvider struct {
	apiKey string
	client *resty.Client
}

// NewQuoteProvider creates a new Finnhub quote provider
func NewQuoteProvider(apiKey, baseURL string, timeout time.Duration) *QuoteProvider {
	return &QuoteProvider{
		apiKey: apiKey,
		client: fetcher.NewHTTPClient(baseURL, timeout),
	}
}

// Name implements fetcher.Provider
func (p *QuoteProvider) Name() string {
	return "finnhub"
}

// Lookup retrieves the current quote for ticker
func (p *QuoteProvider) Lookup(ctx context.Context, ticker string) (quote.Quote, error) {
	var result QuoteResponse

	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol": ticker,
			"token":  p.apiKey,
		}).
		SetResult(&result).
		Get("/quote")

	if err != nil {
		return quote.Quote{}, fetcher.ClassifyTransportError(err)
	}

	if !resp.IsSuccess() {
		return quote.Quote{}, fetcher.ClassifyHTTPError(resp.StatusCode())
	}

	q := result.Quote()
	if q.Empty() {
		return quote.Quote{}, fetcher.NewNoDataError(ticker)
	}

	return q, nil
}

// Quote maps the response fields onto a Quote without unit conversion
func (r QuoteResponse) Quote() quote.Quote {
	return quote.Quote{
		CurrentPrice:  r.Current,
		PreviousClose: r.PreviousClose,
		Change:        r.Change,
		ChangePercent: r.ChangePercent,
		High:          r.High,
		Low:           r.Low,
		Open:          r.Open,
	}
}
