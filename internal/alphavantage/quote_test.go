package alphavantage

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"breakouttracker/internal/fetcher"
	"breakouttracker/internal/quote"
	"breakouttracker/internal/ratelimit"
)

const fullQuote = `{
	"Global Quote": {
		"01. symbol": "AAPL",
		"02. open": "175.50",
		"03. high": "178.75",
		"04. low": "174.25",
		"05. price": "178.23",
		"06. volume": "50000000",
		"07. latest trading day": "2024-01-15",
		"08. previous close": "176.50",
		"09. change": "1.73",
		"10. change percent": "0.9802%"
	}
}`

func newServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestNewQuoteProvider(t *testing.T) {
	p := NewQuoteProvider("test_api_key", DefaultBaseURL, time.Second, nil)

	if p == nil {
		t.Fatal("NewQuoteProvider() returned nil")
	}
	if p.apiKey != "test_api_key" {
		t.Errorf("apiKey = %q, want %q", p.apiKey, "test_api_key")
	}
	if p.client == nil {
		t.Error("client is nil")
	}
	if p.Name() != "alphavantage" {
		t.Errorf("Name() = %q, want alphavantage", p.Name())
	}
}

func TestQuoteProvider_Lookup_Success(t *testing.T) {
	server := newServer(t, http.StatusOK, fullQuote)

	p := NewQuoteProvider("test_key", server.URL, time.Second, nil)
	got, err := p.Lookup(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("Lookup() returned unexpected error: %v", err)
	}

	want := quote.Quote{
		CurrentPrice:  178.23,
		PreviousClose: 176.50,
		Change:        1.73,
		ChangePercent: 0.9802,
		High:          178.75,
		Low:           174.25,
		Open:          175.50,
	}
	if got != want {
		t.Errorf("Lookup() = %+v, want %+v", got, want)
	}
}

func TestQuoteProvider_Lookup_VerifyQueryParams(t *testing.T) {
	apiKey := "test_api_key_123"
	ticker := "GOOGL"

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("apikey"); got != apiKey {
			t.Errorf("apikey = %q, want %q", got, apiKey)
		}
		if got := r.URL.Query().Get("function"); got != "GLOBAL_QUOTE" {
			t.Errorf("function = %q, want GLOBAL_QUOTE", got)
		}
		if got := r.URL.Query().Get("symbol"); got != ticker {
			t.Errorf("symbol = %q, want %q", got, ticker)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(fullQuote))
	})

	server := httptest.NewServer(handler)
	defer server.Close()

	p := NewQuoteProvider(apiKey, server.URL, time.Second, nil)
	if _, err := p.Lookup(context.Background(), ticker); err != nil {
		t.Fatalf("Lookup() returned unexpected error: %v", err)
	}
}

func TestQuoteProvider_Lookup_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantType fetcher.ErrorType
	}{
		{"http error", http.StatusInternalServerError, ``, fetcher.ErrorTypeServer},
		{"empty response", http.StatusOK, `{}`, fetcher.ErrorTypeValidation},
		{"missing price", http.StatusOK, `{"Global Quote": {"01. symbol": "AAPL"}}`, fetcher.ErrorTypeValidation},
		{"unknown symbol", http.StatusOK, `{"Global Quote": {}}`, fetcher.ErrorTypeValidation},
		{
			"rate limit note", http.StatusOK,
			`{"Note": "Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute."}`,
			fetcher.ErrorTypeRateLimit,
		},
		{
			"rate limit information", http.StatusOK,
			`{"Information": "We have detected your API key as demo."}`,
			fetcher.ErrorTypeRateLimit,
		},
		{
			"invalid price", http.StatusOK,
			`{"Global Quote": {"02. open": "1", "03. high": "1", "04. low": "1", "05. price": "invalid_number",
			"08. previous close": "1", "09. change": "0", "10. change percent": "0%"}}`,
			fetcher.ErrorTypeParse,
		},
		{
			"percent without sign", http.StatusOK,
			`{"Global Quote": {"02. open": "1", "03. high": "1", "04. low": "1", "05. price": "1",
			"08. previous close": "1", "09. change": "0", "10. change percent": "0.5"}}`,
			fetcher.ErrorTypeParse,
		},
		{
			"NaN price", http.StatusOK,
			`{"Global Quote": {"02. open": "1", "03. high": "1", "04. low": "1", "05. price": "NaN",
			"08. previous close": "1", "09. change": "0", "10. change percent": "0%"}}`,
			fetcher.ErrorTypeParse,
		},
		{
			"Inf previous close", http.StatusOK,
			`{"Global Quote": {"02. open": "1", "03. high": "1", "04. low": "1", "05. price": "1",
			"08. previous close": "Inf", "09. change": "0", "10. change percent": "0%"}}`,
			fetcher.ErrorTypeParse,
		},
		{
			"Infinity high", http.StatusOK,
			`{"Global Quote": {"02. open": "1", "03. high": "-Infinity", "04. low": "1", "05. price": "1",
			"08. previous close": "1", "09. change": "0", "10. change percent": "0%"}}`,
			fetcher.ErrorTypeParse,
		},
		{
			"NaN change percent", http.StatusOK,
			`{"Global Quote": {"02. open": "1", "03. high": "1", "04. low": "1", "05. price": "1",
			"08. previous close": "1", "09. change": "0", "10. change percent": "NaN%"}}`,
			fetcher.ErrorTypeParse,
		},
		{
			"missing previous close", http.StatusOK,
			`{"Global Quote": {"02. open": "1", "03. high": "1", "04. low": "1", "05. price": "1",
			"09. change": "0", "10. change percent": "0%"}}`,
			fetcher.ErrorTypeParse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newServer(t, tt.status, tt.body)
			p := NewQuoteProvider("test_key", server.URL, time.Second, nil)

			got, err := p.Lookup(context.Background(), "AAPL")
			if err == nil {
				t.Fatal("Lookup() expected error, got nil")
			}
			if got != (quote.Quote{}) {
				t.Errorf("Lookup() returned partial quote %+v", got)
			}
			if typ := fetcher.TypeOf(err); typ != tt.wantType {
				t.Errorf("error type = %q, want %q (err: %v)", typ, tt.wantType, err)
			}
		})
	}
}

func TestQuoteProvider_Lookup_MissingPriceMessage(t *testing.T) {
	server := newServer(t, http.StatusOK, `{"Global Quote": {"01. symbol": "AAPL"}}`)
	p := NewQuoteProvider("test_key", server.URL, time.Second, nil)

	_, err := p.Lookup(context.Background(), "AAPL")
	if err == nil {
		t.Fatal("Lookup() expected error for missing price, got nil")
	}

	expectedErrMsg := "validation error: price not found in response for AAPL"
	if err.Error() != expectedErrMsg {
		t.Errorf("Lookup() error = %q, want %q", err.Error(), expectedErrMsg)
	}
}

func TestQuoteProvider_Lookup_ContextCancellation(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	server := httptest.NewServer(handler)
	defer server.Close()

	p := NewQuoteProvider("test_key", server.URL, time.Second, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := p.Lookup(ctx, "AAPL"); err == nil {
		t.Error("Lookup() expected error for cancelled context, got nil")
	}
}

func TestQuoteProvider_Lookup_LimiterExhausted(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(fullQuote))
	}))
	defer server.Close()

	limiter := ratelimit.New(map[ratelimit.API]ratelimit.Limit{
		ratelimit.APIAlphaVantage: ratelimit.PerMinute(1),
	})
	p := NewQuoteProvider("test_key", server.URL, time.Second, limiter)

	if _, err := p.Lookup(context.Background(), "AAPL"); err != nil {
		t.Fatalf("first Lookup() returned unexpected error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := p.Lookup(ctx, "AAPL")
	if err == nil {
		t.Fatal("second Lookup() expected error while throttled, got nil")
	}
	var fe *fetcher.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("error %v is not a *FetchError", err)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("server saw %d requests, want 1", n)
	}
}

func TestParsePercent(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"0.9802%", 0.9802, false},
		{"-1.25%", -1.25, false},
		{" 3% ", 3, false},
		{"0.5", 0, true},
		{"%", 0, true},
		{"abc%", 0, true},
		{"NaN%", 0, true},
		{"+Inf%", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePercent(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePercent(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParsePercent(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestGlobalQuote_Quote_NonFinite(t *testing.T) {
	g := GlobalQuote{
		Open:          "1",
		High:          "1",
		Low:           "1",
		Price:         "NaN",
		PreviousClose: "Inf",
		Change:        "0",
		ChangePercent: "NaN%",
	}

	got, err := g.Quote()
	if err == nil {
		t.Fatalf("Quote() = %+v, want parse error", got)
	}
	if typ := fetcher.TypeOf(err); typ != fetcher.ErrorTypeParse {
		t.Errorf("error type = %q, want %q", typ, fetcher.ErrorTypeParse)
	}
	if got != (quote.Quote{}) {
		t.Errorf("Quote() returned partial quote %+v", got)
	}
}
