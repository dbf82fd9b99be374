package fetcher

import (
	"log/slog"
	"time"

	"resty.dev/v3"
)

// DefaultTimeout bounds a single provider call when the caller gives none
const DefaultTimeout = 5 * time.Second

// NewHTTPClient creates a resty client for a quote provider.
// Retries are disabled: the aggregator's fallback chain is the only recovery path.
func NewHTTPClient(baseURL string, timeout time.Duration) *resty.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetTimeout(timeout).
		SetRetryCount(0).
		AddResponseMiddleware(logResponse)

	return client
}

// logResponse logs every provider response for observability
func logResponse(_ *resty.Client, r *resty.Response) error {
	slog.Debug("provider response",
		"url", r.Request.URL,
		"status_code", r.StatusCode(),
		"duration", r.Duration())
	return nil
}
