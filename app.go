package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"breakouttracker/internal/aggregator"
	"breakouttracker/internal/alphavantage"
	"breakouttracker/internal/config"
	"breakouttracker/internal/fetcher"
	"breakouttracker/internal/finnhub"
	"breakouttracker/internal/ratelimit"
	"breakouttracker/internal/watchlist"
)

// app bundles the components a command needs.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	quotes *aggregator.Aggregator

	store   watchlist.Store
	guest   bool
	closeDB func()
}

// errGuestMode is returned by commands that change rows when no database is
// configured.
var errGuestMode = errors.New("guest mode keeps no rows between commands: set DATABASE_URL to add, edit or remove tickers")

func newApp(cfg *config.Config) (*app, error) {
	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	return &app{
		cfg:    cfg,
		logger: logger,
		quotes: newAggregator(cfg, logger),
	}, nil
}

// newAggregator builds the provider chain: Finnhub first, AlphaVantage as
// fallback when a key is configured.
func newAggregator(cfg *config.Config, logger *slog.Logger) *aggregator.Aggregator {
	limiter := ratelimit.New(map[ratelimit.API]ratelimit.Limit{
		ratelimit.APIFinnhub:      {Rate: cfg.BatchRate, Burst: cfg.BatchBurst},
		ratelimit.APIAlphaVantage: ratelimit.PerMinute(cfg.AlphavantageRate),
	})

	providers := []fetcher.Provider{
		finnhub.NewQuoteProvider(cfg.FinnhubAPIKey, cfg.FinnhubBaseURL, cfg.RequestTimeout),
	}
	if cfg.FallbackEnabled() {
		providers = append(providers, alphavantage.NewQuoteProvider(
			cfg.AlphavantageAPIKey,
			cfg.AlphavantageBaseURL,
			cfg.RequestTimeout,
			limiter,
		))
	}

	return aggregator.New(providers,
		aggregator.WithPacer(limiter.Pacer(ratelimit.APIFinnhub)),
		aggregator.WithCallTimeout(cfg.RequestTimeout),
		aggregator.WithBatchTimeout(cfg.BatchTimeout),
		aggregator.WithLogger(logger),
	)
}

// openStore opens the configured store on first use. Without a database URL
// it falls back to an in-memory guest store.
func (a *app) openStore(ctx context.Context) (watchlist.Store, error) {
	if a.store != nil {
		return a.store, nil
	}

	if a.cfg.DatabaseURL == "" {
		a.logger.Warn("DATABASE_URL not set, using guest mode: changes are not persisted")
		a.store = watchlist.NewMemoryStore()
		a.guest = true
		return a.store, nil
	}

	pool, err := watchlist.Connect(ctx, a.cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect watchlist database: %w", err)
	}
	pg := watchlist.NewPostgresStore(pool, a.cfg.WatchlistTable)
	if err := pg.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	a.store = pg
	a.closeDB = pool.Close
	return a.store, nil
}

// writableStore is openStore for commands that change rows. It fails in
// guest mode.
func (a *app) writableStore(ctx context.Context) (watchlist.Store, error) {
	store, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	if a.guest {
		return nil, errGuestMode
	}
	return store, nil
}

// Close releases the database pool, if one was opened. It is safe to call
// more than once.
func (a *app) Close() {
	if a.closeDB != nil {
		a.closeDB()
		a.closeDB = nil
	}
}
