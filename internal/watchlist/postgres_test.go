package watchlist

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
)

// newTestStore connects to WATCHLIST_TEST_DATABASE_URL and creates a
// throwaway table, skipping when no database is configured.
func newTestStore(t *testing.T) *PostgresStore {
	t.Helper()

	url := os.Getenv("WATCHLIST_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("WATCHLIST_TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := Connect(ctx, url)
	if err != nil {
		t.Fatalf("Connect() returned unexpected error: %v", err)
	}
	t.Cleanup(pool.Close)

	table := fmt.Sprintf("watchlist_test_%d", time.Now().UnixNano())
	s := NewPostgresStore(pool, table)
	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema() returned unexpected error: %v", err)
	}
	t.Cleanup(func() {
		pool.Exec(context.Background(), "DROP TABLE IF EXISTS "+s.table)
	})

	return s
}

func TestNewPostgresStore_DefaultTable(t *testing.T) {
	s := NewPostgresStore(nil, "")
	if s.table != `"watchlist_items"` {
		t.Errorf("table = %s, want %q", s.table, `"watchlist_items"`)
	}

	s = NewPostgresStore(nil, `odd"name`)
	if s.table != `"odd""name"` {
		t.Errorf("table = %s, want sanitized identifier", s.table)
	}
}

func TestConnect_InvalidURL(t *testing.T) {
	if _, err := Connect(context.Background(), "://not-a-url"); err == nil {
		t.Error("Connect() expected error for invalid URL, got nil")
	}
}

func TestPostgresStore_CRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.Insert(ctx, NewItem{Ticker: "aapl", Breakout: "180", Notes: "base"})
	if err != nil {
		t.Fatalf("Insert() returned unexpected error: %v", err)
	}
	if first.Ticker != "AAPL" || first.ID == uuid.Nil || first.CreatedAt.IsZero() {
		t.Errorf("Insert() = %+v", first)
	}

	second, err := s.Insert(ctx, NewItem{Ticker: "MSFT"})
	if err != nil {
		t.Fatalf("Insert() returned unexpected error: %v", err)
	}

	items, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() returned unexpected error: %v", err)
	}
	if len(items) != 2 || items[0].ID != second.ID {
		t.Errorf("List() = %+v, want newest first", items)
	}

	updated, err := s.Update(ctx, first.ID, Changes{Breakout: ptr("185"), Notes: ptr("raised")})
	if err != nil {
		t.Fatalf("Update() returned unexpected error: %v", err)
	}
	if updated.Breakout != "185" || updated.Notes != "raised" {
		t.Errorf("Update() = %+v", updated)
	}

	updated, err = s.Update(ctx, first.ID, Changes{Notes: ptr("only notes")})
	if err != nil {
		t.Fatalf("Update() returned unexpected error: %v", err)
	}
	if updated.Breakout != "185" || updated.Notes != "only notes" {
		t.Errorf("partial Update() = %+v, want breakout kept", updated)
	}

	if _, err := s.Update(ctx, uuid.New(), Changes{Breakout: ptr("1")}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update() unknown id error = %v, want ErrNotFound", err)
	}

	if err := s.Delete(ctx, first.ID); err != nil {
		t.Fatalf("Delete() returned unexpected error: %v", err)
	}
	if err := s.Delete(ctx, first.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}

	if _, err := s.Insert(ctx, NewItem{Ticker: ""}); !errors.Is(err, ErrBlankTicker) {
		t.Errorf("Insert() blank ticker error = %v, want ErrBlankTicker", err)
	}
}
