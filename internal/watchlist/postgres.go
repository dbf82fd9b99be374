package watchlist

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultTable is the table used when none is configured.
const DefaultTable = "watchlist_items"

// PostgresStore persists items in a single Postgres table.
type PostgresStore struct {
	pool  *pgxpool.Pool
	table string
}

// Connect creates a connection pool and verifies it with a ping.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// NewPostgresStore wraps an open pool. An empty table selects DefaultTable.
func NewPostgresStore(pool *pgxpool.Pool, table string) *PostgresStore {
	if table == "" {
		table = DefaultTable
	}
	return &PostgresStore{
		pool:  pool,
		table: pgx.Identifier{table}.Sanitize(),
	}
}

// EnsureSchema creates the items table when it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS `+s.table+` (
			id         uuid PRIMARY KEY DEFAULT gen_random_uuid(),
			ticker     text NOT NULL,
			breakout   text NOT NULL DEFAULT '',
			notes      text NOT NULL DEFAULT '',
			created_at timestamptz NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

// List implements Store
func (s *PostgresStore) List(ctx context.Context) ([]Item, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, ticker, breakout, notes, created_at FROM `+s.table+` ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	items, err := pgx.CollectRows(rows, pgx.RowToStructByPos[Item])
	if err != nil {
		return nil, fmt.Errorf("scan items: %w", err)
	}
	return items, nil
}

// Insert implements Store
func (s *PostgresStore) Insert(ctx context.Context, n NewItem) (Item, error) {
	n, err := n.normalize()
	if err != nil {
		return Item{}, err
	}

	var item Item
	err = s.pool.QueryRow(ctx,
		`INSERT INTO `+s.table+` (ticker, breakout, notes) VALUES ($1, $2, $3)
		RETURNING id, ticker, breakout, notes, created_at`,
		n.Ticker, n.Breakout, n.Notes,
	).Scan(&item.ID, &item.Ticker, &item.Breakout, &item.Notes, &item.CreatedAt)
	if err != nil {
		return Item{}, fmt.Errorf("insert item: %w", err)
	}
	return item, nil
}

// Update implements Store
func (s *PostgresStore) Update(ctx context.Context, id uuid.UUID, changes Changes) (Item, error) {
	if changes.Breakout != nil {
		trimmed := strings.TrimSpace(*changes.Breakout)
		changes.Breakout = &trimmed
	}

	// NULL parameters keep the stored value
	var item Item
	err := s.pool.QueryRow(ctx,
		`UPDATE `+s.table+` SET breakout = COALESCE($2, breakout), notes = COALESCE($3, notes)
		WHERE id = $1
		RETURNING id, ticker, breakout, notes, created_at`,
		id, changes.Breakout, changes.Notes,
	).Scan(&item.ID, &item.Ticker, &item.Breakout, &item.Notes, &item.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, ErrNotFound
	}
	if err != nil {
		return Item{}, fmt.Errorf("update item %s: %w", id, err)
	}
	return item, nil
}

// Delete implements Store
func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM `+s.table+` WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete item %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
