package watchlist

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps items in process memory. It backs guest sessions, where
// nothing outlives the process.
type MemoryStore struct {
	mu    sync.RWMutex
	items []Item
	now   func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

// List implements Store
func (s *MemoryStore) List(_ context.Context) ([]Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := slices.Clone(s.items)
	slices.SortStableFunc(out, func(a, b Item) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

// Insert implements Store
func (s *MemoryStore) Insert(_ context.Context, n NewItem) (Item, error) {
	n, err := n.normalize()
	if err != nil {
		return Item{}, err
	}

	item := Item{
		ID:        uuid.New(),
		Ticker:    n.Ticker,
		Breakout:  n.Breakout,
		Notes:     n.Notes,
		CreatedAt: s.now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// newest first, so prepend
	s.items = append([]Item{item}, s.items...)
	return item, nil
}

// Update implements Store
func (s *MemoryStore) Update(_ context.Context, id uuid.UUID, changes Changes) (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].ID == id {
			changes.apply(&s.items[i])
			return s.items[i], nil
		}
	}
	return Item{}, ErrNotFound
}

// Delete implements Store
func (s *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].ID == id {
			s.items = slices.Delete(s.items, i, i+1)
			return nil
		}
	}
	return ErrNotFound
}
