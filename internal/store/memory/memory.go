// Package memory keeps the bookmark snapshot in process memory.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/MrSnakeDoc/pinmap/internal/domain"
)

// Store provides an in-memory snapshot. Contents are lost on restart.
type Store struct {
	mu        sync.RWMutex
	bookmarks []domain.Bookmark
	lastSave  time.Time
}

// NewStore creates a memory store, optionally pre-filled.
func NewStore(initial ...domain.Bookmark) *Store {
	return &Store{bookmarks: domain.CloneAll(initial)}
}

func (s *Store) Name() string { return "memory" }

// Load returns a copy of the current snapshot.
func (s *Store) Load(_ context.Context) ([]domain.Bookmark, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return domain.CloneAll(s.bookmarks), nil
}

// Save replaces the snapshot.
func (s *Store) Save(_ context.Context, bookmarks []domain.Bookmark) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bookmarks = domain.CloneAll(bookmarks)
	s.lastSave = time.Now()
	return nil
}

// LastSave returns when the snapshot was last written.
func (s *Store) LastSave() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.lastSave
}
