package client

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/MrSnakeDoc/pinmap/internal/domain"
	filestore "github.com/MrSnakeDoc/pinmap/internal/store/file"
)

// StorageKey names the local mirror snapshot.
const StorageKey = "map_bookmarks"

// LocalStore persists the client mirror as a whole.
// Load reports found=false when nothing was ever saved.
type LocalStore interface {
	Load(ctx context.Context) (bookmarks []domain.Bookmark, found bool, err error)
	Save(ctx context.Context, bookmarks []domain.Bookmark) error
}

// FileLocalStore keeps the mirror in <dir>/map_bookmarks.json.
type FileLocalStore struct {
	snapshot *filestore.Store
}

func NewFileLocalStore(dir string) *FileLocalStore {
	return &FileLocalStore{
		snapshot: filestore.NewStore(filepath.Join(dir, StorageKey+".json")),
	}
}

// Path returns the mirror file location.
func (s *FileLocalStore) Path() string { return s.snapshot.Path() }

func (s *FileLocalStore) Load(ctx context.Context) ([]domain.Bookmark, bool, error) {
	if _, err := os.Stat(s.snapshot.Path()); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}

	bookmarks, err := s.snapshot.Load(ctx)
	if err != nil {
		return nil, false, err
	}
	return bookmarks, true, nil
}

func (s *FileLocalStore) Save(ctx context.Context, bookmarks []domain.Bookmark) error {
	return s.snapshot.Save(ctx, bookmarks)
}

// MemoryLocalStore keeps the mirror in process memory.
type MemoryLocalStore struct {
	mu        sync.Mutex
	bookmarks []domain.Bookmark
	found     bool
	saves     int
}

// NewMemoryLocalStore creates an empty store. Use Seed to simulate a
// previously saved mirror.
func NewMemoryLocalStore() *MemoryLocalStore {
	return &MemoryLocalStore{}
}

// Seed stores bookmarks as if they had been saved earlier.
func (s *MemoryLocalStore) Seed(bookmarks []domain.Bookmark) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bookmarks = domain.CloneAll(bookmarks)
	s.found = true
}

func (s *MemoryLocalStore) Load(_ context.Context) ([]domain.Bookmark, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.found {
		return nil, false, nil
	}
	return domain.CloneAll(s.bookmarks), true, nil
}

func (s *MemoryLocalStore) Save(_ context.Context, bookmarks []domain.Bookmark) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bookmarks = domain.CloneAll(bookmarks)
	s.found = true
	s.saves++
	return nil
}

// Saves returns how many times the mirror was written.
func (s *MemoryLocalStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.saves
}
