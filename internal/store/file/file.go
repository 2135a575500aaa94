// Package file persists the bookmark snapshot as a JSON array on disk.
package file

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/MrSnakeDoc/pinmap/internal/domain"
	"github.com/MrSnakeDoc/pinmap/internal/store"
)

// Store keeps the collection in a single JSON file.
// Writes go to "<path>.tmp" first and are renamed over the original,
// so a reader never sees a half written snapshot.
type Store struct {
	path string
}

// NewStore creates a file store. The parent directory is created on first save.
func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Name() string { return "file" }

// Path returns the snapshot location.
func (s *Store) Path() string { return s.path }

// Load reads the snapshot. A missing or blank file is an empty collection.
func (s *Store) Load(_ context.Context) ([]domain.Bookmark, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []domain.Bookmark{}, nil
		}
		return nil, fmt.Errorf("failed to read bookmarks file: %w", err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return []domain.Bookmark{}, nil
	}

	var bookmarks []domain.Bookmark
	if err := json.Unmarshal(data, &bookmarks); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", store.ErrMalformed, s.path, err)
	}
	if bookmarks == nil {
		bookmarks = []domain.Bookmark{}
	}
	return bookmarks, nil
}

// Save rewrites the whole snapshot.
func (s *Store) Save(_ context.Context, bookmarks []domain.Bookmark) error {
	if bookmarks == nil {
		bookmarks = []domain.Bookmark{}
	}

	data, err := json.MarshalIndent(bookmarks, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal bookmarks: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write bookmarks file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace bookmarks file: %w", err)
	}
	return nil
}
