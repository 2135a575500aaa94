// Package store defines how the bookmark collection is persisted.
//
// The collection is never stored record by record: every backend keeps one
// snapshot of the whole ordered sequence and rewrites it on each mutation.
package store

import (
	"context"
	"errors"

	"github.com/MrSnakeDoc/pinmap/internal/domain"
)

// ErrMalformed is returned by Load when the stored snapshot can't be decoded.
var ErrMalformed = errors.New("malformed bookmark snapshot")

// Snapshotter loads and saves the whole bookmark collection.
// Save replaces the stored snapshot in a single write.
type Snapshotter interface {
	Load(ctx context.Context) ([]domain.Bookmark, error)
	Save(ctx context.Context, bookmarks []domain.Bookmark) error
	Name() string
}

// Pinger is implemented by backends that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ping checks s if it supports it; backends without a remote side are always up.
func Ping(ctx context.Context, s Snapshotter) error {
	if p, ok := s.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
