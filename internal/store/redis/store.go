package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/pinmap/internal/domain"
	"github.com/MrSnakeDoc/pinmap/internal/store"
)

// Store keeps the bookmark snapshot under a single Redis key.
// The key has no TTL: bookmarks never expire.
type Store struct {
	client *redis.Client
	key    string
}

// NewStore creates a new Redis store
func NewStore(client *redis.Client) *Store {
	return &Store{
		client: client,
		key:    SnapshotKey(),
	}
}

func (s *Store) Name() string { return "redis" }

// Load retrieves the snapshot. A missing key is an empty collection.
func (s *Store) Load(ctx context.Context) ([]domain.Bookmark, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []domain.Bookmark{}, nil
		}
		return nil, fmt.Errorf("failed to get bookmark snapshot: %w", err)
	}

	var bookmarks []domain.Bookmark
	if err := json.Unmarshal(data, &bookmarks); err != nil {
		return nil, fmt.Errorf("%w: key %s: %v", store.ErrMalformed, s.key, err)
	}
	if bookmarks == nil {
		bookmarks = []domain.Bookmark{}
	}
	return bookmarks, nil
}

// Save overwrites the snapshot with a single SET.
func (s *Store) Save(ctx context.Context, bookmarks []domain.Bookmark) error {
	if bookmarks == nil {
		bookmarks = []domain.Bookmark{}
	}

	data, err := json.Marshal(bookmarks)
	if err != nil {
		return fmt.Errorf("failed to marshal bookmarks: %w", err)
	}

	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save bookmark snapshot: %w", err)
	}
	return nil
}

// Ping checks the Redis connection
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
