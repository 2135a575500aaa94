// Package client keeps a local mirror of the bookmark collection and
// reconciles it with the server opportunistically.
//
// The mirror is the reliability floor: every mutation is applied to it and
// persisted locally whether or not the server call succeeded. Server
// failures are logged and absorbed, never returned. The mirror and the
// server may diverge while the server is unreachable; nothing reconciles
// them automatically except SaveToStorage.
package client

import (
	"context"
	"sync"
	"time"

	"github.com/MrSnakeDoc/pinmap/internal/domain"
	"github.com/MrSnakeDoc/pinmap/internal/logger"
)

// Cache is the UI-facing view of the bookmark collection.
//
// mu only guards the mirror slice. It is never held across a server call,
// so interleaved operations resolve as last writer wins.
type Cache struct {
	remote Remote
	local  LocalStore
	logger logger.Logger
	now    func() time.Time
	newID  func(time.Time) string

	mu        sync.Mutex
	bookmarks []domain.Bookmark
}

// Option customizes a Cache.
type Option func(*Cache)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithIDGenerator overrides domain.NewID for client-assigned ids.
func WithIDGenerator(gen func(time.Time) string) Option {
	return func(c *Cache) { c.newID = gen }
}

// New creates an empty cache. Call Init to load the collection.
func New(remote Remote, local LocalStore, log logger.Logger, opts ...Option) *Cache {
	c := &Cache{
		remote:    remote,
		local:     local,
		logger:    log,
		now:       time.Now,
		newID:     domain.NewID,
		bookmarks: []domain.Bookmark{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Init loads the collection from the server. When the server can't be
// reached it falls back to the local snapshot and pushes that snapshot
// back to the server (best effort).
func (c *Cache) Init(ctx context.Context) []domain.Bookmark {
	remote, err := c.remote.List(ctx)
	if err == nil {
		c.setMirror(remote)
		c.logger.Info("loaded bookmarks from server", logger.Int("count", len(remote)))
		return c.GetAll()
	}

	c.logger.Warn("failed to load bookmarks from server, trying local snapshot", logger.Error(err))
	c.setMirror(nil)

	stored, found, err := c.local.Load(ctx)
	if err != nil {
		c.logger.Error("failed to read local bookmark snapshot", logger.Error(err))
		return c.GetAll()
	}
	if !found {
		return c.GetAll()
	}

	c.setMirror(stored)
	c.logger.Info("loaded bookmarks from local snapshot", logger.Int("count", len(stored)))

	// Migrate the local snapshot to the server.
	c.SaveToStorage(ctx)
	return c.GetAll()
}

// GetAll returns a copy of the mirror.
func (c *Cache) GetAll() []domain.Bookmark {
	c.mu.Lock()
	defer c.mu.Unlock()

	return domain.CloneAll(c.bookmarks)
}

// FindByID looks a bookmark up in the mirror.
func (c *Cache) FindByID(id string) (domain.Bookmark, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if idx := domain.IndexOf(c.bookmarks, id); idx != -1 {
		return c.bookmarks[idx].Clone(), true
	}
	return domain.Bookmark{}, false
}

// Add creates the bookmark on the server and appends the server's record to
// the mirror. If the server call fails the client-built record is appended
// instead. id and createdAt are filled in when absent.
func (c *Cache) Add(ctx context.Context, b domain.Bookmark) domain.Bookmark {
	record := b.Clone()
	now := c.now()
	if record.ID == "" {
		record.ID = c.newID(now)
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}

	saved, err := c.remote.Create(ctx, record)
	if err != nil {
		c.logger.Warn("failed to save bookmark to server, keeping it locally",
			logger.String("id", record.ID),
			logger.Error(err))
		saved = record
	}

	c.mu.Lock()
	c.bookmarks = append(c.bookmarks, saved.Clone())
	c.mu.Unlock()

	c.persist(ctx)
	return saved
}

// Remove deletes the bookmark from the mirror and reports whether it was
// there. The server delete is only attempted when it was.
func (c *Cache) Remove(ctx context.Context, id string) bool {
	c.mu.Lock()
	kept := make([]domain.Bookmark, 0, len(c.bookmarks))
	for _, b := range c.bookmarks {
		if b.ID != id {
			kept = append(kept, b)
		}
	}
	removed := len(kept) != len(c.bookmarks)
	c.bookmarks = kept
	c.mu.Unlock()

	if !removed {
		return false
	}

	if err := c.remote.Delete(ctx, id); err != nil {
		c.logger.Warn("failed to delete bookmark on server",
			logger.String("id", id),
			logger.Error(err))
	}

	c.persist(ctx)
	return true
}

// Update merges patch onto the mirrored bookmark. It returns false, without
// calling the server, when id is not in the mirror.
func (c *Cache) Update(ctx context.Context, id string, patch domain.Patch) (domain.Bookmark, bool) {
	c.mu.Lock()
	idx := domain.IndexOf(c.bookmarks, id)
	if idx == -1 {
		c.mu.Unlock()
		return domain.Bookmark{}, false
	}
	merged := c.bookmarks[idx].Merge(patch, c.now())
	c.mu.Unlock()

	if _, err := c.remote.Update(ctx, id, patch); err != nil {
		c.logger.Warn("failed to update bookmark on server",
			logger.String("id", id),
			logger.Error(err))
	}

	// A bookmark removed while the server call was in flight stays removed.
	c.mu.Lock()
	if idx := domain.IndexOf(c.bookmarks, id); idx != -1 {
		c.bookmarks[idx] = merged.Clone()
	}
	c.mu.Unlock()

	c.persist(ctx)
	return merged, true
}

// SearchByCoordinates asks the server for the bookmarks within radiusKm of
// (lat, lng) and falls back to filtering the mirror when that fails.
// A non-positive radius means domain.DefaultSearchRadiusKm.
func (c *Cache) SearchByCoordinates(ctx context.Context, lat, lng, radiusKm float64) []domain.Bookmark {
	radiusKm = domain.NormalizeRadius(radiusKm)

	results, err := c.remote.Search(ctx, lat, lng, radiusKm)
	if err == nil {
		return results
	}

	c.logger.Warn("server search failed, searching local mirror", logger.Error(err))
	return domain.FilterByRadius(c.GetAll(), lat, lng, radiusKm)
}

// Clear empties the collection on the server (best effort) and in the mirror.
func (c *Cache) Clear(ctx context.Context) {
	if err := c.remote.Clear(ctx); err != nil {
		c.logger.Warn("failed to clear bookmarks on server", logger.Error(err))
	}

	c.setMirror(nil)
	c.persist(ctx)
}

// SaveToStorage pushes the whole mirror to the server, then persists it
// locally regardless of the outcome.
func (c *Cache) SaveToStorage(ctx context.Context) {
	if err := c.remote.Sync(ctx, c.GetAll()); err != nil {
		c.logger.Warn("failed to sync bookmarks to server", logger.Error(err))
	}
	c.persist(ctx)
}

func (c *Cache) setMirror(bookmarks []domain.Bookmark) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.bookmarks = domain.CloneAll(bookmarks)
}

// persist writes the mirror locally. Failures are logged only.
func (c *Cache) persist(ctx context.Context) {
	if err := c.local.Save(ctx, c.GetAll()); err != nil {
		c.logger.Error("failed to save local bookmark snapshot", logger.Error(err))
	}
}
