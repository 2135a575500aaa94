// Package bookmarks is the server-side source of truth for the bookmark
// collection.
//
// Every operation is a read-modify-write of the whole snapshot held by the
// backend. No lock is held between the read and the write, so two requests
// mutating the collection at the same time can lose one of the updates
// (last writer wins). Each individual write is atomic at the backend level.
package bookmarks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/pinmap/internal/domain"
	"github.com/MrSnakeDoc/pinmap/internal/logger"
	"github.com/MrSnakeDoc/pinmap/internal/metrics"
	"github.com/MrSnakeDoc/pinmap/internal/store"
)

// ErrStorage wraps every failure of the underlying backend.
var ErrStorage = errors.New("bookmark storage fault")

// Service exposes the bookmark collection operations.
type Service struct {
	backend store.Snapshotter
	logger  logger.Logger
	now     func() time.Time
	newID   func(time.Time) string
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides time.Now (tests).
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides domain.NewID (tests).
func WithIDGenerator(gen func(time.Time) string) Option {
	return func(s *Service) { s.newID = gen }
}

// NewService creates a bookmark service on top of a snapshot backend.
func NewService(backend store.Snapshotter, log logger.Logger, opts ...Option) *Service {
	s := &Service{
		backend: backend,
		logger:  log.With(logger.String("backend", backend.Name())),
		now:     time.Now,
		newID:   domain.NewID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Backend returns the snapshot backend the service writes to.
func (s *Service) Backend() store.Snapshotter {
	return s.backend
}

// List returns the whole collection in stored order.
// Storage faults are logged and yield an empty collection.
func (s *Service) List(ctx context.Context) []domain.Bookmark {
	bookmarks, err := s.backend.Load(ctx)
	if err != nil {
		s.recordFault("load", err)
		s.logger.Error("failed to read bookmarks, serving empty collection", logger.Error(err))
		metrics.BookmarkOps.WithLabelValues("list", metrics.ResultError).Inc()
		return []domain.Bookmark{}
	}
	metrics.BookmarksStored.Set(float64(len(bookmarks)))
	metrics.BookmarkOps.WithLabelValues("list", metrics.ResultOK).Inc()
	return bookmarks
}

// Create assigns identity and creation time, appends the bookmark and
// persists the collection. It returns the stored record.
func (s *Service) Create(ctx context.Context, b domain.Bookmark) (domain.Bookmark, error) {
	if err := b.Validate(); err != nil {
		metrics.BookmarkOps.WithLabelValues("create", metrics.ResultInvalid).Inc()
		return domain.Bookmark{}, err
	}

	bookmarks, err := s.loadForWrite(ctx)
	if err != nil {
		metrics.BookmarkOps.WithLabelValues("create", metrics.ResultError).Inc()
		return domain.Bookmark{}, err
	}

	now := s.now()
	created := b.Clone()
	if created.ID == "" {
		created.ID = s.newID(now)
	}
	created.CreatedAt = now
	created.UpdatedAt = nil

	bookmarks = append(bookmarks, created)
	if err := s.save(ctx, bookmarks); err != nil {
		metrics.BookmarkOps.WithLabelValues("create", metrics.ResultError).Inc()
		return domain.Bookmark{}, err
	}

	s.logger.Info("bookmark created",
		logger.String("id", created.ID),
		logger.String("name", created.Name))
	metrics.BookmarkOps.WithLabelValues("create", metrics.ResultOK).Inc()
	return created, nil
}

// Update merges patch onto the bookmark with the given id. The original id
// and creation time are always kept. Unknown ids yield domain.ErrNotFound.
func (s *Service) Update(ctx context.Context, id string, patch domain.Patch) (domain.Bookmark, error) {
	bookmarks, err := s.loadForWrite(ctx)
	if err != nil {
		metrics.BookmarkOps.WithLabelValues("update", metrics.ResultError).Inc()
		return domain.Bookmark{}, err
	}

	idx := domain.IndexOf(bookmarks, id)
	if idx == -1 {
		metrics.BookmarkOps.WithLabelValues("update", metrics.ResultNotFound).Inc()
		return domain.Bookmark{}, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}

	if err := patch.Validate(); err != nil {
		metrics.BookmarkOps.WithLabelValues("update", metrics.ResultInvalid).Inc()
		return domain.Bookmark{}, err
	}

	merged := bookmarks[idx].Merge(patch, s.now())
	bookmarks[idx] = merged
	if err := s.save(ctx, bookmarks); err != nil {
		metrics.BookmarkOps.WithLabelValues("update", metrics.ResultError).Inc()
		return domain.Bookmark{}, err
	}

	s.logger.Info("bookmark updated", logger.String("id", id))
	metrics.BookmarkOps.WithLabelValues("update", metrics.ResultOK).Inc()
	return merged, nil
}

// Delete removes the bookmark with the given id and reports whether one was
// removed. An unknown id is not an error.
func (s *Service) Delete(ctx context.Context, id string) (bool, error) {
	bookmarks, err := s.loadForWrite(ctx)
	if err != nil {
		metrics.BookmarkOps.WithLabelValues("delete", metrics.ResultError).Inc()
		return false, err
	}

	kept := make([]domain.Bookmark, 0, len(bookmarks))
	for _, b := range bookmarks {
		if b.ID != id {
			kept = append(kept, b)
		}
	}

	if len(kept) == len(bookmarks) {
		s.logger.Debug("delete of unknown bookmark", logger.String("id", id))
		metrics.BookmarkOps.WithLabelValues("delete", metrics.ResultNotFound).Inc()
		return false, nil
	}

	if err := s.save(ctx, kept); err != nil {
		metrics.BookmarkOps.WithLabelValues("delete", metrics.ResultError).Inc()
		return false, err
	}

	s.logger.Info("bookmark deleted", logger.String("id", id))
	metrics.BookmarkOps.WithLabelValues("delete", metrics.ResultOK).Inc()
	return true, nil
}

// Clear replaces the collection with an empty one.
func (s *Service) Clear(ctx context.Context) error {
	if err := s.save(ctx, []domain.Bookmark{}); err != nil {
		metrics.BookmarkOps.WithLabelValues("clear", metrics.ResultError).Inc()
		return err
	}
	s.logger.Info("bookmarks cleared")
	metrics.BookmarkOps.WithLabelValues("clear", metrics.ResultOK).Inc()
	return nil
}

// ReplaceAll overwrites the collection verbatim. Records are not validated.
func (s *Service) ReplaceAll(ctx context.Context, bookmarks []domain.Bookmark) error {
	if err := s.save(ctx, bookmarks); err != nil {
		metrics.BookmarkOps.WithLabelValues("sync", metrics.ResultError).Inc()
		return err
	}
	s.logger.Info("bookmarks replaced", logger.Int("count", len(bookmarks)))
	metrics.BookmarkOps.WithLabelValues("sync", metrics.ResultOK).Inc()
	return nil
}

// SearchByRadius returns the bookmarks within radiusKm of (lat, lng).
// A non-positive radius means domain.DefaultSearchRadiusKm.
func (s *Service) SearchByRadius(ctx context.Context, lat, lng, radiusKm float64) []domain.Bookmark {
	radiusKm = domain.NormalizeRadius(radiusKm)
	results := domain.FilterByRadius(s.List(ctx), lat, lng, radiusKm)

	s.logger.Debug("radius search",
		logger.Float64("lat", lat),
		logger.Float64("lng", lng),
		logger.Float64("radius_km", radiusKm),
		logger.Int("results", len(results)))
	metrics.BookmarkOps.WithLabelValues("search", metrics.ResultOK).Inc()
	return results
}

// loadForWrite reads the snapshot ahead of a mutation. A malformed snapshot
// is treated as empty so the collection stays writable; any other failure
// aborts the mutation instead of overwriting data we could not read.
func (s *Service) loadForWrite(ctx context.Context) ([]domain.Bookmark, error) {
	bookmarks, err := s.backend.Load(ctx)
	if err == nil {
		return bookmarks, nil
	}

	s.recordFault("load", err)
	if errors.Is(err, store.ErrMalformed) {
		s.logger.Warn("stored bookmarks are malformed, starting from an empty collection",
			logger.Error(err))
		return []domain.Bookmark{}, nil
	}

	s.logger.Error("failed to read bookmarks", logger.Error(err))
	return nil, fmt.Errorf("%w: %v", ErrStorage, err)
}

func (s *Service) save(ctx context.Context, bookmarks []domain.Bookmark) error {
	if err := s.backend.Save(ctx, bookmarks); err != nil {
		s.recordFault("save", err)
		s.logger.Error("failed to write bookmarks", logger.Error(err))
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	metrics.BookmarksStored.Set(float64(len(bookmarks)))
	return nil
}

func (s *Service) recordFault(phase string, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	metrics.StorageFaults.WithLabelValues(s.backend.Name(), phase).Inc()
}
