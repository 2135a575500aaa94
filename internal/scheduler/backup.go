package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/pinmap/internal/logger"
	"github.com/MrSnakeDoc/pinmap/internal/metrics"
	"github.com/MrSnakeDoc/pinmap/internal/store"
)

// DefaultBackupInterval is used when no interval is configured.
const DefaultBackupInterval = time.Hour

// Backup periodically copies the live bookmark snapshot to a second backend.
type Backup struct {
	source   store.Snapshotter
	target   store.Snapshotter
	logger   logger.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewBackup creates a new backup job
func NewBackup(source, target store.Snapshotter, log logger.Logger, interval time.Duration) *Backup {
	if interval <= 0 {
		interval = DefaultBackupInterval
	}

	return &Backup{
		source:   source,
		target:   target,
		logger:   log,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start runs one backup immediately, then one per interval until Stop or ctx is done.
func (b *Backup) Start(ctx context.Context) {
	if _, err := b.RunOnce(ctx); err != nil {
		b.logger.Warn("initial bookmark backup failed",
			logger.Error(err))
	}

	ticker := time.NewTicker(b.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := b.RunOnce(ctx); err != nil {
					b.logger.Error("bookmark backup failed",
						logger.Error(err))
				}
			case <-b.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the backup loop
func (b *Backup) Stop() {
	close(b.stopCh)
}

// RunOnce copies the current snapshot and returns how many bookmarks were written.
// An unreadable or malformed source leaves the previous backup untouched.
func (b *Backup) RunOnce(ctx context.Context) (int, error) {
	bookmarks, err := b.source.Load(ctx)
	if err != nil {
		metrics.StorageFaults.WithLabelValues(b.source.Name(), "backup_load").Inc()
		return 0, fmt.Errorf("read %s snapshot: %w", b.source.Name(), err)
	}

	if err := b.target.Save(ctx, bookmarks); err != nil {
		metrics.StorageFaults.WithLabelValues(b.target.Name(), "backup_save").Inc()
		return 0, fmt.Errorf("write %s backup: %w", b.target.Name(), err)
	}

	b.logger.Debug("bookmark backup written",
		logger.String("from", b.source.Name()),
		logger.String("to", b.target.Name()),
		logger.Int("count", len(bookmarks)))

	return len(bookmarks), nil
}
