// Package seed imports an initial bookmark collection from a YAML file.
//
// The import only runs against an empty store so it can't clobber
// bookmarks created at runtime.
package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrSnakeDoc/pinmap/internal/bookmarks"
	"github.com/MrSnakeDoc/pinmap/internal/logger"
	"github.com/MrSnakeDoc/pinmap/internal/store"
)

// Importer writes the seed file into the bookmark service.
type Importer struct {
	loader  *Loader
	mapper  *Mapper
	service *bookmarks.Service
	logger  logger.Logger
}

func NewImporter(filePath string, service *bookmarks.Service, log logger.Logger) *Importer {
	return &Importer{
		loader:  NewLoader(filePath),
		mapper:  NewMapper(),
		service: service,
		logger:  log,
	}
}

// Run imports the seed file if the store is empty and returns how many
// bookmarks were written. A store that can't be read is left alone.
func (i *Importer) Run(ctx context.Context) (int, error) {
	existing, err := i.service.Backend().Load(ctx)
	if err != nil && !errors.Is(err, store.ErrMalformed) {
		return 0, fmt.Errorf("failed to check existing bookmarks: %w", err)
	}
	if len(existing) > 0 {
		i.logger.Info("store already has bookmarks, skipping seed import",
			logger.Int("existing", len(existing)),
			logger.String("file", i.loader.Path()))
		return 0, nil
	}

	file, err := i.loader.Load()
	if err != nil {
		return 0, err
	}

	seeded, skipped, err := i.mapper.Map(file)
	for _, s := range skipped {
		i.logger.Warn("skipping seed entry", logger.Error(s))
	}
	if err != nil {
		return 0, err
	}
	if len(seeded) == 0 {
		return 0, nil
	}

	if err := i.service.ReplaceAll(ctx, seeded); err != nil {
		return 0, fmt.Errorf("failed to write seed bookmarks: %w", err)
	}

	i.logger.Info("seed bookmarks imported",
		logger.Int("count", len(seeded)),
		logger.Int("skipped", len(skipped)),
		logger.String("file", i.loader.Path()))
	return len(seeded), nil
}
