package seed

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/pinmap/internal/bookmarks"
	"github.com/MrSnakeDoc/pinmap/internal/domain"
	"github.com/MrSnakeDoc/pinmap/internal/logger"
	"github.com/MrSnakeDoc/pinmap/internal/store/memory"
)

const seedYAML = `
- name: Old harbor
  lat: 43.3623
  lng: -1.7927
  zoom: 16
- name: Lighthouse
  lat: 43.3889
  lng: -1.7996
  zoom: 15
`

func TestImporter_SeedsEmptyStore(t *testing.T) {
	backend := memory.NewStore()
	svc := bookmarks.NewService(backend, logger.Nop())

	n, err := NewImporter(writeSeed(t, seedYAML), svc, logger.Nop()).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, n)

	list := svc.List(context.Background())
	require.Len(t, list, 2)
	require.Equal(t, "Old harbor", list[0].Name)
	require.NotEmpty(t, list[0].ID)
}

func TestImporter_SkipsNonEmptyStore(t *testing.T) {
	backend := memory.NewStore(domain.Bookmark{ID: "mine", Name: "mine"})
	svc := bookmarks.NewService(backend, logger.Nop())

	n, err := NewImporter(writeSeed(t, seedYAML), svc, logger.Nop()).Run(context.Background())
	require.NoError(t, err)
	require.Zero(t, n)

	list := svc.List(context.Background())
	require.Len(t, list, 1)
	require.Equal(t, "mine", list[0].ID)
}

type unreadable struct{ *memory.Store }

func (unreadable) Load(context.Context) ([]domain.Bookmark, error) {
	return nil, errors.New("timeout")
}

func TestImporter_UnreadableStoreIsLeftAlone(t *testing.T) {
	backend := unreadable{memory.NewStore()}
	svc := bookmarks.NewService(backend, logger.Nop())

	_, err := NewImporter(writeSeed(t, seedYAML), svc, logger.Nop()).Run(context.Background())
	require.Error(t, err)
	require.True(t, backend.LastSave().IsZero())
}

func TestImporter_MissingFile(t *testing.T) {
	svc := bookmarks.NewService(memory.NewStore(), logger.Nop())

	_, err := NewImporter("/nonexistent/seed.yaml", svc, logger.Nop()).Run(context.Background())
	require.Error(t, err)
}
