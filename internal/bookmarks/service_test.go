package bookmarks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/pinmap/internal/domain"
	"github.com/MrSnakeDoc/pinmap/internal/logger"
	"github.com/MrSnakeDoc/pinmap/internal/store"
	filestore "github.com/MrSnakeDoc/pinmap/internal/store/file"
	"github.com/MrSnakeDoc/pinmap/internal/store/memory"
)

// fakeClock hands out increasing timestamps, one second apart.
type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestService(t *testing.T, backend store.Snapshotter) (*Service, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	seq := 0
	svc := NewService(backend, logger.Nop(),
		WithClock(clock.Now),
		WithIDGenerator(func(time.Time) string {
			seq++
			return fmt.Sprintf("bm_test_%d", seq)
		}),
	)
	return svc, clock
}

func strPtr(s string) *string { return &s }

// brokenBackend fails every call with the configured errors.
type brokenBackend struct {
	loadErr error
	saveErr error
	saves   int
	data    []domain.Bookmark
}

func (b *brokenBackend) Name() string { return "broken" }

func (b *brokenBackend) Load(context.Context) ([]domain.Bookmark, error) {
	if b.loadErr != nil {
		return nil, b.loadErr
	}
	return domain.CloneAll(b.data), nil
}

func (b *brokenBackend) Save(_ context.Context, bookmarks []domain.Bookmark) error {
	b.saves++
	if b.saveErr != nil {
		return b.saveErr
	}
	b.data = domain.CloneAll(bookmarks)
	return nil
}

func TestCreate_ThenList(t *testing.T) {
	svc, _ := newTestService(t, memory.NewStore())
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.Bookmark{Name: "Cafe", Position: domain.NewPosition(43.26, -2.93, 15)})
	require.NoError(t, err)
	require.Equal(t, "bm_test_1", created.ID)
	require.False(t, created.CreatedAt.IsZero())
	require.Nil(t, created.UpdatedAt)

	list := svc.List(ctx)
	require.Len(t, list, 1)
	require.Equal(t, created.ID, list[0].ID)
	require.True(t, list[0].CreatedAt.Equal(created.CreatedAt))
}

func TestCreate_KeepsSuppliedID(t *testing.T) {
	svc, _ := newTestService(t, memory.NewStore())

	created, err := svc.Create(context.Background(), domain.Bookmark{ID: "mine", Name: "x"})
	require.NoError(t, err)
	require.Equal(t, "mine", created.ID)
}

func TestCreate_AppendsInInsertionOrder(t *testing.T) {
	svc, _ := newTestService(t, memory.NewStore())
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c"} {
		_, err := svc.Create(ctx, domain.Bookmark{Name: name})
		require.NoError(t, err)
	}

	list := svc.List(ctx)
	require.Len(t, list, 3)
	assert.Equal(t, "a", list[0].Name)
	assert.Equal(t, "b", list[1].Name)
	assert.Equal(t, "c", list[2].Name)
}

func TestCreate_Validation(t *testing.T) {
	backend := memory.NewStore()
	svc, _ := newTestService(t, backend)

	_, err := svc.Create(context.Background(), domain.Bookmark{Name: ""})
	require.True(t, domain.IsValidation(err))

	_, err = svc.Create(context.Background(), domain.Bookmark{Name: "x", Position: domain.NewPosition(100, 0, 1)})
	require.True(t, domain.IsValidation(err))

	require.Empty(t, svc.List(context.Background()))
}

func TestUpdate_PreservesIdentity(t *testing.T) {
	svc, _ := newTestService(t, memory.NewStore())
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.Bookmark{Name: "before", Notes: "keep me"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, created.ID, domain.Patch{Name: strPtr("after")})
	require.NoError(t, err)
	require.Equal(t, created.ID, updated.ID)
	require.True(t, updated.CreatedAt.Equal(created.CreatedAt))
	require.NotNil(t, updated.UpdatedAt)
	require.True(t, updated.UpdatedAt.After(created.CreatedAt))
	require.Equal(t, "after", updated.Name)
	require.Equal(t, "keep me", updated.Notes)

	again, err := svc.Update(ctx, created.ID, domain.Patch{Notes: strPtr("changed")})
	require.NoError(t, err)
	require.True(t, again.CreatedAt.Equal(created.CreatedAt), "createdAt must be stable across updates")

	list := svc.List(ctx)
	require.Len(t, list, 1)
	require.Equal(t, "changed", list[0].Notes)
	require.True(t, list[0].CreatedAt.Equal(created.CreatedAt))
}

func TestUpdate_NotFound(t *testing.T) {
	backend := &brokenBackend{data: []domain.Bookmark{{ID: "a", Name: "a"}}}
	svc, _ := newTestService(t, backend)

	_, err := svc.Update(context.Background(), "missing", domain.Patch{Name: strPtr("x")})
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.Zero(t, backend.saves, "collection must not be rewritten")
}

func TestUpdate_RejectsEmptyName(t *testing.T) {
	svc, _ := newTestService(t, memory.NewStore(domain.Bookmark{ID: "a", Name: "a"}))

	_, err := svc.Update(context.Background(), "a", domain.Patch{Name: strPtr(" ")})
	require.True(t, domain.IsValidation(err))
}

func TestDelete(t *testing.T) {
	svc, _ := newTestService(t, memory.NewStore(
		domain.Bookmark{ID: "a", Name: "a"},
		domain.Bookmark{ID: "b", Name: "b"},
	))
	ctx := context.Background()

	removed, err := svc.Delete(ctx, "a")
	require.NoError(t, err)
	require.True(t, removed)

	list := svc.List(ctx)
	require.Len(t, list, 1)
	require.Equal(t, "b", list[0].ID)
}

func TestDelete_UnknownLeavesCollectionUnchanged(t *testing.T) {
	backend := &brokenBackend{data: []domain.Bookmark{{ID: "a", Name: "a"}, {ID: "b", Name: "b"}}}
	svc, _ := newTestService(t, backend)
	ctx := context.Background()

	before := svc.List(ctx)
	removed, err := svc.Delete(ctx, "nope")
	require.NoError(t, err)
	require.False(t, removed)
	require.Equal(t, before, svc.List(ctx))
	require.Zero(t, backend.saves)
}

func TestClear(t *testing.T) {
	svc, _ := newTestService(t, memory.NewStore(domain.Bookmark{ID: "a", Name: "a"}))
	ctx := context.Background()

	require.NoError(t, svc.Clear(ctx))
	list := svc.List(ctx)
	require.NotNil(t, list)
	require.Empty(t, list)
}

func TestReplaceAll_RoundTrip(t *testing.T) {
	svc, _ := newTestService(t, memory.NewStore(domain.Bookmark{ID: "old", Name: "old"}))
	ctx := context.Background()

	created := time.Date(2023, 3, 3, 3, 3, 3, 0, time.UTC)
	x := []domain.Bookmark{
		{ID: "z", Name: "last", CreatedAt: created},
		{ID: "y", Name: "", Position: &domain.Position{}}, // not validated
		{ID: "z", Name: "duplicate id", CreatedAt: created},
	}
	require.NoError(t, svc.ReplaceAll(ctx, x))
	require.Equal(t, x, svc.List(ctx))
}

func TestSearchByRadius(t *testing.T) {
	svc, _ := newTestService(t, memory.NewStore(
		domain.Bookmark{ID: "origin", Name: "origin", Position: domain.NewPosition(0, 0, 10)},
		domain.Bookmark{ID: "east", Name: "east", Position: domain.NewPosition(0, 10, 10)},
		domain.Bookmark{ID: "nowhere", Name: "nowhere"},
	))
	ctx := context.Background()

	near := svc.SearchByRadius(ctx, 0, 0, 1.0)
	require.Len(t, near, 1)
	require.Equal(t, "origin", near[0].ID)

	far := svc.SearchByRadius(ctx, 0, 0, 1200)
	require.Len(t, far, 2)
	require.Equal(t, "origin", far[0].ID)
	require.Equal(t, "east", far[1].ID)
}

func TestSearchByRadius_DefaultRadius(t *testing.T) {
	// ~0.33 km north of the origin, then ~1.1 km north.
	svc, _ := newTestService(t, memory.NewStore(
		domain.Bookmark{ID: "close", Name: "close", Position: domain.NewPosition(0.003, 0, 10)},
		domain.Bookmark{ID: "too-far", Name: "too-far", Position: domain.NewPosition(0.01, 0, 10)},
	))

	got := svc.SearchByRadius(context.Background(), 0, 0, 0)
	require.Len(t, got, 1)
	require.Equal(t, "close", got[0].ID)
}

func TestList_StorageFaultYieldsEmpty(t *testing.T) {
	svc, _ := newTestService(t, &brokenBackend{loadErr: errors.New("disk on fire")})

	list := svc.List(context.Background())
	require.NotNil(t, list)
	require.Empty(t, list)
}

func TestList_MalformedFileYieldsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bookmarks.json")
	require.NoError(t, os.WriteFile(path, []byte("[{broken"), 0o644))
	svc, _ := newTestService(t, filestore.NewStore(path))
	ctx := context.Background()

	require.Empty(t, svc.List(ctx))

	// The collection stays writable.
	_, err := svc.Create(ctx, domain.Bookmark{Name: "fresh"})
	require.NoError(t, err)
	require.Len(t, svc.List(ctx), 1)
}

func TestMutations_ReadFaultDoesNotOverwrite(t *testing.T) {
	backend := &brokenBackend{loadErr: errors.New("connection refused")}
	svc, _ := newTestService(t, backend)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.Bookmark{Name: "x"})
	require.ErrorIs(t, err, ErrStorage)

	_, err = svc.Delete(ctx, "x")
	require.ErrorIs(t, err, ErrStorage)

	require.Zero(t, backend.saves)
}

func TestMutations_SaveFault(t *testing.T) {
	backend := &brokenBackend{saveErr: errors.New("read-only filesystem")}
	svc, _ := newTestService(t, backend)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.Bookmark{Name: "x"})
	require.ErrorIs(t, err, ErrStorage)
	require.ErrorIs(t, svc.Clear(ctx), ErrStorage)
	require.ErrorIs(t, svc.ReplaceAll(ctx, nil), ErrStorage)
}

// Two services sharing one backend interleave their read-modify-write
// cycles: the second write is based on a stale read and drops the first.
func TestLostUpdate_LastWriterWins(t *testing.T) {
	backend := memory.NewStore()
	ctx := context.Background()

	var first *Service
	gate := &gatedBackend{Snapshotter: backend}
	first, _ = newTestService(t, gate)
	second, _ := newTestService(t, backend)

	gate.beforeSave = func() {
		_, err := second.Create(ctx, domain.Bookmark{ID: "from-second", Name: "second"})
		require.NoError(t, err)
	}

	_, err := first.Create(ctx, domain.Bookmark{ID: "from-first", Name: "first"})
	require.NoError(t, err)

	list := first.List(ctx)
	require.Len(t, list, 1)
	require.Equal(t, "from-first", list[0].ID)
}

// gatedBackend runs a hook between a service's read and its write.
type gatedBackend struct {
	store.Snapshotter
	beforeSave func()
}

func (g *gatedBackend) Save(ctx context.Context, bookmarks []domain.Bookmark) error {
	if g.beforeSave != nil {
		hook := g.beforeSave
		g.beforeSave = nil
		hook()
	}
	return g.Snapshotter.Save(ctx, bookmarks)
}
