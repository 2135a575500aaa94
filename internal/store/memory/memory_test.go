package memory

import (
	"context"
	"testing"

	"github.com/MrSnakeDoc/pinmap/internal/domain"
)

func TestNewStore(t *testing.T) {
	s := NewStore()
	got, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("NewStore() should start empty, got %v", len(got))
	}
	if !s.LastSave().IsZero() {
		t.Error("LastSave() should be zero before the first save")
	}
}

func TestSaveOverwrites(t *testing.T) {
	s := NewStore(domain.Bookmark{ID: "old", Name: "old"})
	ctx := context.Background()

	if err := s.Save(ctx, []domain.Bookmark{{ID: "a"}, {ID: "b"}}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, _ := s.Load(ctx)
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Errorf("Load() = %+v, want [a b]", got)
	}
	if s.LastSave().IsZero() {
		t.Error("LastSave() should be set after Save")
	}
}

func TestLoadReturnsCopy(t *testing.T) {
	s := NewStore(domain.Bookmark{ID: "a", Name: "original"})
	ctx := context.Background()

	got, _ := s.Load(ctx)
	got[0].Name = "changed"

	again, _ := s.Load(ctx)
	if again[0].Name != "original" {
		t.Errorf("Load() leaked internal state, got %q", again[0].Name)
	}
}
