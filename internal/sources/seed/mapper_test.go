package seed

import (
	"fmt"
	"testing"
	"time"
)

func fixedMapper() *Mapper {
	now := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	n := 0
	return &Mapper{
		now: func() time.Time { return now },
		newID: func(time.Time) string {
			n++
			return fmt.Sprintf("bm_seed_%d", n)
		},
	}
}

func f(v float64) *float64 { return &v }

func TestMapperMap(t *testing.T) {
	tests := []struct {
		name        string
		file        File
		wantIDs     []string
		wantSkipped int
		wantErr     bool
	}{
		{
			name:    "generates missing ids",
			file:    File{{Name: "a", Lat: f(1), Lng: f(2), Zoom: 10}, {ID: "keep", Name: "b"}},
			wantIDs: []string{"bm_seed_1", "keep"},
		},
		{
			name:        "skips invalid entries",
			file:        File{{Name: ""}, {Name: "half", Lat: f(1)}, {Name: "ok"}},
			wantIDs:     []string{"bm_seed_1"},
			wantSkipped: 2,
		},
		{
			name:        "skips duplicate ids",
			file:        File{{ID: "x", Name: "first"}, {ID: "x", Name: "second"}},
			wantIDs:     []string{"x"},
			wantSkipped: 1,
		},
		{
			name:        "nothing valid",
			file:        File{{Name: " "}},
			wantSkipped: 1,
			wantErr:     true,
		},
		{
			name:    "empty file",
			file:    File{},
			wantIDs: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, skipped, err := fixedMapper().Map(tt.file)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Map() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(skipped) != tt.wantSkipped {
				t.Errorf("Map() skipped %d, want %d (%v)", len(skipped), tt.wantSkipped, skipped)
			}
			if tt.wantErr {
				return
			}
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("Map() returned %d bookmarks, want %d", len(got), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if got[i].ID != id {
					t.Errorf("bookmark[%d].ID = %q, want %q", i, got[i].ID, id)
				}
				if got[i].CreatedAt.IsZero() {
					t.Errorf("bookmark[%d].CreatedAt not set", i)
				}
			}
		})
	}
}

func TestMapperKeepsZeroCoordinates(t *testing.T) {
	got, _, err := fixedMapper().Map(File{{Name: "null island", Lat: f(0), Lng: f(0), Zoom: 2}})
	if err != nil {
		t.Fatalf("Map() error = %v", err)
	}
	if _, _, ok := got[0].Position.Coordinates(); !ok {
		t.Error("zero coordinates must be kept")
	}
}
