package seed

import (
	"fmt"
	"time"

	"github.com/MrSnakeDoc/pinmap/internal/domain"
)

// Mapper converts seed entries to bookmarks.
type Mapper struct {
	now   func() time.Time
	newID func(time.Time) string
}

// NewMapper creates a mapper stamping records with time.Now and domain.NewID.
func NewMapper() *Mapper {
	return &Mapper{now: time.Now, newID: domain.NewID}
}

// Map converts the file to bookmarks, in file order. Invalid entries are
// skipped and reported in skipped; an error is returned only when nothing
// valid is left.
func (m *Mapper) Map(file File) (bookmarks []domain.Bookmark, skipped []error, err error) {
	bookmarks = make([]domain.Bookmark, 0, len(file))
	seen := make(map[string]bool, len(file))
	now := m.now()

	for i, entry := range file {
		b := domain.Bookmark{
			ID:        entry.ID,
			Name:      entry.Name,
			Notes:     entry.Notes,
			CreatedAt: now,
		}
		if entry.Lat != nil || entry.Lng != nil {
			b.Position = &domain.Position{Lat: entry.Lat, Lng: entry.Lng, Zoom: entry.Zoom}
		}

		if verr := b.Validate(); verr != nil {
			skipped = append(skipped, fmt.Errorf("entry %d (%q): %w", i, entry.Name, verr))
			continue
		}

		if b.ID == "" {
			b.ID = m.newID(now)
		}
		if seen[b.ID] {
			skipped = append(skipped, fmt.Errorf("entry %d (%q): duplicate id %s", i, entry.Name, b.ID))
			continue
		}
		seen[b.ID] = true

		bookmarks = append(bookmarks, b)
	}

	if len(bookmarks) == 0 && len(file) > 0 {
		return nil, skipped, fmt.Errorf("no valid bookmarks found in seed file")
	}
	return bookmarks, skipped, nil
}
