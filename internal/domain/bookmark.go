package domain

import "time"

// DefaultBookmarkName is used when a bookmark is created from the map
// without a name.
const DefaultBookmarkName = "Unnamed Location"

// Bookmark is a named, annotated geographic point.
//
// The server-side collection is the source of truth; clients keep a
// best-effort mirror of it.
type Bookmark struct {
	// ─────────────────────────────
	// Identity (immutable)
	// ─────────────────────────────

	// ID is the opaque unique identifier.
	// Assigned at creation time when absent (see NewID).
	ID string `json:"id" bson:"id"`

	// ─────────────────────────────
	// Description
	// ─────────────────────────────

	// Name is the human-readable label. Required on create.
	Name string `json:"name" bson:"name"`

	// Notes is optional free text.
	Notes string `json:"notes,omitempty" bson:"notes,omitempty"`

	// Position is where the bookmark points to.
	// May be nil on records written through a bulk sync.
	Position *Position `json:"position,omitempty" bson:"position,omitempty"`

	// ─────────────────────────────
	// Metadata
	// ─────────────────────────────

	// CreatedAt is set once at creation and never changes.
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`

	// UpdatedAt is set on every successful update, nil until the first one.
	UpdatedAt *time.Time `json:"updatedAt,omitempty" bson:"updatedAt,omitempty"`
}

// Position is a map location with its zoom level.
// Lat and Lng are pointers so that a record with missing coordinates
// can be told apart from one sitting on the equator or prime meridian.
type Position struct {
	Lat  *float64 `json:"lat,omitempty" bson:"lat,omitempty"`
	Lng  *float64 `json:"lng,omitempty" bson:"lng,omitempty"`
	Zoom int      `json:"zoom" bson:"zoom"`
}

// NewPosition returns a fully populated position.
func NewPosition(lat, lng float64, zoom int) *Position {
	return &Position{Lat: &lat, Lng: &lng, Zoom: zoom}
}

// Coordinates returns lat/lng and whether both are present.
func (p *Position) Coordinates() (lat, lng float64, ok bool) {
	if p == nil || p.Lat == nil || p.Lng == nil {
		return 0, 0, false
	}
	return *p.Lat, *p.Lng, true
}

// Patch holds the fields of a partial update. Nil fields are left untouched.
// Identity and timestamps are not part of a patch: they can't be changed.
type Patch struct {
	Name     *string   `json:"name,omitempty"`
	Notes    *string   `json:"notes,omitempty"`
	Position *Position `json:"position,omitempty"`
}

// Merge returns a copy of b with the patch applied. The original ID and
// CreatedAt are kept and UpdatedAt is set to now.
func (b Bookmark) Merge(p Patch, now time.Time) Bookmark {
	merged := b.Clone()
	if p.Name != nil {
		merged.Name = *p.Name
	}
	if p.Notes != nil {
		merged.Notes = *p.Notes
	}
	if p.Position != nil {
		merged.Position = p.Position.clone()
	}

	merged.ID = b.ID
	merged.CreatedAt = b.CreatedAt
	merged.UpdatedAt = &now
	return merged
}

// Clone returns a deep copy of the bookmark.
func (b Bookmark) Clone() Bookmark {
	c := b
	c.Position = b.Position.clone()
	if b.UpdatedAt != nil {
		t := *b.UpdatedAt
		c.UpdatedAt = &t
	}
	return c
}

func (p *Position) clone() *Position {
	if p == nil {
		return nil
	}
	c := &Position{Zoom: p.Zoom}
	if p.Lat != nil {
		lat := *p.Lat
		c.Lat = &lat
	}
	if p.Lng != nil {
		lng := *p.Lng
		c.Lng = &lng
	}
	return c
}

// CloneAll deep-copies a collection. A nil input yields an empty, non-nil slice
// so it always encodes as a JSON array.
func CloneAll(bookmarks []Bookmark) []Bookmark {
	out := make([]Bookmark, len(bookmarks))
	for i := range bookmarks {
		out[i] = bookmarks[i].Clone()
	}
	return out
}

// IndexOf returns the position of the bookmark with the given id, or -1.
func IndexOf(bookmarks []Bookmark, id string) int {
	for i := range bookmarks {
		if bookmarks[i].ID == id {
			return i
		}
	}
	return -1
}

// MapView is the map state a bookmark can be created from.
type MapView struct {
	Lat  float64
	Lng  float64
	Zoom int
}

// FromMapView builds an unsaved bookmark pointing at the map center.
func FromMapView(view MapView, name, notes string) Bookmark {
	if name == "" {
		name = DefaultBookmarkName
	}
	return Bookmark{
		Name:     name,
		Notes:    notes,
		Position: NewPosition(view.Lat, view.Lng, view.Zoom),
	}
}
