package domain

import "github.com/MrSnakeDoc/pinmap/internal/geo"

// DefaultSearchRadiusKm is used when a search doesn't specify a radius.
const DefaultSearchRadiusKm = 0.5

// NormalizeRadius replaces a missing or non-positive radius with the default.
func NormalizeRadius(radiusKm float64) float64 {
	if radiusKm <= 0 {
		return DefaultSearchRadiusKm
	}
	return radiusKm
}

// WithinRadius reports whether b has coordinates and lies at most radiusKm
// away from (lat, lng). Bookmarks without coordinates never match.
func WithinRadius(b Bookmark, lat, lng, radiusKm float64) bool {
	bLat, bLng, ok := b.Position.Coordinates()
	if !ok {
		return false
	}
	return geo.Distance(lat, lng, bLat, bLng) <= radiusKm
}

// FilterByRadius returns the bookmarks within radiusKm of (lat, lng),
// keeping collection order.
func FilterByRadius(bookmarks []Bookmark, lat, lng, radiusKm float64) []Bookmark {
	results := make([]Bookmark, 0)
	for _, b := range bookmarks {
		if WithinRadius(b, lat, lng, radiusKm) {
			results = append(results, b.Clone())
		}
	}
	return results
}
