package domain

import (
	"math"
	"strings"
)

const (
	MinZoom = 0
	MaxZoom = 22
)

// Validate checks the fields a newly created bookmark must satisfy.
func (b Bookmark) Validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	return b.Position.Validate()
}

// Validate checks coordinate and zoom ranges. A nil position is valid;
// a non-nil one must carry both coordinates.
func (p *Position) Validate() error {
	if p == nil {
		return nil
	}
	lat, lng, ok := p.Coordinates()
	if !ok {
		return &ValidationError{Field: "position", Reason: "lat and lng are required"}
	}
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return &ValidationError{Field: "position.lat", Reason: "must be within [-90, 90]"}
	}
	if math.IsNaN(lng) || lng < -180 || lng > 180 {
		return &ValidationError{Field: "position.lng", Reason: "must be within [-180, 180]"}
	}
	if p.Zoom < MinZoom || p.Zoom > MaxZoom {
		return &ValidationError{Field: "position.zoom", Reason: "must be within [0, 22]"}
	}
	return nil
}

// Validate checks the fields a patch would change.
func (p Patch) Validate() error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	return p.Position.Validate()
}
