package handlers

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/pinmap/internal/domain"
	"github.com/MrSnakeDoc/pinmap/internal/httpserver/deps"
	"github.com/MrSnakeDoc/pinmap/internal/logger"
)

// ListBookmarks returns the whole collection. Storage faults yield [].
func ListBookmarks(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, d.Logger, http.StatusOK, d.Bookmarks.List(r.Context()))
	}
}

// CreateBookmark stores a new bookmark and answers with the stored record.
func CreateBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in domain.Bookmark
		if status, err := decodeJSON(r, &in); err != nil {
			writeError(w, d.Logger, status, err.Error())
			return
		}

		created, err := d.Bookmarks.Create(r.Context(), in)
		if err != nil {
			if domain.IsValidation(err) {
				writeError(w, d.Logger, http.StatusBadRequest, err.Error())
				return
			}
			writeError(w, d.Logger, http.StatusInternalServerError, "failed to save bookmark")
			return
		}

		writeJSON(w, d.Logger, http.StatusCreated, created)
	}
}

// UpdateBookmark applies the editable fields of the body to the bookmark.
// Any id, createdAt or updatedAt in the body is ignored.
func UpdateBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var patch domain.Patch
		if status, err := decodeJSON(r, &patch); err != nil {
			writeError(w, d.Logger, status, err.Error())
			return
		}

		updated, err := d.Bookmarks.Update(r.Context(), id, patch)
		switch {
		case err == nil:
			writeJSON(w, d.Logger, http.StatusOK, updated)
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, d.Logger, http.StatusNotFound, "Bookmark not found")
		case domain.IsValidation(err):
			writeError(w, d.Logger, http.StatusBadRequest, err.Error())
		default:
			writeError(w, d.Logger, http.StatusInternalServerError, "failed to update bookmark")
		}
	}
}

// DeleteBookmark removes one bookmark.
func DeleteBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		removed, err := d.Bookmarks.Delete(r.Context(), id)
		switch {
		case err != nil:
			writeJSON(w, d.Logger, http.StatusInternalServerError,
				successResponse{Success: false, Error: "failed to delete bookmark"})
		case !removed:
			writeJSON(w, d.Logger, http.StatusNotFound,
				successResponse{Success: false, Error: "Bookmark not found"})
		default:
			writeJSON(w, d.Logger, http.StatusOK, successResponse{Success: true})
		}
	}
}

// ClearBookmarks empties the collection.
func ClearBookmarks(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Bookmarks.Clear(r.Context()); err != nil {
			writeJSON(w, d.Logger, http.StatusInternalServerError,
				successResponse{Success: false, Error: "failed to clear bookmarks"})
			return
		}
		writeJSON(w, d.Logger, http.StatusOK, successResponse{Success: true})
	}
}

// SyncBookmarks replaces the whole collection with the body, verbatim.
func SyncBookmarks(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var all []domain.Bookmark
		if status, err := decodeJSON(r, &all); err != nil {
			writeError(w, d.Logger, status, err.Error())
			return
		}
		if all == nil {
			all = []domain.Bookmark{}
		}

		if err := d.Bookmarks.ReplaceAll(r.Context(), all); err != nil {
			writeJSON(w, d.Logger, http.StatusInternalServerError,
				successResponse{Success: false, Error: "failed to sync bookmarks"})
			return
		}

		d.Logger.Info("bookmarks synced", logger.Int("count", len(all)))
		writeJSON(w, d.Logger, http.StatusOK, successResponse{Success: true})
	}
}

// SearchBookmarks answers GET /api/bookmarks/search?lat=..&lng=..[&radius=..].
// radius is in kilometers and defaults to domain.DefaultSearchRadiusKm.
func SearchBookmarks(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		rawLat, rawLng := strings.TrimSpace(q.Get("lat")), strings.TrimSpace(q.Get("lng"))
		if rawLat == "" || rawLng == "" {
			writeError(w, d.Logger, http.StatusBadRequest, "Latitude and longitude are required")
			return
		}

		lat, okLat := parseNumber(rawLat)
		lng, okLng := parseNumber(rawLng)
		if !okLat || !okLng {
			writeError(w, d.Logger, http.StatusBadRequest, "Latitude and longitude must be numbers")
			return
		}

		radius := domain.DefaultSearchRadiusKm
		if raw := strings.TrimSpace(q.Get("radius")); raw != "" {
			v, ok := parseNumber(raw)
			if !ok {
				writeError(w, d.Logger, http.StatusBadRequest, "Radius must be a number")
				return
			}
			radius = v
		}

		writeJSON(w, d.Logger, http.StatusOK, d.Bookmarks.SearchByRadius(r.Context(), lat, lng, radius))
	}
}

// parseNumber parses a finite float.
func parseNumber(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
