package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/pinmap/internal/httpserver/deps"
)

type componentStatus struct {
	OK        bool   `json:"ok"`
	Backend   string `json:"backend,omitempty"`
	Bookmarks *int   `json:"bookmarks,omitempty"`
	Mode      string `json:"mode,omitempty"`
	Impact    string `json:"impact,omitempty"`
	Error     string `json:"error,omitempty"`
}

type infraResponse struct {
	Mode       string                     `json:"mode"`
	Components map[string]componentStatus `json:"components"`
}

// Infra reports the state of the storage backend and of the collection.
func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storage := checkStorage(r, d)

		components := map[string]componentStatus{
			"storage": storage,
		}
		if storage.OK {
			count := len(d.Bookmarks.List(r.Context()))
			components["bookmarks"] = componentStatus{OK: true, Bookmarks: &count}
		}

		writeJSON(w, d.Logger, http.StatusOK, infraResponse{
			Mode:       determineMode(components),
			Components: components,
		})
	}
}

func determineMode(components map[string]componentStatus) string {
	if storage, exists := components["storage"]; exists && !storage.OK {
		return "degraded" // reads serve [], writes fail with 500
	}
	return "optimal"
}

func checkStorage(r *http.Request, d deps.Deps) componentStatus {
	backend := d.Bookmarks.Backend().Name()
	if err := pingStorage(r.Context(), d); err != nil {
		return componentStatus{
			OK:      false,
			Backend: backend,
			Mode:    "degraded",
			Impact:  "reads-empty-writes-failing",
			Error:   err.Error(),
		}
	}
	return componentStatus{
		OK:      true,
		Backend: backend,
		Mode:    "optimal",
	}
}
