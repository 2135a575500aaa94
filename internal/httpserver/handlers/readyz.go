package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/pinmap/internal/httpserver/deps"
	"github.com/MrSnakeDoc/pinmap/internal/logger"
	"github.com/MrSnakeDoc/pinmap/internal/store"
)

const defaultReadyTimeout = 2 * time.Second

type readyzResponse struct {
	Ready bool   `json:"ready"`
	Error string `json:"error,omitempty"`
}

// Readyz reports ready once the storage backend answers a ping.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := pingStorage(r.Context(), d); err != nil {
			d.Logger.Warn("readiness check failed", logger.Error(err))
			writeJSON(w, d.Logger, http.StatusServiceUnavailable, readyzResponse{Ready: false, Error: "storage unreachable"})
			return
		}
		writeJSON(w, d.Logger, http.StatusOK, readyzResponse{Ready: true})
	}
}

func pingStorage(ctx context.Context, d deps.Deps) error {
	timeout := d.ReadyTimeout
	if timeout <= 0 {
		timeout = defaultReadyTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return store.Ping(ctx, d.Bookmarks.Backend())
}
