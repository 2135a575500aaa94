package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/MrSnakeDoc/pinmap/internal/httpserver/mw"
	"github.com/MrSnakeDoc/pinmap/internal/logger"
)

type errorResponse struct {
	Error string `json:"error"`
}

// successResponse is the body of the bulk and delete operations.
type successResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, log logger.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug("failed to write response", logger.Error(err))
	}
}

func writeError(w http.ResponseWriter, log logger.Logger, status int, msg string) {
	writeJSON(w, log, status, errorResponse{Error: msg})
}

var errEmptyBody = errors.New("request body is empty")

// decodeJSON reads a single JSON value from the request body into v.
// It returns the HTTP status to answer with when the body is rejected.
func decodeJSON(r *http.Request, v any) (int, error) {
	if r.Body == nil {
		return http.StatusBadRequest, errEmptyBody
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		switch {
		case mw.IsBodyTooLarge(err):
			return http.StatusRequestEntityTooLarge, errors.New("request body too large")
		case errors.Is(err, io.EOF):
			return http.StatusBadRequest, errEmptyBody
		default:
			return http.StatusBadRequest, fmt.Errorf("invalid JSON body: %w", err)
		}
	}
	return http.StatusOK, nil
}
