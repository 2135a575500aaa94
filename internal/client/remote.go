package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/MrSnakeDoc/pinmap/internal/domain"
	"github.com/MrSnakeDoc/pinmap/internal/utils"
)

// ErrUpstreamUnavailable marks every failure to reach the bookmark server,
// whether the request never completed or the server answered with an error.
var ErrUpstreamUnavailable = errors.New("bookmark server unavailable")

// Remote is the server side of the bookmark collection.
type Remote interface {
	List(ctx context.Context) ([]domain.Bookmark, error)
	Create(ctx context.Context, b domain.Bookmark) (domain.Bookmark, error)
	Update(ctx context.Context, id string, patch domain.Patch) (domain.Bookmark, error)
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
	Sync(ctx context.Context, bookmarks []domain.Bookmark) error
	Search(ctx context.Context, lat, lng, radiusKm float64) ([]domain.Bookmark, error)
}

// StatusError is returned when the server answers with a non-2xx status.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %d %s: %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode), e.Message)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
}

func (e *StatusError) Unwrap() error { return ErrUpstreamUnavailable }

// DefaultTimeout bounds a single request to the server.
const DefaultTimeout = 10 * time.Second

// maxErrorBody caps how much of an error response is read for the message.
const maxErrorBody = 4 << 10

// HTTPRemote talks to the bookmark server over its JSON API.
type HTTPRemote struct {
	baseURL string
	http    *http.Client
}

// NewHTTPRemote creates a remote for the server at baseURL (ex: http://localhost:8080).
// A nil client means a default one with DefaultTimeout.
func NewHTTPRemote(baseURL string, client *http.Client) *HTTPRemote {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	return &HTTPRemote{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    client,
	}
}

func (r *HTTPRemote) List(ctx context.Context) ([]domain.Bookmark, error) {
	var out []domain.Bookmark
	if err := r.do(ctx, http.MethodGet, "/api/bookmarks", nil, nil, &out); err != nil {
		return nil, err
	}
	return nonNil(out), nil
}

func (r *HTTPRemote) Create(ctx context.Context, b domain.Bookmark) (domain.Bookmark, error) {
	var out domain.Bookmark
	if err := r.do(ctx, http.MethodPost, "/api/bookmarks", nil, b, &out); err != nil {
		return domain.Bookmark{}, err
	}
	return out, nil
}

// Update sends only the patched fields. A field set to its zero value
// (e.g. empty notes) is still sent and clears the stored value.
func (r *HTTPRemote) Update(ctx context.Context, id string, patch domain.Patch) (domain.Bookmark, error) {
	var out domain.Bookmark
	if err := r.do(ctx, http.MethodPut, "/api/bookmarks/"+url.PathEscape(id), nil, patch, &out); err != nil {
		return domain.Bookmark{}, err
	}
	return out, nil
}

func (r *HTTPRemote) Delete(ctx context.Context, id string) error {
	return r.do(ctx, http.MethodDelete, "/api/bookmarks/"+url.PathEscape(id), nil, nil, nil)
}

func (r *HTTPRemote) Clear(ctx context.Context) error {
	return r.do(ctx, http.MethodDelete, "/api/bookmarks", nil, nil, nil)
}

func (r *HTTPRemote) Sync(ctx context.Context, bookmarks []domain.Bookmark) error {
	return r.do(ctx, http.MethodPost, "/api/bookmarks/sync", nil, nonNil(bookmarks), nil)
}

func (r *HTTPRemote) Search(ctx context.Context, lat, lng, radiusKm float64) ([]domain.Bookmark, error) {
	q := url.Values{}
	q.Set("lat", formatFloat(lat))
	q.Set("lng", formatFloat(lng))
	q.Set("radius", formatFloat(radiusKm))

	var out []domain.Bookmark
	if err := r.do(ctx, http.MethodGet, "/api/bookmarks/search", q, nil, &out); err != nil {
		return nil, err
	}
	return nonNil(out), nil
}

func (r *HTTPRemote) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	target := r.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrUpstreamUnavailable, method, path, err)
	}
	defer utils.Close(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp.Body),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s %s: invalid response: %w", ErrUpstreamUnavailable, method, path, err)
	}
	return nil
}

// errorMessage extracts the "error" field of a JSON error body.
func errorMessage(body io.Reader) string {
	var payload struct {
		Error string `json:"error"`
	}
	data, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil {
		return ""
	}
	if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(data))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func nonNil(bookmarks []domain.Bookmark) []domain.Bookmark {
	if bookmarks == nil {
		return []domain.Bookmark{}
	}
	return bookmarks
}
