package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/pinmap/internal/bookmarks"
	"github.com/MrSnakeDoc/pinmap/internal/domain"
	"github.com/MrSnakeDoc/pinmap/internal/httpserver/deps"
	"github.com/MrSnakeDoc/pinmap/internal/httpserver/mw"
	"github.com/MrSnakeDoc/pinmap/internal/logger"
	"github.com/MrSnakeDoc/pinmap/internal/metrics"
	"github.com/MrSnakeDoc/pinmap/internal/store"
	"github.com/MrSnakeDoc/pinmap/internal/store/memory"
)

func testDeps(backend store.Snapshotter) deps.Deps {
	log := logger.Nop()
	return deps.Deps{
		Logger:    log,
		StartTime: time.Now(),
		Version:   "test",
		Bookmarks: bookmarks.NewService(backend, log),
	}
}

func newTestServer(t *testing.T, d deps.Deps) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewRouter(d))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	var req *http.Request
	var err error
	if body == "" {
		req, err = http.NewRequest(method, url, nil)
	} else {
		req, err = http.NewRequest(method, url, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

type success struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type failure struct {
	Error string `json:"error"`
}

func TestBookmarks_CRUD(t *testing.T) {
	srv := newTestServer(t, testDeps(memory.NewStore()))

	resp := do(t, http.MethodGet, srv.URL+"/api/bookmarks", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Empty(t, decode[[]domain.Bookmark](t, resp))

	resp = do(t, http.MethodPost, srv.URL+"/api/bookmarks",
		`{"name":"Lighthouse","notes":"north cape","position":{"lat":0,"lng":0,"zoom":14}}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[domain.Bookmark](t, resp)
	require.True(t, strings.HasPrefix(created.ID, domain.IDPrefix))
	require.False(t, created.CreatedAt.IsZero())
	lat, lng, ok := created.Position.Coordinates()
	require.True(t, ok, "zero coordinates are real coordinates")
	require.Zero(t, lat)
	require.Zero(t, lng)

	resp = do(t, http.MethodPut, srv.URL+"/api/bookmarks/"+created.ID,
		`{"id":"hijack","name":"Lighthouse (old)","createdAt":"1999-01-01T00:00:00Z"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decode[domain.Bookmark](t, resp)
	require.Equal(t, created.ID, updated.ID)
	require.True(t, updated.CreatedAt.Equal(created.CreatedAt))
	require.NotNil(t, updated.UpdatedAt)
	require.Equal(t, "Lighthouse (old)", updated.Name)
	require.Equal(t, "north cape", updated.Notes)

	resp = do(t, http.MethodGet, srv.URL+"/api/bookmarks", "")
	list := decode[[]domain.Bookmark](t, resp)
	require.Len(t, list, 1)
	require.Equal(t, "Lighthouse (old)", list[0].Name)

	resp = do(t, http.MethodDelete, srv.URL+"/api/bookmarks/"+created.ID, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, decode[success](t, resp).Success)

	resp = do(t, http.MethodGet, srv.URL+"/api/bookmarks", "")
	require.Empty(t, decode[[]domain.Bookmark](t, resp))
}

func TestBookmarks_CreateRejectsInvalid(t *testing.T) {
	srv := newTestServer(t, testDeps(memory.NewStore()))

	cases := []struct {
		name string
		body string
	}{
		{"bad json", `{"name":`},
		{"empty body", ``},
		{"missing name", `{"notes":"x"}`},
		{"lat out of range", `{"name":"x","position":{"lat":91,"lng":0,"zoom":1}}`},
		{"missing lng", `{"name":"x","position":{"lat":1,"zoom":1}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/bookmarks", strings.NewReader(tc.body))
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
			require.NotEmpty(t, decode[failure](t, resp).Error)
		})
	}
}

func TestBookmarks_UpdateUnknown(t *testing.T) {
	srv := newTestServer(t, testDeps(memory.NewStore(domain.Bookmark{ID: "a", Name: "a"})))

	resp := do(t, http.MethodPut, srv.URL+"/api/bookmarks/missing", `{"name":"x"}`)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "Bookmark not found", decode[failure](t, resp).Error)
}

func TestBookmarks_DeleteUnknown(t *testing.T) {
	backend := memory.NewStore(domain.Bookmark{ID: "a", Name: "a"})
	srv := newTestServer(t, testDeps(backend))

	resp := do(t, http.MethodDelete, srv.URL+"/api/bookmarks/missing", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	body := decode[success](t, resp)
	require.False(t, body.Success)
	require.NotEmpty(t, body.Error)

	list, err := backend.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestBookmarks_ClearAndSync(t *testing.T) {
	backend := memory.NewStore(domain.Bookmark{ID: "a", Name: "a"})
	srv := newTestServer(t, testDeps(backend))

	resp := do(t, http.MethodDelete, srv.URL+"/api/bookmarks", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, decode[success](t, resp).Success)

	resp = do(t, http.MethodPost, srv.URL+"/api/bookmarks/sync",
		`[{"id":"x","name":"x","createdAt":"2024-01-01T00:00:00Z"},{"id":"y","name":""}]`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, decode[success](t, resp).Success)

	list, err := backend.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "x", list[0].ID)
	require.Equal(t, "y", list[1].ID)

	resp = do(t, http.MethodPost, srv.URL+"/api/bookmarks/sync", `{"not":"an array"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestBookmarks_Search(t *testing.T) {
	srv := newTestServer(t, testDeps(memory.NewStore(
		domain.Bookmark{ID: "origin", Name: "origin", Position: domain.NewPosition(0, 0, 10)},
		domain.Bookmark{ID: "east", Name: "east", Position: domain.NewPosition(0, 10, 10)},
	)))

	resp := do(t, http.MethodGet, srv.URL+"/api/bookmarks/search?lat=0&lng=0&radius=1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	near := decode[[]domain.Bookmark](t, resp)
	require.Len(t, near, 1)
	require.Equal(t, "origin", near[0].ID)

	resp = do(t, http.MethodGet, srv.URL+"/api/bookmarks/search?lat=0&lng=0&radius=1200", "")
	require.Len(t, decode[[]domain.Bookmark](t, resp), 2)

	resp = do(t, http.MethodGet, srv.URL+"/api/bookmarks/search?lat=0&lng=0", "")
	require.Len(t, decode[[]domain.Bookmark](t, resp), 1)
}

func TestBookmarks_SearchRejectsBadParams(t *testing.T) {
	srv := newTestServer(t, testDeps(memory.NewStore()))

	for _, query := range []string{
		"",
		"?lat=1",
		"?lng=1",
		"?lat=abc&lng=1",
		"?lat=1&lng=NaN",
		"?lat=1&lng=2&radius=far",
	} {
		t.Run(query, func(t *testing.T) {
			resp := do(t, http.MethodGet, srv.URL+"/api/bookmarks/search"+query, "")
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
			require.NotEmpty(t, decode[failure](t, resp).Error)
		})
	}
}

// brokenBackend fails every read and write.
type brokenBackend struct{}

func (brokenBackend) Name() string { return "broken" }
func (brokenBackend) Load(context.Context) ([]domain.Bookmark, error) {
	return nil, errors.New("io error")
}
func (brokenBackend) Save(context.Context, []domain.Bookmark) error { return errors.New("io error") }
func (brokenBackend) Ping(context.Context) error                    { return errors.New("io error") }

func TestBookmarks_StorageFaults(t *testing.T) {
	srv := newTestServer(t, testDeps(brokenBackend{}))

	resp := do(t, http.MethodGet, srv.URL+"/api/bookmarks", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Empty(t, decode[[]domain.Bookmark](t, resp))

	resp = do(t, http.MethodPost, srv.URL+"/api/bookmarks", `{"name":"x"}`)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	resp = do(t, http.MethodDelete, srv.URL+"/api/bookmarks", "")
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	require.False(t, decode[success](t, resp).Success)

	resp = do(t, http.MethodGet, srv.URL+"/api/bookmarks/search?lat=0&lng=0", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Empty(t, decode[[]domain.Bookmark](t, resp))

	resp = do(t, http.MethodGet, srv.URL+"/readyz", "")
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestGlobalHeaders(t *testing.T) {
	srv := newTestServer(t, testDeps(memory.NewStore()))

	resp := do(t, http.MethodGet, srv.URL+"/api/bookmarks", "")
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, resp.Header.Get("Content-Type"))

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/bookmarks/abc", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://map.local")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	pre, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = pre.Body.Close() }()
	assert.Equal(t, http.StatusNoContent, pre.StatusCode)
	assert.Contains(t, pre.Header.Get("Access-Control-Allow-Methods"), http.MethodPut)
}

func TestBodyLimit(t *testing.T) {
	d := testDeps(memory.NewStore())
	d.MaxBodyBytes = 64
	srv := newTestServer(t, d)

	resp := do(t, http.MethodPost, srv.URL+"/api/bookmarks",
		`{"name":"`+strings.Repeat("x", 200)+`"}`)
	require.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestRateLimit_MutationsOnly(t *testing.T) {
	d := testDeps(memory.NewStore())
	d.RateLimit = mw.RateLimitConfig{Burst: 1, RefillPerIPPerMin: 1}
	srv := newTestServer(t, d)

	resp := do(t, http.MethodPost, srv.URL+"/api/bookmarks", `{"name":"one"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = do(t, http.MethodPost, srv.URL+"/api/bookmarks", `{"name":"two"}`)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("Retry-After"))

	// Reads are never throttled.
	for i := 0; i < 3; i++ {
		resp = do(t, http.MethodGet, srv.URL+"/api/bookmarks", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
}

func TestOpsEndpoints(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.RegisterCollectors(reg)

	d := testDeps(memory.NewStore(domain.Bookmark{ID: "a", Name: "a"}))
	d.Gatherer = reg
	srv := newTestServer(t, d)

	resp := do(t, http.MethodGet, srv.URL+"/healthz", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	health := decode[map[string]any](t, resp)
	require.Equal(t, "ok", health["status"])
	require.Equal(t, "memory", health["backend"])

	resp = do(t, http.MethodGet, srv.URL+"/readyz", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/infra", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	infra := decode[struct {
		Mode       string `json:"mode"`
		Components map[string]struct {
			OK        bool `json:"ok"`
			Bookmarks *int `json:"bookmarks"`
		} `json:"components"`
	}](t, resp)
	require.Equal(t, "optimal", infra.Mode)
	require.True(t, infra.Components["storage"].OK)
	require.NotNil(t, infra.Components["bookmarks"].Bookmarks)
	require.Equal(t, 1, *infra.Components["bookmarks"].Bookmarks)

	resp = do(t, http.MethodGet, srv.URL+"/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	buf := new(strings.Builder)
	_, err := io.Copy(buf, resp.Body)
	require.NoError(t, err)
	require.Contains(t, buf.String(), "pinmap_bookmark_ops_total")
}

func TestOpsEndpoints_CIDRRestricted(t *testing.T) {
	d := testDeps(memory.NewStore())
	d.AllowedCIDRS = []string{"10.0.0.0/8"}
	srv := newTestServer(t, d)

	resp := do(t, http.MethodGet, srv.URL+"/readyz", "")
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Liveness and the API stay open.
	resp = do(t, http.MethodGet, srv.URL+"/healthz", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = do(t, http.MethodGet, srv.URL+"/api/bookmarks", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
