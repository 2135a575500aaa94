package deps

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/MrSnakeDoc/pinmap/internal/bookmarks"
	"github.com/MrSnakeDoc/pinmap/internal/httpserver/mw"
	"github.com/MrSnakeDoc/pinmap/internal/logger"
)

type Deps struct {
	Logger         logger.Logger
	StartTime      time.Time
	Version        string
	Commit         string
	BuildDate      string
	GoVersion      string
	TimeNow        func() time.Time    // for testing, defaults to time.Now
	AllowedHosts   []string            // Host headers allowed to access the ops endpoints
	AllowedCIDRS   []string            // IPs allowed to access readyz/infra/metrics endpoints
	TrustProxy     bool                // true if running behind a trusted reverse proxy (e.g., cloudflared)
	Bookmarks      *bookmarks.Service  // Bookmark collection (source of truth)
	Gatherer       prometheus.Gatherer // Metrics exposed on /metrics (nil = default registry)
	MaxBodyBytes   int64               // Max accepted JSON body size (0 = unlimited)
	RequestTimeout time.Duration       // Per-request timeout (0 = none)
	ReadyTimeout   time.Duration       // Timeout for the storage ping in readyz/infra
	RateLimit      mw.RateLimitConfig  // Token bucket for mutating bookmark routes (Burst 0 = disabled)
}

// Now returns d.TimeNow() or time.Now().
func (d Deps) Now() time.Time {
	if d.TimeNow != nil {
		return d.TimeNow()
	}
	return time.Now()
}
