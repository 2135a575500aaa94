// pinmapctl drives a bookmark client cache from the command line.
//
//	pinmapctl [-url URL] [-dir DIR] <command> [flags]
//
// Commands: list, add, rm, update, search, clear, version.
// The local mirror lives in DIR/map_bookmarks.json, so commands keep
// working (against the mirror) when the server is down.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/MrSnakeDoc/pinmap/internal/client"
	"github.com/MrSnakeDoc/pinmap/internal/domain"
	"github.com/MrSnakeDoc/pinmap/internal/logger"
	"github.com/MrSnakeDoc/pinmap/internal/version"
)

const usage = `usage: pinmapctl [global flags] <command> [flags]

commands:
  list                                   print every bookmark
  add    -name N [-notes T] -lat X -lng Y [-zoom Z]
  rm     <id>
  update <id> [-name N] [-notes T] [-lat X -lng Y -zoom Z]
  search -lat X -lng Y [-radius KM]
  clear                                  delete every bookmark
  version
`

var errUsage = errors.New("invalid usage")

const defaultZoom = 15

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet("pinmapctl", flag.ContinueOnError)
	global.SetOutput(stderr)
	global.Usage = func() { _, _ = fmt.Fprint(stderr, usage) }

	serverURL := global.String("url", envOr("PINMAP_URL", "http://localhost:8080"), "bookmark server base URL")
	dir := global.String("dir", envOr("PINMAP_CLIENT_DIR", defaultDir()), "directory of the local mirror")
	timeout := global.Duration("timeout", 10*time.Second, "per request timeout")
	logLevel := global.String("log-level", envOr("PINMAP_LOG_LEVEL", "warn"), "debug | info | warn | error")

	if err := global.Parse(args); err != nil {
		return 2
	}
	if global.NArg() == 0 {
		global.Usage()
		return 2
	}

	log := logger.New(*logLevel, true)
	defer func() { _ = log.Sync() }()

	cache := client.New(
		client.NewHTTPRemote(*serverURL, &http.Client{Timeout: *timeout}),
		client.NewFileLocalStore(*dir),
		log,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 4*(*timeout))
	defer cancel()

	out, err := dispatch(ctx, cache, global.Arg(0), global.Args()[1:], stderr)
	if err != nil {
		if errors.Is(err, errUsage) {
			_, _ = fmt.Fprint(stderr, usage)
			return 2
		}
		_, _ = fmt.Fprintf(stderr, "pinmapctl: %v\n", err)
		return 1
	}

	if out != nil {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			_, _ = fmt.Fprintf(stderr, "pinmapctl: %v\n", err)
			return 1
		}
	}
	return 0
}

func dispatch(ctx context.Context, cache *client.Cache, cmd string, args []string, stderr io.Writer) (any, error) {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(stderr)

	switch cmd {
	case "version":
		return map[string]string{
			"version":    version.Version,
			"commit":     version.Commit,
			"build_date": version.BuildDate,
			"go_version": version.GoVersion,
		}, nil

	case "list":
		return cache.Init(ctx), nil

	case "add":
		name := fs.String("name", "", "bookmark name")
		notes := fs.String("notes", "", "free text notes")
		lat := fs.Float64("lat", 0, "latitude")
		lng := fs.Float64("lng", 0, "longitude")
		zoom := fs.Int("zoom", defaultZoom, "map zoom level")
		if err := fs.Parse(args); err != nil {
			return nil, errUsage
		}
		if !isSet(fs, "lat") || !isSet(fs, "lng") {
			return nil, fmt.Errorf("add: -lat and -lng are required")
		}

		b := domain.FromMapView(domain.MapView{Lat: *lat, Lng: *lng, Zoom: *zoom}, *name, *notes)
		if err := b.Validate(); err != nil {
			return nil, fmt.Errorf("add: %w", err)
		}
		cache.Init(ctx)
		return cache.Add(ctx, b), nil

	case "rm":
		if len(args) != 1 {
			return nil, errUsage
		}
		cache.Init(ctx)
		if !cache.Remove(ctx, args[0]) {
			return nil, fmt.Errorf("rm: %w: %s", domain.ErrNotFound, args[0])
		}
		return map[string]any{"success": true, "id": args[0]}, nil

	case "update":
		if len(args) < 1 {
			return nil, errUsage
		}
		id := args[0]
		name := fs.String("name", "", "new name")
		notes := fs.String("notes", "", "new notes")
		lat := fs.Float64("lat", 0, "new latitude")
		lng := fs.Float64("lng", 0, "new longitude")
		zoom := fs.Int("zoom", defaultZoom, "new zoom level (keeps the stored one when unset)")
		if err := fs.Parse(args[1:]); err != nil {
			return nil, errUsage
		}
		if isSet(fs, "lat") != isSet(fs, "lng") {
			return nil, fmt.Errorf("update: -lat and -lng go together")
		}

		cache.Init(ctx)
		current, ok := cache.FindByID(id)
		if !ok {
			return nil, fmt.Errorf("update: %w: %s", domain.ErrNotFound, id)
		}

		var patch domain.Patch
		if isSet(fs, "name") {
			patch.Name = name
		}
		if isSet(fs, "notes") {
			patch.Notes = notes
		}
		position, err := movePosition(current.Position, fs, *lat, *lng, *zoom)
		if err != nil {
			return nil, fmt.Errorf("update: %w", err)
		}
		patch.Position = position
		if err := patch.Validate(); err != nil {
			return nil, fmt.Errorf("update: %w", err)
		}

		updated, ok := cache.Update(ctx, id, patch)
		if !ok {
			return nil, fmt.Errorf("update: %w: %s", domain.ErrNotFound, id)
		}
		return updated, nil

	case "search":
		lat := fs.Float64("lat", 0, "latitude")
		lng := fs.Float64("lng", 0, "longitude")
		radius := fs.Float64("radius", domain.DefaultSearchRadiusKm, "radius in km")
		if err := fs.Parse(args); err != nil {
			return nil, errUsage
		}
		if !isSet(fs, "lat") || !isSet(fs, "lng") {
			return nil, fmt.Errorf("search: -lat and -lng are required")
		}
		cache.Init(ctx)
		return cache.SearchByCoordinates(ctx, *lat, *lng, *radius), nil

	case "clear":
		cache.Clear(ctx)
		return map[string]bool{"success": true}, nil

	default:
		return nil, errUsage
	}
}

// movePosition builds the position patch of an update, or nil when neither
// coordinates nor zoom were given. Unset parts keep their stored value.
func movePosition(current *domain.Position, fs *flag.FlagSet, lat, lng float64, zoom int) (*domain.Position, error) {
	moved, zoomed := isSet(fs, "lat"), isSet(fs, "zoom")
	if !moved && !zoomed {
		return nil, nil
	}

	if !zoomed && current != nil {
		zoom = current.Zoom
	}
	if !moved {
		var ok bool
		lat, lng, ok = current.Coordinates()
		if !ok {
			return nil, errors.New("-zoom needs -lat and -lng: the bookmark has no position")
		}
	}
	return domain.NewPosition(lat, lng, zoom), nil
}

func isSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func defaultDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "pinmap")
	}
	return ".pinmap"
}
