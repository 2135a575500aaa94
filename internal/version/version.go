// Package version carries build metadata, set with -ldflags "-X ...".
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	Version   = "dev"     // ex: v0.1.0
	Commit    = "none"    // ex: abcd123
	BuildDate = "unknown" // ex: 2025-08-11T18:42:00Z
	GoVersion = runtime.Version()
)

func init() {
	fillFromBuildInfo()
}

// fillFromBuildInfo uses the VCS stamp of `go build` when ldflags left
// the defaults in place.
func fillFromBuildInfo() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if Commit == "none" && len(s.Value) >= 7 {
				Commit = s.Value[:7]
			}
		case "vcs.time":
			if BuildDate == "unknown" {
				BuildDate = s.Value
			}
		}
	}
}

// String is the one-line build description printed at startup.
func String() string {
	return fmt.Sprintf("pinmap %s (commit=%s, built=%s, go=%s)", Version, Commit, BuildDate, GoVersion)
}
