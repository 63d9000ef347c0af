// Package version holds build metadata stamped in by the linker.
package version

import "fmt"

// Set with -ldflags, for example:
//
//	go build -ldflags "-X github.com/javanstorm/dockhand/internal/version.Version=0.3.0 \
//	                   -X github.com/javanstorm/dockhand/internal/version.Commit=$(git rev-parse --short HEAD)" \
//	    ./cmd/dockhand
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// String formats the build metadata on one line.
func String() string {
	return fmt.Sprintf("dockhand %s (commit %s, built %s)", Version, Commit, BuildDate)
}
