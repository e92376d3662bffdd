package version

import "fmt"

// Build metadata, stamped through -ldflags at release time. The zero
// values below are what a plain `go build` produces.
var (
	// Version is the semantic version of the binary.
	Version = "1.0.0"
	// Commit is the short git SHA the binary was built from, or "none".
	Commit = "none"
	// BuildTime is the UTC timestamp of the build.
	BuildTime = "unknown"
)

// Short returns just the semantic version.
func Short() string {
	return Version
}

// Full formats the version together with commit and build time for display.
func Full() string {
	return fmt.Sprintf("version: %s, commit: %s, built at: %s", Version, Commit, BuildTime)
}
