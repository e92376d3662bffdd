package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// downloadDirectoryName is the subdirectory created under the user cache
// directory to hold downloaded bundles.
const downloadDirectoryName = "tor-expert-runner"

// Capabilities describe host behavior that differs between platforms.
// They are resolved once at startup instead of being compiled in, so the
// core logic stays free of platform branching.
type Capabilities struct {
	// DefaultDownloadDir is the directory used for bundle downloads when no
	// explicit directory is configured. It lives under the user cache
	// directory (~/.cache on Linux, ~/Library/Caches on macOS, %LocalAppData%
	// on Windows).
	DefaultDownloadDir string
	// CanForceKill reports whether the host supports forceful signal delivery
	// to a process. On Windows the supervisor's Kill is a logged no-op that
	// still reports success.
	CanForceKill bool
}

// DetectCapabilities resolves the capability table for the running host.
func DetectCapabilities() (Capabilities, error) {
	return capabilitiesFor(runtime.GOOS)
}

// capabilitiesFor resolves capabilities for a GOOS value.
// Split out of DetectCapabilities for testability.
func capabilitiesFor(goos string) (Capabilities, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return Capabilities{}, fmt.Errorf("resolve user cache directory: %w", err)
	}

	return Capabilities{
		DefaultDownloadDir: filepath.Join(cacheDir, downloadDirectoryName),
		CanForceKill:       goos != "windows",
	}, nil
}
