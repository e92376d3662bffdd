package bundle

import (
	"fmt"
	"path/filepath"

	"github.com/oshokin/tor-expert-runner/internal/platform"
)

const (
	// downloadURLTemplate is the fixed location of release archives.
	// The exact format is relied upon by the archive endpoint and must match
	// byte for byte.
	downloadURLTemplate = "https://archive.torproject.org/tor-package-archive/torbrowser/%s/tor-expert-bundle-%s-%s.tar.gz"

	// archiveNameTemplate is the release archive filename.
	archiveNameTemplate = "tor-expert-bundle-%s-%s.tar.gz"

	// binarySubdirectory is where the bundle places the tor executable.
	// A property of the upstream release format, not chosen here.
	binarySubdirectory = "tor"

	// binaryBaseName is the name of the tor executable inside the bundle.
	binaryBaseName = "tor"
)

// Layout derives every path and URL used by the downloader and supervisor
// from the download root, the target, and the resolved version. All values
// are computed on demand so they can never drift out of sync.
type Layout struct {
	// DownloadDir is the root directory archives are stored in and
	// extracted into.
	DownloadDir string
	// Target is the platform the bundle is built for.
	Target platform.Target
	// Version is the resolved release version.
	Version string
}

// ArchiveName returns the release archive filename for this layout.
func (l Layout) ArchiveName() string {
	return fmt.Sprintf(archiveNameTemplate, l.Target, l.Version)
}

// ArchivePath returns where the downloaded archive is cached.
func (l Layout) ArchivePath() string {
	return filepath.Join(l.DownloadDir, l.ArchiveName())
}

// BinDir returns the directory holding the extracted tor executable.
func (l Layout) BinDir() string {
	return filepath.Join(l.DownloadDir, binarySubdirectory)
}

// BinaryPath returns the path of the tor executable after extraction.
func (l Layout) BinaryPath() string {
	return filepath.Join(l.BinDir(), binaryBaseName+l.Target.ExecutableSuffix())
}

// DownloadURL returns the archive endpoint for this target and version.
func (l Layout) DownloadURL() string {
	return fmt.Sprintf(downloadURLTemplate, l.Version, l.Target, l.Version)
}
