package bundle

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/tor-expert-runner/internal/platform"
)

// TestLayout_DownloadURL pins the exact archive endpoint format.
func TestLayout_DownloadURL(t *testing.T) {
	t.Parallel()

	layout := Layout{
		DownloadDir: "/tmp/bundles",
		Target:      platform.TargetMacOSX8664,
		Version:     "14.0.4",
	}

	want := "https://archive.torproject.org/tor-package-archive/torbrowser/14.0.4/tor-expert-bundle-macos-x86_64-14.0.4.tar.gz"
	require.Equal(t, want, layout.DownloadURL())
}

// TestLayout_Paths asserts every derived path stays consistent with the
// download root, target, and version.
func TestLayout_Paths(t *testing.T) {
	t.Parallel()

	root := filepath.Join("cache", "tor")
	layout := Layout{
		DownloadDir: root,
		Target:      platform.TargetLinuxX8664,
		Version:     "14.0.1",
	}

	require.Equal(t, "tor-expert-bundle-linux-x86_64-14.0.1.tar.gz", layout.ArchiveName())
	require.Equal(t, filepath.Join(root, "tor-expert-bundle-linux-x86_64-14.0.1.tar.gz"), layout.ArchivePath())
	require.Equal(t, filepath.Join(root, "tor"), layout.BinDir())
	require.Equal(t, filepath.Join(root, "tor", "tor"), layout.BinaryPath())
}

// TestLayout_WindowsBinarySuffix checks the executable suffix follows the target.
func TestLayout_WindowsBinarySuffix(t *testing.T) {
	t.Parallel()

	layout := Layout{
		DownloadDir: "root",
		Target:      platform.TargetWindowsX8664,
		Version:     "14.0.4",
	}

	require.Equal(t, filepath.Join("root", "tor", "tor.exe"), layout.BinaryPath())
}
