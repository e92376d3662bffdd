package platform

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestTargetStrings asserts every supported target renders as a stable
// lowercase hyphenated fragment and that no two targets render identically.
func TestTargetStrings(t *testing.T) {
	t.Parallel()

	pattern := regexp.MustCompile(`^[a-z0-9_]+-[a-z0-9_]+$`)
	seen := make(map[string]Target, len(All()))

	for _, target := range All() {
		rendered := target.String()

		require.Regexp(t, pattern, rendered)

		previous, duplicate := seen[rendered]
		require.False(t, duplicate, "targets %v and %v render identically", previous, target)

		seen[rendered] = target
	}

	require.Len(t, seen, 10)
	require.Equal(t, "unknown", TargetUnknown.String())
}

// TestTargetFor checks the GOOS/GOARCH mapping, including unsupported pairs.
func TestTargetFor(t *testing.T) {
	t.Parallel()

	cases := []struct {
		goos    string
		goarch  string
		want    Target
		wantErr bool
	}{
		{goos: "android", goarch: "arm64", want: TargetAndroidAarch64},
		{goos: "android", goarch: "arm", want: TargetAndroidArmv7},
		{goos: "android", goarch: "386", want: TargetAndroidX86},
		{goos: "android", goarch: "amd64", want: TargetAndroidX8664},
		{goos: "linux", goarch: "386", want: TargetLinuxI686},
		{goos: "linux", goarch: "amd64", want: TargetLinuxX8664},
		{goos: "darwin", goarch: "arm64", want: TargetMacOSAarch64},
		{goos: "darwin", goarch: "amd64", want: TargetMacOSX8664},
		{goos: "windows", goarch: "386", want: TargetWindowsI686},
		{goos: "windows", goarch: "amd64", want: TargetWindowsX8664},
		{goos: "linux", goarch: "arm64", wantErr: true},
		{goos: "plan9", goarch: "amd64", wantErr: true},
	}

	for _, tc := range cases {
		got, err := targetFor(tc.goos, tc.goarch)
		if tc.wantErr {
			require.ErrorIs(t, err, ErrUnsupportedPlatform)
			continue
		}

		require.NoError(t, err)
		require.Equal(t, tc.want, got)
	}
}

// TestExecutableSuffix ensures only Windows targets carry the ".exe" suffix.
func TestExecutableSuffix(t *testing.T) {
	t.Parallel()

	for _, target := range All() {
		suffix := target.ExecutableSuffix()

		switch target {
		case TargetWindowsI686, TargetWindowsX8664:
			require.Equal(t, ".exe", suffix)
		default:
			require.Empty(t, suffix)
		}
	}
}

// TestCapabilitiesFor verifies the per-host capability table.
func TestCapabilitiesFor(t *testing.T) {
	t.Parallel()

	caps, err := capabilitiesFor("linux")
	require.NoError(t, err)
	require.NotEmpty(t, caps.DefaultDownloadDir)
	require.Contains(t, caps.DefaultDownloadDir, downloadDirectoryName)
	require.True(t, caps.CanForceKill)

	caps, err = capabilitiesFor("windows")
	require.NoError(t, err)
	require.False(t, caps.CanForceKill)
}
