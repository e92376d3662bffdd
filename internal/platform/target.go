package platform

import (
	"errors"
	"fmt"
	"runtime"
)

// Target identifies one of the OS/architecture combinations the Tor Expert
// Bundle is published for. Its rendered form is used verbatim in release
// filenames and download URLs.
type Target int

// Supported build targets of the Tor Expert Bundle.
const (
	TargetUnknown Target = iota
	TargetAndroidAarch64
	TargetAndroidArmv7
	TargetAndroidX86
	TargetAndroidX8664
	TargetLinuxI686
	TargetLinuxX8664
	TargetMacOSAarch64
	TargetMacOSX8664
	TargetWindowsI686
	TargetWindowsX8664
)

// ErrUnsupportedPlatform is returned when the host does not map to any
// published bundle target.
var ErrUnsupportedPlatform = errors.New("platform is not supported by the tor expert bundle")

// targetNames maps each target to its release file name fragment.
// The strings are fixed by the upstream release layout and must never change.
var targetNames = map[Target]string{
	TargetAndroidAarch64: "android-aarch64",
	TargetAndroidArmv7:   "android-armv7",
	TargetAndroidX86:     "android-x86",
	TargetAndroidX8664:   "android-x86_64",
	TargetLinuxI686:      "linux-i686",
	TargetLinuxX8664:     "linux-x86_64",
	TargetMacOSAarch64:   "macos-aarch64",
	TargetMacOSX8664:     "macos-x86_64",
	TargetWindowsI686:    "windows-i686",
	TargetWindowsX8664:   "windows-x86_64",
}

// All returns every supported target in a stable order.
func All() []Target {
	return []Target{
		TargetAndroidAarch64,
		TargetAndroidArmv7,
		TargetAndroidX86,
		TargetAndroidX8664,
		TargetLinuxI686,
		TargetLinuxX8664,
		TargetMacOSAarch64,
		TargetMacOSX8664,
		TargetWindowsI686,
		TargetWindowsX8664,
	}
}

// String renders the target as the lowercase hyphenated fragment used in
// release filenames, e.g. "macos-x86_64".
func (t Target) String() string {
	if name, ok := targetNames[t]; ok {
		return name
	}

	return "unknown"
}

// ExecutableSuffix returns the filename suffix of executables for this target.
func (t Target) ExecutableSuffix() string {
	switch t {
	case TargetWindowsI686, TargetWindowsX8664:
		return ".exe"
	default:
		return ""
	}
}

// Detect maps the running host to a bundle target.
func Detect() (Target, error) {
	return targetFor(runtime.GOOS, runtime.GOARCH)
}

// targetFor resolves a GOOS/GOARCH pair to a bundle target.
// Split out of Detect so the mapping can be tested on any host.
func targetFor(goos, goarch string) (Target, error) {
	switch goos {
	case "android":
		switch goarch {
		case "arm64":
			return TargetAndroidAarch64, nil
		case "arm":
			return TargetAndroidArmv7, nil
		case "386":
			return TargetAndroidX86, nil
		case "amd64":
			return TargetAndroidX8664, nil
		}
	case "linux":
		switch goarch {
		case "386":
			return TargetLinuxI686, nil
		case "amd64":
			return TargetLinuxX8664, nil
		}
	case "darwin":
		switch goarch {
		case "arm64":
			return TargetMacOSAarch64, nil
		case "amd64":
			return TargetMacOSX8664, nil
		}
	case "windows":
		switch goarch {
		case "386":
			return TargetWindowsI686, nil
		case "amd64":
			return TargetWindowsX8664, nil
		}
	}

	return TargetUnknown, fmt.Errorf("%s/%s: %w", goos, goarch, ErrUnsupportedPlatform)
}
