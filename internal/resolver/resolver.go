package resolver

import (
	"context"
	"errors"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/oshokin/tor-expert-runner/internal/logger"
)

// Channel selects how the Tor version is chosen.
type Channel int

const (
	// ChannelPinned uses an explicit version string and performs no network access.
	ChannelPinned Channel = iota
	// ChannelLatest picks the highest version published in the remote index,
	// pre-releases included.
	ChannelLatest
	// ChannelStable picks the highest version published in the remote index,
	// pre-releases excluded.
	ChannelStable
)

// DefaultVersion is the pinned fallback used when no version is configured.
// It keeps the system usable without any access to the remote index.
const DefaultVersion = "14.0.4"

// ErrNoVersionsFound is returned when the remote index yields no usable
// version after filtering.
var ErrNoVersionsFound = errors.New("no versions found in the remote index")

// prereleaseMarkers are substrings identifying pre-release versions,
// excluded when resolving the stable channel.
var prereleaseMarkers = []string{"alpha", "beta", "rc"}

// Selection is the caller's version choice: a channel plus, for
// ChannelPinned, the explicit version string.
type Selection struct {
	// Channel determines the resolution strategy.
	Channel Channel
	// Version is the pinned version string. Ignored for latest and stable.
	Version string
}

// ParseSelection interprets a configuration value as a Selection.
// "latest" and "stable" (case-insensitive) select the corresponding channels;
// an empty string pins DefaultVersion; anything else is a pinned version.
func ParseSelection(s string) Selection {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "latest":
		return Selection{Channel: ChannelLatest}
	case "stable":
		return Selection{Channel: ChannelStable}
	case "":
		return Selection{Channel: ChannelPinned, Version: DefaultVersion}
	default:
		return Selection{Channel: ChannelPinned, Version: strings.TrimSpace(s)}
	}
}

// Lister enumerates version directory names published in the remote index.
type Lister interface {
	ListVersions(ctx context.Context) ([]string, error)
}

// Resolver turns a Selection into a concrete version string.
type Resolver struct {
	lister Lister
}

// New creates a Resolver backed by the provided index lister.
func New(lister Lister) *Resolver {
	return &Resolver{lister: lister}
}

// Resolve returns the concrete version for the selection.
// Pinned selections never touch the network; latest and stable perform
// exactly one index listing.
func (r *Resolver) Resolve(ctx context.Context, selection Selection) (string, error) {
	if selection.Channel == ChannelPinned {
		if selection.Version == "" {
			return DefaultVersion, nil
		}

		return selection.Version, nil
	}

	entries, err := r.lister.ListVersions(ctx)
	if err != nil {
		return "", err
	}

	stableOnly := selection.Channel == ChannelStable
	candidates := filterCandidates(entries, stableOnly)

	if len(candidates) == 0 {
		return "", ErrNoVersionsFound
	}

	chosen := maxVersion(candidates)

	logger.InfoKV(ctx, "Resolved Tor version from the remote index",
		"version", chosen, "candidates", len(candidates), "stable_only", stableOnly)

	return chosen, nil
}

// filterCandidates discards the parent-directory marker, empty entries, and,
// for the stable channel, anything carrying a pre-release marker.
func filterCandidates(entries []string, stableOnly bool) []string {
	candidates := make([]string, 0, len(entries))

	for _, entry := range entries {
		entry = strings.TrimSuffix(strings.TrimSpace(entry), "/")
		if entry == "" || entry == ".." {
			continue
		}

		if stableOnly && isPrerelease(entry) {
			continue
		}

		candidates = append(candidates, entry)
	}

	return candidates
}

// isPrerelease reports whether the entry names a pre-release version.
func isPrerelease(entry string) bool {
	lowered := strings.ToLower(entry)
	for _, marker := range prereleaseMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}

	return false
}

// maxVersion picks the highest candidate under semantic-version ordering.
// Entries that fail to parse compare as 0.0.0 so they sort to the bottom
// instead of failing resolution.
func maxVersion(candidates []string) string {
	best := candidates[0]
	bestVersion := versionOrZero(best)

	for _, candidate := range candidates[1:] {
		candidateVersion := versionOrZero(candidate)
		if candidateVersion.GreaterThan(bestVersion) {
			best = candidate
			bestVersion = candidateVersion
		}
	}

	return best
}

// versionOrZero parses a semantic version, mapping unparsable input to 0.0.0.
func versionOrZero(s string) *semver.Version {
	parsed, err := semver.NewVersion(s)
	if err != nil {
		return &semver.Version{}
	}

	return parsed
}
