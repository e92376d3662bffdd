// Package resolver turns a version selection (pinned, latest, or stable)
// into a concrete Tor Expert Bundle version string.
//
// Pinned selections resolve locally. Latest and stable consult the HTML
// directory listing of the release archive exactly once, filter out the
// parent-directory marker (and pre-releases for the stable channel), and
// pick the maximum entry under semantic-version ordering. Entries that do
// not parse as a semantic version sort as 0.0.0 instead of failing the
// resolution.
package resolver
