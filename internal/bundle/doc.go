// Package bundle downloads and caches the Tor Expert Bundle release archive.
//
// A Layout derives every path and URL from the download root, the platform
// target, and the resolved version. The Downloader runs the fetch,
// cache-write, and extract pipeline with each step a distinct commit point:
// the cached archive always reflects the most recent fetch, the archive file
// is created exclusively to surface concurrent writers, and extraction
// places the tor executable under the bundle's tor/ subdirectory.
package bundle
