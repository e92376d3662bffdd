// Package fetcher orchestrates the tor-fetch binary: listing published
// versions, resolving the configured selection, downloading the bundle, and
// recording the installation receipt.
package fetcher
