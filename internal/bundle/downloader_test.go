package bundle

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/tor-expert-runner/internal/platform"
)

// makeBundleArchive builds an in-memory tar.gz shaped like the upstream
// release: the tor executable under a tor/ subdirectory plus a data file.
func makeBundleArchive(t *testing.T, binaryContents []byte) []byte {
	t.Helper()

	var buf bytes.Buffer

	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	entries := []struct {
		name     string
		mode     int64
		typeflag byte
		body     []byte
	}{
		{name: "tor/", mode: 0o755, typeflag: tar.TypeDir},
		{name: "tor/tor", mode: 0o755, typeflag: tar.TypeReg, body: binaryContents},
		{name: "data/", mode: 0o755, typeflag: tar.TypeDir},
		{name: "data/geoip", mode: 0o644, typeflag: tar.TypeReg, body: []byte("geoip data")},
	}

	for _, entry := range entries {
		header := &tar.Header{
			Name:     entry.name,
			Mode:     entry.mode,
			Typeflag: entry.typeflag,
			Size:     int64(len(entry.body)),
		}

		require.NoError(t, tw.WriteHeader(header))

		if len(entry.body) > 0 {
			_, err := tw.Write(entry.body)
			require.NoError(t, err)
		}
	}

	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())

	return buf.Bytes()
}

// serveArchive returns a test server responding to every request with body.
func serveArchive(t *testing.T, body []byte) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/gzip")
		_, _ = w.Write(body)
	}))

	t.Cleanup(server.Close)

	return server
}

// rewriteTransport redirects every request to the test server, keeping the
// production URL template in play.
type rewriteTransport struct {
	server *httptest.Server
}

// RoundTrip rewrites the request URL to the test server and forwards it.
func (rt *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	rewritten := req.Clone(req.Context())
	rewritten.URL.Scheme = "http"
	rewritten.URL.Host = rt.server.Listener.Addr().String()

	return http.DefaultTransport.RoundTrip(rewritten)
}

// newTestDownloader wires a Downloader whose fetches land on server.
func newTestDownloader(layout Layout, server *httptest.Server) *Downloader {
	client := &http.Client{Transport: &rewriteTransport{server: server}}

	return NewDownloader(layout, WithHTTPClient(client))
}

// TestDownload_ProducesBinary runs the full pipeline and checks the
// extracted binary lands at the layout's binary path.
func TestDownload_ProducesBinary(t *testing.T) {
	t.Parallel()

	archive := makeBundleArchive(t, []byte("#!/bin/sh\n"))
	server := serveArchive(t, archive)

	layout := Layout{
		DownloadDir: filepath.Join(t.TempDir(), "bundles"),
		Target:      platform.TargetLinuxX8664,
		Version:     "14.0.4",
	}

	d := newTestDownloader(layout, server)

	require.NoError(t, d.Download(context.Background()))

	// Archive is cached.
	cached, err := os.ReadFile(layout.ArchivePath())
	require.NoError(t, err)
	require.Equal(t, archive, cached)

	// Binary exists under the tor/ subdirectory.
	info, err := os.Stat(layout.BinaryPath())
	require.NoError(t, err)
	require.False(t, info.IsDir())
}

// TestDownload_ReplacesStaleArchive asserts a previously cached archive is
// removed and replaced, not appended to or duplicated.
func TestDownload_ReplacesStaleArchive(t *testing.T) {
	t.Parallel()

	archive := makeBundleArchive(t, []byte("new binary"))
	server := serveArchive(t, archive)

	layout := Layout{
		DownloadDir: t.TempDir(),
		Target:      platform.TargetLinuxX8664,
		Version:     "14.0.4",
	}

	stale := []byte("stale archive from an older attempt")
	require.NoError(t, os.WriteFile(layout.ArchivePath(), stale, 0o644))

	d := newTestDownloader(layout, server)

	require.NoError(t, d.Download(context.Background()))

	cached, err := os.ReadFile(layout.ArchivePath())
	require.NoError(t, err)
	require.Equal(t, archive, cached)
}

// TestDownload_Idempotent runs the pipeline twice and expects the same
// on-disk result both times.
func TestDownload_Idempotent(t *testing.T) {
	t.Parallel()

	archive := makeBundleArchive(t, []byte("binary"))
	server := serveArchive(t, archive)

	layout := Layout{
		DownloadDir: t.TempDir(),
		Target:      platform.TargetLinuxX8664,
		Version:     "14.0.1",
	}

	d := newTestDownloader(layout, server)

	require.NoError(t, d.Download(context.Background()))
	require.NoError(t, d.Download(context.Background()))

	cached, err := os.ReadFile(layout.ArchivePath())
	require.NoError(t, err)
	require.Equal(t, archive, cached)

	_, err = os.Stat(layout.BinaryPath())
	require.NoError(t, err)
}

// TestDownload_FetchFailed surfaces non-success responses as ErrFetchFailed.
func TestDownload_FetchFailed(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(server.Close)

	layout := Layout{
		DownloadDir: t.TempDir(),
		Target:      platform.TargetLinuxX8664,
		Version:     "0.0.0",
	}

	d := newTestDownloader(layout, server)

	err := d.Download(context.Background())
	require.ErrorIs(t, err, ErrFetchFailed)

	// No archive is written for a failed fetch.
	_, err = os.Stat(layout.ArchivePath())
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestDownload_CorruptArchive surfaces codec failures as ErrExtractionFailed.
func TestDownload_CorruptArchive(t *testing.T) {
	t.Parallel()

	server := serveArchive(t, []byte("this is not a gzip stream"))

	layout := Layout{
		DownloadDir: t.TempDir(),
		Target:      platform.TargetLinuxX8664,
		Version:     "14.0.4",
	}

	d := newTestDownloader(layout, server)

	err := d.Download(context.Background())
	require.ErrorIs(t, err, ErrExtractionFailed)
}

// TestDownload_CacheDirUnavailable surfaces a download root that cannot be
// created as ErrCacheDirUnavailable.
func TestDownload_CacheDirUnavailable(t *testing.T) {
	t.Parallel()

	archive := makeBundleArchive(t, []byte("binary"))
	server := serveArchive(t, archive)

	// A regular file occupies the download root path.
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("not a directory"), 0o644))

	layout := Layout{
		DownloadDir: blocker,
		Target:      platform.TargetLinuxX8664,
		Version:     "14.0.4",
	}

	d := newTestDownloader(layout, server)

	err := d.Download(context.Background())
	require.ErrorIs(t, err, ErrCacheDirUnavailable)
}

// TestDownload_StaleArchiveRemovalFailed surfaces an undeletable cached
// archive as ErrStaleArchiveRemoval.
func TestDownload_StaleArchiveRemovalFailed(t *testing.T) {
	t.Parallel()

	archive := makeBundleArchive(t, []byte("binary"))
	server := serveArchive(t, archive)

	layout := Layout{
		DownloadDir: t.TempDir(),
		Target:      platform.TargetLinuxX8664,
		Version:     "14.0.4",
	}

	// A non-empty directory sits at the archive path, so os.Remove fails.
	require.NoError(t, os.MkdirAll(filepath.Join(layout.ArchivePath(), "occupied"), 0o755))

	d := newTestDownloader(layout, server)

	err := d.Download(context.Background())
	require.ErrorIs(t, err, ErrStaleArchiveRemoval)
}

// TestDownload_CreatesDownloadDir creates the download root when absent.
func TestDownload_CreatesDownloadDir(t *testing.T) {
	t.Parallel()

	archive := makeBundleArchive(t, []byte("binary"))
	server := serveArchive(t, archive)

	layout := Layout{
		DownloadDir: filepath.Join(t.TempDir(), "nested", "cache", "dir"),
		Target:      platform.TargetLinuxX8664,
		Version:     "14.0.4",
	}

	d := newTestDownloader(layout, server)

	require.NoError(t, d.Download(context.Background()))

	info, err := os.Stat(layout.DownloadDir)
	require.NoError(t, err)
	require.True(t, info.IsDir())
}
