package bundle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/oshokin/tor-expert-runner/internal/logger"
)

// Sentinel errors distinguishing the failure modes of the download pipeline.
var (
	// ErrFetchFailed marks a transport error or non-success response from
	// the archive endpoint.
	ErrFetchFailed = errors.New("failed to fetch the bundle archive")
	// ErrCacheDirUnavailable marks a failure to create the download directory.
	ErrCacheDirUnavailable = errors.New("download directory is unavailable")
	// ErrStaleArchiveRemoval marks a failure to delete a previously cached archive.
	ErrStaleArchiveRemoval = errors.New("failed to remove the stale archive")
	// ErrArchiveAlreadyExists marks a concurrent writer racing on the archive path.
	ErrArchiveAlreadyExists = errors.New("archive already exists at the cache path")
	// ErrExtractionFailed marks a corrupt archive or an I/O error during unpacking.
	ErrExtractionFailed = errors.New("failed to extract the bundle archive")
)

// archiveFileMode is the permission mode of the cached archive file.
const archiveFileMode os.FileMode = 0o644

// Downloader fetches the release archive for one target/version pair,
// caches it in the download directory, and unpacks it in place.
type Downloader struct {
	layout     Layout
	httpClient *http.Client
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithHTTPClient overrides the HTTP client used to fetch the archive.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(d *Downloader) {
		if httpClient != nil {
			d.httpClient = httpClient
		}
	}
}

// NewDownloader creates a Downloader for the provided layout.
func NewDownloader(layout Layout, opts ...Option) *Downloader {
	d := &Downloader{
		layout:     layout,
		httpClient: http.DefaultClient,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Layout returns the installation layout this downloader produces.
func (d *Downloader) Layout() Layout {
	return d.layout
}

// Download runs the fetch, cache-write, and extract pipeline.
//
// Calling it twice for the same layout is safe and yields the same on-disk
// result; the archive is re-fetched each time and the cached copy always
// reflects the most recent fetch.
func (d *Downloader) Download(ctx context.Context) error {
	downloadURL := d.layout.DownloadURL()

	logger.InfoKV(ctx, "Downloading Tor Expert Bundle", "url", downloadURL)

	body, err := d.fetch(ctx, downloadURL)
	if err != nil {
		return err
	}

	defer func() {
		_ = body.Close()
	}()

	if err = d.storeArchive(ctx, body); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Unpacking the bundle archive", "dir", d.layout.DownloadDir)

	if err = extractTarGz(d.layout.ArchivePath(), d.layout.DownloadDir); err != nil {
		return fmt.Errorf("%w: %w", ErrExtractionFailed, err)
	}

	return nil
}

// fetch issues the archive request and returns the response body on success.
func (d *Downloader) fetch(ctx context.Context, downloadURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	response, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	if response.StatusCode != http.StatusOK {
		_ = response.Body.Close()

		return nil, fmt.Errorf("%w: %s responded %s", ErrFetchFailed, downloadURL, response.Status)
	}

	return response.Body, nil
}

// storeArchive writes the fetched bytes to the archive path.
//
// An existing archive is deleted first so the cache reflects this fetch, and
// the file is then created exclusively: a path that reappears between the
// two steps means another writer is racing on the cache directory.
func (d *Downloader) storeArchive(ctx context.Context, body io.Reader) error {
	if err := os.MkdirAll(d.layout.DownloadDir, 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrCacheDirUnavailable, err)
	}

	archivePath := d.layout.ArchivePath()

	if _, err := os.Stat(archivePath); err == nil {
		logger.DebugKV(ctx, "Found a previously cached archive, clearing it", "path", archivePath)

		if err = os.Remove(archivePath); err != nil {
			return fmt.Errorf("%w: %w", ErrStaleArchiveRemoval, err)
		}
	}

	output, err := os.OpenFile(archivePath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, archiveFileMode)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: %s", ErrArchiveAlreadyExists, archivePath)
		}

		return fmt.Errorf("%w: %w", ErrCacheDirUnavailable, err)
	}

	_, err = io.Copy(output, body)
	if err != nil {
		_ = output.Close()

		return fmt.Errorf("write archive: %w", err)
	}

	if err = output.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}

	logger.InfoKV(ctx, "Stored the bundle archive", "path", archivePath)

	return nil
}
