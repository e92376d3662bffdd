package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/oshokin/tor-expert-runner/internal/bundle"
	"github.com/oshokin/tor-expert-runner/internal/config"
	"github.com/oshokin/tor-expert-runner/internal/logger"
	"github.com/oshokin/tor-expert-runner/internal/platform"
	"github.com/oshokin/tor-expert-runner/internal/repository/receipt"
	"github.com/oshokin/tor-expert-runner/internal/resolver"
)

// Options are inputs accepted by the fetcher entry point.
type Options struct {
	// ConfigPath is the optional path to the settings YAML file.
	ConfigPath string
	// DownloadDir overrides the configured download directory.
	DownloadDir string
	// TorVersion overrides the configured version selection.
	TorVersion string
	// List prints the versions published in the remote index instead of
	// downloading anything.
	List bool
	// Installed prints the receipt of the last fetch instead of
	// downloading anything.
	Installed bool
	// Output receives the command's user-facing output.
	Output io.Writer
}

// Run resolves and downloads the bundle (or lists available versions) and is
// the public entry point for the tor-fetch CLI.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "tor-fetch")

	cfg, err := config.LoadOrDefault(opts.ConfigPath)
	if err != nil {
		return err
	}

	applyOverrides(cfg, opts)

	if err = config.Validate(cfg); err != nil {
		return err
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}
	lister := resolver.NewIndexClient(
		resolver.WithIndexURL(cfg.IndexURL),
		resolver.WithIndexHTTPClient(httpClient),
	)

	if opts.List {
		return listVersions(ctx, lister, opts.Output)
	}

	if opts.Installed {
		return showInstalled(ctx, cfg, opts.Output)
	}

	return fetch(ctx, cfg, lister, httpClient, opts.Output)
}

// applyOverrides merges command line flags into the loaded settings.
func applyOverrides(cfg *config.Config, opts *Options) {
	if opts.DownloadDir != "" {
		cfg.DownloadDir = opts.DownloadDir
	}

	if opts.TorVersion != "" {
		cfg.TorVersion = opts.TorVersion
	}
}

// listVersions prints every version the remote index publishes.
func listVersions(ctx context.Context, lister resolver.Lister, output io.Writer) error {
	entries, err := lister.ListVersions(ctx)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		_, _ = fmt.Fprintln(output, entry)
	}

	return nil
}

// showInstalled prints the receipt of the last fetch, if any.
func showInstalled(ctx context.Context, cfg *config.Config, output io.Writer) error {
	downloadDir := cfg.DownloadDir
	if downloadDir == "" {
		caps, err := platform.DetectCapabilities()
		if err != nil {
			return err
		}

		downloadDir = caps.DefaultDownloadDir
	}

	rec, err := Installed(ctx, downloadDir)
	if err != nil {
		if errors.Is(err, receipt.ErrNotFound) {
			_, _ = fmt.Fprintf(output, "no bundle installed in %s\n", downloadDir)
			return nil
		}

		return err
	}

	_, _ = fmt.Fprintf(output, "tor %s (%s) installed at %s from %s\n",
		rec.Version, rec.Target, rec.InstalledAt.Format(time.RFC3339), rec.ArchiveName)

	return nil
}

// fetch resolves the version, downloads the bundle, and records a receipt.
func fetch(ctx context.Context, cfg *config.Config, lister resolver.Lister, httpClient *http.Client, output io.Writer) error {
	target, err := platform.Detect()
	if err != nil {
		return err
	}

	caps, err := platform.DetectCapabilities()
	if err != nil {
		return err
	}

	downloadDir := cfg.DownloadDir
	if downloadDir == "" {
		downloadDir = caps.DefaultDownloadDir
	}

	version, err := resolver.New(lister).Resolve(ctx, resolver.ParseSelection(cfg.TorVersion))
	if err != nil {
		return err
	}

	layout := bundle.Layout{
		DownloadDir: downloadDir,
		Target:      target,
		Version:     version,
	}

	if err = bundle.NewDownloader(layout, bundle.WithHTTPClient(httpClient)).Download(ctx); err != nil {
		return err
	}

	repo := receipt.NewFileRepository(downloadDir)

	rec := &receipt.Receipt{
		Version:     version,
		Target:      target.String(),
		ArchiveName: layout.ArchiveName(),
		InstalledAt: time.Now().UTC(),
	}

	if err = repo.Save(ctx, rec); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(output, "installed tor %s (%s) into %s\n", version, target, downloadDir)

	return nil
}

// Installed reports what the last fetch installed into the download
// directory, if anything.
func Installed(ctx context.Context, downloadDir string) (*receipt.Receipt, error) {
	rec, err := receipt.NewFileRepository(downloadDir).Load(ctx)
	if err != nil {
		if errors.Is(err, receipt.ErrNotFound) {
			return nil, err
		}

		return nil, fmt.Errorf("read installation receipt: %w", err)
	}

	return rec, nil
}
