package runner

import (
	"context"
	"errors"
	"net/http"

	"github.com/oshokin/tor-expert-runner/internal/bundle"
	"github.com/oshokin/tor-expert-runner/internal/config"
	"github.com/oshokin/tor-expert-runner/internal/logger"
	"github.com/oshokin/tor-expert-runner/internal/resolver"
	"github.com/oshokin/tor-expert-runner/internal/supervisor"
)

// Options are inputs accepted by the runner entry point.
type Options struct {
	// ConfigPath is the optional path to the settings YAML file.
	ConfigPath string
	// DownloadDir overrides the configured download directory.
	DownloadDir string
	// TorVersion overrides the configured version selection.
	TorVersion string
	// LogLevel overrides the configured log level.
	LogLevel string
}

// Run downloads the bundle, launches tor, waits for bootstrap, and keeps the
// process alive until the context is canceled. It is the public entry point
// for the tor-runner CLI.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "tor-runner")

	cfg, err := loadSettings(ctx, opts)
	if err != nil {
		return err
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}

	setupOptions := &supervisor.Options{
		DownloadDir:       cfg.DownloadDir,
		VersionSelection:  resolver.ParseSelection(cfg.TorVersion),
		Lister:            indexClient(cfg, httpClient),
		DownloaderOptions: []bundle.Option{bundle.WithHTTPClient(httpClient)},
	}

	tor, err := supervisor.Setup(ctx, setupOptions)
	if err != nil {
		return err
	}

	defer func() {
		_ = tor.Close()
	}()

	pid, err := tor.Run(ctx)
	if err != nil {
		// A canceled context means the caller asked for shutdown mid-bootstrap.
		if ctx.Err() != nil && errors.Is(err, supervisor.ErrProcessExitedEarly) {
			logger.Info(ctx, "Shutdown requested before tor finished bootstrapping")
			return nil
		}

		return err
	}

	logger.InfoKV(ctx, "Tor is running", "pid", pid, "version", tor.Version())

	<-ctx.Done()

	logger.Info(ctx, "Shutting down tor")

	return nil
}

// loadSettings merges the settings file with command line overrides and
// applies the resulting log level.
func loadSettings(ctx context.Context, opts *Options) (*config.Config, error) {
	cfg, err := config.LoadOrDefault(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	if opts.DownloadDir != "" {
		cfg.DownloadDir = opts.DownloadDir
	}

	if opts.TorVersion != "" {
		cfg.TorVersion = opts.TorVersion
	}

	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}

	if err = config.Validate(cfg); err != nil {
		return nil, err
	}

	if cfg.LogLevel != "" {
		if level, ok := logger.ParseLogLevel(cfg.LogLevel); ok {
			logger.SetLevel(level)
		}
	}

	logger.DebugKV(ctx, "Settings loaded",
		"download_dir", cfg.DownloadDir, "tor_version", cfg.TorVersion)

	return cfg, nil
}

// indexClient builds the remote index lister the resolver consults.
func indexClient(cfg *config.Config, httpClient *http.Client) resolver.Lister {
	return resolver.NewIndexClient(
		resolver.WithIndexURL(cfg.IndexURL),
		resolver.WithIndexHTTPClient(httpClient),
	)
}
