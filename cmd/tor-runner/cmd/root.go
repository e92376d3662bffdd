package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/tor-expert-runner/internal/config"
	"github.com/oshokin/tor-expert-runner/internal/service/runner"
	"github.com/oshokin/tor-expert-runner/internal/version"
)

var (
	// configPath stores the path to the configuration YAML file.
	configPath string
	// downloadDir overrides the configured bundle download directory.
	downloadDir string
	// torVersion overrides the configured version selection.
	torVersion string
	// logLevel overrides the configured log level.
	logLevel string

	// rootCmd represents the base command for running a supervised tor instance.
	rootCmd = &cobra.Command{
		Use:   "tor-runner",
		Short: "Download and run a supervised Tor instance.",
		Long: `Downloads the Tor Expert Bundle for this platform, launches the contained
tor binary, and waits until its bootstrap sequence completes.

The bundle version can be pinned explicitly or resolved against the release
archive ("latest" includes pre-releases, "stable" excludes them). Archives are
cached in the download directory, so repeated runs overwrite rather than
accumulate. The supervised process is terminated on shutdown (SIGINT/SIGTERM).`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			runnerOptions := &runner.Options{
				ConfigPath:  configPath,
				DownloadDir: downloadDir,
				TorVersion:  torVersion,
				LogLevel:    logLevel,
			}

			return runner.Run(ctx, runnerOptions)
		},
	}
)

// Execute runs the tor-runner CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVarP(&downloadDir, "download-dir", "d", "", "directory for cached bundle archives")
	rootCmd.Flags().StringVarP(&torVersion, "tor-version", "t", "", `bundle version: explicit, "latest", or "stable"`)
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "l", "", "minimum log level (debug, info, warn, error)")
}
