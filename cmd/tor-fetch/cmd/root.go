package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/tor-expert-runner/internal/config"
	"github.com/oshokin/tor-expert-runner/internal/service/fetcher"
	"github.com/oshokin/tor-expert-runner/internal/version"
)

var (
	// configPath stores the path to the configuration YAML file.
	configPath string
	// downloadDir overrides the configured bundle download directory.
	downloadDir string
	// torVersion overrides the configured version selection.
	torVersion string
	// list switches the command to printing available versions.
	list bool
	// installed switches the command to printing the last installation receipt.
	installed bool

	// rootCmd represents the base command for prefetching the bundle.
	rootCmd = &cobra.Command{
		Use:   "tor-fetch",
		Short: "Download the Tor Expert Bundle without running it.",
		Long: `Resolves the configured bundle version, downloads the archive for this
platform into the cache directory, and unpacks it. With --list, prints the
versions published in the release archive instead; with --installed, prints
what the last fetch installed.

Useful for prewarming the cache so tor-runner starts without network access
to the archive.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			fetcherOptions := &fetcher.Options{
				ConfigPath:  configPath,
				DownloadDir: downloadDir,
				TorVersion:  torVersion,
				List:        list,
				Installed:   installed,
				Output:      cmd.OutOrStdout(),
			}

			return fetcher.Run(ctx, fetcherOptions)
		},
	}
)

// Execute runs the tor-fetch CLI and exits with non-zero status on error.
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
	rootCmd.Flags().BoolVarP(&list, "list", "L", false, "list published versions and exit")
	rootCmd.Flags().BoolVarP(&installed, "installed", "i", false, "print the last installation receipt and exit")
}
