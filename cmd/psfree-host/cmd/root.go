package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/psfree-host/internal/config"
	"github.com/oshokin/psfree-host/internal/service/server"
	"github.com/oshokin/psfree-host/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// rootDir overrides the served directory.
	rootDir string
	// logLevel overrides the configured log level.
	logLevel string

	// rootCmd represents the base command for running the exploit host.
	rootCmd = &cobra.Command{
		Use:   "psfree-host [port]",
		Short: "Serve the PSFree exploit page and its offline cache.",
		Long: `Serves the exploit files from the root directory over HTTP.

POST /generate_manifest rebuilds the application cache manifest and
POST /update_exploit refreshes the exploit scripts from upstream.
Requests are handled one at a time. The port argument overrides the
configured port (default 52721).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := serverOptions()

			if len(args) > 0 {
				port, err := config.ParsePort(args[0])
				if err != nil {
					return err
				}

				options.Port = port
			}

			return server.Run(ctx, options)
		},
	}
)

// Execute runs the psfree-host CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// serverOptions collects the persistent flags shared by every command.
func serverOptions() *server.Options {
	return &server.Options{
		ConfigPath: configPath,
		RootDir:    rootDir,
		LogLevel:   logLevel,
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	flags.StringVarP(&rootDir, "root", "r", "", "directory to serve (overrides root_dir)")
	flags.StringVarP(&logLevel, "log-level", "l", "", "log level: debug, info, warn, error")

	rootCmd.AddCommand(manifestCmd, updateCmd, configCmd)
}
