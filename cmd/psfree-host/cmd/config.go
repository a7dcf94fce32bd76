package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/oshokin/psfree-host/internal/config"
)

var errConfigExists = errors.New("configuration file already exists, use --force to overwrite")

// forceOverwrite allows config init to replace an existing file.
var forceOverwrite bool

// configCmd groups configuration helpers.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file.",
}

// configInitCmd writes the built-in defaults to the configuration path.
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration file.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if _, err := os.Stat(configPath); err == nil && !forceOverwrite {
			return fmt.Errorf("%s: %w", configPath, errConfigExists)
		}

		if err := config.Save(configPath, config.Default()); err != nil {
			return err
		}

		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", configPath)

		return nil
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	configInitCmd.Flags().BoolVarP(&forceOverwrite, "force", "f", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
}
