package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/psfree-host/internal/service/server"
)

// manifestCmd writes the cache manifest without starting the server.
var manifestCmd = &cobra.Command{
	Use:   "manifest [root]",
	Short: "Generate the cache manifest once and exit.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
		defer stop()

		options := serverOptions()
		if len(args) > 0 {
			options.RootDir = args[0]
		}

		result, err := server.GenerateManifest(ctx, options)
		if err != nil {
			return err
		}

		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s created successfully (%d entries).\n", result.Path, result.Entries)

		return nil
	},
}
