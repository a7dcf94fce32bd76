package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/psfree-host/internal/service/server"
)

// updateCmd refreshes the exploit scripts without starting the server.
var updateCmd = &cobra.Command{
	Use:   "update [root]",
	Short: "Download and patch the exploit scripts once and exit.",
	Long: `Downloads every asset of the built-in table from upstream, patches the
.mjs scripts for the local layout and overwrites the local copies.
One line is printed per asset; the exit status is non-zero if any failed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
		defer stop()

		options := serverOptions()
		if len(args) > 0 {
			options.RootDir = args[0]
		}

		results, err := server.UpdateAssets(ctx, options)
		for _, result := range results {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), result.String())
		}

		return err
	},
}
