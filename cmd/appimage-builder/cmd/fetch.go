package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/appimage-builder/internal/config"
	"github.com/oshokin/appimage-builder/internal/service/toolchain"
)

// fetchToolCmd downloads appimagetool into the cache and prints its path.
var fetchToolCmd = &cobra.Command{
	Use:   "fetch-tool",
	Short: "Download appimagetool for this machine and print its path",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
		defer stop()

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		path, err := toolchain.Resolve(ctx, &cfg.Tool)
		if err != nil {
			return err
		}

		_, _ = fmt.Fprintln(cmd.OutOrStdout(), path)

		return nil
	},
}
