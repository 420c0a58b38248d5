package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oshokin/appimage-builder/internal/service/detect"
)

var errNotADirectory = errors.New("not a directory")

// detectCmd reports whether a directory looks like a Flutter bundle.
var detectCmd = &cobra.Command{
	Use:   "detect [bundle-dir]",
	Short: "Check whether a directory is a Flutter Linux bundle",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) > 0 {
			dir = args[0]
		}

		info, err := os.Stat(dir)
		if err != nil {
			return err
		}

		if !info.IsDir() {
			return fmt.Errorf("%s: %w", dir, errNotADirectory)
		}

		out := cmd.OutOrStdout()

		if !detect.IsFlutterBundle(dir) {
			_, _ = fmt.Fprintf(out, "%s: no Flutter layout detected\n", dir)
			return nil
		}

		_, _ = fmt.Fprintf(out, "%s: Flutter layout detected, supporting folders: %s\n",
			dir, strings.Join(detect.FlutterSupportDirs(), ","))

		return nil
	},
}
