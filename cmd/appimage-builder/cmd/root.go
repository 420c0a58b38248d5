package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/appimage-builder/internal/config"
	"github.com/oshokin/appimage-builder/internal/domain/bundle"
	"github.com/oshokin/appimage-builder/internal/logger"
	"github.com/oshokin/appimage-builder/internal/service/builder"
	"github.com/oshokin/appimage-builder/internal/service/prompt"
	"github.com/oshokin/appimage-builder/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// logLevel is the minimum level of printed log messages.
	logLevel string

	// Build inputs, one flag per form field.
	appName     string
	execPath    string
	iconPath    string
	supportDirs string
	patchPaths  bool

	outputDir      string
	recipePath     string
	saveRecipe     bool
	noRun          bool
	keepAppDir     bool
	nonInteractive bool

	errUnknownLogLevel = errors.New("unknown log level")

	// rootCmd packages an executable into an AppImage.
	rootCmd = &cobra.Command{
		Use:   "appimage-builder",
		Short: "Package a prebuilt Linux executable into an AppImage",
		Long: `Packages a prebuilt Linux executable (for example a Flutter release bundle)
into a self-contained AppImage.

The executable, icon and supporting folders are staged in an AppDir with an
AppRun launcher and a desktop entry, appimagetool is downloaded if needed and
run, and the resulting image is launched once to check that it starts.

Hints:
  - For Flutter apps include 'data' (icudtl.dat, flutter_assets) and 'lib' (*.so files).
    Leave --support empty to detect them automatically.
  - Make sure the app is built for Linux and is relocatable.
  - If the image fails to run, check for missing libraries or hardcoded paths.
  - The image is written to the current directory unless --output-dir is set.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			level, ok := logger.ParseLogLevel(logLevel)
			if !ok {
				return fmt.Errorf("%w: %s", errUnknownLogLevel, logLevel)
			}

			logger.SetLevel(level)

			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &builder.Options{
				ConfigPath: configPath,
				RecipePath: recipePath,
				SaveRecipe: saveRecipe,
				Inputs: bundle.Inputs{
					AppName:     appName,
					Executable:  execPath,
					Icon:        iconPath,
					SupportDirs: bundle.ParseSupportDirs(supportDirs),
					PatchPaths:  patchPaths,
				},
				OutputDir:     outputDir,
				NoRun:         noRun,
				KeepAppDir:    keepAppDir,
				Locator:       locator(),
				PatchPathsSet: cmd.Flags().Changed("patch-paths"),
			}

			_, err := builder.Run(ctx, options)

			return err
		},
	}
)

// Execute runs the appimage-builder CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		logger.Error(context.Background(), err)
		os.Exit(1)
	}
}

// locator picks how missing paths are found.
//
//nolint:ireturn // The builder depends on the interface only.
func locator() prompt.Locator {
	if nonInteractive {
		return prompt.NonInteractive{}
	}

	return prompt.Auto()
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")

	flags := rootCmd.Flags()
	flags.StringVarP(&appName, "name", "n", "", "application name")
	flags.StringVarP(&execPath, "exec", "e", "", "path to the prebuilt executable")
	flags.StringVarP(&iconPath, "icon", "i", "", "path to the icon (png, svg, jpg, ico)")
	flags.StringVarP(&supportDirs, "support", "s", "",
		"comma-separated supporting folders, relative to the executable (e.g. data,lib)")
	flags.BoolVar(&patchPaths, "patch-paths", false,
		"patch absolute paths (/usr to relative); experimental, may corrupt binaries")
	flags.StringVarP(&outputDir, "output-dir", "o", "", "directory for the AppImage (default: current directory)")
	flags.StringVarP(&recipePath, "recipe", "r", "", "load build inputs from a recipe file")
	flags.BoolVar(&saveRecipe, "save-recipe", false, "save the resolved build inputs to the recipe file")
	flags.BoolVar(&noRun, "no-run", false, "do not launch the AppImage after building it")
	flags.BoolVar(&keepAppDir, "keep-appdir", false, "keep the staging AppDir for inspection")
	flags.BoolVar(&nonInteractive, "non-interactive", false, "never prompt for missing paths")

	rootCmd.AddCommand(detectCmd, fetchToolCmd)
}
