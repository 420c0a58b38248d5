package builder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/dustin/go-humanize"

	"github.com/oshokin/appimage-builder/internal/config"
	"github.com/oshokin/appimage-builder/internal/domain/bundle"
	"github.com/oshokin/appimage-builder/internal/logger"
	"github.com/oshokin/appimage-builder/internal/service/assembler"
	"github.com/oshokin/appimage-builder/internal/service/patcher"
	"github.com/oshokin/appimage-builder/internal/service/prompt"
	"github.com/oshokin/appimage-builder/internal/service/smoketest"
	"github.com/oshokin/appimage-builder/internal/service/toolchain"
)

// ErrUnsupportedOS is returned on anything but Linux.
var ErrUnsupportedOS = errors.New("this tool only supports Linux")

// Options contains inputs for the builder entry point.
type Options struct {
	// ConfigPath is an optional path to builder settings.
	ConfigPath string
	// RecipePath is an optional saved recipe; explicit Inputs take precedence.
	RecipePath string
	// SaveRecipe writes the resolved inputs to RecipePath (or the default recipe file).
	SaveRecipe bool
	// PatchPathsSet marks Inputs.PatchPaths as explicitly given, so a recipe cannot override it.
	PatchPathsSet bool
	// Inputs are the values entered by the user.
	Inputs bundle.Inputs
	// OutputDir receives the AppImage; defaults to the working directory.
	OutputDir string
	// NoRun skips launching the produced image.
	NoRun bool
	// KeepAppDir leaves the staging directory in place for inspection.
	KeepAppDir bool
	// Locator finds missing paths; defaults to prompt.NonInteractive.
	Locator prompt.Locator
}

// Result describes a finished build.
type Result struct {
	// AppImagePath is the absolute path of the produced image.
	AppImagePath string
	// Size is the image size in bytes.
	Size int64
	// FlutterDetected is true when supporting folders were added automatically.
	FlutterDetected bool
	// SupportDirs are the resolved supporting folders that were bundled.
	SupportDirs []string
	// Launch is the launch check outcome, nil when skipped.
	Launch *smoketest.Outcome
	// Warnings collects non-fatal problems such as path patching failures.
	Warnings []string
}

// builder holds the state of a single packaging run.
// It is unexported, callers should use Run.
type builder struct {
	cfg       *config.Config
	opts      *Options
	inputs    *bundle.Inputs
	locator   prompt.Locator
	outputDir string
	flutter   bool
}

// Run executes the packaging workflow.
func Run(ctx context.Context, opts *Options) (*Result, error) {
	ctx = logger.WithName(ctx, "appimage-builder")

	if runtime.GOOS != "linux" {
		return nil, fmt.Errorf("%s: %w", runtime.GOOS, ErrUnsupportedOS)
	}

	b, err := newBuilder(opts)
	if err != nil {
		return nil, fmt.Errorf("initialize builder: %w", err)
	}

	result, err := b.Run(ctx)
	if err != nil {
		return result, fmt.Errorf("build failed: %w", err)
	}

	logger.InfoKV(ctx, "AppImage created", "path", result.AppImagePath, "size", humanize.Bytes(uint64(result.Size)))

	return result, nil
}

// newBuilder loads settings and the optional recipe and validates inputs.
func newBuilder(opts *Options) (*builder, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	inputs := opts.Inputs
	inputs.SupportDirs = append([]string(nil), opts.Inputs.SupportDirs...)
	inputs.Normalize()

	if opts.RecipePath != "" {
		if _, statErr := os.Stat(opts.RecipePath); statErr == nil || !opts.SaveRecipe {
			recipe, loadErr := config.LoadRecipe(opts.RecipePath)
			if loadErr != nil {
				return nil, loadErr
			}

			mergeRecipe(&inputs, recipe, opts.PatchPathsSet)
			inputs.Normalize()
		}
	}

	if err = inputs.Validate(); err != nil {
		return nil, err
	}

	outputDir := opts.OutputDir
	if outputDir == "" {
		if outputDir, err = os.Getwd(); err != nil {
			return nil, err
		}
	}

	if outputDir, err = filepath.Abs(outputDir); err != nil {
		return nil, err
	}

	locator := opts.Locator
	if locator == nil {
		locator = prompt.NonInteractive{}
	}

	return &builder{
		cfg:       cfg,
		opts:      opts,
		inputs:    &inputs,
		locator:   locator,
		outputDir: outputDir,
	}, nil
}

// Run performs the pipeline: resolve, stage, patch, package, launch.
func (b *builder) Run(ctx context.Context) (*Result, error) {
	ctx = logger.WithKV(ctx, "app", b.inputs.AppName)

	supportDirs, err := b.resolveInputs(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve inputs: %w", err)
	}

	if b.opts.SaveRecipe {
		if err = config.SaveRecipe(b.opts.RecipePath, toRecipe(b.inputs)); err != nil {
			return nil, err
		}

		logger.InfoKV(ctx, "Recipe saved", "path", recipePath(b.opts.RecipePath))
	}

	if err = os.MkdirAll(b.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	result := &Result{
		AppImagePath:    filepath.Join(b.outputDir, bundle.AppImageFilename(b.inputs.AppName)),
		FlutterDetected: b.flutter,
		SupportDirs:     supportDirs,
	}

	appDir, err := assembler.Stage(ctx, &assembler.Layout{
		WorkDir:     b.outputDir,
		AppName:     b.inputs.AppName,
		Executable:  b.inputs.Executable,
		Icon:        b.inputs.Icon,
		SupportDirs: supportDirs,
		Categories:  b.cfg.Desktop.Categories,
	})
	if appDir != "" {
		defer b.cleanup(ctx, appDir)
	}

	if err != nil {
		return nil, fmt.Errorf("stage AppDir: %w", err)
	}

	if b.inputs.PatchPaths {
		result.Warnings = append(result.Warnings, b.patch(ctx, appDir)...)
	}

	if err = b.pack(ctx, appDir, result.AppImagePath); err != nil {
		return nil, err
	}

	info, err := os.Stat(result.AppImagePath)
	if err != nil {
		return nil, fmt.Errorf("stat image: %w", err)
	}

	result.Size = info.Size()

	if b.opts.NoRun {
		return result, nil
	}

	result.Launch, err = smoketest.Run(ctx, result.AppImagePath, b.cfg.Launch.Timeout)
	if err != nil {
		return result, fmt.Errorf("AppImage created at %s, but %w", result.AppImagePath, err)
	}

	logger.Infof(ctx, "AppImage created at %s, %s", result.AppImagePath, result.Launch.Message())

	return result, nil
}

// patch rewrites absolute paths; every problem becomes a warning.
func (b *builder) patch(ctx context.Context, appDir string) []string {
	report, err := patcher.Patch(ctx, appDir, b.cfg.Patch.From, b.cfg.Patch.To)
	if err != nil {
		warning := fmt.Sprintf("path patching failed: %v, proceeding without", err)
		logger.Warn(ctx, warning)

		return []string{warning}
	}

	for _, failure := range report.Failures {
		logger.WarnKV(ctx, "Path patching failed", "error", failure)
	}

	logger.InfoKV(ctx, "Path patching finished", "patched", len(report.Patched))

	return report.Warnings()
}

// pack obtains appimagetool and runs it.
func (b *builder) pack(ctx context.Context, appDir, output string) error {
	tool, err := toolchain.Resolve(ctx, &b.cfg.Tool)
	if err != nil {
		return err
	}

	extraArgs, err := toolchain.ParseExtraArgs(b.cfg.Tool.ExtraArgs)
	if err != nil {
		return err
	}

	return toolchain.Build(ctx, tool, appDir, output, extraArgs)
}

// cleanup removes the staging AppDir unless asked to keep it.
func (b *builder) cleanup(ctx context.Context, appDir string) {
	if b.opts.KeepAppDir {
		logger.InfoKV(ctx, "Keeping AppDir", "path", appDir)
		return
	}

	if err := os.RemoveAll(appDir); err != nil {
		logger.WarnKV(ctx, "Unable to remove AppDir", "path", appDir, "error", err)
	}
}

func recipePath(path string) string {
	if path == "" {
		return config.DefaultRecipeFilename
	}

	return path
}
