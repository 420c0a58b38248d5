package builder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oshokin/appimage-builder/internal/config"
	"github.com/oshokin/appimage-builder/internal/domain/bundle"
	"github.com/oshokin/appimage-builder/internal/logger"
	"github.com/oshokin/appimage-builder/internal/service/detect"
)

// iconPatterns are the icon file types offered when the icon must be located.
//
//nolint:gochecknoglobals // Read-only list.
var iconPatterns = []string{"*.png", "*.svg", "*.jpg", "*.ico"}

// mergeRecipe fills every input the caller left empty from the recipe.
// PatchPaths is taken from the recipe unless patchSet says it was given explicitly.
func mergeRecipe(in *bundle.Inputs, recipe *config.Recipe, patchSet bool) {
	if recipe == nil {
		return
	}

	if in.AppName == "" {
		in.AppName = recipe.Name
	}

	if in.Executable == "" {
		in.Executable = recipe.Executable
	}

	if in.Icon == "" {
		in.Icon = recipe.Icon
	}

	if len(in.SupportDirs) == 0 {
		in.SupportDirs = append([]string(nil), recipe.SupportDirs...)
	}

	if !patchSet {
		in.PatchPaths = recipe.PatchPaths
	}
}

// toRecipe converts resolved inputs back into a recipe.
func toRecipe(in *bundle.Inputs) *config.Recipe {
	return &config.Recipe{
		Name:        in.AppName,
		Executable:  in.Executable,
		Icon:        in.Icon,
		SupportDirs: append([]string(nil), in.SupportDirs...),
		PatchPaths:  in.PatchPaths,
	}
}

// resolveInputs makes every path absolute and existing, asking the locator
// for the ones that are missing. It returns the resolved support dirs.
func (b *builder) resolveInputs(ctx context.Context) ([]string, error) {
	in := b.inputs

	baseDir, err := bundle.BaseDir(in.Executable)
	if err != nil {
		return nil, fmt.Errorf("resolve base directory: %w", err)
	}

	if in.Executable, err = b.resolveFile(ctx, in.Executable, "Select Executable", baseDir); err != nil {
		return nil, err
	}

	// A located executable moves the bundle root along with it.
	baseDir = filepath.Dir(in.Executable)

	if in.Icon, err = b.resolveFile(ctx, in.Icon, "Select Icon", baseDir, iconPatterns...); err != nil {
		return nil, err
	}

	if len(in.SupportDirs) == 0 && detect.IsFlutterBundle(baseDir) {
		in.SupportDirs = detect.FlutterSupportDirs()
		b.flutter = true

		logger.InfoKV(ctx, "Detected possible Flutter app, adding supporting folders",
			"folders", in.SupportDirs)
	}

	resolved := make([]string, 0, len(in.SupportDirs))

	for i, dir := range in.SupportDirs {
		path := dir
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, dir)
		}

		if !isDir(path) {
			logger.WarnKV(ctx, "Supporting folder not found", "folder", path)

			if path, err = b.locator.LocateDir(ctx, fmt.Sprintf("Select %s Folder", dir), baseDir); err != nil {
				return nil, err
			}

			if path, err = filepath.Abs(path); err != nil {
				return nil, fmt.Errorf("absolute path of %s: %w", dir, err)
			}

			// Saved recipes must point at the located folder, not the missing one.
			in.SupportDirs[i] = path
		}

		resolved = append(resolved, filepath.Clean(path))
	}

	return resolved, nil
}

// resolveFile returns an absolute path to an existing file, locating it if needed.
func (b *builder) resolveFile(
	ctx context.Context,
	path, message, baseDir string,
	patterns ...string,
) (string, error) {
	if path == "" || !isFile(path) {
		if path != "" {
			logger.WarnKV(ctx, "File not found", "path", path)
		}

		located, err := b.locator.LocateFile(ctx, message, baseDir, patterns...)
		if err != nil {
			return "", err
		}

		path = located
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("absolute path of %s: %w", path, err)
	}

	return abs, nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
