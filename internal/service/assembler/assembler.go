package assembler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oshokin/appimage-builder/internal/config"
	"github.com/oshokin/appimage-builder/internal/domain/bundle"
	"github.com/oshokin/appimage-builder/internal/logger"
)

const (
	// launcherMode is applied to AppRun.
	launcherMode os.FileMode = 0o755
	// executableBits are forced on the staged executable.
	executableBits os.FileMode = 0o111
	// appDirMode is used for the AppDir root.
	appDirMode os.FileMode = 0o755
)

var (
	errWorkDirRequired    = errors.New("work directory is required")
	errExecutableRequired = errors.New("executable is required")
	errIconRequired       = errors.New("icon is required")
)

// Layout lists everything that goes into the AppDir.
type Layout struct {
	// WorkDir is the directory the AppDir is created in.
	WorkDir string
	// AppName is the human-readable application name.
	AppName string
	// Executable is the resolved path of the application binary.
	Executable string
	// Icon is the resolved path of the application icon.
	Icon string
	// SupportDirs are resolved folders copied into the AppDir by basename.
	SupportDirs []string
	// Categories is the desktop entry Categories value.
	Categories string
}

// Stage creates <WorkDir>/<AppDirName> from scratch and returns its path.
// On error the partially built AppDir is left for the caller to remove.
func Stage(ctx context.Context, layout *Layout) (string, error) {
	if err := layout.validate(); err != nil {
		return "", err
	}

	appDir := filepath.Join(layout.WorkDir, bundle.AppDirName(layout.AppName))
	ctx = logger.WithKV(ctx, "appdir", appDir)

	if err := os.RemoveAll(appDir); err != nil {
		return "", fmt.Errorf("remove stale AppDir: %w", err)
	}

	if err := os.MkdirAll(appDir, appDirMode); err != nil {
		return appDir, fmt.Errorf("create AppDir: %w", err)
	}

	execName := filepath.Base(layout.Executable)

	logger.DebugKV(ctx, "Copying executable", "source", layout.Executable)

	if err := copyFile(layout.Executable, filepath.Join(appDir, execName), executableBits); err != nil {
		return appDir, fmt.Errorf("copy executable: %w", err)
	}

	if err := writeLauncher(appDir, execName); err != nil {
		return appDir, err
	}

	logger.DebugKV(ctx, "Copying icon", "source", layout.Icon)

	if err := copyFile(layout.Icon, filepath.Join(appDir, filepath.Base(layout.Icon)), 0); err != nil {
		return appDir, fmt.Errorf("copy icon: %w", err)
	}

	for _, dir := range layout.SupportDirs {
		if err := ctx.Err(); err != nil {
			return appDir, err
		}

		dest := filepath.Join(appDir, filepath.Base(dir))

		logger.InfoKV(ctx, "Copying supporting folder", "source", dir)

		if err := os.RemoveAll(dest); err != nil {
			return appDir, fmt.Errorf("replace %s: %w", dest, err)
		}

		if err := copyTree(dir, dest); err != nil {
			return appDir, fmt.Errorf("copy supporting folder %s: %w", dir, err)
		}
	}

	if err := writeDesktopEntry(appDir, layout); err != nil {
		return appDir, err
	}

	logger.Info(ctx, "AppDir staged")

	return appDir, nil
}

func (l *Layout) validate() error {
	switch {
	case l.WorkDir == "":
		return errWorkDirRequired
	case l.AppName == "":
		return bundle.ErrAppNameRequired
	case l.Executable == "":
		return errExecutableRequired
	case l.Icon == "":
		return errIconRequired
	}

	if l.Categories == "" {
		l.Categories = config.DefaultCategories
	}

	return nil
}

func writeLauncher(appDir, execName string) error {
	contents, err := renderAppRun(execName)
	if err != nil {
		return err
	}

	path := filepath.Join(appDir, bundle.LauncherName)
	if err = os.WriteFile(path, contents, launcherMode); err != nil {
		return fmt.Errorf("write %s: %w", bundle.LauncherName, err)
	}

	if err = os.Chmod(path, launcherMode); err != nil {
		return fmt.Errorf("chmod %s: %w", bundle.LauncherName, err)
	}

	return nil
}

func writeDesktopEntry(appDir string, layout *Layout) error {
	contents, err := renderDesktopEntry(layout.AppName, bundle.IconKey(layout.Icon), layout.Categories)
	if err != nil {
		return err
	}

	name := bundle.DesktopFilename(layout.AppName)

	//nolint:gosec // Desktop entries are meant to be world-readable.
	if err = os.WriteFile(filepath.Join(appDir, name), contents, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}

	return nil
}
