package bundle

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

const (
	// AppImageExtension is appended to the artifact base for the final image.
	AppImageExtension = ".AppImage"
	// AppDirExtension is appended to the artifact base for the staging directory.
	AppDirExtension = ".AppDir"
	// DesktopExtension is appended to the lowercased artifact base for the desktop entry.
	DesktopExtension = ".desktop"
	// LauncherName is the entry point appimagetool expects at the AppDir root.
	LauncherName = "AppRun"
)

// ErrAppNameRequired is returned when the application name is blank.
var ErrAppNameRequired = errors.New("app name is required")

// Inputs are the user-supplied values for one packaging run.
type Inputs struct {
	// AppName is the human-readable application name.
	AppName string
	// Executable is the path of the prebuilt binary.
	Executable string
	// Icon is the path of the application icon.
	Icon string
	// SupportDirs are folders copied next to the executable, either
	// relative to the executable's directory or absolute.
	SupportDirs []string
	// PatchPaths enables the experimental absolute path rewrite.
	PatchPaths bool
}

// Normalize trims whitespace from every field and drops blank support dirs.
func (in *Inputs) Normalize() {
	in.AppName = strings.TrimSpace(in.AppName)
	in.Executable = strings.TrimSpace(in.Executable)
	in.Icon = strings.TrimSpace(in.Icon)

	dirs := in.SupportDirs[:0]
	for _, dir := range in.SupportDirs {
		if dir = strings.TrimSpace(dir); dir != "" {
			dirs = append(dirs, dir)
		}
	}

	in.SupportDirs = dirs
}

// Validate checks the fields that cannot be located interactively.
func (in *Inputs) Validate() error {
	if strings.TrimSpace(in.AppName) == "" {
		return ErrAppNameRequired
	}

	return nil
}

// ParseSupportDirs splits a comma-separated folder list.
func ParseSupportDirs(csv string) []string {
	var dirs []string

	for _, part := range strings.Split(csv, ",") {
		if part = strings.TrimSpace(part); part != "" {
			dirs = append(dirs, part)
		}
	}

	return dirs
}

// ArtifactBase returns the application name with all spaces removed.
func ArtifactBase(appName string) string {
	return strings.ReplaceAll(appName, " ", "")
}

// AppImageFilename returns the output image filename, e.g. "MyApp.AppImage".
func AppImageFilename(appName string) string {
	return ArtifactBase(appName) + AppImageExtension
}

// AppDirName returns the staging directory name, e.g. "MyApp.AppDir".
func AppDirName(appName string) string {
	return ArtifactBase(appName) + AppDirExtension
}

// DesktopFilename returns the desktop entry filename, e.g. "myapp.desktop".
func DesktopFilename(appName string) string {
	return strings.ToLower(ArtifactBase(appName)) + DesktopExtension
}

// IconKey returns the icon name used by the desktop entry: basename without extension.
func IconKey(iconPath string) string {
	base := filepath.Base(iconPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// BaseDir returns the directory holding the executable, or the working
// directory when no executable has been given yet.
func BaseDir(executable string) (string, error) {
	if executable != "" {
		return filepath.Dir(executable), nil
	}

	return os.Getwd()
}
