package builder

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/appimage-builder/internal/config"
	"github.com/oshokin/appimage-builder/internal/domain/bundle"
	"github.com/oshokin/appimage-builder/internal/service/prompt"
	"github.com/oshokin/appimage-builder/internal/service/smoketest"
)

// fakeTool stands in for appimagetool: it records the AppDir listing and
// produces an "image" that execs the staged AppRun.
const fakeTool = `#!/bin/sh
appdir="$1"
out="$2"
ls "$appdir" > "$out.listing"
printf '#!/bin/sh\nexec "%s/AppRun" "$@"\n' "$appdir" > "$out"
`

type env struct {
	root       string
	bundleDir  string
	outputDir  string
	configPath string
	executable string
	icon       string
}

func newEnv(t *testing.T, appScript string) *env {
	t.Helper()

	if runtime.GOOS != "linux" {
		t.Skip("the builder only runs on Linux")
	}

	root := t.TempDir()
	e := &env{
		root:       root,
		bundleDir:  filepath.Join(root, "build", "linux", "x64", "release", "bundle"),
		outputDir:  filepath.Join(root, "dist"),
		configPath: filepath.Join(root, "appimage-builder.yaml"),
	}

	e.executable = filepath.Join(e.bundleDir, "my_app")
	e.icon = filepath.Join(root, "assets", "icon.png")

	writeFile(t, e.executable, "#!/bin/sh\n"+appScript+"\n", 0o755)
	writeFile(t, e.icon, "png", 0o644)
	writeFile(t, filepath.Join(e.bundleDir, "data", "icudtl.dat"), "icu", 0o644)
	writeFile(t, filepath.Join(e.bundleDir, "lib", "libapp.so"), "so", 0o755)

	tool := filepath.Join(root, "tools", "appimagetool")
	writeFile(t, tool, fakeTool, 0o755)

	cfg := &config.Config{
		Tool:   config.Tool{Path: tool},
		Launch: config.Launch{Timeout: 5 * time.Second},
	}
	require.NoError(t, config.Save(e.configPath, cfg))

	return e
}

func writeFile(t *testing.T, path, contents string, mode os.FileMode) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(contents), mode))
	require.NoError(t, os.Chmod(path, mode))
}

func (e *env) options(name string) *Options {
	return &Options{
		ConfigPath: e.configPath,
		OutputDir:  e.outputDir,
		Inputs: bundle.Inputs{
			AppName:    name,
			Executable: e.executable,
			Icon:       e.icon,
		},
	}
}

// TestRunFlutterBundle builds and launches a detected Flutter bundle.
func TestRunFlutterBundle(t *testing.T) {
	t.Parallel()

	e := newEnv(t, "echo started")

	result, err := Run(context.Background(), e.options("My App"))
	require.NoError(t, err)

	require.Equal(t, filepath.Join(e.outputDir, "MyApp.AppImage"), result.AppImagePath)
	require.True(t, result.FlutterDetected)
	require.Equal(t, []string{
		filepath.Join(e.bundleDir, "data"),
		filepath.Join(e.bundleDir, "lib"),
	}, result.SupportDirs)
	require.Positive(t, result.Size)

	require.NotNil(t, result.Launch)
	require.Equal(t, smoketest.StatusExited, result.Launch.Status)
	require.Equal(t, "started\n", result.Launch.Stdout)

	info, err := os.Stat(result.AppImagePath)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o755), info.Mode().Perm())

	listing, err := os.ReadFile(result.AppImagePath + ".listing")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"AppRun", "data", "icon.png", "lib", "my_app", "myapp.desktop"},
		strings.Fields(string(listing)))

	// The staging directory is always removed.
	_, err = os.Stat(filepath.Join(e.outputDir, "MyApp.AppDir"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestRunExplicitSupportDirsSkipDetection keeps user-provided folders.
func TestRunExplicitSupportDirsSkipDetection(t *testing.T) {
	t.Parallel()

	e := newEnv(t, "exit 0")
	opts := e.options("App")
	opts.Inputs.SupportDirs = []string{"lib"}
	opts.NoRun = true

	result, err := Run(context.Background(), opts)
	require.NoError(t, err)
	require.False(t, result.FlutterDetected)
	require.Nil(t, result.Launch)
	require.Equal(t, []string{filepath.Join(e.bundleDir, "lib")}, result.SupportDirs)
}

// TestRunLaunchFailure reports a crashing image but still produces it.
func TestRunLaunchFailure(t *testing.T) {
	t.Parallel()

	e := newEnv(t, "echo 'missing libgtk' >&2\nexit 1")

	result, err := Run(context.Background(), e.options("Crashy"))
	require.ErrorIs(t, err, smoketest.ErrLaunchFailed)
	require.Contains(t, err.Error(), "missing libgtk")
	require.NotNil(t, result)

	_, statErr := os.Stat(result.AppImagePath)
	require.NoError(t, statErr)

	_, statErr = os.Stat(filepath.Join(e.outputDir, "Crashy.AppDir"))
	require.ErrorIs(t, statErr, os.ErrNotExist)
}

// TestRunPatchPaths rewrites /usr in the staged executable and warns about it.
func TestRunPatchPaths(t *testing.T) {
	t.Parallel()

	e := newEnv(t, "# data lives in /usr/share/my_app\necho patched")
	opts := e.options("Patched")
	opts.Inputs.PatchPaths = true
	opts.KeepAppDir = true

	result, err := Run(context.Background(), opts)
	require.NoError(t, err)
	require.NotEmpty(t, result.Warnings)
	require.Contains(t, result.Warnings[0], "my_app")

	staged, err := os.ReadFile(filepath.Join(e.outputDir, "Patched.AppDir", "my_app"))
	require.NoError(t, err)
	require.Contains(t, string(staged), "././share/my_app")
	require.NotContains(t, string(staged), "/usr")

	// The source bundle is never modified.
	original, err := os.ReadFile(e.executable)
	require.NoError(t, err)
	require.Contains(t, string(original), "/usr/share/my_app")
}

type fakeLocator struct {
	file string
	dir  string
	asks []string
}

func (f *fakeLocator) LocateFile(_ context.Context, message, _ string, _ ...string) (string, error) {
	f.asks = append(f.asks, message)
	return f.file, nil
}

func (f *fakeLocator) LocateDir(_ context.Context, message, _ string) (string, error) {
	f.asks = append(f.asks, message)
	return f.dir, nil
}

// TestRunLocatesMissingPaths asks the locator for a missing executable and folder.
func TestRunLocatesMissingPaths(t *testing.T) {
	t.Parallel()

	e := newEnv(t, "exit 0")
	extra := filepath.Join(e.root, "shared-assets")
	require.NoError(t, os.MkdirAll(extra, 0o755))

	locator := &fakeLocator{file: e.executable, dir: extra}
	opts := e.options("Located")
	opts.Inputs.Executable = filepath.Join(e.root, "nowhere", "my_app")
	opts.Inputs.SupportDirs = []string{"assets"}
	opts.Locator = locator
	opts.NoRun = true

	result, err := Run(context.Background(), opts)
	require.NoError(t, err)
	require.Equal(t, []string{"Select Executable", "Select assets Folder"}, locator.asks)
	require.Equal(t, []string{extra}, result.SupportDirs)
}

// TestRunSavesLocatedFolders stores located folders so a rebuild does not ask again.
func TestRunSavesLocatedFolders(t *testing.T) {
	t.Parallel()

	e := newEnv(t, "exit 0")
	extra := filepath.Join(e.root, "shared-assets")
	require.NoError(t, os.MkdirAll(extra, 0o755))
	recipe := filepath.Join(e.root, "recipe.yaml")

	opts := e.options("Located")
	opts.Inputs.SupportDirs = []string{"lib", "assets"}
	opts.Locator = &fakeLocator{dir: extra}
	opts.RecipePath = recipe
	opts.SaveRecipe = true
	opts.NoRun = true

	_, err := Run(context.Background(), opts)
	require.NoError(t, err)

	saved, err := config.LoadRecipe(recipe)
	require.NoError(t, err)
	require.Equal(t, []string{"lib", extra}, saved.SupportDirs)

	result, err := Run(context.Background(), &Options{
		ConfigPath: e.configPath,
		RecipePath: recipe,
		OutputDir:  filepath.Join(e.root, "dist2"),
		NoRun:      true,
	})
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(e.bundleDir, "lib"), extra}, result.SupportDirs)
}

// TestRunRecipePatchPathsOverride lets an explicit flag disable recipe patching.
func TestRunRecipePatchPathsOverride(t *testing.T) {
	t.Parallel()

	e := newEnv(t, "# /usr/share/my_app\nexit 0")
	recipe := filepath.Join(e.root, "recipe.yaml")
	require.NoError(t, config.SaveRecipe(recipe, &config.Recipe{
		Name:       "Unpatched",
		Executable: e.executable,
		Icon:       e.icon,
		PatchPaths: true,
	}))

	result, err := Run(context.Background(), &Options{
		ConfigPath:    e.configPath,
		RecipePath:    recipe,
		OutputDir:     e.outputDir,
		NoRun:         true,
		KeepAppDir:    true,
		PatchPathsSet: true,
	})
	require.NoError(t, err)
	require.Empty(t, result.Warnings)

	staged, err := os.ReadFile(filepath.Join(e.outputDir, "Unpatched.AppDir", "my_app"))
	require.NoError(t, err)
	require.Contains(t, string(staged), "/usr/share/my_app")
}

// TestRunNonInteractiveMissingIcon fails instead of prompting.
func TestRunNonInteractiveMissingIcon(t *testing.T) {
	t.Parallel()

	e := newEnv(t, "exit 0")
	opts := e.options("App")
	opts.Inputs.Icon = ""

	_, err := Run(context.Background(), opts)
	require.ErrorIs(t, err, prompt.ErrNotInteractive)
	require.Contains(t, err.Error(), "Select Icon")
}

// TestRunRequiresName rejects a blank application name.
func TestRunRequiresName(t *testing.T) {
	t.Parallel()

	e := newEnv(t, "exit 0")

	_, err := Run(context.Background(), e.options("   "))
	require.ErrorIs(t, err, bundle.ErrAppNameRequired)
}

// TestRunRecipeRoundtrip saves resolved inputs and rebuilds from them.
func TestRunRecipeRoundtrip(t *testing.T) {
	t.Parallel()

	e := newEnv(t, "exit 0")
	recipe := filepath.Join(e.root, "recipe.yaml")

	opts := e.options("From Recipe")
	opts.RecipePath = recipe
	opts.SaveRecipe = true
	opts.NoRun = true

	_, err := Run(context.Background(), opts)
	require.NoError(t, err)

	saved, err := config.LoadRecipe(recipe)
	require.NoError(t, err)
	require.Equal(t, "From Recipe", saved.Name)
	require.Equal(t, e.executable, saved.Executable)
	require.Equal(t, []string{"data", "lib"}, saved.SupportDirs)

	result, err := Run(context.Background(), &Options{
		ConfigPath: e.configPath,
		RecipePath: recipe,
		OutputDir:  filepath.Join(e.root, "dist2"),
		NoRun:      true,
	})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(e.root, "dist2", "FromRecipe.AppImage"), result.AppImagePath)
}

// TestRunMissingRecipe fails when an explicit recipe does not exist.
func TestRunMissingRecipe(t *testing.T) {
	t.Parallel()

	e := newEnv(t, "exit 0")
	opts := e.options("App")
	opts.RecipePath = filepath.Join(e.root, "missing.yaml")

	_, err := Run(context.Background(), opts)
	require.True(t, errors.Is(err, os.ErrNotExist), err)
}
