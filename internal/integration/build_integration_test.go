package integration

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/appimage-builder/internal/config"
	"github.com/oshokin/appimage-builder/internal/domain/bundle"
	"github.com/oshokin/appimage-builder/internal/service/builder"
	"github.com/oshokin/appimage-builder/internal/service/smoketest"
)

// fakeAppImageTool copies the AppDir next to the image and writes an image
// that starts the copied AppRun, so the launch check runs real staged files.
const fakeAppImageTool = `#!/bin/sh
cp -R "$1" "$2.squashfs-root"
printf '#!/bin/sh\nexec "%s/AppRun" "$@"\n' "$2.squashfs-root" > "$2"
`

// TestBuild_DefaultsToWorkingDirectory builds a GUI-like Flutter bundle using
// the default settings file and output location, and kills it after the timeout.
func TestBuild_DefaultsToWorkingDirectory(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("the builder only runs on Linux")
	}

	// Setup test directory and change working directory.
	dir := t.TempDir()
	chdir(t, dir)

	bundleDir := filepath.Join(dir, "bundle")
	files := map[string]string{
		"bundle/hello_flutter":                     "#!/bin/sh\nexec sleep 60\n",
		"bundle/data/icudtl.dat":                   "icu",
		"bundle/data/flutter_assets/AssetManifest": "{}",
		"bundle/lib/libapp.so":                     "elf",
		"tools/appimagetool":                       fakeAppImageTool,
		"hello.svg":                                "<svg/>",
	}
	for name, contents := range files {
		require.NoError(t, os.MkdirAll(filepath.Dir(name), 0o755))
		require.NoError(t, os.WriteFile(name, []byte(contents), 0o755))
	}

	settings := &config.Config{
		Tool:   config.Tool{Path: filepath.Join(dir, "tools", "appimagetool")},
		Launch: config.Launch{Timeout: 500 * time.Millisecond},
	}
	require.NoError(t, config.Save(config.DefaultConfigFilename, settings))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	options := &builder.Options{
		ConfigPath: config.DefaultConfigFilename,
		Inputs: bundle.Inputs{
			AppName:    " Hello Flutter ",
			Executable: filepath.Join(bundleDir, "hello_flutter"),
			Icon:       "hello.svg",
		},
	}

	result, err := builder.Run(ctx, options)
	require.NoError(t, err)
	require.Equal(t, smoketest.StatusRunning, result.Launch.Status)
	require.True(t, result.FlutterDetected)

	// The image lands in the working directory.
	_, err = os.Stat(filepath.Join(dir, "HelloFlutter.AppImage"))
	require.NoError(t, err)

	// The tool saw the full staged tree.
	staged := filepath.Join(dir, "HelloFlutter.AppImage.squashfs-root")
	for _, rel := range []string{
		"AppRun",
		"hello_flutter",
		"hello.svg",
		"helloflutter.desktop",
		"data/flutter_assets/AssetManifest",
		"lib/libapp.so",
	} {
		_, err = os.Stat(filepath.Join(staged, rel))
		require.NoError(t, err, rel)
	}

	_, err = os.Stat(filepath.Join(dir, "HelloFlutter.AppDir"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
