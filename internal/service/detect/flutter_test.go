package detect

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, nil, 0o644))
}

// TestIsFlutterBundle covers each marker on its own and the negative cases.
func TestIsFlutterBundle(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		files []string
		dirs  []string
		want  bool
	}{
		"empty":          {want: false},
		"icu data":       {files: []string{"data/icudtl.dat"}, want: true},
		"flutter assets": {dirs: []string{"data/flutter_assets"}, want: true},
		"engine library": {files: []string{"lib/libflutter_linux_gtk.so"}, want: true},
		"versioned so":   {files: []string{"lib/libfoo.so.1"}, want: false},
		"not lib prefix": {files: []string{"lib/flutter.so"}, want: false},
		"unrelated data": {files: []string{"data/app.dat"}, dirs: []string{"lib"}, want: false},
	}

	for name, tc := range cases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			for _, f := range tc.files {
				touch(t, filepath.Join(dir, f))
			}

			for _, d := range tc.dirs {
				require.NoError(t, os.MkdirAll(filepath.Join(dir, d), 0o755))
			}

			require.Equal(t, tc.want, IsFlutterBundle(dir))
		})
	}
}

// TestFlutterSupportDirs returns a fresh slice each call.
func TestFlutterSupportDirs(t *testing.T) {
	t.Parallel()

	dirs := FlutterSupportDirs()
	require.Equal(t, []string{"data", "lib"}, dirs)

	dirs[0] = "changed"
	require.Equal(t, "data", FlutterSupportDirs()[0])
}
