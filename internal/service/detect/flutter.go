package detect

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	dataDir         = "data"
	libDir          = "lib"
	icuDataFile     = "icudtl.dat"
	flutterAssetDir = "flutter_assets"
)

// FlutterSupportDirs are the folders a Flutter bundle needs next to its executable.
func FlutterSupportDirs() []string {
	return []string{dataDir, libDir}
}

// IsFlutterBundle reports whether baseDir looks like a Flutter Linux bundle:
// data/icudtl.dat or data/flutter_assets exists, or lib/ holds a lib*.so file.
func IsFlutterBundle(baseDir string) bool {
	if exists(filepath.Join(baseDir, dataDir, icuDataFile)) ||
		exists(filepath.Join(baseDir, dataDir, flutterAssetDir)) {
		return true
	}

	entries, err := os.ReadDir(filepath.Join(baseDir, libDir))
	if err != nil {
		return false
	}

	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, "lib") && strings.HasSuffix(name, ".so") {
			return true
		}
	}

	return false
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
