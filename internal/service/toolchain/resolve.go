package toolchain

import (
	"bytes"
	"context"
	"crypto"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	goupdate "github.com/doitdistributed/go-update"
	"github.com/dustin/go-humanize"
	homedir "github.com/mitchellh/go-homedir"

	"github.com/oshokin/appimage-builder/internal/config"
	"github.com/oshokin/appimage-builder/internal/logger"
	"github.com/oshokin/appimage-builder/internal/version"

	// Ensure SHA512 available for checksum verification.
	_ "crypto/sha512"
)

const (
	// ToolFileMode is applied to the installed tool and to produced images.
	ToolFileMode os.FileMode = 0o755

	// checksumFunction verifies configured tool checksums.
	checksumFunction = crypto.SHA512

	cacheDirMode os.FileMode = 0o755
)

var (
	// ErrBadHTTPStatus is returned when the download server does not answer 200 OK.
	ErrBadHTTPStatus = errors.New("unexpected http status")
	// ErrToolNotFound is returned when a configured tool path does not exist.
	ErrToolNotFound = errors.New("appimagetool not found")
)

// DefaultCacheDir returns ~/.cache/appimage-builder, honouring XDG_CACHE_HOME.
func DefaultCacheDir() (string, error) {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "appimage-builder"), nil
	}

	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("retrieving home directory: %w", err)
	}

	return filepath.Join(home, ".cache", "appimage-builder"), nil
}

// Resolve returns a usable appimagetool path, downloading it when needed.
func Resolve(ctx context.Context, tool *config.Tool) (string, error) {
	ctx = logger.WithName(ctx, "toolchain")

	if tool.Path != "" {
		path, err := homedir.Expand(tool.Path)
		if err != nil {
			return "", fmt.Errorf("expand tool path: %w", err)
		}

		// exec searches $PATH for bare names, so pin the tool to its location.
		if path, err = filepath.Abs(path); err != nil {
			return "", fmt.Errorf("absolute tool path: %w", err)
		}

		if _, err = os.Stat(path); err != nil {
			return "", fmt.Errorf("%s: %w", path, ErrToolNotFound)
		}

		logger.DebugKV(ctx, "Using configured appimagetool", "path", path)

		return path, nil
	}

	arch, err := HostArch()
	if err != nil {
		return "", err
	}

	cacheDir := tool.CacheDir
	if cacheDir == "" {
		if cacheDir, err = DefaultCacheDir(); err != nil {
			return "", err
		}
	} else if cacheDir, err = homedir.Expand(cacheDir); err != nil {
		return "", fmt.Errorf("expand cache dir: %w", err)
	}

	target := filepath.Join(cacheDir, CachedFilename(arch))
	if info, statErr := os.Stat(target); statErr == nil && info.Size() > 0 {
		logger.DebugKV(ctx, "Using cached appimagetool", "path", target)
		return target, nil
	}

	url, err := DownloadURL(tool.URLTemplate, arch)
	if err != nil {
		return "", err
	}

	if err = Download(ctx, url, target, tool.Checksum); err != nil {
		return "", fmt.Errorf("download appimagetool: %w", err)
	}

	return target, nil
}

// Download fetches url and installs it at target with ToolFileMode.
// A non-empty checksum is a base64 SHA-512 the payload must match.
func Download(ctx context.Context, url, target, checksum string) error {
	var expected []byte

	if checksum != "" {
		var err error
		if expected, err = base64.StdEncoding.DecodeString(checksum); err != nil {
			return fmt.Errorf("decode checksum: %w", err)
		}
	}

	logger.InfoKV(ctx, "Downloading appimagetool", "url", url)

	data, err := fetch(ctx, url)
	if err != nil {
		return err
	}

	if err = os.MkdirAll(filepath.Dir(target), cacheDirMode); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	// go-update swaps an existing file, so make sure one is there.
	if _, err = os.Stat(target); errors.Is(err, os.ErrNotExist) {
		placeholder, createErr := os.Create(filepath.Clean(target))
		if createErr != nil {
			return createErr
		}

		_ = placeholder.Close()
	}

	options := goupdate.Options{
		TargetPath: target,
		TargetMode: ToolFileMode,
		Checksum:   expected,
		Hash:       checksumFunction,
	}

	if err = goupdate.Apply(bytes.NewReader(data), options); err != nil {
		if expected != nil {
			_ = os.Remove(target)
		}

		return fmt.Errorf("install %s: %w", target, err)
	}

	if err = os.Chmod(target, ToolFileMode); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Installed appimagetool", "path", target, "size", humanize.Bytes(uint64(len(data))))

	return nil
}

func fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", version.UserAgent())

	response, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s, %s: %w", url, response.Status, ErrBadHTTPStatus)
	}

	return io.ReadAll(response.Body)
}
