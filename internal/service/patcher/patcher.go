package patcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/karrick/godirwalk"
	"golang.org/x/sys/unix"

	"github.com/oshokin/appimage-builder/internal/logger"
)

// minStringLength mirrors the default minimum run length of strings(1).
const minStringLength = 4

var (
	// ErrLengthMismatch is returned when the replacement would shift binary offsets.
	ErrLengthMismatch = errors.New("replacement must have the same length as the searched prefix")
	// ErrEmptyPrefix is returned when there is nothing to search for.
	ErrEmptyPrefix = errors.New("searched prefix must not be empty")
)

// Report summarizes a patch run.
type Report struct {
	// Patched lists files where at least one occurrence was replaced.
	Patched []string
	// Hardcoded lists executables whose printable strings contain the prefix.
	Hardcoded []string
	// Failures holds per-file errors; the run continues past them.
	Failures []error
}

// Warnings renders the report as human-readable warnings.
func (r *Report) Warnings() []string {
	warnings := make([]string, 0, len(r.Hardcoded)+len(r.Failures))

	for _, path := range r.Hardcoded {
		warnings = append(warnings, fmt.Sprintf(
			"hardcoded path found in %s: auto-patching may not work on binaries, consider manual patching",
			filepath.Base(path)))
	}

	for _, err := range r.Failures {
		warnings = append(warnings, "path patching failed: "+err.Error())
	}

	return warnings
}

// Patch replaces from with to in every executable regular file under root.
func Patch(ctx context.Context, root, from, to string) (*Report, error) {
	if from == "" {
		return nil, ErrEmptyPrefix
	}

	if len(from) != len(to) {
		return nil, fmt.Errorf("%q -> %q: %w", from, to, ErrLengthMismatch)
	}

	ctx = logger.WithName(ctx, "patcher")
	report := new(Report)
	search, replacement := []byte(from), []byte(to)

	err := godirwalk.Walk(root, &godirwalk.Options{
		Unsorted: false,
		Callback: func(path string, de *godirwalk.Dirent) error {
			if err := ctx.Err(); err != nil {
				return err
			}

			if !de.IsRegular() || !isExecutable(path) {
				return nil
			}

			hardcoded, patched, err := patchFile(path, search, replacement)
			if err != nil {
				report.Failures = append(report.Failures, fmt.Errorf("%s: %w", path, err))
				return nil
			}

			if hardcoded {
				logger.WarnKV(ctx, "Hardcoded path found, auto-patching may not work on binaries",
					"file", path, "prefix", from)

				report.Hardcoded = append(report.Hardcoded, path)
			}

			if patched {
				logger.DebugKV(ctx, "Patched file", "file", path)

				report.Patched = append(report.Patched, path)
			}

			return nil
		},
	})
	if err != nil {
		return report, fmt.Errorf("walk %s: %w", root, err)
	}

	return report, nil
}

// isExecutable reports whether the current user may execute path.
func isExecutable(path string) bool {
	return unix.Access(path, unix.X_OK) == nil
}

// patchFile rewrites path in place. hardcoded is true when a printable
// string run contains search; patched is true when anything was replaced.
func patchFile(path string, search, replacement []byte) (hardcoded, patched bool, err error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, false, err
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return false, false, err
	}

	if !bytes.Contains(contents, search) {
		return false, false, nil
	}

	hardcoded = inPrintableRun(contents, search)

	updated := bytes.ReplaceAll(contents, search, replacement)
	if err = os.WriteFile(path, updated, info.Mode().Perm()); err != nil {
		return hardcoded, false, err
	}

	return hardcoded, true, nil
}

// inPrintableRun reports whether search occurs inside a run of printable
// ASCII characters at least minStringLength long, the way strings(1) sees it.
func inPrintableRun(contents, search []byte) bool {
	start := -1

	for i := 0; i <= len(contents); i++ {
		if i < len(contents) && isPrintable(contents[i]) {
			if start < 0 {
				start = i
			}

			continue
		}

		if start >= 0 && i-start >= minStringLength && bytes.Contains(contents[start:i], search) {
			return true
		}

		start = -1
	}

	return false
}

func isPrintable(b byte) bool {
	return b == '\t' || (b >= 0x20 && b < 0x7f)
}
