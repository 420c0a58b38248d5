package toolchain

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	shellquote "github.com/kballard/go-shellquote"

	"github.com/oshokin/appimage-builder/internal/logger"
)

// errToolFailed wraps a non-zero appimagetool exit.
var errToolFailed = errors.New("appimagetool failed")

// ParseExtraArgs splits a shell-quoted argument string.
func ParseExtraArgs(s string) ([]string, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	args, err := shellquote.Split(s)
	if err != nil {
		return nil, fmt.Errorf("parse extra tool arguments: %w", err)
	}

	return args, nil
}

// Build runs `tool [extraArgs...] appDir output` and marks the output executable.
func Build(ctx context.Context, tool, appDir, output string, extraArgs []string) error {
	ctx = logger.WithName(ctx, "toolchain")

	args := append(append([]string(nil), extraArgs...), appDir, output)

	//nolint:gosec // The tool path is chosen by the user or resolved from our cache.
	cmd := exec.CommandContext(ctx, tool, args...)
	cmd.Env = os.Environ()

	if arch, err := HostArch(); err == nil {
		cmd.Env = append(cmd.Env, "ARCH="+arch)
	}

	logger.InfoKV(ctx, "Running appimagetool", "command", shellquote.Join(append([]string{tool}, args...)...))

	out, err := cmd.CombinedOutput()
	if len(out) > 0 {
		logger.DebugKV(ctx, "appimagetool output", "output", string(out))
	}

	if err != nil {
		if printed := strings.TrimSpace(string(out)); printed != "" {
			return fmt.Errorf("%w: %s: %w", errToolFailed, printed, err)
		}

		return fmt.Errorf("%w: %w", errToolFailed, err)
	}

	if err = os.Chmod(output, ToolFileMode); err != nil {
		return fmt.Errorf("make image executable: %w", err)
	}

	return nil
}
