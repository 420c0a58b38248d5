package smoketest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/appimage-builder/internal/config"
	"github.com/oshokin/appimage-builder/internal/logger"
)

// Status describes how the launched image behaved.
type Status string

const (
	// StatusExited means the image exited successfully before the timeout.
	StatusExited Status = "exited"
	// StatusRunning means the image was still running at the timeout and was killed.
	StatusRunning Status = "running"
)

const (
	// outputLimit caps captured stdout and stderr.
	outputLimit = 64 << 10
	// waitDelay bounds waiting for output pipes held open by orphaned children.
	waitDelay = 2 * time.Second
)

// ErrLaunchFailed is returned when the image exits with a non-zero status.
var ErrLaunchFailed = errors.New("image failed to run")

// Outcome is the result of a launch.
type Outcome struct {
	Status   Status
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Message returns a human-readable summary of the outcome.
func (o *Outcome) Message() string {
	if o.Status == StatusRunning {
		return "it is running (GUI app detected)"
	}

	return "it launched successfully"
}

// Run launches path and waits up to timeout for it to exit.
func Run(ctx context.Context, path string, timeout time.Duration) (*Outcome, error) {
	ctx = logger.WithName(ctx, "smoketest")

	if timeout <= 0 {
		timeout = config.DefaultLaunchTimeout
	}

	var stdout, stderr limitedBuffer

	//nolint:gosec // Launching the image we just built is the whole point.
	cmd := exec.Command(path)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	logger.InfoKV(ctx, "Launching image", "path", path, "timeout", timeout.String())

	started := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLaunchFailed, err)
	}

	done := make(chan error, 1)

	go func() {
		done <- cmd.Wait()
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	outcome := &Outcome{}

	select {
	case err := <-done:
		outcome.Status = StatusExited
		outcome.fill(&stdout, &stderr, started)

		if err != nil {
			return outcome, fmt.Errorf("%w: %w, stderr: %s", ErrLaunchFailed, err, nonEmpty(outcome.Stderr))
		}

	case <-timer.C:
		logger.Info(ctx, "Image is still running, stopping it")
		killTree(ctx, cmd.Process.Pid)
		<-done

		outcome.Status = StatusRunning
		outcome.fill(&stdout, &stderr, started)

	case <-ctx.Done():
		killTree(ctx, cmd.Process.Pid)
		<-done

		return nil, ctx.Err()
	}

	logger.InfoKV(ctx, "Launch check finished", "status", string(outcome.Status),
		"duration", outcome.Duration.Round(time.Millisecond).String())

	return outcome, nil
}

func (o *Outcome) fill(stdout, stderr *limitedBuffer, started time.Time) {
	o.Stdout = stdout.String()
	o.Stderr = stderr.String()
	o.Duration = time.Since(started)
}

func nonEmpty(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "none"
	}

	return s
}

// killTree kills pid, its process group and every descendant still alive.
// Descendants are collected first because they are reparented once pid dies.
func killTree(ctx context.Context, pid int) {
	var victims []int

	if processes, err := ps.Processes(); err != nil {
		logger.WarnKV(ctx, "Unable to list processes", "error", err)
	} else {
		victims = descendants(pid, processes)
	}

	_ = syscall.Kill(-pid, syscall.SIGKILL)

	for _, victim := range append([]int{pid}, victims...) {
		process, err := os.FindProcess(victim)
		if err != nil {
			continue
		}

		_ = process.Kill()
	}
}

// descendants returns every transitive child of root.
func descendants(root int, processes []ps.Process) []int {
	children := make(map[int][]int, len(processes))
	for _, p := range processes {
		children[p.PPid()] = append(children[p.PPid()], p.Pid())
	}

	var (
		result []int
		queue  = []int{root}
	)

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, child := range children[current] {
			if child == root {
				continue
			}

			result = append(result, child)
			queue = append(queue, child)
		}
	}

	return result
}

// limitedBuffer keeps the first outputLimit bytes and discards the rest.
type limitedBuffer struct {
	buf bytes.Buffer
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	if room := outputLimit - b.buf.Len(); room > 0 {
		if len(p) > room {
			b.buf.Write(p[:room])
		} else {
			b.buf.Write(p)
		}
	}

	return len(p), nil
}

func (b *limitedBuffer) String() string {
	return b.buf.String()
}
