package prompt

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"golang.org/x/term"
)

var (
	// ErrNotInteractive is returned when a path is missing and nobody can be asked.
	ErrNotInteractive = errors.New("path not found and no terminal to ask on")
	// ErrCancelled is returned when the user leaves a prompt empty or interrupts it.
	ErrCancelled = errors.New("selection cancelled")

	errNotAFile        = errors.New("not a regular file")
	errNotADirectory   = errors.New("not a directory")
	errPatternMismatch = errors.New("file type not accepted")
)

// Locator finds a file or directory when the configured one is missing.
type Locator interface {
	// LocateFile returns the path of an existing regular file. Patterns are
	// filepath.Match globs on the basename; none means any file is accepted.
	LocateFile(ctx context.Context, message, baseDir string, patterns ...string) (string, error)
	// LocateDir returns the path of an existing directory.
	LocateDir(ctx context.Context, message, baseDir string) (string, error)
}

// Auto returns a terminal locator when stdin is a terminal, NonInteractive otherwise.
//
//nolint:ireturn // Callers only need the behaviour.
func Auto() Locator {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		return NewSurveyLocator()
	}

	return NonInteractive{}
}

// NonInteractive never asks; every lookup fails with ErrNotInteractive.
type NonInteractive struct{}

// LocateFile implements Locator.
func (NonInteractive) LocateFile(_ context.Context, message, _ string, _ ...string) (string, error) {
	return "", fmt.Errorf("%s: %w", message, ErrNotInteractive)
}

// LocateDir implements Locator.
func (NonInteractive) LocateDir(_ context.Context, message, _ string) (string, error) {
	return "", fmt.Errorf("%s: %w", message, ErrNotInteractive)
}

// SurveyLocator asks on the terminal.
type SurveyLocator struct {
	opts []survey.AskOpt
}

// NewSurveyLocator creates a locator using the process stdio.
func NewSurveyLocator(opts ...survey.AskOpt) *SurveyLocator {
	return &SurveyLocator{opts: opts}
}

// LocateFile implements Locator.
func (s *SurveyLocator) LocateFile(ctx context.Context, message, baseDir string, patterns ...string) (string, error) {
	help := "Path of an existing file, relative paths start at " + baseDir
	if len(patterns) > 0 {
		help += " (" + strings.Join(patterns, " ") + ")"
	}

	return s.ask(ctx, message, help, baseDir, func(path string) error {
		return checkFile(path, patterns)
	})
}

// LocateDir implements Locator.
func (s *SurveyLocator) LocateDir(ctx context.Context, message, baseDir string) (string, error) {
	help := "Path of an existing folder, relative paths start at " + baseDir

	return s.ask(ctx, message, help, baseDir, checkDir)
}

func (s *SurveyLocator) ask(
	ctx context.Context,
	message, help, baseDir string,
	check func(string) error,
) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	validator := func(answer any) error {
		text, _ := answer.(string)
		if strings.TrimSpace(text) == "" {
			return nil
		}

		return check(resolve(baseDir, text))
	}

	var answer string

	prompt := &survey.Input{Message: message + ":", Help: help}

	opts := append([]survey.AskOpt{survey.WithValidator(validator)}, s.opts...)
	if err := survey.AskOne(prompt, &answer, opts...); err != nil {
		if errors.Is(err, terminal.InterruptErr) {
			return "", fmt.Errorf("%s: %w", message, ErrCancelled)
		}

		return "", fmt.Errorf("prompt %q: %w", message, err)
	}

	if strings.TrimSpace(answer) == "" {
		return "", fmt.Errorf("%s: %w", message, ErrCancelled)
	}

	return resolve(baseDir, answer), nil
}

// resolve expands a prompt answer relative to baseDir.
func resolve(baseDir, answer string) string {
	answer = strings.TrimSpace(answer)
	if filepath.IsAbs(answer) {
		return filepath.Clean(answer)
	}

	return filepath.Join(baseDir, answer)
}

func checkFile(path string, patterns []string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s: %w", path, errNotAFile)
	}

	return matchPatterns(path, patterns)
}

func checkDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	if !info.IsDir() {
		return fmt.Errorf("%s: %w", path, errNotADirectory)
	}

	return nil
}

// matchPatterns reports errPatternMismatch unless the basename matches one
// of the patterns, compared case-insensitively.
func matchPatterns(path string, patterns []string) error {
	if len(patterns) == 0 {
		return nil
	}

	base := strings.ToLower(filepath.Base(path))
	for _, pattern := range patterns {
		if ok, _ := filepath.Match(strings.ToLower(pattern), base); ok {
			return nil
		}
	}

	return fmt.Errorf("%s, want %s: %w", path, strings.Join(patterns, " "), errPatternMismatch)
}
