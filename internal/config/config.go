package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the packaging settings shared by all builder commands.
type Config struct {
	// Tool describes where appimagetool comes from and how it is invoked.
	Tool Tool `yaml:"tool"`
	// Patch configures the optional absolute path rewrite.
	Patch Patch `yaml:"patch"`
	// Launch configures the smoke test run of the produced image.
	Launch Launch `yaml:"launch"`
	// Desktop configures the generated desktop entry.
	Desktop Desktop `yaml:"desktop"`
}

// Tool configures the external packaging tool.
type Tool struct {
	// Path is an explicit appimagetool location. When set, nothing is downloaded.
	Path string `yaml:"path,omitempty"`
	// CacheDir is where downloaded tools are kept between runs.
	CacheDir string `yaml:"cache_dir,omitempty"`
	// URLTemplate is the download URL; {{.Arch}} expands to x86_64 or aarch64.
	URLTemplate string `yaml:"url_template"`
	// Checksum is an optional base64 SHA-512 of the downloaded tool.
	Checksum string `yaml:"checksum,omitempty"`
	// ExtraArgs is a shell-quoted string of additional appimagetool arguments.
	ExtraArgs string `yaml:"extra_args,omitempty"`
}

// Patch holds the search and replacement prefixes for path patching.
type Patch struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// Launch configures the smoke test.
type Launch struct {
	// Timeout is how long the image may run before it is considered started.
	Timeout time.Duration `yaml:"timeout"`
}

// Desktop configures the generated .desktop entry.
type Desktop struct {
	Categories string `yaml:"categories"`
}

const (
	// DefaultConfigFilename is the default filename for builder settings.
	DefaultConfigFilename = "appimage-builder.yaml"

	// DefaultToolURLTemplate points at the continuous appimagetool release.
	DefaultToolURLTemplate = "https://github.com/AppImage/AppImageKit/releases/download/continuous/appimagetool-{{.Arch}}.AppImage"

	// DefaultPatchFrom is the absolute prefix searched for in executables.
	DefaultPatchFrom = "/usr"

	// DefaultPatchTo replaces DefaultPatchFrom; same length keeps binary offsets intact.
	DefaultPatchTo = "././"

	// DefaultLaunchTimeout matches the time a GUI app gets to crash on startup.
	DefaultLaunchTimeout = 5 * time.Second

	// DefaultCategories is written to the desktop entry.
	DefaultCategories = "Utility;"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errNegativeTimeout is returned for a launch timeout below zero.
	errNegativeTimeout = errors.New("launch timeout must not be negative")
	// errEmptyPatchFrom is returned when the patch search prefix is blank.
	errEmptyPatchFrom = errors.New("patch source prefix must not be empty")
)

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := new(Config)
	_ = Validate(cfg)

	return cfg
}

// Load reads configuration from the provided path and validates it.
// A missing file at the default location yields the defaults.
func Load(path string) (*Config, error) {
	explicit := path != "" && path != DefaultConfigFilename
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return Default(), nil
		}

		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills in defaults and checks the values that cannot be defaulted.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if strings.TrimSpace(cfg.Tool.URLTemplate) == "" {
		cfg.Tool.URLTemplate = DefaultToolURLTemplate
	}

	tmpl, err := template.New("url").Option("missingkey=error").Parse(cfg.Tool.URLTemplate)
	if err != nil {
		return fmt.Errorf("invalid tool URL template: %w", err)
	}

	var sample strings.Builder
	if err = tmpl.Execute(&sample, map[string]string{"Arch": "x86_64"}); err != nil {
		return fmt.Errorf("invalid tool URL template: %w", err)
	}

	if _, err = url.ParseRequestURI(sample.String()); err != nil {
		return fmt.Errorf("invalid tool URL: %w", err)
	}

	if cfg.Patch.From == "" && cfg.Patch.To == "" {
		cfg.Patch.From = DefaultPatchFrom
		cfg.Patch.To = DefaultPatchTo
	}

	if cfg.Patch.From == "" {
		return errEmptyPatchFrom
	}

	switch {
	case cfg.Launch.Timeout < 0:
		return errNegativeTimeout
	case cfg.Launch.Timeout == 0:
		cfg.Launch.Timeout = DefaultLaunchTimeout
	}

	if strings.TrimSpace(cfg.Desktop.Categories) == "" {
		cfg.Desktop.Categories = DefaultCategories
	}

	return nil
}
