package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestValidate checks defaults and format validations for Config.
func TestValidate(t *testing.T) {
	t.Parallel()

	cfg := new(Config)
	require.NoError(t, Validate(cfg))
	require.Equal(t, DefaultToolURLTemplate, cfg.Tool.URLTemplate)
	require.Equal(t, DefaultPatchFrom, cfg.Patch.From)
	require.Equal(t, DefaultPatchTo, cfg.Patch.To)
	require.Equal(t, DefaultLaunchTimeout, cfg.Launch.Timeout)
	require.Equal(t, DefaultCategories, cfg.Desktop.Categories)

	// Broken template.
	cfg = &Config{Tool: Tool{URLTemplate: "https://example.com/{{.Arch"}}
	require.Error(t, Validate(cfg))

	// Unknown template key.
	cfg = &Config{Tool: Tool{URLTemplate: "https://example.com/{{.Machine}}"}}
	require.Error(t, Validate(cfg))

	// Not a URL.
	cfg = &Config{Tool: Tool{URLTemplate: "appimagetool-{{.Arch}}"}}
	require.Error(t, Validate(cfg))

	// Negative timeout.
	cfg = &Config{Launch: Launch{Timeout: -time.Second}}
	require.ErrorIs(t, Validate(cfg), errNegativeTimeout)

	// Replacement without a source.
	cfg = &Config{Patch: Patch{To: "././"}}
	require.ErrorIs(t, Validate(cfg), errEmptyPatchFrom)

	require.ErrorIs(t, Validate(nil), errConfigIsNotSet)
}

// TestLoadMissingDefaultFile ensures the default path falls back to defaults.
func TestLoadMissingDefaultFile(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, DefaultLaunchTimeout, cfg.Launch.Timeout)
}

// TestLoadMissingExplicitFile ensures an explicit path must exist.
func TestLoadMissingExplicitFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")

	cfg := &Config{
		Tool: Tool{
			Path:      "/opt/appimagetool",
			ExtraArgs: "--comp zstd",
		},
		Launch: Launch{Timeout: 2 * time.Second},
	}

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.Tool.Path, loaded.Tool.Path)
	require.Equal(t, cfg.Tool.ExtraArgs, loaded.Tool.ExtraArgs)
	require.Equal(t, 2*time.Second, loaded.Launch.Timeout)
	require.Equal(t, DefaultCategories, loaded.Desktop.Categories)
}

// TestRecipeRoundtrip ensures recipes survive a save and load.
func TestRecipeRoundtrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "recipe.yaml")
	want := &Recipe{
		Name:        "My App",
		Executable:  "/build/bundle/my_app",
		Icon:        "/build/icon.png",
		SupportDirs: []string{"data", "lib"},
		PatchPaths:  true,
	}

	require.NoError(t, SaveRecipe(path, want))

	got, err := LoadRecipe(path)
	require.NoError(t, err)
	require.Equal(t, want, got)

	require.ErrorIs(t, SaveRecipe(path, nil), errRecipeIsNotSet)
}
