package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultRecipeFilename is where --save-recipe writes when no path is given.
const DefaultRecipeFilename = "appimage-recipe.yaml"

// Recipe is a saved set of build inputs, equivalent to a filled-in form.
type Recipe struct {
	Name        string   `yaml:"name"`
	Executable  string   `yaml:"executable"`
	Icon        string   `yaml:"icon"`
	SupportDirs []string `yaml:"support_dirs,omitempty"`
	PatchPaths  bool     `yaml:"patch_paths"`
}

var errRecipeIsNotSet = errors.New("recipe is not set")

// LoadRecipe reads build inputs saved by SaveRecipe.
func LoadRecipe(path string) (*Recipe, error) {
	if path == "" {
		path = DefaultRecipeFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read recipe: %w", err)
	}

	var recipe Recipe
	if err = yaml.Unmarshal(contents, &recipe); err != nil {
		return nil, fmt.Errorf("unmarshal recipe: %w", err)
	}

	return &recipe, nil
}

// SaveRecipe writes build inputs so the same image can be rebuilt later.
func SaveRecipe(path string, recipe *Recipe) error {
	if recipe == nil {
		return errRecipeIsNotSet
	}

	if path == "" {
		path = DefaultRecipeFilename
	}

	data, err := yaml.Marshal(recipe)
	if err != nil {
		return fmt.Errorf("marshal recipe: %w", err)
	}

	if err = os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write recipe: %w", err)
	}

	return nil
}
