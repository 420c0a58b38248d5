// Package config defines builder settings and saved build recipes, and
// provides helpers to load, validate and save them in YAML format.
//
// Settings cover where appimagetool comes from, the path patch prefixes,
// the smoke test timeout and desktop entry categories. A recipe holds the
// per-application inputs so a bundle can be rebuilt without retyping them.
package config
