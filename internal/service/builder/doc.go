// Package builder runs the whole AppImage packaging pipeline.
//
// It resolves the user's inputs (asking for missing paths when possible),
// recognizes Flutter bundles, stages the AppDir, optionally patches absolute
// paths, runs appimagetool and finally launches the image once to check that
// it starts. The staging AppDir is removed on every exit path.
package builder
