// Package bundle contains the core domain types for AppImage packaging.
//
// It defines Inputs (what the user supplies) and the naming rules that turn an
// application name into the AppDir, AppImage and desktop entry filenames.
package bundle
