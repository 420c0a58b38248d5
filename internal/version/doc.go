// Package version exposes build metadata for appimage-builder.
//
// Version, Commit and BuildTime are injected at build time via Go ldflags.
package version
