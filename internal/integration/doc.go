// Package integration holds end-to-end tests that run the packaging pipeline
// against fake appimagetool binaries.
package integration
