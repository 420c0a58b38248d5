// Package toolchain obtains appimagetool and runs it against a staged AppDir.
//
// The tool is taken from an explicit path, from the per-user cache, or
// downloaded for the host architecture and installed atomically into the cache.
package toolchain
