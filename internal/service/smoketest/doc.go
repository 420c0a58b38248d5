// Package smoketest launches a freshly built AppImage to check it starts.
//
// A process still alive after the timeout counts as started (GUI apps do not
// exit on their own) and is killed together with everything it spawned.
package smoketest
