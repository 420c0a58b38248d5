// Package patcher rewrites absolute path prefixes inside staged executables.
//
// The rewrite is experimental: it replaces every occurrence of a prefix such
// as /usr with a same-length relative one such as ././ so that string tables
// in binaries keep their offsets. It can still break programs and is off by default.
package patcher
