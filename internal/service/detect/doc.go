// Package detect recognizes well-known application bundle layouts.
//
// Only Flutter Linux release bundles are recognized: they ship the engine data
// under data/ and the engine and plugin libraries under lib/.
package detect
