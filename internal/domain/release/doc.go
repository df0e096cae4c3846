// Package release holds the value types of the toolchain release domain:
// parsed versions, token resolution rules, and the release index document
// mapping version identifiers to per-platform builds.
package release
