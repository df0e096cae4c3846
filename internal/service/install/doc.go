// Package install implements the toolpin run: resolve the requested
// version, fetch the release index, download and verify the archive when
// the recorded checksum differs, extract it into the per-version install
// directory, and switch the active-version symlink.
//
// A marker file under the root refuses concurrent runs; stale markers are
// recovered. The profile PATH offer is a one-time, marker-guarded edit.
package install
