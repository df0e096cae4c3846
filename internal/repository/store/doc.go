// Package store implements the local installation store.
//
// The Store owns the filesystem layout under the configured root: one
// checksum record per installed version under hashes/, one extracted
// archive per version under installs/, and the "current" symlink selecting
// the active version. All mutations go through the Store so nothing else
// in the codebase touches the layout directly.
package store
