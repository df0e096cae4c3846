// Package index fetches the remote release index.
//
// The client downloads the JSON index document on every run, keeps a
// scratch copy under the installation root for inspection, and decodes it
// into the release.Index domain type. The scratch copy is overwritten each
// run and is not a cache.
package index
