package release

import (
	"errors"
	"fmt"
	"runtime"
)

var (
	// ErrVersionNotFound is returned when the index has no entry for a version.
	ErrVersionNotFound = errors.New("version not present in release index")
	// ErrPlatformNotFound is returned when a version has no build for the platform.
	ErrPlatformNotFound = errors.New("no build for platform")
)

// Build describes one downloadable release artifact.
type Build struct {
	// Tarball is the URL of the gzipped release archive.
	Tarball string `json:"tarball"`
	// Shasum is the hex SHA-256 checksum of the archive.
	Shasum string `json:"shasum"`
}

// Index is the release index document: version identifier to platform to build.
// The newest build is published under the Latest key.
type Index map[string]map[string]Build

// Lookup returns the build for the given identifier and platform.
func (i Index) Lookup(identifier, platform string) (Build, error) {
	builds, ok := i[identifier]
	if !ok {
		return Build{}, fmt.Errorf("%w: %s", ErrVersionNotFound, identifier)
	}

	build, ok := builds[platform]
	if !ok {
		return Build{}, fmt.Errorf("%w: %s (version %s)", ErrPlatformNotFound, platform, identifier)
	}

	return build, nil
}

// Platform returns the index key for the running platform, e.g. "linux-x64".
func Platform() string {
	arch := runtime.GOARCH
	switch arch {
	case "amd64":
		arch = "x64"
	case "386":
		arch = "x86"
	}

	return runtime.GOOS + "-" + arch
}
