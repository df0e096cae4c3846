package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/toolpin/toolpin/internal/config"
)

const (
	// hashesDirname holds one checksum record file per installed version.
	hashesDirname = "hashes"
	// installsDirname holds one extracted archive directory per version.
	installsDirname = "installs"
	// symlinkName is the active-version symlink under the root.
	symlinkName = "current"
	// scratchIndexFilename is the scratch copy of the last fetched index.
	scratchIndexFilename = "index.json"
	// markerFilename marks a toolpin run in progress under this root.
	markerFilename = ".toolpin-lock"

	// dirPermissions is used when creating layout directories.
	dirPermissions = 0o755
)

// ErrNotFound is returned when no checksum record exists for a version.
var ErrNotFound = errors.New("checksum record not found")

// Store persists checksum records, install directories, and the
// active-version symlink under a single root directory.
type Store struct {
	// root is the installation root directory.
	root string
	// mu protects symlink and record mutations within this process.
	mu sync.Mutex
}

// New creates a store rooted at the provided directory.
func New(root string) *Store {
	return &Store{
		root: filepath.Clean(root),
	}
}

// Root returns the installation root directory.
func (s *Store) Root() string {
	return s.root
}

// SymlinkPath returns the path of the active-version symlink.
func (s *Store) SymlinkPath() string {
	return filepath.Join(s.root, symlinkName)
}

// InstallDir returns the install directory for a version identifier.
func (s *Store) InstallDir(identifier string) string {
	return filepath.Join(s.root, installsDirname, identifier)
}

// ScratchIndexPath returns where the fetched release index is written.
func (s *Store) ScratchIndexPath() string {
	return filepath.Join(s.root, scratchIndexFilename)
}

// MarkerPath returns the single-run marker path under the root.
func (s *Store) MarkerPath() string {
	return filepath.Join(s.root, markerFilename)
}

// recordPath returns the checksum record path for a version identifier.
func (s *Store) recordPath(identifier string) string {
	return filepath.Join(s.root, hashesDirname, identifier)
}

// EnsureLayout creates the root, hashes/ and installs/ directories.
func (s *Store) EnsureLayout() error {
	for _, dir := range []string{
		s.root,
		filepath.Join(s.root, hashesDirname),
		filepath.Join(s.root, installsDirname),
	} {
		if err := os.MkdirAll(dir, dirPermissions); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	return nil
}

// ActiveVersion returns the version identifier the symlink currently targets.
// It returns an empty string when the symlink is absent or broken.
func (s *Store) ActiveVersion() string {
	target, err := os.Readlink(s.SymlinkPath())
	if err != nil {
		return ""
	}

	// A link pointing at a removed install directory counts as no version.
	if _, err = os.Stat(s.SymlinkPath()); err != nil {
		return ""
	}

	return filepath.Base(target)
}

// RecordedChecksum returns the checksum recorded at install time for a version.
func (s *Store) RecordedChecksum(identifier string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	contents, err := os.ReadFile(s.recordPath(identifier))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, identifier)
		}

		return "", fmt.Errorf("read checksum record: %w", err)
	}

	return strings.TrimSpace(string(contents)), nil
}

// SetRecordedChecksum writes the verified checksum for a version,
// overwriting any previous record.
func (s *Store) SetRecordedChecksum(identifier, checksum string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.recordPath(identifier)
	if err := os.WriteFile(path, []byte(checksum+"\n"), config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write checksum record: %w", err)
	}

	return nil
}

// RemoveInstallDir deletes the install directory for a version, if present.
func (s *Store) RemoveInstallDir(identifier string) error {
	if err := os.RemoveAll(s.InstallDir(identifier)); err != nil {
		return fmt.Errorf("remove install directory: %w", err)
	}

	return nil
}

// SwitchTo atomically repoints the active-version symlink to the install
// directory of the given identifier. The link is created at a temporary
// name first and renamed over the old one, so readers never observe a
// missing link.
func (s *Store) SwitchTo(identifier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	linkPath := s.SymlinkPath()
	stagedPath := linkPath + ".tmp"

	// Leftover staging link from an interrupted run.
	_ = os.Remove(stagedPath)

	if err := os.Symlink(s.InstallDir(identifier), stagedPath); err != nil {
		return fmt.Errorf("create symlink: %w", err)
	}

	if err := os.Rename(stagedPath, linkPath); err != nil {
		_ = os.Remove(stagedPath)

		return fmt.Errorf("replace symlink: %w", err)
	}

	return nil
}
