package install

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/toolpin/toolpin/internal/config"
	"github.com/toolpin/toolpin/internal/logger"
)

// ProfileMarker identifies a prior toolpin edit in a shell profile.
// Once the marker is present the profile is never offered an edit again,
// regardless of the current PATH.
const ProfileMarker = "# toolpin-managed PATH entry"

// offerProfileEntry prompts once to append a PATH export line to the shell
// profile when the symlink directory is not on PATH. Failures here are
// warnings: the install itself has already succeeded.
func (r *runner) offerProfileEntry(ctx context.Context) {
	if r.opts.SkipProfile {
		return
	}

	linkPath := r.store.SymlinkPath()
	if pathListContains(os.Getenv("PATH"), linkPath) {
		return
	}

	profilePath := r.cfg.Profile

	contents, err := os.ReadFile(filepath.Clean(profilePath))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warnf(ctx, "Could not read profile %s: %v", profilePath, err)
		return
	}

	if strings.Contains(string(contents), ProfileMarker) {
		logger.Debug(ctx, "Profile already carries the PATH entry")
		return
	}

	confirmed := r.opts.AssumeYes
	if !confirmed {
		title := fmt.Sprintf("Add %s to PATH in %s?", linkPath, profilePath)

		if confirmed, err = r.confirm.Confirm(title); err != nil {
			logger.Warnf(ctx, "Profile prompt failed: %v", err)
			return
		}
	}

	if !confirmed {
		logger.Info(ctx, "Leaving the shell profile untouched")
		return
	}

	if err = appendProfileEntry(profilePath, linkPath); err != nil {
		logger.Warnf(ctx, "Could not update profile %s: %v", profilePath, err)
		return
	}

	logger.InfoKV(ctx, "Added PATH entry to profile", "profile", profilePath)
}

// appendProfileEntry appends the marker comment and the PATH export line.
func appendProfileEntry(profilePath, linkPath string) error {
	file, err := os.OpenFile(
		filepath.Clean(profilePath),
		os.O_APPEND|os.O_CREATE|os.O_WRONLY,
		config.DefaultFilePermissions,
	)
	if err != nil {
		return err
	}

	entry := fmt.Sprintf("\n%s\nexport PATH=\"%s:$PATH\"\n", ProfileMarker, linkPath)

	if _, err = file.WriteString(entry); err != nil {
		_ = file.Close()

		return err
	}

	return file.Close()
}

// pathListContains reports whether a PATH-style list contains the directory.
func pathListContains(pathList, dir string) bool {
	for _, element := range filepath.SplitList(pathList) {
		if element != "" && filepath.Clean(element) == filepath.Clean(dir) {
			return true
		}
	}

	return false
}
