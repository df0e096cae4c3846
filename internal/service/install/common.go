package install

import (
	"context"
	"crypto"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/toolpin/toolpin/internal/logger"

	// Ensure SHA256 is available for checksum calculation.
	_ "crypto/sha256"
)

var errHashUnavailable = errors.New("hash function unavailable")

const (
	// ChecksumFunction is used to verify downloaded release archives.
	ChecksumFunction crypto.Hash = crypto.SHA256

	// DefaultDirMode is used when creating install directories.
	DefaultDirMode os.FileMode = 0o755

	// baseExecutableName is the toolpin binary name without platform extension.
	baseExecutableName = "toolpin"

	// markerLifetime is the period after which a stale run marker is ignored.
	markerLifetime = 30 * time.Second
)

// fileChecksum returns the hex checksum of a file using ChecksumFunction.
func fileChecksum(path string) (string, error) {
	if !ChecksumFunction.Available() {
		return "", fmt.Errorf("checksum calculation not possible: %w", errHashUnavailable)
	}

	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return "", err
	}

	defer func() {
		_ = file.Close()
	}()

	hasher := ChecksumFunction.New()
	if _, err = io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("calculate checksum: %w", err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// isRunnerActive checks presence of the run marker and attempts recovery
// when it looks stale.
func isRunnerActive(ctx context.Context, markerPath string) bool {
	fileInfo, err := os.Stat(markerPath)
	if err == nil {
		if time.Since(fileInfo.ModTime()) <= markerLifetime {
			return true
		}

		logger.Info(ctx, "The run marker is too old, attempting cleanup")

		if err = terminateProcessByName(executableName()); err != nil {
			return true
		}

		if err = os.Remove(markerPath); err != nil {
			return true
		}

		return false
	}

	if errors.Is(err, os.ErrNotExist) {
		return false
	}

	logger.Infof(ctx, "Unable to read run marker: %v", err)

	return false
}

// terminateProcessByName tries to kill processes with the provided executable name.
func terminateProcessByName(processName string) error {
	processList, err := ps.Processes()
	if err != nil {
		return err
	}

	thisProcessID := os.Getpid()

	for _, process := range processList {
		if process.Pid() == thisProcessID {
			continue
		}

		if process.Executable() != processName {
			continue
		}

		var runningProcess *os.Process

		runningProcess, err = os.FindProcess(process.Pid())
		if err != nil {
			return err
		}

		if err = runningProcess.Kill(); err != nil {
			return err
		}
	}

	return nil
}

// executableName returns the toolpin binary name for the current platform.
func executableName() string {
	if strings.Contains(strings.ToLower(runtime.GOOS), "windows") {
		return baseExecutableName + ".exe"
	}

	return baseExecutableName
}
