package install

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/toolpin/toolpin/internal/config"
	"github.com/toolpin/toolpin/internal/domain/release"
	"github.com/toolpin/toolpin/internal/logger"
	"github.com/toolpin/toolpin/internal/repository/store"
	"github.com/toolpin/toolpin/internal/service/index"
)

var (
	errRunnerAlreadyActive = errors.New("another toolpin run is in progress")
	errChecksumMismatch    = errors.New("checksum mismatch")
	errBadHTTPStatus       = errors.New("unexpected http status")
)

// Options are inputs accepted by the install entry point.
type Options struct {
	// ConfigPath is the optional path to the settings YAML file.
	ConfigPath string
	// Token is the user-supplied version token; empty reuses the active version.
	Token string
	// AssumeYes answers the profile prompt without asking.
	AssumeYes bool
	// SkipProfile disables the profile PATH offer entirely.
	SkipProfile bool
	// Confirmer overrides the interactive prompt; nil uses the terminal.
	Confirmer Confirmer
}

// runner holds the mutable state and helpers for a single run.
// It is intentionally unexported—call Run(ctx, Options) from callers.
type runner struct {
	cfg                *config.Config // Settings loaded from YAML plus defaults.
	store              *store.Store   // Local install store under the root.
	client             *index.Client  // Release index client.
	confirm            Confirmer      // Yes/no prompt for the profile edit.
	opts               *Options       // Caller-supplied inputs.
	httpClient         *http.Client   // Tarball downloads with the configured timeout.
	temporaryDirectory string         // Where the archive lands before verification.
	markerCreated      bool           // Whether cleanup owns the run marker.
}

// Run executes one toolpin invocation and is the public entry point for the CLI.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "toolpin")

	r, err := newRunner(ctx, opts)
	if err != nil {
		return err
	}

	defer r.cleanup(ctx)

	return r.run(ctx)
}

// newRunner loads settings, prepares the store layout, and writes a marker
// to avoid concurrent runs against the same root.
func newRunner(ctx context.Context, opts *Options) (*runner, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	r := &runner{
		cfg:     cfg,
		store:   store.New(cfg.Root),
		confirm: opts.Confirmer,
		opts:    opts,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}

	if r.confirm == nil {
		r.confirm = TerminalConfirmer{}
	}

	if err = r.store.EnsureLayout(); err != nil {
		return nil, err
	}

	if isRunnerActive(ctx, r.store.MarkerPath()) {
		return nil, errRunnerAlreadyActive
	}

	marker, err := os.Create(r.store.MarkerPath())
	if err != nil {
		return nil, fmt.Errorf("create run marker: %w", err)
	}

	if err = marker.Close(); err != nil {
		return nil, fmt.Errorf("close run marker: %w", err)
	}

	r.markerCreated = true
	r.client = index.NewClient(cfg.IndexURL, r.store.ScratchIndexPath(), cfg.Timeout)

	return r, nil
}

// run executes the workflow: resolve, fetch index, install if needed,
// switch the symlink, then offer the profile edit.
func (r *runner) run(ctx context.Context) error {
	identifier, err := release.Resolve(r.opts.Token, r.store.ActiveVersion())
	if err != nil {
		return err
	}

	ctx = logger.WithKV(ctx, "version", identifier)

	logger.Info(ctx, "Fetching release index")

	idx, err := r.client.Fetch(ctx)
	if err != nil {
		return err
	}

	build, err := idx.Lookup(identifier, release.Platform())
	if err != nil {
		return err
	}

	upToDate, err := r.isUpToDate(identifier, build.Shasum)
	if err != nil {
		return err
	}

	if upToDate {
		logger.Info(ctx, "Already installed and up to date")
	} else if err = r.downloadAndInstall(ctx, identifier, build); err != nil {
		return err
	}

	if err = r.switchIfNeeded(ctx, identifier); err != nil {
		return err
	}

	r.offerProfileEntry(ctx)

	return nil
}

// isUpToDate reports whether the recorded checksum matches the index checksum.
// A missing record means a download is needed.
func (r *runner) isUpToDate(identifier, indexChecksum string) (bool, error) {
	recorded, err := r.store.RecordedChecksum(identifier)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}

		return false, err
	}

	return recorded == indexChecksum, nil
}

// downloadAndInstall fetches the archive into a temporary directory,
// verifies its checksum, extracts it, and records the verified checksum.
func (r *runner) downloadAndInstall(ctx context.Context, identifier string, build release.Build) error {
	temporaryDirectory, err := os.MkdirTemp("", "toolpin-")
	if err != nil {
		return fmt.Errorf("create temporary directory: %w", err)
	}

	// Removed by cleanup in every path, including checksum mismatch.
	r.temporaryDirectory = temporaryDirectory

	archivePath := filepath.Join(temporaryDirectory, "release.tar.gz")

	logger.InfoKV(ctx, "Downloading release archive", "url", build.Tarball)

	if err = r.downloadFile(ctx, build.Tarball, archivePath); err != nil {
		return err
	}

	actual, err := fileChecksum(archivePath)
	if err != nil {
		return err
	}

	if actual != build.Shasum {
		return fmt.Errorf(
			"%w for %s: index says %s, downloaded file is %s; try re-running",
			errChecksumMismatch, identifier, build.Shasum, actual,
		)
	}

	// A half-populated directory from an interrupted run has no checksum
	// record, so it lands here and is replaced wholesale.
	if err = r.store.RemoveInstallDir(identifier); err != nil {
		return err
	}

	if err = extractArchive(archivePath, r.store.InstallDir(identifier)); err != nil {
		return err
	}

	if err = r.store.SetRecordedChecksum(identifier, build.Shasum); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Installed release", "directory", r.store.InstallDir(identifier))

	return nil
}

// downloadFile streams a URL into the destination path.
func (r *runner) downloadFile(ctx context.Context, url, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("build download request: %w", err)
	}

	response, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("download archive: %w", err)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("%s, %s: %w", url, response.Status, errBadHTTPStatus)
	}

	outputFile, err := os.Create(destPath)
	if err != nil {
		return err
	}

	if _, err = io.Copy(outputFile, response.Body); err != nil {
		_ = outputFile.Close()

		return fmt.Errorf("write archive: %w", err)
	}

	return outputFile.Close()
}

// switchIfNeeded repoints the symlink when the active version differs.
// A matching active version performs no filesystem mutation.
func (r *runner) switchIfNeeded(ctx context.Context, identifier string) error {
	if r.store.ActiveVersion() == identifier {
		logger.Debug(ctx, "Active version already selected")
		return nil
	}

	if err := r.store.SwitchTo(identifier); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Switched active version", "target", r.store.InstallDir(identifier))

	return nil
}

// cleanup removes temporary artifacts and the run marker.
func (r *runner) cleanup(ctx context.Context) {
	if r.markerCreated {
		_ = os.Remove(r.store.MarkerPath())
	}

	if r.temporaryDirectory != "" {
		_ = os.RemoveAll(r.temporaryDirectory)
	}

	logger.Debug(ctx, "Run finished")
}
