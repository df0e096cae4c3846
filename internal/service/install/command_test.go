package install

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/toolpin/toolpin/internal/config"
	"github.com/toolpin/toolpin/internal/domain/release"
	"github.com/toolpin/toolpin/internal/repository/store"
)

// testEnv wires an HTTP release server and a settings file around a temp root.
type testEnv struct {
	root      string
	cfgPath   string
	shasum    string
	downloads atomic.Int32
}

// newTestEnv serves an index publishing the archive under every identifier in
// versions, plus the archive itself, and writes a matching settings file.
func newTestEnv(t *testing.T, archive []byte, versions ...string) *testEnv {
	t.Helper()

	env := &testEnv{
		root: t.TempDir(),
	}

	// Keep an ambient override from leaking into the settings file root.
	t.Setenv(config.RootEnvVar, "")

	archivePath := filepath.Join(t.TempDir(), "release.tar.gz")
	require.NoError(t, os.WriteFile(archivePath, archive, 0o644))

	var err error

	env.shasum, err = fileChecksum(archivePath)
	require.NoError(t, err)

	var serverURL string

	mux := http.NewServeMux()
	mux.HandleFunc("/index.json", func(w http.ResponseWriter, _ *http.Request) {
		idx := make(release.Index, len(versions))
		for _, identifier := range versions {
			idx[identifier] = map[string]release.Build{
				release.Platform(): {
					Tarball: serverURL + "/release.tar.gz",
					Shasum:  env.shasum,
				},
			}
		}

		_ = json.NewEncoder(w).Encode(idx)
	})
	mux.HandleFunc("/release.tar.gz", func(w http.ResponseWriter, _ *http.Request) {
		env.downloads.Add(1)
		_, _ = w.Write(archive)
	})

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	serverURL = ts.URL

	env.cfgPath = filepath.Join(t.TempDir(), "settings.yaml")
	cfg := &config.Config{
		Root:     env.root,
		IndexURL: ts.URL + "/index.json",
		Profile:  filepath.Join(t.TempDir(), "profile"),
		Timeout:  5 * time.Second,
	}
	require.NoError(t, config.Save(env.cfgPath, cfg))

	return env
}

// run invokes the installer against the test environment.
func (env *testEnv) run(t *testing.T, token string) error {
	t.Helper()

	return Run(context.Background(), &Options{
		ConfigPath:  env.cfgPath,
		Token:       token,
		SkipProfile: true,
	})
}

// TestRun_InstallsAndSwitches covers the first-install scenario: a
// two-component token is normalized, the archive is verified and extracted,
// the checksum is recorded, and the symlink points at the new install.
func TestRun_InstallsAndSwitches(t *testing.T) {
	archive := makeTarGz(t, "toolchain-0.7.0", map[string]string{"bin/tool": "tool"})
	env := newTestEnv(t, archive, "0.7.0")

	require.NoError(t, env.run(t, "0.7"))

	st := store.New(env.root)
	require.Equal(t, "0.7.0", st.ActiveVersion())

	_, err := os.Stat(filepath.Join(st.InstallDir("0.7.0"), "bin", "tool"))
	require.NoError(t, err)

	recorded, err := st.RecordedChecksum("0.7.0")
	require.NoError(t, err)
	require.Equal(t, env.shasum, recorded)

	// Scratch index copy and no leftover run marker.
	_, err = os.Stat(st.ScratchIndexPath())
	require.NoError(t, err)
	_, err = os.Stat(st.MarkerPath())
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestRun_SecondRunIsUpToDate ensures an unchanged index causes no second
// download and no symlink churn.
func TestRun_SecondRunIsUpToDate(t *testing.T) {
	archive := makeTarGz(t, "toolchain-0.7.0", map[string]string{"bin/tool": "tool"})
	env := newTestEnv(t, archive, "0.7.0")

	require.NoError(t, env.run(t, "0.7"))
	require.NoError(t, env.run(t, "0.7"))

	require.Equal(t, int32(1), env.downloads.Load())
	require.Equal(t, "0.7.0", store.New(env.root).ActiveVersion())
}

// TestRun_NoTokenReusesActive ensures an absent token resolves to the
// currently active version rather than latest.
func TestRun_NoTokenReusesActive(t *testing.T) {
	archive := makeTarGz(t, "toolchain", map[string]string{"bin/tool": "tool"})
	env := newTestEnv(t, archive, "0.7.0", release.Latest)

	require.NoError(t, env.run(t, "0.7"))
	require.NoError(t, env.run(t, ""))

	st := store.New(env.root)
	require.Equal(t, "0.7.0", st.ActiveVersion())

	// Only the initial install downloaded anything.
	require.Equal(t, int32(1), env.downloads.Load())

	// "latest" was never recorded.
	_, err := st.RecordedChecksum(release.Latest)
	require.ErrorIs(t, err, store.ErrNotFound)
}

// TestRun_NoTokenNoActiveInstallsLatest ensures a bare invocation with no
// prior install resolves to latest.
func TestRun_NoTokenNoActiveInstallsLatest(t *testing.T) {
	archive := makeTarGz(t, "toolchain", map[string]string{"bin/tool": "tool"})
	env := newTestEnv(t, archive, release.Latest)

	require.NoError(t, env.run(t, ""))

	st := store.New(env.root)
	require.Equal(t, release.Latest, st.ActiveVersion())

	recorded, err := st.RecordedChecksum(release.Latest)
	require.NoError(t, err)
	require.Equal(t, env.shasum, recorded)
}

// TestRun_ChecksumMismatchAborts ensures a corrupt download leaves no
// install directory and no checksum record.
func TestRun_ChecksumMismatchAborts(t *testing.T) {
	archive := makeTarGz(t, "toolchain-0.7.0", map[string]string{"bin/tool": "tool"})
	env := newTestEnv(t, archive, "0.7.0")

	// Poison the recorded index checksum after env setup.
	env.shasum = "0000000000000000000000000000000000000000000000000000000000000000"

	err := env.run(t, "0.7.0")
	require.ErrorIs(t, err, errChecksumMismatch)

	st := store.New(env.root)

	_, err = os.Stat(st.InstallDir("0.7.0"))
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = st.RecordedChecksum("0.7.0")
	require.ErrorIs(t, err, store.ErrNotFound)

	require.Empty(t, st.ActiveVersion())
}

// TestRun_UnknownVersion ensures an identifier absent from the index fails
// with the explicit lookup error.
func TestRun_UnknownVersion(t *testing.T) {
	archive := makeTarGz(t, "toolchain-0.7.0", map[string]string{"bin/tool": "tool"})
	env := newTestEnv(t, archive, "0.7.0")

	err := env.run(t, "9.9.9")
	require.ErrorIs(t, err, release.ErrVersionNotFound)
}

// TestRun_BadToken ensures an unrecognized token surfaces ErrBadToken for
// the CLI's usage path and removes the run marker.
func TestRun_BadToken(t *testing.T) {
	archive := makeTarGz(t, "toolchain-0.7.0", map[string]string{"bin/tool": "tool"})
	env := newTestEnv(t, archive, "0.7.0")

	err := env.run(t, "banana")
	require.ErrorIs(t, err, release.ErrBadToken)

	_, err = os.Stat(store.New(env.root).MarkerPath())
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestRun_RefusesConcurrentRun ensures a fresh run marker blocks a second run.
func TestRun_RefusesConcurrentRun(t *testing.T) {
	archive := makeTarGz(t, "toolchain-0.7.0", map[string]string{"bin/tool": "tool"})
	env := newTestEnv(t, archive, "0.7.0")

	st := store.New(env.root)
	require.NoError(t, st.EnsureLayout())
	require.NoError(t, os.WriteFile(st.MarkerPath(), nil, 0o644))

	err := env.run(t, "0.7.0")
	require.ErrorIs(t, err, errRunnerAlreadyActive)

	// The foreign marker stays in place.
	_, err = os.Stat(st.MarkerPath())
	require.NoError(t, err)
}
