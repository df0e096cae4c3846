package install

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// makeTarGz builds a gzipped tarball with a single top-level directory.
func makeTarGz(t *testing.T, topDir string, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer

	gzipWriter := gzip.NewWriter(&buf)
	tarWriter := tar.NewWriter(gzipWriter)

	require.NoError(t, tarWriter.WriteHeader(&tar.Header{
		Name:     topDir + "/",
		Typeflag: tar.TypeDir,
		Mode:     0o755,
	}))

	for name, body := range files {
		require.NoError(t, tarWriter.WriteHeader(&tar.Header{
			Name:     topDir + "/" + name,
			Typeflag: tar.TypeReg,
			Mode:     0o755,
			Size:     int64(len(body)),
		}))

		_, err := tarWriter.Write([]byte(body))
		require.NoError(t, err)
	}

	require.NoError(t, tarWriter.Close())
	require.NoError(t, gzipWriter.Close())

	return buf.Bytes()
}

// writeArchive persists tarball bytes to a temp file and returns its path.
func writeArchive(t *testing.T, data []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "release.tar.gz")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	return path
}

// TestExtractArchive verifies extraction with the top component stripped.
func TestExtractArchive(t *testing.T) {
	t.Parallel()

	archive := makeTarGz(t, "toolchain-0.7.0", map[string]string{
		"bin/tool": "#!/bin/sh\necho tool\n",
		"README":   "hello\n",
	})

	destDir := filepath.Join(t.TempDir(), "0.7.0")
	require.NoError(t, extractArchive(writeArchive(t, archive), destDir))

	contents, err := os.ReadFile(filepath.Join(destDir, "bin", "tool"))
	require.NoError(t, err)
	require.Contains(t, string(contents), "echo tool")

	_, err = os.Stat(filepath.Join(destDir, "README"))
	require.NoError(t, err)

	// The top-level component must not survive.
	_, err = os.Stat(filepath.Join(destDir, "toolchain-0.7.0"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestExtractArchiveRejectsTraversal ensures escaping entries abort extraction.
func TestExtractArchiveRejectsTraversal(t *testing.T) {
	t.Parallel()

	archive := makeTarGz(t, "toolchain-0.7.0", map[string]string{
		"../../evil": "boom",
	})

	destDir := filepath.Join(t.TempDir(), "0.7.0")
	err := extractArchive(writeArchive(t, archive), destDir)
	require.ErrorIs(t, err, errUnsafeArchivePath)
}

// TestStripTopComponent covers entry name normalization.
func TestStripTopComponent(t *testing.T) {
	t.Parallel()

	require.Equal(t, "bin/tool", stripTopComponent("toolchain-0.7.0/bin/tool"))
	require.Equal(t, "bin/tool", stripTopComponent("./toolchain-0.7.0/bin/tool"))
	require.Empty(t, stripTopComponent("toolchain-0.7.0"))
}
