package install

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var errUnsafeArchivePath = errors.New("archive entry escapes install directory")

// extractArchive unpacks a gzipped tarball into destDir, stripping the
// archive's single top-level directory component.
func extractArchive(srcPath, destDir string) error {
	file, err := os.Open(filepath.Clean(srcPath))
	if err != nil {
		return err
	}

	defer func() {
		_ = file.Close()
	}()

	gzipReader, err := gzip.NewReader(file)
	if err != nil {
		return fmt.Errorf("open gzip stream: %w", err)
	}

	defer func() {
		_ = gzipReader.Close()
	}()

	if err = os.MkdirAll(destDir, DefaultDirMode); err != nil {
		return fmt.Errorf("create install directory: %w", err)
	}

	tarReader := tar.NewReader(gzipReader)

	for {
		header, err := tarReader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("read archive: %w", err)
		}

		relative := stripTopComponent(header.Name)
		if relative == "" {
			// The top-level directory itself.
			continue
		}

		target, err := joinInside(destDir, relative)
		if err != nil {
			return err
		}

		if err = writeEntry(tarReader, header, target); err != nil {
			return err
		}
	}
}

// writeEntry materializes a single archive entry at the target path.
func writeEntry(tarReader *tar.Reader, header *tar.Header, target string) error {
	switch header.Typeflag {
	case tar.TypeDir:
		return os.MkdirAll(target, header.FileInfo().Mode())
	case tar.TypeReg:
		return writeFile(tarReader, header, target)
	case tar.TypeSymlink:
		return os.Symlink(header.Linkname, target)
	default:
		// Block devices, fifos and the like have no place in a toolchain archive.
		return nil
	}
}

// writeFile streams a regular archive entry to disk with its recorded mode.
func writeFile(tarReader *tar.Reader, header *tar.Header, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), DefaultDirMode); err != nil {
		return err
	}

	outputFile, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, header.FileInfo().Mode())
	if err != nil {
		return err
	}

	if _, err = io.Copy(outputFile, tarReader); err != nil {
		_ = outputFile.Close()

		return fmt.Errorf("extract %s: %w", header.Name, err)
	}

	return outputFile.Close()
}

// stripTopComponent drops the first path component of an archive entry name.
// It returns an empty string for the top-level directory itself. The name is
// deliberately not cleaned first: cleaning would fold "top/../x" into "x"
// before joinInside gets a chance to reject it.
func stripTopComponent(name string) string {
	name = strings.TrimPrefix(name, "./")

	separator := strings.IndexByte(name, '/')
	if separator < 0 {
		return ""
	}

	return strings.TrimSuffix(name[separator+1:], "/")
}

// joinInside joins a relative archive path onto destDir, rejecting entries
// that would escape it.
func joinInside(destDir, relative string) (string, error) {
	target := filepath.Join(destDir, filepath.FromSlash(relative))
	if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %s", errUnsafeArchivePath, relative)
	}

	return target, nil
}
