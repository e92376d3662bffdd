package bundle

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"
)

var (
	// errUnsupportedEntry is returned for tar entry types the bundle is not
	// expected to contain.
	errUnsupportedEntry = errors.New("unsupported tar entry type")
	// errUnsafeLinkTarget is returned for symlink entries whose target
	// points outside the extraction root.
	errUnsafeLinkTarget = errors.New("symlink target escapes the archive root")
)

// extractTarGz unpacks a gzip-compressed tar archive into dest.
// Entry paths are resolved with securejoin so a crafted archive cannot
// escape the destination directory.
func extractTarGz(archivePath, dest string) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}

	defer func() {
		_ = file.Close()
	}()

	gz, err := gzip.NewReader(file)
	if err != nil {
		return fmt.Errorf("gzip reader: %w", err)
	}

	defer func() {
		_ = gz.Close()
	}()

	reader := tar.NewReader(gz)

	for {
		header, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("read archive: %w", err)
		}

		if err = extractEntry(reader, header, dest); err != nil {
			return err
		}
	}
}

// extractEntry materializes a single tar entry under dest.
func extractEntry(reader *tar.Reader, header *tar.Header, dest string) error {
	target, err := securejoin.SecureJoin(dest, header.Name)
	if err != nil {
		return fmt.Errorf("resolve entry path %q: %w", header.Name, err)
	}

	switch header.Typeflag {
	case tar.TypeDir:
		if err = os.MkdirAll(target, os.FileMode(header.Mode)); err != nil {
			return fmt.Errorf("mkdir %s: %w", target, err)
		}
	case tar.TypeReg:
		if err = writeFileEntry(reader, target, os.FileMode(header.Mode)); err != nil {
			return err
		}
	case tar.TypeSymlink:
		if err = checkLinkTarget(header.Name, header.Linkname); err != nil {
			return err
		}

		if err = os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("mkdir for %s: %w", target, err)
		}

		if err = os.Symlink(header.Linkname, target); err != nil && !errors.Is(err, os.ErrExist) {
			return fmt.Errorf("symlink %s: %w", target, err)
		}
	case tar.TypeXGlobalHeader:
		// PAX metadata, nothing to materialize.
	default:
		return fmt.Errorf("%q: %w", header.Name, errUnsupportedEntry)
	}

	return nil
}

// checkLinkTarget rejects symlink targets that resolve outside the
// extraction root: absolute paths and relative paths that climb above it
// from the entry's own directory.
func checkLinkTarget(entryName, linkname string) error {
	if linkname == "" || path.IsAbs(linkname) || filepath.IsAbs(linkname) {
		return fmt.Errorf("%q -> %q: %w", entryName, linkname, errUnsafeLinkTarget)
	}

	resolved := path.Join(path.Dir(filepath.ToSlash(entryName)), filepath.ToSlash(linkname))
	if resolved == ".." || strings.HasPrefix(resolved, "../") {
		return fmt.Errorf("%q -> %q: %w", entryName, linkname, errUnsafeLinkTarget)
	}

	return nil
}

// writeFileEntry writes a regular file entry, creating parent directories as needed.
func writeFileEntry(reader io.Reader, target string, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("mkdir for %s: %w", target, err)
	}

	output, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("create %s: %w", target, err)
	}

	if _, err = io.Copy(output, reader); err != nil {
		_ = output.Close()

		return fmt.Errorf("copy %s: %w", target, err)
	}

	if err = output.Close(); err != nil {
		return fmt.Errorf("close %s: %w", target, err)
	}

	return nil
}
