package series

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/log"
)

// OpenArchive expands a compressed series archive (.zip, .tar.gz, .tgz) into
// a fresh working directory and validates that it contains a series
// descriptor. It returns the directory holding the descriptor. Invalid
// archives are rejected so the caller can fall back to the prior series.
func OpenArchive(path string) (string, error) {
	workDir, err := os.MkdirTemp("", "testexec-series-")
	if err != nil {
		return "", fmt.Errorf("creating working directory: %w", err)
	}

	switch {
	case strings.HasSuffix(path, ".zip"):
		err = extractZip(path, workDir)
	case strings.HasSuffix(path, ".tar.gz"), strings.HasSuffix(path, ".tgz"):
		err = extractTarGz(path, workDir)
	default:
		err = fmt.Errorf("unsupported archive format: %s", filepath.Base(path))
	}
	if err != nil {
		_ = os.RemoveAll(workDir)
		return "", fmt.Errorf("expanding archive %s: %w", path, err)
	}

	dir, err := findDescriptorDir(workDir)
	if err != nil {
		_ = os.RemoveAll(workDir)
		return "", fmt.Errorf("archive %s: %w", path, err)
	}

	log.Info("Expanded series archive", "archive", path, "dir", dir)
	return dir, nil
}

// findDescriptorDir locates the series descriptor at the archive root or in
// a single top-level directory (the usual layout of archived directories).
func findDescriptorDir(workDir string) (string, error) {
	if _, err := os.Stat(filepath.Join(workDir, DefaultDescriptorName)); err == nil {
		return workDir, nil
	}

	entries, err := os.ReadDir(workDir)
	if err != nil {
		return "", err
	}
	if len(entries) == 1 && entries[0].IsDir() {
		nested := filepath.Join(workDir, entries[0].Name())
		if _, err := os.Stat(filepath.Join(nested, DefaultDescriptorName)); err == nil {
			return nested, nil
		}
	}
	return "", fmt.Errorf("no %s found in archive", DefaultDescriptorName)
}

func extractZip(path, dest string) error {
	r, err := zip.OpenReader(path)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, f := range r.File {
		target, err := safeJoin(dest, f.Name)
		if err != nil {
			return err
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return err
		}
		rc, err := f.Open()
		if err != nil {
			return err
		}
		err = writeFileFrom(target, rc, f.Mode())
		_ = rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func extractTarGz(path, dest string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return err
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		target, err := safeJoin(dest, hdr.Name)
		if err != nil {
			return err
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return err
			}
			if err := writeFileFrom(target, tr, os.FileMode(hdr.Mode)); err != nil {
				return err
			}
		}
	}
}

// safeJoin joins an archive member name onto dest and rejects entries that
// would escape it.
func safeJoin(dest, name string) (string, error) {
	target := filepath.Join(dest, name)
	if !strings.HasPrefix(target, filepath.Clean(dest)+string(os.PathSeparator)) {
		return "", fmt.Errorf("archive entry escapes working directory: %s", name)
	}
	return target, nil
}

func writeFileFrom(target string, r io.Reader, mode os.FileMode) error {
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}
	_, err = io.Copy(out, r)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	return err
}
