// Package fsutil provides file copy and hashing helpers for GoReconcile.
package fsutil

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// ErrDestinationExists is returned when a copy target is already present.
// Copies never overwrite.
var ErrDestinationExists = errors.New("destination already exists")

// Exists reports whether path is present, without following a final symlink.
func Exists(fs afero.Fs, path string) (bool, error) {
	var err error
	if lst, ok := fs.(afero.Lstater); ok {
		_, _, err = lst.LstatIfPossible(path)
	} else {
		_, err = fs.Stat(path)
	}
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// CopyFile copies the regular file src to dst, creating missing parent
// directories. Permission bits and modification time are carried over
// (access time is set to the modification time). An existing dst yields
// ErrDestinationExists and is left untouched; any failure after dst was
// created removes it.
func CopyFile(fs afero.Fs, src, dst string) (int64, error) {
	info, err := fs.Stat(src)
	if err != nil {
		return 0, fmt.Errorf("stat source %s: %w", src, err)
	}
	if !info.Mode().IsRegular() {
		return 0, fmt.Errorf("source %s is not a regular file", src)
	}

	if err := fs.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return 0, fmt.Errorf("create parent of %s: %w", dst, err)
	}

	out, err := fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return 0, fmt.Errorf("%s: %w", dst, ErrDestinationExists)
		}
		return 0, fmt.Errorf("create %s: %w", dst, err)
	}

	n, err := copyContents(fs, src, out)
	if closeErr := out.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("close %s: %w", dst, closeErr)
	}
	if err != nil {
		_ = fs.Remove(dst)
		return 0, err
	}

	if err := fs.Chmod(dst, info.Mode().Perm()); err != nil {
		_ = fs.Remove(dst)
		return 0, fmt.Errorf("chmod %s: %w", dst, err)
	}
	if err := fs.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		_ = fs.Remove(dst)
		return 0, fmt.Errorf("set times on %s: %w", dst, err)
	}

	return n, nil
}

func copyContents(fs afero.Fs, src string, out io.Writer) (int64, error) {
	in, err := fs.Open(src)
	if err != nil {
		return 0, fmt.Errorf("open source %s: %w", src, err)
	}
	defer in.Close()

	n, err := io.Copy(out, in)
	if err != nil {
		return n, fmt.Errorf("copy %s: %w", src, err)
	}
	return n, nil
}

// HashFile returns the hex SHA256 digest of path.
func HashFile(fs afero.Fs, path string) (string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
