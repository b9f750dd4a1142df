package fsutil

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// TreeStats summarizes a CopyTree run.
type TreeStats struct {
	Dirs     int
	Files    int
	Symlinks int
	Bytes    int64
}

// SkipFunc reports whether the entry at rel (relative to the source root)
// should be left out. Returning true for a directory prunes it.
type SkipFunc func(rel string, info os.FileInfo) bool

// CopyTree recursively copies the contents of srcRoot into dstRoot, which
// must not exist yet. Files keep mode and modification time; symbolic links
// are recreated as links when the filesystem supports it. The first error
// aborts the copy.
func CopyTree(fs afero.Fs, srcRoot, dstRoot string, skip SkipFunc) (TreeStats, error) {
	var stats TreeStats

	exists, err := Exists(fs, dstRoot)
	if err != nil {
		return stats, fmt.Errorf("stat %s: %w", dstRoot, err)
	}
	if exists {
		return stats, fmt.Errorf("%s: %w", dstRoot, ErrDestinationExists)
	}

	err = afero.Walk(fs, srcRoot, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return fmt.Errorf("walk %s: %w", path, walkErr)
		}

		rel, err := filepath.Rel(srcRoot, path)
		if err != nil {
			return err
		}
		if rel != "." && skip != nil && skip(rel, info) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		target := filepath.Join(dstRoot, rel)

		switch {
		case info.IsDir():
			if err := fs.MkdirAll(target, info.Mode().Perm()|0700); err != nil {
				return fmt.Errorf("create directory %s: %w", target, err)
			}
			stats.Dirs++
		case info.Mode()&os.ModeSymlink != 0:
			if err := copySymlink(fs, path, target); err != nil {
				return err
			}
			stats.Symlinks++
		case info.Mode().IsRegular():
			n, err := CopyFile(fs, path, target)
			if err != nil {
				return err
			}
			stats.Files++
			stats.Bytes += n
		}
		return nil
	})

	return stats, err
}

func copySymlink(fs afero.Fs, src, dst string) error {
	reader, okRead := fs.(afero.LinkReader)
	linker, okLink := fs.(afero.Linker)
	if !okRead || !okLink {
		return fmt.Errorf("cannot copy symlink %s: filesystem does not support links", src)
	}

	target, err := reader.ReadlinkIfPossible(src)
	if err != nil {
		return fmt.Errorf("read link %s: %w", src, err)
	}
	if err := linker.SymlinkIfPossible(target, dst); err != nil {
		return fmt.Errorf("create link %s: %w", dst, err)
	}
	return nil
}
