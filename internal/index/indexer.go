package index

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"

	"github.com/dbsmedya/goreconcile/internal/logger"
)

// ErrNotDirectory is returned when a root exists but is not a directory.
var ErrNotDirectory = errors.New("not a directory")

// ErrSymlinkRoot is returned when a root is itself a symbolic link; callers
// pass the resolved path instead.
var ErrSymlinkRoot = errors.New("root is a symbolic link")

// Indexer walks a tree and builds its DirectoryIndex.
//
// Entries are examined with lstat: symbolic links are neither followed nor
// indexed, whether they point at files or directories. The reserved backup
// directory directly under the root is never entered.
type Indexer struct {
	fs        afero.Fs
	exclude   []string
	backupDir string
	logger    *logger.Logger
}

// NewIndexer creates an indexer over fs. exclude holds doublestar patterns
// matched against slash-separated root-relative paths.
func NewIndexer(fs afero.Fs, exclude []string, backupDir string, log *logger.Logger) (*Indexer, error) {
	if fs == nil {
		return nil, fmt.Errorf("filesystem is nil")
	}
	for _, pattern := range exclude {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid exclude pattern %q", pattern)
		}
	}
	if log == nil {
		log = logger.NewDefault()
	}

	return &Indexer{
		fs:        fs,
		exclude:   exclude,
		backupDir: backupDir,
		logger:    log,
	}, nil
}

// Index walks root and groups every regular file by identity.
// A missing, unreadable or non-directory root is fatal. Per-entry stat
// failures are logged and counted in Stats.Skipped.
func (ix *Indexer) Index(root string) (*DirectoryIndex, error) {
	root = filepath.Clean(root)
	log := ix.logger.WithRoot(root)

	info, err := ix.fs.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("cannot access root %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root %s: %w", root, ErrNotDirectory)
	}
	if lst, ok := ix.fs.(afero.Lstater); ok {
		if linfo, _, err := lst.LstatIfPossible(root); err == nil && linfo.Mode()&os.ModeSymlink != 0 {
			return nil, fmt.Errorf("root %s: %w", root, ErrSymlinkRoot)
		}
	}

	idx := NewDirectoryIndex(root)
	log.Debug("Indexing tree")

	err = afero.Walk(ix.fs, root, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			if path == root {
				return fmt.Errorf("cannot read root %s: %w", root, walkErr)
			}
			if info != nil && info.IsDir() {
				idx.Stats.UnreadableDirs++
				log.Warnw("Skipping unreadable directory", "path", path, "error", walkErr)
				return nil
			}
			idx.Stats.Skipped++
			log.Warnw("Skipping file, stat failed", "path", path, "error", walkErr)
			return nil
		}

		if path == root {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("walk left root %s at %s: %w", root, path, err)
		}

		if info.IsDir() {
			if rel == ix.backupDir || ix.excluded(rel) {
				log.Debugw("Skipping directory", "path", path)
				return filepath.SkipDir
			}
			return nil
		}

		if !info.Mode().IsRegular() {
			idx.Stats.Ignored++
			log.Debugw("Ignoring non-regular entry", "path", path, "mode", info.Mode().String())
			return nil
		}

		if ix.excluded(rel) {
			idx.Stats.Excluded++
			return nil
		}

		idx.Add(NewFileRecord(path, info))
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Infow("Indexed tree",
		"files", idx.Stats.Files,
		"identities", idx.Len(),
		"skipped", idx.Stats.Skipped,
		"unreadable_dirs", idx.Stats.UnreadableDirs,
		"ignored", idx.Stats.Ignored,
		"excluded", idx.Stats.Excluded,
	)

	return idx, nil
}

func (ix *Indexer) excluded(rel string) bool {
	slashed := filepath.ToSlash(rel)
	for _, pattern := range ix.exclude {
		if ok, _ := doublestar.Match(pattern, slashed); ok {
			return true
		}
	}
	return false
}
