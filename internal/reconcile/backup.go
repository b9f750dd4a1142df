package reconcile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/dbsmedya/goreconcile/internal/fsutil"
	"github.com/dbsmedya/goreconcile/internal/logger"
)

// ErrBackupExists is returned when a root already contains the reserved
// backup directory.
var ErrBackupExists = errors.New("backup directory already exists")

// BackupExistsError lists the backup directories that are already present.
type BackupExistsError struct {
	Paths []string
}

func (e *BackupExistsError) Error() string {
	return fmt.Sprintf("%s: %s", ErrBackupExists, strings.Join(e.Paths, ", "))
}

func (e *BackupExistsError) Unwrap() error {
	return ErrBackupExists
}

// BackupStats summarizes a snapshot.
type BackupStats struct {
	Files    int
	Symlinks int
	Bytes    int64
}

// BackupManager snapshots both roots into a reserved directory before any
// merge action runs.
type BackupManager struct {
	fs      afero.Fs
	dirName string
	logger  *logger.Logger
}

// NewBackupManager creates a backup manager using dirName as the reserved
// directory under each root.
func NewBackupManager(fs afero.Fs, dirName string, log *logger.Logger) (*BackupManager, error) {
	if fs == nil {
		return nil, fmt.Errorf("filesystem is nil")
	}
	if dirName == "" {
		return nil, fmt.Errorf("backup directory name is required")
	}
	if log == nil {
		log = logger.NewDefault()
	}

	return &BackupManager{fs: fs, dirName: dirName, logger: log}, nil
}

// Path returns the backup directory for root.
func (b *BackupManager) Path(root string) string {
	return filepath.Join(root, b.dirName)
}

// Check fails with a *BackupExistsError when either root already holds the
// backup directory.
func (b *BackupManager) Check(rootA, rootB string) error {
	var present []string
	for _, root := range []string{rootA, rootB} {
		exists, err := fsutil.Exists(b.fs, b.Path(root))
		if err != nil {
			return fmt.Errorf("cannot check backup directory in %s: %w", root, err)
		}
		if exists {
			present = append(present, b.Path(root))
		}
	}
	if len(present) > 0 {
		return &BackupExistsError{Paths: present}
	}
	return nil
}

// Snapshot copies the current contents of each root into its backup
// directory. Both roots are checked before anything is copied.
func (b *BackupManager) Snapshot(rootA, rootB string) (BackupStats, error) {
	var stats BackupStats

	if err := b.Check(rootA, rootB); err != nil {
		return stats, err
	}

	for _, root := range []string{rootA, rootB} {
		dest := b.Path(root)
		b.logger.Infow("Creating backup", "root", root, "destination", dest)

		tree, err := fsutil.CopyTree(b.fs, root, dest, func(rel string, info os.FileInfo) bool {
			return rel == b.dirName
		})
		if err != nil {
			return stats, fmt.Errorf("backup of %s failed: %w", root, err)
		}

		stats.Files += tree.Files
		stats.Symlinks += tree.Symlinks
		stats.Bytes += tree.Bytes
		b.logger.Infow("Backup complete", "root", root, "files", tree.Files, "bytes", tree.Bytes)
	}

	return stats, nil
}
