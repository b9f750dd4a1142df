// Package index builds per-tree file indexes keyed by file identity.
package index

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Identity is the key used to equate files within and across trees.
// Two files with the same base name and byte size are the same file;
// content is never compared.
type Identity struct {
	Name string
	Size int64
}

func (id Identity) String() string {
	return fmt.Sprintf("%s (%d bytes)", id.Name, id.Size)
}

// FileRecord is one regular file observed on disk.
//
// Path is kept exactly as returned by the walk; Go strings carry raw bytes,
// so names that are not valid UTF-8 survive unchanged. A zero timestamp
// means the attribute could not be read.
type FileRecord struct {
	Path       string
	Name       string
	ParentDir  string
	Size       int64
	Mode       os.FileMode
	ModifiedAt time.Time
	AccessedAt time.Time
	CreatedAt  time.Time
}

// NewFileRecord builds a record from a path and its lstat result.
func NewFileRecord(path string, info os.FileInfo) *FileRecord {
	rec := &FileRecord{
		Path:       path,
		Name:       filepath.Base(path),
		ParentDir:  filepath.Dir(path),
		Size:       info.Size(),
		Mode:       info.Mode().Perm(),
		ModifiedAt: info.ModTime(),
	}
	rec.AccessedAt, rec.CreatedAt = extraTimes(info)
	return rec
}

// Identity returns the record's (name, size) key.
func (r *FileRecord) Identity() Identity {
	return Identity{Name: r.Name, Size: r.Size}
}

// RelPath returns the record path relative to root. It fails if the record
// does not live under root.
func (r *FileRecord) RelPath(root string) (string, error) {
	rel, err := filepath.Rel(root, r.Path)
	if err != nil {
		return "", fmt.Errorf("path %s is not under %s: %w", r.Path, root, err)
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s is not under %s", r.Path, root)
	}
	return rel, nil
}

// String renders the record path.
func (r *FileRecord) String() string {
	return r.Path
}
