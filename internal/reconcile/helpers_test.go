package reconcile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/goreconcile/internal/config"
	"github.com/dbsmedya/goreconcile/internal/index"
	"github.com/dbsmedya/goreconcile/internal/logger"
)

// ============================================================================
// Test Helpers
// ============================================================================

var (
	t1 = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	t2 = t1.Add(24 * time.Hour)
	t3 = t2.Add(24 * time.Hour)
)

func writeFile(t *testing.T, fs afero.Fs, path string, size int, mtime time.Time) {
	t.Helper()
	require.NoError(t, fs.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, afero.WriteFile(fs, path, []byte(strings.Repeat("x", size)), 0644))
	require.NoError(t, fs.Chtimes(path, mtime, mtime))
}

func mkdir(t *testing.T, fs afero.Fs, path string) {
	t.Helper()
	require.NoError(t, fs.MkdirAll(path, 0755))
}

func exists(t *testing.T, fs afero.Fs, path string) bool {
	t.Helper()
	_, err := fs.Stat(path)
	if err != nil && !os.IsNotExist(err) {
		t.Fatalf("stat %s: %v", path, err)
	}
	return err == nil
}

// snapshot captures content, mode and mtime of everything under roots.
func snapshot(t *testing.T, fs afero.Fs, roots ...string) []string {
	t.Helper()
	var out []string
	for _, root := range roots {
		err := afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				out = append(out, fmt.Sprintf("%s/ %v", path, info.Mode()))
				return nil
			}
			data, err := afero.ReadFile(fs, path)
			if err != nil {
				return err
			}
			out = append(out, fmt.Sprintf("%s %v %s %q", path, info.Mode(), info.ModTime().UTC(), data))
			return nil
		})
		require.NoError(t, err)
	}
	sort.Strings(out)
	return out
}

func indexTree(t *testing.T, fs afero.Fs, root string) *index.DirectoryIndex {
	t.Helper()
	ix, err := index.NewIndexer(fs, nil, config.DefaultBackupDirName, logger.NewNop())
	require.NoError(t, err)
	idx, err := ix.Index(root)
	require.NoError(t, err)
	return idx
}

func record(path string, size int64, mtime time.Time) *index.FileRecord {
	return &index.FileRecord{
		Path:       path,
		Name:       filepath.Base(path),
		ParentDir:  filepath.Dir(path),
		Size:       size,
		ModifiedAt: mtime,
	}
}

func buildIndex(root string, recs ...*index.FileRecord) *index.DirectoryIndex {
	idx := index.NewDirectoryIndex(root)
	for _, r := range recs {
		idx.Add(r)
	}
	return idx
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Safety.CheckFreeSpace = false
	return cfg
}

func newTestReconciler(t *testing.T, fs afero.Fs, cfg *config.Config) *Reconciler {
	t.Helper()
	if cfg == nil {
		cfg = testConfig()
	}
	r, err := NewReconciler(cfg, fs, logger.NewNop())
	require.NoError(t, err)
	return r
}

func newTestExecutor(t *testing.T, fs afero.Fs, onConflict string) *MergeExecutor {
	t.Helper()
	m, err := NewMergeExecutor(fs, nil, onConflict, logger.NewNop())
	require.NoError(t, err)
	return m
}

func alwaysConfirm(*Plan) (bool, error) { return true, nil }

func paths(recs []*index.FileRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Path
	}
	return out
}
