package reconcile

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/goreconcile/internal/config"
	"github.com/dbsmedya/goreconcile/internal/logger"
	"github.com/dbsmedya/goreconcile/internal/verifier"
)

func planFor(t *testing.T, fs afero.Fs) *Plan {
	t.Helper()
	return BuildPlan(Resolve(indexTree(t, fs, "/a")), Resolve(indexTree(t, fs, "/b")))
}

// ============================================================================
// NewMergeExecutor Tests
// ============================================================================

func TestNewMergeExecutor_NilFs(t *testing.T) {
	_, err := NewMergeExecutor(nil, nil, "", nil)
	assert.Error(t, err)
}

func TestNewMergeExecutor_BadPolicy(t *testing.T) {
	_, err := NewMergeExecutor(afero.NewMemMapFs(), nil, "overwrite", nil)
	assert.Error(t, err)
}

func TestNewMergeExecutor_Defaults(t *testing.T) {
	m, err := NewMergeExecutor(afero.NewMemMapFs(), nil, "", nil)
	require.NoError(t, err)
	assert.Equal(t, config.ConflictFail, m.onConflict)
	assert.NotNil(t, m.logger)
}

// ============================================================================
// Apply Tests
// ============================================================================

func TestApply_LiveRemovesAndCopies(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/a/x/dup.bin", 200, t1)
	writeFile(t, fs, "/a/y/dup.bin", 200, t2)
	writeFile(t, fs, "/b/docs/notes.md", 7, t1)

	v, err := verifier.NewVerifier(fs, verifier.MethodSHA256, logger.NewNop())
	require.NoError(t, err)
	m, err := NewMergeExecutor(fs, v, config.ConflictFail, logger.NewNop())
	require.NoError(t, err)

	execLog := m.Apply(context.Background(), "run-1", planFor(t, fs), false)

	assert.False(t, exists(t, fs, "/a/x/dup.bin"))
	assert.True(t, exists(t, fs, "/a/y/dup.bin"))
	assert.True(t, exists(t, fs, "/b/y/dup.bin"))
	assert.True(t, exists(t, fs, "/a/docs/notes.md"))

	info, err := fs.Stat("/b/y/dup.bin")
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(t2), "copy keeps mtime")

	s := execLog.Summary()
	assert.Equal(t, 1, s.Kept)
	assert.Equal(t, 1, s.Removed)
	assert.Equal(t, 2, s.Copied)
	assert.Equal(t, 0, s.Failed)
	assert.Equal(t, int64(207), s.BytesCopied)
	assert.Equal(t, "run-1", execLog.RunID)
	assert.Equal(t, 2, v.Stats().FilesPassed)

	for _, e := range execLog.Entries {
		assert.Equal(t, StatusDone, e.Status, e.Path)
	}
}

func TestApply_DryRunPlansSameEntriesWithoutMutation(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/a/x/dup.bin", 200, t1)
	writeFile(t, fs, "/a/y/dup.bin", 200, t2)
	writeFile(t, fs, "/b/docs/notes.md", 7, t1)
	before := snapshot(t, fs, "/a", "/b")
	plan := planFor(t, fs)

	dry := newTestExecutor(t, fs, "").Apply(context.Background(), "dry", plan, true)

	assert.Equal(t, before, snapshot(t, fs, "/a", "/b"))
	assert.True(t, dry.DryRun)
	for _, e := range dry.Entries {
		assert.Equal(t, StatusPlanned, e.Status, e.Path)
	}

	live := newTestExecutor(t, fs, "").Apply(context.Background(), "live", plan, false)

	require.Len(t, live.Entries, len(dry.Entries))
	for i := range dry.Entries {
		d, l := dry.Entries[i], live.Entries[i]
		assert.Equal(t, d.Action, l.Action)
		assert.Equal(t, d.Side, l.Side)
		assert.Equal(t, d.Path, l.Path)
		assert.Equal(t, d.Destination, l.Destination)
	}
}

func TestApply_ConflictFails(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/a/d/x", 1, t1)
	writeFile(t, fs, "/b/d/x", 2, t1)

	execLog := newTestExecutor(t, fs, config.ConflictFail).Apply(context.Background(), "r", planFor(t, fs), false)

	failures := execLog.Failures()
	require.Len(t, failures, 2)
	for _, f := range failures {
		assert.Contains(t, f.Reason, "destination already exists")
	}

	data, err := afero.ReadFile(fs, "/b/d/x")
	require.NoError(t, err)
	assert.Len(t, data, 2, "existing file is never overwritten")
}

func TestApply_ConflictSkips(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/a/d/x", 1, t1)
	writeFile(t, fs, "/b/d/x", 2, t1)

	execLog := newTestExecutor(t, fs, config.ConflictSkip).Apply(context.Background(), "r", planFor(t, fs), false)

	s := execLog.Summary()
	assert.Equal(t, 0, s.Failed)
	assert.Equal(t, 2, s.Skipped)
}

func TestApply_CopyIntoPathFreedByRemoval(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/a/d/x", 1, t1)
	writeFile(t, fs, "/b/d/x", 2, t1)
	writeFile(t, fs, "/b/e/x", 2, t2)
	plan := planFor(t, fs)

	dry := newTestExecutor(t, fs, "").Apply(context.Background(), "r", plan, true)
	assert.Empty(t, dry.Failures())

	live := newTestExecutor(t, fs, "").Apply(context.Background(), "r", plan, false)
	assert.Empty(t, live.Failures())

	data, err := afero.ReadFile(fs, "/b/d/x")
	require.NoError(t, err)
	assert.Len(t, data, 1)
}

func TestApply_CancelledSkipsRemainingActions(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/a/1/f", 3, t1)
	writeFile(t, fs, "/a/2/f", 3, t2)
	writeFile(t, fs, "/b/g", 4, t1)
	before := snapshot(t, fs, "/a", "/b")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	execLog := newTestExecutor(t, fs, "").Apply(ctx, "r", planFor(t, fs), false)

	assert.Equal(t, before, snapshot(t, fs, "/a", "/b"))
	s := execLog.Summary()
	assert.Equal(t, 3, s.Skipped)
	assert.Equal(t, 0, s.Removed+s.Copied)
	for _, e := range execLog.Entries {
		if e.Status == StatusSkipped {
			assert.Equal(t, "interrupted", e.Reason)
		}
	}
}

func TestApply_RemoveFailsWhenFileChanged(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/a/1/f", 3, t1)
	writeFile(t, fs, "/a/2/f", 3, t2)
	mkdir(t, fs, "/b")
	plan := planFor(t, fs)

	writeFile(t, fs, "/a/1/f", 30, t1)

	execLog := newTestExecutor(t, fs, "").Apply(context.Background(), "r", plan, false)

	failures := execLog.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, ActionRemove, failures[0].Action)
	assert.Contains(t, failures[0].Reason, "changed since indexing")
	assert.True(t, exists(t, fs, "/a/1/f"))
	assert.True(t, exists(t, fs, "/b/2/f"), "batch continues after a failure")
}

func TestApply_MissingSourceFailsCopy(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/a/f", 3, t1)
	mkdir(t, fs, "/b")
	plan := planFor(t, fs)

	require.NoError(t, fs.Remove("/a/f"))

	execLog := newTestExecutor(t, fs, "").Apply(context.Background(), "r", plan, false)

	failures := execLog.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, "/b/f", failures[0].Destination)
	assert.False(t, exists(t, fs, "/b/f"))
}

func TestApply_CopyUnderDirectoryFreedByRemoval(t *testing.T) {
	fs := afero.NewOsFs()
	a, b := t.TempDir(), t.TempDir()
	writeFile(t, fs, filepath.Join(a, "foo"), 4, t1)
	writeFile(t, fs, filepath.Join(a, "x", "foo"), 4, t2)
	writeFile(t, fs, filepath.Join(b, "foo", "bar.txt"), 9, t1)
	plan := BuildPlan(Resolve(indexTree(t, fs, a)), Resolve(indexTree(t, fs, b)))

	dry := newTestExecutor(t, fs, "").Apply(context.Background(), "dry", plan, true)
	assert.Empty(t, dry.Failures())

	live := newTestExecutor(t, fs, "").Apply(context.Background(), "live", plan, false)
	assert.Empty(t, live.Failures())
	assert.True(t, exists(t, fs, filepath.Join(a, "foo", "bar.txt")))
	assert.True(t, exists(t, fs, filepath.Join(b, "x", "foo")))
}

func TestApply_CopyUnderFileAncestorFailsInBothModes(t *testing.T) {
	fs := afero.NewOsFs()
	a, b := t.TempDir(), t.TempDir()
	writeFile(t, fs, filepath.Join(a, "foo"), 4, t1)
	writeFile(t, fs, filepath.Join(b, "foo", "bar.txt"), 9, t1)
	plan := BuildPlan(Resolve(indexTree(t, fs, a)), Resolve(indexTree(t, fs, b)))

	dry := newTestExecutor(t, fs, "").Apply(context.Background(), "dry", plan, true)
	live := newTestExecutor(t, fs, "").Apply(context.Background(), "live", plan, false)

	require.Len(t, live.Entries, len(dry.Entries))
	for i := range dry.Entries {
		if live.Entries[i].Status == StatusFailed {
			assert.Equal(t, StatusFailed, dry.Entries[i].Status, dry.Entries[i].Path)
		}
	}
	assert.Equal(t, live.Summary().Failed, dry.Summary().Failed)

	var sawNotDir bool
	for _, f := range dry.Failures() {
		if f.Destination == filepath.Join(a, "foo", "bar.txt") {
			sawNotDir = true
			assert.Contains(t, f.Reason, "not a directory")
		}
	}
	assert.True(t, sawNotDir)
}
