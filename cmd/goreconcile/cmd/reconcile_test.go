package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and stdin, returning everything
// written to its output. Flags start from their defaults on every call.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	t.Cleanup(resetFlags)

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

func resetFlags() {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	rootCmd.PersistentFlags().VisitAll(reset)
	rootCmd.Flags().VisitAll(reset)
}

func writeTreeFile(t *testing.T, path string, size int, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte("x"), size), 0o644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func fileExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// sampleTrees builds A with a duplicate pair and B with one unique file.
func sampleTrees(t *testing.T) (string, string) {
	t.Helper()
	old := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := old.Add(24 * time.Hour)

	a, b := t.TempDir(), t.TempDir()
	writeTreeFile(t, filepath.Join(a, "x", "dup.bin"), 20, old)
	writeTreeFile(t, filepath.Join(a, "y", "dup.bin"), 20, recent)
	writeTreeFile(t, filepath.Join(b, "docs", "notes.md"), 7, old)
	return a, b
}

// ============================================================================
// Reconcile Command Tests
// ============================================================================

func TestReconcile_DryRunChangesNothing(t *testing.T) {
	a, b := sampleTrees(t)
	reportFile := filepath.Join(t.TempDir(), "comparison.txt")

	out, err := execute(t, "", a, b, "--dry-run", "--report", reportFile, "--log-level", "error")
	require.NoError(t, err)

	assert.True(t, fileExists(filepath.Join(a, "x", "dup.bin")))
	assert.False(t, fileExists(filepath.Join(b, "y", "dup.bin")))
	assert.False(t, fileExists(filepath.Join(a, "docs", "notes.md")))

	assert.Contains(t, out, "Report written to "+reportFile)
	assert.Contains(t, out, "Reconciliation Plan")
	assert.Contains(t, out, "(dry run)")

	data, err := os.ReadFile(reportFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Duplicate: dup.bin (20 bytes)")
	assert.Contains(t, string(data), "notes.md")
}

func TestReconcile_AssumeYesApplies(t *testing.T) {
	a, b := sampleTrees(t)
	reportFile := filepath.Join(t.TempDir(), "comparison.txt")

	out, err := execute(t, "", a, b, "--yes", "--report", reportFile, "--log-level", "error")
	require.NoError(t, err)

	assert.False(t, fileExists(filepath.Join(a, "x", "dup.bin")))
	assert.True(t, fileExists(filepath.Join(a, "y", "dup.bin")))
	assert.True(t, fileExists(filepath.Join(b, "y", "dup.bin")))
	assert.True(t, fileExists(filepath.Join(a, "docs", "notes.md")))
	assert.Contains(t, out, "Reconciliation Summary")
}

func TestReconcile_DeclinedChangesNothing(t *testing.T) {
	a, b := sampleTrees(t)
	reportFile := filepath.Join(t.TempDir(), "comparison.txt")

	out, err := execute(t, "n\n", a, b, "--report", reportFile, "--log-level", "error")
	require.NoError(t, err)

	assert.Contains(t, out, "[y/N]")
	assert.Contains(t, out, "declined")
	assert.True(t, fileExists(filepath.Join(a, "x", "dup.bin")))
	assert.False(t, fileExists(filepath.Join(a, "docs", "notes.md")))
}

func TestReconcile_FoldersFromStdin(t *testing.T) {
	a, b := sampleTrees(t)
	reportFile := filepath.Join(t.TempDir(), "comparison.txt")

	out, err := execute(t, a+"\n"+b+"\ny\n", "--report", reportFile, "--log-level", "error")
	require.NoError(t, err)

	assert.Contains(t, out, "Folder 1:")
	assert.Contains(t, out, "Folder 2:")
	assert.True(t, fileExists(filepath.Join(a, "docs", "notes.md")))
}

func TestReconcile_CopyModeBacksUpAndRefusesRerun(t *testing.T) {
	a, b := sampleTrees(t)
	reportFile := filepath.Join(t.TempDir(), "comparison.txt")

	_, err := execute(t, "", a, b, "--copy", "--yes", "--report", reportFile, "--log-level", "error")
	require.NoError(t, err)
	assert.True(t, fileExists(filepath.Join(a, "AUTOMATIC_BACKUP", "x", "dup.bin")))
	assert.True(t, fileExists(filepath.Join(b, "AUTOMATIC_BACKUP", "docs", "notes.md")))

	_, err = execute(t, "", a, b, "--copy", "--yes", "--report", reportFile, "--log-level", "error")
	assert.Error(t, err)
}

func TestReconcile_WritesExecutionLog(t *testing.T) {
	a, b := sampleTrees(t)
	dir := t.TempDir()
	logFile := filepath.Join(dir, "run.yaml")

	_, err := execute(t, "", a, b, "--yes",
		"--report", filepath.Join(dir, "comparison.txt"),
		"--execution-log", logFile,
		"--log-level", "error")
	require.NoError(t, err)

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)

	var decoded struct {
		RunID   string `yaml:"run_id"`
		DryRun  bool   `yaml:"dry_run"`
		Entries []struct {
			Action string `yaml:"action"`
			Status string `yaml:"status"`
		} `yaml:"entries"`
	}
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	assert.NotEmpty(t, decoded.RunID)
	assert.False(t, decoded.DryRun)
	assert.Len(t, decoded.Entries, 4)
}

func TestReconcile_FailedActionsExitNonZero(t *testing.T) {
	old := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	a, b := t.TempDir(), t.TempDir()
	writeTreeFile(t, filepath.Join(a, "d", "x"), 1, old)
	writeTreeFile(t, filepath.Join(b, "d", "x"), 2, old)
	reportFile := filepath.Join(t.TempDir(), "comparison.txt")

	_, err := execute(t, "", a, b, "--dry-run", "--report", reportFile, "--log-level", "error")
	assert.NoError(t, err, "predicted failures do not fail a dry run")

	out, err := execute(t, "", a, b, "--yes", "--report", reportFile, "--log-level", "error")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 failed actions")
	assert.Contains(t, out, "destination already exists")
}

func TestReconcile_BackupAbortKeepsFreshReport(t *testing.T) {
	a, b := sampleTrees(t)
	require.NoError(t, os.Mkdir(filepath.Join(a, "AUTOMATIC_BACKUP"), 0o755))
	reportFile := filepath.Join(t.TempDir(), "comparison.txt")
	require.NoError(t, os.WriteFile(reportFile, []byte("previous report\n"), 0o644))

	_, err := execute(t, "", a, b, "--copy", "--yes", "--report", reportFile, "--log-level", "error")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTOMATIC_BACKUP")

	data, err := os.ReadFile(reportFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Duplicate: dup.bin (20 bytes)")
	assert.False(t, fileExists(filepath.Join(a, "docs", "notes.md")), "nothing copied")
	assert.True(t, fileExists(filepath.Join(a, "x", "dup.bin")), "nothing removed")
}

func TestReconcile_EarlyAbortKeepsPreviousReport(t *testing.T) {
	a := t.TempDir()
	inner := filepath.Join(a, "inner")
	require.NoError(t, os.Mkdir(inner, 0o755))
	dir := t.TempDir()
	reportFile := filepath.Join(dir, "comparison.txt")
	require.NoError(t, os.WriteFile(reportFile, []byte("previous report\n"), 0o644))

	_, err := execute(t, "", a, inner, "--yes", "--report", reportFile, "--log-level", "error")
	require.Error(t, err)

	data, err := os.ReadFile(reportFile)
	require.NoError(t, err)
	assert.Equal(t, "previous report\n", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary report removed")
}

func TestReconcile_CopyDryRunWarnsAboutBackup(t *testing.T) {
	a, b := sampleTrees(t)
	require.NoError(t, os.Mkdir(filepath.Join(b, "AUTOMATIC_BACKUP"), 0o755))

	out, err := execute(t, "", a, b, "--copy", "--dry-run",
		"--report", filepath.Join(t.TempDir(), "comparison.txt"), "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "Warning:")
	assert.Contains(t, out, "AUTOMATIC_BACKUP")
}

func TestReconcile_NestedFoldersRejected(t *testing.T) {
	a := t.TempDir()
	inner := filepath.Join(a, "inner")
	require.NoError(t, os.Mkdir(inner, 0o755))

	_, err := execute(t, "", a, inner, "--dry-run",
		"--report", filepath.Join(t.TempDir(), "comparison.txt"), "--log-level", "error")
	assert.Error(t, err)
}

func TestResolveRoot_FollowsSymlink(t *testing.T) {
	target := t.TempDir()
	link := filepath.Join(t.TempDir(), "link")
	require.NoError(t, os.Symlink(target, link))

	got, err := resolveRoot(link)
	require.NoError(t, err)

	want, err := filepath.EvalSymlinks(target)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
