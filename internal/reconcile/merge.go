package reconcile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/dbsmedya/goreconcile/internal/config"
	"github.com/dbsmedya/goreconcile/internal/fsutil"
	"github.com/dbsmedya/goreconcile/internal/index"
	"github.com/dbsmedya/goreconcile/internal/logger"
	"github.com/dbsmedya/goreconcile/internal/verifier"
)

// MergeExecutor applies a Plan: duplicate removals first, then copies in
// both directions. Per-file failures are logged and the batch continues.
type MergeExecutor struct {
	fs         afero.Fs
	verifier   *verifier.Verifier
	onConflict string
	logger     *logger.Logger
}

// NewMergeExecutor creates a merge executor. v may be nil to skip
// post-copy verification.
func NewMergeExecutor(fs afero.Fs, v *verifier.Verifier, onConflict string, log *logger.Logger) (*MergeExecutor, error) {
	if fs == nil {
		return nil, fmt.Errorf("filesystem is nil")
	}
	if onConflict == "" {
		onConflict = config.ConflictFail
	}
	if onConflict != config.ConflictFail && onConflict != config.ConflictSkip {
		return nil, fmt.Errorf("unsupported conflict policy: %s", onConflict)
	}
	if log == nil {
		log = logger.NewDefault()
	}

	return &MergeExecutor{
		fs:         fs,
		verifier:   v,
		onConflict: onConflict,
		logger:     log,
	}, nil
}

// Apply executes plan and returns the log of what was (or, in a dry run,
// would be) done. Once ctx is cancelled no further file is touched and the
// remaining actions are logged as skipped.
func (m *MergeExecutor) Apply(ctx context.Context, runID string, plan *Plan, dryRun bool) *ExecutionLog {
	execLog := NewExecutionLog(runID, plan, dryRun)

	m.logger.Infow("Applying merge plan",
		"dry_run", dryRun,
		"remove_a", len(plan.RemoveA),
		"remove_b", len(plan.RemoveB),
		"copy_into_a", len(plan.MissingFromA),
		"copy_into_b", len(plan.MissingFromB),
	)

	for _, side := range []Side{SideA, SideB} {
		keep := plan.KeepA
		if side == SideB {
			keep = plan.KeepB
		}
		for _, rec := range keep {
			execLog.add(LogEntry{Action: ActionKeep, Side: side, Path: rec.Path, Size: rec.Size, Status: m.done(dryRun)})
		}
	}

	// Paths freed by removals; a dry run still sees them on disk.
	removed := make(map[string]bool)
	for _, side := range []Side{SideA, SideB} {
		for _, rec := range plan.Removals(side) {
			entry := m.remove(ctx, side, rec, dryRun)
			if entry.Status == StatusPlanned || entry.Status == StatusDone {
				removed[rec.Path] = true
			}
			execLog.add(entry)
		}
	}

	for _, side := range []Side{SideA, SideB} {
		srcRoot, dstRoot := plan.Root(side.Other()), plan.Root(side)
		for _, rec := range plan.CopiesInto(side) {
			execLog.add(m.copy(ctx, side, srcRoot, dstRoot, rec, dryRun, removed))
		}
	}

	execLog.Finish()

	summary := execLog.Summary()
	fields := []interface{}{
		"dry_run", dryRun,
		"kept", summary.Kept,
		"removed", summary.Removed,
		"copied", summary.Copied,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
	}
	if m.verifier != nil {
		vs := m.verifier.Stats()
		fields = append(fields, "verified", vs.FilesVerified, "verify_method", vs.Method)
	}
	m.logger.Infow("Merge finished", fields...)

	return execLog
}

func (m *MergeExecutor) done(dryRun bool) ActionStatus {
	if dryRun {
		return StatusPlanned
	}
	return StatusDone
}

func (m *MergeExecutor) remove(ctx context.Context, side Side, rec *index.FileRecord, dryRun bool) LogEntry {
	entry := LogEntry{Action: ActionRemove, Side: side, Path: rec.Path, Size: rec.Size}

	if dryRun {
		entry.Status = StatusPlanned
		return entry
	}
	if err := ctx.Err(); err != nil {
		return skipped(entry, "interrupted")
	}

	info, err := m.fs.Stat(rec.Path)
	if err != nil {
		return m.failed(entry, fmt.Errorf("cannot stat %s: %w", rec.Path, err))
	}
	if info.Size() != rec.Size {
		return m.failed(entry, fmt.Errorf("%s changed since indexing (size %d, was %d)", rec.Path, info.Size(), rec.Size))
	}
	if err := m.fs.Remove(rec.Path); err != nil {
		return m.failed(entry, fmt.Errorf("cannot remove %s: %w", rec.Path, err))
	}

	m.logger.Debugw("Removed duplicate", "side", side, "path", rec.Path)
	entry.Status = StatusDone
	return entry
}

func (m *MergeExecutor) copy(ctx context.Context, side Side, srcRoot, dstRoot string, rec *index.FileRecord, dryRun bool, removed map[string]bool) LogEntry {
	entry := LogEntry{Action: ActionCopy, Side: side, Path: rec.Path, Size: rec.Size}

	rel, err := rec.RelPath(srcRoot)
	if err != nil {
		return m.failed(entry, err)
	}
	dst := filepath.Join(dstRoot, rel)
	entry.Destination = dst

	if !dryRun {
		if err := ctx.Err(); err != nil {
			return skipped(entry, "interrupted")
		}
	}

	taken, err := m.destinationTaken(dstRoot, dst, removed)
	if err != nil {
		return m.failed(entry, err)
	}
	if taken {
		return m.conflict(entry, dst)
	}

	if dryRun {
		entry.Status = StatusPlanned
		return entry
	}

	if _, err := fsutil.CopyFile(m.fs, rec.Path, dst); err != nil {
		if errors.Is(err, fsutil.ErrDestinationExists) {
			return m.conflict(entry, dst)
		}
		return m.failed(entry, err)
	}

	if m.verifier != nil {
		result, err := m.verifier.VerifyFile(rec.Path, dst)
		if err == nil && !result.Match {
			err = fmt.Errorf("copy of %s did not verify: %s", rec.Path, result.ErrorMessage)
		}
		if err != nil {
			if rmErr := m.fs.Remove(dst); rmErr != nil {
				m.logger.Warnw("Could not remove unverified copy", "path", dst, "error", rmErr)
			}
			return m.failed(entry, err)
		}
	}

	m.logger.Debugw("Copied file", "side", side, "source", rec.Path, "destination", dst)
	entry.Status = StatusDone
	return entry
}

// destinationTaken reports whether dst is occupied once the removals in
// removed have happened. Ancestors are checked from dstRoot down: a removed
// ancestor frees everything below it, and a remaining non-directory
// ancestor fails the copy the way creating the parent would.
func (m *MergeExecutor) destinationTaken(dstRoot, dst string, removed map[string]bool) (bool, error) {
	rel, err := filepath.Rel(dstRoot, filepath.Dir(dst))
	if err != nil {
		return false, fmt.Errorf("destination %s is outside %s: %w", dst, dstRoot, err)
	}

	dir := dstRoot
	if rel != "." {
		for _, part := range strings.Split(rel, string(filepath.Separator)) {
			dir = filepath.Join(dir, part)
			if removed[dir] {
				return false, nil
			}
			info, err := m.fs.Stat(dir)
			if errors.Is(err, os.ErrNotExist) {
				return false, nil
			}
			if err != nil {
				return false, fmt.Errorf("cannot stat %s: %w", dir, err)
			}
			if !info.IsDir() {
				return false, fmt.Errorf("create parent of %s: %s: %w", dst, dir, index.ErrNotDirectory)
			}
		}
	}

	if removed[dst] {
		return false, nil
	}
	exists, err := fsutil.Exists(m.fs, dst)
	if err != nil {
		return false, fmt.Errorf("cannot stat %s: %w", dst, err)
	}
	return exists, nil
}

func (m *MergeExecutor) conflict(entry LogEntry, dst string) LogEntry {
	err := fmt.Errorf("%s: %w", dst, fsutil.ErrDestinationExists)
	if m.onConflict == config.ConflictSkip {
		m.logger.Warnw("Destination exists, skipping copy", "source", entry.Path, "destination", dst)
		return skipped(entry, err.Error())
	}
	return m.failed(entry, err)
}

func (m *MergeExecutor) failed(entry LogEntry, err error) LogEntry {
	m.logger.WithSide(string(entry.Side)).Errorw("Action failed", "action", entry.Action, "path", entry.Path, "error", err)
	entry.Status = StatusFailed
	entry.Reason = err.Error()
	return entry
}

func skipped(entry LogEntry, reason string) LogEntry {
	entry.Status = StatusSkipped
	entry.Reason = reason
	return entry
}
