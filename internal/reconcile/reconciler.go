package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/afero"

	"github.com/dbsmedya/goreconcile/internal/config"
	"github.com/dbsmedya/goreconcile/internal/index"
	"github.com/dbsmedya/goreconcile/internal/logger"
	"github.com/dbsmedya/goreconcile/internal/report"
	"github.com/dbsmedya/goreconcile/internal/verifier"
)

// ErrConfirmationRequired is returned when a live run has no way to ask
// the user before mutating the trees.
var ErrConfirmationRequired = errors.New("confirmation required for a live run")

// ConfirmFunc is asked once, after planning and before any mutation.
// Returning false declines the run.
type ConfirmFunc func(plan *Plan) (bool, error)

// Options select the roots and the mode of a run.
type Options struct {
	RootA    string
	RootB    string
	DryRun   bool
	CopyMode bool
	// Confirm gates live runs. Dry runs never call it.
	Confirm ConfirmFunc
	// Report receives the comparison report. Nil skips it.
	Report io.Writer
}

// Result contains statistics and status of a run.
type Result struct {
	RunID    string
	DryRun   bool
	IndexA   *index.DirectoryIndex
	IndexB   *index.DirectoryIndex
	Plan     *Plan
	Backup   *BackupStats
	Log      *ExecutionLog
	Declined bool
	// ReportWritten is set once the comparison report is complete.
	ReportWritten bool
	// Warnings are problems a live run with the same options would stop on.
	Warnings    []string
	StartedAt   time.Time
	CompletedAt time.Time
	Duration    time.Duration
}

// Failed returns the number of failed actions.
func (r *Result) Failed() int {
	if r.Log == nil {
		return 0
	}
	return len(r.Log.Failures())
}

// Reconciler coordinates a full run: index, report, resolve, diff, back up
// and merge.
type Reconciler struct {
	config    *config.Config
	fs        afero.Fs
	indexer   *index.Indexer
	backup    *BackupManager
	preflight *PreflightChecker
	executor  *MergeExecutor
	logger    *logger.Logger
}

// NewReconciler wires the run components from cfg.
func NewReconciler(cfg *config.Config, fs afero.Fs, log *logger.Logger) (*Reconciler, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if fs == nil {
		return nil, fmt.Errorf("filesystem is nil")
	}
	if log == nil {
		log = logger.NewDefault()
	}

	ix, err := index.NewIndexer(fs, cfg.Scan.Exclude, cfg.Backup.DirName, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create indexer: %w", err)
	}
	backup, err := NewBackupManager(fs, cfg.Backup.DirName, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create backup manager: %w", err)
	}
	preflight, err := NewPreflightChecker(fs, backup, cfg.Safety, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create preflight checker: %w", err)
	}

	var v *verifier.Verifier
	if cfg.Merge.Verify != config.VerifySkip {
		v, err = verifier.NewVerifier(fs, verifier.VerificationMethod(cfg.Merge.Verify), log)
		if err != nil {
			return nil, fmt.Errorf("failed to create verifier: %w", err)
		}
	}
	executor, err := NewMergeExecutor(fs, v, cfg.Merge.OnConflict, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create merge executor: %w", err)
	}

	return &Reconciler{
		config:    cfg,
		fs:        fs,
		indexer:   ix,
		backup:    backup,
		preflight: preflight,
		executor:  executor,
		logger:    log,
	}, nil
}

// Preflight exposes the checker so callers can validate roots without
// running.
func (r *Reconciler) Preflight() *PreflightChecker {
	return r.preflight
}

// Run executes one reconciliation. Fatal problems are returned before any
// file is touched; per-file failures end up in Result.Log.
func (r *Reconciler) Run(ctx context.Context, opts Options) (*Result, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context is nil")
	}

	result := &Result{
		RunID:     uuid.NewString(),
		DryRun:    opts.DryRun,
		StartedAt: time.Now(),
	}
	log := r.logger.WithRun(result.RunID)
	defer func() {
		result.CompletedAt = time.Now()
		result.Duration = result.CompletedAt.Sub(result.StartedAt)
	}()

	log.Infow("Starting reconciliation",
		"root_a", opts.RootA,
		"root_b", opts.RootB,
		"dry_run", opts.DryRun,
		"copy", opts.CopyMode,
	)

	if err := r.preflight.ValidateRoots(opts.RootA, opts.RootB); err != nil {
		return result, err
	}
	live := !opts.DryRun
	var backupErr error
	if opts.CopyMode {
		backupErr = r.preflight.ValidateBackupAbsent(opts.RootA, opts.RootB)
		if backupErr != nil && !live {
			log.Warnw("Backup directory already present, a live copy-mode run would abort", "error", backupErr)
			result.Warnings = append(result.Warnings, backupErr.Error())
		}
	}

	idxA, idxB, err := r.indexBoth(opts.RootA, opts.RootB)
	if err != nil {
		return result, err
	}
	result.IndexA, result.IndexB = idxA, idxB

	if opts.Report != nil {
		if err := report.Write(opts.Report, idxA, idxB); err != nil {
			return result, fmt.Errorf("failed to write report: %w", err)
		}
		result.ReportWritten = true
	}

	// Nothing has been touched yet; the report still reflects both trees.
	if live && backupErr != nil {
		return result, backupErr
	}

	plan := BuildPlan(Resolve(idxA), Resolve(idxB))
	result.Plan = plan
	log.Infow("Plan computed",
		"remove_a", len(plan.RemoveA),
		"remove_b", len(plan.RemoveB),
		"copy_into_a", len(plan.MissingFromA),
		"copy_into_b", len(plan.MissingFromB),
	)

	if live && plan.Empty() {
		log.Info("Trees already reconciled, nothing to do")
		result.Log = r.executor.Apply(ctx, result.RunID, plan, opts.DryRun)
		return result, nil
	}

	if live {
		if err := r.preflight.ValidateFreeSpace(plan, idxA, idxB, opts.CopyMode); err != nil {
			return result, err
		}

		if opts.Confirm == nil {
			return result, ErrConfirmationRequired
		}
		ok, err := opts.Confirm(plan)
		if err != nil {
			return result, fmt.Errorf("confirmation failed: %w", err)
		}
		if !ok {
			log.Info("Run declined, no changes made")
			result.Declined = true
			return result, nil
		}

		if opts.CopyMode {
			stats, err := r.backup.Snapshot(opts.RootA, opts.RootB)
			if err != nil {
				return result, err
			}
			result.Backup = &stats
		}
	}

	result.Log = r.executor.Apply(ctx, result.RunID, plan, opts.DryRun)

	summary := result.Log.Summary()
	log.Infow("Reconciliation finished",
		"removed", summary.Removed,
		"copied", summary.Copied,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
	)
	if err := ctx.Err(); err != nil && summary.Skipped > 0 {
		log.Warnw("Run interrupted, remaining actions skipped", "skipped", summary.Skipped)
	}

	return result, nil
}

// indexBoth walks the two roots concurrently and waits for both.
func (r *Reconciler) indexBoth(rootA, rootB string) (*index.DirectoryIndex, *index.DirectoryIndex, error) {
	var idxA, idxB *index.DirectoryIndex

	p := pool.New().WithErrors()
	p.Go(func() error {
		var err error
		idxA, err = r.indexer.Index(rootA)
		return err
	})
	p.Go(func() error {
		var err error
		idxB, err = r.indexer.Index(rootB)
		return err
	})
	if err := p.Wait(); err != nil {
		return nil, nil, fmt.Errorf("indexing failed: %w", err)
	}

	return idxA, idxB, nil
}
