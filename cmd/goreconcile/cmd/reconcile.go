package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/dbsmedya/goreconcile/internal/config"
	"github.com/dbsmedya/goreconcile/internal/logger"
	"github.com/dbsmedya/goreconcile/internal/reconcile"
	"github.com/dbsmedya/goreconcile/internal/report"
	"github.com/dbsmedya/goreconcile/internal/shutdown"
)

func runReconcile(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	in := bufio.NewReader(cmd.InOrStdin())
	out := cmd.OutOrStdout()

	rootA, rootB, err := selectRoots(in, out, args)
	if err != nil {
		return err
	}
	if rootA, err = resolveRoot(rootA); err != nil {
		return err
	}
	if rootB, err = resolveRoot(rootB); err != nil {
		return err
	}

	reportFile := cfg.Report.Path
	if reportFile == "" {
		reportFile = report.DefaultPath(config.DefaultReportFileName)
	}
	rf, err := os.CreateTemp(filepath.Dir(reportFile), ".goreconcile-report-*")
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer func() {
		rf.Close()
		_ = os.Remove(rf.Name())
	}()

	ctx, cancel := shutdown.SetupSignalHandler(context.Background(), func(sig os.Signal) {
		log.Warnw("Received shutdown signal, finishing current file", "signal", sig.String())
	})
	defer cancel()

	r, err := reconcile.NewReconciler(cfg, afero.NewOsFs(), log)
	if err != nil {
		return err
	}

	result, err := r.Run(ctx, reconcile.Options{
		RootA:    rootA,
		RootB:    rootB,
		DryRun:   dryRun,
		CopyMode: copyMode,
		Confirm:  newConfirmFunc(in, out, assumeYes),
		Report:   rf,
	})
	if result != nil && result.ReportWritten {
		if err := publishReport(rf, reportFile); err != nil {
			return err
		}
		fmt.Fprintf(out, "Report written to %s\n", reportFile)
	}
	if err != nil {
		return fmt.Errorf("reconciliation failed: %w", err)
	}

	if result.DryRun {
		reconcile.DisplayPlan(out, result.Plan)
	}
	reconcile.DisplaySummary(out, result)

	if cfg.Report.ExecutionLog != "" && result.Log != nil {
		if err := writeExecutionLog(cfg.Report.ExecutionLog, result.Log); err != nil {
			return err
		}
		fmt.Fprintf(out, "Execution log written to %s\n", cfg.Report.ExecutionLog)
	}

	if failed := result.Failed(); failed > 0 && !result.DryRun {
		return fmt.Errorf("reconciliation completed with %d failed actions", failed)
	}
	return nil
}

// resolveRoot makes path absolute and follows a symlinked root to its
// target so the indexer sees a real directory.
func resolveRoot(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("invalid folder %q: %w", path, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("cannot access folder %q: %w", path, err)
	}
	return resolved, nil
}

// publishReport moves the finished temporary report over path. A run that
// stops before the report is complete leaves the previous one in place.
func publishReport(tmp *os.File, path string) error {
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close report file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("failed to set report permissions: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write report %s: %w", path, err)
	}
	return nil
}

func writeExecutionLog(path string, execLog *reconcile.ExecutionLog) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create execution log: %w", err)
	}
	if err := execLog.WriteYAML(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write execution log: %w", err)
	}
	return f.Close()
}
