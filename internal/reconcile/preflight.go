package reconcile

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/disk"
	"github.com/spf13/afero"

	"github.com/dbsmedya/goreconcile/internal/config"
	"github.com/dbsmedya/goreconcile/internal/index"
	"github.com/dbsmedya/goreconcile/internal/logger"
)

// PreflightError represents a preflight check failure.
type PreflightError struct {
	Check   string
	Message string
	Paths   []string
	Err     error
}

func (e *PreflightError) Error() string {
	if len(e.Paths) > 0 {
		return fmt.Sprintf("%s: %s (paths: %v)", e.Check, e.Message, e.Paths)
	}
	return fmt.Sprintf("%s: %s", e.Check, e.Message)
}

func (e *PreflightError) Unwrap() error {
	return e.Err
}

// FreeSpaceFunc reports the bytes available on the filesystem holding path.
type FreeSpaceFunc func(path string) (uint64, error)

func diskFree(path string) (uint64, error) {
	usage, err := disk.Usage(path)
	if err != nil {
		return 0, err
	}
	return usage.Free, nil
}

// PreflightChecker performs safety checks before any file is touched.
type PreflightChecker struct {
	fs        afero.Fs
	backup    *BackupManager
	safety    config.SafetyConfig
	freeSpace FreeSpaceFunc
	logger    *logger.Logger
}

// NewPreflightChecker creates a new preflight checker.
func NewPreflightChecker(fs afero.Fs, backup *BackupManager, safety config.SafetyConfig, log *logger.Logger) (*PreflightChecker, error) {
	if fs == nil {
		return nil, fmt.Errorf("filesystem is nil")
	}
	if backup == nil {
		return nil, fmt.Errorf("backup manager is nil")
	}
	if log == nil {
		log = logger.NewDefault()
	}

	return &PreflightChecker{
		fs:        fs,
		backup:    backup,
		safety:    safety,
		freeSpace: diskFree,
		logger:    log,
	}, nil
}

// SetFreeSpaceFunc replaces the disk usage probe.
func (p *PreflightChecker) SetFreeSpaceFunc(fn FreeSpaceFunc) {
	if fn != nil {
		p.freeSpace = fn
	}
}

// ValidateRoots checks that both roots are accessible directories and that
// neither contains the other.
func (p *PreflightChecker) ValidateRoots(rootA, rootB string) error {
	p.logger.Debug("Checking roots...")

	for _, root := range []string{rootA, rootB} {
		info, err := p.fs.Stat(root)
		if err != nil {
			return &PreflightError{
				Check:   "root_access",
				Message: fmt.Sprintf("cannot access root: %v", err),
				Paths:   []string{root},
				Err:     err,
			}
		}
		if !info.IsDir() {
			return &PreflightError{
				Check:   "root_type",
				Message: "root is not a directory",
				Paths:   []string{root},
				Err:     index.ErrNotDirectory,
			}
		}
	}

	a, b := filepath.Clean(rootA), filepath.Clean(rootB)
	if a == b {
		return &PreflightError{
			Check:   "root_overlap",
			Message: "both roots are the same directory",
			Paths:   []string{a},
		}
	}
	if within(a, b) || within(b, a) {
		return &PreflightError{
			Check:   "root_overlap",
			Message: "one root is nested inside the other",
			Paths:   []string{a, b},
		}
	}

	p.logger.Debug("Root checks PASSED")
	return nil
}

func within(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// ValidateBackupAbsent refuses to run when either root already holds the
// backup directory.
func (p *PreflightChecker) ValidateBackupAbsent(rootA, rootB string) error {
	err := p.backup.Check(rootA, rootB)
	if err == nil {
		return nil
	}

	var exists *BackupExistsError
	if errors.As(err, &exists) {
		return &PreflightError{
			Check:   "backup_absent",
			Message: "backup directory already exists; move or delete it first",
			Paths:   exists.Paths,
			Err:     err,
		}
	}
	return err
}

// ValidateFreeSpace checks that each root can hold the files copied into it
// plus, with withBackup, a snapshot of its current indexed contents.
// A failing probe is logged and the check passes.
func (p *PreflightChecker) ValidateFreeSpace(plan *Plan, idxA, idxB *index.DirectoryIndex, withBackup bool) error {
	if !p.safety.CheckFreeSpace {
		p.logger.Debug("Free space check disabled")
		return nil
	}

	for _, side := range []Side{SideA, SideB} {
		root := plan.Root(side)
		need := plan.BytesInto(side)
		if withBackup {
			idx := idxA
			if side == SideB {
				idx = idxB
			}
			need += idx.Stats.Bytes
		}
		if need == 0 {
			continue
		}
		need += p.safety.FreeSpaceMarginBytes

		free, err := p.freeSpace(root)
		if err != nil {
			p.logger.Warnw("Could not determine free space", "root", root, "error", err)
			continue
		}
		if uint64(need) > free {
			return &PreflightError{
				Check:   "free_space",
				Message: fmt.Sprintf("need %s, only %s available", formatBytes(need), formatBytes(int64(free))),
				Paths:   []string{root},
			}
		}
		p.logger.Debugw("Free space OK", "root", root, "need", need, "free", free)
	}

	return nil
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
