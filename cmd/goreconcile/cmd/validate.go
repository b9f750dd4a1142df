package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/dbsmedya/goreconcile/internal/logger"
	"github.com/dbsmedya/goreconcile/internal/reconcile"
)

var validateCmd = &cobra.Command{
	Use:   "validate [folder1 folder2]",
	Short: "Validate configuration and run preflight checks",
	Long: `Validate checks the configuration file and, when two folders are
given, runs the preflight checks a reconciliation would run first.

Checks performed:
  - Configuration syntax and values
  - Both folders exist and are directories
  - Folders are not the same and not nested
  - Presence of a leftover backup directory (blocks --copy)

Example:
  goreconcile validate --config goreconcile.yaml ~/Photos /mnt/backup/Photos`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 0 && len(args) != 2 {
			return fmt.Errorf("expected no folders or two folders, got %d", len(args))
		}
		return nil
	},
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		cmd.Printf("❌ Configuration invalid: %v\n", err)
		return fmt.Errorf("validation failed")
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	cmd.Printf("\n=== Configuration Validation ===\n")
	cmd.Printf("Config file: %s\n", GetConfigFile())
	cmd.Printf("Excludes: %s\n", strings.Join(cfg.Scan.Exclude, ", "))
	cmd.Printf("Backup directory: %s\n", cfg.Backup.DirName)
	cmd.Printf("On conflict: %s\n", cfg.Merge.OnConflict)
	cmd.Printf("Verify: %s\n", cfg.Merge.Verify)
	cmd.Printf("✅ Configuration valid\n\n")

	if len(args) == 0 {
		cmd.Println("=== Validation Complete ===")
		return nil
	}

	rootA, err := resolveRoot(args[0])
	if err != nil {
		cmd.Printf("❌ %v\n", err)
		return fmt.Errorf("validation failed")
	}
	rootB, err := resolveRoot(args[1])
	if err != nil {
		cmd.Printf("❌ %v\n", err)
		return fmt.Errorf("validation failed")
	}

	r, err := reconcile.NewReconciler(cfg, afero.NewOsFs(), log)
	if err != nil {
		return err
	}
	checker := r.Preflight()

	cmd.Printf("=== Preflight Checks ===\n")
	cmd.Printf("A: %s\n", rootA)
	cmd.Printf("B: %s\n", rootB)

	if err := checker.ValidateRoots(rootA, rootB); err != nil {
		cmd.Printf("❌ %v\n\n", err)
		return fmt.Errorf("validation failed")
	}
	cmd.Printf("✅ Folders usable\n")

	if err := checker.ValidateBackupAbsent(rootA, rootB); err != nil {
		cmd.Printf("⚠️  %v\n", err)
		cmd.Printf("   --copy will refuse to run until it is removed\n\n")
	} else {
		cmd.Printf("✅ No leftover backup directory\n\n")
	}

	cmd.Println("=== Validation Complete ===")
	return nil
}
