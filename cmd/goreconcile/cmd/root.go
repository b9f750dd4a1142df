package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/goreconcile/internal/config"
)

// Version information (set via ldflags at build time)
var (
	Version = "0.0.1-dev"
	Commit  = "unknown"
)

// DefaultConfigFile is read when present; --config makes it mandatory.
const DefaultConfigFile = "goreconcile.yaml"

// CLI flags that override config file values
var (
	cfgFile      string
	envFile      string
	logLevel     string
	logFormat    string
	reportPath   string
	executionLog string
)

// Run mode flags
var (
	copyMode  bool
	dryRun    bool
	assumeYes bool
)

var rootCmd = &cobra.Command{
	Use:   "goreconcile [folder1] [folder2]",
	Short: "Two-tree file reconciler",
	Long: `Reconcile two directory trees so that both end up holding the same
set of files.

A file is identified by its name and size. Within each tree, duplicates
are resolved by keeping the most recently modified copy; files present on
only one side are then copied to the other, preserving relative paths.

A comparison report is written on every run. Without --dry-run the plan
is shown and must be confirmed before anything is changed.

Example:
  goreconcile ~/Photos /mnt/backup/Photos --dry-run
  goreconcile ~/Photos /mnt/backup/Photos --copy`,
	Args:         cobra.MaximumNArgs(2),
	Version:      Version,
	SilenceUsage: true,
	RunE:         runReconcile,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", DefaultConfigFile,
		"Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env",
		"Path to a dotenv file loaded before the configuration")

	// Logging overrides
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"Override log format (json, text)")

	// Output overrides
	rootCmd.PersistentFlags().StringVar(&reportPath, "report", "",
		"Override comparison report path (default: comparison.txt next to the executable)")
	rootCmd.PersistentFlags().StringVar(&executionLog, "execution-log", "",
		"Write the execution log as YAML to this path")

	rootCmd.Flags().BoolVarP(&copyMode, "copy", "c", false,
		"Back up both trees into the reserved backup directory before changing anything")
	rootCmd.Flags().BoolVarP(&dryRun, "dry-run", "d", false,
		"Only write the report and show what would be done")
	rootCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false,
		"Apply the plan without asking for confirmation")
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

// CLIOverrides contains flag values that override config file settings
type CLIOverrides struct {
	LogLevel     string
	LogFormat    string
	ReportPath   string
	ExecutionLog string
}

// GetCLIOverrides returns the CLI flag override values
func GetCLIOverrides() CLIOverrides {
	return CLIOverrides{
		LogLevel:     logLevel,
		LogFormat:    logFormat,
		ReportPath:   reportPath,
		ExecutionLog: executionLog,
	}
}

// loadConfig reads the env file and configuration, applies flag overrides
// and validates the result. Files named explicitly must exist.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if err := config.LoadEnvFile(envFile, cmd.Flags().Changed("env-file")); err != nil {
		return nil, err
	}

	load := config.LoadOptional
	if cmd.Flags().Changed("config") {
		load = config.Load
	}
	cfg, err := load(GetConfigFile())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	overrides := GetCLIOverrides()
	cfg.ApplyOverrides(overrides.LogLevel, overrides.LogFormat,
		overrides.ReportPath, overrides.ExecutionLog)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
