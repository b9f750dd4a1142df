// Package config provides configuration structures and loading for GoReconcile.
package config

// Config represents the complete application configuration.
type Config struct {
	Scan    ScanConfig    `yaml:"scan" mapstructure:"scan"`
	Backup  BackupConfig  `yaml:"backup" mapstructure:"backup"`
	Merge   MergeConfig   `yaml:"merge" mapstructure:"merge"`
	Safety  SafetyConfig  `yaml:"safety" mapstructure:"safety"`
	Report  ReportConfig  `yaml:"report" mapstructure:"report"`
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
}

// ScanConfig controls how a tree is indexed.
type ScanConfig struct {
	// Exclude holds doublestar globs matched against slash-separated paths
	// relative to the root being scanned.
	Exclude []string `yaml:"exclude" mapstructure:"exclude"`
}

// BackupConfig controls the safety snapshot taken in copy mode.
type BackupConfig struct {
	DirName string `yaml:"dir_name" mapstructure:"dir_name"`
}

// MergeConfig controls how removals and copies are applied.
type MergeConfig struct {
	OnConflict string `yaml:"on_conflict" mapstructure:"on_conflict"` // fail or skip
	Verify     string `yaml:"verify" mapstructure:"verify"`           // size, sha256 or skip
}

// SafetyConfig represents preflight safety settings.
type SafetyConfig struct {
	CheckFreeSpace       bool  `yaml:"check_free_space" mapstructure:"check_free_space"`
	FreeSpaceMarginBytes int64 `yaml:"free_space_margin_bytes" mapstructure:"free_space_margin_bytes"`
}

// ReportConfig controls where run artifacts are written.
type ReportConfig struct {
	Path         string `yaml:"path" mapstructure:"path"`                   // empty = next to the executable
	ExecutionLog string `yaml:"execution_log" mapstructure:"execution_log"` // empty = not persisted
}

// LoggingConfig represents logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json or text
	Output string `yaml:"output" mapstructure:"output"` // stdout, stderr, or file path
}

const (
	// DefaultBackupDirName is the reserved directory created under each root in copy mode.
	DefaultBackupDirName = "AUTOMATIC_BACKUP"
	// DefaultReportFileName is the comparison report written next to the executable.
	DefaultReportFileName = "comparison.txt"

	ConflictFail = "fail"
	ConflictSkip = "skip"

	VerifySize   = "size"
	VerifySHA256 = "sha256"
	VerifySkip   = "skip"
)

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Scan: ScanConfig{
			Exclude: []string{},
		},
		Backup: BackupConfig{
			DirName: DefaultBackupDirName,
		},
		Merge: MergeConfig{
			OnConflict: ConflictFail,
			Verify:     VerifySize,
		},
		Safety: SafetyConfig{
			CheckFreeSpace:       true,
			FreeSpaceMarginBytes: 64 << 20,
		},
		Report: ReportConfig{},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}
