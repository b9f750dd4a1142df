package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment variable overrides (GORECONCILE_MERGE_VERIFY, ...).
const EnvPrefix = "GORECONCILE"

// Load reads configuration from the specified file path.
// It supports YAML files, GORECONCILE_* environment overrides and
// performs environment variable substitution in path values.
// An empty path yields the defaults plus environment overrides.
func Load(configPath string) (*Config, error) {
	v := newViper()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return LoadFromViper(v)
}

// LoadOptional behaves like Load but treats a missing file as "use defaults".
// It is used for the implicit default config path.
func LoadOptional(configPath string) (*Config, error) {
	if configPath == "" {
		return Load("")
	}
	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		return Load("")
	}
	return Load(configPath)
}

// LoadFromViper creates a Config from an existing Viper instance.
// Useful for testing or when Viper is configured externally.
func LoadFromViper(v *viper.Viper) (*Config, error) {
	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := substituteEnvVars(cfg); err != nil {
		return nil, fmt.Errorf("failed to substitute environment variables: %w", err)
	}

	return cfg, nil
}

// LoadEnvFile loads KEY=VALUE pairs from a dotenv file into the process
// environment. Existing variables are not overwritten. A missing file is
// only an error when required is set.
func LoadEnvFile(path string, required bool) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if !required && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// newViper returns a viper instance with every known key bound to its
// GORECONCILE_* environment variable.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only resolves keys viper already knows about, so seed
	// them from the defaults.
	defaults := DefaultConfig()
	v.SetDefault("scan.exclude", defaults.Scan.Exclude)
	v.SetDefault("backup.dir_name", defaults.Backup.DirName)
	v.SetDefault("merge.on_conflict", defaults.Merge.OnConflict)
	v.SetDefault("merge.verify", defaults.Merge.Verify)
	v.SetDefault("safety.check_free_space", defaults.Safety.CheckFreeSpace)
	v.SetDefault("safety.free_space_margin_bytes", defaults.Safety.FreeSpaceMarginBytes)
	v.SetDefault("report.path", defaults.Report.Path)
	v.SetDefault("report.execution_log", defaults.Report.ExecutionLog)
	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.format", defaults.Logging.Format)
	v.SetDefault("logging.output", defaults.Logging.Output)

	return v
}

// envVarPattern matches ${VAR_NAME} or $VAR_NAME patterns
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// substituteEnvVars replaces ${VAR_NAME} patterns with environment variable values.
func substituteEnvVars(cfg *Config) error {
	cfg.Report.Path = expandEnvVar(cfg.Report.Path)
	cfg.Report.ExecutionLog = expandEnvVar(cfg.Report.ExecutionLog)
	cfg.Logging.Output = expandEnvVar(cfg.Logging.Output)

	return nil
}

// expandEnvVar expands environment variables in the format ${VAR} or $VAR.
func expandEnvVar(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		var varName string
		if strings.HasPrefix(match, "${") {
			varName = match[2 : len(match)-1]
		} else {
			varName = match[1:]
		}

		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		// Return original if env var not found
		return match
	})
}

// ApplyOverrides applies CLI flag overrides to the configuration.
// Only non-empty values are applied.
func (c *Config) ApplyOverrides(logLevel, logFormat, reportPath, executionLog string) {
	if logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFormat != "" {
		c.Logging.Format = logFormat
	}
	if reportPath != "" {
		c.Report.Path = reportPath
	}
	if executionLog != "" {
		c.Report.ExecutionLog = executionLog
	}
}
