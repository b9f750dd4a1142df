package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// Validate checks the configuration for required fields and valid values.
func (c *Config) Validate() error {
	var errors ValidationErrors

	errors = append(errors, c.validateScan()...)
	errors = append(errors, c.validateBackup()...)
	errors = append(errors, c.validateMerge()...)
	errors = append(errors, c.validateSafety()...)
	errors = append(errors, c.validateLogging()...)

	if len(errors) > 0 {
		return errors
	}
	return nil
}

func (c *Config) validateScan() ValidationErrors {
	var errors ValidationErrors

	for i, pattern := range c.Scan.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("scan.exclude[%d]", i),
				Message: fmt.Sprintf("invalid glob pattern %q", pattern),
			})
		}
	}

	return errors
}

func (c *Config) validateBackup() ValidationErrors {
	var errors ValidationErrors

	name := c.Backup.DirName
	switch {
	case name == "":
		errors = append(errors, ValidationError{
			Field:   "backup.dir_name",
			Message: "dir_name is required",
		})
	case name == "." || name == ".." || strings.ContainsAny(name, `/\`) || filepath.Base(name) != name:
		errors = append(errors, ValidationError{
			Field:   "backup.dir_name",
			Message: "dir_name must be a single path element",
		})
	}

	return errors
}

func (c *Config) validateMerge() ValidationErrors {
	var errors ValidationErrors

	validConflict := map[string]bool{ConflictFail: true, ConflictSkip: true, "": true}
	if !validConflict[c.Merge.OnConflict] {
		errors = append(errors, ValidationError{
			Field:   "merge.on_conflict",
			Message: "on_conflict must be 'fail' or 'skip'",
		})
	}

	validVerify := map[string]bool{VerifySize: true, VerifySHA256: true, VerifySkip: true, "": true}
	if !validVerify[c.Merge.Verify] {
		errors = append(errors, ValidationError{
			Field:   "merge.verify",
			Message: "verify must be 'size', 'sha256', or 'skip'",
		})
	}

	return errors
}

func (c *Config) validateSafety() ValidationErrors {
	var errors ValidationErrors

	if c.Safety.FreeSpaceMarginBytes < 0 {
		errors = append(errors, ValidationError{
			Field:   "safety.free_space_margin_bytes",
			Message: "free_space_margin_bytes cannot be negative",
		})
	}

	return errors
}

func (c *Config) validateLogging() ValidationErrors {
	var errors ValidationErrors

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "": true}
	if !validLevels[c.Logging.Level] {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Message: "level must be 'debug', 'info', 'warn', or 'error'",
		})
	}

	validFormats := map[string]bool{"json": true, "text": true, "": true}
	if !validFormats[c.Logging.Format] {
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Message: "format must be 'json' or 'text'",
		})
	}

	return errors
}
