package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gobwas/glob"

	"github.com/Iron-Ham/packstream/internal/logging"
	"github.com/Iron-Ham/packstream/internal/report"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "stats.performance_budget")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogModes returns the list of valid log modes
func ValidLogModes() []string {
	modes := report.ValidModes()
	out := make([]string, len(modes))
	for i, m := range modes {
		out[i] = string(m)
	}
	return out
}

// ValidSuspendPolicies returns the list of valid suspend policies
func ValidSuspendPolicies() []string {
	return []string{string(report.Lockstep), string(report.Independent)}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateReporting()...)
	errors = append(errors, c.validateStats()...)
	errors = append(errors, c.validateWatch()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validateTargets()...)

	return errors
}

func (c *Config) validateReporting() []ValidationError {
	var errors []ValidationError

	if c.LogMode != "" && !slices.Contains(ValidLogModes(), c.LogMode) {
		errors = append(errors, ValidationError{
			Field:   "log_mode",
			Value:   c.LogMode,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogModes(), ", ")),
		})
	}

	if c.SuspendPolicy != "" && !slices.Contains(ValidSuspendPolicies(), c.SuspendPolicy) {
		errors = append(errors, ValidationError{
			Field:   "suspend_policy",
			Value:   c.SuspendPolicy,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidSuspendPolicies(), ", ")),
		})
	}

	if c.WatchResume < 0 {
		errors = append(errors, ValidationError{
			Field:   "watch_resume",
			Value:   c.WatchResume,
			Message: "must be non-negative",
		})
	}

	if strings.TrimSpace(c.OutDir) == "" {
		errors = append(errors, ValidationError{
			Field:   "out_dir",
			Value:   c.OutDir,
			Message: "must not be empty",
		})
	}

	return errors
}

func (c *Config) validateStats() []ValidationError {
	var errors []ValidationError

	if c.Stats.PerformanceBudget < 0 {
		errors = append(errors, ValidationError{
			Field:   "stats.performance_budget",
			Value:   c.Stats.PerformanceBudget,
			Message: "must be non-negative (0 uses the default)",
		})
	}

	return errors
}

func (c *Config) validateWatch() []ValidationError {
	var errors []ValidationError

	if c.WatchOptions.AggregateTimeoutMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "watch_options.aggregate_timeout_ms",
			Value:   c.WatchOptions.AggregateTimeoutMs,
			Message: "must be non-negative",
		})
	}

	for i, pattern := range c.WatchOptions.Ignored {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("watch_options.ignored[%d]", i),
				Value:   pattern,
				Message: fmt.Sprintf("invalid glob pattern: %v", err),
			})
		}
	}

	for i, p := range c.WatchOptions.Paths {
		if strings.TrimSpace(p) == "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("watch_options.paths[%d]", i),
				Value:   p,
				Message: "must not be empty",
			})
		}
	}

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(logging.ValidLevels(), strings.ToUpper(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(logging.ValidLevels(), ", ")),
		})
	}

	return errors
}

func (c *Config) validateTargets() []ValidationError {
	if c.Targets == nil {
		return nil
	}
	if _, err := c.BuildConfig(); err != nil {
		return []ValidationError{{
			Field:   "targets",
			Value:   fmt.Sprintf("%T", c.Targets),
			Message: err.Error(),
		}}
	}
	return nil
}
