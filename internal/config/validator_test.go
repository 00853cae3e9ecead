package config

import (
	"strings"
	"testing"
)

func TestValidationError_Error(t *testing.T) {
	err := ValidationError{
		Field:   "test.field",
		Value:   123,
		Message: "must be greater than zero",
	}

	expected := "test.field: must be greater than zero (got: 123)"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestValidationErrors_Error(t *testing.T) {
	t.Run("empty errors", func(t *testing.T) {
		var errs ValidationErrors
		if errs.Error() != "" {
			t.Errorf("Error() for empty = %q, want empty string", errs.Error())
		}
	})

	t.Run("single error", func(t *testing.T) {
		errs := ValidationErrors{
			{Field: "test.field", Value: 123, Message: "is invalid"},
		}
		expected := "test.field: is invalid (got: 123)"
		if errs.Error() != expected {
			t.Errorf("Error() = %q, want %q", errs.Error(), expected)
		}
	})

	t.Run("multiple errors", func(t *testing.T) {
		errs := ValidationErrors{
			{Field: "field1", Value: "bad", Message: "is invalid"},
			{Field: "field2", Value: -1, Message: "must be positive"},
		}
		result := errs.Error()
		if !strings.Contains(result, "2 validation errors") {
			t.Errorf("Error() should mention 2 errors: %s", result)
		}
		if !strings.Contains(result, "field1") || !strings.Contains(result, "field2") {
			t.Errorf("Error() should list every field: %s", result)
		}
	})
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"valid", func(*Config) {}, ""},
		{"empty log mode uses default", func(c *Config) { c.LogMode = "" }, ""},
		{"unknown log mode", func(c *Config) { c.LogMode = "loud" }, "log_mode"},
		{"unknown suspend policy", func(c *Config) { c.SuspendPolicy = "sometimes" }, "suspend_policy"},
		{"negative resume", func(c *Config) { c.WatchResume = -1 }, "watch_resume"},
		{"empty out dir", func(c *Config) { c.OutDir = " " }, "out_dir"},
		{"negative budget", func(c *Config) { c.Stats.PerformanceBudget = -1 }, "stats.performance_budget"},
		{"negative aggregate", func(c *Config) { c.WatchOptions.AggregateTimeoutMs = -5 }, "watch_options.aggregate_timeout_ms"},
		{"bad ignore glob", func(c *Config) { c.WatchOptions.Ignored = []string{"[unclosed"} }, "watch_options.ignored[0]"},
		{"empty watch path", func(c *Config) { c.WatchOptions.Paths = []string{"src", ""} }, "watch_options.paths[1]"},
		{"upper-case level", func(c *Config) { c.Logging.Level = "DEBUG" }, ""},
		{"unknown level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"empty target list", func(c *Config) { c.Targets = []any{} }, "targets"},
		{"target mapping", func(c *Config) { c.Targets = map[string]any{"mode": "production"} }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			errs := cfg.Validate()

			if tt.field == "" {
				if len(errs) != 0 {
					t.Errorf("Validate() = %v, want no errors", errs)
				}
				return
			}
			if len(errs) != 1 {
				t.Fatalf("Validate() returned %d errors, want 1: %v", len(errs), errs)
			}
			if errs[0].Field != tt.field {
				t.Errorf("Field = %q, want %q", errs[0].Field, tt.field)
			}
		})
	}
}

func TestValidLogModes(t *testing.T) {
	modes := ValidLogModes()
	if strings.Join(modes, ",") != "stats,verbose,silent" {
		t.Errorf("ValidLogModes() = %v", modes)
	}
}
