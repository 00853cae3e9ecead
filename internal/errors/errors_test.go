package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

// -----------------------------------------------------------------------------
// Severity Tests
// -----------------------------------------------------------------------------

func TestSeverity_String(t *testing.T) {
	tests := []struct {
		severity Severity
		want     string
	}{
		{SeverityWarning, "warning"},
		{SeverityError, "error"},
		{SeverityCritical, "critical"},
		{Severity(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.severity.String(); got != tt.want {
				t.Errorf("Severity.String() = %q, want %q", got, tt.want)
			}
		})
	}
}

// -----------------------------------------------------------------------------
// Error Kind Tests
// -----------------------------------------------------------------------------

func TestErrorKinds_PluginTagged(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		contains string
	}{
		{
			name:     "missing configuration",
			err:      NewMissingConfigurationError("target list is empty"),
			sentinel: ErrMissingConfiguration,
			contains: "target list is empty",
		},
		{
			name:     "unsupported content",
			err:      NewUnsupportedContentError("app.js"),
			sentinel: ErrUnsupportedContent,
			contains: `"app.js"`,
		},
		{
			name:     "compilation",
			err:      NewCompilationError([]string{"first", "second"}),
			sentinel: ErrCompilation,
			contains: "first\nsecond",
		},
		{
			name:     "engine invocation",
			err:      NewEngineInvocationError("run", fmt.Errorf("boom")),
			sentinel: ErrEngineInvocation,
			contains: "run: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			if !strings.HasPrefix(msg, PluginName+": ") {
				t.Errorf("Error() = %q, want prefix %q", msg, PluginName+": ")
			}
			if !strings.Contains(msg, tt.contains) {
				t.Errorf("Error() = %q, want it to contain %q", msg, tt.contains)
			}
			if !Is(tt.err, tt.sentinel) {
				t.Errorf("errors.Is(%v, %v) = false", tt.err, tt.sentinel)
			}
			if !IsPluginError(tt.err) {
				t.Error("IsPluginError() = false, want true")
			}
		})
	}
}

func TestEngineInvocationError_Unwrap(t *testing.T) {
	cause := errors.New("engine exploded")
	err := NewEngineInvocationError("watch", cause)

	if !Is(err, cause) {
		t.Error("errors.Is should match the wrapped cause")
	}
	if err.Severity() != SeverityCritical {
		t.Errorf("Severity() = %v, want %v", err.Severity(), SeverityCritical)
	}
	if err.IsUserFacing() {
		t.Error("IsUserFacing() = true, want false")
	}
}

func TestCompilationError_Fields(t *testing.T) {
	err := NewCompilationError([]string{"a", "b"}).WithTarget("web")

	var compErr *CompilationError
	if !As(Wrap(err, "flush"), &compErr) {
		t.Fatal("errors.As should find the CompilationError through a wrap")
	}
	if compErr.Target != "web" {
		t.Errorf("Target = %q, want %q", compErr.Target, "web")
	}
	if len(compErr.Messages) != 2 {
		t.Errorf("Messages = %v, want 2 entries", compErr.Messages)
	}
}

func TestMissingConfigurationError_WithSource(t *testing.T) {
	err := NewMissingConfigurationError("").WithSource("packstream.yaml")
	if err.Source != "packstream.yaml" {
		t.Errorf("Source = %q", err.Source)
	}
	if !strings.Contains(err.Error(), "packstream.yaml") {
		t.Errorf("Error() = %q, want source in message", err.Error())
	}
}

// -----------------------------------------------------------------------------
// Classification Tests
// -----------------------------------------------------------------------------

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		watch bool
		want  bool
	}{
		{"nil", nil, false, false},
		{"compilation one-shot", NewCompilationError([]string{"x"}), false, true},
		{"compilation watch", NewCompilationError([]string{"x"}), true, false},
		{"engine watch", NewEngineInvocationError("run", errors.New("x")), true, true},
		{"unsupported watch", NewUnsupportedContentError("a"), true, true},
		{"foreign error", errors.New("other"), true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsFatal(tt.err, tt.watch); got != tt.want {
				t.Errorf("IsFatal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetSeverity(t *testing.T) {
	if got := GetSeverity(nil); got != SeverityWarning {
		t.Errorf("GetSeverity(nil) = %v", got)
	}
	if got := GetSeverity(errors.New("x")); got != SeverityError {
		t.Errorf("GetSeverity(plain) = %v", got)
	}
	if got := GetSeverity(NewCompilationError(nil)); got != SeverityError {
		t.Errorf("GetSeverity(compilation) = %v", got)
	}
	if got := GetSeverity(Wrap(NewEngineInvocationError("run", nil), "build")); got != SeverityCritical {
		t.Errorf("GetSeverity(wrapped engine error) = %v", got)
	}
}

func TestIsUserFacing(t *testing.T) {
	if IsUserFacing(nil) {
		t.Error("nil should not be user facing")
	}
	if !IsUserFacing(NewUnsupportedContentError("x")) {
		t.Error("UnsupportedContentError should be user facing")
	}
	if IsUserFacing(errors.New("internal")) {
		t.Error("plain errors should not be user facing")
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, "ctx") != nil {
		t.Error("Wrap(nil) should be nil")
	}
	base := errors.New("base")
	if got := Wrapf(base, "step %d", 2).Error(); got != "step 2: base" {
		t.Errorf("Wrapf() = %q", got)
	}
}
