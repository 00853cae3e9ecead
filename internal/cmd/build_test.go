package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/Iron-Ham/packstream/internal/errors"
	"github.com/Iron-Ham/packstream/internal/logging"
)

func TestBuildCmd_RequiresPatterns(t *testing.T) {
	if err := buildCmd.Args(buildCmd, nil); err == nil {
		t.Error("build without patterns should fail argument validation")
	}
	if err := buildCmd.Args(buildCmd, []string{"src/*.js"}); err != nil {
		t.Errorf("Args() error = %v", err)
	}
}

func TestBuildCmd_Flags(t *testing.T) {
	for _, name := range []string{"out", "watch", "log-mode", "watch-resume", "suspend-policy"} {
		if buildCmd.Flags().Lookup(name) == nil {
			t.Errorf("missing --%s flag", name)
		}
	}
	if buildCmd.Flags().ShorthandLookup("w") == nil || buildCmd.Flags().ShorthandLookup("o") == nil {
		t.Error("missing -w/-o shorthands")
	}
}

func TestRootCmd_Subcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"build", "config"} {
		if !names[want] {
			t.Errorf("root command missing %q", want)
		}
	}
}

func TestBuildFailure(t *testing.T) {
	t.Run("user-facing error keeps its message", func(t *testing.T) {
		var logs bytes.Buffer
		compErr := errors.NewCompilationError([]string{"app.js: unexpected token"})

		got := buildFailure(logging.NewWriterLogger(&logs, logging.LevelError), compErr)
		if got != compErr {
			t.Errorf("buildFailure() = %v, want the compilation error unchanged", got)
		}
		if logs.Len() != 0 {
			t.Errorf("user-facing failure was logged: %s", logs.String())
		}
	})

	t.Run("internal error is wrapped and logged", func(t *testing.T) {
		var logs bytes.Buffer
		cause := errors.New("esbuild exploded")
		engErr := errors.NewEngineInvocationError("run", cause)

		got := buildFailure(logging.NewWriterLogger(&logs, logging.LevelError), engErr)
		if !strings.HasPrefix(got.Error(), "build failed: ") {
			t.Errorf("buildFailure() = %q, want build failed prefix", got.Error())
		}
		if !errors.Is(got, cause) || !errors.Is(got, errors.ErrEngineInvocation) {
			t.Error("wrapped error lost its cause")
		}
		if !strings.Contains(logs.String(), "build: engine failed") {
			t.Errorf("critical failure not logged: %s", logs.String())
		}
	})

	t.Run("plain error is wrapped", func(t *testing.T) {
		got := buildFailure(logging.NopLogger(), errors.New("disk full"))
		if got.Error() != "build failed: disk full" {
			t.Errorf("buildFailure() = %q", got.Error())
		}
	})
}
