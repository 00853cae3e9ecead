// Package esbuild implements engine.Engine on top of the esbuild Go API.
//
// Each target owns one incremental esbuild build context. Builds never touch
// the disk: esbuild returns artifacts in memory and the target copies them to
// whatever output filesystem the bridge installed. Watch mode observes the
// inputs reported by esbuild's metafile (plus any extra paths) with fsnotify
// and calls Rebuild on the same context.
package esbuild

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Iron-Ham/packstream/internal/buildconfig"
	"github.com/Iron-Ham/packstream/internal/engine"
	"github.com/Iron-Ham/packstream/internal/errors"
	"github.com/Iron-Ham/packstream/internal/logging"
)

// Engine builds configurations with esbuild.
type Engine struct {
	cwd    string
	logger *logging.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkingDir sets the directory relative entry and output paths resolve
// against. Defaults to the process working directory.
func WithWorkingDir(dir string) Option {
	return func(e *Engine) {
		e.cwd = dir
	}
}

// WithLogger sets the logger for engine diagnostics.
func WithLogger(logger *logging.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New creates an esbuild engine.
func New(opts ...Option) *Engine {
	e := &Engine{logger: logging.NopLogger()}
	for _, opt := range opts {
		opt(e)
	}
	if e.cwd == "" {
		if wd, err := os.Getwd(); err == nil {
			e.cwd = wd
		}
	}
	if abs, err := filepath.Abs(e.cwd); err == nil {
		e.cwd = abs
	}
	return e
}

// Name implements engine.Engine.
func (e *Engine) Name() string { return "esbuild" }

// WorkingDir returns the directory paths resolve against.
func (e *Engine) WorkingDir() string { return e.cwd }

// New implements engine.Engine. Invalid target options are reported as
// EngineInvocationError.
func (e *Engine) New(cfg *buildconfig.Config) (engine.Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	targets := make([]engine.TargetRunner, len(cfg.Targets))
	for i, t := range cfg.Targets {
		name := cfg.TargetName(i)
		opts, err := buildOptions(e.cwd, t)
		if err != nil {
			return nil, errors.NewEngineInvocationError(
				"configure target", fmt.Errorf("target %s: %w", name, err))
		}
		targets[i] = newTarget(name, i, opts, e.logger.WithTarget(name))
	}
	return engine.NewRunner(cfg.Multi, targets...), nil
}
