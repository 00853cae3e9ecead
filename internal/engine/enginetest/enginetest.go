// Package enginetest provides a scripted in-process engine for tests.
//
// The fake writes one artifact per entry point (plus a source map when the
// target asks for one), publishes after-emit and returns stats, all
// synchronously. Watch sessions never observe the filesystem; tests trigger
// rebuilds by calling Invalidate on the returned session.
package enginetest

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/Iron-Ham/packstream/internal/buildconfig"
	"github.com/Iron-Ham/packstream/internal/engine"
)

// Root is the working directory fake targets resolve output paths against.
const Root = "/work"

// File is an artifact emitted by one pass.
type File struct {
	Name     string // relative to the target's output path
	Contents string
}

// Pass scripts the outcome of one build pass.
type Pass struct {
	Files    []File
	Errors   []string
	Warnings []string
}

// EmitFunc decides what pass number n (starting at 1) of a target produces.
type EmitFunc func(t *buildconfig.Target, index, n int) Pass

// Engine is a fake engine.Engine.
type Engine struct {
	// Emit overrides DefaultEmit.
	Emit EmitFunc
	// NewErr is returned by New when set.
	NewErr error
	// WatchErr is returned by WatchTarget when set.
	WatchErr error

	mu             sync.Mutex
	instantiations int
	configs        []*buildconfig.Config
	targets        [][]*Target
}

// New creates a fake engine with DefaultEmit.
func New() *Engine {
	return &Engine{Emit: DefaultEmit}
}

// Name implements engine.Engine.
func (e *Engine) Name() string { return "fake" }

// New implements engine.Engine.
func (e *Engine) New(cfg *buildconfig.Config) (engine.Runner, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.NewErr != nil {
		return nil, e.NewErr
	}
	e.instantiations++
	e.configs = append(e.configs, cfg)

	emit := e.Emit
	if emit == nil {
		emit = DefaultEmit
	}

	targets := make([]*Target, len(cfg.Targets))
	runners := make([]engine.TargetRunner, len(cfg.Targets))
	for i, t := range cfg.Targets {
		out := t.Output.Path
		if out == "" {
			out = "dist"
		}
		targets[i] = &Target{
			name:       cfg.TargetName(i),
			index:      i,
			target:     t,
			outputPath: filepath.Join(Root, out),
			fs:         afero.NewMemMapFs(),
			hooks:      engine.NewHooks(),
			emit:       emit,
			watchErr:   e.WatchErr,
		}
		runners[i] = targets[i]
	}
	e.targets = append(e.targets, targets)
	return engine.NewRunner(cfg.Multi, runners...), nil
}

// Instantiations returns how many runners New created.
func (e *Engine) Instantiations() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.instantiations
}

// LastConfig returns the configuration of the most recent runner.
func (e *Engine) LastConfig() *buildconfig.Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.configs) == 0 {
		return nil
	}
	return e.configs[len(e.configs)-1]
}

// LastTargets returns the targets of the most recent runner.
func (e *Engine) LastTargets() []*Target {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.targets) == 0 {
		return nil
	}
	return e.targets[len(e.targets)-1]
}

// DefaultEmit writes "<pattern>.js" for every entry, where pattern is the
// target's entry naming pattern with [name] substituted, and a matching
// ".js.map" when the target's source map mode writes map files.
func DefaultEmit(t *buildconfig.Target, _, _ int) Pass {
	pattern := t.Output.EntryNames
	if pattern == "" {
		pattern = "[name]"
	}

	var p Pass
	for _, name := range t.EntryNames() {
		base := strings.ReplaceAll(pattern, "[name]", name) + ".js"
		p.Files = append(p.Files, File{Name: base, Contents: fmt.Sprintf("// bundle %s\n", name)})
		switch t.Sourcemap {
		case "linked", "external", "both":
			p.Files = append(p.Files, File{Name: base + ".map", Contents: SourceMapFor(t.Entry[name], base)})
		}
	}
	return p
}

// SourceMapFor returns a one-segment source map from source to file.
func SourceMapFor(source, file string) string {
	return fmt.Sprintf(`{"version":3,"file":%q,"sources":[%q],"names":[],"mappings":"AAAA"}`,
		path.Base(file), filepath.ToSlash(source))
}

// Target is a fake engine.TargetRunner.
type Target struct {
	name       string
	index      int
	target     *buildconfig.Target
	outputPath string
	emit       EmitFunc
	watchErr   error

	mu       sync.Mutex
	fs       afero.Fs
	hooks    *engine.Hooks
	passes   int
	closes   int
	session  *engine.Session
	watchOpt engine.WatchOptions
}

func (t *Target) Name() string         { return t.name }
func (t *Target) OutputPath() string   { return t.outputPath }
func (t *Target) Hooks() *engine.Hooks { return t.hooks }

func (t *Target) OutputFileSystem() afero.Fs {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fs
}

func (t *Target) SetOutputFileSystem(fs afero.Fs) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fs = fs
}

// Passes returns the number of completed build passes.
func (t *Target) Passes() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.passes
}

// Close implements engine.TargetRunner.
func (t *Target) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closes++
	return nil
}

// Closes returns how often Close was called.
func (t *Target) Closes() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closes
}

// Session returns the watch session, or nil outside watch mode.
func (t *Target) Session() *engine.Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.session
}

// WatchOptions returns the options WatchTarget received.
func (t *Target) WatchOptions() engine.WatchOptions {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.watchOpt
}

// Build implements engine.TargetRunner.
func (t *Target) Build(ctx context.Context) (*engine.Stats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.Lock()
	t.passes++
	n := t.passes
	fs := t.fs
	t.mu.Unlock()

	start := time.Now()
	pass := t.emit(t.target, t.index, n)

	comp := &engine.Compilation{
		Target:     t.name,
		Index:      t.index,
		BuildID:    fmt.Sprintf("%s-%d", t.name, n),
		OutputPath: t.outputPath,
		StartTime:  start,
		Hash:       fmt.Sprintf("%08x", n),
	}
	for _, f := range pass.Files {
		full := filepath.Join(t.outputPath, filepath.FromSlash(f.Name))
		if err := fs.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return nil, err
		}
		if err := afero.WriteFile(fs, full, []byte(f.Contents), 0o644); err != nil {
			return nil, err
		}
		comp.Assets = append(comp.Assets, engine.Asset{Name: f.Name, Size: len(f.Contents)})
	}
	for _, msg := range pass.Errors {
		comp.Errors = append(comp.Errors, engine.Message{Text: msg})
	}
	for _, msg := range pass.Warnings {
		comp.Warnings = append(comp.Warnings, engine.Message{Text: msg})
	}
	for _, name := range t.target.EntryNames() {
		comp.Inputs = append(comp.Inputs, t.target.Entry[name])
	}
	comp.Duration = time.Since(start)

	if err := t.hooks.CallAfterEmit(comp); err != nil {
		return nil, err
	}
	return &engine.Stats{Compilation: comp}, nil
}

// WatchTarget implements engine.TargetRunner. The first pass runs before it
// returns.
func (t *Target) WatchTarget(ctx context.Context, opts engine.WatchOptions, cb func(*engine.Stats, error)) (engine.Watching, error) {
	if t.watchErr != nil {
		return nil, t.watchErr
	}

	session := engine.NewSession(func() {
		s, err := t.Build(ctx)
		cb(s, err)
	}, nil)

	t.mu.Lock()
	t.session = session
	t.watchOpt = opts
	t.mu.Unlock()

	session.Invalidate()
	return session, nil
}
