// Package engine defines the contract between a bridge stage and the bundler
// that does the actual building.
//
// The bridge never bundles anything itself. It asks an [Engine] for a
// [Runner] covering a build configuration, installs an in-memory output
// filesystem on every [Compiler], taps each compiler's after-emit hook and
// then runs the build once or under watch. A single-target configuration
// yields a runner with one compiler; a multi-target configuration yields one
// compiler per target (see [NewRunner]).
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/afero"

	"github.com/Iron-Ham/packstream/internal/buildconfig"
)

// Engine creates runners for build configurations.
type Engine interface {
	// Name identifies the engine in logs and stats.
	Name() string

	// New creates a runner for cfg. Entry points must already be synthesized.
	New(cfg *buildconfig.Config) (Runner, error)
}

// Runner builds every target of one configuration.
type Runner interface {
	// Compilers returns one compiler per target, in configuration order.
	Compilers() []Compiler

	// Run performs a single build of every target.
	Run(ctx context.Context) (*Result, error)

	// Watch builds every target and rebuilds on change until the returned
	// session is closed or ctx is cancelled. cb runs after every pass.
	Watch(ctx context.Context, opts WatchOptions, cb Callback) (Watching, error)

	// Close releases engine resources. The runner must not be used after.
	Close() error
}

// Compiler is the per-target view a bridge configures before building.
type Compiler interface {
	// Name returns the target name.
	Name() string

	// OutputPath returns the absolute output directory.
	OutputPath() string

	// OutputFileSystem returns the filesystem artifacts are written to.
	OutputFileSystem() afero.Fs

	// SetOutputFileSystem replaces the filesystem artifacts are written to.
	SetOutputFileSystem(fs afero.Fs)

	// Hooks returns the compiler's hook registry.
	Hooks() *Hooks
}

// Callback receives the result of every watch pass.
type Callback func(result *Result, err error)

// WatchOptions is forwarded to the engine's persistent build.
type WatchOptions struct {
	// AggregateTimeout delays a rebuild after the first change so that
	// bursts of saves produce one build.
	AggregateTimeout time.Duration
	// Ignored holds glob patterns for paths that never trigger a rebuild.
	Ignored []string
	// Paths are watched in addition to the build's own inputs.
	Paths []string
}

// Watching is a persistent build session.
type Watching interface {
	// Invalidate requests a rebuild. A suspended session defers it until Resume.
	Invalidate()
	// Suspend stops rebuilding; changes are remembered.
	Suspend()
	// Resume restarts rebuilding and builds once if anything changed.
	Resume()
	// Suspended reports whether the session is suspended.
	Suspended() bool
	// Close ends the session. Later calls to any method are no-ops.
	Close() error
}

// MultiWatching is the session of a multi-target build. It reports
// suspended while any member is suspended.
type MultiWatching interface {
	Watching
	Watchings() []Watching
}

// Message is one engine diagnostic.
type Message struct {
	Text   string
	File   string
	Line   int
	Column int
}

// String renders the message as "file:line:column: text".
func (m Message) String() string {
	if m.File == "" {
		return m.Text
	}
	if m.Line == 0 {
		return fmt.Sprintf("%s: %s", m.File, m.Text)
	}
	return fmt.Sprintf("%s:%d:%d: %s", m.File, m.Line, m.Column, m.Text)
}

// Asset is one emitted artifact.
type Asset struct {
	Name string // path relative to the compilation's OutputPath, slash separated
	Size int
}

// Compilation describes one completed build pass of one target.
type Compilation struct {
	Target     string
	Index      int // position of the target in its configuration
	BuildID    string
	OutputPath string
	Assets     []Asset // in the engine's own emission order
	Errors     []Message
	Warnings   []Message
	Inputs     []string // source files that took part in the build
	Metafile   string   // engine-specific module graph
	Details    string   // human-readable module breakdown, shown by verbose stats
	Hash       string
	StartTime  time.Time
	Duration   time.Duration
}

// Stats wraps a compilation for reporting.
type Stats struct {
	Compilation *Compilation
}

// HasErrors reports whether the compilation failed.
func (s *Stats) HasErrors() bool {
	return s != nil && s.Compilation != nil && len(s.Compilation.Errors) > 0
}

// HasWarnings reports whether the compilation produced warnings.
func (s *Stats) HasWarnings() bool {
	return s != nil && s.Compilation != nil && len(s.Compilation.Warnings) > 0
}

// ErrorStrings renders every error message.
func (s *Stats) ErrorStrings() []string {
	if s == nil || s.Compilation == nil {
		return nil
	}
	out := make([]string, len(s.Compilation.Errors))
	for i, m := range s.Compilation.Errors {
		out[i] = m.String()
	}
	return out
}

// Result holds the stats of one pass. Its arity mirrors the configuration:
// one entry for a single target, one per target for a full multi-target run,
// and one per rebuilt target for a multi-target watch pass.
type Result struct {
	Stats []*Stats
	Multi bool
}

// HasErrors reports whether any target failed.
func (r *Result) HasErrors() bool {
	if r == nil {
		return false
	}
	for _, s := range r.Stats {
		if s.HasErrors() {
			return true
		}
	}
	return false
}
