package esbuild

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/Iron-Ham/packstream/internal/engine"
	"github.com/Iron-Ham/packstream/internal/errors"
	"github.com/Iron-Ham/packstream/internal/logging"
	"github.com/Iron-Ham/packstream/internal/watch"
)

// metafile is the subset of esbuild's metafile JSON the engine reads.
type metafile struct {
	Inputs map[string]metafileInput `json:"inputs"`
}

type metafileInput struct {
	Bytes int `json:"bytes"`
}

type target struct {
	name   string
	index  int
	opts   api.BuildOptions
	logger *logging.Logger
	hooks  *engine.Hooks

	mu sync.Mutex
	fs afero.Fs

	buildMu sync.Mutex // esbuild contexts run one pass at a time
	bc      api.BuildContext
	inputs  []string
}

func newTarget(name string, index int, opts api.BuildOptions, logger *logging.Logger) *target {
	return &target{
		name:   name,
		index:  index,
		opts:   opts,
		logger: logger,
		hooks:  engine.NewHooks(),
		fs:     afero.NewOsFs(),
	}
}

func (t *target) Name() string         { return t.name }
func (t *target) OutputPath() string   { return t.opts.Outdir }
func (t *target) Hooks() *engine.Hooks { return t.hooks }

func (t *target) OutputFileSystem() afero.Fs {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fs
}

func (t *target) SetOutputFileSystem(fs afero.Fs) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fs = fs
}

// context returns the target's build context, creating it on first use.
// Callers hold buildMu.
func (t *target) context() (api.BuildContext, error) {
	if t.bc != nil {
		return t.bc, nil
	}
	bc, cerr := api.Context(t.opts)
	if cerr != nil {
		lines := api.FormatMessages(cerr.Errors, api.FormatMessagesOptions{Kind: api.ErrorMessage})
		return nil, errors.NewEngineInvocationError("create build context",
			errors.New(strings.TrimSpace(strings.Join(lines, ""))))
	}
	t.bc = bc
	return bc, nil
}

// Build implements engine.TargetRunner.
func (t *target) Build(ctx context.Context) (*engine.Stats, error) {
	t.buildMu.Lock()
	defer t.buildMu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bc, err := t.context()
	if err != nil {
		return nil, err
	}

	stop := context.AfterFunc(ctx, bc.Cancel)
	start := time.Now()
	res := bc.Rebuild()
	stop()

	comp := &engine.Compilation{
		Target:     t.name,
		Index:      t.index,
		BuildID:    uuid.NewString(),
		OutputPath: t.opts.Outdir,
		Errors:     messages(res.Errors),
		Warnings:   messages(res.Warnings),
		Metafile:   res.Metafile,
		Hash:       outputHash(res.OutputFiles),
		StartTime:  start,
	}
	logger := t.logger.WithBuild(comp.BuildID)

	fs := t.OutputFileSystem()
	for _, f := range res.OutputFiles {
		rel, err := filepath.Rel(t.opts.Outdir, f.Path)
		if err != nil {
			return nil, errors.NewEngineInvocationError("locate output", err)
		}
		if err := fs.MkdirAll(filepath.Dir(f.Path), 0o755); err != nil {
			return nil, errors.NewEngineInvocationError("write output", err)
		}
		if err := afero.WriteFile(fs, f.Path, f.Contents, 0o644); err != nil {
			return nil, errors.NewEngineInvocationError("write output", err)
		}
		comp.Assets = append(comp.Assets, engine.Asset{Name: filepath.ToSlash(rel), Size: len(f.Contents)})
	}

	if res.Metafile != "" {
		comp.Inputs = metafileInputs(t.opts.AbsWorkingDir, res.Metafile)
		comp.Details = api.AnalyzeMetafile(res.Metafile, api.AnalyzeMetafileOptions{})
	}
	comp.Duration = time.Since(start)

	logger.Debug("build pass finished",
		"assets", len(comp.Assets),
		"errors", len(comp.Errors),
		"warnings", len(comp.Warnings),
		"duration_ms", comp.Duration.Milliseconds())

	if err := t.hooks.CallAfterEmit(comp); err != nil {
		return nil, errors.NewEngineInvocationError("after-emit hook", err)
	}
	return &engine.Stats{Compilation: comp}, nil
}

// WatchTarget implements engine.TargetRunner. The first pass runs before it
// returns; later passes run on the watcher's goroutine.
func (t *target) WatchTarget(ctx context.Context, opts engine.WatchOptions, cb func(*engine.Stats, error)) (engine.Watching, error) {
	var session *engine.Session
	w, err := watch.New(watch.Options{
		AggregateTimeout: opts.AggregateTimeout,
		Ignored:          opts.Ignored,
		Logger:           t.logger,
	}, func(changed []string) {
		t.logger.Debug("change detected", "files", len(changed), "first", changed[0])
		session.Invalidate()
	})
	if err != nil {
		return nil, errors.NewEngineInvocationError("start watcher", err)
	}
	for _, p := range opts.Paths {
		if !filepath.IsAbs(p) {
			p = filepath.Join(t.opts.AbsWorkingDir, p)
		}
		if err := w.AddTree(p); err != nil {
			w.Stop()
			return nil, errors.NewEngineInvocationError("start watcher", err)
		}
	}

	session = engine.NewSession(func() {
		s, err := t.Build(ctx)
		w.SetFiles(t.watchedFiles(s))
		cb(s, err)
	}, func() error {
		w.Stop()
		return nil
	})

	w.Start()
	session.Invalidate()
	context.AfterFunc(ctx, func() { _ = session.Close() })
	return session, nil
}

// watchedFiles returns the entry points plus the inputs of the most recent
// pass that reported any. A failed pass keeps the previous inputs so that
// fixing the error triggers a rebuild.
func (t *target) watchedFiles(s *engine.Stats) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	if s != nil && len(s.Compilation.Inputs) > 0 {
		t.inputs = s.Compilation.Inputs
	}

	files := slices.Clone(t.inputs)
	for _, ep := range t.opts.EntryPointsAdvanced {
		files = append(files, t.abs(ep.InputPath))
	}
	for _, ep := range t.opts.EntryPoints {
		files = append(files, t.abs(ep))
	}
	slices.Sort(files)
	return slices.Compact(files)
}

func (t *target) abs(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(t.opts.AbsWorkingDir, p)
}

// Close implements engine.TargetRunner.
func (t *target) Close() error {
	t.buildMu.Lock()
	defer t.buildMu.Unlock()
	if t.bc != nil {
		t.bc.Dispose()
		t.bc = nil
	}
	return nil
}

func messages(msgs []api.Message) []engine.Message {
	if len(msgs) == 0 {
		return nil
	}
	out := make([]engine.Message, len(msgs))
	for i, m := range msgs {
		out[i] = engine.Message{Text: m.Text}
		if m.Location != nil {
			out[i].File = m.Location.File
			out[i].Line = m.Location.Line
			out[i].Column = m.Location.Column
		}
	}
	return out
}

// metafileInputs returns the absolute paths of every file-namespace input.
func metafileInputs(cwd, raw string) []string {
	var mf metafile
	if err := json.Unmarshal([]byte(raw), &mf); err != nil {
		return nil
	}
	inputs := make([]string, 0, len(mf.Inputs))
	for p := range mf.Inputs {
		if !filepath.IsAbs(p) && strings.Contains(p, ":") {
			continue // other namespaces, e.g. "data:" or plugin virtual modules
		}
		if !filepath.IsAbs(p) {
			p = filepath.Join(cwd, filepath.FromSlash(p))
		}
		inputs = append(inputs, p)
	}
	slices.Sort(inputs)
	return inputs
}

// outputHash derives a short build hash from the per-file hashes esbuild
// computes.
func outputHash(files []api.OutputFile) string {
	if len(files) == 0 {
		return ""
	}
	h := sha256.New()
	for _, f := range files {
		h.Write([]byte(f.Path))
		h.Write([]byte(f.Hash))
	}
	return hex.EncodeToString(h.Sum(nil))[:20]
}
