package engine

import (
	"context"
	stderrors "errors"
	"sync"

	"github.com/sourcegraph/conc/pool"
)

// TargetRunner builds a single target. Engines implement it once and combine
// targets into a Runner with NewRunner.
type TargetRunner interface {
	Compiler

	// Build performs one pass. Implementations write artifacts to the output
	// filesystem and call the after-emit hook before returning.
	Build(ctx context.Context) (*Stats, error)

	// WatchTarget builds once and then rebuilds on change, calling cb after
	// every pass.
	WatchTarget(ctx context.Context, opts WatchOptions, cb func(*Stats, error)) (Watching, error)

	// Close releases the target's engine resources.
	Close() error
}

type runner struct {
	targets []TargetRunner
	multi   bool

	cbMu sync.Mutex
}

// NewRunner combines targets into a Runner. Multi-target runners build
// their targets in parallel but deliver watch callbacks one at a time.
func NewRunner(multi bool, targets ...TargetRunner) Runner {
	return &runner{targets: targets, multi: multi}
}

func (r *runner) Compilers() []Compiler {
	out := make([]Compiler, len(r.targets))
	for i, t := range r.targets {
		out[i] = t
	}
	return out
}

func (r *runner) Run(ctx context.Context) (*Result, error) {
	stats := make([]*Stats, len(r.targets))

	if len(r.targets) == 1 {
		s, err := r.targets[0].Build(ctx)
		if err != nil {
			return nil, err
		}
		stats[0] = s
		return &Result{Stats: stats, Multi: r.multi}, nil
	}

	p := pool.New().WithContext(ctx)
	for i, t := range r.targets {
		p.Go(func(ctx context.Context) error {
			s, err := t.Build(ctx)
			if err != nil {
				return err
			}
			stats[i] = s
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}
	return &Result{Stats: stats, Multi: r.multi}, nil
}

func (r *runner) Watch(ctx context.Context, opts WatchOptions, cb Callback) (Watching, error) {
	watchings := make([]Watching, 0, len(r.targets))
	for _, t := range r.targets {
		w, err := t.WatchTarget(ctx, opts, func(s *Stats, err error) {
			r.cbMu.Lock()
			defer r.cbMu.Unlock()
			if err != nil {
				cb(nil, err)
				return
			}
			cb(&Result{Stats: []*Stats{s}, Multi: r.multi}, nil)
		})
		if err != nil {
			for _, started := range watchings {
				_ = started.Close()
			}
			return nil, err
		}
		watchings = append(watchings, w)
	}

	if !r.multi {
		return watchings[0], nil
	}
	return &multiWatching{watchings: watchings}, nil
}

func (r *runner) Close() error {
	var errs []error
	for _, t := range r.targets {
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}

type multiWatching struct {
	watchings []Watching
}

func (m *multiWatching) Watchings() []Watching { return m.watchings }

func (m *multiWatching) Invalidate() {
	for _, w := range m.watchings {
		w.Invalidate()
	}
}

func (m *multiWatching) Suspend() {
	for _, w := range m.watchings {
		w.Suspend()
	}
}

func (m *multiWatching) Resume() {
	for _, w := range m.watchings {
		w.Resume()
	}
}

func (m *multiWatching) Suspended() bool {
	for _, w := range m.watchings {
		if w.Suspended() {
			return true
		}
	}
	return false
}

func (m *multiWatching) Close() error {
	var errs []error
	for _, w := range m.watchings {
		if err := w.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}
