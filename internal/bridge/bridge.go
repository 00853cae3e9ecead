package bridge

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/Iron-Ham/packstream/internal/buildconfig"
	"github.com/Iron-Ham/packstream/internal/correlate"
	"github.com/Iron-Ham/packstream/internal/engine"
	"github.com/Iron-Ham/packstream/internal/errors"
	"github.com/Iron-Ham/packstream/internal/event"
	"github.com/Iron-Ham/packstream/internal/item"
	"github.com/Iron-Ham/packstream/internal/logging"
	"github.com/Iron-Ham/packstream/internal/report"
)

// Bridge is one pipeline stage that buffers items, builds them as entry
// points and forwards the build's artifacts.
//
// A Bridge may be Run more than once; repeated runs share its Cache.
type Bridge struct {
	opts      Options
	mode      report.Mode
	policy    report.SuspendPolicy
	cache     *Cache
	logger    *logging.Logger
	out       io.Writer
	bus       *event.Bus
	afterFunc report.AfterFunc
}

// New creates a Bridge. It fails only on an unknown log mode or suspend
// policy.
func New(opts Options, options ...Option) (*Bridge, error) {
	cfg := config{
		logger: logging.NopLogger(),
		out:    os.Stdout,
	}
	for _, o := range options {
		o(&cfg)
	}
	if cfg.cache == nil {
		cfg.cache = NewCache()
	}
	if cfg.logger == nil {
		cfg.logger = logging.NopLogger()
	}
	if cfg.out == nil {
		cfg.out = io.Discard
	}

	mode, err := opts.mode()
	if err != nil {
		return nil, err
	}
	policy, err := report.ParseSuspendPolicy(string(opts.SuspendPolicy))
	if err != nil {
		return nil, err
	}

	return &Bridge{
		opts:      opts,
		mode:      mode,
		policy:    policy,
		cache:     cfg.cache,
		logger:    cfg.logger,
		out:       cfg.out,
		bus:       cfg.bus,
		afterFunc: cfg.afterFunc,
	}, nil
}

// Cache returns the cache the bridge builds through.
func (b *Bridge) Cache() *Cache {
	return b.cache
}

// Run consumes in until it is closed, then builds every buffered item and
// sends the resulting items to out. Null items are forwarded immediately.
//
// In one-shot mode Run returns once every target was correlated and
// reported; a compilation failure is returned as a CompilationError after the
// stats were rendered. In watch mode Run keeps rebuilding until ctx is done
// or a fatal error occurs, and returns nil on cancellation.
//
// Run never closes out, and nothing is sent on it once Run has returned.
func (b *Bridge) Run(ctx context.Context, in <-chan *item.Item, out chan<- *item.Item) error {
	store := item.NewStore()

buffer:
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case it, ok := <-in:
			if !ok {
				break buffer
			}
			if it == nil {
				continue
			}
			if it.IsNull() {
				if err := send(ctx, out, it); err != nil {
					return err
				}
				continue
			}
			if err := store.Put(it); err != nil {
				b.logger.Error("bridge: rejected item", "path", it.Path, "error", err)
				return err
			}
		}
	}

	if store.IsEmpty() {
		b.logger.Warn("bridge: no files were piped in")
		return nil
	}
	return b.build(ctx, store, out)
}

// build runs the engine over the buffered store.
func (b *Bridge) build(ctx context.Context, store *item.Store, out chan<- *item.Item) error {
	eng := b.cache.Gate(b.opts.Engine, b.opts.Config)

	synthesized, err := buildconfig.Synthesize(store, b.opts.Config)
	if err != nil {
		return err
	}
	runner, reused, err := b.cache.Runner(eng, synthesized)
	if err != nil {
		return err
	}

	logger := b.logger.WithSession(uuid.NewString())
	logger.Info("bridge: building",
		"engine", eng.Name(),
		"items", store.Len(),
		"targets", len(synthesized.Targets),
		"watch", b.opts.Watch,
		"reused_runner", reused)

	s := &stage{
		ctx:        ctx,
		out:        out,
		bus:        b.bus,
		logger:     logger,
		correlator: correlate.New(store, b.cache.FileSystem()),
	}
	install(runner, b.cache.FileSystem(), s.afterEmit)
	defer s.close()

	rep := report.New(report.Options{
		Mode:        b.mode,
		Stats:       b.opts.statsOptions(),
		Watch:       b.opts.Watch,
		ResumeDelay: b.opts.WatchResume,
		Policy:      b.policy,
		Out:         b.out,
		Logger:      logger,
		Bus:         b.bus,
		AfterFunc:   b.afterFunc,
	})
	defer rep.Close()

	if !b.opts.Watch {
		return b.runOnce(ctx, runner, s, rep)
	}
	return b.watch(ctx, runner, s, rep, logger)
}

func (b *Bridge) runOnce(ctx context.Context, runner engine.Runner, s *stage, rep *report.Reporter) error {
	res, err := invoke(ctx, runner)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	if err := s.err(); err != nil {
		return err
	}

	var failures []error
	for _, st := range res.Stats {
		if err := rep.Report(st, nil); errors.IsFatal(err, false) {
			failures = append(failures, err)
		}
	}
	switch len(failures) {
	case 0:
		return nil
	case 1:
		return failures[0]
	default:
		return errors.Join(failures...)
	}
}

func (b *Bridge) watch(ctx context.Context, runner engine.Runner, s *stage, rep *report.Reporter, logger *logging.Logger) error {
	fatal := make(chan error, 1)
	fail := func(err error) {
		select {
		case fatal <- err:
		default:
		}
	}

	// The engine runs the first pass before Watch returns, so passes are
	// queued until the session they report against is known.
	var (
		mu       sync.Mutex
		watching engine.Watching
		queued   []*engine.Result
	)
	reportResult := func(res *engine.Result, w engine.Watching) {
		if err := s.err(); err != nil {
			fail(err)
			return
		}
		for _, st := range res.Stats {
			if err := rep.Report(st, w); errors.IsFatal(err, true) {
				fail(err)
				return
			}
		}
	}

	w, err := watchRunner(ctx, runner, b.opts.watchOptions(), func(res *engine.Result, err error) {
		if s.closed() {
			return
		}
		if err != nil {
			fail(err)
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if watching == nil {
			queued = append(queued, res)
			return
		}
		reportResult(res, watching)
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := w.Close(); err != nil {
			logger.Warn("bridge: closing watch session", "error", err)
		}
	}()

	mu.Lock()
	for _, res := range queued {
		reportResult(res, w)
	}
	queued = nil
	watching = w
	mu.Unlock()

	select {
	case <-ctx.Done():
		logger.Info("bridge: watch stopped")
		return nil
	case err := <-fatal:
		if ctx.Err() != nil {
			logger.Info("bridge: watch stopped")
			return nil
		}
		logger.Error("bridge: watch failed", "error", err)
		return err
	}
}

// stage carries the per-run state the after-emit hook needs.
type stage struct {
	ctx        context.Context
	out        chan<- *item.Item
	bus        *event.Bus
	logger     *logging.Logger
	correlator *correlate.Correlator

	mu       sync.Mutex
	firstErr error
	done     bool
}

// afterEmit correlates one compilation and forwards its items. Hooks of
// parallel targets are serialized so that each pass reaches downstream as a
// unit.
func (s *stage) afterEmit(c *engine.Compilation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done || s.firstErr != nil {
		return
	}

	outcomes, err := s.correlator.Correlate(c, func(o correlate.Outcome) error {
		if !o.Kind.Forwarded() {
			return nil
		}
		if s.bus != nil {
			s.bus.Publish(event.NewItemEmittedEvent(c.Target, o.Item.Path, o.Kind.String()))
		}
		return send(s.ctx, s.out, o.Item)
	})
	if err != nil {
		if s.ctx.Err() == nil {
			s.logger.Error("bridge: correlation failed", "target", c.Target, "error", err)
		}
		s.firstErr = err
		return
	}
	s.logger.Debug("bridge: correlated pass", "target", c.Target, "outcomes", len(outcomes))
}

// close stops forwarding. It waits for a pass that is sending downstream, so
// nothing reaches out once it returns.
func (s *stage) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done = true
}

func (s *stage) closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

func (s *stage) err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.firstErr
}

func send(ctx context.Context, out chan<- *item.Item, it *item.Item) error {
	select {
	case out <- it:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
