// Package report renders build stats and decides what a failing pass means
// for the stage: a one-shot build fails with a CompilationError, a watch
// session is suspended and resumed after a delay.
package report

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/Iron-Ham/packstream/internal/engine"
	"github.com/Iron-Ham/packstream/internal/errors"
	"github.com/Iron-Ham/packstream/internal/event"
	"github.com/Iron-Ham/packstream/internal/logging"
)

// Mode selects how much is printed after each pass.
type Mode string

const (
	ModeStats   Mode = "stats"
	ModeVerbose Mode = "verbose"
	ModeSilent  Mode = "silent"
)

// ValidModes returns every accepted mode.
func ValidModes() []Mode {
	return []Mode{ModeStats, ModeVerbose, ModeSilent}
}

// ParseMode parses a mode name. The empty string is ModeStats.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeStats:
		return ModeStats, nil
	case ModeVerbose:
		return ModeVerbose, nil
	case ModeSilent:
		return ModeSilent, nil
	}
	return "", fmt.Errorf("invalid log mode %q (valid: stats, verbose, silent)", s)
}

// SuspendPolicy decides which sessions a failing pass suspends in a
// multi-target watch.
type SuspendPolicy string

const (
	// Lockstep suspends every target when any of them fails.
	Lockstep SuspendPolicy = "lockstep"
	// Independent suspends only the failing target.
	Independent SuspendPolicy = "independent"
)

// ParseSuspendPolicy parses a policy name. The empty string is Lockstep.
func ParseSuspendPolicy(s string) (SuspendPolicy, error) {
	switch SuspendPolicy(s) {
	case "", Lockstep:
		return Lockstep, nil
	case Independent:
		return Independent, nil
	}
	return "", fmt.Errorf("invalid suspend policy %q (valid: lockstep, independent)", s)
}

// DefaultResumeDelay is how long a failed watch session stays suspended.
const DefaultResumeDelay = 5 * time.Second

// Timer is the part of *time.Timer the reporter needs.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. Tests replace it to fire timers by hand.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Options configures a Reporter.
type Options struct {
	Mode        Mode
	Stats       StatsOptions
	Watch       bool
	ResumeDelay time.Duration
	Policy      SuspendPolicy

	// Out receives human-readable renderings.
	Out io.Writer
	// Logger receives structured records. Defaults to a no-op logger.
	Logger *logging.Logger
	// Bus, when set, receives build and watch lifecycle events.
	Bus *event.Bus
	// AfterFunc defaults to time.AfterFunc.
	AfterFunc AfterFunc
}

// Reporter reports build passes.
type Reporter struct {
	opts      Options
	logger    *logging.Logger
	afterFunc AfterFunc

	mu     sync.Mutex
	timers []Timer
	closed bool
}

// New creates a Reporter.
func New(opts Options) *Reporter {
	if opts.Mode == "" {
		opts.Mode = ModeStats
	}
	if opts.Policy == "" {
		opts.Policy = Lockstep
	}
	if opts.ResumeDelay <= 0 {
		opts.ResumeDelay = DefaultResumeDelay
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	r := &Reporter{
		opts:      opts,
		logger:    opts.Logger,
		afterFunc: opts.AfterFunc,
	}
	if r.logger == nil {
		r.logger = logging.NopLogger()
	}
	if r.afterFunc == nil {
		r.afterFunc = realAfterFunc
	}
	return r
}

// Report reports one target's pass. w is the session returned by the
// engine's watch (nil in one-shot mode). In one-shot mode a failing pass is
// rendered and then returned as a CompilationError; in watch mode it never
// returns an error.
func (r *Reporter) Report(s *engine.Stats, w engine.Watching) error {
	if s == nil || s.Compilation == nil {
		return nil
	}
	c := s.Compilation
	logger := r.logger.WithTarget(c.Target).WithBuild(c.BuildID)

	failed := s.HasErrors()
	var session engine.Watching
	if r.opts.Watch && w != nil {
		session = r.sessionFor(c, w)
		if failed {
			r.suspend(c.Target, session, logger)
		}
	}

	r.render(s)

	if r.opts.Watch {
		r.printWatchState(session)
	}

	logger.Info("build pass reported",
		"assets", len(c.Assets),
		"errors", len(c.Errors),
		"warnings", len(c.Warnings),
		"duration_ms", c.Duration.Milliseconds())
	if r.opts.Bus != nil {
		r.opts.Bus.Publish(event.NewBuildCompletedEvent(
			c.Target, c.BuildID, len(c.Assets), len(c.Errors), len(c.Warnings), c.Duration))
	}

	if failed && !r.opts.Watch {
		return errors.NewCompilationError(s.ErrorStrings()).WithTarget(c.Target)
	}
	return nil
}

// sessionFor picks the session a failure of c acts on.
func (r *Reporter) sessionFor(c *engine.Compilation, w engine.Watching) engine.Watching {
	if r.opts.Policy != Independent {
		return w
	}
	mw, ok := w.(engine.MultiWatching)
	if !ok {
		return w
	}
	members := mw.Watchings()
	if c.Index < 0 || c.Index >= len(members) {
		return w
	}
	return members[c.Index]
}

// suspend suspends session and schedules one resume. A session that is
// already suspended keeps its pending resume. Suspending before invalidating
// keeps the invalidation from starting a rebuild of an idle member right away.
func (r *Reporter) suspend(target string, session engine.Watching, logger *logging.Logger) {
	if session.Suspended() {
		logger.Debug("watch session already suspended")
		return
	}

	session.Suspend()
	session.Invalidate()

	delay := r.opts.ResumeDelay
	logger.Warn("build failed, suspending watch", "resume_in_ms", delay.Milliseconds())
	if r.opts.Bus != nil {
		r.opts.Bus.Publish(event.NewWatchSuspendedEvent(target, delay))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.timers = append(r.timers, r.afterFunc(delay, func() {
		r.mu.Lock()
		closed := r.closed
		r.mu.Unlock()
		if closed {
			return
		}
		logger.Info("resuming watch")
		if r.opts.Bus != nil {
			r.opts.Bus.Publish(event.NewWatchResumedEvent(target))
		}
		session.Resume()
	}))
}

func (r *Reporter) render(s *engine.Stats) {
	var out string
	switch r.opts.Mode {
	case ModeSilent:
		return
	case ModeVerbose:
		out = Render(r.opts.Out, s, verboseOptions(r.opts.Stats.Colors))
	default:
		out = Render(r.opts.Out, s, r.opts.Stats)
	}
	_, _ = io.WriteString(r.opts.Out, out)
}

func (r *Reporter) printWatchState(session engine.Watching) {
	if r.opts.Mode == ModeSilent {
		return
	}
	if session != nil && session.Suspended() {
		_, _ = fmt.Fprintf(r.opts.Out, "packstream is suspended, resuming in %s...\n", formatDelay(r.opts.ResumeDelay))
		return
	}
	_, _ = io.WriteString(r.opts.Out, "packstream is watching...\n")
}

// Close cancels pending resumes. Resumes that already fired are no-ops
// against a closed session.
func (r *Reporter) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	for _, t := range r.timers {
		t.Stop()
	}
	r.timers = nil
}

func formatDelay(d time.Duration) string {
	if d%time.Second == 0 {
		n := int(d / time.Second)
		if n == 1 {
			return "1 second"
		}
		return fmt.Sprintf("%d seconds", n)
	}
	return d.String()
}
