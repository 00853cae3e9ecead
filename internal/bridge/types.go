package bridge

import (
	"time"

	"github.com/Iron-Ham/packstream/internal/buildconfig"
	"github.com/Iron-Ham/packstream/internal/engine"
	"github.com/Iron-Ham/packstream/internal/report"
)

// PluginName tags the bridge's after-emit hook and its log records.
const PluginName = "packstream"

// Default watch settings.
const (
	DefaultAggregateTimeout = 200 * time.Millisecond
	DefaultWatchResume      = report.DefaultResumeDelay
)

// DefaultIgnored lists the paths a watch never reacts to.
var DefaultIgnored = []string{"**/node_modules/**", "**/.git/**"}

// Options describes one bridge stage. The zero value builds an empty single
// target with the cached (or default esbuild) engine and prints stats.
type Options struct {
	// Engine builds the configuration. Nil means the engine cached by the
	// stage's Cache, or a fresh esbuild engine.
	Engine engine.Engine
	// Config is the user's build configuration. Nil means an empty single
	// target. It is never mutated.
	Config *buildconfig.Config

	// LogMode is report.ModeStats, ModeVerbose or ModeSilent.
	LogMode report.Mode
	// StatsOptions controls the stats rendering in ModeStats.
	StatsOptions *report.StatsOptions
	// Verbose forces ModeVerbose.
	Verbose bool

	// Watch keeps the stage running and rebuilds on change.
	Watch bool
	// WatchOptions is forwarded to the engine. Zero fields take defaults.
	WatchOptions engine.WatchOptions
	// WatchResume is how long a failed watch stays suspended.
	WatchResume time.Duration
	// SuspendPolicy selects which targets a failure suspends.
	SuspendPolicy report.SuspendPolicy
}

// DefaultWatchOptions returns the watch options used for unset fields.
func DefaultWatchOptions() engine.WatchOptions {
	return engine.WatchOptions{
		AggregateTimeout: DefaultAggregateTimeout,
		Ignored:          append([]string(nil), DefaultIgnored...),
	}
}

// mode resolves the effective log mode.
func (o Options) mode() (report.Mode, error) {
	if o.Verbose {
		return report.ModeVerbose, nil
	}
	return report.ParseMode(string(o.LogMode))
}

// watchOptions fills unset fields with defaults.
func (o Options) watchOptions() engine.WatchOptions {
	w := o.WatchOptions
	if w.AggregateTimeout <= 0 {
		w.AggregateTimeout = DefaultAggregateTimeout
	}
	if w.Ignored == nil {
		w.Ignored = append([]string(nil), DefaultIgnored...)
	}
	return w
}

// statsOptions returns the stats selection, defaulting unset options.
func (o Options) statsOptions() report.StatsOptions {
	if o.StatsOptions == nil {
		return report.DefaultStatsOptions()
	}
	return *o.StatsOptions
}
