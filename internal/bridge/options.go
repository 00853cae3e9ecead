package bridge

import (
	"io"

	"github.com/Iron-Ham/packstream/internal/event"
	"github.com/Iron-Ham/packstream/internal/logging"
	"github.com/Iron-Ham/packstream/internal/report"
)

// Option configures a Bridge.
type Option func(*config)

type config struct {
	cache     *Cache
	logger    *logging.Logger
	out       io.Writer
	bus       *event.Bus
	afterFunc report.AfterFunc
}

// WithCache shares engine and filesystem state across bridges. Without it
// every bridge gets a private cache.
func WithCache(c *Cache) Option {
	return func(cfg *config) {
		cfg.cache = c
	}
}

// WithLogger sets the logger for the bridge.
func WithLogger(logger *logging.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithOutput sets where human-readable stats are written. Defaults to
// os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(c *config) {
		c.out = w
	}
}

// WithBus publishes build, item and watch lifecycle events on bus.
func WithBus(bus *event.Bus) Option {
	return func(c *config) {
		c.bus = bus
	}
}

// WithAfterFunc replaces time.AfterFunc for scheduling watch resumes.
func WithAfterFunc(f report.AfterFunc) Option {
	return func(c *config) {
		c.afterFunc = f
	}
}
