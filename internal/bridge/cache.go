package bridge

import (
	"reflect"
	"sync"

	"github.com/spf13/afero"

	"github.com/Iron-Ham/packstream/internal/buildconfig"
	"github.com/Iron-Ham/packstream/internal/engine"
	"github.com/Iron-Ham/packstream/internal/engine/esbuild"
	"github.com/Iron-Ham/packstream/internal/errors"
)

// Comparator reports whether a requested engine and configuration are the
// ones the cache holds. A nil requested engine means "whatever is cached".
type Comparator func(cachedEngine, engine engine.Engine, cachedConfig, config *buildconfig.Config) bool

// IdentityComparator compares by identity: the same engine value and the
// same configuration pointer.
func IdentityComparator(cachedEngine, eng engine.Engine, cachedConfig, cfg *buildconfig.Config) bool {
	if eng != nil && eng != cachedEngine {
		return false
	}
	return cfg == cachedConfig
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithComparator replaces IdentityComparator.
func WithComparator(cmp Comparator) CacheOption {
	return func(c *Cache) {
		c.same = cmp
	}
}

// WithDefaultEngine sets the factory used when no engine is requested and
// none is cached. Defaults to esbuild.New.
func WithDefaultEngine(factory func() engine.Engine) CacheOption {
	return func(c *Cache) {
		c.newEngine = factory
	}
}

// Cache holds the engine, configuration identity, output filesystem and
// runner of the last bridge invocation so that repeated invocations with the
// same engine and configuration reuse them. Any mismatch clears everything,
// so a filesystem or runner is never reused against a different
// configuration.
type Cache struct {
	same      Comparator
	newEngine func() engine.Engine

	mu          sync.Mutex
	primed      bool
	engine      engine.Engine
	config      *buildconfig.Config
	fs          afero.Fs
	runner      engine.Runner
	synthesized *buildconfig.Config
}

// NewCache creates an empty cache.
func NewCache(opts ...CacheOption) *Cache {
	c := &Cache{
		same:      IdentityComparator,
		newEngine: func() engine.Engine { return esbuild.New() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Gate compares eng and cfg against the cached pair, clears the cache on a
// mismatch and returns the engine to build with.
func (c *Cache) Gate(eng engine.Engine, cfg *buildconfig.Config) engine.Engine {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.primed && !c.same(c.engine, eng, c.config, cfg) {
		c.clearLocked()
	}

	switch {
	case eng != nil:
		c.engine = eng
	case c.engine == nil:
		c.engine = c.newEngine()
	}
	c.config = cfg
	c.primed = true
	return c.engine
}

// FileSystem returns the cached in-memory output filesystem, creating it on
// first use.
func (c *Cache) FileSystem() afero.Fs {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.fs == nil {
		c.fs = afero.NewMemMapFs()
	}
	return c.fs
}

// Runner returns a runner for the synthesized configuration. The cached
// runner is reused when it was built by the same engine for an equal
// configuration; otherwise it is closed and a new one is created. The
// boolean reports reuse.
func (c *Cache) Runner(eng engine.Engine, synthesized *buildconfig.Config) (engine.Runner, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.runner != nil && eng == c.engine && reflect.DeepEqual(c.synthesized, synthesized) {
		return c.runner, true, nil
	}
	if c.runner != nil {
		_ = c.runner.Close()
		c.runner = nil
		c.synthesized = nil
	}

	r, err := eng.New(synthesized)
	if err != nil {
		if errors.IsPluginError(err) {
			return nil, false, err
		}
		return nil, false, errors.NewEngineInvocationError("create engine runner", err)
	}
	c.runner = r
	c.synthesized = synthesized
	return r, false, nil
}

// Engine returns the cached engine, or nil.
func (c *Cache) Engine() engine.Engine {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine
}

// Clear drops everything and closes the cached runner.
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clearLocked()
}

func (c *Cache) clearLocked() error {
	var err error
	if c.runner != nil {
		err = c.runner.Close()
	}
	c.primed = false
	c.engine = nil
	c.config = nil
	c.fs = nil
	c.runner = nil
	c.synthesized = nil
	return err
}
