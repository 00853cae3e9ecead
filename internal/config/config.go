package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/packstream/internal/bridge"
	"github.com/Iron-Ham/packstream/internal/buildconfig"
	"github.com/Iron-Ham/packstream/internal/engine"
	"github.com/Iron-Ham/packstream/internal/report"
)

// Config represents the complete packstream configuration
type Config struct {
	// LogMode is how much is printed after each pass: "stats", "verbose" or "silent"
	LogMode string `mapstructure:"log_mode"`
	// Verbose is a legacy alias that forces log_mode "verbose"
	Verbose bool `mapstructure:"verbose"`
	// Watch keeps rebuilding on change
	Watch bool `mapstructure:"watch"`
	// WatchResume is how long a failing watch stays suspended (default: 5s)
	WatchResume time.Duration `mapstructure:"watch_resume"`
	// SuspendPolicy is "lockstep" (default) or "independent"
	SuspendPolicy string `mapstructure:"suspend_policy"`

	Stats        StatsConfig        `mapstructure:"stats"`
	WatchOptions WatchOptionsConfig `mapstructure:"watch_options"`
	Logging      LoggingConfig      `mapstructure:"logging"`

	// OutDir is where the build command writes forwarded items (default: "build")
	OutDir string `mapstructure:"out_dir"`

	// Targets holds the raw build configuration: a mapping for a single
	// target or a list for multi-target builds. Use BuildConfig to decode it.
	Targets any `mapstructure:"targets"`
}

// StatsConfig selects what the stats rendering shows
type StatsConfig struct {
	// Colors paints the rendering (default: stdout is a terminal)
	Colors bool `mapstructure:"colors"`
	// Hash shows the compilation hash (default: false)
	Hash bool `mapstructure:"hash"`
	// BuiltAt shows the build timestamp (default: false)
	BuiltAt bool `mapstructure:"built_at"`
	// Timings shows the build duration (default: true)
	Timings bool `mapstructure:"timings"`
	// Assets shows the asset table (default: true)
	Assets bool `mapstructure:"assets"`
	// Warnings shows compiler warnings (default: true)
	Warnings bool `mapstructure:"warnings"`
	// Performance flags assets over the size budget (default: true)
	Performance bool `mapstructure:"performance"`
	// Modules shows the module size analysis (default: false)
	Modules bool `mapstructure:"modules"`
	// PerformanceBudget is the asset size budget in bytes (default: 250000)
	PerformanceBudget int `mapstructure:"performance_budget"`
}

// WatchOptionsConfig controls change detection in watch mode
type WatchOptionsConfig struct {
	// AggregateTimeoutMs debounces bursts of changes (default: 200)
	AggregateTimeoutMs int `mapstructure:"aggregate_timeout_ms"`
	// Ignored lists glob patterns that never trigger a rebuild
	Ignored []string `mapstructure:"ignored"`
	// Paths lists extra directories to watch besides the build inputs
	Paths []string `mapstructure:"paths"`
}

// LoggingConfig controls structured logging
type LoggingConfig struct {
	// Level is the minimum level: "debug", "info", "warn" or "error" (default: "info")
	Level string `mapstructure:"level"`
	// Dir, when set, receives a packstream.log file instead of stderr
	Dir string `mapstructure:"dir"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	return &Config{
		LogMode:       string(report.ModeStats),
		WatchResume:   report.DefaultResumeDelay,
		SuspendPolicy: string(report.Lockstep),
		Stats: StatsConfig{
			Colors:            stdoutIsTerminal(),
			Timings:           true,
			Assets:            true,
			Warnings:          true,
			Performance:       true,
			PerformanceBudget: report.DefaultPerformanceBudget,
		},
		WatchOptions: WatchOptionsConfig{
			AggregateTimeoutMs: int(bridge.DefaultAggregateTimeout / time.Millisecond),
			Ignored:            append([]string(nil), bridge.DefaultIgnored...),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		OutDir: "build",
	}
}

func stdoutIsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// SetDefaults registers default values with viper
func SetDefaults() {
	setDefaults(viper.GetViper())
}

func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("log_mode", defaults.LogMode)
	v.SetDefault("verbose", defaults.Verbose)
	v.SetDefault("watch", defaults.Watch)
	v.SetDefault("watch_resume", defaults.WatchResume)
	v.SetDefault("suspend_policy", defaults.SuspendPolicy)

	// Stats defaults
	v.SetDefault("stats.colors", defaults.Stats.Colors)
	v.SetDefault("stats.hash", defaults.Stats.Hash)
	v.SetDefault("stats.built_at", defaults.Stats.BuiltAt)
	v.SetDefault("stats.timings", defaults.Stats.Timings)
	v.SetDefault("stats.assets", defaults.Stats.Assets)
	v.SetDefault("stats.warnings", defaults.Stats.Warnings)
	v.SetDefault("stats.performance", defaults.Stats.Performance)
	v.SetDefault("stats.modules", defaults.Stats.Modules)
	v.SetDefault("stats.performance_budget", defaults.Stats.PerformanceBudget)

	// Watch defaults
	v.SetDefault("watch_options.aggregate_timeout_ms", defaults.WatchOptions.AggregateTimeoutMs)
	v.SetDefault("watch_options.ignored", defaults.WatchOptions.Ignored)
	v.SetDefault("watch_options.paths", defaults.WatchOptions.Paths)

	// Logging defaults
	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.dir", defaults.Logging.Dir)

	v.SetDefault("out_dir", defaults.OutDir)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads the configuration from v and validates it
func LoadFrom(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "packstream")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".packstream"
	}
	return filepath.Join(home, ".config", "packstream")
}

// ConfigFile returns the path to the user config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "packstream.yaml")
}

// BuildConfig decodes Targets. A nil result means no targets were
// configured, which builds one empty target.
func (c *Config) BuildConfig() (*buildconfig.Config, error) {
	if c.Targets == nil {
		return nil, nil
	}
	data, err := yaml.Marshal(c.Targets)
	if err != nil {
		return nil, err
	}
	return buildconfig.Parse(data)
}

// StatsOptions converts the stats section for the renderer
func (c *Config) StatsOptions() report.StatsOptions {
	return report.StatsOptions{
		Colors:            c.Stats.Colors,
		Hash:              c.Stats.Hash,
		BuiltAt:           c.Stats.BuiltAt,
		Timings:           c.Stats.Timings,
		Assets:            c.Stats.Assets,
		Warnings:          c.Stats.Warnings,
		Performance:       c.Stats.Performance,
		Modules:           c.Stats.Modules,
		PerformanceBudget: c.Stats.PerformanceBudget,
	}
}

// EngineWatchOptions converts the watch section for the engine
func (c *Config) EngineWatchOptions() engine.WatchOptions {
	return engine.WatchOptions{
		AggregateTimeout: time.Duration(c.WatchOptions.AggregateTimeoutMs) * time.Millisecond,
		Ignored:          c.WatchOptions.Ignored,
		Paths:            c.WatchOptions.Paths,
	}
}

// BridgeOptions assembles the options of a bridge stage. The engine is left
// unset so that the stage's cache decides.
func (c *Config) BridgeOptions() (bridge.Options, error) {
	targets, err := c.BuildConfig()
	if err != nil {
		return bridge.Options{}, err
	}
	stats := c.StatsOptions()
	return bridge.Options{
		Config:        targets,
		LogMode:       report.Mode(c.LogMode),
		StatsOptions:  &stats,
		Verbose:       c.Verbose,
		Watch:         c.Watch,
		WatchOptions:  c.EngineWatchOptions(),
		WatchResume:   c.WatchResume,
		SuspendPolicy: report.SuspendPolicy(c.SuspendPolicy),
	}, nil
}
