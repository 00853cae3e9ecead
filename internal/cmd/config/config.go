// Package config provides CLI commands for inspecting packstream configuration.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	appconfig "github.com/Iron-Ham/packstream/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View packstream configuration",
	Long: `View packstream configuration.

Use 'config show' to display the effective configuration, 'config path' to
see where it is read from and 'config init' to create a commented file.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default packstream.yaml in the current directory",
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}

// Register adds all config-related commands to the given parent command.
func Register(parent *cobra.Command) {
	parent.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := appconfig.Load()
	if err != nil {
		return err
	}
	return writeConfig(cmd.OutOrStdout(), viper.ConfigFileUsed(), cfg)
}

// writeConfig prints the config file in use followed by cfg as YAML.
func writeConfig(w io.Writer, file string, cfg *appconfig.Config) error {
	if file != "" {
		fmt.Fprintf(w, "# Config file: %s\n", file)
	} else {
		fmt.Fprintln(w, "# Config file: (none - using defaults)")
	}

	doc := map[string]any{
		"log_mode":       cfg.LogMode,
		"verbose":        cfg.Verbose,
		"watch":          cfg.Watch,
		"watch_resume":   cfg.WatchResume.String(),
		"suspend_policy": cfg.SuspendPolicy,
		"out_dir":        cfg.OutDir,
		"stats": map[string]any{
			"colors":             cfg.Stats.Colors,
			"hash":               cfg.Stats.Hash,
			"built_at":           cfg.Stats.BuiltAt,
			"timings":            cfg.Stats.Timings,
			"assets":             cfg.Stats.Assets,
			"warnings":           cfg.Stats.Warnings,
			"performance":        cfg.Stats.Performance,
			"modules":            cfg.Stats.Modules,
			"performance_budget": cfg.Stats.PerformanceBudget,
		},
		"watch_options": map[string]any{
			"aggregate_timeout_ms": cfg.WatchOptions.AggregateTimeoutMs,
			"ignored":              cfg.WatchOptions.Ignored,
			"paths":                cfg.WatchOptions.Paths,
		},
		"logging": map[string]any{
			"level": cfg.Logging.Level,
			"dir":   cfg.Logging.Dir,
		},
	}

	targets, err := cfg.BuildConfig()
	if err != nil {
		return err
	}
	if targets != nil {
		doc["targets"] = targets
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	return enc.Close()
}

const defaultConfigFile = `# packstream configuration

# How much to print after each build: stats, verbose or silent
log_mode: stats

# How long a failed watch build stays suspended before retrying
watch_resume: 5s

# Which watched targets a failure suspends: lockstep or independent
suspend_policy: lockstep

# Where the build command writes its output
out_dir: build

stats:
  hash: false
  built_at: false
  timings: true
  assets: true
  warnings: true
  performance: true
  modules: false

watch_options:
  aggregate_timeout_ms: 200
  ignored:
    - "**/node_modules/**"
    - "**/.git/**"

# Build targets: a mapping for one target, a list for several.
targets:
  format: esm
  sourcemap: linked
  output:
    path: dist
    entry_names: "[name]"
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}
	configFile := filepath.Join(cwd, "packstream.yaml")

	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s", configFile)
	}

	if err := os.WriteFile(configFile, []byte(defaultConfigFile), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created config file at %s\n", configFile)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Active config: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintln(out, "Active config: (none - using defaults)")
	}

	fmt.Fprintln(out, "\nSearch paths:")
	fmt.Fprintln(out, "  1. ./packstream.yaml (current directory)")
	fmt.Fprintf(out, "  2. %s\n", appconfig.ConfigFile())
	fmt.Fprintln(out, "\nEnvironment variables: PACKSTREAM_* (e.g., PACKSTREAM_LOG_MODE)")

	return nil
}
