// Package buildconfig models the bundler configuration a bridge stage hands
// to its engine, and synthesizes entry points from buffered pipeline items.
//
// A Config is either a single target or an ordered list of targets
// (multi-target). In YAML a mapping decodes to a single target and a
// sequence decodes to a multi-target configuration:
//
//	# single target
//	entry:
//	  vendor: ./src/vendor.js
//	output:
//	  path: dist
//	  entry_names: "[name].renamed"
//
//	# multi-target
//	- name: modern
//	  format: esm
//	- name: legacy
//	  format: iife
//	  output:
//	    entry_names: "[name].legacy"
package buildconfig

import (
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/packstream/internal/errors"
)

// Output controls where and under which names a target's artifacts land.
type Output struct {
	// Path is the output directory. Relative paths resolve against the
	// engine's working directory. Default: "dist".
	Path string `yaml:"path,omitempty"`
	// EntryNames is the naming pattern for entry outputs, without extension.
	// Default: "[name]".
	EntryNames string `yaml:"entry_names,omitempty"`
	// ChunkNames is the naming pattern for shared chunks.
	ChunkNames string `yaml:"chunk_names,omitempty"`
	// AssetNames is the naming pattern for non-code assets.
	AssetNames string `yaml:"asset_names,omitempty"`
}

// Target is one build configuration.
type Target struct {
	Name      string            `yaml:"name,omitempty"`
	Entry     map[string]string `yaml:"entry,omitempty"`
	Mode      string            `yaml:"mode,omitempty"`      // "production" minifies
	Sourcemap string            `yaml:"sourcemap,omitempty"` // none, inline, linked, external, both
	Format    string            `yaml:"format,omitempty"`    // iife, cjs, esm
	Platform  string            `yaml:"platform,omitempty"`  // browser, node, neutral
	Syntax    []string          `yaml:"syntax,omitempty"`    // e.g. es2019, chrome100
	Splitting bool              `yaml:"splitting,omitempty"`
	External  []string          `yaml:"external,omitempty"`
	Define    map[string]string `yaml:"define,omitempty"`
	Loader    map[string]string `yaml:"loader,omitempty"`
	Output    Output            `yaml:"output,omitempty"`
}

// Clone returns a deep copy of the target.
func (t *Target) Clone() *Target {
	if t == nil {
		return nil
	}
	c := *t
	c.Entry = maps.Clone(t.Entry)
	c.Syntax = slices.Clone(t.Syntax)
	c.External = slices.Clone(t.External)
	c.Define = maps.Clone(t.Define)
	c.Loader = maps.Clone(t.Loader)
	return &c
}

// EntryNames returns the sorted entry names. Engines use this order so that
// builds are reproducible.
func (t *Target) EntryNames() []string {
	return slices.Sorted(maps.Keys(t.Entry))
}

// Config is a single target or an ordered list of targets.
type Config struct {
	Targets []*Target
	Multi   bool
}

// Single wraps one target.
func Single(t *Target) *Config {
	if t == nil {
		t = &Target{}
	}
	return &Config{Targets: []*Target{t}}
}

// MultiTarget wraps an ordered list of targets.
func MultiTarget(targets ...*Target) *Config {
	return &Config{Targets: targets, Multi: true}
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	out := &Config{Multi: c.Multi, Targets: make([]*Target, len(c.Targets))}
	for i, t := range c.Targets {
		out.Targets[i] = t.Clone()
	}
	return out
}

// TargetName returns the display name of the i-th target.
func (c *Config) TargetName(i int) string {
	if i < 0 || i >= len(c.Targets) {
		return ""
	}
	if t := c.Targets[i]; t != nil && t.Name != "" {
		return t.Name
	}
	if !c.Multi {
		return "main"
	}
	return fmt.Sprintf("target-%d", i)
}

// Validate reports a MissingConfigurationError when the configuration holds
// no usable target.
func (c *Config) Validate() error {
	if c == nil || len(c.Targets) == 0 {
		return errors.NewMissingConfigurationError("configuration has no build target")
	}
	for i, t := range c.Targets {
		if t == nil {
			return errors.NewMissingConfigurationError(fmt.Sprintf("build target %d is empty", i))
		}
	}
	return nil
}

// UnmarshalYAML decodes a mapping as a single target and a sequence as a
// multi-target configuration.
func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.MappingNode:
		var t Target
		if err := node.Decode(&t); err != nil {
			return err
		}
		*c = Config{Targets: []*Target{&t}}
		return nil
	case yaml.SequenceNode:
		var targets []*Target
		if err := node.Decode(&targets); err != nil {
			return err
		}
		*c = Config{Targets: targets, Multi: true}
		return nil
	default:
		return fmt.Errorf("line %d: build configuration must be a mapping or a sequence", node.Line)
	}
}

// MarshalYAML mirrors UnmarshalYAML.
func (c *Config) MarshalYAML() (any, error) {
	if c.Multi {
		return c.Targets, nil
	}
	if len(c.Targets) == 0 {
		return map[string]any{}, nil
	}
	return c.Targets[0], nil
}

// Parse decodes a YAML (or JSON) build configuration.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse build configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFile reads and parses a build configuration file from fs. A missing
// file is a MissingConfigurationError.
func LoadFile(fs afero.Fs, path string) (*Config, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.NewMissingConfigurationError("").WithSource(path).WithCause(err)
	}
	return Parse(data)
}
