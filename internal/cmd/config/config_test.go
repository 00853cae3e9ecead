package config

import (
	"bytes"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	appconfig "github.com/Iron-Ham/packstream/internal/config"
)

func TestWriteConfig_Defaults(t *testing.T) {
	var buf bytes.Buffer
	if err := writeConfig(&buf, "", appconfig.Default()); err != nil {
		t.Fatalf("writeConfig() error = %v", err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "# Config file: (none - using defaults)\n") {
		t.Errorf("missing config file header: %q", out)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("output is not YAML: %v", err)
	}
	if doc["log_mode"] != "stats" {
		t.Errorf("log_mode = %v", doc["log_mode"])
	}
	if doc["watch_resume"] != "5s" {
		t.Errorf("watch_resume = %v", doc["watch_resume"])
	}
	if _, ok := doc["targets"]; ok {
		t.Error("targets should be omitted when none are configured")
	}
}

func TestWriteConfig_Targets(t *testing.T) {
	cfg := appconfig.Default()
	cfg.Targets = []any{
		map[string]any{"name": "modern", "format": "esm"},
		map[string]any{"name": "legacy", "format": "iife"},
	}

	var buf bytes.Buffer
	if err := writeConfig(&buf, "/work/packstream.yaml", cfg); err != nil {
		t.Fatalf("writeConfig() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{"# Config file: /work/packstream.yaml", "name: modern", "name: legacy"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestDefaultConfigFile_Loads(t *testing.T) {
	var doc map[string]any
	if err := yaml.Unmarshal([]byte(defaultConfigFile), &doc); err != nil {
		t.Fatalf("default config file is not YAML: %v", err)
	}

	cfg := appconfig.Default()
	cfg.Targets = doc["targets"]
	if errs := cfg.Validate(); len(errs) > 0 {
		t.Errorf("default config file targets are invalid: %v", errs)
	}
}

func TestRegister(t *testing.T) {
	names := map[string]bool{}
	for _, c := range configCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"show", "init", "path"} {
		if !names[want] {
			t.Errorf("config command missing %q subcommand", want)
		}
	}
}
