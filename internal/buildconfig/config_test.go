package buildconfig

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/packstream/internal/errors"
	"github.com/Iron-Ham/packstream/internal/item"
)

func TestEntryName(t *testing.T) {
	tests := map[string]string{
		"entry1.js":   "entry1",
		"app.min.js":  "app.min",
		"Makefile":    "Makefile",
		".babelrc":    ".babelrc",
		"styles.scss": "styles",
		"trailing.":   "trailing",
	}
	for in, want := range tests {
		assert.Equal(t, want, EntryName(in), in)
	}
}

func newStore(t *testing.T, paths ...string) *item.Store {
	t.Helper()
	s := item.NewStore()
	for _, p := range paths {
		require.NoError(t, s.Put(item.New("/src", p, []byte("// "+p))))
	}
	return s
}

func TestSynthesize_EntryPerItem(t *testing.T) {
	store := newStore(t, "/src/entry1.js", "/src/lib/util.ts")

	cfg, err := Synthesize(store, nil)
	require.NoError(t, err)
	require.Len(t, cfg.Targets, 1)
	assert.False(t, cfg.Multi)
	assert.Equal(t, map[string]string{
		"entry1": "/src/entry1.js",
		"util":   "/src/lib/util.ts",
	}, cfg.Targets[0].Entry)
}

func TestSynthesize_KeepsUserEntriesAndOverwritesCollisions(t *testing.T) {
	store := newStore(t, "/src/entry1.js")
	user := Single(&Target{Entry: map[string]string{
		"entry2": "/src/entry2.js",
		"entry1": "/elsewhere/entry1.js",
	}})

	cfg, err := Synthesize(store, user)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"entry1": "/src/entry1.js",
		"entry2": "/src/entry2.js",
	}, cfg.Targets[0].Entry)

	// The caller's configuration is left alone.
	assert.Equal(t, "/elsewhere/entry1.js", user.Targets[0].Entry["entry1"])
}

func TestSynthesize_MultiTarget(t *testing.T) {
	store := newStore(t, "/src/entry1.js")
	user := MultiTarget(
		&Target{Name: "modern", Output: Output{EntryNames: "[name].modern"}},
		&Target{Name: "legacy", Output: Output{EntryNames: "[name].legacy"}},
	)

	cfg, err := Synthesize(store, user)
	require.NoError(t, err)
	require.True(t, cfg.Multi)
	for _, target := range cfg.Targets {
		assert.Equal(t, "/src/entry1.js", target.Entry["entry1"], target.Name)
	}
	assert.Nil(t, user.Targets[0].Entry)
}

func TestSynthesize_InvalidConfig(t *testing.T) {
	store := newStore(t, "/src/a.js")

	_, err := Synthesize(store, MultiTarget())
	assert.ErrorIs(t, err, errors.ErrMissingConfiguration)

	_, err = Synthesize(store, MultiTarget(&Target{}, nil))
	assert.ErrorIs(t, err, errors.ErrMissingConfiguration)
}

func TestConfig_TargetName(t *testing.T) {
	assert.Equal(t, "main", Single(nil).TargetName(0))
	multi := MultiTarget(&Target{Name: "web"}, &Target{})
	assert.Equal(t, "web", multi.TargetName(0))
	assert.Equal(t, "target-1", multi.TargetName(1))
	assert.Equal(t, "", multi.TargetName(5))
}

func TestTarget_EntryNamesSorted(t *testing.T) {
	target := &Target{Entry: map[string]string{"b": "1", "a": "2", "c": "3"}}
	assert.Equal(t, []string{"a", "b", "c"}, target.EntryNames())
}

func TestParse_SingleAndMulti(t *testing.T) {
	single, err := Parse([]byte(`
mode: production
entry:
  vendor: ./vendor.js
output:
  entry_names: "[name].renamed"
`))
	require.NoError(t, err)
	assert.False(t, single.Multi)
	assert.Equal(t, "production", single.Targets[0].Mode)
	assert.Equal(t, "./vendor.js", single.Targets[0].Entry["vendor"])
	assert.Equal(t, "[name].renamed", single.Targets[0].Output.EntryNames)

	multi, err := Parse([]byte(`
- name: modern
  format: esm
- name: legacy
  format: iife
`))
	require.NoError(t, err)
	assert.True(t, multi.Multi)
	require.Len(t, multi.Targets, 2)
	assert.Equal(t, "iife", multi.Targets[1].Format)

	_, err = Parse([]byte(`"just a string"`))
	assert.Error(t, err)

	_, err = Parse([]byte(`[]`))
	assert.ErrorIs(t, err, errors.ErrMissingConfiguration)
}

func TestConfig_MarshalYAMLRoundTrip(t *testing.T) {
	cfg := MultiTarget(&Target{Name: "a"}, &Target{Name: "b"})
	data, err := yaml.Marshal(cfg)
	require.NoError(t, err)

	back, err := Parse(data)
	require.NoError(t, err)
	assert.True(t, back.Multi)
	assert.Equal(t, "b", back.Targets[1].Name)
}

func TestLoadFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/proj/packstream.targets.yaml", []byte("name: web\n"), 0644))

	cfg, err := LoadFile(fs, "/proj/packstream.targets.yaml")
	require.NoError(t, err)
	assert.Equal(t, "web", cfg.Targets[0].Name)

	_, err = LoadFile(fs, "/proj/missing.yaml")
	assert.ErrorIs(t, err, errors.ErrMissingConfiguration)
}
