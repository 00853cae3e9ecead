package engine_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Iron-Ham/packstream/internal/buildconfig"
	"github.com/Iron-Ham/packstream/internal/engine"
	"github.com/Iron-Ham/packstream/internal/engine/enginetest"
)

func TestRunner_SingleTarget(t *testing.T) {
	e := enginetest.New()
	r, err := e.New(buildconfig.Single(&buildconfig.Target{
		Entry: map[string]string{"main": "/src/main.js"},
	}))
	require.NoError(t, err)

	fs := afero.NewMemMapFs()
	require.Len(t, r.Compilers(), 1)
	r.Compilers()[0].SetOutputFileSystem(fs)

	var emitted []string
	r.Compilers()[0].Hooks().TapAfterEmit("test", func(c *engine.Compilation) {
		for _, a := range c.Assets {
			emitted = append(emitted, a.Name)
		}
	})

	res, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Multi)
	require.Len(t, res.Stats, 1)
	assert.Equal(t, "main", res.Stats[0].Compilation.Target)
	assert.Equal(t, []string{"main.js"}, emitted)

	data, err := afero.ReadFile(fs, filepath.Join(enginetest.Root, "dist", "main.js"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "bundle main")
}

func TestRunner_MultiTargetKeepsOrder(t *testing.T) {
	e := enginetest.New()
	cfg := buildconfig.MultiTarget(
		&buildconfig.Target{Name: "modern", Entry: map[string]string{"a": "/src/a.js"}},
		&buildconfig.Target{Name: "legacy", Entry: map[string]string{"a": "/src/a.js"}, Output: buildconfig.Output{EntryNames: "[name].legacy"}},
		&buildconfig.Target{Entry: map[string]string{"a": "/src/a.js"}, Output: buildconfig.Output{Path: "third"}},
	)
	r, err := e.New(cfg)
	require.NoError(t, err)
	for _, c := range r.Compilers() {
		c.SetOutputFileSystem(afero.NewMemMapFs())
	}

	res, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Multi)
	require.Len(t, res.Stats, 3)

	assert.Equal(t, "modern", res.Stats[0].Compilation.Target)
	assert.Equal(t, "legacy", res.Stats[1].Compilation.Target)
	assert.Equal(t, "a.legacy.js", res.Stats[1].Compilation.Assets[0].Name)
	assert.Equal(t, "target-2", res.Stats[2].Compilation.Target)
	assert.Equal(t, 2, res.Stats[2].Compilation.Index)
}

func TestRunner_RunPropagatesHookPanic(t *testing.T) {
	e := enginetest.New()
	r, err := e.New(buildconfig.Single(&buildconfig.Target{Entry: map[string]string{"a": "/a.js"}}))
	require.NoError(t, err)
	r.Compilers()[0].SetOutputFileSystem(afero.NewMemMapFs())
	r.Compilers()[0].Hooks().TapAfterEmit("boom", func(*engine.Compilation) { panic("boom") })

	_, err = r.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestRunner_WatchMultiTarget(t *testing.T) {
	e := enginetest.New()
	cfg := buildconfig.MultiTarget(
		&buildconfig.Target{Name: "one", Entry: map[string]string{"a": "/a.js"}},
		&buildconfig.Target{Name: "two", Entry: map[string]string{"a": "/a.js"}},
	)
	r, err := e.New(cfg)
	require.NoError(t, err)
	for _, c := range r.Compilers() {
		c.SetOutputFileSystem(afero.NewMemMapFs())
	}

	var mu sync.Mutex
	var seen []string
	w, err := r.Watch(context.Background(), engine.WatchOptions{}, func(res *engine.Result, err error) {
		require.NoError(t, err)
		mu.Lock()
		defer mu.Unlock()
		assert.True(t, res.Multi)
		require.Len(t, res.Stats, 1)
		seen = append(seen, res.Stats[0].Compilation.Target)
	})
	require.NoError(t, err)

	mw, ok := w.(engine.MultiWatching)
	require.True(t, ok, "multi-target watch returns MultiWatching")
	require.Len(t, mw.Watchings(), 2)
	assert.Equal(t, []string{"one", "two"}, seen)

	mw.Watchings()[1].Suspend()
	assert.True(t, mw.Suspended(), "any suspended member suspends the aggregate")

	mw.Watchings()[1].Invalidate()
	mw.Watchings()[0].Invalidate()
	assert.Equal(t, []string{"one", "two", "one"}, seen)

	mw.Resume()
	assert.False(t, mw.Suspended())
	assert.Equal(t, []string{"one", "two", "one", "two"}, seen)

	require.NoError(t, mw.Close())
	mw.Invalidate()
	assert.Len(t, seen, 4)
}

func TestRunner_WatchSingleTargetReturnsPlainWatching(t *testing.T) {
	e := enginetest.New()
	r, err := e.New(buildconfig.Single(&buildconfig.Target{Entry: map[string]string{"a": "/a.js"}}))
	require.NoError(t, err)
	r.Compilers()[0].SetOutputFileSystem(afero.NewMemMapFs())

	calls := 0
	w, err := r.Watch(context.Background(), engine.WatchOptions{}, func(*engine.Result, error) { calls++ })
	require.NoError(t, err)

	_, isMulti := w.(engine.MultiWatching)
	assert.False(t, isMulti)
	assert.Equal(t, 1, calls)
	require.NoError(t, w.Close())
}

func TestRunner_WatchErrorClosesStarted(t *testing.T) {
	e := enginetest.New()
	e.WatchErr = errors.New("no watcher")
	r, err := e.New(buildconfig.Single(&buildconfig.Target{}))
	require.NoError(t, err)

	_, err = r.Watch(context.Background(), engine.WatchOptions{}, func(*engine.Result, error) {})
	assert.EqualError(t, err, "no watcher")
}
