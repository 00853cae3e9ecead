package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHooks_TapAfterEmit(t *testing.T) {
	h := NewHooks()

	var got []string
	h.TapAfterEmit("first", func(c *Compilation) { got = append(got, "first:"+c.Target) })
	h.TapAfterEmit("second", func(c *Compilation) { got = append(got, "second:"+c.Target) })

	require.NoError(t, h.CallAfterEmit(&Compilation{Target: "main"}))
	assert.Equal(t, []string{"first:main", "second:main"}, got)
	assert.Equal(t, 2, h.Taps())
}

func TestHooks_RetapReplacesHandler(t *testing.T) {
	h := NewHooks()

	stale := 0
	fresh := 0
	h.TapAfterEmit("bridge", func(*Compilation) { stale++ })
	h.TapAfterEmit("bridge", func(*Compilation) { fresh++ })

	_ = h.CallAfterEmit(&Compilation{})

	assert.Equal(t, 0, stale)
	assert.Equal(t, 1, fresh)
	assert.Equal(t, 1, h.Taps())
}

func TestHooks_Untap(t *testing.T) {
	h := NewHooks()

	calls := 0
	h.TapAfterEmit("bridge", func(*Compilation) { calls++ })
	h.UntapAfterEmit("bridge")
	h.UntapAfterEmit("missing")

	_ = h.CallAfterEmit(&Compilation{})
	assert.Zero(t, calls)
}

func TestHooks_PanicBecomesError(t *testing.T) {
	h := NewHooks()

	after := 0
	h.TapAfterEmit("boom", func(*Compilation) { panic("kaboom") })
	h.TapAfterEmit("after", func(*Compilation) { after++ })

	err := h.CallAfterEmit(&Compilation{})
	require.ErrorContains(t, err, "kaboom")
	assert.Equal(t, 1, after, "handlers after a panic still run")

	// The error is reported once.
	h.UntapAfterEmit("boom")
	assert.NoError(t, h.CallAfterEmit(&Compilation{}))
}

func TestMessage_String(t *testing.T) {
	tests := []struct {
		msg  Message
		want string
	}{
		{Message{Text: "boom"}, "boom"},
		{Message{Text: "boom", File: "src/a.js"}, "src/a.js: boom"},
		{Message{Text: "boom", File: "src/a.js", Line: 3, Column: 7}, "src/a.js:3:7: boom"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.msg.String())
	}
}

func TestStats_Errors(t *testing.T) {
	var nilStats *Stats
	assert.False(t, nilStats.HasErrors())
	assert.False(t, nilStats.HasWarnings())
	assert.Nil(t, nilStats.ErrorStrings())

	s := &Stats{Compilation: &Compilation{
		Errors:   []Message{{Text: "a"}, {Text: "b", File: "x.js"}},
		Warnings: []Message{{Text: "w"}},
	}}
	assert.True(t, s.HasErrors())
	assert.True(t, s.HasWarnings())
	assert.Equal(t, []string{"a", "x.js: b"}, s.ErrorStrings())

	r := &Result{Stats: []*Stats{{Compilation: &Compilation{}}, s}}
	assert.True(t, r.HasErrors())
	var nilResult *Result
	assert.False(t, nilResult.HasErrors())
}
