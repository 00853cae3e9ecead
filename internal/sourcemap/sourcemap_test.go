package sourcemap

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeMappings(t *testing.T) {
	segs, err := DecodeMappings("AAAA;AACA,EAAE")
	require.NoError(t, err)

	want := []Segment{
		{GenLine: 0, GenColumn: 0, HasSource: true, Source: 0, OrigLine: 0, OrigColumn: 0},
		{GenLine: 1, GenColumn: 0, HasSource: true, Source: 0, OrigLine: 1, OrigColumn: 0},
		{GenLine: 1, GenColumn: 2, HasSource: true, Source: 0, OrigLine: 1, OrigColumn: 2},
	}
	assert.Equal(t, want, segs)
}

func TestDecodeMappings_Errors(t *testing.T) {
	tests := map[string]string{
		"bad character":   "AA*A",
		"two fields":      "AA",
		"unterminated":    "g",
		"too many fields": "AAAAAA",
		"negative name":   "AAAAD",
		"negative source": "ADAA",
		"negative column": "D",
		"negative line":   "AAAA,AADA",
	}
	for name, mappings := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeMappings(mappings)
			assert.Error(t, err)
		})
	}
}

func TestEncodeMappings_RoundTrip(t *testing.T) {
	for _, mappings := range []string{
		"AAAA;AACA,EAAE",
		"AAAAA,SAASC;;AAEF",
		"A,CAAC;gBAAgB",
	} {
		segs, err := DecodeMappings(mappings)
		require.NoError(t, err, mappings)
		assert.Equal(t, mappings, EncodeMappings(segs))
	}
}

func TestVLQ_Values(t *testing.T) {
	tests := []struct {
		value int
		enc   string
	}{
		{0, "A"},
		{1, "C"},
		{-1, "D"},
		{2, "E"},
		{16, "gB"},
		{-16, "hB"},
	}
	for _, tt := range tests {
		var sb strings.Builder
		encodeVLQ(&sb, tt.value)
		assert.Equal(t, tt.enc, sb.String(), "encode %d", tt.value)

		got, next, err := decodeVLQ(tt.enc, 0)
		require.NoError(t, err)
		assert.Equal(t, tt.value, got)
		assert.Equal(t, len(tt.enc), next)
	}
}

func TestParse(t *testing.T) {
	m, err := Parse([]byte(`{"version":3,"sources":["a.ts"],"sourcesContent":[null],"mappings":"AAAA"}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"a.ts"}, m.Sources)
	assert.Equal(t, []string{""}, m.SourcesContent)
	assert.Equal(t, []string{}, m.Names)

	_, err = Parse([]byte(`{"version":3,"sources":[]}`))
	assert.ErrorContains(t, err, "mappings")

	_, err = Parse([]byte(`{"version":3,"mappings":""}`))
	assert.ErrorContains(t, err, "sources")

	_, err = Parse([]byte(`not json`))
	assert.Error(t, err)
}

func TestApply_ReplacesEmptyMap(t *testing.T) {
	existing := &Map{Version: 3, Sources: []string{}, Names: []string{}, Mappings: ""}
	incoming := []byte(`{"version":3,"file":"out.js","sources":["src/app.ts"],"names":[],"mappings":"AAAA"}`)

	merged, err := Apply(existing, incoming, `dist\app.js`)
	require.NoError(t, err)
	assert.Equal(t, "dist/app.js", merged.File)
	assert.Equal(t, []string{"src/app.ts"}, merged.Sources)
	assert.Equal(t, "AAAA", merged.Mappings)
}

func TestApply_RejectsNegativeNameIndex(t *testing.T) {
	existing := &Map{
		Version:  3,
		File:     "app.js",
		Sources:  []string{"src/app.ts"},
		Names:    []string{"x"},
		Mappings: "AAAAD",
	}
	incoming := []byte(`{"version":3,"file":"app.js","sources":["app.js"],"names":[],"mappings":"AAAA"}`)

	var err error
	require.NotPanics(t, func() {
		_, err = Apply(existing, incoming, "app.js")
	})
	assert.ErrorContains(t, err, "existing mappings")
}

func TestApply_NilExisting(t *testing.T) {
	merged, err := Apply(nil, []byte(`{"sources":["x.js"],"mappings":"AAAA"}`), "x.js")
	require.NoError(t, err)
	assert.Equal(t, 3, merged.Version)
}

func TestApply_ComposesThroughExistingMap(t *testing.T) {
	// app.js was produced from src/app.ts: generated col 4 comes from original col 2.
	existing := &Map{
		Version:        3,
		File:           "app.js",
		Sources:        []string{"src/app.ts"},
		SourcesContent: []string{"let a = 1"},
		Names:          []string{},
		Mappings:       "AAAA,IAAE",
	}
	// The bundle maps col 0 to app.js col 0 and col 2 to app.js col 4.
	incoming := []byte(`{"version":3,"sources":["app.js"],"names":[],"mappings":"AAAA,EAAI"}`)

	merged, err := Apply(existing, incoming, "app.js")
	require.NoError(t, err)

	assert.Equal(t, []string{"src/app.ts"}, merged.Sources)
	assert.Equal(t, []string{"let a = 1"}, merged.SourcesContent)
	assert.Equal(t, "AAAA,EAAE", merged.Mappings)
}

func TestApply_KeepsForeignSources(t *testing.T) {
	existing := &Map{Version: 3, File: "app.js", Sources: []string{"src/app.ts"}, Mappings: "AAAA"}
	incoming := []byte(`{"version":3,"sources":["runtime.js","app.js"],"names":["boot"],"mappings":"AAAAA,ECAA"}`)

	merged, err := Apply(existing, incoming, "app.js")
	require.NoError(t, err)

	assert.Equal(t, []string{"runtime.js", "src/app.ts"}, merged.Sources)
	assert.Equal(t, []string{"boot"}, merged.Names)

	segs, err := DecodeMappings(merged.Mappings)
	require.NoError(t, err)
	require.Len(t, segs, 2)
	assert.True(t, segs[0].HasName)
	assert.Equal(t, 1, segs[1].Source)
	assert.Equal(t, 2, segs[1].GenColumn)
}

func TestApply_SourceRoot(t *testing.T) {
	existing := &Map{Version: 3, File: "app.js", SourceRoot: "/src", Sources: []string{"app.ts"}, Mappings: "AAAA"}
	merged, err := Apply(existing, []byte(`{"sources":["app.js"],"mappings":"AAAA"}`), "app.js")
	require.NoError(t, err)
	assert.Equal(t, []string{"/src/app.ts"}, merged.Sources)
}

func TestMap_CloneAndBytes(t *testing.T) {
	m := &Map{Version: 3, Sources: []string{"a"}, Names: []string{}, Mappings: "AAAA"}
	c := m.Clone()
	c.Sources[0] = "b"
	assert.Equal(t, "a", m.Sources[0])

	data, err := m.Bytes()
	require.NoError(t, err)
	back, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, m.Mappings, back.Mappings)

	var nilMap *Map
	assert.Nil(t, nilMap.Clone())
}
