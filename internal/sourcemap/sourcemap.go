// Package sourcemap parses, composes and serialises version 3 source maps.
//
// Items carry an optional embedded map. When the engine emits a map for an
// item that already has one, [Apply] merges the two: an empty existing map is
// replaced, otherwise the new map is composed through the existing one so that
// positions keep pointing at the original sources.
package sourcemap

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"
)

// Map is a version 3 source map.
type Map struct {
	Version        int      `json:"version"`
	File           string   `json:"file,omitempty"`
	SourceRoot     string   `json:"sourceRoot,omitempty"`
	Sources        []string `json:"sources"`
	SourcesContent []string `json:"sourcesContent,omitempty"`
	Names          []string `json:"names"`
	Mappings       string   `json:"mappings"`
}

// rawMap detects which required properties were present.
type rawMap struct {
	Version        int       `json:"version"`
	File           string    `json:"file"`
	SourceRoot     string    `json:"sourceRoot"`
	Sources        *[]string `json:"sources"`
	SourcesContent []*string `json:"sourcesContent"`
	Names          []string  `json:"names"`
	Mappings       *string   `json:"mappings"`
}

// Parse decodes a JSON source map. The sources and mappings properties are
// required.
func Parse(data []byte) (*Map, error) {
	var raw rawMap
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse source map: %w", err)
	}
	if raw.Sources == nil {
		return nil, fmt.Errorf(`source map is missing property "sources"`)
	}
	if raw.Mappings == nil {
		return nil, fmt.Errorf(`source map is missing property "mappings"`)
	}

	m := &Map{
		Version:    raw.Version,
		File:       raw.File,
		SourceRoot: raw.SourceRoot,
		Sources:    *raw.Sources,
		Names:      raw.Names,
		Mappings:   *raw.Mappings,
	}
	if m.Version == 0 {
		m.Version = 3
	}
	if m.Names == nil {
		m.Names = []string{}
	}
	if len(raw.SourcesContent) > 0 {
		m.SourcesContent = make([]string, len(raw.SourcesContent))
		for i, c := range raw.SourcesContent {
			if c != nil {
				m.SourcesContent[i] = *c
			}
		}
	}
	return m, nil
}

// Bytes serialises the map as JSON.
func (m *Map) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// Clone returns a deep copy of the map.
func (m *Map) Clone() *Map {
	if m == nil {
		return nil
	}
	c := *m
	c.Sources = append([]string(nil), m.Sources...)
	c.Names = append([]string(nil), m.Names...)
	if m.SourcesContent != nil {
		c.SourcesContent = append([]string(nil), m.SourcesContent...)
	}
	return &c
}

// sourceName resolves the i-th source against the source root.
func (m *Map) sourceName(i int) string {
	if i < 0 || i >= len(m.Sources) {
		return ""
	}
	src := m.Sources[i]
	if m.SourceRoot != "" && !path.IsAbs(src) && !strings.Contains(src, "://") {
		return path.Join(m.SourceRoot, src)
	}
	return src
}

func (m *Map) sourceContent(i int) (string, bool) {
	if i < 0 || i >= len(m.SourcesContent) || m.SourcesContent[i] == "" {
		return "", false
	}
	return m.SourcesContent[i], true
}

// Apply merges an engine-emitted map into existing. relative becomes the
// merged map's file. A nil or mapping-less existing map is replaced outright.
func Apply(existing *Map, incoming []byte, relative string) (*Map, error) {
	next, err := Parse(incoming)
	if err != nil {
		return nil, err
	}
	next.File = strings.ReplaceAll(relative, "\\", "/")

	if existing == nil || existing.Mappings == "" {
		return next, nil
	}
	return compose(next, existing)
}

// compose rewrites every segment of next that points into prev.File so that it
// points at prev's original position instead.
func compose(next, prev *Map) (*Map, error) {
	nextSegs, err := DecodeMappings(next.Mappings)
	if err != nil {
		return nil, fmt.Errorf("failed to decode new mappings: %w", err)
	}
	prevSegs, err := DecodeMappings(prev.Mappings)
	if err != nil {
		return nil, fmt.Errorf("failed to decode existing mappings: %w", err)
	}
	prevByLine := groupByLine(prevSegs)

	type resolved struct {
		seg     Segment
		source  string
		name    string
		content string
		hasCont bool
	}

	out := make([]resolved, 0, len(nextSegs))
	for _, seg := range nextSegs {
		r := resolved{seg: seg}
		if seg.HasSource {
			r.source = next.sourceName(seg.Source)
			r.content, r.hasCont = next.sourceContent(seg.Source)
			if seg.HasName && seg.Name < len(next.Names) {
				r.name = next.Names[seg.Name]
			}
			if r.source == prev.File {
				if orig, ok := lookup(prevByLine, seg.OrigLine, seg.OrigColumn); ok {
					r.source = prev.sourceName(orig.Source)
					r.content, r.hasCont = prev.sourceContent(orig.Source)
					r.seg.OrigLine = orig.OrigLine
					r.seg.OrigColumn = orig.OrigColumn
					if orig.HasName && orig.Name < len(prev.Names) {
						r.name = prev.Names[orig.Name]
						r.seg.HasName = true
					}
				}
			}
		}
		out = append(out, r)
	}

	merged := &Map{
		Version: 3,
		File:    next.File,
		Sources: []string{},
		Names:   []string{},
	}
	sourceIdx := make(map[string]int)
	nameIdx := make(map[string]int)
	var contents []string
	hasContent := false

	segs := make([]Segment, 0, len(out))
	for _, r := range out {
		seg := r.seg
		if seg.HasSource {
			idx, ok := sourceIdx[r.source]
			if !ok {
				idx = len(merged.Sources)
				sourceIdx[r.source] = idx
				merged.Sources = append(merged.Sources, r.source)
				contents = append(contents, r.content)
				hasContent = hasContent || r.hasCont
			}
			seg.Source = idx
			if seg.HasName && r.name != "" {
				n, ok := nameIdx[r.name]
				if !ok {
					n = len(merged.Names)
					nameIdx[r.name] = n
					merged.Names = append(merged.Names, r.name)
				}
				seg.Name = n
			} else {
				seg.HasName = false
			}
		}
		segs = append(segs, seg)
	}
	if hasContent {
		merged.SourcesContent = contents
	}
	merged.Mappings = EncodeMappings(segs)
	return merged, nil
}

func groupByLine(segs []Segment) map[int][]Segment {
	byLine := make(map[int][]Segment)
	for _, s := range segs {
		byLine[s.GenLine] = append(byLine[s.GenLine], s)
	}
	return byLine
}

// lookup finds the segment on line with the greatest generated column not
// after column, provided it maps to a source.
func lookup(byLine map[int][]Segment, line, column int) (Segment, bool) {
	var best Segment
	found := false
	for _, s := range byLine[line] {
		if s.GenColumn > column {
			break
		}
		best = s
		found = true
	}
	if !found || !best.HasSource {
		return Segment{}, false
	}
	return best, true
}
