// Package item defines the unit of content that flows through a packstream
// pipeline and the store that buffers items while a bridge stage collects
// its entry points.
package item

import (
	"io"
	"maps"
	"path/filepath"

	"github.com/Iron-Ham/packstream/internal/sourcemap"
)

// Item is a named, path-bearing unit of content.
//
// Exactly one of Contents and Stream is normally set. An item with neither is
// a null placeholder that stages forward untouched.
type Item struct {
	Cwd  string // working directory the item was read relative to
	Base string // base directory; Relative() is computed against it
	Path string // absolute path

	Contents  []byte
	Stream    io.Reader
	SourceMap *sourcemap.Map

	// Meta carries side-channel data attached by other stages. The bridge
	// never touches it, so it survives correlation.
	Meta map[string]any
}

// New creates a buffered item.
func New(base, path string, contents []byte) *Item {
	return &Item{Base: base, Path: path, Contents: contents}
}

// IsNull reports whether the item carries no content at all.
func (it *Item) IsNull() bool {
	return it.Contents == nil && it.Stream == nil
}

// IsBuffer reports whether the item carries concrete bytes.
func (it *Item) IsBuffer() bool {
	return it.Contents != nil
}

// IsStream reports whether the item carries lazy streamed content.
func (it *Item) IsStream() bool {
	return it.Contents == nil && it.Stream != nil
}

// Basename returns the final element of Path.
func (it *Item) Basename() string {
	return filepath.Base(it.Path)
}

// Relative returns Path relative to Base, or the basename when that fails.
func (it *Item) Relative() string {
	if it.Base == "" {
		return it.Basename()
	}
	rel, err := filepath.Rel(it.Base, it.Path)
	if err != nil {
		return it.Basename()
	}
	return rel
}

// Clone returns a copy that shares nothing mutable with it.
func (it *Item) Clone() *Item {
	c := *it
	if it.Contents != nil {
		c.Contents = append([]byte(nil), it.Contents...)
	}
	c.SourceMap = it.SourceMap.Clone()
	if it.Meta != nil {
		c.Meta = maps.Clone(it.Meta)
	}
	return &c
}
