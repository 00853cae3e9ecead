// Package correlate maps the artifacts of a completed build pass back onto
// the pipeline items that produced them.
//
// For every asset, in the engine's emission order:
//
//  1. an asset whose name equals a stored item's basename replaces that
//     item's contents and the same item is forwarded (Matched);
//  2. otherwise a source map whose target file is a stored item that already
//     carries a map is merged into that map and nothing is forwarded
//     (MapMerged);
//  3. otherwise a new item is created under the output path (Fresh).
package correlate

import (
	"fmt"
	"path/filepath"
	"regexp"

	"github.com/spf13/afero"

	"github.com/Iron-Ham/packstream/internal/engine"
	"github.com/Iron-Ham/packstream/internal/errors"
	"github.com/Iron-Ham/packstream/internal/item"
	"github.com/Iron-Ham/packstream/internal/sourcemap"
)

// Kind classifies what happened to one asset.
type Kind int

const (
	// Matched means the asset replaced a stored item's contents.
	Matched Kind = iota
	// MapMerged means the asset was a source map folded into a stored item.
	MapMerged
	// Fresh means the asset became a new item.
	Fresh
)

func (k Kind) String() string {
	switch k {
	case Matched:
		return "matched"
	case MapMerged:
		return "map_merged"
	case Fresh:
		return "fresh"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Forwarded reports whether an outcome of this kind emits an item.
func (k Kind) Forwarded() bool {
	return k == Matched || k == Fresh
}

// Outcome is the result of correlating one asset.
type Outcome struct {
	Kind  Kind
	Item  *item.Item // the forwarded item, or the item a map merged into
	Asset engine.Asset
}

// sourceMapPattern recognises a source map asset and captures the name of the
// file it belongs to. The leading directory segment is required, so maps
// emitted at the top of the output directory are not recognised.
var sourceMapPattern = regexp.MustCompile(`(?:[^.]*/)(?P<fileName>.*)(?:\.map.*)`)

// SourceMapTarget returns the basename of the file a source map asset
// belongs to.
func SourceMapTarget(assetName string) (string, bool) {
	m := sourceMapPattern.FindStringSubmatch(assetName)
	if m == nil {
		return "", false
	}
	return m[sourceMapPattern.SubexpIndex("fileName")], true
}

// Correlator resolves assets against a store, reading artifact bytes from
// the engine's output filesystem.
type Correlator struct {
	store *item.Store
	fs    afero.Fs
}

// New creates a Correlator.
func New(store *item.Store, fs afero.Fs) *Correlator {
	return &Correlator{store: store, fs: fs}
}

// Correlate resolves every asset of comp. Each outcome is passed to emit as
// soon as it is known so that items reach downstream in emission order;
// emit may be nil. A failure to read an artifact or to apply a source map
// stops correlation and is returned as an EngineInvocationError.
func (c *Correlator) Correlate(comp *engine.Compilation, emit func(Outcome) error) ([]Outcome, error) {
	outcomes := make([]Outcome, 0, len(comp.Assets))
	for _, asset := range comp.Assets {
		o, err := c.resolve(comp.OutputPath, asset)
		if err != nil {
			return outcomes, err
		}
		outcomes = append(outcomes, o)
		if emit != nil {
			if err := emit(o); err != nil {
				return outcomes, err
			}
		}
	}
	return outcomes, nil
}

func (c *Correlator) resolve(outputPath string, asset engine.Asset) (Outcome, error) {
	outPath := filepath.Join(outputPath, filepath.FromSlash(asset.Name))
	contents, err := afero.ReadFile(c.fs, outPath)
	if err != nil {
		return Outcome{}, errors.NewEngineInvocationError("read emitted asset", err)
	}

	if it, ok := c.store.Get(asset.Name); ok {
		it.Contents = contents
		return Outcome{Kind: Matched, Item: it, Asset: asset}, nil
	}

	if fileName, ok := SourceMapTarget(asset.Name); ok {
		if it, ok := c.store.Get(fileName); ok && it.SourceMap != nil {
			merged, err := sourcemap.Apply(it.SourceMap, contents, filepath.ToSlash(it.Relative()))
			if err != nil {
				return Outcome{}, errors.NewEngineInvocationError(
					"apply source map", fmt.Errorf("%s: %w", asset.Name, err))
			}
			it.SourceMap = merged
			return Outcome{Kind: MapMerged, Item: it, Asset: asset}, nil
		}
	}

	return Outcome{
		Kind:  Fresh,
		Item:  item.New(outputPath, outPath, contents),
		Asset: asset,
	}, nil
}
