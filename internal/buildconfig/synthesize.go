package buildconfig

import (
	"strings"

	"github.com/Iron-Ham/packstream/internal/item"
)

// EntryName derives an entry point name from an item basename by stripping
// its final extension. Names without an extension, and dotfiles whose only
// dot is the leading one, are kept whole.
func EntryName(basename string) string {
	idx := strings.LastIndex(basename, ".")
	if idx <= 0 {
		return basename
	}
	return basename[:idx]
}

// Synthesize returns a copy of cfg in which every target's entry mapping also
// names each stored item. An item entry replaces a user entry of the same
// name. cfg itself is not modified; a nil cfg means one empty target.
func Synthesize(store *item.Store, cfg *Config) (*Config, error) {
	if cfg == nil {
		cfg = Single(nil)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	out := cfg.Clone()
	items := store.Items()
	for _, t := range out.Targets {
		if t.Entry == nil {
			t.Entry = make(map[string]string, len(items))
		}
		for _, it := range items {
			t.Entry[EntryName(it.Basename())] = it.Path
		}
	}
	return out, nil
}
