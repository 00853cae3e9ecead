package item

import (
	"sync"

	"github.com/Iron-Ham/packstream/internal/errors"
)

// Store buffers items by basename for the length of one buffering phase.
// It is safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	order []string
	items map[string]*Item
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{items: make(map[string]*Item)}
}

// Put buffers it under its basename. A later item with the same basename
// replaces the earlier one but keeps its position. Items without concrete
// byte content are rejected with an UnsupportedContentError.
func (s *Store) Put(it *Item) error {
	if it == nil || !it.IsBuffer() {
		name := ""
		if it != nil {
			name = it.Basename()
		}
		return errors.NewUnsupportedContentError(name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	name := it.Basename()
	if _, ok := s.items[name]; !ok {
		s.order = append(s.order, name)
	}
	s.items[name] = it
	return nil
}

// Get returns the item stored under basename.
func (s *Store) Get(basename string) (*Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.items[basename]
	return it, ok
}

// Has reports whether an item is stored under basename.
func (s *Store) Has(basename string) bool {
	_, ok := s.Get(basename)
	return ok
}

// Len returns the number of buffered items.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// IsEmpty reports whether nothing was buffered.
func (s *Store) IsEmpty() bool {
	return s.Len() == 0
}

// Items returns the buffered items in insertion order.
func (s *Store) Items() []*Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Item, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.items[name])
	}
	return out
}
