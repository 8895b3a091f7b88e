// Package swap provides backing stores that keep the content of pages
// evicted from physical memory.
package swap

import (
	"github.com/sarchlab/pagesim/mem/vm"
)

// A Store persists page content keyed by virtual page number.
type Store interface {
	// Save keeps a copy of the page content, replacing any earlier copy.
	Save(pageNumber uint64, data []vm.Word) error

	// Load returns the saved content of a page and forgets it. The bool
	// return value is false if the page was never saved.
	Load(pageNumber uint64) ([]vm.Word, bool, error)

	// Len returns the number of pages currently saved.
	Len() (int, error)

	// Reset forgets every saved page.
	Reset() error

	// Close releases the resources held by the store.
	Close() error
}

// MemoryStore keeps evicted pages in a map.
type MemoryStore struct {
	pages map[uint64][]vm.Word
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		pages: make(map[uint64][]vm.Word),
	}
}

// Save keeps a copy of the page content.
func (s *MemoryStore) Save(pageNumber uint64, data []vm.Word) error {
	saved := make([]vm.Word, len(data))
	copy(saved, data)
	s.pages[pageNumber] = saved

	return nil
}

// Load returns and removes the content of a saved page.
func (s *MemoryStore) Load(pageNumber uint64) ([]vm.Word, bool, error) {
	data, found := s.pages[pageNumber]
	if !found {
		return nil, false, nil
	}

	delete(s.pages, pageNumber)

	return data, true, nil
}

// Len returns the number of saved pages.
func (s *MemoryStore) Len() (int, error) {
	return len(s.pages), nil
}

// Reset forgets every saved page.
func (s *MemoryStore) Reset() error {
	s.pages = make(map[uint64][]vm.Word)
	return nil
}

// Close does nothing.
func (s *MemoryStore) Close() error {
	return nil
}
