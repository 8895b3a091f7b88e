package mmu

import "github.com/sarchlab/pagesim/mem/vm"

//go:generate mockgen -destination "mock_mmu_test.go" -package $GOPACKAGE -write_package_comment=false -source interface.go

// PhysicalMemory is the word-addressed storage that holds the frame tree and
// the data pages. It is implemented by physical.Memory.
type PhysicalMemory interface {
	// Read returns the word at a physical address.
	Read(addr uint64) vm.Word

	// Write sets the word at a physical address.
	Write(addr uint64, value vm.Word)

	// ClearFrame sets every word of a frame to zero.
	ClearFrame(frame uint64)

	// Evict persists the content of a frame under a page number before the
	// frame is reused.
	Evict(frame, pageNumber uint64) error

	// Restore loads the last persisted content of a page into a frame. The
	// frame is left as is if the page was never evicted.
	//
	// The MMU calls Restore only when it has just linked a zeroed frame as
	// the data frame of the page. Loading must therefore forget the page:
	// a page that is still in memory is never restored again, and the next
	// Restore must only see content from a later Evict.
	Restore(frame, pageNumber uint64) error

	// Reset zeroes every frame and forgets every evicted page.
	Reset() error
}

// layoutGetter is an optional interface that physical memories can implement
// to expose their geometry for validation purposes.
type layoutGetter interface {
	Layout() vm.Layout
}
