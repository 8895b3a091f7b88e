// Package physical provides the physical memory that the MMU builds its frame
// tree in.
package physical

import (
	"fmt"
	"log"

	"github.com/sarchlab/pagesim/mem/swap"
	"github.com/sarchlab/pagesim/mem/vm"
)

// A Memory keeps the content of the physical frames.
//
// Frames are allocated lazily. A frame that has never been written occupies
// no space and reads as zero. Evicted frames are handed to a swap store and
// brought back from it on demand.
type Memory struct {
	layout vm.Layout
	swap   swap.Store
	frames map[uint64][]vm.Word

	numEvicted  uint64
	numRestored uint64
}

// NewMemory creates a physical memory with the frame count and frame size of
// the layout.
func NewMemory(layout vm.Layout, store swap.Store) *Memory {
	return &Memory{
		layout: layout,
		swap:   store,
		frames: make(map[uint64][]vm.Word),
	}
}

// Layout returns the layout the memory was created with.
func (m *Memory) Layout() vm.Layout {
	return m.layout
}

// Swap returns the backing store of the memory.
func (m *Memory) Swap() swap.Store {
	return m.swap
}

func (m *Memory) parseAddress(addr uint64) (frame, offset uint64) {
	if addr >= m.layout.RAMSize() {
		log.Panicf("physical address 0x%x beyond memory size 0x%x",
			addr, m.layout.RAMSize())
	}

	return addr / m.layout.PageSize(), addr % m.layout.PageSize()
}

func (m *Memory) mustBeValidFrame(frame uint64) {
	if frame >= m.layout.NumFrames() {
		log.Panicf("frame %d beyond frame count %d",
			frame, m.layout.NumFrames())
	}
}

func (m *Memory) createOrGetFrame(frame uint64) []vm.Word {
	data, ok := m.frames[frame]
	if !ok {
		data = make([]vm.Word, m.layout.PageSize())
		m.frames[frame] = data
	}

	return data
}

// Read returns the word at a physical address.
func (m *Memory) Read(addr uint64) vm.Word {
	frame, offset := m.parseAddress(addr)

	data, ok := m.frames[frame]
	if !ok {
		return 0
	}

	return data[offset]
}

// Write sets the word at a physical address.
func (m *Memory) Write(addr uint64, value vm.Word) {
	frame, offset := m.parseAddress(addr)

	if value == 0 {
		if _, ok := m.frames[frame]; !ok {
			return
		}
	}

	m.createOrGetFrame(frame)[offset] = value
}

// Frame returns a copy of the content of a frame.
func (m *Memory) Frame(frame uint64) []vm.Word {
	m.mustBeValidFrame(frame)

	out := make([]vm.Word, m.layout.PageSize())
	copy(out, m.frames[frame])

	return out
}

// ClearFrame sets all the words in a frame to zero.
func (m *Memory) ClearFrame(frame uint64) {
	m.mustBeValidFrame(frame)

	delete(m.frames, frame)
}

// Reset zeroes every frame, empties the swap store, and clears the counters.
func (m *Memory) Reset() error {
	m.frames = make(map[uint64][]vm.Word)
	m.numEvicted = 0
	m.numRestored = 0

	err := m.swap.Reset()
	if err != nil {
		return fmt.Errorf("resetting memory: %w", err)
	}

	return nil
}

// Evict saves the content of a frame in the swap store under the page number.
// The frame content is left in place.
func (m *Memory) Evict(frame, pageNumber uint64) error {
	m.mustBeValidFrame(frame)

	err := m.swap.Save(pageNumber, m.Frame(frame))
	if err != nil {
		return fmt.Errorf("evicting frame %d: %w", frame, err)
	}

	m.numEvicted++

	return nil
}

// Restore moves the saved content of a page into a frame. The page is removed
// from the swap store. If the page has never been evicted, the frame is left
// unchanged.
func (m *Memory) Restore(frame, pageNumber uint64) error {
	m.mustBeValidFrame(frame)

	data, found, err := m.swap.Load(pageNumber)
	if err != nil {
		return fmt.Errorf("restoring page 0x%x: %w", pageNumber, err)
	}

	if !found {
		return nil
	}

	if uint64(len(data)) != m.layout.PageSize() {
		return fmt.Errorf("restoring page 0x%x: saved %d words, page has %d",
			pageNumber, len(data), m.layout.PageSize())
	}

	m.frames[frame] = data
	m.numRestored++

	return nil
}

// NumEvicted returns the number of pages written to the swap store.
func (m *Memory) NumEvicted() uint64 {
	return m.numEvicted
}

// NumRestored returns the number of pages brought back from the swap store.
func (m *Memory) NumRestored() uint64 {
	return m.numRestored
}

// NumAllocatedFrames returns the number of frames that hold non-zero data.
func (m *Memory) NumAllocatedFrames() int {
	return len(m.frames)
}
