// Package mmu implements a memory management unit that keeps a multi-level
// page table inside a small pool of physical frames and pages data out to a
// backing store when the frames run out.
package mmu

import (
	"errors"
	"fmt"
	"log"

	"github.com/sarchlab/pagesim/mem/vm"
)

// ErrAddressOutOfRange is returned when accessing a virtual address beyond
// the virtual memory size.
var ErrAddressOutOfRange = errors.New("virtual address out of range")

// rootFrame always holds the top-level table.
const rootFrame uint64 = 0

// Stats counts what the MMU has done since the last Initialize.
type Stats struct {
	Reads             uint64 `json:"reads"`
	Writes            uint64 `json:"writes"`
	Faults            uint64 `json:"faults"`
	EmptyTablesReused uint64 `json:"empty_tables_reused"`
	UnusedFramesTaken uint64 `json:"unused_frames_taken"`
	Evictions         uint64 `json:"evictions"`
}

// Comp is the MMU component. It is not safe for concurrent use; callers that
// share a Comp between goroutines must serialize all the calls.
type Comp struct {
	name   string
	layout vm.Layout
	memory PhysicalMemory
	hooks  []Hook
	stats  Stats
}

// Name returns the name of the component.
func (c *Comp) Name() string {
	return c.name
}

// Layout returns the address layout of the MMU.
func (c *Comp) Layout() vm.Layout {
	return c.layout
}

// Stats returns a copy of the counters.
func (c *Comp) Stats() Stats {
	return c.stats
}

// Initialize empties the frame tree and drops every evicted page, so that
// every virtual address reads zero afterwards. It must be called before the
// first access.
func (c *Comp) Initialize() error {
	err := c.memory.Reset()
	if err != nil {
		return fmt.Errorf("initializing %s: %w", c.name, err)
	}

	c.stats = Stats{}

	return nil
}

// Read returns the word stored at a virtual address.
func (c *Comp) Read(vAddr uint64) (vm.Word, error) {
	frame, err := c.Translate(vAddr)
	if err != nil {
		return 0, err
	}

	c.stats.Reads++

	pAddr := c.layout.PhysicalAddress(frame, c.layout.Offset(vAddr))

	return c.memory.Read(pAddr), nil
}

// Write stores a word at a virtual address.
func (c *Comp) Write(vAddr uint64, value vm.Word) error {
	frame, err := c.Translate(vAddr)
	if err != nil {
		return err
	}

	c.stats.Writes++

	pAddr := c.layout.PhysicalAddress(frame, c.layout.Offset(vAddr))
	c.memory.Write(pAddr, value)

	return nil
}

// Translate walks the frame tree and returns the frame that holds the page
// of the virtual address. Missing tables and the data page are created on
// the way, and a data page that was paged out is brought back.
func (c *Comp) Translate(vAddr uint64) (uint64, error) {
	if !c.layout.Contains(vAddr) {
		return 0, fmt.Errorf("%w: 0x%x >= 0x%x",
			ErrAddressOutOfRange, vAddr, c.layout.VirtualMemorySize())
	}

	frame := rootFrame
	attached := false

	var entryAddr uint64

	for level := c.layout.TablesDepth(); level > 0; level-- {
		index := c.layout.TableIndex(vAddr, level)
		entryAddr = c.layout.PhysicalAddress(frame, index)

		next := uint64(c.memory.Read(entryAddr))
		attached = false

		if next == 0 {
			var err error

			next, err = c.fault(vAddr, level, frame, index)
			if err != nil {
				return 0, err
			}

			c.memory.Write(entryAddr, vm.Word(next))
			attached = true
		}

		frame = next
	}

	if attached {
		err := c.memory.Restore(frame, c.layout.PageNumber(vAddr))
		if err != nil {
			// Unlink the still empty frame so the next access retries.
			c.memory.Write(entryAddr, 0)
			return 0, err
		}
	}

	return frame, nil
}

func (c *Comp) fault(vAddr, level, table, index uint64) (uint64, error) {
	c.stats.Faults++
	c.invokeHook(HookPosPageFault, Fault{
		VAddr: vAddr,
		Level: level,
		Table: table,
		Index: index,
	})

	frame, kind, err := c.acquireFrame(vAddr, table)
	if err != nil {
		return 0, err
	}

	c.invokeHook(HookPosFrameAcquired, Acquisition{
		VAddr: vAddr,
		Level: level,
		Frame: frame,
		Kind:  kind,
	})

	return frame, nil
}

// Mappings lists every page resident in physical memory, in tree order.
func (c *Comp) Mappings() []vm.Page {
	var pages []vm.Page

	c.collectMappings(rootFrame, 0, 0, &pages)

	return pages
}

func (c *Comp) collectMappings(
	frame, depth, pagePrefix uint64,
	pages *[]vm.Page,
) {
	for i := uint64(0); i < c.layout.PageSize(); i++ {
		entry := uint64(c.memory.Read(c.layout.PhysicalAddress(frame, i)))
		if entry == 0 {
			continue
		}

		pageNumber := pagePrefix<<c.layout.OffsetWidth() + i

		if depth+1 == c.layout.TablesDepth() {
			*pages = append(*pages, vm.MakePage(c.layout, pageNumber, entry))
			continue
		}

		c.collectMappings(entry, depth+1, pageNumber, pages)
	}
}

// Frame returns a copy of the words stored in a physical frame.
func (c *Comp) Frame(index uint64) []vm.Word {
	if index >= c.layout.NumFrames() {
		log.Panicf("frame %d out of range", index)
	}

	words := make([]vm.Word, c.layout.PageSize())
	for i := range words {
		words[i] = c.memory.Read(c.layout.PhysicalAddress(index, uint64(i)))
	}

	return words
}
