package vm

import (
	"errors"
	"fmt"
)

// Word is the unit of storage. Table frames store child frame indices as
// words, data frames store caller values.
type Word int64

const maxAddressWidth = 48

// A Layout describes how virtual addresses are split into table indices and
// a page offset, and how large the physical frame pool is. A Layout is
// immutable; it can only be created with a LayoutBuilder.
type Layout struct {
	offsetWidth  uint64
	tablesDepth  uint64
	addressWidth uint64
	numFrames    uint64
}

// OffsetWidth returns the number of address bits consumed by each table level
// and by the offset within a page.
func (l Layout) OffsetWidth() uint64 { return l.offsetWidth }

// TablesDepth returns the number of table levels above the data pages.
func (l Layout) TablesDepth() uint64 { return l.tablesDepth }

// AddressWidth returns the number of bits in a virtual address.
func (l Layout) AddressWidth() uint64 { return l.addressWidth }

// NumFrames returns the number of physical frames.
func (l Layout) NumFrames() uint64 { return l.numFrames }

// PageSize returns the number of words in a page, which is also the number of
// entries in a table frame.
func (l Layout) PageSize() uint64 { return 1 << l.offsetWidth }

// VirtualMemorySize returns the number of addressable virtual words.
func (l Layout) VirtualMemorySize() uint64 { return 1 << l.addressWidth }

// NumPages returns the number of virtual pages.
func (l Layout) NumPages() uint64 {
	return l.VirtualMemorySize() >> l.offsetWidth
}

// RAMSize returns the number of words in physical memory.
func (l Layout) RAMSize() uint64 { return l.numFrames * l.PageSize() }

// Contains tells if the virtual address can be translated.
func (l Layout) Contains(vAddr uint64) bool {
	return vAddr < l.VirtualMemorySize()
}

// Offset returns the position of the address within its page.
func (l Layout) Offset(vAddr uint64) uint64 {
	return vAddr & (l.PageSize() - 1)
}

// TableIndex returns the entry to follow in the table at the given level.
// Levels count down from TablesDepth (the root table) to 1 (the table that
// points at data frames).
func (l Layout) TableIndex(vAddr uint64, level uint64) uint64 {
	if level == 0 || level > l.tablesDepth {
		panic(fmt.Sprintf("table level %d out of range", level))
	}

	return (vAddr >> (level * l.offsetWidth)) & (l.PageSize() - 1)
}

// PageNumber returns the virtual page that contains the address.
func (l Layout) PageNumber(vAddr uint64) uint64 {
	return vAddr >> l.offsetWidth
}

// PageAddress returns the first virtual address of a page.
func (l Layout) PageAddress(pageNumber uint64) uint64 {
	return pageNumber << l.offsetWidth
}

// PhysicalAddress returns the word address of an entry in a frame.
func (l Layout) PhysicalAddress(frame, offset uint64) uint64 {
	return frame*l.PageSize() + offset
}

// CyclicDistance returns how far two pages are from each other on a ring of
// NumPages pages.
func (l Layout) CyclicDistance(page1, page2 uint64) uint64 {
	dist := page1 - page2
	if page2 > page1 {
		dist = page2 - page1
	}

	wrapped := l.NumPages() - dist
	if wrapped < dist {
		return wrapped
	}

	return dist
}

// String summarizes the layout.
func (l Layout) String() string {
	return fmt.Sprintf(
		"offset %d bits, %d table levels, %d-bit addresses, %d frames",
		l.offsetWidth, l.tablesDepth, l.addressWidth, l.numFrames)
}

// LayoutBuilder creates Layouts.
type LayoutBuilder struct {
	offsetWidth  uint64
	tablesDepth  uint64
	addressWidth uint64
	numFrames    uint64
}

// MakeLayoutBuilder returns a builder with the default configuration: 16-word
// pages, 20-bit virtual addresses and 64 frames.
func MakeLayoutBuilder() LayoutBuilder {
	return LayoutBuilder{
		offsetWidth:  4,
		addressWidth: 20,
		numFrames:    64,
	}
}

// WithOffsetWidth sets the number of bits per table level and page offset.
func (b LayoutBuilder) WithOffsetWidth(w uint64) LayoutBuilder {
	b.offsetWidth = w
	return b
}

// WithTablesDepth sets the number of table levels. If not set, the depth is
// the smallest number of levels that covers the whole address.
func (b LayoutBuilder) WithTablesDepth(d uint64) LayoutBuilder {
	b.tablesDepth = d
	return b
}

// WithAddressWidth sets the number of bits in a virtual address.
func (b LayoutBuilder) WithAddressWidth(w uint64) LayoutBuilder {
	b.addressWidth = w
	return b
}

// WithNumFrames sets the number of physical frames.
func (b LayoutBuilder) WithNumFrames(n uint64) LayoutBuilder {
	b.numFrames = n
	return b
}

// Build validates the configuration and returns the Layout.
func (b LayoutBuilder) Build() (Layout, error) {
	l := Layout{
		offsetWidth:  b.offsetWidth,
		tablesDepth:  b.tablesDepth,
		addressWidth: b.addressWidth,
		numFrames:    b.numFrames,
	}

	if l.offsetWidth == 0 || l.offsetWidth > 16 {
		return Layout{}, fmt.Errorf(
			"offset width %d must be between 1 and 16", l.offsetWidth)
	}

	if l.addressWidth > maxAddressWidth {
		return Layout{}, fmt.Errorf(
			"address width %d exceeds %d bits", l.addressWidth, maxAddressWidth)
	}

	if l.addressWidth <= l.offsetWidth {
		return Layout{}, errors.New(
			"address width must be larger than the offset width")
	}

	if l.tablesDepth == 0 {
		l.tablesDepth =
			(l.addressWidth - l.offsetWidth + l.offsetWidth - 1) / l.offsetWidth
	}

	if l.offsetWidth*l.tablesDepth >= l.addressWidth ||
		l.offsetWidth*(l.tablesDepth+1) < l.addressWidth {
		return Layout{}, fmt.Errorf(
			"%d table levels of %d bits cannot decode %d-bit addresses",
			l.tablesDepth, l.offsetWidth, l.addressWidth)
	}

	if l.numFrames <= l.tablesDepth {
		return Layout{}, fmt.Errorf(
			"%d frames cannot hold the root and a %d-level path",
			l.numFrames, l.tablesDepth)
	}

	if l.numFrames > 1<<maxAddressWidth/l.PageSize() {
		return Layout{}, fmt.Errorf("too many frames: %d", l.numFrames)
	}

	return l, nil
}

// MustBuild is like Build but panics on an invalid configuration.
func (b LayoutBuilder) MustBuild() Layout {
	l, err := b.Build()
	if err != nil {
		panic(err)
	}

	return l
}
