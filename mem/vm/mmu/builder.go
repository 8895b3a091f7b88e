package mmu

import (
	"github.com/sarchlab/pagesim/mem/physical"
	"github.com/sarchlab/pagesim/mem/swap"
	"github.com/sarchlab/pagesim/mem/vm"
)

// A Builder can build MMU components.
type Builder struct {
	layout vm.Layout
	memory PhysicalMemory
}

// MakeBuilder creates a new builder with the default layout.
func MakeBuilder() Builder {
	return Builder{
		layout: vm.MakeLayoutBuilder().MustBuild(),
	}
}

// WithLayout sets the address layout and the number of frames.
func (b Builder) WithLayout(layout vm.Layout) Builder {
	b.layout = layout
	return b
}

// WithPhysicalMemory sets the memory that stores the frames. If not set, an
// in-process memory with an in-memory swap store is created.
func (b Builder) WithPhysicalMemory(m PhysicalMemory) Builder {
	b.memory = m
	return b
}

// Build returns a newly created MMU component.
func (b Builder) Build(name string) *Comp {
	c := &Comp{
		name:   name,
		layout: b.layout,
	}

	b.createPhysicalMemory(c)

	return c
}

func (b Builder) createPhysicalMemory(c *Comp) {
	if b.memory == nil {
		c.memory = physical.NewMemory(b.layout, swap.NewMemoryStore())
		return
	}

	b.validateMemoryLayout()
	c.memory = b.memory
}

// validateMemoryLayout checks that the memory, if it can tell, has the same
// geometry as the MMU.
func (b Builder) validateMemoryLayout() {
	g, ok := b.memory.(layoutGetter)
	if !ok {
		return
	}

	l := g.Layout()
	if l.PageSize() != b.layout.PageSize() ||
		l.NumFrames() != b.layout.NumFrames() {
		panic("physical memory layout does not match MMU layout")
	}
}
