package mmu

import (
	"fmt"
	"log"
)

// A frameRef points at a frame in the tree through the entry that refers to
// it.
type frameRef struct {
	found      bool
	frame      uint64
	parentAddr uint64
	pageNumber uint64
	distance   uint64
}

// frameSearch collects, in one pass over the tree, everything needed to pick
// a frame.
type frameSearch struct {
	targetPage uint64
	protected  uint64

	maxFrame uint64
	empty    frameRef
	victim   frameRef
}

// acquireFrame returns a frame that no mapping uses. The protected frame is
// the table being extended and is never reported as empty.
//
// An empty table is preferred, then a frame that has never been used. Only
// when neither exists is the data page farthest from the target page evicted.
func (c *Comp) acquireFrame(
	vAddr, protected uint64,
) (uint64, AcquisitionKind, error) {
	s := &frameSearch{
		targetPage: c.layout.PageNumber(vAddr),
		protected:  protected,
	}

	c.visitTable(s, rootFrame, 0, 0, 0)

	switch {
	case s.empty.found:
		c.memory.Write(s.empty.parentAddr, 0)
		c.stats.EmptyTablesReused++

		return s.empty.frame, AcquiredEmptyTable, nil
	case s.maxFrame+1 < c.layout.NumFrames():
		c.stats.UnusedFramesTaken++

		return s.maxFrame + 1, AcquiredUnusedFrame, nil
	case s.victim.found:
		err := c.evict(vAddr, s.victim)
		if err != nil {
			return 0, 0, err
		}

		return s.victim.frame, AcquiredEvictedFrame, nil
	default:
		log.Panicf("no frame can be acquired for address 0x%x", vAddr)
	}

	return 0, 0, nil
}

func (c *Comp) evict(vAddr uint64, victim frameRef) error {
	err := c.memory.Evict(victim.frame, victim.pageNumber)
	if err != nil {
		return fmt.Errorf("evicting page 0x%x from frame %d: %w",
			victim.pageNumber, victim.frame, err)
	}

	c.memory.Write(victim.parentAddr, 0)
	c.memory.ClearFrame(victim.frame)
	c.stats.Evictions++

	c.invokeHook(HookPosPageEvicted, Eviction{
		VAddr:      vAddr,
		Frame:      victim.frame,
		PageNumber: victim.pageNumber,
		Distance:   victim.distance,
	})

	return nil
}

// visitTable walks the subtree of a table frame at the given depth (the root
// is at depth 0). Once an empty table is found, the rest of the tree is
// skipped.
func (c *Comp) visitTable(
	s *frameSearch,
	frame, parentAddr, depth, pagePrefix uint64,
) {
	isEmpty := true

	for i := uint64(0); i < c.layout.PageSize(); i++ {
		entryAddr := c.layout.PhysicalAddress(frame, i)

		entry := uint64(c.memory.Read(entryAddr))
		if entry == 0 {
			continue
		}

		isEmpty = false

		if entry > s.maxFrame {
			s.maxFrame = entry
		}

		pageNumber := pagePrefix<<c.layout.OffsetWidth() + i

		if depth+1 == c.layout.TablesDepth() {
			c.considerVictim(s, entry, entryAddr, pageNumber)
			continue
		}

		c.visitTable(s, entry, entryAddr, depth+1, pageNumber)

		if s.empty.found {
			return
		}
	}

	if isEmpty && frame != rootFrame && frame != s.protected {
		s.empty = frameRef{
			found:      true,
			frame:      frame,
			parentAddr: parentAddr,
		}
	}
}

func (c *Comp) considerVictim(
	s *frameSearch,
	frame, parentAddr, pageNumber uint64,
) {
	distance := c.layout.CyclicDistance(s.targetPage, pageNumber)

	if s.victim.found && distance <= s.victim.distance {
		return
	}

	s.victim = frameRef{
		found:      true,
		frame:      frame,
		parentAddr: parentAddr,
		pageNumber: pageNumber,
		distance:   distance,
	}
}
