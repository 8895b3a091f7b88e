package mmu

// HookPos defines the enum of possible hooking positions.
type HookPos struct {
	Name string
}

// HookPosPageFault triggers when a table walk meets an unmapped entry. The
// item is a Fault.
var HookPosPageFault = &HookPos{Name: "PageFault"}

// HookPosFrameAcquired triggers when a frame is handed out to extend the
// frame tree. The item is an Acquisition.
var HookPosFrameAcquired = &HookPos{Name: "FrameAcquired"}

// HookPosPageEvicted triggers after a data page has been written back and
// detached from the tree. The item is an Eviction.
var HookPosPageEvicted = &HookPos{Name: "PageEvicted"}

// HookCtx holds the information about the site that a hook is triggered.
type HookCtx struct {
	Domain *Comp
	Pos    *HookPos
	Item   interface{}
}

// Hook is a short piece of program that can be invoked by the MMU.
type Hook interface {
	// Func determines what to do if hook is invoked.
	Func(ctx HookCtx)
}

// A Fault describes a missing table entry.
type Fault struct {
	VAddr uint64
	Level uint64
	Table uint64
	Index uint64
}

// AcquisitionKind tells how a frame was obtained.
type AcquisitionKind int

// The ways of acquiring a frame, in the order they are preferred.
const (
	AcquiredEmptyTable AcquisitionKind = iota
	AcquiredUnusedFrame
	AcquiredEvictedFrame
)

func (k AcquisitionKind) String() string {
	switch k {
	case AcquiredEmptyTable:
		return "empty-table"
	case AcquiredUnusedFrame:
		return "unused-frame"
	case AcquiredEvictedFrame:
		return "evicted-frame"
	default:
		return "unknown"
	}
}

// An Acquisition describes a frame attached to the tree during a walk.
type Acquisition struct {
	VAddr uint64
	Level uint64
	Frame uint64
	Kind  AcquisitionKind
}

// An Eviction describes a data page removed from physical memory.
type Eviction struct {
	VAddr      uint64
	Frame      uint64
	PageNumber uint64
	Distance   uint64
}

// AcceptHook registers a hook.
func (c *Comp) AcceptHook(hook Hook) {
	for _, h := range c.hooks {
		if h == hook {
			panic("duplicated hook")
		}
	}

	c.hooks = append(c.hooks, hook)
}

// NumHooks returns the number of hooks registered.
func (c *Comp) NumHooks() int {
	return len(c.hooks)
}

func (c *Comp) invokeHook(pos *HookPos, item interface{}) {
	if len(c.hooks) == 0 {
		return
	}

	ctx := HookCtx{
		Domain: c,
		Pos:    pos,
		Item:   item,
	}

	for _, h := range c.hooks {
		h.Func(ctx)
	}
}
