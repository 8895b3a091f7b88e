// Package trace provides hooks that record what the MMU does while it
// translates addresses.
package trace

import (
	"log"

	"github.com/sarchlab/pagesim/datarecording"
	"github.com/sarchlab/pagesim/mem/vm/mmu"
)

// faultEntry represents a page fault in the database.
type faultEntry struct {
	Seq        uint64 `json:"seq"`
	Location   string `json:"location"`
	VAddr      uint64 `json:"vaddr"`
	Level      uint64 `json:"level"`
	TableFrame uint64 `json:"table_frame"`
	Idx        uint64 `json:"index"`
}

// acquisitionEntry represents a frame attached to the tree in the database.
type acquisitionEntry struct {
	Seq      uint64 `json:"seq"`
	Location string `json:"location"`
	VAddr    uint64 `json:"vaddr"`
	Level    uint64 `json:"level"`
	Frame    uint64 `json:"frame"`
	Kind     string `json:"kind"`
}

// evictionEntry represents an evicted page in the database.
type evictionEntry struct {
	Seq        uint64 `json:"seq"`
	Location   string `json:"location"`
	VAddr      uint64 `json:"vaddr"`
	Frame      uint64 `json:"frame"`
	PageNumber uint64 `json:"page_number"`
	Distance   uint64 `json:"distance"`
}

// Table names used by the DB tracer.
const (
	FaultTable       = "page_faults"
	AcquisitionTable = "frame_acquisitions"
	EvictionTable    = "page_evictions"
)

// A tracer is a hook that writes MMU events as text lines.
type tracer struct {
	logger *log.Logger
	seq    uint64
}

// NewTracer creates a hook that logs every fault, frame acquisition and
// eviction.
func NewTracer(logger *log.Logger) mmu.Hook {
	t := new(tracer)
	t.logger = logger

	return t
}

// Func writes one line per event.
func (t *tracer) Func(ctx mmu.HookCtx) {
	t.seq++

	switch item := ctx.Item.(type) {
	case mmu.Fault:
		t.logger.Printf("%d, %s, fault, 0x%x, level %d, table %d, index %d\n",
			t.seq, ctx.Domain.Name(), item.VAddr,
			item.Level, item.Table, item.Index)
	case mmu.Acquisition:
		t.logger.Printf("%d, %s, acquire, 0x%x, level %d, frame %d, %s\n",
			t.seq, ctx.Domain.Name(), item.VAddr,
			item.Level, item.Frame, item.Kind)
	case mmu.Eviction:
		t.logger.Printf("%d, %s, evict, 0x%x, frame %d, page 0x%x, distance %d\n",
			t.seq, ctx.Domain.Name(), item.VAddr,
			item.Frame, item.PageNumber, item.Distance)
	}
}

// A dbTracer is a hook that records MMU events into a database using the
// data recorder.
type dbTracer struct {
	dataRecorder datarecording.DataRecorder
	seq          uint64
}

// NewDBTracer creates a database-based tracer.
func NewDBTracer(dataRecorder datarecording.DataRecorder) mmu.Hook {
	t := &dbTracer{
		dataRecorder: dataRecorder,
	}

	t.dataRecorder.CreateTable(FaultTable, faultEntry{})
	t.dataRecorder.CreateTable(AcquisitionTable, acquisitionEntry{})
	t.dataRecorder.CreateTable(EvictionTable, evictionEntry{})

	return t
}

// Func inserts one row per event.
func (t *dbTracer) Func(ctx mmu.HookCtx) {
	t.seq++

	switch item := ctx.Item.(type) {
	case mmu.Fault:
		t.dataRecorder.InsertData(FaultTable, faultEntry{
			Seq:        t.seq,
			Location:   ctx.Domain.Name(),
			VAddr:      item.VAddr,
			Level:      item.Level,
			TableFrame: item.Table,
			Idx:        item.Index,
		})
	case mmu.Acquisition:
		t.dataRecorder.InsertData(AcquisitionTable, acquisitionEntry{
			Seq:      t.seq,
			Location: ctx.Domain.Name(),
			VAddr:    item.VAddr,
			Level:    item.Level,
			Frame:    item.Frame,
			Kind:     item.Kind.String(),
		})
	case mmu.Eviction:
		t.dataRecorder.InsertData(EvictionTable, evictionEntry{
			Seq:        t.seq,
			Location:   ctx.Domain.Name(),
			VAddr:      item.VAddr,
			Frame:      item.Frame,
			PageNumber: item.PageNumber,
			Distance:   item.Distance,
		})
	}
}

// MapTables registers the tracer tables with a reader so that the recorded
// events can be queried. The rows come back as *FaultRecord,
// *AcquisitionRecord and *EvictionRecord.
func MapTables(reader datarecording.DataReader) {
	reader.MapTable(FaultTable, FaultRecord{})
	reader.MapTable(AcquisitionTable, AcquisitionRecord{})
	reader.MapTable(EvictionTable, EvictionRecord{})
}

// FaultRecord is a page fault read back from the database.
type FaultRecord faultEntry

// AcquisitionRecord is a frame acquisition read back from the database.
type AcquisitionRecord acquisitionEntry

// EvictionRecord is an eviction read back from the database.
type EvictionRecord evictionEntry
