// Package vm defines the address layout and the records shared by the
// virtual memory components.
package vm

// A Page records where a virtual page currently lives in physical memory.
type Page struct {
	PageNumber uint64 `json:"page_number"`
	VAddr      uint64 `json:"vaddr"`
	Frame      uint64 `json:"frame"`
	PAddr      uint64 `json:"paddr"`
}

// MakePage creates the record for a page resident in the given frame.
func MakePage(l Layout, pageNumber, frame uint64) Page {
	return Page{
		PageNumber: pageNumber,
		VAddr:      l.PageAddress(pageNumber),
		Frame:      frame,
		PAddr:      l.PhysicalAddress(frame, 0),
	}
}
