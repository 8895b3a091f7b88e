// Package workload generates accesses to drive an MMU and checks that every
// read returns the value that was last written.
package workload

import (
	"fmt"

	"github.com/sarchlab/pagesim/mem/vm"
)

// Accessor is the word-addressed memory that a workload drives.
type Accessor interface {
	Read(vAddr uint64) (vm.Word, error)
	Write(vAddr uint64, value vm.Word) error
}

// ProgressTracker receives the number of accesses completed.
type ProgressTracker interface {
	IncrementFinished(amount uint64)
}

// A MismatchError reports a read that did not return the expected value.
type MismatchError struct {
	VAddr    uint64
	Expected vm.Word
	Actual   vm.Word
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("read 0x%x returned %d, expected %d",
		e.VAddr, e.Actual, e.Expected)
}
