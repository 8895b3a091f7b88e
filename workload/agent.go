package workload

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/sarchlab/pagesim/mem/vm"
)

// An Agent issues random reads and writes and remembers every value it has
// written so that it can verify the reads.
type Agent struct {
	MaxAddress uint64
	Seed       int64

	WriteLeft     int
	ReadLeft      int
	KnownMemValue map[uint64]vm.Word

	written  []uint64
	rand     *rand.Rand
	progress ProgressTracker
	locker   sync.Locker
}

func newAgent(seed int64) *Agent {
	return &Agent{
		Seed:          seed,
		KnownMemValue: make(map[uint64]vm.Word),
		rand:          rand.New(rand.NewSource(seed)),
	}
}

// Run issues all the remaining accesses. It stops at the first access that
// fails or at the first read that returns an unexpected value.
func (a *Agent) Run(acc Accessor) error {
	for a.ReadLeft > 0 || a.WriteLeft > 0 {
		var err error

		if a.shouldRead() {
			err = a.doRead(acc)
		} else {
			err = a.doWrite(acc)
		}

		if err != nil {
			return err
		}

		if a.progress != nil {
			a.progress.IncrementFinished(1)
		}
	}

	return nil
}

func (a *Agent) shouldRead() bool {
	if a.ReadLeft == 0 {
		return false
	}

	if a.WriteLeft == 0 {
		return true
	}

	return a.rand.Float64() > 0.5
}

// randomReadAddress mostly revisits written addresses, which are the ones
// that can be paged out and back in.
func (a *Agent) randomReadAddress() uint64 {
	if len(a.written) > 0 && a.rand.Float64() < 0.75 {
		return a.written[a.rand.Intn(len(a.written))]
	}

	return a.rand.Uint64() % a.MaxAddress
}

func (a *Agent) doRead(acc Accessor) error {
	address := a.randomReadAddress()

	a.lock()
	value, err := acc.Read(address)
	a.unlock()

	if err != nil {
		return fmt.Errorf("reading 0x%x: %w", address, err)
	}

	a.ReadLeft--

	expected := a.KnownMemValue[address]
	if value != expected {
		return &MismatchError{
			VAddr:    address,
			Expected: expected,
			Actual:   value,
		}
	}

	return nil
}

func (a *Agent) doWrite(acc Accessor) error {
	address := a.rand.Uint64() % a.MaxAddress
	data := vm.Word(a.rand.Int63())

	a.lock()
	err := acc.Write(address, data)
	a.unlock()

	if err != nil {
		return fmt.Errorf("writing 0x%x: %w", address, err)
	}

	a.WriteLeft--
	a.addKnownValue(address, data)

	return nil
}

func (a *Agent) addKnownValue(address uint64, data vm.Word) {
	if _, exist := a.KnownMemValue[address]; !exist {
		a.written = append(a.written, address)
	}

	a.KnownMemValue[address] = data
}

func (a *Agent) lock() {
	if a.locker != nil {
		a.locker.Lock()
	}
}

func (a *Agent) unlock() {
	if a.locker != nil {
		a.locker.Unlock()
	}
}
