package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/sarchlab/pagesim/mem/physical"
	"github.com/sarchlab/pagesim/mem/swap"
	"github.com/sarchlab/pagesim/mem/trace"
	"github.com/sarchlab/pagesim/mem/vm"
	"github.com/sarchlab/pagesim/mem/vm/mmu"
	"github.com/sarchlab/pagesim/workload"
)

var seedFlag = flag.Int64("seed", 0, "Random Seed")
var numAccessFlag = flag.Int("num-access", 100000, "Number of accesses")
var offsetWidthFlag = flag.Uint64("offset-width", 4, "Bits per table level")
var addressWidthFlag = flag.Uint64("address-width", 20,
	"Bits in a virtual address")
var numFramesFlag = flag.Uint64("num-frames", 16, "Number of physical frames")
var maxAddressFlag = flag.Uint64("max-address", 0,
	"Max virtual address, the whole virtual memory if 0")
var sqliteFlag = flag.Bool("sqlite", false, "Page out to a SQLite database")
var traceFileFlag = flag.String("trace", "", "Trace file")

func setupTest() (*mmu.Comp, swap.Store) {
	layout, err := vm.MakeLayoutBuilder().
		WithOffsetWidth(*offsetWidthFlag).
		WithAddressWidth(*addressWidthFlag).
		WithNumFrames(*numFramesFlag).
		Build()
	if err != nil {
		log.Fatal(err)
	}

	var store swap.Store = swap.NewMemoryStore()

	if *sqliteFlag {
		dir, err := os.MkdirTemp("", "virtualmem")
		if err != nil {
			panic(err)
		}

		store, err = swap.NewSQLiteStore(filepath.Join(dir, "swap"))
		if err != nil {
			panic(err)
		}
	}

	m := mmu.MakeBuilder().
		WithLayout(layout).
		WithPhysicalMemory(physical.NewMemory(layout, store)).
		Build("MMU")

	err = m.Initialize()
	if err != nil {
		panic(err)
	}

	if *traceFileFlag != "" {
		traceFile, err := os.Create(*traceFileFlag)
		if err != nil {
			panic(err)
		}

		logger := log.New(traceFile, "", 0)
		m.AcceptHook(trace.NewTracer(logger))
	}

	return m, store
}

func main() {
	flag.Parse()

	seed := *seedFlag
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	fmt.Fprintf(os.Stderr, "Seed %d\n", seed)

	m, store := setupTest()
	defer store.Close()

	maxAddress := *maxAddressFlag
	if maxAddress == 0 || maxAddress > m.Layout().VirtualMemorySize() {
		maxAddress = m.Layout().VirtualMemorySize()
	}

	agent := workload.MakeBuilder().
		WithMaxAddress(maxAddress).
		WithReadLeft(*numAccessFlag).
		WithWriteLeft(*numAccessFlag).
		WithSeed(seed).
		Build()

	err := agent.Run(m)
	if err != nil {
		panic(err)
	}

	if agent.WriteLeft > 0 || agent.ReadLeft > 0 {
		panic("more requests to send")
	}

	if uint64(len(m.Mappings())) >= m.Layout().NumFrames() {
		panic("more pages mapped than frames available")
	}

	for addr, value := range agent.KnownMemValue {
		actual, err := m.Read(addr)
		if err != nil {
			panic(err)
		}

		if actual != value {
			panic(fmt.Sprintf("0x%x holds %d, expected %d", addr, actual, value))
		}
	}

	stats := m.Stats()
	fmt.Fprintf(os.Stderr,
		"Passed: %d reads, %d writes, %d faults, %d evictions\n",
		stats.Reads, stats.Writes, stats.Faults, stats.Evictions)
}
