package cmd

import (
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/pagesim/datarecording"
	"github.com/sarchlab/pagesim/mem/physical"
	"github.com/sarchlab/pagesim/mem/swap"
	"github.com/sarchlab/pagesim/mem/trace"
	"github.com/sarchlab/pagesim/mem/vm"
	"github.com/sarchlab/pagesim/mem/vm/mmu"
	"github.com/sarchlab/pagesim/monitoring"
)

// A simulation is an MMU together with everything the flags attach to it.
type simulation struct {
	mmu      *mmu.Comp
	store    swap.Store
	recorder datarecording.DataRecorder
	monitor  *monitoring.Monitor
}

func layoutFromFlags(cmd *cobra.Command) (vm.Layout, error) {
	f := cmd.Flags()

	offsetWidth, _ := f.GetUint64("offset-width")
	addressWidth, _ := f.GetUint64("address-width")
	tablesDepth, _ := f.GetUint64("tables-depth")
	numFrames, _ := f.GetUint64("num-frames")

	return vm.MakeLayoutBuilder().
		WithOffsetWidth(offsetWidth).
		WithAddressWidth(addressWidth).
		WithTablesDepth(tablesDepth).
		WithNumFrames(numFrames).
		Build()
}

func swapFromFlags(cmd *cobra.Command) (swap.Store, error) {
	kind, _ := cmd.Flags().GetString("swap")
	path, _ := cmd.Flags().GetString("swap-db")

	if path != "" {
		kind = "sqlite"
	}

	switch kind {
	case "memory":
		return swap.NewMemoryStore(), nil
	case "sqlite":
		return swap.NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unknown swap %q", kind)
	}
}

func setupSimulation(cmd *cobra.Command) *simulation {
	layout, err := layoutFromFlags(cmd)
	if err != nil {
		log.Fatalf("Invalid layout: %v", err)
	}

	store, err := swapFromFlags(cmd)
	if err != nil {
		log.Fatalf("Cannot create swap: %v", err)
	}

	s := &simulation{store: store}
	s.mmu = mmu.MakeBuilder().
		WithLayout(layout).
		WithPhysicalMemory(physical.NewMemory(layout, store)).
		Build("MMU")

	err = s.mmu.Initialize()
	if err != nil {
		log.Fatalf("Cannot initialize MMU: %v", err)
	}

	s.attachTracers(cmd)
	s.attachMonitor(cmd)

	fmt.Fprintf(os.Stderr, "Layout: %s\n", layout)

	return s
}

func (s *simulation) attachTracers(cmd *cobra.Command) {
	if logTrace, _ := cmd.Flags().GetBool("log-trace"); logTrace {
		s.mmu.AcceptHook(trace.NewTracer(log.New(os.Stderr, "", 0)))
	}

	if !cmd.Flags().Changed("trace-db") {
		return
	}

	path, _ := cmd.Flags().GetString("trace-db")
	s.recorder = datarecording.New(path)
	s.mmu.AcceptHook(trace.NewDBTracer(s.recorder))
}

func (s *simulation) attachMonitor(cmd *cobra.Command) {
	if enabled, _ := cmd.Flags().GetBool("monitor"); !enabled {
		return
	}

	port, _ := cmd.Flags().GetInt("monitor-port")
	open, _ := cmd.Flags().GetBool("open-browser")

	s.monitor = monitoring.NewMonitor().
		WithPortNumber(port).
		WithOpenBrowser(open)
	s.monitor.RegisterComponent(s.mmu)
	s.monitor.StartServer()
}

// locker returns the lock to hold while accessing the MMU, or nil if nothing
// else touches it.
func (s *simulation) locker() sync.Locker {
	if s.monitor == nil {
		return nil
	}

	return s.monitor.Locker()
}

func (s *simulation) accessor() lockedAccessor {
	return lockedAccessor{comp: s.mmu, locker: s.locker()}
}

func (s *simulation) createProgressBar(
	name string,
	total uint64,
) *monitoring.ProgressBar {
	if s.monitor == nil {
		return nil
	}

	return s.monitor.CreateProgressBar(name, total)
}

func (s *simulation) completeProgressBar(bar *monitoring.ProgressBar) {
	if s.monitor != nil {
		s.monitor.CompleteProgressBar(bar)
	}
}

func (s *simulation) printStats(w io.Writer) {
	stats := s.mmu.Stats()

	fmt.Fprintf(w, "reads:               %d\n", stats.Reads)
	fmt.Fprintf(w, "writes:              %d\n", stats.Writes)
	fmt.Fprintf(w, "faults:              %d\n", stats.Faults)
	fmt.Fprintf(w, "empty tables reused: %d\n", stats.EmptyTablesReused)
	fmt.Fprintf(w, "unused frames taken: %d\n", stats.UnusedFramesTaken)
	fmt.Fprintf(w, "evictions:           %d\n", stats.Evictions)
	fmt.Fprintf(w, "resident pages:      %d\n", len(s.mmu.Mappings()))
}

// finish keeps the monitor alive until interrupted, then exits through the
// exit handlers that flush and close the databases.
func (s *simulation) finish() {
	if s.monitor != nil {
		fmt.Fprintln(os.Stderr, "Monitor is still running, press Ctrl+C to exit.")

		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt)
		<-c
	}

	atexit.Exit(0)
}

type lockedAccessor struct {
	comp   *mmu.Comp
	locker sync.Locker
}

func (a lockedAccessor) Read(vAddr uint64) (vm.Word, error) {
	if a.locker != nil {
		a.locker.Lock()
		defer a.locker.Unlock()
	}

	return a.comp.Read(vAddr)
}

func (a lockedAccessor) Write(vAddr uint64, value vm.Word) error {
	if a.locker != nil {
		a.locker.Lock()
		defer a.locker.Unlock()
	}

	return a.comp.Write(vAddr, value)
}
