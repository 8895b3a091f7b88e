package cmd

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sarchlab/pagesim/workload"
)

var randomCmd = &cobra.Command{
	Use:   "random",
	Short: "Issue random reads and writes and verify every read.",
	Run: func(cmd *cobra.Command, _ []string) {
		s := setupSimulation(cmd)

		err := runRandom(cmd, s, os.Stdout)

		var mismatch *workload.MismatchError
		if errors.As(err, &mismatch) {
			log.Fatalf("Verification failed: %v", err)
		} else if err != nil {
			log.Fatalf("Access failed: %v", err)
		}

		s.finish()
	},
}

func runRandom(cmd *cobra.Command, s *simulation, w io.Writer) error {
	numAccess, _ := cmd.Flags().GetInt("num-access")
	seed, _ := cmd.Flags().GetInt64("seed")
	maxAddress, _ := cmd.Flags().GetUint64("max-address")

	vmSize := s.mmu.Layout().VirtualMemorySize()
	if maxAddress == 0 || maxAddress > vmSize {
		maxAddress = vmSize
	}

	b := workload.MakeBuilder().
		WithMaxAddress(maxAddress).
		WithReadLeft(numAccess).
		WithWriteLeft(numAccess).
		WithSeed(seed).
		WithLocker(s.locker())

	bar := s.createProgressBar("Random", uint64(2*numAccess))
	if bar != nil {
		b = b.WithProgress(bar)
	}

	agent := b.Build()
	fmt.Fprintf(w, "seed:                %d\n", agent.Seed)

	err := agent.Run(s.mmu)
	if err != nil {
		return err
	}

	s.completeProgressBar(bar)
	s.printStats(w)

	return nil
}

func addRandomFlags(f *pflag.FlagSet) {
	f.Int("num-access", 10000, "Number of reads and number of writes")
	f.Int64("seed", 0, "Random seed, the current time if 0")
	f.Uint64("max-address", 0,
		"Exclusive bound of the accessed addresses, the whole virtual "+
			"memory if 0")
}

func init() {
	rootCmd.AddCommand(randomCmd)
	addRandomFlags(randomCmd.Flags())
}
