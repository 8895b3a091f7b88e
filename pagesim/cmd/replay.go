package cmd

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/sarchlab/pagesim/workload"
)

var replayCmd = &cobra.Command{
	Use:   "replay <trace-file>",
	Short: "Apply the reads and writes listed in a trace file.",
	Long: "Apply the reads and writes listed in a trace file. Each line is " +
		"`W <addr> <value>` or `R <addr> [<expected>]`; lines starting " +
		"with # are comments.",
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ops, err := loadTrace(args[0])
		if err != nil {
			log.Fatalf("Cannot load trace: %v", err)
		}

		s := setupSimulation(cmd)

		err = runReplay(s, ops, os.Stdout)
		if err != nil {
			log.Fatalf("Replay failed: %v", err)
		}

		s.finish()
	},
}

func loadTrace(path string) ([]workload.Op, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return workload.ParseTrace(f)
}

func runReplay(s *simulation, ops []workload.Op, w io.Writer) error {
	res, err := workload.Replay(ops, s.accessor())
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "trace reads:         %d\n", res.Reads)
	fmt.Fprintf(w, "trace writes:        %d\n", res.Writes)
	fmt.Fprintf(w, "verified reads:      %d\n", res.Verified)
	s.printStats(w)

	return nil
}

func init() {
	rootCmd.AddCommand(replayCmd)
}
