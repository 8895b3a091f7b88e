package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/sarchlab/pagesim/datarecording"
	"github.com/sarchlab/pagesim/mem/trace"
	"github.com/sarchlab/pagesim/mem/vm/mmu"
)

var reportCmd = &cobra.Command{
	Use:   "report <trace-db>",
	Short: "Summarize a database written with --trace-db.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		top, _ := cmd.Flags().GetInt("top")

		if _, err := os.Stat(args[0]); err != nil {
			log.Fatalf("Cannot open trace database: %v", err)
		}

		reader := datarecording.NewReader(args[0])
		defer reader.Close()

		trace.MapTables(reader)

		err := report(cmd.Context(), os.Stdout, reader, top)
		if err != nil {
			log.Fatalf("Cannot read trace database: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().Int("top", 10,
		"Number of farthest evictions to list")
}

func report(
	ctx context.Context,
	w io.Writer,
	reader datarecording.DataReader,
	top int,
) error {
	for _, table := range []string{
		trace.FaultTable,
		trace.AcquisitionTable,
		trace.EvictionTable,
	} {
		_, count, err := reader.Query(ctx, table,
			datarecording.QueryParams{Limit: 1})
		if err != nil {
			return err
		}

		fmt.Fprintf(w, "%-20s %d\n", table+":", count)
	}

	for _, kind := range []mmu.AcquisitionKind{
		mmu.AcquiredEmptyTable,
		mmu.AcquiredUnusedFrame,
		mmu.AcquiredEvictedFrame,
	} {
		_, count, err := reader.Query(ctx, trace.AcquisitionTable,
			datarecording.QueryParams{
				Where: "Kind = ?",
				Args:  []any{kind.String()},
				Limit: 1,
			})
		if err != nil {
			return err
		}

		fmt.Fprintf(w, "  %-18s %d\n", kind.String()+":", count)
	}

	evictions, _, err := reader.Query(ctx, trace.EvictionTable,
		datarecording.QueryParams{
			OrderBy: "Distance DESC, Seq",
			Limit:   top,
		})
	if err != nil {
		return err
	}

	for _, e := range evictions {
		e := e.(*trace.EvictionRecord)
		fmt.Fprintf(w, "#%d %s evicted page 0x%x from frame %d for 0x%x, "+
			"distance %d\n",
			e.Seq, e.Location, e.PageNumber, e.Frame, e.VAddr, e.Distance)
	}

	return nil
}
