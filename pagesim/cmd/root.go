// Package cmd provides the command-line interface of pagesim.
package cmd

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pagesim",
	Short: "pagesim runs memory accesses through a simulated paging MMU.",
	Long: `pagesim runs memory accesses through a simulated MMU that keeps ` +
		`its page table in a small pool of physical frames and pages data ` +
		`out when the frames run out. Flags can also be set with PAGESIM_* ` +
		`environment variables or a .env file.`,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return loadEnv(cmd.Flags())
	},
}

// envPrefix is prepended to the upper-cased flag name to find the
// environment variable of a flag.
const envPrefix = "PAGESIM_"

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	addSimulationFlags(rootCmd.PersistentFlags())
}

// addSimulationFlags defines the flags that setupSimulation reads.
func addSimulationFlags(f *pflag.FlagSet) {
	f.Uint64("offset-width", 4, "Bits per table level and page offset")
	f.Uint64("address-width", 20, "Bits in a virtual address")
	f.Uint64("tables-depth", 0,
		"Number of table levels, derived from the widths if 0")
	f.Uint64("num-frames", 64, "Number of physical frames")
	f.String("swap", "memory", "Where evicted pages go, memory or sqlite")
	f.String("swap-db", "",
		"SQLite swap database, <swap-db>.sqlite3, implies --swap=sqlite")
	f.String("trace-db", "",
		"Record faults, frame acquisitions and evictions to "+
			"<trace-db>.sqlite3")
	f.Bool("log-trace", false, "Print every MMU event to stderr")
	f.Bool("monitor", false, "Serve the MMU state over HTTP")
	f.Int("monitor-port", 0, "Port of the monitor, random if 0")
	f.Bool("open-browser", false, "Open the monitor in a browser")
}

// loadEnv reads an optional .env file and fills the flags that are not set
// on the command line from PAGESIM_* variables.
func loadEnv(flags *pflag.FlagSet) error {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	var setErr error

	flags.VisitAll(func(f *pflag.Flag) {
		if f.Changed || setErr != nil {
			return
		}

		name := envPrefix +
			strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))

		value, ok := os.LookupEnv(name)
		if !ok {
			return
		}

		setErr = flags.Set(f.Name, value)
	})

	return setErr
}
