// Command muckd is the engine's process entry point (spec.md §6
// "Persisted state layout", SPEC_FULL.md's boundary/domain-stack
// wiring): it owns the filesystem layout, tuned-parameter loading, and
// the outer scheduler-driven tick loop, and delegates everything else
// to the store/interp/sched/mpi/lock/boundary packages. Styled on the
// teacher's generated CLI (pkgs/engine.mainCLITemplate): a root cobra
// command carrying persistent flags plus one subcommand per operator
// action.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	var dbDir string

	rootCmd := &cobra.Command{
		Use:           "muckd",
		Short:         "Run and administer a muckcore world",
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&dbDir, "data-dir", "data", "directory holding the dump, delta log, and parameter file")

	rootCmd.AddCommand(newRunCmd(&dbDir))
	rootCmd.AddCommand(newDumpCmd(&dbDir))
	rootCmd.AddCommand(newFsckCmd(&dbDir))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "muckd:", err)
		os.Exit(1)
	}
}
