package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/fuzzball-muck/muckcore/store"
)

// newDumpCmd implements `muckd dump`: load the canonical input plus any
// pending delta log, write a fresh full dump, and rotate the previous
// input to .old the way spec.md §6's layout describes (".out" is the
// dump in progress, promoted to ".db" once written; the prior ".db"
// becomes ".old").
func newDumpCmd(dataDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "Load the database and delta log, then write a fresh full dump",
		RunE: func(cmd *cobra.Command, args []string) error {
			l := newLayout(*dataDir)
			now := func() int64 { return time.Now().Unix() }

			tbl, err := loadWorld(l, now)
			if err != nil {
				return err
			}

			out, err := os.Create(l.output())
			if err != nil {
				return fmt.Errorf("creating dump output: %w", err)
			}
			defer out.Close()
			if err := store.WriteFullDump(tbl, out); err != nil {
				return fmt.Errorf("writing dump: %w", err)
			}

			if err := rotateDump(l); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d objects to %s\n", len(tbl.All()), l.input())
			return nil
		},
	}
}

// loadWorld reads the canonical input dump, if present, and replays any
// delta log entries recorded since (spec.md §4.B "Persistence model":
// full dump plus delta log recovery).
func loadWorld(l layout, now func() int64) (*store.Table, error) {
	f, err := os.Open(l.input())
	if os.IsNotExist(err) {
		return store.NewTable(now), nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", l.input(), err)
	}
	defer f.Close()

	tbl, err := store.ReadFullDump(f, now)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", l.input(), err)
	}

	if deltas, err := os.Open(l.deltaLog()); err == nil {
		defer deltas.Close()
		if _, err := store.ApplyDeltaLog(tbl, deltas); err != nil {
			return nil, fmt.Errorf("applying delta log: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("opening delta log: %w", err)
	}
	return tbl, nil
}

// rotateDump promotes the just-written .out to .db, keeping the
// previous .db as .old (one generation, per spec.md §6), and truncates
// the now-applied delta log.
func rotateDump(l layout) error {
	if _, err := os.Stat(l.input()); err == nil {
		if err := os.Rename(l.input(), l.previous()); err != nil {
			return fmt.Errorf("rotating previous dump: %w", err)
		}
	}
	if err := os.Rename(l.output(), l.input()); err != nil {
		return fmt.Errorf("promoting dump output: %w", err)
	}
	if err := os.Remove(l.deltaLog()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("truncating delta log: %w", err)
	}
	return nil
}
