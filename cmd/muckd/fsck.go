package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fuzzball-muck/muckcore/store"
	"github.com/fuzzball-muck/muckcore/value"
)

// newFsckCmd implements `muckd fsck`: load the database and report
// structural invariant violations (spec.md §3.1's location-chain and
// linked-list invariants) without writing anything back.
func newFsckCmd(dataDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "fsck",
		Short: "Check database consistency without modifying it",
		RunE: func(cmd *cobra.Command, args []string) error {
			l := newLayout(*dataDir)
			now := func() int64 { return time.Now().Unix() }

			tbl, err := loadWorld(l, now)
			if err != nil {
				return err
			}

			problems := checkConsistency(tbl)
			for _, p := range problems {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d objects, %d problem(s)\n", tbl.Top(), len(problems))
			if len(problems) > 0 {
				return fmt.Errorf("fsck found %d problem(s)", len(problems))
			}
			return nil
		},
	}
}

// checkConsistency walks every object's location chain, owner
// reference, and contents/exits linked lists, reporting any cycle,
// dangling reference, or mismatched back-pointer it finds (spec.md §3.1
// "No parent loop", "contents/exits as singly-linked lists via
// next_sibling").
func checkConsistency(t *store.Table) []string {
	var problems []string
	for _, o := range t.All() {
		if o.Owner != value.NONE && t.Get(o.Owner) == nil {
			problems = append(problems, fmt.Sprintf("object #%d: owner #%d does not exist", o.ID, o.Owner))
		}
		if o.Location != value.NONE {
			if err := checkLocationChain(t, o.ID); err != nil {
				problems = append(problems, err.Error())
			}
		}
		problems = append(problems, checkSiblingChain(t, o, o.ContentsHead, "contents")...)
		problems = append(problems, checkSiblingChain(t, o, o.ExitsHead, "exits")...)
	}
	return problems
}

func checkLocationChain(t *store.Table, start value.ObjectID) error {
	seen := map[value.ObjectID]bool{}
	cur := start
	for {
		o := t.Get(cur)
		if o == nil {
			return fmt.Errorf("object #%d: location chain references missing object #%d", start, cur)
		}
		if o.Location == value.NONE {
			return nil
		}
		if seen[cur] {
			return fmt.Errorf("object #%d: location chain cycles back to #%d", start, cur)
		}
		seen[cur] = true
		cur = o.Location
	}
}

// checkSiblingChain walks a contents-head or exits-head singly-linked
// list, reporting cycles and missing members; for a contents list it
// also confirms every member's Location agrees with parent (exits-list
// members and owners are not checked here).
func checkSiblingChain(t *store.Table, parent *store.Object, head value.ObjectID, which string) []string {
	var problems []string
	seen := map[value.ObjectID]bool{}
	cur := head
	for cur != value.NONE {
		if seen[cur] {
			problems = append(problems, fmt.Sprintf("object #%d: %s chain cycles at #%d", parent.ID, which, cur))
			return problems
		}
		seen[cur] = true
		child := t.Get(cur)
		if child == nil {
			problems = append(problems, fmt.Sprintf("object #%d: %s chain references missing object #%d", parent.ID, which, cur))
			return problems
		}
		if which == "contents" && child.Location != parent.ID {
			problems = append(problems, fmt.Sprintf("object #%d: contents member #%d has location #%d", parent.ID, cur, child.Location))
		}
		cur = child.NextSibling
	}
	return problems
}
