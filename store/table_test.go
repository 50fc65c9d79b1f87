package store

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fuzzball-muck/muckcore/value"
)

func fixedClock(t int64) func() int64 { return func() int64 { return t } }

func TestNewRoomAndMoveMaintainContentsChain(t *testing.T) {
	tbl := NewTable(fixedClock(100))
	root := tbl.NewRoom(value.ObjectID(0), "Town Square")
	wiz, err := tbl.NewPlayer("Wizard", "hash")
	require.NoError(t, err)

	thing, err := tbl.NewThing(wiz.ID, "Rock", root.ID)
	require.NoError(t, err)

	require.Equal(t, root.ID, thing.Location)
	require.Contains(t, tbl.Contents(root.ID), thing.ID)

	other := tbl.NewRoom(wiz.ID, "Annex")
	require.NoError(t, tbl.MoveObject(thing.ID, other.ID))
	require.NotContains(t, tbl.Contents(root.ID), thing.ID)
	require.Contains(t, tbl.Contents(other.ID), thing.ID)
	require.Equal(t, other.ID, tbl.Get(thing.ID).Location)
}

func TestExitsChainIsSeparateFromContents(t *testing.T) {
	tbl := NewTable(fixedClock(0))
	root := tbl.NewRoom(value.ObjectID(0), "Town Square")
	dest := tbl.NewRoom(value.ObjectID(0), "North Room")
	wiz, err := tbl.NewPlayer("Wizard", "hash")
	require.NoError(t, err)

	exit, err := tbl.NewExit(wiz.ID, "north", root.ID, []value.ObjectID{dest.ID})
	require.NoError(t, err)

	require.Contains(t, tbl.Exits(root.ID), exit.ID)
	require.NotContains(t, tbl.Contents(root.ID), exit.ID)
}

func TestNewExitRejectsTooManyDestinations(t *testing.T) {
	tbl := NewTable(fixedClock(0))
	root := tbl.NewRoom(value.ObjectID(0), "Town Square")
	wiz, err := tbl.NewPlayer("Wizard", "hash")
	require.NoError(t, err)

	dests := make([]value.ObjectID, maxLinks+1)
	for i := range dests {
		dests[i] = root.ID
	}
	_, err = tbl.NewExit(wiz.ID, "scatter", root.ID, dests)
	require.Error(t, err)
}

func TestLookupPlayerIsCaseInsensitive(t *testing.T) {
	tbl := NewTable(fixedClock(0))
	wiz, err := tbl.NewPlayer("Wizard", "hash")
	require.NoError(t, err)

	id, ok := tbl.LookupPlayer("  WIZARD  ")
	require.True(t, ok)
	require.Equal(t, wiz.ID, id)
}

func TestRecycleFreesSlotForReuse(t *testing.T) {
	tbl := NewTable(fixedClock(0))
	root := tbl.NewRoom(value.ObjectID(0), "Town Square")
	wiz, err := tbl.NewPlayer("Wizard", "hash")
	require.NoError(t, err)
	thing, err := tbl.NewThing(wiz.ID, "Rock", root.ID)
	require.NoError(t, err)

	require.NoError(t, tbl.Recycle(thing.ID))
	require.Equal(t, KindGarbage, tbl.Get(thing.ID).Kind)
	require.NotContains(t, tbl.Contents(root.ID), thing.ID)

	reused, err := tbl.NewThing(wiz.ID, "Stick", root.ID)
	require.NoError(t, err)
	require.Equal(t, thing.ID, reused.ID, "recycled slot should be reused by the next allocation")
}

func TestMarkDirtySetsObjectChangedFlag(t *testing.T) {
	tbl := NewTable(fixedClock(0))
	root := tbl.NewRoom(value.ObjectID(0), "Town Square")
	tbl.MarkDirty(root.ID)
	require.True(t, tbl.Get(root.ID).Flags.Has(FlagObjectChanged))
}
