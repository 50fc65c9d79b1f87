package store

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fuzzball-muck/muckcore/lock"
	"github.com/fuzzball-muck/muckcore/value"
)

func TestCandidatePropStringWalksEnvironmentChain(t *testing.T) {
	tbl := NewTable(fixedClock(0))
	root := tbl.NewRoom(value.ObjectID(0), "Town Square")
	root.Props.SetProp("/color", value.Str("red"), 0)
	wiz, err := tbl.NewPlayer("Wizard", "hash")
	require.NoError(t, err)
	thing, err := tbl.NewThing(wiz.ID, "Rock", root.ID)
	require.NoError(t, err)

	cand := tbl.AsCandidate(thing.ID)
	_, ok := cand.PropString("/color", false)
	require.False(t, ok, "without envcheck, the thing has no /color of its own")

	got, ok := cand.PropString("/color", true)
	require.True(t, ok)
	require.Equal(t, "red", got)
}

func TestCandidateMatchesReflistForPlayerExitAndOwner(t *testing.T) {
	tbl := NewTable(fixedClock(0))
	root := tbl.NewRoom(value.ObjectID(0), "Town Square")
	dest := tbl.NewRoom(value.ObjectID(0), "North Room")
	wiz, err := tbl.NewPlayer("Wizard", "hash")
	require.NoError(t, err)
	thing, err := tbl.NewThing(dest.ID, "Rock", wiz.ID)
	require.NoError(t, err)
	exit, err := tbl.NewExit(wiz.ID, "north", root.ID, []value.ObjectID{thing.ID})
	require.NoError(t, err)

	require.True(t, tbl.AsCandidate(thing.ID).MatchesReflist(wiz.ID), "player-contents leaf")
	require.True(t, tbl.AsCandidate(thing.ID).MatchesReflist(exit.ID), "exit-destination leaf")
	require.True(t, tbl.AsCandidate(thing.ID).MatchesReflist(dest.ID), "owner leaf")
}

func TestParseAndEvaluateLockAgainstLiveObjects(t *testing.T) {
	tbl := NewTable(fixedClock(0))
	root := tbl.NewRoom(value.ObjectID(0), "Town Square")
	wiz, err := tbl.NewPlayer("Wizard", "hash")
	require.NoError(t, err)
	thing, err := tbl.NewThing(wiz.ID, "Rock", root.ID)
	require.NoError(t, err)
	thing.Props.SetProp("/color", value.Str("red"), 0)

	resolver := &EnvResolver{T: tbl, MePlayer: wiz.ID, HereRoom: root.ID}
	expr, err := lock.Parse("color:red", resolver)
	require.NoError(t, err)
	require.True(t, lock.Evaluate(expr, tbl.AsCandidate(thing.ID), lock.NoEnvCheck))

	blocked, err := lock.Parse("color:blue", resolver)
	require.NoError(t, err)
	require.False(t, lock.Evaluate(blocked, tbl.AsCandidate(thing.ID), lock.NoEnvCheck))
}
