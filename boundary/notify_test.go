package boundary

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fuzzball-muck/muckcore/store"
	"github.com/fuzzball-muck/muckcore/value"
)

type recordingSink struct {
	sent []string
}

func (s *recordingSink) Send(descr int, line string) { s.sent = append(s.sent, line) }

func TestTellSkipsIgnoredSpeaker(t *testing.T) {
	tbl := store.NewTable(func() int64 { return 0 })
	room := tbl.NewRoom(value.ObjectID(0), "Town Square")
	annoyer, err := tbl.NewPlayer("Annoyer", "hash")
	require.NoError(t, err)
	victim, err := tbl.NewPlayer("Victim", "hash")
	require.NoError(t, err)

	descs := NewTable()
	descs.Connect(1, "localhost", 0)
	descs.SetUser(1, victim.ID)

	sink := &recordingSink{}
	n := NewNotifier(tbl, descs, sink)
	n.SetIgnore(victim.ID, annoyer.ID, true)

	require.NoError(t, n.Tell(annoyer.ID, victim.ID, "hi"))
	require.Empty(t, sink.sent, "victim ignores annoyer, so the line must not be delivered")

	require.NoError(t, n.Tell(victim.ID, victim.ID, "hi"))
	require.Equal(t, []string{"hi"}, sink.sent, "a speaker never ignores themself")

	_ = room
}

func TestOTellSkipsIgnoredSpeakerPerListener(t *testing.T) {
	tbl := store.NewTable(func() int64 { return 0 })
	room := tbl.NewRoom(value.ObjectID(0), "Town Square")
	annoyer, err := tbl.NewPlayer("Annoyer", "hash")
	require.NoError(t, err)
	require.NoError(t, tbl.MoveObject(annoyer.ID, room.ID))
	victim, err := tbl.NewPlayer("Victim", "hash")
	require.NoError(t, err)
	require.NoError(t, tbl.MoveObject(victim.ID, room.ID))
	bystander, err := tbl.NewPlayer("Bystander", "hash")
	require.NoError(t, err)
	require.NoError(t, tbl.MoveObject(bystander.ID, room.ID))

	descs := NewTable()
	descs.Connect(1, "localhost", 0)
	descs.SetUser(1, victim.ID)
	descs.Connect(2, "localhost", 0)
	descs.SetUser(2, bystander.ID)

	sink := &recordingSink{}
	n := NewNotifier(tbl, descs, sink)
	n.SetIgnore(victim.ID, annoyer.ID, true)

	require.NoError(t, n.OTell(annoyer.ID, room.ID, annoyer.ID, "hi all"))
	require.Equal(t, []string{"hi all"}, sink.sent, "only the bystander should hear it; victim ignores annoyer")
}
