package sched

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fuzzball-muck/muckcore/value"
)

func TestTickDispatchesInTimeThenFIFOOrder(t *testing.T) {
	q := NewQueue(0, 0)
	require.NoError(t, q.Enqueue(&Entry{Kind: KindDelayedCommand, FireAt: 10, Cmdstr: "b1"}))
	require.NoError(t, q.Enqueue(&Entry{Kind: KindDelayedCommand, FireAt: 5, Cmdstr: "a"}))
	require.NoError(t, q.Enqueue(&Entry{Kind: KindDelayedCommand, FireAt: 10, Cmdstr: "b2"}))

	var order []string
	q.Tick(10, func(e *Entry) { order = append(order, e.Cmdstr) })
	require.Equal(t, []string{"a", "b1", "b2"}, order)
}

func TestTickDoesNotDispatchFutureEntries(t *testing.T) {
	q := NewQueue(0, 0)
	require.NoError(t, q.Enqueue(&Entry{Kind: KindDelayedCommand, FireAt: 100, Cmdstr: "late"}))

	var order []string
	q.Tick(10, func(e *Entry) { order = append(order, e.Cmdstr) })
	require.Empty(t, order)

	due, ok := q.NextDueTime()
	require.True(t, ok)
	require.Equal(t, int64(100), due)
}

func TestTimelessEntriesNeverFireOnTick(t *testing.T) {
	q := NewQueue(0, 0)
	require.NoError(t, q.Enqueue(&Entry{Kind: KindMufReadWait, Timeless: true, Pid: 1}))

	_, ok := q.NextDueTime()
	require.False(t, ok)

	var order []string
	q.Tick(1<<62, func(e *Entry) { order = append(order, "x") })
	require.Empty(t, order)
}

func TestKillByPidPreventsDispatch(t *testing.T) {
	q := NewQueue(0, 0)
	require.NoError(t, q.Enqueue(&Entry{Kind: KindMufDelayed, Pid: 7, FireAt: 1}))
	require.Equal(t, 1, q.Kill(7, value.NONE))

	var fired bool
	q.Tick(100, func(e *Entry) { fired = true })
	require.False(t, fired)
}

func TestKillByOwnerRemovesAllOwnedEntries(t *testing.T) {
	q := NewQueue(0, 0)
	owner := value.ObjectID(5)
	require.NoError(t, q.Enqueue(&Entry{Kind: KindDelayedCommand, Owner: owner, FireAt: 1}))
	require.NoError(t, q.Enqueue(&Entry{Kind: KindDelayedCommand, Owner: owner, FireAt: 2}))
	require.NoError(t, q.Enqueue(&Entry{Kind: KindDelayedCommand, Owner: value.ObjectID(9), FireAt: 1}))

	require.Equal(t, 2, q.Kill(0, owner))

	var fired int
	q.Tick(1000, func(e *Entry) { fired++ })
	require.Equal(t, 1, fired)
}

func TestPerOwnerProcessLimitRejectsEnqueue(t *testing.T) {
	q := NewQueue(0, 1)
	owner := value.ObjectID(3)
	require.NoError(t, q.Enqueue(&Entry{Kind: KindMufDelayed, Owner: owner, FireAt: 1}))
	err := q.Enqueue(&Entry{Kind: KindMufDelayed, Owner: owner, FireAt: 2})
	require.Error(t, err)
	var limitErr *ErrProcessLimitExceeded
	require.ErrorAs(t, err, &limitErr)
	require.False(t, limitErr.Global)
}

func TestGlobalProcessLimitRejectsEnqueue(t *testing.T) {
	q := NewQueue(1, 0)
	require.NoError(t, q.Enqueue(&Entry{Kind: KindMufDelayed, Owner: value.ObjectID(1), FireAt: 1}))
	err := q.Enqueue(&Entry{Kind: KindMufDelayed, Owner: value.ObjectID(2), FireAt: 2})
	require.Error(t, err)
}

func TestDeliverLineSkipsBackgroundedFrame(t *testing.T) {
	q := NewQueue(0, 0)
	owner := value.ObjectID(4)
	require.NoError(t, q.Enqueue(&Entry{Kind: KindMufReadWait, Timeless: true, Owner: owner, Pid: 1, Frame: fakeFrame{background: true}}))
	require.NoError(t, q.Enqueue(&Entry{Kind: KindMufReadWait, Timeless: true, Owner: owner, Pid: 2, Frame: fakeFrame{background: false}}))

	e, ok := q.DeliverLine(owner)
	require.True(t, ok)
	require.Equal(t, Pid(2), e.Pid)
}

type fakeFrame struct{ background bool }

func (f fakeFrame) Background() bool { return f.background }

func TestDeliverEventMatchesFilterAndRemovesWait(t *testing.T) {
	q := NewQueue(0, 0)
	require.NoError(t, q.Enqueue(&Entry{Kind: KindMufEventWait, Timeless: true, Pid: 9, Filters: []string{"TIMER.*"}}))

	e, ok := q.DeliverEvent(9, "TIMER.tick")
	require.True(t, ok)
	require.Equal(t, Pid(9), e.Pid)

	_, stillThere := q.Find(9)
	require.False(t, stillThere)
}

func TestListReturnsOnlyOwnersLiveEntries(t *testing.T) {
	q := NewQueue(0, 0)
	owner := value.ObjectID(2)
	require.NoError(t, q.Enqueue(&Entry{Kind: KindDelayedCommand, Owner: owner, FireAt: 5}))
	require.NoError(t, q.Enqueue(&Entry{Kind: KindDelayedCommand, Owner: value.ObjectID(8), FireAt: 5}))

	list := q.List(owner)
	require.Len(t, list, 1)
	require.Equal(t, owner, list[0].Owner)
}
