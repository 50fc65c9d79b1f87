package interp_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fuzzball-muck/muckcore/interp"
	"github.com/fuzzball-muck/muckcore/interp/compile"
	"github.com/fuzzball-muck/muckcore/store"
	"github.com/fuzzball-muck/muckcore/value"
)

// fakeScheduler is a minimal interp.Scheduler recording what the
// suspension-point primitives hand it, mirroring mpi's recordingDispatcher
// test-double style.
type fakeScheduler struct {
	slept      []int
	forked     []int64
	waited     [][]string
	timers     []string
	reads      int
	queued     []string
	nextForkID int64
}

func (s *fakeScheduler) Sleep(f *interp.Frame, seconds int) error {
	s.slept = append(s.slept, seconds)
	return nil
}
func (s *fakeScheduler) Fork(parent *interp.Frame) (int64, error) {
	s.nextForkID++
	s.forked = append(s.forked, s.nextForkID)
	return s.nextForkID, nil
}
func (s *fakeScheduler) Kill(pid int64) bool { return false }
func (s *fakeScheduler) EventWaitFor(f *interp.Frame, filters []string) error {
	s.waited = append(s.waited, filters)
	return nil
}
func (s *fakeScheduler) TimerStart(f *interp.Frame, seconds int, id string) error {
	s.timers = append(s.timers, id)
	return nil
}
func (s *fakeScheduler) TimerStop(pid int64, id string) bool { return true }
func (s *fakeScheduler) Read(f *interp.Frame, wantsBlanks bool) error {
	s.reads++
	return nil
}
func (s *fakeScheduler) QueueCommand(f *interp.Frame, delaySeconds int, prog value.ObjectID, cmdstr string) (int64, error) {
	s.queued = append(s.queued, cmdstr)
	return 99, nil
}
func (s *fakeScheduler) EventSend(pid int64, name string, val value.Value) (bool, error) {
	return false, nil
}

type fakeDispatcher struct{}

func (fakeDispatcher) Tell(speaker, to value.ObjectID, text string) error             { return nil }
func (fakeDispatcher) OTell(speaker, room, exclude value.ObjectID, text string) error { return nil }
func (fakeDispatcher) Force(who value.ObjectID, command string) error                 { return nil }

func newTestFrame(t *testing.T, instrs []compile.Instr) (*interp.Frame, *interp.Registry, *fakeScheduler) {
	t.Helper()
	tbl := store.NewTable(func() int64 { return 0 })
	player, err := tbl.NewPlayer("Tester", "hash")
	require.NoError(t, err)
	prog := &compile.Program{Instrs: instrs}
	f := interp.NewFrame(tbl, prog, player.ID, player.ID, player.ID, 4, interp.ModeForeground)
	sched := &fakeScheduler{}
	reg := interp.NewRegistry(sched, fakeDispatcher{})
	reg.Register("SLEEP-TEST", 0, func(fr *interp.Frame, r *interp.Registry) error {
		if err := r.Sched().(*fakeScheduler).Sleep(fr, 5); err != nil {
			return err
		}
		fr.Suspend = true
		return nil
	})
	return f, reg, sched
}

// A frame that never calls a suspension-point primitive should run to
// completion (spec.md §5: "no other primitive blocks").
func TestRunTerminatesWithoutSuspending(t *testing.T) {
	instrs := []compile.Instr{
		{Op: compile.OpPushValue, Val: value.Int(1)},
		{Op: compile.OpPushValue, Val: value.Int(2)},
	}
	f, reg, _ := newTestFrame(t, instrs)
	res, err := interp.Run(f, reg, 100, 0)
	require.NoError(t, err)
	require.Equal(t, interp.StepTerminated, res)
	require.Equal(t, 2, f.Depth())
}

// A suspension-point primitive must stop Run before the rest of the
// program executes, and must not re-run once resumed past it (spec.md
// §5 "suspension points").
func TestRunSuspendsAtSuspensionPoint(t *testing.T) {
	instrs := []compile.Instr{
		{Op: compile.OpPrimitive, Name: "SLEEP-TEST"},
		{Op: compile.OpPushValue, Val: value.Int(42)},
	}
	f, reg, sched := newTestFrame(t, instrs)

	res, err := interp.Run(f, reg, 100, 0)
	require.NoError(t, err)
	require.Equal(t, interp.StepSuspended, res)
	require.Equal(t, []int{5}, sched.slept)
	require.Equal(t, 0, f.Depth(), "the instruction after the suspension point must not have run yet")
	require.False(t, f.Suspend, "Run must clear Suspend once it reports StepSuspended")

	res, err = interp.Run(f, reg, 100, 0)
	require.NoError(t, err)
	require.Equal(t, interp.StepTerminated, res)
	require.Equal(t, 1, f.Depth())
	require.Equal(t, int32(42), f.Data[0].I)
}

// Clone must give the child its own stacks so mutating one frame after
// the fork point never affects the other (spec.md §4.D.4 FORK).
func TestFrameCloneIsIndependent(t *testing.T) {
	instrs := []compile.Instr{{Op: compile.OpPushValue, Val: value.Int(1)}}
	f, _, _ := newTestFrame(t, instrs)
	require.NoError(t, f.Push(value.Int(7)))

	child := f.Clone()
	require.NoError(t, child.Push(value.Int(8)))
	require.NoError(t, f.Push(value.Int(9)))

	require.Equal(t, 2, f.Depth())
	require.Equal(t, 2, child.Depth())
	require.Equal(t, int32(9), f.Data[1].I)
	require.Equal(t, int32(8), child.Data[1].I)
}

// TRY/CATCH_DETAILED unwinds the data/sys/for stacks to the handler's
// recorded depths rather than leaving partial state behind (spec.md
// §4.D.3).
func TestTryCatchUnwindsToRecordedDepth(t *testing.T) {
	instrs := []compile.Instr{
		{Op: compile.OpPushValue, Val: value.Int(1)},
		{Op: compile.OpTry, Target: 5},
		{Op: compile.OpPushValue, Val: value.Int(2)},
		{Op: compile.OpPrimitive, Name: "FAIL-TEST"},
		{Op: compile.OpCatch},
		{Op: compile.OpPushValue, Val: value.Str("caught")},
	}
	f, reg, _ := newTestFrame(t, instrs)
	reg.Register("FAIL-TEST", 0, func(fr *interp.Frame, r *interp.Registry) error {
		return assertFailure{}
	})

	res, err := interp.Run(f, reg, 100, 0)
	require.NoError(t, err)
	require.Equal(t, interp.StepTerminated, res)
	// depth 1 (original push) was recorded by OpTry; the error string
	// replaces everything pushed after that, then "caught" is pushed.
	require.Equal(t, 3, f.Depth())
	require.Equal(t, int32(1), f.Data[0].I)
	require.Equal(t, value.KindString, f.Data[2].Kind)
	require.Equal(t, "caught", f.Data[2].String())
}

type assertFailure struct{}

func (assertFailure) Error() string { return "boom" }
