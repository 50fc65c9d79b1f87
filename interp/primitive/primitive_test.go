package primitive

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fuzzball-muck/muckcore/interp"
	"github.com/fuzzball-muck/muckcore/interp/compile"
	"github.com/fuzzball-muck/muckcore/mpi"
	"github.com/fuzzball-muck/muckcore/store"
	"github.com/fuzzball-muck/muckcore/value"
)

type nopScheduler struct{}

func (nopScheduler) Sleep(f *interp.Frame, seconds int) error                 { return nil }
func (nopScheduler) Fork(parent *interp.Frame) (int64, error)                 { return 1, nil }
func (nopScheduler) Kill(pid int64) bool                                      { return false }
func (nopScheduler) EventWaitFor(f *interp.Frame, filters []string) error     { return nil }
func (nopScheduler) TimerStart(f *interp.Frame, seconds int, id string) error { return nil }
func (nopScheduler) TimerStop(pid int64, id string) bool                     { return true }
func (nopScheduler) Read(f *interp.Frame, wantsBlanks bool) error             { return nil }
func (nopScheduler) QueueCommand(f *interp.Frame, delaySeconds int, prog value.ObjectID, cmdstr string) (int64, error) {
	return 1, nil
}
func (nopScheduler) EventSend(pid int64, name string, val value.Value) (bool, error) { return false, nil }

type recordingDispatcher struct {
	told   []string
	otold  []string
	forced []string
}

func (d *recordingDispatcher) Tell(speaker, to value.ObjectID, text string) error {
	d.told = append(d.told, text)
	return nil
}
func (d *recordingDispatcher) OTell(speaker, room, exclude value.ObjectID, text string) error {
	d.otold = append(d.otold, text)
	return nil
}
func (d *recordingDispatcher) Force(who value.ObjectID, command string) error {
	d.forced = append(d.forced, command)
	return nil
}

// newHarness builds a table with a wizard player in a room plus a
// registry carrying every primitive this package implements, for tests
// that drive primitives through the real OpPrimitive dispatch path
// rather than calling the unexported handlers directly.
func newHarness(t *testing.T) (*store.Table, *interp.Registry, *store.Object, *store.Object) {
	t.Helper()
	tbl := store.NewTable(func() int64 { return 0 })
	room := tbl.NewRoom(value.ObjectID(0), "Town Square")
	wiz, err := tbl.NewPlayer("Wizard", "hash")
	require.NoError(t, err)
	require.NoError(t, tbl.MoveObject(wiz.ID, room.ID))
	reg := interp.NewRegistry(nopScheduler{}, &recordingDispatcher{})
	Register(reg)
	return tbl, reg, room, wiz
}

// runProgram runs a frame of instrs to completion at wizard trust (4)
// and returns the resulting data stack.
func runProgram(t *testing.T, tbl *store.Table, reg *interp.Registry, who value.ObjectID, instrs []compile.Instr) []value.Value {
	t.Helper()
	prog := &compile.Program{Instrs: instrs}
	f := interp.NewFrame(tbl, prog, who, who, who, 4, interp.ModeForeground)
	res, err := interp.Run(f, reg, 1000, 0)
	require.NoError(t, err)
	require.Equal(t, interp.StepTerminated, res)
	return f.Data
}

func push(v value.Value) compile.Instr { return compile.Instr{Op: compile.OpPushValue, Val: v} }
func prim(name string) compile.Instr   { return compile.Instr{Op: compile.OpPrimitive, Name: name} }

func TestCopyObjDuplicatesNameAndProps(t *testing.T) {
	tbl, reg, room, wiz := newHarness(t)
	orig, err := tbl.NewThing(wiz.ID, "Rock", room.ID)
	require.NoError(t, err)
	orig.Props.SetProp("/description", value.Str("A gray rock."), 0)

	data := runProgram(t, tbl, reg, wiz.ID, []compile.Instr{
		push(value.Obj(orig.ID)),
		prim("COPYOBJ"),
	})
	require.Len(t, data, 1)
	copyID := data[0].Obj
	require.NotEqual(t, orig.ID, copyID)

	cp := tbl.Get(copyID)
	require.Equal(t, "Rock", cp.Name)
	require.Equal(t, orig.Location, cp.Location)
	v, ok := cp.Props.GetProp("/description")
	require.True(t, ok)
	require.Equal(t, "A gray rock.", v.String())

	// mutating the copy's props must not reach back into the original.
	cp.Props.SetProp("/description", value.Str("A shiny rock."), 0)
	origVal, _ := orig.Props.GetProp("/description")
	require.Equal(t, "A gray rock.", origVal.String())
}

func TestNewPlayerRegistersLoginName(t *testing.T) {
	tbl, reg, _, wiz := newHarness(t)
	data := runProgram(t, tbl, reg, wiz.ID, []compile.Instr{
		push(value.Str("Newbie")),
		push(value.Str("hunter2")),
		prim("NEWPLAYER"),
	})
	require.Len(t, data, 1)
	id, ok := tbl.LookupPlayer("Newbie")
	require.True(t, ok)
	require.Equal(t, id, data[0].Obj)
}

func TestEntrancesArrayFindsExitsTargetingObject(t *testing.T) {
	tbl, reg, room, wiz := newHarness(t)
	other := tbl.NewRoom(wiz.ID, "Attic")
	_, err := tbl.NewExit(wiz.ID, "up", room.ID, []value.ObjectID{other.ID})
	require.NoError(t, err)
	_, err = tbl.NewExit(wiz.ID, "north", room.ID, []value.ObjectID{room.ID})
	require.NoError(t, err)

	data := runProgram(t, tbl, reg, wiz.ID, []compile.Instr{
		push(value.Obj(other.ID)),
		prim("ENTRANCES_ARRAY"),
	})
	require.Len(t, data, 1)
	require.Equal(t, value.KindArray, data[0].Kind)
	require.Equal(t, 1, data[0].Arr.Count())
}

func TestObjMemCountsNameAndProps(t *testing.T) {
	tbl, reg, room, wiz := newHarness(t)
	thing, err := tbl.NewThing(wiz.ID, "Widget", room.ID)
	require.NoError(t, err)
	thing.Props.SetProp("/description", value.Str("A small widget."), 0)

	data := runProgram(t, tbl, reg, wiz.ID, []compile.Instr{
		push(value.Obj(thing.ID)),
		prim("OBJMEM"),
	})
	require.Len(t, data, 1)
	require.Greater(t, data[0].I, int32(len(thing.Name)))
}

func TestStrEncryptDecryptRoundTrips(t *testing.T) {
	tbl, reg, _, wiz := newHarness(t)
	data := runProgram(t, tbl, reg, wiz.ID, []compile.Instr{
		push(value.Str("the treasure is buried at the oak")),
		push(value.Str("correcthorse")),
		prim("STRENCRYPT"),
	})
	require.Len(t, data, 1)
	cipher := data[0].String()
	require.NotEqual(t, "the treasure is buried at the oak", cipher)

	data = runProgram(t, tbl, reg, wiz.ID, []compile.Instr{
		push(value.Str(cipher)),
		push(value.Str("correcthorse")),
		prim("STRDECRYPT"),
	})
	require.Len(t, data, 1)
	require.Equal(t, "the treasure is buried at the oak", data[0].String())
}

func TestTextAttrWrapsKnownCodesAndResets(t *testing.T) {
	tbl, reg, _, wiz := newHarness(t)
	data := runProgram(t, tbl, reg, wiz.ID, []compile.Instr{
		push(value.Str("hi")),
		push(value.Str("bold,red")),
		prim("TEXTATTR"),
	})
	require.Len(t, data, 1)
	require.Equal(t, "\x1b[1;31mhi\x1b[0m", data[0].String())
}

func TestDiff3SubtractsComponentwise(t *testing.T) {
	tbl, reg, _, wiz := newHarness(t)
	data := runProgram(t, tbl, reg, wiz.ID, []compile.Instr{
		push(value.Float(1)), push(value.Float(2)), push(value.Float(3)),
		push(value.Float(4)), push(value.Float(6)), push(value.Float(9)),
		prim("DIFF3"),
	})
	require.Len(t, data, 3)
	require.Equal(t, 3.0, data[0].F)
	require.Equal(t, 4.0, data[1].F)
	require.Equal(t, 6.0, data[2].F)
}

func TestXyzPolarRoundTrips(t *testing.T) {
	tbl, reg, _, wiz := newHarness(t)
	data := runProgram(t, tbl, reg, wiz.ID, []compile.Instr{
		push(value.Float(0)), push(value.Float(0)), push(value.Float(5)),
		prim("XYZ_TO_POLAR"),
		prim("POLAR_TO_XYZ"),
	})
	require.Len(t, data, 3)
	require.InDelta(t, 0.0, data[0].F, 1e-9)
	require.InDelta(t, 0.0, data[1].F, 1e-9)
	require.InDelta(t, 5.0, data[2].F, 1e-9)
}

type recordingMpiDispatcher struct {
	told []string
}

func (d *recordingMpiDispatcher) Tell(speaker, to value.ObjectID, text string) error {
	d.told = append(d.told, text)
	return nil
}
func (d *recordingMpiDispatcher) OTell(speaker, room, exclude value.ObjectID, text string) error {
	return nil
}
func (d *recordingMpiDispatcher) Force(who value.ObjectID, command string) error { return nil }
func (d *recordingMpiDispatcher) Delay(seconds int, text string, ctx *mpi.Context) error { return nil }

func TestParseMpiExpandsTemplate(t *testing.T) {
	tbl, reg, _, wiz := newHarness(t)
	disp := &recordingMpiDispatcher{}
	SetMpiDispatcher(disp)
	defer SetMpiDispatcher(nil)

	data := runProgram(t, tbl, reg, wiz.ID, []compile.Instr{
		push(value.Str("{add:2,3}")),
		prim("PARSEMPI"),
	})
	require.Len(t, data, 1)
	require.Equal(t, "5", data[0].String())
}

func TestParsePropExExpandsSetPropertyAndReportsPresence(t *testing.T) {
	tbl, reg, room, wiz := newHarness(t)
	SetMpiDispatcher(&recordingMpiDispatcher{})
	defer SetMpiDispatcher(nil)
	room.Props.SetProp("/greeting", value.Str("{add:1,1}"), 0)

	data := runProgram(t, tbl, reg, wiz.ID, []compile.Instr{
		push(value.Obj(room.ID)),
		push(value.Str("/greeting")),
		prim("PARSEPROPEX"),
	})
	require.Len(t, data, 2)
	require.Equal(t, int32(1), data[0].I)
	require.Equal(t, "2", data[1].String())
}
