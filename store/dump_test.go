package store

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/fuzzball-muck/muckcore/value"
)

// valueSignature renders a Value into a form comparable with go-cmp
// across independently-loaded copies, which legitimately hold distinct
// SharedString/SharedArray node pointers for equal logical content.
func valueSignature(v value.Value) interface{} {
	if v.Kind == value.KindArray {
		var elems []interface{}
		for _, e := range v.Arr.PackedView() {
			elems = append(elems, valueSignature(e))
		}
		return elems
	}
	return v.String()
}

func buildSampleTable(t *testing.T) *Table {
	t.Helper()
	tbl := NewTable(fixedClock(1000))
	root := tbl.NewRoom(value.ObjectID(0), "Town Square")
	wiz, err := tbl.NewPlayer("Wizard", "$2a$hash")
	require.NoError(t, err)
	thing, err := tbl.NewThing(wiz.ID, "Rock", root.ID)
	require.NoError(t, err)

	thing.Props.SetProp("/description", value.Str("A smooth grey stone."), 0)
	thing.Props.SetProp("/_config/weight", value.Int(12), PropBlessed)
	thing.Props.SetProp("/_config/ratio", value.Float(0.5), 0)
	arr := value.NewPackedArrayFrom([]value.Value{value.Int(1), value.Str("two"), value.Int(3)})
	thing.Props.SetProp("/_config/list", value.ArrVal(arr), 0)

	_, err = tbl.NewExit(wiz.ID, "north", root.ID, []value.ObjectID{root.ID})
	require.NoError(t, err)
	return tbl
}

// objectsEqual compares tables ignoring the unexported arrayNode refs
// field, which legitimately differs between independently-loaded copies
// of the same logical array.
func objectsEqual(t *testing.T, a, b *Table) {
	t.Helper()
	require.Equal(t, a.Top(), b.Top())
	for _, oa := range a.All() {
		ob := b.Get(oa.ID)
		require.NotNil(t, ob)
		require.Equal(t, oa.Name, ob.Name)
		require.Equal(t, oa.Kind, ob.Kind)
		require.Equal(t, oa.Location, ob.Location)
		require.Equal(t, oa.Owner, ob.Owner)
		require.ElementsMatch(t, oa.Props.AllLeaves(), ob.Props.AllLeaves())
		for _, path := range oa.Props.AllLeaves() {
			va, _ := oa.Props.GetProp(path)
			vb, _ := ob.Props.GetProp(path)
			require.Empty(t, cmp.Diff(valueSignature(va), valueSignature(vb)), "property %s", path)
		}
	}
}

func TestFullDumpRoundTrip(t *testing.T) {
	tbl := buildSampleTable(t)

	var buf bytes.Buffer
	require.NoError(t, WriteFullDump(tbl, &buf))

	loaded, err := ReadFullDump(&buf, fixedClock(2000))
	require.NoError(t, err)

	objectsEqual(t, tbl, loaded)
}

func TestFullDumpRejectsTruncatedInput(t *testing.T) {
	tbl := buildSampleTable(t)
	var buf bytes.Buffer
	require.NoError(t, WriteFullDump(tbl, &buf))

	truncated := buf.Bytes()[:buf.Len()-len(endOfDumpSentinel)-1]
	_, err := ReadFullDump(bytes.NewReader(truncated), fixedClock(0))
	require.Error(t, err)
}

func TestDeltaRoundTripAndIdempotence(t *testing.T) {
	tbl := buildSampleTable(t)
	for _, o := range tbl.All() {
		tbl.MarkDirty(o.ID)
	}

	var buf bytes.Buffer
	n, err := WriteDelta(&buf, tbl)
	require.NoError(t, err)
	require.Equal(t, len(tbl.All()), n)
	for _, o := range tbl.All() {
		require.False(t, o.Flags.Has(FlagObjectChanged))
		require.True(t, o.Flags.Has(FlagSavedDelta))
	}

	loaded := NewTable(fixedClock(3000))
	applied, err := ApplyDeltaLog(loaded, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Equal(t, n, applied)
	objectsEqual(t, tbl, loaded)

	// Re-applying the same log must not change the resulting state
	// (spec.md §8 property 2: delta idempotence).
	before := make(map[value.ObjectID]string)
	for _, o := range loaded.All() {
		before[o.ID] = o.Name
	}
	appliedAgain, err := ApplyDeltaLog(loaded, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Equal(t, n, appliedAgain)
	for _, o := range loaded.All() {
		require.Equal(t, before[o.ID], o.Name)
	}
	objectsEqual(t, tbl, loaded)
}

func TestPanicDumpUsesSameFormatAsFullDump(t *testing.T) {
	tbl := buildSampleTable(t)
	var buf bytes.Buffer
	require.NoError(t, WritePanicDump(tbl, &buf))

	loaded, err := ReadFullDump(&buf, fixedClock(0))
	require.NoError(t, err)
	objectsEqual(t, tbl, loaded)
}
