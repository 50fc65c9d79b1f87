package value

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPinnedArrayMutationVisibleToAllHolders(t *testing.T) {
	a := NewPackedArrayFrom([]Value{Int(1), Int(2)}).Pin()
	b := a.Share()

	a.SetItem(Int(0), Int(99))

	got, ok := b.GetItem(Int(0))
	require.True(t, ok)
	require.Equal(t, int32(99), got.I)
}

func TestUnpinnedArrayMutationForksAwayFromOtherHolders(t *testing.T) {
	a := NewPackedArrayFrom([]Value{Int(1), Int(2)})
	b := a.Share()

	a.SetItem(Int(0), Int(99))

	got, ok := b.GetItem(Int(0))
	require.True(t, ok)
	require.Equal(t, int32(1), got.I, "original holder must be unaffected by a COW mutation")
}

func TestUnpinnedSoleHolderMutatesInPlace(t *testing.T) {
	a := NewPackedArrayFrom([]Value{Int(1)})
	a.SetItem(Int(0), Int(7))
	got, _ := a.GetItem(Int(0))
	require.Equal(t, int32(7), got.I)
}

func TestArrayDecoupleAlwaysForks(t *testing.T) {
	a := NewPackedArrayFrom([]Value{Int(1)}).Pin()
	b := a.Share()
	c := b.Decouple()

	c.SetItem(Int(0), Int(42))

	got, _ := a.GetItem(Int(0))
	require.Equal(t, int32(1), got.I)
}

func TestArrayPromotesPackedToDictOnNonSequentialKey(t *testing.T) {
	a := NewPackedArrayFrom([]Value{Int(1), Int(2)})
	a.SetItem(Int(5), Str("x"))
	require.True(t, a.IsDict())
	require.Equal(t, 3, a.Count())

	v, ok := a.GetItem(Int(5))
	require.True(t, ok)
	require.Equal(t, "x", v.Str.Value())
}

func TestArrayGetItemOutOfRangeReturnsAbsentNotError(t *testing.T) {
	a := NewPackedArrayFrom([]Value{Int(1)})
	_, ok := a.GetItem(Int(99))
	require.False(t, ok)
}

func TestArrayGetRangeClampsForPacked(t *testing.T) {
	a := NewPackedArrayFrom([]Value{Int(1), Int(2), Int(3)})
	r := a.GetRange(Int(-5), Int(100))
	require.Equal(t, 3, r.Count())
}

func TestArraySortAscendingAndDescending(t *testing.T) {
	a := NewPackedArrayFrom([]Value{Int(3), Int(1), Int(2)})
	asc := a.Sort(true, false)
	vals := asc.Vals()
	require.Equal(t, []int32{1, 2, 3}, []int32{vals[0].I, vals[1].I, vals[2].I})

	desc := a.Sort(true, true)
	dvals := desc.Vals()
	require.Equal(t, []int32{3, 2, 1}, []int32{dvals[0].I, dvals[1].I, dvals[2].I})
}
