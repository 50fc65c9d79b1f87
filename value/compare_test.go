package value

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAlphanumericCompareOrdersNumericSubstringsByValue(t *testing.T) {
	require.True(t, alphanumCompare("item9", "item10") < 0)
	require.True(t, alphanumCompare("item10", "item9") > 0)
	require.Equal(t, 0, alphanumCompare("item01", "item1"))
}

func TestCompareTotalOrderIsStrictWeakOrder(t *testing.T) {
	vals := []Value{
		Int(3), Int(1), Float(2.5), Str("b"), Str("a"),
		Obj(5), Obj(2), NewPackedArrayFrom(nil).valueOf(), Cleared,
	}
	r := rand.New(rand.NewSource(1))
	r.Shuffle(len(vals), func(i, j int) { vals[i], vals[j] = vals[j], vals[i] })

	for i := range vals {
		require.Equal(t, 0, Compare(vals[i], vals[i]), "reflexive")
	}
	for i := range vals {
		for j := range vals {
			if i == j {
				continue
			}
			cij := Compare(vals[i], vals[j])
			cji := Compare(vals[j], vals[i])
			require.Equal(t, -sign(cij), sign(cji), "antisymmetric for %v vs %v", vals[i], vals[j])
		}
	}
}

func sign(c int) int {
	switch {
	case c < 0:
		return -1
	case c > 0:
		return 1
	default:
		return 0
	}
}

func (a *SharedArray) valueOf() Value { return ArrVal(a) }
