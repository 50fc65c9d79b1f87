package value

// kindRank gives the fixed arbitrary total order over kinds used as a
// last resort when two values of different, non-numeric kinds must be
// ordered (spec.md §4.A "Value comparison"). Lower sorts first.
var kindRank = map[Kind]int{
	KindCleared:      0,
	KindInt:          1,
	KindFloat:        1,
	KindObject:       2,
	KindString:       3,
	KindArray:        4,
	KindLock:         5,
	KindMark:         6,
	KindPrimitive:    7,
	KindGlobalVar:    8,
	KindLocalVar:     9,
	KindScopedVar:    10,
	KindFunctionName: 11,
	KindAddress:      12,
	KindIf:           13,
	KindExec:         14,
	KindJmp:          15,
	KindTryHandler:   16,
}

func isNumeric(k Kind) bool { return k == KindInt || k == KindFloat }

func asFloat(v Value) float64 {
	if v.Kind == KindInt {
		return float64(v.I)
	}
	return v.F
}

// Compare implements the total order required by dictionary-array key
// ordering and ARRAY_SORT (spec.md §4.A, §8 property 4):
//
//  1. both numeric (int or float): compare as real numbers
//  2. both strings: alphanumeric compare
//  3. same non-numeric kind: type-specific rule
//  4. otherwise: the fixed arbitrary total order over kinds
//
// Returns -1, 0 or 1.
func Compare(a, b Value) int {
	switch {
	case isNumeric(a.Kind) && isNumeric(b.Kind):
		fa, fb := asFloat(a), asFloat(b)
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		default:
			return 0
		}
	case a.Kind == KindString && b.Kind == KindString:
		return a.Str.Compare(b.Str)
	case a.Kind == b.Kind:
		return compareSameKind(a, b)
	default:
		ra, rb := kindRank[a.Kind], kindRank[b.Kind]
		switch {
		case ra < rb:
			return -1
		case ra > rb:
			return 1
		default:
			return 0
		}
	}
}

// compareSameKind handles same, non-numeric, non-string kinds: objects
// by id, locks by canonical form, arrays recursively (element by
// element, shorter-is-less on common prefix equal), everything else by
// its scalar payload.
func compareSameKind(a, b Value) int {
	switch a.Kind {
	case KindObject:
		switch {
		case a.Obj < b.Obj:
			return -1
		case a.Obj > b.Obj:
			return 1
		default:
			return 0
		}
	case KindLock:
		return alphanumCompare(a.Lck.String(), b.Lck.String())
	case KindArray:
		return compareArrays(a.Arr, b.Arr)
	case KindMark:
		switch {
		case a.I < b.I:
			return -1
		case a.I > b.I:
			return 1
		default:
			return 0
		}
	case KindCleared:
		return 0
	default:
		switch {
		case a.I < b.I:
			return -1
		case a.I > b.I:
			return 1
		default:
			return 0
		}
	}
}

func compareArrays(a, b *SharedArray) int {
	av := a.PackedView()
	bv := b.PackedView()
	n := len(av)
	if len(bv) < n {
		n = len(bv)
	}
	for i := 0; i < n; i++ {
		if c := Compare(av[i], bv[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(av) < len(bv):
		return -1
	case len(av) > len(bv):
		return 1
	default:
		return 0
	}
}

// Less reports whether a sorts before b under Compare. ARRAY_SORT and
// dictionary insertion call Compare directly, not Less.
func Less(a, b Value) bool { return Compare(a, b) < 0 }
