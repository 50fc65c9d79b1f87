package primitive

import (
	"sort"
	"strings"

	"github.com/fuzzball-muck/muckcore/interp"
	"github.com/fuzzball-muck/muckcore/interp/muckerr"
	"github.com/fuzzball-muck/muckcore/value"
)

// registerArrays wires spec.md §4.D.4's Containers group against
// value.SharedArray's packed/dict representation. All trust 0; ARRAY_PIN
// and ARRAY_UNPIN are the only primitives that change COW semantics
// rather than contents.
func registerArrays(reg *interp.Registry) {
	reg.Register("ARRAY_MAKE", 0, func(f *interp.Frame, _ *interp.Registry) error {
		n, err := popInt(f)
		if err != nil {
			return err
		}
		if n < 0 || int(n) > f.Depth() {
			return muckerr.New(muckerr.ArgumentRange, "ARRAY_MAKE count out of range")
		}
		items := append([]value.Value(nil), f.Data[f.Depth()-int(n):]...)
		f.Data = f.Data[:f.Depth()-int(n)]
		return f.Push(value.ArrVal(value.NewPackedArrayFrom(items)))
	})
	reg.Register("ARRAY_MAKE_DICT", 0, func(f *interp.Frame, _ *interp.Registry) error {
		n, err := popInt(f)
		if err != nil {
			return err
		}
		if n < 0 || int(n)*2 > f.Depth() {
			return muckerr.New(muckerr.ArgumentRange, "ARRAY_MAKE_DICT count out of range")
		}
		pairs := f.Data[f.Depth()-int(n)*2:]
		out := value.NewDictArray()
		for i := 0; i < len(pairs); i += 2 {
			out.SetItem(pairs[i], pairs[i+1])
		}
		f.Data = f.Data[:f.Depth()-int(n)*2]
		return f.Push(value.ArrVal(out))
	})
	reg.Register("ARRAY_GETITEM", 0, func(f *interp.Frame, _ *interp.Registry) error {
		key, err := f.Pop()
		if err != nil {
			return err
		}
		arr, err := popArr(f)
		if err != nil {
			return err
		}
		v, _ := arr.GetItem(key)
		return f.Push(v)
	})
	reg.Register("ARRAY_SETITEM", 0, func(f *interp.Frame, _ *interp.Registry) error {
		key, err := f.Pop()
		if err != nil {
			return err
		}
		val, err := f.Pop()
		if err != nil {
			return err
		}
		arr, err := popArr(f)
		if err != nil {
			return err
		}
		return f.Push(value.ArrVal(arr.SetItem(key, val)))
	})
	reg.Register("ARRAY_APPENDITEM", 0, func(f *interp.Frame, _ *interp.Registry) error {
		val, err := f.Pop()
		if err != nil {
			return err
		}
		arr, err := popArr(f)
		if err != nil {
			return err
		}
		return f.Push(value.ArrVal(arr.AppendItem(val)))
	})
	reg.Register("ARRAY_INSERTITEM", 0, func(f *interp.Frame, _ *interp.Registry) error {
		val, err := f.Pop()
		if err != nil {
			return err
		}
		key, err := f.Pop()
		if err != nil {
			return err
		}
		arr, err := popArr(f)
		if err != nil {
			return err
		}
		vals := arr.Vals()
		idx := clamp(int(key.I), 0, len(vals))
		out := make([]value.Value, 0, len(vals)+1)
		out = append(out, vals[:idx]...)
		out = append(out, val)
		out = append(out, vals[idx:]...)
		return f.Push(value.ArrVal(value.NewPackedArrayFrom(out)))
	})
	reg.Register("ARRAY_DELITEM", 0, func(f *interp.Frame, _ *interp.Registry) error {
		key, err := f.Pop()
		if err != nil {
			return err
		}
		arr, err := popArr(f)
		if err != nil {
			return err
		}
		return f.Push(value.ArrVal(arr.DelItem(key)))
	})
	reg.Register("ARRAY_GETRANGE", 0, func(f *interp.Frame, _ *interp.Registry) error {
		end, err := f.Pop()
		if err != nil {
			return err
		}
		start, err := f.Pop()
		if err != nil {
			return err
		}
		arr, err := popArr(f)
		if err != nil {
			return err
		}
		return f.Push(value.ArrVal(arr.GetRange(start, end)))
	})
	reg.Register("ARRAY_SETRANGE", 0, func(f *interp.Frame, _ *interp.Registry) error {
		repl, err := popArr(f)
		if err != nil {
			return err
		}
		start, err := popInt(f)
		if err != nil {
			return err
		}
		arr, err := popArr(f)
		if err != nil {
			return err
		}
		vals := arr.Vals()
		rv := repl.Vals()
		for i, v := range rv {
			idx := int(start) + i
			if idx >= 0 && idx < len(vals) {
				vals[idx] = v
			}
		}
		return f.Push(value.ArrVal(value.NewPackedArrayFrom(vals)))
	})
	reg.Register("ARRAY_INSERTRANGE", 0, func(f *interp.Frame, _ *interp.Registry) error {
		ins, err := popArr(f)
		if err != nil {
			return err
		}
		start, err := popInt(f)
		if err != nil {
			return err
		}
		arr, err := popArr(f)
		if err != nil {
			return err
		}
		vals := arr.Vals()
		idx := clamp(int(start), 0, len(vals))
		out := make([]value.Value, 0, len(vals)+ins.Count())
		out = append(out, vals[:idx]...)
		out = append(out, ins.Vals()...)
		out = append(out, vals[idx:]...)
		return f.Push(value.ArrVal(value.NewPackedArrayFrom(out)))
	})
	reg.Register("ARRAY_DELRANGE", 0, func(f *interp.Frame, _ *interp.Registry) error {
		end, err := popInt(f)
		if err != nil {
			return err
		}
		start, err := popInt(f)
		if err != nil {
			return err
		}
		arr, err := popArr(f)
		if err != nil {
			return err
		}
		vals := arr.Vals()
		lo := clamp(int(start), 0, len(vals))
		hi := clamp(int(end)+1, lo, len(vals))
		out := append(append([]value.Value(nil), vals[:lo]...), vals[hi:]...)
		return f.Push(value.ArrVal(value.NewPackedArrayFrom(out)))
	})
	reg.Register("ARRAY_COUNT", 0, func(f *interp.Frame, _ *interp.Registry) error {
		arr, err := popArr(f)
		if err != nil {
			return err
		}
		return f.Push(value.Int(int32(arr.Count())))
	})
	reg.Register("ARRAY_KEYS", 0, func(f *interp.Frame, _ *interp.Registry) error {
		arr, err := popArr(f)
		if err != nil {
			return err
		}
		return f.Push(value.ArrVal(value.NewPackedArrayFrom(arr.Keys())))
	})
	reg.Register("ARRAY_VALS", 0, func(f *interp.Frame, _ *interp.Registry) error {
		arr, err := popArr(f)
		if err != nil {
			return err
		}
		return f.Push(value.ArrVal(value.NewPackedArrayFrom(arr.Vals())))
	})
	reg.Register("ARRAY_FIRST", 0, firstLast(true))
	reg.Register("ARRAY_LAST", 0, firstLast(false))
	reg.Register("ARRAY_NEXT", 0, adjacentKey(1))
	reg.Register("ARRAY_PREV", 0, adjacentKey(-1))
	reg.Register("ARRAY_EXPLODE", 0, func(f *interp.Frame, _ *interp.Registry) error {
		arr, err := popArr(f)
		if err != nil {
			return err
		}
		keys := arr.Keys()
		vals := arr.Vals()
		for i := range keys {
			if err := f.Push(keys[i]); err != nil {
				return err
			}
			if err := f.Push(vals[i]); err != nil {
				return err
			}
		}
		return f.Push(value.Int(int32(len(keys))))
	})
	reg.Register("ARRAY_JOIN", 0, func(f *interp.Frame, _ *interp.Registry) error {
		sep, err := popStr(f)
		if err != nil {
			return err
		}
		arr, err := popArr(f)
		if err != nil {
			return err
		}
		parts := make([]string, 0, arr.Count())
		for _, v := range arr.Vals() {
			parts = append(parts, v.String())
		}
		return f.Push(value.Str(strings.Join(parts, sep)))
	})
	reg.Register("ARRAY_SORT", 0, func(f *interp.Frame, _ *interp.Registry) error {
		desc, err := popInt(f)
		if err != nil {
			return err
		}
		arr, err := popArr(f)
		if err != nil {
			return err
		}
		return f.Push(value.ArrVal(arr.Sort(true, desc != 0)))
	})
	reg.Register("ARRAY_SORT_INDEXED", 0, func(f *interp.Frame, _ *interp.Registry) error {
		desc, err := popInt(f)
		if err != nil {
			return err
		}
		arr, err := popArr(f)
		if err != nil {
			return err
		}
		return f.Push(value.ArrVal(arr.Sort(false, desc != 0)))
	})
	reg.Register("ARRAY_MATCHKEY", 0, matchOp(func(arr *value.SharedArray) []value.Value { return arr.Keys() }))
	reg.Register("ARRAY_MATCHVAL", 0, matchOp(func(arr *value.SharedArray) []value.Value { return arr.Vals() }))
	reg.Register("ARRAY_FINDVAL", 0, func(f *interp.Frame, _ *interp.Registry) error {
		needle, err := f.Pop()
		if err != nil {
			return err
		}
		arr, err := popArr(f)
		if err != nil {
			return err
		}
		keys := arr.Keys()
		vals := arr.Vals()
		out := value.NewPackedArray()
		for i, v := range vals {
			if value.Compare(v, needle) == 0 {
				out.AppendItem(keys[i])
			}
		}
		return f.Push(value.ArrVal(out))
	})
	reg.Register("ARRAY_EXCLUDEVAL", 0, func(f *interp.Frame, _ *interp.Registry) error {
		needle, err := f.Pop()
		if err != nil {
			return err
		}
		arr, err := popArr(f)
		if err != nil {
			return err
		}
		out := value.NewPackedArray()
		for _, v := range arr.Vals() {
			if value.Compare(v, needle) != 0 {
				out.AppendItem(v)
			}
		}
		return f.Push(value.ArrVal(out))
	})
	reg.Register("ARRAY_EXTRACT", 0, func(f *interp.Frame, _ *interp.Registry) error {
		keysArr, err := popArr(f)
		if err != nil {
			return err
		}
		arr, err := popArr(f)
		if err != nil {
			return err
		}
		out := value.NewDictArray()
		for _, k := range keysArr.Vals() {
			if v, ok := arr.GetItem(k); ok {
				out.SetItem(k, v)
			}
		}
		return f.Push(value.ArrVal(out))
	})
	reg.Register("ARRAY_CUT", 0, func(f *interp.Frame, _ *interp.Registry) error {
		idx, err := popInt(f)
		if err != nil {
			return err
		}
		arr, err := popArr(f)
		if err != nil {
			return err
		}
		vals := arr.Vals()
		n := clamp(int(idx), 0, len(vals))
		if err := f.Push(value.ArrVal(value.NewPackedArrayFrom(vals[:n]))); err != nil {
			return err
		}
		return f.Push(value.ArrVal(value.NewPackedArrayFrom(vals[n:])))
	})
	reg.Register("ARRAY_NUNION", 0, setOp(func(a, b map[string]bool) map[string]bool {
		out := map[string]bool{}
		for k := range a {
			out[k] = true
		}
		for k := range b {
			out[k] = true
		}
		return out
	}))
	reg.Register("ARRAY_NINTERSECT", 0, setOp(func(a, b map[string]bool) map[string]bool {
		out := map[string]bool{}
		for k := range a {
			if b[k] {
				out[k] = true
			}
		}
		return out
	}))
	reg.Register("ARRAY_NDIFF", 0, setOp(func(a, b map[string]bool) map[string]bool {
		out := map[string]bool{}
		for k := range a {
			if !b[k] {
				out[k] = true
			}
		}
		return out
	}))
	reg.Register("ARRAY_PIN", 0, func(f *interp.Frame, _ *interp.Registry) error {
		arr, err := popArr(f)
		if err != nil {
			return err
		}
		return f.Push(value.ArrVal(arr.Pin()))
	})
	reg.Register("ARRAY_UNPIN", 0, func(f *interp.Frame, _ *interp.Registry) error {
		arr, err := popArr(f)
		if err != nil {
			return err
		}
		return f.Push(value.ArrVal(arr.Unpin()))
	})
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func firstLast(first bool) interp.Primitive {
	return func(f *interp.Frame, _ *interp.Registry) error {
		arr, err := popArr(f)
		if err != nil {
			return err
		}
		keys := arr.Keys()
		if len(keys) == 0 {
			return f.Push(value.Cleared)
		}
		if first {
			return f.Push(keys[0])
		}
		return f.Push(keys[len(keys)-1])
	}
}

// adjacentKey implements ARRAY_NEXT/ARRAY_PREV: given a key already in
// the array, returns the following/preceding key in iteration order, or
// Cleared when there is none.
func adjacentKey(step int) interp.Primitive {
	return func(f *interp.Frame, _ *interp.Registry) error {
		key, err := f.Pop()
		if err != nil {
			return err
		}
		arr, err := popArr(f)
		if err != nil {
			return err
		}
		keys := arr.Keys()
		for i, k := range keys {
			if value.Compare(k, key) == 0 {
				j := i + step
				if j < 0 || j >= len(keys) {
					return f.Push(value.Cleared)
				}
				return f.Push(keys[j])
			}
		}
		return f.Push(value.Cleared)
	}
}

// matchOp wires ARRAY_MATCHKEY/ARRAY_MATCHVAL: a smatch-style wildcard
// pattern selects the subset of keys/values whose string form matches.
func matchOp(project func(*value.SharedArray) []value.Value) interp.Primitive {
	return func(f *interp.Frame, _ *interp.Registry) error {
		pattern, err := popStr(f)
		if err != nil {
			return err
		}
		arr, err := popArr(f)
		if err != nil {
			return err
		}
		keys := arr.Keys()
		items := project(arr)
		out := value.NewPackedArray()
		for i, v := range items {
			if SMatch(pattern, v.String()) {
				out.AppendItem(keys[i])
			}
		}
		return f.Push(value.ArrVal(out))
	}
}

func setOp(combine func(a, b map[string]bool) map[string]bool) interp.Primitive {
	return func(f *interp.Frame, _ *interp.Registry) error {
		b, err := popArr(f)
		if err != nil {
			return err
		}
		a, err := popArr(f)
		if err != nil {
			return err
		}
		am := toStrSet(a)
		bm := toStrSet(b)
		merged := combine(am, bm)
		keys := make([]string, 0, len(merged))
		for k := range merged {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := value.NewPackedArray()
		for _, k := range keys {
			out.AppendItem(value.Str(k))
		}
		return f.Push(value.ArrVal(out))
	}
}

func toStrSet(arr *value.SharedArray) map[string]bool {
	m := map[string]bool{}
	for _, v := range arr.Vals() {
		m[v.String()] = true
	}
	return m
}
