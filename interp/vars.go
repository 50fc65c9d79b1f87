package interp

import (
	"github.com/fuzzball-muck/muckcore/interp/muckerr"
	"github.com/fuzzball-muck/muckcore/value"
)

// encodeVarRef packs a varRef into a Value so it can travel on the data
// stack like any other datum (spec.md §4.D.2: GlobalVar/LocalVar/
// ScopedVar "push a variable-reference token"). Each variable kind has
// its own value.Kind (KindGlobalVar/KindLocalVar/KindScopedVar) with the
// slot number in I; '@'/'!' are the only code that ever interprets one
// of these tokens.
func encodeVarRef(r varRef) value.Value {
	switch r.kind {
	case varGlobal:
		return value.Value{Kind: value.KindGlobalVar, I: int32(r.slot)}
	case varLocal:
		return value.Value{Kind: value.KindLocalVar, I: int32(r.slot)}
	default:
		return value.Value{Kind: value.KindScopedVar, I: int32(r.slot)}
	}
}

func decodeVarRef(v value.Value) (varRef, bool) {
	switch v.Kind {
	case value.KindGlobalVar:
		return varRef{kind: varGlobal, slot: int(v.I)}, true
	case value.KindLocalVar:
		return varRef{kind: varLocal, slot: int(v.I)}, true
	case value.KindScopedVar:
		return varRef{kind: varScoped, slot: int(v.I)}, true
	default:
		return varRef{}, false
	}
}

// slotFor resolves a varRef to the slice and index holding its value,
// growing the scoped-variable stack in place if a scoped slot is
// addressed past its current length (the compiler only ever assigns
// slots it has already declared via VAR/LVAR, but scoped vars inside a
// deeply recursive word can legitimately grow past what was allocated
// at frame-creation time).
func (f *Frame) slotFor(r varRef) (get func() value.Value, set func(value.Value)) {
	switch r.kind {
	case varGlobal:
		return func() value.Value { return f.Globals[r.slot] },
			func(v value.Value) { f.Globals[r.slot] = v }
	case varLocal:
		slots := f.localSlots()
		return func() value.Value { return slots[r.slot] },
			func(v value.Value) { slots[r.slot] = v }
	default:
		for len(f.scoped) <= r.slot {
			f.scoped = append(f.scoped, value.Cleared)
		}
		return func() value.Value { return f.scoped[r.slot] },
			func(v value.Value) { f.scoped[r.slot] = v }
	}
}

// execVarRead implements '@': pop a var-ref token, push its value
// (spec.md §4.D.2).
func execVarRead(f *Frame) error {
	top, err := f.popData()
	if err != nil {
		return err
	}
	ref, ok := decodeVarRef(top)
	if !ok {
		return muckerr.TypeMismatchf("variable reference", top.TypeName())
	}
	get, _ := f.slotFor(ref)
	return f.pushData(get())
}

// execVarWrite implements '!': pop value then var-ref token, store
// (spec.md §4.D.2).
func execVarWrite(f *Frame) error {
	refVal, err := f.popData()
	if err != nil {
		return err
	}
	ref, ok := decodeVarRef(refVal)
	if !ok {
		return muckerr.TypeMismatchf("variable reference", refVal.TypeName())
	}
	val, err := f.popData()
	if err != nil {
		return err
	}
	_, set := f.slotFor(ref)
	set(val)
	return nil
}

// execForIntStart implements FOR's OpForIntStart: pop (step, end,
// start) per MUF stack order -- "start end step FOR" -- and push a loop
// frame that yields start, start+step, ... while it has not crossed end.
func execForIntStart(f *Frame) error {
	step, err := f.popData()
	if err != nil {
		return err
	}
	end, err := f.popData()
	if err != nil {
		return err
	}
	start, err := f.popData()
	if err != nil {
		return err
	}
	if step.Kind != value.KindInt || end.Kind != value.KindInt || start.Kind != value.KindInt {
		return muckerr.TypeMismatchf("integer", "non-integer FOR bound")
	}
	if len(f.For) >= maxForStack {
		return muckerr.New(muckerr.StackOverflow, "for stack full")
	}
	by := step.I
	if by == 0 {
		by = 1
	}
	f.For = append(f.For, forEntry{isArray: false, cur: start.I, end: end.I, by: by})
	return f.pushData(value.Int(start.I))
}

// execForArrayStart implements FOREACH's OpForArrayStart: pop an array,
// push a loop frame iterating (index-or-key, value) pairs in order.
func execForArrayStart(f *Frame) error {
	top, err := f.popData()
	if err != nil {
		return err
	}
	if top.Kind != value.KindArray {
		return muckerr.TypeMismatchf("array", top.TypeName())
	}
	if len(f.For) >= maxForStack {
		return muckerr.New(muckerr.StackOverflow, "for stack full")
	}
	keys := top.Arr.Keys()
	f.For = append(f.For, forEntry{isArray: true, arr: top.Arr, keys: keys, idx: 0})
	return pushForArrayItem(f)
}

func pushForArrayItem(f *Frame) error {
	e := &f.For[len(f.For)-1]
	if e.idx >= len(e.keys) {
		return nil
	}
	k := e.keys[e.idx]
	v, _ := e.arr.GetItem(k)
	if err := f.pushData(v); err != nil {
		return err
	}
	return f.pushData(k)
}

// execForNext implements NEXT's OpForNext: advance the innermost loop
// frame, reporting whether another iteration follows. On false the
// loop frame is popped and FOR's trailing count/array is gone from the
// stack -- the caller falls through to the instruction after NEXT.
func execForNext(f *Frame) (bool, error) {
	if len(f.For) == 0 {
		return false, muckerr.New(muckerr.StackUnderflow, "NEXT with no open FOR/FOREACH")
	}
	e := &f.For[len(f.For)-1]
	if e.isArray {
		e.idx++
		if e.idx >= len(e.keys) {
			f.For = f.For[:len(f.For)-1]
			return false, nil
		}
		if err := pushForArrayItem(f); err != nil {
			return false, err
		}
		return true, nil
	}
	e.cur += e.by
	done := (e.by > 0 && e.cur > e.end) || (e.by < 0 && e.cur < e.end)
	if done {
		f.For = f.For[:len(f.For)-1]
		return false, nil
	}
	if err := f.pushData(value.Int(e.cur)); err != nil {
		return false, err
	}
	return true, nil
}
