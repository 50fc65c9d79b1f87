package primitive

import (
	"github.com/fuzzball-muck/muckcore/interp"
	"github.com/fuzzball-muck/muckcore/interp/muckerr"
	"github.com/fuzzball-muck/muckcore/store"
	"github.com/fuzzball-muck/muckcore/value"
)

// registerProps wires spec.md §4.D.4's "Props" group: GETPROP family
// read at trust 0 (subject to the node's Private/Hidden flag, checked
// against the frame's effective permission), ADDPROP/SETPROP write at
// trust 0 unless the node is Read-only, and BLESSPROP/UNBLESSPROP
// require trust 4.
func registerProps(reg *interp.Registry) {
	reg.Register("GETPROPVAL", 0, func(f *interp.Frame, _ *interp.Registry) error {
		path, err := popStr(f)
		if err != nil {
			return err
		}
		id, err := popObj(f)
		if err != nil {
			return err
		}
		o, err := getObj(f, id)
		if err != nil {
			return err
		}
		if !visibleProp(o, path, f.Perm) {
			return f.Push(value.Int(0))
		}
		v, ok := o.Props.GetProp(path)
		if !ok {
			return f.Push(value.Int(0))
		}
		if v.Kind == value.KindInt || v.Kind == value.KindFloat {
			return f.Push(v)
		}
		return f.Push(value.Int(0))
	})
	reg.Register("GETPROPSTR", 0, func(f *interp.Frame, _ *interp.Registry) error {
		path, err := popStr(f)
		if err != nil {
			return err
		}
		id, err := popObj(f)
		if err != nil {
			return err
		}
		o, err := getObj(f, id)
		if err != nil {
			return err
		}
		if !visibleProp(o, path, f.Perm) {
			return f.Push(value.Str(""))
		}
		v, ok := o.Props.GetProp(path)
		if !ok {
			return f.Push(value.Str(""))
		}
		return f.Push(value.Str(v.String()))
	})
	reg.Register("GETPROPFVAL", 0, func(f *interp.Frame, _ *interp.Registry) error {
		path, err := popStr(f)
		if err != nil {
			return err
		}
		id, err := popObj(f)
		if err != nil {
			return err
		}
		o, err := getObj(f, id)
		if err != nil {
			return err
		}
		if !visibleProp(o, path, f.Perm) {
			return f.Push(value.Float(0))
		}
		v, ok := o.Props.GetProp(path)
		if ok && (v.Kind == value.KindInt || v.Kind == value.KindFloat) {
			return f.Push(value.Float(asF(v)))
		}
		return f.Push(value.Float(0))
	})
	reg.Register("GETPROP", 0, func(f *interp.Frame, _ *interp.Registry) error {
		path, err := popStr(f)
		if err != nil {
			return err
		}
		id, err := popObj(f)
		if err != nil {
			return err
		}
		o, err := getObj(f, id)
		if err != nil {
			return err
		}
		if !visibleProp(o, path, f.Perm) {
			return f.Push(value.Cleared)
		}
		v, ok := o.Props.GetProp(path)
		if !ok {
			return f.Push(value.Cleared)
		}
		return f.Push(v)
	})
	setProp := func(f *interp.Frame, _ *interp.Registry) error {
		path, err := popStr(f)
		if err != nil {
			return err
		}
		id, err := popObj(f)
		if err != nil {
			return err
		}
		val, err := f.Pop()
		if err != nil {
			return err
		}
		o, err := getObj(f, id)
		if err != nil {
			return err
		}
		if flags, ok := o.Props.PropFlagsAt(path); ok && flags&store.PropReadOnly != 0 {
			return muckerr.New(muckerr.PermissionDenied, "property is read-only")
		}
		o.Props.SetProp(path, val, 0)
		f.Store.MarkDirty(id)
		return nil
	}
	reg.Register("SETPROP", 0, setProp)
	reg.Register("ADDPROP", 0, func(f *interp.Frame, r *interp.Registry) error {
		// ADDPROP's MUF calling convention is obj path strval intval;
		// strval wins when non-empty, otherwise intval is stored as an
		// integer, matching the legacy engine's single combined opcode.
		iv, err := popInt(f)
		if err != nil {
			return err
		}
		sv, err := popStr(f)
		if err != nil {
			return err
		}
		path, err := popStr(f)
		if err != nil {
			return err
		}
		id, err := popObj(f)
		if err != nil {
			return err
		}
		o, err := getObj(f, id)
		if err != nil {
			return err
		}
		var v value.Value
		if sv != "" {
			v = value.Str(sv)
		} else {
			v = value.Int(iv)
		}
		if flags, ok := o.Props.PropFlagsAt(path); ok && flags&store.PropReadOnly != 0 {
			return muckerr.New(muckerr.PermissionDenied, "property is read-only")
		}
		o.Props.SetProp(path, v, 0)
		f.Store.MarkDirty(id)
		return nil
	})
	reg.Register("REMOVE_PROP", 0, func(f *interp.Frame, _ *interp.Registry) error {
		path, err := popStr(f)
		if err != nil {
			return err
		}
		id, err := popObj(f)
		if err != nil {
			return err
		}
		o, err := getObj(f, id)
		if err != nil {
			return err
		}
		o.Props.RemoveProp(path)
		f.Store.MarkDirty(id)
		return nil
	})
	reg.Register("NEXTPROP", 0, func(f *interp.Frame, _ *interp.Registry) error {
		last, err := popStr(f)
		if err != nil {
			return err
		}
		id, err := popObj(f)
		if err != nil {
			return err
		}
		o, err := getObj(f, id)
		if err != nil {
			return err
		}
		next, ok := o.Props.NextProp(last)
		if !ok {
			return f.Push(value.Str(""))
		}
		return f.Push(value.Str(next))
	})
	reg.Register("PROPDIR?", 0, func(f *interp.Frame, _ *interp.Registry) error {
		path, err := popStr(f)
		if err != nil {
			return err
		}
		id, err := popObj(f)
		if err != nil {
			return err
		}
		o, err := getObj(f, id)
		if err != nil {
			return err
		}
		return f.Push(boolVal(o.Props.PropDir(path)))
	})
	reg.Register("BLESSPROP", 4, blessProp(true))
	reg.Register("UNBLESSPROP", 4, blessProp(false))
	reg.Register("BLESSED?", 0, func(f *interp.Frame, _ *interp.Registry) error {
		path, err := popStr(f)
		if err != nil {
			return err
		}
		id, err := popObj(f)
		if err != nil {
			return err
		}
		o, err := getObj(f, id)
		if err != nil {
			return err
		}
		flags, _ := o.Props.PropFlagsAt(path)
		return f.Push(boolVal(flags&store.PropBlessed != 0))
	})
	reg.Register("ENVPROPSTR", 0, envPropStr)
	reg.Register("ENVPROP", 0, envPropStr)
	reg.Register("PROP-NAME-OK?", 0, func(f *interp.Frame, _ *interp.Registry) error {
		name, err := popStr(f)
		if err != nil {
			return err
		}
		ok := name != "" && name[0] != '/' && name[len(name)-1] != '/'
		return f.Push(boolVal(ok))
	})
	reg.Register("REFLIST_FIND", 0, reflistOp(reflistFind))
	reg.Register("REFLIST_ADD", 0, reflistOp(reflistAdd))
	reg.Register("REFLIST_DEL", 0, reflistOp(reflistDel))
}

func blessProp(bless bool) interp.Primitive {
	return func(f *interp.Frame, _ *interp.Registry) error {
		path, err := popStr(f)
		if err != nil {
			return err
		}
		id, err := popObj(f)
		if err != nil {
			return err
		}
		o, err := getObj(f, id)
		if err != nil {
			return err
		}
		flags, _ := o.Props.PropFlagsAt(path)
		if bless {
			flags |= store.PropBlessed
		} else {
			flags &^= store.PropBlessed
		}
		if !o.Props.SetPropFlags(path, flags) {
			return muckerr.Newf(muckerr.NotFound, "no such property %q", path)
		}
		f.Store.MarkDirty(id)
		return nil
	}
}

// visibleProp enforces spec.md §3.3's Private ("visible only to owner/
// wizards") and Hidden/SysOnly ("visible only to the engine") node
// flags against the reading frame's effective permission.
func visibleProp(o *store.Object, path string, perm int) bool {
	flags, ok := o.Props.PropFlagsAt(path)
	if !ok {
		return true
	}
	if flags&store.PropHidden != 0 {
		return false
	}
	if flags&store.PropPrivate != 0 && perm < 4 {
		return false
	}
	return true
}

func envPropStr(f *interp.Frame, _ *interp.Registry) error {
	path, err := popStr(f)
	if err != nil {
		return err
	}
	id, err := popObj(f)
	if err != nil {
		return err
	}
	cur := id
	for {
		o := f.Store.Get(cur)
		if o == nil {
			return f.Push(value.Str(""))
		}
		if v, ok := o.Props.GetProp(path); ok {
			return f.Push(value.Str(v.String()))
		}
		if o.Location == value.NONE {
			return f.Push(value.Str(""))
		}
		cur = o.Location
	}
}

// reflistOp wires a primitive shaped "obj path item" over a property
// holding a packed array of objects, the reference engine's idiom for
// an object's ignore/parent/whatever reference list.
func reflistOp(fn func(arr *value.SharedArray, item value.Value) (*value.SharedArray, value.Value)) interp.Primitive {
	return func(f *interp.Frame, _ *interp.Registry) error {
		item, err := f.Pop()
		if err != nil {
			return err
		}
		path, err := popStr(f)
		if err != nil {
			return err
		}
		id, err := popObj(f)
		if err != nil {
			return err
		}
		o, err := getObj(f, id)
		if err != nil {
			return err
		}
		existing, ok := o.Props.GetProp(path)
		var arr *value.SharedArray
		if ok && existing.Kind == value.KindArray {
			arr = existing.Arr
		} else {
			arr = value.NewPackedArray()
		}
		newArr, result := fn(arr, item)
		o.Props.SetProp(path, value.ArrVal(newArr), 0)
		f.Store.MarkDirty(id)
		return f.Push(result)
	}
}

func reflistFind(arr *value.SharedArray, item value.Value) (*value.SharedArray, value.Value) {
	for i, v := range arr.Vals() {
		if value.Compare(v, item) == 0 {
			return arr, value.Int(int32(i + 1))
		}
	}
	return arr, value.Int(0)
}

func reflistAdd(arr *value.SharedArray, item value.Value) (*value.SharedArray, value.Value) {
	for _, v := range arr.Vals() {
		if value.Compare(v, item) == 0 {
			return arr, value.Int(1)
		}
	}
	return arr.AppendItem(item), value.Int(1)
}

func reflistDel(arr *value.SharedArray, item value.Value) (*value.SharedArray, value.Value) {
	vals := arr.Vals()
	out := value.NewPackedArray()
	for _, v := range vals {
		if value.Compare(v, item) != 0 {
			out.AppendItem(v)
		}
	}
	return out, value.Int(1)
}
