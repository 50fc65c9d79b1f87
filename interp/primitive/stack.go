package primitive

import (
	"github.com/fuzzball-muck/muckcore/interp"
	"github.com/fuzzball-muck/muckcore/interp/muckerr"
	"github.com/fuzzball-muck/muckcore/value"
)

// registerStack wires the stack-manipulation family of spec.md §4.D.4:
// DUP SWAP POP ROT OVER PICK PUT ROTATE DEPTH REVERSE POPN DUPN LDUP
// LREVERSE { } MARK FINDMARK. All trust 0.
func registerStack(reg *interp.Registry) {
	reg.Register("DUP", 0, func(f *interp.Frame, _ *interp.Registry) error {
		v, err := f.Peek()
		if err != nil {
			return err
		}
		return f.Push(v)
	})
	reg.Register("SWAP", 0, func(f *interp.Frame, _ *interp.Registry) error {
		b, err := f.Pop()
		if err != nil {
			return err
		}
		a, err := f.Pop()
		if err != nil {
			return err
		}
		if err := f.Push(b); err != nil {
			return err
		}
		return f.Push(a)
	})
	reg.Register("POP", 0, func(f *interp.Frame, _ *interp.Registry) error {
		_, err := f.Pop()
		return err
	})
	reg.Register("OVER", 0, func(f *interp.Frame, _ *interp.Registry) error {
		b, err := f.Pop()
		if err != nil {
			return err
		}
		a, err := f.Pop()
		if err != nil {
			return err
		}
		if err := f.Push(a); err != nil {
			return err
		}
		if err := f.Push(b); err != nil {
			return err
		}
		return f.Push(a)
	})
	reg.Register("ROT", 0, func(f *interp.Frame, _ *interp.Registry) error {
		c, err := f.Pop()
		if err != nil {
			return err
		}
		b, err := f.Pop()
		if err != nil {
			return err
		}
		a, err := f.Pop()
		if err != nil {
			return err
		}
		if err := f.Push(b); err != nil {
			return err
		}
		if err := f.Push(c); err != nil {
			return err
		}
		return f.Push(a)
	})
	reg.Register("DEPTH", 0, func(f *interp.Frame, _ *interp.Registry) error {
		return f.Push(value.Int(int32(f.Depth())))
	})
	reg.Register("PICK", 0, func(f *interp.Frame, _ *interp.Registry) error {
		n, err := popInt(f)
		if err != nil {
			return err
		}
		if n < 1 || int(n) > f.Depth() {
			return muckerr.New(muckerr.ArgumentRange, "PICK index out of range")
		}
		v := f.Data[f.Depth()-int(n)]
		return f.Push(v)
	})
	reg.Register("PUT", 0, func(f *interp.Frame, _ *interp.Registry) error {
		n, err := popInt(f)
		if err != nil {
			return err
		}
		v, err := f.Pop()
		if err != nil {
			return err
		}
		if n < 1 || int(n) > f.Depth() {
			return muckerr.New(muckerr.ArgumentRange, "PUT index out of range")
		}
		f.Data[f.Depth()-int(n)] = v
		return nil
	})
	reg.Register("ROTATE", 0, func(f *interp.Frame, _ *interp.Registry) error {
		n, err := popInt(f)
		if err != nil {
			return err
		}
		if n < 1 || int(n) > f.Depth() {
			return muckerr.New(muckerr.ArgumentRange, "ROTATE index out of range")
		}
		idx := f.Depth() - int(n)
		v := f.Data[idx]
		f.Data = append(f.Data[:idx], f.Data[idx+1:]...)
		return f.Push(v)
	})
	reg.Register("REVERSE", 0, func(f *interp.Frame, _ *interp.Registry) error {
		n, err := popInt(f)
		if err != nil {
			return err
		}
		if n < 0 || int(n) > f.Depth() {
			return muckerr.New(muckerr.ArgumentRange, "REVERSE count out of range")
		}
		start := f.Depth() - int(n)
		seg := f.Data[start:]
		for i, j := 0, len(seg)-1; i < j; i, j = i+1, j-1 {
			seg[i], seg[j] = seg[j], seg[i]
		}
		return nil
	})
	reg.Register("POPN", 0, func(f *interp.Frame, _ *interp.Registry) error {
		n, err := popInt(f)
		if err != nil {
			return err
		}
		if n < 0 || int(n) > f.Depth() {
			return muckerr.New(muckerr.ArgumentRange, "POPN count out of range")
		}
		f.Data = f.Data[:f.Depth()-int(n)]
		return nil
	})
	reg.Register("DUPN", 0, func(f *interp.Frame, _ *interp.Registry) error {
		n, err := popInt(f)
		if err != nil {
			return err
		}
		if n < 0 || int(n) > f.Depth() {
			return muckerr.New(muckerr.ArgumentRange, "DUPN count out of range")
		}
		seg := append([]value.Value(nil), f.Data[f.Depth()-int(n):]...)
		for _, v := range seg {
			if err := f.Push(v); err != nil {
				return err
			}
		}
		return nil
	})
	reg.Register("MARK", 0, func(f *interp.Frame, _ *interp.Registry) error {
		return f.Push(value.Mark(int32(f.Depth())))
	})
	reg.Register("FINDMARK", 0, func(f *interp.Frame, _ *interp.Registry) error {
		for i := f.Depth() - 1; i >= 0; i-- {
			if f.Data[i].Kind == value.KindMark {
				return f.Push(value.Int(int32(f.Depth() - i)))
			}
		}
		return muckerr.New(muckerr.NotFound, "no MARK found on stack")
	})
	reg.Register("LDUP", 0, func(f *interp.Frame, _ *interp.Registry) error {
		for i := f.Depth() - 1; i >= 0; i-- {
			if f.Data[i].Kind == value.KindMark {
				seg := append([]value.Value(nil), f.Data[i+1:]...)
				for _, v := range seg {
					if err := f.Push(v); err != nil {
						return err
					}
				}
				return nil
			}
		}
		return muckerr.New(muckerr.NotFound, "LDUP with no preceding MARK")
	})
	reg.Register("LREVERSE", 0, func(f *interp.Frame, _ *interp.Registry) error {
		for i := f.Depth() - 1; i >= 0; i-- {
			if f.Data[i].Kind == value.KindMark {
				seg := f.Data[i+1:]
				for a, b := 0, len(seg)-1; a < b; a, b = a+1, b-1 {
					seg[a], seg[b] = seg[b], seg[a]
				}
				return nil
			}
		}
		return muckerr.New(muckerr.NotFound, "LREVERSE with no preceding MARK")
	})
	reg.Register("{", 0, func(f *interp.Frame, _ *interp.Registry) error {
		return f.Push(value.Mark(int32(f.Depth())))
	})
	reg.Register("}", 0, func(f *interp.Frame, _ *interp.Registry) error {
		for i := f.Depth() - 1; i >= 0; i-- {
			if f.Data[i].Kind == value.KindMark {
				items := append([]value.Value(nil), f.Data[i+1:]...)
				f.Data = f.Data[:i]
				return f.Push(value.ArrVal(value.NewPackedArrayFrom(items)))
			}
		}
		return muckerr.New(muckerr.NotFound, "'}' with no matching '{'")
	})
}
