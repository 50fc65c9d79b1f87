package primitive

import (
	"github.com/fuzzball-muck/muckcore/interp"
	"github.com/fuzzball-muck/muckcore/interp/muckerr"
	"github.com/fuzzball-muck/muckcore/value"
)

// errorBits orders the sticky float-fault flags of spec.md §3.5 so
// ERROR_NUM/ERROR_NAME/ERROR_BIT can address them by a stable index,
// matching the reference engine's fixed error-bit numbering.
var errorBits = []struct {
	bit  interp.ErrorMask
	name string
}{
	{interp.ErrDivZero, "DIV_ZERO"},
	{interp.ErrNaN, "NAN"},
	{interp.ErrImaginary, "IMAGINARY"},
	{interp.ErrFloatOverflow, "FBOUNDS"},
	{interp.ErrIntOverflow, "IBOUNDS"},
}

// registerErrors wires spec.md §4.D.4's Error-flags group, all trust 0.
// These never trap (spec.md §3.5): the mask is purely observational
// state a program polls and clears explicitly.
func registerErrors(reg *interp.Registry) {
	reg.Register("CLEAR", 0, func(f *interp.Frame, _ *interp.Registry) error {
		f.ErrMask = 0
		return nil
	})
	reg.Register("CLEAR_ERROR", 0, func(f *interp.Frame, _ *interp.Registry) error {
		f.ErrMask = 0
		return nil
	})
	reg.Register("SET_ERROR", 0, func(f *interp.Frame, _ *interp.Registry) error {
		name, err := popStr(f)
		if err != nil {
			return err
		}
		for _, eb := range errorBits {
			if eb.name == name {
				f.ErrMask |= eb.bit
				return nil
			}
		}
		return muckerr.Newf(muckerr.ArgumentRange, "unknown error flag %q", name)
	})
	reg.Register("ERROR?", 0, func(f *interp.Frame, _ *interp.Registry) error {
		return f.Push(boolVal(f.ErrMask != 0))
	})
	reg.Register("IS_SET?", 0, func(f *interp.Frame, _ *interp.Registry) error {
		name, err := popStr(f)
		if err != nil {
			return err
		}
		for _, eb := range errorBits {
			if eb.name == name {
				return f.Push(boolVal(f.ErrMask&eb.bit != 0))
			}
		}
		return muckerr.Newf(muckerr.ArgumentRange, "unknown error flag %q", name)
	})
	reg.Register("ERROR_STR", 0, func(f *interp.Frame, _ *interp.Registry) error {
		n, err := popInt(f)
		if err != nil {
			return err
		}
		if int(n) < 0 || int(n) >= len(errorBits) {
			return muckerr.New(muckerr.ArgumentRange, "error bit index out of range")
		}
		return f.Push(value.Str(errorBits[n].name))
	})
	reg.Register("ERROR_NAME", 0, func(f *interp.Frame, _ *interp.Registry) error {
		n, err := popInt(f)
		if err != nil {
			return err
		}
		if int(n) < 0 || int(n) >= len(errorBits) {
			return muckerr.New(muckerr.ArgumentRange, "error bit index out of range")
		}
		return f.Push(value.Str(errorBits[n].name))
	})
	reg.Register("ERROR_BIT", 0, func(f *interp.Frame, _ *interp.Registry) error {
		name, err := popStr(f)
		if err != nil {
			return err
		}
		for i, eb := range errorBits {
			if eb.name == name {
				return f.Push(value.Int(int32(i)))
			}
		}
		return muckerr.Newf(muckerr.ArgumentRange, "unknown error flag %q", name)
	})
	reg.Register("ERROR_NUM", 0, func(f *interp.Frame, _ *interp.Registry) error {
		return f.Push(value.Int(int32(f.ErrMask)))
	})
}
