package primitive

import (
	"github.com/fuzzball-muck/muckcore/interp"
	"github.com/fuzzball-muck/muckcore/interp/muckerr"
	"github.com/fuzzball-muck/muckcore/value"
)

// registerArithmetic wires + - * / % ABS SIGN ++ -- (spec.md §4.D.4
// "Arithmetic", trust 0). Mixed int/float operands promote to float;
// integer / and % by zero fail rather than setting the float error mask,
// since integer division has no IEEE sentinel result to fall back to.
func registerArithmetic(reg *interp.Registry) {
	reg.Register("+", 0, binOp(func(a, b value.Value) (value.Value, error) {
		if a.Kind == value.KindInt && b.Kind == value.KindInt {
			return value.Int(a.I + b.I), nil
		}
		return value.Float(asF(a) + asF(b)), nil
	}))
	reg.Register("-", 0, binOp(func(a, b value.Value) (value.Value, error) {
		if a.Kind == value.KindInt && b.Kind == value.KindInt {
			return value.Int(a.I - b.I), nil
		}
		return value.Float(asF(a) - asF(b)), nil
	}))
	reg.Register("*", 0, binOp(func(a, b value.Value) (value.Value, error) {
		if a.Kind == value.KindInt && b.Kind == value.KindInt {
			return value.Int(a.I * b.I), nil
		}
		return value.Float(asF(a) * asF(b)), nil
	}))
	reg.Register("/", 0, func(f *interp.Frame, _ *interp.Registry) error {
		b, err := f.Pop()
		if err != nil {
			return err
		}
		a, err := f.Pop()
		if err != nil {
			return err
		}
		if a.Kind == value.KindInt && b.Kind == value.KindInt {
			if b.I == 0 {
				return muckerr.New(muckerr.ArgumentRange, "division by zero")
			}
			return f.Push(value.Int(a.I / b.I))
		}
		fb := asF(b)
		if fb == 0 {
			f.ErrMask |= interp.ErrDivZero
			return f.Push(value.Float(0))
		}
		return f.Push(value.Float(asF(a) / fb))
	})
	reg.Register("%", 0, func(f *interp.Frame, _ *interp.Registry) error {
		b, err := popInt(f)
		if err != nil {
			return err
		}
		a, err := popInt(f)
		if err != nil {
			return err
		}
		if b == 0 {
			return muckerr.New(muckerr.ArgumentRange, "modulo by zero")
		}
		return f.Push(value.Int(a % b))
	})
	reg.Register("ABS", 0, unaryNum(func(v value.Value) value.Value {
		if v.Kind == value.KindInt {
			if v.I < 0 {
				return value.Int(-v.I)
			}
			return v
		}
		if v.F < 0 {
			return value.Float(-v.F)
		}
		return v
	}))
	reg.Register("SIGN", 0, unaryNum(func(v value.Value) value.Value {
		n := asF(v)
		switch {
		case n > 0:
			return value.Int(1)
		case n < 0:
			return value.Int(-1)
		default:
			return value.Int(0)
		}
	}))
	reg.Register("++", 0, unaryNum(func(v value.Value) value.Value {
		if v.Kind == value.KindInt {
			return value.Int(v.I + 1)
		}
		return value.Float(v.F + 1)
	}))
	reg.Register("--", 0, unaryNum(func(v value.Value) value.Value {
		if v.Kind == value.KindInt {
			return value.Int(v.I - 1)
		}
		return value.Float(v.F - 1)
	}))
}

func asF(v value.Value) float64 {
	if v.Kind == value.KindInt {
		return float64(v.I)
	}
	return v.F
}

func binOp(fn func(a, b value.Value) (value.Value, error)) interp.Primitive {
	return func(f *interp.Frame, _ *interp.Registry) error {
		b, err := f.Pop()
		if err != nil {
			return err
		}
		a, err := f.Pop()
		if err != nil {
			return err
		}
		if !isNumeric(a) || !isNumeric(b) {
			return muckerr.TypeMismatchf("number", a.TypeName()+"/"+b.TypeName())
		}
		r, err := fn(a, b)
		if err != nil {
			return err
		}
		return f.Push(r)
	}
}

func unaryNum(fn func(value.Value) value.Value) interp.Primitive {
	return func(f *interp.Frame, _ *interp.Registry) error {
		v, err := f.Pop()
		if err != nil {
			return err
		}
		if !isNumeric(v) {
			return muckerr.TypeMismatchf("number", v.TypeName())
		}
		return f.Push(fn(v))
	}
}

func isNumeric(v value.Value) bool { return v.Kind == value.KindInt || v.Kind == value.KindFloat }

// registerBitwise wires BITAND BITOR BITXOR BITSHIFT AND OR NOT XOR
// (spec.md §4.D.4 "Bitwise / logical", trust 0). AND/OR/NOT/XOR obey
// §4.D.2 falseness rather than operating bit-by-bit.
func registerBitwise(reg *interp.Registry) {
	reg.Register("BITAND", 0, intBinOp(func(a, b int32) int32 { return a & b }))
	reg.Register("BITOR", 0, intBinOp(func(a, b int32) int32 { return a | b }))
	reg.Register("BITXOR", 0, intBinOp(func(a, b int32) int32 { return a ^ b }))
	reg.Register("BITSHIFT", 0, func(f *interp.Frame, _ *interp.Registry) error {
		n, err := popInt(f)
		if err != nil {
			return err
		}
		v, err := popInt(f)
		if err != nil {
			return err
		}
		if n >= 0 {
			return f.Push(value.Int(v << uint(n)))
		}
		return f.Push(value.Int(v >> uint(-n)))
	})
	reg.Register("AND", 0, func(f *interp.Frame, _ *interp.Registry) error {
		b, err := f.Pop()
		if err != nil {
			return err
		}
		a, err := f.Pop()
		if err != nil {
			return err
		}
		return f.Push(boolVal(!a.IsFalsey() && !b.IsFalsey()))
	})
	reg.Register("OR", 0, func(f *interp.Frame, _ *interp.Registry) error {
		b, err := f.Pop()
		if err != nil {
			return err
		}
		a, err := f.Pop()
		if err != nil {
			return err
		}
		return f.Push(boolVal(!a.IsFalsey() || !b.IsFalsey()))
	})
	reg.Register("NOT", 0, func(f *interp.Frame, _ *interp.Registry) error {
		v, err := f.Pop()
		if err != nil {
			return err
		}
		return f.Push(boolVal(v.IsFalsey()))
	})
	reg.Register("XOR", 0, func(f *interp.Frame, _ *interp.Registry) error {
		b, err := f.Pop()
		if err != nil {
			return err
		}
		a, err := f.Pop()
		if err != nil {
			return err
		}
		return f.Push(boolVal(!a.IsFalsey() != !b.IsFalsey()))
	})
}

func intBinOp(fn func(a, b int32) int32) interp.Primitive {
	return func(f *interp.Frame, _ *interp.Registry) error {
		b, err := popInt(f)
		if err != nil {
			return err
		}
		a, err := popInt(f)
		if err != nil {
			return err
		}
		return f.Push(value.Int(fn(a, b)))
	}
}

// registerComparison wires < > = <= >= != (spec.md §4.D.4 "Comparison",
// trust 0), delegating to value.Compare's total order (spec.md §4.A).
func registerComparison(reg *interp.Registry) {
	cmp := func(ok func(int) bool) interp.Primitive {
		return func(f *interp.Frame, _ *interp.Registry) error {
			b, err := f.Pop()
			if err != nil {
				return err
			}
			a, err := f.Pop()
			if err != nil {
				return err
			}
			return f.Push(boolVal(ok(value.Compare(a, b))))
		}
	}
	reg.Register("<", 0, cmp(func(c int) bool { return c < 0 }))
	reg.Register(">", 0, cmp(func(c int) bool { return c > 0 }))
	reg.Register("=", 0, cmp(func(c int) bool { return c == 0 }))
	reg.Register("<=", 0, cmp(func(c int) bool { return c <= 0 }))
	reg.Register(">=", 0, cmp(func(c int) bool { return c >= 0 }))
	reg.Register("!=", 0, cmp(func(c int) bool { return c != 0 }))
}
