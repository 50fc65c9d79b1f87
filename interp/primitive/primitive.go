// Package primitive implements the dispatch bodies named in spec.md
// §4.D.4's primitive table: one Go function per opcode, registered into
// an interp.Registry by Register. Each function reads its arguments off
// the frame's data stack, does its effect, and leaves its result(s),
// returning a *muckerr.Error (never panicking) on failure so interp's
// TRY/CATCH unwind (spec.md §4.D.3) sees a well-formed cause.
//
// Grounded on the teacher's runtime/executor opcode-dispatch table
// (one function per IR op, registered into a map at init time) and on
// pkgs/execution's primitive-group layout (arithmetic/stack/control
// kept as separate files the way the teacher separates its decorator
// families).
package primitive

import (
	"github.com/fuzzball-muck/muckcore/interp"
	"github.com/fuzzball-muck/muckcore/interp/muckerr"
	"github.com/fuzzball-muck/muckcore/value"
)

// Register installs every primitive this package implements into reg.
// Called once at process start after interp.NewRegistry.
func Register(reg *interp.Registry) {
	registerArithmetic(reg)
	registerBitwise(reg)
	registerComparison(reg)
	registerStack(reg)
	registerStrings(reg)
	registerFloat(reg)
	registerDBRead(reg)
	registerDBWrite(reg)
	registerProps(reg)
	registerArrays(reg)
	registerScheduling(reg)
	registerIO(reg)
	registerLocks(reg)
	registerErrors(reg)
	registerMeta(reg)
	registerConnection(reg)
	registerMpi(reg)
}

func popInt(f *interp.Frame) (int32, error) {
	v, err := f.Pop()
	if err != nil {
		return 0, err
	}
	if v.Kind != value.KindInt {
		return 0, muckerr.TypeMismatchf("integer", v.TypeName())
	}
	return v.I, nil
}

func popFloatLike(f *interp.Frame) (float64, error) {
	v, err := f.Pop()
	if err != nil {
		return 0, err
	}
	switch v.Kind {
	case value.KindFloat:
		return v.F, nil
	case value.KindInt:
		return float64(v.I), nil
	default:
		return 0, muckerr.TypeMismatchf("number", v.TypeName())
	}
}

func popStr(f *interp.Frame) (string, error) {
	v, err := f.Pop()
	if err != nil {
		return "", err
	}
	if v.Kind != value.KindString {
		return "", muckerr.TypeMismatchf("string", v.TypeName())
	}
	return v.Str.Value(), nil
}

func popObj(f *interp.Frame) (value.ObjectID, error) {
	v, err := f.Pop()
	if err != nil {
		return value.NONE, err
	}
	if v.Kind != value.KindObject {
		return value.NONE, muckerr.TypeMismatchf("object", v.TypeName())
	}
	return v.Obj, nil
}

func popArr(f *interp.Frame) (*value.SharedArray, error) {
	v, err := f.Pop()
	if err != nil {
		return nil, err
	}
	if v.Kind != value.KindArray {
		return nil, muckerr.TypeMismatchf("array", v.TypeName())
	}
	return v.Arr, nil
}

func boolVal(b bool) value.Value {
	if b {
		return value.Int(1)
	}
	return value.Int(0)
}
