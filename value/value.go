// Package value implements the datum carried on the interpreter's data
// stack, in variables, and inside property values and array elements
// (spec.md §3.2). It also carries the two shared container types
// (SharedString, SharedArray) and the lock AST (BoolExpr) as pure data —
// parsing, evaluation and canonical serialisation of locks live in the
// sibling lock package to keep this package free of any dependency on
// the object store.
package value

import "fmt"

// Kind discriminates the tagged union held by a Value.
type Kind uint8

const (
	KindCleared Kind = iota
	KindPrimitive
	KindInt
	KindFloat
	KindObject
	KindGlobalVar
	KindLocalVar
	KindScopedVar
	KindString
	KindFunctionName
	KindLock
	KindAddress
	KindIf
	KindExec
	KindJmp
	KindArray
	KindMark
	KindTryHandler
)

func (k Kind) String() string {
	switch k {
	case KindCleared:
		return "CLEARED"
	case KindPrimitive:
		return "PRIMITIVE"
	case KindInt:
		return "INTEGER"
	case KindFloat:
		return "FLOAT"
	case KindObject:
		return "OBJECT"
	case KindGlobalVar:
		return "GLOBAL-VAR"
	case KindLocalVar:
		return "LOCAL-VAR"
	case KindScopedVar:
		return "VAR"
	case KindString:
		return "STRING"
	case KindFunctionName:
		return "FUNCTION-NAME"
	case KindLock:
		return "LOCK"
	case KindAddress:
		return "ADDRESS"
	case KindIf:
		return "IF"
	case KindExec:
		return "EXEC"
	case KindJmp:
		return "JMP"
	case KindArray:
		return "ARRAY"
	case KindMark:
		return "MARK"
	case KindTryHandler:
		return "TRY"
	default:
		return "UNKNOWN"
	}
}

// ObjectID addresses an object in the store (spec.md §3.1). Values below
// zero are the reserved symbolic references.
type ObjectID int32

const (
	// NONE is the sentinel "no object" reference.
	NONE ObjectID = -1
	// HOME is a symbolic reference resolved per-player at use site.
	HOME ObjectID = -2
	// AMBIGUOUS marks a match that resolved to more than one candidate.
	AMBIGUOUS ObjectID = -3
)

func (o ObjectID) String() string {
	switch o {
	case NONE:
		return "*NOTHING*"
	case HOME:
		return "*HOME*"
	case AMBIGUOUS:
		return "*AMBIGUOUS*"
	default:
		return fmt.Sprintf("#%d", int32(o))
	}
}

// ProgAddr pins a specific bytecode offset inside a specific program
// (spec.md §3.2). Used by the Address variant and by call-stack frames.
type ProgAddr struct {
	Prog ObjectID
	PC   int
}

// Value is the sum type carried on the data stack, in variables, and
// inside containers. Only the field(s) matching Kind are meaningful; the
// zero Value is KindCleared.
type Value struct {
	Kind Kind

	I   int32   // Int, Primitive opcode, GlobalVar/LocalVar/ScopedVar index, Mark id
	F   float64 // Float
	Obj ObjectID // Object

	Target int // If/Jmp/Exec jump target (bytecode offset); TryHandler catch pc

	Addr ProgAddr // Address

	Str *SharedString // String
	Arr *SharedArray  // Array
	Lck *BoolExpr     // Lock
}

// Cleared is the zero value, used to mark a stack slot or variable that
// holds nothing.
var Cleared = Value{Kind: KindCleared}

// Int constructs an integer Value.
func Int(i int32) Value { return Value{Kind: KindInt, I: i} }

// Float constructs a float Value.
func Float(f float64) Value { return Value{Kind: KindFloat, F: f} }

// Obj constructs an object-reference Value.
func Obj(id ObjectID) Value { return Value{Kind: KindObject, Obj: id} }

// Str constructs a string Value from a Go string.
func Str(s string) Value { return Value{Kind: KindString, Str: NewSharedString(s)} }

// ArrVal constructs an array Value from a SharedArray handle.
func ArrVal(a *SharedArray) Value { return Value{Kind: KindArray, Arr: a} }

// LockVal constructs a lock Value.
func LockVal(b *BoolExpr) Value { return Value{Kind: KindLock, Lck: b} }

// Mark constructs a stack-range marker Value (spec.md §4.D.4, "{ } MARK").
func Mark(id int32) Value { return Value{Kind: KindMark, I: id} }

// Primitive constructs a primitive-opcode Value.
func Primitive(op int32) Value { return Value{Kind: KindPrimitive, I: op} }

// IsFalsey implements the falseness rule of spec.md §4.D.2: int 0, float
// 0.0, the empty string, the empty array, an unset mark, the nil lock,
// and NONE are false; everything else is true.
func (v Value) IsFalsey() bool {
	switch v.Kind {
	case KindInt:
		return v.I == 0
	case KindFloat:
		return v.F == 0
	case KindString:
		return v.Str == nil || v.Str.Len() == 0
	case KindArray:
		return v.Arr == nil || v.Arr.Count() == 0
	case KindObject:
		return v.Obj == NONE
	case KindLock:
		return v.Lck == nil || v.Lck.IsTrue()
	case KindMark:
		return v.I == 0
	case KindCleared:
		return true
	default:
		return false
	}
}

// TypeName renders the name used in TypeMismatch error messages and by
// the MUF-visible type-introspection primitives.
func (v Value) TypeName() string { return v.Kind.String() }

// ApproxSize estimates the in-memory footprint of v in bytes, used by
// OBJMEM as an administrative sizing hint. It is deliberately rough —
// a fixed per-kind cost plus the length of variable-size payloads — not
// a byte-exact accounting of the underlying Go representation.
func (v Value) ApproxSize() int {
	switch v.Kind {
	case KindString:
		if v.Str == nil {
			return 0
		}
		return v.Str.Len()
	case KindArray:
		if v.Arr == nil {
			return 0
		}
		return v.Arr.Count() * 8
	default:
		return 8
	}
}

// String renders v as plain text: a string's own text, numbers in
// decimal or %g form, objects as #id, locks in canonical form. Besides
// logs, GETPROPSTR, lock prop: comparison and the dump's string encoding
// use it; the MUF formatting primitives (FMTSTRING etc.) live in
// interp/primitive.
func (v Value) String() string {
	switch v.Kind {
	case KindInt:
		return fmt.Sprintf("%d", v.I)
	case KindFloat:
		return fmt.Sprintf("%g", v.F)
	case KindObject:
		return v.Obj.String()
	case KindString:
		if v.Str == nil {
			return ""
		}
		return v.Str.Value()
	case KindArray:
		return fmt.Sprintf("{array:%d}", v.Arr.Count())
	case KindLock:
		return v.Lck.String()
	case KindMark:
		return "MARK"
	case KindCleared:
		return "*CLEARED*"
	default:
		return v.Kind.String()
	}
}
