package value

import "strings"

// BoolExprKind discriminates the lock AST (spec.md §3.4).
type BoolExprKind uint8

const (
	BoolAnd BoolExprKind = iota
	BoolOr
	BoolNot
	BoolObjectConst
	BoolProp
)

// BoolExpr is the lock expression tree: And(a,b) | Or(a,b) | Not(a) |
// ObjectConst(id) | Prop(name, value). It is reference-counted like
// SharedString/SharedArray in spirit (shared, immutable once built) but
// since Go values of this shape are small and immutable by construction,
// sharing is just pointer sharing — no explicit refcount is needed here,
// unlike SharedArray which must support in-place mutation.
type BoolExpr struct {
	Kind BoolExprKind

	A, B *BoolExpr // And/Or operands; A also used by Not

	Obj ObjectID // ObjectConst

	PropName string // Prop
	PropVal  string // Prop
}

// TrueBoolExpr is the distinguished nil expression that always evaluates
// true (spec.md §4.C "TRUE_BOOLEXP").
var TrueBoolExpr *BoolExpr = nil

// IsTrue reports whether this expression is the distinguished
// always-true nil lock.
func (b *BoolExpr) IsTrue() bool { return b == nil }

// And builds an And node.
func And(a, b *BoolExpr) *BoolExpr { return &BoolExpr{Kind: BoolAnd, A: a, B: b} }

// Or builds an Or node.
func Or(a, b *BoolExpr) *BoolExpr { return &BoolExpr{Kind: BoolOr, A: a, B: b} }

// Not builds a Not node.
func Not(a *BoolExpr) *BoolExpr { return &BoolExpr{Kind: BoolNot, A: a} }

// ObjectConst builds an object-reference leaf.
func ObjectConst(id ObjectID) *BoolExpr { return &BoolExpr{Kind: BoolObjectConst, Obj: id} }

// Prop builds a property-predicate leaf.
func Prop(name, val string) *BoolExpr {
	return &BoolExpr{Kind: BoolProp, PropName: name, PropVal: val}
}

// String renders the canonical "(A & B) | !C"-style infix form
// (spec.md §6 "Lock wire format"). This is both the form persisted on
// disk and the form accepted back by the lock parser.
func (b *BoolExpr) String() string {
	if b == nil {
		return ""
	}
	var sb strings.Builder
	b.write(&sb, 0)
	return sb.String()
}

// precedence levels, lowest binds loosest: Or(0) < And(1) < Not/leaf(2).
func (b *BoolExpr) prec() int {
	switch b.Kind {
	case BoolOr:
		return 0
	case BoolAnd:
		return 1
	default:
		return 2
	}
}

func (b *BoolExpr) write(sb *strings.Builder, parentPrec int) {
	if b == nil {
		return
	}
	needParen := b.prec() < parentPrec
	if needParen {
		sb.WriteByte('(')
	}
	switch b.Kind {
	case BoolAnd:
		b.A.write(sb, b.prec())
		sb.WriteString(" & ")
		b.B.write(sb, b.prec()+1)
	case BoolOr:
		b.A.write(sb, b.prec())
		sb.WriteString(" | ")
		b.B.write(sb, b.prec()+1)
	case BoolNot:
		sb.WriteByte('!')
		b.A.write(sb, 2)
	case BoolObjectConst:
		sb.WriteString(b.Obj.String())
	case BoolProp:
		sb.WriteString(b.PropName)
		sb.WriteByte(':')
		sb.WriteString(b.PropVal)
	}
	if needParen {
		sb.WriteByte(')')
	}
}
