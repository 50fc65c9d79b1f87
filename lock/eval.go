package lock

import (
	"strings"

	"github.com/fuzzball-muck/muckcore/value"
)

// EnvCheck controls whether Prop leaves walk up the candidate's
// environment chain, mirroring the lock_envcheck tunable (spec.md §6).
type EnvCheck bool

const (
	NoEnvCheck EnvCheck = false
	EnvCheckOn EnvCheck = true
)

// Evaluate implements spec.md §4.C Evaluate(expr, candidate, perms).
// It takes no permission argument, since no leaf kind is
// permission-gated; env selects whether Prop leaves walk up the
// candidate's environment chain.
func Evaluate(expr *value.BoolExpr, candidate Candidate, env EnvCheck) bool {
	if expr.IsTrue() {
		return true
	}
	switch expr.Kind {
	case value.BoolAnd:
		return Evaluate(expr.A, candidate, env) && Evaluate(expr.B, candidate, env)
	case value.BoolOr:
		return Evaluate(expr.A, candidate, env) || Evaluate(expr.B, candidate, env)
	case value.BoolNot:
		return !Evaluate(expr.A, candidate, env)
	case value.BoolObjectConst:
		return evalObjectConst(expr.Obj, candidate)
	case value.BoolProp:
		return evalProp(expr.PropName, expr.PropVal, candidate, bool(env))
	default:
		return false
	}
}

func evalObjectConst(id value.ObjectID, candidate Candidate) bool {
	if candidate.ID() == id {
		return true
	}
	if candidate.IsContainedBy(id) {
		return true
	}
	return candidate.MatchesReflist(id)
}

func evalProp(name, wantVal string, candidate Candidate, envCheck bool) bool {
	got, ok := candidate.PropString(name, envCheck)
	if !ok {
		return false
	}
	return strings.EqualFold(got, wantVal)
}

// Serialize returns the canonical parseable form of expr (spec.md §4.C
// "Serialise"). This is exactly value.BoolExpr.String(); the wrapper
// exists so callers reach it as lock.Serialize next to lock.Parse.
func Serialize(expr *value.BoolExpr) string { return expr.String() }
