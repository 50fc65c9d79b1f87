// Package lock parses, evaluates and serialises the boolean lock
// expressions of spec.md §3.4/§4.C. It depends only on the value
// package's BoolExpr/ObjectID/Value types plus two small interfaces
// (Resolver, Candidate) supplied by the store, keeping the grammar and
// evaluator free of any direct dependency on the object table.
package lock

import "github.com/fuzzball-muck/muckcore/value"

// Resolver resolves the name-bearing leaf forms (*name, $regname, me,
// here) against whatever object store and registered-reference table
// the caller has in scope.
type Resolver interface {
	ResolvePlayer(name string) (value.ObjectID, bool)
	ResolveRegistered(name string) (value.ObjectID, bool)
	Me() value.ObjectID
	Here() value.ObjectID
}

// Candidate is the (candidate, perms, descr) subject of spec.md §4.C
// Evaluate. The store implements this per object kind so the lock
// evaluator itself stays kind-agnostic.
type Candidate interface {
	// ID is the candidate's own object id.
	ID() value.ObjectID
	// IsContainedBy reports whether the candidate is (transitively, for
	// ObjectConst purposes: directly) inside container.
	IsContainedBy(container value.ObjectID) bool
	// MatchesReflist reports whether the candidate satisfies the
	// kind-dependent reflist rule for an ObjectConst(id) leaf: id is a
	// player and candidate is in id's contents, id is an exit linked to
	// candidate, or id is candidate's owner.
	MatchesReflist(id value.ObjectID) bool
	// PropString looks up path on the candidate, converting the stored
	// value to its string rendering (spec.md §3.5). If envCheck is true
	// and the candidate has no such property, the lookup walks up the
	// environment (location) chain (tunable lock_envcheck).
	PropString(path string, envCheck bool) (string, bool)
}
