package store

import "github.com/fuzzball-muck/muckcore/value"

// Candidate adapts a live Table object to the lock.Candidate interface
// (spec.md §4.C Evaluate), so the lock package can test a subject
// against a BoolExpr without importing store.
type Candidate struct {
	t  *Table
	id value.ObjectID
}

// AsCandidate wraps id for lock evaluation.
func (t *Table) AsCandidate(id value.ObjectID) *Candidate { return &Candidate{t: t, id: id} }

// ID returns the candidate's own object id.
func (c *Candidate) ID() value.ObjectID { return c.id }

// IsContainedBy reports whether the candidate's own Location is container.
func (c *Candidate) IsContainedBy(container value.ObjectID) bool {
	o := c.t.Get(c.id)
	return o != nil && o.Location == container
}

// MatchesReflist implements the kind-dependent ObjectConst reflist rule:
// a player leaf matches anything in the player's contents, an exit leaf
// matches anything it is linked to as a destination, and any other leaf
// matches anything it owns.
func (c *Candidate) MatchesReflist(id value.ObjectID) bool {
	leaf := c.t.Get(id)
	if leaf == nil {
		return false
	}
	switch leaf.Kind {
	case KindPlayer:
		return c.IsContainedBy(id)
	case KindExit:
		for _, dest := range leaf.Exit.Destinations {
			if dest == c.id {
				return true
			}
		}
		return false
	default:
		o := c.t.Get(c.id)
		return o != nil && o.Owner == id
	}
}

// PropString looks up path on the candidate, stringifying the stored
// value the way the lock grammar's prop:value leaf compares it. If
// envCheck is set and the candidate itself has no such property, the
// lookup walks up the location chain (tunable lock_envcheck).
func (c *Candidate) PropString(path string, envCheck bool) (string, bool) {
	cur := c.id
	for {
		o := c.t.Get(cur)
		if o == nil {
			return "", false
		}
		if v, ok := o.Props.GetProp(path); ok {
			return v.String(), true
		}
		if !envCheck || o.Location == value.NONE {
			return "", false
		}
		cur = o.Location
	}
}

// EnvResolver adapts a Table plus a (me, here, registered-refs) context
// to lock.Resolver, for parsing locks typed by a specific player in a
// specific room.
type EnvResolver struct {
	T          *Table
	MePlayer   value.ObjectID
	HereRoom   value.ObjectID
	Registered map[string]value.ObjectID // $name -> id, owner-scoped _reg/ properties
}

// ResolvePlayer resolves *name via the table's login index.
func (r *EnvResolver) ResolvePlayer(name string) (value.ObjectID, bool) { return r.T.LookupPlayer(name) }

// ResolveRegistered resolves $name via the caller-supplied registered map.
func (r *EnvResolver) ResolveRegistered(name string) (value.ObjectID, bool) {
	id, ok := r.Registered[name]
	return id, ok
}

// Me returns the parsing player.
func (r *EnvResolver) Me() value.ObjectID { return r.MePlayer }

// Here returns the parsing player's room.
func (r *EnvResolver) Here() value.ObjectID { return r.HereRoom }
