package boundary

import "github.com/fuzzball-muck/muckcore/internal/config"

// Tunables is the boundary surface's read access to the tuned-parameter
// registry (spec.md §4.G lists "tune parameters" as part of the
// boundary's responsibility alongside match/notify/ignore — the engine
// core owns the registry itself via internal/config, this just exposes
// the subset the front-end and command dispatcher are allowed to read
// without reaching into internal/config directly).
type Tunables struct {
	reg *config.Registry
}

func NewTunables(reg *config.Registry) *Tunables { return &Tunables{reg: reg} }

// String reads a string-kind tuned parameter at trust level trust,
// returning "" if unset or inaccessible — the boundary surface degrades
// quietly rather than erroring, since a misconfigured banner parameter
// should not break login.
func (t *Tunables) String(name string, trust int) string {
	v, err := t.reg.Get(name, trust)
	if err != nil {
		return ""
	}
	return v.Str
}

// Bool reads a bool-kind tuned parameter at trust level trust.
func (t *Tunables) Bool(name string, trust int) bool {
	v, err := t.reg.Get(name, trust)
	if err != nil {
		return false
	}
	return v.Bool
}
