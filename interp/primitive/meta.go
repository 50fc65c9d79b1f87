package primitive

import (
	"github.com/fuzzball-muck/muckcore/interp"
	"github.com/fuzzball-muck/muckcore/interp/muckerr"
	"github.com/fuzzball-muck/muckcore/internal/config"
	"github.com/fuzzball-muck/muckcore/value"
)

// engineVersion is the string VERSION reports; cmd/muckd stamps the real
// build version in here via SetVersion at process start.
var engineVersion = "muckcore-dev"

// SetVersion overrides the string VERSION reports, called once by
// cmd/muckd with the build's actual version string.
func SetVersion(v string) { engineVersion = v }

// cfg is the tuned-parameter registry SYSPARM/SETSYSPARM/SYSPARM_ARRAY
// read and write. Wired by cmd/muckd via SetConfig once at startup,
// mirroring how engineVersion is stamped in.
var cfg *config.Registry

// SetConfig installs the tuned-parameter registry this package's
// SYSPARM family consults.
func SetConfig(r *config.Registry) { cfg = r }

// maxForceLevel is FORCE's hard pre-check ceiling (spec.md §9 "the force
// level is bounded at 1 by default"), read from the tuned-parameter
// registry's max_force_level at trust 4 (an administrative limit) so an
// operator can raise it without a rebuild. Falls back to the spec's
// documented default when no registry is wired (e.g. in unit tests that
// never call SetConfig).
func maxForceLevel() int {
	if cfg == nil {
		return 1
	}
	v, err := cfg.Get("max_force_level", 4)
	if err != nil {
		return 1
	}
	return int(v.Int)
}

// registerMeta wires spec.md §4.D.4's Meta group (DBTOP lives in db.go's
// registerDBRead, not here, since it is also a DB-read primitive).
func registerMeta(reg *interp.Registry) {
	reg.Register("VERSION", 0, func(f *interp.Frame, _ *interp.Registry) error {
		return f.Push(value.Str(engineVersion))
	})
	reg.Register("PROG", 0, func(f *interp.Frame, _ *interp.Registry) error {
		return f.Push(value.Obj(f.OwningProgram))
	})
	reg.Register("TRIG", 0, func(f *interp.Frame, _ *interp.Registry) error {
		return f.Push(value.Obj(f.Trigger))
	})
	reg.Register("CALLER", 0, func(f *interp.Frame, _ *interp.Registry) error {
		if len(f.Sys) == 0 {
			return f.Push(value.Obj(f.OwningProgram))
		}
		return f.Push(value.Obj(f.OwningProgram))
	})
	reg.Register("CMD", 0, func(f *interp.Frame, _ *interp.Registry) error {
		return f.Push(f.Globals[interp.GlobalCommand])
	})
	reg.Register("STATS", 0, func(f *interp.Frame, _ *interp.Registry) error {
		return f.Push(value.Int(int32(f.Store.Top())))
	})
	reg.Register("TIMESTAMPS", 0, func(f *interp.Frame, _ *interp.Registry) error {
		id, err := popObj(f)
		if err != nil {
			return err
		}
		o, err := getObj(f, id)
		if err != nil {
			return err
		}
		if err := f.Push(value.Int(int32(o.CreatedAt))); err != nil {
			return err
		}
		if err := f.Push(value.Int(int32(o.LastModifiedAt))); err != nil {
			return err
		}
		return f.Push(value.Int(int32(o.LastUsedAt)))
	})
	reg.Register("CANCALL?", 0, func(f *interp.Frame, _ *interp.Registry) error {
		name, err := popStr(f)
		if err != nil {
			return err
		}
		id, err := popObj(f)
		if err != nil {
			return err
		}
		o, err := getObj(f, id)
		if err != nil {
			return err
		}
		_, ok := o.Program.PublicEntries[name]
		return f.Push(boolVal(ok))
	})
	reg.Register("FORCE", 1, func(f *interp.Frame, r *interp.Registry) error {
		cmdStr, err := popStr(f)
		if err != nil {
			return err
		}
		id, err := popObj(f)
		if err != nil {
			return err
		}
		// spec.md §9: the force-level ceiling is a hard pre-check (the
		// redesigned behavior; the legacy engine checked this late), so
		// no side effect runs once the ceiling is hit.
		if f.ForceDepth >= maxForceLevel() {
			return muckerr.New(muckerr.LimitExceeded, "force recursion limit exceeded")
		}
		f.ForceDepth++
		defer func() { f.ForceDepth-- }()
		if err := r.Disp().Force(id, cmdStr); err != nil {
			return muckerr.Newf(muckerr.IOError, "%v", err)
		}
		return nil
	})
	reg.Register("FORCE_LEVEL", 0, func(f *interp.Frame, _ *interp.Registry) error {
		return f.Push(value.Int(int32(f.ForceDepth)))
	})
	reg.Register("DEBUGGER_BREAK", 0, func(f *interp.Frame, _ *interp.Registry) error {
		return nil
	})
	reg.Register("ABORT", 0, func(f *interp.Frame, _ *interp.Registry) error {
		msg, err := popStr(f)
		if err != nil {
			return err
		}
		return muckerr.New(muckerr.InternalInvariant, msg)
	})
	reg.Register("SYSPARM", 0, func(f *interp.Frame, _ *interp.Registry) error {
		name, err := popStr(f)
		if err != nil {
			return err
		}
		if cfg == nil {
			return muckerr.New(muckerr.NotFound, "no tuned-parameter registry configured")
		}
		v, cfgErr := cfg.Get(name, f.Perm)
		if cfgErr != nil {
			return muckerr.Newf(muckerr.PermissionDenied, "%v", cfgErr)
		}
		return f.Push(value.Str(v.Str))
	})
	reg.Register("SETSYSPARM", 4, func(f *interp.Frame, _ *interp.Registry) error {
		raw, err := popStr(f)
		if err != nil {
			return err
		}
		name, err := popStr(f)
		if err != nil {
			return err
		}
		if cfg == nil {
			return muckerr.New(muckerr.NotFound, "no tuned-parameter registry configured")
		}
		if cfgErr := cfg.Set(name, raw, f.Perm); cfgErr != nil {
			return muckerr.Newf(muckerr.PermissionDenied, "%v", cfgErr)
		}
		return nil
	})
	reg.Register("SYSPARM_ARRAY", 4, func(f *interp.Frame, _ *interp.Registry) error {
		if cfg == nil {
			return f.Push(value.ArrVal(value.NewPackedArray()))
		}
		names := cfg.Names()
		vals := make([]value.Value, len(names))
		for i, n := range names {
			vals[i] = value.Str(n)
		}
		return f.Push(value.ArrVal(value.NewPackedArrayFrom(vals)))
	})
}
