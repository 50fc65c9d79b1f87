package primitive

import (
	"github.com/fuzzball-muck/muckcore/interp"
	"github.com/fuzzball-muck/muckcore/interp/muckerr"
	"github.com/fuzzball-muck/muckcore/mpi"
	"github.com/fuzzball-muck/muckcore/store"
	"github.com/fuzzball-muck/muckcore/value"
)

// mpiDispatch is the mpi.Dispatcher this package's PARSEMPI family
// expands templates against, wired by cmd/muckd via SetMpiDispatcher at
// startup (the same ambient-state-stamped-in convention as SetConfig/
// SetDescriptors — interp/primitive otherwise has no dependency on a
// running mpi.Context).
var mpiDispatch mpi.Dispatcher

// SetMpiDispatcher installs the Dispatcher (boundary.Notifier in
// practice) PARSEMPI/PARSEMPIBLESSED/PARSEPROP/PARSEPROPEX use to reach
// {force:}/{delay:}/{tell:}/{otell:} during expansion.
func SetMpiDispatcher(d mpi.Dispatcher) { mpiDispatch = d }

// registerMpi wires spec.md §4.D.4's PARSEMPI/PARSEMPIBLESSED (Control
// group's template-expansion entry points) and PARSEPROP/PARSEPROPEX
// (Props group: read a property and, if it looks like MPI, expand it).
func registerMpi(reg *interp.Registry) {
	reg.Register("PARSEMPI", 0, parseMpi(false))
	reg.Register("PARSEMPIBLESSED", 4, parseMpi(true))
	reg.Register("PARSEPROP", 0, parseProp(false))
	reg.Register("PARSEPROPEX", 0, parseProp(true))
}

func expandMpi(f *interp.Frame, src string, blessed bool) (string, error) {
	if mpiDispatch == nil {
		return src, nil
	}
	perm := mpi.Permission(0)
	if blessed {
		perm |= mpi.PermBlessed
	}
	maxCommands := 2048
	if cfg != nil {
		if v, err := cfg.Get("mpi_max_commands", 0); err == nil {
			maxCommands = int(v.Int)
		}
	}
	ctx := mpi.NewContext(f.Store, f.Instigator, f.Trigger, f.Globals[interp.GlobalLoc].Obj, perm, mpiDispatch, maxCommands)
	out, err := mpi.Expand(src, ctx)
	if err != nil {
		return "", muckerr.Newf(muckerr.ArgumentRange, "%v", err)
	}
	return out, nil
}

// parseMpi implements PARSEMPI/PARSEMPIBLESSED: "strval" -> expanded
// strval, run as the invoking frame's instigator (or, blessed, with the
// elevated PermBlessed mask).
func parseMpi(blessed bool) interp.Primitive {
	return func(f *interp.Frame, _ *interp.Registry) error {
		src, err := popStr(f)
		if err != nil {
			return err
		}
		out, err := expandMpi(f, src, blessed)
		if err != nil {
			return err
		}
		return f.Push(value.Str(out))
	}
}

// parseProp implements PARSEPROP/PARSEPROPEX: read a string property and
// expand it as MPI, honoring the node's Blessed flag the way a normal
// property read would (spec.md §4.E "a blessed expansion runs as if
// initiated by the property's blesser"). PARSEPROPEX additionally
// returns whether the property was set at all.
func parseProp(extended bool) interp.Primitive {
	return func(f *interp.Frame, _ *interp.Registry) error {
		path, err := popStr(f)
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
		if !visibleProp(o, path, f.Perm) {
			if extended {
				if pushErr := f.Push(boolVal(false)); pushErr != nil {
					return pushErr
				}
			}
			return f.Push(value.Str(""))
		}
		v, ok := o.Props.GetProp(path)
		blessed := false
		if flags, fok := o.Props.PropFlagsAt(path); fok {
			blessed = flags&store.PropBlessed != 0
		}
		src := ""
		if ok {
			src = v.String()
		}
		out, err := expandMpi(f, src, blessed)
		if err != nil {
			return err
		}
		if extended {
			if pushErr := f.Push(boolVal(ok)); pushErr != nil {
				return pushErr
			}
		}
		return f.Push(value.Str(out))
	}
}
