package primitive

import (
	"github.com/fuzzball-muck/muckcore/boundary"
	"github.com/fuzzball-muck/muckcore/interp"
	"github.com/fuzzball-muck/muckcore/interp/muckerr"
	"github.com/fuzzball-muck/muckcore/value"
)

// descs is the live descriptor table the Connection group reads,
// wired by cmd/muckd via SetDescriptors at startup. interp/primitive
// otherwise has no dependency on boundary, keeping the dependency
// direction the same as config/version (ambient state stamped in once,
// not threaded through every Frame).
var descs *boundary.Table

// SetDescriptors installs the connection-metadata table this package's
// Connection primitive group reads and writes.
func SetDescriptors(t *boundary.Table) { descs = t }

func requireDescs() error {
	if descs == nil {
		return muckerr.New(muckerr.NotFound, "no descriptor table configured")
	}
	return nil
}

// registerConnection wires spec.md §4.D.4's Connection group against
// boundary.Table, restored per SPEC_FULL.md's `p_connects.h` note: the
// primitive table is specified by spec.md, the descriptor table it reads
// is supplied by boundary.
func registerConnection(reg *interp.Registry) {
	reg.Register("AWAKE?", 0, func(f *interp.Frame, _ *interp.Registry) error {
		id, err := popObj(f)
		if err != nil {
			return err
		}
		if err := requireDescs(); err != nil {
			return err
		}
		return f.Push(boolVal(len(descs.ByPlayer(id)) > 0))
	})
	reg.Register("ONLINE", 0, func(f *interp.Frame, _ *interp.Registry) error {
		if err := requireDescs(); err != nil {
			return err
		}
		seen := map[value.ObjectID]bool{}
		var players []value.Value
		for _, n := range descs.All() {
			d := descs.Get(n)
			if d != nil && d.Player != value.NONE && !seen[d.Player] {
				seen[d.Player] = true
				players = append(players, value.Obj(d.Player))
			}
		}
		return f.Push(value.ArrVal(value.NewPackedArrayFrom(players)))
	})
	reg.Register("ONLINE_ARRAY", 0, func(f *interp.Frame, _ *interp.Registry) error {
		if err := requireDescs(); err != nil {
			return err
		}
		ns := descs.All()
		vals := make([]value.Value, len(ns))
		for i, n := range ns {
			vals[i] = value.Int(int32(n))
		}
		return f.Push(value.ArrVal(value.NewPackedArrayFrom(vals)))
	})
	reg.Register("CONCOUNT", 0, func(f *interp.Frame, _ *interp.Registry) error {
		if err := requireDescs(); err != nil {
			return err
		}
		return f.Push(value.Int(int32(descs.Count())))
	})
	reg.Register("CONDBREF", 1, withDescr(func(f *interp.Frame, d *boundary.Descriptor) error {
		return f.Push(value.Obj(d.Player))
	}))
	reg.Register("CONIDLE", 1, withDescr(func(f *interp.Frame, d *boundary.Descriptor) error {
		return f.Push(value.Int(int32(f.StartedAt - d.LastActivity)))
	}))
	reg.Register("CONTIME", 1, withDescr(func(f *interp.Frame, d *boundary.Descriptor) error {
		return f.Push(value.Int(int32(f.StartedAt - d.ConnectedAt)))
	}))
	reg.Register("CONHOST", 2, withDescr(func(f *interp.Frame, d *boundary.Descriptor) error {
		return f.Push(value.Str(d.Host))
	}))
	reg.Register("CONUSER", 2, func(f *interp.Frame, _ *interp.Registry) error {
		n, err := popInt(f)
		if err != nil {
			return err
		}
		if err := requireDescs(); err != nil {
			return err
		}
		ids := descs.ByPlayer(value.ObjectID(n))
		return f.Push(value.Int(int32(len(ids))))
	})
	reg.Register("CONBOOT", 4, func(f *interp.Frame, _ *interp.Registry) error {
		id, err := popObj(f)
		if err != nil {
			return err
		}
		if err := requireDescs(); err != nil {
			return err
		}
		for _, n := range descs.ByPlayer(id) {
			descs.Disconnect(n)
		}
		return nil
	})
	reg.Register("DESCRIPTORS", 0, func(f *interp.Frame, _ *interp.Registry) error {
		id, err := popObj(f)
		if err != nil {
			return err
		}
		if err := requireDescs(); err != nil {
			return err
		}
		ids := descs.ByPlayer(id)
		vals := make([]value.Value, len(ids))
		for i, n := range ids {
			vals[i] = value.Int(int32(n))
		}
		return f.Push(value.ArrVal(value.NewPackedArrayFrom(vals)))
	})
	reg.Register("DESCR_ARRAY", 0, func(f *interp.Frame, _ *interp.Registry) error {
		if err := requireDescs(); err != nil {
			return err
		}
		ns := descs.All()
		vals := make([]value.Value, len(ns))
		for i, n := range ns {
			vals[i] = value.Int(int32(n))
		}
		return f.Push(value.ArrVal(value.NewPackedArrayFrom(vals)))
	})
	reg.Register("DESCR", 0, func(f *interp.Frame, _ *interp.Registry) error {
		return f.Push(value.Int(int32(f.Descr)))
	})
	reg.Register("DESCRCON", 0, func(f *interp.Frame, _ *interp.Registry) error {
		num, err := popInt(f)
		if err != nil {
			return err
		}
		if err := requireDescs(); err != nil {
			return err
		}
		d := descs.Get(int(num))
		if d == nil {
			return f.Push(value.Obj(value.NONE))
		}
		return f.Push(value.Obj(d.Player))
	})
	reg.Register("NEXTDESCR", 0, adjacentDescr(1))
	reg.Register("FIRSTDESCR", 0, func(f *interp.Frame, _ *interp.Registry) error {
		if err := requireDescs(); err != nil {
			return err
		}
		all := descs.All()
		if len(all) == 0 {
			return f.Push(value.Int(0))
		}
		return f.Push(value.Int(int32(all[0])))
	})
	reg.Register("LASTDESCR", 0, func(f *interp.Frame, _ *interp.Registry) error {
		if err := requireDescs(); err != nil {
			return err
		}
		all := descs.All()
		if len(all) == 0 {
			return f.Push(value.Int(0))
		}
		return f.Push(value.Int(int32(all[len(all)-1])))
	})
	reg.Register("DESCR_SETUSER", 3, func(f *interp.Frame, _ *interp.Registry) error {
		player, err := popObj(f)
		if err != nil {
			return err
		}
		num, err := popInt(f)
		if err != nil {
			return err
		}
		if err := requireDescs(); err != nil {
			return err
		}
		if !descs.SetUser(int(num), player) {
			return muckerr.Newf(muckerr.NotFound, "no such descriptor %d", num)
		}
		return nil
	})
	reg.Register("DESCRTIME", 0, withNumberedDescr(func(f *interp.Frame, d *boundary.Descriptor) error {
		return f.Push(value.Int(int32(f.StartedAt - d.ConnectedAt)))
	}))
	reg.Register("DESCRHOST", 2, withNumberedDescr(func(f *interp.Frame, d *boundary.Descriptor) error {
		return f.Push(value.Str(d.Host))
	}))
	reg.Register("DESCRUSER", 0, withNumberedDescr(func(f *interp.Frame, d *boundary.Descriptor) error {
		return f.Push(value.Obj(d.Player))
	}))
	reg.Register("DESCRBOOT", 4, func(f *interp.Frame, _ *interp.Registry) error {
		num, err := popInt(f)
		if err != nil {
			return err
		}
		if err := requireDescs(); err != nil {
			return err
		}
		descs.Disconnect(int(num))
		return nil
	})
	reg.Register("DESCRIDLE", 0, withNumberedDescr(func(f *interp.Frame, d *boundary.Descriptor) error {
		return f.Push(value.Int(int32(f.StartedAt - d.LastActivity)))
	}))
	reg.Register("DESCRDBREF", 0, withNumberedDescr(func(f *interp.Frame, d *boundary.Descriptor) error {
		return f.Push(value.Obj(d.Player))
	}))
	reg.Register("DESCRLEASTIDLE", 0, func(f *interp.Frame, _ *interp.Registry) error {
		if err := requireDescs(); err != nil {
			return err
		}
		n, ok := descs.LeastIdle(f.StartedAt)
		if !ok {
			return f.Push(value.Int(0))
		}
		return f.Push(value.Int(int32(n)))
	})
	reg.Register("DESCRMOSTIDLE", 0, func(f *interp.Frame, _ *interp.Registry) error {
		if err := requireDescs(); err != nil {
			return err
		}
		n, ok := descs.MostIdle(f.StartedAt)
		if !ok {
			return f.Push(value.Int(0))
		}
		return f.Push(value.Int(int32(n)))
	})
	reg.Register("DESCRSECURE?", 0, withNumberedDescr(func(f *interp.Frame, d *boundary.Descriptor) error {
		return f.Push(boolVal(d.Secure))
	}))
	reg.Register("DESCRBUFSIZE", 0, withNumberedDescr(func(f *interp.Frame, d *boundary.Descriptor) error {
		return f.Push(value.Int(int32(d.BufSize)))
	}))
	reg.Register("DESCRFLUSH", 0, func(f *interp.Frame, _ *interp.Registry) error {
		_, err := popInt(f)
		return err
	})
	reg.Register("DESCRNOTIFY", 0, func(f *interp.Frame, r *interp.Registry) error {
		msg, err := popStr(f)
		if err != nil {
			return err
		}
		num, err := popInt(f)
		if err != nil {
			return err
		}
		if err := requireDescs(); err != nil {
			return err
		}
		d := descs.Get(int(num))
		if d == nil {
			return muckerr.Newf(muckerr.NotFound, "no such descriptor %d", num)
		}
		if err := r.Disp().Tell(f.Instigator, d.Player, msg); err != nil {
			return muckerr.Newf(muckerr.IOError, "%v", err)
		}
		return nil
	})
	reg.Register("CONNOTIFY", 0, func(f *interp.Frame, r *interp.Registry) error {
		msg, err := popStr(f)
		if err != nil {
			return err
		}
		num, err := popInt(f)
		if err != nil {
			return err
		}
		if err := requireDescs(); err != nil {
			return err
		}
		d := descs.Get(int(num))
		if d == nil {
			return muckerr.Newf(muckerr.NotFound, "no such descriptor %d", num)
		}
		if err := r.Disp().Tell(f.Instigator, d.Player, msg); err != nil {
			return muckerr.Newf(muckerr.IOError, "%v", err)
		}
		return nil
	})
}

func withDescr(fn func(f *interp.Frame, d *boundary.Descriptor) error) interp.Primitive {
	return func(f *interp.Frame, _ *interp.Registry) error {
		if err := requireDescs(); err != nil {
			return err
		}
		d := descs.Get(f.Descr)
		if d == nil {
			return muckerr.Newf(muckerr.NotFound, "no such descriptor %d", f.Descr)
		}
		return fn(f, d)
	}
}

func withNumberedDescr(fn func(f *interp.Frame, d *boundary.Descriptor) error) interp.Primitive {
	return func(f *interp.Frame, _ *interp.Registry) error {
		num, err := popInt(f)
		if err != nil {
			return err
		}
		if err := requireDescs(); err != nil {
			return err
		}
		d := descs.Get(int(num))
		if d == nil {
			return muckerr.Newf(muckerr.NotFound, "no such descriptor %d", num)
		}
		return fn(f, d)
	}
}

func adjacentDescr(step int) interp.Primitive {
	return func(f *interp.Frame, _ *interp.Registry) error {
		num, err := popInt(f)
		if err != nil {
			return err
		}
		if err := requireDescs(); err != nil {
			return err
		}
		all := descs.All()
		for i, n := range all {
			if n == int(num) {
				j := i + step
				if j < 0 || j >= len(all) {
					return f.Push(value.Int(0))
				}
				return f.Push(value.Int(int32(all[j])))
			}
		}
		return f.Push(value.Int(0))
	}
}
