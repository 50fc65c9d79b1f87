package primitive

import (
	"github.com/fuzzball-muck/muckcore/interp"
	"github.com/fuzzball-muck/muckcore/interp/muckerr"
	"github.com/fuzzball-muck/muckcore/value"
)

// registerIO wires spec.md §4.D.4's I/O group against interp.Dispatcher
// (reg.Disp()). At trust 1, a message sent to anyone other than the
// invoking player is prefixed with the instigator's display name (the
// anti-spoof rule from the end-to-end notify scenario): NOTIFY(P2,"hi")
// by P1 at trust 1 delivers "P1 hi", not "hi".
func registerIO(reg *interp.Registry) {
	reg.Register("NOTIFY", 0, func(f *interp.Frame, r *interp.Registry) error {
		msg, err := popStr(f)
		if err != nil {
			return err
		}
		target, err := popObj(f)
		if err != nil {
			return err
		}
		if err := r.Disp().Tell(f.Instigator, target, antiSpoofPrefix(f, target, msg)); err != nil {
			return muckerr.Newf(muckerr.IOError, "%v", err)
		}
		return nil
	})
	reg.Register("TELL", 0, func(f *interp.Frame, r *interp.Registry) error {
		msg, err := popStr(f)
		if err != nil {
			return err
		}
		if err := r.Disp().Tell(f.Instigator, f.Instigator, antiSpoofPrefix(f, f.Instigator, msg)); err != nil {
			return muckerr.Newf(muckerr.IOError, "%v", err)
		}
		return nil
	})
	reg.Register("OTELL", 0, func(f *interp.Frame, r *interp.Registry) error {
		msg, err := popStr(f)
		if err != nil {
			return err
		}
		exclude, err := popObj(f)
		if err != nil {
			return err
		}
		room, err := popObj(f)
		if err != nil {
			return err
		}
		if err := r.Disp().OTell(f.Instigator, room, exclude, antiSpoofPrefix(f, value.NONE, msg)); err != nil {
			return muckerr.Newf(muckerr.IOError, "%v", err)
		}
		return nil
	})
	reg.Register("NOTIFY_EXCLUDE", 0, func(f *interp.Frame, r *interp.Registry) error {
		msg, err := popStr(f)
		if err != nil {
			return err
		}
		exclude, err := popArr(f)
		if err != nil {
			return err
		}
		room, err := popObj(f)
		if err != nil {
			return err
		}
		var first value.ObjectID
		if vals := exclude.Vals(); len(vals) > 0 && vals[0].Kind == value.KindObject {
			first = vals[0].Obj
		} else {
			first = value.NONE
		}
		if err := r.Disp().OTell(f.Instigator, room, first, antiSpoofPrefix(f, value.NONE, msg)); err != nil {
			return muckerr.Newf(muckerr.IOError, "%v", err)
		}
		return nil
	})
	reg.Register("NOTIFY_NOLISTEN", 0, func(f *interp.Frame, r *interp.Registry) error {
		msg, err := popStr(f)
		if err != nil {
			return err
		}
		target, err := popObj(f)
		if err != nil {
			return err
		}
		if err := r.Disp().Tell(f.Instigator, target, antiSpoofPrefix(f, target, msg)); err != nil {
			return muckerr.Newf(muckerr.IOError, "%v", err)
		}
		return nil
	})
	reg.Register("NOTIFY_SECURE", 1, func(f *interp.Frame, r *interp.Registry) error {
		msg, err := popStr(f)
		if err != nil {
			return err
		}
		target, err := popObj(f)
		if err != nil {
			return err
		}
		if err := r.Disp().Tell(f.Instigator, target, antiSpoofPrefix(f, target, msg)); err != nil {
			return muckerr.Newf(muckerr.IOError, "%v", err)
		}
		return nil
	})
}

// antiSpoofPrefix implements spec.md §4.D.4 I/O group's anti-spoof rule:
// at trust 1, a message sent to anyone other than the invoking player is
// prefixed with the instigator's display name, so a program cannot pass
// off its own speech as another player's.
func antiSpoofPrefix(f *interp.Frame, target value.ObjectID, msg string) string {
	if f.Perm > 1 || target == f.Instigator {
		return msg
	}
	speaker := f.Store.Get(f.Instigator)
	if speaker == nil || speaker.Name == "" {
		return msg
	}
	return speaker.Name + " " + msg
}
