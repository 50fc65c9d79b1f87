package primitive

import (
	"github.com/fuzzball-muck/muckcore/interp"
	"github.com/fuzzball-muck/muckcore/interp/muckerr"
	"github.com/fuzzball-muck/muckcore/lock"
	"github.com/fuzzball-muck/muckcore/store"
	"github.com/fuzzball-muck/muckcore/value"
)

func getObj(f *interp.Frame, id value.ObjectID) (*store.Object, error) {
	o := f.Store.Get(id)
	if o == nil {
		return nil, muckerr.Newf(muckerr.NotFound, "no such object %s", id)
	}
	return o, nil
}

// registerDBRead wires spec.md §4.D.4's "DB read" group (trust 0, plus
// NAME/LOCATION/OWNER never restrict further since the reference engine
// treats identity lookups as always-readable; CONTENTS/EXITS walk the
// object's own chain so no remote-object elevation applies here either —
// only primitives that read *another* player's private state need the
// "remote requires ≥2 or control" gate, and none of those are
// implemented by this subset).
func registerDBRead(reg *interp.Registry) {
	reg.Register("NAME", 0, func(f *interp.Frame, _ *interp.Registry) error {
		id, err := popObj(f)
		if err != nil {
			return err
		}
		o, err := getObj(f, id)
		if err != nil {
			return err
		}
		return f.Push(value.Str(o.Name))
	})
	reg.Register("LOCATION", 0, func(f *interp.Frame, _ *interp.Registry) error {
		id, err := popObj(f)
		if err != nil {
			return err
		}
		o, err := getObj(f, id)
		if err != nil {
			return err
		}
		return f.Push(value.Obj(o.Location))
	})
	reg.Register("OWNER", 0, func(f *interp.Frame, _ *interp.Registry) error {
		id, err := popObj(f)
		if err != nil {
			return err
		}
		o, err := getObj(f, id)
		if err != nil {
			return err
		}
		return f.Push(value.Obj(o.Owner))
	})
	reg.Register("CONTENTS", 0, func(f *interp.Frame, _ *interp.Registry) error {
		id, err := popObj(f)
		if err != nil {
			return err
		}
		return f.Push(objListArray(f.Store.Contents(id)))
	})
	reg.Register("EXITS", 0, func(f *interp.Frame, _ *interp.Registry) error {
		id, err := popObj(f)
		if err != nil {
			return err
		}
		return f.Push(objListArray(f.Store.Exits(id)))
	})
	reg.Register("NEXT", 0, func(f *interp.Frame, _ *interp.Registry) error {
		id, err := popObj(f)
		if err != nil {
			return err
		}
		o, err := getObj(f, id)
		if err != nil {
			return err
		}
		return f.Push(value.Obj(o.NextSibling))
	})
	reg.Register("GETLINK", 0, func(f *interp.Frame, _ *interp.Registry) error {
		id, err := popObj(f)
		if err != nil {
			return err
		}
		o, err := getObj(f, id)
		if err != nil {
			return err
		}
		switch o.Kind {
		case store.KindExit:
			if len(o.Exit.Destinations) == 0 {
				return f.Push(value.Obj(value.NONE))
			}
			return f.Push(value.Obj(o.Exit.Destinations[0]))
		case store.KindRoom:
			return f.Push(value.Obj(o.Room.Dropto))
		case store.KindThing:
			return f.Push(value.Obj(o.Thing.Home))
		case store.KindPlayer:
			return f.Push(value.Obj(o.Player.Home))
		default:
			return f.Push(value.Obj(value.NONE))
		}
	})
	reg.Register("GETLINKS", 0, func(f *interp.Frame, _ *interp.Registry) error {
		id, err := popObj(f)
		if err != nil {
			return err
		}
		o, err := getObj(f, id)
		if err != nil {
			return err
		}
		if o.Kind == store.KindExit {
			return f.Push(objListArray(o.Exit.Destinations))
		}
		return f.Push(objListArray(nil))
	})
	reg.Register("FLAG?", 0, func(f *interp.Frame, _ *interp.Registry) error {
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
		bit, ok := flagByName[name]
		if !ok {
			return muckerr.Newf(muckerr.ArgumentRange, "unknown flag %q", name)
		}
		return f.Push(boolVal(o.Flags.Has(bit)))
	})
	reg.Register("MLEVEL", 0, func(f *interp.Frame, _ *interp.Registry) error {
		id, err := popObj(f)
		if err != nil {
			return err
		}
		o, err := getObj(f, id)
		if err != nil {
			return err
		}
		return f.Push(value.Int(int32(o.Flags.TrustLevel())))
	})
	reg.Register("DBTOP", 0, func(f *interp.Frame, _ *interp.Registry) error {
		return f.Push(value.Int(int32(f.Store.Top())))
	})
	reg.Register("INSTANCES", 0, func(f *interp.Frame, _ *interp.Registry) error {
		id, err := popObj(f)
		if err != nil {
			return err
		}
		o, err := getObj(f, id)
		if err != nil {
			return err
		}
		return f.Push(value.Int(o.Program.InstanceCount))
	})
	reg.Register("ENTRANCES_ARRAY", 0, func(f *interp.Frame, _ *interp.Registry) error {
		id, err := popObj(f)
		if err != nil {
			return err
		}
		var found []value.ObjectID
		for _, o := range f.Store.All() {
			if o.Kind != store.KindExit {
				continue
			}
			for _, dest := range o.Exit.Destinations {
				if dest == id {
					found = append(found, o.ID)
					break
				}
			}
		}
		return f.Push(objListArray(found))
	})
	reg.Register("OBJMEM", 0, func(f *interp.Frame, _ *interp.Registry) error {
		id, err := popObj(f)
		if err != nil {
			return err
		}
		o, err := getObj(f, id)
		if err != nil {
			return err
		}
		size := int32(len(o.Name)) + int32(o.Props.ByteSize())
		if o.Kind == store.KindProgram {
			size += int32(len(o.Program.Code))
			for _, l := range o.Program.SourceLines {
				size += int32(len(l))
			}
		}
		return f.Push(value.Int(size))
	})
}

func objListArray(ids []value.ObjectID) value.Value {
	vals := make([]value.Value, len(ids))
	for i, id := range ids {
		vals[i] = value.Obj(id)
	}
	return value.ArrVal(value.NewPackedArrayFrom(vals))
}

var flagByName = map[string]store.Flags{
	"WIZARD":  store.FlagWizard,
	"DARK":    store.FlagDark,
	"STICKY":  store.FlagSticky,
	"LINK_OK": store.FlagLinkOK,
	"JUMP_OK": store.FlagJumpOK,
	"HAVEN":   store.FlagHaven,
	"ABODE":   store.FlagAbode,
	"MUCKER":  store.FlagMucker,
	"SMUCKER": store.FlagSmucker,
	"QUELL":   store.FlagQuell,
	"ZOMBIE":  store.FlagZombie,
	"VEHICLE": store.FlagVehicle,
	"YIELD":   store.FlagYield,
	"OVERT":   store.FlagOvert,
}

// registerDBWrite wires spec.md §4.D.4's "DB write" group. Creation
// primitives (NEWOBJECT/NEWROOM/NEWEXIT/NEWPROGRAM) are gated at trust 3
// by the registry; SETOWN and RECYCLE at trust 3; the rest at the
// minimum listed in the primitive table.
func registerDBWrite(reg *interp.Registry) {
	reg.Register("SETNAME", 2, func(f *interp.Frame, _ *interp.Registry) error {
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
		o.Name = name
		f.Store.MarkDirty(id)
		return nil
	})
	reg.Register("MOVETO", 1, func(f *interp.Frame, _ *interp.Registry) error {
		dest, err := popObj(f)
		if err != nil {
			return err
		}
		id, err := popObj(f)
		if err != nil {
			return err
		}
		if err := f.Store.MoveObject(id, dest); err != nil {
			return muckerr.Newf(muckerr.ArgumentRange, "%v", err)
		}
		return nil
	})
	reg.Register("SET", 2, func(f *interp.Frame, _ *interp.Registry) error {
		onOff, err := popStr(f)
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
		name := onOff
		negate := false
		if len(name) > 0 && name[0] == '!' {
			negate = true
			name = name[1:]
		}
		bit, ok := flagByName[name]
		if !ok {
			return muckerr.Newf(muckerr.ArgumentRange, "unknown flag %q", name)
		}
		if bit == store.FlagWizard && f.Perm < 4 {
			return muckerr.New(muckerr.PermissionDenied, "only a wizard may set WIZARD")
		}
		if negate {
			o.Flags &^= bit
		} else {
			o.Flags |= bit
		}
		f.Store.MarkDirty(id)
		return nil
	})
	reg.Register("SETLINK", 3, func(f *interp.Frame, _ *interp.Registry) error {
		dest, err := popObj(f)
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
		switch o.Kind {
		case store.KindExit:
			o.Exit.Destinations = []value.ObjectID{dest}
		case store.KindRoom:
			o.Room.Dropto = dest
		case store.KindThing:
			o.Thing.Home = dest
		case store.KindPlayer:
			o.Player.Home = dest
		}
		f.Store.MarkDirty(id)
		return nil
	})
	reg.Register("SETOWN", 3, func(f *interp.Frame, _ *interp.Registry) error {
		newOwner, err := popObj(f)
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
		o.Owner = newOwner
		f.Store.MarkDirty(id)
		return nil
	})
	reg.Register("RECYCLE", 3, func(f *interp.Frame, _ *interp.Registry) error {
		id, err := popObj(f)
		if err != nil {
			return err
		}
		if err := f.Store.Recycle(id); err != nil {
			return muckerr.Newf(muckerr.ArgumentRange, "%v", err)
		}
		return nil
	})
	reg.Register("NEWROOM", 3, func(f *interp.Frame, _ *interp.Registry) error {
		name, err := popStr(f)
		if err != nil {
			return err
		}
		o := f.Store.NewRoom(f.Instigator, name)
		return f.Push(value.Obj(o.ID))
	})
	reg.Register("NEWOBJECT", 3, func(f *interp.Frame, _ *interp.Registry) error {
		loc, err := popObj(f)
		if err != nil {
			return err
		}
		name, err := popStr(f)
		if err != nil {
			return err
		}
		o, err := f.Store.NewThing(f.Instigator, name, loc)
		if err != nil {
			return muckerr.Newf(muckerr.ArgumentRange, "%v", err)
		}
		return f.Push(value.Obj(o.ID))
	})
	reg.Register("NEWEXIT", 3, func(f *interp.Frame, _ *interp.Registry) error {
		dest, err := popObj(f)
		if err != nil {
			return err
		}
		src, err := popObj(f)
		if err != nil {
			return err
		}
		name, err := popStr(f)
		if err != nil {
			return err
		}
		o, err := f.Store.NewExit(f.Instigator, name, src, []value.ObjectID{dest})
		if err != nil {
			return muckerr.Newf(muckerr.ArgumentRange, "%v", err)
		}
		return f.Push(value.Obj(o.ID))
	})
	reg.Register("NEWPROGRAM", 3, func(f *interp.Frame, _ *interp.Registry) error {
		name, err := popStr(f)
		if err != nil {
			return err
		}
		o := f.Store.NewProgram(f.Instigator, name)
		return f.Push(value.Obj(o.ID))
	})
	reg.Register("NEWPLAYER", 4, func(f *interp.Frame, _ *interp.Registry) error {
		password, err := popStr(f)
		if err != nil {
			return err
		}
		name, err := popStr(f)
		if err != nil {
			return err
		}
		hash, err := store.HashPassword(password)
		if err != nil {
			return muckerr.Newf(muckerr.InternalInvariant, "%v", err)
		}
		o, err := f.Store.NewPlayer(name, hash)
		if err != nil {
			return muckerr.Newf(muckerr.ArgumentRange, "%v", err)
		}
		return f.Push(value.Obj(o.ID))
	})
	reg.Register("COPYOBJ", 3, func(f *interp.Frame, _ *interp.Registry) error {
		id, err := popObj(f)
		if err != nil {
			return err
		}
		orig, err := getObj(f, id)
		if err != nil {
			return err
		}
		o, err := f.Store.CopyObject(id, f.Instigator, orig.Name, "")
		if err != nil {
			return muckerr.Newf(muckerr.ArgumentRange, "%v", err)
		}
		return f.Push(value.Obj(o.ID))
	})
	reg.Register("COPYPLAYER", 4, func(f *interp.Frame, _ *interp.Registry) error {
		password, err := popStr(f)
		if err != nil {
			return err
		}
		name, err := popStr(f)
		if err != nil {
			return err
		}
		id, err := popObj(f)
		if err != nil {
			return err
		}
		hash, err := store.HashPassword(password)
		if err != nil {
			return muckerr.Newf(muckerr.InternalInvariant, "%v", err)
		}
		o, err := f.Store.CopyObject(id, id, name, hash)
		if err != nil {
			return muckerr.Newf(muckerr.ArgumentRange, "%v", err)
		}
		return f.Push(value.Obj(o.ID))
	})
	reg.Register("SETLOCKSTR", 3, func(f *interp.Frame, _ *interp.Registry) error {
		path, err := popStr(f)
		if err != nil {
			return err
		}
		lockSrc, err := popStr(f)
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
		expr, parseErr := lock.Parse(lockSrc, &store.EnvResolver{T: f.Store, MePlayer: f.Instigator, HereRoom: f.Trigger})
		if parseErr != nil {
			return muckerr.Newf(muckerr.ParseError, "%v", parseErr)
		}
		o.Props.SetProp(path, value.LockVal(expr), 0)
		f.Store.MarkDirty(id)
		return nil
	})
}
