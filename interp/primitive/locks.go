package primitive

import (
	"github.com/fuzzball-muck/muckcore/interp"
	"github.com/fuzzball-muck/muckcore/interp/muckerr"
	"github.com/fuzzball-muck/muckcore/lock"
	"github.com/fuzzball-muck/muckcore/store"
	"github.com/fuzzball-muck/muckcore/value"
)

// registerLocks wires spec.md §4.D.4's Locks group: PARSELOCK/UNPARSELOCK
// convert between a lock's source text and its KindLock runtime
// representation; TESTLOCK evaluates one against a candidate object.
func registerLocks(reg *interp.Registry) {
	reg.Register("PARSELOCK", 0, func(f *interp.Frame, _ *interp.Registry) error {
		src, err := popStr(f)
		if err != nil {
			return err
		}
		expr, parseErr := lock.Parse(src, &store.EnvResolver{T: f.Store, MePlayer: f.Instigator, HereRoom: f.Trigger})
		if parseErr != nil {
			return muckerr.Newf(muckerr.ParseError, "%v", parseErr)
		}
		return f.Push(value.LockVal(expr))
	})
	reg.Register("UNPARSELOCK", 0, func(f *interp.Frame, _ *interp.Registry) error {
		v, err := f.Pop()
		if err != nil {
			return err
		}
		if v.Kind != value.KindLock {
			return muckerr.TypeMismatchf("lock", v.TypeName())
		}
		return f.Push(value.Str(lock.Serialize(v.Lck)))
	})
	reg.Register("PRETTYLOCK", 0, func(f *interp.Frame, _ *interp.Registry) error {
		v, err := f.Pop()
		if err != nil {
			return err
		}
		if v.Kind != value.KindLock {
			return muckerr.TypeMismatchf("lock", v.TypeName())
		}
		return f.Push(value.Str(lock.Serialize(v.Lck)))
	})
	reg.Register("TESTLOCK", 0, func(f *interp.Frame, _ *interp.Registry) error {
		v, err := f.Pop()
		if err != nil {
			return err
		}
		id, err := popObj(f)
		if err != nil {
			return err
		}
		if v.Kind != value.KindLock {
			return muckerr.TypeMismatchf("lock", v.TypeName())
		}
		if f.Store.Get(id) == nil {
			return muckerr.Newf(muckerr.NotFound, "no such object %s", id)
		}
		ok := lock.Evaluate(v.Lck, f.Store.AsCandidate(id), lock.EnvCheckOn)
		return f.Push(boolVal(ok))
	})
}
