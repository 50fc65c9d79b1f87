package primitive

import (
	"github.com/fuzzball-muck/muckcore/interp"
	"github.com/fuzzball-muck/muckcore/interp/muckerr"
	"github.com/fuzzball-muck/muckcore/value"
)

// registerScheduling wires spec.md §4.D.4's process-control group
// against the interp.Scheduler seam (reg.Sched()), the same
// dependency-inversion pattern mpi.Dispatcher uses to keep interp
// decoupled from sched.
func registerScheduling(reg *interp.Registry) {
	reg.Register("SLEEP", 0, func(f *interp.Frame, r *interp.Registry) error {
		secs, err := popInt(f)
		if err != nil {
			return err
		}
		if err := r.Sched().Sleep(f, int(secs)); err != nil {
			return muckerr.Newf(muckerr.ArgumentRange, "%v", err)
		}
		f.Suspend = true
		return nil
	})
	reg.Register("FORK", 0, func(f *interp.Frame, r *interp.Registry) error {
		child := f.Clone()
		pid, err := r.Sched().Fork(child)
		if err != nil {
			return muckerr.Newf(muckerr.LimitExceeded, "%v", err)
		}
		child.Pid = pid
		child.PC = f.PC + 1
		if err := child.Push(value.Int(0)); err != nil {
			return err
		}
		return f.Push(value.Int(int32(pid)))
	})
	reg.Register("KILL", 0, func(f *interp.Frame, r *interp.Registry) error {
		pid, err := popInt(f)
		if err != nil {
			return err
		}
		return f.Push(boolVal(r.Sched().Kill(int64(pid))))
	})
	reg.Register("PID", 0, func(f *interp.Frame, _ *interp.Registry) error {
		return f.Push(value.Int(int32(f.Pid)))
	})
	reg.Register("EVENT_WAITFOR", 0, func(f *interp.Frame, r *interp.Registry) error {
		n, err := popInt(f)
		if err != nil {
			return err
		}
		if n < 0 || int(n) > f.Depth() {
			return muckerr.New(muckerr.ArgumentRange, "EVENT_WAITFOR count out of range")
		}
		filters := make([]string, n)
		for i := int(n) - 1; i >= 0; i-- {
			s, err := popStr(f)
			if err != nil {
				return err
			}
			filters[i] = s
		}
		if err := r.Sched().EventWaitFor(f, filters); err != nil {
			return muckerr.Newf(muckerr.ArgumentRange, "%v", err)
		}
		f.Suspend = true
		return nil
	})
	reg.Register("READ", 0, func(f *interp.Frame, r *interp.Registry) error {
		if err := r.Sched().Read(f, false); err != nil {
			return muckerr.Newf(muckerr.ArgumentRange, "%v", err)
		}
		f.Suspend = true
		return nil
	})
	reg.Register("QUEUE", 0, func(f *interp.Frame, r *interp.Registry) error {
		cmdstr, err := popStr(f)
		if err != nil {
			return err
		}
		prog, err := popObj(f)
		if err != nil {
			return err
		}
		delay, err := popInt(f)
		if err != nil {
			return err
		}
		pid, err := r.Sched().QueueCommand(f, int(delay), prog, cmdstr)
		if err != nil {
			return muckerr.Newf(muckerr.LimitExceeded, "%v", err)
		}
		return f.Push(value.Int(int32(pid)))
	})
	reg.Register("EVENT_SEND", 0, func(f *interp.Frame, r *interp.Registry) error {
		val, err := f.Pop()
		if err != nil {
			return err
		}
		name, err := popStr(f)
		if err != nil {
			return err
		}
		pid, err := popInt(f)
		if err != nil {
			return err
		}
		if int64(pid) == f.Pid {
			f.PendingEvents = append(f.PendingEvents, interp.Event{Name: name, Value: val})
			return nil
		}
		if _, err := r.Sched().EventSend(int64(pid), name, val); err != nil {
			return muckerr.Newf(muckerr.ArgumentRange, "%v", err)
		}
		return nil
	})
	reg.Register("EVENT_COUNT", 0, func(f *interp.Frame, _ *interp.Registry) error {
		return f.Push(value.Int(int32(len(f.PendingEvents))))
	})
	reg.Register("EVENT_EXISTS", 0, func(f *interp.Frame, _ *interp.Registry) error {
		name, err := popStr(f)
		if err != nil {
			return err
		}
		for _, e := range f.PendingEvents {
			if e.Name == name {
				return f.Push(value.Int(1))
			}
		}
		return f.Push(value.Int(0))
	})
	reg.Register("TIMER_START", 0, func(f *interp.Frame, r *interp.Registry) error {
		id, err := popStr(f)
		if err != nil {
			return err
		}
		secs, err := popInt(f)
		if err != nil {
			return err
		}
		if err := r.Sched().TimerStart(f, int(secs), id); err != nil {
			return muckerr.Newf(muckerr.ArgumentRange, "%v", err)
		}
		f.TimerCount++
		return nil
	})
	reg.Register("TIMER_STOP", 0, func(f *interp.Frame, r *interp.Registry) error {
		id, err := popStr(f)
		if err != nil {
			return err
		}
		if r.Sched().TimerStop(f.Pid, id) && f.TimerCount > 0 {
			f.TimerCount--
		}
		return nil
	})
	reg.Register("WATCHPID", 0, func(f *interp.Frame, _ *interp.Registry) error {
		pid, err := popInt(f)
		if err != nil {
			return err
		}
		f.WatchedBy = append(f.WatchedBy, int64(pid))
		f.Suspend = true
		return nil
	})
	reg.Register("BACKGROUND", 0, func(f *interp.Frame, _ *interp.Registry) error {
		f.Mode = interp.ModeBackground
		return nil
	})
	reg.Register("PREEMPT", 0, func(f *interp.Frame, _ *interp.Registry) error {
		f.Mode = interp.ModePreempt
		return nil
	})
	reg.Register("FOREGROUND", 0, func(f *interp.Frame, _ *interp.Registry) error {
		f.Mode = interp.ModeForeground
		return nil
	})
}
