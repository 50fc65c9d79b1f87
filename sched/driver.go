package sched

import (
	"fmt"

	"github.com/fuzzball-muck/muckcore/interp"
	"github.com/fuzzball-muck/muckcore/value"
)

// Driver adapts Queue to interp.Scheduler (spec.md §4.F driving §4.D):
// the seam interp primitives reach to SLEEP/FORK/KILL/EVENT_WAITFOR/
// TIMER_START/TIMER_STOP without interp importing sched. Clock lets
// tests and cmd/muckd's main loop inject the same time source.
type Driver struct {
	Queue *Queue
	Clock func() int64

	nextPid int64
}

// NewDriver returns a Driver over an already-constructed Queue.
func NewDriver(q *Queue, clock func() int64) *Driver {
	return &Driver{Queue: q, Clock: clock}
}

var _ interp.Scheduler = (*Driver)(nil)

// Sleep enqueues a MufDelayed wakeup for f, firing at now+seconds. The
// entry carries f itself so the caller's dispatch loop (cmd/muckd's
// runTick) can resume exactly this frame when the entry comes due,
// rather than needing a separate pid->frame table.
func (d *Driver) Sleep(f *interp.Frame, seconds int) error {
	return d.Queue.Enqueue(&Entry{
		Kind:   KindMufDelayed,
		FireAt: d.Clock() + int64(seconds),
		Pid:    Pid(f.Pid),
		Owner:  f.Instigator,
		Frame:  f,
	})
}

// Fork allocates a new pid and enqueues a MufDelayed entry carrying the
// child frame, firing immediately (now, not timeless) so the caller's
// dispatch loop picks it up on the very next Tick (spec.md §4.D.2's
// FORK primitive runs the new activation "independently"; Tick never
// dispatches Timeless entries, so a fork-start entry must carry a real
// due time).
func (d *Driver) Fork(parent *interp.Frame) (int64, error) {
	d.nextPid++
	pid := d.nextPid
	err := d.Queue.Enqueue(&Entry{
		Kind:   KindMufDelayed,
		FireAt: d.Clock(),
		Pid:    Pid(pid),
		Owner:  parent.Instigator,
		Frame:  parent,
	})
	if err != nil {
		return 0, err
	}
	return pid, nil
}

// Kill implements interp.Scheduler.Kill: true if any live entry for pid
// was removed.
func (d *Driver) Kill(pid int64) bool {
	return d.Queue.Kill(Pid(pid), value.NONE) > 0
}

// EventWaitFor re-enqueues f as a MufEventWait entry; the caller's
// dispatch loop resumes the frame via DeliverEvent when a matching event
// arrives.
func (d *Driver) EventWaitFor(f *interp.Frame, filters []string) error {
	return d.Queue.Enqueue(&Entry{
		Kind:     KindMufEventWait,
		Timeless: true,
		Pid:      Pid(f.Pid),
		Owner:    f.Instigator,
		Frame:    f,
		Filters:  filters,
	})
}

// TimerStart enqueues a MufTimer entry firing at now+seconds, identified
// by id so TimerStop can find it again. It carries f so the caller's
// dispatch loop can deliver the TIMER.<id> event into the frame's
// pending-event queue when it comes due (spec.md §4.D.4 TIMER_START);
// TIMER_START is not itself a suspension point (spec.md §5), so f keeps
// running elsewhere while this entry waits.
func (d *Driver) TimerStart(f *interp.Frame, seconds int, id string) error {
	return d.Queue.Enqueue(&Entry{
		Kind:    KindMufTimer,
		FireAt:  d.Clock() + int64(seconds),
		Pid:     Pid(f.Pid),
		Owner:   f.Instigator,
		Frame:   f,
		TimerID: id,
	})
}

// TimerStop removes the named timer for pid, reporting whether one was
// found. Since Entry carries a single Pid per timer and a frame may have
// more than one outstanding, this walks the live set directly rather
// than using Kill (which matches by pid alone).
func (d *Driver) TimerStop(pid int64, id string) bool {
	found := false
	for _, e := range d.Queue.pq {
		if e.deleted || e.Kind != KindMufTimer || e.Pid != Pid(pid) || e.TimerID != id {
			continue
		}
		e.deleted = true
		found = true
	}
	return found
}

// Read implements interp.Scheduler.Read: enqueues a timeless MufReadWait
// entry for f's pid, owned by f.Instigator and keyed to f.Descr, so the
// front-end's next completed line for that descriptor is routed here by
// DeliverLine (spec.md §4.F "deliver_line").
func (d *Driver) Read(f *interp.Frame, wantsBlanks bool) error {
	return d.Queue.Enqueue(&Entry{
		Kind:        KindMufReadWait,
		Timeless:    true,
		Pid:         Pid(f.Pid),
		Owner:       f.Instigator,
		Descr:       f.Descr,
		Frame:       f,
		WantsBlanks: wantsBlanks,
	})
}

// QueueCommand implements interp.Scheduler.QueueCommand (the QUEUE primitive):
// enqueues a DelayedCommand that runs cmdstr as prog after delaySeconds,
// on behalf of the calling frame's instigator (spec.md §4.F
// DelayedCommand). Returns the new pid. Named QueueCommand, not Queue,
// because Driver already has a Queue field holding the priority queue.
func (d *Driver) QueueCommand(f *interp.Frame, delaySeconds int, prog value.ObjectID, cmdstr string) (int64, error) {
	d.nextPid++
	pid := d.nextPid
	err := d.Queue.Enqueue(&Entry{
		Kind:   KindDelayedCommand,
		FireAt: d.Clock() + int64(delaySeconds),
		Pid:    Pid(pid),
		Owner:  f.Instigator,
		Descr:  f.Descr,
		Player: prog,
		Cmdstr: cmdstr,
	})
	if err != nil {
		return 0, err
	}
	return pid, nil
}

// EventSend implements interp.Scheduler.EventSend (spec.md §4.F
// deliver_event): pid must be a frame the queue currently holds an entry
// for — sleeping, timer-waiting, read-waiting, or event-waiting — since
// a frame that is actively running is not visible to sched at all (it
// holds its own *interp.Frame outside any queue entry). When pid is
// blocked in EVENT_WAITFOR with a filter matching name, DeliverEvent
// dequeues the wait entry and this re-enqueues a MufDelayed wakeup
// firing at Clock(), mirroring Fork's fire-immediately pattern, so the
// caller's dispatch loop resumes the frame on the very next tick.
// Otherwise, if pid is merely suspended elsewhere, the event is appended
// to its pending-event queue for its next EVENT_WAITFOR/EVENT_EXISTS
// check without disturbing its existing wait.
func (d *Driver) EventSend(pid int64, name string, val value.Value) (bool, error) {
	if e, ok := d.Queue.DeliverEvent(Pid(pid), name); ok {
		f, ok := e.Frame.(*interp.Frame)
		if !ok || f == nil {
			return false, nil
		}
		f.PendingEvents = append(f.PendingEvents, interp.Event{Name: name, Value: val})
		if err := d.Queue.Enqueue(&Entry{
			Kind:   KindMufDelayed,
			FireAt: d.Clock(),
			Pid:    Pid(pid),
			Owner:  f.Instigator,
			Frame:  f,
		}); err != nil {
			return false, err
		}
		return true, nil
	}
	e, ok := d.Queue.Find(Pid(pid))
	if !ok {
		return false, nil
	}
	f, ok := e.Frame.(*interp.Frame)
	if !ok || f == nil {
		return false, nil
	}
	f.PendingEvents = append(f.PendingEvents, interp.Event{Name: name, Value: val})
	return true, nil
}

// DelayMpi implements boundary.Delayer for mpi's {delay:} form: queues a
// KindMpiDelayed entry carrying the remaining template text, to be
// re-expanded against loc/trigger when Tick dispatches it.
func (d *Driver) DelayMpi(seconds int, loc, trigger value.ObjectID, mpiText string, flags uint32) error {
	return d.Queue.Enqueue(&Entry{
		Kind:     KindMpiDelayed,
		FireAt:   d.Clock() + int64(seconds),
		Location: loc,
		Trigger:  trigger,
		Mpi:      mpiText,
		Flags:    flags,
	})
}

// String renders the driver's queue depth, used by STATS/debug logging.
func (d *Driver) String() string {
	return fmt.Sprintf("sched.Driver{pending=%d}", len(d.Queue.pq))
}
