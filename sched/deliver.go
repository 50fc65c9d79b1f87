package sched

import "github.com/fuzzball-muck/muckcore/value"

// Backgroundable lets sched ask an opaque interp.Frame whether it is a
// backgrounded process without importing interp: Entry.Frame is stored
// as interface{}, and sched only ever needs this one bit of it.
type Backgroundable interface {
	Background() bool
}

// DeliverLine implements spec.md §4.F "deliver_line(descr, line)": it
// finds the first live MufReadWait entry belonging to owner (the player
// who owns descr, resolved by the caller) whose frame is not
// backgrounded, removes it from the queue, and returns it so the caller
// can inject line as a READ event and resume the frame.
func (q *Queue) DeliverLine(owner value.ObjectID) (*Entry, bool) {
	for _, e := range q.pq {
		if e.deleted || e.Kind != KindMufReadWait || e.Owner != owner {
			continue
		}
		if bg, ok := e.Frame.(Backgroundable); ok && bg.Background() {
			continue
		}
		e.deleted = true
		delete(q.byPid, e.Pid)
		return e, true
	}
	return nil, false
}

// DeliverEvent implements spec.md §4.F "deliver_event(pid, name,
// value)": if pid is blocked in a MufEventWait whose filter set matches
// name, the wait entry is removed so the frame resumes on the next
// tick; otherwise ok is false and the caller is responsible for
// enqueuing name into the frame's own pending-event queue instead (a
// concern interp owns, since sched has no visibility into frame
// internals beyond the Backgroundable probe above).
func (q *Queue) DeliverEvent(pid Pid, name string) (*Entry, bool) {
	e, ok := q.Find(pid)
	if !ok || e.Kind != KindMufEventWait {
		return nil, false
	}
	for _, f := range e.Filters {
		if globMatch(f, name) {
			e.deleted = true
			delete(q.byPid, pid)
			return e, true
		}
	}
	return nil, false
}

// globMatch is a minimal '*'/'?' pattern matcher for event-wait filters.
// The fuller glob primitive exposed to MUF programs (smatch) lives in
// interp/primitive and is not reused here to avoid sched depending on
// interp.
func globMatch(pattern, s string) bool {
	return globMatchAt(pattern, s)
}

func globMatchAt(pattern, s string) bool {
	if pattern == "" {
		return s == ""
	}
	switch pattern[0] {
	case '*':
		if globMatchAt(pattern[1:], s) {
			return true
		}
		for i := 0; i < len(s); i++ {
			if globMatchAt(pattern[1:], s[i+1:]) {
				return true
			}
		}
		return false
	case '?':
		if s == "" {
			return false
		}
		return globMatchAt(pattern[1:], s[1:])
	default:
		if s == "" || s[0] != pattern[0] {
			return false
		}
		return globMatchAt(pattern[1:], s[1:])
	}
}
