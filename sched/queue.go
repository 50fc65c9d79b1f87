// Package sched implements the scheduler/event queue of spec.md §4.F: a
// single time-ordered priority queue over delayed commands, sleeping
// frames, timers, read/event waits, and delayed MPI expansions.
package sched

import (
	"container/heap"

	"github.com/fuzzball-muck/muckcore/value"
)

// EntryKind discriminates the six queue-entry variants of spec.md §4.F.
type EntryKind uint8

const (
	KindDelayedCommand EntryKind = iota
	KindMufDelayed
	KindMufTimer
	KindMufReadWait
	KindMufEventWait
	KindMpiDelayed
)

// Pid identifies one running MUF process (frame owner), used by kill/list
// and by MufTimer/MufReadWait/MufEventWait entries.
type Pid int64

// Entry is one item in the scheduler's priority queue. Only the fields
// relevant to Kind are meaningful, mirroring Value's tagged-union shape
// in the value package.
type Entry struct {
	Kind EntryKind

	FireAt   int64 // absolute time; ignored (sorts last) for timeless kinds
	Timeless bool

	Pid   Pid
	Owner value.ObjectID

	// DelayedCommand
	Descr   int
	Player  value.ObjectID
	Argstr  string
	Cmdstr  string

	// MufDelayed
	Frame interface{} // opaque to sched; the interp package's *interp.Frame

	// MufTimer
	TimerID string

	// MufEventWait
	Filters []string

	// MufReadWait
	WantsBlanks bool

	// MpiDelayed
	Location value.ObjectID
	Trigger  value.ObjectID
	Mpi      string
	Flags    uint32

	deleted bool
	seq     int64 // insertion sequence, breaks FIFO ties at equal FireAt
}

// ProcInfo is the read-only summary returned by List (the PS primitive).
type ProcInfo struct {
	Pid    Pid
	Owner  value.ObjectID
	Kind   EntryKind
	FireAt int64
}

// pqueue is a container/heap.Interface min-heap ordered by (FireAt,
// seq), with Timeless entries sorting after every timed entry
// (spec.md §4.F "Keys: primary fire_at ...; timeless entries sort after
// all timed").
type pqueue []*Entry

func (q pqueue) Len() int { return len(q) }
func (q pqueue) Less(i, j int) bool {
	a, b := q[i], q[j]
	if a.Timeless != b.Timeless {
		return !a.Timeless // timed (false) sorts before timeless (true)
	}
	if a.Timeless {
		return a.seq < b.seq
	}
	if a.FireAt != b.FireAt {
		return a.FireAt < b.FireAt
	}
	return a.seq < b.seq
}
func (q pqueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *pqueue) Push(x interface{}) { *q = append(*q, x.(*Entry)) }
func (q *pqueue) Pop() interface{} {
	old := *q
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return e
}

// Queue is the scheduler's single time-ordered priority queue plus the
// per-owner/global process caps of spec.md §4.F / §6.
type Queue struct {
	pq       pqueue
	nextSeq  int64
	byPid    map[Pid]*Entry

	GlobalLimit   int // max_process_limit
	PerOwnerLimit int // max_plyr_processes
}

// NewQueue returns an empty queue with the given process caps (0 means
// unlimited).
func NewQueue(globalLimit, perOwnerLimit int) *Queue {
	return &Queue{byPid: map[Pid]*Entry{}, GlobalLimit: globalLimit, PerOwnerLimit: perOwnerLimit}
}

// countOwner returns the number of live (non-deleted) entries owned by
// owner, used to enforce PerOwnerLimit.
func (q *Queue) countOwner(owner value.ObjectID) int {
	n := 0
	for _, e := range q.pq {
		if !e.deleted && e.Owner == owner {
			n++
		}
	}
	return n
}

func (q *Queue) liveCount() int {
	n := 0
	for _, e := range q.pq {
		if !e.deleted {
			n++
		}
	}
	return n
}

// ErrProcessLimitExceeded is returned by Enqueue when a process cap
// would be violated.
type ErrProcessLimitExceeded struct {
	Global bool
	Owner  value.ObjectID
}

func (e *ErrProcessLimitExceeded) Error() string {
	if e.Global {
		return "scheduler: global process limit exceeded"
	}
	return "scheduler: per-owner process limit exceeded"
}

// Enqueue adds entry to the queue, assigning it an insertion sequence
// for FIFO tie-breaking (spec.md §4.F "Operations": enqueue is O(log
// n)). Entries that track an owner are checked against the process
// caps before being admitted.
func (q *Queue) Enqueue(e *Entry) error {
	if e.Owner != value.NONE {
		if q.GlobalLimit > 0 && q.liveCount() >= q.GlobalLimit {
			return &ErrProcessLimitExceeded{Global: true}
		}
		if q.PerOwnerLimit > 0 && q.countOwner(e.Owner) >= q.PerOwnerLimit {
			return &ErrProcessLimitExceeded{Owner: e.Owner}
		}
	}
	e.seq = q.nextSeq
	q.nextSeq++
	heap.Push(&q.pq, e)
	if e.Pid != 0 {
		q.byPid[e.Pid] = e
	}
	return nil
}

// NextDueTime peeks the head's fire time without popping it (spec.md
// §4.F "next_due_time"). ok is false if the queue is empty or every
// remaining entry is timeless.
func (q *Queue) NextDueTime() (fireAt int64, ok bool) {
	for len(q.pq) > 0 && q.pq[0].deleted {
		heap.Pop(&q.pq)
	}
	if len(q.pq) == 0 || q.pq[0].Timeless {
		return 0, false
	}
	return q.pq[0].FireAt, true
}

// Tick repeatedly pops the head while its FireAt <= now, calling
// dispatch for each (spec.md §4.F "tick(now)"). Deleted entries
// (from Kill) are discarded rather than dispatched.
func (q *Queue) Tick(now int64, dispatch func(*Entry)) {
	for len(q.pq) > 0 {
		head := q.pq[0]
		if head.deleted {
			heap.Pop(&q.pq)
			continue
		}
		if head.Timeless || head.FireAt > now {
			return
		}
		heap.Pop(&q.pq)
		delete(q.byPid, head.Pid)
		dispatch(head)
	}
}

// Kill marks every entry for pid (or, if pid is zero, every entry for
// owner) deleted; they are purged lazily on the next pop rather than
// mid-iteration (spec.md §4.F "kill(pid) or kill(owner)").
func (q *Queue) Kill(pid Pid, owner value.ObjectID) int {
	n := 0
	for _, e := range q.pq {
		if e.deleted {
			continue
		}
		if (pid != 0 && e.Pid == pid) || (pid == 0 && e.Owner == owner) {
			e.deleted = true
			n++
		}
	}
	return n
}

// List returns a ProcInfo per live entry owned by owner (the PS
// primitive; spec.md §4.F "list(owner)").
func (q *Queue) List(owner value.ObjectID) []ProcInfo {
	var out []ProcInfo
	for _, e := range q.pq {
		if !e.deleted && e.Owner == owner {
			out = append(out, ProcInfo{Pid: e.Pid, Owner: e.Owner, Kind: e.Kind, FireAt: e.FireAt})
		}
	}
	return out
}

// Find returns the live entry for pid, if any.
func (q *Queue) Find(pid Pid) (*Entry, bool) {
	e, ok := q.byPid[pid]
	if !ok || e.deleted {
		return nil, false
	}
	return e, true
}
