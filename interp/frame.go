// Package interp implements the bytecode interpreter of spec.md §3.5 and
// §4.D: the per-activation Frame, the single-threaded step/dispatch
// loop, and TRY/CATCH exception regions. It depends on store (earlier
// in the package order) but never on sched: frames are
// scheduled by something implementing the Scheduler interface declared
// here, the same seam mpi uses for Dispatcher, so interp never needs to
// import the scheduler package that in turn schedules interp frames.
package interp

import (
	"github.com/fuzzball-muck/muckcore/interp/compile"
	"github.com/fuzzball-muck/muckcore/interp/muckerr"
	"github.com/fuzzball-muck/muckcore/store"
	"github.com/fuzzball-muck/muckcore/value"
)

// Reserved global variable slots (spec.md §3.5 "54 slots, of which 4 are
// reserved: me, loc, trigger, command").
const (
	GlobalMe = iota
	GlobalLoc
	GlobalTrigger
	GlobalCommand
	numReservedGlobals
)

const totalGlobalSlots = 54

// MultitaskMode is a frame's scheduling discipline (spec.md §5).
type MultitaskMode uint8

const (
	ModePreempt MultitaskMode = iota
	ModeForeground
	ModeBackground
)

// ErrorMask bits track the sticky floating-point fault flags of
// spec.md §3.5; these never abort the frame, they only set a bit the
// ERROR? family of primitives can observe and clear.
type ErrorMask uint8

const (
	ErrDivZero ErrorMask = 1 << iota
	ErrNaN
	ErrImaginary
	ErrFloatOverflow
	ErrIntOverflow
)

// varRef is what OpGlobalVar/OpLocalVar/OpScopedVar push: a reference
// token, not a value. '@' and '!' resolve it.
type varRef struct {
	kind varRefKind
	slot int
}

type varRefKind uint8

const (
	varGlobal varRefKind = iota
	varLocal
	varScoped
)

type sysEntry struct {
	returnPC int
	forDepth int
	tryDepth int
}

type forEntry struct {
	isArray      bool
	cur, end, by int32
	arr          *value.SharedArray
	idx          int
	keys         []value.Value
}

type tryHandler struct {
	dataDepth int
	sysDepth  int
	forDepth  int
	catchPC   int
}

// Frame is one program activation (spec.md §3.5). It is owned
// exclusively by the scheduler while not running and exclusively by
// the interpreter's step loop while running.
type Frame struct {
	Program *compile.Program
	PC      int

	OwningProgram value.ObjectID
	Trigger       value.ObjectID
	Descr         int

	Data []value.Value
	Sys  []sysEntry
	For  []forEntry
	Try  []tryHandler

	Globals    [totalGlobalSlots]value.Value
	localChain map[value.ObjectID][]value.Value
	scoped     []value.Value

	Perm          int // effective permission level, 0-4
	Instigator    value.ObjectID
	EffectiveUID  value.ObjectID
	Pid           int64
	StartedAt     int64
	InstrCount    int64
	Mode          MultitaskMode
	TimerCount    int
	PendingEvents []Event
	WatchedBy     []int64
	ErrMask       ErrorMask
	ForceDepth    int

	// Suspend is set by a suspension-point primitive (SLEEP, READ,
	// EVENT_WAITFOR, WATCHPID, per spec.md section 5) after it has handed
	// the frame's continuation to the scheduler. Run checks it once per
	// instruction and yields control back to the scheduler instead of
	// continuing to execute past the suspension point.
	Suspend bool

	backgrounded bool
	Store        *store.Table
	lastErr      *muckerr.Error
}

// Event is one queued MUF event (spec.md §4.F "Event ordering").
type Event struct {
	Name  string
	Value value.Value
}

const (
	maxDataStack = 1024
	maxSysStack  = 1024
	maxForStack  = 1024
	maxTryStack  = 1024
)

// NewFrame allocates a fresh activation for prog, owned by owningProgram
// and triggered by trigger, to be run on behalf of instigator at the
// given permission level. This does not consult a free-frame pool
// (spec.md §3.5's pool is an allocator optimization the scheduler
// package is free to layer on top; Frame has no reset method, so every
// activation gets a freshly allocated Frame).
func NewFrame(st *store.Table, prog *compile.Program, owningProgram, trigger value.ObjectID, instigator value.ObjectID, perm int, mode MultitaskMode) *Frame {
	f := &Frame{
		Program:       prog,
		OwningProgram: owningProgram,
		Trigger:       trigger,
		Instigator:    instigator,
		EffectiveUID:  instigator,
		Perm:          perm,
		Mode:          mode,
		Store:         st,
		localChain:    map[value.ObjectID][]value.Value{},
	}
	f.Globals[GlobalMe] = value.Obj(instigator)
	f.Globals[GlobalTrigger] = value.Obj(trigger)
	return f
}

// Background reports whether this frame is running in background
// multitask mode, satisfying sched.Backgroundable without sched ever
// importing this package.
func (f *Frame) Background() bool { return f.Mode == ModeBackground }

// Clone returns an independent copy of f for FORK's child activation
// (spec.md §4.D.4 "FORK": "forks process into two"). The clone shares
// the same program, PC, globals and permission state at the instant of
// the fork but owns its own stacks from that point on, so parent and
// child diverge exactly at FORK the way process fork() would.
func (f *Frame) Clone() *Frame {
	c := *f
	c.Data = append([]value.Value(nil), f.Data...)
	c.Sys = append([]sysEntry(nil), f.Sys...)
	c.For = append([]forEntry(nil), f.For...)
	c.Try = append([]tryHandler(nil), f.Try...)
	c.scoped = append([]value.Value(nil), f.scoped...)
	c.PendingEvents = append([]Event(nil), f.PendingEvents...)
	c.WatchedBy = append([]int64(nil), f.WatchedBy...)
	c.localChain = make(map[value.ObjectID][]value.Value, len(f.localChain))
	for k, v := range f.localChain {
		c.localChain[k] = append([]value.Value(nil), v...)
	}
	return &c
}

func (f *Frame) localSlots() []value.Value {
	slots, ok := f.localChain[f.OwningProgram]
	if !ok {
		slots = make([]value.Value, f.Program.NumLocals)
		f.localChain[f.OwningProgram] = slots
	}
	return slots
}

func (f *Frame) pushData(v value.Value) error {
	if len(f.Data) >= maxDataStack {
		return muckerr.New(muckerr.StackOverflow, "data stack full")
	}
	f.Data = append(f.Data, v)
	return nil
}

func (f *Frame) popData() (value.Value, error) {
	if len(f.Data) == 0 {
		return value.Value{}, muckerr.New(muckerr.StackUnderflow, "data stack empty")
	}
	v := f.Data[len(f.Data)-1]
	f.Data = f.Data[:len(f.Data)-1]
	return v, nil
}

func (f *Frame) peekData() (value.Value, error) {
	if len(f.Data) == 0 {
		return value.Value{}, muckerr.New(muckerr.StackUnderflow, "data stack empty")
	}
	return f.Data[len(f.Data)-1], nil
}
