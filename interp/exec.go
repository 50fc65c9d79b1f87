package interp

import (
	"github.com/fuzzball-muck/muckcore/interp/compile"
	"github.com/fuzzball-muck/muckcore/interp/muckerr"
	"github.com/fuzzball-muck/muckcore/value"
)

// Primitive is one dispatchable opcode body (spec.md §4.D.4): it reads
// and writes the frame's data stack directly and returns a structured
// failure rather than panicking.
type Primitive func(f *Frame, reg *Registry) error

// Registry is the primitive dispatch table, built once at process start
// and shared (read-only after construction) by every frame.
type Registry struct {
	table map[string]primEntry
	sched Scheduler
	disp  Dispatcher
}

type primEntry struct {
	fn       Primitive
	minTrust int
}

// NewRegistry builds an empty registry; callers (primitive package)
// register primitives into it via Register.
func NewRegistry(sched Scheduler, disp Dispatcher) *Registry {
	return &Registry{table: map[string]primEntry{}, sched: sched, disp: disp}
}

// Register adds name (case-insensitive, matched upper-cased by the
// compiler) to the dispatch table with its minimum trust level.
func (r *Registry) Register(name string, minTrust int, fn Primitive) {
	r.table[name] = primEntry{fn: fn, minTrust: minTrust}
}

// Scheduler is the seam interp uses to reach the scheduler (SLEEP,
// READ, EVENT_WAITFOR, FORK, KILL, PID, TIMER_START/STOP) without
// importing the sched package, mirroring mpi.Dispatcher.
type Scheduler interface {
	// Sleep, EventWaitFor and TimerStart take the whole Frame (not just
	// its pid) because the scheduler must carry the frame pointer on the
	// queue entry it creates: that entry is the only thing that can
	// resume (Sleep, EventWaitFor) or notify (TimerStart) the frame
	// later, and sched never keeps a pid->frame table of its own (spec.md
	// §9 "do not couple the scheduler to host-language async
	// primitives" — the frame IS the continuation).
	Sleep(f *Frame, seconds int) error
	Fork(parent *Frame) (pid int64, err error)
	Kill(pid int64) bool
	EventWaitFor(f *Frame, filters []string) error
	TimerStart(f *Frame, seconds int, id string) error
	TimerStop(pid int64, id string) bool
	// Read registers f as blocked on a line from its owning descriptor
	// (spec.md §4.F MufReadWait, §5 suspension point (b)). wantsBlanks
	// mirrors spec.md §4.F's READ semantics: a blank line is delivered
	// only when the frame declared it wants them.
	Read(f *Frame, wantsBlanks bool) error
	// QueueCommand implements the QUEUE primitive: enqueue prog to run
	// cmdstr after delaySeconds, on behalf of the player that owns f,
	// returning the new pid (spec.md §4.F DelayedCommand).
	QueueCommand(f *Frame, delaySeconds int, prog value.ObjectID, cmdstr string) (pid int64, err error)
	// EventSend implements EVENT_SEND (spec.md §4.F "deliver_event(pid,
	// name, value)"): routes name/val to the frame the scheduler is
	// currently holding for pid, unblocking it if it is parked in
	// EVENT_WAITFOR. ok is false when pid is not currently suspended
	// anywhere the scheduler can see (it is running, or does not exist),
	// in which case the event is not delivered anywhere.
	EventSend(pid int64, name string, val value.Value) (ok bool, err error)
}

// Dispatcher is the seam interp uses to emit player-visible text
// (NOTIFY/TELL/OTELL) and to run a command on another object's behalf
// (FORCE), mirroring mpi.Dispatcher.
type Dispatcher interface {
	// Tell and OTell carry speaker, the frame's effective instigator, so
	// the dispatcher can consult the target's ignore cache (spec.md
	// §3.1/§4.G "an ignored-players reflist cache") before fanning the
	// message out.
	Tell(speaker, to value.ObjectID, text string) error
	OTell(speaker, room, exclude value.ObjectID, text string) error
	// Force runs command as who, the way a DelayedCommand dequeue would,
	// implementing spec.md §4.D.4 Meta's "FORCE runs a command as another
	// object."
	Force(who value.ObjectID, command string) error
}

// StepResult tells the driver what the frame did this slice.
type StepResult int

const (
	StepYielded StepResult = iota
	StepTerminated
	StepSuspended
	StepError
)

// Run executes f until it suspends, terminates, yields past its
// instruction slice, or exceeds its preempt-mode instruction cap
// (spec.md §4.D.2 step 3). sliceSize is the per-call instruction budget
// for non-preempt frames; preempt frames ignore it and run to
// completion or to instrLimit.
func Run(f *Frame, reg *Registry, sliceSize int, instrLimit int64) (StepResult, error) {
	ran := 0
	for {
		if f.PC < 0 || f.PC >= len(f.Program.Instrs) {
			return StepTerminated, nil
		}
		res, err := step(f, reg)
		if err != nil {
			if handled := unwindToTry(f, err); handled {
				continue
			}
			return StepError, err
		}
		if f.Suspend {
			f.Suspend = false
			return StepSuspended, nil
		}
		if res != StepYielded {
			return res, nil
		}
		ran++
		f.InstrCount++
		if f.Mode == ModePreempt {
			if instrLimit > 0 && f.InstrCount > instrLimit {
				return StepError, muckerr.LimitExceededf("Instr")
			}
			continue
		}
		if ran >= sliceSize {
			return StepYielded, nil
		}
	}
}

// unwindToTry pops frames off the data/system/for stacks down to the
// innermost TRY handler's recorded depths and jumps to its catch pc
// (spec.md §4.D.3). Returns false if no handler is in scope, in which
// case the caller terminates the activation.
func unwindToTry(f *Frame, cause error) bool {
	if len(f.Try) == 0 {
		return false
	}
	h := f.Try[len(f.Try)-1]
	f.Try = f.Try[:len(f.Try)-1]
	if h.dataDepth <= len(f.Data) {
		f.Data = f.Data[:h.dataDepth]
	}
	if h.sysDepth <= len(f.Sys) {
		f.Sys = f.Sys[:h.sysDepth]
	}
	if h.forDepth <= len(f.For) {
		f.For = f.For[:h.forDepth]
	}
	f.Data = append(f.Data, value.Str(cause.Error()))
	f.PC = h.catchPC
	return true
}

// step executes exactly one instruction (spec.md §4.D.2). It performs
// no debugger breakpoint check (step 1); this package has no debugger.
func step(f *Frame, reg *Registry) (StepResult, error) {
	in := f.Program.Instrs[f.PC]
	switch in.Op {
	case compile.OpPushValue:
		if err := f.pushData(in.Val); err != nil {
			return StepError, err
		}
		f.PC++
	case compile.OpGlobalVar:
		if err := f.pushData(encodeVarRef(varRef{kind: varGlobal, slot: in.Slot})); err != nil {
			return StepError, err
		}
		f.PC++
	case compile.OpLocalVar:
		if err := f.pushData(encodeVarRef(varRef{kind: varLocal, slot: in.Slot})); err != nil {
			return StepError, err
		}
		f.PC++
	case compile.OpScopedVar:
		if err := f.pushData(encodeVarRef(varRef{kind: varScoped, slot: in.Slot})); err != nil {
			return StepError, err
		}
		f.PC++
	case compile.OpVarRead:
		if err := execVarRead(f); err != nil {
			return StepError, err
		}
		f.PC++
	case compile.OpVarWrite:
		if err := execVarWrite(f); err != nil {
			return StepError, err
		}
		f.PC++
	case compile.OpIf:
		v, err := f.popData()
		if err != nil {
			return StepError, err
		}
		if v.IsFalsey() {
			f.PC = in.Target
		} else {
			f.PC++
		}
	case compile.OpJmp:
		f.PC = in.Target
	case compile.OpExec:
		if len(f.Sys) >= maxSysStack {
			return StepError, muckerr.New(muckerr.StackOverflow, "system stack full")
		}
		f.Sys = append(f.Sys, sysEntry{returnPC: f.PC + 1, forDepth: len(f.For), tryDepth: len(f.Try)})
		f.PC = in.Target
	case compile.OpRet:
		if len(f.Sys) == 0 {
			return StepTerminated, nil
		}
		top := f.Sys[len(f.Sys)-1]
		f.Sys = f.Sys[:len(f.Sys)-1]
		f.PC = top.returnPC
	case compile.OpPrimitive:
		entry, ok := reg.table[in.Name]
		if !ok {
			return StepError, muckerr.Newf(muckerr.NotFound, "unknown primitive %q", in.Name)
		}
		if f.Perm < entry.minTrust {
			return StepError, muckerr.Newf(muckerr.PermissionDenied, "%s requires trust %d", in.Name, entry.minTrust)
		}
		if err := entry.fn(f, reg); err != nil {
			return StepError, err
		}
		f.PC++
	case compile.OpMark:
		if err := f.pushData(value.Mark(int32(len(f.Data)))); err != nil {
			return StepError, err
		}
		f.PC++
	case compile.OpForIntStart:
		if err := execForIntStart(f); err != nil {
			return StepError, err
		}
		f.PC++
	case compile.OpForArrayStart:
		if err := execForArrayStart(f); err != nil {
			return StepError, err
		}
		f.PC++
	case compile.OpForNext:
		more, err := execForNext(f)
		if err != nil {
			return StepError, err
		}
		if more {
			f.PC = in.Target
		} else {
			f.PC++
		}
	case compile.OpTry:
		if len(f.Try) >= maxTryStack {
			return StepError, muckerr.New(muckerr.StackOverflow, "try stack full")
		}
		f.Try = append(f.Try, tryHandler{dataDepth: len(f.Data), sysDepth: len(f.Sys), forDepth: len(f.For), catchPC: in.Target})
		f.PC++
	case compile.OpCatch:
		if len(f.Try) > 0 {
			f.Try = f.Try[:len(f.Try)-1]
		}
		f.PC++
	default:
		return StepError, muckerr.Newf(muckerr.InternalInvariant, "unhandled opcode %d", in.Op)
	}
	return StepYielded, nil
}
