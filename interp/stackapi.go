package interp

import "github.com/fuzzball-muck/muckcore/value"

// Push, Pop and Peek are the data-stack surface interp/primitive uses to
// implement spec.md §4.D.4's primitives. They are thin exported wrappers
// over the same pushData/popData/peekData the step loop itself uses, so
// a primitive obeys the same 1024-slot bound and StackUnderflow/
// StackOverflow errors as every other stack access.
func (f *Frame) Push(v value.Value) error { return f.pushData(v) }
func (f *Frame) Pop() (value.Value, error) { return f.popData() }
func (f *Frame) Peek() (value.Value, error) { return f.peekData() }

// Depth returns the current data-stack depth (DEPTH primitive).
func (f *Frame) Depth() int { return len(f.Data) }

// Sched and Disp expose the registry's scheduler/dispatcher seams to
// interp/primitive, which cannot reach the unexported fields directly.
// Mirrors Push/Pop/Peek: a thin exported wrapper over state the step
// loop itself does not touch, so no existing behavior changes.
func (r *Registry) Sched() Scheduler  { return r.sched }
func (r *Registry) Disp() Dispatcher { return r.disp }
