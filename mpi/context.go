// Package mpi implements the template-expansion engine of spec.md §4.E:
// recursive expansion of "{func:arg1,arg2,...}" forms embedded in
// property text, against a closed dictionary of named functions.
package mpi

import (
	"fmt"

	"github.com/fuzzball-muck/muckcore/store"
	"github.com/fuzzball-muck/muckcore/value"
)

// Permission is the mask carried by one MPI invocation (spec.md §4.E
// "Permissions"). A blessed expansion runs as if initiated by the
// property's blesser; functions that would write require PermBlessed or
// an equivalent elevated mask bit to succeed.
type Permission uint8

const (
	PermPrivate Permission = 1 << iota
	PermListener
	PermLock
	PermDebug
	PermBlessed
)

// Has reports whether all bits in mask are set.
func (p Permission) Has(mask Permission) bool { return p&mask == mask }

// CanWrite reports whether this permission mask allows a write-capable
// function (in this dictionary, force and delay) to run.
func (p Permission) CanWrite() bool { return p.Has(PermBlessed) }

// Dispatcher is the narrow interface MPI needs onto the scheduler and
// boundary layers, kept separate so mpi does not import sched or
// boundary (spec.md §9 package-dependency direction: mpi sits below
// both). sched/boundary supply a concrete implementation at wiring time.
type Dispatcher interface {
	// Tell and OTell carry speaker (the effective player an expansion
	// runs as) so the dispatcher can apply the target's ignore cache
	// before delivering, mirroring interp.Dispatcher.
	Tell(speaker, to value.ObjectID, text string) error
	OTell(speaker, room, exclude value.ObjectID, text string) error
	Force(who value.ObjectID, command string) error
	Delay(seconds int, text string, ctx *Context) error
}

// ErrBudgetExceeded is MpiBudgetExceeded from spec.md §4.E: the
// per-invocation command counter ran out.
type ErrBudgetExceeded struct{ Limit int }

func (e *ErrBudgetExceeded) Error() string {
	return fmt.Sprintf("MPI_COMMANDS: expansion exceeded the %d-command budget", e.Limit)
}

// budget is the per-invocation command counter (spec.md §4.E "Recursion
// & cost bounds"), shared by every nested expansion inside one top-level
// call so "{null:{null:{null:...}}}" cannot rack up unbounded work.
type budget struct {
	used, max int
}

func (b *budget) charge() error {
	b.used++
	if b.used > b.max {
		return &ErrBudgetExceeded{Limit: b.max}
	}
	return nil
}

// varFrame is one scope of the variable stack pushed by with/for/foreach.
type varFrame map[string]string

// funcFrame is one scope of the user-function stack pushed by func.
type funcFrame struct {
	name string
	body string
}

const maxStackDepth = 32 // spec.md §4.E "capped at 32 entries"

// Context carries everything one top-level MPI invocation threads
// through its recursive expansion: the object-store view, the
// trigger/player/location triple, the permission mask, the shared
// command budget, and the two scoped stacks.
type Context struct {
	Store *store.Table

	Player  value.ObjectID
	Trigger value.ObjectID
	Loc     value.ObjectID

	Perm Permission

	Dispatch Dispatcher

	budget *budget
	vars   []varFrame
	funcs  []funcFrame
}

// NewContext starts a top-level invocation with a fresh command budget.
func NewContext(st *store.Table, player, trigger, loc value.ObjectID, perm Permission, dispatch Dispatcher, maxCommands int) *Context {
	return &Context{
		Store:    st,
		Player:   player,
		Trigger:  trigger,
		Loc:      loc,
		Perm:     perm,
		Dispatch: dispatch,
		budget:   &budget{max: maxCommands},
	}
}

// child returns a Context for a nested expansion (inside a string
// passed to with/for/delay/force) that shares this invocation's budget
// and stacks but may carry different ambient ids/permissions.
func (c *Context) child(player, trigger, loc value.ObjectID, perm Permission) *Context {
	return &Context{
		Store: c.Store, Player: player, Trigger: trigger, Loc: loc, Perm: perm,
		Dispatch: c.Dispatch, budget: c.budget, vars: c.vars, funcs: c.funcs,
	}
}

func (c *Context) pushVar(frame varFrame) error {
	if len(c.vars) >= maxStackDepth {
		return fmt.Errorf("MPI variable stack exceeds %d entries", maxStackDepth)
	}
	c.vars = append(c.vars, frame)
	return nil
}

func (c *Context) popVar() {
	if len(c.vars) > 0 {
		c.vars = c.vars[:len(c.vars)-1]
	}
}

// lookupVar searches the variable stack innermost-first.
func (c *Context) lookupVar(name string) (string, bool) {
	for i := len(c.vars) - 1; i >= 0; i-- {
		if v, ok := c.vars[i][name]; ok {
			return v, true
		}
	}
	return "", false
}

func (c *Context) pushFunc(f funcFrame) error {
	if len(c.funcs) >= maxStackDepth {
		return fmt.Errorf("MPI function stack exceeds %d entries", maxStackDepth)
	}
	c.funcs = append(c.funcs, f)
	return nil
}

func (c *Context) popFunc() {
	if len(c.funcs) > 0 {
		c.funcs = c.funcs[:len(c.funcs)-1]
	}
}

// lookupFunc finds a user function pushed by {func:...}. Functions
// accessible to a given call site are frozen at push time (lexical),
// matching spec.md's "funcs accessible are frozen at call site".
func (c *Context) lookupFunc(name string) (string, bool) {
	for i := len(c.funcs) - 1; i >= 0; i-- {
		if c.funcs[i].name == name {
			return c.funcs[i].body, true
		}
	}
	return "", false
}
