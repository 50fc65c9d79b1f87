// Package compile turns Forth-family MUF source (spec.md §4.D.1) into a
// flat instruction vector the interp package's step loop executes. The
// compiler is a direct-threaded single pass with backpatched jump
// targets, modeled on the teacher's runtime/lexer + runtime/parser
// tokenize-then-fold pipeline (core/ir node shapes stand in for our flat
// Instr vector, since the target here is a stack machine rather than a
// tree-walked IR).
package compile

import "github.com/fuzzball-muck/muckcore/value"

// Op is one bytecode instruction variant (spec.md §4.D.2 "Dispatch on
// pc->type").
type Op uint8

const (
	OpPushValue Op = iota // push Instr.Val (Int/Float/String/Object/Lock/Array/Mark literal)
	OpPushFuncName
	OpGlobalVar // push a reference token to global slot Instr.Slot
	OpLocalVar  // push a reference token to a local-variable-chain slot
	OpScopedVar // push a reference token to a function-scoped variable
	OpVarRead   // '@': pop a var-ref token, push its value
	OpVarWrite  // '!': pop value then var-ref token, store
	OpIf        // pop; if falsey, jump to Instr.Target
	OpJmp       // unconditional jump to Instr.Target
	OpExec      // push return state, jump to Instr.Target (CALL of a colon-definition)
	OpRet       // pop one system-stack frame; terminate if none
	OpPrimitive // dispatch primitive named Instr.Name
	OpMark      // push a stack-range mark

	OpForIntStart   // pop (step, end, start); push loop frame and start; body begins next instruction
	OpForArrayStart // pop array; push loop frame; iterates (index, value) pairs
	OpForNext       // advance the innermost loop frame; jump to Instr.Target if more, else fall through

	OpTry   // push a TRY handler recording current stack depths; catch pc = Instr.Target
	OpCatch // pop the innermost TRY handler
)

// Instr is one compiled instruction. Only the fields relevant to Op are
// meaningful, mirroring Entry's tagged-union shape in the sched package.
type Instr struct {
	Op     Op
	Val    value.Value
	Name   string // primitive name, function name literal, or var name
	Slot   int    // global/local/scoped variable slot index
	Target int    // jump/call destination, instruction index
	Line   int    // source line, for the line-number table and tracebacks
}

// Program is one compiled procedure's output: spec.md §4.D.1 "a
// contiguous instruction vector plus line-number table, a publics
// table, and a set of MCP message bindings".
type Program struct {
	Instrs     []Instr
	Publics    map[string]int // public word name -> entry instruction index
	MCP        map[string]int // "pkg-msg" -> handler entry instruction index
	NumGlobals int            // slots reserved by VAR declarations
	NumLocals  int            // slots reserved by LVAR declarations
}

// EntryPoint returns the instruction index of name, or the program's
// first instruction if name is empty (the implicit main procedure).
func (p *Program) EntryPoint(name string) (int, bool) {
	if name == "" {
		return 0, len(p.Instrs) > 0
	}
	idx, ok := p.Publics[name]
	return idx, ok
}
