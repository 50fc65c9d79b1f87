package compile

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fuzzball-muck/muckcore/value"
)

// ctrlKind tags an open control-flow construct awaiting its closing
// word, so THEN/REPEAT/NEXT/ENDCATCH know what to backpatch.
type ctrlKind int

const (
	ctrlIf ctrlKind = iota
	ctrlIfElse
	ctrlBegin
	ctrlBeginWhile
	ctrlFor
	ctrlTry
	ctrlCatch
)

type ctrlFrame struct {
	kind     ctrlKind
	at       int // instruction index of the opening jump/mark to backpatch
	beginIdx int // BEGIN's target instruction index, for UNTIL/REPEAT to jump back to
}

// compiler holds the state of one compilation pass. A fresh compiler is
// used per Compile call; it is not reentrant.
type compiler struct {
	instrs  []Instr
	ctrl    []ctrlFrame
	line    int
	publics map[string]int
	mcp     map[string]int

	wordEntry    map[string]int
	pendingCalls map[string][]int
	lastWord     string

	globals map[string]int
	locals  map[string]int
}

// Compile turns MUF source into a Program (spec.md §4.D.1). Compilation
// errors are reported as muckerr ParseError-shaped errors by the
// caller; here a plain error is enough since compile failures never
// cross the frame boundary (they happen before any frame exists).
func Compile(src string) (*Program, error) {
	c := &compiler{
		publics:      map[string]int{},
		mcp:          map[string]int{},
		wordEntry:    map[string]int{},
		pendingCalls: map[string][]int{},
		globals:      map[string]int{},
		locals:       map[string]int{},
	}
	toks := lex(src)
	i := 0
	for i < len(toks) {
		t := toks[i]
		c.line = t.line
		switch t.kind {
		case tokInt:
			n, _ := strconv.ParseInt(t.text, 10, 32)
			c.emit(Instr{Op: OpPushValue, Val: value.Int(int32(n))})
		case tokFloat:
			f, _ := strconv.ParseFloat(t.text, 64)
			c.emit(Instr{Op: OpPushValue, Val: value.Float(f)})
		case tokString:
			c.emit(Instr{Op: OpPushValue, Val: value.Str(t.text)})
		case tokObject:
			n, _ := strconv.ParseInt(t.text[1:], 10, 32)
			c.emit(Instr{Op: OpPushValue, Val: value.Obj(value.ObjectID(n))})
		default:
			var err error
			i, err = c.word(toks, i)
			if err != nil {
				return nil, err
			}
			continue
		}
		i++
	}
	if len(c.ctrl) != 0 {
		return nil, fmt.Errorf("MUF: unterminated control structure at end of source (kind %d)", c.ctrl[len(c.ctrl)-1].kind)
	}
	for name, sites := range c.pendingCalls {
		if len(sites) > 0 {
			return nil, fmt.Errorf("MUF: call to undefined word %q", name)
		}
	}
	return &Program{
		Instrs:     c.instrs,
		Publics:    c.publics,
		MCP:        c.mcp,
		NumGlobals: len(c.globals),
		NumLocals:  len(c.locals),
	}, nil
}

func (c *compiler) emit(in Instr) int {
	in.Line = c.line
	c.instrs = append(c.instrs, in)
	return len(c.instrs) - 1
}

func (c *compiler) pushCtrl(f ctrlFrame) { c.ctrl = append(c.ctrl, f) }

func (c *compiler) popCtrl(want ...ctrlKind) (ctrlFrame, error) {
	if len(c.ctrl) == 0 {
		return ctrlFrame{}, fmt.Errorf("MUF: unmatched closing word at line %d", c.line)
	}
	top := c.ctrl[len(c.ctrl)-1]
	ok := false
	for _, k := range want {
		if top.kind == k {
			ok = true
		}
	}
	if !ok {
		return ctrlFrame{}, fmt.Errorf("MUF: mismatched control structure at line %d", c.line)
	}
	c.ctrl = c.ctrl[:len(c.ctrl)-1]
	return top, nil
}

// word handles one non-literal token: reserved control words, variable
// declarations, colon definitions, or a bareword that is either a
// primitive, a defined word call, or a variable reference. Returns the
// next token index.
func (c *compiler) word(toks []token, i int) (int, error) {
	t := toks[i]
	upper := strings.ToUpper(t.text)
	switch upper {
	case ":":
		if i+1 >= len(toks) {
			return 0, fmt.Errorf("MUF: ':' with no following name at line %d", t.line)
		}
		name := toks[i+1].text
		entry := len(c.instrs)
		c.wordEntry[name] = entry
		for _, idx := range c.pendingCalls[name] {
			c.instrs[idx].Target = entry
		}
		delete(c.pendingCalls, name)
		c.lastWord = name
		return i + 2, nil
	case ";":
		c.emit(Instr{Op: OpRet})
		return i + 1, nil
	case "PUBLIC":
		if i+1 >= len(toks) {
			return 0, fmt.Errorf("MUF: PUBLIC with no following name at line %d", t.line)
		}
		name := toks[i+1].text
		if e, ok := c.wordEntry[name]; ok {
			c.publics[name] = e
		} else {
			return 0, fmt.Errorf("MUF: PUBLIC %s before its definition at line %d", name, t.line)
		}
		return i + 2, nil
	case "VAR":
		if i+1 >= len(toks) {
			return 0, fmt.Errorf("MUF: VAR with no following name at line %d", t.line)
		}
		name := toks[i+1].text
		if _, exists := c.globals[name]; !exists {
			c.globals[name] = len(c.globals)
		}
		return i + 2, nil
	case "LVAR":
		if i+1 >= len(toks) {
			return 0, fmt.Errorf("MUF: LVAR with no following name at line %d", t.line)
		}
		name := toks[i+1].text
		if _, exists := c.locals[name]; !exists {
			c.locals[name] = len(c.locals)
		}
		return i + 2, nil
	case "IF":
		at := c.emit(Instr{Op: OpIf})
		c.pushCtrl(ctrlFrame{kind: ctrlIf, at: at})
		return i + 1, nil
	case "ELSE":
		top, err := c.popCtrl(ctrlIf)
		if err != nil {
			return 0, err
		}
		jmp := c.emit(Instr{Op: OpJmp})
		c.instrs[top.at].Target = len(c.instrs)
		c.pushCtrl(ctrlFrame{kind: ctrlIfElse, at: jmp})
		return i + 1, nil
	case "THEN":
		top, err := c.popCtrl(ctrlIf, ctrlIfElse)
		if err != nil {
			return 0, err
		}
		c.instrs[top.at].Target = len(c.instrs)
		return i + 1, nil
	case "BEGIN":
		c.pushCtrl(ctrlFrame{kind: ctrlBegin, beginIdx: len(c.instrs)})
		return i + 1, nil
	case "UNTIL":
		top, err := c.popCtrl(ctrlBegin)
		if err != nil {
			return 0, err
		}
		c.emit(Instr{Op: OpIf, Target: top.beginIdx})
		return i + 1, nil
	case "WHILE":
		top, err := c.popCtrl(ctrlBegin)
		if err != nil {
			return 0, err
		}
		at := c.emit(Instr{Op: OpIf})
		c.pushCtrl(ctrlFrame{kind: ctrlBeginWhile, at: at, beginIdx: top.beginIdx})
		return i + 1, nil
	case "REPEAT":
		top, err := c.popCtrl(ctrlBeginWhile)
		if err != nil {
			return 0, err
		}
		c.emit(Instr{Op: OpJmp, Target: top.beginIdx})
		c.instrs[top.at].Target = len(c.instrs)
		return i + 1, nil
	case "FOR":
		at := c.emit(Instr{Op: OpForIntStart})
		c.pushCtrl(ctrlFrame{kind: ctrlFor, at: at, beginIdx: len(c.instrs)})
		return i + 1, nil
	case "FOREACH":
		at := c.emit(Instr{Op: OpForArrayStart})
		c.pushCtrl(ctrlFrame{kind: ctrlFor, at: at, beginIdx: len(c.instrs)})
		return i + 1, nil
	case "NEXT":
		top, err := c.popCtrl(ctrlFor)
		if err != nil {
			return 0, err
		}
		c.emit(Instr{Op: OpForNext, Target: top.beginIdx})
		return i + 1, nil
	case "TRY":
		at := c.emit(Instr{Op: OpTry})
		c.pushCtrl(ctrlFrame{kind: ctrlTry, at: at})
		return i + 1, nil
	case "CATCH":
		top, err := c.popCtrl(ctrlTry)
		if err != nil {
			return 0, err
		}
		c.emit(Instr{Op: OpCatch})
		jmp := c.emit(Instr{Op: OpJmp})
		c.instrs[top.at].Target = len(c.instrs)
		c.pushCtrl(ctrlFrame{kind: ctrlCatch, at: jmp})
		return i + 1, nil
	case "ENDCATCH":
		top, err := c.popCtrl(ctrlCatch)
		if err != nil {
			return 0, err
		}
		c.instrs[top.at].Target = len(c.instrs)
		return i + 1, nil
	case "@":
		c.emit(Instr{Op: OpVarRead})
		return i + 1, nil
	case "!":
		c.emit(Instr{Op: OpVarWrite})
		return i + 1, nil
	}

	if slot, ok := c.locals[t.text]; ok {
		c.emit(Instr{Op: OpLocalVar, Slot: slot, Name: t.text})
		return i + 1, nil
	}
	if slot, ok := c.globals[t.text]; ok {
		c.emit(Instr{Op: OpGlobalVar, Slot: slot, Name: t.text})
		return i + 1, nil
	}
	if entry, ok := c.wordEntry[t.text]; ok {
		c.emit(Instr{Op: OpExec, Target: entry, Name: t.text})
		return i + 1, nil
	}
	if looksLikeDefinedWordForwardRef(toks, i, t.text) {
		idx := c.emit(Instr{Op: OpExec, Name: t.text})
		c.pendingCalls[t.text] = append(c.pendingCalls[t.text], idx)
		return i + 1, nil
	}
	c.emit(Instr{Op: OpPrimitive, Name: strings.ToUpper(t.text)})
	return i + 1, nil
}

// looksLikeDefinedWordForwardRef reports whether t.text is ever
// defined by a later ": name" in the remaining token stream, so a
// forward call to a word defined later in the same source compiles to
// OpExec (backpatched) rather than an unknown-primitive dispatch.
func looksLikeDefinedWordForwardRef(toks []token, from int, name string) bool {
	for j := from + 1; j+1 < len(toks); j++ {
		if toks[j].text == ":" && toks[j+1].text == name {
			return true
		}
	}
	return false
}
