package mpi

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fuzzball-muck/muckcore/value"
)

// funcDef is one entry of the closed function dictionary (spec.md
// §4.E): its arity bounds and its pre-parse/post-parse/strip
// declarations, plus the Go closure that implements it.
type funcDef struct {
	MinArgs, MaxArgs int // -1 for MaxArgs means variadic
	PreParse         bool
	PostParse        bool
	Strip            bool
	WriteOnly        bool // requires Permission.CanWrite()
	Call             func(ctx *Context, args []string) (string, error)
}

var registry map[string]funcDef

func init() {
	registry = map[string]funcDef{
		"null":     {MinArgs: 0, MaxArgs: -1, PreParse: true, Call: fnNull},
		"add":      {MinArgs: 2, MaxArgs: -1, PreParse: true, Strip: true, Call: fnAdd},
		"subtract": {MinArgs: 2, MaxArgs: 2, PreParse: true, Strip: true, Call: fnSubtract},
		"multiply": {MinArgs: 2, MaxArgs: -1, PreParse: true, Strip: true, Call: fnMultiply},
		"divide":   {MinArgs: 2, MaxArgs: 2, PreParse: true, Strip: true, Call: fnDivide},
		"mod":      {MinArgs: 2, MaxArgs: 2, PreParse: true, Strip: true, Call: fnMod},

		"strcat": {MinArgs: 0, MaxArgs: -1, PreParse: true, Call: fnStrCat},
		"strlen": {MinArgs: 1, MaxArgs: 1, PreParse: true, Call: fnStrLen},
		"tolower": {MinArgs: 1, MaxArgs: 1, PreParse: true, Call: fnToLower},
		"toupper": {MinArgs: 1, MaxArgs: 1, PreParse: true, Call: fnToUpper},
		"midstr":  {MinArgs: 3, MaxArgs: 3, PreParse: true, Call: fnMidStr},
		"subst":   {MinArgs: 3, MaxArgs: 3, PreParse: true, Call: fnSubst},

		"eq":     {MinArgs: 2, MaxArgs: 2, PreParse: true, Strip: true, Call: fnEq},
		"if":     {MinArgs: 2, MaxArgs: 3, PreParse: false, PostParse: true, Call: fnIf},
		"ifelse": {MinArgs: 3, MaxArgs: 3, PreParse: false, PostParse: true, Call: fnIf},

		"with": {MinArgs: 3, MaxArgs: -1, PreParse: false, Call: fnWith},
		"for":  {MinArgs: 4, MaxArgs: 4, PreParse: false, Call: fnFor},

		"name":  {MinArgs: 1, MaxArgs: 1, PreParse: true, Call: fnName},
		"owner": {MinArgs: 1, MaxArgs: 1, PreParse: true, Call: fnOwner},
		"loc":   {MinArgs: 1, MaxArgs: 1, PreParse: true, Call: fnLoc},

		"time": {MinArgs: 0, MaxArgs: 0, Call: fnTime},

		"tell":  {MinArgs: 1, MaxArgs: 1, PreParse: true, WriteOnly: false, Call: fnTell},
		"otell": {MinArgs: 1, MaxArgs: 1, PreParse: true, WriteOnly: false, Call: fnOTell},
		"force": {MinArgs: 2, MaxArgs: 2, PreParse: true, WriteOnly: true, Call: fnForce},
		"delay": {MinArgs: 2, MaxArgs: 2, PreParse: false, WriteOnly: true, Call: fnDelay},

		"func": {MinArgs: 2, MaxArgs: 2, PreParse: false, WriteOnly: false, Call: fnFunc},
	}
}

func fnNull(_ *Context, _ []string) (string, error) { return "", nil }

func parseNum(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f, err == nil
}

func formatNum(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func fnAdd(_ *Context, args []string) (string, error) {
	sum := 0.0
	for _, a := range args {
		n, ok := parseNum(a)
		if !ok {
			return "", fmt.Errorf("MPI: {add} argument %q is not a number", a)
		}
		sum += n
	}
	return formatNum(sum), nil
}

func fnSubtract(_ *Context, args []string) (string, error) {
	a, ok1 := parseNum(args[0])
	b, ok2 := parseNum(args[1])
	if !ok1 || !ok2 {
		return "", fmt.Errorf("MPI: {subtract} requires two numbers")
	}
	return formatNum(a - b), nil
}

func fnMultiply(_ *Context, args []string) (string, error) {
	product := 1.0
	for _, a := range args {
		n, ok := parseNum(a)
		if !ok {
			return "", fmt.Errorf("MPI: {multiply} argument %q is not a number", a)
		}
		product *= n
	}
	return formatNum(product), nil
}

func fnDivide(_ *Context, args []string) (string, error) {
	a, ok1 := parseNum(args[0])
	b, ok2 := parseNum(args[1])
	if !ok1 || !ok2 {
		return "", fmt.Errorf("MPI: {divide} requires two numbers")
	}
	if b == 0 {
		return "", fmt.Errorf("MPI: {divide} by zero")
	}
	return formatNum(a / b), nil
}

func fnMod(_ *Context, args []string) (string, error) {
	a, err1 := strconv.Atoi(strings.TrimSpace(args[0]))
	b, err2 := strconv.Atoi(strings.TrimSpace(args[1]))
	if err1 != nil || err2 != nil {
		return "", fmt.Errorf("MPI: {mod} requires two integers")
	}
	if b == 0 {
		return "", fmt.Errorf("MPI: {mod} by zero")
	}
	return strconv.Itoa(a % b), nil
}

func fnStrCat(_ *Context, args []string) (string, error) { return strings.Join(args, ""), nil }

func fnStrLen(_ *Context, args []string) (string, error) {
	return strconv.Itoa(len(args[0])), nil
}

func fnToLower(_ *Context, args []string) (string, error) { return strings.ToLower(args[0]), nil }
func fnToUpper(_ *Context, args []string) (string, error) { return strings.ToUpper(args[0]), nil }

func fnMidStr(_ *Context, args []string) (string, error) {
	s := args[0]
	start, err := strconv.Atoi(strings.TrimSpace(args[1]))
	if err != nil {
		return "", fmt.Errorf("MPI: {midstr} start must be an integer")
	}
	length, err := strconv.Atoi(strings.TrimSpace(args[2]))
	if err != nil {
		return "", fmt.Errorf("MPI: {midstr} length must be an integer")
	}
	if start < 1 {
		start = 1
	}
	if start-1 >= len(s) || length <= 0 {
		return "", nil
	}
	end := start - 1 + length
	if end > len(s) {
		end = len(s)
	}
	return s[start-1 : end], nil
}

func fnSubst(_ *Context, args []string) (string, error) {
	return strings.ReplaceAll(args[0], args[1], args[2]), nil
}

func fnEq(_ *Context, args []string) (string, error) {
	if args[0] == args[1] {
		return "1", nil
	}
	if a, ok1 := parseNum(args[0]); ok1 {
		if b, ok2 := parseNum(args[1]); ok2 && a == b {
			return "1", nil
		}
	}
	return "0", nil
}

// fnIf implements both {if:cond,then[,else]} and {ifelse:cond,then,else}
// -- registered under both names since the legacy dictionary carries
// both spellings for the same ternary. The condition and the taken
// branch are the only arguments expanded (post-parse handles that); the
// untaken branch is never evaluated, matching spec.md's short-circuit
// expectation for conditional forms.
func fnIf(ctx *Context, rawArgs []string) (string, error) {
	cond, err := Expand(rawArgs[0], ctx)
	if err != nil {
		return "", err
	}
	truthy := cond != "" && cond != "0"
	if truthy {
		return rawArgs[1], nil
	}
	if len(rawArgs) >= 3 {
		return rawArgs[2], nil
	}
	return "", nil
}

// fnWith implements {with:var,value,...,body}: binds the given
// name/value pairs in a new variable-stack frame, then expands body.
func fnWith(ctx *Context, rawArgs []string) (string, error) {
	if len(rawArgs)%2 != 1 {
		return "", fmt.Errorf("MPI: {with} needs name,value pairs followed by a body")
	}
	body := rawArgs[len(rawArgs)-1]
	pairs := rawArgs[:len(rawArgs)-1]
	frame := varFrame{}
	for i := 0; i+1 < len(pairs); i += 2 {
		name := strings.TrimSpace(pairs[i])
		val, err := Expand(pairs[i+1], ctx)
		if err != nil {
			return "", err
		}
		frame[name] = val
	}
	if err := ctx.pushVar(frame); err != nil {
		return "", err
	}
	defer ctx.popVar()
	return Expand(body, ctx)
}

// fnFor implements {for:var,start,end,body}: iterates var from start to
// end inclusive, re-expanding body once per iteration with var bound in
// a fresh frame, concatenating the results.
func fnFor(ctx *Context, rawArgs []string) (string, error) {
	name := strings.TrimSpace(rawArgs[0])
	startStr, err := Expand(rawArgs[1], ctx)
	if err != nil {
		return "", err
	}
	endStr, err := Expand(rawArgs[2], ctx)
	if err != nil {
		return "", err
	}
	start, err1 := strconv.Atoi(strings.TrimSpace(startStr))
	end, err2 := strconv.Atoi(strings.TrimSpace(endStr))
	if err1 != nil || err2 != nil {
		return "", fmt.Errorf("MPI: {for} start/end must be integers")
	}
	body := rawArgs[3]
	var b strings.Builder
	step := 1
	if end < start {
		step = -1
	}
	for i := start; (step > 0 && i <= end) || (step < 0 && i >= end); i += step {
		if err := ctx.pushVar(varFrame{name: strconv.Itoa(i)}); err != nil {
			return "", err
		}
		out, err := Expand(body, ctx)
		ctx.popVar()
		if err != nil {
			return "", err
		}
		b.WriteString(out)
	}
	return b.String(), nil
}

func fnName(ctx *Context, args []string) (string, error) {
	id, err := parseObjRef(ctx, args[0])
	if err != nil {
		return "", err
	}
	o := ctx.Store.Get(id)
	if o == nil {
		return "", fmt.Errorf("MPI: {name} no such object %s", id)
	}
	return o.Name, nil
}

func fnOwner(ctx *Context, args []string) (string, error) {
	id, err := parseObjRef(ctx, args[0])
	if err != nil {
		return "", err
	}
	o := ctx.Store.Get(id)
	if o == nil {
		return "", fmt.Errorf("MPI: {owner} no such object %s", id)
	}
	return o.Owner.String(), nil
}

func fnLoc(ctx *Context, args []string) (string, error) {
	id, err := parseObjRef(ctx, args[0])
	if err != nil {
		return "", err
	}
	o := ctx.Store.Get(id)
	if o == nil {
		return "", fmt.Errorf("MPI: {loc} no such object %s", id)
	}
	return o.Location.String(), nil
}

// parseObjRef resolves "me"/"here"/"#N" the same way lock leaves do,
// against this Context's ambient player/location.
func parseObjRef(ctx *Context, s string) (value.ObjectID, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "me":
		return ctx.Player, nil
	case "here":
		return ctx.Loc, nil
	}
	if strings.HasPrefix(s, "#") {
		n, err := strconv.Atoi(s[1:])
		if err != nil {
			return value.NONE, fmt.Errorf("MPI: bad object reference %q", s)
		}
		return value.ObjectID(n), nil
	}
	if id, ok := ctx.Store.LookupPlayer(s); ok {
		return id, nil
	}
	return value.NONE, fmt.Errorf("MPI: unresolvable object reference %q", s)
}

func fnTime(_ *Context, _ []string) (string, error) {
	return strconv.FormatInt(time.Now().UTC().Unix(), 10), nil
}

func fnTell(ctx *Context, args []string) (string, error) {
	if ctx.Dispatch == nil {
		return "", fmt.Errorf("MPI: {tell} has no dispatcher wired in this context")
	}
	return "", ctx.Dispatch.Tell(ctx.Player, ctx.Player, args[0])
}

func fnOTell(ctx *Context, args []string) (string, error) {
	if ctx.Dispatch == nil {
		return "", fmt.Errorf("MPI: {otell} has no dispatcher wired in this context")
	}
	return "", ctx.Dispatch.OTell(ctx.Player, ctx.Loc, ctx.Player, args[0])
}

func fnForce(ctx *Context, args []string) (string, error) {
	if ctx.Dispatch == nil {
		return "", fmt.Errorf("MPI: {force} has no dispatcher wired in this context")
	}
	id, err := parseObjRef(ctx, args[0])
	if err != nil {
		return "", err
	}
	return "", ctx.Dispatch.Force(id, args[1])
}

// fnDelay implements {delay:seconds,text} (spec.md §4.E "Delayed
// emission"): text is left unexpanded here and handed to the scheduler,
// which expands it at fire time against a fresh child Context.
func fnDelay(ctx *Context, rawArgs []string) (string, error) {
	if ctx.Dispatch == nil {
		return "", fmt.Errorf("MPI: {delay} has no dispatcher wired in this context")
	}
	secStr, err := Expand(rawArgs[0], ctx)
	if err != nil {
		return "", err
	}
	seconds, convErr := strconv.Atoi(strings.TrimSpace(secStr))
	if convErr != nil {
		return "", fmt.Errorf("MPI: {delay} seconds must be an integer")
	}
	return "", ctx.Dispatch.Delay(seconds, rawArgs[1], ctx)
}

// fnFunc implements {func:name,body}: registers body as a user function
// callable as {name:...} for the remainder of this invocation's lexical
// scope (spec.md §4.E "funcs accessible are frozen at call site").
func fnFunc(ctx *Context, rawArgs []string) (string, error) {
	name := strings.TrimSpace(rawArgs[0])
	if err := ctx.pushFunc(funcFrame{name: name, body: rawArgs[1]}); err != nil {
		return "", err
	}
	return "", nil
}
