package mpi

import (
	"fmt"
	"strings"
)

// Expand performs one top-level MPI expansion of src (spec.md §4.E). It
// is the entry point property reads and the PARSEMPI family of
// primitives call; ctx carries the shared command budget the whole
// recursive expansion is charged against.
func Expand(src string, ctx *Context) (string, error) {
	var b strings.Builder
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == '\\' && i+1 < len(src):
			b.WriteByte(src[i+1])
			i += 2
		case c == '{':
			end, err := matchingBrace(src, i)
			if err != nil {
				return "", err
			}
			expanded, err := expandForm(src[i+1:end], ctx)
			if err != nil {
				return "", err
			}
			b.WriteString(expanded)
			i = end + 1
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String(), nil
}

// matchingBrace returns the index of the '}' matching the '{' at open,
// honouring nesting and backslash-escapes.
func matchingBrace(src string, open int) (int, error) {
	depth := 0
	for i := open; i < len(src); i++ {
		switch src[i] {
		case '\\':
			i++ // skip escaped char
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, nil
			}
		}
	}
	return 0, fmt.Errorf("MPI: unterminated '{' starting at offset %d", open)
}

// expandForm expands the inside of one "{...}" form (braces already
// stripped): name, optional ":args", charged against the budget,
// dispatched through the function registry or a lexically-bound user
// function.
func expandForm(inside string, ctx *Context) (string, error) {
	if err := ctx.budget.charge(); err != nil {
		return "", err
	}

	name, argStr, hasArgs := strings.Cut(inside, ":")
	name = strings.TrimSpace(name)

	// "{&name}" is a variable reference into the with/for scope stack,
	// not a function call (spec.md §4.E "Scoped storage").
	if strings.HasPrefix(name, "&") {
		varName := name[1:]
		if v, ok := ctx.lookupVar(varName); ok {
			return v, nil
		}
		return "", fmt.Errorf("MPI: undefined variable %q", varName)
	}

	if body, ok := ctx.lookupFunc(name); ok {
		return callUserFunc(body, argStr, hasArgs, ctx)
	}

	fn, ok := registry[strings.ToLower(name)]
	if !ok {
		return "", fmt.Errorf("MPI: unknown function %q", name)
	}

	var rawArgs []string
	if hasArgs {
		rawArgs = splitTopLevelArgs(argStr)
	}
	if fn.MinArgs >= 0 && len(rawArgs) < fn.MinArgs {
		return "", fmt.Errorf("MPI: {%s} needs at least %d args, got %d", name, fn.MinArgs, len(rawArgs))
	}
	if fn.MaxArgs >= 0 && len(rawArgs) > fn.MaxArgs {
		return "", fmt.Errorf("MPI: {%s} takes at most %d args, got %d", name, fn.MaxArgs, len(rawArgs))
	}
	if fn.WriteOnly && !ctx.Perm.CanWrite() {
		return "", fmt.Errorf("PermissionDenied: {%s} requires blessed or elevated permission", name)
	}

	args := rawArgs
	if fn.PreParse {
		args = make([]string, len(rawArgs))
		for i, a := range rawArgs {
			expanded, err := Expand(a, ctx)
			if err != nil {
				return "", err
			}
			args[i] = expanded
		}
	}
	if fn.Strip {
		for i := range args {
			args[i] = strings.TrimSpace(args[i])
		}
	}

	result, err := fn.Call(ctx, args)
	if err != nil {
		return "", err
	}
	if fn.PostParse {
		return Expand(result, ctx)
	}
	return result, nil
}

// callUserFunc expands body with positional args bound as {&0}..{&9}-style
// variables via a fresh variable-stack frame (a simplified stand-in for
// the legacy engine's "func" binder — enough to make {func:...}-defined
// helpers usable from property text without a second language).
func callUserFunc(body, argStr string, hasArgs bool, ctx *Context) (string, error) {
	frame := varFrame{}
	if hasArgs {
		for i, a := range splitTopLevelArgs(argStr) {
			expanded, err := Expand(a, ctx)
			if err != nil {
				return "", err
			}
			frame[fmt.Sprintf("%d", i)] = expanded
		}
	}
	if err := ctx.pushVar(frame); err != nil {
		return "", err
	}
	defer ctx.popVar()
	return Expand(body, ctx)
}

// splitTopLevelArgs splits a "{func:...}" argument string on commas that
// are not nested inside another '{...}' form or escaped.
func splitTopLevelArgs(s string) []string {
	var out []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	out = append(out, s[start:])
	return out
}
