package lock

import (
	"strconv"
	"strings"

	"github.com/fuzzball-muck/muckcore/value"
)

// Parse parses the infix lock wire format of spec.md §6 ("(A & B) | !C"
// -style). Precedence: '!' binds tightest, then '&', then '|';
// parentheses override. An empty or all-whitespace src parses to
// value.TrueBoolExpr (the nil expression that always evaluates true).
func Parse(src string, r Resolver) (*value.BoolExpr, error) {
	if strings.TrimSpace(src) == "" {
		return value.TrueBoolExpr, nil
	}
	p := &parser{src: src, r: r}
	p.skipSpace()
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, &ParseError{Pos: p.pos, Msg: "unexpected trailing input"}
	}
	return expr, nil
}

type parser struct {
	src string
	pos int
	r   Resolver
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) && p.src[p.pos] == ' ' {
		p.pos++
	}
}

func (p *parser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) parseOr() (*value.BoolExpr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		p.skipSpace()
		if p.peek() != '|' {
			return left, nil
		}
		p.pos++
		p.skipSpace()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = value.Or(left, right)
	}
}

func (p *parser) parseAnd() (*value.BoolExpr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for {
		p.skipSpace()
		if p.peek() != '&' {
			return left, nil
		}
		p.pos++
		p.skipSpace()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = value.And(left, right)
	}
}

func (p *parser) parseNot() (*value.BoolExpr, error) {
	p.skipSpace()
	if p.peek() == '!' {
		p.pos++
		p.skipSpace()
		inner, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return value.Not(inner), nil
	}
	return p.parseAtom()
}

func (p *parser) parseAtom() (*value.BoolExpr, error) {
	p.skipSpace()
	switch p.peek() {
	case 0:
		return nil, &ParseError{Pos: p.pos, Msg: "unexpected end of expression"}
	case '(':
		p.pos++
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if p.peek() != ')' {
			return nil, &ParseError{Pos: p.pos, Msg: "expected ')'"}
		}
		p.pos++
		return inner, nil
	default:
		return p.parseLeaf()
	}
}

// isBoundary reports whether c ends a leaf token.
func isBoundary(c byte) bool {
	return c == 0 || c == ' ' || c == '&' || c == '|' || c == ')' || c == '('
}

func (p *parser) readToken() string {
	start := p.pos
	for p.pos < len(p.src) && !isBoundary(p.src[p.pos]) {
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *parser) parseLeaf() (*value.BoolExpr, error) {
	start := p.pos
	switch p.peek() {
	case '#':
		p.pos++
		digits := p.readToken()
		id, err := strconv.Atoi(digits)
		if err != nil {
			return nil, &ParseError{Pos: start, Msg: "invalid object reference #" + digits}
		}
		return value.ObjectConst(value.ObjectID(id)), nil
	case '*':
		p.pos++
		name := p.readToken()
		id, ok := p.r.ResolvePlayer(name)
		if !ok {
			return nil, &ParseError{Pos: start, Msg: "unknown player *" + name}
		}
		return value.ObjectConst(id), nil
	case '$':
		p.pos++
		name := p.readToken()
		id, ok := p.r.ResolveRegistered(name)
		if !ok {
			return nil, &ParseError{Pos: start, Msg: "unknown registered reference $" + name}
		}
		return value.ObjectConst(id), nil
	}

	tok := p.readToken()
	if tok == "" {
		return nil, &ParseError{Pos: start, Msg: "empty leaf token"}
	}
	switch strings.ToLower(tok) {
	case "me":
		return value.ObjectConst(p.r.Me()), nil
	case "here":
		return value.ObjectConst(p.r.Here()), nil
	}
	if i := strings.IndexByte(tok, ':'); i >= 0 {
		return value.Prop(tok[:i], tok[i+1:]), nil
	}
	return nil, &ParseError{Pos: start, Msg: "not an object reference or prop:value leaf: " + tok}
}
