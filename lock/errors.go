package lock

import "fmt"

// ParseError reports a lock-expression syntax error, naming the byte
// offset and a short description (spec.md §4.C "Parse failures fail
// with ParseError(msg)").
type ParseError struct {
	Pos int
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("lock parse error at %d: %s", e.Pos, e.Msg)
}
