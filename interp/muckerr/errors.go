// Package muckerr names the error taxonomy of spec.md §7: kinds a
// primitive can fail with, independent of any host-language exception
// mechanism. TRY/CATCH (interp package) catches these by unwinding
// recorded stack depths, never by host panic/recover.
package muckerr

import "fmt"

// Kind is one of the fixed error kinds a primitive failure carries.
type Kind string

const (
	StackUnderflow    Kind = "StackUnderflow"
	StackOverflow     Kind = "StackOverflow"
	TypeMismatch      Kind = "TypeMismatch"
	ArgumentRange     Kind = "ArgumentRange"
	NotFound          Kind = "NotFound"
	PermissionDenied  Kind = "PermissionDenied"
	ParseError        Kind = "ParseError"
	LimitExceeded     Kind = "LimitExceeded"
	IOError           Kind = "IOError"
	InternalInvariant Kind = "InternalInvariant"
)

// Error is the structured failure a primitive or the step loop raises.
// Its Message is what the frame's traceback prints; Detail carries the
// kind-specific extra (expected/got types, the limit name, and so on).
type Error struct {
	Kind    Kind
	Message string
	Detail  string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// New builds an Error of kind with message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf builds an Error of kind with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WithDetail returns a copy of e carrying detail (e.g. "expected int, got string").
func (e *Error) WithDetail(detail string) *Error {
	cp := *e
	cp.Detail = detail
	return &cp
}

// TypeMismatchf builds a TypeMismatch error naming the expected and
// actual kinds, per spec.md §7 "TypeMismatch(expected, got)".
func TypeMismatchf(expected, got string) *Error {
	return &Error{Kind: TypeMismatch, Message: "type mismatch", Detail: fmt.Sprintf("expected %s, got %s", expected, got)}
}

// LimitExceededf builds a LimitExceeded error naming which limit tripped.
func LimitExceededf(which string) *Error {
	return &Error{Kind: LimitExceeded, Message: "limit exceeded", Detail: which}
}
