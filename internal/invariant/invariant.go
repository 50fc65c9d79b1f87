// Package invariant provides contract assertions used throughout the engine
// core. A failed assertion here is always a programming error inside the
// core itself, never a player mistake or a malformed program — those are
// reported through the error taxonomy in interp/muckerr instead.
//
// Precondition/Postcondition document a function's contract; Invariant
// documents an internal consistency check (loop progress, data-structure
// shape). All three panic on violation. The object store and scheduler
// run with assertions compiled in during tests and with StrictMode off by
// default in production builds, matching how a single-threaded engine
// with no supervisor process should fail loudly rather than silently
// corrupt the dump.
package invariant

import (
	"fmt"
	"reflect"
	"runtime"
)

// StrictMode gates the expensive checks (full chain-integrity walks,
// O(n) property-tree scans) that are too costly to run on every mutation
// in production. Cheap checks (nil, range) always run.
var StrictMode = false

// Precondition panics with a PRECONDITION violation if condition is false.
func Precondition(condition bool, format string, args ...interface{}) {
	if !condition {
		fail("PRECONDITION", format, args...)
	}
}

// Postcondition panics with a POSTCONDITION violation if condition is false.
func Postcondition(condition bool, format string, args ...interface{}) {
	if !condition {
		fail("POSTCONDITION", format, args...)
	}
}

// Invariant panics with an INVARIANT violation if condition is false.
func Invariant(condition bool, format string, args ...interface{}) {
	if !condition {
		fail("INVARIANT", format, args...)
	}
}

// Strict runs the given check only when StrictMode is enabled. Use this to
// guard O(n)-or-worse invariant walks (e.g. "no object's location chain
// cycles back on itself") that would otherwise dominate every mutation.
func Strict(check func()) {
	if StrictMode {
		check()
	}
}

// NotNil panics if value is nil, including a typed nil such as (*Object)(nil).
func NotNil(value interface{}, name string) {
	if value == nil || isNilValue(value) {
		fail("PRECONDITION", "%s must not be nil", name)
	}
}

func isNilValue(value interface{}) bool {
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func:
		return v.IsNil()
	default:
		return false
	}
}

// InRange panics if value is outside [minVal, maxVal].
func InRange(value, minVal, maxVal int, name string) {
	if value < minVal || value > maxVal {
		fail("PRECONDITION", "%s must be in range [%d, %d], got %d", name, minVal, maxVal, value)
	}
}

// ExpectNoError panics if err is non-nil. Use for operations the engine
// itself guarantees will not fail — e.g. re-parsing a lock expression this
// process itself just serialised.
func ExpectNoError(err error, msg string) {
	if err != nil {
		fail("POSTCONDITION", "%s must not fail: %v", msg, err)
	}
}

func fail(kind, format string, args ...interface{}) {
	pc := make([]uintptr, 10)
	n := runtime.Callers(3, pc)
	frames := runtime.CallersFrames(pc[:n])

	msg := fmt.Sprintf("%s VIOLATION: "+format, append([]interface{}{kind}, args...)...)
	if frame, ok := frames.Next(); ok {
		msg += fmt.Sprintf("\n  at %s:%d", frame.File, frame.Line)
	}
	panic(msg)
}
