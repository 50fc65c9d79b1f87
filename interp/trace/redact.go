// Package trace provides a Redactor for administrative trace output:
// text written through it has every registered Private or Blessed
// property value replaced by a placeholder, so that value is not echoed
// back in the clear. No other package in this module constructs a
// Redactor. Adapted from the teacher's runtime/scrubber secret-stream
// redaction: the rolling carry buffer and keyed-fingerprint mechanism
// are the same shape, retargeted from API-key obfuscation variants to
// MUCK property values.
package trace

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"sync"

	"golang.org/x/crypto/blake2b"

	"github.com/fuzzball-muck/muckcore/internal/invariant"
)

// Redactor wraps an io.Writer, replacing any registered property value
// with a stable, per-run fingerprint placeholder before the bytes reach
// the underlying sink. The placeholder is stable within one process run
// (so an admin can tell "same value appeared twice" in a trace) but
// changes every run (so a fingerprint logged today can't be correlated
// against a dump taken tomorrow).
type Redactor struct {
	writer io.Writer

	runKey []byte // per-run BLAKE2b-256 key

	rmu     sync.RWMutex
	secrets []redactedValue

	wmu    sync.Mutex
	carry  []byte
	maxLen int
}

type redactedValue struct {
	raw         []byte
	placeholder []byte
}

// NewRedactor returns a Redactor writing to w, with a freshly generated
// per-run key.
func NewRedactor(w io.Writer) *Redactor {
	invariant.NotNil(w, "writer")
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		panic(fmt.Sprintf("trace: generate run key: %v", err))
	}
	return &Redactor{writer: w, runKey: key, carry: make([]byte, 0, 1024)}
}

// Fingerprint computes this run's keyed BLAKE2b digest of raw, used as
// the stable placeholder body and, separately, by callers that want to
// compare two property values for equality without printing either.
func (r *Redactor) Fingerprint(raw string) string {
	h, err := blake2b.New256(r.runKey)
	if err != nil {
		panic(fmt.Sprintf("trace: new BLAKE2b hash: %v", err))
	}
	h.Write([]byte(raw))
	return hex.EncodeToString(h.Sum(nil))
}

// RegisterBlessed marks a Blessed or Private property's current value
// as one that must never appear verbatim in anything written through
// this Redactor. kind labels the placeholder ("private" or "blessed")
// so a reader of the trace knows why a value was withheld.
func (r *Redactor) RegisterBlessed(rawValue, kind string) {
	invariant.Precondition(rawValue != "", "redacted value must not be empty")
	placeholder := fmt.Sprintf("<%s:%s>", kind, r.Fingerprint(rawValue)[:12])

	r.rmu.Lock()
	defer r.rmu.Unlock()
	r.secrets = append(r.secrets, redactedValue{raw: []byte(rawValue), placeholder: []byte(placeholder)})
	sort.Slice(r.secrets, func(i, j int) bool { return len(r.secrets[i].raw) > len(r.secrets[j].raw) })
	if len(rawValue) > r.maxLen {
		r.maxLen = len(rawValue)
	}
}

// Write implements io.Writer, redacting every registered value before
// forwarding to the underlying sink. Output is held back at most
// maxLen-1 bytes (the carry) so a value split across two Write calls is
// still caught.
func (r *Redactor) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	r.wmu.Lock()
	defer r.wmu.Unlock()

	buf := append(append([]byte{}, r.carry...), p...)

	r.rmu.RLock()
	redacted := r.redactAll(buf)
	r.rmu.RUnlock()

	carrySize := 0
	if r.maxLen > 0 {
		carrySize = r.maxLen - 1
	}

	switch {
	case carrySize > 0 && len(redacted) > carrySize:
		toWrite := redacted[:len(redacted)-carrySize]
		r.carry = append(r.carry[:0], redacted[len(redacted)-carrySize:]...)
		if n, err := r.writer.Write(toWrite); err != nil {
			return n, err
		} else if n < len(toWrite) {
			return n, io.ErrShortWrite
		}
	case carrySize > 0:
		r.carry = append(r.carry[:0], redacted...)
	default:
		if n, err := r.writer.Write(redacted); err != nil {
			return n, err
		} else if n < len(redacted) {
			return n, io.ErrShortWrite
		}
	}
	return len(p), nil
}

// Flush writes out any bytes still held in the carry buffer. Callers
// must call this when the trace ends, or the held-back tail of the
// output is never written.
func (r *Redactor) Flush() error {
	r.wmu.Lock()
	defer r.wmu.Unlock()
	if len(r.carry) == 0 {
		return nil
	}
	r.rmu.RLock()
	redacted := r.redactAll(r.carry)
	r.rmu.RUnlock()
	_, err := r.writer.Write(redacted)
	r.carry = r.carry[:0]
	return err
}

func (r *Redactor) redactAll(buf []byte) []byte {
	result := buf
	for _, s := range r.secrets {
		result = bytes.ReplaceAll(result, s.raw, s.placeholder)
	}
	return result
}
