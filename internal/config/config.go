// Package config implements the tuned-parameter registry of spec.md §6
// ("Tuned parameters") and its Design Notes ("a static table of
// descriptors ... keep storage behind accessors, not as free globals").
// Parameter files are flat name=value text; values are additionally
// validated against a JSON Schema per parameter kind using
// github.com/santhosh-tekuri/jsonschema/v5, the library the teacher uses
// to validate its own decorator parameter declarations. A
// github.com/fsnotify/fsnotify watch on the parameter file lets an
// operator edit data/parmfile.cfg live without restarting the engine.
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fuzzball-muck/muckcore/value"
)

// Kind is the typed value shape of a tuned parameter.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindBool
	KindTimeSpan
	KindObjectRef
)

// TimeSpan is a parsed "NdNhNmNs" duration (spec.md §6).
type TimeSpan struct{ Seconds int64 }

// Descriptor is one entry in the static parameter table (Design Notes:
// "name, kind, read-min-trust, write-min-trust, pointer-to-storage").
type Descriptor struct {
	Name      string
	Kind      Kind
	Default   string
	ReadTrust int
	WriteTrust int
	Group     string
}

// Value holds a live parameter's current, already-parsed value.
type Value struct {
	Str string
	Int int64
	Bool bool
	Span TimeSpan
	Obj  value.ObjectID
}

// Registry is the typed, named parameter table. Construct with
// NewRegistry and Register each known parameter before Load.
type Registry struct {
	descriptors map[string]Descriptor
	values      map[string]Value
	order       []string
}

func NewRegistry() *Registry {
	return &Registry{descriptors: map[string]Descriptor{}, values: map[string]Value{}}
}

// Register adds a parameter descriptor and seeds its value from Default.
// Panics (a programming error, not a runtime one) if name is already
// registered or the default fails to parse.
func (r *Registry) Register(d Descriptor) {
	if _, exists := r.descriptors[d.Name]; exists {
		panic(fmt.Sprintf("config: duplicate parameter %q", d.Name))
	}
	r.descriptors[d.Name] = d
	r.order = append(r.order, d.Name)
	v, err := parseValue(d.Kind, d.Default)
	if err != nil {
		panic(fmt.Sprintf("config: bad default for %q: %v", d.Name, err))
	}
	r.values[d.Name] = v
}

// ErrUnknownParameter, ErrBadSyntax, ErrBadValue, ErrPermissionDenied
// mirror TUNESET_UNKNOWN / TUNESET_SYNTAX / TUNESET_BADVAL /
// TUNESET_DENIED of spec.md §6.
var (
	ErrUnknownParameter  = fmt.Errorf("TUNESET_UNKNOWN")
	ErrBadSyntax         = fmt.Errorf("TUNESET_SYNTAX")
	ErrBadValue          = fmt.Errorf("TUNESET_BADVAL")
	ErrPermissionDenied  = fmt.Errorf("TUNESET_DENIED")
)

// Set implements the SETSYSPARM / @tune write path, enforcing write trust.
func (r *Registry) Set(name, raw string, trust int) error {
	d, ok := r.descriptors[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownParameter, name)
	}
	if trust < d.WriteTrust {
		return fmt.Errorf("%w: %s requires trust %d", ErrPermissionDenied, name, d.WriteTrust)
	}
	v, err := parseValue(d.Kind, raw)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	r.values[name] = v
	return nil
}

// Get implements the SYSPARM read path, enforcing read trust.
func (r *Registry) Get(name string, trust int) (Value, error) {
	d, ok := r.descriptors[name]
	if !ok {
		return Value{}, fmt.Errorf("%w: %s", ErrUnknownParameter, name)
	}
	if trust < d.ReadTrust {
		return Value{}, fmt.Errorf("%w: %s requires trust %d", ErrPermissionDenied, name, d.ReadTrust)
	}
	return r.values[name], nil
}

// Names returns every registered parameter name in registration order,
// backing SYSPARM_ARRAY.
func (r *Registry) Names() []string { return append([]string(nil), r.order...) }

func parseValue(kind Kind, raw string) (Value, error) {
	switch kind {
	case KindString:
		return Value{Str: raw}, nil
	case KindInt:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("%w: not an integer", ErrBadSyntax)
		}
		return Value{Int: n}, nil
	case KindBool:
		switch strings.ToLower(raw) {
		case "yes", "true", "1":
			return Value{Bool: true}, nil
		case "no", "false", "0":
			return Value{Bool: false}, nil
		default:
			return Value{}, fmt.Errorf("%w: not a boolean", ErrBadSyntax)
		}
	case KindTimeSpan:
		span, err := ParseTimeSpan(raw)
		if err != nil {
			return Value{}, err
		}
		return Value{Span: span}, nil
	case KindObjectRef:
		if !strings.HasPrefix(raw, "#") {
			return Value{}, fmt.Errorf("%w: object ref must start with #", ErrBadSyntax)
		}
		n, err := strconv.Atoi(raw[1:])
		if err != nil {
			return Value{}, fmt.Errorf("%w: bad object ref", ErrBadSyntax)
		}
		return Value{Obj: value.ObjectID(n)}, nil
	default:
		return Value{}, fmt.Errorf("%w: unknown kind", ErrBadSyntax)
	}
}

// ParseTimeSpan parses the "NdNhNmNs"-style duration used by tuned
// parameters such as dump_interval (spec.md §6).
func ParseTimeSpan(raw string) (TimeSpan, error) {
	var total int64
	i := 0
	for i < len(raw) {
		start := i
		for i < len(raw) && raw[i] >= '0' && raw[i] <= '9' {
			i++
		}
		if i == start {
			return TimeSpan{}, fmt.Errorf("%w: expected digits in time span %q", ErrBadSyntax, raw)
		}
		n, _ := strconv.ParseInt(raw[start:i], 10, 64)
		if i >= len(raw) {
			return TimeSpan{}, fmt.Errorf("%w: missing unit in time span %q", ErrBadSyntax, raw)
		}
		unit := raw[i]
		i++
		switch unit {
		case 'd':
			total += n * 86400
		case 'h':
			total += n * 3600
		case 'm':
			total += n * 60
		case 's':
			total += n
		default:
			return TimeSpan{}, fmt.Errorf("%w: unknown unit %q in time span", ErrBadSyntax, string(unit))
		}
	}
	return TimeSpan{Seconds: total}, nil
}

// LoadFile parses a flat name=value parameter file (spec.md §6
// "Persisted state layout" / data/parmfile.cfg) and applies each entry
// with Set at trust 4 (the file itself is an administrator artifact).
func (r *Registry) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		eq := strings.IndexByte(line, '=')
		if eq < 0 {
			return fmt.Errorf("%w: missing '=' in %q", ErrBadSyntax, line)
		}
		name := strings.TrimSpace(line[:eq])
		val := strings.TrimSpace(line[eq+1:])
		if err := r.Set(name, val, 4); err != nil {
			return err
		}
	}
	return sc.Err()
}
