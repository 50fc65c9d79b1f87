package config

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// schemaFor builds a JSON Schema describing a valid JSON seed document
// for this registry: an object whose keys are registered parameter
// names and whose values match the parameter's kind. Callers of
// LoadSeed (currently the tests) can hand the registry a JSON
// parameter seed instead of editing data/parmfile.cfg by hand; this is
// validated the same way the teacher validates decorator parameter
// declarations in core/types.
func (r *Registry) schemaFor() ([]byte, error) {
	props := make(map[string]interface{}, len(r.descriptors))
	for name, d := range r.descriptors {
		props[name] = jsonTypeFor(d.Kind)
	}
	schema := map[string]interface{}{
		"$schema":              "http://json-schema.org/draft-07/schema#",
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
	}
	return json.Marshal(schema)
}

func jsonTypeFor(k Kind) map[string]interface{} {
	switch k {
	case KindInt:
		return map[string]interface{}{"type": "integer"}
	case KindBool:
		return map[string]interface{}{"type": "boolean"}
	default:
		// String, TimeSpan and ObjectRef are all textual on the wire;
		// kind-specific syntax is enforced by parseValue, not the schema.
		return map[string]interface{}{"type": "string"}
	}
}

// ValidateSeed checks a JSON seed document against this registry's
// derived schema, without applying it. LoadSeed both validates and
// applies.
func (r *Registry) ValidateSeed(doc []byte) error {
	raw, err := r.schemaFor()
	if err != nil {
		return err
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("seed.json", bytes.NewReader(raw)); err != nil {
		return err
	}
	sch, err := compiler.Compile("seed.json")
	if err != nil {
		return err
	}
	var parsed interface{}
	if err := json.Unmarshal(doc, &parsed); err != nil {
		return fmt.Errorf("%w: %v", ErrBadSyntax, err)
	}
	if err := sch.Validate(parsed); err != nil {
		return fmt.Errorf("%w: %v", ErrBadValue, err)
	}
	return nil
}

// LoadSeed validates and applies a JSON seed document at the given
// trust level (see ValidateSeed).
func (r *Registry) LoadSeed(doc []byte, trust int) error {
	if err := r.ValidateSeed(doc); err != nil {
		return err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(doc, &fields); err != nil {
		return fmt.Errorf("%w: %v", ErrBadSyntax, err)
	}
	for name, raw := range fields {
		var s string
		d := r.descriptors[name]
		switch d.Kind {
		case KindInt:
			var n int64
			if err := json.Unmarshal(raw, &n); err != nil {
				return fmt.Errorf("%w: %s", ErrBadSyntax, name)
			}
			s = fmt.Sprintf("%d", n)
		case KindBool:
			var b bool
			if err := json.Unmarshal(raw, &b); err != nil {
				return fmt.Errorf("%w: %s", ErrBadSyntax, name)
			}
			s = fmt.Sprintf("%v", b)
		default:
			if err := json.Unmarshal(raw, &s); err != nil {
				return fmt.Errorf("%w: %s", ErrBadSyntax, name)
			}
		}
		if err := r.Set(name, s, trust); err != nil {
			return err
		}
	}
	return nil
}
