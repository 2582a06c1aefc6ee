// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package parse

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Schema is a compiled JSON Schema for one stage payload.
type Schema struct {
	name     string
	compiled *jsonschema.Schema
}

// CompileSchema compiles a schema document given as a Go map.
func CompileSchema(name string, doc map[string]any) (*Schema, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal schema %s: %w", name, err)
	}
	url := name + ".json"
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema %s: %w", name, err)
	}
	compiled, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	return &Schema{name: name, compiled: compiled}, nil
}

// MustCompileSchema is CompileSchema for package-level schemas; it panics
// on an invalid document.
func MustCompileSchema(name string, doc map[string]any) *Schema {
	s, err := CompileSchema(name, doc)
	if err != nil {
		panic(err)
	}
	return s
}

// Name returns the schema's name.
func (s *Schema) Name() string { return s.name }

// SchemaError reports a payload that parsed as JSON but does not match the
// stage schema.
type SchemaError struct {
	Schema   string
	Problems []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("payload does not match %s schema: %s", e.Schema, strings.Join(e.Problems, "; "))
}

// Validate checks payload against the schema.
func (s *Schema) Validate(payload json.RawMessage) error {
	var v any
	if err := json.Unmarshal(payload, &v); err != nil {
		return &ParseError{Raw: string(payload), Err: err}
	}
	if err := s.compiled.Validate(v); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return &SchemaError{Schema: s.name, Problems: leafProblems(ve)}
		}
		return &SchemaError{Schema: s.name, Problems: []string{err.Error()}}
	}
	return nil
}

// leafProblems flattens a validation error tree into one line per failing
// instance location.
func leafProblems(ve *jsonschema.ValidationError) []string {
	var out []string
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			loc := e.InstanceLocation
			if loc == "" {
				loc = "/"
			}
			out = append(out, loc+": "+e.Message)
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	sort.Strings(out)
	return out
}

// Decode extracts the JSON payload from raw, validates it against schema
// (when non-nil) and unmarshals it into v.
func Decode(raw string, schema *Schema, v any) error {
	payload, err := ExtractJSON(raw)
	if err != nil {
		return err
	}
	if schema != nil {
		if err := schema.Validate(payload); err != nil {
			var pe *ParseError
			if errors.As(err, &pe) {
				pe.Raw = raw
			}
			return err
		}
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return &ParseError{Raw: raw, Err: err}
	}
	return nil
}
