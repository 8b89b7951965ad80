// Package schema wraps santhosh-tekuri/jsonschema/v5 to implement
// spec.md §4.14: Draft 2020-12 JSON Schema validation with every schema
// compiled once at startup and cached thereafter, never recompiled per
// call.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// InvalidError reports one validation failure at a JSON pointer, per
// spec.md §4.14's `Invalid(pointer, message)`.
type InvalidError struct {
	Pointer string `json:"pointer"`
	Message string `json:"message"`
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("schema: invalid at %s: %s", e.Pointer, e.Message)
}

// ValidationErrors is the full set of failures for one Validate call.
type ValidationErrors []*InvalidError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "schema: validation failed"
	}
	return v[0].Error()
}

// Registry compiles and caches JSON schemas by id, per spec.md §4.14.
// Compilation happens once, at Register time; Validate never touches
// the compiler again.
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]*jsonschema.Schema
}

// NewRegistry returns an empty schema registry.
func NewRegistry() *Registry {
	return &Registry{schemas: make(map[string]*jsonschema.Schema)}
}

// Register compiles schemaDoc (raw JSON Schema bytes, Draft 2020-12) and
// caches it under schemaID. Call every Register at startup, before any
// Validate call references schemaID.
func (r *Registry) Register(schemaID string, schemaDoc []byte) error {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020

	if err := compiler.AddResource(schemaID, bytes.NewReader(schemaDoc)); err != nil {
		return fmt.Errorf("schema: adding resource %s: %w", schemaID, err)
	}
	compiled, err := compiler.Compile(schemaID)
	if err != nil {
		return fmt.Errorf("schema: compiling %s: %w", schemaID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemas[schemaID] = compiled
	return nil
}

// Validate checks value (any JSON-marshalable Go value) against the
// schema registered under schemaID. A nil error return means Ok; a
// non-nil ValidationErrors means the value failed one or more
// constraints.
func (r *Registry) Validate(value interface{}, schemaID string) error {
	r.mu.RLock()
	compiled, ok := r.schemas[schemaID]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("schema: no schema registered under id %q", schemaID)
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("schema: marshaling value for validation: %w", err)
	}
	var decoded interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("schema: decoding value for validation: %w", err)
	}

	if err := compiled.Validate(decoded); err != nil {
		return translateValidationError(err)
	}
	return nil
}

// translateValidationError flattens jsonschema's nested
// *jsonschema.ValidationError tree into the flat (pointer, message) pairs
// spec.md §4.14 asks for.
func translateValidationError(err error) ValidationErrors {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return ValidationErrors{{Pointer: "", Message: err.Error()}}
	}

	var out ValidationErrors
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			out = append(out, &InvalidError{Pointer: e.InstanceLocation, Message: e.Message})
			return
		}
		for _, cause := range e.Causes {
			walk(cause)
		}
	}
	walk(ve)
	return out
}
