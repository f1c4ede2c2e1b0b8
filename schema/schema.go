// Package schema validates untyped JSON payloads and narrows them into
// values handlers can consume.
//
// Three validators are provided:
//
//   - *Schema: a small hand-built schema (object, array, string, integer,
//     number, boolean) for handlers that work with map[string]any.
//   - *Compiled: a full JSON Schema document (draft 2020-12).
//   - *Typed[T]: a schema reflected from a Go type; Validate returns a T.
//
// All of them report failures as *ValidationError or ValidationErrors so
// callers can tell validation failures apart from other errors.
package schema

import "encoding/json"

// Validator narrows a raw JSON payload into a validated value.
type Validator interface {
	// Validate decodes and checks raw. An empty raw is treated as null.
	Validate(raw json.RawMessage) (any, error)
	// JSONSchema returns a JSON-encodable description of the schema.
	JSONSchema() any
}

// Schema represents a JSON Schema.
type Schema struct {
	Type        string             `json:"type,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Description string             `json:"description,omitempty"`
	Default     any                `json:"default,omitempty"`
	Enum        []any              `json:"enum,omitempty"`
	Minimum     *float64           `json:"minimum,omitempty"`
	Maximum     *float64           `json:"maximum,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	// Nullable admits null in place of a typed value.
	Nullable bool `json:"-"`
}

// JSONSchema returns s itself; Schema marshals as JSON Schema.
func (s *Schema) JSONSchema() any { return s }

// Any accepts every value, including null.
func Any() *Schema { return &Schema{} }

func String() *Schema  { return &Schema{Type: typeString} }
func Integer() *Schema { return &Schema{Type: typeInteger} }
func Number() *Schema  { return &Schema{Type: typeNumber} }
func Boolean() *Schema { return &Schema{Type: typeBoolean} }

// Array describes a list whose elements match items (nil for any).
func Array(items *Schema) *Schema {
	return &Schema{Type: typeArray, Items: items}
}

// Object describes an object with the given properties. Every property
// named in required must be present.
func Object(props map[string]*Schema, required ...string) *Schema {
	if props == nil {
		props = map[string]*Schema{}
	}
	return &Schema{Type: typeObject, Properties: props, Required: required}
}

// Enum restricts a string schema to the given values.
func Enum(values ...string) *Schema {
	s := String()
	for _, v := range values {
		s.Enum = append(s.Enum, v)
	}
	return s
}

// Describe sets the description and returns s.
func (s *Schema) Describe(desc string) *Schema {
	s.Description = desc
	return s
}

// Min sets the inclusive lower bound and returns s.
func (s *Schema) Min(v float64) *Schema {
	s.Minimum = &v
	return s
}

// Max sets the inclusive upper bound and returns s.
func (s *Schema) Max(v float64) *Schema {
	s.Maximum = &v
	return s
}

// OrNull makes the schema accept null and returns s.
func (s *Schema) OrNull() *Schema {
	s.Nullable = true
	return s
}
