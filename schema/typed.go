package schema

import (
	"encoding/json"
	"reflect"

	"github.com/cockroachdb/errors"
	"github.com/invopop/jsonschema"

	"github.com/GordonDrop/mcpkit/internal/jsoncodec"
)

// Typed validates against a schema reflected from T and decodes into T.
type Typed[T any] struct {
	reflected *jsonschema.Schema
	compiled  *Compiled
}

// TypedOption configures reflection for For.
type TypedOption func(*jsonschema.Reflector)

// AllowAdditionalProperties accepts object fields not declared on T.
func AllowAdditionalProperties() TypedOption {
	return func(r *jsonschema.Reflector) {
		r.AllowAdditionalProperties = true
	}
}

// For reflects T into a JSON Schema. Struct fields without omitempty are
// required; jsonschema struct tags refine the generated schema. T may also
// be a primitive, slice or map type.
func For[T any](opts ...TypedOption) (*Typed[T], error) {
	typ := reflect.TypeFor[T]()
	for typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	r := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: typ.Kind() == reflect.Struct,
		Anonymous:      true,
	}
	for _, opt := range opts {
		opt(r)
	}

	reflected := r.Reflect(new(T))
	doc, err := json.Marshal(reflected)
	if err != nil {
		return nil, errors.Wrap(err, "schema: marshal reflected schema")
	}
	compiled, err := Compile(doc)
	if err != nil {
		return nil, errors.Wrapf(err, "schema: compile schema for %T", *new(T))
	}
	return &Typed[T]{reflected: reflected, compiled: compiled}, nil
}

// MustFor is like For but panics on error.
func MustFor[T any](opts ...TypedOption) *Typed[T] {
	t, err := For[T](opts...)
	if err != nil {
		panic(err)
	}
	return t
}

// Validate checks raw against the reflected schema and decodes it into a T.
// The returned value has dynamic type T.
func (t *Typed[T]) Validate(raw json.RawMessage) (any, error) {
	return t.Decode(raw)
}

// Decode is Validate with a static result type.
func (t *Typed[T]) Decode(raw json.RawMessage) (T, error) {
	var out T
	if _, err := t.compiled.Validate(raw); err != nil {
		return out, err
	}
	if len(raw) == 0 {
		return out, nil
	}
	if err := jsoncodec.Unmarshal(raw, &out); err != nil {
		return out, &ValidationError{Message: "decode: " + err.Error()}
	}
	return out, nil
}

// JSONSchema returns the reflected schema.
func (t *Typed[T]) JSONSchema() any { return t.reflected }
