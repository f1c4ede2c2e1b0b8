package schema

import (
	"bytes"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// resourceID is the base URI the document is registered under; each
// Compile call uses its own compiler.
const resourceID = "mcpkit://schema.json"

// Compiled is a JSON Schema document compiled for validation.
type Compiled struct {
	doc    json.RawMessage
	schema *jsonschema.Schema
}

// Compile compiles a draft 2020-12 JSON Schema document.
func Compile(doc []byte) (*Compiled, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(resourceID, bytes.NewReader(doc)); err != nil {
		return nil, errors.Wrap(err, "schema: add resource")
	}
	compiled, err := compiler.Compile(resourceID)
	if err != nil {
		return nil, errors.Wrap(err, "schema: compile")
	}
	return &Compiled{doc: append(json.RawMessage(nil), doc...), schema: compiled}, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(doc string) *Compiled {
	c, err := Compile([]byte(doc))
	if err != nil {
		panic(err)
	}
	return c
}

// Validate decodes raw and validates it against the compiled document.
func (c *Compiled) Validate(raw json.RawMessage) (any, error) {
	value, err := decode(raw)
	if err != nil {
		return nil, err
	}
	if err := c.ValidateValue(value); err != nil {
		return nil, err
	}
	return value, nil
}

// ValidateValue validates an already decoded value.
func (c *Compiled) ValidateValue(value any) error {
	err := c.schema.Validate(value)
	if err == nil {
		return nil
	}
	var valErr *jsonschema.ValidationError
	if errors.As(err, &valErr) {
		return convertValidationError(valErr)
	}
	return errors.Wrap(err, "schema: validate")
}

// JSONSchema returns the source document.
func (c *Compiled) JSONSchema() any { return c.doc }

// convertValidationError flattens the leaf causes of a jsonschema
// validation error into ValidationErrors.
func convertValidationError(valErr *jsonschema.ValidationError) ValidationErrors {
	var errs ValidationErrors
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			errs = append(errs, &ValidationError{
				Path:    pointerToPath(e.InstanceLocation),
				Message: e.Message,
			})
			return
		}
		for _, cause := range e.Causes {
			walk(cause)
		}
	}
	walk(valErr)
	return errs
}

// pointerToPath turns "/user/tags/0" into "user.tags[0]".
func pointerToPath(ptr string) string {
	if ptr == "" || ptr == "/" {
		return ""
	}
	var sb bytes.Buffer
	for _, tok := range bytes.Split([]byte(ptr[1:]), []byte("/")) {
		if isIndex(tok) {
			sb.WriteByte('[')
			sb.Write(tok)
			sb.WriteByte(']')
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('.')
		}
		sb.Write(tok)
	}
	return sb.String()
}

func isIndex(tok []byte) bool {
	if len(tok) == 0 {
		return false
	}
	for _, c := range tok {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
