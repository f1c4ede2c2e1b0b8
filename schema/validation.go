package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/GordonDrop/mcpkit/internal/jsoncodec"
)

// Schema type constants.
const (
	typeObject  = "object"
	typeArray   = "array"
	typeString  = "string"
	typeInteger = "integer"
	typeNumber  = "number"
	typeBoolean = "boolean"
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Path    string // JSON path to the invalid field (e.g., "user.email")
	Message string
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []*ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString("validation failed:")
	for _, err := range e {
		sb.WriteString("\n  - ")
		sb.WriteString(err.Error())
	}
	return sb.String()
}

// IsValidationError reports whether err, or anything it wraps, is a
// validation failure produced by this package.
func IsValidationError(err error) bool {
	var one *ValidationError
	if errors.As(err, &one) {
		return true
	}
	var many ValidationErrors
	return errors.As(err, &many)
}

// decode parses raw into a generic JSON value; empty input decodes to nil.
func decode(raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var value any
	if err := jsoncodec.Unmarshal(raw, &value); err != nil {
		return nil, &ValidationError{Message: fmt.Sprintf("invalid JSON: %s", err)}
	}
	return value, nil
}

// Validate decodes raw and validates it against s. The decoded value is
// returned on success.
func (s *Schema) Validate(raw json.RawMessage) (any, error) {
	value, err := decode(raw)
	if err != nil {
		return nil, err
	}
	if err := s.ValidateValue(value); err != nil {
		return nil, err
	}
	return value, nil
}

// ValidateValue validates an already decoded value.
func (s *Schema) ValidateValue(value any) error {
	var errs ValidationErrors
	s.validate("", value, &errs)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (s *Schema) validate(path string, value any, errs *ValidationErrors) {
	if value == nil {
		if s.Type != "" && !s.Nullable {
			*errs = append(*errs, &ValidationError{
				Path:    path,
				Message: fmt.Sprintf("expected %s, got null", s.Type),
			})
		}
		return
	}

	switch s.Type {
	case typeObject:
		s.validateObject(path, value, errs)
	case typeArray:
		s.validateArray(path, value, errs)
	case typeString:
		s.validateString(path, value, errs)
	case typeInteger:
		s.validateInteger(path, value, errs)
	case typeNumber:
		s.validateNumber(path, value, errs)
	case typeBoolean:
		s.validateBoolean(path, value, errs)
	}
}

func (s *Schema) validateObject(path string, value any, errs *ValidationErrors) {
	obj, ok := value.(map[string]any)
	if !ok {
		*errs = append(*errs, typeMismatch(path, typeObject, value))
		return
	}

	for _, req := range s.Required {
		if _, exists := obj[req]; !exists {
			*errs = append(*errs, &ValidationError{
				Path:    joinPath(path, req),
				Message: "required field is missing",
			})
		}
	}

	for name, propSchema := range s.Properties {
		if val, exists := obj[name]; exists {
			propSchema.validate(joinPath(path, name), val, errs)
		}
	}
}

func (s *Schema) validateArray(path string, value any, errs *ValidationErrors) {
	items, ok := value.([]any)
	if !ok {
		*errs = append(*errs, typeMismatch(path, typeArray, value))
		return
	}
	if s.Items == nil {
		return
	}
	for i, item := range items {
		s.Items.validate(fmt.Sprintf("%s[%d]", path, i), item, errs)
	}
}

func (s *Schema) validateString(path string, value any, errs *ValidationErrors) {
	str, ok := value.(string)
	if !ok {
		*errs = append(*errs, typeMismatch(path, typeString, value))
		return
	}

	if len(s.Enum) == 0 {
		return
	}
	for _, e := range s.Enum {
		if e == str {
			return
		}
	}
	*errs = append(*errs, &ValidationError{
		Path:    path,
		Message: fmt.Sprintf("value must be one of: %v", s.Enum),
	})
}

func (s *Schema) validateInteger(path string, value any, errs *ValidationErrors) {
	num, ok := value.(float64)
	if !ok {
		*errs = append(*errs, typeMismatch(path, typeInteger, value))
		return
	}
	if num != float64(int64(num)) {
		*errs = append(*errs, &ValidationError{
			Path:    path,
			Message: "expected integer, got decimal number",
		})
		return
	}
	s.validateNumericConstraints(path, num, errs)
}

func (s *Schema) validateNumber(path string, value any, errs *ValidationErrors) {
	num, ok := value.(float64)
	if !ok {
		*errs = append(*errs, typeMismatch(path, typeNumber, value))
		return
	}
	s.validateNumericConstraints(path, num, errs)
}

func (s *Schema) validateNumericConstraints(path string, num float64, errs *ValidationErrors) {
	if s.Minimum != nil && num < *s.Minimum {
		*errs = append(*errs, &ValidationError{
			Path:    path,
			Message: fmt.Sprintf("value %v is less than minimum %v", num, *s.Minimum),
		})
	}

	if s.Maximum != nil && num > *s.Maximum {
		*errs = append(*errs, &ValidationError{
			Path:    path,
			Message: fmt.Sprintf("value %v is greater than maximum %v", num, *s.Maximum),
		})
	}
}

func (s *Schema) validateBoolean(path string, value any, errs *ValidationErrors) {
	if _, ok := value.(bool); !ok {
		*errs = append(*errs, typeMismatch(path, typeBoolean, value))
	}
}

func typeMismatch(path, want string, got any) *ValidationError {
	return &ValidationError{
		Path:    path,
		Message: fmt.Sprintf("expected %s, got %s", want, jsonTypeName(got)),
	}
}

func jsonTypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return typeObject
	case []any:
		return typeArray
	case string:
		return typeString
	case float64:
		return typeNumber
	case bool:
		return typeBoolean
	default:
		return fmt.Sprintf("%T", v)
	}
}

func joinPath(base, field string) string {
	if base == "" {
		return field
	}
	return base + "." + field
}
