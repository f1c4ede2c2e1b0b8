package server

import (
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/errors"
)

// Code is the stable identifier of a RuntimeError.
type Code string

const (
	CodeToolNotFound     Code = "TOOL_NOT_FOUND"
	CodePromptNotFound   Code = "PROMPT_NOT_FOUND"
	CodeResourceNotFound Code = "RESOURCE_NOT_FOUND"
	CodeInvalidInput     Code = "INVALID_INPUT"
	CodeExecutionFailure Code = "EXECUTION_FAILURE"
	CodeNameConflict     Code = "NAME_CONFLICT"
	CodeLifecycleError   Code = "LIFECYCLE_ERROR"
)

// RuntimeError is the closed error taxonomy of the runtime. Only the
// fields relevant to Code are set.
type RuntimeError struct {
	Code Code
	// Kind is set for InvalidInput, ExecutionFailure and NameConflict.
	Kind Kind
	// Name is the operation name, when there is one.
	Name string
	// Operation and Reason are set for lifecycle violations.
	Operation string
	Reason    string

	msg   string
	cause error
}

// Sentinels for errors.Is; matching is by Code.
var (
	ErrToolNotFound       = &RuntimeError{Code: CodeToolNotFound, msg: "tool not found"}
	ErrPromptNotFound     = &RuntimeError{Code: CodePromptNotFound, msg: "prompt not found"}
	ErrResourceNotFound   = &RuntimeError{Code: CodeResourceNotFound, msg: "resource not found"}
	ErrInvalidInput       = &RuntimeError{Code: CodeInvalidInput, msg: "invalid input"}
	ErrExecutionFailure   = &RuntimeError{Code: CodeExecutionFailure, msg: "execution failure"}
	ErrNameConflict       = &RuntimeError{Code: CodeNameConflict, msg: "name conflict"}
	ErrLifecycleViolation = &RuntimeError{Code: CodeLifecycleError, msg: "lifecycle violation"}
)

func (e *RuntimeError) Error() string { return e.msg }

// Unwrap returns the underlying cause, if any.
func (e *RuntimeError) Unwrap() error { return e.cause }

// Is matches any RuntimeError with the same Code.
func (e *RuntimeError) Is(target error) bool {
	t, ok := target.(*RuntimeError)
	return ok && t.Code == e.Code
}

// MarshalJSON encodes the error as {"code","message"}.
func (e *RuntimeError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Code    Code   `json:"code"`
		Message string `json:"message"`
	}{e.Code, e.msg})
}

func NewToolNotFound(name string) *RuntimeError {
	return &RuntimeError{
		Code: CodeToolNotFound,
		Kind: KindTool,
		Name: name,
		msg:  fmt.Sprintf("Tool '%s' not found in registry", name),
	}
}

func NewPromptNotFound(name string) *RuntimeError {
	return &RuntimeError{
		Code: CodePromptNotFound,
		Kind: KindPrompt,
		Name: name,
		msg:  fmt.Sprintf("Prompt '%s' not found in registry", name),
	}
}

func NewResourceNotFound(name string) *RuntimeError {
	return &RuntimeError{
		Code: CodeResourceNotFound,
		Kind: KindResource,
		Name: name,
		msg:  fmt.Sprintf("Resource '%s' not found in registry", name),
	}
}

// NewInvalidInput reports that the input of a tool or the params of a
// prompt failed validation.
func NewInvalidInput(kind Kind, name string, cause error) *RuntimeError {
	return &RuntimeError{
		Code:  CodeInvalidInput,
		Kind:  kind,
		Name:  name,
		msg:   fmt.Sprintf("Invalid input for %s '%s': %s", kind, name, causeMessage(cause)),
		cause: cause,
	}
}

// NewExecutionFailure wraps a failure raised while running an operation.
func NewExecutionFailure(kind Kind, name string, cause error) *RuntimeError {
	return &RuntimeError{
		Code:  CodeExecutionFailure,
		Kind:  kind,
		Name:  name,
		msg:   fmt.Sprintf("Execution failed for %s '%s': %s", kind, name, causeMessage(cause)),
		cause: cause,
	}
}

func NewNameConflict(kind Kind, name string) *RuntimeError {
	return &RuntimeError{
		Code: CodeNameConflict,
		Kind: kind,
		Name: name,
		msg:  fmt.Sprintf("%s with name '%s' already exists in registry", kind, name),
	}
}

// NewLifecycleViolation reports a call made in the wrong lifecycle phase,
// for example listening twice.
func NewLifecycleViolation(operation, reason string) *RuntimeError {
	return &RuntimeError{
		Code:      CodeLifecycleError,
		Operation: operation,
		Reason:    reason,
		msg:       fmt.Sprintf("Lifecycle violation: %s - %s", operation, reason),
	}
}

func causeMessage(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

// Opaque carries a value raised by a handler that is not shaped like an
// error. The runtime passes it through untouched.
type Opaque struct {
	Value any
}

func (o *Opaque) Error() string { return fmt.Sprintf("%v", o.Value) }

// Throw raises v as an opaque failure. Returning Throw(v) from a handler
// makes the caller receive exactly v instead of an ExecutionFailure.
func Throw(v any) error { return &Opaque{Value: v} }

// AsOpaque returns the value carried by an opaque failure in err's chain.
func AsOpaque(err error) (any, bool) {
	var o *Opaque
	if errors.As(err, &o) {
		return o.Value, true
	}
	return nil, false
}

// Failure is the result of classifying an error: exactly one field is set.
type Failure struct {
	Structured *RuntimeError
	Opaque     *Opaque
	Other      error
}

// Classify sorts err into the taxonomy. It returns the zero Failure for nil.
func Classify(err error) Failure {
	if err == nil {
		return Failure{}
	}
	var o *Opaque
	if errors.As(err, &o) {
		return Failure{Opaque: o}
	}
	var rt *RuntimeError
	if errors.As(err, &rt) {
		return Failure{Structured: rt}
	}
	return Failure{Other: err}
}
