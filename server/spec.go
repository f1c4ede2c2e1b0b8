package server

import (
	"context"
	"regexp"

	"github.com/cockroachdb/errors"

	"github.com/GordonDrop/mcpkit/logging"
	"github.com/GordonDrop/mcpkit/schema"
)

// Kind discriminates the three operation kinds.
type Kind string

const (
	KindTool     Kind = "tool"
	KindPrompt   Kind = "prompt"
	KindResource Kind = "resource"
)

// String returns the wire name of the kind.
func (k Kind) String() string { return string(k) }

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindTool, KindPrompt, KindResource:
		return true
	}
	return false
}

// ExecutionCtx is handed to every tool handler.
type ExecutionCtx struct {
	Logger  logging.Logger
	Version string
}

var semverPattern = regexp.MustCompile(`^\d+\.\d+\.\d+$`)

// ValidVersion reports whether v has the form MAJOR.MINOR.PATCH.
func ValidVersion(v string) bool {
	return semverPattern.MatchString(v)
}

// ToolHandler executes a tool. The input has already passed the tool's
// input schema and has whatever dynamic type that schema produces.
type ToolHandler func(ctx context.Context, input any, exec ExecutionCtx) (any, error)

// ToolSpec declares a tool.
type ToolSpec struct {
	Name        string
	Title       string
	Description string
	Input       schema.Validator
	Output      schema.Validator
	Handler     ToolHandler
}

// PromptSpec declares a prompt template. Params is optional; without it
// parameters are used as received.
type PromptSpec struct {
	Name        string
	Title       string
	Description string
	Template    string
	Params      schema.Validator
}

// ResourceSpec declares a resource addressed by an absolute URI.
type ResourceSpec struct {
	Name        string
	URI         string
	Title       string
	Description string
	MimeType    string
}

// Handle adapts a handler with a concrete input type. The input schema
// must produce values of type I (schema.For[I] does).
func Handle[I, O any](fn func(ctx context.Context, in I, exec ExecutionCtx) (O, error)) ToolHandler {
	return func(ctx context.Context, input any, exec ExecutionCtx) (any, error) {
		in, ok := input.(I)
		if !ok && input != nil {
			return nil, errors.Newf("unexpected input type %T", input)
		}
		return fn(ctx, in, exec)
	}
}

// TypedTool builds a ToolSpec whose input and output schemas are
// reflected from I and O.
func TypedTool[I, O any](name, description string, fn func(ctx context.Context, in I, exec ExecutionCtx) (O, error)) (ToolSpec, error) {
	in, err := schema.For[I]()
	if err != nil {
		return ToolSpec{}, errors.Wrapf(err, "tool %q: input schema", name)
	}
	out, err := schema.For[O]()
	if err != nil {
		return ToolSpec{}, errors.Wrapf(err, "tool %q: output schema", name)
	}
	return ToolSpec{
		Name:        name,
		Description: description,
		Input:       in,
		Output:      out,
		Handler:     Handle(fn),
	}, nil
}
