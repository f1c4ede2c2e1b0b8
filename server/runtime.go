package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/GordonDrop/mcpkit/logging"
	"github.com/GordonDrop/mcpkit/schema"
)

// Runtime validates and executes operations held in a Registry. It keeps
// no per-call state and is safe for concurrent use.
type Runtime struct {
	registry *Registry
	exec     ExecutionCtx
	loader   ResourceLoader

	mu       sync.RWMutex
	manifest *Manifest
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithResourceLoader replaces the loader used by GetResource.
func WithResourceLoader(l ResourceLoader) RuntimeOption {
	return func(r *Runtime) {
		r.loader = l
	}
}

// WithHTTPClient sets the client the default loader uses for http(s).
func WithHTTPClient(c *http.Client) RuntimeOption {
	return func(r *Runtime) {
		r.loader = NewURILoader(c)
	}
}

// NewRuntime creates a runtime over reg. A nil exec.Logger discards logs.
func NewRuntime(reg *Registry, exec ExecutionCtx, opts ...RuntimeOption) *Runtime {
	if exec.Logger == nil {
		exec.Logger = logging.Nop()
	}
	r := &Runtime{
		registry: reg,
		exec:     exec,
		loader:   NewURILoader(nil),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Registry returns the registry the runtime reads from.
func (r *Runtime) Registry() *Registry { return r.registry }

// ExecutionCtx returns the context handed to handlers.
func (r *Runtime) ExecutionCtx() ExecutionCtx { return r.exec }

// Manifest returns the manifest set with SetManifest, or nil.
func (r *Runtime) Manifest() *Manifest {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.manifest
}

func (r *Runtime) SetManifest(m *Manifest) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.manifest = m
}

// ExecuteTool validates input against the tool's input schema and runs
// its handler.
func (r *Runtime) ExecuteTool(ctx context.Context, name string, input json.RawMessage) (any, error) {
	log := r.exec.Logger
	field := logging.F("tool", name)
	log.Info("[runtime] Executing tool", field)

	tool, ok := r.registry.Tool(name)
	if !ok {
		log.Error("Tool not found", field)
		return nil, NewToolNotFound(name)
	}

	validated, err := validate(tool.Input, input)
	if err != nil {
		return nil, r.classify(KindTool, name, err, "Invalid input", "Execution failed")
	}
	log.Info("Input validated successfully", field)

	out, err := guard(func() (any, error) {
		if tool.Handler == nil {
			return nil, errors.New("tool has no handler")
		}
		return tool.Handler(ctx, validated, r.exec)
	})
	if err != nil {
		return nil, r.classify(KindTool, name, err, "Invalid input", "Execution failed")
	}
	log.Info("Execution completed successfully", field)
	return out, nil
}

// RenderPrompt validates params (when the prompt declares a schema) and
// renders the prompt template with them.
func (r *Runtime) RenderPrompt(ctx context.Context, name string, params json.RawMessage) (string, error) {
	log := r.exec.Logger
	field := logging.F("prompt", name)
	log.Info("[runtime] Rendering prompt", field)

	prompt, ok := r.registry.Prompt(name)
	if !ok {
		log.Error("Prompt not found", field)
		return "", NewPromptNotFound(name)
	}

	var values any = params
	if prompt.Params != nil {
		validated, err := prompt.Params.Validate(params)
		if err != nil {
			return "", r.classify(KindPrompt, name, err, "Invalid parameters", "Rendering failed")
		}
		log.Info("Parameters validated successfully", field)
		values = validated
	}

	out, err := guard(func() (any, error) {
		return RenderTemplate(prompt.Template, values)
	})
	if err != nil {
		return "", r.classify(KindPrompt, name, err, "Invalid parameters", "Rendering failed")
	}
	log.Info("Rendering completed successfully", field)
	return out.(string), nil
}

// GetResource loads the content behind a resource's URI.
func (r *Runtime) GetResource(ctx context.Context, name string) (string, error) {
	log := r.exec.Logger
	field := logging.F("resource", name)
	log.Info("[runtime] Getting resource", field)

	res, ok := r.registry.Resource(name)
	if !ok {
		log.Error("Resource not found", field)
		return "", NewResourceNotFound(name)
	}

	u, err := url.Parse(res.URI)
	if err == nil && u.Scheme == "" {
		err = errors.Newf("invalid URL: %s", res.URI)
	}
	if err != nil {
		log.Error("Loading failed", field, logging.Err(err))
		return "", NewExecutionFailure(KindResource, name, err)
	}
	if !supportedScheme(u.Scheme) {
		log.Error("Unsupported URI scheme", field, logging.F("protocol", u.Scheme+":"))
		return "", NewExecutionFailure(KindResource, name, unsupportedScheme(u.Scheme))
	}

	out, err := guard(func() (any, error) {
		return r.loader.Load(ctx, u)
	})
	if err != nil {
		if _, ok := AsOpaque(err); ok {
			return "", err
		}
		var rt *RuntimeError
		if errors.As(err, &rt) && rt.Code == CodeExecutionFailure {
			return "", rt
		}
		log.Error("Loading failed", field, logging.Err(err))
		return "", NewExecutionFailure(KindResource, name, err)
	}
	log.Info("Resource loaded successfully", field)
	return out.(string), nil
}

// classify maps a failure of a tool or prompt into the taxonomy. Opaque
// failures are returned as-is.
func (r *Runtime) classify(kind Kind, name string, err error, invalidMsg, failedMsg string) error {
	var o *Opaque
	if errors.As(err, &o) {
		return o
	}
	log := r.exec.Logger
	if schema.IsValidationError(err) {
		log.Error(invalidMsg, logging.F(kind.String(), name), logging.Err(err))
		return NewInvalidInput(kind, name, err)
	}
	log.Error(failedMsg, logging.F(kind.String(), name), logging.Err(err))
	return NewExecutionFailure(kind, name, err)
}

func validate(v schema.Validator, raw json.RawMessage) (any, error) {
	if v == nil {
		v = schema.Any()
	}
	return v.Validate(raw)
}

// guard runs fn and turns a panic into an error: panics carrying an
// error become that error, anything else becomes an opaque failure.
func guard(fn func() (any, error)) (out any, err error) {
	defer func() {
		if p := recover(); p != nil {
			out = nil
			if e, ok := p.(error); ok {
				err = e
				return
			}
			err = &Opaque{Value: p}
		}
	}()
	return fn()
}
