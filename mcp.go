// Package mcp declares tools, prompts and resources and serves them over
// a line-delimited JSON RPC channel.
//
// Basic usage:
//
//	b := mcp.New(mcp.WithName("calculator"), mcp.WithVersion("1.0.0"))
//
//	add, _ := mcp.TypedTool("add", "Add two numbers",
//	    func(ctx context.Context, in AddInput, _ mcp.ExecutionCtx) (AddOutput, error) {
//	        return AddOutput{Result: in.A + in.B}, nil
//	    })
//	b.Tool(add).Use(mcp.Logging(logger))
//
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
//	defer stop()
//	err := b.Listen(ctx)
package mcp

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cockroachdb/errors"

	"github.com/GordonDrop/mcpkit/logging"
	"github.com/GordonDrop/mcpkit/middleware"
	"github.com/GordonDrop/mcpkit/server"
	"github.com/GordonDrop/mcpkit/transport"
)

// Re-export core types for convenience

type (
	ToolSpec     = server.ToolSpec
	PromptSpec   = server.PromptSpec
	ResourceSpec = server.ResourceSpec
	ToolHandler  = server.ToolHandler
	ExecutionCtx = server.ExecutionCtx
	Registry     = server.Registry
	Runtime      = server.Runtime
	Manifest     = server.Manifest
	RuntimeError = server.RuntimeError
)

// Middleware types
type (
	Middleware = middleware.Middleware
	CallCtx    = middleware.CallCtx
	CallResult = middleware.CallResult
	InvokeFn   = middleware.InvokeFn
	Logger     = logging.Logger
	LogField   = logging.Field
)

// Transport is a carrier the built invoker can be served on.
type Transport = transport.Transport

// Throw fails a handler with an arbitrary value that is passed through
// to the caller unchanged.
var Throw = server.Throw

// TypedTool builds a tool whose schemas are reflected from I and O.
func TypedTool[I, O any](name, description string, fn func(ctx context.Context, in I, exec ExecutionCtx) (O, error)) (ToolSpec, error) {
	return server.TypedTool(name, description, fn)
}

// Middleware re-exports

var (
	Compose         = middleware.Compose
	Chain           = middleware.Chain
	Recover         = middleware.Recover
	RequestID       = middleware.RequestID
	Logging         = middleware.Logging
	Timeout         = middleware.Timeout
	RateLimit       = middleware.RateLimit
	RateLimitByName = middleware.RateLimitByName
	SizeLimit       = middleware.SizeLimit
)

// Size limit presets.
const (
	KB = middleware.KB
	MB = middleware.MB
)

// DefaultMiddleware returns the recommended production middleware stack.
func DefaultMiddleware(logger Logger) []Middleware {
	return middleware.DefaultStack(logger)
}

// LogF creates a new log field with the given key and value.
func LogF(key string, value any) LogField {
	return logging.F(key, value)
}

// Plugin extends a builder with more operations or middleware. Plugins
// run once, at the start of Build, in registration order.
type Plugin func(b *Builder) error

// Option configures a Builder.
type Option func(*Builder)

// WithName sets the implementation name reported in the manifest.
func WithName(name string) Option {
	return func(b *Builder) {
		b.name = name
	}
}

// WithVersion sets the implementation version, also handed to handlers
// through ExecutionCtx.
func WithVersion(version string) Option {
	return func(b *Builder) {
		b.version = version
	}
}

// WithLogger sets the logger used by the runtime and the default transport.
func WithLogger(l Logger) Option {
	return func(b *Builder) {
		b.logger = l
	}
}

// WithTransport selects the transport Listen serves on.
func WithTransport(t Transport) Option {
	return func(b *Builder) {
		b.Transport(t)
	}
}

// WithResourceLoader replaces the loader used for resource URIs.
func WithResourceLoader(l server.ResourceLoader) Option {
	return func(b *Builder) {
		b.runtimeOpts = append(b.runtimeOpts, server.WithResourceLoader(l))
	}
}

// WithHTTPClient sets the client used to fetch http and https resources.
func WithHTTPClient(c *http.Client) Option {
	return func(b *Builder) {
		b.runtimeOpts = append(b.runtimeOpts, server.WithHTTPClient(c))
	}
}

// Builder accumulates operation declarations and middleware until Build.
// It is not safe for concurrent use.
type Builder struct {
	name        string
	version     string
	logger      Logger
	runtimeOpts []server.RuntimeOption

	tools       []ToolSpec
	prompts     []PromptSpec
	resources   []ResourceSpec
	middlewares []Middleware
	plugins     []Plugin
	transport   Transport

	// err is the first declaration error; Build reports it.
	err error

	inPlugin  bool
	bundle    *Bundle
	listening bool
}

// New creates a builder.
func New(opts ...Option) *Builder {
	b := &Builder{
		name:    "mcpkit",
		version: "1.0.0",
		logger:  logging.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Builder) fail(err error) *Builder {
	if b.err == nil {
		b.err = err
	}
	return b
}

// Tool declares a tool.
func (b *Builder) Tool(spec ToolSpec) *Builder {
	b.tools = append(b.tools, spec)
	return b
}

// Prompt declares a prompt.
func (b *Builder) Prompt(spec PromptSpec) *Builder {
	b.prompts = append(b.prompts, spec)
	return b
}

// Resource declares a resource.
func (b *Builder) Resource(spec ResourceSpec) *Builder {
	b.resources = append(b.resources, spec)
	return b
}

// Use appends middleware. The first middleware added is the outermost.
func (b *Builder) Use(mws ...Middleware) *Builder {
	for _, mw := range mws {
		if mw == nil {
			return b.fail(errors.New("middleware must not be nil"))
		}
		b.middlewares = append(b.middlewares, mw)
	}
	return b
}

// Register queues a plugin.
func (b *Builder) Register(p Plugin) *Builder {
	if p == nil {
		return b.fail(errors.New("plugin must not be nil"))
	}
	b.plugins = append(b.plugins, p)
	return b
}

// Transport selects the transport Listen serves on. It may be set once.
func (b *Builder) Transport(t Transport) *Builder {
	if b.transport != nil {
		return b.fail(server.NewLifecycleViolation("transport()", "transport can only be set once"))
	}
	b.transport = t
	return b
}

// Build runs the plugins and turns the declarations into a Bundle. The
// error wrapper is appended after all user middleware, making it the
// innermost layer around the runtime. Build may be called once.
func (b *Builder) Build() (*Bundle, error) {
	if b.inPlugin {
		return nil, server.NewLifecycleViolation("build()", "plugins cannot call build() during execution")
	}
	if b.bundle != nil {
		return nil, server.NewLifecycleViolation("build()", "server has already been built")
	}

	if err := b.runPlugins(); err != nil {
		return nil, err
	}
	if b.err != nil {
		return nil, b.err
	}

	reg := server.NewRegistry()
	for _, t := range b.tools {
		if err := reg.AddTool(t); err != nil {
			return nil, err
		}
	}
	for _, p := range b.prompts {
		if err := reg.AddPrompt(p); err != nil {
			return nil, err
		}
	}
	for _, r := range b.resources {
		if err := reg.AddResource(r); err != nil {
			return nil, err
		}
	}

	rt := server.NewRuntime(reg, server.ExecutionCtx{Logger: b.logger, Version: b.version}, b.runtimeOpts...)
	manifest := server.BuildManifest(server.Implementation{Name: b.name, Version: b.version}, reg)
	if err := manifest.Validate(); err != nil {
		return nil, err
	}
	rt.SetManifest(manifest)

	mws := make([]Middleware, 0, len(b.middlewares)+1)
	mws = append(mws, b.middlewares...)
	mws = append(mws, middleware.ErrorWrapper())

	b.bundle = &Bundle{
		Registry: reg,
		Runtime:  rt,
		Invoke:   middleware.Compose(mws, coreInvoker(rt)),
	}
	b.logger.Info("[builder] built",
		logging.F("tools", len(b.tools)),
		logging.F("prompts", len(b.prompts)),
		logging.F("resources", len(b.resources)),
		logging.F("middlewares", len(b.middlewares)),
	)
	return b.bundle, nil
}

func (b *Builder) runPlugins() error {
	b.inPlugin = true
	defer func() { b.inPlugin = false }()

	// Plugins may register further plugins; those run too.
	for i := 0; i < len(b.plugins); i++ {
		if err := b.plugins[i](b); err != nil {
			return errors.Wrapf(err, "plugin %d", i)
		}
	}
	return nil
}

// Listen builds the server if needed and serves it on the selected
// transport, stdio by default, until the transport stops or ctx is
// cancelled. Listen may be called once.
func (b *Builder) Listen(ctx context.Context) error {
	if b.inPlugin {
		return server.NewLifecycleViolation("listen()", "plugins cannot call listen() during execution")
	}
	if b.listening {
		return server.NewLifecycleViolation("listen()", "method can only be called once")
	}
	b.listening = true

	bundle := b.bundle
	if bundle == nil {
		var err error
		if bundle, err = b.Build(); err != nil {
			return err
		}
	}

	t := b.transport
	if t == nil {
		t = transport.NewStdio(transport.WithLogger(b.logger))
	}
	b.logger.Info("[builder] listening", logging.F("transport", t.Name()))
	return t.Start(ctx, bundle.Invoke)
}

// Bundle is the immutable result of Build.
type Bundle struct {
	Registry *Registry
	Runtime  *Runtime
	Invoke   InvokeFn
}

// Manifest returns the snapshot of the declared operations.
func (b *Bundle) Manifest() *Manifest {
	return b.Runtime.Manifest()
}

// Call invokes an operation of the given kind through the middleware
// chain.
func (b *Bundle) Call(ctx context.Context, kind server.Kind, name string, input json.RawMessage) (*CallResult, error) {
	return b.Invoke(ctx, middleware.NewCall(kind, name, input))
}

// coreInvoker dispatches a call to the runtime operation for its kind.
func coreInvoker(rt *Runtime) InvokeFn {
	return func(ctx context.Context, call *CallCtx) (*CallResult, error) {
		switch call.Type {
		case server.KindTool:
			out, err := rt.ExecuteTool(ctx, call.Name, call.Input)
			if err != nil {
				return nil, err
			}
			return &CallResult{Content: out}, nil
		case server.KindPrompt:
			out, err := rt.RenderPrompt(ctx, call.Name, call.Input)
			if err != nil {
				return nil, err
			}
			return &CallResult{Content: out}, nil
		case server.KindResource:
			out, err := rt.GetResource(ctx, call.Name)
			if err != nil {
				return nil, err
			}
			return &CallResult{Content: out}, nil
		default:
			return nil, errors.Newf("unknown operation type: %s", call.Type)
		}
	}
}
