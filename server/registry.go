package server

import (
	"sync"

	"github.com/cockroachdb/errors"
)

// ErrEmptyName is returned when adding an operation without a name.
var ErrEmptyName = errors.New("server: operation name must not be empty")

// table is an insertion-ordered name index for one kind.
type table[T any] struct {
	entries map[string]T
	order   []string
}

func newTable[T any]() table[T] {
	return table[T]{entries: make(map[string]T)}
}

func (t *table[T]) add(name string, v T) bool {
	if _, exists := t.entries[name]; exists {
		return false
	}
	t.entries[name] = v
	t.order = append(t.order, name)
	return true
}

func (t *table[T]) get(name string) (T, bool) {
	v, ok := t.entries[name]
	return v, ok
}

func (t *table[T]) names() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Registry holds tools, prompts and resources. Names are unique within a
// kind; the same name may be used by different kinds.
type Registry struct {
	mu        sync.RWMutex
	tools     table[ToolSpec]
	prompts   table[PromptSpec]
	resources table[ResourceSpec]
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:     newTable[ToolSpec](),
		prompts:   newTable[PromptSpec](),
		resources: newTable[ResourceSpec](),
	}
}

// AddTool registers a tool. A duplicate name fails with a NameConflict and
// leaves the registry unchanged.
func (r *Registry) AddTool(spec ToolSpec) error {
	if spec.Name == "" {
		return ErrEmptyName
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.tools.add(spec.Name, spec) {
		return NewNameConflict(KindTool, spec.Name)
	}
	return nil
}

// AddPrompt registers a prompt.
func (r *Registry) AddPrompt(spec PromptSpec) error {
	if spec.Name == "" {
		return ErrEmptyName
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.prompts.add(spec.Name, spec) {
		return NewNameConflict(KindPrompt, spec.Name)
	}
	return nil
}

// AddResource registers a resource.
func (r *Registry) AddResource(spec ResourceSpec) error {
	if spec.Name == "" {
		return ErrEmptyName
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.resources.add(spec.Name, spec) {
		return NewNameConflict(KindResource, spec.Name)
	}
	return nil
}

func (r *Registry) Tool(name string) (ToolSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools.get(name)
}

func (r *Registry) Prompt(name string) (PromptSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.prompts.get(name)
}

func (r *Registry) Resource(name string) (ResourceSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.resources.get(name)
}

func (r *Registry) HasTool(name string) bool {
	_, ok := r.Tool(name)
	return ok
}

func (r *Registry) HasPrompt(name string) bool {
	_, ok := r.Prompt(name)
	return ok
}

func (r *Registry) HasResource(name string) bool {
	_, ok := r.Resource(name)
	return ok
}

// ToolNames returns tool names in insertion order.
func (r *Registry) ToolNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools.names()
}

// PromptNames returns prompt names in insertion order.
func (r *Registry) PromptNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.prompts.names()
}

// ResourceNames returns resource names in insertion order.
func (r *Registry) ResourceNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.resources.names()
}

// Clear removes every operation of every kind.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools = newTable[ToolSpec]()
	r.prompts = newTable[PromptSpec]()
	r.resources = newTable[ResourceSpec]()
}
