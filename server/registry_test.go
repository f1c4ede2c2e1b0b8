package server

import (
	"errors"
	"reflect"
	"sync"
	"testing"
)

func TestRegistry_AddAndGet(t *testing.T) {
	reg := NewRegistry()

	if err := reg.AddTool(ToolSpec{Name: "add", Description: "adds"}); err != nil {
		t.Fatalf("AddTool() error = %v", err)
	}
	if err := reg.AddPrompt(PromptSpec{Name: "greet", Template: "Hello {{name}}!"}); err != nil {
		t.Fatalf("AddPrompt() error = %v", err)
	}
	if err := reg.AddResource(ResourceSpec{Name: "readme", URI: "file:///tmp/readme.md"}); err != nil {
		t.Fatalf("AddResource() error = %v", err)
	}

	tool, ok := reg.Tool("add")
	if !ok || tool.Description != "adds" {
		t.Errorf("Tool(add) = %+v, %v", tool, ok)
	}
	prompt, ok := reg.Prompt("greet")
	if !ok || prompt.Template != "Hello {{name}}!" {
		t.Errorf("Prompt(greet) = %+v, %v", prompt, ok)
	}
	res, ok := reg.Resource("readme")
	if !ok || res.URI != "file:///tmp/readme.md" {
		t.Errorf("Resource(readme) = %+v, %v", res, ok)
	}
}

func TestRegistry_AbsentNames(t *testing.T) {
	reg := NewRegistry()
	_ = reg.AddTool(ToolSpec{Name: "add"})

	tests := []struct {
		name string
		get  func() bool
		has  func() bool
	}{
		{"tool", func() bool { _, ok := reg.Tool("missing"); return ok }, func() bool { return reg.HasTool("missing") }},
		{"prompt", func() bool { _, ok := reg.Prompt("add"); return ok }, func() bool { return reg.HasPrompt("add") }},
		{"resource", func() bool { _, ok := reg.Resource("x"); return ok }, func() bool { return reg.HasResource("x") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.get() {
				t.Error("get reported present for a never-added name")
			}
			if tt.has() {
				t.Error("has reported true for a never-added name")
			}
		})
	}
}

func TestRegistry_NameConflict(t *testing.T) {
	reg := NewRegistry()
	first := ToolSpec{Name: "dup", Description: "first"}
	second := ToolSpec{Name: "dup", Description: "second"}

	if err := reg.AddTool(first); err != nil {
		t.Fatalf("AddTool(first) error = %v", err)
	}
	err := reg.AddTool(second)

	var rt *RuntimeError
	if !errors.As(err, &rt) {
		t.Fatalf("AddTool(second) error = %v, want *RuntimeError", err)
	}
	if rt.Code != CodeNameConflict || rt.Kind != KindTool || rt.Name != "dup" {
		t.Errorf("error = %+v, want NAME_CONFLICT tool dup", rt)
	}
	if rt.Error() != "tool with name 'dup' already exists in registry" {
		t.Errorf("Error() = %q", rt.Error())
	}

	got, _ := reg.Tool("dup")
	if got.Description != "first" {
		t.Errorf("registry kept %q, want first spec", got.Description)
	}
	if names := reg.ToolNames(); len(names) != 1 {
		t.Errorf("ToolNames() = %v, want one entry", names)
	}
}

func TestRegistry_NameConflictPerKind(t *testing.T) {
	tests := []struct {
		kind Kind
		add  func(*Registry) error
	}{
		{KindPrompt, func(r *Registry) error { return r.AddPrompt(PromptSpec{Name: "x"}) }},
		{KindResource, func(r *Registry) error { return r.AddResource(ResourceSpec{Name: "x", URI: "file:///x"}) }},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			reg := NewRegistry()
			if err := tt.add(reg); err != nil {
				t.Fatalf("first add error = %v", err)
			}
			err := tt.add(reg)
			if !errors.Is(err, ErrNameConflict) {
				t.Fatalf("second add error = %v, want name conflict", err)
			}
			var rt *RuntimeError
			errors.As(err, &rt)
			if rt.Kind != tt.kind {
				t.Errorf("Kind = %q, want %q", rt.Kind, tt.kind)
			}
		})
	}
}

func TestRegistry_SameNameAcrossKinds(t *testing.T) {
	reg := NewRegistry()
	if err := reg.AddTool(ToolSpec{Name: "shared"}); err != nil {
		t.Fatal(err)
	}
	if err := reg.AddPrompt(PromptSpec{Name: "shared"}); err != nil {
		t.Errorf("AddPrompt() error = %v, want nil", err)
	}
	if err := reg.AddResource(ResourceSpec{Name: "shared", URI: "file:///x"}); err != nil {
		t.Errorf("AddResource() error = %v, want nil", err)
	}
}

func TestRegistry_EmptyName(t *testing.T) {
	reg := NewRegistry()
	if err := reg.AddTool(ToolSpec{}); !errors.Is(err, ErrEmptyName) {
		t.Errorf("AddTool() error = %v, want ErrEmptyName", err)
	}
	if err := reg.AddPrompt(PromptSpec{}); !errors.Is(err, ErrEmptyName) {
		t.Errorf("AddPrompt() error = %v, want ErrEmptyName", err)
	}
	if err := reg.AddResource(ResourceSpec{}); !errors.Is(err, ErrEmptyName) {
		t.Errorf("AddResource() error = %v, want ErrEmptyName", err)
	}
}

func TestRegistry_NamesInInsertionOrder(t *testing.T) {
	reg := NewRegistry()
	for _, n := range []string{"zeta", "alpha", "mid"} {
		_ = reg.AddTool(ToolSpec{Name: n})
		_ = reg.AddPrompt(PromptSpec{Name: n})
		_ = reg.AddResource(ResourceSpec{Name: n, URI: "file:///" + n})
	}
	want := []string{"zeta", "alpha", "mid"}
	if got := reg.ToolNames(); !reflect.DeepEqual(got, want) {
		t.Errorf("ToolNames() = %v, want %v", got, want)
	}
	if got := reg.PromptNames(); !reflect.DeepEqual(got, want) {
		t.Errorf("PromptNames() = %v, want %v", got, want)
	}
	if got := reg.ResourceNames(); !reflect.DeepEqual(got, want) {
		t.Errorf("ResourceNames() = %v, want %v", got, want)
	}

	names := reg.ToolNames()
	names[0] = "mutated"
	if reg.ToolNames()[0] != "zeta" {
		t.Error("ToolNames() must return a copy")
	}
}

func TestRegistry_Clear(t *testing.T) {
	reg := NewRegistry()
	_ = reg.AddTool(ToolSpec{Name: "a"})
	_ = reg.AddPrompt(PromptSpec{Name: "b"})
	_ = reg.AddResource(ResourceSpec{Name: "c", URI: "file:///c"})

	reg.Clear()

	if len(reg.ToolNames())+len(reg.PromptNames())+len(reg.ResourceNames()) != 0 {
		t.Error("Clear() left entries behind")
	}
	if reg.HasTool("a") || reg.HasPrompt("b") || reg.HasResource("c") {
		t.Error("Clear() left lookups resolvable")
	}
	if err := reg.AddTool(ToolSpec{Name: "a"}); err != nil {
		t.Errorf("AddTool() after Clear() error = %v", err)
	}
}

func TestRegistry_ConcurrentReads(t *testing.T) {
	reg := NewRegistry()
	_ = reg.AddTool(ToolSpec{Name: "add"})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !reg.HasTool("add") {
				t.Error("HasTool(add) = false")
			}
			_ = reg.ToolNames()
		}()
	}
	wg.Wait()
}
