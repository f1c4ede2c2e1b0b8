package server

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/GordonDrop/mcpkit/schema"
)

func TestBuildManifest(t *testing.T) {
	reg := NewRegistry()
	mustAdd(t, reg.AddTool(ToolSpec{Name: "b", Input: schema.String()}))
	mustAdd(t, reg.AddTool(ToolSpec{Name: "a", Description: "first"}))
	mustAdd(t, reg.AddPrompt(PromptSpec{Name: "greet", Template: "Hi {{name}}"}))

	m := BuildManifest(Implementation{Name: "calc", Version: "1.2.3"}, reg)

	var names []string
	for _, tool := range m.Tools {
		names = append(names, tool.Name)
	}
	if !reflect.DeepEqual(names, []string{"b", "a"}) {
		t.Errorf("tool order = %v, want [b a]", names)
	}
	if m.Tools[0].InputSchema == nil || m.Tools[1].InputSchema != nil {
		t.Errorf("input schemas = %v, %v", m.Tools[0].InputSchema, m.Tools[1].InputSchema)
	}
	want := Capabilities{Tools: true, Prompts: true, Resources: false}
	if m.Capabilities != want {
		t.Errorf("Capabilities = %+v, want %+v", m.Capabilities, want)
	}
	if err := m.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if res, ok := decoded["resources"].([]any); !ok || len(res) != 0 {
		t.Errorf("resources = %v, want empty list", decoded["resources"])
	}
}

func TestManifest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		m       *Manifest
		wantErr bool
	}{
		{"nil", nil, true},
		{"missing name", &Manifest{Implementation: Implementation{Version: "1.0.0"}}, true},
		{"missing version", &Manifest{Implementation: Implementation{Name: "x"}}, true},
		{"version not semver", &Manifest{Implementation: Implementation{Name: "x", Version: "banana"}}, true},
		{"version missing patch", &Manifest{Implementation: Implementation{Name: "x", Version: "1.0"}}, true},
		{"ok", &Manifest{Implementation: Implementation{Name: "x", Version: "1.0.0"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.m.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
