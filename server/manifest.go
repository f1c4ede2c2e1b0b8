package server

import "github.com/cockroachdb/errors"

// Implementation names the server exposing the operations.
type Implementation struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Capabilities declares which operation kinds are present.
type Capabilities struct {
	Tools     bool `json:"tools"`
	Prompts   bool `json:"prompts"`
	Resources bool `json:"resources"`
}

// ToolInfo describes a registered tool.
type ToolInfo struct {
	Name         string `json:"name"`
	Title        string `json:"title,omitempty"`
	Description  string `json:"description,omitempty"`
	InputSchema  any    `json:"inputSchema,omitempty"`
	OutputSchema any    `json:"outputSchema,omitempty"`
}

// PromptInfo describes a registered prompt.
type PromptInfo struct {
	Name         string `json:"name"`
	Title        string `json:"title,omitempty"`
	Description  string `json:"description,omitempty"`
	Template     string `json:"template"`
	ParamsSchema any    `json:"paramsSchema,omitempty"`
}

// ResourceInfo describes a registered resource.
type ResourceInfo struct {
	Name        string `json:"name"`
	URI         string `json:"uri"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

// Manifest is a snapshot of everything a registry exposes.
type Manifest struct {
	Implementation Implementation `json:"implementation"`
	Capabilities   Capabilities   `json:"capabilities"`
	Tools          []ToolInfo     `json:"tools"`
	Prompts        []PromptInfo   `json:"prompts"`
	Resources      []ResourceInfo `json:"resources"`
}

// BuildManifest snapshots reg in registration order.
func BuildManifest(impl Implementation, reg *Registry) *Manifest {
	m := &Manifest{
		Implementation: impl,
		Tools:          []ToolInfo{},
		Prompts:        []PromptInfo{},
		Resources:      []ResourceInfo{},
	}
	for _, name := range reg.ToolNames() {
		t, _ := reg.Tool(name)
		info := ToolInfo{Name: t.Name, Title: t.Title, Description: t.Description}
		if t.Input != nil {
			info.InputSchema = t.Input.JSONSchema()
		}
		if t.Output != nil {
			info.OutputSchema = t.Output.JSONSchema()
		}
		m.Tools = append(m.Tools, info)
	}
	for _, name := range reg.PromptNames() {
		p, _ := reg.Prompt(name)
		info := PromptInfo{Name: p.Name, Title: p.Title, Description: p.Description, Template: p.Template}
		if p.Params != nil {
			info.ParamsSchema = p.Params.JSONSchema()
		}
		m.Prompts = append(m.Prompts, info)
	}
	for _, name := range reg.ResourceNames() {
		r, _ := reg.Resource(name)
		m.Resources = append(m.Resources, ResourceInfo{
			Name:        r.Name,
			URI:         r.URI,
			Title:       r.Title,
			Description: r.Description,
			MimeType:    r.MimeType,
		})
	}
	m.Capabilities = Capabilities{
		Tools:     len(m.Tools) > 0,
		Prompts:   len(m.Prompts) > 0,
		Resources: len(m.Resources) > 0,
	}
	return m
}

// Validate checks that the manifest names its implementation and that the
// version has the form MAJOR.MINOR.PATCH.
func (m *Manifest) Validate() error {
	if m == nil {
		return errors.New("manifest is nil")
	}
	if m.Implementation.Name == "" {
		return errors.New("manifest: implementation name is required")
	}
	if m.Implementation.Version == "" {
		return errors.New("manifest: implementation version is required")
	}
	if !ValidVersion(m.Implementation.Version) {
		return errors.Newf("manifest: implementation version %q must have the form MAJOR.MINOR.PATCH", m.Implementation.Version)
	}
	return nil
}
