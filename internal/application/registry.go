package application

import (
	"fmt"

	"jira-mcp-server/internal/domain"
)

// ToolDescriptor binds a tool name to its argument schema and handler.
type ToolDescriptor struct {
	Name        string
	Description string
	Schema      domain.Schema
	Handler     domain.ToolHandler
}

// Definition renders the descriptor for tools/list.
func (t ToolDescriptor) Definition() domain.ToolDefinition {
	return domain.ToolDefinition{
		Name:        t.Name,
		Description: t.Description,
		InputSchema: t.Schema.JSONSchema(),
	}
}

// ResourceDescriptor binds a resource URI to the function producing its value.
type ResourceDescriptor struct {
	URI         string
	Name        string
	Description string
	MimeType    string
	Producer    domain.ResourceProducer
}

// Definition renders the descriptor for resources/list.
func (r ResourceDescriptor) Definition() domain.ResourceDefinition {
	return domain.ResourceDefinition{
		URI:         r.URI,
		Name:        r.Name,
		Description: r.Description,
		MimeType:    r.MimeType,
	}
}

// Registry is the static catalogue of tools and resources. It is built once
// and never mutated, so concurrent reads need no locking.
type Registry struct {
	tools     []ToolDescriptor
	toolIndex map[string]int

	resources     []ResourceDescriptor
	resourceIndex map[string]int
}

// NewRegistry indexes the descriptors. Duplicate or empty names, missing
// handlers and duplicate URIs are configuration errors.
func NewRegistry(tools []ToolDescriptor, resources []ResourceDescriptor) (*Registry, error) {
	r := &Registry{
		tools:         make([]ToolDescriptor, 0, len(tools)),
		toolIndex:     make(map[string]int, len(tools)),
		resources:     make([]ResourceDescriptor, 0, len(resources)),
		resourceIndex: make(map[string]int, len(resources)),
	}

	var problems []string
	for _, tool := range tools {
		switch {
		case tool.Name == "":
			problems = append(problems, "tool with empty name")
			continue
		case tool.Handler == nil:
			problems = append(problems, fmt.Sprintf("tool %q has no handler", tool.Name))
			continue
		}
		if _, dup := r.toolIndex[tool.Name]; dup {
			problems = append(problems, fmt.Sprintf("duplicate tool name %q", tool.Name))
			continue
		}
		r.toolIndex[tool.Name] = len(r.tools)
		r.tools = append(r.tools, tool)
	}

	for _, res := range resources {
		switch {
		case res.URI == "":
			problems = append(problems, "resource with empty uri")
			continue
		case res.Producer == nil:
			problems = append(problems, fmt.Sprintf("resource %q has no producer", res.URI))
			continue
		}
		if _, dup := r.resourceIndex[res.URI]; dup {
			problems = append(problems, fmt.Sprintf("duplicate resource uri %q", res.URI))
			continue
		}
		r.resourceIndex[res.URI] = len(r.resources)
		r.resources = append(r.resources, res)
	}

	if len(problems) > 0 {
		return nil, domain.NewConfigurationError(problems...)
	}
	return r, nil
}

// Tool looks up a tool by exact, case-sensitive name.
func (r *Registry) Tool(name string) (ToolDescriptor, bool) {
	i, ok := r.toolIndex[name]
	if !ok {
		return ToolDescriptor{}, false
	}
	return r.tools[i], true
}

// Resource looks up a resource by exact URI.
func (r *Registry) Resource(uri string) (ResourceDescriptor, bool) {
	i, ok := r.resourceIndex[uri]
	if !ok {
		return ResourceDescriptor{}, false
	}
	return r.resources[i], true
}

// ListTools returns tool definitions in registration order.
func (r *Registry) ListTools() []domain.ToolDefinition {
	defs := make([]domain.ToolDefinition, 0, len(r.tools))
	for _, tool := range r.tools {
		defs = append(defs, tool.Definition())
	}
	return defs
}

// ListResources returns resource definitions in registration order.
func (r *Registry) ListResources() []domain.ResourceDefinition {
	defs := make([]domain.ResourceDefinition, 0, len(r.resources))
	for _, res := range r.resources {
		defs = append(defs, res.Definition())
	}
	return defs
}
