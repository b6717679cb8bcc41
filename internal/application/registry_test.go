package application

import (
	"context"
	"errors"
	"strings"
	"testing"

	"jira-mcp-server/internal/domain"
)

func noopHandler(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	return nil, nil
}

func noopProducer(ctx context.Context) (interface{}, error) {
	return nil, nil
}

func TestNewRegistry_Rejects(t *testing.T) {
	tests := []struct {
		name      string
		tools     []ToolDescriptor
		resources []ResourceDescriptor
		want      string
	}{
		{
			name:  "duplicate tool",
			tools: []ToolDescriptor{{Name: "a", Handler: noopHandler}, {Name: "a", Handler: noopHandler}},
			want:  `duplicate tool name "a"`,
		},
		{
			name:  "empty tool name",
			tools: []ToolDescriptor{{Handler: noopHandler}},
			want:  "tool with empty name",
		},
		{
			name:  "missing handler",
			tools: []ToolDescriptor{{Name: "a"}},
			want:  `tool "a" has no handler`,
		},
		{
			name:      "duplicate resource",
			resources: []ResourceDescriptor{{URI: "resource://x", Producer: noopProducer}, {URI: "resource://x", Producer: noopProducer}},
			want:      `duplicate resource uri "resource://x"`,
		},
		{
			name:      "missing producer",
			resources: []ResourceDescriptor{{URI: "resource://x"}},
			want:      `resource "resource://x" has no producer`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.tools, tt.resources)
			var cfgErr *domain.ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("error = %v, want *ConfigurationError", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestRegistry_LookupAndOrder(t *testing.T) {
	registry, err := NewRegistry(
		[]ToolDescriptor{{Name: "b", Handler: noopHandler}, {Name: "a", Handler: noopHandler}},
		[]ResourceDescriptor{{URI: "resource://z", Name: "z", Producer: noopProducer}},
	)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	tools := registry.ListTools()
	if len(tools) != 2 || tools[0].Name != "b" || tools[1].Name != "a" {
		t.Errorf("ListTools() = %+v, want registration order", tools)
	}
	if _, ok := registry.Tool("A"); ok {
		t.Error("tool lookup must be case sensitive")
	}
	if _, ok := registry.Resource("resource://z"); !ok {
		t.Error("expected resource://z to resolve")
	}
	if got := registry.ListResources(); len(got) != 1 || got[0].URI != "resource://z" {
		t.Errorf("ListResources() = %+v", got)
	}
}

func TestJiraTools_Catalogue(t *testing.T) {
	d := newTestDispatcher(t, newFakeBackend(), AdapterOptions{MaxResults: 25}, nil)

	var names []string
	for _, def := range d.Registry().ListTools() {
		names = append(names, def.Name)
		if def.InputSchema.Type != "object" {
			t.Errorf("%s input schema type = %q", def.Name, def.InputSchema.Type)
		}
	}
	want := []string{ToolGetIssue, ToolCreateIssue, ToolSearchIssues, ToolListProjectKeys, ToolCurrentUser}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("tools = %v, want %v", names, want)
	}

	create, _ := d.Registry().Tool(ToolCreateIssue)
	project := create.Schema.JSONSchema().Properties["project_key"].(map[string]interface{})
	if enum, _ := project["enum"].([]string); strings.Join(enum, ",") != "CRM,OPS" {
		t.Errorf("project_key enum = %v", project["enum"])
	}

	search, _ := d.Registry().Tool(ToolSearchIssues)
	maxResults := search.Schema.JSONSchema().Properties["max_results"].(map[string]interface{})
	if maxResults["default"] != 25 {
		t.Errorf("max_results default = %v, want 25", maxResults["default"])
	}
}

func TestPriorityField_Default(t *testing.T) {
	tests := []struct {
		priorities []string
		want       interface{}
	}{
		{domain.DefaultPriorities, "Medium"},
		{[]string{"P1", "P2"}, "P1"},
		{nil, nil},
	}
	for _, tt := range tests {
		if got := priorityField(tt.priorities).Default; got != tt.want {
			t.Errorf("priorityField(%v).Default = %v, want %v", tt.priorities, got, tt.want)
		}
	}
}
