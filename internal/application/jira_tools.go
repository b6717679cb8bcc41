package application

import (
	"context"

	"jira-mcp-server/internal/domain"
)

// Tool names exposed to MCP clients.
const (
	ToolGetIssue        = "get_jira_issue"
	ToolCreateIssue     = "create_jira_issue"
	ToolSearchIssues    = "search_jira_issues"
	ToolListProjectKeys = "list_jira_project_keys"
	ToolCurrentUser     = "get_jira_current_user"
)

// Resource URIs exposed to MCP clients.
const (
	ResourceProjectKeys = "resource://jira/project-keys"
	ResourceMe          = "resource://jira/me"
)

const (
	defaultIssueType = "Task"
	defaultPriority  = "Medium"
)

// JiraTools builds the tool descriptors backed by adapter. priorities is the
// configured priority allow-list.
func JiraTools(adapter *Adapter, priorities []string) []ToolDescriptor {
	return []ToolDescriptor{
		{
			Name:        ToolGetIssue,
			Description: "Fetch a Jira issue by key and return its summary, description, status, assignee, priority, type and project.",
			Schema: domain.Schema{Fields: []domain.Field{
				{Name: "issue_key", Type: domain.TypeString, Required: true, Description: "Issue key, e.g. CRM-42"},
			}},
			Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
				return adapter.GetIssue(ctx, stringArg(args, "issue_key"))
			},
		},
		{
			Name:        ToolCreateIssue,
			Description: "Create a Jira issue in one of the allowed projects.",
			Schema: domain.Schema{Fields: []domain.Field{
				{Name: "project_key", Type: domain.TypeEnum, Required: true, Allowed: adapter.ListProjectKeys(), Description: "Project to create the issue in"},
				{Name: "summary", Type: domain.TypeString, Required: true, Description: "One-line summary"},
				{Name: "description", Type: domain.TypeString, Description: "Issue body"},
				{Name: "issue_type", Type: domain.TypeString, Default: defaultIssueType, Description: "Issue type name"},
				priorityField(priorities),
			}},
			Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
				return adapter.CreateIssue(ctx, &domain.IssueCreate{
					ProjectKey:  stringArg(args, "project_key"),
					Summary:     stringArg(args, "summary"),
					Description: stringArg(args, "description"),
					IssueType:   stringArg(args, "issue_type"),
					Priority:    stringArg(args, "priority"),
				})
			},
		},
		{
			Name:        ToolSearchIssues,
			Description: "Search Jira issues with a JQL query. Results are capped; the response reports the total match count and whether it was truncated.",
			Schema: domain.Schema{Fields: []domain.Field{
				{Name: "jql", Type: domain.TypeString, Required: true, Description: "JQL query, passed to Jira verbatim"},
				{Name: "max_results", Type: domain.TypeInteger, Default: adapter.MaxResults(), Min: domain.IntPtr(1), Description: "Maximum number of issues to return"},
			}},
			Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
				return adapter.SearchIssues(ctx, stringArg(args, "jql"), intArg(args, "max_results"))
			},
		},
		{
			Name:        ToolListProjectKeys,
			Description: "List the Jira project keys this server may create issues in.",
			Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
				return adapter.ListProjectKeys(), nil
			},
		},
		{
			Name:        ToolCurrentUser,
			Description: "Return the Jira user the server authenticates as.",
			Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
				return adapter.WhoAmI(ctx)
			},
		},
	}
}

// JiraResources builds the resource descriptors backed by adapter.
func JiraResources(adapter *Adapter) []ResourceDescriptor {
	return []ResourceDescriptor{
		{
			URI:         ResourceProjectKeys,
			Name:        "Jira project keys",
			Description: "Project keys issues may be created in",
			MimeType:    "application/json",
			Producer: func(ctx context.Context) (interface{}, error) {
				return adapter.ListProjectKeys(), nil
			},
		},
		{
			URI:         ResourceMe,
			Name:        "Jira current user",
			Description: "The Jira user the server authenticates as",
			MimeType:    "application/json",
			Producer: func(ctx context.Context) (interface{}, error) {
				return adapter.WhoAmI(ctx)
			},
		},
	}
}

// priorityField defaults to Medium when it is configured, otherwise to the
// first configured priority.
func priorityField(priorities []string) domain.Field {
	field := domain.Field{
		Name:        "priority",
		Type:        domain.TypeEnum,
		Allowed:     append([]string(nil), priorities...),
		Description: "Priority name",
	}
	for _, p := range priorities {
		if p == defaultPriority {
			field.Default = defaultPriority
			return field
		}
	}
	if len(priorities) > 0 {
		field.Default = priorities[0]
	}
	return field
}

// stringArg reads a validated string argument; absent optionals yield "".
func stringArg(args map[string]interface{}, name string) string {
	s, _ := args[name].(string)
	return s
}

// intArg reads a validated integer argument; absent optionals yield 0.
func intArg(args map[string]interface{}, name string) int {
	n, _ := args[name].(int)
	return n
}
