package domain

import (
	"context"
)

// Issue is the backend-agnostic representation of a tracked work item.
// Optional fields are nil when the backend reports nothing for them.
type Issue struct {
	Key         string  `json:"key"`
	Summary     string  `json:"summary"`
	Description *string `json:"description,omitempty"`
	Status      string  `json:"status"`
	Assignee    *string `json:"assignee,omitempty"`
	Priority    *string `json:"priority,omitempty"`
	IssueType   string  `json:"issueType"`
	ProjectKey  string  `json:"projectKey"`
}

// SearchResult is an ordered page of issues plus the true match count.
// Truncated is set when Total exceeds the number of returned issues.
type SearchResult struct {
	Issues     []Issue `json:"issues"`
	Total      int     `json:"total"`
	MaxResults int     `json:"maxResults"`
	Truncated  bool    `json:"truncated"`
}

// CurrentUser describes the authenticated identity as the backend sees it.
type CurrentUser struct {
	Identity     string  `json:"identity"`
	DisplayName  *string `json:"displayName,omitempty"`
	EmailAddress *string `json:"emailAddress,omitempty"`
	TimeZone     *string `json:"timeZone,omitempty"`
	AccountID    *string `json:"accountId,omitempty"`
}

// IssueCreate carries validated create arguments.
type IssueCreate struct {
	ProjectKey  string
	Summary     string
	Description string
	IssueType   string
	Priority    string
}

// IssueBackend is the abstract capability set of an issue tracker.
// Implementations return canonical values and classify every failure into
// one of the taxonomy kinds.
type IssueBackend interface {
	GetIssue(ctx context.Context, key string) (*Issue, error)
	CreateIssue(ctx context.Context, create *IssueCreate) (*Issue, error)
	SearchIssues(ctx context.Context, jql string, maxResults int) (*SearchResult, error)
	Myself(ctx context.Context) (*CurrentUser, error)
}

// Canonical converts the wire issue into an Issue.
func (j *JiraIssue) Canonical() Issue {
	issue := Issue{
		Key:         j.Key,
		Summary:     j.Fields.Summary,
		Description: nonEmpty(j.Fields.Description),
		IssueType:   j.Fields.IssueType.Name,
		ProjectKey:  j.Fields.Project.Key,
	}
	if j.Fields.Status != nil {
		issue.Status = j.Fields.Status.Name
	}
	if j.Fields.Assignee != nil && j.Fields.Assignee.DisplayName != "" {
		name := j.Fields.Assignee.DisplayName
		issue.Assignee = &name
	}
	if j.Fields.Priority != nil && j.Fields.Priority.Name != "" {
		name := j.Fields.Priority.Name
		issue.Priority = &name
	}
	return issue
}

// Canonical converts the search response, computing truncation from the
// backend's total rather than from the page length.
func (s *SearchResults) Canonical() SearchResult {
	issues := make([]Issue, 0, len(s.Issues))
	for i := range s.Issues {
		issues = append(issues, s.Issues[i].Canonical())
	}
	return SearchResult{
		Issues:     issues,
		Total:      s.Total,
		MaxResults: s.MaxResults,
		Truncated:  s.Total > len(issues),
	}
}

// Canonical converts the /myself payload. Server instances report Name,
// Cloud instances only AccountID; Identity takes whichever is present.
func (u *User) Canonical() CurrentUser {
	identity := u.Name
	if identity == "" {
		identity = u.AccountID
	}
	return CurrentUser{
		Identity:     identity,
		DisplayName:  optional(u.DisplayName),
		EmailAddress: optional(u.EmailAddress),
		TimeZone:     optional(u.TimeZone),
		AccountID:    optional(u.AccountID),
	}
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	v := *s
	return &v
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
