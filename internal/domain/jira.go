package domain

import (
	"encoding/json"
	"fmt"
)

// FlexibleID is a type that can unmarshal both string and numeric IDs from JSON.
type FlexibleID string

// UnmarshalJSON implements custom unmarshaling to handle both string and numeric IDs.
func (f *FlexibleID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexibleID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexibleID(n.String())
		return nil
	}

	return fmt.Errorf("id must be a string or number")
}

// String returns the string representation of the ID.
func (f FlexibleID) String() string {
	return string(f)
}

// JiraIssue is the REST v2 issue representation. It never leaves the
// infrastructure layer; callers see Issue instead.
type JiraIssue struct {
	ID     FlexibleID `json:"id"`
	Key    string     `json:"key"`
	Fields JiraFields `json:"fields"`
}

// JiraFields contains the subset of issue fields the server surfaces.
type JiraFields struct {
	Summary     string    `json:"summary"`
	Description *string   `json:"description"`
	IssueType   IssueType `json:"issuetype"`
	Project     Project   `json:"project"`
	Status      *Status   `json:"status"`
	Assignee    *User     `json:"assignee"`
	Priority    *Priority `json:"priority"`
}

// IssueType represents a Jira issue type (e.g., Bug, Story, Task).
type IssueType struct {
	ID   FlexibleID `json:"id,omitempty"`
	Name string     `json:"name"`
}

// Project represents a Jira project.
type Project struct {
	ID   FlexibleID `json:"id,omitempty"`
	Key  string     `json:"key"`
	Name string     `json:"name,omitempty"`
}

// Status represents a Jira issue status (e.g., Open, In Progress, Done).
type Status struct {
	ID   FlexibleID `json:"id,omitempty"`
	Name string     `json:"name"`
}

// Priority represents a Jira issue priority.
type Priority struct {
	ID   FlexibleID `json:"id,omitempty"`
	Name string     `json:"name"`
}

// User represents a Jira user. Server instances identify users by Name,
// Cloud instances by AccountID.
type User struct {
	Name         string `json:"name,omitempty"`
	AccountID    string `json:"accountId,omitempty"`
	DisplayName  string `json:"displayName,omitempty"`
	EmailAddress string `json:"emailAddress,omitempty"`
	TimeZone     string `json:"timeZone,omitempty"`
}

// SearchResults represents the response of GET /rest/api/2/search.
type SearchResults struct {
	Issues     []JiraIssue `json:"issues"`
	Total      int         `json:"total"`
	StartAt    int         `json:"startAt"`
	MaxResults int         `json:"maxResults"`
}

// JiraIssueCreate represents the request body for creating a new Jira issue.
type JiraIssueCreate struct {
	Fields JiraFieldsCreate `json:"fields"`
}

// JiraFieldsCreate contains the fields sent when creating an issue.
type JiraFieldsCreate struct {
	Project     ProjectRef   `json:"project"`
	Summary     string       `json:"summary"`
	Description string       `json:"description,omitempty"`
	IssueType   IssueTypeRef `json:"issuetype"`
	Priority    *PriorityRef `json:"priority,omitempty"`
}

// IssueTypeRef is a reference to an issue type (used in create operations).
type IssueTypeRef struct {
	Name string `json:"name"`
}

// ProjectRef is a reference to a project (used in create operations).
type ProjectRef struct {
	Key string `json:"key"`
}

// PriorityRef is a reference to a priority (used in create operations).
type PriorityRef struct {
	Name string `json:"name"`
}

// CreatedIssue is the body Jira returns from POST /rest/api/2/issue.
type CreatedIssue struct {
	ID   FlexibleID `json:"id"`
	Key  string     `json:"key"`
	Self string     `json:"self"`
}

// JiraErrorBody is the error document Jira returns with 4xx/5xx statuses.
type JiraErrorBody struct {
	ErrorMessages []string          `json:"errorMessages"`
	Errors        map[string]string `json:"errors"`
}
