package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func strPtr(s string) *string { return &s }

func TestJiraIssue_Canonical(t *testing.T) {
	payload := `{
		"id": 10001,
		"key": "CRM-42",
		"fields": {
			"summary": "Login fails",
			"description": "Steps to reproduce",
			"issuetype": {"id": "1", "name": "Bug"},
			"project": {"id": "10000", "key": "CRM", "name": "CRM"},
			"status": {"name": "In Progress"},
			"assignee": {"name": "jsmith", "displayName": "John Smith"},
			"priority": {"name": "High"},
			"created": "2024-01-01T10:00:00.000+0000"
		}
	}`

	var wire JiraIssue
	if err := json.Unmarshal([]byte(payload), &wire); err != nil {
		t.Fatalf("Failed to unmarshal JiraIssue: %v", err)
	}
	if wire.ID != "10001" {
		t.Errorf("numeric id decoded as %q", wire.ID)
	}

	want := Issue{
		Key:         "CRM-42",
		Summary:     "Login fails",
		Description: strPtr("Steps to reproduce"),
		Status:      "In Progress",
		Assignee:    strPtr("John Smith"),
		Priority:    strPtr("High"),
		IssueType:   "Bug",
		ProjectKey:  "CRM",
	}
	if diff := cmp.Diff(want, wire.Canonical()); diff != "" {
		t.Errorf("Canonical() mismatch (-want +got):\n%s", diff)
	}
}

func TestJiraIssue_CanonicalAbsentFields(t *testing.T) {
	payload := `{"key":"OPS-1","fields":{"summary":"s","description":null,"assignee":null,"priority":null,
		"issuetype":{"name":"Task"},"project":{"key":"OPS"},"status":{"name":"Open"}}}`

	var wire JiraIssue
	if err := json.Unmarshal([]byte(payload), &wire); err != nil {
		t.Fatalf("Failed to unmarshal JiraIssue: %v", err)
	}
	issue := wire.Canonical()
	if issue.Description != nil || issue.Assignee != nil || issue.Priority != nil {
		t.Errorf("absent optionals should stay nil: %+v", issue)
	}

	data, err := json.Marshal(issue)
	if err != nil {
		t.Fatalf("Failed to marshal Issue: %v", err)
	}
	want := `{"key":"OPS-1","summary":"s","status":"Open","issueType":"Task","projectKey":"OPS"}`
	if string(data) != want {
		t.Errorf("json = %s, want %s", data, want)
	}
}

func TestSearchResults_CanonicalTruncation(t *testing.T) {
	tests := []struct {
		name          string
		issues        int
		total         int
		wantTruncated bool
	}{
		{"all returned", 3, 3, false},
		{"more matches than returned", 2, 40, true},
		{"empty", 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wire := SearchResults{Total: tt.total, MaxResults: 2}
			for i := 0; i < tt.issues; i++ {
				wire.Issues = append(wire.Issues, JiraIssue{Key: "CRM-1"})
			}
			got := wire.Canonical()
			if got.Truncated != tt.wantTruncated {
				t.Errorf("Truncated = %v, want %v", got.Truncated, tt.wantTruncated)
			}
			if got.Total != tt.total || len(got.Issues) != tt.issues {
				t.Errorf("got total %d with %d issues", got.Total, len(got.Issues))
			}
			if got.Issues == nil {
				t.Error("Issues should be an empty slice, not nil")
			}
		})
	}
}

func TestUser_Canonical(t *testing.T) {
	server := User{Name: "jsmith", DisplayName: "John Smith", EmailAddress: "j@example.com"}
	got := server.Canonical()
	if got.Identity != "jsmith" || got.AccountID != nil || *got.DisplayName != "John Smith" {
		t.Errorf("server user = %+v", got)
	}

	cloud := User{AccountID: "5b10ac8d82e05b22cc7d4ef5", TimeZone: "Europe/Berlin"}
	got = cloud.Canonical()
	if got.Identity != "5b10ac8d82e05b22cc7d4ef5" || got.TimeZone == nil || got.EmailAddress != nil {
		t.Errorf("cloud user = %+v", got)
	}
}

func TestFlexibleID_RejectsObjects(t *testing.T) {
	var id FlexibleID
	if err := json.Unmarshal([]byte(`{"x":1}`), &id); err == nil {
		t.Error("expected error for object id")
	}
}
