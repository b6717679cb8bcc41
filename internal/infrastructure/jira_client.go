package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"jira-mcp-server/internal/domain"
)

// searchFields is the field list requested from /search; it matches what
// Issue surfaces.
const searchFields = "summary,description,status,assignee,priority,issuetype,project"

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// JiraClient talks to the Jira REST API v2. It implements domain.IssueBackend
// and classifies every failure into the error taxonomy.
type JiraClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewJiraClient creates a new Jira API client.
// The baseURL should be the root URL of the Jira instance (e.g., "https://jira.example.com").
// The httpClient should be an authenticated client from domain.NewAuthenticatedClient.
func NewJiraClient(baseURL string, httpClient *http.Client) *JiraClient {
	return &JiraClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// BaseURL returns the configured base URL for the Jira instance.
func (c *JiraClient) BaseURL() string {
	return c.baseURL
}

// GetIssue retrieves a Jira issue by its key (e.g., "TEST-123").
func (c *JiraClient) GetIssue(ctx context.Context, issueKey string) (*domain.Issue, error) {
	endpoint := fmt.Sprintf("%s/rest/api/2/issue/%s", c.baseURL, url.PathEscape(issueKey))

	var issue domain.JiraIssue
	if err := c.do(ctx, opGetIssue, http.MethodGet, endpoint, nil, http.StatusOK, issueKey, &issue); err != nil {
		return nil, err
	}

	result := issue.Canonical()
	return &result, nil
}

// CreateIssue creates a new Jira issue. Jira answers with the assigned key
// only, so the returned Issue echoes the submitted fields.
func (c *JiraClient) CreateIssue(ctx context.Context, create *domain.IssueCreate) (*domain.Issue, error) {
	endpoint := fmt.Sprintf("%s/rest/api/2/issue", c.baseURL)

	payload := domain.JiraIssueCreate{
		Fields: domain.JiraFieldsCreate{
			Project:     domain.ProjectRef{Key: create.ProjectKey},
			Summary:     create.Summary,
			Description: create.Description,
			IssueType:   domain.IssueTypeRef{Name: create.IssueType},
		},
	}
	if create.Priority != "" {
		payload.Fields.Priority = &domain.PriorityRef{Name: create.Priority}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal issue: %w", err)
	}

	var created domain.CreatedIssue
	if err := c.do(ctx, opCreateIssue, http.MethodPost, endpoint, body, http.StatusCreated, create.ProjectKey, &created); err != nil {
		return nil, err
	}
	if created.Key == "" {
		return nil, malformed(opCreateIssue, fmt.Errorf("response carries no issue key"))
	}

	issue := &domain.Issue{
		Key:        created.Key,
		Summary:    create.Summary,
		IssueType:  create.IssueType,
		ProjectKey: create.ProjectKey,
	}
	if create.Description != "" {
		description := create.Description
		issue.Description = &description
	}
	if create.Priority != "" {
		priority := create.Priority
		issue.Priority = &priority
	}
	return issue, nil
}

// SearchIssues runs jql verbatim and returns at most maxResults issues.
func (c *JiraClient) SearchIssues(ctx context.Context, jql string, maxResults int) (*domain.SearchResult, error) {
	params := url.Values{}
	params.Set("jql", jql)
	params.Set("maxResults", strconv.Itoa(maxResults))
	params.Set("fields", searchFields)

	endpoint := fmt.Sprintf("%s/rest/api/2/search?%s", c.baseURL, params.Encode())

	var results domain.SearchResults
	if err := c.do(ctx, opSearch, http.MethodGet, endpoint, nil, http.StatusOK, "", &results); err != nil {
		return nil, err
	}

	// Some servers ignore maxResults; never hand back more than was asked.
	if maxResults > 0 && len(results.Issues) > maxResults {
		results.Issues = results.Issues[:maxResults]
	}
	if results.MaxResults == 0 {
		results.MaxResults = maxResults
	}

	canonical := results.Canonical()
	return &canonical, nil
}

// Myself returns the user the credentials authenticate as.
func (c *JiraClient) Myself(ctx context.Context) (*domain.CurrentUser, error) {
	endpoint := fmt.Sprintf("%s/rest/api/2/myself", c.baseURL)

	var user domain.User
	if err := c.do(ctx, opMyself, http.MethodGet, endpoint, nil, http.StatusOK, "", &user); err != nil {
		return nil, err
	}

	current := user.Canonical()
	return &current, nil
}

// do executes one request and decodes a successful body into out. Every
// failure leaves as a classified error.
func (c *JiraClient) do(ctx context.Context, op operation, method, endpoint string, body []byte, want int, id string, out interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return &domain.BackendUnavailableError{Reason: domain.ReasonTransport, Detail: fmt.Sprintf("%s: failed to create request", op), Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransport(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want && !(want == http.StatusCreated && resp.StatusCode == http.StatusOK) {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return classifyStatus(op, resp.StatusCode, errBody, id)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		// A context ending mid-body surfaces as a read error.
		if ctx.Err() != nil {
			return classifyTransport(op, ctx.Err())
		}
		return malformed(op, err)
	}

	return nil
}
