package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"jira-mcp-server/internal/domain"
)

// AdapterOptions carries the locally maintained settings the adapter
// enforces around backend calls.
type AdapterOptions struct {
	ProjectKeys []string
	Timeout     time.Duration
	MaxResults  int
}

// Adapter maps validated tool arguments onto exactly one backend call each.
// It holds no mutable state and is safe for concurrent use.
type Adapter struct {
	backend     domain.IssueBackend
	projectKeys []string
	timeout     time.Duration
	maxResults  int
}

// NewAdapter binds a backend to the credential context it authenticates
// with. Both are required; the context is checked here and then only the
// backend's authenticated client carries it.
func NewAdapter(creds *domain.CredentialContext, backend domain.IssueBackend, opts AdapterOptions) (*Adapter, error) {
	var problems []string
	if creds == nil {
		problems = append(problems, "adapter requires a credential context")
	}
	if backend == nil {
		problems = append(problems, "adapter requires a backend")
	}
	if len(problems) > 0 {
		return nil, domain.NewConfigurationError(problems...)
	}

	if opts.Timeout <= 0 {
		opts.Timeout = domain.DefaultTimeout
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = domain.DefaultMaxResults
	}

	return &Adapter{
		backend:     backend,
		projectKeys: append([]string(nil), opts.ProjectKeys...),
		timeout:     opts.Timeout,
		maxResults:  opts.MaxResults,
	}, nil
}

// MaxResults returns the search result cap.
func (a *Adapter) MaxResults() int {
	return a.maxResults
}

// GetIssue fetches one issue by key.
func (a *Adapter) GetIssue(ctx context.Context, key string) (*domain.Issue, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, &domain.ValidationError{Field: "issue_key", Reason: domain.ReasonMissing}
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	issue, err := a.backend.GetIssue(ctx, key)
	if err != nil {
		return nil, normalize(ctx, err)
	}
	return issue, nil
}

// CreateIssue creates an issue in an allow-listed project.
func (a *Adapter) CreateIssue(ctx context.Context, create *domain.IssueCreate) (*domain.Issue, error) {
	if !a.allowed(create.ProjectKey) {
		return nil, &domain.ValidationError{
			Field:   "project_key",
			Reason:  domain.ReasonInvalidEnum,
			Actual:  create.ProjectKey,
			Allowed: a.ListProjectKeys(),
		}
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	issue, err := a.backend.CreateIssue(ctx, create)
	if err != nil {
		return nil, normalize(ctx, err)
	}
	return issue, nil
}

// SearchIssues runs jql verbatim. maxResults <= 0 selects the cap; larger
// values are clamped to it.
func (a *Adapter) SearchIssues(ctx context.Context, jql string, maxResults int) (*domain.SearchResult, error) {
	if strings.TrimSpace(jql) == "" {
		return nil, &domain.ValidationError{Field: "jql", Reason: domain.ReasonMissing}
	}
	if maxResults <= 0 || maxResults > a.maxResults {
		maxResults = a.maxResults
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	result, err := a.backend.SearchIssues(ctx, jql, maxResults)
	if err != nil {
		return nil, normalize(ctx, err)
	}
	if len(result.Issues) > maxResults {
		result.Issues = result.Issues[:maxResults]
	}
	result.MaxResults = maxResults
	result.Truncated = result.Total > len(result.Issues)
	return result, nil
}

// ListProjectKeys returns a copy of the configured allow-list. It never
// calls the backend.
func (a *Adapter) ListProjectKeys() []string {
	return append([]string(nil), a.projectKeys...)
}

// WhoAmI reports the identity the credential context authenticates as.
func (a *Adapter) WhoAmI(ctx context.Context) (*domain.CurrentUser, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	user, err := a.backend.Myself(ctx)
	if err != nil {
		return nil, normalize(ctx, err)
	}
	return user, nil
}

func (a *Adapter) allowed(projectKey string) bool {
	for _, key := range a.projectKeys {
		if key == projectKey {
			return true
		}
	}
	return false
}

// normalize guarantees a backend failure leaves as one of the four
// backend-facing kinds.
func normalize(ctx context.Context, err error) error {
	if kind, ok := domain.KindOf(err); ok {
		switch kind {
		case domain.KindNotFound, domain.KindPermission, domain.KindValidation, domain.KindBackendUnavailable:
			return err
		}
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return &domain.BackendUnavailableError{Reason: domain.ReasonTimeout, Detail: err.Error(), Err: err}
	case errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled):
		return &domain.BackendUnavailableError{Reason: domain.ReasonCancelled, Detail: err.Error(), Err: err}
	}
	return &domain.BackendUnavailableError{Reason: domain.ReasonUnclassified, Detail: err.Error(), Err: err}
}
