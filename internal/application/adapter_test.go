package application

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jira-mcp-server/internal/domain"
)

func TestNewAdapter_RequiresCredentialsAndBackend(t *testing.T) {
	_, err := NewAdapter(nil, nil, AdapterOptions{})

	var cfgErr *domain.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Len(t, cfgErr.Problems, 2)
}

func TestNewAdapter_CredentialsOnlyReachTheBackend(t *testing.T) {
	_, err := NewAdapter(nil, newFakeBackend(), AdapterOptions{})
	var cfgErr *domain.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, []string{"adapter requires a credential context"}, cfgErr.Problems)

	credsType := reflect.TypeOf((*domain.CredentialContext)(nil))
	adapterType := reflect.TypeOf(Adapter{})
	for i := 0; i < adapterType.NumField(); i++ {
		assert.NotEqual(t, credsType, adapterType.Field(i).Type, "field %s holds the credential context", adapterType.Field(i).Name)
	}
}

func TestNewAdapter_Defaults(t *testing.T) {
	adapter := newTestAdapter(t, newFakeBackend(), AdapterOptions{})

	assert.Equal(t, domain.DefaultMaxResults, adapter.MaxResults())
	assert.Equal(t, domain.DefaultTimeout, adapter.timeout)
}

func TestAdapter_GetIssue(t *testing.T) {
	backend := newFakeBackend()
	backend.seed(domain.Issue{Key: "CRM-1", Summary: "Login fails", ProjectKey: "CRM"})
	adapter := newTestAdapter(t, backend, AdapterOptions{})

	issue, err := adapter.GetIssue(context.Background(), " CRM-1 ")
	require.NoError(t, err)
	assert.Equal(t, "Login fails", issue.Summary)

	_, err = adapter.GetIssue(context.Background(), "CRM-9")
	kind, _ := domain.KindOf(err)
	assert.Equal(t, domain.KindNotFound, kind)

	_, err = adapter.GetIssue(context.Background(), "  ")
	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, domain.ReasonMissing, vErr.Reason)
	assert.EqualValues(t, 2, backend.getCalls.Load(), "blank key must not reach the backend")
}

func TestAdapter_CreateIssueOutsideAllowList(t *testing.T) {
	backend := newFakeBackend()
	adapter := newTestAdapter(t, backend, AdapterOptions{})

	_, err := adapter.CreateIssue(context.Background(), &domain.IssueCreate{ProjectKey: "HR", Summary: "s", IssueType: "Task"})

	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, domain.ReasonInvalidEnum, vErr.Reason)
	assert.Equal(t, []string{"CRM", "OPS"}, vErr.Allowed)
	assert.Zero(t, backend.createCalls.Load())
}

func TestAdapter_SearchIssuesClampsAndTruncates(t *testing.T) {
	backend := newFakeBackend()
	for _, key := range []string{"CRM-1", "CRM-2", "CRM-3", "CRM-4", "CRM-5"} {
		backend.seed(domain.Issue{Key: key, ProjectKey: "CRM"})
	}
	adapter := newTestAdapter(t, backend, AdapterOptions{MaxResults: 3})

	tests := []struct {
		name      string
		requested int
		wantMax   int
	}{
		{"zero selects the cap", 0, 3},
		{"negative selects the cap", -4, 3},
		{"above the cap is clamped", 500, 3},
		{"below the cap is honoured", 2, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := adapter.SearchIssues(context.Background(), "project = CRM", tt.requested)
			require.NoError(t, err)
			assert.EqualValues(t, tt.wantMax, backend.lastMax.Load())
			assert.Len(t, result.Issues, tt.wantMax)
			assert.Equal(t, 5, result.Total)
			assert.Equal(t, tt.wantMax, result.MaxResults)
			assert.True(t, result.Truncated)
		})
	}
}

func TestAdapter_SearchIssuesBlankQuery(t *testing.T) {
	backend := newFakeBackend()
	adapter := newTestAdapter(t, backend, AdapterOptions{})

	_, err := adapter.SearchIssues(context.Background(), "\t", 5)
	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "jql", vErr.Field)
	assert.Zero(t, backend.searchCalls.Load())
}

func TestAdapter_ListProjectKeysReturnsCopy(t *testing.T) {
	backend := newFakeBackend()
	adapter := newTestAdapter(t, backend, AdapterOptions{})

	keys := adapter.ListProjectKeys()
	keys[0] = "MUTATED"

	assert.Equal(t, []string{"CRM", "OPS"}, adapter.ListProjectKeys())
	assert.Zero(t, backend.totalCalls())
}

func TestAdapter_Timeout(t *testing.T) {
	backend := newFakeBackend()
	backend.delay = time.Second
	adapter := newTestAdapter(t, backend, AdapterOptions{Timeout: 20 * time.Millisecond})

	_, err := adapter.WhoAmI(context.Background())

	var bErr *domain.BackendUnavailableError
	require.ErrorAs(t, err, &bErr)
	assert.Equal(t, domain.ReasonTimeout, bErr.Reason)
}

func TestAdapter_CallerCancellation(t *testing.T) {
	backend := newFakeBackend()
	backend.delay = time.Second
	adapter := newTestAdapter(t, backend, AdapterOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := adapter.GetIssue(ctx, "CRM-1")
	var bErr *domain.BackendUnavailableError
	require.ErrorAs(t, err, &bErr)
	assert.Equal(t, domain.ReasonCancelled, bErr.Reason)
}

func TestNormalize(t *testing.T) {
	expired, cancel := context.WithTimeout(context.Background(), -time.Second)
	defer cancel()

	tests := []struct {
		name       string
		ctx        context.Context
		err        error
		wantKind   domain.ErrorKind
		wantReason string
	}{
		{"not found passes through", context.Background(), &domain.NotFoundError{Entity: "issue", ID: "X-1"}, domain.KindNotFound, ""},
		{"permission passes through", context.Background(), &domain.PermissionError{StatusCode: 403}, domain.KindPermission, ""},
		{"dispatch is not a backend kind", context.Background(), &domain.DispatchError{Reason: domain.DispatchUnknownTool}, domain.KindBackendUnavailable, domain.ReasonUnclassified},
		{"bare error", context.Background(), errors.New("boom"), domain.KindBackendUnavailable, domain.ReasonUnclassified},
		{"deadline", context.Background(), context.DeadlineExceeded, domain.KindBackendUnavailable, domain.ReasonTimeout},
		{"expired context", expired, errors.New("read: connection reset"), domain.KindBackendUnavailable, domain.ReasonTimeout},
		{"cancelled", context.Background(), context.Canceled, domain.KindBackendUnavailable, domain.ReasonCancelled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalize(tt.ctx, tt.err)
			kinded, ok := domain.AsKinded(got)
			require.True(t, ok)
			assert.Equal(t, tt.wantKind, kinded.Kind())
			if tt.wantReason != "" {
				assert.Equal(t, tt.wantReason, kinded.Details()["reason"])
			}
		})
	}
}
