package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorKind
		ok   bool
	}{
		{NewConfigurationError("a", "b"), KindConfiguration, true},
		{&ValidationError{Field: "f", Reason: ReasonMissing}, KindValidation, true},
		{&NotFoundError{Entity: "issue", ID: "X-1"}, KindNotFound, true},
		{&PermissionError{Operation: "get issue"}, KindPermission, true},
		{&BackendUnavailableError{Reason: ReasonTransport}, KindBackendUnavailable, true},
		{&DispatchError{Reason: DispatchUnknownTool, Name: "t"}, KindDispatch, true},
		{fmt.Errorf("outer: %w", &NotFoundError{}), KindNotFound, true},
		{errors.New("plain"), "", false},
	}

	for _, tt := range tests {
		got, ok := KindOf(tt.err)
		if got != tt.want || ok != tt.ok {
			t.Errorf("KindOf(%v) = (%s, %v), want (%s, %v)", tt.err, got, ok, tt.want, tt.ok)
		}
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		err  error
		want []string
	}{
		{NewConfigurationError("jira base_url is required", "token is required"), []string{"invalid configuration", "base_url", "; token"}},
		{&ValidationError{Field: "max_results", Reason: ReasonTypeMismatch, Expected: "integer", Actual: "string"}, []string{`"max_results"`, "expected integer, got string"}},
		{&ValidationError{Field: "priority", Reason: ReasonInvalidEnum, Allowed: []string{"High", "Low"}}, []string{"allowed: High, Low"}},
		{&ValidationError{Reason: ReasonRejected, Detail: "summary: Field is required"}, []string{"invalid request: rejected", "summary: Field is required"}},
		{&NotFoundError{Entity: "issue", ID: "CRM-9"}, []string{"issue CRM-9 not found"}},
		{&PermissionError{Operation: "create issue", Detail: "no CREATE permission"}, []string{"permission denied for create issue", "no CREATE permission"}},
		{&BackendUnavailableError{Reason: ReasonBackendError, StatusCode: 502, Detail: "bad gateway"}, []string{"backend-error", "HTTP 502", "bad gateway"}},
		{&DispatchError{Reason: DispatchUnknownResource, Name: "resource://x"}, []string{"unknown resource: resource://x"}},
	}

	for _, tt := range tests {
		msg := tt.err.Error()
		for _, want := range tt.want {
			if !strings.Contains(msg, want) {
				t.Errorf("%T.Error() = %q, want it to contain %q", tt.err, msg, want)
			}
		}
	}
}

func TestBackendUnavailableUnwraps(t *testing.T) {
	err := &BackendUnavailableError{Reason: ReasonTimeout, Err: context.DeadlineExceeded}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("expected errors.Is to see the wrapped cause")
	}
}

func TestDetailsOmitEmptyFields(t *testing.T) {
	d := (&ValidationError{Field: "jql", Reason: ReasonMissing}).Details()
	if len(d) != 2 || d["field"] != "jql" || d["reason"] != ReasonMissing {
		t.Errorf("Details() = %v", d)
	}

	p := (&PermissionError{}).Details()
	if p == nil || len(p) != 0 {
		t.Errorf("Details() = %v, want empty non-nil map", p)
	}
}
