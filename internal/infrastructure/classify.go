package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"jira-mcp-server/internal/domain"
)

// operation names the backend call being classified. Status handling differs
// per operation (a 400 from search is a query problem, not an input problem).
type operation string

const (
	opGetIssue    operation = "get issue"
	opCreateIssue operation = "create issue"
	opSearch      operation = "search issues"
	opMyself      operation = "get current user"
)

// maxDetailLength bounds the backend diagnostic copied into error details.
const maxDetailLength = 512

// classifyStatus maps a non-success HTTP status onto the error taxonomy.
// id is the entity identifier for not-found reporting, if any.
func classifyStatus(op operation, status int, body []byte, id string) error {
	detail := condenseErrorBody(body)

	switch {
	case status == http.StatusNotFound && (op == opGetIssue || op == opCreateIssue):
		entity := "issue"
		if op == opCreateIssue {
			entity = "project"
		}
		return &domain.NotFoundError{Entity: entity, ID: id, Detail: detail}
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &domain.PermissionError{Operation: string(op), StatusCode: status, Detail: detail}
	case status == http.StatusBadRequest && op == opSearch:
		return &domain.BackendUnavailableError{Reason: domain.ReasonQueryRejected, StatusCode: status, Detail: detail}
	case status == http.StatusBadRequest:
		return &domain.ValidationError{Field: rejectedField(body), Reason: domain.ReasonRejected, Detail: detail}
	case status == http.StatusTooManyRequests:
		return &domain.BackendUnavailableError{Reason: domain.ReasonRateLimited, StatusCode: status, Detail: detail}
	default:
		return &domain.BackendUnavailableError{Reason: domain.ReasonBackendError, StatusCode: status, Detail: detail}
	}
}

// classifyTransport maps a failure to obtain any HTTP response.
func classifyTransport(op operation, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &domain.BackendUnavailableError{Reason: domain.ReasonTimeout, Detail: string(op) + " timed out", Err: err}
	case errors.Is(err, context.Canceled):
		return &domain.BackendUnavailableError{Reason: domain.ReasonCancelled, Detail: string(op) + " cancelled", Err: err}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return &domain.BackendUnavailableError{Reason: domain.ReasonTimeout, Detail: string(op) + " timed out", Err: err}
	}

	return &domain.BackendUnavailableError{
		Reason: domain.ReasonTransport,
		Detail: fmt.Sprintf("%s: %s", op, stripURL(err)),
		Err:    err,
	}
}

// malformed reports a success status whose body could not be decoded.
func malformed(op operation, err error) error {
	return &domain.BackendUnavailableError{
		Reason: domain.ReasonMalformedResponse,
		Detail: fmt.Sprintf("%s: %v", op, err),
		Err:    err,
	}
}

// condenseErrorBody turns Jira's {"errorMessages":[...],"errors":{...}}
// document into one line. Non-JSON bodies are trimmed and truncated.
func condenseErrorBody(body []byte) string {
	var doc domain.JiraErrorBody
	if err := json.Unmarshal(body, &doc); err == nil && (len(doc.ErrorMessages) > 0 || len(doc.Errors) > 0) {
		parts := make([]string, 0, len(doc.ErrorMessages)+len(doc.Errors))
		parts = append(parts, doc.ErrorMessages...)

		fields := make([]string, 0, len(doc.Errors))
		for field := range doc.Errors {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		for _, field := range fields {
			parts = append(parts, field+": "+doc.Errors[field])
		}
		return truncate(strings.Join(parts, "; "))
	}

	return truncate(strings.TrimSpace(string(body)))
}

// rejectedField names the offending field when Jira reports exactly one.
func rejectedField(body []byte) string {
	var doc domain.JiraErrorBody
	if err := json.Unmarshal(body, &doc); err != nil || len(doc.Errors) != 1 {
		return ""
	}
	for field := range doc.Errors {
		return field
	}
	return ""
}

func truncate(s string) string {
	if len(s) <= maxDetailLength {
		return s
	}
	return s[:maxDetailLength] + "..."
}

// stripURL drops the request URL from transport errors; it may carry the
// JQL query string.
func stripURL(err error) string {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err.Error()
	}
	return err.Error()
}
