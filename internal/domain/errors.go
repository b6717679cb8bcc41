package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind names one class of the error taxonomy.
// Every failure that reaches a caller is rendered with exactly one kind.
type ErrorKind string

const (
	KindConfiguration      ErrorKind = "configuration"
	KindValidation         ErrorKind = "validation"
	KindNotFound           ErrorKind = "not-found"
	KindPermission         ErrorKind = "permission"
	KindBackendUnavailable ErrorKind = "backend-unavailable"
	KindDispatch           ErrorKind = "dispatch"
)

// KindedError is implemented by every error of the taxonomy.
type KindedError interface {
	error
	Kind() ErrorKind
	// Details returns the structured fields rendered alongside the message.
	Details() map[string]interface{}
}

// KindOf resolves the taxonomy kind of err, looking through wrapped errors.
func KindOf(err error) (ErrorKind, bool) {
	var kinded KindedError
	if errors.As(err, &kinded) {
		return kinded.Kind(), true
	}
	return "", false
}

// AsKinded returns the first KindedError in err's chain, if any.
func AsKinded(err error) (KindedError, bool) {
	var kinded KindedError
	if errors.As(err, &kinded) {
		return kinded, true
	}
	return nil, false
}

// ConfigurationError is fatal and only produced at startup.
type ConfigurationError struct {
	Problems []string
}

func NewConfigurationError(problems ...string) *ConfigurationError {
	return &ConfigurationError{Problems: problems}
}

func (e *ConfigurationError) Error() string {
	if len(e.Problems) == 0 {
		return "invalid configuration"
	}
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

func (e *ConfigurationError) Kind() ErrorKind { return KindConfiguration }

func (e *ConfigurationError) Details() map[string]interface{} {
	return map[string]interface{}{"problems": e.Problems}
}

// Validation reasons.
const (
	ReasonMissing      = "missing"
	ReasonTypeMismatch = "type-mismatch"
	ReasonInvalidEnum  = "invalid-enum"
	ReasonOutOfRange   = "out-of-range"
	ReasonRejected     = "rejected"
)

// ValidationError reports a defect in caller input, either detected locally
// by the schema validator or reported by the backend.
type ValidationError struct {
	Field    string
	Reason   string
	Expected string
	Actual   string
	Allowed  []string
	Detail   string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	if e.Field != "" {
		fmt.Fprintf(&b, "invalid argument %q: %s", e.Field, e.Reason)
	} else {
		fmt.Fprintf(&b, "invalid request: %s", e.Reason)
	}
	switch e.Reason {
	case ReasonTypeMismatch:
		fmt.Fprintf(&b, " (expected %s, got %s)", e.Expected, e.Actual)
	case ReasonInvalidEnum:
		fmt.Fprintf(&b, " (allowed: %s)", strings.Join(e.Allowed, ", "))
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	return b.String()
}

func (e *ValidationError) Kind() ErrorKind { return KindValidation }

func (e *ValidationError) Details() map[string]interface{} {
	d := map[string]interface{}{"reason": e.Reason}
	if e.Field != "" {
		d["field"] = e.Field
	}
	if e.Expected != "" {
		d["expected"] = e.Expected
	}
	if e.Actual != "" {
		d["actual"] = e.Actual
	}
	if len(e.Allowed) > 0 {
		d["allowed"] = e.Allowed
	}
	if e.Detail != "" {
		d["detail"] = e.Detail
	}
	return d
}

// NotFoundError reports that the target entity does not exist.
type NotFoundError struct {
	Entity string
	ID     string
	Detail string
}

func (e *NotFoundError) Error() string {
	msg := fmt.Sprintf("%s %s not found", e.Entity, e.ID)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *NotFoundError) Kind() ErrorKind { return KindNotFound }

func (e *NotFoundError) Details() map[string]interface{} {
	d := map[string]interface{}{"entity": e.Entity, "id": e.ID}
	if e.Detail != "" {
		d["detail"] = e.Detail
	}
	return d
}

// PermissionError reports that the configured identity lacks rights.
type PermissionError struct {
	Operation  string
	StatusCode int
	Detail     string
}

func (e *PermissionError) Error() string {
	msg := "permission denied"
	if e.Operation != "" {
		msg += " for " + e.Operation
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *PermissionError) Kind() ErrorKind { return KindPermission }

func (e *PermissionError) Details() map[string]interface{} {
	d := map[string]interface{}{}
	if e.Operation != "" {
		d["operation"] = e.Operation
	}
	if e.StatusCode != 0 {
		d["statusCode"] = e.StatusCode
	}
	if e.Detail != "" {
		d["detail"] = e.Detail
	}
	return d
}

// BackendUnavailable reasons.
const (
	ReasonTimeout           = "timeout"
	ReasonCancelled         = "cancelled"
	ReasonTransport         = "transport"
	ReasonRateLimited       = "rate-limited"
	ReasonBackendError      = "backend-error"
	ReasonQueryRejected     = "query-rejected"
	ReasonMalformedResponse = "malformed-response"
	ReasonUnclassified      = "unclassified"
	ReasonInternal          = "internal"
)

// BackendUnavailableError covers transport failures, timeouts and
// backend-side faults. It is potentially transient.
type BackendUnavailableError struct {
	Reason     string
	StatusCode int
	Detail     string
	Err        error
}

func (e *BackendUnavailableError) Error() string {
	msg := "backend unavailable (" + e.Reason + ")"
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" HTTP %d", e.StatusCode)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *BackendUnavailableError) Unwrap() error { return e.Err }

func (e *BackendUnavailableError) Kind() ErrorKind { return KindBackendUnavailable }

func (e *BackendUnavailableError) Details() map[string]interface{} {
	d := map[string]interface{}{"reason": e.Reason}
	if e.StatusCode != 0 {
		d["statusCode"] = e.StatusCode
	}
	if e.Detail != "" {
		d["detail"] = e.Detail
	}
	return d
}

// Dispatch error kinds.
const (
	DispatchUnknownTool     = "unknown-tool"
	DispatchUnknownResource = "unknown-resource"
)

// DispatchError reports protocol-level misuse such as an unknown tool name.
type DispatchError struct {
	Reason string
	Name   string
}

func (e *DispatchError) Error() string {
	switch e.Reason {
	case DispatchUnknownTool:
		return "unknown tool: " + e.Name
	case DispatchUnknownResource:
		return "unknown resource: " + e.Name
	default:
		return e.Reason + ": " + e.Name
	}
}

func (e *DispatchError) Kind() ErrorKind { return KindDispatch }

func (e *DispatchError) Details() map[string]interface{} {
	return map[string]interface{}{"reason": e.Reason, "name": e.Name}
}
