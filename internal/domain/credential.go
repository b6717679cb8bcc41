package domain

import (
	"fmt"
	"net/url"
	"strings"
)

// AuthType defines supported authentication methods.
type AuthType int

const (
	// BasicAuth sends identity:secret, the form Jira Cloud uses for API tokens.
	BasicAuth AuthType = iota
	// TokenAuth sends the secret as a Bearer token (Jira Server/Data Center PAT).
	TokenAuth
)

// String returns the string representation of AuthType.
func (a AuthType) String() string {
	switch a {
	case BasicAuth:
		return "basic"
	case TokenAuth:
		return "token"
	default:
		return "unknown"
	}
}

// ParseAuthType converts a string to AuthType.
func ParseAuthType(s string) (AuthType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "basic":
		return BasicAuth, nil
	case "token", "bearer":
		return TokenAuth, nil
	default:
		return BasicAuth, fmt.Errorf("unknown auth type %q: must be 'basic' or 'token'", s)
	}
}

// CredentialContext holds the resolved backend endpoint and identity.
// It is built once at startup and never mutated; none of its methods
// reveal the identity or the secret.
type CredentialContext struct {
	endpoint *url.URL
	identity string
	secret   string
	authType AuthType
}

// NewCredentialContext validates its inputs and returns an immutable context.
// It fails with a *ConfigurationError when identity or secret is empty or the
// endpoint is not an absolute http(s) URL.
func NewCredentialContext(endpoint, identity, secret string, authType AuthType) (*CredentialContext, error) {
	var problems []string

	u, err := parseEndpoint(endpoint)
	if err != nil {
		problems = append(problems, err.Error())
	}
	if strings.TrimSpace(identity) == "" {
		problems = append(problems, "identity is required")
	}
	if strings.TrimSpace(secret) == "" {
		problems = append(problems, "secret token is required")
	}
	if authType != BasicAuth && authType != TokenAuth {
		problems = append(problems, fmt.Sprintf("invalid auth type %d", authType))
	}
	if len(problems) > 0 {
		return nil, NewConfigurationError(problems...)
	}

	return &CredentialContext{
		endpoint: u,
		identity: identity,
		secret:   secret,
		authType: authType,
	}, nil
}

func parseEndpoint(raw string) (*url.URL, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("endpoint URL is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("endpoint URL is invalid: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("endpoint URL must use http or https scheme")
	}
	if u.Host == "" {
		return nil, fmt.Errorf("endpoint URL must include a host")
	}
	u.Path = strings.TrimRight(u.Path, "/")
	return u, nil
}

// Endpoint returns a copy of the backend base URL.
func (c *CredentialContext) Endpoint() *url.URL {
	u := *c.endpoint
	return &u
}

// BaseURL returns the backend base URL without a trailing slash.
func (c *CredentialContext) BaseURL() string {
	return c.endpoint.String()
}

// AuthType returns the configured authentication scheme.
func (c *CredentialContext) AuthType() AuthType {
	return c.authType
}

// String keeps the context out of log lines and error messages.
func (c *CredentialContext) String() string {
	return "CredentialContext{[redacted]}"
}

// GoString applies the same redaction to %#v.
func (c *CredentialContext) GoString() string {
	return c.String()
}

// MarshalJSON never serializes identity or secret.
func (c *CredentialContext) MarshalJSON() ([]byte, error) {
	return []byte(`"[redacted]"`), nil
}
