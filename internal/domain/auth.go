package domain

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"

	"golang.org/x/time/rate"
)

// ClientOptions tunes the authenticated HTTP client.
type ClientOptions struct {
	// RequestsPerSecond caps outbound calls; zero disables limiting.
	RequestsPerSecond float64
	Burst             int
	// Base is the underlying transport; http.DefaultTransport when nil.
	Base http.RoundTripper
}

// NewAuthenticatedClient returns an HTTP client that signs every request
// with the credential context. The client holds no per-call state and is
// safe for concurrent use.
func NewAuthenticatedClient(creds *CredentialContext, opts ClientOptions) *http.Client {
	base := opts.Base
	if base == nil {
		base = http.DefaultTransport
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	return &http.Client{
		Transport: &authenticatedTransport{
			base:        base,
			credentials: creds,
			limiter:     limiter,
		},
	}
}

// authenticatedTransport is an http.RoundTripper that adds authentication headers.
type authenticatedTransport struct {
	base        http.RoundTripper
	credentials *CredentialContext
	limiter     *rate.Limiter
}

// RoundTrip waits for the rate limiter under the request's context and then
// sends a clone of the request carrying the Authorization header.
func (t *authenticatedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(req.Context()); err != nil {
			// Wait also fails early when the next token would arrive after
			// the deadline; that is a timeout even though ctx is still live.
			if ctxErr := req.Context().Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if _, ok := req.Context().Deadline(); ok {
				return nil, fmt.Errorf("%w: rate limit: %v", context.DeadlineExceeded, err)
			}
			return nil, err
		}
	}

	clonedReq := req.Clone(req.Context())

	switch t.credentials.authType {
	case BasicAuth:
		auth := t.credentials.identity + ":" + t.credentials.secret
		clonedReq.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(auth)))
	case TokenAuth:
		clonedReq.Header.Set("Authorization", "Bearer "+t.credentials.secret)
	}

	return t.base.RoundTrip(clonedReq)
}
