package transport

import (
	"net/http"
)

// SessionHeader carries the PLM session token.
const SessionHeader = "arena_session_id"

// Authenticator applies authentication to HTTP requests.
type Authenticator interface {
	Apply(req *http.Request)
	Method() string
}

// NoAuth implements no authentication.
type NoAuth struct{}

// Apply implements the Authenticator interface for NoAuth.
func (a *NoAuth) Apply(_ *http.Request) {}

// Method implements Authenticator.
func (a *NoAuth) Method() string { return "none" }

// BearerAuth implements Bearer token authentication.
type BearerAuth struct {
	Token string
}

// Apply implements the Authenticator interface for BearerAuth.
func (a *BearerAuth) Apply(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+a.Token)
}

// Method implements Authenticator.
func (a *BearerAuth) Method() string { return "bearer" }

// HeaderAuth implements custom header authentication.
type HeaderAuth struct {
	Header string
	Value  string
}

// Apply implements the Authenticator interface for HeaderAuth.
func (a *HeaderAuth) Apply(req *http.Request) {
	req.Header.Set(a.Header, a.Value)
}

// Method implements Authenticator.
func (a *HeaderAuth) Method() string { return "header" }

// Credentials are the configured PLM secrets.
type Credentials struct {
	APIKey    string
	SessionID string
}

// NewAuthenticator picks the authenticator for creds. A session ID takes
// precedence over an API key.
func NewAuthenticator(creds Credentials) Authenticator {
	switch {
	case creds.SessionID != "":
		return &HeaderAuth{Header: SessionHeader, Value: creds.SessionID}
	case creds.APIKey != "":
		return &BearerAuth{Token: creds.APIKey}
	default:
		return &NoAuth{}
	}
}
