// Package transport is the authenticated JSON HTTP client used to talk to
// the PLM REST API.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/agentstation/bomsync/pkg/constants"
	"github.com/agentstation/bomsync/pkg/errors"
	"github.com/agentstation/bomsync/pkg/logging"
)

// DefaultHTTPTimeout is the default timeout for HTTP requests.
var DefaultHTTPTimeout = constants.DefaultHTTPTimeout

// Client provides HTTP client functionality with authentication.
type Client struct {
	http    *http.Client
	auth    Authenticator
	baseURL *url.URL
	service string
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithService names the remote service in errors.
func WithService(name string) Option {
	return func(c *Client) {
		c.service = name
	}
}

// New creates a new transport client rooted at baseURL.
func New(baseURL string, auth Authenticator, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.NewConfigError("transport", "invalid base URL "+baseURL, err)
	}
	if auth == nil {
		auth = &NoAuth{}
	}
	c := &Client{
		http:    &http.Client{Timeout: DefaultHTTPTimeout},
		auth:    auth,
		baseURL: u,
		service: "plm",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// URL resolves path against the base URL.
func (c *Client) URL(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// Do sends a JSON request and decodes the JSON response into target, which
// may be nil. body, when not nil, is marshalled as the request payload.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, target any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.WrapParse("json", "request", err)
		}
		reader = bytes.NewReader(data)
	}

	endpoint := c.URL(path, query)
	var req *http.Request
	var err error
	if reader != nil {
		req, err = http.NewRequestWithContext(ctx, method, endpoint, reader)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, endpoint, nil)
	}
	if err != nil {
		return errors.WrapResource("create", "request", method+" "+endpoint, err)
	}

	c.auth.Apply(req)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	logger := logging.FromContext(ctx)
	if err != nil {
		logger.Debug().Err(err).Str("method", method).Str("url", endpoint).Msg("Request failed")
		return c.transportError(ctx, method, endpoint, err)
	}
	logger.Debug().
		Str("method", method).
		Str("url", endpoint).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("PLM request")

	return DecodeResponse(resp, target, c.service, method+" "+path)
}

func (c *Client) transportError(ctx context.Context, method, endpoint string, err error) error {
	op := method + " " + endpoint
	if ctx.Err() == context.Canceled {
		return errors.Join(errors.ErrCanceled, err)
	}
	var netErr net.Error
	if stderrors.Is(err, context.DeadlineExceeded) || (stderrors.As(err, &netErr) && netErr.Timeout()) {
		return &errors.TransientError{Operation: op, Message: "request timed out", Err: errors.Join(errors.ErrTimeout, err)}
	}
	return errors.WrapTransient(op, err)
}
