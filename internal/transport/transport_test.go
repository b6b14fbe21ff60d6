package transport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/bomsync/pkg/errors"
)

func TestNewAuthenticator(t *testing.T) {
	tests := []struct {
		name   string
		creds  Credentials
		method string
		header string
		value  string
	}{
		{name: "session wins", creds: Credentials{APIKey: "k", SessionID: "s"}, method: "header", header: SessionHeader, value: "s"},
		{name: "bearer", creds: Credentials{APIKey: "k"}, method: "bearer", header: "Authorization", value: "Bearer k"},
		{name: "none", method: "none"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := NewAuthenticator(tt.creds)
			assert.Equal(t, tt.method, auth.Method())

			req := &http.Request{Header: make(http.Header)}
			auth.Apply(req)
			if tt.header == "" {
				assert.Empty(t, req.Header)
				return
			}
			assert.Equal(t, tt.value, req.Header.Get(tt.header))
		})
	}
}

func TestClientDo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/items", r.URL.Path)
		assert.Equal(t, "RACK-1", r.URL.Query().Get("number"))
		assert.Equal(t, "sess", r.Header.Get(SessionHeader))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, _ := io.ReadAll(r.Body)
		var in map[string]string
		require.NoError(t, json.Unmarshal(body, &in))
		assert.Equal(t, "x", in["name"])

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"guid":"g1"}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL+"/v1/", NewAuthenticator(Credentials{SessionID: "sess"}))
	require.NoError(t, err)

	var out struct {
		GUID string `json:"guid"`
	}
	err = c.Do(context.Background(), http.MethodPost, "/items", url.Values{"number": {"RACK-1"}}, map[string]string{"name": "x"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "g1", out.GUID)
}

func TestClientErrors(t *testing.T) {
	tests := []struct {
		status int
		body   string
		check  func(error) bool
		msg    string
	}{
		{status: 404, body: `{"errors":[{"code":4040,"message":"item not found"}]}`, check: errors.IsNotFound, msg: "item not found"},
		{status: 401, body: `{"message":"session expired"}`, check: errors.IsUnauthorized, msg: "session expired"},
		{status: 429, body: "slow down", check: errors.IsRateLimited, msg: "slow down"},
		{status: 503, body: "", check: errors.IsTransient, msg: "503"},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c, err := New(srv.URL, nil)
			require.NoError(t, err)
			err = c.Do(context.Background(), http.MethodGet, "items", nil, nil, nil)
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error class: %v", err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestClientTimeoutIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, err := New(srv.URL, nil, WithTimeout(20*time.Millisecond))
	require.NoError(t, err)
	err = c.Do(context.Background(), http.MethodGet, "slow", nil, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))
}

func TestClientEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c, err := New(srv.URL, nil)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, c.Do(context.Background(), http.MethodDelete, "items/1", nil, nil, &out))
	assert.Nil(t, out)
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New("not a url", nil)
	require.Error(t, err)

	c, err := New("https://api.example.com/v1/", nil)
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/v1/items/abc", c.URL("/items/abc", nil))
}
