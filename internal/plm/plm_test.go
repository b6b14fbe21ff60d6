package plm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/bomsync/internal/transport"
	"github.com/agentstation/bomsync/pkg/bom"
	"github.com/agentstation/bomsync/pkg/errors"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Config{BaseURL: srv.URL, Creds: transport.Credentials{SessionID: "s1"}, PageSize: 2})
	require.NoError(t, err)
	return c
}

func TestWireItemNormalizesCasing(t *testing.T) {
	payloads := []string{
		`{"Guid":"g1","Number":"SRV-1","Name":"Server","Category":{"Guid":"c","Name":"Server"},"LifecyclePhase":{"Name":"Production"},"RevisionNumber":"A"}`,
		`{"guid":"g1","number":"SRV-1","name":"Server","category":{"guid":"c","name":"Server"},"lifecyclePhase":{"name":"Production"},"revisionNumber":"A"}`,
	}
	want := bom.Item{Ref: "g1", Number: "SRV-1", Name: "Server", Category: "Server", Lifecycle: "Production", Revision: "A"}
	for _, p := range payloads {
		var w wireItem
		require.NoError(t, json.Unmarshal([]byte(p), &w))
		assert.Equal(t, want, w.Item)
	}
}

func TestWireLine(t *testing.T) {
	p := `{"Guid":"l1","LineNumber":20,"Quantity":"2.5","level":1,
		"Item":{"guid":"g1","Number":"SRV-1","name":"Server"},
		"additionalAttributes":[{"name":"Position","value":"U10"}]}`
	var w wireLine
	require.NoError(t, json.Unmarshal([]byte(p), &w))
	assert.Equal(t, "l1", w.Ref)
	assert.Equal(t, 20, w.SequenceNumber)
	assert.Equal(t, 2.5, w.Quantity)
	assert.Equal(t, 1, w.Level)
	assert.Equal(t, "SRV-1", w.ItemNumber)
	assert.Equal(t, "g1", w.ItemRef)
	assert.Equal(t, map[string]string{"Position": "U10"}, w.Attributes)
}

func TestGetByNumber(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "s1", r.Header.Get(transport.SessionHeader))
		assert.Equal(t, "/items", r.URL.Path)
		if r.URL.Query().Get("offset") != "0" {
			_, _ = w.Write([]byte(`{"results":[]}`))
			return
		}
		switch r.URL.Query().Get("number") {
		case "SRV-1":
			// prefix match returned by the API must be filtered out
			_, _ = w.Write([]byte(`{"count":2,"results":[{"guid":"g0","number":"SRV-10"},{"Guid":"g1","Number":"SRV-1"}]}`))
		case "GONE":
			w.WriteHeader(http.StatusNotFound)
		default:
			_, _ = w.Write([]byte(`{"Count":0,"Results":[]}`))
		}
	})

	it, found, err := c.GetByNumber(context.Background(), "SRV-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "g1", it.Ref)

	_, found, err = c.GetByNumber(context.Background(), "NOPE")
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = c.GetByNumber(context.Background(), "GONE")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGetByNumberFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, _, err := c.GetByNumber(context.Background(), "X")
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))
}

func TestListLinesPaginates(t *testing.T) {
	var offsets []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/items/p1/bom", r.URL.Path)
		offsets = append(offsets, r.URL.Query().Get("offset"))
		switch r.URL.Query().Get("offset") {
		case "0":
			_, _ = w.Write([]byte(`{"results":[{"guid":"l1","quantity":1,"item":{"number":"A"}},{"guid":"l2","quantity":2,"item":{"number":"B"}}]}`))
		default:
			_, _ = w.Write([]byte(`{"results":[{"guid":"l3","quantity":3,"item":{"number":"C"}}]}`))
		}
	})

	lines, err := c.ListLines(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"0", "2"}, offsets)
	assert.Equal(t, "C", lines[2].ItemNumber)
	assert.Equal(t, 3.0, lines[2].Quantity)
}

func TestListLinesStopsAtCount(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls++
		// full pages regardless of offset
		_, _ = w.Write([]byte(`{"count":4,"results":[{"guid":"l1","quantity":1,"item":{"number":"A"}},{"guid":"l2","quantity":1,"item":{"number":"B"}}]}`))
	})

	lines, err := c.ListLines(context.Background(), "p1")
	require.NoError(t, err)
	assert.Len(t, lines, 4)
	assert.Equal(t, 2, calls)
}

func TestPaginate(t *testing.T) {
	tests := []struct {
		name    string
		count   int
		total   int
		offsets []int
	}{
		{name: "short page ends without count", count: 0, total: 5, offsets: []int{0, 2, 4}},
		{name: "count reached on full page", count: 4, total: 100, offsets: []int{0, 2}},
		{name: "count not a page multiple", count: 3, total: 100, offsets: []int{0, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var offsets []int
			err := paginate(2, func(offset int) (int, int, error) {
				offsets = append(offsets, offset)
				return min(2, tt.total-offset), tt.count, nil
			})
			require.NoError(t, err)
			assert.Equal(t, tt.offsets, offsets)
		})
	}

	err := paginate(2, func(int) (int, int, error) { return 0, 0, assert.AnError })
	assert.ErrorIs(t, err, assert.AnError)
}

func TestCreateLinePayload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		body, _ := io.ReadAll(r.Body)
		var got map[string]any
		require.NoError(t, json.Unmarshal(body, &got))
		assert.Equal(t, map[string]any{"guid": "g1"}, got["item"])
		assert.Equal(t, 2.0, got["quantity"])
		assert.Equal(t, 30.0, got["lineNumber"])
		assert.Equal(t, []any{map[string]any{"name": "Position", "value": "U10"}}, got["additionalAttributes"])

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"guid":"l9","lineNumber":30,"quantity":2,"item":{"Guid":"g1","Number":"SRV-1"}}`))
	})

	l, err := c.CreateLine(context.Background(), "p1", bom.LineInput{
		ItemRef: "g1", Quantity: 2, Level: 1, SequenceNumber: 30,
		Attributes: map[string]string{"Position": "U10"},
	})
	require.NoError(t, err)
	assert.Equal(t, "l9", l.Ref)
	assert.Equal(t, "SRV-1", l.ItemNumber)
}

func TestCreateAndDeleteItem(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/items":
			body, _ := io.ReadAll(r.Body)
			assert.True(t, strings.Contains(string(body), `"category":{"name":"Rack"}`))
			_, _ = w.Write([]byte(`{"Guid":"new-1","Number":"RACK-1","Name":"Rack"}`))
		case r.Method == http.MethodDelete && r.URL.Path == "/items/new-1":
			w.WriteHeader(http.StatusNoContent)
		case r.Method == http.MethodDelete:
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	it, err := c.Create(context.Background(), bom.ItemFields{Number: "RACK-1", Name: "Rack", Category: "Rack"})
	require.NoError(t, err)
	assert.Equal(t, "new-1", it.Ref)

	require.NoError(t, c.Delete(context.Background(), "new-1"))
	err = c.Delete(context.Background(), "missing")
	assert.True(t, errors.IsNotFound(err))

	_, err = c.Create(context.Background(), bom.ItemFields{})
	assert.True(t, errors.IsValidationError(err))
}

func TestNewRequiresBaseURL(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}
