// Package plm implements the remote item and BOM stores over the PLM REST
// API. Responses are normalized into the canonical bom shapes here and
// nowhere else.
package plm

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/agentstation/bomsync/internal/transport"
	"github.com/agentstation/bomsync/pkg/bom"
	"github.com/agentstation/bomsync/pkg/errors"
)

// DefaultPageSize is the page size used for list endpoints.
const DefaultPageSize = 100

// Config configures the PLM client.
type Config struct {
	BaseURL  string
	Creds    transport.Credentials
	Options  []transport.Option
	PageSize int
}

// Client is a bom.ItemStore and bom.BOMStore backed by the PLM REST API.
type Client struct {
	http     *transport.Client
	pageSize int
}

// New creates a Client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.NewConfigError("plm", "base URL is required", nil)
	}
	hc, err := transport.New(cfg.BaseURL, transport.NewAuthenticator(cfg.Creds), cfg.Options...)
	if err != nil {
		return nil, err
	}
	size := cfg.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	return &Client{http: hc, pageSize: size}, nil
}

// Search implements bom.ItemStore.
func (c *Client) Search(ctx context.Context, text string) ([]bom.Item, error) {
	return c.listItems(ctx, url.Values{"searchQuery": {text}})
}

// GetByRef implements bom.ItemStore.
func (c *Client) GetByRef(ctx context.Context, ref string) (bom.Item, error) {
	var w wireItem
	if err := c.http.Do(ctx, http.MethodGet, itemPath(ref), nil, nil, &w); err != nil {
		if errors.IsNotFound(err) {
			return bom.Item{}, errors.NewNotFoundError("item", ref)
		}
		return bom.Item{}, err
	}
	return w.Item, nil
}

// GetByNumber implements bom.ItemStore. Only an exact number match counts;
// the API's number filter also matches prefixes on some deployments.
func (c *Client) GetByNumber(ctx context.Context, number string) (bom.Item, bool, error) {
	items, err := c.listItems(ctx, url.Values{"number": {number}})
	if err != nil {
		if errors.IsNotFound(err) {
			return bom.Item{}, false, nil
		}
		return bom.Item{}, false, err
	}
	for _, it := range items {
		if it.Number == number {
			return it, true, nil
		}
	}
	return bom.Item{}, false, nil
}

// Create implements bom.ItemStore.
func (c *Client) Create(ctx context.Context, fields bom.ItemFields) (bom.Item, error) {
	if fields.Number == "" {
		return bom.Item{}, errors.NewValidationError("number", fields.Number, "item number is required")
	}
	var w wireItem
	if err := c.http.Do(ctx, http.MethodPost, "items", nil, newItemPayload(fields), &w); err != nil {
		return bom.Item{}, err
	}
	if w.Number == "" {
		w.Number = fields.Number
	}
	return w.Item, nil
}

// Update implements bom.ItemStore.
func (c *Client) Update(ctx context.Context, ref string, fields bom.ItemFields) (bom.Item, error) {
	var w wireItem
	if err := c.http.Do(ctx, http.MethodPut, itemPath(ref), nil, newItemPayload(fields), &w); err != nil {
		return bom.Item{}, err
	}
	return w.Item, nil
}

// Delete implements bom.ItemStore.
func (c *Client) Delete(ctx context.Context, ref string) error {
	err := c.http.Do(ctx, http.MethodDelete, itemPath(ref), nil, nil, nil)
	if errors.IsNotFound(err) {
		return errors.NewNotFoundError("item", ref)
	}
	return err
}

// ListLines implements bom.BOMStore.
func (c *Client) ListLines(ctx context.Context, parentRef string) ([]bom.RemoteLine, error) {
	var out []bom.RemoteLine
	err := paginate(c.pageSize, func(offset int) (int, int, error) {
		var p page[wireLine]
		q := url.Values{"offset": {strconv.Itoa(offset)}, "limit": {strconv.Itoa(c.pageSize)}}
		if err := c.http.Do(ctx, http.MethodGet, bomPath(parentRef), q, nil, &p); err != nil {
			return 0, 0, err
		}
		for _, l := range p.Results {
			out = append(out, l.RemoteLine)
		}
		return len(p.Results), p.Count, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CreateLine implements bom.BOMStore.
func (c *Client) CreateLine(ctx context.Context, parentRef string, in bom.LineInput) (bom.RemoteLine, error) {
	var w wireLine
	if err := c.http.Do(ctx, http.MethodPost, bomPath(parentRef), nil, newLinePayload(in), &w); err != nil {
		return bom.RemoteLine{}, err
	}
	if w.ItemRef == "" {
		w.ItemRef = in.ItemRef
	}
	return w.RemoteLine, nil
}

// DeleteLine implements bom.BOMStore.
func (c *Client) DeleteLine(ctx context.Context, parentRef, lineRef string) error {
	err := c.http.Do(ctx, http.MethodDelete, bomPath(parentRef)+"/"+url.PathEscape(lineRef), nil, nil, nil)
	if errors.IsNotFound(err) {
		return errors.NewNotFoundError("bom line", lineRef)
	}
	return err
}

func (c *Client) listItems(ctx context.Context, filter url.Values) ([]bom.Item, error) {
	var out []bom.Item
	err := paginate(c.pageSize, func(offset int) (int, int, error) {
		q := url.Values{"offset": {strconv.Itoa(offset)}, "limit": {strconv.Itoa(c.pageSize)}}
		for k, v := range filter {
			q[k] = v
		}
		var p page[wireItem]
		if err := c.http.Do(ctx, http.MethodGet, "items", q, nil, &p); err != nil {
			return 0, 0, err
		}
		for _, it := range p.Results {
			out = append(out, it.Item)
		}
		return len(p.Results), p.Count, nil
	})
	return out, err
}

// paginate calls fetch with growing offsets until a short page, or until
// the reported total count is reached. fetch returns the page length and
// the total, which is zero when the API omits it.
func paginate(size int, fetch func(offset int) (n, count int, err error)) error {
	for offset := 0; ; offset += size {
		n, count, err := fetch(offset)
		if err != nil {
			return err
		}
		if n < size || (count > 0 && offset+n >= count) {
			return nil
		}
	}
}

func itemPath(ref string) string {
	return "items/" + url.PathEscape(ref)
}

func bomPath(ref string) string {
	return itemPath(ref) + "/bom"
}

var (
	_ bom.ItemStore = (*Client)(nil)
	_ bom.BOMStore  = (*Client)(nil)
)
