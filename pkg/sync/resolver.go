package sync

import (
	"context"

	"github.com/agentstation/bomsync/pkg/bom"
	"github.com/agentstation/bomsync/pkg/errors"
)

// Resolver fills in item references by looking item numbers up in the
// remote item store. Lookups are cached for the resolver's lifetime.
type Resolver struct {
	items bom.ItemStore
	cache map[string]*bom.Item
}

// NewResolver creates a Resolver.
func NewResolver(items bom.ItemStore) *Resolver {
	return &Resolver{items: items, cache: make(map[string]*bom.Item)}
}

// Resolve returns a copy of lines with ItemRef set and blank metadata
// filled from the remote item. Numbers unknown to the store are left
// unresolved so Validate reports them. Lines that already carry a
// reference are kept as is.
func (r *Resolver) Resolve(ctx context.Context, lines []bom.Line) ([]bom.Line, error) {
	out := bom.CloneLines(lines)
	for i, l := range out {
		if l.Resolved() || l.ItemNumber == "" {
			continue
		}
		it, err := r.lookup(ctx, l.ItemNumber)
		if err != nil {
			return nil, errors.WrapResource("resolve", "item", l.ItemNumber, err)
		}
		if it != nil {
			out[i] = bom.Enrich(l, *it)
		}
	}
	return out, nil
}

// Unresolved returns the item numbers of lines without a reference.
func Unresolved(lines []bom.Line) []string {
	var out []string
	for _, l := range lines {
		if !l.Resolved() {
			out = append(out, l.ItemNumber)
		}
	}
	return out
}

func (r *Resolver) lookup(ctx context.Context, number string) (*bom.Item, error) {
	if it, ok := r.cache[number]; ok {
		return it, nil
	}
	it, found, err := r.items.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	var cached *bom.Item
	if found {
		cached = &it
	}
	r.cache[number] = cached
	return cached, nil
}
