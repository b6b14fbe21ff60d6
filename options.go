package bomsync

import (
	"github.com/agentstation/utc"

	"github.com/agentstation/bomsync/internal/metrics"
	"github.com/agentstation/bomsync/pkg/bom"
	"github.com/agentstation/bomsync/pkg/history"
)

// Option is a function that configures a Reconciler. Options replace the
// collaborators New would otherwise build from Config.
type Option func(*options) error

type options struct {
	items   bom.ItemStore
	lines   bom.BOMStore
	source  bom.TabularSource
	store   history.Store
	metrics *metrics.Metrics
	now     func() utc.Time
}

// WithItemStore uses items instead of the PLM REST client for item calls.
func WithItemStore(items bom.ItemStore) Option {
	return func(o *options) error {
		o.items = items
		return nil
	}
}

// WithBOMStore uses lines instead of the PLM REST client for BOM line calls.
func WithBOMStore(lines bom.BOMStore) Option {
	return func(o *options) error {
		o.lines = lines
		return nil
	}
}

// WithSource uses source as the local BOM sheet.
func WithSource(source bom.TabularSource) Option {
	return func(o *options) error {
		o.source = source
		return nil
	}
}

// WithHistoryStore uses store for history instead of the configured path.
// The caller keeps ownership; Close does not close it.
func WithHistoryStore(store history.Store) Option {
	return func(o *options) error {
		o.store = store
		return nil
	}
}

// WithMetrics records metrics into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) error {
		o.metrics = m
		return nil
	}
}

// WithClock overrides the time source of the history log.
func WithClock(now func() utc.Time) Option {
	return func(o *options) error {
		o.now = now
		return nil
	}
}
