package history

import (
	"context"

	"github.com/agentstation/utc"
	"github.com/google/uuid"

	"github.com/agentstation/bomsync/pkg/constants"
	"github.com/agentstation/bomsync/pkg/errors"
	"github.com/agentstation/bomsync/pkg/logging"
)

// Log is the history service shared by the reconciliation components.
type Log struct {
	store Store
	actor string
	now   func() utc.Time
	newID func() string
}

// Option configures a Log.
type Option func(*Log)

// WithActor sets the actor recorded on events that do not name one.
func WithActor(actor string) Option {
	return func(l *Log) {
		l.actor = actor
	}
}

// WithClock overrides the time source.
func WithClock(now func() utc.Time) Option {
	return func(l *Log) {
		l.now = now
	}
}

// New creates a Log over store.
func New(store Store, opts ...Option) *Log {
	l := &Log{
		store: store,
		actor: constants.ActorSystem,
		now:   utc.Now,
		newID: func() string { return uuid.Must(uuid.NewV7()).String() },
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Now returns the log's current time.
func (l *Log) Now() utc.Time {
	return l.now()
}

// Append records e, assigning an ID, timestamp and actor when missing, and
// returns the stored event.
func (l *Log) Append(ctx context.Context, e Event) (Event, error) {
	if e.EntityIdentity == "" {
		return Event{}, errors.NewValidationError("entity", e.EntityIdentity, "event entity is required")
	}
	if !e.Type.Valid() {
		return Event{}, errors.NewValidationError("type", e.Type, "unknown event type")
	}
	if e.ID == "" {
		e.ID = l.newID()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = l.now()
	}
	if e.Actor == "" {
		e.Actor = l.actor
	}
	if err := l.store.AppendEvent(ctx, e); err != nil {
		return Event{}, errors.WrapResource("append", "history event", e.EntityIdentity, err)
	}
	logging.FromContext(ctx).Debug().
		Str("entity", e.EntityIdentity).
		Str("event", string(e.Type)).
		Str("status_before", e.StatusBefore).
		Str("status_after", e.StatusAfter).
		Msg(e.Summary)
	return e, nil
}

// Events returns the events of identity, oldest first; "" returns all.
func (l *Log) Events(ctx context.Context, identity string) ([]Event, error) {
	events, err := l.store.Events(ctx, identity)
	if err != nil {
		return nil, errors.WrapResource("read", "history events", identity, err)
	}
	return events, nil
}

// UpsertSummary merges u into the summary of identity.
func (l *Log) UpsertSummary(ctx context.Context, identity string, u SummaryUpdate) error {
	if identity == "" {
		return errors.NewValidationError("identity", identity, "summary identity is required")
	}
	if err := l.store.UpsertSummary(ctx, identity, u, l.now()); err != nil {
		return errors.WrapResource("upsert", "summary", identity, err)
	}
	return nil
}

// ReadSummary returns the summary of identity; found is false when the
// entity has never been recorded.
func (l *Log) ReadSummary(ctx context.Context, identity string) (Summary, bool, error) {
	s, found, err := l.store.ReadSummary(ctx, identity)
	if err != nil {
		return Summary{}, false, errors.WrapResource("read", "summary", identity, err)
	}
	return s, found, nil
}

// Summaries returns every recorded summary.
func (l *Log) Summaries(ctx context.Context) ([]Summary, error) {
	out, err := l.store.Summaries(ctx)
	if err != nil {
		return nil, errors.WrapResource("read", "summaries", "", err)
	}
	return out, nil
}

// String returns a pointer to s, for building a SummaryUpdate.
func String(s string) *string {
	return &s
}

// Time returns a pointer to t, for building a SummaryUpdate.
func Time(t utc.Time) *utc.Time {
	return &t
}
