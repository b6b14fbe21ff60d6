package status

import (
	"context"
	"fmt"

	"github.com/agentstation/bomsync/pkg/bom"
	"github.com/agentstation/bomsync/pkg/differ"
	"github.com/agentstation/bomsync/pkg/errors"
	"github.com/agentstation/bomsync/pkg/fingerprint"
	"github.com/agentstation/bomsync/pkg/history"
	"github.com/agentstation/bomsync/pkg/logging"
)

// Transition describes one status change.
type Transition struct {
	Identity string
	From     Status
	To       Status
	Reason   string
}

// Evaluation is the result of evaluating one entity.
type Evaluation struct {
	Identity    string            `json:"identity" yaml:"identity"`
	Status      Status            `json:"status" yaml:"status"`
	Previous    Status            `json:"previous,omitempty" yaml:"previous,omitempty"`
	RemoteRef   string            `json:"remote_ref,omitempty" yaml:"remote_ref,omitempty"`
	Fingerprint string            `json:"fingerprint" yaml:"fingerprint"`
	Changes     *differ.Changeset `json:"changes,omitempty" yaml:"changes,omitempty"`
	Err         error             `json:"-" yaml:"-"`
}

// Changed reports whether the evaluation moved the entity to a new status.
func (e Evaluation) Changed() bool {
	return e.Previous != e.Status
}

// Machine evaluates and records entity statuses.
type Machine struct {
	items  bom.ItemStore
	lines  bom.BOMStore
	log    *history.Log
	differ  differ.Differ
	resolve ResolveFunc
	hooks   []func(context.Context, Transition)
}

// ResolveFunc turns sheet lines into the view compared with the remote BOM,
// typically by filling blank item metadata from the item store.
type ResolveFunc func(ctx context.Context, lines []bom.Line) ([]bom.Line, error)

// Option configures a Machine.
type Option func(*Machine)

// WithDiffer replaces the default Differ.
func WithDiffer(d differ.Differ) Option {
	return func(m *Machine) {
		m.differ = d
	}
}

// WithResolver sets how local lines are prepared before the remote diff.
// Without one the sheet lines are compared as read.
func WithResolver(fn ResolveFunc) Option {
	return func(m *Machine) {
		m.resolve = fn
	}
}

// WithTransitionHook registers fn to run after every recorded transition.
func WithTransitionHook(fn func(context.Context, Transition)) Option {
	return func(m *Machine) {
		m.hooks = append(m.hooks, fn)
	}
}

// New creates a Machine.
func New(items bom.ItemStore, lines bom.BOMStore, log *history.Log, opts ...Option) *Machine {
	m := &Machine{
		items:  items,
		lines:  lines,
		log:    log,
		differ: differ.New(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Record returns the stored record of identity.
func (m *Machine) Record(ctx context.Context, identity string) (EntityRecord, bool, error) {
	return m.log.ReadSummary(ctx, identity)
}

// Records returns every stored record.
func (m *Machine) Records(ctx context.Context) ([]EntityRecord, error) {
	return m.log.Summaries(ctx)
}

// Evaluate derives the status of identity from its local lines.
//
// Without a remote reference the entity is a PLACEHOLDER. Otherwise a
// changed fingerprint makes it LOCAL_MODIFIED, and only an unchanged
// fingerprint triggers the remote diff that decides between ARENA_MODIFIED
// and SYNCED. A stored ERROR status is returned untouched. Remote failures
// move the entity to ERROR and are returned alongside the evaluation.
func (m *Machine) Evaluate(ctx context.Context, identity string, local []bom.Line) (Evaluation, error) {
	ctx = logging.WithEntity(ctx, identity)
	rec, _, err := m.log.ReadSummary(ctx, identity)
	if err != nil {
		return Evaluation{Identity: identity, Status: Error, Err: err}, err
	}
	prev := Status(rec.Status)
	eval := Evaluation{
		Identity:    identity,
		Previous:    prev,
		RemoteRef:   rec.RemoteRef,
		Fingerprint: fingerprint.Calculate(local),
	}

	if prev == Error {
		eval.Status = Error
		return eval, nil
	}

	update := history.SummaryUpdate{LastRefresh: history.Time(m.log.Now())}

	if eval.RemoteRef == "" {
		item, found, err := m.items.GetByNumber(ctx, identity)
		if err != nil {
			return m.fail(ctx, eval, fmt.Errorf("look up remote entity: %w", err))
		}
		if !found {
			eval.Status = Placeholder
			return eval, m.transition(ctx, eval, update, "not present remotely")
		}
		eval.RemoteRef = item.Ref
		update.RemoteRef = history.String(item.Ref)
	}

	if eval.Fingerprint != rec.Fingerprint {
		eval.Status = Classify(rec.Fingerprint, eval.Fingerprint, nil)
		return eval, m.transition(ctx, eval, update, "local lines changed")
	}

	remote, err := m.lines.ListLines(ctx, eval.RemoteRef)
	if err != nil {
		return m.fail(ctx, eval, fmt.Errorf("list remote lines: %w", err))
	}
	view := local
	if m.resolve != nil {
		if view, err = m.resolve(ctx, local); err != nil {
			return m.fail(ctx, eval, fmt.Errorf("resolve local lines: %w", err))
		}
	}
	eval.Changes = m.differ.Compare(view, bom.Lines(remote))
	eval.Status = Classify(rec.Fingerprint, eval.Fingerprint, eval.Changes)

	reason := "remote matches local"
	if eval.Status == Synced {
		update.Fingerprint = history.String(eval.Fingerprint)
		update.LastSync = history.Time(m.log.Now())
	} else {
		reason = eval.Changes.String()
	}
	return eval, m.transition(ctx, eval, update, reason)
}

// EvaluateAll evaluates every entity in order. A failing entity is reported
// with status ERROR and does not stop the batch.
func (m *Machine) EvaluateAll(ctx context.Context, entities []bom.Entity) []Evaluation {
	out := make([]Evaluation, 0, len(entities))
	for _, e := range entities {
		eval, err := m.Evaluate(ctx, e.Identity(), e.Lines)
		if err != nil {
			logging.FromContext(ctx).Warn().Err(err).
				Str("entity", e.Identity()).
				Msg("Status evaluation failed, continuing")
			eval.Status = Error
			eval.Err = err
		}
		out = append(out, eval)
	}
	return out
}

// MarkPushed records a successful push of lines to remoteRef: the
// fingerprint is recomputed and stored and the status becomes SYNCED. This
// clears a sticky ERROR.
func (m *Machine) MarkPushed(ctx context.Context, identity, remoteRef string, lines []bom.Line) (Evaluation, error) {
	return m.markSynced(ctx, identity, remoteRef, lines, true)
}

// MarkPulled records that the local lines were replaced by the remote ones.
// The entity becomes SYNCED with the pulled fingerprint.
func (m *Machine) MarkPulled(ctx context.Context, identity, remoteRef string, lines []bom.Line) (Evaluation, error) {
	return m.markSynced(ctx, identity, remoteRef, lines, false)
}

func (m *Machine) markSynced(ctx context.Context, identity, remoteRef string, lines []bom.Line, pushed bool) (Evaluation, error) {
	rec, _, err := m.log.ReadSummary(ctx, identity)
	if err != nil {
		return Evaluation{}, err
	}
	now := m.log.Now()
	eval := Evaluation{
		Identity:    identity,
		Previous:    Status(rec.Status),
		Status:      Synced,
		RemoteRef:   remoteRef,
		Fingerprint: fingerprint.Calculate(lines),
	}
	update := history.SummaryUpdate{
		RemoteRef:   history.String(remoteRef),
		Fingerprint: history.String(eval.Fingerprint),
		LastSync:    history.Time(now),
	}
	reason := "pulled"
	if pushed {
		update.LastPush = history.Time(now)
		reason = "pushed"
	}
	return eval, m.transition(ctx, eval, update, reason)
}

// MarkFailed moves identity to ERROR because of cause.
func (m *Machine) MarkFailed(ctx context.Context, identity string, cause error) (Evaluation, error) {
	rec, _, err := m.log.ReadSummary(ctx, identity)
	if err != nil {
		return Evaluation{}, err
	}
	eval := Evaluation{
		Identity:    identity,
		Previous:    Status(rec.Status),
		Status:      Error,
		RemoteRef:   rec.RemoteRef,
		Fingerprint: rec.Fingerprint,
		Err:         cause,
	}
	return eval, m.transition(ctx, eval, history.SummaryUpdate{}, errorReason(cause))
}

// MarkRemoved records that the remote entity was deleted: the status
// returns to PLACEHOLDER and the remote reference and fingerprint are cleared.
func (m *Machine) MarkRemoved(ctx context.Context, identity, reason string) (Evaluation, error) {
	rec, _, err := m.log.ReadSummary(ctx, identity)
	if err != nil {
		return Evaluation{}, err
	}
	eval := Evaluation{
		Identity: identity,
		Previous: Status(rec.Status),
		Status:   Placeholder,
	}
	update := history.SummaryUpdate{
		RemoteRef:   history.String(""),
		Fingerprint: history.String(""),
	}
	return eval, m.transition(ctx, eval, update, reason)
}

// Override sets the status of identity by hand. It is the only way out of
// ERROR other than a push.
func (m *Machine) Override(ctx context.Context, identity string, to Status, actor string) (Evaluation, error) {
	if !to.Valid() {
		return Evaluation{}, errors.NewValidationError("status", to, "unknown status")
	}
	rec, _, err := m.log.ReadSummary(ctx, identity)
	if err != nil {
		return Evaluation{}, err
	}
	eval := Evaluation{
		Identity:    identity,
		Previous:    Status(rec.Status),
		Status:      to,
		RemoteRef:   rec.RemoteRef,
		Fingerprint: rec.Fingerprint,
	}
	if _, err := m.log.Append(ctx, history.Event{
		EntityIdentity: identity,
		Type:           history.EventOverride,
		Actor:          actor,
		StatusBefore:   string(eval.Previous),
		StatusAfter:    string(to),
		Summary:        fmt.Sprintf("status overridden to %s", to),
	}); err != nil {
		return eval, err
	}
	return eval, m.transitionAs(ctx, eval, history.SummaryUpdate{}, "manual override", actor)
}

func (m *Machine) fail(ctx context.Context, eval Evaluation, cause error) (Evaluation, error) {
	eval.Status = Error
	eval.Err = cause
	if err := m.transition(ctx, eval, history.SummaryUpdate{}, errorReason(cause)); err != nil {
		return eval, errors.Join(cause, err)
	}
	return eval, cause
}

func (m *Machine) transition(ctx context.Context, eval Evaluation, update history.SummaryUpdate, reason string) error {
	return m.transitionAs(ctx, eval, update, reason, "")
}

// transitionAs stores the new status and, when it differs from the previous
// one, appends a STATUS_CHANGE event and runs the hooks.
func (m *Machine) transitionAs(ctx context.Context, eval Evaluation, update history.SummaryUpdate, reason, actor string) error {
	update.Status = history.String(string(eval.Status))
	if err := m.log.UpsertSummary(ctx, eval.Identity, update); err != nil {
		return err
	}
	if !eval.Changed() {
		return nil
	}

	details := map[string]string{}
	if eval.RemoteRef != "" {
		details["remote_ref"] = eval.RemoteRef
	}
	if eval.Err != nil {
		details["error"] = eval.Err.Error()
	}
	if _, err := m.log.Append(ctx, history.Event{
		EntityIdentity: eval.Identity,
		Type:           history.EventStatusChange,
		Actor:          actor,
		StatusBefore:   string(eval.Previous),
		StatusAfter:    string(eval.Status),
		Summary:        reason,
		Details:        details,
	}); err != nil {
		return err
	}

	t := Transition{Identity: eval.Identity, From: eval.Previous, To: eval.Status, Reason: reason}
	logging.FromContext(logging.WithEntity(ctx, t.Identity)).Info().
		Str("from", string(t.From)).
		Str("to", string(t.To)).
		Msg("Status changed")
	for _, hook := range m.hooks {
		hook(ctx, t)
	}
	return nil
}

func errorReason(err error) string {
	if err == nil {
		return "failed"
	}
	return err.Error()
}
