// Package bomsync reconciles a hierarchical bill of materials kept in a
// tabular sheet with the BOM held by a remote PLM system.
//
// A Reconciler wires the tree builder, diff engine, push executor, status
// machine, transaction coordinator and history log from one Config.
package bomsync

import (
	"context"
	"io"

	"github.com/agentstation/bomsync/internal/historydb"
	"github.com/agentstation/bomsync/internal/metrics"
	"github.com/agentstation/bomsync/internal/plm"
	"github.com/agentstation/bomsync/internal/tabular"
	"github.com/agentstation/bomsync/internal/transport"
	"github.com/agentstation/bomsync/pkg/bom"
	"github.com/agentstation/bomsync/pkg/differ"
	"github.com/agentstation/bomsync/pkg/errors"
	"github.com/agentstation/bomsync/pkg/history"
	"github.com/agentstation/bomsync/pkg/status"
	"github.com/agentstation/bomsync/pkg/sync"
	"github.com/agentstation/bomsync/pkg/transaction"
	"github.com/agentstation/bomsync/pkg/tree"
)

// Reconciler is the entry point for every reconciliation operation.
type Reconciler interface {
	// Tree reads the sheet and builds the local BOM tree.
	Tree(ctx context.Context) (*bom.Tree, error)

	// Status evaluates every entity of the sheet.
	Status(ctx context.Context) ([]status.Evaluation, error)

	// Diff compares the local lines of identity with its remote BOM.
	Diff(ctx context.Context, identity string) (*differ.Changeset, error)

	// Preview resolves and validates identity and lists the remote lines a
	// push would delete, without mutating anything.
	Preview(ctx context.Context, identity string) (*sync.Result, error)

	// Push replaces the remote BOM of identity with its local lines.
	Push(ctx context.Context, identity string) (*sync.Result, error)

	// Pull replaces the local lines of identity with its remote BOM.
	Pull(ctx context.Context, identity string) (*PullResult, error)

	// Create executes a creation plan. It never rolls back on failure.
	Create(ctx context.Context, plan *transaction.Plan) (*transaction.Outcome, error)

	// Rollback deletes the entities of a transaction in reverse order.
	Rollback(ctx context.Context, txCtx *transaction.Context) transaction.RollbackResult

	// History returns the events of identity, or all events when empty.
	History(ctx context.Context, identity string) ([]history.Event, error)

	// Records returns every stored entity record.
	Records(ctx context.Context) ([]status.EntityRecord, error)

	// Override sets the status of identity by hand.
	Override(ctx context.Context, identity string, to status.Status, actor string) (status.Evaluation, error)

	// OnStatusChanged registers a callback for status transitions
	OnStatusChanged(StatusChangedHook)

	// OnPushed registers a callback for finished pushes
	OnPushed(PushedHook)

	// OnRolledBack registers a callback for finished rollbacks
	OnRolledBack(RolledBackHook)

	// Metrics returns the metrics the reconciler records into.
	Metrics() *metrics.Metrics

	// Close releases the history database when New opened it.
	Close() error
}

type reconciler struct {
	cfg     Config
	items   bom.ItemStore
	lines   bom.BOMStore
	source  bom.TabularSource
	log     *history.Log
	machine *status.Machine
	differ  differ.Differ

	executor    *sync.Executor
	preview     *sync.Executor
	coordinator *transaction.Coordinator

	metrics *metrics.Metrics
	hooks   *hooks
	closers []io.Closer
}

// New creates a Reconciler from cfg. Collaborators not supplied through
// options are built from cfg: the PLM REST client, the sheet at
// cfg.Sheet.Path and the history database at cfg.History.Path.
func New(ctx context.Context, cfg Config, opts ...Option) (Reconciler, error) {
	o := &options{}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, errors.NewConfigError("bomsync", "applying options", err)
		}
	}
	fillDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r := &reconciler{
		cfg:     cfg,
		items:   o.items,
		lines:   o.lines,
		source:  o.source,
		differ:  differ.New(),
		metrics: o.metrics,
		hooks:   newHooks(),
	}
	if r.metrics == nil {
		r.metrics = metrics.New()
	}

	if r.items == nil || r.lines == nil {
		client, err := plm.New(plm.Config{
			BaseURL: cfg.PLM.BaseURL,
			Creds: transport.Credentials{
				APIKey:    cfg.PLM.APIKey,
				SessionID: cfg.PLM.SessionID,
			},
			Options:  []transport.Option{transport.WithTimeout(cfg.PLM.Timeout)},
			PageSize: cfg.PLM.PageSize,
		})
		if err != nil {
			return nil, err
		}
		if r.items == nil {
			r.items = client
		}
		if r.lines == nil {
			r.lines = client
		}
	}

	if r.source == nil && cfg.Sheet.Path != "" {
		source, err := tabular.Open(ctx, cfg.Sheet.Path, cfg.S3)
		if err != nil {
			return nil, err
		}
		r.source = source
	}

	store := o.store
	if store == nil {
		if cfg.History.Path == "" {
			store = history.NewMemoryStore()
		} else {
			db, err := historydb.Open(cfg.History.Path)
			if err != nil {
				return nil, err
			}
			store = db
			r.closers = append(r.closers, db)
		}
	}

	logOpts := []history.Option{history.WithActor(cfg.Actor)}
	if o.now != nil {
		logOpts = append(logOpts, history.WithClock(o.now))
	}
	r.log = history.New(store, logOpts...)

	r.machine = status.New(r.items, r.lines, r.log,
		status.WithDiffer(r.differ),
		status.WithResolver(r.resolve),
		status.WithTransitionHook(func(_ context.Context, t status.Transition) {
			r.metrics.ObserveTransition(string(t.From), string(t.To))
			r.hooks.triggerStatusChanged(t)
		}),
	)

	var err error
	if r.executor, err = sync.New(r.lines, cfg.syncOptions()...); err != nil {
		_ = r.Close()
		return nil, err
	}
	previewOpts := append(cfg.syncOptions(), sync.WithDryRun(true))
	if r.preview, err = sync.New(r.lines, previewOpts...); err != nil {
		_ = r.Close()
		return nil, err
	}

	r.coordinator = transaction.New(r.items, r.executor, r.machine, r.log,
		transaction.WithVerifyAttempts(cfg.Transaction.VerifyAttempts),
		transaction.WithVerifyInitialDelay(cfg.Transaction.VerifyInitialDelay),
	)
	return r, nil
}

// fillDefaults replaces zero values that have no meaning of their own.
func fillDefaults(cfg *Config) {
	def := DefaultConfig()
	if cfg.Sync.SequenceStep == 0 {
		cfg.Sync.SequenceStep = def.Sync.SequenceStep
	}
	if cfg.PLM.Timeout == 0 {
		cfg.PLM.Timeout = def.PLM.Timeout
	}
	if cfg.Transaction.VerifyAttempts == 0 {
		cfg.Transaction.VerifyAttempts = def.Transaction.VerifyAttempts
	}
	if cfg.Columns.ItemNumberColumn == "" && cfg.Columns.Indent == "" {
		ignore := cfg.Columns.IgnoreColumns
		cfg.Columns = def.Columns
		cfg.Columns.IgnoreColumns = ignore
	}
	if cfg.Actor == "" {
		cfg.Actor = def.Actor
	}
}

// Tree implements Reconciler.
func (r *reconciler) Tree(ctx context.Context) (*bom.Tree, error) {
	_, t, err := r.read(ctx)
	return t, err
}

// read returns the raw sheet rows and the tree built from them.
func (r *reconciler) read(ctx context.Context) ([]bom.Row, *bom.Tree, error) {
	if r.source == nil {
		return nil, nil, errors.NewConfigError("sheet", "no sheet configured", nil)
	}
	rows, err := r.source.ReadRows(ctx)
	if err != nil {
		return nil, nil, err
	}
	t, err := tree.Build(rows, r.cfg.Columns)
	if err != nil {
		return nil, nil, err
	}
	return rows, t, nil
}

// entity returns the local entity named identity.
func (r *reconciler) entity(ctx context.Context, identity string) (bom.Entity, error) {
	t, err := r.Tree(ctx)
	if err != nil {
		return bom.Entity{}, err
	}
	e, ok := t.Entity(identity)
	if !ok {
		return bom.Entity{}, errors.NewNotFoundError("sheet entity", identity)
	}
	return e, nil
}

// remoteRef returns the remote reference of identity from its record, or
// looks it up by number.
func (r *reconciler) remoteRef(ctx context.Context, identity string) (string, error) {
	rec, ok, err := r.log.ReadSummary(ctx, identity)
	if err != nil {
		return "", err
	}
	if ok && rec.RemoteRef != "" {
		return rec.RemoteRef, nil
	}
	item, found, err := r.items.GetByNumber(ctx, identity)
	if err != nil {
		return "", errors.WrapResource("get", "item", identity, err)
	}
	if !found {
		return "", errors.NewNotFoundError("remote item", identity)
	}
	return item.Ref, nil
}

// Status implements Reconciler.
func (r *reconciler) Status(ctx context.Context) ([]status.Evaluation, error) {
	t, err := r.Tree(ctx)
	if err != nil {
		return nil, err
	}
	return r.machine.EvaluateAll(ctx, t.Entities()), nil
}

// Diff implements Reconciler.
func (r *reconciler) Diff(ctx context.Context, identity string) (*differ.Changeset, error) {
	e, err := r.entity(ctx, identity)
	if err != nil {
		return nil, err
	}
	ref, err := r.remoteRef(ctx, identity)
	if err != nil {
		return nil, err
	}
	remote, err := r.lines.ListLines(ctx, ref)
	if err != nil {
		return nil, errors.WrapResource("list", "bom", ref, err)
	}
	local, err := r.resolve(ctx, e.Lines)
	if err != nil {
		return nil, err
	}
	return r.differ.Compare(local, bom.Lines(remote)), nil
}

// resolve prepares sheet lines the way a push sends them, so status and
// diff compare the same view a push leaves behind.
func (r *reconciler) resolve(ctx context.Context, lines []bom.Line) ([]bom.Line, error) {
	return sync.NewResolver(r.items).Resolve(ctx, lines)
}

// Create implements Reconciler.
func (r *reconciler) Create(ctx context.Context, plan *transaction.Plan) (*transaction.Outcome, error) {
	out, err := r.coordinator.Execute(ctx, plan)
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeFailure
	}
	r.metrics.ObserveTransaction(outcome)
	return out, err
}

// Rollback implements Reconciler.
func (r *reconciler) Rollback(ctx context.Context, txCtx *transaction.Context) transaction.RollbackResult {
	res := r.coordinator.Rollback(ctx, txCtx)
	r.metrics.ObserveRollback(res.DeletedCount)
	r.hooks.triggerRolledBack(txCtx.ID, res)
	return res
}

// History implements Reconciler.
func (r *reconciler) History(ctx context.Context, identity string) ([]history.Event, error) {
	return r.log.Events(ctx, identity)
}

// Records implements Reconciler.
func (r *reconciler) Records(ctx context.Context) ([]status.EntityRecord, error) {
	return r.machine.Records(ctx)
}

// Override implements Reconciler.
func (r *reconciler) Override(ctx context.Context, identity string, to status.Status, actor string) (status.Evaluation, error) {
	return r.machine.Override(ctx, identity, to, actor)
}

// OnStatusChanged implements Reconciler.
func (r *reconciler) OnStatusChanged(fn StatusChangedHook) { r.hooks.OnStatusChanged(fn) }

// OnPushed implements Reconciler.
func (r *reconciler) OnPushed(fn PushedHook) { r.hooks.OnPushed(fn) }

// OnRolledBack implements Reconciler.
func (r *reconciler) OnRolledBack(fn RolledBackHook) { r.hooks.OnRolledBack(fn) }

// Metrics implements Reconciler.
func (r *reconciler) Metrics() *metrics.Metrics {
	return r.metrics
}

// Close implements Reconciler.
func (r *reconciler) Close() error {
	var errs []error
	for _, c := range r.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}
