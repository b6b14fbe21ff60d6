package transaction

import (
	"context"
	"fmt"
	"time"

	"github.com/agentstation/bomsync/pkg/bom"
	"github.com/agentstation/bomsync/pkg/constants"
	"github.com/agentstation/bomsync/pkg/errors"
	"github.com/agentstation/bomsync/pkg/history"
	"github.com/agentstation/bomsync/pkg/logging"
	"github.com/agentstation/bomsync/pkg/status"
	"github.com/agentstation/bomsync/pkg/sync"
)

// Coordinator runs creation plans and their rollbacks.
type Coordinator struct {
	items    bom.ItemStore
	executor *sync.Executor
	machine  *status.Machine
	log      *history.Log

	verifyAttempts     int
	verifyInitialDelay time.Duration
	sleep              func(context.Context, time.Duration) error
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithVerifyAttempts sets how many lookups confirm a created item.
func WithVerifyAttempts(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.verifyAttempts = n
		}
	}
}

// WithVerifyInitialDelay sets the first verification backoff.
func WithVerifyInitialDelay(d time.Duration) Option {
	return func(c *Coordinator) {
		if d >= 0 {
			c.verifyInitialDelay = d
		}
	}
}

// New creates a Coordinator.
func New(items bom.ItemStore, executor *sync.Executor, machine *status.Machine, log *history.Log, opts ...Option) *Coordinator {
	c := &Coordinator{
		items:              items,
		executor:           executor,
		machine:            machine,
		log:                log,
		verifyAttempts:     constants.DefaultVerifyAttempts,
		verifyInitialDelay: constants.DefaultVerifyInitialDelay,
		sleep:              sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Outcome is the result of Execute. Context lists every entity created so
// far, also when Execute fails.
type Outcome struct {
	Context *Context
	Pushes  map[string]*sync.Result
	Failed  string // number of the entity being processed when Execute failed
}

// Execute creates the plan's entities in tier order. For each entity the
// item is created and tracked, its remote visibility is verified with
// bounded exponential backoff, its BOM is pushed when it has lines, and it
// is recorded as SYNCED.
//
// On failure Execute stops and returns the outcome so far together with the
// error. It never rolls back; call Rollback with Outcome.Context for that.
func (c *Coordinator) Execute(ctx context.Context, plan *Plan) (*Outcome, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	txCtx := NewContext(plan.Name)
	ctx = logging.WithTransaction(ctx, txCtx.ID)
	logger := logging.FromContext(ctx)
	out := &Outcome{Context: txCtx, Pushes: make(map[string]*sync.Result)}

	resolver := sync.NewResolver(c.items)
	created := make(map[string]bom.Item)

	for _, spec := range plan.Ordered() {
		out.Failed = spec.Number
		ectx := logging.WithEntity(ctx, spec.Number)

		item, err := c.items.Create(ectx, spec.ItemFields())
		if errors.IsAlreadyExists(err) {
			return out, errors.WrapValidation(spec.Type+" "+spec.Number, err)
		}
		if err != nil {
			return out, errors.WrapResource("create", spec.Type, spec.Number, err)
		}
		txCtx.Track(Entry{EntityType: spec.Type, Identity: spec.Number, RemoteRef: item.Ref})
		created[item.Number] = item

		if err := c.verify(ectx, spec.Number); err != nil {
			return out, err
		}

		lines, err := c.resolve(ectx, resolver, created, spec.Lines)
		if err != nil {
			return out, err
		}
		if len(lines) > 0 {
			res, err := c.executor.Push(ectx, item.Ref, lines)
			if err != nil {
				if errors.IsPartialSync(err) {
					if _, merr := c.machine.MarkFailed(ectx, spec.Number, err); merr != nil {
						logger.Warn().Err(merr).Msg("Failed to record ERROR status")
					}
				}
				return out, err
			}
			out.Pushes[spec.Number] = res
		}

		if _, err := c.machine.MarkPushed(ectx, spec.Number, item.Ref, lines); err != nil {
			return out, err
		}
		if _, err := c.log.Append(ectx, history.Event{
			EntityIdentity: spec.Number,
			Type:           history.EventCreate,
			Summary:        fmt.Sprintf("created %s with %d BOM lines", spec.Type, len(lines)),
			Details: map[string]string{
				"tx_id":      txCtx.ID,
				"type":       spec.Type,
				"remote_ref": item.Ref,
			},
		}); err != nil {
			return out, err
		}
		logging.FromContext(ectx).Info().
			Str("type", spec.Type).
			Str("remote_ref", item.Ref).
			Msg("Created entity")
	}

	out.Failed = ""
	return out, nil
}

// resolve fills line refs, preferring items created in this transaction.
func (c *Coordinator) resolve(ctx context.Context, r *sync.Resolver, created map[string]bom.Item, lines []bom.Line) ([]bom.Line, error) {
	out := bom.CloneLines(lines)
	for i, l := range out {
		if it, ok := created[l.ItemNumber]; ok && !l.Resolved() {
			out[i] = bom.Enrich(l, it)
		}
	}
	out, err := r.Resolve(ctx, out)
	if err != nil {
		return nil, err
	}
	if missing := sync.Unresolved(out); len(missing) > 0 {
		problems := make([]errors.Problem, 0, len(missing))
		for i, l := range out {
			if !l.Resolved() {
				problems = append(problems, errors.Problem{Index: i, ItemNumber: l.ItemNumber, Field: "item_ref", Reason: "item not found remotely"})
			}
		}
		return nil, errors.NewAggregateValidationError("unresolved BOM lines", problems)
	}
	return out, nil
}

// verify polls until number is visible remotely, waiting before each
// lookup and doubling the wait up to MaxVerifyDelay.
func (c *Coordinator) verify(ctx context.Context, number string) error {
	logger := logging.FromContext(ctx)
	delay := c.verifyInitialDelay
	var lastErr error
	for attempt := 1; attempt <= c.verifyAttempts; attempt++ {
		if err := c.sleep(ctx, delay); err != nil {
			return errors.Join(errors.ErrCanceled, err)
		}
		_, found, err := c.items.GetByNumber(ctx, number)
		if err == nil && found {
			return nil
		}
		lastErr = err
		logger.Debug().Err(err).
			Int("attempt", attempt).
			Dur("waited", delay).
			Msg("Created item not visible yet")
		delay *= 2
		if delay > constants.MaxVerifyDelay {
			delay = constants.MaxVerifyDelay
		}
	}
	return &errors.TransientError{
		Operation: "verify",
		Message:   fmt.Sprintf("item %s not visible after %d attempts", number, c.verifyAttempts),
		Err:       lastErr,
	}
}

// RollbackResult reports a rollback.
type RollbackResult struct {
	Success      bool     `json:"success" yaml:"success"`
	DeletedCount int      `json:"deleted_count" yaml:"deleted_count"`
	Errors       []string `json:"errors" yaml:"errors"`

	// Remaining lists the entries that could not be deleted, in their
	// original order, so a retry can start from them.
	Remaining []Entry `json:"remaining,omitempty" yaml:"remaining,omitempty"`
}

// Rollback deletes the entities of txCtx in strict reverse creation order.
// A failed delete is recorded and the rollback continues with the next
// entity. An entity that is already gone counts as deleted.
func (c *Coordinator) Rollback(ctx context.Context, txCtx *Context) RollbackResult {
	ctx = logging.WithTransaction(ctx, txCtx.ID)
	logger := logging.FromContext(ctx)
	res := RollbackResult{Errors: []string{}}

	for i := len(txCtx.Entries) - 1; i >= 0; i-- {
		e := txCtx.Entries[i]
		ectx := logging.WithEntity(ctx, e.Identity)

		err := c.items.Delete(ectx, e.RemoteRef)
		if err != nil && !errors.IsNotFound(err) {
			logging.FromContext(ectx).Warn().Err(err).
				Str("type", e.EntityType).
				Msg("Rollback delete failed, continuing")
			res.Errors = append(res.Errors, fmt.Sprintf("delete %s %s (%s): %v", e.EntityType, e.Identity, e.RemoteRef, err))
			res.Remaining = append([]Entry{e}, res.Remaining...)
			continue
		}
		res.DeletedCount++

		if _, err := c.machine.MarkRemoved(ectx, e.Identity, "rolled back"); err != nil {
			logger.Warn().Err(err).Str("entity", e.Identity).Msg("Failed to record rollback status")
		}
		if _, err := c.log.Append(ectx, history.Event{
			EntityIdentity: e.Identity,
			Type:           history.EventRollback,
			Summary:        fmt.Sprintf("deleted %s during rollback", e.EntityType),
			Details: map[string]string{
				"tx_id":      txCtx.ID,
				"type":       e.EntityType,
				"remote_ref": e.RemoteRef,
			},
		}); err != nil {
			logger.Warn().Err(err).Str("entity", e.Identity).Msg("Failed to record rollback event")
		}
	}

	res.Success = len(res.Errors) == 0
	logger.Info().
		Bool("success", res.Success).
		Int("deleted", res.DeletedCount).
		Int("errors", len(res.Errors)).
		Msg("Rollback finished")
	return res
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
