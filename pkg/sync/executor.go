package sync

import (
	"context"
	"time"

	"github.com/agentstation/bomsync/pkg/bom"
	"github.com/agentstation/bomsync/pkg/errors"
	"github.com/agentstation/bomsync/pkg/logging"
)

// Executor performs full-replace pushes against a remote BOM store.
type Executor struct {
	store bom.BOMStore
	opts  Options
	sleep func(time.Duration)
}

// New creates an Executor.
func New(store bom.BOMStore, opts ...Option) (*Executor, error) {
	o := Defaults().Apply(opts...)
	if err := o.Validate(); err != nil {
		return nil, err
	}
	return &Executor{store: store, opts: *o, sleep: time.Sleep}, nil
}

// Options returns the executor's options.
func (e *Executor) Options() Options {
	return e.opts
}

// Push replaces the BOM of parentRef with lines.
//
// Lines are validated first; a ValidationError means no remote call was
// made. Remote lines are then deleted one by one; a failed delete is logged
// and skipped. Finally each line is created in order. The first create
// failure aborts with a PartialSyncError, leaving the remote BOM incomplete.
//
// ctx is checked once before the first mutation. Once the delete loop has
// started the push runs to completion or to its first create failure.
func (e *Executor) Push(ctx context.Context, parentRef string, lines []bom.Line) (*Result, error) {
	start := time.Now()
	ctx = logging.WithEntityRef(ctx, parentRef)
	logger := logging.FromContext(ctx)

	if parentRef == "" {
		return nil, errors.NewValidationError("parentRef", parentRef, "parent reference is required")
	}
	if err := Validate(lines); err != nil {
		return nil, err
	}

	existing, err := e.store.ListLines(ctx, parentRef)
	if err != nil {
		return nil, errors.WrapResource("list", "bom lines", parentRef, err)
	}

	result := &Result{EntityRef: parentRef, Existing: len(existing), DryRun: e.opts.DryRun}
	if e.opts.DryRun {
		result.Duration = time.Since(start)
		return result, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Join(errors.ErrCanceled, err)
	}

	// Keep logger and values but detach from cancellation.
	ctx = context.WithoutCancel(ctx)
	mutations := 0
	pace := func() {
		if mutations > 0 && e.opts.InterCallDelay > 0 {
			e.sleep(e.opts.InterCallDelay)
		}
		mutations++
	}

	for _, rl := range existing {
		pace()
		if err := e.store.DeleteLine(ctx, parentRef, rl.Ref); err != nil {
			logger.Warn().Err(err).
				Str("line_ref", rl.Ref).
				Str("item_number", rl.ItemNumber).
				Msg("Failed to delete remote BOM line, skipping")
			result.DeleteFailures = append(result.DeleteFailures, LineFailure{
				LineRef:    rl.Ref,
				ItemNumber: rl.ItemNumber,
				Error:      err.Error(),
			})
			continue
		}
		result.Deleted++
	}

	for i, l := range lines {
		pace()
		created, err := e.store.CreateLine(ctx, parentRef, e.input(i, l))
		if err != nil {
			result.Duration = time.Since(start)
			logger.Error().Err(err).
				Int("index", i).
				Str("item_number", l.ItemNumber).
				Int("created", len(result.Created)).
				Msg("Failed to create BOM line, remote BOM is incomplete")
			return result, &errors.PartialSyncError{
				EntityRef:  parentRef,
				Index:      i,
				ItemNumber: l.ItemNumber,
				Deleted:    result.Deleted,
				Created:    len(result.Created),
				Err:        err,
			}
		}
		result.Created = append(result.Created, created)
	}

	result.Duration = time.Since(start)
	logger.Info().
		Int("deleted", result.Deleted).
		Int("created", len(result.Created)).
		Int("delete_failures", len(result.DeleteFailures)).
		Dur("duration", result.Duration).
		Msg("Pushed BOM")
	return result, nil
}

func (e *Executor) input(i int, l bom.Line) bom.LineInput {
	in := bom.LineInput{
		ItemRef:        l.ItemRef,
		Quantity:       l.Quantity,
		Level:          l.Level,
		SequenceNumber: (i + 1) * e.opts.SequenceStep,
	}
	for _, name := range e.opts.SideChannelAttributes {
		if v := l.Attribute(name); v != "" {
			if in.Attributes == nil {
				in.Attributes = make(map[string]string)
			}
			in.Attributes[name] = v
		}
	}
	return in
}
