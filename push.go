package bomsync

import (
	"context"
	"strconv"
	"time"

	"github.com/agentstation/bomsync/internal/metrics"
	"github.com/agentstation/bomsync/pkg/bom"
	"github.com/agentstation/bomsync/pkg/errors"
	"github.com/agentstation/bomsync/pkg/history"
	"github.com/agentstation/bomsync/pkg/logging"
	"github.com/agentstation/bomsync/pkg/sync"
)

// prepare loads the local lines of identity, resolves their item references
// and finds the remote parent.
func (r *reconciler) prepare(ctx context.Context, identity string) (string, []bom.Line, error) {
	e, err := r.entity(ctx, identity)
	if err != nil {
		return "", nil, err
	}
	ref, err := r.remoteRef(ctx, identity)
	if err != nil {
		return "", nil, err
	}
	lines, err := r.resolve(ctx, e.Lines)
	if err != nil {
		return "", nil, err
	}
	return ref, lines, nil
}

// Preview implements Reconciler.
func (r *reconciler) Preview(ctx context.Context, identity string) (*sync.Result, error) {
	ctx = logging.WithOperation(logging.WithEntity(ctx, identity), "preview")
	ref, lines, err := r.prepare(ctx, identity)
	if err != nil {
		return nil, err
	}
	res, err := r.preview.Push(ctx, ref, lines)
	if res != nil {
		r.metrics.ObservePush(identity, metrics.OutcomeDryRun, 0, 0, 0, res.Duration)
	}
	return res, err
}

// Push implements Reconciler.
//
// A partial push moves the entity to ERROR; a push rejected by validation
// leaves the status untouched. Both append a PUSH_FAILED event.
func (r *reconciler) Push(ctx context.Context, identity string) (*sync.Result, error) {
	ctx = logging.WithOperation(logging.WithEntity(ctx, identity), "push")
	logger := logging.FromContext(ctx)
	start := time.Now()

	rec, _, err := r.log.ReadSummary(ctx, identity)
	if err != nil {
		return nil, err
	}

	ref, lines, err := r.prepare(ctx, identity)
	if err != nil {
		r.pushFailed(ctx, identity, rec.Status, rec.Status, nil, err, time.Since(start))
		return nil, err
	}

	res, err := r.executor.Push(ctx, ref, lines)
	if err != nil {
		after := rec.Status
		if errors.IsPartialSync(err) {
			eval, merr := r.machine.MarkFailed(ctx, identity, err)
			if merr != nil {
				logger.Warn().Err(merr).Msg("Failed to record ERROR status")
			} else {
				after = string(eval.Status)
			}
		}
		r.pushFailed(ctx, identity, rec.Status, after, res, err, time.Since(start))
		return res, err
	}

	eval, err := r.machine.MarkPushed(ctx, identity, ref, lines)
	if err != nil {
		return res, err
	}
	if _, err := r.log.Append(ctx, history.Event{
		EntityIdentity: identity,
		Type:           history.EventPush,
		StatusBefore:   rec.Status,
		StatusAfter:    string(eval.Status),
		Summary:        res.Summary(),
		Details:        pushDetails(res),
	}); err != nil {
		return res, err
	}

	outcome := metrics.OutcomeSuccess
	if res.HasFailures() {
		outcome = metrics.OutcomePartial
	}
	r.metrics.ObservePush(identity, outcome, res.Deleted, len(res.Created), len(res.DeleteFailures), time.Since(start))
	r.hooks.triggerPushed(identity, res, nil)
	return res, nil
}

// pushFailed records a failed push. Errors while recording are logged so
// the push error reaches the caller unchanged.
func (r *reconciler) pushFailed(ctx context.Context, identity, before, after string, res *sync.Result, cause error, d time.Duration) {
	details := pushDetails(res)
	details["error"] = cause.Error()
	if _, err := r.log.Append(ctx, history.Event{
		EntityIdentity: identity,
		Type:           history.EventPushFailed,
		StatusBefore:   before,
		StatusAfter:    after,
		Summary:        "push failed: " + cause.Error(),
		Details:        details,
	}); err != nil {
		logging.FromContext(ctx).Warn().Err(err).Msg("Failed to record push failure")
	}

	outcome := metrics.OutcomeFailure
	deleted, created, failures := 0, 0, 0
	if res != nil {
		outcome = metrics.OutcomePartial
		deleted, created, failures = res.Deleted, len(res.Created), len(res.DeleteFailures)
	}
	r.metrics.ObservePush(identity, outcome, deleted, created, failures, d)
	r.hooks.triggerPushed(identity, res, cause)
}

func pushDetails(res *sync.Result) map[string]string {
	details := map[string]string{}
	if res == nil {
		return details
	}
	details["remote_ref"] = res.EntityRef
	details["deleted"] = strconv.Itoa(res.Deleted)
	details["created"] = strconv.Itoa(len(res.Created))
	details["delete_failures"] = strconv.Itoa(len(res.DeleteFailures))
	return details
}
