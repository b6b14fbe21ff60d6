package bomsync

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/bomsync/internal/metrics"
	"github.com/agentstation/bomsync/pkg/bom"
	"github.com/agentstation/bomsync/pkg/bom/bomtest"
	"github.com/agentstation/bomsync/pkg/errors"
	"github.com/agentstation/bomsync/pkg/history"
	"github.com/agentstation/bomsync/pkg/status"
	"github.com/agentstation/bomsync/pkg/sync"
	"github.com/agentstation/bomsync/pkg/transaction"
)

const sheet = `Level,Item Number,Qty,Name
0,RACK-1,1,Rack
1,  SRV-1,2,Server
1,  SW-1,1,Switch
0,RACK-2,1,Rack two
1,  SRV-1,4,Server
`

type fixture struct {
	store *bomtest.Store
	rack  bom.Item
	srv   bom.Item
	sw    bom.Item
	path  string
	r     Reconciler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{store: bomtest.New()}
	f.rack = f.store.AddItem(bom.Item{Number: "RACK-1", Name: "Rack"})
	f.srv = f.store.AddItem(bom.Item{Number: "SRV-1", Name: "Server"})
	f.sw = f.store.AddItem(bom.Item{Number: "SW-1", Name: "Switch"})

	f.path = filepath.Join(t.TempDir(), "bom.csv")
	require.NoError(t, os.WriteFile(f.path, []byte(sheet), 0o600))

	cfg := DefaultConfig()
	cfg.Sheet.Path = f.path
	cfg.Sync.InterCallDelay = 0
	cfg.Transaction.VerifyInitialDelay = 0

	r, err := New(context.Background(), cfg,
		WithItemStore(f.store),
		WithBOMStore(f.store),
		WithHistoryStore(history.NewMemoryStore()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	f.r = r
	return f
}

func byIdentity(evals []status.Evaluation) map[string]status.Evaluation {
	out := make(map[string]status.Evaluation, len(evals))
	for _, e := range evals {
		out[e.Identity] = e
	}
	return out
}

func TestStatusBeforePush(t *testing.T) {
	f := newFixture(t)
	evals, err := f.r.Status(context.Background())
	require.NoError(t, err)
	require.Len(t, evals, 2)

	got := byIdentity(evals)
	assert.Equal(t, status.LocalModified, got["RACK-1"].Status)
	assert.Equal(t, f.rack.Ref, got["RACK-1"].RemoteRef)
	assert.Equal(t, status.Placeholder, got["RACK-2"].Status)
}

func TestPush(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.SetLines(f.rack.Ref, bom.RemoteLine{Line: bom.Line{Level: 1, ItemNumber: "OLD-1", Quantity: 1}})

	var pushed []string
	f.r.OnPushed(func(identity string, res *sync.Result, err error) {
		assert.NoError(t, err)
		pushed = append(pushed, identity)
	})

	res, err := f.r.Push(ctx, "RACK-1")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Deleted)
	assert.Len(t, res.Created, 2)
	assert.Equal(t, []string{"RACK-1"}, pushed)

	remote := f.store.Lines(f.rack.Ref)
	require.Len(t, remote, 2)
	assert.Equal(t, f.srv.Ref, remote[0].ItemRef)
	assert.Equal(t, 2.0, remote[0].Quantity)
	assert.Equal(t, f.sw.Ref, remote[1].ItemRef)

	rec := record(t, f.r, "RACK-1")
	assert.Equal(t, string(status.Synced), rec.Status)
	assert.False(t, rec.LastPush.IsZero())

	events, err := f.r.History(ctx, "RACK-1")
	require.NoError(t, err)
	last := events[len(events)-1]
	assert.Equal(t, history.EventPush, last.Type)
	assert.Equal(t, "2", last.Details["created"])
	assert.Equal(t, string(status.Synced), last.StatusAfter)

	m := f.r.Metrics()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PushesTotal.WithLabelValues(metrics.OutcomeSuccess)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.LinesCreated.WithLabelValues("RACK-1")))

	evals, err := f.r.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, status.Synced, byIdentity(evals)["RACK-1"].Status)

	cs, err := f.r.Diff(ctx, "RACK-1")
	require.NoError(t, err)
	assert.False(t, cs.HasChanges())
}

func TestPushThenStatusWithSparseColumns(t *testing.T) {
	store := bomtest.New()
	store.AddItem(bom.Item{Number: "RACK-1", Name: "Rack"})
	store.AddItem(bom.Item{Number: "SRV-1", Name: "Server", Category: "Server", Lifecycle: "Production"})

	path := filepath.Join(t.TempDir(), "bom.csv")
	require.NoError(t, os.WriteFile(path, []byte("Level,Item Number,Qty,Category\n0,RACK-1,1,Rack\n1,SRV-1,2,Server\n"), 0o600))

	cfg := DefaultConfig()
	cfg.Sheet.Path = path
	cfg.Sync.InterCallDelay = 0
	r, err := New(context.Background(), cfg,
		WithItemStore(store),
		WithBOMStore(store),
		WithHistoryStore(history.NewMemoryStore()),
	)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	ctx := context.Background()
	_, err = r.Push(ctx, "RACK-1")
	require.NoError(t, err)

	evals, err := r.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, status.Synced, byIdentity(evals)["RACK-1"].Status)

	cs, err := r.Diff(ctx, "RACK-1")
	require.NoError(t, err)
	assert.False(t, cs.HasChanges())
}

func TestPreviewMutatesNothing(t *testing.T) {
	f := newFixture(t)
	f.store.SetLines(f.rack.Ref,
		bom.RemoteLine{Line: bom.Line{Level: 1, ItemNumber: "OLD-1", Quantity: 1}},
		bom.RemoteLine{Line: bom.Line{Level: 1, ItemNumber: "OLD-2", Quantity: 1}},
	)

	res, err := f.r.Preview(context.Background(), "RACK-1")
	require.NoError(t, err)
	assert.True(t, res.DryRun)
	assert.Equal(t, 2, res.Existing)
	assert.Zero(t, f.store.Mutations())
}

func TestPushUnresolvedLine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, os.WriteFile(f.path, []byte("Level,Item Number,Qty\n0,RACK-1,1\n1,GHOST-1,1\n"), 0o600))

	_, err := f.r.Push(ctx, "RACK-1")
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
	assert.Contains(t, err.Error(), "GHOST-1")
	assert.Zero(t, f.store.Mutations())

	recs, err := f.r.Records(ctx)
	require.NoError(t, err)
	assert.Empty(t, recs)

	events, err := f.r.History(ctx, "RACK-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, history.EventPushFailed, events[0].Type)
}

func TestPushPartialMarksError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.Fail = func(op, key string) error {
		if op == bomtest.OpCreateLine && key == f.sw.Ref {
			return errors.New("boom")
		}
		return nil
	}

	var pushErr error
	f.r.OnPushed(func(_ string, _ *sync.Result, err error) { pushErr = err })

	res, err := f.r.Push(ctx, "RACK-1")
	require.Error(t, err)
	assert.True(t, errors.IsPartialSync(err))
	require.NotNil(t, res)
	assert.Len(t, res.Created, 1)
	assert.Equal(t, err, pushErr)

	assert.Equal(t, string(status.Error), record(t, f.r, "RACK-1").Status)

	events, err := f.r.History(ctx, "RACK-1")
	require.NoError(t, err)
	last := events[len(events)-1]
	assert.Equal(t, history.EventPushFailed, last.Type)
	assert.Equal(t, string(status.Error), last.StatusAfter)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.r.Metrics().PushesTotal.WithLabelValues(metrics.OutcomePartial)))
}

func TestPushUnknownEntity(t *testing.T) {
	f := newFixture(t)
	_, err := f.r.Push(context.Background(), "NOPE")
	assert.True(t, errors.IsNotFound(err))

	// RACK-2 is in the sheet but not in the PLM.
	_, err = f.r.Push(context.Background(), "RACK-2")
	assert.True(t, errors.IsNotFound(err))
}

func TestPull(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	psu := f.store.AddItem(bom.Item{Number: "PSU-1", Name: "PSU"})
	f.store.SetLines(f.rack.Ref,
		bom.RemoteLine{Line: bom.Line{Level: 1, ItemNumber: "SRV-1", ItemRef: f.srv.Ref, Quantity: 3, Name: "Server"}},
		bom.RemoteLine{Line: bom.Line{Level: 1, ItemNumber: "PSU-1", ItemRef: psu.Ref, Quantity: 2, Name: "PSU"}},
	)

	res, err := f.r.Pull(ctx, "RACK-1")
	require.NoError(t, err)
	assert.Equal(t, f.rack.Ref, res.RemoteRef)
	assert.Len(t, res.Lines, 2)
	assert.True(t, res.Changes.HasChanges())
	assert.Equal(t, 5, res.Rows)

	tr, err := f.r.Tree(ctx)
	require.NoError(t, err)
	rack, ok := tr.Entity("RACK-1")
	require.True(t, ok)
	require.Len(t, rack.Lines, 2)
	assert.Equal(t, "SRV-1", rack.Lines[0].ItemNumber)
	assert.Equal(t, 3.0, rack.Lines[0].Quantity)
	assert.Equal(t, "PSU-1", rack.Lines[1].ItemNumber)

	other, ok := tr.Entity("RACK-2")
	require.True(t, ok)
	require.Len(t, other.Lines, 1)
	assert.Equal(t, 4.0, other.Lines[0].Quantity)

	data, err := os.ReadFile(f.path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "  PSU-1")

	evals, err := f.r.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, status.Synced, byIdentity(evals)["RACK-1"].Status)

	events, err := f.r.History(ctx, "RACK-1")
	require.NoError(t, err)
	var types []history.EventType
	for _, e := range events {
		types = append(types, e.Type)
	}
	assert.Contains(t, types, history.EventPull)
}

func TestCreateAndRollback(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	plan, err := transaction.ParsePlan([]byte(`
name: pod
components:
  - number: NIC-1
    fields: {name: NIC}
top:
  number: POD-1
  fields: {name: Pod}
  lines:
    - item_number: NIC-1
      quantity: 2
    - item_number: SRV-1
`))
	require.NoError(t, err)

	out, err := f.r.Create(ctx, plan)
	require.NoError(t, err)
	require.Equal(t, 2, out.Context.Len())
	assert.Equal(t, string(status.Synced), record(t, f.r, "POD-1").Status)

	var rolled string
	f.r.OnRolledBack(func(txID string, res transaction.RollbackResult) {
		rolled = txID
		assert.True(t, res.Success)
	})
	res := f.r.Rollback(ctx, out.Context)
	assert.True(t, res.Success)
	assert.Equal(t, 2, res.DeletedCount)
	assert.Equal(t, out.Context.ID, rolled)
	assert.Equal(t, string(status.Placeholder), record(t, f.r, "POD-1").Status)

	m := f.r.Metrics()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TransactionsTotal.WithLabelValues(metrics.OutcomeSuccess)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RollbackDeletions))
}

func TestOverrideRunsHooks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var seen []status.Transition
	f.r.OnStatusChanged(func(tr status.Transition) { seen = append(seen, tr) })

	eval, err := f.r.Override(ctx, "RACK-2", status.Error, "alice")
	require.NoError(t, err)
	assert.Equal(t, status.Error, eval.Status)
	require.Len(t, seen, 1)
	assert.Equal(t, status.Error, seen[0].To)

	// ERROR is sticky for evaluation.
	evals, err := f.r.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, status.Error, byIdentity(evals)["RACK-2"].Status)

	events, err := f.r.History(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, history.EventOverride, events[0].Type)
	assert.Equal(t, "alice", events[0].Actor)
}

func TestNewRequiresPLM(t *testing.T) {
	_, err := New(context.Background(), DefaultConfig())
	require.Error(t, err)

	cfg := DefaultConfig()
	cfg.Sync.InterCallDelay = -1
	_, err = New(context.Background(), cfg, WithItemStore(bomtest.New()), WithBOMStore(bomtest.New()))
	assert.True(t, errors.IsValidationError(err))
}

func TestSQLiteHistory(t *testing.T) {
	store := bomtest.New()
	cfg := DefaultConfig()
	cfg.History.Path = filepath.Join(t.TempDir(), "history.db")

	r, err := New(context.Background(), cfg, WithItemStore(store), WithBOMStore(store))
	require.NoError(t, err)
	_, err = r.Override(context.Background(), "RACK-1", status.Synced, "bob")
	require.NoError(t, err)
	require.NoError(t, r.Close())

	r, err = New(context.Background(), cfg, WithItemStore(store), WithBOMStore(store))
	require.NoError(t, err)
	defer func() { _ = r.Close() }()
	recs, err := r.Records(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, string(status.Synced), recs[0].Status)
}

func record(t *testing.T, r Reconciler, identity string) status.EntityRecord {
	t.Helper()
	recs, err := r.Records(context.Background())
	require.NoError(t, err)
	for _, rec := range recs {
		if rec.Identity == identity {
			return rec
		}
	}
	t.Fatalf("no record for %s", identity)
	return status.EntityRecord{}
}
