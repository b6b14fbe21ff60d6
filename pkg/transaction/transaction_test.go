package transaction

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/bomsync/pkg/bom"
	"github.com/agentstation/bomsync/pkg/bom/bomtest"
	"github.com/agentstation/bomsync/pkg/errors"
	"github.com/agentstation/bomsync/pkg/history"
	"github.com/agentstation/bomsync/pkg/status"
	"github.com/agentstation/bomsync/pkg/sync"
)

const planYAML = `
name: row-a
components:
  - number: SRV-1
    fields:
      name: Server
      category: Server
  - number: SW-1
    fields:
      name: Switch
groups:
  - number: POD-1
    fields:
      name: Pod
    lines:
      - item_number: SRV-1
        quantity: 2
      - item_number: SW-1
top:
  number: RACK-1
  fields:
    name: Rack
  lines:
    - item_number: POD-1
`

type fixture struct {
	store  *bomtest.Store
	log    *history.Log
	coord  *Coordinator
	sleeps []time.Duration
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{store: bomtest.New(), log: history.New(history.NewMemoryStore())}
	exec, err := sync.New(f.store, sync.WithInterCallDelay(0))
	require.NoError(t, err)
	machine := status.New(f.store, f.store, f.log)
	f.coord = New(f.store, exec, machine, f.log, WithVerifyInitialDelay(100*time.Millisecond))
	f.coord.sleep = func(_ context.Context, d time.Duration) error {
		f.sleeps = append(f.sleeps, d)
		return nil
	}
	return f
}

func plan(t *testing.T) *Plan {
	t.Helper()
	p, err := ParsePlan([]byte(planYAML))
	require.NoError(t, err)
	return p
}

func TestParsePlan(t *testing.T) {
	p := plan(t)
	assert.Equal(t, "row-a", p.Name)
	require.Len(t, p.Groups, 1)
	// defaults for level and quantity
	assert.Equal(t, bom.Line{Level: 1, ItemNumber: "SW-1", Quantity: 1}, p.Groups[0].Lines[1])
	assert.Equal(t, 1, p.Top.Lines[0].Level)

	ordered := p.Ordered()
	require.Len(t, ordered, 4)
	assert.Equal(t, []string{TypeComponent, TypeComponent, TypeGroup, TypeTop},
		[]string{ordered[0].Type, ordered[1].Type, ordered[2].Type, ordered[3].Type})
	assert.Equal(t, "SRV-1", ordered[0].ItemFields().Number)
}

func TestPlanValidate(t *testing.T) {
	p := &Plan{
		Components: []EntitySpec{{Number: "A"}, {Number: "A"}, {}},
		Groups:     []EntitySpec{{Number: "G", Lines: []bom.Line{{ItemNumber: "A", Quantity: -1}}}},
	}
	err := p.Validate()
	require.Error(t, err)
	var verr *errors.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Problems, 3)

	assert.True(t, errors.IsValidationError((&Plan{}).Validate()))
}

func TestLoadPlanErrors(t *testing.T) {
	_, err := LoadPlan(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = ParsePlan([]byte("components: [unclosed"))
	require.Error(t, err)
}

func TestExecute(t *testing.T) {
	f := newFixture(t)
	out, err := f.coord.Execute(context.Background(), plan(t))
	require.NoError(t, err)
	assert.Empty(t, out.Failed)

	require.Equal(t, 4, out.Context.Len())
	assert.Equal(t, []string{"SRV-1", "SW-1", "POD-1", "RACK-1"}, f.store.Keys(bomtest.OpCreate))

	pod := out.Context.Entries[2]
	assert.Equal(t, TypeGroup, pod.EntityType)
	lines := f.store.Lines(pod.RemoteRef)
	require.Len(t, lines, 2)
	assert.Equal(t, out.Context.Entries[0].RemoteRef, lines[0].ItemRef)
	assert.Equal(t, 2.0, lines[0].Quantity)

	rack := f.store.Lines(out.Context.Entries[3].RemoteRef)
	require.Len(t, rack, 1)
	assert.Equal(t, pod.RemoteRef, rack[0].ItemRef)
	assert.Contains(t, out.Pushes, "POD-1")
	assert.NotContains(t, out.Pushes, "SRV-1")

	for _, e := range out.Context.Entries {
		rec, found, err := f.log.ReadSummary(context.Background(), e.Identity)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "SYNCED", rec.Status)
		assert.Equal(t, e.RemoteRef, rec.RemoteRef)
	}

	events, err := f.log.Events(context.Background(), "RACK-1")
	require.NoError(t, err)
	assert.Equal(t, history.EventCreate, events[len(events)-1].Type)
	assert.Equal(t, out.Context.ID, events[len(events)-1].Details["tx_id"])
}

func TestExecuteVerifyBackoff(t *testing.T) {
	f := newFixture(t)
	f.store.Hidden["SRV-1"] = 2

	p := &Plan{Components: []EntitySpec{{Number: "SRV-1"}}}
	_, err := f.coord.Execute(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond}, f.sleeps)
}

func TestExecuteVerifyGivesUp(t *testing.T) {
	f := newFixture(t)
	f.store.Hidden["SRV-1"] = 10

	out, err := f.coord.Execute(context.Background(), &Plan{Components: []EntitySpec{{Number: "SRV-1"}}})
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))
	assert.Equal(t, "SRV-1", out.Failed)
	// the item was created and stays tracked for rollback
	assert.Equal(t, 1, out.Context.Len())
	assert.Equal(t, 3, f.store.Count(bomtest.OpGetByNumber))
}

func TestExecuteStopsWithoutRollingBack(t *testing.T) {
	f := newFixture(t)
	f.store.Fail = func(op, key string) error {
		if op == bomtest.OpCreate && key == "POD-1" {
			return errors.New("quota exceeded")
		}
		return nil
	}

	out, err := f.coord.Execute(context.Background(), plan(t))
	require.Error(t, err)
	assert.Equal(t, "POD-1", out.Failed)
	assert.Equal(t, 2, out.Context.Len())
	assert.Equal(t, 0, f.store.Count(bomtest.OpDelete))
}

func TestExecuteRejectsExistingItem(t *testing.T) {
	f := newFixture(t)
	f.store.AddItem(bom.Item{Number: "SW-1", Name: "Switch"})

	out, err := f.coord.Execute(context.Background(), plan(t))
	require.True(t, errors.IsValidationError(err))
	assert.Contains(t, err.Error(), "SW-1")
	assert.Equal(t, "SW-1", out.Failed)
	assert.Equal(t, 1, out.Context.Len())
}

func TestExecutePartialPushMarksError(t *testing.T) {
	f := newFixture(t)
	f.store.Fail = func(op, _ string) error {
		if op == bomtest.OpCreateLine {
			return errors.New("line rejected")
		}
		return nil
	}

	_, err := f.coord.Execute(context.Background(), plan(t))
	require.Error(t, err)
	assert.True(t, errors.IsPartialSync(err))

	rec, _, err := f.log.ReadSummary(context.Background(), "POD-1")
	require.NoError(t, err)
	assert.Equal(t, "ERROR", rec.Status)
}

func TestRollbackReverseOrderContinuesPastFailures(t *testing.T) {
	f := newFixture(t)
	out, err := f.coord.Execute(context.Background(), plan(t))
	require.NoError(t, err)

	failing := out.Context.Entries[1].RemoteRef // SW-1
	f.store.Fail = func(op, key string) error {
		if op == bomtest.OpDelete && key == failing {
			return errors.New("locked")
		}
		return nil
	}

	res := f.coord.Rollback(context.Background(), out.Context)
	assert.False(t, res.Success)
	assert.Equal(t, 3, res.DeletedCount)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "SW-1")
	assert.Equal(t, []Entry{out.Context.Entries[1]}, res.Remaining)

	// top first, then the group, then components
	want := []string{
		out.Context.Entries[3].RemoteRef,
		out.Context.Entries[2].RemoteRef,
		out.Context.Entries[1].RemoteRef,
		out.Context.Entries[0].RemoteRef,
	}
	assert.Equal(t, want, f.store.Keys(bomtest.OpDelete))

	rec, _, err := f.log.ReadSummary(context.Background(), "RACK-1")
	require.NoError(t, err)
	assert.Equal(t, "PLACEHOLDER", rec.Status)
}

func TestRollbackTreatsMissingAsDeleted(t *testing.T) {
	f := newFixture(t)
	txCtx := NewContext("manual")
	txCtx.Track(Entry{EntityType: TypeComponent, Identity: "GONE", RemoteRef: "item-9999"})

	res := f.coord.Rollback(context.Background(), txCtx)
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.DeletedCount)
	assert.Empty(t, res.Errors)
}

func TestContextRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tx", "row-a.yaml")
	c := NewContext("row-a")
	c.Track(Entry{EntityType: TypeComponent, Identity: "SRV-1", RemoteRef: "r1"})
	c.Track(Entry{EntityType: TypeTop, Identity: "RACK-1", RemoteRef: "r2"})
	require.NoError(t, SaveContext(path, c))

	loaded, err := LoadContext(path)
	require.NoError(t, err)
	assert.Equal(t, c.ID, loaded.ID)
	assert.Equal(t, c.Entries, loaded.Entries)
	// started is stored with second precision
	assert.True(t, c.Started.Truncate(time.Second).Equal(loaded.Started.Truncate(time.Second)))
}
