package rollback

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/bomsync/internal/cmd/cmdtest"
	"github.com/agentstation/bomsync/pkg/bom"
	"github.com/agentstation/bomsync/pkg/bom/bomtest"
	"github.com/agentstation/bomsync/pkg/errors"
	"github.com/agentstation/bomsync/pkg/transaction"
)

// savedTransaction creates two entities and saves their context.
func savedTransaction(t *testing.T, f *cmdtest.Fixture) (string, *transaction.Context) {
	t.Helper()
	plan := &transaction.Plan{
		Name:       "pod",
		Components: []transaction.EntitySpec{{Number: "NIC-1", Fields: bom.ItemFields{Name: "NIC"}}},
		Top:        &transaction.EntitySpec{Number: "POD-1", Lines: []bom.Line{{ItemNumber: "NIC-1", Quantity: 1}}},
	}
	out, err := f.R.Create(context.Background(), plan)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "tx.yaml")
	require.NoError(t, transaction.SaveContext(path, out.Context))
	return path, out.Context
}

func TestRollbackDeletesInReverse(t *testing.T) {
	f := cmdtest.New(t, "y\n")
	path, txCtx := savedTransaction(t, f)

	require.NoError(t, cmdtest.Run(NewCommand(f.App), path))
	assert.Contains(t, f.Output(), "deleted 2 entities")

	deleted := f.Store.Keys(bomtest.OpDelete)
	require.Len(t, deleted, 2)
	assert.Equal(t, txCtx.Entries[1].RemoteRef, deleted[0])
	assert.Equal(t, txCtx.Entries[0].RemoteRef, deleted[1])
}

func TestRollbackPartialRewritesContext(t *testing.T) {
	f := cmdtest.New(t, "")
	path, txCtx := savedTransaction(t, f)
	stuck := txCtx.Entries[0].RemoteRef
	f.Store.Fail = func(op, key string) error {
		if op == bomtest.OpDelete && key == stuck {
			return errors.New("locked")
		}
		return nil
	}

	err := cmdtest.Run(NewCommand(f.App), path, "-y")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "locked")

	saved, err := transaction.LoadContext(path)
	require.NoError(t, err)
	require.Len(t, saved.Entries, 1)
	assert.Equal(t, "NIC-1", saved.Entries[0].Identity)
	assert.Equal(t, txCtx.ID, saved.ID)
}

func TestRollbackDeclined(t *testing.T) {
	f := cmdtest.New(t, "no\n")
	path, _ := savedTransaction(t, f)

	require.NoError(t, cmdtest.Run(NewCommand(f.App), path))
	assert.Zero(t, f.Store.Count(bomtest.OpDelete))
}

func TestRollbackEmptyContext(t *testing.T) {
	f := cmdtest.New(t, "")
	path := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, transaction.SaveContext(path, transaction.NewContext("empty")))

	require.NoError(t, cmdtest.Run(NewCommand(f.App), path))
	assert.Contains(t, f.Output(), "nothing to roll back")
}
