package create

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/bomsync/internal/cmd/cmdtest"
	"github.com/agentstation/bomsync/pkg/bom/bomtest"
	"github.com/agentstation/bomsync/pkg/errors"
	"github.com/agentstation/bomsync/pkg/transaction"
)

const plan = `name: pod
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
`

func writePlan(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(plan), 0o600))
	return path
}

func TestCreateSavesContext(t *testing.T) {
	f := cmdtest.New(t, "")
	save := filepath.Join(t.TempDir(), "tx.yaml")

	require.NoError(t, cmdtest.Run(NewCommand(f.App), writePlan(t), "-y", "--save", save))
	assert.True(t, f.Contains("NIC-1", "POD-1", "created 2 entities"), f.Output())

	txCtx, err := transaction.LoadContext(save)
	require.NoError(t, err)
	require.Len(t, txCtx.Entries, 2)
	assert.Equal(t, "NIC-1", txCtx.Entries[0].Identity)
	assert.Equal(t, "POD-1", txCtx.Entries[1].Identity)
}

func TestCreateDefaultSavePath(t *testing.T) {
	f := cmdtest.New(t, "y\n")
	require.NoError(t, cmdtest.Run(NewCommand(f.App), writePlan(t)))

	matches, err := filepath.Glob(filepath.Join(f.App.State, "transactions", "*.yaml"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestCreateFailureStillSaves(t *testing.T) {
	f := cmdtest.New(t, "")
	f.Store.Fail = func(op, key string) error {
		if op == bomtest.OpCreate && key == "POD-1" {
			return errors.New("create rejected")
		}
		return nil
	}
	save := filepath.Join(t.TempDir(), "tx.yaml")

	err := cmdtest.Run(NewCommand(f.App), writePlan(t), "-y", "--save", save)
	require.Error(t, err)
	assert.Contains(t, f.Output(), "bomsync rollback "+save)

	txCtx, err := transaction.LoadContext(save)
	require.NoError(t, err)
	require.Len(t, txCtx.Entries, 1)
	assert.Equal(t, "NIC-1", txCtx.Entries[0].Identity)
}

func TestCreateDeclined(t *testing.T) {
	f := cmdtest.New(t, "n\n")
	require.NoError(t, cmdtest.Run(NewCommand(f.App), writePlan(t)))
	assert.Zero(t, f.Store.Count(bomtest.OpCreate))
}

func TestCreateMissingPlan(t *testing.T) {
	f := cmdtest.New(t, "")
	assert.Error(t, cmdtest.Run(NewCommand(f.App), filepath.Join(t.TempDir(), "missing.yaml"), "-y"))
}
