// Package cmdtest builds a real Reconciler over an in-memory PLM and a
// temporary CSV sheet for command tests.
package cmdtest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/bomsync"
	"github.com/agentstation/bomsync/internal/appcontext"
	"github.com/agentstation/bomsync/pkg/bom"
	"github.com/agentstation/bomsync/pkg/bom/bomtest"
	"github.com/agentstation/bomsync/pkg/history"
)

// Sheet holds two racks; only RACK-1 exists remotely.
const Sheet = `Level,Item Number,Qty,Name
0,RACK-1,1,Rack
1,  SRV-1,2,Server
1,  SW-1,1,Switch
0,RACK-2,1,Rack two
1,  SRV-1,4,Server
`

// Fixture is a reconciler with its backing store and sheet.
type Fixture struct {
	Store *bomtest.Store
	Rack  bom.Item
	Srv   bom.Item
	Sw    bom.Item
	Path  string
	R     bomsync.Reconciler
	App   *appcontext.Mock
}

// New builds a Fixture. The mock app answers prompts with input.
func New(t *testing.T, input string) *Fixture {
	t.Helper()
	f := &Fixture{Store: bomtest.New()}
	f.Rack = f.Store.AddItem(bom.Item{Number: "RACK-1", Name: "Rack"})
	f.Srv = f.Store.AddItem(bom.Item{Number: "SRV-1", Name: "Server"})
	f.Sw = f.Store.AddItem(bom.Item{Number: "SW-1", Name: "Switch"})

	dir := t.TempDir()
	f.Path = filepath.Join(dir, "bom.csv")
	require.NoError(t, os.WriteFile(f.Path, []byte(Sheet), 0o600))

	cfg := bomsync.DefaultConfig()
	cfg.Sheet.Path = f.Path
	cfg.Sync.InterCallDelay = 0
	cfg.Transaction.VerifyInitialDelay = 0

	r, err := bomsync.New(context.Background(), cfg,
		bomsync.WithItemStore(f.Store),
		bomsync.WithBOMStore(f.Store),
		bomsync.WithHistoryStore(history.NewMemoryStore()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	f.R = r
	f.App = &appcontext.Mock{ReconcilerValue: r, State: dir, Input: input}
	return f
}

// Run executes cmd with args and returns its error.
func Run(cmd *cobra.Command, args ...string) error {
	cmd.SetArgs(args)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	return cmd.ExecuteContext(context.Background())
}

// ReadSheet returns the sheet's current contents.
func (f *Fixture) ReadSheet(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(f.Path)
	require.NoError(t, err)
	return string(data)
}

// Output returns what the command wrote.
func (f *Fixture) Output() string {
	return f.App.Output.String()
}

// Contains reports whether the command output contains every substr.
func (f *Fixture) Contains(substrs ...string) bool {
	out := f.Output()
	for _, s := range substrs {
		if !strings.Contains(out, s) {
			return false
		}
	}
	return true
}
