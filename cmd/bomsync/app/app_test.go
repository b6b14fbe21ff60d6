package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/bomsync"
	"github.com/agentstation/bomsync/internal/cmd/cmdtest"
	"github.com/agentstation/bomsync/pkg/bom"
	"github.com/agentstation/bomsync/pkg/bom/bomtest"
)

// newTestApp builds an App whose reconciler uses an in-memory PLM, a temp
// sheet and a SQLite history under a temp state dir.
func newTestApp(t *testing.T, in string) (*App, *bomtest.Store, *bytes.Buffer) {
	t.Helper()
	state := t.TempDir()
	sheet := filepath.Join(state, "bom.csv")
	require.NoError(t, os.WriteFile(sheet, []byte(cmdtest.Sheet), 0o600))

	store := bomtest.New()
	store.AddItem(bom.Item{Number: "RACK-1", Name: "Rack"})
	store.AddItem(bom.Item{Number: "SRV-1", Name: "Server"})
	store.AddItem(bom.Item{Number: "SW-1", Name: "Switch"})

	config := &Config{
		LogOutput:       "stderr",
		LogLevel:        "error",
		StateDir:        state,
		MetricsTextfile: filepath.Join(state, "bomsync.prom"),
		Reconciler:      bomsync.DefaultConfig(),
	}
	config.Reconciler.Sheet.Path = sheet
	config.Reconciler.History.Path = filepath.Join(state, "history.db")
	config.Reconciler.Sync.InterCallDelay = 0

	out := &bytes.Buffer{}
	app, err := New("1.2.3", "abc123", "2026-01-01", "test",
		WithConfig(config),
		WithIO(strings.NewReader(in), out),
		WithReconcilerOptions(bomsync.WithItemStore(store), bomsync.WithBOMStore(store)),
	)
	require.NoError(t, err)
	return app, store, out
}

func TestAppNew(t *testing.T) {
	app, _, _ := newTestApp(t, "")
	assert.Equal(t, "1.2.3", app.Version())
	assert.Equal(t, "abc123", app.Commit())
	assert.Equal(t, "2026-01-01", app.Date())
	assert.Equal(t, "test", app.BuiltBy())
	assert.NotNil(t, app.Logger())
	assert.NotNil(t, app.Config())
}

func TestAppReconcilerSingleton(t *testing.T) {
	app, _, _ := newTestApp(t, "")
	ctx := context.Background()

	r1, err := app.Reconciler(ctx)
	require.NoError(t, err)
	r2, err := app.Reconciler(ctx)
	require.NoError(t, err)
	assert.Same(t, r1, r2)
	require.NoError(t, app.Shutdown(ctx))
}

func TestExecutePushThenStatus(t *testing.T) {
	app, store, out := newTestApp(t, "")
	ctx := context.Background()

	require.NoError(t, app.Execute(ctx, []string{"push", "RACK-1", "-y"}))
	assert.Contains(t, out.String(), "2 created")
	assert.Equal(t, 2, store.Count(bomtest.OpCreateLine))

	out.Reset()
	require.NoError(t, app.Execute(ctx, []string{"status", "-o", "json"}))
	assert.Contains(t, out.String(), `"SYNCED"`)

	require.NoError(t, app.Shutdown(ctx))

	prom, err := os.ReadFile(app.Config().MetricsTextfile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "bomsync_pushes_total")
	assert.FileExists(t, app.Config().Reconciler.History.Path)
}

func TestExecuteRejectsBadFormat(t *testing.T) {
	app, _, _ := newTestApp(t, "")
	err := app.Execute(context.Background(), []string{"status", "-o", "xml"})
	assert.Error(t, err)
}

func TestExecuteVersion(t *testing.T) {
	app, _, out := newTestApp(t, "")
	require.NoError(t, app.Execute(context.Background(), []string{"version"}))
	assert.Contains(t, out.String(), "bomsync version 1.2.3")
}

func TestShutdownWithoutReconciler(t *testing.T) {
	app, _, _ := newTestApp(t, "")
	assert.NoError(t, app.Shutdown(context.Background()))
	assert.NoFileExists(t, app.Config().MetricsTextfile)
}
