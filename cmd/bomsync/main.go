// Command bomsync reconciles a leveled BOM sheet with a PLM item store.
package main

import (
	"context"
	"os"

	"github.com/agentstation/bomsync/cmd/bomsync/app"
	"github.com/agentstation/bomsync/pkg/constants"
)

// Set at build time with -ldflags "-X main.version=...".
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
	builtBy = "unknown"
)

func main() {
	a, err := app.New(version, commit, date, builtBy)
	if err != nil {
		app.ExitOnError(err)
	}
	app.ExitOnError(run(a))
}

// run executes the command line and always shuts the app down, on a fresh
// context because a signal may have cancelled the command's.
func run(a *app.App) error {
	ctx, stop := app.ContextWithSignals(context.Background())
	defer stop()

	err := a.Execute(ctx, os.Args[1:])

	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()
	if shutdownErr := a.Shutdown(shutdownCtx); shutdownErr != nil {
		a.Logger().Error().Err(shutdownErr).Msg("Shutdown failed")
	}
	return err
}
