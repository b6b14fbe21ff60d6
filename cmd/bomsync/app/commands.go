package app

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/bomsync/cmd/bomsync/cmd/create"
	"github.com/agentstation/bomsync/cmd/bomsync/cmd/diff"
	"github.com/agentstation/bomsync/cmd/bomsync/cmd/history"
	"github.com/agentstation/bomsync/cmd/bomsync/cmd/override"
	"github.com/agentstation/bomsync/cmd/bomsync/cmd/pull"
	"github.com/agentstation/bomsync/cmd/bomsync/cmd/push"
	"github.com/agentstation/bomsync/cmd/bomsync/cmd/rollback"
	"github.com/agentstation/bomsync/cmd/bomsync/cmd/status"
	"github.com/agentstation/bomsync/cmd/bomsync/cmd/version"
)

// registerCommands registers all subcommands with the root command.
func (a *App) registerCommands(rootCmd *cobra.Command) {
	// Core commands
	rootCmd.AddCommand(status.NewCommand(a))
	rootCmd.AddCommand(diff.NewCommand(a))
	rootCmd.AddCommand(push.NewCommand(a))
	rootCmd.AddCommand(pull.NewCommand(a))
	rootCmd.AddCommand(history.NewCommand(a))
	rootCmd.AddCommand(override.NewCommand(a))

	// Transaction commands
	rootCmd.AddCommand(create.NewCommand(a))
	rootCmd.AddCommand(rollback.NewCommand(a))

	// Utility commands
	rootCmd.AddCommand(version.NewCommand(a))
}
