package app

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentstation/bomsync/internal/cmd/output"
	"github.com/agentstation/bomsync/pkg/logging"
)

// Execute builds the command tree and runs args against it.
func (a *App) Execute(ctx context.Context, args []string) error {
	rootCmd := a.createRootCommand()
	rootCmd.SetArgs(args)
	rootCmd.SetIn(a.in)
	rootCmd.SetOut(a.out)
	return rootCmd.ExecuteContext(ctx)
}

func (a *App) createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "bomsync",
		Short:   "Reconcile spreadsheet BOMs with a PLM system",
		Version: a.build.version,
		Long: `bomsync keeps hierarchical bills of materials kept in a spreadsheet in
sync with the BOMs stored in a PLM system.

It reads the sheet into a tree of entities, compares each entity with its
remote BOM, tracks a per-entity sync status, and pushes or pulls changes.
Every mutation is recorded in an append-only history.`,
		PersistentPreRunE: a.setupCommand,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	rootCmd.AddGroup(&cobra.Group{ID: "core", Title: "Core Commands:"})
	rootCmd.AddGroup(&cobra.Group{ID: "transaction", Title: "Transaction Commands:"})

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default is $HOME/.bomsync.yaml)")
	flags.BoolP("verbose", "v", false, "verbose output (shortcut for --log-level=debug)")
	flags.BoolP("quiet", "q", false, "minimal output (shortcut for --log-level=warn)")
	flags.Bool("no-color", false, "disable colored output")
	flags.StringP("format", "o", "", "output format: table, json, yaml")
	flags.String("log-level", "", "log level: trace, debug, info, warn, error (overrides -v/-q)")
	flags.String("metrics-textfile", "", "write Prometheus metrics to this file on exit")

	rootCmd.SetVersionTemplate("bomsync {{.Version}}\n")

	a.registerCommands(rootCmd)

	return rootCmd
}

// setupCommand runs before every command. An explicit --config reloads the
// configuration; flags are then applied on top and the logger is rebuilt.
func (a *App) setupCommand(cmd *cobra.Command, _ []string) error {
	if configFile := mustFlag(cmd.Flags().GetString, "config"); configFile != "" {
		config, err := LoadConfig(configFile)
		if err != nil {
			return err
		}
		a.config = config
	}

	format := mustFlag(cmd.Flags().GetString, "format")
	if _, err := output.ParseFormat(format); err != nil {
		return err
	}

	a.config.UpdateFromFlags(
		mustFlag(cmd.Flags().GetBool, "verbose"),
		mustFlag(cmd.Flags().GetBool, "quiet"),
		mustFlag(cmd.Flags().GetBool, "no-color"),
		format,
		mustFlag(cmd.Flags().GetString, "log-level"),
	)
	if cmd.Flags().Changed("metrics-textfile") {
		a.config.MetricsTextfile = mustFlag(cmd.Flags().GetString, "metrics-textfile")
	}

	logger := NewLogger(a.config)
	a.logger = &logger
	cmd.SetContext(logging.WithLogger(cmd.Context(), a.logger))

	return nil
}

// ExitOnError prints err to stderr and exits 1. It does nothing for nil.
func ExitOnError(err error) {
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

// mustFlag reads a flag registered on the root command; a missing flag is
// a programming error.
func mustFlag[T any](get func(string) (T, error), name string) T {
	v, err := get(name)
	if err != nil {
		panic("flag " + name + ": " + err.Error())
	}
	return v
}
