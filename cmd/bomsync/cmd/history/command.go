// Package history provides the history command.
package history

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/bomsync/internal/appcontext"
	"github.com/agentstation/bomsync/internal/cmd/output"
	"github.com/agentstation/bomsync/internal/cmd/table"
)

// NewCommand creates the history command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	return &cobra.Command{
		Use:     "history [entity]",
		GroupID: "core",
		Short:   "Show recorded events, oldest first",
		Example: `  bomsync history
  bomsync history RACK-1 -o yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			r, err := app.Reconciler(ctx)
			if err != nil {
				return err
			}

			identity := ""
			if len(args) == 1 {
				identity = args[0]
			}
			events, err := r.History(ctx, identity)
			if err != nil {
				return err
			}
			return output.Write(app.Out(), output.Format(app.OutputFormat()), table.HistoryToTableData(events), events)
		},
	}
}
