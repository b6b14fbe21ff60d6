// Package status provides the status command.
package status

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/bomsync/internal/appcontext"
	"github.com/agentstation/bomsync/internal/cmd/output"
	"github.com/agentstation/bomsync/internal/cmd/table"
)

// NewCommand creates the status command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	var stored bool

	cmd := &cobra.Command{
		Use:     "status",
		GroupID: "core",
		Short:   "Show the sync status of every entity in the sheet",
		Long: `Status reads the sheet, compares every entity with its remote BOM and
prints the resulting status. Changed statuses are recorded in the history.

With --stored it prints the recorded state instead and makes no remote calls.`,
		Example: `  bomsync status
  bomsync status --stored
  bomsync status -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			r, err := app.Reconciler(ctx)
			if err != nil {
				return err
			}
			format := output.Format(app.OutputFormat())

			if stored {
				recs, err := r.Records(ctx)
				if err != nil {
					return err
				}
				return output.Write(app.Out(), format, table.RecordsToTableData(recs), recs)
			}

			evals, err := r.Status(ctx)
			if err != nil {
				return err
			}
			return output.Write(app.Out(), format, table.StatusToTableData(evals), evals)
		},
	}

	cmd.Flags().BoolVar(&stored, "stored", false, "print recorded state without contacting the PLM")

	return cmd
}
