// Package diff provides the diff command.
package diff

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentstation/bomsync/internal/appcontext"
	"github.com/agentstation/bomsync/internal/cmd/output"
	"github.com/agentstation/bomsync/internal/cmd/table"
)

// NewCommand creates the diff command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	return &cobra.Command{
		Use:     "diff <entity>",
		GroupID: "core",
		Short:   "Compare an entity's sheet lines with its remote BOM",
		Example: `  bomsync diff RACK-1`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			r, err := app.Reconciler(ctx)
			if err != nil {
				return err
			}

			cs, err := r.Diff(ctx, args[0])
			if err != nil {
				return err
			}

			format := output.Format(app.OutputFormat())
			if output.IsTable(format) && !cs.HasChanges() {
				fmt.Fprintf(app.Out(), "%s: no differences\n", args[0])
				return nil
			}
			return output.Write(app.Out(), format, table.ChangesToTableData(cs), cs)
		},
	}
}
