// Package rollback provides the rollback command.
package rollback

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentstation/bomsync/internal/appcontext"
	"github.com/agentstation/bomsync/internal/cmd/emoji"
	"github.com/agentstation/bomsync/internal/cmd/output"
	"github.com/agentstation/bomsync/internal/cmd/prompt"
	"github.com/agentstation/bomsync/internal/cmd/table"
	"github.com/agentstation/bomsync/pkg/errors"
	"github.com/agentstation/bomsync/pkg/transaction"
)

// NewCommand creates the rollback command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "rollback <context.yaml>",
		GroupID: "transaction",
		Short:   "Delete the entities created by a transaction",
		Long: `Rollback deletes every entity recorded in a saved transaction context, in
reverse creation order. Entities that could not be deleted are written back
to the context file so the rollback can be retried.`,
		Example: `  bomsync rollback ~/.bomsync/transactions/0190c3e4.yaml`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := app.Out()
			path := args[0]
			format := output.Format(app.OutputFormat())

			txCtx, err := transaction.LoadContext(path)
			if err != nil {
				return err
			}
			if txCtx.Len() == 0 {
				fmt.Fprintf(out, "%s transaction %s has nothing to roll back\n", emoji.Info, txCtx.ID)
				return nil
			}

			if output.IsTable(format) {
				if err := output.Write(out, format, table.EntriesToTableData(table.RollbackOrder(txCtx)), txCtx); err != nil {
					return err
				}
			}
			if !prompt.Confirm(app.In(), out, fmt.Sprintf("Delete %d entities?", txCtx.Len()), yes) {
				return nil
			}

			r, err := app.Reconciler(ctx)
			if err != nil {
				return err
			}

			res := r.Rollback(ctx, txCtx)
			if !res.Success {
				txCtx.Entries = res.Remaining
				if err := transaction.SaveContext(path, txCtx); err != nil {
					return errors.Join(err, rollbackError(res))
				}
			}

			if !output.IsTable(format) {
				if err := output.Write(out, format, table.Data{}, res); err != nil {
					return err
				}
			} else if res.Success {
				fmt.Fprintf(out, "%s deleted %d entities\n", emoji.Success, res.DeletedCount)
			} else {
				fmt.Fprintf(out, "%s deleted %d entities; %d remain in %s\n", emoji.Error, res.DeletedCount, len(res.Remaining), path)
			}

			if !res.Success {
				return rollbackError(res)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "roll back without asking for confirmation")

	return cmd
}

func rollbackError(res transaction.RollbackResult) error {
	return errors.New("rollback incomplete: " + strings.Join(res.Errors, "; "))
}
