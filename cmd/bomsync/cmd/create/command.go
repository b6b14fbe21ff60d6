// Package create provides the create command.
package create

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/agentstation/bomsync/internal/appcontext"
	"github.com/agentstation/bomsync/internal/cmd/emoji"
	"github.com/agentstation/bomsync/internal/cmd/output"
	"github.com/agentstation/bomsync/internal/cmd/prompt"
	"github.com/agentstation/bomsync/internal/cmd/table"
	"github.com/agentstation/bomsync/pkg/constants"
	"github.com/agentstation/bomsync/pkg/logging"
	"github.com/agentstation/bomsync/pkg/transaction"
)

// Flags holds create flags.
type Flags struct {
	Yes  bool
	Save string
}

// NewCommand creates the create command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	flags := &Flags{}

	cmd := &cobra.Command{
		Use:     "create <plan.yaml>",
		GroupID: "transaction",
		Short:   "Create a hierarchy of entities from a plan",
		Long: `Create reads a plan of components, groups and a top-level entity and
creates them in that order. Every created entity is tracked in a transaction
context that is saved even when creation fails, so the transaction can be
rolled back with "bomsync rollback".`,
		Example: `  bomsync create plan.yaml
  bomsync create plan.yaml --save tx.yaml -y`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return Run(cmd, app, args[0], flags)
		},
	}

	cmd.Flags().BoolVarP(&flags.Yes, "yes", "y", false, "create without asking for confirmation")
	cmd.Flags().StringVar(&flags.Save, "save", "", "where to save the transaction context (default <state_dir>/transactions/<id>.yaml)")

	return cmd
}

// Run loads, confirms and executes a plan.
func Run(cmd *cobra.Command, app appcontext.Interface, planPath string, flags *Flags) error {
	ctx := cmd.Context()
	out := app.Out()
	format := output.Format(app.OutputFormat())

	plan, err := transaction.LoadPlan(planPath)
	if err != nil {
		return err
	}

	if output.IsTable(format) {
		if err := output.Write(out, format, table.PlanToTableData(plan), plan); err != nil {
			return err
		}
	}
	if !prompt.Confirm(app.In(), out, fmt.Sprintf("Create %d entities?", len(plan.Ordered())), flags.Yes) {
		return nil
	}

	r, err := app.Reconciler(ctx)
	if err != nil {
		return err
	}

	outcome, runErr := r.Create(ctx, plan)
	if outcome == nil || outcome.Context == nil {
		return runErr
	}

	path := flags.Save
	if path == "" {
		path = filepath.Join(app.StateDir(), constants.DefaultTransactionsDir, outcome.Context.ID+".yaml")
	}
	if err := transaction.SaveContext(path, outcome.Context); err != nil {
		logging.FromContext(ctx).Error().Err(err).Str("path", path).Msg("Failed to save transaction context")
		if runErr == nil {
			return err
		}
	}

	if !output.IsTable(format) && runErr == nil {
		return output.Write(out, format, table.Data{}, outcome.Context)
	}
	if err := output.Write(out, format, table.EntriesToTableData(outcome.Context.Entries), outcome.Context); err != nil {
		return err
	}
	if runErr != nil {
		fmt.Fprintf(out, "%s creation stopped at %s; roll back with: bomsync rollback %s\n", emoji.Error, outcome.Failed, path)
		return runErr
	}
	fmt.Fprintf(out, "%s created %d entities; transaction saved to %s\n", emoji.Success, outcome.Context.Len(), path)
	return nil
}
