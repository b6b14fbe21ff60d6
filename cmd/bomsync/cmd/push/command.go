// Package push provides the push command.
package push

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentstation/bomsync/internal/appcontext"
	"github.com/agentstation/bomsync/internal/cmd/emoji"
	"github.com/agentstation/bomsync/internal/cmd/output"
	"github.com/agentstation/bomsync/internal/cmd/prompt"
	"github.com/agentstation/bomsync/internal/cmd/table"
)

// Flags holds push flags.
type Flags struct {
	Yes    bool
	DryRun bool
}

// NewCommand creates the push command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	flags := &Flags{}

	cmd := &cobra.Command{
		Use:     "push <entity>",
		GroupID: "core",
		Short:   "Replace an entity's remote BOM with its sheet lines",
		Long: `Push deletes every remote line of the entity and recreates the BOM from
the sheet, in sheet order. The differences and a dry run are shown first
and the push runs only after confirmation.

A push that fails part way leaves the entity in ERROR until a later push
succeeds or the status is overridden.`,
		Example: `  bomsync push RACK-1
  bomsync push RACK-1 --dry-run
  bomsync push RACK-1 -y`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return Run(cmd, app, args[0], flags)
		},
	}

	cmd.Flags().BoolVarP(&flags.Yes, "yes", "y", false, "push without asking for confirmation")
	cmd.Flags().BoolVar(&flags.DryRun, "dry-run", false, "show what would change and exit")

	return cmd
}

// Run previews, confirms and pushes one entity.
func Run(cmd *cobra.Command, app appcontext.Interface, identity string, flags *Flags) error {
	ctx := cmd.Context()
	out := app.Out()
	format := output.Format(app.OutputFormat())

	r, err := app.Reconciler(ctx)
	if err != nil {
		return err
	}

	preview, err := r.Preview(ctx, identity)
	if err != nil {
		return err
	}

	if output.IsTable(format) {
		if cs, err := r.Diff(ctx, identity); err == nil && cs.HasChanges() {
			if err := output.Write(out, format, table.ChangesToTableData(cs), cs); err != nil {
				return err
			}
		}
		fmt.Fprintln(out, preview.Summary())
	}

	if flags.DryRun {
		if !output.IsTable(format) {
			return output.Write(out, format, table.Data{}, preview)
		}
		return nil
	}

	if !prompt.Confirm(app.In(), out, fmt.Sprintf("Push %s?", identity), flags.Yes) {
		return nil
	}

	res, err := r.Push(ctx, identity)
	if err != nil {
		if res != nil && output.IsTable(format) {
			fmt.Fprintf(out, "%s %s\n", emoji.Error, res.Summary())
		}
		return err
	}

	if !output.IsTable(format) {
		return output.Write(out, format, table.Data{}, res)
	}
	if err := output.Write(out, format, table.LinesToTableData(res.Created), res); err != nil {
		return err
	}
	symbol := emoji.Success
	if res.HasFailures() {
		symbol = emoji.Warning
	}
	fmt.Fprintf(out, "%s %s\n", symbol, res.Summary())
	return nil
}
