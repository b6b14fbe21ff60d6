// Package pull provides the pull command.
package pull

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentstation/bomsync/internal/appcontext"
	"github.com/agentstation/bomsync/internal/cmd/emoji"
	"github.com/agentstation/bomsync/internal/cmd/output"
	"github.com/agentstation/bomsync/internal/cmd/prompt"
	"github.com/agentstation/bomsync/internal/cmd/table"
)

// NewCommand creates the pull command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "pull <entity>",
		GroupID: "core",
		Short:   "Overwrite an entity's sheet lines with its remote BOM",
		Long: `Pull replaces the entity's rows in the sheet with the lines currently
stored in the PLM and marks the entity SYNCED. The differences are shown
first and the sheet is written only after confirmation.`,
		Example: `  bomsync pull RACK-1
  bomsync pull RACK-1 -y`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := app.Out()
			identity := args[0]
			format := output.Format(app.OutputFormat())

			r, err := app.Reconciler(ctx)
			if err != nil {
				return err
			}

			cs, err := r.Diff(ctx, identity)
			if err != nil {
				return err
			}
			if !cs.HasChanges() {
				fmt.Fprintf(out, "%s %s: sheet already matches the PLM\n", emoji.Success, identity)
				return nil
			}
			if output.IsTable(format) {
				if err := output.Write(out, format, table.ChangesToTableData(cs), cs); err != nil {
					return err
				}
			}

			if !prompt.Confirm(app.In(), out, fmt.Sprintf("Overwrite the sheet rows of %s?", identity), yes) {
				return nil
			}

			res, err := r.Pull(ctx, identity)
			if err != nil {
				return err
			}
			if !output.IsTable(format) {
				return output.Write(out, format, table.Data{}, res)
			}
			fmt.Fprintf(out, "%s %s: wrote %d lines from %s\n", emoji.Success, identity, len(res.Lines), res.RemoteRef)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "pull without asking for confirmation")

	return cmd
}
