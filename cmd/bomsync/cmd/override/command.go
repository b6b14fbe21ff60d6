// Package override provides the override command.
package override

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentstation/bomsync/internal/appcontext"
	"github.com/agentstation/bomsync/internal/cmd/emoji"
	"github.com/agentstation/bomsync/internal/cmd/output"
	"github.com/agentstation/bomsync/internal/cmd/table"
	"github.com/agentstation/bomsync/pkg/status"
)

// NewCommand creates the override command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	var actor string

	cmd := &cobra.Command{
		Use:     "override <entity> <status>",
		GroupID: "core",
		Short:   "Force an entity's status",
		Long: `Override sets an entity's status without contacting the PLM and records
who did it. It is the way out of ERROR when the remote BOM was fixed by hand.

Valid statuses: ` + validStatuses(),
		Example: `  bomsync override RACK-1 SYNCED --actor alice`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			to, err := status.Parse(args[1])
			if err != nil {
				return err
			}

			r, err := app.Reconciler(ctx)
			if err != nil {
				return err
			}

			eval, err := r.Override(ctx, args[0], to, actor)
			if err != nil {
				return err
			}

			format := output.Format(app.OutputFormat())
			if !output.IsTable(format) {
				return output.Write(app.Out(), format, table.Data{}, eval)
			}
			fmt.Fprintf(app.Out(), "%s %s: %s → %s\n", emoji.ForStatus(eval.Status), eval.Identity, eval.Previous, eval.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&actor, "actor", os.Getenv("USER"), "who is overriding, recorded in the history")

	return cmd
}

func validStatuses() string {
	all := status.All()
	names := make([]string, len(all))
	for i, s := range all {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}
