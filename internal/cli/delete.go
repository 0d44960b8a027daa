package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/ideas/internal/backend"
)

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an idea",
		Long:  "Delete removes the idea with the given id. Deleting an id that does not exist succeeds.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return a.withBackend(cmd.Context(), func(b *backend.Backend) error {
				if err := b.Store().Delete(cmd.Context(), id); err != nil {
					return err
				}
				if a.flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), map[string]string{"deleted": id})
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "Deleted idea: %s\n", id)
				return err
			})
		},
	}
}
