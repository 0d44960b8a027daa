package cli

import (
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/ideas/internal/backend"
)

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Display an idea with full details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withBackend(cmd.Context(), func(b *backend.Backend) error {
				idea, err := findIdea(cmd.Context(), b.Store(), args[0])
				if err != nil {
					return err
				}
				if a.flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), idea)
				}
				return printIdea(cmd.OutOrStdout(), idea)
			})
		},
	}
}
