package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/ideas/internal/backend"
	"github.com/mesh-intelligence/ideas/pkg/types"
)

func newAddCmd(a *app) *cobra.Command {
	var (
		description string
		rating      int
	)
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add an idea",
		Long: `Add stores a new idea with the given title.

Titles are limited to 200 characters and descriptions to 1000. Ratings run
from 0 to 10 and are optional.

Example:
  ideas add "Plan trip" --rating 3
  ideas add "Write report" --description "quarterly numbers" --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			draft := types.Draft{Title: args[0], Description: description}
			if cmd.Flags().Changed("rating") {
				draft.Rating = types.IntPtr(rating)
			}

			return a.withBackend(cmd.Context(), func(b *backend.Backend) error {
				idea, err := b.Store().Add(cmd.Context(), draft)
				if err != nil {
					return err
				}
				if a.flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), idea)
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "Added idea: %s\n", idea.ID)
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "optional description")
	cmd.Flags().IntVarP(&rating, "rating", "r", 0, "optional rating from 0 to 10")
	return cmd
}
