package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/ideas/internal/backend"
	"github.com/mesh-intelligence/ideas/pkg/types"
)

func newUpdateCmd(a *app) *cobra.Command {
	var (
		title       string
		description string
		rating      int
		clearRating bool
	)
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change an idea",
		Long: `Update changes the given fields of an idea and refreshes its update time.
Fields that are not passed keep their value. An empty --description removes
the description; --clear-rating removes the rating.

Example:
  ideas update 0192f0c4-... --rating 9
  ideas update 0192f0c4-... --title "Plan summer trip" --description ""`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch types.Patch
			if cmd.Flags().Changed("title") {
				patch.Title = types.StringPtr(title)
			}
			if cmd.Flags().Changed("description") {
				patch.Description = types.StringPtr(description)
			}
			if cmd.Flags().Changed("rating") {
				if clearRating {
					return errors.New("--rating and --clear-rating are mutually exclusive")
				}
				patch.Rating = types.IntPtr(rating)
			}
			patch.ClearRating = clearRating
			if patch.Empty() {
				return errors.New("nothing to update: pass --title, --description, --rating, or --clear-rating")
			}

			return a.withBackend(cmd.Context(), func(b *backend.Backend) error {
				idea, err := b.Store().Update(cmd.Context(), args[0], patch)
				if err != nil {
					return err
				}
				if a.flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), idea)
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "Updated idea: %s\n", idea.ID)
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "new title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "new description; empty removes it")
	cmd.Flags().IntVarP(&rating, "rating", "r", 0, "new rating from 0 to 10")
	cmd.Flags().BoolVar(&clearRating, "clear-rating", false, "remove the rating")
	return cmd
}
