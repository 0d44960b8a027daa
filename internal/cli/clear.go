package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/ideas/internal/backend"
)

func newClearCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every idea",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to delete every idea without --yes")
			}
			return a.withBackend(cmd.Context(), func(b *backend.Backend) error {
				if err := b.Store().Clear(cmd.Context()); err != nil {
					return err
				}
				if a.flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), map[string]bool{"cleared": true})
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "All ideas deleted")
				return err
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm deleting every idea")
	return cmd
}
