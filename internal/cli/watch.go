package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/ideas/internal/backend"
	"github.com/mesh-intelligence/ideas/pkg/types"
)

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print changes as they happen",
		Long: `Watch prints each create, update, and delete until interrupted.
With the postgres backend it reports changes made by every client of the
same owner. The local backends only see changes made by this process.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return a.withBackend(ctx, func(b *backend.Backend) error {
				changes, err := b.Feed().Subscribe(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for c := range changes {
					if err := printChange(out, c, a.flags.jsonMode); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func printChange(w io.Writer, c types.Change, jsonMode bool) error {
	if jsonMode {
		return printJSON(w, c)
	}
	_, err := fmt.Fprintf(w, "%-6s %s %s\n", c.Op, c.Idea.ID, c.Idea.Title)
	return err
}
