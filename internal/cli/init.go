package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/ideas/internal/paths"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize ideas storage",
		Long:  "Create the configuration file and data directory, then open and close the storage backend once.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			if err := b.Close(); err != nil {
				return &sysError{fmt.Errorf("finalize storage: %w", err)}
			}

			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]string{
					"config_file": paths.ConfigFile(a.conf.ConfigDir),
					"data_dir":    a.conf.Store.DataDir,
					"backend":     a.conf.Store.Backend,
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config:  %s\n", paths.ConfigFile(a.conf.ConfigDir))
			fmt.Fprintf(out, "Data:    %s\n", a.conf.Store.DataDir)
			fmt.Fprintf(out, "Backend: %s\n", a.conf.Store.Backend)
			fmt.Fprintln(out, "Ideas initialized successfully")
			return nil
		},
	}
}
