// Package cli implements the ideas command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/ideas/internal/backend"
	"github.com/mesh-intelligence/ideas/internal/logger"
	"github.com/mesh-intelligence/ideas/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values for one command tree.
type rootFlags struct {
	configDir string
	dataDir   string
	backend   string
	jsonMode  bool
}

// app is the state shared by the subcommands of one root command.
type app struct {
	flags rootFlags
	conf  settings
	log   *logger.Logger
}

// NewRootCmd creates the top-level "ideas" command with global flags and
// all subcommands registered. Each call returns an independent tree.
func NewRootCmd() *cobra.Command {
	a := &app{log: logger.Discard()}

	root := &cobra.Command{
		Use:   "ideas",
		Short: "Capture, rate, and browse ideas",
		Long:  "Ideas keeps a collection of short notes with an optional rating.\nNotes are stored locally (SQLite or a JSON file) or in a shared PostgreSQL database.",
		// Do not print usage on errors returned by subcommands.
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.setup()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.log.Close()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: $XDG_CONFIG_HOME/ideas)")
	pf.StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: $(CWD)/.ideas-db)")
	pf.StringVar(&a.flags.backend, "backend", "", "storage backend: sqlite, file, memory, postgres")
	pf.BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(a),
		newAddCmd(a),
		newUpdateCmd(a),
		newDeleteCmd(a),
		newListCmd(a),
		newShowCmd(a),
		newClearCmd(a),
		newWatchCmd(a),
	)
	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	os.Exit(run(context.Background(), NewRootCmd(), os.Args[1:], os.Stderr))
}

// run executes root with args and returns the process exit code.
func run(ctx context.Context, root *cobra.Command, args []string, stderr io.Writer) int {
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, "ideas:", err)
		return exitCode(err)
	}
	return exitSuccess
}

// setup loads configuration and builds the logger.
func (a *app) setup() error {
	conf, err := loadSettings(a.flags)
	if err != nil {
		return err
	}
	a.conf = conf
	a.log = logger.New(logger.Config{
		Level:       logger.ParseLevel(conf.LogLevel),
		LogFilePath: conf.LogFile,
	})
	return nil
}

// open opens the configured backend. The caller must Close it.
func (a *app) open(ctx context.Context) (*backend.Backend, error) {
	return backend.Open(ctx, a.conf.Store, a.log)
}

// sysError marks err as an environment failure rather than bad input.
type sysError struct{ err error }

func (e *sysError) Error() string { return e.err.Error() }
func (e *sysError) Unwrap() error { return e.err }

// exitCode maps an error to the process exit code. Storage, network, and
// environment failures exit with exitSysError; everything else is treated
// as a usage or input problem.
func exitCode(err error) int {
	var se *sysError
	switch {
	case err == nil:
		return exitSuccess
	case errors.As(err, &se),
		errors.Is(err, types.ErrStorage),
		errors.Is(err, types.ErrNetwork),
		errors.Is(err, types.ErrClosed):
		return exitSysError
	default:
		return exitUserError
	}
}
