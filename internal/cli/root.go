// Package cli is the timekeep command tree. Each invocation is a device
// acting on the shared database through its local state file.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ganot/timekeep/internal/app"
	"github.com/ganot/timekeep/internal/config"
	"github.com/ganot/timekeep/internal/domain/session"
	"github.com/spf13/cobra"
)

type globalFlags struct {
	dbPath    string
	statePath string
	userID    string
	verbose   bool
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:   "timekeep",
		Short: "Track work time against projects, across devices",
		Long: `timekeep runs one session timer per user. Sessions live in a shared database,
so a timer started on one device can be watched, paused or stopped from another.
A device that did not start the session must take it over before changing it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.dbPath, "db", "", "database path (overrides TIMEKEEP_DB_PATH)")
	root.PersistentFlags().StringVar(&flags.statePath, "state", "", "device state file (overrides TIMEKEEP_STATE_PATH)")
	root.PersistentFlags().StringVar(&flags.userID, "user", "", "user id (overrides TIMEKEEP_USER_ID)")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "log debug output to stderr")

	addTimerCommands(root, flags)
	addWatchCommand(root, flags)
	addProjectCommands(root, flags)
	addKeyCommands(root, flags)
	return root
}

// Execute runs the command tree against os.Args.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (f *globalFlags) config() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if f.dbPath != "" {
		cfg.DB.Path = f.dbPath
	}
	if f.statePath != "" {
		cfg.Device.StatePath = f.statePath
	}
	if f.userID != "" {
		cfg.Device.UserID = f.userID
	}
	return cfg, nil
}

// open builds the app. The CLI logs warnings only unless --verbose.
func (f *globalFlags) open(cmd *cobra.Command) (*app.App, error) {
	cfg, err := f.config()
	if err != nil {
		return nil, err
	}
	level := "warn"
	if f.verbose {
		level = "debug"
	}
	return app.Open(cfg, app.NewLogger(cmd.ErrOrStderr(), level))
}

// withController opens the app and a loaded controller for the configured
// user, runs fn and closes both. Pending notes are flushed on close.
func (f *globalFlags) withController(cmd *cobra.Command, fn func(ctx context.Context, a *app.App, c *session.Controller) error) error {
	a, err := f.open(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctrl, err := a.NewController(a.Config.Device.UserID)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	ctx := cmdContext(cmd)
	if _, err := ctrl.Load(ctx); err != nil {
		return err
	}
	return fn(ctx, a, ctrl)
}

// confirm asks a yes/no question on the command's input. Anything but y/yes
// is a no.
func confirm(cmd *cobra.Command, prompt string) (bool, error) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N] ", prompt)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
