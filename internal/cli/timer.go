package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/ganot/timekeep/internal/app"
	"github.com/ganot/timekeep/internal/domain/session"
	"github.com/spf13/cobra"
)

func addTimerCommands(root *cobra.Command, flags *globalFlags) {
	root.AddCommand(
		newStartCmd(flags),
		stateCmd(flags, "pause", "Pause the running session", (*session.Controller).Pause),
		stateCmd(flags, "resume", "Resume the paused session", (*session.Controller).Resume),
		stateCmd(flags, "takeover", "Take ownership of a session another device started", (*session.Controller).TakeOver),
		newStopCmd(flags),
		newResetCmd(flags),
		newStatusCmd(flags),
		newAbandonCmd(flags),
		newSignOutCmd(flags),
		newNotesCmd(flags),
		newBillableCmd(flags),
		newSwitchProjectCmd(flags),
	)
}

func newStartCmd(flags *globalFlags) *cobra.Command {
	var (
		projectID  string
		notes      string
		noBillable bool
	)
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a session on a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.withController(cmd, func(ctx context.Context, _ *app.App, c *session.Controller) error {
				st, err := c.Start(ctx, session.StartRequest{
					ProjectID: projectID,
					Billable:  !noBillable,
					Notes:     notes,
				})
				if err != nil {
					return err
				}
				printView(cmd.OutOrStdout(), st.View(c.Now()))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&projectID, "project", "p", "", "project id")
	cmd.Flags().StringVarP(&notes, "notes", "n", "", "session notes")
	cmd.Flags().BoolVar(&noBillable, "no-billable", false, "mark the session non-billable")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

// stateCmd wraps a controller transition that takes no arguments.
func stateCmd(flags *globalFlags, use, short string, op func(*session.Controller, context.Context) (session.TimerState, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.withController(cmd, func(ctx context.Context, _ *app.App, c *session.Controller) error {
				st, err := op(c, ctx)
				if err != nil {
					return err
				}
				printView(cmd.OutOrStdout(), st.View(c.Now()))
				return nil
			})
		},
	}
}

func newStopCmd(flags *globalFlags) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the session and record its time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.withController(cmd, func(ctx context.Context, _ *app.App, c *session.Controller) error {
				if c.State().SessionID == "" {
					return session.ErrNoActiveSession
				}
				if !yes {
					ok, err := confirm(cmd, fmt.Sprintf("Stop session at %s?", c.State().View(c.Now()).Elapsed))
					if err != nil || !ok {
						fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
						return err
					}
				}
				summary, err := c.Stop(ctx)
				if err != nil {
					return err
				}
				printSummary(cmd.OutOrStdout(), summary)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func newResetCmd(flags *globalFlags) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Discard the session without recording time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.withController(cmd, func(ctx context.Context, _ *app.App, c *session.Controller) error {
				if c.State().SessionID == "" {
					return session.ErrNothingToReset
				}
				if !yes {
					ok, err := confirm(cmd, "Discard this session? Its time will not be recorded.")
					if err != nil || !ok {
						fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
						return err
					}
				}
				if err := c.Reset(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Session discarded")
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func newStatusCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.withController(cmd, func(_ context.Context, _ *app.App, c *session.Controller) error {
				printView(cmd.OutOrStdout(), c.State().View(c.Now()))
				return nil
			})
		},
	}
}

func newAbandonCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "abandon",
		Short: "Leave another device's session alone and go idle here",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.withController(cmd, func(ctx context.Context, _ *app.App, c *session.Controller) error {
				if err := c.Abandon(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Session left to the other device")
				return nil
			})
		},
	}
}

func newSignOutCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Pause an owned session and forget this device's ownership",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.withController(cmd, func(ctx context.Context, _ *app.App, c *session.Controller) error {
				if err := c.SignOut(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
				return nil
			})
		},
	}
}

func newNotesCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "notes <text>",
		Short: "Replace the session notes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.withController(cmd, func(ctx context.Context, _ *app.App, c *session.Controller) error {
				st, err := c.SetNotes(ctx, strings.Join(args, " "))
				if err != nil {
					return err
				}
				if err := c.FlushNotes(ctx); err != nil {
					return err
				}
				printView(cmd.OutOrStdout(), st.View(c.Now()))
				return nil
			})
		},
	}
}

func newBillableCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:       "billable on|off",
		Short:     "Mark the session billable or not",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var billable bool
			switch args[0] {
			case "on", "yes", "true":
				billable = true
			case "off", "no", "false":
			default:
				return fmt.Errorf("%w: billable takes on or off, got %q", session.ErrInvalidInput, args[0])
			}
			return flags.withController(cmd, func(ctx context.Context, _ *app.App, c *session.Controller) error {
				st, err := c.SetBillable(ctx, billable)
				if err != nil {
					return err
				}
				printView(cmd.OutOrStdout(), st.View(c.Now()))
				return nil
			})
		},
	}
}

func newSwitchProjectCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "switch <project-id>",
		Short: "Move the session to another project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.withController(cmd, func(ctx context.Context, _ *app.App, c *session.Controller) error {
				st, err := c.SetProject(ctx, args[0], "")
				if err != nil {
					return err
				}
				printView(cmd.OutOrStdout(), st.View(c.Now()))
				return nil
			})
		},
	}
}
