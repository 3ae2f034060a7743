package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/ganot/timekeep/internal/domain/activity"
	"github.com/ganot/timekeep/internal/domain/profile"
	"github.com/ganot/timekeep/internal/domain/project"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func addProjectCommands(root *cobra.Command, flags *globalFlags) {
	projects := &cobra.Command{
		Use:   "projects",
		Short: "List projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := flags.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			list, err := a.Projects.List(cmdContext(cmd), a.Config.Device.UserID)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No projects. Add one with `timekeep projects add <name>`.")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tRATE\tLAST TRACKED")
			for _, p := range list {
				last := "-"
				if p.LastTrackedTime != nil {
					last = p.LastTrackedTime.Local().Format("2006-01-02 15:04")
				}
				fmt.Fprintf(tw, "%s\t%s\t%.2f\t%s\n", p.ID, p.Name, p.HourlyRate, last)
			}
			return tw.Flush()
		},
	}

	var req project.CreateRequest
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := flags.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			req.Name = args[0]
			p, err := a.Projects.Create(cmdContext(cmd), a.Config.Device.UserID, req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created project %s (%s)\n", p.Name, p.ID)
			return nil
		},
	}
	add.Flags().StringVar(&req.ID, "id", "", "project id (generated when empty)")
	add.Flags().StringVar(&req.Description, "description", "", "project description")
	add.Flags().Float64Var(&req.HourlyRate, "rate", 0, "hourly rate for billable time")
	projects.AddCommand(add)

	root.AddCommand(projects, newProfileCmd(flags), newLogCmd(flags))
}

func newProfileCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Show tracked time totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := flags.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			p, err := a.Profiles.Get(cmdContext(cmd), a.Config.Device.UserID)
			if err != nil {
				return err
			}
			now := time.Now()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "This week (since %s): %s\n", profile.WeekStart(now).Format(time.DateOnly), minutes(p.WeeklyAt(now)))
			fmt.Fprintf(out, "All time:                  %s\n", minutes(p.TotalTrackedTime))
			return nil
		},
	}
}

func newLogCmd(flags *globalFlags) *cobra.Command {
	var (
		limit     int
		sessionID string
		projectID string
	)
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show recent session activity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := flags.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			opts := activity.ListActivityOptions{ProjectID: projectID, Limit: limit}
			if sessionID != "" {
				opts.SessionID = &sessionID
			}
			entries, err := a.Activity.GetRecentActivity(cmdContext(cmd), a.Config.Device.UserID, opts)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tTYPE\tPROJECT\tSUMMARY")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.CreatedAt.Local().Format(time.DateTime), e.ActivityType, e.ProjectID, e.Summary)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "maximum entries to show")
	cmd.Flags().StringVar(&sessionID, "session", "", "only this session")
	cmd.Flags().StringVar(&projectID, "project", "", "only this project")
	return cmd
}

func addKeyCommands(root *cobra.Command, flags *globalFlags) {
	keys := &cobra.Command{
		Use:   "key",
		Short: "Manage API keys for the HTTP server",
	}
	var description string
	add := &cobra.Command{
		Use:   "add",
		Short: "Create an API key for the configured user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := flags.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			token := uuid.NewString()
			if err := a.APIKeys.Create(cmdContext(cmd), a.Config.Device.UserID, token, description); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	add.Flags().StringVar(&description, "description", "", "what the key is for")
	keys.AddCommand(add)
	root.AddCommand(keys)
}

func minutes(m int64) string {
	return fmt.Sprintf("%dh %02dm", m/60, m%60)
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
