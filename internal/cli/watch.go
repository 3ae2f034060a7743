package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ganot/timekeep/internal/app"
	"github.com/ganot/timekeep/internal/domain/session"
	"github.com/spf13/cobra"
)

func addWatchCommand(root *cobra.Command, flags *globalFlags) {
	var (
		interval time.Duration
		duration time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the session live, including changes made on other devices",
		Long: `watch prints the timer every interval and whenever the session document
changes. If another device owns the session you are asked to take it over or
abandon it; any other answer keeps watching.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.withController(cmd, func(ctx context.Context, _ *app.App, c *session.Controller) error {
				if duration > 0 {
					var cancel context.CancelFunc
					ctx, cancel = context.WithTimeout(ctx, duration)
					defer cancel()
				}
				w := &watcher{
					ctrl:     c,
					out:      cmd.OutOrStdout(),
					in:       bufio.NewReader(cmd.InOrStdin()),
					interval: interval,
				}
				return w.run(ctx)
			})
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "redraw interval")
	cmd.Flags().DurationVar(&duration, "for", 0, "stop watching after this long (0 watches until interrupted)")
	root.AddCommand(cmd)
}

type watcher struct {
	ctrl     *session.Controller
	out      io.Writer
	in       *bufio.Reader
	interval time.Duration

	lastSession string
	prompted    bool
}

func (w *watcher) run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	if err := w.render(ctx, w.ctrl.State()); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case st := <-w.ctrl.Updates():
			if err := w.render(ctx, st); err != nil {
				return err
			}
		case <-ticker.C:
			if err := w.render(ctx, w.ctrl.State()); err != nil {
				return err
			}
		}
	}
}

func (w *watcher) render(ctx context.Context, st session.TimerState) error {
	if st.SessionID != w.lastSession {
		w.lastSession = st.SessionID
		w.prompted = false
	}
	fmt.Fprintf(w.out, "[%s] ", w.ctrl.Now().Format(time.TimeOnly))
	printView(w.out, st.View(w.ctrl.Now()))

	if st.Conflict != session.ConflictDetected || w.prompted {
		return nil
	}
	w.prompted = true
	return w.resolveConflict(ctx)
}

// resolveConflict asks once per session. EOF on input means keep watching.
func (w *watcher) resolveConflict(ctx context.Context) error {
	fmt.Fprint(w.out, "Another device owns this session. [t]ake over, [a]bandon, or keep [w]atching? ")
	line, err := w.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "t", "take", "takeover":
		st, err := w.ctrl.TakeOver(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(w.out, "Took over the session")
		printView(w.out, st.View(w.ctrl.Now()))
	case "a", "abandon":
		if err := w.ctrl.Abandon(ctx); err != nil {
			return err
		}
		fmt.Fprintln(w.out, "Session left to the other device")
	default:
		fmt.Fprintln(w.out)
	}
	return nil
}
