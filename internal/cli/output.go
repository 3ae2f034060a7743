package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/ganot/timekeep/internal/domain/session"
	"github.com/ganot/timekeep/internal/domain/timer"
)

func printView(w io.Writer, v session.View) {
	if v.Phase == session.PhaseIdle {
		fmt.Fprintln(w, "No active session")
		return
	}
	project := v.ProjectName
	if project == "" {
		project = v.ProjectID
	}
	fmt.Fprintf(w, "%s  %s  %s\n", v.Elapsed, strings.ToUpper(string(v.Phase)), project)
	fmt.Fprintf(w, "  session:  %s\n", v.SessionID)
	fmt.Fprintf(w, "  billable: %s\n", yesNo(v.Billable))
	if v.PausedSeconds > 0 {
		fmt.Fprintf(w, "  paused:   %s\n", timer.Format(v.PausedSeconds))
	}
	if v.Notes != "" {
		fmt.Fprintf(w, "  notes:    %s\n", v.Notes)
	}
	if v.Conflict == session.ConflictDetected {
		fmt.Fprintln(w, "  ! another device owns this session; run `timekeep takeover` or `timekeep abandon`")
	}
}

func printSummary(w io.Writer, s *session.Summary) {
	if s.AlreadyFinalized {
		fmt.Fprintf(w, "Session %s was already stopped\n", s.SessionID)
	} else {
		fmt.Fprintf(w, "Stopped session %s\n", s.SessionID)
	}
	fmt.Fprintf(w, "  project:  %s\n", s.ProjectName)
	fmt.Fprintf(w, "  duration: %s\n", timer.Format(s.Duration))
	fmt.Fprintf(w, "  paused:   %s\n", timer.Format(s.Paused))
	fmt.Fprintf(w, "  tracked:  %d min\n", s.Minutes)
	if s.Billable {
		fmt.Fprintf(w, "  earnings: %.2f\n", s.Earnings)
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
