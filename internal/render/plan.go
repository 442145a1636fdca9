package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/julianstephens/studylit/internal/constants"
	"github.com/julianstephens/studylit/internal/models"
	"github.com/julianstephens/studylit/internal/planner"
)

// Minutes formats a duration in minutes as "1h 30m".
func Minutes(min int) string {
	if min < 60 {
		return fmt.Sprintf("%dm", min)
	}
	if min%60 == 0 {
		return fmt.Sprintf("%dh", min/60)
	}
	return fmt.Sprintf("%dh %dm", min/60, min%60)
}

func name(names map[string]string, id string) string {
	if n, ok := names[id]; ok && n != "" {
		return n
	}
	return id
}

// Plan writes a weekly plan grouped by day. States may be nil.
func Plan(w io.Writer, plan models.WeeklyPlan, names map[string]string, states []models.SessionState, now time.Time) {
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("Week of %s, %s revision", plan.WeekStart, humanize.Ordinal(plan.Revision))))
	fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("generated %s, profile v%d", humanize.RelTime(plan.GeneratedAt, now, "ago", "from now"), plan.ProfileVersion)))

	if len(plan.Sessions) == 0 {
		fmt.Fprintln(w, "\n  No study sessions scheduled for this week")
	}

	statusByID := make(map[string]models.SessionStatus, len(states))
	for _, st := range states {
		statusByID[st.SessionID] = st.Status
	}

	var day string
	for _, s := range plan.Sessions {
		if d := s.Start.Format("Monday Jan 2"); d != day {
			day = d
			fmt.Fprintln(w)
			fmt.Fprintln(w, dayStyle.Render(day))
		}
		status := statusByID[s.ID]
		if status == "" {
			status = models.SessionPlanned
		}
		span := s.Start.Format(constants.TimeFormat) + "–" + s.End.Format(constants.TimeFormat)
		fmt.Fprintf(w, "  %s%s%-8s %s  %s\n",
			timeStyle.Render(span),
			subjectStyle.Render(name(names, s.SubjectID)),
			Minutes(s.PlannedMin),
			statusStyles[string(status)].Render(string(status)),
			mutedStyle.Render(shortID(s.ID)),
		)
	}

	Warnings(w, plan, names)
}

// Warnings writes the shortfalls and warnings of a plan. Partial plans are
// still shown in full; this is only the trailer.
func Warnings(w io.Writer, plan models.WeeklyPlan, names map[string]string) {
	if !plan.Partial && len(plan.Warnings) == 0 {
		return
	}
	fmt.Fprintln(w)
	if plan.InsufficientAvailability {
		fmt.Fprintln(w, warnStyle.Render("⚠ Not enough free time this week to meet every target"))
	} else if plan.Partial {
		fmt.Fprintln(w, warnStyle.Render("⚠ Partial plan"))
	}
	for _, sf := range plan.Shortfalls {
		line := fmt.Sprintf("  %s: %s of %s planned (%s short)",
			name(names, sf.SubjectID), Minutes(sf.PlannedMin), Minutes(sf.TargetMin), Minutes(sf.ShortMin))
		if sf.WithinTolerance {
			line += " within tolerance"
		}
		fmt.Fprintln(w, warnStyle.Render(line))
	}
	for _, msg := range plan.Warnings {
		fmt.Fprintln(w, mutedStyle.Render("  "+msg))
	}
}

// PlanList writes the plan history.
func PlanList(w io.Writer, plans []models.PlanSummary, now time.Time) {
	if len(plans) == 0 {
		fmt.Fprintln(w, "No plans yet. Run 'studylit plan' to create one.")
		return
	}
	for _, p := range plans {
		flag := ""
		if p.Partial {
			flag = warnStyle.Render(" partial")
		}
		fmt.Fprintf(w, "%s  rev %-3d %3d sessions  %-8s %s%s\n",
			dayStyle.Render(p.WeekStart),
			p.Revision,
			p.Sessions,
			Minutes(p.PlannedMin),
			mutedStyle.Render(humanize.RelTime(p.GeneratedAt, now, "ago", "from now")),
			flag,
		)
		fmt.Fprintf(w, "            %s\n", mutedStyle.Render(p.ID))
	}
}

// Overview writes the per-subject weekly breakdown.
func Overview(w io.Writer, ov planner.Overview, names map[string]string) {
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("Week of %s overview", ov.WeekStart)))
	fmt.Fprintf(w, "  %d sessions, %s planned, %s done (%d completed, %d skipped)\n",
		ov.Sessions, Minutes(ov.TotalMin), Minutes(ov.CompletedMin), ov.Completed, ov.Skipped)
	for _, so := range ov.Subjects {
		fmt.Fprintf(w, "  %s%-8s %5.1f%%  %d sessions\n",
			subjectStyle.Render(name(names, so.SubjectID)), Minutes(so.PlannedMin), so.Percent, so.Sessions)
	}
}

func shortID(id string) string {
	if i := strings.LastIndex(id, "-"); i >= 0 && len(id)-i > 1 {
		return id[i+1:]
	}
	return id
}
