package render

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/julianstephens/studylit/internal/constants"
	"github.com/julianstephens/studylit/internal/optimizer"
	"github.com/julianstephens/studylit/internal/productivity"
)

// Profile writes the productivity heatmap, peak hours and learned subject estimates.
func Profile(w io.Writer, p *productivity.Profile, peaks []productivity.HourScore, names map[string]string) {
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("Productivity profile v%d", p.Version)))

	fmt.Fprint(w, "\n     ")
	for h := 0; h < constants.HoursPerDay; h += 6 {
		fmt.Fprintf(w, "%-6d", h)
	}
	fmt.Fprintln(w)
	for d := time.Sunday; d <= time.Saturday; d++ {
		var row strings.Builder
		for h := 0; h < constants.HoursPerDay; h++ {
			row.WriteRune(shade(p.Score(d, h)))
		}
		fmt.Fprintf(w, "%s  %s\n", dayStyle.Render(d.String()[:3]), row.String())
	}

	if len(peaks) > 0 {
		var parts []string
		for _, ph := range peaks {
			parts = append(parts, fmt.Sprintf("%02d:00 (%.2f)", ph.Hour, ph.Score))
		}
		fmt.Fprintf(w, "\nPeak hours: %s\n", strings.Join(parts, ", "))
	}

	if len(p.Subjects) == 0 {
		return
	}
	ids := make([]string, 0, len(p.Subjects))
	for id := range p.Subjects {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	fmt.Fprintln(w)
	for _, id := range ids {
		est := p.Subjects[id]
		fmt.Fprintf(w, "  %sdifficulty %.2f  completion %3.0f%%  %d sessions, %d ratings\n",
			subjectStyle.Render(name(names, id)), est.Difficulty, est.CompletionRate*100, est.Sessions, est.Samples)
	}
}

func shade(score float64) rune {
	if score <= 0 {
		return heatRamp[0]
	}
	i := int(math.Ceil(score*float64(len(heatRamp)-1)))
	if i >= len(heatRamp) {
		i = len(heatRamp) - 1
	}
	return heatRamp[i]
}

// Suggestions writes optimizer suggestions, numbered from 1.
func Suggestions(w io.Writer, opts []optimizer.Optimization) {
	if len(opts) == 0 {
		fmt.Fprintln(w, okStyle.Render("No changes suggested. Subjects are tracking their plans."))
		return
	}
	for i, opt := range opts {
		fmt.Fprintf(w, "%d. %s %s\n", i+1, subjectStyle.UnsetWidth().Render(opt.SubjectName), mutedStyle.Render("("+string(opt.Type)+")"))
		fmt.Fprintf(w, "   %s\n", opt.Reason)
		if opt.SuggestedValue != nil {
			fmt.Fprintf(w, "   current: %v  suggested: %v\n", opt.CurrentValue, opt.SuggestedValue)
		}
	}
}
