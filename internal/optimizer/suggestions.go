package optimizer

import (
	"fmt"
	"sort"

	"github.com/julianstephens/studylit/internal/constants"
	"github.com/julianstephens/studylit/internal/models"
)

// Optimization represents a suggested change to a subject
type Optimization struct {
	SubjectID      string                     `json:"subject_id"`
	SubjectName    string                     `json:"subject_name"`
	Type           constants.OptimizationType `json:"type"`
	Reason         string                     `json:"reason"`
	CurrentValue   interface{}                `json:"current_value,omitempty"`
	SuggestedValue interface{}                `json:"suggested_value,omitempty"`
}

// Suggestions reviews observed outcomes and proposes settings a user may want to
// change by hand. Subjects without enough observations get no suggestions.
func (a *Adapter) Suggestions(subjects []models.Subject) []Optimization {
	a.mu.RLock()
	defer a.mu.RUnlock()

	sorted := append([]models.Subject(nil), subjects...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	var optimizations []Optimization
	for _, subject := range sorted {
		st, ok := a.stats[subject.ID]
		if !ok || st.Observations < constants.MinObservationsForDelta {
			continue
		}
		delta := a.deltaFor(st)

		// Sessions consistently run long or short
		if st.Completed > 0 && st.Overrun > constants.OverrunSuggestion {
			optimizations = append(optimizations, Optimization{
				SubjectID:   subject.ID,
				SubjectName: subject.Name,
				Type:        constants.OptimizationIncreaseDuration,
				Reason:      fmt.Sprintf("sessions run %.0f%% over their planned length", st.Overrun*100),
				CurrentValue: map[string]interface{}{
					"max_session_min": a.cfg.MaxSessionMin,
				},
				SuggestedValue: map[string]interface{}{
					"max_session_min": a.cfg.MaxSessionMin + delta.DurationDeltaMin,
				},
			})
		} else if st.Completed > 0 && st.Overrun < -constants.OverrunSuggestion {
			optimizations = append(optimizations, Optimization{
				SubjectID:   subject.ID,
				SubjectName: subject.Name,
				Type:        constants.OptimizationReduceDuration,
				Reason:      fmt.Sprintf("sessions finish %.0f%% under their planned length", -st.Overrun*100),
				CurrentValue: map[string]interface{}{
					"max_session_min": a.cfg.MaxSessionMin,
				},
				SuggestedValue: map[string]interface{}{
					"max_session_min": a.cfg.MaxSessionMin + delta.DurationDeltaMin,
				},
			})
		}

		if st.SkipRate > constants.SkipRateReduceTarget && subject.TargetWeeklyMin > 0 {
			// Suggest reducing the weekly target by 25%
			newTarget := int(float64(subject.TargetWeeklyMin) * 0.75)
			optimizations = append(optimizations, Optimization{
				SubjectID:      subject.ID,
				SubjectName:    subject.Name,
				Type:           constants.OptimizationReduceTarget,
				Reason:         fmt.Sprintf("%d of %d recent sessions were skipped", st.Skipped, st.Observations),
				CurrentValue:   map[string]interface{}{"target_weekly_min": subject.TargetWeeklyMin},
				SuggestedValue: map[string]interface{}{"target_weekly_min": newTarget},
			})
		} else if st.SkipRate > constants.SkipRateSuggestion {
			optimizations = append(optimizations, Optimization{
				SubjectID:      subject.ID,
				SubjectName:    subject.Name,
				Type:           constants.OptimizationRaisePriority,
				Reason:         fmt.Sprintf("skip rate is %.0f%%; the planner already boosts it by %.0f%%", st.SkipRate*100, delta.PriorityDelta*100),
				CurrentValue:   map[string]interface{}{"priority": subject.Priority},
				SuggestedValue: map[string]interface{}{"priority": subject.Priority * (1 + delta.PriorityDelta)},
			})
		}
	}
	return optimizations
}
