package validation

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/julianstephens/studylit/internal/constants"
	"github.com/julianstephens/studylit/internal/models"
	"github.com/julianstephens/studylit/internal/utils"
)

// ConflictType represents the type of validation conflict
type ConflictType string

const (
	ConflictDuplicateSubjectID   ConflictType = "duplicate_subject_id"
	ConflictDuplicateSubjectName ConflictType = "duplicate_subject_name"
	ConflictInvalidPriority      ConflictType = "invalid_priority"
	ConflictInvalidTarget        ConflictType = "invalid_target"
	ConflictInvalidDifficulty    ConflictType = "invalid_difficulty"
	ConflictInvalidDateTime      ConflictType = "invalid_datetime"
	ConflictInvalidSettings      ConflictType = "invalid_settings"
	ConflictOverlappingSessions  ConflictType = "overlapping_sessions"
	ConflictOutsideAvailability  ConflictType = "outside_availability"
	ConflictOverTarget           ConflictType = "over_target"
	ConflictUnknownSubject       ConflictType = "unknown_subject"
)

// Conflict represents a detected conflict in planning input or a plan
type Conflict struct {
	Type        ConflictType
	Description string
	Items       []string // IDs of the subjects, blocks or sessions involved
	// Blocking conflicts make the input unusable for planning.
	Blocking bool
}

// ValidationResult contains all detected conflicts
type ValidationResult struct {
	Conflicts []Conflict
}

// HasConflicts returns true if there are any conflicts
func (vr *ValidationResult) HasConflicts() bool {
	return len(vr.Conflicts) > 0
}

// Blocking returns the conflicts that prevent planning.
func (vr *ValidationResult) Blocking() []Conflict {
	var out []Conflict
	for _, c := range vr.Conflicts {
		if c.Blocking {
			out = append(out, c)
		}
	}
	return out
}

// FormatReport returns a human-readable report of all conflicts
func (vr *ValidationResult) FormatReport() string {
	if !vr.HasConflicts() {
		return "No conflicts detected."
	}

	var b strings.Builder
	b.WriteString("Conflicts detected:\n")
	for _, conflict := range vr.Conflicts {
		fmt.Fprintf(&b, "- %s\n", conflict.Description)
	}
	return b.String()
}

func (vr *ValidationResult) add(c Conflict) {
	vr.Conflicts = append(vr.Conflicts, c)
}

// Validator validates planning input and issued plans
type Validator struct{}

// New creates a new Validator
func New() *Validator {
	return &Validator{}
}

// ValidateState checks a user snapshot for structural problems.
// Empty availability is not a conflict.
func (v *Validator) ValidateState(state models.UserState) ValidationResult {
	result := ValidationResult{Conflicts: []Conflict{}}

	if err := state.Settings.Validate(); err != nil {
		result.add(Conflict{
			Type:        ConflictInvalidSettings,
			Description: fmt.Sprintf("Invalid settings: %v", err),
			Blocking:    true,
		})
	}

	seenIDs := make(map[string]bool)
	names := make(map[string][]string)
	for _, subject := range state.Subjects {
		if subject.DeletedAt != nil {
			continue
		}
		if seenIDs[subject.ID] {
			result.add(Conflict{
				Type:        ConflictDuplicateSubjectID,
				Description: fmt.Sprintf("Duplicate subject ID: %s", subject.ID),
				Items:       []string{subject.ID},
				Blocking:    true,
			})
		}
		seenIDs[subject.ID] = true

		if subject.Name != "" {
			key := strings.ToLower(subject.Name)
			names[key] = append(names[key], subject.ID)
		}

		if subject.Priority <= 0 {
			result.add(Conflict{
				Type:        ConflictInvalidPriority,
				Description: fmt.Sprintf("Subject \"%s\" has non-positive priority %g", subject.Name, subject.Priority),
				Items:       []string{subject.ID},
				Blocking:    true,
			})
		}
		if subject.TargetWeeklyMin < 0 {
			result.add(Conflict{
				Type:        ConflictInvalidTarget,
				Description: fmt.Sprintf("Subject \"%s\" has negative weekly target %d", subject.Name, subject.TargetWeeklyMin),
				Items:       []string{subject.ID},
				Blocking:    true,
			})
		}
		if subject.Difficulty != "" && !subject.Difficulty.Valid() {
			result.add(Conflict{
				Type:        ConflictInvalidDifficulty,
				Description: fmt.Sprintf("Subject \"%s\" has unknown difficulty %q (treated as medium)", subject.Name, subject.Difficulty),
				Items:       []string{subject.ID},
			})
		}
	}

	dupNames := make([]string, 0)
	for name, ids := range names {
		if len(ids) > 1 {
			dupNames = append(dupNames, name)
		}
	}
	sort.Strings(dupNames)
	for _, name := range dupNames {
		result.add(Conflict{
			Type:        ConflictDuplicateSubjectName,
			Description: fmt.Sprintf("Duplicate subject name: \"%s\" (IDs: %v)", name, names[name]),
			Items:       names[name],
		})
	}

	for _, block := range state.Availability {
		if !utils.ValidateTimeFormat(block.Start) || !utils.ValidateTimeFormat(block.End) {
			result.add(Conflict{
				Type:        ConflictInvalidDateTime,
				Description: fmt.Sprintf("Availability block %s has invalid time range %s-%s", block.ID, block.Start, block.End),
				Items:       []string{block.ID},
				Blocking:    true,
			})
		}
		if !block.Recurring && !isValidDate(block.Date) {
			result.add(Conflict{
				Type:        ConflictInvalidDateTime,
				Description: fmt.Sprintf("One-off availability block %s has invalid date %q", block.ID, block.Date),
				Items:       []string{block.ID},
				Blocking:    true,
			})
		}
	}

	for _, c := range state.Commitments {
		if !utils.ValidateTimeFormat(c.Start) || !utils.ValidateTimeFormat(c.End) {
			result.add(Conflict{
				Type:        ConflictInvalidDateTime,
				Description: fmt.Sprintf("Commitment \"%s\" has invalid time range %s-%s", c.Label, c.Start, c.End),
				Items:       []string{c.ID},
				Blocking:    true,
			})
		}
	}

	return result
}

// ValidatePlan checks an issued plan against the free slots it was built from.
func (v *Validator) ValidatePlan(plan models.WeeklyPlan, slots []models.TimeSlot, subjects []models.Subject, settings models.Settings) ValidationResult {
	result := ValidationResult{Conflicts: []Conflict{}}

	sessions := append([]models.StudySession(nil), plan.Sessions...)
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].Start.Before(sessions[j].Start)
	})

	// Sorted by start, so only neighbours can overlap first.
	for i := 1; i < len(sessions); i++ {
		prev, cur := sessions[i-1], sessions[i]
		if prev.Overlaps(cur) {
			result.add(Conflict{
				Type: ConflictOverlappingSessions,
				Description: fmt.Sprintf("Sessions overlap: %s (%s) and %s (%s)",
					prev.SubjectID, formatRange(prev), cur.SubjectID, formatRange(cur)),
				Items: []string{prev.ID, cur.ID},
			})
		}
	}

	for _, s := range sessions {
		inside := false
		for _, slot := range slots {
			if slot.Contains(s.Start, s.End) {
				inside = true
				break
			}
		}
		if !inside {
			result.add(Conflict{
				Type:        ConflictOutsideAvailability,
				Description: fmt.Sprintf("Session %s for %s (%s) is outside available time", s.ID, s.SubjectID, formatRange(s)),
				Items:       []string{s.ID},
			})
		}
	}

	byID := make(map[string]models.Subject, len(subjects))
	for _, sub := range subjects {
		byID[sub.ID] = sub
	}
	planned := plan.PlannedMinutes()
	ids := make([]string, 0, len(planned))
	for id := range planned {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		sub, ok := byID[id]
		if !ok {
			result.add(Conflict{
				Type:        ConflictUnknownSubject,
				Description: fmt.Sprintf("Plan has sessions for unknown subject %s", id),
				Items:       []string{id},
			})
			continue
		}
		if limit := sub.TargetWeeklyMin + settings.ToleranceMin(sub.TargetWeeklyMin); planned[id] > limit {
			result.add(Conflict{
				Type:        ConflictOverTarget,
				Description: fmt.Sprintf("Subject \"%s\" planned for %d minutes, above target %d plus tolerance", sub.Name, planned[id], sub.TargetWeeklyMin),
				Items:       []string{id},
			})
		}
	}

	return result
}

func isValidDate(date string) bool {
	_, err := time.Parse(constants.DateFormat, date)
	return err == nil
}

func formatRange(s models.StudySession) string {
	return fmt.Sprintf("%s %s-%s", s.Start.Format("Mon"), s.Start.Format(constants.TimeFormat), s.End.Format(constants.TimeFormat))
}
