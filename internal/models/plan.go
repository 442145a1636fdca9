package models

import "time"

type BlockKind string

const (
	BlockSleep BlockKind = "sleep"
	BlockBusy  BlockKind = "busy"
	BlockBreak BlockKind = "break"
)

// PlanBlock is a fixed, non-study block shown alongside sessions.
type PlanBlock struct {
	Kind  BlockKind `json:"kind"`
	Label string    `json:"label,omitempty"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Shortfall reports a subject whose weekly target could not be fully planned.
type Shortfall struct {
	SubjectID       string `json:"subject_id"`
	TargetMin       int    `json:"target_min"`
	PlannedMin      int    `json:"planned_min"`
	ShortMin        int    `json:"short_min"`
	WithinTolerance bool   `json:"within_tolerance"`
}

// WeeklyPlan is an issued timetable for one week. Plans are immutable and
// versioned: each revision produces a new plan and prior plans are kept.
type WeeklyPlan struct {
	ID                       string         `json:"id"`
	UserID                   string         `json:"user_id"`
	WeekStart                string         `json:"week_start"` // YYYY-MM-DD format
	Revision                 int            `json:"revision"`
	BasedOn                  string         `json:"based_on,omitempty"`
	GeneratedAt              time.Time      `json:"generated_at"`
	ProfileVersion           uint64         `json:"profile_version"`
	StateVersion             int64          `json:"state_version"`
	Sessions                 []StudySession `json:"sessions"`
	Blocks                   []PlanBlock    `json:"blocks"`
	Partial                  bool           `json:"partial"`
	InsufficientAvailability bool           `json:"insufficient_availability"`
	Shortfalls               []Shortfall    `json:"shortfalls,omitempty"`
	Warnings                 []string       `json:"warnings,omitempty"`
}

// Clone returns a deep copy so callers can never reach the stored plan's slices.
func (p WeeklyPlan) Clone() WeeklyPlan {
	c := p
	c.Sessions = append([]StudySession(nil), p.Sessions...)
	c.Blocks = append([]PlanBlock(nil), p.Blocks...)
	if p.Shortfalls != nil {
		c.Shortfalls = append([]Shortfall(nil), p.Shortfalls...)
	}
	if p.Warnings != nil {
		c.Warnings = append([]string(nil), p.Warnings...)
	}
	return c
}

// PlannedMinutes sums planned minutes per subject.
func (p WeeklyPlan) PlannedMinutes() map[string]int {
	totals := make(map[string]int)
	for _, s := range p.Sessions {
		totals[s.SubjectID] += s.PlannedMin
	}
	return totals
}

// Session looks up a session by ID.
func (p WeeklyPlan) Session(id string) (StudySession, bool) {
	for _, s := range p.Sessions {
		if s.ID == id {
			return s, true
		}
	}
	return StudySession{}, false
}

// PlanSummary is the lightweight row used for plan history listings.
type PlanSummary struct {
	ID             string    `json:"id"`
	WeekStart      string    `json:"week_start"`
	Revision       int       `json:"revision"`
	GeneratedAt    time.Time `json:"generated_at"`
	ProfileVersion uint64    `json:"profile_version"`
	Sessions       int       `json:"sessions"`
	PlannedMin     int       `json:"planned_min"`
	Partial        bool      `json:"partial"`
}
