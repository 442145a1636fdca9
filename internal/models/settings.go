package models

// Settings represents the per-user planner configuration
type Settings struct {
	MinSessionMin        int     `json:"min_session_min"`        // shortest usable slot/session in minutes
	MaxSessionMin        int     `json:"max_session_min"`        // longest single session in minutes
	TolerancePct         float64 `json:"tolerance_pct"`          // allowed deviation from weekly targets, percent
	LearningRate         float64 `json:"learning_rate"`          // productivity EWMA learning rate
	PriorityDeltaClamp   float64 `json:"priority_delta_clamp"`   // feedback priority deltas stay within ±this
	DurationDeltaClamp   int     `json:"duration_delta_clamp"`   // feedback duration deltas stay within ±this many minutes
	BreakMin             int     `json:"break_min"`              // break reserved after each session, 0 disables
	AvailabilityFloorPct float64 `json:"availability_floor_pct"` // free time below this percent of targets is insufficient
	WeekStart            string  `json:"week_start"`             // weekday name the planning week starts on
	Timezone             string  `json:"timezone"`               // IANA timezone name (e.g. "Europe/London", or "Local" for system timezone)
}

// ToleranceMin is the absolute tolerance for a target, in minutes.
func (s Settings) ToleranceMin(targetMin int) int {
	return int(float64(targetMin) * s.TolerancePct / 100)
}

// User is the owner of a planning state.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// UserState is an immutable, versioned snapshot of everything a planning run reads.
type UserState struct {
	UserID       string              `json:"user_id"`
	Version      int64               `json:"version"`
	Subjects     []Subject           `json:"subjects"`
	Availability []AvailabilityBlock `json:"availability"`
	Commitments  []Commitment        `json:"commitments"`
	Settings     Settings            `json:"settings"`
}

// ActiveSubjects filters out soft-deleted subjects.
func (u UserState) ActiveSubjects() []Subject {
	var out []Subject
	for _, s := range u.Subjects {
		if s.DeletedAt == nil {
			out = append(out, s)
		}
	}
	return out
}

// RequiredMinutes sums the weekly targets of active subjects.
func (u UserState) RequiredMinutes() int {
	total := 0
	for _, s := range u.ActiveSubjects() {
		total += s.TargetWeeklyMin
	}
	return total
}
