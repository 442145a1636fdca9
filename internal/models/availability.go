package models

import "time"

type CommitmentKind string

const (
	CommitmentSleep CommitmentKind = "sleep"
	CommitmentBusy  CommitmentKind = "busy"
)

// AvailabilityBlock is a user-declared window of free time.
// An End at or before Start means the block runs past midnight.
type AvailabilityBlock struct {
	ID        string       `json:"id"`
	UserID    string       `json:"user_id"`
	Weekday   time.Weekday `json:"weekday"`
	Start     string       `json:"start"` // HH:MM format
	End       string       `json:"end"`   // HH:MM format
	Recurring bool         `json:"recurring"`
	Date      string       `json:"date,omitempty"` // YYYY-MM-DD, only for one-off blocks
}

// Commitment is fixed time that is never schedulable (sleep, classes, work).
type Commitment struct {
	ID       string         `json:"id"`
	UserID   string         `json:"user_id"`
	Kind     CommitmentKind `json:"kind"`
	Label    string         `json:"label"`
	Weekdays []time.Weekday `json:"weekdays,omitempty"` // empty means every day
	Start    string         `json:"start"`              // HH:MM format
	End      string         `json:"end"`                // HH:MM format
}

// AppliesOn reports whether the commitment recurs on the given weekday.
func (c Commitment) AppliesOn(wd time.Weekday) bool {
	if len(c.Weekdays) == 0 {
		return true
	}
	for _, d := range c.Weekdays {
		if d == wd {
			return true
		}
	}
	return false
}

// TimeSlot is a concrete free interval inside a target week.
type TimeSlot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (s TimeSlot) Minutes() int {
	return int(s.End.Sub(s.Start) / time.Minute)
}

// Contains reports whether [start, end) lies entirely inside the slot.
func (s TimeSlot) Contains(start, end time.Time) bool {
	return !start.Before(s.Start) && !end.After(s.End)
}
