package models

import "time"

type SessionStatus string

const (
	SessionPlanned    SessionStatus = "planned"
	SessionInProgress SessionStatus = "in_progress"
	SessionCompleted  SessionStatus = "completed"
	SessionSkipped    SessionStatus = "skipped"
)

// Terminal reports whether no further transitions are allowed.
func (s SessionStatus) Terminal() bool {
	return s == SessionCompleted || s == SessionSkipped
}

// StudySession is one allocated block of study for a subject.
type StudySession struct {
	ID         string        `json:"id"`
	SubjectID  string        `json:"subject_id"`
	Start      time.Time     `json:"start"`
	End        time.Time     `json:"end"`
	PlannedMin int           `json:"planned_min"`
	Status     SessionStatus `json:"status"`
}

func (s StudySession) Overlaps(o StudySession) bool {
	return s.Start.Before(o.End) && o.Start.Before(s.End)
}

// SessionState is the tracked, mutable status of an issued session.
// It lives beside the plan so the plan itself never changes.
type SessionState struct {
	SessionID  string        `json:"session_id"`
	PlanID     string        `json:"plan_id"`
	UserID     string        `json:"user_id"`
	Status     SessionStatus `json:"status"`
	StartedAt  *time.Time    `json:"started_at,omitempty"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
	ActualMin  int           `json:"actual_min"`
}

// SessionOutcome is emitted once a session reaches a terminal status.
type SessionOutcome struct {
	SessionID  string        `json:"session_id"`
	UserID     string        `json:"user_id"`
	SubjectID  string        `json:"subject_id"`
	Start      time.Time     `json:"start"`
	PlannedMin int           `json:"planned_min"`
	ActualMin  int           `json:"actual_min"`
	Status     SessionStatus `json:"status"`
	RecordedAt time.Time     `json:"recorded_at"`
}
