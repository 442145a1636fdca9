package models

import "time"

// FeedbackRecord is the user's rating of a completed session. Immutable once created.
type FeedbackRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	SessionID string    `json:"session_id"`
	SubjectID string    `json:"subject_id"`
	Rating    int       `json:"rating"`          // 1 (very easy) to 5 (very hard)
	Focus     int       `json:"focus,omitempty"` // 1 (distracted) to 5 (deep focus), 0 if not given
	Comment   string    `json:"comment,omitempty"`
	At        time.Time `json:"at"` // when the rated session started
	CreatedAt time.Time `json:"created_at"`
}
