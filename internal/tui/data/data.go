// Package data holds what the dashboard displays, shared by its components.
package data

import (
	"time"

	"github.com/julianstephens/studylit/internal/models"
)

// Week is the current week's latest plan with its tracking state.
// Plan is nil when the week has not been planned yet.
type Week struct {
	Plan   *models.WeeklyPlan
	States []models.SessionState
	Names  map[string]string
	Now    time.Time
}

// Status returns the tracked status of a session, planned if it has none.
func (w Week) Status(sessionID string) models.SessionStatus {
	for _, s := range w.States {
		if s.SessionID == sessionID {
			return s.Status
		}
	}
	return models.SessionPlanned
}
