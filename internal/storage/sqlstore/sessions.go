package sqlstore

import (
	"database/sql"
	"fmt"

	"github.com/julianstephens/studylit/internal/models"
)

func (s *Store) GetSessionState(sessionID string) (models.SessionState, error) {
	row := s.db.QueryRow(s.q(`
		SELECT session_id, plan_id, user_id, status, started_at, finished_at, actual_min
		FROM session_states WHERE session_id = ?`), sessionID)
	state, err := scanSessionState(row)
	if err != nil {
		return models.SessionState{}, notFound(err, "session state "+sessionID)
	}
	return state, nil
}

func (s *Store) GetSessionStates(planID string) ([]models.SessionState, error) {
	rows, err := s.db.Query(s.q(`
		SELECT session_id, plan_id, user_id, status, started_at, finished_at, actual_min
		FROM session_states WHERE plan_id = ? ORDER BY session_id`), planID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.SessionState
	for rows.Next() {
		state, err := scanSessionState(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, state)
	}
	return out, rows.Err()
}

func (s *Store) SaveSessionState(state models.SessionState) error {
	_, err := s.db.Exec(s.q(`
		INSERT INTO session_states (session_id, plan_id, user_id, status, started_at, finished_at, actual_min)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (session_id) DO UPDATE SET
			status = excluded.status,
			started_at = excluded.started_at,
			finished_at = excluded.finished_at,
			actual_min = excluded.actual_min`),
		state.SessionID, state.PlanID, state.UserID, string(state.Status),
		nullTime(state.StartedAt), nullTime(state.FinishedAt), state.ActualMin,
	)
	if err != nil {
		return fmt.Errorf("failed to save session state: %w", err)
	}
	return nil
}

func scanSessionState(row rowScanner) (models.SessionState, error) {
	var state models.SessionState
	var status string
	var startedAt, finishedAt sql.NullString
	if err := row.Scan(&state.SessionID, &state.PlanID, &state.UserID, &status, &startedAt, &finishedAt, &state.ActualMin); err != nil {
		return models.SessionState{}, err
	}
	state.Status = models.SessionStatus(status)

	var err error
	if state.StartedAt, err = parseNullTime(startedAt); err != nil {
		return models.SessionState{}, err
	}
	if state.FinishedAt, err = parseNullTime(finishedAt); err != nil {
		return models.SessionState{}, err
	}
	return state, nil
}

// AddOutcome appends a terminal session outcome to the user's history.
func (s *Store) AddOutcome(o models.SessionOutcome) error {
	_, err := s.db.Exec(s.q(`
		INSERT INTO session_outcomes (session_id, user_id, subject_id, start_time, planned_min, actual_min, status, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		o.SessionID, o.UserID, o.SubjectID, formatTime(o.Start), o.PlannedMin, o.ActualMin, string(o.Status), formatTime(o.RecordedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to add outcome: %w", err)
	}
	return nil
}

// GetOutcomes returns the user's outcome history, oldest first.
func (s *Store) GetOutcomes(userID string) ([]models.SessionOutcome, error) {
	rows, err := s.db.Query(s.q(`
		SELECT session_id, user_id, subject_id, start_time, planned_min, actual_min, status, recorded_at
		FROM session_outcomes WHERE user_id = ? ORDER BY id`), userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.SessionOutcome
	for rows.Next() {
		var o models.SessionOutcome
		var start, status, recordedAt string
		if err := rows.Scan(&o.SessionID, &o.UserID, &o.SubjectID, &start, &o.PlannedMin, &o.ActualMin, &status, &recordedAt); err != nil {
			return nil, err
		}
		o.Status = models.SessionStatus(status)
		if o.Start, err = parseTime(start); err != nil {
			return nil, err
		}
		if o.RecordedAt, err = parseTime(recordedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
