package sqlstore

import (
	"fmt"

	"github.com/julianstephens/studylit/internal/models"
	"github.com/julianstephens/studylit/internal/storage"
)

const feedbackColumns = "id, user_id, session_id, subject_id, rating, focus, comment, session_start, created_at"

// AddFeedback stores the one rating a session may receive.
func (s *Store) AddFeedback(r models.FeedbackRecord) error {
	tx, err := s.begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRow(s.q("SELECT COUNT(*) FROM feedback WHERE session_id = ?"), r.SessionID).Scan(&exists); err != nil {
		return err
	}
	if exists > 0 {
		return fmt.Errorf("session %s: %w", r.SessionID, storage.ErrFeedbackExists)
	}

	_, err = tx.Exec(s.q(`
		INSERT INTO feedback (`+feedbackColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		r.ID, r.UserID, r.SessionID, r.SubjectID, r.Rating, r.Focus, r.Comment, formatTime(r.At), formatTime(r.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to add feedback: %w", err)
	}
	return tx.Commit()
}

func (s *Store) GetFeedback(sessionID string) (models.FeedbackRecord, error) {
	row := s.db.QueryRow(s.q("SELECT "+feedbackColumns+" FROM feedback WHERE session_id = ?"), sessionID)
	r, err := scanFeedback(row)
	if err != nil {
		return models.FeedbackRecord{}, notFound(err, "feedback for session "+sessionID)
	}
	return r, nil
}

// GetFeedbackHistory returns the user's most recent feedback, newest first.
func (s *Store) GetFeedbackHistory(userID string, limit int) ([]models.FeedbackRecord, error) {
	query := "SELECT " + feedbackColumns + " FROM feedback WHERE user_id = ? ORDER BY created_at DESC, id"
	args := []any{userID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback history: %w", err)
	}
	defer rows.Close()

	var out []models.FeedbackRecord
	for rows.Next() {
		r, err := scanFeedback(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feedback entry: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanFeedback(row rowScanner) (models.FeedbackRecord, error) {
	var r models.FeedbackRecord
	var at, createdAt string
	if err := row.Scan(&r.ID, &r.UserID, &r.SessionID, &r.SubjectID, &r.Rating, &r.Focus, &r.Comment, &at, &createdAt); err != nil {
		return models.FeedbackRecord{}, err
	}
	var err error
	if r.At, err = parseTime(at); err != nil {
		return models.FeedbackRecord{}, err
	}
	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return models.FeedbackRecord{}, err
	}
	return r, nil
}
