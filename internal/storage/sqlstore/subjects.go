package sqlstore

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/julianstephens/studylit/internal/models"
	"github.com/julianstephens/studylit/internal/storage"
)

const subjectColumns = "id, user_id, name, priority, difficulty, target_weekly_min, created_at, deleted_at"

func (s *Store) AddSubject(subject models.Subject) error {
	if subject.ID == "" {
		subject.ID = uuid.NewString()
	}
	if subject.CreatedAt.IsZero() {
		subject.CreatedAt = s.now()
	}
	if subject.DeletedAt != nil {
		return fmt.Errorf("cannot add a deleted subject")
	}

	tx, err := s.begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(s.q(`
		INSERT INTO subjects (id, user_id, name, priority, difficulty, target_weekly_min, created_at, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, NULL)`),
		subject.ID, subject.UserID, subject.Name, subject.Priority, string(subject.Difficulty),
		subject.TargetWeeklyMin, formatTime(subject.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to add subject: %w", err)
	}
	if err := s.bumpStateVersion(tx, subject.UserID); err != nil {
		return err
	}
	return tx.Commit()
}

// GetSubject returns a subject by ID, including soft-deleted ones.
func (s *Store) GetSubject(id string) (models.Subject, error) {
	row := s.db.QueryRow(s.q("SELECT "+subjectColumns+" FROM subjects WHERE id = ?"), id)
	subject, err := scanSubject(row)
	if err != nil {
		return models.Subject{}, notFound(err, "subject "+id)
	}
	return subject, nil
}

func (s *Store) GetSubjects(userID string, includeDeleted bool) ([]models.Subject, error) {
	return s.getSubjects(s.db, userID, includeDeleted)
}

func (s *Store) getSubjects(db queryer, userID string, includeDeleted bool) ([]models.Subject, error) {
	query := "SELECT " + subjectColumns + " FROM subjects WHERE user_id = ?"
	if !includeDeleted {
		query += " AND deleted_at IS NULL"
	}
	query += " ORDER BY created_at, id"

	rows, err := db.Query(s.q(query), userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subjects []models.Subject
	for rows.Next() {
		subject, err := scanSubject(rows)
		if err != nil {
			return nil, err
		}
		subjects = append(subjects, subject)
	}
	return subjects, rows.Err()
}

// UpdateSubject rewrites an active subject's editable fields.
func (s *Store) UpdateSubject(subject models.Subject) error {
	tx, err := s.begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(s.q(`
		UPDATE subjects SET name = ?, priority = ?, difficulty = ?, target_weekly_min = ?
		WHERE id = ? AND deleted_at IS NULL`),
		subject.Name, subject.Priority, string(subject.Difficulty), subject.TargetWeeklyMin, subject.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update subject: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("subject %s: %w", subject.ID, storage.ErrNotFound)
	}
	if err := s.bumpSubjectOwner(tx, subject.ID); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteSubject soft-deletes a subject. Issued plans keep referring to it.
func (s *Store) DeleteSubject(id string) error {
	return s.setSubjectDeleted(id, true)
}

func (s *Store) RestoreSubject(id string) error {
	return s.setSubjectDeleted(id, false)
}

func (s *Store) setSubjectDeleted(id string, deleted bool) error {
	tx, err := s.begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var res sql.Result
	if deleted {
		res, err = tx.Exec(s.q("UPDATE subjects SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL"), formatTime(s.now()), id)
	} else {
		res, err = tx.Exec(s.q("UPDATE subjects SET deleted_at = NULL WHERE id = ? AND deleted_at IS NOT NULL"), id)
	}
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if deleted {
			return fmt.Errorf("no active subject %s: %w", id, storage.ErrNotFound)
		}
		return fmt.Errorf("no deleted subject %s: %w", id, storage.ErrNotFound)
	}
	if err := s.bumpSubjectOwner(tx, id); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) bumpSubjectOwner(tx *sql.Tx, subjectID string) error {
	var userID string
	if err := tx.QueryRow(s.q("SELECT user_id FROM subjects WHERE id = ?"), subjectID).Scan(&userID); err != nil {
		return err
	}
	return s.bumpStateVersion(tx, userID)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubject(row rowScanner) (models.Subject, error) {
	var subject models.Subject
	var difficulty, createdAt string
	var deletedAt sql.NullString
	err := row.Scan(
		&subject.ID, &subject.UserID, &subject.Name, &subject.Priority, &difficulty,
		&subject.TargetWeeklyMin, &createdAt, &deletedAt,
	)
	if err != nil {
		return models.Subject{}, err
	}
	subject.Difficulty = models.DifficultyLevel(difficulty)
	if subject.CreatedAt, err = parseTime(createdAt); err != nil {
		return models.Subject{}, err
	}
	if subject.DeletedAt, err = parseNullTime(deletedAt); err != nil {
		return models.Subject{}, err
	}
	return subject, nil
}
