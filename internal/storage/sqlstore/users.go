package sqlstore

import (
	"database/sql"
	"fmt"

	"github.com/julianstephens/studylit/internal/models"
	"github.com/julianstephens/studylit/internal/storage"
)

// EnsureUser creates the user with default settings if it does not exist yet.
func (s *Store) EnsureUser(u models.User) error {
	if u.ID == "" {
		return fmt.Errorf("user id is required")
	}
	tx, err := s.begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		s.q("INSERT INTO users (id, name, state_version, created_at) VALUES (?, ?, 0, ?) ON CONFLICT (id) DO NOTHING"),
		u.ID, u.Name, formatTime(s.now()),
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		if err := s.saveSettings(tx, u.ID, models.DefaultSettings()); err != nil {
			return fmt.Errorf("failed to save default settings: %w", err)
		}
	}
	return tx.Commit()
}

func (s *Store) GetUsers() ([]models.User, error) {
	rows, err := s.db.Query("SELECT id, name FROM users ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// GetUserState reads everything a planning run needs in one transaction.
func (s *Store) GetUserState(userID string) (models.UserState, error) {
	tx, err := s.begin()
	if err != nil {
		return models.UserState{}, err
	}
	defer tx.Rollback()

	state := models.UserState{UserID: userID}
	err = tx.QueryRow(s.q("SELECT state_version FROM users WHERE id = ?"), userID).Scan(&state.Version)
	if err != nil {
		return models.UserState{}, notFound(err, "user "+userID)
	}

	if state.Settings, err = s.getSettings(tx, userID); err != nil {
		return models.UserState{}, err
	}
	if state.Subjects, err = s.getSubjects(tx, userID, false); err != nil {
		return models.UserState{}, err
	}
	if state.Availability, err = s.getAvailability(tx, userID); err != nil {
		return models.UserState{}, err
	}
	if state.Commitments, err = s.getCommitments(tx, userID); err != nil {
		return models.UserState{}, err
	}

	return state, tx.Commit()
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
	Exec(query string, args ...any) (sql.Result, error)
}

var _ storage.Provider = (*Store)(nil)
