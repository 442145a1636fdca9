package sqlstore

import (
	"database/sql"
	"sort"

	"github.com/julianstephens/studylit/internal/models"
)

// GetSettings returns the user's planner settings. Keys never saved keep their defaults.
func (s *Store) GetSettings(userID string) (models.Settings, error) {
	return s.getSettings(s.db, userID)
}

func (s *Store) getSettings(db queryer, userID string) (models.Settings, error) {
	rows, err := db.Query(s.q("SELECT key, value FROM settings WHERE user_id = ?"), userID)
	if err != nil {
		return models.Settings{}, err
	}
	defer rows.Close()

	data := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return models.Settings{}, err
		}
		data[key] = value
	}
	if err := rows.Err(); err != nil {
		return models.Settings{}, err
	}
	return models.MapToSettings(data)
}

func (s *Store) SaveSettings(userID string, settings models.Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	tx, err := s.begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.saveSettings(tx, userID, settings); err != nil {
		return err
	}
	if err := s.bumpStateVersion(tx, userID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) saveSettings(tx *sql.Tx, userID string, settings models.Settings) error {
	stmt, err := tx.Prepare(s.q(
		"INSERT INTO settings (user_id, key, value) VALUES (?, ?, ?) ON CONFLICT (user_id, key) DO UPDATE SET value = excluded.value",
	))
	if err != nil {
		return err
	}
	defer stmt.Close()

	data := models.SettingsToMap(settings)
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, err := stmt.Exec(userID, k, data[k]); err != nil {
			return err
		}
	}
	return nil
}
