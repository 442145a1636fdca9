package sqlstore

import (
	"encoding/json"
	"fmt"

	"github.com/julianstephens/studylit/internal/productivity"
	"github.com/julianstephens/studylit/internal/storage"
)

// SaveProfile stores a profile snapshot. A save that is not newer than the stored
// version fails with storage.ErrProfileConflict.
func (s *Store) SaveProfile(userID string, profile *productivity.Profile) error {
	if profile == nil {
		return fmt.Errorf("profile is nil")
	}
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}

	res, err := s.db.Exec(s.q(`
		INSERT INTO profiles (user_id, version, data, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			version = excluded.version,
			data = excluded.data,
			updated_at = excluded.updated_at
		WHERE profiles.version < excluded.version`),
		userID, int64(profile.Version), string(data), formatTime(profile.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("profile version %d for %s: %w", profile.Version, userID, storage.ErrProfileConflict)
	}
	return nil
}

func (s *Store) GetProfile(userID string) (*productivity.Profile, error) {
	var data string
	if err := s.db.QueryRow(s.q("SELECT data FROM profiles WHERE user_id = ?"), userID).Scan(&data); err != nil {
		return nil, notFound(err, "profile for "+userID)
	}
	var profile productivity.Profile
	if err := json.Unmarshal([]byte(data), &profile); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}
	return &profile, nil
}
