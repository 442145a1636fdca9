package sqlstore

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/studylit/internal/models"
)

func (s *Store) AddAvailability(block models.AvailabilityBlock) error {
	if block.ID == "" {
		block.ID = uuid.NewString()
	}
	tx, err := s.begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(s.q(`
		INSERT INTO availability_blocks (id, user_id, weekday, start_time, end_time, recurring, date)
		VALUES (?, ?, ?, ?, ?, ?, ?)`),
		block.ID, block.UserID, int(block.Weekday), block.Start, block.End, block.Recurring, block.Date,
	)
	if err != nil {
		return fmt.Errorf("failed to add availability: %w", err)
	}
	if err := s.bumpStateVersion(tx, block.UserID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) GetAvailability(userID string) ([]models.AvailabilityBlock, error) {
	return s.getAvailability(s.db, userID)
}

func (s *Store) getAvailability(db queryer, userID string) ([]models.AvailabilityBlock, error) {
	rows, err := db.Query(s.q(`
		SELECT id, user_id, weekday, start_time, end_time, recurring, date
		FROM availability_blocks WHERE user_id = ? ORDER BY weekday, start_time, id`), userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var blocks []models.AvailabilityBlock
	for rows.Next() {
		var b models.AvailabilityBlock
		var weekday int
		if err := rows.Scan(&b.ID, &b.UserID, &weekday, &b.Start, &b.End, &b.Recurring, &b.Date); err != nil {
			return nil, err
		}
		b.Weekday = time.Weekday(weekday)
		blocks = append(blocks, b)
	}
	return blocks, rows.Err()
}

func (s *Store) DeleteAvailability(id string) error {
	return s.deleteOwned("availability_blocks", id)
}

func (s *Store) AddCommitment(c models.Commitment) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	weekdays := make([]int, 0, len(c.Weekdays))
	for _, wd := range c.Weekdays {
		weekdays = append(weekdays, int(wd))
	}
	encoded, err := json.Marshal(weekdays)
	if err != nil {
		return err
	}

	tx, err := s.begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(s.q(`
		INSERT INTO commitments (id, user_id, kind, label, weekdays, start_time, end_time)
		VALUES (?, ?, ?, ?, ?, ?, ?)`),
		c.ID, c.UserID, string(c.Kind), c.Label, string(encoded), c.Start, c.End,
	)
	if err != nil {
		return fmt.Errorf("failed to add commitment: %w", err)
	}
	if err := s.bumpStateVersion(tx, c.UserID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) GetCommitments(userID string) ([]models.Commitment, error) {
	return s.getCommitments(s.db, userID)
}

func (s *Store) getCommitments(db queryer, userID string) ([]models.Commitment, error) {
	rows, err := db.Query(s.q(`
		SELECT id, user_id, kind, label, weekdays, start_time, end_time
		FROM commitments WHERE user_id = ? ORDER BY start_time, id`), userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Commitment
	for rows.Next() {
		var c models.Commitment
		var kind, weekdays string
		if err := rows.Scan(&c.ID, &c.UserID, &kind, &c.Label, &weekdays, &c.Start, &c.End); err != nil {
			return nil, err
		}
		c.Kind = models.CommitmentKind(kind)

		var days []int
		if err := json.Unmarshal([]byte(weekdays), &days); err != nil {
			return nil, fmt.Errorf("commitment %s: invalid weekdays: %w", c.ID, err)
		}
		for _, d := range days {
			c.Weekdays = append(c.Weekdays, time.Weekday(d))
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) DeleteCommitment(id string) error {
	return s.deleteOwned("commitments", id)
}

// deleteOwned hard-deletes a per-user row and bumps its owner's state version.
// table is always a package constant.
func (s *Store) deleteOwned(table, id string) error {
	tx, err := s.begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var userID string
	if err := tx.QueryRow(s.q("SELECT user_id FROM "+table+" WHERE id = ?"), id).Scan(&userID); err != nil {
		return notFound(err, fmt.Sprintf("%s %s", table, id))
	}
	if _, err := tx.Exec(s.q("DELETE FROM "+table+" WHERE id = ?"), id); err != nil {
		return err
	}
	if err := s.bumpStateVersion(tx, userID); err != nil {
		return err
	}
	return tx.Commit()
}
