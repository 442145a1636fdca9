package sqlstore

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/julianstephens/studylit/internal/models"
	"github.com/julianstephens/studylit/internal/storage"
)

const planColumns = `id, user_id, week_start, revision, based_on, generated_at, profile_version, state_version,
	partial, insufficient_availability, blocks, shortfalls, warnings`

// SavePlan inserts a new plan and its sessions. Issued plans are never overwritten.
func (s *Store) SavePlan(plan models.WeeklyPlan) error {
	if plan.ID == "" || plan.UserID == "" || plan.WeekStart == "" || plan.Revision < 1 {
		return fmt.Errorf("plan is missing id, user, week or revision")
	}

	blocks, err := json.Marshal(nonNil(plan.Blocks))
	if err != nil {
		return err
	}
	shortfalls, err := json.Marshal(nonNil(plan.Shortfalls))
	if err != nil {
		return err
	}
	warnings, err := json.Marshal(nonNil(plan.Warnings))
	if err != nil {
		return err
	}

	tx, err := s.begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRow(
		s.q("SELECT COUNT(*) FROM plans WHERE id = ? OR (user_id = ? AND week_start = ? AND revision = ?)"),
		plan.ID, plan.UserID, plan.WeekStart, plan.Revision,
	).Scan(&exists)
	if err != nil {
		return err
	}
	if exists > 0 {
		return fmt.Errorf("%s revision %d: %w", plan.WeekStart, plan.Revision, storage.ErrPlanExists)
	}

	_, err = tx.Exec(s.q(`
		INSERT INTO plans (`+planColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		plan.ID, plan.UserID, plan.WeekStart, plan.Revision, plan.BasedOn, formatTime(plan.GeneratedAt),
		int64(plan.ProfileVersion), plan.StateVersion, plan.Partial, plan.InsufficientAvailability,
		string(blocks), string(shortfalls), string(warnings),
	)
	if err != nil {
		return fmt.Errorf("failed to insert plan: %w", err)
	}

	stmt, err := tx.Prepare(s.q(`
		INSERT INTO plan_sessions (id, plan_id, subject_id, start_time, end_time, planned_min)
		VALUES (?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, session := range plan.Sessions {
		if _, err := stmt.Exec(session.ID, plan.ID, session.SubjectID, formatTime(session.Start), formatTime(session.End), session.PlannedMin); err != nil {
			return fmt.Errorf("failed to insert session %s: %w", session.ID, err)
		}
	}

	return tx.Commit()
}

func (s *Store) GetPlan(id string) (models.WeeklyPlan, error) {
	return s.getPlanWhere("id = ?", id)
}

// GetLatestPlan returns the highest revision issued for a user and week.
func (s *Store) GetLatestPlan(userID, weekStart string) (models.WeeklyPlan, error) {
	return s.getPlanWhere("user_id = ? AND week_start = ? ORDER BY revision DESC LIMIT 1", userID, weekStart)
}

func (s *Store) GetPlanForSession(sessionID string) (models.WeeklyPlan, error) {
	return s.getPlanWhere("id = (SELECT plan_id FROM plan_sessions WHERE id = ?)", sessionID)
}

func (s *Store) getPlanWhere(where string, args ...any) (models.WeeklyPlan, error) {
	tx, err := s.begin()
	if err != nil {
		return models.WeeklyPlan{}, err
	}
	defer tx.Rollback()

	row := tx.QueryRow(s.q("SELECT "+planColumns+" FROM plans WHERE "+where), args...)
	plan, err := scanPlan(row)
	if err != nil {
		return models.WeeklyPlan{}, notFound(err, "plan")
	}

	rows, err := tx.Query(s.q(`
		SELECT id, subject_id, start_time, end_time, planned_min
		FROM plan_sessions WHERE plan_id = ?`), plan.ID)
	if err != nil {
		return models.WeeklyPlan{}, err
	}
	defer rows.Close()

	for rows.Next() {
		session := models.StudySession{Status: models.SessionPlanned}
		var start, end string
		if err := rows.Scan(&session.ID, &session.SubjectID, &start, &end, &session.PlannedMin); err != nil {
			return models.WeeklyPlan{}, err
		}
		if session.Start, err = parseTime(start); err != nil {
			return models.WeeklyPlan{}, err
		}
		if session.End, err = parseTime(end); err != nil {
			return models.WeeklyPlan{}, err
		}
		plan.Sessions = append(plan.Sessions, session)
	}
	if err := rows.Err(); err != nil {
		return models.WeeklyPlan{}, err
	}

	// Stored offsets may differ across DST changes, so order on the instant.
	sort.SliceStable(plan.Sessions, func(i, j int) bool {
		if !plan.Sessions[i].Start.Equal(plan.Sessions[j].Start) {
			return plan.Sessions[i].Start.Before(plan.Sessions[j].Start)
		}
		return plan.Sessions[i].ID < plan.Sessions[j].ID
	})

	return plan, nil
}

func scanPlan(row rowScanner) (models.WeeklyPlan, error) {
	var plan models.WeeklyPlan
	var generatedAt, blocks, shortfalls, warnings string
	var profileVersion int64
	err := row.Scan(
		&plan.ID, &plan.UserID, &plan.WeekStart, &plan.Revision, &plan.BasedOn, &generatedAt,
		&profileVersion, &plan.StateVersion, &plan.Partial, &plan.InsufficientAvailability,
		&blocks, &shortfalls, &warnings,
	)
	if err != nil {
		return models.WeeklyPlan{}, err
	}
	plan.ProfileVersion = uint64(profileVersion)
	if plan.GeneratedAt, err = parseTime(generatedAt); err != nil {
		return models.WeeklyPlan{}, err
	}
	if err := json.Unmarshal([]byte(blocks), &plan.Blocks); err != nil {
		return models.WeeklyPlan{}, fmt.Errorf("plan %s: invalid blocks: %w", plan.ID, err)
	}
	if err := json.Unmarshal([]byte(shortfalls), &plan.Shortfalls); err != nil {
		return models.WeeklyPlan{}, fmt.Errorf("plan %s: invalid shortfalls: %w", plan.ID, err)
	}
	if err := json.Unmarshal([]byte(warnings), &plan.Warnings); err != nil {
		return models.WeeklyPlan{}, fmt.Errorf("plan %s: invalid warnings: %w", plan.ID, err)
	}
	if len(plan.Shortfalls) == 0 {
		plan.Shortfalls = nil
	}
	if len(plan.Warnings) == 0 {
		plan.Warnings = nil
	}
	return plan, nil
}

// ListPlans returns the user's most recent plans, newest first. A non-positive limit lists all.
func (s *Store) ListPlans(userID string, limit int) ([]models.PlanSummary, error) {
	query := `
		SELECT p.id, p.week_start, p.revision, p.generated_at, p.profile_version, p.partial,
		       COUNT(ps.id), COALESCE(SUM(ps.planned_min), 0)
		FROM plans p
		LEFT JOIN plan_sessions ps ON ps.plan_id = p.id
		WHERE p.user_id = ?
		GROUP BY p.id, p.week_start, p.revision, p.generated_at, p.profile_version, p.partial
		ORDER BY p.week_start DESC, p.revision DESC`
	args := []any{userID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(s.q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.PlanSummary
	for rows.Next() {
		var summary models.PlanSummary
		var generatedAt string
		var profileVersion int64
		if err := rows.Scan(
			&summary.ID, &summary.WeekStart, &summary.Revision, &generatedAt, &profileVersion, &summary.Partial,
			&summary.Sessions, &summary.PlannedMin,
		); err != nil {
			return nil, err
		}
		summary.ProfileVersion = uint64(profileVersion)
		if summary.GeneratedAt, err = parseTime(generatedAt); err != nil {
			return nil, err
		}
		out = append(out, summary)
	}
	return out, rows.Err()
}

func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}
