package tracker

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/studylit/internal/constants"
	apperrors "github.com/julianstephens/studylit/internal/errors"
	"github.com/julianstephens/studylit/internal/logger"
	"github.com/julianstephens/studylit/internal/models"
	"github.com/julianstephens/studylit/internal/storage"
)

var (
	// ErrInvalidTransition is returned when a session cannot move to the requested status.
	ErrInvalidTransition = errors.New("invalid session transition")
	// ErrNotCompleted is returned when feedback is given for a session that was not completed.
	ErrNotCompleted = errors.New("feedback requires a completed session")
)

var feedbackNamespace = uuid.MustParse("3f7e0a52-8d0c-4a61-9b1e-2c54d8a7f6e1")

// Store is the persistence the tracker reads and writes.
type Store interface {
	GetPlanForSession(sessionID string) (models.WeeklyPlan, error)
	GetSessionState(sessionID string) (models.SessionState, error)
	SaveSessionState(models.SessionState) error
	AddOutcome(models.SessionOutcome) error
	AddFeedback(models.FeedbackRecord) error
	GetFeedback(sessionID string) (models.FeedbackRecord, error)
}

// Handler consumes outcomes and feedback to update learned state.
type Handler interface {
	HandleOutcome(models.SessionOutcome) error
	HandleFeedback(models.FeedbackRecord) error
}

// Tracker drives issued sessions through planned, in_progress, completed and skipped.
type Tracker struct {
	store   Store
	handler Handler
	now     func() time.Time
}

type Option func(*Tracker)

func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

func New(store Store, handler Handler, opts ...Option) *Tracker {
	t := &Tracker{store: store, handler: handler, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Status returns the session as issued together with its tracked state.
func (t *Tracker) Status(sessionID string) (models.StudySession, models.SessionState, error) {
	_, session, state, err := t.load(sessionID)
	return session, state, err
}

// Start marks a planned session as in progress.
func (t *Tracker) Start(sessionID string) (models.SessionState, error) {
	_, _, state, err := t.load(sessionID)
	if err != nil {
		return models.SessionState{}, err
	}
	if state.Status != models.SessionPlanned {
		return state, fmt.Errorf("%w: cannot start a session that is %s", ErrInvalidTransition, state.Status)
	}

	now := t.now()
	state.Status = models.SessionInProgress
	state.StartedAt = &now
	if err := t.store.SaveSessionState(state); err != nil {
		return state, apperrors.Persistence("save session state", err)
	}
	logger.Debug("Session started", "session", sessionID)
	return state, nil
}

// Complete finishes a session. A non-positive actualMin is derived from the
// start time when the session was started, or the planned length otherwise.
func (t *Tracker) Complete(sessionID string, actualMin int) (models.SessionOutcome, error) {
	return t.finish(sessionID, models.SessionCompleted, actualMin)
}

// Skip abandons a session that has not been completed.
func (t *Tracker) Skip(sessionID string) (models.SessionOutcome, error) {
	return t.finish(sessionID, models.SessionSkipped, 0)
}

func (t *Tracker) finish(sessionID string, status models.SessionStatus, actualMin int) (models.SessionOutcome, error) {
	plan, session, state, err := t.load(sessionID)
	if err != nil {
		return models.SessionOutcome{}, err
	}
	if state.Status.Terminal() {
		return models.SessionOutcome{}, fmt.Errorf("%w: session is already %s", ErrInvalidTransition, state.Status)
	}

	now := t.now()
	if status == models.SessionCompleted && actualMin <= 0 {
		actualMin = session.PlannedMin
		if state.StartedAt != nil {
			if elapsed := int(now.Sub(*state.StartedAt).Round(time.Minute) / time.Minute); elapsed > 0 {
				actualMin = elapsed
			}
		}
	}
	if status == models.SessionSkipped {
		actualMin = 0
	}

	state.Status = status
	state.FinishedAt = &now
	state.ActualMin = actualMin
	if err := t.store.SaveSessionState(state); err != nil {
		return models.SessionOutcome{}, apperrors.Persistence("save session state", err)
	}

	outcome := models.SessionOutcome{
		SessionID:  session.ID,
		UserID:     plan.UserID,
		SubjectID:  session.SubjectID,
		Start:      session.Start,
		PlannedMin: session.PlannedMin,
		ActualMin:  actualMin,
		Status:     status,
		RecordedAt: now,
	}
	if err := t.store.AddOutcome(outcome); err != nil {
		return outcome, apperrors.Persistence("add outcome", err)
	}

	logger.Info("Session finished", "session", sessionID, "subject", session.SubjectID, "status", status, "actual_min", actualMin)

	if t.handler != nil {
		if err := t.handler.HandleOutcome(outcome); err != nil {
			return outcome, err
		}
	}
	return outcome, nil
}

// Feedback records a rating for a completed session. Each session accepts one rating.
// focus is optional and zero means not given.
func (t *Tracker) Feedback(sessionID string, rating, focus int, comment string) (models.FeedbackRecord, error) {
	if rating < constants.MinRating || rating > constants.MaxRating {
		return models.FeedbackRecord{}, fmt.Errorf("rating must be between %d and %d", constants.MinRating, constants.MaxRating)
	}
	if focus != 0 && (focus < constants.MinRating || focus > constants.MaxRating) {
		return models.FeedbackRecord{}, fmt.Errorf("focus must be between %d and %d", constants.MinRating, constants.MaxRating)
	}

	plan, session, state, err := t.load(sessionID)
	if err != nil {
		return models.FeedbackRecord{}, err
	}
	if state.Status != models.SessionCompleted {
		return models.FeedbackRecord{}, fmt.Errorf("%w: session is %s", ErrNotCompleted, state.Status)
	}

	if _, err := t.store.GetFeedback(sessionID); err == nil {
		return models.FeedbackRecord{}, storage.ErrFeedbackExists
	} else if !errors.Is(err, storage.ErrNotFound) {
		return models.FeedbackRecord{}, apperrors.Persistence("get feedback", err)
	}

	record := models.FeedbackRecord{
		ID:        uuid.NewSHA1(feedbackNamespace, []byte(sessionID)).String(),
		UserID:    plan.UserID,
		SessionID: sessionID,
		SubjectID: session.SubjectID,
		Rating:    rating,
		Focus:     focus,
		Comment:   strings.TrimSpace(comment),
		At:        session.Start,
		CreatedAt: t.now(),
	}
	if err := t.store.AddFeedback(record); err != nil {
		if errors.Is(err, storage.ErrFeedbackExists) {
			return models.FeedbackRecord{}, err
		}
		return models.FeedbackRecord{}, apperrors.Persistence("add feedback", err)
	}

	logger.Info("Feedback recorded", "session", sessionID, "subject", session.SubjectID, "rating", rating, "focus", focus)

	if t.handler != nil {
		if err := t.handler.HandleFeedback(record); err != nil {
			return record, err
		}
	}
	return record, nil
}

// load resolves a session and its tracked state. Sessions with no stored state are planned.
func (t *Tracker) load(sessionID string) (models.WeeklyPlan, models.StudySession, models.SessionState, error) {
	plan, err := t.store.GetPlanForSession(sessionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return plan, models.StudySession{}, models.SessionState{}, fmt.Errorf("session %s: %w", sessionID, err)
		}
		return plan, models.StudySession{}, models.SessionState{}, apperrors.Persistence("get plan for session", err)
	}
	session, ok := plan.Session(sessionID)
	if !ok {
		return plan, models.StudySession{}, models.SessionState{}, fmt.Errorf("session %s: %w", sessionID, storage.ErrNotFound)
	}

	state, err := t.store.GetSessionState(sessionID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		state = models.SessionState{
			SessionID: sessionID,
			PlanID:    plan.ID,
			UserID:    plan.UserID,
			Status:    models.SessionPlanned,
		}
	case err != nil:
		return plan, session, state, apperrors.Persistence("get session state", err)
	}
	return plan, session, state, nil
}

// Current returns the session of plan that covers at, if any.
func Current(plan models.WeeklyPlan, at time.Time) (models.StudySession, bool) {
	for _, s := range plan.Sessions {
		if !at.Before(s.Start) && at.Before(s.End) {
			return s, true
		}
	}
	return models.StudySession{}, false
}

// Next returns the first session of plan that starts after at.
func Next(plan models.WeeklyPlan, at time.Time) (models.StudySession, bool) {
	var best models.StudySession
	found := false
	for _, s := range plan.Sessions {
		if s.Start.After(at) && (!found || s.Start.Before(best.Start)) {
			best, found = s, true
		}
	}
	return best, found
}
