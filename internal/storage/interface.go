package storage

import (
	"errors"

	"github.com/julianstephens/studylit/internal/models"
	"github.com/julianstephens/studylit/internal/productivity"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrPlanExists is returned when saving a plan whose ID or revision is already stored.
	// Issued plans are never overwritten.
	ErrPlanExists = errors.New("plan already exists")
	// ErrFeedbackExists is returned when a session already has feedback.
	ErrFeedbackExists = errors.New("feedback already recorded for session")
	// ErrProfileConflict is returned when a profile save is not newer than the stored version.
	ErrProfileConflict = errors.New("stored profile is newer")
)

type Provider interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error

	// Users
	EnsureUser(models.User) error
	GetUsers() ([]models.User, error)
	// GetUserState returns a consistent snapshot of everything a planning run reads.
	GetUserState(userID string) (models.UserState, error)

	// Settings
	GetSettings(userID string) (models.Settings, error)
	SaveSettings(userID string, settings models.Settings) error

	// Subjects
	AddSubject(models.Subject) error
	GetSubject(id string) (models.Subject, error)
	GetSubjects(userID string, includeDeleted bool) ([]models.Subject, error)
	UpdateSubject(models.Subject) error
	DeleteSubject(id string) error
	RestoreSubject(id string) error

	// Availability and commitments
	AddAvailability(models.AvailabilityBlock) error
	GetAvailability(userID string) ([]models.AvailabilityBlock, error)
	DeleteAvailability(id string) error
	AddCommitment(models.Commitment) error
	GetCommitments(userID string) ([]models.Commitment, error)
	DeleteCommitment(id string) error

	// Plans
	// SavePlan inserts a new plan. It never updates an existing one.
	SavePlan(models.WeeklyPlan) error
	GetPlan(id string) (models.WeeklyPlan, error)
	// GetLatestPlan returns the highest revision for a user and week.
	GetLatestPlan(userID, weekStart string) (models.WeeklyPlan, error)
	GetPlanForSession(sessionID string) (models.WeeklyPlan, error)
	ListPlans(userID string, limit int) ([]models.PlanSummary, error)

	// Session tracking
	GetSessionState(sessionID string) (models.SessionState, error)
	GetSessionStates(planID string) ([]models.SessionState, error)
	SaveSessionState(models.SessionState) error
	AddOutcome(models.SessionOutcome) error
	GetOutcomes(userID string) ([]models.SessionOutcome, error)

	// Feedback
	AddFeedback(models.FeedbackRecord) error
	GetFeedback(sessionID string) (models.FeedbackRecord, error)
	GetFeedbackHistory(userID string, limit int) ([]models.FeedbackRecord, error)

	// Productivity profiles
	SaveProfile(userID string, profile *productivity.Profile) error
	GetProfile(userID string) (*productivity.Profile, error)

	// Utils
	GetConfigPath() string
}
