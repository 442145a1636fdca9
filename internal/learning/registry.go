package learning

import (
	"errors"
	"fmt"
	"sync"

	"github.com/julianstephens/studylit/internal/logger"
	"github.com/julianstephens/studylit/internal/models"
	"github.com/julianstephens/studylit/internal/optimizer"
	"github.com/julianstephens/studylit/internal/productivity"
	"github.com/julianstephens/studylit/internal/storage"
)

// Store is the persistence the registry needs to rebuild learned state.
type Store interface {
	GetProfile(userID string) (*productivity.Profile, error)
	SaveProfile(userID string, profile *productivity.Profile) error
	GetOutcomes(userID string) ([]models.SessionOutcome, error)
	GetSettings(userID string) (models.Settings, error)
}

// User bundles the learned state of one user.
type User struct {
	Model   *productivity.Model
	Adapter *optimizer.Adapter

	// outcomes folded into Adapter, by session ID
	seen  map[string]bool
	count int
}

// Registry caches per-user productivity models and adapters. Other processes
// write to the same store, so every Get brings the cached state up to date first.
type Registry struct {
	store Store

	mu    sync.Mutex
	users map[string]*User
}

func NewRegistry(store Store) *Registry {
	return &Registry{store: store, users: make(map[string]*User)}
}

// Get returns the learned state for a user. A newer stored profile replaces the
// cached one and a changed outcome history is replayed into the adapter.
// Settings changes are applied on every call.
func (r *Registry) Get(userID string, settings models.Settings) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		u = &User{
			Model: productivity.NewModel(productivity.Options{
				UserID:       userID,
				LearningRate: settings.LearningRate,
				Persister:    r.store,
			}),
		}
		u.Adapter = optimizer.NewAdapter(optimizer.ConfigFromSettings(settings), u.Model)
	} else {
		u.Model.SetLearningRate(settings.LearningRate)
		u.Adapter.SetConfig(optimizer.ConfigFromSettings(settings))
	}

	if err := r.refresh(u, userID, !ok); err != nil {
		return nil, err
	}
	r.users[userID] = u
	return u, nil
}

func (r *Registry) refresh(u *User, userID string, fresh bool) error {
	profile, err := r.store.GetProfile(userID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return fmt.Errorf("failed to load productivity profile: %w", err)
	case profile.Version > u.Model.Version() || fresh:
		u.Model.Restore(profile)
	}

	outcomes, err := r.store.GetOutcomes(userID)
	if err != nil {
		return fmt.Errorf("failed to load session outcomes: %w", err)
	}
	if !fresh && !u.stale(outcomes) {
		return nil
	}
	u.Adapter.Replay(outcomes)
	u.seen = make(map[string]bool, len(outcomes))
	u.count = len(outcomes)
	for _, o := range outcomes {
		u.seen[o.SessionID] = true
	}
	logger.Debug("Loaded learned state", "user", userID, "profile_version", u.Model.Version(), "outcomes", len(outcomes))
	return nil
}

func (u *User) stale(outcomes []models.SessionOutcome) bool {
	if len(outcomes) != u.count {
		return true
	}
	for _, o := range outcomes {
		if !u.seen[o.SessionID] {
			return true
		}
	}
	return false
}

// forget drops a user's cached state so the next Get rebuilds it from the store.
func (r *Registry) forget(userID string) {
	r.mu.Lock()
	delete(r.users, userID)
	r.mu.Unlock()
}

// Profile returns the current profile snapshot for a user.
func (r *Registry) Profile(userID string, settings models.Settings) (*productivity.Profile, error) {
	u, err := r.Get(userID, settings)
	if err != nil {
		return nil, err
	}
	return u.Model.Snapshot(), nil
}

// Deltas returns the current feedback deltas for a user.
func (r *Registry) Deltas(userID string, settings models.Settings) (map[string]optimizer.Delta, error) {
	u, err := r.Get(userID, settings)
	if err != nil {
		return nil, err
	}
	return u.Adapter.Deltas(), nil
}

// ForUser is Get with the user's stored settings.
func (r *Registry) ForUser(userID string) (*User, error) {
	settings, err := r.store.GetSettings(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	return r.Get(userID, settings)
}

// HandleOutcome routes a session outcome to the owning user's adapter and model.
// An outcome already present in the replayed history only reaches the model.
func (r *Registry) HandleOutcome(outcome models.SessionOutcome) error {
	u, err := r.ForUser(outcome.UserID)
	if err != nil {
		return err
	}

	r.mu.Lock()
	if !u.seen[outcome.SessionID] {
		u.Adapter.Observe(outcome)
		u.seen[outcome.SessionID] = true
		u.count++
	}
	r.mu.Unlock()

	return r.settle(outcome.UserID, u.Model.RecordSession(outcome))
}

// HandleFeedback routes a feedback record to the owning user's model.
func (r *Registry) HandleFeedback(record models.FeedbackRecord) error {
	u, err := r.ForUser(record.UserID)
	if err != nil {
		return err
	}
	return r.settle(record.UserID, u.Adapter.HandleFeedback(record))
}

// settle drops the cached state when another process saved a newer profile
// first. The error is still returned to the caller.
func (r *Registry) settle(userID string, err error) error {
	if errors.Is(err, storage.ErrProfileConflict) {
		logger.Warn("Productivity profile changed elsewhere, reloading", "user", userID)
		r.forget(userID)
	}
	return err
}
