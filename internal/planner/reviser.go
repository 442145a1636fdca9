package planner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/studylit/internal/availability"
	"github.com/julianstephens/studylit/internal/constants"
	apperrors "github.com/julianstephens/studylit/internal/errors"
	"github.com/julianstephens/studylit/internal/logger"
	"github.com/julianstephens/studylit/internal/models"
	"github.com/julianstephens/studylit/internal/optimizer"
	"github.com/julianstephens/studylit/internal/productivity"
	"github.com/julianstephens/studylit/internal/scheduler"
	"github.com/julianstephens/studylit/internal/storage"
	"github.com/julianstephens/studylit/internal/utils"
	"github.com/julianstephens/studylit/internal/validation"
)

// planNamespace scopes the name-based UUIDs of plans and sessions.
var planNamespace = uuid.MustParse("5d0f6c52-8a3e-4c1b-9d7e-2f4b6a8c0e13")

// PlanStore is where issued plans are kept.
type PlanStore interface {
	GetLatestPlan(userID, weekStart string) (models.WeeklyPlan, error)
	SavePlan(models.WeeklyPlan) error
}

// LearningSource supplies the learned inputs of a planning run.
type LearningSource interface {
	Profile(userID string, settings models.Settings) (*productivity.Profile, error)
	Deltas(userID string, settings models.Settings) (map[string]optimizer.Delta, error)
}

type Option func(*Reviser)

// WithClock overrides the generation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Reviser) { r.now = now }
}

// WithConcurrency limits how many users ReviseAll plans at once.
func WithConcurrency(n int) Option {
	return func(r *Reviser) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// Reviser runs planning cycles and issues immutable, versioned weekly plans.
type Reviser struct {
	store       PlanStore
	learning    LearningSource
	scheduler   *scheduler.Scheduler
	validator   *validation.Validator
	now         func() time.Time
	concurrency int
	locks       *keyedMutex
}

func NewReviser(store PlanStore, learning LearningSource, opts ...Option) *Reviser {
	r := &Reviser{
		store:       store,
		learning:    learning,
		scheduler:   scheduler.New(),
		validator:   validation.New(),
		now:         time.Now,
		concurrency: 4,
		locks:       newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Revise builds the next plan revision for a user's week. A plan that cannot meet
// every target is returned flagged as partial. Only structurally invalid input
// fails with a PlanningError. If the plan cannot be saved it is returned together
// with a PersistenceError.
func (r *Reviser) Revise(ctx context.Context, state models.UserState, weekStart time.Time) (*models.WeeklyPlan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	unlock := r.locks.Lock(state.UserID)
	defer unlock()

	if strings.TrimSpace(state.UserID) == "" {
		return nil, apperrors.Planningf("missing user id")
	}
	if result := r.validator.ValidateState(state); len(result.Blocking()) > 0 {
		var reasons []string
		for _, c := range result.Blocking() {
			reasons = append(reasons, c.Description)
		}
		return nil, apperrors.Planningf("%s", strings.Join(reasons, "; "))
	}

	settings := state.Settings
	loc, err := utils.LoadLocation(settings.Timezone)
	if err != nil {
		return nil, apperrors.Planningf("invalid timezone %q", settings.Timezone)
	}
	weekStart = utils.Midnight(weekStart.In(loc))
	week := weekStart.Format(constants.DateFormat)

	avail, err := availability.New(settings.MinSessionMin).Resolve(state.Availability, state.Commitments, weekStart)
	if err != nil {
		return nil, err
	}

	var warnings []string
	required := state.RequiredMinutes()
	insufficient := false
	if err := avail.Check(required, settings.AvailabilityFloorPct); err != nil {
		insufficient = true
		warnings = append(warnings, err.Error())
		logger.Warn("Insufficient availability", "user", state.UserID, "week", week, "free_min", avail.FreeMin, "required_min", required)
	}

	profile, err := r.learning.Profile(state.UserID, settings)
	if err != nil {
		return nil, fmt.Errorf("failed to load productivity profile: %w", err)
	}
	if profile == nil {
		profile = productivity.SeededProfile()
	}
	deltas, err := r.learning.Deltas(state.UserID, settings)
	if err != nil {
		return nil, fmt.Errorf("failed to load feedback deltas: %w", err)
	}

	result := r.scheduler.Allocate(scheduler.Request{
		Slots:    avail.Slots,
		Subjects: state.ActiveSubjects(),
		Profile:  profile,
		Deltas:   deltas,
		Settings: settings,
	})

	revision, basedOn := 1, ""
	prev, err := r.store.GetLatestPlan(state.UserID, week)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return nil, apperrors.Persistence("load latest plan", err)
	default:
		revision, basedOn = prev.Revision+1, prev.ID
	}

	plan := models.WeeklyPlan{
		ID:                       planID(state.UserID, week, revision),
		UserID:                   state.UserID,
		WeekStart:                week,
		Revision:                 revision,
		BasedOn:                  basedOn,
		GeneratedAt:              r.now().UTC(),
		ProfileVersion:           profile.Version,
		StateVersion:             state.Version,
		Sessions:                 result.Sessions,
		Blocks:                   append(append([]models.PlanBlock(nil), avail.Fixed...), result.Breaks...),
		InsufficientAvailability: insufficient,
		Shortfalls:               result.Unmet,
	}
	for i := range plan.Sessions {
		s := &plan.Sessions[i]
		s.ID = sessionID(plan.ID, s.SubjectID, s.Start)
	}
	sort.SliceStable(plan.Blocks, func(i, j int) bool {
		return plan.Blocks[i].Start.Before(plan.Blocks[j].Start)
	})

	names := make(map[string]string, len(state.Subjects))
	for _, s := range state.Subjects {
		names[s.ID] = s.Name
	}
	for _, sf := range result.Unmet {
		warnings = append(warnings, fmt.Sprintf("%s: %v, %d of %d minutes planned (%d short)",
			names[sf.SubjectID], apperrors.ErrUnmetSubjectTarget, sf.PlannedMin, sf.TargetMin, sf.ShortMin))
	}
	if avail.FragmentMin > 0 {
		logger.Debug("Discarded short availability fragments", "minutes", avail.FragmentMin)
	}

	if check := r.validator.ValidatePlan(plan, avail.Slots, state.ActiveSubjects(), settings); check.HasConflicts() {
		logger.Error("Generated plan failed validation", "user", state.UserID, "week", week, "report", check.FormatReport())
		for _, c := range check.Conflicts {
			warnings = append(warnings, c.Description)
		}
	}

	plan.Partial = insufficient || len(result.Unmet) > 0
	plan.Warnings = warnings

	logger.Info("Plan revised",
		"user", state.UserID,
		"week", week,
		"revision", plan.Revision,
		"sessions", len(plan.Sessions),
		"partial", plan.Partial,
		"profile_version", plan.ProfileVersion)

	out := plan.Clone()
	if err := r.store.SavePlan(plan); err != nil {
		logger.Error("Failed to save plan", "user", state.UserID, "week", week, "revision", plan.Revision, "error", err)
		return &out, apperrors.Persistence("save plan", err)
	}
	return &out, nil
}

func planID(userID, week string, revision int) string {
	return uuid.NewSHA1(planNamespace, []byte(fmt.Sprintf("plan|%s|%s|%d", userID, week, revision))).String()
}

func sessionID(planID, subjectID string, start time.Time) string {
	return uuid.NewSHA1(planNamespace, []byte(fmt.Sprintf("session|%s|%s|%s", planID, subjectID, start.UTC().Format(time.RFC3339)))).String()
}
