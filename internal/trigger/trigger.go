package trigger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/julianstephens/studylit/internal/logger"
	"github.com/julianstephens/studylit/internal/models"
	"github.com/julianstephens/studylit/internal/utils"
)

// Planner revises the plans of many users for one week.
type Planner interface {
	ReviseAll(ctx context.Context, states []models.UserState, weekStart time.Time) ([]*models.WeeklyPlan, error)
}

// StateSource lists users and their planning inputs.
type StateSource interface {
	GetUsers() ([]models.User, error)
	GetUserState(userID string) (models.UserState, error)
}

type Options struct {
	// Schedule is a standard five-field cron expression.
	Schedule string
	Location *time.Location
	// PlanNextWeek revises the following week instead of the current one.
	PlanNextWeek bool
	Now          func() time.Time
}

// Trigger periodically re-optimizes every user's timetable.
type Trigger struct {
	planner Planner
	states  StateSource
	opts    Options
	cron    *cron.Cron

	mu      sync.Mutex
	entryID cron.EntryID
	started bool
	running sync.Mutex
	cancel  context.CancelFunc
}

func New(planner Planner, states StateSource, opts Options) (*Trigger, error) {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if _, err := cron.ParseStandard(opts.Schedule); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", opts.Schedule, err)
	}
	return &Trigger{
		planner: planner,
		states:  states,
		opts:    opts,
		cron:    cron.New(cron.WithLocation(opts.Location)),
	}, nil
}

// Start schedules the revision job and starts the cron loop.
func (t *Trigger) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	id, err := t.cron.AddFunc(t.opts.Schedule, func() { t.tick(ctx) })
	if err != nil {
		cancel()
		return fmt.Errorf("add cron job: %w", err)
	}
	t.entryID = id
	t.cancel = cancel
	t.cron.Start()
	t.started = true
	logger.Info("Re-optimization scheduled", "schedule", t.opts.Schedule, "next", t.Next())
	return nil
}

// Stop cancels any running revision and waits for it to finish.
func (t *Trigger) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.started {
		return
	}
	t.cancel()
	<-t.cron.Stop().Done()
	t.cron.Remove(t.entryID)
	t.entryID = 0
	t.started = false
}

// Next returns the next scheduled run, or the zero time when not started.
func (t *Trigger) Next() time.Time {
	if t.entryID == 0 {
		return time.Time{}
	}
	return t.cron.Entry(t.entryID).Next
}

func (t *Trigger) tick(ctx context.Context) {
	plans, err := t.RunOnce(ctx)
	if err != nil {
		logger.Error("Scheduled re-optimization failed", "error", err)
		return
	}
	logger.Info("Scheduled re-optimization finished", "plans", len(plans))
}

// RunOnce revises the target week for every user. Runs never overlap.
func (t *Trigger) RunOnce(ctx context.Context) ([]*models.WeeklyPlan, error) {
	t.running.Lock()
	defer t.running.Unlock()

	users, err := t.states.GetUsers()
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	ref := "this"
	if t.opts.PlanNextWeek {
		ref = "next"
	}
	now := t.opts.Now().In(t.opts.Location)

	// Users may start their weeks on different days or in different zones.
	groups := make(map[int64][]models.UserState)
	weeks := make(map[int64]time.Time)
	var errs []error
	for _, u := range users {
		state, err := t.states.GetUserState(u.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("user %s: %w", u.ID, err))
			continue
		}
		week, err := utils.ParseWeek(ref, now, state.Settings)
		if err != nil {
			errs = append(errs, fmt.Errorf("user %s: %w", u.ID, err))
			continue
		}
		key := week.Unix()
		groups[key] = append(groups[key], state)
		weeks[key] = week
	}

	keys := make([]int64, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	var plans []*models.WeeklyPlan
	for _, k := range keys {
		revised, err := t.planner.ReviseAll(ctx, groups[k], weeks[k])
		plans = append(plans, revised...)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return plans, errors.Join(errs...)
}
