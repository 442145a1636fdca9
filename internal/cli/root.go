package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/studylit/internal/config"
	"github.com/julianstephens/studylit/internal/constants"
	apperrors "github.com/julianstephens/studylit/internal/errors"
	"github.com/julianstephens/studylit/internal/learning"
	"github.com/julianstephens/studylit/internal/logger"
	"github.com/julianstephens/studylit/internal/models"
	"github.com/julianstephens/studylit/internal/planner"
	"github.com/julianstephens/studylit/internal/render"
	"github.com/julianstephens/studylit/internal/storage"
	"github.com/julianstephens/studylit/internal/tracker"
	"github.com/julianstephens/studylit/internal/utils"
)

type Context struct {
	Config   *config.Config
	Store    storage.Provider
	Learning *learning.Registry
	Reviser  *planner.Reviser
	Tracker  *tracker.Tracker
	UserID   string
	Out      io.Writer
	Now      func() time.Time
	// Confirm asks a yes/no question before destructive changes.
	Confirm func(title string) (bool, error)
}

// NewContext wires the planning components around a store.
func NewContext(cfg *config.Config, store storage.Provider) *Context {
	registry := learning.NewRegistry(store)
	return &Context{
		Config:   cfg,
		Store:    store,
		Learning: registry,
		Reviser:  planner.NewReviser(store, registry),
		Tracker:  tracker.New(store, registry),
		UserID:   cfg.UserID,
		Out:      os.Stdout,
		Now:      time.Now,
		Confirm:  ConfirmPrompt,
	}
}

// ConfirmPrompt asks a yes/no question on the terminal.
func ConfirmPrompt(title string) (bool, error) {
	var ok bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Affirmative("Yes").
				Negative("No").
				Value(&ok),
		),
	)
	if err := form.Run(); err != nil {
		return false, fmt.Errorf("interactive form error: %w", err)
	}
	return ok, nil
}

func (c *Context) Printf(format string, args ...interface{}) {
	fmt.Fprintf(c.Out, format, args...)
}

func (c *Context) Println(args ...interface{}) {
	fmt.Fprintln(c.Out, args...)
}

func (c *Context) Settings() (models.Settings, error) {
	settings, err := c.Store.GetSettings(c.UserID)
	if err != nil {
		return models.Settings{}, fmt.Errorf("failed to get settings: %w", err)
	}
	return settings, nil
}

// ResolveWeek turns a week argument into the start of that planning week in the
// user's timezone.
func (c *Context) ResolveWeek(input string) (time.Time, error) {
	settings, err := c.Settings()
	if err != nil {
		return time.Time{}, err
	}
	return utils.ParseWeek(input, c.Now(), settings)
}

// SubjectNames maps subject IDs to names, deleted subjects included, for display.
func (c *Context) SubjectNames() (map[string]string, error) {
	subjects, err := c.Store.GetSubjects(c.UserID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to get subjects: %w", err)
	}
	names := make(map[string]string, len(subjects))
	for _, s := range subjects {
		names[s.ID] = s.Name
	}
	return names, nil
}

// Plan runs a planning cycle for the given week and returns the new revision.
// A plan that could not be saved is still returned, with a warning printed.
func (c *Context) Plan(ctx context.Context, week time.Time) (*models.WeeklyPlan, error) {
	state, err := c.Store.GetUserState(c.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load planning state: %w", err)
	}
	plan, err := c.Reviser.Revise(ctx, state, week)
	if errors.Is(err, apperrors.ErrPersistence) && plan != nil {
		logger.Warn("Plan was not saved", "error", err)
		c.Println(apperrors.Formatf("plan could not be saved: %v", err))
		return plan, nil
	}
	return plan, err
}

// Replan issues a new revision of the current week's plan after planning inputs
// change. Weeks that were never planned are left alone.
func (c *Context) Replan(ctx context.Context) {
	week, err := c.ResolveWeek("")
	if err != nil {
		logger.Warn("Skipping replan", "error", err)
		return
	}
	if _, err := c.Store.GetLatestPlan(c.UserID, week.Format(constants.DateFormat)); err != nil {
		return
	}
	plan, err := c.Plan(ctx, week)
	if err != nil {
		c.Println(apperrors.Formatf("replanning failed: %v", err))
		return
	}
	c.Printf("Replanned week of %s (revision %d, %d sessions, %s).\n",
		plan.WeekStart, plan.Revision, len(plan.Sessions), render.Minutes(planner.Summarize(*plan, nil).TotalMin))
}
