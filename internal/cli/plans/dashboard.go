package plans

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/studylit/internal/cli"
	"github.com/julianstephens/studylit/internal/constants"
	"github.com/julianstephens/studylit/internal/storage"
	"github.com/julianstephens/studylit/internal/tui"
	"github.com/julianstephens/studylit/internal/tui/components/sessionlist"
	"github.com/julianstephens/studylit/internal/tui/data"
)

type DashboardCmd struct{}

func (c *DashboardCmd) Run(ctx *cli.Context) error {
	p := tea.NewProgram(tui.New(&dashboard{ctx: ctx}), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("dashboard failed: %w", err)
	}
	return nil
}

// dashboard serves the current week to the TUI.
type dashboard struct {
	ctx *cli.Context
}

func (d *dashboard) Load(context.Context) (data.Week, error) {
	week := data.Week{Now: d.ctx.Now()}
	start, err := d.ctx.ResolveWeek("this")
	if err != nil {
		return week, err
	}
	if week.Names, err = d.ctx.SubjectNames(); err != nil {
		return week, err
	}

	plan, err := d.ctx.Store.GetLatestPlan(d.ctx.UserID, start.Format(constants.DateFormat))
	if errors.Is(err, storage.ErrNotFound) {
		return week, nil
	}
	if err != nil {
		return week, fmt.Errorf("failed to load plan: %w", err)
	}
	week.Plan = &plan
	if week.States, err = d.ctx.Store.GetSessionStates(plan.ID); err != nil {
		return week, fmt.Errorf("failed to load session states: %w", err)
	}
	return week, nil
}

func (d *dashboard) Replan(ctx context.Context) error {
	start, err := d.ctx.ResolveWeek("this")
	if err != nil {
		return err
	}
	_, err = d.ctx.Plan(ctx, start)
	return err
}

func (d *dashboard) Act(action sessionlist.Action, sessionID string) error {
	var err error
	switch action {
	case sessionlist.ActionStart:
		_, err = d.ctx.Tracker.Start(sessionID)
	case sessionlist.ActionComplete:
		_, err = d.ctx.Tracker.Complete(sessionID, 0)
	case sessionlist.ActionSkip:
		_, err = d.ctx.Tracker.Skip(sessionID)
	default:
		err = fmt.Errorf("unknown action %q", action)
	}
	return err
}
