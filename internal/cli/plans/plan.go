package plans

import (
	"context"
	"errors"
	"fmt"

	"github.com/julianstephens/studylit/internal/cli"
	"github.com/julianstephens/studylit/internal/constants"
	"github.com/julianstephens/studylit/internal/models"
	"github.com/julianstephens/studylit/internal/planner"
	"github.com/julianstephens/studylit/internal/render"
	"github.com/julianstephens/studylit/internal/storage"
)

type PlanCmd struct {
	Week string `short:"w" help:"Week to plan: this, next, last, or any date inside it." default:"this"`
}

func (c *PlanCmd) Run(ctx *cli.Context) error {
	week, err := ctx.ResolveWeek(c.Week)
	if err != nil {
		return err
	}

	plan, err := ctx.Plan(context.Background(), week)
	if err != nil {
		return err
	}

	names, err := ctx.SubjectNames()
	if err != nil {
		return err
	}
	render.Plan(ctx.Out, *plan, names, nil, ctx.Now())
	if plan.BasedOn != "" {
		ctx.Printf("\nSupersedes revision %d (%s).\n", plan.Revision-1, plan.BasedOn)
	}
	return nil
}

type PlansCmd struct {
	List PlansListCmd `cmd:"" help:"List issued plans, newest first." default:"1"`
	Show PlansShowCmd `cmd:"" help:"Show a plan and how it has been followed."`
}

type PlansListCmd struct {
	Limit int `short:"n" help:"Maximum number of plans to list (0 for all)." default:"10"`
}

func (c *PlansListCmd) Run(ctx *cli.Context) error {
	plans, err := ctx.Store.ListPlans(ctx.UserID, c.Limit)
	if err != nil {
		return fmt.Errorf("failed to list plans: %w", err)
	}
	render.PlanList(ctx.Out, plans, ctx.Now())
	return nil
}

type PlansShowCmd struct {
	ID   string `arg:"" optional:"" help:"Plan ID. Defaults to the latest revision of --week."`
	Week string `short:"w" help:"Week to show when no ID is given." default:"this"`
}

func (c *PlansShowCmd) Run(ctx *cli.Context) error {
	plan, err := c.load(ctx)
	if err != nil {
		return err
	}

	states, err := ctx.Store.GetSessionStates(plan.ID)
	if err != nil {
		return fmt.Errorf("failed to load session states: %w", err)
	}
	names, err := ctx.SubjectNames()
	if err != nil {
		return err
	}

	render.Plan(ctx.Out, plan, names, states, ctx.Now())
	ctx.Println()
	render.Overview(ctx.Out, planner.Summarize(plan, states), names)
	return nil
}

func (c *PlansShowCmd) load(ctx *cli.Context) (models.WeeklyPlan, error) {
	if c.ID != "" {
		plan, err := ctx.Store.GetPlan(c.ID)
		if err != nil || plan.UserID != ctx.UserID {
			return models.WeeklyPlan{}, fmt.Errorf("failed to find plan with ID %s", c.ID)
		}
		return plan, nil
	}

	week, err := ctx.ResolveWeek(c.Week)
	if err != nil {
		return models.WeeklyPlan{}, err
	}
	weekStr := week.Format(constants.DateFormat)
	plan, err := ctx.Store.GetLatestPlan(ctx.UserID, weekStr)
	if errors.Is(err, storage.ErrNotFound) {
		return models.WeeklyPlan{}, fmt.Errorf("no plan for week of %s, run '%s plan' first", weekStr, constants.AppName)
	}
	if err != nil {
		return models.WeeklyPlan{}, fmt.Errorf("failed to load plan: %w", err)
	}
	return plan, nil
}
