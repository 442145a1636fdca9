package plans

import (
	"fmt"

	"github.com/julianstephens/studylit/internal/availability"
	"github.com/julianstephens/studylit/internal/cli"
	"github.com/julianstephens/studylit/internal/utils"
	"github.com/julianstephens/studylit/internal/validation"
)

type ValidateCmd struct {
	Week string `short:"w" help:"Also check the latest plan of this week." default:"this"`
}

// Run checks the planning input and, when one exists, the week's latest plan
// against the current availability.
func (c *ValidateCmd) Run(ctx *cli.Context) error {
	state, err := ctx.Store.GetUserState(ctx.UserID)
	if err != nil {
		return fmt.Errorf("failed to load planning state: %w", err)
	}

	validator := validation.New()
	input := validator.ValidateState(state)
	ctx.Println("Planning input:")
	ctx.Println(input.FormatReport())

	show := &PlansShowCmd{Week: c.Week}
	plan, err := show.load(ctx)
	if err != nil {
		ctx.Println("No plan to check.")
		if len(input.Blocking()) > 0 {
			return fmt.Errorf("planning input has %d blocking conflict(s)", len(input.Blocking()))
		}
		return nil
	}

	loc, err := utils.LoadLocation(state.Settings.Timezone)
	if err != nil {
		return err
	}
	weekStart, err := utils.ParseDateInLocation(plan.WeekStart, loc)
	if err != nil {
		return err
	}
	avail, err := availability.New(state.Settings.MinSessionMin).Resolve(state.Availability, state.Commitments, weekStart)
	if err != nil {
		return err
	}

	result := validator.ValidatePlan(plan, avail.Slots, state.Subjects, state.Settings)
	ctx.Printf("\nPlan for week of %s (revision %d):\n", plan.WeekStart, plan.Revision)
	ctx.Println(result.FormatReport())

	if len(input.Blocking()) > 0 {
		return fmt.Errorf("planning input has %d blocking conflict(s)", len(input.Blocking()))
	}
	return nil
}
