package plans

import (
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/studylit/internal/cli"
	"github.com/julianstephens/studylit/internal/constants"
	"github.com/julianstephens/studylit/internal/optimizer"
	"github.com/julianstephens/studylit/internal/render"
)

type OptimizeCmd struct {
	Interactive bool `help:"Interactively review and apply suggestions." default:"false"`
	AutoApply   bool `help:"Apply every suggestion without confirmation." default:"false"`
}

func (c *OptimizeCmd) Run(ctx *cli.Context) error {
	learned, err := ctx.Learning.ForUser(ctx.UserID)
	if err != nil {
		return err
	}
	subjects, err := ctx.Store.GetSubjects(ctx.UserID, false)
	if err != nil {
		return fmt.Errorf("failed to get subjects: %w", err)
	}

	suggestions := learned.Adapter.Suggestions(subjects)
	render.Suggestions(ctx.Out, suggestions)
	if len(suggestions) == 0 {
		return nil
	}

	switch {
	case c.AutoApply:
		applied := 0
		for _, opt := range suggestions {
			if err := applyOptimization(ctx, opt); err != nil {
				ctx.Printf("  Failed to apply suggestion for %s: %v\n", opt.SubjectName, err)
				continue
			}
			applied++
		}
		ctx.Printf("\nApplied %d/%d suggestions.\n", applied, len(suggestions))
	case c.Interactive:
		return c.runInteractive(ctx, suggestions)
	default:
		ctx.Println("\nThe planner already adjusts for these trends. Use --interactive or --auto-apply to change the subjects themselves.")
	}
	return nil
}

func (c *OptimizeCmd) runInteractive(ctx *cli.Context, suggestions []optimizer.Optimization) error {
	applied := 0
	for i, opt := range suggestions {
		var choice string
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewSelect[string]().
					Title(fmt.Sprintf("[%d/%d] %s: %s", i+1, len(suggestions), opt.SubjectName, opt.Reason)).
					Options(
						huh.NewOption("Apply", "apply"),
						huh.NewOption("Skip", "skip"),
						huh.NewOption("Skip remaining", "skip_all"),
					).
					Value(&choice),
			),
		)
		if err := form.Run(); err != nil {
			return fmt.Errorf("interactive form error: %w", err)
		}

		switch choice {
		case "apply":
			if err := applyOptimization(ctx, opt); err != nil {
				ctx.Printf("  Failed to apply: %v\n", err)
				continue
			}
			applied++
		case "skip_all":
			ctx.Printf("\nApplied %d/%d suggestions.\n", applied, len(suggestions))
			return nil
		}
	}
	ctx.Printf("\nApplied %d/%d suggestions.\n", applied, len(suggestions))
	return nil
}

// applyOptimization writes a suggestion into the subject or the user's settings.
func applyOptimization(ctx *cli.Context, opt optimizer.Optimization) error {
	suggested, ok := opt.SuggestedValue.(map[string]interface{})
	if !ok {
		return fmt.Errorf("suggestion has no value to apply")
	}

	switch opt.Type {
	case constants.OptimizationReduceTarget, constants.OptimizationRaisePriority:
		subject, err := ctx.Store.GetSubject(opt.SubjectID)
		if err != nil {
			return err
		}
		if v, ok := suggested["target_weekly_min"].(int); ok {
			subject.TargetWeeklyMin = v
		}
		if v, ok := suggested["priority"].(float64); ok {
			subject.Priority = v
		}
		return ctx.Store.UpdateSubject(subject)
	case constants.OptimizationIncreaseDuration, constants.OptimizationReduceDuration:
		v, ok := suggested["max_session_min"].(int)
		if !ok {
			return fmt.Errorf("suggestion has no session length")
		}
		settings, err := ctx.Settings()
		if err != nil {
			return err
		}
		settings.MaxSessionMin = v
		return ctx.Store.SaveSettings(ctx.UserID, settings)
	}
	return fmt.Errorf("unknown suggestion type %s", opt.Type)
}
