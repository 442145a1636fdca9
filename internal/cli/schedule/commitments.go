package schedule

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/julianstephens/studylit/internal/cli"
	"github.com/julianstephens/studylit/internal/models"
	"github.com/julianstephens/studylit/internal/utils"
)

type CommitmentCmd struct {
	Add    CommitmentAddCmd    `cmd:"" help:"Add a fixed commitment (class, work, ...)."`
	List   CommitmentListCmd   `cmd:"" help:"List fixed commitments." default:"1"`
	Delete CommitmentDeleteCmd `cmd:"" help:"Delete a fixed commitment."`
}

type CommitmentAddCmd struct {
	Label string `arg:"" help:"What the time is reserved for."`
	Days  string `short:"w" help:"Comma-separated weekdays. Empty means every day."`
	Start string `short:"s" help:"Start time (HH:MM)." required:""`
	End   string `short:"e" help:"End time (HH:MM)." required:""`
}

func (c *CommitmentAddCmd) Validate() error {
	if strings.TrimSpace(c.Label) == "" {
		return fmt.Errorf("label must not be empty")
	}
	if !utils.ValidateTimeFormat(c.Start) || !utils.ValidateTimeFormat(c.End) {
		return fmt.Errorf("start and end must use HH:MM format")
	}
	return nil
}

func (c *CommitmentAddCmd) Run(ctx *cli.Context) error {
	commitment := models.Commitment{
		ID:     uuid.New().String(),
		UserID: ctx.UserID,
		Kind:   models.CommitmentBusy,
		Label:  strings.TrimSpace(c.Label),
		Start:  c.Start,
		End:    c.End,
	}
	if c.Days != "" {
		weekdays, err := models.ParseWeekdays(c.Days)
		if err != nil {
			return err
		}
		commitment.Weekdays = weekdays
	}

	if err := ctx.Store.AddCommitment(commitment); err != nil {
		return fmt.Errorf("failed to add commitment: %w", err)
	}
	ctx.Printf("Added commitment: %s (ID: %s)\n", commitment.Label, commitment.ID)
	ctx.Replan(context.Background())
	return nil
}

type CommitmentListCmd struct{}

func (c *CommitmentListCmd) Run(ctx *cli.Context) error {
	commitments, err := ctx.Store.GetCommitments(ctx.UserID)
	if err != nil {
		return fmt.Errorf("failed to get commitments: %w", err)
	}
	if len(commitments) == 0 {
		ctx.Println("No commitments found")
		return nil
	}

	ctx.Println("Commitments:")
	for _, cm := range commitments {
		ctx.Printf("  [%s] %s - %s %s–%s\n", cm.Kind, cm.Label, describeDays(cm.Weekdays), cm.Start, cm.End)
		ctx.Printf("      ID: %s\n", cm.ID)
	}
	return nil
}

type CommitmentDeleteCmd struct {
	ID string `arg:"" help:"Commitment ID."`
}

func (c *CommitmentDeleteCmd) Run(ctx *cli.Context) error {
	if err := ctx.Store.DeleteCommitment(c.ID); err != nil {
		return fmt.Errorf("failed to delete commitment %s: %w", c.ID, err)
	}
	ctx.Printf("Deleted commitment: %s\n", c.ID)
	ctx.Replan(context.Background())
	return nil
}

type SleepCmd struct {
	Set SleepSetCmd `cmd:"" help:"Set the nightly sleep window."`
}

type SleepSetCmd struct {
	Start string `arg:"" help:"Bedtime (HH:MM)."`
	End   string `arg:"" help:"Wake-up time (HH:MM)."`
}

func (c *SleepSetCmd) Validate() error {
	if !utils.ValidateTimeFormat(c.Start) || !utils.ValidateTimeFormat(c.End) {
		return fmt.Errorf("start and end must use HH:MM format")
	}
	return nil
}

// Run replaces any existing sleep window with the new one.
func (c *SleepSetCmd) Run(ctx *cli.Context) error {
	commitments, err := ctx.Store.GetCommitments(ctx.UserID)
	if err != nil {
		return fmt.Errorf("failed to get commitments: %w", err)
	}
	for _, cm := range commitments {
		if cm.Kind != models.CommitmentSleep {
			continue
		}
		if err := ctx.Store.DeleteCommitment(cm.ID); err != nil {
			return fmt.Errorf("failed to replace sleep window: %w", err)
		}
	}

	sleep := models.Commitment{
		ID:     uuid.New().String(),
		UserID: ctx.UserID,
		Kind:   models.CommitmentSleep,
		Label:  "Sleep",
		Start:  c.Start,
		End:    c.End,
	}
	if err := ctx.Store.AddCommitment(sleep); err != nil {
		return fmt.Errorf("failed to save sleep window: %w", err)
	}
	ctx.Printf("Sleep window set: %s–%s\n", c.Start, c.End)
	ctx.Replan(context.Background())
	return nil
}
