package schedule

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/studylit/internal/cli"
	"github.com/julianstephens/studylit/internal/constants"
	"github.com/julianstephens/studylit/internal/models"
	"github.com/julianstephens/studylit/internal/utils"
)

type AvailabilityCmd struct {
	Add    AvailabilityAddCmd    `cmd:"" help:"Declare a free time window."`
	List   AvailabilityListCmd   `cmd:"" help:"List free time windows." default:"1"`
	Delete AvailabilityDeleteCmd `cmd:"" help:"Delete a free time window."`
}

type AvailabilityAddCmd struct {
	Days  string `short:"w" help:"Comma-separated weekdays the window recurs on."`
	Date  string `help:"One-off date (YYYY-MM-DD) instead of recurring weekdays."`
	Start string `short:"s" help:"Start time (HH:MM)." required:""`
	End   string `short:"e" help:"End time (HH:MM). At or before start means past midnight." required:""`
}

func (c *AvailabilityAddCmd) Validate() error {
	if (c.Days == "") == (c.Date == "") {
		return fmt.Errorf("specify exactly one of --days or --date")
	}
	if !utils.ValidateTimeFormat(c.Start) || !utils.ValidateTimeFormat(c.End) {
		return fmt.Errorf("start and end must use HH:MM format")
	}
	return nil
}

func (c *AvailabilityAddCmd) Run(ctx *cli.Context) error {
	var blocks []models.AvailabilityBlock
	if c.Date != "" {
		day, err := time.Parse(constants.DateFormat, c.Date)
		if err != nil {
			return fmt.Errorf("invalid date %q, use YYYY-MM-DD: %w", c.Date, err)
		}
		blocks = append(blocks, models.AvailabilityBlock{
			Weekday: day.Weekday(),
			Date:    c.Date,
		})
	} else {
		weekdays, err := models.ParseWeekdays(c.Days)
		if err != nil {
			return err
		}
		for _, wd := range weekdays {
			blocks = append(blocks, models.AvailabilityBlock{Weekday: wd, Recurring: true})
		}
	}

	for _, b := range blocks {
		b.ID = uuid.New().String()
		b.UserID = ctx.UserID
		b.Start = c.Start
		b.End = c.End
		if err := ctx.Store.AddAvailability(b); err != nil {
			return fmt.Errorf("failed to add availability: %w", err)
		}
		ctx.Printf("Added availability: %s (ID: %s)\n", describeBlock(b), b.ID)
	}
	ctx.Replan(context.Background())
	return nil
}

type AvailabilityListCmd struct{}

func (c *AvailabilityListCmd) Run(ctx *cli.Context) error {
	blocks, err := ctx.Store.GetAvailability(ctx.UserID)
	if err != nil {
		return fmt.Errorf("failed to get availability: %w", err)
	}
	if len(blocks) == 0 {
		ctx.Println("No availability declared. Add some with 'studylit availability add'.")
		return nil
	}

	sort.SliceStable(blocks, func(i, j int) bool {
		if blocks[i].Recurring != blocks[j].Recurring {
			return blocks[i].Recurring
		}
		if blocks[i].Date != blocks[j].Date {
			return blocks[i].Date < blocks[j].Date
		}
		if blocks[i].Weekday != blocks[j].Weekday {
			return blocks[i].Weekday < blocks[j].Weekday
		}
		return blocks[i].Start < blocks[j].Start
	})

	ctx.Println("Availability:")
	for _, b := range blocks {
		ctx.Printf("  %-32s ID: %s\n", describeBlock(b), b.ID)
	}
	return nil
}

type AvailabilityDeleteCmd struct {
	ID string `arg:"" help:"Availability window ID."`
}

func (c *AvailabilityDeleteCmd) Run(ctx *cli.Context) error {
	if err := ctx.Store.DeleteAvailability(c.ID); err != nil {
		return fmt.Errorf("failed to delete availability %s: %w", c.ID, err)
	}
	ctx.Printf("Deleted availability: %s\n", c.ID)
	ctx.Replan(context.Background())
	return nil
}

func describeBlock(b models.AvailabilityBlock) string {
	span := b.Start + "–" + b.End
	if b.End <= b.Start {
		span += " (+1 day)"
	}
	if !b.Recurring {
		return fmt.Sprintf("%s %s", b.Date, span)
	}
	return fmt.Sprintf("every %s %s", b.Weekday, span)
}

func describeDays(days []time.Weekday) string {
	if len(days) == 0 {
		return "daily"
	}
	names := make([]string, len(days))
	for i, d := range days {
		names[i] = d.String()[:3]
	}
	return strings.Join(names, ",")
}
