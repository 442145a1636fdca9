package sessions

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/julianstephens/studylit/internal/cli"
	"github.com/julianstephens/studylit/internal/constants"
	"github.com/julianstephens/studylit/internal/models"
	"github.com/julianstephens/studylit/internal/render"
	"github.com/julianstephens/studylit/internal/storage"
	"github.com/julianstephens/studylit/internal/tracker"
)

type SessionCmd struct {
	Now      SessionNowCmd      `cmd:"" help:"Show the current and next session." default:"1"`
	List     SessionListCmd     `cmd:"" help:"List this week's sessions with their status."`
	Start    SessionStartCmd    `cmd:"" help:"Mark a session as started."`
	Complete SessionCompleteCmd `cmd:"" help:"Mark a session as completed."`
	Skip     SessionSkipCmd     `cmd:"" help:"Mark a session as skipped."`
}

// resolveSession accepts a full session ID or the unique suffix shown in listings.
func resolveSession(ctx *cli.Context, ref string) (string, error) {
	if _, _, err := ctx.Tracker.Status(ref); err == nil {
		return ref, nil
	}
	plan, err := currentPlan(ctx, "this")
	if err != nil {
		return "", err
	}
	var matches []string
	for _, s := range plan.Sessions {
		if strings.HasSuffix(s.ID, ref) {
			matches = append(matches, s.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no session matches %q", ref)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%q matches %d sessions, use more of the ID", ref, len(matches))
	}
}

func currentPlan(ctx *cli.Context, week string) (models.WeeklyPlan, error) {
	start, err := ctx.ResolveWeek(week)
	if err != nil {
		return models.WeeklyPlan{}, err
	}
	plan, err := ctx.Store.GetLatestPlan(ctx.UserID, start.Format(constants.DateFormat))
	if errors.Is(err, storage.ErrNotFound) {
		return models.WeeklyPlan{}, fmt.Errorf("no plan for week of %s, run '%s plan' first", start.Format(constants.DateFormat), constants.AppName)
	}
	return plan, err
}

type SessionNowCmd struct{}

func (c *SessionNowCmd) Run(ctx *cli.Context) error {
	plan, err := currentPlan(ctx, "this")
	if err != nil {
		return err
	}
	names, err := ctx.SubjectNames()
	if err != nil {
		return err
	}
	now := ctx.Now()

	if s, ok := tracker.Current(plan, now); ok {
		ctx.Printf("Now: %s until %s (%s left)  ID: %s\n",
			names[s.SubjectID], s.End.Format(constants.TimeFormat), render.Minutes(int(s.End.Sub(now).Minutes())), s.ID)
	} else {
		ctx.Println("Nothing scheduled right now.")
	}
	if s, ok := tracker.Next(plan, now); ok {
		ctx.Printf("Next: %s %s, %s for %s  ID: %s\n",
			names[s.SubjectID], humanize.RelTime(s.Start, now, "ago", "from now"), s.Start.Format("Mon 15:04"), render.Minutes(s.PlannedMin), s.ID)
	} else {
		ctx.Println("No more sessions this week.")
	}
	return nil
}

type SessionListCmd struct {
	Week string `short:"w" help:"Week to list." default:"this"`
}

func (c *SessionListCmd) Run(ctx *cli.Context) error {
	plan, err := currentPlan(ctx, c.Week)
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
	return nil
}

type SessionStartCmd struct {
	ID string `arg:"" help:"Session ID."`
}

func (c *SessionStartCmd) Run(ctx *cli.Context) error {
	id, err := resolveSession(ctx, c.ID)
	if err != nil {
		return err
	}
	if _, err := ctx.Tracker.Start(id); err != nil {
		return err
	}
	ctx.Printf("Started session %s\n", id)
	return nil
}

type SessionCompleteCmd struct {
	ID      string `arg:"" help:"Session ID."`
	Minutes int    `short:"m" help:"Minutes actually studied. Defaults to the time since start, or the planned length."`
}

func (c *SessionCompleteCmd) Run(ctx *cli.Context) error {
	id, err := resolveSession(ctx, c.ID)
	if err != nil {
		return err
	}
	outcome, err := ctx.Tracker.Complete(id, c.Minutes)
	if err != nil {
		return err
	}
	ctx.Printf("Completed session %s: %s of %s planned\n", id, render.Minutes(outcome.ActualMin), render.Minutes(outcome.PlannedMin))
	ctx.Printf("Rate it with '%s feedback %s <1-5>'\n", constants.AppName, c.ID)
	return nil
}

type SessionSkipCmd struct {
	ID string `arg:"" help:"Session ID."`
}

func (c *SessionSkipCmd) Run(ctx *cli.Context) error {
	id, err := resolveSession(ctx, c.ID)
	if err != nil {
		return err
	}
	if _, err := ctx.Tracker.Skip(id); err != nil {
		return err
	}
	ctx.Printf("Skipped session %s\n", id)
	return nil
}

type FeedbackCmd struct {
	ID      string `arg:"" help:"Completed session ID."`
	Rating  int    `arg:"" help:"How hard it felt, 1 (very easy) to 5 (very hard)."`
	Focus   int    `short:"f" help:"How focused you were, 1 to 5." default:"0"`
	Comment string `short:"c" help:"Optional note."`
}

func (c *FeedbackCmd) Validate() error {
	if c.Rating < constants.MinRating || c.Rating > constants.MaxRating {
		return fmt.Errorf("rating must be between %d and %d", constants.MinRating, constants.MaxRating)
	}
	if c.Focus != 0 && (c.Focus < constants.MinRating || c.Focus > constants.MaxRating) {
		return fmt.Errorf("focus must be between %d and %d", constants.MinRating, constants.MaxRating)
	}
	return nil
}

func (c *FeedbackCmd) Run(ctx *cli.Context) error {
	id, err := resolveSession(ctx, c.ID)
	if err != nil {
		return err
	}
	record, err := ctx.Tracker.Feedback(id, c.Rating, c.Focus, c.Comment)
	if err != nil {
		return err
	}
	ctx.Printf("Feedback recorded for session %s (rating %d)\n", id, record.Rating)
	return nil
}
