package subjects

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/julianstephens/studylit/internal/cli"
	"github.com/julianstephens/studylit/internal/models"
	"github.com/julianstephens/studylit/internal/render"
)

type SubjectCmd struct {
	Add     SubjectAddCmd     `cmd:"" help:"Add a subject."`
	List    SubjectListCmd    `cmd:"" help:"List subjects." default:"1"`
	Edit    SubjectEditCmd    `cmd:"" help:"Edit a subject."`
	Delete  SubjectDeleteCmd  `cmd:"" help:"Delete a subject."`
	Restore SubjectRestoreCmd `cmd:"" help:"Restore a deleted subject."`
}

type SubjectAddCmd struct {
	Name       string  `arg:"" help:"Subject name."`
	Target     int     `short:"t" help:"Weekly study target in minutes." required:""`
	Priority   float64 `short:"p" help:"Relative priority (greater than 0)." default:"1"`
	Difficulty string  `short:"d" help:"Difficulty (very_easy|easy|medium|hard|very_hard)." default:"medium"`
}

func (c *SubjectAddCmd) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("name must not be empty")
	}
	if c.Target < 0 {
		return fmt.Errorf("target must not be negative")
	}
	if c.Priority <= 0 {
		return fmt.Errorf("priority must be greater than zero")
	}
	return nil
}

func (c *SubjectAddCmd) Run(ctx *cli.Context) error {
	difficulty, err := models.ParseDifficulty(c.Difficulty)
	if err != nil {
		return err
	}

	subject := models.Subject{
		ID:              uuid.New().String(),
		UserID:          ctx.UserID,
		Name:            strings.TrimSpace(c.Name),
		Priority:        c.Priority,
		Difficulty:      difficulty,
		TargetWeeklyMin: c.Target,
		CreatedAt:       ctx.Now(),
	}
	if err := ctx.Store.AddSubject(subject); err != nil {
		return fmt.Errorf("failed to add subject: %w", err)
	}

	ctx.Printf("Added subject: %s (ID: %s)\n", subject.Name, subject.ID)
	ctx.Replan(context.Background())
	return nil
}

type SubjectListCmd struct {
	All bool `help:"Include deleted subjects."`
}

func (c *SubjectListCmd) Run(ctx *cli.Context) error {
	subjects, err := ctx.Store.GetSubjects(ctx.UserID, c.All)
	if err != nil {
		return fmt.Errorf("failed to get subjects: %w", err)
	}
	if len(subjects) == 0 {
		ctx.Println("No subjects found")
		return nil
	}

	total := 0
	ctx.Println("Subjects:")
	for _, s := range subjects {
		status := ""
		if s.DeletedAt != nil {
			status = " [deleted]"
		} else {
			total += s.TargetWeeklyMin
		}
		ctx.Printf("  %s%s - %s/week (priority %g, %s)\n", s.Name, status, render.Minutes(s.TargetWeeklyMin), s.Priority, s.Difficulty)
		ctx.Printf("      ID: %s\n", s.ID)
	}
	ctx.Printf("\nTotal weekly target: %s\n", render.Minutes(total))
	return nil
}

type SubjectEditCmd struct {
	ID         string   `arg:"" help:"Subject ID."`
	Name       *string  `help:"New name."`
	Target     *int     `short:"t" help:"New weekly target in minutes."`
	Priority   *float64 `short:"p" help:"New priority."`
	Difficulty *string  `short:"d" help:"New difficulty."`
}

func (c *SubjectEditCmd) Run(ctx *cli.Context) error {
	subject, err := ctx.Store.GetSubject(c.ID)
	if err != nil {
		return fmt.Errorf("failed to find subject with ID %s: %w", c.ID, err)
	}
	if subject.UserID != ctx.UserID {
		return fmt.Errorf("failed to find subject with ID %s", c.ID)
	}

	updated := false
	if c.Name != nil {
		if strings.TrimSpace(*c.Name) == "" {
			return fmt.Errorf("name must not be empty")
		}
		subject.Name = strings.TrimSpace(*c.Name)
		updated = true
	}
	if c.Target != nil {
		if *c.Target < 0 {
			return fmt.Errorf("target must not be negative")
		}
		subject.TargetWeeklyMin = *c.Target
		updated = true
	}
	if c.Priority != nil {
		if *c.Priority <= 0 {
			return fmt.Errorf("priority must be greater than zero")
		}
		subject.Priority = *c.Priority
		updated = true
	}
	if c.Difficulty != nil {
		if subject.Difficulty, err = models.ParseDifficulty(*c.Difficulty); err != nil {
			return err
		}
		updated = true
	}

	if !updated {
		ctx.Println("No changes specified.")
		return nil
	}
	if err := ctx.Store.UpdateSubject(subject); err != nil {
		return fmt.Errorf("failed to update subject: %w", err)
	}
	ctx.Printf("Updated subject: %s\n", subject.Name)
	ctx.Replan(context.Background())
	return nil
}

type SubjectDeleteCmd struct {
	ID  string `arg:"" help:"Subject ID to delete."`
	Yes bool   `short:"y" help:"Do not ask for confirmation."`
}

func (c *SubjectDeleteCmd) Run(ctx *cli.Context) error {
	subject, err := ctx.Store.GetSubject(c.ID)
	if err != nil || subject.UserID != ctx.UserID {
		return fmt.Errorf("failed to find subject with ID %s", c.ID)
	}

	if !c.Yes {
		ok, err := ctx.Confirm(fmt.Sprintf("Delete %s? Issued plans keep its sessions.", subject.Name))
		if err != nil {
			return err
		}
		if !ok {
			ctx.Println("Cancelled.")
			return nil
		}
	}

	if err := ctx.Store.DeleteSubject(c.ID); err != nil {
		return fmt.Errorf("failed to delete subject: %w", err)
	}
	ctx.Printf("Deleted subject: %s (ID: %s)\n", subject.Name, c.ID)
	ctx.Replan(context.Background())
	return nil
}

type SubjectRestoreCmd struct {
	ID string `arg:"" help:"Subject ID to restore."`
}

func (c *SubjectRestoreCmd) Run(ctx *cli.Context) error {
	subject, err := ctx.Store.GetSubject(c.ID)
	if err != nil || subject.UserID != ctx.UserID {
		return fmt.Errorf("failed to find subject with ID %s", c.ID)
	}
	if err := ctx.Store.RestoreSubject(c.ID); err != nil {
		return fmt.Errorf("failed to restore subject: %w", err)
	}
	ctx.Printf("Restored subject: %s\n", subject.Name)
	ctx.Replan(context.Background())
	return nil
}
