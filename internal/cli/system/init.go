package system

import (
	"fmt"

	"github.com/julianstephens/studylit/internal/backup"
	"github.com/julianstephens/studylit/internal/cli"
	"github.com/julianstephens/studylit/internal/models"
)

type InitCmd struct {
	Name string `help:"Display name of the user being set up."`
}

func (c *InitCmd) Run(ctx *cli.Context) error {
	if err := ctx.Store.Init(); err != nil {
		return err
	}

	name := c.Name
	if name == "" {
		name = ctx.UserID
	}
	if err := ctx.Store.EnsureUser(models.User{ID: ctx.UserID, Name: name}); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	ctx.Printf("Initialized studylit storage at: %s\n", ctx.Store.GetConfigPath())
	ctx.Println("Next: add subjects ('subject add'), free time ('availability add') and a sleep window ('sleep set').")
	return nil
}

// migrator is implemented by stores with versioned schemas.
type migrator interface {
	Migrate(logFn func(string)) (int, error)
	SchemaVersion() (current, latest int, err error)
}

type MigrateCmd struct {
	Status bool `help:"Only report the schema version."`
}

func (c *MigrateCmd) Run(ctx *cli.Context) error {
	m, ok := ctx.Store.(migrator)
	if !ok {
		return fmt.Errorf("storage does not support migrations")
	}

	current, latest, err := m.SchemaVersion()
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if c.Status {
		ctx.Printf("Schema version %d (latest %d)\n", current, latest)
		return nil
	}

	if current > 0 && current < latest {
		if mgr, err := backups(ctx); err == nil {
			snap, err := mgr.Create(backup.LabelPreMigrate)
			if err != nil {
				return fmt.Errorf("failed to back up before migrating: %w", err)
			}
			ctx.Printf("Backed up database to %s\n", snap.Name())
		}
	}

	count, err := m.Migrate(func(msg string) { ctx.Println(msg) })
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	if count == 0 {
		ctx.Println("No migrations to apply. Database is up to date.")
	} else {
		ctx.Printf("\nSuccessfully applied %d migration(s).\n", count)
	}
	return nil
}
