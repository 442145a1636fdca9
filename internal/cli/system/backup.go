package system

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/julianstephens/studylit/internal/backup"
	"github.com/julianstephens/studylit/internal/cli"
	"github.com/julianstephens/studylit/internal/migration"
	"github.com/julianstephens/studylit/internal/storage/sqlstore"
)

type BackupCmd struct {
	Create  BackupCreateCmd  `cmd:"" help:"Snapshot the database."`
	List    BackupListCmd    `cmd:"" help:"List database snapshots, newest first." default:"1"`
	Restore BackupRestoreCmd `cmd:"" help:"Replace the database with a snapshot."`
}

// backups returns the snapshot manager for the configured database. Only SQLite
// files can be snapshotted; PostgreSQL has its own tooling.
func backups(ctx *cli.Context) (*backup.Manager, error) {
	if sqlstore.DetectDialect(ctx.Config.DB) != migration.SQLite {
		return nil, errors.New("backups are only supported for SQLite databases, use pg_dump for PostgreSQL")
	}
	return backup.NewManager(ctx.Config.DB, backup.WithClock(ctx.Now)), nil
}

type BackupCreateCmd struct{}

func (c *BackupCreateCmd) Run(ctx *cli.Context) error {
	m, err := backups(ctx)
	if err != nil {
		return err
	}
	snap, err := m.Create(backup.LabelManual)
	if err != nil {
		return err
	}
	ctx.Printf("Backup created: %s (%s)\n", snap.Name(), humanize.Bytes(uint64(snap.Size)))
	return nil
}

type BackupListCmd struct{}

func (c *BackupListCmd) Run(ctx *cli.Context) error {
	m, err := backups(ctx)
	if err != nil {
		return err
	}
	snaps, err := m.List()
	if err != nil {
		return err
	}
	if len(snaps) == 0 {
		ctx.Printf("No backups in %s\n", m.Dir())
		return nil
	}
	ctx.Printf("Backups in %s:\n", m.Dir())
	for _, s := range snaps {
		ctx.Printf("  %-48s %-12s %8s  %s\n", s.Name(), s.Label, humanize.Bytes(uint64(s.Size)),
			humanize.RelTime(s.Taken, ctx.Now(), "ago", "from now"))
	}
	return nil
}

type BackupRestoreCmd struct {
	Name string `arg:"" help:"Backup file name, as shown by 'backup list'."`
	Yes  bool   `short:"y" help:"Do not ask for confirmation."`
}

func (c *BackupRestoreCmd) Run(ctx *cli.Context) error {
	m, err := backups(ctx)
	if err != nil {
		return err
	}
	snap, err := m.Find(c.Name)
	if err != nil {
		return err
	}

	if !c.Yes {
		ok, err := ctx.Confirm(fmt.Sprintf("Replace the database with %s? The current one is backed up first.", snap.Name()))
		if err != nil {
			return err
		}
		if !ok {
			ctx.Println("Cancelled.")
			return nil
		}
	}

	if err := ctx.Store.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	previous, err := m.Restore(snap)
	if err != nil {
		return err
	}
	if previous != nil {
		ctx.Printf("Previous database saved as %s\n", previous.Name())
	}
	ctx.Printf("Restored %s\n", snap.Name())
	return nil
}
