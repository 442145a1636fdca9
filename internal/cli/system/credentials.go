package system

import (
	"errors"
	"fmt"

	"github.com/julianstephens/studylit/internal/cli"
	"github.com/julianstephens/studylit/internal/keyring"
	"github.com/julianstephens/studylit/internal/migration"
	"github.com/julianstephens/studylit/internal/storage/sqlstore"
)

type CredentialsCmd struct {
	Set    CredentialsSetCmd    `cmd:"" help:"Store a PostgreSQL connection string in the OS keyring."`
	Delete CredentialsDeleteCmd `cmd:"" help:"Remove the stored connection string."`
	Status CredentialsStatusCmd `cmd:"" help:"Show keyring availability and the stored connection string." default:"1"`
}

type CredentialsSetCmd struct {
	ConnectionString string `arg:"" help:"PostgreSQL connection string to store in the keyring."`
}

func (cmd *CredentialsSetCmd) Run(ctx *cli.Context) error {
	if sqlstore.DetectDialect(cmd.ConnectionString) != migration.Postgres {
		return errors.New("connection string must be a valid PostgreSQL connection string")
	}

	// Passwords are allowed here; the keyring is encrypted.
	if err := sqlstore.ValidateConnString(cmd.ConnectionString); err != nil && !errors.Is(err, sqlstore.ErrEmbeddedCredentials) {
		return fmt.Errorf("invalid connection string: %w", err)
	}

	if err := keyring.SetConnectionString(cmd.ConnectionString); err != nil {
		return err
	}
	ctx.Println("✓ Connection string stored in OS keyring")
	ctx.Printf("  Set db: %s in the config file to use it\n", keyring.KeyringDSN)
	return nil
}

type CredentialsDeleteCmd struct{}

func (cmd *CredentialsDeleteCmd) Run(ctx *cli.Context) error {
	if err := keyring.DeleteConnectionString(); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return errors.New("no connection string found in keyring")
		}
		return err
	}
	ctx.Println("✓ Connection string deleted from OS keyring")
	return nil
}

type CredentialsStatusCmd struct{}

func (cmd *CredentialsStatusCmd) Run(ctx *cli.Context) error {
	if !keyring.IsAvailable() {
		return keyring.ErrKeyringUnavailable
	}
	ctx.Println("✓ OS keyring is available")

	connStr, err := keyring.GetConnectionString()
	switch {
	case errors.Is(err, keyring.ErrNotFound):
		ctx.Println("ℹ No connection string stored in keyring")
	case err != nil:
		return err
	default:
		ctx.Printf("✓ Stored connection string: %s\n", keyring.MaskPassword(connStr))
	}
	return nil
}
