package settings

import (
	"context"
	"fmt"
	"sort"

	"github.com/julianstephens/studylit/internal/cli"
	"github.com/julianstephens/studylit/internal/models"
)

type SettingsCmd struct {
	Show SettingsShowCmd `cmd:"" help:"Show planner settings." default:"1"`
	Set  SettingsSetCmd  `cmd:"" help:"Change a planner setting."`
}

type SettingsShowCmd struct{}

func (c *SettingsShowCmd) Run(ctx *cli.Context) error {
	settings, err := ctx.Settings()
	if err != nil {
		return err
	}

	values := models.SettingsToMap(settings)
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ctx.Println("Current Settings:")
	for _, k := range keys {
		ctx.Printf("  %-24s %s\n", k, values[k])
	}
	return nil
}

type SettingsSetCmd struct {
	Key   string `arg:"" help:"Setting name, as shown by 'settings show'."`
	Value string `arg:"" help:"New value."`
}

func (c *SettingsSetCmd) Run(ctx *cli.Context) error {
	settings, err := ctx.Settings()
	if err != nil {
		return err
	}

	values := models.SettingsToMap(settings)
	if _, ok := values[c.Key]; !ok {
		return fmt.Errorf("unknown setting %q", c.Key)
	}
	values[c.Key] = c.Value

	updated, err := models.MapToSettings(values)
	if err != nil {
		return err
	}
	if err := updated.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	if err := ctx.Store.SaveSettings(ctx.UserID, updated); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	ctx.Printf("Set %s = %s\n", c.Key, c.Value)
	ctx.Replan(context.Background())
	return nil
}
