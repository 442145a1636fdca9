package settings

import (
	"fmt"

	"github.com/julianstephens/studylit/internal/cli"
	"github.com/julianstephens/studylit/internal/render"
)

type ProfileCmd struct {
	Show  ProfileShowCmd  `cmd:"" help:"Show the learned productivity profile." default:"1"`
	Reset ProfileResetCmd `cmd:"" help:"Forget learned productivity and difficulty."`
}

type ProfileShowCmd struct {
	Peaks int `short:"n" help:"Number of peak hours to list." default:"3"`
}

func (c *ProfileShowCmd) Run(ctx *cli.Context) error {
	learned, err := ctx.Learning.ForUser(ctx.UserID)
	if err != nil {
		return err
	}
	names, err := ctx.SubjectNames()
	if err != nil {
		return err
	}
	render.Profile(ctx.Out, learned.Model.Snapshot(), learned.Model.PeakHours(c.Peaks), names)
	return nil
}

type ProfileResetCmd struct {
	Yes bool `short:"y" help:"Do not ask for confirmation."`
}

func (c *ProfileResetCmd) Run(ctx *cli.Context) error {
	if !c.Yes {
		ok, err := ctx.Confirm("Reset the learned productivity profile? Session history is kept.")
		if err != nil {
			return err
		}
		if !ok {
			ctx.Println("Cancelled.")
			return nil
		}
	}

	learned, err := ctx.Learning.ForUser(ctx.UserID)
	if err != nil {
		return err
	}
	if err := learned.Model.Reset(); err != nil {
		return fmt.Errorf("failed to reset profile: %w", err)
	}
	ctx.Printf("Profile reset (now v%d).\n", learned.Model.Version())
	return nil
}
