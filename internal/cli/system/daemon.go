package system

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/julianstephens/studylit/internal/api"
	"github.com/julianstephens/studylit/internal/cli"
	"github.com/julianstephens/studylit/internal/constants"
	"github.com/julianstephens/studylit/internal/logger"
	"github.com/julianstephens/studylit/internal/trigger"
)

type DaemonCmd struct {
	RunNow bool `help:"Revise plans once immediately on start."`
	Serve  bool `help:"Also serve the read-only API."`
}

// Run re-optimizes every user's plans on the configured cron schedule until
// interrupted.
func (c *DaemonCmd) Run(ctx *cli.Context) error {
	lock, err := trigger.AcquireLock(ctx.Config.LogDir)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Warn("Failed to release daemon lock", "error", err)
		}
	}()

	loc, err := ctx.Config.Daemon.Location()
	if err != nil {
		return fmt.Errorf("invalid daemon timezone: %w", err)
	}
	t, err := trigger.New(ctx.Reviser, ctx.Store, trigger.Options{
		Schedule:     ctx.Config.Daemon.Schedule,
		Location:     loc,
		PlanNextWeek: ctx.Config.Daemon.PlanNextWeek,
		Now:          ctx.Now,
	})
	if err != nil {
		return err
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if c.RunNow {
		plans, err := t.RunOnce(sigCtx)
		if err != nil {
			logger.Error("Initial re-optimization failed", "error", err)
		}
		ctx.Printf("Revised %d plan(s).\n", len(plans))
	}

	if err := t.Start(); err != nil {
		return err
	}
	defer t.Stop()
	ctx.Printf("Daemon running (schedule %q, next run %s). Press Ctrl+C to stop.\n",
		ctx.Config.Daemon.Schedule, t.Next().Format("Mon Jan 2 15:04 MST"))

	if !c.Serve {
		<-sigCtx.Done()
		return nil
	}
	return serveUntilDone(sigCtx, ctx)
}

type ServeCmd struct {
	Listen string `help:"Address to listen on. Defaults to api.listen from the config file."`
}

func (c *ServeCmd) Run(ctx *cli.Context) error {
	if c.Listen != "" {
		ctx.Config.API.Listen = c.Listen
	}
	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return serveUntilDone(sigCtx, ctx)
}

func serveUntilDone(done context.Context, ctx *cli.Context) error {
	server := api.New(ctx.Store, ctx.Learning, ctx.UserID)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Listen(ctx.Config.API.Listen)
	}()
	ctx.Printf("Serving API on http://%s/api\n", ctx.Config.API.Listen)

	select {
	case err := <-errCh:
		return err
	case <-done.Done():
	}

	if err := server.Shutdown(constants.DaemonShutdownTimeout); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("failed to stop API server: %w", err)
	}
	return nil
}
