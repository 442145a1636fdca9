package planner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/julianstephens/studylit/internal/errors"
	"github.com/julianstephens/studylit/internal/logger"
	"github.com/julianstephens/studylit/internal/models"
)

// ReviseAll plans the same week for many users concurrently. Plans are returned in
// the order of states; a user whose run failed has a nil entry. A failing user never
// stops the others. Every failure is returned, joined.
func (r *Reviser) ReviseAll(ctx context.Context, states []models.UserState, weekStart time.Time) ([]*models.WeeklyPlan, error) {
	plans := make([]*models.WeeklyPlan, len(states))
	errs := make([]error, len(states))

	var g errgroup.Group
	g.SetLimit(r.concurrency)

	for i, state := range states {
		g.Go(func() error {
			plan, err := r.Revise(ctx, state, weekStart)
			plans[i] = plan
			if err != nil && !errors.Is(err, apperrors.ErrPersistence) {
				logger.Error("Revision failed", "user", state.UserID, "error", err)
			}
			if err != nil {
				errs[i] = fmt.Errorf("user %s: %w", state.UserID, err)
			}
			return nil
		})
	}

	_ = g.Wait()
	return plans, errors.Join(errs...)
}
