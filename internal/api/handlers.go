package api

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/julianstephens/studylit/internal/constants"
	"github.com/julianstephens/studylit/internal/models"
	"github.com/julianstephens/studylit/internal/planner"
	"github.com/julianstephens/studylit/internal/storage"
	"github.com/julianstephens/studylit/internal/utils"
)

// PlanResponse is a plan together with how it has been followed so far.
type PlanResponse struct {
	Plan     models.WeeklyPlan     `json:"plan"`
	States   []models.SessionState `json:"states"`
	Overview planner.Overview      `json:"overview"`
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"version": constants.Version,
	})
}

// user returns the user a request is about. Only the configured user is served.
func (s *Server) user(c *fiber.Ctx) (string, error) {
	id := c.Query("user", s.userID)
	if id != s.userID {
		return "", fiber.NewError(fiber.StatusForbidden, "unknown user")
	}
	return id, nil
}

func (s *Server) listPlans(c *fiber.Ctx) error {
	userID, err := s.user(c)
	if err != nil {
		return err
	}

	limit := constants.DefaultPlanHistoryShow
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "limit must be a non-negative integer")
		}
	}

	plans, err := s.store.ListPlans(userID, limit)
	if err != nil {
		return err
	}
	if plans == nil {
		plans = []models.PlanSummary{}
	}
	return c.JSON(plans)
}

func (s *Server) latestPlan(c *fiber.Ctx) error {
	userID, err := s.user(c)
	if err != nil {
		return err
	}
	settings, err := s.store.GetSettings(userID)
	if err != nil {
		return err
	}

	week, err := utils.ParseWeek(c.Query("week"), s.now(), settings)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	plan, err := s.store.GetLatestPlan(userID, week.Format(constants.DateFormat))
	if errors.Is(err, storage.ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "no plan for week "+week.Format(constants.DateFormat))
	}
	if err != nil {
		return err
	}
	return s.writePlan(c, plan)
}

func (s *Server) getPlan(c *fiber.Ctx) error {
	userID, err := s.user(c)
	if err != nil {
		return err
	}
	plan, err := s.store.GetPlan(c.Params("id"))
	if err != nil {
		return err
	}
	if plan.UserID != userID {
		return storage.ErrNotFound
	}
	return s.writePlan(c, plan)
}

func (s *Server) writePlan(c *fiber.Ctx, plan models.WeeklyPlan) error {
	states, err := s.store.GetSessionStates(plan.ID)
	if err != nil {
		return err
	}
	if states == nil {
		states = []models.SessionState{}
	}
	return c.JSON(PlanResponse{
		Plan:     plan,
		States:   states,
		Overview: planner.Summarize(plan, states),
	})
}

func (s *Server) profile(c *fiber.Ctx) error {
	userID, err := s.user(c)
	if err != nil {
		return err
	}
	settings, err := s.store.GetSettings(userID)
	if err != nil {
		return err
	}
	profile, err := s.profiles.Profile(userID, settings)
	if err != nil {
		return err
	}
	return c.JSON(profile)
}
