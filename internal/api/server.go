package api

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/julianstephens/studylit/internal/constants"
	"github.com/julianstephens/studylit/internal/logger"
	"github.com/julianstephens/studylit/internal/models"
	"github.com/julianstephens/studylit/internal/productivity"
	"github.com/julianstephens/studylit/internal/storage"
)

// Store is the read side of persistence the API serves from.
type Store interface {
	GetSettings(userID string) (models.Settings, error)
	GetPlan(id string) (models.WeeklyPlan, error)
	GetLatestPlan(userID, weekStart string) (models.WeeklyPlan, error)
	ListPlans(userID string, limit int) ([]models.PlanSummary, error)
	GetSessionStates(planID string) ([]models.SessionState, error)
}

// ProfileSource returns the current productivity profile of a user.
type ProfileSource interface {
	Profile(userID string, settings models.Settings) (*productivity.Profile, error)
}

type Option func(*Server)

// WithClock overrides the clock used to resolve relative weeks.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// Server is the read-only JSON API over issued plans and learned profiles.
type Server struct {
	app      *fiber.App
	store    Store
	profiles ProfileSource
	userID   string
	now      func() time.Time
}

func New(store Store, profiles ProfileSource, userID string, opts ...Option) *Server {
	s := &Server{
		store:    store,
		profiles: profiles,
		userID:   userID,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.app = fiber.New(fiber.Config{
		AppName:               constants.AppName,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.app.Group("/api")
	api.Get("/health", s.health)
	api.Get("/plans", s.listPlans)
	api.Get("/plans/latest", s.latestPlan)
	api.Get("/plans/:id", s.getPlan)
	api.Get("/profile", s.profile)
}

// App exposes the underlying fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves until Shutdown is called.
func (s *Server) Listen(addr string) error {
	logger.Info("API listening", "addr", addr)
	return s.app.Listen(addr)
}

func (s *Server) Shutdown(timeout time.Duration) error {
	return s.app.ShutdownWithTimeout(timeout)
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "internal error"

	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		code = fe.Code
		msg = fe.Message
	case errors.Is(err, storage.ErrNotFound):
		code = fiber.StatusNotFound
		msg = "not found"
	default:
		logger.Error("API request failed", "method", c.Method(), "path", c.Path(), "error", err)
	}
	return c.Status(code).JSON(fiber.Map{"error": msg})
}
