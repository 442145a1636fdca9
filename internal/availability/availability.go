package availability

import (
	"fmt"
	"time"

	apperrors "github.com/julianstephens/studylit/internal/errors"
	"github.com/julianstephens/studylit/internal/models"
)

// Availability is the free time of one planning week after commitments are removed.
type Availability struct {
	WeekStart time.Time         `json:"week_start"`
	Slots     []models.TimeSlot `json:"slots"`
	FreeMin   int               `json:"free_min"`
	// Fixed holds the sleep and busy blocks that fall inside the week, for display.
	Fixed []models.PlanBlock `json:"fixed"`
	// FragmentMin is free time discarded because it was too short to hold a session.
	FragmentMin int `json:"fragment_min"`
}

// WeekEnd is the exclusive end of the planning week.
func (a Availability) WeekEnd() time.Time {
	return a.WeekStart.AddDate(0, 0, 7)
}

// Check reports whether the free time covers floorPct percent of the required minutes.
func (a Availability) Check(requiredMin int, floorPct float64) error {
	needed := int(float64(requiredMin) * floorPct / 100)
	if a.FreeMin < needed {
		return &InsufficientAvailabilityError{FreeMin: a.FreeMin, RequiredMin: requiredMin, NeededMin: needed}
	}
	return nil
}

// InsufficientAvailabilityError means the week cannot hold the requested study time.
// Planning continues with a partial plan.
type InsufficientAvailabilityError struct {
	FreeMin     int
	RequiredMin int
	NeededMin   int
}

func (e *InsufficientAvailabilityError) Error() string {
	return fmt.Sprintf("insufficient availability: %d free minutes for %d required (floor %d)", e.FreeMin, e.RequiredMin, e.NeededMin)
}

func (e *InsufficientAvailabilityError) Unwrap() error {
	return apperrors.ErrInsufficientAvailability
}
