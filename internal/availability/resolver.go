package availability

import (
	"sort"
	"time"

	"github.com/julianstephens/studylit/internal/constants"
	apperrors "github.com/julianstephens/studylit/internal/errors"
	"github.com/julianstephens/studylit/internal/logger"
	"github.com/julianstephens/studylit/internal/models"
	"github.com/julianstephens/studylit/internal/utils"
)

// Resolver turns declared availability and fixed commitments into concrete free slots.
type Resolver struct {
	minSessionMin int
}

func New(minSessionMin int) *Resolver {
	if minSessionMin < 1 {
		minSessionMin = 1
	}
	return &Resolver{minSessionMin: minSessionMin}
}

type interval struct {
	start, end time.Time
	kind       models.BlockKind
	label      string
}

// Resolve computes the free slots of the week starting at weekStart (midnight, in the
// user's location). Slots are sorted, non-overlapping and at least the minimum session
// length.
func (r *Resolver) Resolve(blocks []models.AvailabilityBlock, commitments []models.Commitment, weekStart time.Time) (Availability, error) {
	weekStart = utils.Midnight(weekStart)
	weekEnd := weekStart.AddDate(0, 0, constants.DaysPerWeek)
	result := Availability{WeekStart: weekStart}

	var free []interval
	for _, b := range blocks {
		startMin, endMin, err := parseWindow(b.Start, b.End)
		if err != nil {
			return result, apperrors.Planningf("availability block %s: %v", b.ID, err)
		}

		if !b.Recurring {
			if b.Date == "" {
				return result, apperrors.Planningf("availability block %s: one-off block without a date", b.ID)
			}
			day, err := utils.ParseDateInLocation(b.Date, weekStart.Location())
			if err != nil {
				return result, apperrors.Planningf("availability block %s: invalid date %q", b.ID, b.Date)
			}
			free = append(free, window(day, startMin, endMin, "", ""))
			continue
		}

		// Start a day early so a Sunday-night block can spill into Monday.
		for i := -1; i < constants.DaysPerWeek; i++ {
			day := weekStart.AddDate(0, 0, i)
			if day.Weekday() == b.Weekday {
				free = append(free, window(day, startMin, endMin, "", ""))
			}
		}
	}

	var busy []interval
	for _, c := range commitments {
		startMin, endMin, err := parseWindow(c.Start, c.End)
		if err != nil {
			return result, apperrors.Planningf("commitment %s: %v", c.ID, err)
		}
		kind := models.BlockBusy
		if c.Kind == models.CommitmentSleep {
			kind = models.BlockSleep
		}
		for i := -1; i < constants.DaysPerWeek; i++ {
			day := weekStart.AddDate(0, 0, i)
			if c.AppliesOn(day.Weekday()) {
				busy = append(busy, window(day, startMin, endMin, kind, c.Label))
			}
		}
	}

	free = clip(merge(free), weekStart, weekEnd)
	for _, iv := range clip(sortIntervals(busy), weekStart, weekEnd) {
		result.Fixed = append(result.Fixed, models.PlanBlock{Kind: iv.kind, Label: iv.label, Start: iv.start, End: iv.end})
	}

	for _, iv := range subtract(free, merge(busy)) {
		minutes := int(iv.end.Sub(iv.start) / time.Minute)
		if minutes < r.minSessionMin {
			result.FragmentMin += minutes
			continue
		}
		result.Slots = append(result.Slots, models.TimeSlot{Start: iv.start, End: iv.end})
		result.FreeMin += minutes
	}

	logger.Debug("Resolved availability",
		"week", weekStart.Format(constants.DateFormat),
		"slots", len(result.Slots),
		"free_min", result.FreeMin,
		"fragment_min", result.FragmentMin)

	return result, nil
}

func parseWindow(start, end string) (int, int, error) {
	startMin, err := utils.ParseTimeToMinutes(start)
	if err != nil {
		return 0, 0, err
	}
	endMin, err := utils.ParseTimeToMinutes(end)
	if err != nil {
		return 0, 0, err
	}
	return startMin, endMin, nil
}

// window places an HH:MM range on a calendar day. An end at or before the start
// rolls over to the next day.
func window(day time.Time, startMin, endMin int, kind models.BlockKind, label string) interval {
	if endMin <= startMin {
		endMin += constants.MinutesPerDay
	}
	y, m, d := day.Date()
	return interval{
		start: time.Date(y, m, d, 0, startMin, 0, 0, day.Location()),
		end:   time.Date(y, m, d, 0, endMin, 0, 0, day.Location()),
		kind:  kind,
		label: label,
	}
}

func sortIntervals(ivs []interval) []interval {
	sort.SliceStable(ivs, func(i, j int) bool {
		if !ivs[i].start.Equal(ivs[j].start) {
			return ivs[i].start.Before(ivs[j].start)
		}
		return ivs[i].end.Before(ivs[j].end)
	})
	return ivs
}

// merge sorts intervals and joins any that overlap or touch.
func merge(ivs []interval) []interval {
	if len(ivs) == 0 {
		return nil
	}
	ivs = sortIntervals(ivs)
	out := []interval{ivs[0]}
	for _, iv := range ivs[1:] {
		last := &out[len(out)-1]
		if !iv.start.After(last.end) {
			if iv.end.After(last.end) {
				last.end = iv.end
			}
			continue
		}
		out = append(out, iv)
	}
	return out
}

func clip(ivs []interval, from, to time.Time) []interval {
	var out []interval
	for _, iv := range ivs {
		if iv.start.Before(from) {
			iv.start = from
		}
		if iv.end.After(to) {
			iv.end = to
		}
		if iv.start.Before(iv.end) {
			out = append(out, iv)
		}
	}
	return out
}

// subtract removes busy time from free time. Both inputs must be sorted and merged.
func subtract(free, busy []interval) []interval {
	var out []interval
	for _, f := range free {
		cur := f
		for _, b := range busy {
			if !b.end.After(cur.start) {
				continue
			}
			if !b.start.Before(cur.end) {
				break
			}
			if b.start.After(cur.start) {
				out = append(out, interval{start: cur.start, end: b.start})
			}
			cur.start = b.end
			if !cur.start.Before(cur.end) {
				break
			}
		}
		if cur.start.Before(cur.end) {
			out = append(out, cur)
		}
	}
	return out
}
