package scheduler

import (
	"sort"
	"time"

	"github.com/julianstephens/studylit/internal/logger"
	"github.com/julianstephens/studylit/internal/models"
	"github.com/julianstephens/studylit/internal/optimizer"
	"github.com/julianstephens/studylit/internal/productivity"
)

// Scorer is the read side of the productivity model the allocator needs.
// *productivity.Profile satisfies it.
type Scorer interface {
	ScoreAt(t time.Time) float64
	SubjectDifficulty(subjectID string) (float64, bool)
}

// Request is everything one allocation run reads. Nothing in it is modified.
type Request struct {
	Slots    []models.TimeSlot
	Subjects []models.Subject
	Profile  Scorer
	Deltas   map[string]optimizer.Delta
	Settings models.Settings
}

// Result is the allocation outcome. Sessions are ordered by start time and carry no IDs.
type Result struct {
	Sessions []models.StudySession
	Breaks   []models.PlanBlock
	Unmet    []models.Shortfall
	// UnusedMin is free time left after allocation. It is not backfilled.
	UnusedMin int
}

type Scheduler struct{}

func New() *Scheduler {
	return &Scheduler{}
}

type candidate struct {
	subject models.Subject
	weight  float64
	limit   int // longest single session in minutes
}

type freeSlot struct {
	start, end time.Time
	score      float64
}

func (f freeSlot) minutes() int {
	return int(f.end.Sub(f.start) / time.Minute)
}

// Allocate greedily assigns study sessions to free slots. Subjects are served by
// descending effective weight; each repeatedly takes the most productive slot that
// can hold a session until its weekly target is met or nothing fits.
func (s *Scheduler) Allocate(req Request) Result {
	var result Result
	settings := req.Settings
	profile := req.Profile
	if profile == nil {
		profile = productivity.SeededProfile()
	}

	// Step 1: Compute effective weights and per-subject session caps
	var candidates []candidate
	for _, subject := range req.Subjects {
		if subject.DeletedAt != nil || subject.TargetWeeklyMin <= 0 {
			continue
		}
		delta := req.Deltas[subject.ID]
		candidates = append(candidates, candidate{
			subject: subject,
			weight:  effectiveWeight(subject, profile, delta),
			limit:   sessionCap(settings, delta),
		})
	}

	// Step 2: Sort subjects by weight, ties by ID
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].weight != candidates[j].weight {
			return candidates[i].weight > candidates[j].weight
		}
		return candidates[i].subject.ID < candidates[j].subject.ID
	})

	slots := make([]freeSlot, 0, len(req.Slots))
	for _, ts := range req.Slots {
		if ts.Minutes() >= settings.MinSessionMin {
			slots = append(slots, freeSlot{start: ts.Start, end: ts.End})
		}
	}

	// Step 3: Serve each subject from the best-ranked slots
	for _, c := range candidates {
		remaining := c.subject.TargetWeeklyMin

		for remaining > 0 {
			rankSlots(slots, profile, c.limit)

			idx, chunk := -1, 0
			for i, slot := range slots {
				if n := chunkSize(remaining, c.limit, slot.minutes()); n > 0 {
					idx, chunk = i, n
					break
				}
			}
			if idx < 0 {
				break
			}

			slot := slots[idx]
			sessionEnd := slot.start.Add(time.Duration(chunk) * time.Minute)
			result.Sessions = append(result.Sessions, models.StudySession{
				SubjectID:  c.subject.ID,
				Start:      slot.start,
				End:        sessionEnd,
				PlannedMin: chunk,
				Status:     models.SessionPlanned,
			})
			remaining -= chunk

			// Step 4: Split the claimed slot, keeping a break before the leftover
			slots = append(slots[:idx], slots[idx+1:]...)
			leftover := freeSlot{start: sessionEnd.Add(time.Duration(settings.BreakMin) * time.Minute), end: slot.end}
			if leftover.minutes() >= settings.MinSessionMin {
				if settings.BreakMin > 0 {
					result.Breaks = append(result.Breaks, models.PlanBlock{
						Kind:  models.BlockBreak,
						Start: sessionEnd,
						End:   leftover.start,
					})
				}
				slots = append(slots, leftover)
			}
		}

		// Step 5: Record anything left over as a shortfall
		if remaining > 0 {
			target := c.subject.TargetWeeklyMin
			result.Unmet = append(result.Unmet, models.Shortfall{
				SubjectID:       c.subject.ID,
				TargetMin:       target,
				PlannedMin:      target - remaining,
				ShortMin:        remaining,
				WithinTolerance: remaining <= settings.ToleranceMin(target),
			})
			logger.Debug("Subject target not met", "subject", c.subject.ID, "target", target, "short", remaining)
		}
	}

	for _, slot := range slots {
		result.UnusedMin += slot.minutes()
	}

	sort.SliceStable(result.Sessions, func(i, j int) bool {
		return result.Sessions[i].Start.Before(result.Sessions[j].Start)
	})
	sort.SliceStable(result.Breaks, func(i, j int) bool {
		return result.Breaks[i].Start.Before(result.Breaks[j].Start)
	})

	return result
}

// effectiveWeight is priority × (1 + difficulty) × (1 + priority delta). A learned
// difficulty takes precedence over the declared level.
func effectiveWeight(subject models.Subject, profile Scorer, delta optimizer.Delta) float64 {
	difficulty, ok := profile.SubjectDifficulty(subject.ID)
	if !ok {
		difficulty = subject.Difficulty.Value()
	}
	return subject.Priority * (1 + difficulty) * (1 + delta.PriorityDelta)
}

// sessionCap is the longest single session for a subject after its duration delta.
func sessionCap(settings models.Settings, delta optimizer.Delta) int {
	limit := settings.MaxSessionMin + delta.DurationDeltaMin
	if upper := settings.MaxSessionMin + settings.DurationDeltaClamp; limit > upper {
		limit = upper
	}
	if limit < settings.MinSessionMin {
		limit = settings.MinSessionMin
	}
	return limit
}

// chunkSize is min(remaining, limit, slot length).
func chunkSize(remaining, limit, slotMin int) int {
	chunk := remaining
	if chunk > limit {
		chunk = limit
	}
	if chunk > slotMin {
		chunk = slotMin
	}
	if chunk < 0 {
		return 0
	}
	return chunk
}

// rankSlots orders slots by descending productivity over the first session-length
// window, ties broken by earliest start.
func rankSlots(slots []freeSlot, profile Scorer, limit int) {
	for i := range slots {
		slots[i].score = slotScore(slots[i], profile, limit)
	}
	sort.SliceStable(slots, func(i, j int) bool {
		if slots[i].score != slots[j].score {
			return slots[i].score > slots[j].score
		}
		return slots[i].start.Before(slots[j].start)
	})
}

// slotScore is the minute-weighted mean hourly score over the first
// min(slot length, cap) minutes of the slot.
func slotScore(slot freeSlot, profile Scorer, limit int) float64 {
	span := slot.minutes()
	if span > limit {
		span = limit
	}
	if span <= 0 {
		return 0
	}

	end := slot.start.Add(time.Duration(span) * time.Minute)
	var total float64
	for t := slot.start; t.Before(end); {
		y, m, d := t.Date()
		next := time.Date(y, m, d, t.Hour()+1, 0, 0, 0, t.Location())
		if next.After(end) {
			next = end
		}
		total += profile.ScoreAt(t) * next.Sub(t).Minutes()
		t = next
	}
	return total / float64(span)
}
