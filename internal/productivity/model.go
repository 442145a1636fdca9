package productivity

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/julianstephens/studylit/internal/constants"
	apperrors "github.com/julianstephens/studylit/internal/errors"
	"github.com/julianstephens/studylit/internal/logger"
	"github.com/julianstephens/studylit/internal/models"
)

// Persister stores a profile after every successful update.
type Persister interface {
	SaveProfile(userID string, profile *Profile) error
}

type Options struct {
	UserID       string
	LearningRate float64
	Persister    Persister
	Now          func() time.Time
}

// Model learns when a user studies well. Writers are serialized; readers get the
// latest published snapshot without locking.
type Model struct {
	userID    string
	persister Persister
	now       func() time.Time

	mu      sync.Mutex
	rate    float64
	current atomic.Pointer[Profile]
}

func NewModel(opts Options) *Model {
	m := &Model{
		userID:    opts.UserID,
		persister: opts.Persister,
		now:       opts.Now,
		rate:      opts.LearningRate,
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.rate <= 0 || m.rate > 1 {
		m.rate = constants.DefaultLearningRate
	}
	m.current.Store(SeededProfile())
	return m
}

// Snapshot returns the latest profile. Callers must treat it as read-only.
func (m *Model) Snapshot() *Profile {
	return m.current.Load()
}

func (m *Model) Version() uint64 {
	return m.current.Load().Version
}

func (m *Model) Score(day time.Weekday, hour int) float64 {
	return m.current.Load().Score(day, hour)
}

func (m *Model) SubjectDifficulty(subjectID string) (float64, bool) {
	return m.current.Load().SubjectDifficulty(subjectID)
}

// SetLearningRate changes the rate used by later updates. Out-of-range values are ignored.
func (m *Model) SetLearningRate(rate float64) {
	if rate <= 0 || rate > 1 {
		return
	}
	m.mu.Lock()
	m.rate = rate
	m.mu.Unlock()
}

// Restore replaces the in-memory profile with a persisted one, unless the
// persisted version is older than what the model already holds.
func (m *Model) Restore(p *Profile) bool {
	if p == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if p.Version < m.current.Load().Version {
		return false
	}
	next := p.clone()
	m.current.Store(next)
	return true
}

// RecordSession moves the score of the session's start hour toward 1 for a
// completed session and toward 0 for a skipped one. Non-terminal outcomes are ignored.
func (m *Model) RecordSession(outcome models.SessionOutcome) error {
	var target float64
	switch outcome.Status {
	case models.SessionCompleted:
		target = constants.ScoreMax
	case models.SessionSkipped:
		target = constants.ScoreMin
	default:
		return nil
	}

	return m.update("record session", func(p *Profile, rate float64) {
		day, hour := outcome.Start.Weekday(), outcome.Start.Hour()
		p.Scores[day][hour] = ewma(p.Scores[day][hour], target, rate)

		if outcome.SubjectID == "" {
			return
		}
		est, ok := p.Subjects[outcome.SubjectID]
		if !ok {
			est = SubjectEstimate{Difficulty: constants.DefaultDifficulty, CompletionRate: constants.ScoreMax}
		}
		est.CompletionRate = ewma(est.CompletionRate, target, rate)
		if est.Hours == nil {
			est.Hours = make(map[int]float64)
		}
		prev, seen := est.Hours[hour]
		if !seen {
			prev = SeedScore(hour)
		}
		est.Hours[hour] = ewma(prev, target, rate)
		est.Sessions++
		p.Subjects[outcome.SubjectID] = est
	})
}

// RecordFeedback folds a difficulty rating into the subject estimate. The first
// rating for a subject sets the estimate directly. A focus rating nudges the
// score of the hour the session started in.
func (m *Model) RecordFeedback(record models.FeedbackRecord) error {
	if record.Rating < constants.MinRating || record.Rating > constants.MaxRating {
		return fmt.Errorf("rating must be between %d and %d, got %d", constants.MinRating, constants.MaxRating, record.Rating)
	}
	if record.Focus < 0 || record.Focus > constants.MaxRating {
		return fmt.Errorf("focus must be between %d and %d, got %d", constants.MinRating, constants.MaxRating, record.Focus)
	}

	focused := record.Focus > 0 && !record.At.IsZero()
	if record.SubjectID == "" && !focused {
		return nil
	}

	difficulty := ratingToUnit(record.Rating)
	return m.update("record feedback", func(p *Profile, rate float64) {
		if record.SubjectID != "" {
			est, ok := p.Subjects[record.SubjectID]
			if !ok {
				est = SubjectEstimate{Difficulty: constants.DefaultDifficulty, CompletionRate: constants.ScoreMax}
			}
			if est.Samples == 0 {
				est.Difficulty = difficulty
			} else {
				est.Difficulty = ewma(est.Difficulty, difficulty, rate)
			}
			est.Samples++
			p.Subjects[record.SubjectID] = est
		}

		if focused {
			day, hour := record.At.Weekday(), record.At.Hour()
			p.Scores[day][hour] = ewma(p.Scores[day][hour], ratingToUnit(record.Focus), rate*constants.FocusWeight)
		}
	})
}

// Reset discards learned history. The version still moves forward.
func (m *Model) Reset() error {
	return m.update("reset profile", func(p *Profile, _ float64) {
		seeded := SeededProfile()
		p.Scores = seeded.Scores
		p.Subjects = seeded.Subjects
	})
}

// update applies fn to a copy of the current profile, publishes it with the next
// version and then persists it. A persistence failure keeps the new in-memory state.
func (m *Model) update(op string, fn func(p *Profile, rate float64)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.current.Load().clone()
	fn(next, m.rate)
	next.Version++
	next.UpdatedAt = m.now()
	m.current.Store(next)

	logger.Debug("Productivity profile updated", "op", op, "user", m.userID, "version", next.Version)

	if m.persister == nil {
		return nil
	}
	if err := m.persister.SaveProfile(m.userID, next); err != nil {
		logger.Warn("Failed to persist productivity profile", "op", op, "version", next.Version, "error", err)
		return apperrors.Persistence(op, err)
	}
	return nil
}

func ratingToUnit(rating int) float64 {
	return float64(rating-constants.MinRating) / float64(constants.MaxRating-constants.MinRating)
}

// HourScore is an hour of day with its average score across the week.
type HourScore struct {
	Hour  int     `json:"hour"`
	Score float64 `json:"score"`
}

// PeakHours returns the n best hours of the day, averaged across weekdays.
func (m *Model) PeakHours(n int) []HourScore {
	p := m.current.Load()
	hours := make([]HourScore, constants.HoursPerDay)
	for h := 0; h < constants.HoursPerDay; h++ {
		var sum float64
		for d := 0; d < constants.DaysPerWeek; d++ {
			sum += p.Scores[d][h]
		}
		hours[h] = HourScore{Hour: h, Score: sum / constants.DaysPerWeek}
	}
	sort.SliceStable(hours, func(i, j int) bool {
		return hours[i].Score > hours[j].Score
	})
	if n < 0 || n > len(hours) {
		n = len(hours)
	}
	return hours[:n]
}

// BestHourFor predicts the best hour of day to study a subject. Subjects with
// session history use their own per-hour scores; others fall back to the overall
// peak hour. The bool reports whether subject history was used.
func (m *Model) BestHourFor(subjectID string) (HourScore, bool) {
	p := m.current.Load()
	if est, ok := p.Subjects[subjectID]; ok && len(est.Hours) > 0 {
		best := HourScore{Hour: -1, Score: -1}
		for h, s := range est.Hours {
			if s > best.Score || (s == best.Score && h < best.Hour) {
				best = HourScore{Hour: h, Score: s}
			}
		}
		return best, true
	}
	return m.PeakHours(1)[0], false
}
