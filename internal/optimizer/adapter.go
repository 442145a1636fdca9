package optimizer

import (
	"math"
	"sort"
	"sync"

	"github.com/julianstephens/studylit/internal/constants"
	"github.com/julianstephens/studylit/internal/logger"
	"github.com/julianstephens/studylit/internal/models"
)

// Learner is the productivity model the adapter forwards events to.
type Learner interface {
	RecordSession(outcome models.SessionOutcome) error
	RecordFeedback(record models.FeedbackRecord) error
}

type Config struct {
	LearningRate       float64
	PriorityDeltaClamp float64
	DurationDeltaClamp int
	MaxSessionMin      int
}

func ConfigFromSettings(s models.Settings) Config {
	return Config{
		LearningRate:       s.LearningRate,
		PriorityDeltaClamp: s.PriorityDeltaClamp,
		DurationDeltaClamp: s.DurationDeltaClamp,
		MaxSessionMin:      s.MaxSessionMin,
	}
}

// Delta is the adjustment applied to a subject on the next planning run.
type Delta struct {
	PriorityDelta    float64 `json:"priority_delta"`
	DurationDeltaMin int     `json:"duration_delta_min"`
}

// SubjectStats summarizes the outcomes observed for one subject.
type SubjectStats struct {
	Observations int     `json:"observations"`
	Completed    int     `json:"completed"`
	Skipped      int     `json:"skipped"`
	SkipRate     float64 `json:"skip_rate"`
	Overrun      float64 `json:"overrun"` // EWMA of actual/planned - 1 over completed sessions
}

// Adapter turns session outcomes into bounded priority and duration deltas.
// It never changes an issued plan; its deltas are read by the next planning run.
type Adapter struct {
	mu      sync.RWMutex
	cfg     Config
	learner Learner
	stats   map[string]*SubjectStats
}

func NewAdapter(cfg Config, learner Learner) *Adapter {
	if cfg.LearningRate <= 0 || cfg.LearningRate > 1 {
		cfg.LearningRate = constants.DefaultLearningRate
	}
	return &Adapter{
		cfg:     cfg,
		learner: learner,
		stats:   make(map[string]*SubjectStats),
	}
}

func (a *Adapter) SetConfig(cfg Config) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if cfg.LearningRate <= 0 || cfg.LearningRate > 1 {
		cfg.LearningRate = a.cfg.LearningRate
	}
	a.cfg = cfg
}

// HandleOutcome records a terminal session outcome and forwards it to the learner.
func (a *Adapter) HandleOutcome(outcome models.SessionOutcome) error {
	a.Observe(outcome)
	if a.learner == nil {
		return nil
	}
	return a.learner.RecordSession(outcome)
}

// HandleFeedback forwards an explicit rating to the learner.
func (a *Adapter) HandleFeedback(record models.FeedbackRecord) error {
	if a.learner == nil {
		return nil
	}
	return a.learner.RecordFeedback(record)
}

// Observe folds one outcome into the subject's statistics. Non-terminal outcomes are ignored.
func (a *Adapter) Observe(outcome models.SessionOutcome) {
	if !outcome.Status.Terminal() || outcome.SubjectID == "" {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.observeLocked(outcome)
}

func (a *Adapter) observeLocked(outcome models.SessionOutcome) {
	st, ok := a.stats[outcome.SubjectID]
	if !ok {
		st = &SubjectStats{}
		a.stats[outcome.SubjectID] = st
	}
	rate := a.cfg.LearningRate
	st.Observations++

	switch outcome.Status {
	case models.SessionSkipped:
		st.Skipped++
		st.SkipRate += rate * (1 - st.SkipRate)
	case models.SessionCompleted:
		st.Completed++
		st.SkipRate += rate * (0 - st.SkipRate)
		if outcome.PlannedMin > 0 {
			ratio := float64(outcome.ActualMin)/float64(outcome.PlannedMin) - 1
			st.Overrun += rate * (ratio - st.Overrun)
		}
	}
}

// Replay rebuilds all statistics from an outcome history, oldest first.
func (a *Adapter) Replay(outcomes []models.SessionOutcome) {
	sorted := append([]models.SessionOutcome(nil), outcomes...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].RecordedAt.Before(sorted[j].RecordedAt)
	})

	a.mu.Lock()
	defer a.mu.Unlock()
	a.stats = make(map[string]*SubjectStats)
	for _, o := range sorted {
		if o.Status.Terminal() && o.SubjectID != "" {
			a.observeLocked(o)
		}
	}
	logger.Debug("Replayed session outcomes", "outcomes", len(sorted), "subjects", len(a.stats))
}

// Stats returns a copy of the statistics for a subject.
func (a *Adapter) Stats(subjectID string) (SubjectStats, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	st, ok := a.stats[subjectID]
	if !ok {
		return SubjectStats{}, false
	}
	return *st, true
}

// Deltas returns the current adjustment for every observed subject.
func (a *Adapter) Deltas() map[string]Delta {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make(map[string]Delta, len(a.stats))
	for id, st := range a.stats {
		out[id] = a.deltaFor(st)
	}
	return out
}

func (a *Adapter) deltaFor(st *SubjectStats) Delta {
	var d Delta
	if st.Observations >= constants.MinObservationsForDelta {
		d.PriorityDelta = clampFloat(st.SkipRate, a.cfg.PriorityDeltaClamp)
	}
	if st.Completed > 0 {
		d.DurationDeltaMin = clampInt(int(math.Round(st.Overrun*float64(a.cfg.MaxSessionMin))), a.cfg.DurationDeltaClamp)
	}
	return d
}

func clampFloat(v, limit float64) float64 {
	return math.Max(-limit, math.Min(limit, v))
}

func clampInt(v, limit int) int {
	if v > limit {
		return limit
	}
	if v < -limit {
		return -limit
	}
	return v
}
