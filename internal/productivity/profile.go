package productivity

import (
	"time"

	"github.com/julianstephens/studylit/internal/constants"
)

// SubjectEstimate is what the model has learned about one subject.
type SubjectEstimate struct {
	Difficulty     float64 `json:"difficulty"`
	CompletionRate float64 `json:"completion_rate"`
	// Samples counts feedback ratings; Sessions counts terminal session outcomes.
	Samples  int `json:"samples"`
	Sessions int `json:"sessions"`
	// Hours is the subject's completion score per hour of day, for hours it was studied in.
	Hours map[int]float64 `json:"hours,omitempty"`
}

// Profile is a point-in-time view of the learned productivity state.
// Scores are indexed by time.Weekday then hour of day.
// A Profile handed out by the model is never mutated afterwards.
type Profile struct {
	Version   uint64                                                `json:"version"`
	Scores    [constants.DaysPerWeek][constants.HoursPerDay]float64 `json:"scores"`
	Subjects  map[string]SubjectEstimate                            `json:"subjects"`
	UpdatedAt time.Time                                             `json:"updated_at"`
}

// Score returns the productivity score for a weekday and hour.
func (p *Profile) Score(day time.Weekday, hour int) float64 {
	if p == nil || hour < 0 || hour >= constants.HoursPerDay || day < 0 || int(day) >= constants.DaysPerWeek {
		return 0
	}
	return p.Scores[day][hour]
}

// ScoreAt returns the score of the hour containing t.
func (p *Profile) ScoreAt(t time.Time) float64 {
	return p.Score(t.Weekday(), t.Hour())
}

// SubjectDifficulty returns the learned difficulty of a subject, if any feedback exists.
func (p *Profile) SubjectDifficulty(subjectID string) (float64, bool) {
	if p == nil {
		return 0, false
	}
	est, ok := p.Subjects[subjectID]
	if !ok || est.Samples == 0 {
		return 0, false
	}
	return est.Difficulty, true
}

func (p *Profile) clone() *Profile {
	c := *p
	c.Subjects = make(map[string]SubjectEstimate, len(p.Subjects))
	for k, v := range p.Subjects {
		if v.Hours != nil {
			hours := make(map[int]float64, len(v.Hours))
			for h, s := range v.Hours {
				hours[h] = s
			}
			v.Hours = hours
		}
		c.Subjects[k] = v
	}
	return &c
}

// SeedScore is the starting score for an hour of the day before any history exists.
func SeedScore(hour int) float64 {
	switch {
	case hour >= 5 && hour < 12:
		return constants.SeedMorning
	case hour >= 12 && hour < 17:
		return constants.SeedAfternoon
	case hour >= 17 && hour < 21:
		return constants.SeedEvening
	default:
		return constants.SeedNight
	}
}

// SeededProfile returns a profile with time-of-day seed scores and no subject history.
func SeededProfile() *Profile {
	p := &Profile{Subjects: make(map[string]SubjectEstimate)}
	for d := 0; d < constants.DaysPerWeek; d++ {
		for h := 0; h < constants.HoursPerDay; h++ {
			p.Scores[d][h] = SeedScore(h)
		}
	}
	return p
}

func clamp01(v float64) float64 {
	if v < constants.ScoreMin {
		return constants.ScoreMin
	}
	if v > constants.ScoreMax {
		return constants.ScoreMax
	}
	return v
}

// ewma moves current toward target by rate and keeps the result in [0,1].
func ewma(current, target, rate float64) float64 {
	return clamp01(current + rate*(target-current))
}
