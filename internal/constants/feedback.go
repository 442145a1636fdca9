package constants

// OptimizationType represents the type of optimization suggested
type OptimizationType string

const (
	// Productivity learning constants:
	// - Scores and estimates move toward the observed target by LearningRate on every update
	//   (s += lr * (target - s)), then are clamped to [ScoreMin, ScoreMax].
	// - Time-of-day seeds are the starting scores before any history exists.
	ScoreMin          = 0.0
	ScoreMax          = 1.0
	SeedMorning       = 1.0 // 05:00-12:00
	SeedAfternoon     = 0.8 // 12:00-17:00
	SeedEvening       = 0.7 // 17:00-21:00
	SeedNight         = 0.5 // 21:00-05:00
	DefaultDifficulty = 0.5

	// FocusWeight scales how far an explicit focus rating moves the hourly score
	// relative to a completion outcome.
	FocusWeight = 0.5

	// Adapter constants
	MinObservationsForDelta = 2
	SkipRateSuggestion      = 0.5  // skip rate above which a priority raise is suggested
	SkipRateReduceTarget    = 0.75 // skip rate above which a smaller weekly target is suggested
	OverrunSuggestion       = 0.15 // mean overrun ratio above which a duration change is suggested

	// Feedback rating bounds (1 = very easy, 5 = very hard)
	MinRating = 1
	MaxRating = 5

	// Optimization Types
	OptimizationReduceDuration   OptimizationType = "reduce_duration"
	OptimizationIncreaseDuration OptimizationType = "increase_duration"
	OptimizationRaisePriority    OptimizationType = "raise_priority"
	OptimizationReduceTarget     OptimizationType = "reduce_target"
)

func init() {
	if SeedMorning > ScoreMax || SeedNight < ScoreMin {
		panic("productivity seeds must lie within [ScoreMin, ScoreMax]")
	}
}
