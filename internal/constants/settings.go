package constants

const (
	// Planner Settings
	SettingMinSessionMin        = "min_session_min"
	SettingMaxSessionMin        = "max_session_min"
	SettingTolerancePct         = "tolerance_pct"
	SettingLearningRate         = "learning_rate"
	SettingPriorityDeltaClamp   = "priority_delta_clamp"
	SettingDurationDeltaClamp   = "duration_delta_clamp"
	SettingBreakMin             = "break_min"
	SettingAvailabilityFloorPct = "availability_floor_pct"
	SettingWeekStart            = "week_start"
	SettingTimezone             = "timezone"

	// Default Settings Values
	DefaultMinSessionMin        = 15
	DefaultMaxSessionMin        = 90
	DefaultTolerancePct         = 10
	DefaultLearningRate         = 0.1
	DefaultPriorityDeltaClamp   = 0.5
	DefaultDurationDeltaClamp   = 30
	DefaultBreakMin             = 0
	DefaultAvailabilityFloorPct = 100
	DefaultWeekStart            = "monday"
	DefaultTimezone             = "Local" // Use system local timezone by default
)
