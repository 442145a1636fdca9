package constants

import "time"

const (
	AppName            = "studylit"
	DefaultKeyringUser = "database-connection"
	DefaultConfigPath  = "~/.config/studylit/config.yaml"
	DefaultDBPath      = "~/.config/studylit/studylit.db"
	DefaultUserID      = "default"
	Version            = "v0.3.0"

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// TimeFormat is the standard time format used throughout the application (HH:MM)
	TimeFormat = "15:04"

	// Daemon constants
	DaemonLockfileName     = "studylit-daemon.lock"
	DefaultReviseSchedule  = "0 18 * * 0" // Sunday 18:00, plans the following week
	DefaultAPIListen       = "127.0.0.1:7420"
	DaemonShutdownTimeout  = 5 * time.Second
	MinutesPerDay          = 24 * 60
	DaysPerWeek            = 7
	HoursPerDay            = 24
	MinutesPerWeek         = DaysPerWeek * MinutesPerDay
	DefaultPlanHistoryShow = 10
)
