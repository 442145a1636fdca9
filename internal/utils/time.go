package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/julianstephens/studylit/internal/constants"
	"github.com/julianstephens/studylit/internal/models"
)

// LoadLocation loads a timezone location from an IANA timezone name.
// If the timezone is "Local" or empty, it returns the system's local timezone.
func LoadLocation(timezone string) (*time.Location, error) {
	if timezone == "" || timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(timezone)
}

// NowInTimezone returns the current time in the specified timezone.
func NowInTimezone(timezone string) (time.Time, error) {
	loc, err := LoadLocation(timezone)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}
	return time.Now().In(loc), nil
}

// ParseTime parses a time string in the standard format (HH:MM).
func ParseTime(timeStr string) (time.Time, error) {
	return time.Parse(constants.TimeFormat, timeStr)
}

// ParseTimeToMinutes parses a time string (HH:MM) and returns the number of minutes from midnight.
func ParseTimeToMinutes(timeStr string) (int, error) {
	t, err := ParseTime(timeStr)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

// ValidateTimeFormat checks if the string matches the standard time format.
func ValidateTimeFormat(timeStr string) bool {
	_, err := ParseTime(timeStr)
	return err == nil
}

// ParseDateInLocation parses a date string (YYYY-MM-DD) in the specified timezone.
func ParseDateInLocation(dateStr string, loc *time.Location) (time.Time, error) {
	t, err := time.Parse(constants.DateFormat, dateStr)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc), nil
}

// Midnight truncates t to the start of its calendar day in its own location.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// WeekStartFor returns midnight of the first day of the planning week containing t.
func WeekStartFor(t time.Time, first time.Weekday) time.Time {
	day := Midnight(t)
	offset := (int(day.Weekday()) - int(first) + constants.DaysPerWeek) % constants.DaysPerWeek
	return day.AddDate(0, 0, -offset)
}

// ParseWeek resolves a user-supplied week reference to the start of that planning week.
// It accepts "", "this", "next", "last"/"prev", or any date dateparse understands.
func ParseWeek(input string, now time.Time, settings models.Settings) (time.Time, error) {
	first, err := models.ParseWeekday(settings.WeekStart)
	if err != nil {
		return time.Time{}, err
	}
	loc, err := LoadLocation(settings.Timezone)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timezone %q: %w", settings.Timezone, err)
	}
	now = now.In(loc)

	switch strings.ToLower(strings.TrimSpace(input)) {
	case "", "this", "current":
		return WeekStartFor(now, first), nil
	case "next":
		return WeekStartFor(now, first).AddDate(0, 0, constants.DaysPerWeek), nil
	case "last", "prev", "previous":
		return WeekStartFor(now, first).AddDate(0, 0, -constants.DaysPerWeek), nil
	}

	t, err := dateparse.ParseIn(input, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid week %q: %w", input, err)
	}
	return WeekStartFor(t, first), nil
}
