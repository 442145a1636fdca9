package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/julianstephens/studylit/internal/constants"
)

// DefaultSettings returns the planner defaults.
func DefaultSettings() Settings {
	return Settings{
		MinSessionMin:        constants.DefaultMinSessionMin,
		MaxSessionMin:        constants.DefaultMaxSessionMin,
		TolerancePct:         constants.DefaultTolerancePct,
		LearningRate:         constants.DefaultLearningRate,
		PriorityDeltaClamp:   constants.DefaultPriorityDeltaClamp,
		DurationDeltaClamp:   constants.DefaultDurationDeltaClamp,
		BreakMin:             constants.DefaultBreakMin,
		AvailabilityFloorPct: constants.DefaultAvailabilityFloorPct,
		WeekStart:            constants.DefaultWeekStart,
		Timezone:             constants.DefaultTimezone,
	}
}

// MapToSettings converts a map of key-value pairs to a Settings struct.
// Keys that are absent keep their default value.
func MapToSettings(data map[string]string) (Settings, error) {
	settings := DefaultSettings()

	for key, value := range data {
		var err error
		switch key {
		case constants.SettingMinSessionMin:
			settings.MinSessionMin, err = strconv.Atoi(value)
		case constants.SettingMaxSessionMin:
			settings.MaxSessionMin, err = strconv.Atoi(value)
		case constants.SettingTolerancePct:
			settings.TolerancePct, err = strconv.ParseFloat(value, 64)
		case constants.SettingLearningRate:
			settings.LearningRate, err = strconv.ParseFloat(value, 64)
		case constants.SettingPriorityDeltaClamp:
			settings.PriorityDeltaClamp, err = strconv.ParseFloat(value, 64)
		case constants.SettingDurationDeltaClamp:
			settings.DurationDeltaClamp, err = strconv.Atoi(value)
		case constants.SettingBreakMin:
			settings.BreakMin, err = strconv.Atoi(value)
		case constants.SettingAvailabilityFloorPct:
			settings.AvailabilityFloorPct, err = strconv.ParseFloat(value, 64)
		case constants.SettingWeekStart:
			settings.WeekStart = value
		case constants.SettingTimezone:
			settings.Timezone = value
		default:
			continue
		}
		if err != nil {
			return Settings{}, fmt.Errorf("parsing %s: %w", key, err)
		}
	}
	return settings, nil
}

// SettingsToMap is the inverse of MapToSettings.
func SettingsToMap(s Settings) map[string]string {
	return map[string]string{
		constants.SettingMinSessionMin:        strconv.Itoa(s.MinSessionMin),
		constants.SettingMaxSessionMin:        strconv.Itoa(s.MaxSessionMin),
		constants.SettingTolerancePct:         strconv.FormatFloat(s.TolerancePct, 'f', -1, 64),
		constants.SettingLearningRate:         strconv.FormatFloat(s.LearningRate, 'f', -1, 64),
		constants.SettingPriorityDeltaClamp:   strconv.FormatFloat(s.PriorityDeltaClamp, 'f', -1, 64),
		constants.SettingDurationDeltaClamp:   strconv.Itoa(s.DurationDeltaClamp),
		constants.SettingBreakMin:             strconv.Itoa(s.BreakMin),
		constants.SettingAvailabilityFloorPct: strconv.FormatFloat(s.AvailabilityFloorPct, 'f', -1, 64),
		constants.SettingWeekStart:            s.WeekStart,
		constants.SettingTimezone:             s.Timezone,
	}
}

// Validate checks that the settings describe a usable planner configuration.
func (s Settings) Validate() error {
	if s.MinSessionMin <= 0 {
		return fmt.Errorf("%s must be positive, got %d", constants.SettingMinSessionMin, s.MinSessionMin)
	}
	if s.MaxSessionMin < s.MinSessionMin {
		return fmt.Errorf("%s (%d) must be at least %s (%d)", constants.SettingMaxSessionMin, s.MaxSessionMin, constants.SettingMinSessionMin, s.MinSessionMin)
	}
	if s.TolerancePct < 0 || s.TolerancePct > 100 {
		return fmt.Errorf("%s must be within [0, 100], got %g", constants.SettingTolerancePct, s.TolerancePct)
	}
	if s.LearningRate <= 0 || s.LearningRate > 1 {
		return fmt.Errorf("%s must be within (0, 1], got %g", constants.SettingLearningRate, s.LearningRate)
	}
	if s.PriorityDeltaClamp < 0 {
		return fmt.Errorf("%s must not be negative, got %g", constants.SettingPriorityDeltaClamp, s.PriorityDeltaClamp)
	}
	if s.DurationDeltaClamp < 0 {
		return fmt.Errorf("%s must not be negative, got %d", constants.SettingDurationDeltaClamp, s.DurationDeltaClamp)
	}
	if s.BreakMin < 0 {
		return fmt.Errorf("%s must not be negative, got %d", constants.SettingBreakMin, s.BreakMin)
	}
	if s.AvailabilityFloorPct < 0 {
		return fmt.Errorf("%s must not be negative, got %g", constants.SettingAvailabilityFloorPct, s.AvailabilityFloorPct)
	}
	if _, err := ParseWeekday(s.WeekStart); err != nil {
		return fmt.Errorf("%s: %w", constants.SettingWeekStart, err)
	}
	if s.Timezone != "" && s.Timezone != "Local" {
		if _, err := time.LoadLocation(s.Timezone); err != nil {
			return fmt.Errorf("invalid timezone %q: %w", s.Timezone, err)
		}
	}
	return nil
}

var weekdayNames = map[string]time.Weekday{
	"sun":       time.Sunday,
	"sunday":    time.Sunday,
	"mon":       time.Monday,
	"monday":    time.Monday,
	"tue":       time.Tuesday,
	"tuesday":   time.Tuesday,
	"wed":       time.Wednesday,
	"wednesday": time.Wednesday,
	"thu":       time.Thursday,
	"thursday":  time.Thursday,
	"fri":       time.Friday,
	"friday":    time.Friday,
	"sat":       time.Saturday,
	"saturday":  time.Saturday,
}

// ParseWeekday parses a weekday name or number (0=Sunday, 6=Saturday).
func ParseWeekday(s string) (time.Weekday, error) {
	part := strings.TrimSpace(strings.ToLower(s))
	if wd, ok := weekdayNames[part]; ok {
		return wd, nil
	}
	num, err := strconv.Atoi(part)
	if err == nil && num >= 0 && num <= 6 {
		return time.Weekday(num), nil
	}
	return 0, fmt.Errorf("invalid weekday: %s", s)
}

// ParseWeekdays parses a comma-separated list of weekdays
func ParseWeekdays(s string) ([]time.Weekday, error) {
	var weekdays []time.Weekday
	for _, part := range strings.Split(s, ",") {
		wd, err := ParseWeekday(part)
		if err != nil {
			return nil, err
		}
		weekdays = append(weekdays, wd)
	}
	return weekdays, nil
}
