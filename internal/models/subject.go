package models

import (
	"fmt"
	"strings"
	"time"
)

type DifficultyLevel string

const (
	DifficultyVeryEasy DifficultyLevel = "very_easy"
	DifficultyEasy     DifficultyLevel = "easy"
	DifficultyMedium   DifficultyLevel = "medium"
	DifficultyHard     DifficultyLevel = "hard"
	DifficultyVeryHard DifficultyLevel = "very_hard"
)

var difficultyValues = map[DifficultyLevel]float64{
	DifficultyVeryEasy: 0.0,
	DifficultyEasy:     0.25,
	DifficultyMedium:   0.5,
	DifficultyHard:     0.75,
	DifficultyVeryHard: 1.0,
}

// Value maps the declared level onto [0,1]. Unknown levels count as medium.
func (d DifficultyLevel) Value() float64 {
	if v, ok := difficultyValues[d]; ok {
		return v
	}
	return difficultyValues[DifficultyMedium]
}

func (d DifficultyLevel) Valid() bool {
	_, ok := difficultyValues[d]
	return ok
}

// ParseDifficulty accepts the level names with either '_' or '-' separators.
func ParseDifficulty(s string) (DifficultyLevel, error) {
	level := DifficultyLevel(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	if !level.Valid() {
		return "", fmt.Errorf("invalid difficulty: %s (use very_easy, easy, medium, hard, or very_hard)", s)
	}
	return level, nil
}

// Subject is something the user wants to study every week.
type Subject struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	Name            string          `json:"name"`
	Priority        float64         `json:"priority"`
	Difficulty      DifficultyLevel `json:"difficulty"`
	TargetWeeklyMin int             `json:"target_weekly_min"`
	CreatedAt       time.Time       `json:"created_at"`
	DeletedAt       *time.Time      `json:"deleted_at,omitempty"`
}
