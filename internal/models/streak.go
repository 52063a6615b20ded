package models

import "time"

// StreakState is the day-granularity habit state owned by the streak engine
type StreakState struct {
	CurrentStreak     int        `json:"current_streak"`
	LastCompletion    *time.Time `json:"last_completion,omitempty"`
	HasCompletedToday bool       `json:"has_completed_today"`
}

// StreakTransition names the branch taken when a completion is recorded
type StreakTransition string

const (
	StreakStarted   StreakTransition = "started"
	StreakContinued StreakTransition = "continued"
	StreakHeld      StreakTransition = "held"
	StreakRestarted StreakTransition = "restarted"
)
