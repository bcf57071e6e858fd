package habits

import (
	"math"
	"strings"
	"time"
)

type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

func IsValidFrequency(s string) bool {
	switch Frequency(s) {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	}
	return false
}

// CadenceDays is the expected number of days between completions.
func (f Frequency) CadenceDays() float64 {
	switch f {
	case FrequencyWeekly:
		return 7
	case FrequencyMonthly:
		return 30
	default:
		return 1
	}
}

// Habit is a recurring behaviour. GoalLink is a weak back-reference to a
// goal id.
type Habit struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Category      string     `json:"category,omitempty"`
	Frequency     Frequency  `json:"frequency"`
	CurrentStreak int        `json:"current_streak"`
	LastCompleted *time.Time `json:"last_completed,omitempty"`
	GoalLink      string     `json:"goal_link,omitempty"`
}

// wellnessKeywords name the habits that count towards every goal.
var wellnessKeywords = []string{"sleep", "exercise", "meditation"}

// IsWellness reports whether the habit is one of the auto-suggested
// wellness habits.
func (h Habit) IsWellness() bool {
	name := strings.ToLower(h.Name)
	for _, kw := range wellnessKeywords {
		if strings.Contains(name, kw) {
			return true
		}
	}
	return false
}

const consistencyStreakTarget = 30

// ConsistencyScore is attached to every habit completion event when it is
// created: a 30-day streak is full consistency.
func ConsistencyScore(streak int) float64 {
	if streak <= 0 {
		return 0
	}
	return math.Min(100, float64(streak)/consistencyStreakTarget*100)
}

// CompletionResult describes what a completion did to a habit.
type CompletionResult struct {
	Counted     bool    `json:"counted"`
	StreakReset bool    `json:"streak_reset"`
	Streak      int     `json:"streak"`
	Consistency float64 `json:"consistency_score"`
}

// Complete applies a completion at the given time. A second completion on
// the same calendar day is ignored. A completion within one cadence of the
// previous one extends the streak, anything later restarts it at 1.
// Completions dated before the last one are ignored.
func Complete(h Habit, at time.Time) (Habit, CompletionResult) {
	next := h
	res := CompletionResult{Streak: h.CurrentStreak}

	if h.LastCompleted != nil {
		gap := daysBetween(*h.LastCompleted, at)
		if gap <= 0 {
			res.Consistency = ConsistencyScore(h.CurrentStreak)
			return next, res
		}
		if float64(gap) <= h.Frequency.CadenceDays() && h.CurrentStreak > 0 {
			next.CurrentStreak = h.CurrentStreak + 1
		} else {
			next.CurrentStreak = 1
			res.StreakReset = h.CurrentStreak > 0
		}
	} else {
		next.CurrentStreak = 1
	}

	completed := at
	next.LastCompleted = &completed
	res.Counted = true
	res.Streak = next.CurrentStreak
	res.Consistency = ConsistencyScore(next.CurrentStreak)
	return next, res
}

// daysBetween counts calendar days from a to b in b's location.
func daysBetween(a, b time.Time) int {
	loc := b.Location()
	a = a.In(loc)
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}
