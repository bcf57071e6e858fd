package goals

import (
	"math"
	"time"

	"optileno-backend/internal/analytics"
	"optileno-backend/internal/tasks"
)

const (
	day = 24 * time.Hour

	habitRecencyWeight  = 0.65
	habitStreakWeight   = 0.35
	habitStreakTarget   = 21.0
	deepWorkDailyTarget = 45.0
	deepWorkPerSession  = 30.0
	momentumStreakCap   = 14.0
	momentumRatioCap    = 1.5
)

// Components are the five sub-scores behind a local probability.
type Components struct {
	Task     float64 `json:"task"`
	Habit    float64 `json:"habit"`
	DeepWork float64 `json:"deep_work"`
	Pace     float64 `json:"pace"`
	Momentum float64 `json:"momentum"`
}

// Weighted combines the components with the fixed probability weights.
func (c Components) Weighted() float64 {
	return clamp(0.40*c.Task + 0.20*c.Habit + 0.15*c.DeepWork + 0.15*c.Pace + 0.10*c.Momentum)
}

// TaskScore is the priority-weighted share of linked tasks that are done.
func TaskScore(linked []tasks.Task) float64 {
	var total, done float64
	for _, t := range linked {
		w := t.Priority.Weight()
		total += w
		if t.IsCompleted() {
			done += w
		}
	}
	if total == 0 {
		return 0
	}
	return clamp(done / total * 100)
}

// HabitScore averages each linked habit's score by its weight. No linked
// habits scores 0, so absence never looks neutral.
func HabitScore(linked []LinkedHabit, now time.Time) float64 {
	var sum, weights float64
	for _, lh := range linked {
		sum += habitEntryScore(lh, now) * lh.Weight
		weights += lh.Weight
	}
	if weights == 0 {
		return 0
	}
	return clamp(sum / weights)
}

func habitEntryScore(lh LinkedHabit, now time.Time) float64 {
	streak := math.Min(float64(max(lh.Habit.CurrentStreak, 0)), habitStreakTarget) / habitStreakTarget * 100
	return clamp(habitRecencyWeight*recencyFactor(lh, now) + habitStreakWeight*streak)
}

// recencyFactor steps down as the gap since the last completion grows
// relative to the habit's cadence. Never completed scores 0.
func recencyFactor(lh LinkedHabit, now time.Time) float64 {
	if lh.Habit.LastCompleted == nil {
		return 0
	}
	days := math.Max(0, now.Sub(*lh.Habit.LastCompleted).Hours()/24)
	ratio := days / lh.Habit.Frequency.CadenceDays()
	switch {
	case ratio <= 1:
		return 100
	case ratio <= 1.5:
		return 75
	case ratio <= 2:
		return 45
	case ratio <= 3:
		return 20
	default:
		return 5
	}
}

// DeepWorkMinutes sums completed deep-work durations between start and now.
// When no event carries a duration, each counted session is worth 30
// minutes.
func DeepWorkMinutes(events []analytics.Event, start, now time.Time, deepWorkCount int) float64 {
	var minutes float64
	for _, e := range events {
		if !e.Is(analytics.DeepWorkEvent, analytics.SubtypeCompleted) {
			continue
		}
		if e.Timestamp.Before(start) || e.Timestamp.After(now) {
			continue
		}
		minutes += math.Max(0, e.Number(analytics.KeyDuration))
	}
	if minutes == 0 && deepWorkCount > 0 {
		minutes = float64(deepWorkCount) * deepWorkPerSession
	}
	return minutes
}

// DeepWorkScore compares minutes against 45 minutes per elapsed day.
func DeepWorkScore(minutes, elapsedDays float64) float64 {
	target := deepWorkDailyTarget * math.Max(elapsedDays, 0.5)
	return clamp(minutes / target * 100)
}

// PaceScore compares actual completion with the share of the window that
// has elapsed.
func PaceScore(taskScore float64, linked, completed int, elapsedDays float64, totalDays int) float64 {
	if linked == 0 {
		return 0
	}
	if completed == 0 {
		return 2
	}
	expected := math.Min(100, elapsedDays/float64(max(totalDays, 1))*100)
	delta := taskScore - expected
	switch {
	case delta >= 15:
		return 95
	case delta >= 5:
		return 80
	case delta >= -5:
		return 65
	case delta >= -15:
		return 40
	case delta >= -30:
		return 20
	default:
		return 5
	}
}

// MomentumScore compares the last three days of completions with the
// weekly rate, topped up by habit streaks.
func MomentumScore(linked []tasks.Task, habits []LinkedHabit, now time.Time) float64 {
	recent, week := 0, 0
	for _, t := range linked {
		if !t.IsCompleted() || t.CompletedAt == nil || t.CompletedAt.After(now) {
			continue
		}
		age := now.Sub(*t.CompletedAt)
		if age <= 7*day {
			week++
		}
		if age <= 3*day {
			recent++
		}
	}
	if week == 0 {
		if anyStreak(habits) {
			return 10
		}
		return 0
	}

	ratio := (float64(recent) / 3) / (float64(week) / 7)
	velocity := 40 + math.Min(ratio, momentumRatioCap)/momentumRatioCap*60
	habitFactor := math.Min(averageStreak(habits), momentumStreakCap) / momentumStreakCap * 100
	return clamp(0.75*velocity + 0.25*habitFactor)
}

func anyStreak(habits []LinkedHabit) bool {
	for _, lh := range habits {
		if lh.Habit.CurrentStreak > 0 {
			return true
		}
	}
	return false
}

func averageStreak(habits []LinkedHabit) float64 {
	if len(habits) == 0 {
		return 0
	}
	var sum float64
	for _, lh := range habits {
		sum += float64(max(lh.Habit.CurrentStreak, 0))
	}
	return sum / float64(len(habits))
}

func countCompleted(linked []tasks.Task) int {
	n := 0
	for _, t := range linked {
		if t.IsCompleted() {
			n++
		}
	}
	return n
}

func clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
