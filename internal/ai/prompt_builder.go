package ai

import (
	"fmt"
	"strings"
)

// GoalContext is the goal state sent to the model.
type GoalContext struct {
	Title              string
	Category           string
	CurrentProgress    float64
	DaysElapsed        float64
	DaysRemaining      int
	TotalDays          int
	LinkedTasks        int
	CompletedTasks     int
	HabitsLinked       int
	AverageHabitStreak float64
	DeepWorkMinutes    float64
	DeepWorkTarget     float64
	LocalProbability   float64
	TaskScore          float64
	HabitScore         float64
	DeepWorkScore      float64
	PaceScore          float64
	MomentumScore      float64
	RiskFactors        []string
}

// BuildGoalPrompt formats the user message as key: value lines.
func BuildGoalPrompt(g GoalContext) string {
	var b strings.Builder

	line := func(k string, v any) {
		fmt.Fprintf(&b, "%s: %v\n", k, v)
	}

	line("goal_title", strings.TrimSpace(g.Title))
	if c := strings.TrimSpace(g.Category); c != "" {
		line("goal_category", c)
	}
	line("current_progress", num(g.CurrentProgress))
	line("days_elapsed", num(g.DaysElapsed))
	line("days_remaining", g.DaysRemaining)
	line("total_days", g.TotalDays)
	line("linked_tasks_total", g.LinkedTasks)
	line("linked_tasks_completed", g.CompletedTasks)
	line("habits_linked", g.HabitsLinked)
	line("average_habit_streak", num(g.AverageHabitStreak))
	line("deep_work_minutes", num(g.DeepWorkMinutes))
	line("deep_work_target", num(g.DeepWorkTarget))
	line("local_probability", num(g.LocalProbability))
	fmt.Fprintf(&b, "component_scores: task=%s habit=%s deep_work=%s pace=%s momentum=%s\n",
		num(g.TaskScore), num(g.HabitScore), num(g.DeepWorkScore), num(g.PaceScore), num(g.MomentumScore))

	if len(g.RiskFactors) > 0 {
		b.WriteString("risk_factors:\n")
		for _, r := range g.RiskFactors {
			b.WriteString("- ")
			b.WriteString(r)
			b.WriteString("\n")
		}
	}

	return b.String()
}

func num(v float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.1f", v), "0"), ".")
}
