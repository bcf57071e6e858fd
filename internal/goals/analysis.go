package goals

import (
	"fmt"
	"math"
	"time"

	"optileno-backend/internal/analytics"
	"optileno-backend/internal/habits"
	"optileno-backend/internal/tasks"
)

const (
	defaultWindowDays = 30
	maxListItems      = 3

	capNothingLinked = 1.0
	capTasksIdle     = 3.0
)

type Trend string

const (
	TrendImproving Trend = "improving"
	TrendStable    Trend = "stable"
	TrendDeclining Trend = "declining"
)

// Window is the analysis period of a goal.
type Window struct {
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	TotalDays     int       `json:"total_days"`
	ElapsedDays   float64   `json:"elapsed_days"`
	DaysRemaining int       `json:"days_remaining"`
}

// DeriveWindow picks the start from created_at, else 30 days before the
// target, else now. The end is the target, else 30 days after start.
func DeriveWindow(g Goal, now time.Time) Window {
	var start time.Time
	switch {
	case g.CreatedAt != nil:
		start = *g.CreatedAt
	case g.TargetDate != nil:
		start = g.TargetDate.Add(-defaultWindowDays * day)
	default:
		start = now
	}
	end := start.Add(defaultWindowDays * day)
	if g.TargetDate != nil {
		end = *g.TargetDate
	}

	total := int(math.Ceil(end.Sub(start).Hours() / 24))
	return Window{
		Start:         start,
		End:           end,
		TotalDays:     max(1, total),
		ElapsedDays:   math.Max(0.5, now.Sub(start).Hours()/24),
		DaysRemaining: max(0, int(math.Ceil(end.Sub(now).Hours()/24))),
	}
}

type TaskRef struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Status    tasks.Status   `json:"status"`
	Priority  tasks.Priority `json:"priority"`
	Completed bool           `json:"completed"`
}

type HabitRef struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	CurrentStreak int     `json:"current_streak"`
	Weight        float64 `json:"weight"`
	AutoSuggested bool    `json:"auto_suggested"`
}

// Breakdown lists what fed the score.
type Breakdown struct {
	LinkStrategy    LinkStrategy `json:"link_strategy"`
	Tasks           []TaskRef    `json:"tasks"`
	CompletedTasks  int          `json:"completed_tasks"`
	Habits          []HabitRef   `json:"habits"`
	DeepWorkMinutes float64      `json:"deep_work_minutes"`
	DeepWorkTarget  float64      `json:"deep_work_target"`
	Components      Components   `json:"components"`
}

// Analysis is the full per-goal result.
type Analysis struct {
	GoalID            string            `json:"goal_id"`
	GoalTitle         string            `json:"goal_title"`
	Probability       ProbabilityResult `json:"probability"`
	Breakdown         Breakdown         `json:"breakdown"`
	Window            Window            `json:"window"`
	RequiredDailyRate float64           `json:"required_daily_rate"`
	CurrentDailyRate  float64           `json:"current_daily_rate"`
	ConsistencyScore  float64           `json:"consistency_score"`
	WeeklyTrend       Trend             `json:"weekly_trend"`
	RiskFactors       []string          `json:"risk_factors"`
	NextActions       []string          `json:"next_actions"`
}

// AnalyzeGoal scores one goal against the user's full task and habit
// collections. It reads only its arguments, so calls with equal inputs
// and now return equal results.
func AnalyzeGoal(g Goal, allTasks []tasks.Task, allHabits []habits.Habit, events []analytics.Event, deepWorkCount int, now time.Time) Analysis {
	win := DeriveWindow(g, now)
	linked, strategy := LinkTasks(g, allTasks)
	linkedHabits := LinkHabits(g, allHabits)
	completed := countCompleted(linked)

	minutes := DeepWorkMinutes(events, win.Start, now, deepWorkCount)
	c := Components{
		Task:     TaskScore(linked),
		Habit:    HabitScore(linkedHabits, now),
		DeepWork: DeepWorkScore(minutes, win.ElapsedDays),
		Momentum: MomentumScore(linked, linkedHabits, now),
	}
	c.Pace = PaceScore(c.Task, len(linked), completed, win.ElapsedDays, win.TotalDays)

	hasActivity := completed > 0 || anyStreak(linkedHabits) || minutes > 0
	est := estimate(g, c, len(linked), len(linkedHabits), hasActivity)
	ic := insightContext{daysRemaining: win.DaysRemaining, anyCompleted: completed > 0}
	if g.Dynamics != nil && g.Dynamics.MomentumBoost > 0 {
		ic.momentumBoost = g.Dynamics.MomentumBoost
	}
	prob := Classify(est, ic)

	return Analysis{
		GoalID:      g.ID,
		GoalTitle:   g.Title,
		Probability: prob,
		Breakdown: Breakdown{
			LinkStrategy:    strategy,
			Tasks:           taskRefs(linked),
			CompletedTasks:  completed,
			Habits:          habitRefs(linkedHabits),
			DeepWorkMinutes: round1(minutes),
			DeepWorkTarget:  round1(deepWorkDailyTarget * win.ElapsedDays),
			Components:      c,
		},
		Window:            win,
		RequiredDailyRate: requiredDailyRate(g.CurrentProgress, win.DaysRemaining),
		CurrentDailyRate:  round1(c.Task / win.ElapsedDays),
		ConsistencyScore:  consistencyScore(linked, linkedHabits, events, now),
		WeeklyTrend:       weeklyTrend(hasActivity, c.Momentum),
		RiskFactors:       riskFactors(g, c, len(linked), completed, win),
		NextActions:       nextActions(c, linked, linkedHabits),
	}
}

func estimate(g Goal, c Components, linkedTasks, linkedHabits int, active bool) Estimate {
	if g.AIProbability != nil {
		return ServerEstimate{Probability: *g.AIProbability, Insights: g.AIInsights}
	}
	p := c.Weighted()
	limit := math.Inf(1)
	if linkedTasks == 0 && linkedHabits == 0 {
		limit = capNothingLinked
	} else if !active {
		limit = capNothingLinked
		if linkedTasks > 0 {
			limit = capTasksIdle
		}
	}
	if p > limit {
		return LocalEstimate{Probability: limit, Components: c, Capped: true}
	}
	return LocalEstimate{Probability: p, Components: c}
}

func requiredDailyRate(progress float64, daysRemaining int) float64 {
	if daysRemaining <= 0 {
		return 100
	}
	remaining := math.Max(0, 100-clamp(progress))
	return round1(remaining / float64(daysRemaining))
}

// consistencyScore blends how many of the last 7 days saw linked-task
// activity with a capped habit-streak bonus.
func consistencyScore(linked []tasks.Task, habits []LinkedHabit, events []analytics.Event, now time.Time) float64 {
	ids := make(map[string]struct{}, len(linked))
	active := make(map[int]struct{}, 7)
	mark := func(at time.Time) {
		if at.After(now) {
			return
		}
		if d := int(now.Sub(at) / day); d < 7 {
			active[d] = struct{}{}
		}
	}
	for _, t := range linked {
		if t.ID != "" {
			ids[t.ID] = struct{}{}
		}
		if t.CompletedAt != nil {
			mark(*t.CompletedAt)
		}
	}
	for _, e := range events {
		if e.Type != analytics.TaskEvent {
			continue
		}
		if _, ok := ids[e.Text(analytics.KeyTaskID)]; ok {
			mark(e.Timestamp)
		}
	}

	presence := float64(len(active)) / 7 * 100
	bonus := math.Min(averageStreak(habits), 7) / 7 * 100
	return round1(clamp(0.7*presence + 0.3*bonus))
}

func weeklyTrend(hasActivity bool, momentum float64) Trend {
	switch {
	case !hasActivity:
		return TrendDeclining
	case momentum >= 60:
		return TrendImproving
	case momentum >= 35:
		return TrendStable
	default:
		return TrendDeclining
	}
}

func riskFactors(g Goal, c Components, linked, completed int, win Window) []string {
	out := make([]string, 0, maxListItems+1)
	add := func(s string) {
		if len(out) < maxListItems {
			out = append(out, s)
		}
	}

	if linked == 0 {
		add("No tasks are linked to this goal")
	} else if completed == 0 {
		add("None of the linked tasks are completed yet")
	} else if c.Pace <= 20 {
		add("Task completion is behind the time elapsed")
	}
	if c.Habit < 30 {
		add("Low or no habit progress supporting this goal")
	}
	if c.DeepWork < 25 {
		add("Little deep work logged towards this goal")
	}
	if win.DaysRemaining <= 3 && g.CurrentProgress < 80 {
		add("Deadline is close and significant progress remains")
	}
	if c.Momentum < 20 {
		add("No recent momentum in the last week")
	}

	if g.Dynamics != nil && g.Dynamics.InactivityDecay > 0 {
		out = append(out, fmt.Sprintf("Inactivity is eroding progress (decay %.1f)", g.Dynamics.InactivityDecay))
	}
	return out
}

func nextActions(c Components, linked []tasks.Task, habits []LinkedHabit) []string {
	out := make([]string, 0, maxListItems)
	add := func(s string) {
		if len(out) < maxListItems {
			out = append(out, s)
		}
	}

	if len(linked) == 0 {
		add("Link a few concrete tasks to this goal")
	} else if t, ok := nextTask(linked); ok {
		add(fmt.Sprintf("Complete %q next", t.Title))
	}
	if len(habits) == 0 {
		add("Add a daily habit that supports this goal")
	} else if c.Habit < 50 {
		add("Check in on your linked habits today")
	}
	if c.DeepWork < 50 {
		add("Schedule a 45-minute deep work session")
	}
	if c.Pace > 0 && c.Pace < 40 {
		add("Break the remaining work into smaller tasks")
	}
	return out
}

// nextTask is the highest-priority open task, earliest due first.
func nextTask(linked []tasks.Task) (tasks.Task, bool) {
	var best tasks.Task
	found := false
	for _, t := range linked {
		if t.IsCompleted() {
			continue
		}
		if !found || before(t, best) {
			best, found = t, true
		}
	}
	return best, found
}

func before(a, b tasks.Task) bool {
	if ra, rb := a.Priority.Rank(), b.Priority.Rank(); ra != rb {
		return ra < rb
	}
	switch {
	case a.DueDate == nil:
		return false
	case b.DueDate == nil:
		return true
	default:
		return a.DueDate.Before(*b.DueDate)
	}
}

func taskRefs(linked []tasks.Task) []TaskRef {
	out := make([]TaskRef, 0, len(linked))
	for _, t := range linked {
		out = append(out, TaskRef{ID: t.ID, Title: t.Title, Status: t.Status, Priority: t.Priority, Completed: t.IsCompleted()})
	}
	return out
}

func habitRefs(linked []LinkedHabit) []HabitRef {
	out := make([]HabitRef, 0, len(linked))
	for _, lh := range linked {
		out = append(out, HabitRef{
			ID:            lh.Habit.ID,
			Name:          lh.Habit.Name,
			CurrentStreak: lh.Habit.CurrentStreak,
			Weight:        lh.Weight,
			AutoSuggested: lh.AutoSuggested,
		})
	}
	return out
}
