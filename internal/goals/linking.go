package goals

import (
	"strings"

	"optileno-backend/internal/habits"
	"optileno-backend/internal/tasks"
)

type LinkStrategy string

const (
	LinkByTag      LinkStrategy = "tag"
	LinkByGoalID   LinkStrategy = "goal_id"
	LinkByCategory LinkStrategy = "category"
	LinkNone       LinkStrategy = "none"
)

const autoHabitWeight = 0.5

// GoalTag is the explicit tag that attaches a task to a goal.
func GoalTag(goalID string) string {
	return "goal:" + goalID
}

// LinkTasks resolves the tasks contributing to g. Strategies are tried in
// order (tag, goal id, category) and the first non-empty result is
// returned on its own. There is no further fallback.
func LinkTasks(g Goal, all []tasks.Task) ([]tasks.Task, LinkStrategy) {
	if g.ID != "" {
		tag := GoalTag(g.ID)
		if linked := filterTasks(all, func(t tasks.Task) bool { return t.HasTag(tag) }); len(linked) > 0 {
			return linked, LinkByTag
		}
		if linked := filterTasks(all, func(t tasks.Task) bool { return t.GoalID == g.ID }); len(linked) > 0 {
			return linked, LinkByGoalID
		}
	}
	if cat := strings.TrimSpace(g.Category); cat != "" {
		linked := filterTasks(all, func(t tasks.Task) bool {
			return strings.EqualFold(strings.TrimSpace(t.Category), cat)
		})
		if len(linked) > 0 {
			return linked, LinkByCategory
		}
	}
	return nil, LinkNone
}

func filterTasks(all []tasks.Task, keep func(tasks.Task) bool) []tasks.Task {
	var out []tasks.Task
	for _, t := range all {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}

// LinkedHabit is a habit counted towards a goal.
type LinkedHabit struct {
	Habit         habits.Habit
	Weight        float64
	AutoSuggested bool
}

// LinkHabits returns the habits explicitly linked to g, followed by the
// wellness habits that support every goal at half weight.
func LinkHabits(g Goal, all []habits.Habit) []LinkedHabit {
	var out []LinkedHabit
	explicit := make([]bool, len(all))
	if g.ID != "" {
		for i, h := range all {
			if h.GoalLink == g.ID {
				out = append(out, LinkedHabit{Habit: h, Weight: 1})
				explicit[i] = true
			}
		}
	}
	for i, h := range all {
		if explicit[i] || !h.IsWellness() {
			continue
		}
		out = append(out, LinkedHabit{Habit: h, Weight: autoHabitWeight, AutoSuggested: true})
	}
	return out
}
