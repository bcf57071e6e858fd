package goals

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"optileno-backend/internal/habits"
	"optileno-backend/internal/tasks"
)

func TestLinkTasks_TagWinsOverGoalIDAndCategory(t *testing.T) {
	g := Goal{ID: "g1", Category: "Health"}
	all := []tasks.Task{
		task("a", tasks.StatusPending, tasks.PriorityLow, func(t *tasks.Task) { t.Tags = []string{"goal:g1"}; t.Category = "Health" }),
		task("b", tasks.StatusPending, tasks.PriorityLow, func(t *tasks.Task) { t.GoalID = "g1" }),
		task("c", tasks.StatusPending, tasks.PriorityLow, inCategory("Health")),
	}

	linked, strategy := LinkTasks(g, all)

	assert.Equal(t, LinkByTag, strategy)
	require.Len(t, linked, 1)
	assert.Equal(t, "a", linked[0].ID)
}

func TestLinkTasks_FallsThroughStrategies(t *testing.T) {
	g := Goal{ID: "g1", Category: "health"}

	linked, strategy := LinkTasks(g, []tasks.Task{
		task("b", tasks.StatusPending, tasks.PriorityLow, func(t *tasks.Task) { t.GoalID = "g1" }),
		task("c", tasks.StatusPending, tasks.PriorityLow, inCategory("Health")),
	})
	assert.Equal(t, LinkByGoalID, strategy)
	assert.Len(t, linked, 1)

	linked, strategy = LinkTasks(g, []tasks.Task{
		task("c", tasks.StatusPending, tasks.PriorityLow, inCategory(" HEALTH ")),
		task("d", tasks.StatusPending, tasks.PriorityLow, inCategory("Work")),
	})
	assert.Equal(t, LinkByCategory, strategy)
	require.Len(t, linked, 1)
	assert.Equal(t, "c", linked[0].ID)
}

func TestLinkTasks_NoCategoryNoMatch(t *testing.T) {
	linked, strategy := LinkTasks(Goal{ID: "g1"}, []tasks.Task{
		task("c", tasks.StatusPending, tasks.PriorityLow),
	})

	assert.Equal(t, LinkNone, strategy)
	assert.Empty(t, linked)
}

func TestLinkHabits_ExplicitThenWellness(t *testing.T) {
	all := []habits.Habit{
		{ID: "h1", Name: "Morning run", GoalLink: "g1"},
		{ID: "h2", Name: "Sleep by 11"},
		{ID: "h3", Name: "Read"},
		{ID: "h4", Name: "Meditation", GoalLink: "g1"},
	}

	linked := LinkHabits(Goal{ID: "g1"}, all)

	require.Len(t, linked, 3)
	assert.Equal(t, "h1", linked[0].Habit.ID)
	assert.Equal(t, 1.0, linked[0].Weight)
	assert.Equal(t, "h4", linked[1].Habit.ID)
	assert.False(t, linked[1].AutoSuggested)
	assert.Equal(t, "h2", linked[2].Habit.ID)
	assert.Equal(t, 0.5, linked[2].Weight)
	assert.True(t, linked[2].AutoSuggested)
}
