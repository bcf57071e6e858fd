package goals

import (
	"time"

	"optileno-backend/internal/habits"
	"optileno-backend/internal/tasks"
)

var testNow = time.Date(2026, 5, 20, 18, 0, 0, 0, time.UTC)

func at(d time.Duration) *time.Time {
	t := testNow.Add(d)
	return &t
}

func task(id string, status tasks.Status, prio tasks.Priority, mutate ...func(*tasks.Task)) tasks.Task {
	t := tasks.Task{ID: id, Title: "task " + id, Status: status, Priority: prio}
	for _, m := range mutate {
		m(&t)
	}
	return t
}

func inCategory(c string) func(*tasks.Task) {
	return func(t *tasks.Task) { t.Category = c }
}

func completedAt(d time.Duration) func(*tasks.Task) {
	return func(t *tasks.Task) { t.CompletedAt = at(d) }
}

func habit(id, name string, freq habits.Frequency, streak int, last *time.Time) habits.Habit {
	return habits.Habit{ID: id, Name: name, Frequency: freq, CurrentStreak: streak, LastCompleted: last}
}
