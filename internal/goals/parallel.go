package goals

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"optileno-backend/internal/analytics"
	"optileno-backend/internal/habits"
	"optileno-backend/internal/tasks"
)

// Snapshot is everything a user owns that goal analysis reads.
type Snapshot struct {
	Tasks         []tasks.Task      `json:"tasks"`
	Habits        []habits.Habit    `json:"habits"`
	Events        []analytics.Event `json:"events"`
	DeepWorkCount int               `json:"deep_work_count"`
}

// AnalyzeAll runs AnalyzeGoal for each goal concurrently. Results keep
// the order of goals. The snapshot is shared read-only.
func AnalyzeAll(ctx context.Context, goals []Goal, snap Snapshot, now time.Time) ([]Analysis, error) {
	out := make([]Analysis, len(goals))
	g, ctx := errgroup.WithContext(ctx)
	for i, goal := range goals {
		i, goal := i, goal
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out[i] = AnalyzeGoal(goal, snap.Tasks, snap.Habits, snap.Events, snap.DeepWorkCount, now)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
