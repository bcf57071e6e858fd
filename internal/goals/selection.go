package goals

import "sort"

const DefaultMaxGoals = 3

// Selection is the subset of active goals chosen for analysis.
type Selection struct {
	Selected     []Goal `json:"selected_goals"`
	IsMaxReached bool   `json:"is_max_reached"`
	TotalGoals   int    `json:"total_goals"`
}

// SelectForAnalysis keeps goals below 100% progress, orders them by target
// date with undated goals last, and returns the first maxGoals. Equal
// dates keep their input order. maxGoals <= 0 means DefaultMaxGoals.
func SelectForAnalysis(goals []Goal, maxGoals int) Selection {
	if maxGoals <= 0 {
		maxGoals = DefaultMaxGoals
	}

	active := make([]Goal, 0, len(goals))
	for _, g := range goals {
		if g.Active() {
			active = append(active, g)
		}
	}

	sort.SliceStable(active, func(i, j int) bool {
		a, b := active[i].TargetDate, active[j].TargetDate
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})

	n := min(maxGoals, len(active))
	return Selection{
		Selected:     active[:n:n],
		IsMaxReached: len(active) > maxGoals,
		TotalGoals:   len(active),
	}
}
