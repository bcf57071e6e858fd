package goals

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ids(goals []Goal) []string {
	out := make([]string, 0, len(goals))
	for _, g := range goals {
		out = append(out, g.ID)
	}
	return out
}

func TestSelectForAnalysis(t *testing.T) {
	goals := []Goal{
		{ID: "a", TargetDate: at(5 * day)},
		{ID: "b"},
		{ID: "c", TargetDate: at(day), CurrentProgress: 100},
		{ID: "d", TargetDate: at(2 * day)},
		{ID: "e"},
		{ID: "f", TargetDate: at(5 * day)},
	}

	sel := SelectForAnalysis(goals, 3)

	assert.Equal(t, []string{"d", "a", "f"}, ids(sel.Selected))
	assert.True(t, sel.IsMaxReached)
	assert.Equal(t, 5, sel.TotalGoals)
}

func TestSelectForAnalysis_UndatedKeepInputOrder(t *testing.T) {
	goals := []Goal{{ID: "x"}, {ID: "y"}, {ID: "z", TargetDate: at(day)}}

	sel := SelectForAnalysis(goals, 0)

	assert.Equal(t, []string{"z", "x", "y"}, ids(sel.Selected))
	assert.False(t, sel.IsMaxReached)
	assert.Equal(t, 3, sel.TotalGoals)
}

func TestSelectForAnalysis_DoesNotReorderInput(t *testing.T) {
	goals := []Goal{{ID: "b"}, {ID: "a", TargetDate: at(day)}}

	SelectForAnalysis(goals, 1)

	assert.Equal(t, []string{"b", "a"}, ids(goals))
}

func TestSelectForAnalysis_Empty(t *testing.T) {
	sel := SelectForAnalysis(nil, 3)

	assert.Empty(t, sel.Selected)
	assert.False(t, sel.IsMaxReached)
	assert.Zero(t, sel.TotalGoals)
}
