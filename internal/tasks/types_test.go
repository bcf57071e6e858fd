package tasks

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsValidStatus(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"pending", true},
		{"in-progress", true},
		{"completed", true},
		{"blocked", true},
		{"failed", true},
		{"in_progress", false},
		{"COMPLETED", false},
		{"", false},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.expected, IsValidStatus(tc.input), "IsValidStatus(%q)", tc.input)
	}
}

func TestPriorityWeight(t *testing.T) {
	tests := []struct {
		priority Priority
		expected float64
	}{
		{PriorityLow, 0.6},
		{PriorityMedium, 1.0},
		{PriorityHigh, 1.5},
		{PriorityUrgent, 2.0},
		{Priority("whatever"), 1.0},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.expected, tc.priority.Weight(), "weight of %q", tc.priority)
	}
}

func TestHasTag(t *testing.T) {
	task := Task{Tags: []string{"work", " goal:g1 "}}

	assert.True(t, task.HasTag("goal:g1"))
	assert.False(t, task.HasTag("goal:g2"))
	assert.False(t, Task{}.HasTag("work"))
}

func TestCompletionDelay(t *testing.T) {
	due := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	task := Task{DueDate: &due}

	assert.Equal(t, 30.0, CompletionDelay(task, due.Add(30*time.Minute)))
	assert.Equal(t, 0.0, CompletionDelay(task, due.Add(-2*time.Hour)))
	assert.Equal(t, 0.0, CompletionDelay(Task{}, due))
}
