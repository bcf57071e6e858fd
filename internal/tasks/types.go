package tasks

import (
	"strings"
	"time"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusBlocked    Status = "blocked"
	StatusFailed     Status = "failed"
)

var ValidStatuses = []Status{
	StatusPending,
	StatusInProgress,
	StatusCompleted,
	StatusBlocked,
	StatusFailed,
}

func IsValidStatus(s string) bool {
	for _, st := range ValidStatuses {
		if string(st) == s {
			return true
		}
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func IsValidPriority(s string) bool {
	switch Priority(s) {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Weight is the share a task of this priority carries in a goal's
// completion ratio. Unknown priorities count as medium.
func (p Priority) Weight() float64 {
	switch p {
	case PriorityLow:
		return 0.6
	case PriorityHigh:
		return 1.5
	case PriorityUrgent:
		return 2.0
	default:
		return 1.0
	}
}

// Rank orders priorities for "what next" suggestions, urgent first.
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	default:
		return 2
	}
}

// Task is a snapshot of a planner item. GoalID is a weak back-reference
// used only for lookup.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Status      Status     `json:"status"`
	Priority    Priority   `json:"priority"`
	Category    string     `json:"category,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	GoalID      string     `json:"goal_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (t Task) IsCompleted() bool {
	return t.Status == StatusCompleted
}

func (t Task) HasTag(tag string) bool {
	for _, tg := range t.Tags {
		if strings.TrimSpace(tg) == tag {
			return true
		}
	}
	return false
}

// CompletionDelay is how many minutes past its due date the task was
// completed. Early or undated completions report 0.
func CompletionDelay(t Task, completedAt time.Time) float64 {
	if t.DueDate == nil {
		return 0
	}
	d := completedAt.Sub(*t.DueDate).Minutes()
	if d < 0 {
		return 0
	}
	return d
}
