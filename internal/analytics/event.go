package analytics

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// EventType discriminates the AppEvent union.
type EventType string

const (
	TaskEvent      EventType = "task_event"
	DeepWorkEvent  EventType = "deep_work_event"
	HabitEvent     EventType = "habit_event"
	GoalEvent      EventType = "goal_event"
	ChatEvent      EventType = "chat_event"
	AnalyticsEvent EventType = "analytics_event"
)

func IsValidEventType(s string) bool {
	switch EventType(s) {
	case TaskEvent, DeepWorkEvent, HabitEvent, GoalEvent, ChatEvent, AnalyticsEvent:
		return true
	}
	return false
}

// Subtypes read by the metrics and goal engines.
const (
	SubtypeCreated   = "created"
	SubtypeStarted   = "started"
	SubtypePaused    = "paused"
	SubtypeCompleted = "completed"
	SubtypeOverdue   = "overdue"
	SubtypeAbandoned = "abandoned"
	SubtypeMissed    = "missed"
	SubtypeMessage   = "message"
)

// Payload keys.
const (
	KeyTaskID             = "taskId"
	KeyGoalID             = "goalId"
	KeyHabitID            = "habitId"
	KeyDelay              = "delay"
	KeyDuration           = "duration"
	KeyConsistencyScore   = "consistencyScore"
	KeyEmotion            = "emotion"
	KeyEmotionalIntensity = "emotionalIntensity"
)

// Event is one entry of the append-only behavioural log. Metrics carries
// numeric measurements, Metadata carries descriptive fields; both are
// loosely typed and read through the fail-soft accessors below.
type Event struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Subtype   string         `json:"subtype"`
	Timestamp time.Time      `json:"timestamp"`
	Metrics   map[string]any `json:"metrics,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Number reads key from Metrics, then Metadata. Missing or non-numeric
// values read as 0.
func (e Event) Number(key string) float64 {
	if v, ok := e.Metrics[key]; ok {
		return toNumber(v)
	}
	if v, ok := e.Metadata[key]; ok {
		return toNumber(v)
	}
	return 0
}

// Text reads key from Metadata, then Metrics. Non-string values read as "".
func (e Event) Text(key string) string {
	if v, ok := e.Metadata[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	if v, ok := e.Metrics[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func (e Event) Is(t EventType, subtype string) bool {
	return e.Type == t && e.Subtype == subtype
}

func toNumber(v any) float64 {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case int32:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// Since returns the events at or after cutoff, preserving order.
func Since(events []Event, cutoff time.Time) []Event {
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if !e.Timestamp.Before(cutoff) {
			out = append(out, e)
		}
	}
	return out
}
