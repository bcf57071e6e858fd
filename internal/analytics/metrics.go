package analytics

import (
	"math"
	"sort"
	"strings"
	"time"
)

// Neutral defaults reported when there is not enough data. They mean
// "assume average", not "measured and bad".
const (
	DefaultFocusScore       = 50.0
	DefaultPlanningAccuracy = 60.0
	DefaultHabitConsistency = 0.0
)

const (
	MetricsWindow        = 7 * 24 * time.Hour
	focusSessionSample   = 10
	onTimeDelayMinutes   = 15.0
	peakHoursCount       = 4
	burnoutChatPenalty   = 10.0
	burnoutTaskPenalty   = 5.0
	burnoutLoadPenalty   = 20.0
	burnoutLoadThreshold = 8
	ventingIntensity     = 0.7
)

// UserMetrics is a full snapshot of the behavioural scores. It is rebuilt
// from scratch on every call.
type UserMetrics struct {
	FocusScore            float64   `json:"focus_score"`
	ProductivityScore     float64   `json:"productivity_score"`
	PlanningAccuracy      float64   `json:"planning_accuracy"`
	HabitConsistency      float64   `json:"habit_consistency"`
	BurnoutRisk           float64   `json:"burnout_risk"`
	WellbeingScore        float64   `json:"wellbeing_score"`
	PeakProductivityHours []int     `json:"peak_productivity_hours"`
	BehavioralPatterns    []Pattern `json:"behavioral_patterns"`
	DeepWorkMinutes       float64   `json:"deep_work_minutes"`
	TasksCompleted        int       `json:"tasks_completed"`
	TasksCreated          int       `json:"tasks_created"`
	FocusSessions         int       `json:"focus_sessions"`
	ComputedAt            time.Time `json:"computed_at"`
}

type partitions struct {
	task     []Event
	habit    []Event
	deepWork []Event
	chat     []Event
}

func partition(events []Event) partitions {
	var p partitions
	for _, e := range events {
		switch e.Type {
		case TaskEvent:
			p.task = append(p.task, e)
		case HabitEvent:
			p.habit = append(p.habit, e)
		case DeepWorkEvent:
			p.deepWork = append(p.deepWork, e)
		case ChatEvent:
			p.chat = append(p.chat, e)
		}
	}
	return p
}

// ComputeMetrics derives the behavioural snapshot from the trailing 7 days
// of events and the focus session history. It never fails: every metric
// falls back to its documented default.
func ComputeMetrics(events []Event, sessions []FocusSession, now time.Time) UserMetrics {
	windowed := Since(events, now.Add(-MetricsWindow))
	p := partition(windowed)

	m := UserMetrics{
		FocusScore:       FocusScore(sessions),
		PlanningAccuracy: PlanningAccuracy(p.task),
		HabitConsistency: HabitConsistency(p.habit),
		BurnoutRisk:      BurnoutRisk(p.task, p.chat, now),
		FocusSessions:    len(sessions),
		ComputedAt:       now,
	}
	m.ProductivityScore = clamp((m.FocusScore + m.PlanningAccuracy + m.HabitConsistency) / 3)
	m.WellbeingScore = clamp(100 - m.BurnoutRisk)
	m.PeakProductivityHours = PeakProductivityHours(p.task, p.deepWork, now.Location())
	m.BehavioralPatterns = DetectPatterns(windowed, now.Location())

	for _, e := range p.task {
		switch e.Subtype {
		case SubtypeCompleted:
			m.TasksCompleted++
		case SubtypeCreated:
			m.TasksCreated++
		}
	}
	for _, e := range p.deepWork {
		if e.Subtype == SubtypeCompleted {
			m.DeepWorkMinutes += math.Max(0, e.Number(KeyDuration))
		}
	}
	return m
}

// FocusScore averages the last ten finished sessions' quality on a 0-100
// scale. A running session has no quality yet and is skipped.
func FocusScore(sessions []FocusSession) float64 {
	recent := make([]FocusSession, 0, len(sessions))
	for _, s := range sessions {
		if !s.Active() {
			recent = append(recent, s)
		}
	}
	if len(recent) == 0 {
		return DefaultFocusScore
	}
	if len(recent) > focusSessionSample {
		recent = recent[len(recent)-focusSessionSample:]
	}
	var sum float64
	for _, s := range recent {
		sum += clamp(s.Quality * 10)
	}
	return clamp(sum / float64(len(recent)))
}

// PlanningAccuracy is the share of completed tasks finished within 15
// minutes of plan.
func PlanningAccuracy(taskEvents []Event) float64 {
	completed, onTime := 0, 0
	for _, e := range taskEvents {
		if e.Subtype != SubtypeCompleted {
			continue
		}
		completed++
		if e.Number(KeyDelay) <= onTimeDelayMinutes {
			onTime++
		}
	}
	if completed == 0 {
		return DefaultPlanningAccuracy
	}
	return clamp(float64(onTime) / float64(completed) * 100)
}

// HabitConsistency averages the consistency score stamped on each habit
// completion.
func HabitConsistency(habitEvents []Event) float64 {
	var sum float64
	n := 0
	for _, e := range habitEvents {
		if e.Subtype != SubtypeCompleted {
			continue
		}
		sum += clamp(e.Number(KeyConsistencyScore))
		n++
	}
	if n == 0 {
		return DefaultHabitConsistency
	}
	return clamp(sum / float64(n))
}

// BurnoutRisk is a cumulative alarm, not an average: each stress signal
// adds to the total.
func BurnoutRisk(taskEvents, chatEvents []Event, now time.Time) float64 {
	var risk float64
	for _, e := range chatEvents {
		if isDistressed(e) {
			risk += burnoutChatPenalty
		}
	}

	dayAgo := now.Add(-24 * time.Hour)
	touched := 0
	for _, e := range taskEvents {
		if e.Subtype == SubtypeOverdue || e.Subtype == SubtypeAbandoned {
			risk += burnoutTaskPenalty
		}
		if !e.Timestamp.Before(dayAgo) {
			touched++
		}
	}
	if touched > burnoutLoadThreshold {
		risk += burnoutLoadPenalty
	}
	return clamp(risk)
}

func isDistressed(e Event) bool {
	emotion := strings.ToLower(e.Text(KeyEmotion))
	if emotion == "" {
		emotion = strings.ToLower(e.Subtype)
	}
	switch emotion {
	case "overwhelmed", "anxious":
		return true
	case "venting":
		return e.Number(KeyEmotionalIntensity) > ventingIntensity
	}
	return false
}

// PeakProductivityHours weights activity by hour of day in loc and returns
// the four heaviest hours. Equal weights are ordered by ascending hour.
func PeakProductivityHours(taskEvents, deepWorkEvents []Event, loc *time.Location) []int {
	if loc == nil {
		loc = time.UTC
	}
	var weights [24]float64
	for _, e := range taskEvents {
		w := 1.0
		if e.Subtype == SubtypeCompleted {
			w = 2
		}
		weights[e.Timestamp.In(loc).Hour()] += w
	}
	for _, e := range deepWorkEvents {
		if e.Subtype == SubtypeCompleted {
			weights[e.Timestamp.In(loc).Hour()] += 3
		}
	}

	hours := make([]int, 0, 24)
	for h, w := range weights {
		if w > 0 {
			hours = append(hours, h)
		}
	}
	sort.SliceStable(hours, func(i, j int) bool {
		return weights[hours[i]] > weights[hours[j]]
	})
	if len(hours) > peakHoursCount {
		hours = hours[:peakHoursCount]
	}
	return hours
}

func clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
