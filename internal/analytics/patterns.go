package analytics

import "time"

// Pattern is a named behavioural observation.
type Pattern struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Evidence    int    `json:"evidence"`
}

const switchWindow = 10 * time.Minute

type detector func(events []Event, loc *time.Location) (Pattern, bool)

// detectors run in this order; each is independent of the others.
var detectors = []detector{
	detectMorningOverplanning,
	detectAfternoonDip,
	detectHabitConsistency,
	detectTaskSwitching,
}

// DetectPatterns runs every rule over the events. Several patterns may
// fire at once.
func DetectPatterns(events []Event, loc *time.Location) []Pattern {
	if loc == nil {
		loc = time.UTC
	}
	out := []Pattern{}
	for _, d := range detectors {
		if p, ok := d(events, loc); ok {
			out = append(out, p)
		}
	}
	return out
}

func detectMorningOverplanning(events []Event, loc *time.Location) (Pattern, bool) {
	n := 0
	for _, e := range events {
		if !e.Is(TaskEvent, SubtypeCreated) {
			continue
		}
		if h := e.Timestamp.In(loc).Hour(); h >= 5 && h <= 10 {
			n++
		}
	}
	if n <= 5 {
		return Pattern{}, false
	}
	return Pattern{
		Name:        "Morning overplanning",
		Category:    "planning",
		Description: "Many tasks get created early in the day. Consider capping the morning list at three priorities.",
		Evidence:    n,
	}, true
}

func detectAfternoonDip(events []Event, loc *time.Location) (Pattern, bool) {
	morning, afternoon := 0, 0
	for _, e := range events {
		if !e.Is(TaskEvent, SubtypeCompleted) {
			continue
		}
		h := e.Timestamp.In(loc).Hour()
		switch {
		case h >= 8 && h <= 12:
			morning++
		case h >= 13 && h <= 17:
			afternoon++
		}
	}
	if float64(afternoon) >= float64(morning)/2 {
		return Pattern{}, false
	}
	return Pattern{
		Name:        "Afternoon productivity dip",
		Category:    "energy",
		Description: "Completions drop sharply after lunch. Schedule lighter work or a break between 13:00 and 17:00.",
		Evidence:    morning - afternoon,
	}, true
}

func detectHabitConsistency(events []Event, _ *time.Location) (Pattern, bool) {
	n := 0
	for _, e := range events {
		if e.Is(HabitEvent, SubtypeCompleted) {
			n++
		}
	}
	if n <= 7 {
		return Pattern{}, false
	}
	return Pattern{
		Name:        "Strong habit consistency",
		Category:    "habits",
		Description: "Habits were completed steadily this week.",
		Evidence:    n,
	}, true
}

func detectTaskSwitching(events []Event, _ *time.Location) (Pattern, bool) {
	var taskEvents []Event
	for _, e := range events {
		if e.Type == TaskEvent {
			taskEvents = append(taskEvents, e)
		}
	}

	n := 0
	for i, e := range taskEvents {
		if e.Subtype != SubtypePaused && e.Subtype != SubtypeStarted {
			continue
		}
		id := e.Text(KeyTaskID)
		if id == "" {
			continue
		}
		for j, other := range taskEvents {
			if i == j {
				continue
			}
			otherID := other.Text(KeyTaskID)
			if otherID == "" || otherID == id {
				continue
			}
			if absDuration(other.Timestamp.Sub(e.Timestamp)) <= switchWindow {
				n++
				break
			}
		}
	}
	if n <= 3 {
		return Pattern{}, false
	}
	return Pattern{
		Name:        "Frequent task switching",
		Category:    "focus",
		Description: "Tasks are often paused or started within minutes of another task. Batch similar work into one focus block.",
		Evidence:    n,
	}, true
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
