package analytics

import (
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
)

var (
	ErrSessionActive   = errors.New("a focus session is already active")
	ErrNoActiveSession = errors.New("no active focus session")
)

// FocusSession is one tracked focus block. Duration is in minutes and
// Quality is the tracker's 0-10 rating.
type FocusSession struct {
	ID            string     `json:"id"`
	StartTime     time.Time  `json:"start_time"`
	EndTime       *time.Time `json:"end_time,omitempty"`
	Duration      float64    `json:"duration"`
	Quality       float64    `json:"quality"`
	Interruptions int        `json:"interruptions"`
	TaskID        string     `json:"task_id,omitempty"`
}

func (s FocusSession) Active() bool {
	return s.EndTime == nil
}

// ActiveSession returns the index of the session without an end time, or -1.
func ActiveSession(sessions []FocusSession) int {
	for i, s := range sessions {
		if s.Active() {
			return i
		}
	}
	return -1
}

// StartFocusSession opens a new session. Only one session may be active.
func StartFocusSession(sessions []FocusSession, taskID string, now time.Time) (FocusSession, error) {
	if ActiveSession(sessions) >= 0 {
		return FocusSession{}, ErrSessionActive
	}
	return FocusSession{
		ID:        uuid.NewString(),
		StartTime: now,
		TaskID:    taskID,
	}, nil
}

// StopFocusSession closes the active session and rates it: every
// interruption costs one point off a perfect 10.
func StopFocusSession(sessions []FocusSession, interruptions int, now time.Time) (FocusSession, error) {
	i := ActiveSession(sessions)
	if i < 0 {
		return FocusSession{}, ErrNoActiveSession
	}
	s := sessions[i]
	if interruptions < 0 {
		interruptions = 0
	}
	end := now
	s.EndTime = &end
	s.Duration = math.Max(0, now.Sub(s.StartTime).Minutes())
	s.Interruptions = interruptions
	s.Quality = math.Max(0, 10-float64(interruptions))
	return s, nil
}
