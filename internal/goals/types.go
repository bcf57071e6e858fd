package goals

import "time"

// Dynamics are server-computed hints. They are surfaced in the narrative
// and risk list, never folded into the score.
type Dynamics struct {
	MomentumBoost   float64 `json:"momentum_boost"`
	InactivityDecay float64 `json:"inactivity_decay"`
}

// Goal is a snapshot of a user goal. AIProbability and AIInsights, when
// present, override the locally computed probability.
type Goal struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Category        string     `json:"category,omitempty"`
	TargetDate      *time.Time `json:"target_date,omitempty"`
	CurrentProgress float64    `json:"current_progress"`
	AIProbability   *float64   `json:"ai_probability,omitempty"`
	AIInsights      []string   `json:"ai_insights,omitempty"`
	Dynamics        *Dynamics  `json:"dynamics,omitempty"`
	CreatedAt       *time.Time `json:"created_at,omitempty"`
}

func (g Goal) Active() bool {
	return g.CurrentProgress < 100
}
