package goals

import (
	"fmt"
	"math"
)

type Level string

const (
	LevelVeryHigh Level = "very_high"
	LevelHigh     Level = "high"
	LevelMedium   Level = "medium"
	LevelLow      Level = "low"
	LevelVeryLow  Level = "very_low"
)

// LevelFor maps a 0-100 score to its band. Bands are closed-open except
// the top one.
func LevelFor(score float64) Level {
	switch {
	case score >= 80:
		return LevelVeryHigh
	case score >= 60:
		return LevelHigh
	case score >= 40:
		return LevelMedium
	case score >= 20:
		return LevelLow
	default:
		return LevelVeryLow
	}
}

// Style is the fixed display bundle of a level.
type Style struct {
	Label      string `json:"label"`
	Color      string `json:"color"`
	Background string `json:"background"`
	Border     string `json:"border"`
	Icon       string `json:"icon"`
}

func (l Level) Style() Style {
	switch l {
	case LevelVeryHigh:
		return Style{Label: "Very Likely", Color: "text-emerald-600", Background: "bg-emerald-50", Border: "border-emerald-200", Icon: "trophy"}
	case LevelHigh:
		return Style{Label: "Likely", Color: "text-green-600", Background: "bg-green-50", Border: "border-green-200", Icon: "trending-up"}
	case LevelMedium:
		return Style{Label: "Possible", Color: "text-amber-600", Background: "bg-amber-50", Border: "border-amber-200", Icon: "target"}
	case LevelLow:
		return Style{Label: "Unlikely", Color: "text-orange-600", Background: "bg-orange-50", Border: "border-orange-200", Icon: "alert-triangle"}
	default:
		return Style{Label: "Very Unlikely", Color: "text-red-600", Background: "bg-red-50", Border: "border-red-200", Icon: "alert-octagon"}
	}
}

type Source string

const (
	SourceServer Source = "server"
	SourceLocal  Source = "local"
)

// Estimate is either a server-supplied probability or a locally computed
// one. Both are classified and formatted the same way.
type Estimate interface {
	Score() float64
	Source() Source
}

// ServerEstimate carries ai_probability and ai_insights verbatim.
type ServerEstimate struct {
	Probability float64
	Insights    []string
}

func (s ServerEstimate) Score() float64 { return clamp(s.Probability) }
func (s ServerEstimate) Source() Source { return SourceServer }

// LocalEstimate is the weighted component score, after any cap.
type LocalEstimate struct {
	Probability float64
	Components  Components
	Capped      bool
}

func (l LocalEstimate) Score() float64 { return clamp(l.Probability) }
func (l LocalEstimate) Source() Source { return SourceLocal }

// ProbabilityResult is the classified probability.
type ProbabilityResult struct {
	Score   float64 `json:"score"`
	Level   Level   `json:"level"`
	Style   Style   `json:"style"`
	Insight string  `json:"insight"`
	Source  Source  `json:"source"`
	Capped  bool    `json:"capped"`
}

type insightContext struct {
	daysRemaining int
	anyCompleted  bool
	momentumBoost float64
}

// Classify applies the same banding and narrative to either estimate.
// A server estimate with insights uses its first insight instead of the
// template.
func Classify(est Estimate, ic insightContext) ProbabilityResult {
	score := math.Round(est.Score())
	level := LevelFor(score)
	res := ProbabilityResult{
		Score:  score,
		Level:  level,
		Style:  level.Style(),
		Source: est.Source(),
	}

	switch e := est.(type) {
	case ServerEstimate:
		if len(e.Insights) > 0 && e.Insights[0] != "" {
			res.Insight = e.Insights[0]
			return res
		}
	case LocalEstimate:
		res.Capped = e.Capped
	}

	res.Insight = insightFor(level, ic)
	if ic.momentumBoost > 0 {
		res.Insight += fmt.Sprintf(" Recent momentum adds a +%.0f%% boost.", ic.momentumBoost)
	}
	return res
}

func insightFor(level Level, ic insightContext) string {
	left := deadlineSuffix(ic.daysRemaining)
	switch level {
	case LevelVeryHigh:
		return "You're on track to reach this goal" + left + ". Keep the current rhythm."
	case LevelHigh:
		return "Good odds" + left + ". A few more completed tasks will lock it in."
	case LevelMedium:
		return "This goal is within reach" + left + ", but progress needs to pick up."
	case LevelLow:
		if ic.anyCompleted {
			return "You've started, but the current pace won't finish this" + left + "."
		}
		return "No linked tasks are done yet" + left + ". Start with the smallest one today."
	default:
		if ic.anyCompleted {
			return "Progress is far behind" + left + ". Consider rescoping the goal or moving the date."
		}
		return "Nothing has moved on this goal yet" + left + ". Link tasks or habits to start tracking it."
	}
}

func deadlineSuffix(days int) string {
	switch {
	case days <= 0:
		return " and the deadline has arrived"
	case days == 1:
		return " with 1 day left"
	default:
		return fmt.Sprintf(" with %d days left", days)
	}
}
