package inference

import (
	"fmt"
	"math"

	"github.com/Brownie44l1/railcrack-api/internal/model"
)

// DefaultThreshold is the decision threshold the deployed service uses.
const DefaultThreshold = 0.5

// Confidence levels.
const (
	LevelVeryHigh = "Very High"
	LevelHigh     = "High"
	LevelModerate = "Moderate"
	LevelLow      = "Low"
)

// Result is the classification record returned to callers.
type Result struct {
	HasCrack        bool    `json:"has_crack"`
	Confidence      float64 `json:"confidence"`
	ConfidenceLevel string  `json:"confidence_level"`
	Message         string  `json:"message"`
	Probability     float64 `json:"probability"`
	Class           string  `json:"class"`

	// Score is the unrounded model output.
	Score float64 `json:"-"`
	// ProbabilityFaulty is the unrounded probability of a crack.
	ProbabilityFaulty float64 `json:"-"`
}

// Rule turns a sigmoid score into a Result.
type Rule struct {
	// Threshold: a crack is reported when P(Faulty) > Threshold.
	Threshold float64
	// ScoreClass is the label the sigmoid scores. The training pipeline
	// assigned indices alphabetically, so by default the score is P(Normal).
	ScoreClass string
}

// DefaultRule is the rule the HTTP service applies.
func DefaultRule() Rule {
	return Rule{Threshold: DefaultThreshold, ScoreClass: model.ClassNormal}
}

// Decide applies the rule to a score in [0, 1].
func (r Rule) Decide(score float64) Result {
	var pFaulty, pNormal float64
	if r.ScoreClass == model.ClassFaulty {
		pFaulty, pNormal = score, 1-score
	} else {
		pFaulty, pNormal = 1-score, score
	}

	hasCrack := pFaulty > r.Threshold

	confidence := pNormal
	class := model.ClassNormal
	verdict := "No crack detected"
	if hasCrack {
		confidence = pFaulty
		class = model.ClassFaulty
		verdict = "Crack detected"
	}
	percent := confidence * 100
	level := ConfidenceLevel(percent)

	return Result{
		HasCrack:          hasCrack,
		Confidence:        round(percent, 2),
		ConfidenceLevel:   level,
		Message:           fmt.Sprintf("%s with %.1f%% confidence (%s)", verdict, percent, level),
		Probability:       round(score, 4),
		Class:             class,
		Score:             score,
		ProbabilityFaulty: pFaulty,
	}
}

// ConfidenceLevel buckets a confidence percentage. The thresholds are fixed.
func ConfidenceLevel(percent float64) string {
	switch {
	case percent >= 90:
		return LevelVeryHigh
	case percent >= 75:
		return LevelHigh
	case percent >= 60:
		return LevelModerate
	default:
		return LevelLow
	}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
