package inference

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Brownie44l1/railcrack-api/internal/model"
)

func TestConfidenceLevelBoundaries(t *testing.T) {
	t.Parallel()

	tests := []struct {
		percent float64
		want    string
	}{
		{100, LevelVeryHigh},
		{90.00, LevelVeryHigh},
		{89.99, LevelHigh},
		{75.00, LevelHigh},
		{74.99, LevelModerate},
		{60.00, LevelModerate},
		{59.99, LevelLow},
		{50, LevelLow},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ConfidenceLevel(tt.percent), "percent %v", tt.percent)
	}
}

func TestDecideCrack(t *testing.T) {
	t.Parallel()

	res := DefaultRule().Decide(0.1)

	assert.True(t, res.HasCrack)
	assert.Equal(t, model.ClassFaulty, res.Class)
	assert.InDelta(t, 0.9, res.ProbabilityFaulty, 1e-12)
	assert.Equal(t, 90.0, res.Confidence)
	assert.Equal(t, LevelVeryHigh, res.ConfidenceLevel)
	assert.Equal(t, 0.1, res.Probability)
	assert.Equal(t, "Crack detected with 90.0% confidence (Very High)", res.Message)
}

func TestDecideHalfFavorsNormal(t *testing.T) {
	t.Parallel()

	res := DefaultRule().Decide(0.5)

	assert.False(t, res.HasCrack)
	assert.Equal(t, model.ClassNormal, res.Class)
	assert.Equal(t, 50.0, res.Confidence)
	assert.Equal(t, LevelLow, res.ConfidenceLevel)
	assert.Equal(t, "No crack detected with 50.0% confidence (Low)", res.Message)
}

func TestDecideNormal(t *testing.T) {
	t.Parallel()

	res := DefaultRule().Decide(0.8)

	assert.False(t, res.HasCrack)
	assert.Equal(t, 80.0, res.Confidence)
	assert.Equal(t, LevelHigh, res.ConfidenceLevel)
	assert.Equal(t, "No crack detected with 80.0% confidence (High)", res.Message)
}

func TestDecideConfidenceAlwaysAtLeastHalf(t *testing.T) {
	t.Parallel()

	rule := DefaultRule()
	for i := 0; i <= 1000; i++ {
		score := float64(i) / 1000
		res := rule.Decide(score)
		assert.GreaterOrEqual(t, res.Confidence, 50.0, "score %v", score)
		assert.LessOrEqual(t, res.Confidence, 100.0, "score %v", score)
	}
}

func TestDecideHasCrackIffFaultyAboveThreshold(t *testing.T) {
	t.Parallel()

	for _, threshold := range []float64{0.3, 0.5, 0.7} {
		rule := Rule{Threshold: threshold, ScoreClass: model.ClassNormal}
		for i := 0; i <= 100; i++ {
			score := float64(i) / 100
			res := rule.Decide(score)
			assert.Equal(t, (1-score) > threshold, res.HasCrack, "score %v threshold %v", score, threshold)
		}
	}
}

func TestDecideRoundsForOutput(t *testing.T) {
	t.Parallel()

	res := DefaultRule().Decide(0.123456)

	assert.Equal(t, 0.1235, res.Probability)
	assert.Equal(t, 0.123456, res.Score)
	assert.Equal(t, 87.65, res.Confidence)
	assert.Equal(t, "Crack detected with 87.7% confidence (High)", res.Message)
}

func TestDecideWhenScoreIsFaulty(t *testing.T) {
	t.Parallel()

	rule := Rule{Threshold: DefaultThreshold, ScoreClass: model.ClassFaulty}
	res := rule.Decide(0.8)

	assert.True(t, res.HasCrack)
	assert.Equal(t, 80.0, res.Confidence)
	assert.Equal(t, 0.8, res.Probability)
}
