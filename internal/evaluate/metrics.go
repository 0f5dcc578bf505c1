// Package evaluate measures a model on a labeled directory and picks the
// decision threshold that maximizes F1 on the Faulty class.
package evaluate

import (
	"cmp"
	"slices"

	"github.com/Brownie44l1/railcrack-api/internal/model"
)

// Prediction pairs a labeled image with its unrounded model output.
type Prediction struct {
	Path  string
	Label string
	// Score is the raw sigmoid output.
	Score float64
	// PFaulty is the probability of a crack derived from Score.
	PFaulty float64
}

// Confusion counts outcomes with Faulty as the positive class.
type Confusion struct {
	TP int `yaml:"tp" json:"tp"`
	FP int `yaml:"fp" json:"fp"`
	TN int `yaml:"tn" json:"tn"`
	FN int `yaml:"fn" json:"fn"`
}

// Total is the number of counted predictions.
func (c Confusion) Total() int {
	return c.TP + c.FP + c.TN + c.FN
}

// Metrics summarizes predictions at one threshold.
type Metrics struct {
	Threshold float64   `yaml:"threshold" json:"threshold"`
	Confusion Confusion `yaml:"confusion" json:"confusion"`
	Accuracy  float64   `yaml:"accuracy" json:"accuracy"`
	Precision float64   `yaml:"precision" json:"precision"`
	Recall    float64   `yaml:"recall" json:"recall"`
	F1        float64   `yaml:"f1" json:"f1"`
}

// Compute scores preds at threshold: a prediction is positive when
// PFaulty > threshold. Undefined ratios are 0.
func Compute(preds []Prediction, threshold float64) Metrics {
	var c Confusion
	for _, p := range preds {
		positive := p.PFaulty > threshold
		actual := p.Label == model.ClassFaulty
		switch {
		case positive && actual:
			c.TP++
		case positive && !actual:
			c.FP++
		case !positive && actual:
			c.FN++
		default:
			c.TN++
		}
	}

	m := Metrics{Threshold: threshold, Confusion: c}
	if n := c.Total(); n > 0 {
		m.Accuracy = float64(c.TP+c.TN) / float64(n)
	}
	if d := c.TP + c.FP; d > 0 {
		m.Precision = float64(c.TP) / float64(d)
	}
	if d := c.TP + c.FN; d > 0 {
		m.Recall = float64(c.TP) / float64(d)
	}
	if d := m.Precision + m.Recall; d > 0 {
		m.F1 = 2 * m.Precision * m.Recall / d
	}
	return m
}

// SweepStart and SweepEnd bound the threshold sweep, in hundredths.
const (
	SweepStart = 5
	SweepEnd   = 95
)

// Sweep evaluates every threshold from 0.05 to 0.95 in steps of 0.01 and
// returns the curve plus the point with the highest F1. Ties keep the
// lowest threshold.
func Sweep(preds []Prediction) (best Metrics, curve []Metrics) {
	curve = make([]Metrics, 0, SweepEnd-SweepStart+1)
	for i := SweepStart; i <= SweepEnd; i++ {
		m := Compute(preds, float64(i)/100)
		curve = append(curve, m)
		if len(curve) == 1 || m.F1 > best.F1 {
			best = m
		}
	}
	return best, curve
}

// AUC is the area under the ROC curve for PFaulty with Faulty positive,
// computed from ranks with ties averaged. It is 0 when either class is
// missing.
func AUC(preds []Prediction) float64 {
	sorted := slices.Clone(preds)
	slices.SortFunc(sorted, func(a, b Prediction) int {
		return cmp.Compare(a.PFaulty, b.PFaulty)
	})

	var pos, neg int
	var rankSum float64
	for i := 0; i < len(sorted); {
		j := i
		for j < len(sorted) && sorted[j].PFaulty == sorted[i].PFaulty {
			j++
		}
		// ranks i+1..j share their average
		avg := float64(i+1+j) / 2
		for k := i; k < j; k++ {
			if sorted[k].Label == model.ClassFaulty {
				rankSum += avg
				pos++
			} else {
				neg++
			}
		}
		i = j
	}
	if pos == 0 || neg == 0 {
		return 0
	}
	return (rankSum - float64(pos*(pos+1))/2) / float64(pos*neg)
}

// FocalLoss is the mean focal loss of preds against their labels. The loss
// is taken on the raw sigmoid output, whose class 1 is scoreClass.
func FocalLoss(loss *model.FocalLoss, preds []Prediction, scoreClass string) float64 {
	yTrue := make([]float64, len(preds))
	yPred := make([]float64, len(preds))
	for i, p := range preds {
		if p.Label == scoreClass {
			yTrue[i] = 1
		}
		yPred[i] = p.Score
	}
	return loss.Mean(yTrue, yPred)
}
