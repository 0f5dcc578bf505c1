package model

import (
	"fmt"
	"math"
)

// Serialized names of the custom objects the training pipeline uses.
const (
	ScaleLayerName = "CustomScaleLayer"
	FocalLossName  = "focal_loss_fixed"
)

// ScaleLayer is the residual scaling layer used inside the backbone blocks.
type ScaleLayer struct {
	Scale  float64
	Offset float64
}

// NewScaleLayer is the Factory for CustomScaleLayer. Defaults: scale 1, offset 0.
func NewScaleLayer(config map[string]any) (CustomObject, error) {
	scale, err := floatParam(config, "scale", 1.0)
	if err != nil {
		return nil, err
	}
	offset, err := floatParam(config, "offset", 0.0)
	if err != nil {
		return nil, err
	}
	return &ScaleLayer{Scale: scale, Offset: offset}, nil
}

// Name implements CustomObject.
func (l *ScaleLayer) Name() string { return ScaleLayerName }

// Apply is the single-input form: x*scale + offset.
func (l *ScaleLayer) Apply(x float64) float64 {
	return x*l.Scale + l.Offset
}

// Merge is the two-input residual form: a + b*scale.
func (l *ScaleLayer) Merge(a, b float64) float64 {
	return a + b*l.Scale
}

// FocalLoss is the binary focal loss the classifier was trained with.
type FocalLoss struct {
	Gamma float64
	Alpha float64
}

// focalEpsilon matches the backend epsilon used to clip predictions.
const focalEpsilon = 1e-7

// NewFocalLoss is the Factory for focal_loss_fixed. Defaults: gamma 2, alpha 0.25.
func NewFocalLoss(config map[string]any) (CustomObject, error) {
	gamma, err := floatParam(config, "gamma", 2.0)
	if err != nil {
		return nil, err
	}
	alpha, err := floatParam(config, "alpha", 0.25)
	if err != nil {
		return nil, err
	}
	if gamma < 0 || alpha < 0 || alpha > 1 {
		return nil, fmt.Errorf("invalid focal loss params gamma=%v alpha=%v", gamma, alpha)
	}
	return &FocalLoss{Gamma: gamma, Alpha: alpha}, nil
}

// Name implements CustomObject.
func (f *FocalLoss) Name() string { return FocalLossName }

// Loss is the focal loss of one prediction. yTrue is 0 or 1, yPred the
// sigmoid output for class 1.
func (f *FocalLoss) Loss(yTrue, yPred float64) float64 {
	p := math.Min(math.Max(yPred, focalEpsilon), 1-focalEpsilon)

	ce := -yTrue * math.Log(p)
	weight := f.Alpha * yTrue * math.Pow(1-p, f.Gamma)

	ceNeg := -(1 - yTrue) * math.Log(1-p)
	weightNeg := (1 - f.Alpha) * (1 - yTrue) * math.Pow(p, f.Gamma)

	return weight*ce + weightNeg*ceNeg
}

// Mean is the average loss over a batch. It returns 0 for an empty batch.
func (f *FocalLoss) Mean(yTrue, yPred []float64) float64 {
	n := min(len(yTrue), len(yPred))
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += f.Loss(yTrue[i], yPred[i])
	}
	return sum / float64(n)
}
