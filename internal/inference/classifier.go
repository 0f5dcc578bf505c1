package inference

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"math"

	"github.com/Brownie44l1/railcrack-api/internal/model"
)

// ErrModelUnavailable is the cause attached to KindModelUnavailable errors.
var ErrModelUnavailable = errors.New("model not loaded")

// Scorer runs the forward pass. *model.Handle implements it.
type Scorer interface {
	Loaded() bool
	Metadata() model.Metadata
	Score(ctx context.Context, input []float32) (float64, error)
}

// Classifier is the inference pipeline: preprocess, forward pass, decision.
// It holds no mutable state and is safe for concurrent use.
type Classifier struct {
	scorer Scorer
	rule   Rule
	size   int
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithThreshold overrides the decision threshold.
func WithThreshold(threshold float64) Option {
	return func(c *Classifier) {
		c.rule.Threshold = threshold
	}
}

// NewClassifier builds a pipeline over s. The scored class is taken from the
// model metadata.
func NewClassifier(s Scorer, opts ...Option) *Classifier {
	meta := s.Metadata()
	c := &Classifier{
		scorer: s,
		rule:   Rule{Threshold: DefaultThreshold, ScoreClass: meta.ScoreClass()},
		size:   meta.ImageSize,
	}
	if c.size <= 0 {
		c.size = model.DefaultImageSize
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Rule returns the decision rule in use.
func (c *Classifier) Rule() Rule {
	return c.rule
}

// Ready reports whether the underlying model is loaded.
func (c *Classifier) Ready() bool {
	return c.scorer.Loaded()
}

// ClassifyReader decodes an image and classifies it.
func (c *Classifier) ClassifyReader(ctx context.Context, r io.Reader) (*Result, error) {
	img, _, err := Decode(r)
	if err != nil {
		return nil, err
	}
	return c.Classify(ctx, img)
}

// Classify runs the full pipeline on a decoded image. When the model is
// unavailable it fails immediately without touching the image.
func (c *Classifier) Classify(ctx context.Context, img image.Image) (res *Result, err error) {
	if !c.scorer.Loaded() {
		return nil, newError(KindModelUnavailable, ErrModelUnavailable)
	}

	defer func() {
		if r := recover(); r != nil {
			res, err = nil, newError(KindInferenceFailure, fmt.Errorf("panic during inference: %v", r))
		}
	}()

	t, err := Preprocess(img, c.size)
	if err != nil {
		return nil, newError(KindInferenceFailure, fmt.Errorf("preprocess: %w", err))
	}
	return c.ClassifyTensor(ctx, t)
}

// ClassifyTensor runs the forward pass and decision on a preprocessed tensor.
func (c *Classifier) ClassifyTensor(ctx context.Context, t *Tensor) (*Result, error) {
	if !c.scorer.Loaded() {
		return nil, newError(KindModelUnavailable, ErrModelUnavailable)
	}

	score, err := c.scorer.Score(ctx, t.Data)
	if err != nil {
		if errors.Is(err, model.ErrUnavailable) {
			return nil, newError(KindModelUnavailable, err)
		}
		return nil, newError(KindInferenceFailure, err)
	}
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return nil, newError(KindInferenceFailure, fmt.Errorf("model returned %v", score))
	}

	res := c.rule.Decide(score)
	return &res, nil
}
