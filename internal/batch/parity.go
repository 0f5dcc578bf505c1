package batch

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"os"

	"github.com/Brownie44l1/railcrack-api/internal/inference"
)

// DefaultParityTolerance is the largest accepted score deviation between
// the full and quantized artifacts.
const DefaultParityTolerance = 0.05

// ErrParityExceeded is returned by ParityReport.Check when a deviation is
// above the tolerance.
var ErrParityExceeded = errors.New("variant scores diverge beyond tolerance")

// ParitySample compares both variants on one image.
type ParitySample struct {
	Image     string
	Reference float64
	Candidate float64
}

// Deviation is the absolute score difference.
func (p ParitySample) Deviation() float64 {
	return math.Abs(p.Reference - p.Candidate)
}

// ParityReport aggregates the comparison.
type ParityReport struct {
	Samples       []ParitySample
	MaxDeviation  float64
	MeanDeviation float64
	// Disagreements counts images the two variants classify differently.
	Disagreements int
}

// Check fails when MaxDeviation exceeds tolerance.
func (r *ParityReport) Check(tolerance float64) error {
	if r.MaxDeviation > tolerance {
		return fmt.Errorf("%w: max %.4f > %.4f", ErrParityExceeded, r.MaxDeviation, tolerance)
	}
	return nil
}

// Parity decodes each image once and classifies it with both pipelines.
func Parity(ctx context.Context, reference, candidate *inference.Classifier, paths []string) (*ParityReport, error) {
	report := &ParityReport{}
	for _, path := range paths {
		img, err := decodeFile(path)
		if err != nil {
			return nil, err
		}

		ref, err := reference.Classify(ctx, img)
		if err != nil {
			return nil, fmt.Errorf("reference: %s: %w", path, err)
		}
		cand, err := candidate.Classify(ctx, img)
		if err != nil {
			return nil, fmt.Errorf("candidate: %s: %w", path, err)
		}

		s := ParitySample{Image: path, Reference: ref.Score, Candidate: cand.Score}
		report.Samples = append(report.Samples, s)
		report.MaxDeviation = max(report.MaxDeviation, s.Deviation())
		report.MeanDeviation += s.Deviation()
		if ref.HasCrack != cand.HasCrack {
			report.Disagreements++
		}
	}
	if n := len(report.Samples); n > 0 {
		report.MeanDeviation /= float64(n)
	}
	return report, nil
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := inference.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}
