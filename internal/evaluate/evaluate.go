package evaluate

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/rs/zerolog/log"

	"github.com/Brownie44l1/railcrack-api/internal/batch"
	"github.com/Brownie44l1/railcrack-api/internal/dataset"
	"github.com/Brownie44l1/railcrack-api/internal/inference"
	"github.com/Brownie44l1/railcrack-api/internal/model"
)

// Report is the outcome of an evaluation run.
type Report struct {
	Images    int
	Failed    int
	AtDefault Metrics
	Best      Metrics
	AUC       float64
	FocalLoss float64
	Curve     []Metrics
}

// LossSource exposes custom objects resolved at model load time.
type LossSource interface {
	CustomObject(name string) (model.CustomObject, bool)
}

// ResolveFocalLoss returns the focal loss the loaded artifact declared, or
// the default one from the registry.
func ResolveFocalLoss(src LossSource) (*model.FocalLoss, error) {
	if src != nil {
		if obj, ok := src.CustomObject(model.FocalLossName); ok {
			if fl, ok := obj.(*model.FocalLoss); ok {
				return fl, nil
			}
		}
	}
	obj, err := model.DefaultRegistry().Resolve(model.CustomObjectSpec{Name: model.FocalLossName})
	if err != nil {
		return nil, err
	}
	return obj.(*model.FocalLoss), nil
}

// Predict classifies every sample. Images that fail to classify are
// counted and left out.
func Predict(ctx context.Context, c *inference.Classifier, samples []dataset.Sample, concurrency int) ([]Prediction, int, error) {
	paths := make([]string, len(samples))
	for i, s := range samples {
		paths[i] = s.Path
	}

	items, err := batch.Run(ctx, c, paths, concurrency)
	if err != nil {
		return nil, 0, err
	}

	preds := make([]Prediction, 0, len(items))
	failed := 0
	for i, it := range items {
		if it.Result == nil {
			failed++
			continue
		}
		preds = append(preds, Prediction{
			Path:    it.Path,
			Label:   samples[i].Class,
			Score:   it.Result.Score,
			PFaulty: it.Result.ProbabilityFaulty,
		})
	}
	return preds, failed, nil
}

// Evaluate computes the report for preds.
func Evaluate(preds []Prediction, failed int, loss *model.FocalLoss, scoreClass string) *Report {
	best, curve := Sweep(preds)
	r := &Report{
		Images:    len(preds) + failed,
		Failed:    failed,
		AtDefault: Compute(preds, inference.DefaultThreshold),
		Best:      best,
		AUC:       AUC(preds),
		FocalLoss: FocalLoss(loss, preds, scoreClass),
		Curve:     curve,
	}

	log.Info().
		Int("images", r.Images).
		Float64("accuracy", r.AtDefault.Accuracy).
		Float64("f1", r.AtDefault.F1).
		Float64("best_threshold", r.Best.Threshold).
		Float64("best_f1", r.Best.F1).
		Msg("evaluation complete")
	return r
}

// WriteText prints the report for the console.
func (r *Report) WriteText(w io.Writer) {
	fmt.Fprintf(w, "Images: %d (failed: %d)\n\n", r.Images, r.Failed)
	writeMetrics(w, "Threshold 0.50", r.AtDefault)
	writeMetrics(w, fmt.Sprintf("Optimal threshold %.2f", r.Best.Threshold), r.Best)
	fmt.Fprintf(w, "AUC:        %.4f\n", r.AUC)
	fmt.Fprintf(w, "Focal loss: %.4f\n", r.FocalLoss)
}

func writeMetrics(w io.Writer, title string, m Metrics) {
	fmt.Fprintln(w, title)
	fmt.Fprintf(w, "  Accuracy:  %.4f\n", m.Accuracy)
	fmt.Fprintf(w, "  Precision: %.4f\n", m.Precision)
	fmt.Fprintf(w, "  Recall:    %.4f\n", m.Recall)
	fmt.Fprintf(w, "  F1-Score:  %.4f\n", m.F1)
	c := m.Confusion
	fmt.Fprintf(w, "  Confusion: TP=%d FP=%d TN=%d FN=%d\n\n", c.TP, c.FP, c.TN, c.FN)
}

// WriteMarkdown renders the report as Markdown.
func (r *Report) WriteMarkdown(w io.Writer) error {
	md := markdown.NewMarkdown(w)

	md.H1("Crack Model Evaluation")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Threshold 0.50", fmt.Sprintf("Threshold %.2f", r.Best.Threshold)},
		Rows: [][]string{
			{"Accuracy", f4(r.AtDefault.Accuracy), f4(r.Best.Accuracy)},
			{"Precision", f4(r.AtDefault.Precision), f4(r.Best.Precision)},
			{"Recall", f4(r.AtDefault.Recall), f4(r.Best.Recall)},
			{"F1", f4(r.AtDefault.F1), f4(r.Best.F1)},
		},
	})
	md.PlainText("")

	md.H2("Confusion matrix")
	md.PlainText("")
	c := r.AtDefault.Confusion
	md.Table(markdown.TableSet{
		Header: []string{"", "Predicted Faulty", "Predicted Normal"},
		Rows: [][]string{
			{"Actual Faulty", strconv.Itoa(c.TP), strconv.Itoa(c.FN)},
			{"Actual Normal", strconv.Itoa(c.FP), strconv.Itoa(c.TN)},
		},
	})
	md.PlainText("")

	md.BulletList(
		"Images: "+strconv.Itoa(r.Images),
		"Failed: "+strconv.Itoa(r.Failed),
		"AUC: "+f4(r.AUC),
		"Focal loss: "+f4(r.FocalLoss),
	)
	if r.Failed > 0 {
		md.PlainText("")
		md.Warningf("%d images could not be classified.", r.Failed)
	}
	return md.Build()
}

func f4(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
