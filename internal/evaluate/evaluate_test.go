package evaluate

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/railcrack-api/internal/dataset"
	"github.com/Brownie44l1/railcrack-api/internal/inference"
	"github.com/Brownie44l1/railcrack-api/internal/model"
	"github.com/Brownie44l1/railcrack-api/internal/model/modeltest"
)

func mixed() []Prediction {
	return []Prediction{
		{Label: model.ClassFaulty, PFaulty: 0.9, Score: 0.1},
		{Label: model.ClassFaulty, PFaulty: 0.4, Score: 0.6},
		{Label: model.ClassNormal, PFaulty: 0.2, Score: 0.8},
		{Label: model.ClassNormal, PFaulty: 0.6, Score: 0.4},
	}
}

func TestCompute(t *testing.T) {
	t.Parallel()

	m := Compute(mixed(), 0.5)
	assert.Equal(t, Confusion{TP: 1, FP: 1, TN: 1, FN: 1}, m.Confusion)
	assert.Equal(t, 0.5, m.Accuracy)
	assert.Equal(t, 0.5, m.Precision)
	assert.Equal(t, 0.5, m.Recall)
	assert.Equal(t, 0.5, m.F1)

	empty := Compute(nil, 0.5)
	assert.Zero(t, empty.F1)
	assert.Zero(t, empty.Accuracy)
}

func TestSweepPicksBestF1(t *testing.T) {
	t.Parallel()

	best, curve := Sweep(mixed())
	assert.Len(t, curve, 91)
	assert.InDelta(t, 0.05, curve[0].Threshold, 1e-12)
	assert.InDelta(t, 0.95, curve[len(curve)-1].Threshold, 1e-12)

	assert.InDelta(t, 0.20, best.Threshold, 1e-12)
	assert.InDelta(t, 0.8, best.F1, 1e-12)
	assert.Equal(t, Confusion{TP: 2, FP: 1, TN: 1}, best.Confusion)
}

func TestAUC(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0.75, AUC(mixed()), 1e-12)

	ties := []Prediction{
		{Label: model.ClassFaulty, PFaulty: 0.5},
		{Label: model.ClassNormal, PFaulty: 0.5},
	}
	assert.InDelta(t, 0.5, AUC(ties), 1e-12)

	assert.Zero(t, AUC([]Prediction{{Label: model.ClassFaulty, PFaulty: 0.7}}))
}

func TestFocalLoss(t *testing.T) {
	t.Parallel()

	loss, err := ResolveFocalLoss(nil)
	require.NoError(t, err)
	assert.Equal(t, 2.0, loss.Gamma)
	assert.Equal(t, 0.25, loss.Alpha)

	perfect := []Prediction{
		{Label: model.ClassNormal, Score: 1},
		{Label: model.ClassFaulty, Score: 0},
	}
	assert.InDelta(t, 0, FocalLoss(loss, perfect, model.ClassNormal), 1e-6)

	wrong := []Prediction{{Label: model.ClassNormal, Score: 0.1}}
	assert.Greater(t, FocalLoss(loss, wrong, model.ClassNormal), FocalLoss(loss, perfect, model.ClassNormal))
}

func TestResolveFocalLossFromHandle(t *testing.T) {
	t.Parallel()

	h := modeltest.Handle(modeltest.Constant(0.5))
	t.Cleanup(func() { _ = h.Close() })

	loss, err := ResolveFocalLoss(h)
	require.NoError(t, err)
	assert.Equal(t, model.FocalLossName, loss.Name())
}

func TestThresholdFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "threshold.yaml")
	r := Evaluate(mixed(), 0, &model.FocalLoss{Gamma: 2, Alpha: 0.25}, model.ClassNormal)
	require.NoError(t, WriteThresholdFile(path, NewThresholdFile(r, "quantized")))

	tf, err := ReadThresholdFile(path)
	require.NoError(t, err)
	assert.InDelta(t, 0.2, tf.Threshold, 1e-12)
	assert.Equal(t, "quantized", tf.Variant)
	assert.Equal(t, 4, tf.Images)

	require.NoError(t, os.WriteFile(path, []byte("threshold: 1.5\n"), 0o600))
	_, err = ReadThresholdFile(path)
	assert.ErrorIs(t, err, ErrInvalidThreshold)
}

func writeGray(t *testing.T, dir, name string, y uint8) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o750))
	img := image.NewGray(image.Rect(0, 0, 16, 16))
	for i := range img.Pix {
		img.Pix[i] = y
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0o600))
}

func TestPredictAndEvaluate(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeGray(t, filepath.Join(dir, model.ClassFaulty), "dark.png", 10)
	writeGray(t, filepath.Join(dir, model.ClassFaulty), "darker.png", 0)
	writeGray(t, filepath.Join(dir, model.ClassNormal), "bright.png", 250)
	require.NoError(t, os.WriteFile(filepath.Join(dir, model.ClassNormal, "bad.png"), []byte("x"), 0o600))

	samples, err := dataset.ListLabeled(dir)
	require.NoError(t, err)

	h := modeltest.Handle(modeltest.Mean())
	t.Cleanup(func() { _ = h.Close() })
	c := inference.NewClassifier(h)

	preds, failed, err := Predict(context.Background(), c, samples, 2)
	require.NoError(t, err)
	assert.Len(t, preds, 3)
	assert.Equal(t, 1, failed)

	loss, err := ResolveFocalLoss(h)
	require.NoError(t, err)
	r := Evaluate(preds, failed, loss, c.Rule().ScoreClass)
	assert.Equal(t, 4, r.Images)
	assert.Equal(t, 1.0, r.AtDefault.Accuracy)
	assert.Equal(t, 1.0, r.AUC)

	var text, md bytes.Buffer
	r.WriteText(&text)
	assert.Contains(t, text.String(), "Accuracy:  1.0000")
	require.NoError(t, r.WriteMarkdown(&md))
	assert.Contains(t, md.String(), "# Crack Model Evaluation")
	assert.Contains(t, md.String(), "[!WARNING]")
}
