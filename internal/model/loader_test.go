package model_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/railcrack-api/internal/model"
	"github.com/Brownie44l1/railcrack-api/internal/model/modeltest"
)

func writeArtifact(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "best_model.onnx")
	require.NoError(t, os.WriteFile(path, []byte("onnx"), 0o600))
	return path
}

func writeMetadata(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "model_metadata.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadMissingArtifact(t *testing.T) {
	t.Parallel()

	factory := modeltest.NewFactory(modeltest.Constant(0.5))
	h := model.Load(model.Options{
		ArtifactPath: filepath.Join(t.TempDir(), "missing.onnx"),
		NewSession:   factory.Open,
	})

	assert.False(t, h.Loaded())
	assert.Equal(t, model.StateUnavailable, h.State())
	assert.ErrorIs(t, h.Err(), model.ErrArtifactNotFound)
	assert.Empty(t, factory.Opened, "no session should be opened for a missing artifact")

	_, err := h.Score(context.Background(), make([]float32, 10))
	assert.ErrorIs(t, err, model.ErrUnavailable)
}

func TestLoadWithoutMetadataUsesDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	artifact := writeArtifact(t, dir)
	session := modeltest.Constant(0.25)
	factory := modeltest.NewFactory(session)

	h := model.Load(model.Options{
		ArtifactPath: artifact,
		MetadataPath: filepath.Join(dir, "missing.json"),
		Variant:      "full",
		NewSession:   factory.Open,
	})
	require.True(t, h.Loaded(), "load failed: %v", h.Err())
	t.Cleanup(func() { _ = h.Close() })

	meta := h.Metadata()
	assert.False(t, meta.ClassesConfirmed())
	assert.Equal(t, model.ClassNormal, meta.ScoreClass())
	assert.Equal(t, []string{artifact}, factory.Opened)
	assert.Equal(t, "full", h.Variant())
	assert.Equal(t, artifact, h.Path())

	score, err := h.Score(context.Background(), make([]float32, meta.InputSize()))
	require.NoError(t, err)
	assert.InDelta(t, 0.25, score, 1e-9)
}

func TestLoadResolvesCustomObjectsBeforeOpening(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	artifact := writeArtifact(t, dir)
	meta := writeMetadata(t, dir, `{
		"classes": ["Faulty", "Normal"],
		"image_size": 300,
		"custom_objects": [
			{"name": "CustomScaleLayer", "config": {"scale": 0.17}},
			{"name": "focal_loss_fixed", "config": {"gamma": 2.0, "alpha": 0.25}}
		]
	}`)

	factory := modeltest.NewFactory(modeltest.Constant(0.9))
	h := model.Load(model.Options{
		ArtifactPath: artifact,
		MetadataPath: meta,
		NewSession:   factory.Open,
	})
	require.True(t, h.Loaded(), "load failed: %v", h.Err())
	t.Cleanup(func() { _ = h.Close() })

	assert.True(t, h.Metadata().ClassesConfirmed())

	obj, ok := h.CustomObject(model.ScaleLayerName)
	require.True(t, ok)
	assert.InDelta(t, 0.17, obj.(*model.ScaleLayer).Scale, 1e-9)

	obj, ok = h.CustomObject(model.FocalLossName)
	require.True(t, ok)
	assert.Equal(t, 2.0, obj.(*model.FocalLoss).Gamma)
}

func TestLoadUnregisteredCustomObject(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	artifact := writeArtifact(t, dir)
	meta := writeMetadata(t, dir, `{"custom_objects": [{"name": "CustomScaleLayer"}]}`)

	factory := modeltest.NewFactory(modeltest.Constant(0.5))
	h := model.Load(model.Options{
		ArtifactPath: artifact,
		MetadataPath: meta,
		Registry:     model.NewRegistry(),
		NewSession:   factory.Open,
	})

	assert.False(t, h.Loaded())
	assert.ErrorIs(t, h.Err(), model.ErrUnknownCustomObject)
	assert.Empty(t, factory.Opened)
}

func TestLoadInvalidMetadata(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"corrupt json":    `{"classes": [`,
		"nchw input":      `{"input_shape": [1, 3, 300, 300]}`,
		"softmax output":  `{"output_shape": [1, 2]}`,
		"three classes":   `{"classes": ["a", "b", "c"]}`,
		"unknown preproc": `{"preprocessing": "caffe"}`,
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			h := model.Load(model.Options{
				ArtifactPath: writeArtifact(t, dir),
				MetadataPath: writeMetadata(t, dir, content),
				NewSession:   modeltest.NewFactory(modeltest.Constant(0.5)).Open,
			})
			assert.False(t, h.Loaded())
			assert.Error(t, h.Err())
		})
	}
}

func TestLoadSessionFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	opened := modeltest.Constant(0.5)
	calls := 0
	h := model.Load(model.Options{
		ArtifactPath: writeArtifact(t, dir),
		PoolSize:     2,
		NewSession: func(string, model.Metadata) (model.Session, error) {
			calls++
			if calls == 2 {
				return nil, errors.New("corrupt artifact")
			}
			return opened, nil
		},
	})

	assert.False(t, h.Loaded())
	assert.ErrorContains(t, h.Err(), "corrupt artifact")
	assert.True(t, opened.Closed(), "sessions opened before the failure must be closed")
}

func TestNilHandleIsUnavailable(t *testing.T) {
	t.Parallel()

	var h *model.Handle
	assert.False(t, h.Loaded())
	assert.ErrorIs(t, h.Err(), model.ErrUnavailable)
	assert.NoError(t, h.Close())
	assert.Equal(t, "unavailable", h.State().String())
}
