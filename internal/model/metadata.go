package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
)

// ErrMetadataNotFound is returned by LoadMetadata when the sidecar is absent.
var ErrMetadataNotFound = errors.New("model metadata not found")

// LoadMetadata reads a sidecar and fills unset fields from DefaultMetadata.
func LoadMetadata(path string) (Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Metadata{}, fmt.Errorf("%w: %s", ErrMetadataNotFound, path)
		}
		return Metadata{}, fmt.Errorf("failed to read metadata: %w", err)
	}

	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return Metadata{}, fmt.Errorf("failed to parse metadata: %w", err)
	}

	defaults := DefaultMetadata()
	meta.confirmed = len(meta.Classes) > 0
	if meta.ImageSize == 0 {
		meta.ImageSize = defaults.ImageSize
	}
	if len(meta.InputShape) == 0 {
		meta.InputShape = []int64{1, int64(meta.ImageSize), int64(meta.ImageSize), DefaultChannels}
	}
	if len(meta.OutputShape) == 0 {
		meta.OutputShape = defaults.OutputShape
	}
	if len(meta.Classes) == 0 {
		meta.Classes = defaults.Classes
	}
	if meta.Preprocessing == "" {
		meta.Preprocessing = defaults.Preprocessing
	}
	return meta, nil
}

// Validate checks that the metadata describes a model the pipeline can feed:
// one NHWC RGB image, a single sigmoid output and two classes.
func (m Metadata) Validate() error {
	if m.Preprocessing != PreprocessInceptionResNetV2 {
		return fmt.Errorf("unsupported preprocessing %q", m.Preprocessing)
	}
	want := []int64{1, int64(m.ImageSize), int64(m.ImageSize), DefaultChannels}
	if !slices.Equal(m.InputShape, want) {
		return fmt.Errorf("unsupported input shape %v, want %v", m.InputShape, want)
	}
	out := int64(1)
	for _, d := range m.OutputShape {
		out *= d
	}
	if out != 1 {
		return fmt.Errorf("unsupported output shape %v, want a single score", m.OutputShape)
	}
	if len(m.Classes) != 2 {
		return fmt.Errorf("expected 2 classes, got %d", len(m.Classes))
	}
	return nil
}
