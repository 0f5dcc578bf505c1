package evaluate

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidThreshold is returned for thresholds outside (0, 1).
var ErrInvalidThreshold = errors.New("threshold must be in (0, 1)")

// ThresholdFile is the persisted outcome of a threshold sweep.
type ThresholdFile struct {
	Threshold   float64   `yaml:"threshold"`
	F1          float64   `yaml:"f1"`
	Precision   float64   `yaml:"precision"`
	Recall      float64   `yaml:"recall"`
	Variant     string    `yaml:"variant,omitempty"`
	Images      int       `yaml:"images"`
	GeneratedAt time.Time `yaml:"generated_at"`
}

// NewThresholdFile records the best point of r.
func NewThresholdFile(r *Report, variant string) ThresholdFile {
	return ThresholdFile{
		Threshold:   r.Best.Threshold,
		F1:          r.Best.F1,
		Precision:   r.Best.Precision,
		Recall:      r.Best.Recall,
		Variant:     variant,
		Images:      r.Images,
		GeneratedAt: time.Now().UTC().Truncate(time.Second),
	}
}

// WriteThresholdFile writes tf as YAML.
func WriteThresholdFile(path string, tf ThresholdFile) error {
	data, err := yaml.Marshal(tf)
	if err != nil {
		return fmt.Errorf("failed to encode threshold: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write threshold file: %w", err)
	}
	return nil
}

// ReadThresholdFile loads and validates a threshold file.
func ReadThresholdFile(path string) (ThresholdFile, error) {
	var tf ThresholdFile
	data, err := os.ReadFile(path)
	if err != nil {
		return tf, fmt.Errorf("failed to read threshold file: %w", err)
	}
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return tf, fmt.Errorf("failed to parse threshold file: %w", err)
	}
	if tf.Threshold <= 0 || tf.Threshold >= 1 {
		return tf, fmt.Errorf("%w: %v", ErrInvalidThreshold, tf.Threshold)
	}
	return tf, nil
}
