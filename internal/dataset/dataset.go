// Package dataset lists labeled track images and splits a raw capture
// directory into train, validation and test sets.
package dataset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/Brownie44l1/railcrack-api/internal/model"
)

// ErrNoImages is returned when a directory holds no supported images.
var ErrNoImages = errors.New("no images found")

// Extensions are the accepted image file extensions, matched case-insensitively.
var Extensions = []string{".jpg", ".jpeg", ".png", ".gif", ".bmp"}

// Split names.
const (
	SplitTrain      = "train"
	SplitValidation = "validation"
	SplitTest       = "test"
)

// Splits lists the split directories in order.
var Splits = []string{SplitTrain, SplitValidation, SplitTest}

// Sample is one labeled image.
type Sample struct {
	Path  string
	Class string
}

// IsImage reports whether name has a supported image extension.
func IsImage(name string) bool {
	return slices.Contains(Extensions, strings.ToLower(filepath.Ext(name)))
}

// ListImages returns the image files directly under dir, sorted by name.
func ListImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !IsImage(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoImages, dir)
	}
	return paths, nil
}

// ListLabeled returns the images under dir/Faulty and dir/Normal.
func ListLabeled(dir string) ([]Sample, error) {
	var samples []Sample
	for _, class := range []string{model.ClassFaulty, model.ClassNormal} {
		paths, err := ListImages(filepath.Join(dir, class))
		if errors.Is(err, ErrNoImages) {
			continue
		}
		if err != nil {
			return nil, err
		}
		for _, p := range paths {
			samples = append(samples, Sample{Path: p, Class: class})
		}
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w in %s/{%s,%s}", ErrNoImages, dir, model.ClassFaulty, model.ClassNormal)
	}
	return samples, nil
}

// ClassFromName labels a raw capture by its file name: names containing
// "cracked" are Faulty, names containing "normal" are Normal. "cracked" wins
// when a name has both. Anything else is unlabeled.
func ClassFromName(name string) (string, bool) {
	lower := strings.ToLower(filepath.Base(name))
	switch {
	case strings.Contains(lower, "cracked"):
		return model.ClassFaulty, true
	case strings.Contains(lower, "normal"):
		return model.ClassNormal, true
	default:
		return "", false
	}
}
