// Package inference is the crack classification pipeline: decode, resize to
// 300x300, InceptionResNetV2 preprocessing, one forward pass and the
// threshold decision that produces a Result.
//
// Failures carry a Kind (model unavailable, invalid image, inference
// failure) so callers can branch with errors.As instead of matching text.
package inference
