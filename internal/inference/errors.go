package inference

import (
	"errors"
	"fmt"
)

// Kind distinguishes why a classification failed.
type Kind int

const (
	KindUnknown Kind = iota
	// KindModelUnavailable: the handle never loaded. Permanent until restart.
	KindModelUnavailable
	// KindInvalidImage: the input could not be decoded. The caller's fault.
	KindInvalidImage
	// KindInferenceFailure: preprocessing or the forward pass failed.
	KindInferenceFailure
)

func (k Kind) String() string {
	switch k {
	case KindModelUnavailable:
		return "model_unavailable"
	case KindInvalidImage:
		return "invalid_image"
	case KindInferenceFailure:
		return "inference_failure"
	default:
		return "unknown"
	}
}

// Error is returned by every operation in this package.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// KindOf returns the Kind carried by err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
