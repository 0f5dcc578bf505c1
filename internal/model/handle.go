package model

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnavailable is returned by Handle.Score when the model did not load.
var ErrUnavailable = errors.New("model unavailable")

// State tags a Handle.
type State int

const (
	StateUnavailable State = iota
	StateLoaded
)

func (s State) String() string {
	if s == StateLoaded {
		return "loaded"
	}
	return "unavailable"
}

// Handle is the process-wide reference to a loaded model. It is built once,
// never mutated, and shared by every inference call.
type Handle struct {
	state   State
	cause   error
	variant string
	path    string
	meta    Metadata
	pool    *Pool
	objects map[string]CustomObject
}

// Unavailable returns a Handle in the unavailable state.
func Unavailable(cause error) *Handle {
	return &Handle{state: StateUnavailable, cause: cause}
}

// NewHandle wraps a ready pool in a loaded Handle.
func NewHandle(pool *Pool, meta Metadata, objects map[string]CustomObject, variant, path string) *Handle {
	return &Handle{
		state:   StateLoaded,
		variant: variant,
		path:    path,
		meta:    meta,
		pool:    pool,
		objects: objects,
	}
}

// State returns the handle state. A nil handle is unavailable.
func (h *Handle) State() State {
	if h == nil {
		return StateUnavailable
	}
	return h.state
}

// Loaded reports whether the model can serve inference.
func (h *Handle) Loaded() bool {
	return h.State() == StateLoaded
}

// Err is the reason the handle is unavailable, or nil.
func (h *Handle) Err() error {
	if h == nil {
		return ErrUnavailable
	}
	return h.cause
}

// Variant is the artifact variant the handle was loaded from.
func (h *Handle) Variant() string {
	if h == nil {
		return ""
	}
	return h.variant
}

// Path is the artifact path.
func (h *Handle) Path() string {
	if h == nil {
		return ""
	}
	return h.path
}

// Metadata describes the loaded artifact.
func (h *Handle) Metadata() Metadata {
	if h == nil || h.state != StateLoaded {
		return DefaultMetadata()
	}
	return h.meta
}

// CustomObject returns a custom object resolved at load time.
func (h *Handle) CustomObject(name string) (CustomObject, bool) {
	if h == nil {
		return nil, false
	}
	obj, ok := h.objects[name]
	return obj, ok
}

// Score runs one forward pass and returns the first output value.
func (h *Handle) Score(ctx context.Context, input []float32) (float64, error) {
	if !h.Loaded() {
		return 0, ErrUnavailable
	}
	if want := h.meta.InputSize(); len(input) != want {
		return 0, fmt.Errorf("input has %d values, model expects %d", len(input), want)
	}

	out, err := h.pool.Run(ctx, input)
	if err != nil {
		return 0, err
	}
	if len(out) == 0 {
		return 0, errors.New("model returned an empty output")
	}
	return float64(out[0]), nil
}

// Close releases the sessions. It is a no-op for unavailable handles.
func (h *Handle) Close() error {
	if h == nil || h.pool == nil {
		return nil
	}
	return h.pool.Close()
}
