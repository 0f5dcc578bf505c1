package model

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrUnknownCustomObject is returned when an artifact references a custom
	// layer or loss that nobody registered.
	ErrUnknownCustomObject = errors.New("unknown custom object")

	// ErrDuplicateCustomObject is returned by Register for a name already taken.
	ErrDuplicateCustomObject = errors.New("custom object already registered")
)

// CustomObject is a reconstructed custom layer or loss.
type CustomObject interface {
	Name() string
}

// Factory builds a CustomObject from its serialized config.
type Factory func(config map[string]any) (CustomObject, error)

// Registry maps serialized names to factories. It must be populated before
// Load is called; the loader resolves every name an artifact references
// through it.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry returns a registry holding the objects the training
// pipeline serializes: CustomScaleLayer and focal_loss_fixed.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.MustRegister(ScaleLayerName, NewScaleLayer)
	r.MustRegister(FocalLossName, NewFocalLoss)
	return r
}

// Register adds a factory under name.
func (r *Registry) Register(name string, f Factory) error {
	if name == "" || f == nil {
		return fmt.Errorf("register custom object: empty name or nil factory")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateCustomObject, name)
	}
	r.factories[name] = f
	return nil
}

// MustRegister is Register that panics, for static setup.
func (r *Registry) MustRegister(name string, f Factory) {
	if err := r.Register(name, f); err != nil {
		panic(err)
	}
}

// Resolve builds the object a spec refers to.
func (r *Registry) Resolve(spec CustomObjectSpec) (CustomObject, error) {
	r.mu.RLock()
	f, ok := r.factories[spec.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCustomObject, spec.Name)
	}
	obj, err := f(spec.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to build custom object %s: %w", spec.Name, err)
	}
	return obj, nil
}

// ResolveAll resolves every spec, stopping at the first failure.
func (r *Registry) ResolveAll(specs []CustomObjectSpec) (map[string]CustomObject, error) {
	objects := make(map[string]CustomObject, len(specs))
	for _, spec := range specs {
		obj, err := r.Resolve(spec)
		if err != nil {
			return nil, err
		}
		objects[spec.Name] = obj
	}
	return objects, nil
}

// Names lists registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// floatParam reads a numeric config value, falling back to def when absent.
func floatParam(config map[string]any, key string, def float64) (float64, error) {
	v, ok := config[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("config %q: expected a number, got %T", key, v)
	}
}
