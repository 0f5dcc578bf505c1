package model

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
)

// ErrArtifactNotFound is the cause recorded when the artifact path is missing.
var ErrArtifactNotFound = errors.New("model artifact not found")

// Options configures Load.
type Options struct {
	ArtifactPath string
	MetadataPath string
	Variant      string
	PoolSize     int

	// Registry resolves the custom objects the artifact references.
	// Nil means DefaultRegistry.
	Registry *Registry

	// NewSession opens one runtime session. Nil means ONNX Runtime with the
	// default shared library lookup.
	NewSession SessionFactory
}

// Load opens an artifact. It never fails the process: every problem is
// logged and turned into an unavailable Handle. There are no retries.
func Load(opts Options) *Handle {
	h, err := load(opts)
	if err != nil {
		if errors.Is(err, ErrArtifactNotFound) {
			log.Warn().Str("path", opts.ArtifactPath).Msg("model artifact not found, serving without a model")
		} else {
			log.Error().Err(err).Str("path", opts.ArtifactPath).Msg("failed to load model")
		}
		return Unavailable(err)
	}

	log.Info().
		Str("path", opts.ArtifactPath).
		Str("variant", opts.Variant).
		Int("sessions", h.pool.Size()).
		Strs("classes", h.meta.Classes).
		Msg("model loaded")
	return h
}

func load(opts Options) (*Handle, error) {
	if _, err := os.Stat(opts.ArtifactPath); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrArtifactNotFound, opts.ArtifactPath)
		}
		return nil, fmt.Errorf("failed to stat artifact: %w", err)
	}

	meta, err := LoadMetadata(opts.MetadataPath)
	switch {
	case errors.Is(err, ErrMetadataNotFound):
		meta = DefaultMetadata()
		log.Warn().
			Str("path", opts.MetadataPath).
			Strs("classes", meta.Classes).
			Msg("no model metadata, assuming alphabetical class order; confirm it against the trained artifact")
	case err != nil:
		return nil, err
	}
	if err := meta.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model metadata: %w", err)
	}

	registry := opts.Registry
	if registry == nil {
		registry = DefaultRegistry()
	}
	// custom objects resolve before the runtime ever sees the artifact
	objects, err := registry.ResolveAll(meta.CustomObjects)
	if err != nil {
		return nil, err
	}

	factory := opts.NewSession
	if factory == nil {
		factory = NewORTFactory("")
	}
	size := opts.PoolSize
	if size <= 0 {
		size = 1
	}
	pool, err := NewPool(size, func() (Session, error) {
		return factory(opts.ArtifactPath, meta)
	})
	if err != nil {
		return nil, err
	}

	return NewHandle(pool, meta, objects, opts.Variant, opts.ArtifactPath), nil
}
