package transform

import (
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.TransformRegistry = (*Registry)(nil)

// Registry maps transform kinds to their implementations.
type Registry struct {
	transforms map[domain.TransformKind]ports.Transform
}

// NewRegistry returns a registry holding every built-in transform.
func NewRegistry(executor ports.Executor, resolver ports.InputResolver) *Registry {
	m := newMinifier()
	return &Registry{transforms: map[domain.TransformKind]ports.Transform{
		domain.TransformClean:   &Clean{},
		domain.TransformCopy:    &Copy{},
		domain.TransformStyle:   &Style{executor: executor},
		domain.TransformMarkup:  &Markup{resolver: resolver, minifier: m},
		domain.TransformScript:  &Script{},
		domain.TransformImage:   &Image{executor: executor},
		domain.TransformSVG:     &SVG{minifier: m},
		domain.TransformSprite:  &Sprite{minifier: m},
		domain.TransformCommand: &Command{executor: executor},
	}}
}

// Register adds or replaces the transform for kind.
func (r *Registry) Register(kind domain.TransformKind, t ports.Transform) {
	r.transforms[kind] = t
}

// Lookup returns the transform for kind.
func (r *Registry) Lookup(kind domain.TransformKind) (ports.Transform, error) {
	t, ok := r.transforms[kind]
	if !ok {
		return nil, zerr.With(domain.ErrUnknownTransform, "transform", string(kind))
	}
	return t, nil
}
