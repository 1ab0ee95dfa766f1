package scene

import (
	"slices"

	"github.com/Carmen-Shannon/oxy-triangle/engine/triangle"
)

// SceneBuilderOption configures a scene in NewScene.
type SceneBuilderOption func(s *scene)

// WithActive sets whether the engine draws the scene. Scenes start active.
func WithActive(active bool) SceneBuilderOption {
	return func(s *scene) { s.active.Store(active) }
}

// WithVertices draws vertices instead of the default triangle.
//
// Parameters:
//   - vertices: a whole number of triangles
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithVertices(vertices ...triangle.GPUVertex) SceneBuilderOption {
	return func(s *scene) { s.vertices = slices.Clone(vertices) }
}

// WithBrightness sets the starting brightness uniform, 1 by default.
func WithBrightness(b float32) SceneBuilderOption {
	return func(s *scene) { s.uniforms.Brightness = b }
}

// WithAnimated has Update drive the brightness with triangle.AnimatedBrightness, starting
// from its value at zero.
func WithAnimated(animated bool) SceneBuilderOption {
	return func(s *scene) {
		s.animated = animated
		if animated {
			s.uniforms.Brightness = triangle.AnimatedBrightness(0)
		}
	}
}
