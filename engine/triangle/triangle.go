// Package triangle defines the data shared between the host and the shader stages of the
// triangle pipeline: the per-vertex record, the per-draw fragment uniforms, their canonical
// WGSL declarations and the shaders that consume them.
package triangle

import (
	_ "embed"
	"math"

	"github.com/cogentcore/webgpu/wgpu"
)

// VertexShaderSource is the WGSL vertex stage of the triangle pipeline. It pulls in VertexInput
// through the //@oxy:include vertex annotation.
//
//go:embed assets/shaders/triangle-vert.wgsl
var VertexShaderSource string

// FragmentShaderSource is the WGSL fragment stage of the triangle pipeline. FragmentUniforms is
// declared at @group(0) @binding(0).
//
//go:embed assets/shaders/triangle-frag.wgsl
var FragmentShaderSource string

const (
	// UniformGroup is the bind group index of FragmentUniforms in FragmentShaderSource.
	UniformGroup = 0
	// UniformBinding is the binding index of FragmentUniforms in FragmentShaderSource.
	UniformBinding = 0
	// VerticesPerTriangle is the number of vertices consumed by one triangle-list primitive.
	VerticesPerTriangle = 3
)

var (
	Red   = [4]float32{1, 0, 0, 1}
	Green = [4]float32{0, 1, 0, 1}
	Blue  = [4]float32{0, 0, 1, 1}
)

// DefaultVertices returns the demo triangle: red at the top, green bottom-left, blue bottom-right.
// The order is counter-clockwise in NDC.
//
// Returns:
//   - []GPUVertex: a fresh three-vertex slice the caller may modify
func DefaultVertices() []GPUVertex {
	return []GPUVertex{
		{Colour: Red, Position: [2]float32{0, 1}},
		{Colour: Green, Position: [2]float32{-1, -1}},
		{Colour: Blue, Position: [2]float32{1, -1}},
	}
}

// SignedArea returns twice the signed area of the triangle a, b, c in NDC.
// Positive values are counter-clockwise, negative values clockwise, zero is degenerate.
//
// Parameters:
//   - a, b, c: the triangle corners in draw order
//
// Returns:
//   - float32: twice the signed area
func SignedArea(a, b, c GPUVertex) float32 {
	abx, aby := b.Position[0]-a.Position[0], b.Position[1]-a.Position[1]
	acx, acy := c.Position[0]-a.Position[0], c.Position[1]-a.Position[1]
	return abx*acy - aby*acx
}

// Winding reports the front face that matches the draw order of a, b, c.
// Degenerate triangles report counter-clockwise, the pipeline default.
//
// Parameters:
//   - a, b, c: the triangle corners in draw order
//
// Returns:
//   - wgpu.FrontFace: wgpu.FrontFaceCCW or wgpu.FrontFaceCW
func Winding(a, b, c GPUVertex) wgpu.FrontFace {
	if SignedArea(a, b, c) < 0 {
		return wgpu.FrontFaceCW
	}
	return wgpu.FrontFaceCCW
}

// AnimatedBrightness is the pulsing brightness curve used by the demo: 0.5*cos(t)+0.5,
// which sweeps between 1.0 and 0.0 with a period of 2π seconds.
//
// Parameters:
//   - t: elapsed time in seconds
//
// Returns:
//   - float32: brightness in [0, 1]
func AnimatedBrightness(t float64) float32 {
	return float32(0.5*math.Cos(t) + 0.5)
}
