package pipeline

import (
	"github.com/Carmen-Shannon/oxy-triangle/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineBuilderOption configures a pipeline in NewPipeline.
type PipelineBuilderOption func(*pipeline)

func WithVertexShader(s shader.Shader) PipelineBuilderOption {
	return func(p *pipeline) { p.vertexShader = s }
}

func WithFragmentShader(s shader.Shader) PipelineBuilderOption {
	return func(p *pipeline) { p.fragmentShader = s }
}

// WithVertexContract declares the record layout the host uploads to vertex buffer slot 0.
// Validate fails unless the vertex shader's input struct reflects to the same layout.
//
// Parameters:
//   - layout: the host layout, normally triangle.VertexBufferLayout()
//
// Returns:
//   - PipelineBuilderOption: option function to apply
func WithVertexContract(layout wgpu.VertexBufferLayout) PipelineBuilderOption {
	return func(p *pipeline) { p.vertexContract = &layout }
}

// WithUniformContract declares that the host writes size bytes at group and binding. Validate
// fails when a stage declares a uniform of another size there.
func WithUniformContract(group, binding int, size uint64) PipelineBuilderOption {
	return func(p *pipeline) {
		p.uniformContracts = append(p.uniformContracts, UniformContract{Group: group, Binding: binding, Size: size})
	}
}

// WithBlend blends the colour target with state, AlphaBlend for ordinary transparency.
// A nil state draws opaque.
func WithBlend(state *wgpu.BlendState) PipelineBuilderOption {
	return func(p *pipeline) { p.blend = state }
}

func WithCullMode(mode wgpu.CullMode) PipelineBuilderOption {
	return func(p *pipeline) { p.primitive.CullMode = mode }
}

func WithTopology(topology wgpu.PrimitiveTopology) PipelineBuilderOption {
	return func(p *pipeline) { p.primitive.Topology = topology }
}

// WithFrontFace sets the front-facing winding; triangle.Winding derives it from vertex order.
func WithFrontFace(frontFace wgpu.FrontFace) PipelineBuilderOption {
	return func(p *pipeline) { p.primitive.FrontFace = frontFace }
}

func WithWriteMask(mask wgpu.ColorWriteMask) PipelineBuilderOption {
	return func(p *pipeline) { p.writeMask = mask }
}
