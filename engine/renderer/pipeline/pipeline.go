package pipeline

import (
	"github.com/Carmen-Shannon/oxy-triangle/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// UniformContract is a uniform slot as the host writes it: Size bytes at Group and Binding.
type UniformContract struct {
	Group   int
	Binding int
	Size    uint64
}

// AlphaBlend is straight alpha blending, for use with WithBlend.
var AlphaBlend = wgpu.BlendState{
	Color: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorSrcAlpha,
		DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
		Operation: wgpu.BlendOperationAdd,
	},
	Alpha: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorOne,
		DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
		Operation: wgpu.BlendOperationAdd,
	},
}

// Pipeline pairs a vertex and a fragment shader with the host layouts they must agree with and
// the fixed-function state of the GPU pipeline. The renderer calls Validate before creating it.
type Pipeline interface {
	// PipelineKey is the key the renderer caches the pipeline under.
	PipelineKey() string

	// Shader returns the shader of a stage, or nil.
	Shader(shaderType shader.ShaderType) shader.Shader

	// VertexLayouts is what the GPU pipeline reads: the vertex contract when there is one,
	// otherwise the layouts reflected from the vertex shader, by slot.
	VertexLayouts() []wgpu.VertexBufferLayout

	// VertexContract is the layout set with WithVertexContract, or nil.
	VertexContract() *wgpu.VertexBufferLayout

	// UniformContracts are the slots added with WithUniformContract, in order.
	UniformContracts() []UniformContract

	// Validate compiles both stages and compares what they declare with the host contracts.
	//
	// The shader side is reflected tightly packed: attributes follow each other in declaration
	// order and the stride is the sum of their sizes. A host layout with padding is therefore
	// rejected even when its own offsets are consistent, and host vertex records have to be
	// tightly packed as well.
	//
	// Returns:
	//   - error: ErrMissingShader, a shader.ErrCompile error, or a *LayoutMismatchError
	//     matching ErrLayoutMismatch
	Validate() error

	// Primitive is the primitive state, triangle list with counter-clockwise front faces and no
	// culling unless an option changes it.
	Primitive() wgpu.PrimitiveState

	// ColorTarget is the colour target state for a surface of the given format.
	//
	// Parameters:
	//   - format: the surface texture format
	//
	// Returns:
	//   - wgpu.ColorTargetState: the target, blending only when WithBlend set a state
	ColorTarget(format wgpu.TextureFormat) wgpu.ColorTargetState

	// RenderPipeline and SetRenderPipeline hold the GPU object once the renderer made it.
	RenderPipeline() *wgpu.RenderPipeline
	SetRenderPipeline(rp *wgpu.RenderPipeline)
}

type pipeline struct {
	pipelineKey string

	vertexShader, fragmentShader shader.Shader

	vertexContract   *wgpu.VertexBufferLayout
	uniformContracts []UniformContract

	primitive wgpu.PrimitiveState
	writeMask wgpu.ColorWriteMask
	blend     *wgpu.BlendState // nil means opaque

	renderPipeline *wgpu.RenderPipeline
}

var _ Pipeline = &pipeline{}

// NewPipeline describes a render pipeline under pipelineKey. Without options it draws a triangle
// list, opaque, writing every channel, with no culling.
func NewPipeline(pipelineKey string, opts ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		pipelineKey: pipelineKey,
		primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		writeMask: wgpu.ColorWriteMaskAll,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *pipeline) PipelineKey() string                      { return p.pipelineKey }
func (p *pipeline) VertexContract() *wgpu.VertexBufferLayout { return p.vertexContract }
func (p *pipeline) UniformContracts() []UniformContract      { return p.uniformContracts }
func (p *pipeline) Primitive() wgpu.PrimitiveState           { return p.primitive }
func (p *pipeline) RenderPipeline() *wgpu.RenderPipeline     { return p.renderPipeline }
func (p *pipeline) SetRenderPipeline(rp *wgpu.RenderPipeline) { p.renderPipeline = rp }

func (p *pipeline) Shader(shaderType shader.ShaderType) shader.Shader {
	switch shaderType {
	case shader.ShaderTypeVertex:
		return p.vertexShader
	case shader.ShaderTypeFragment:
		return p.fragmentShader
	}
	return nil
}

func (p *pipeline) VertexLayouts() []wgpu.VertexBufferLayout {
	switch {
	case p.vertexContract != nil:
		return []wgpu.VertexBufferLayout{*p.vertexContract}
	case p.vertexShader == nil:
		return nil
	}
	reflected := p.vertexShader.VertexLayouts()
	var out []wgpu.VertexBufferLayout
	for slot := range len(reflected) {
		out = append(out, reflected[slot]...)
	}
	return out
}

func (p *pipeline) ColorTarget(format wgpu.TextureFormat) wgpu.ColorTargetState {
	return wgpu.ColorTargetState{Format: format, Blend: p.blend, WriteMask: p.writeMask}
}
