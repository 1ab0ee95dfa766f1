package bind_group_provider

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// BindGroupProvider owns the GPU resources of one draw: its vertex buffer, its uniform
// buffers and the bind group exposing them to the shaders. The renderer creates the
// resources and stores them here; the scene that made the provider releases it.
//
// Lifecycle:
//  1. Renderer.InitVertexBuffer uploads the vertex records
//  2. Renderer.InitBindGroup creates the uniform buffers and the bind group
//  3. Renderer.WriteBuffers updates the uniforms each tick
//  4. Renderer.DrawCall binds both and draws VertexCount vertices
type BindGroupProvider interface {
	// Label names the provider in GPU object labels and log lines.
	Label() string

	// BindGroup and BindGroupLayout are nil until Renderer.InitBindGroup.
	BindGroup() *wgpu.BindGroup
	BindGroupLayout() *wgpu.BindGroupLayout

	// Buffer returns the uniform buffer at a binding index, or nil.
	//
	// Parameters:
	//   - binding: the @binding index within the group
	//
	// Returns:
	//   - *wgpu.Buffer: the buffer or nil
	Buffer(binding int) *wgpu.Buffer

	// VertexBuffer is nil until Renderer.InitVertexBuffer.
	VertexBuffer() *wgpu.Buffer

	// VertexCount is the number of vertices in VertexBuffer.
	VertexCount() int

	// VertexStride is the byte size of one record in VertexBuffer, 0 before upload.
	// Renderer.DrawCall refuses to draw when it differs from the pipeline's stride.
	VertexStride() uint64

	SetBindGroup(bg *wgpu.BindGroup)
	SetBindGroupLayout(bgl *wgpu.BindGroupLayout)
	SetBuffer(binding int, buf *wgpu.Buffer)

	// SetVertexBuffer stores an uploaded vertex buffer along with what it holds.
	//
	// Parameters:
	//   - buf: the vertex buffer
	//   - count: the number of vertex records in buf
	//   - stride: the byte size of one record
	SetVertexBuffer(buf *wgpu.Buffer, count int, stride uint64)

	// Release frees every GPU resource held and returns the provider to its empty state.
	Release()
}

type vertexData struct {
	buffer *wgpu.Buffer
	count  int
	stride uint64
}

type bindGroupProvider struct {
	label string

	group    *wgpu.BindGroup
	layout   *wgpu.BindGroupLayout
	uniforms map[int]*wgpu.Buffer
	vertices vertexData
}

var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates an empty provider labelled label.
func NewBindGroupProvider(label string) BindGroupProvider {
	return &bindGroupProvider{label: label, uniforms: make(map[int]*wgpu.Buffer)}
}

func (p *bindGroupProvider) Label() string                         { return p.label }
func (p *bindGroupProvider) BindGroup() *wgpu.BindGroup            { return p.group }
func (p *bindGroupProvider) BindGroupLayout() *wgpu.BindGroupLayout { return p.layout }
func (p *bindGroupProvider) Buffer(binding int) *wgpu.Buffer       { return p.uniforms[binding] }
func (p *bindGroupProvider) VertexBuffer() *wgpu.Buffer            { return p.vertices.buffer }
func (p *bindGroupProvider) VertexCount() int                      { return p.vertices.count }
func (p *bindGroupProvider) VertexStride() uint64                  { return p.vertices.stride }

func (p *bindGroupProvider) SetBindGroup(bg *wgpu.BindGroup)              { p.group = bg }
func (p *bindGroupProvider) SetBindGroupLayout(bgl *wgpu.BindGroupLayout) { p.layout = bgl }

func (p *bindGroupProvider) SetBuffer(binding int, buf *wgpu.Buffer) {
	p.uniforms[binding] = buf
}

func (p *bindGroupProvider) SetVertexBuffer(buf *wgpu.Buffer, count int, stride uint64) {
	p.vertices = vertexData{buffer: buf, count: count, stride: stride}
}

func (p *bindGroupProvider) Release() {
	// the group references the layout and buffers, so it goes first
	if p.group != nil {
		p.group.Release()
		p.group = nil
	}
	for binding, buf := range p.uniforms {
		if buf != nil {
			buf.Release()
		}
		delete(p.uniforms, binding)
	}
	if p.layout != nil {
		p.layout.Release()
		p.layout = nil
	}
	if p.vertices.buffer != nil {
		p.vertices.buffer.Release()
	}
	p.vertices = vertexData{}
}
