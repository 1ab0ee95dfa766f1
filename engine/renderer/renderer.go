package renderer

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-triangle/common"
	"github.com/Carmen-Shannon/oxy-triangle/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-triangle/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-triangle/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
)

// Renderer checks host data before it reaches the GPU and hands the GPU work to a
// RendererBackend. Pipelines are validated against their shaders before creation, vertex
// uploads against their record stride, and draws against the pipeline's vertex layout.
type Renderer interface {
	// Pipeline returns the registered pipeline under key, or nil.
	Pipeline(key string) pipeline.Pipeline

	// RegisterPipelines validates each pipeline, has the backend create it and caches it by
	// PipelineKey. Keys already registered are skipped.
	//
	// Parameters:
	//   - pipelines: the pipelines to register
	//
	// Returns:
	//   - error: the first validation or creation error
	RegisterPipelines(pipelines ...pipeline.Pipeline) error

	// Resize reconfigures the surface. A zero width or height, as a minimised window
	// reports, is ignored.
	Resize(width, height int) error

	// InitVertexBuffer checks a packed vertex sequence and uploads it to a vertex buffer held
	// by provider.
	//
	// Parameters:
	//   - provider: where the buffer is stored
	//   - data: the packed vertex records
	//   - stride: the size of one record in bytes
	//
	// Returns:
	//   - error: ErrStrideMismatch, ErrVertexCount, or a backend error
	InitVertexBuffer(provider bind_group_provider.BindGroupProvider, data []byte, stride uint64) error

	// InitBindGroup creates the uniform buffers, sized by each entry's MinBindingSize, and the
	// bind group described by descriptor, and stores them on provider.
	InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor) error

	// WriteBuffers queues uniform writes.
	WriteBuffers(writes []bind_group_provider.BufferWrite)

	// BeginFrame acquires the next surface image and opens the frame's render pass.
	BeginFrame() error

	// DrawCall draws every vertex of meshProvider with a registered pipeline inside the open pass.
	//
	// Parameters:
	//   - pipelineKey: the registered pipeline to draw with
	//   - meshProvider: the provider holding the vertex buffer
	//   - bindGroups: providers whose bind groups are set at their slice index
	//
	// Returns:
	//   - error: ErrPipelineNotFound for an unknown key, ErrStrideMismatch when the mesh's record
	//     stride differs from the pipeline's vertex layout, ErrNoFrame outside a frame
	DrawCall(pipelineKey string, meshProvider bind_group_provider.BindGroupProvider, bindGroups []bind_group_provider.BindGroupProvider) error

	// EndFrame closes the render pass and submits it. Present shows the result.
	EndFrame() error

	// Present shows the submitted frame and gives the surface image back.
	Present()

	// SetPresentMode changes the present mode from the next Resize on.
	SetPresentMode(mode PresentMode)

	// SetClearColor changes the colour frames are cleared to.
	SetClearColor(c wgpu.Color)

	// Release frees the cached pipelines and every backend GPU object.
	Release()
}

type settings struct {
	forceFallbackAdapter bool
	presentMode          PresentMode
	msaa                 MSAASampleCount
	clearColor           wgpu.Color
}

type renderer struct {
	settings
	backend RendererBackend

	mu        sync.Mutex
	pipelines map[string]pipeline.Pipeline
}

var _ Renderer = &renderer{}

// NewRenderer creates a renderer drawing into w's surface and configures the surface to the
// window's current size.
//
// Parameters:
//   - backendType: the GPU backend to use
//   - w: the window to present into
//   - options: functional options, see the With* functions
//
// Returns:
//   - Renderer: the renderer
//   - error: an error if the backend type is unknown or no adapter, device or surface could be created
func NewRenderer(backendType RendererBackendType, w window.Window, options ...RendererBuilderOption) (Renderer, error) {
	r := newRenderer(nil, options...)
	if backendType != BackendTypeWGPU {
		return nil, fmt.Errorf("unknown renderer backend type %d", backendType)
	}
	backend, err := newWGPURendererBackend(w.SurfaceDescriptor(), r.forceFallbackAdapter, r.msaa)
	if err != nil {
		return nil, err
	}
	r.attach(backend)

	if err := r.Resize(w.Width(), w.Height()); err != nil {
		backend.Release()
		return nil, err
	}
	return r, nil
}

// newRenderer applies options and, when backend is non-nil, attaches it.
func newRenderer(backend RendererBackend, options ...RendererBuilderOption) *renderer {
	r := &renderer{
		settings: settings{
			presentMode: PresentModeVSync,
			msaa:        MSAA4x,
			clearColor:  wgpu.Color{A: 1},
		},
		pipelines: make(map[string]pipeline.Pipeline),
	}
	for _, opt := range options {
		opt(r)
	}
	if backend != nil {
		r.attach(backend)
	}
	return r
}

func (r *renderer) attach(backend RendererBackend) {
	r.backend = backend
	backend.SetPresentMode(r.presentMode)
	backend.SetClearColor(r.clearColor)
}

func (r *renderer) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return nil
	}
	return r.backend.ConfigureSurface(width, height)
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.presentMode = mode
	r.backend.SetPresentMode(mode)
}

func (r *renderer) SetClearColor(c wgpu.Color) {
	r.clearColor = c
	r.backend.SetClearColor(c)
}

func (r *renderer) Pipeline(key string) pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelines[key]
}

func (r *renderer) RegisterPipelines(pipelines ...pipeline.Pipeline) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range pipelines {
		key := p.PipelineKey()
		if r.pipelines[key] != nil {
			continue
		}
		if err := p.Validate(); err != nil {
			return err
		}
		if err := r.backend.RegisterRenderPipeline(p); err != nil {
			return fmt.Errorf("pipeline %s: %w", key, err)
		}
		r.pipelines[key] = p
		common.Logger().Info("pipeline registered", "key", key)
	}
	return nil
}

func (r *renderer) InitVertexBuffer(provider bind_group_provider.BindGroupProvider, data []byte, stride uint64) error {
	count, err := ValidateVertexData(data, stride)
	if err != nil {
		return fmt.Errorf("%s: %w", provider.Label(), err)
	}
	return r.backend.InitVertexBuffer(provider, data, count, stride)
}

func (r *renderer) InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor) error {
	return r.backend.InitBindGroup(provider, descriptor)
}

func (r *renderer) WriteBuffers(writes []bind_group_provider.BufferWrite) {
	r.backend.WriteBuffers(writes)
}

func (r *renderer) BeginFrame() error { return r.backend.BeginFrame() }
func (r *renderer) EndFrame() error   { return r.backend.EndFrame() }
func (r *renderer) Present()          { r.backend.Present() }

func (r *renderer) DrawCall(pipelineKey string, meshProvider bind_group_provider.BindGroupProvider, bindGroups []bind_group_provider.BindGroupProvider) error {
	p := r.Pipeline(pipelineKey)
	if p == nil {
		return fmt.Errorf("%w: %q", ErrPipelineNotFound, pipelineKey)
	}
	if layouts := p.VertexLayouts(); len(layouts) > 0 {
		if want, got := layouts[0].ArrayStride, meshProvider.VertexStride(); got != want {
			return fmt.Errorf("%w: %s holds %d-byte vertices, pipeline %s reads %d", ErrStrideMismatch, meshProvider.Label(), got, pipelineKey, want)
		}
	}
	return r.backend.DrawCall(p, meshProvider, bindGroups)
}

func (r *renderer) Release() {
	r.mu.Lock()
	for key, p := range r.pipelines {
		if rp := p.RenderPipeline(); rp != nil {
			rp.Release()
			p.SetRenderPipeline(nil)
		}
		delete(r.pipelines, key)
	}
	r.mu.Unlock()

	r.backend.Release()
}
