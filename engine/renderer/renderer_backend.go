package renderer

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-triangle/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-triangle/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// RendererBackendType selects the GPU backend behind a Renderer.
type RendererBackendType int

// BackendTypeWGPU is the wgpu-native backend, the only one.
const BackendTypeWGPU RendererBackendType = iota

// PresentMode selects when a finished frame reaches the display.
type PresentMode int

const (
	// PresentModeVSync presents on vertical blank (wgpu Fifo).
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents at once and may tear (wgpu Immediate).
	PresentModeUncapped
)

// String returns the config name of the present mode.
func (m PresentMode) String() string {
	switch m {
	case PresentModeVSync:
		return "vsync"
	case PresentModeUncapped:
		return "uncapped"
	default:
		return fmt.Sprintf("PresentMode(%d)", int(m))
	}
}

// MSAASampleCount is the colour target's sample count. WebGPU guarantees 1 and 4.
type MSAASampleCount uint32

const (
	MSAAOff MSAASampleCount = 1
	MSAA4x  MSAASampleCount = 4 // default
)

var (
	// ErrStrideMismatch is returned when vertex data is not a whole number of records, or when a
	// vertex buffer's record stride differs from the stride the drawing pipeline declares.
	ErrStrideMismatch = errors.New("vertex stride mismatch")

	// ErrVertexCount is returned when vertex data does not describe whole triangles.
	ErrVertexCount = errors.New("vertex count is not a positive multiple of three")

	// ErrPipelineNotFound is returned by DrawCall for a key that was never registered.
	ErrPipelineNotFound = errors.New("render pipeline not found in cache")

	// ErrNoFrame is returned when a draw is issued outside BeginFrame / EndFrame.
	ErrNoFrame = errors.New("no frame in progress")
)

// ValidateVertexData checks a packed vertex sequence against its record stride and returns
// the number of vertices it holds. The sequence must be non-empty and hold whole triangles.
//
// Parameters:
//   - data: the packed vertex bytes
//   - stride: the size of one vertex record in bytes
//
// Returns:
//   - int: the number of vertices in data
//   - error: ErrStrideMismatch or ErrVertexCount if the data is malformed
func ValidateVertexData(data []byte, stride uint64) (int, error) {
	if stride == 0 || uint64(len(data))%stride != 0 {
		return 0, fmt.Errorf("%w: %d bytes, stride %d", ErrStrideMismatch, len(data), stride)
	}
	count := int(uint64(len(data)) / stride)
	if count == 0 || count%3 != 0 {
		return 0, fmt.Errorf("%w: %d vertices", ErrVertexCount, count)
	}
	return count, nil
}

// RendererBackend is the GPU side of a Renderer. The renderer keeps the pipeline cache and
// checks every input; the backend creates, uses and frees the GPU objects. Methods are
// safe to call from the render and tick goroutines.
type RendererBackend interface {
	// ConfigureSurface (re)configures the swapchain, and the multisampled target when MSAA
	// is on, for a surface of width by height pixels.
	ConfigureSurface(width, height int) error

	// SetPresentMode and SetClearColor take effect from the next ConfigureSurface and the
	// next frame respectively.
	SetPresentMode(mode PresentMode)
	SetClearColor(c wgpu.Color)

	// RegisterRenderPipeline compiles p's shader modules, builds its pipeline layout from the
	// reflected bind groups and stores the render pipeline with p.SetRenderPipeline.
	//
	// Parameters:
	//   - p: a validated pipeline
	//
	// Returns:
	//   - error: ErrMissingShader, or a GPU creation error
	RegisterRenderPipeline(p pipeline.Pipeline) error

	// InitVertexBuffer uploads count validated records of stride bytes and stores the buffer
	// on provider, releasing any buffer it held before.
	InitVertexBuffer(provider bind_group_provider.BindGroupProvider, data []byte, count int, stride uint64) error

	// InitBindGroup creates the uniform buffers and bind group described by descriptor and
	// stores them on provider. Non-uniform entries are an error.
	InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor) error

	// WriteBuffers queues the writes; writes to uninitialised bindings are logged and skipped.
	WriteBuffers(writes []bind_group_provider.BufferWrite)

	// BeginFrame acquires the next surface image and opens a render pass cleared to the
	// clear colour.
	BeginFrame() error

	// DrawCall records one non-indexed draw of every vertex in meshProvider.
	//
	// Parameters:
	//   - p: the registered pipeline
	//   - meshProvider: the provider holding the vertex buffer
	//   - bindGroups: providers whose bind groups are set at their slice index
	//
	// Returns:
	//   - error: ErrNoFrame outside BeginFrame / EndFrame
	DrawCall(p pipeline.Pipeline, meshProvider bind_group_provider.BindGroupProvider, bindGroups []bind_group_provider.BindGroupProvider) error

	// EndFrame closes the pass and submits the recorded commands.
	EndFrame() error

	// Present shows the frame and gives the surface image back.
	Present()

	// Release frees every GPU object the backend owns.
	Release()
}
