package renderer

import (
	"cmp"
	"errors"
	"fmt"
	"maps"
	"runtime"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-triangle/common"
	"github.com/Carmen-Shannon/oxy-triangle/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-triangle/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-triangle/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// wgpuRendererBackend drives a window surface through wgpu-native. All methods are
// serialised by mu; the owning goroutine is locked to its OS thread on creation.
type wgpuRendererBackend struct {
	mu sync.Mutex

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface
	device   *wgpu.Device
	queue    *wgpu.Queue

	format      wgpu.TextureFormat
	configured  bool
	presentMode wgpu.PresentMode
	samples     MSAASampleCount
	clearColor  wgpu.Color

	// multisampled colour target, nil when samples is MSAAOff
	msaa     *wgpu.Texture
	msaaView *wgpu.TextureView

	frame struct {
		encoder *wgpu.CommandEncoder
		pass    *wgpu.RenderPassEncoder
		texture *wgpu.Texture
		view    *wgpu.TextureView
	}
}

var _ RendererBackend = &wgpuRendererBackend{}

func newWGPURendererBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, forceFallbackAdapter bool, samples MSAASampleCount) (*wgpuRendererBackend, error) {
	runtime.LockOSThread()
	b := &wgpuRendererBackend{
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeFifo,
		samples:     samples,
		clearColor:  wgpu.Color{A: 1},
	}
	b.surface = b.instance.CreateSurface(surfaceDescriptor)

	var err error
	b.adapter, err = b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    b.surface,
	})
	if err != nil {
		b.Release()
		return nil, fmt.Errorf("request adapter: %w", err)
	}
	common.Logger().Info("adapter selected", "fallback", forceFallbackAdapter, "msaa", uint32(samples))

	b.device, err = b.adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label:          "oxy-triangle device",
		RequiredLimits: &wgpu.RequiredLimits{Limits: wgpu.DefaultLimits()},
	})
	if err != nil {
		b.Release()
		return nil, fmt.Errorf("request device: %w", err)
	}
	b.queue = b.device.GetQueue()
	return b, nil
}

func (b *wgpuRendererBackend) ConfigureSurface(width, height int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	caps := b.surface.GetCapabilities(b.adapter)
	if len(caps.Formats) == 0 || len(caps.AlphaModes) == 0 {
		return errors.New("surface reports no supported formats")
	}
	b.format = caps.Formats[0]
	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      b.format,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   caps.AlphaModes[0],
	})

	release(&b.msaaView)
	release(&b.msaa)
	if b.samples > MSAAOff {
		if err := b.createMSAATarget(uint32(width), uint32(height)); err != nil {
			return err
		}
	}
	b.configured = true

	common.Logger().Debug("surface configured", "width", width, "height", height, "msaa", uint32(b.samples))
	return nil
}

// createMSAATarget allocates the multisampled texture the pass renders into. The swapchain
// image becomes its resolve target each frame.
func (b *wgpuRendererBackend) createMSAATarget(width, height uint32) error {
	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "msaa colour target",
		Size:          wgpu.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   uint32(b.samples),
		Dimension:     wgpu.TextureDimension2D,
		Format:        b.format,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return fmt.Errorf("create msaa texture: %w", err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return fmt.Errorf("create msaa view: %w", err)
	}
	b.msaa, b.msaaView = tex, view
	return nil
}

func (b *wgpuRendererBackend) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.presentMode = wgpu.PresentModeFifo
	if mode == PresentModeUncapped {
		b.presentMode = wgpu.PresentModeImmediate
	}
}

func (b *wgpuRendererBackend) SetClearColor(c wgpu.Color) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clearColor = c
}

func (b *wgpuRendererBackend) RegisterRenderPipeline(p pipeline.Pipeline) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	vert, frag := p.Shader(shader.ShaderTypeVertex), p.Shader(shader.ShaderTypeFragment)
	if vert == nil || frag == nil {
		return pipeline.ErrMissingShader
	}
	if !b.configured {
		return errors.New("surface must be configured before registering pipelines")
	}

	vs, err := b.device.CreateShaderModule(vert.Module())
	if err != nil {
		return fmt.Errorf("vertex module %s: %w", vert.Key(), err)
	}
	defer vs.Release()
	fs, err := b.device.CreateShaderModule(frag.Module())
	if err != nil {
		return fmt.Errorf("fragment module %s: %w", frag.Key(), err)
	}
	defer fs.Release()

	groups := mergeBindGroupLayouts(vert.BindGroupLayoutDescriptors(), frag.BindGroupLayoutDescriptors())
	maxGroup := -1
	for g := range groups {
		maxGroup = max(maxGroup, g)
	}
	// group indices without bindings still need a (empty) layout
	layouts := make([]*wgpu.BindGroupLayout, maxGroup+1)
	for g := range layouts {
		desc := groups[g]
		layout, err := b.device.CreateBindGroupLayout(&desc)
		if err != nil {
			return fmt.Errorf("bind group layout %d: %w", g, err)
		}
		defer layout.Release()
		layouts[g] = layout
	}

	pipelineLayout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.PipelineKey(),
		BindGroupLayouts: layouts,
	})
	if err != nil {
		return fmt.Errorf("pipeline layout: %w", err)
	}
	defer pipelineLayout.Release()

	created, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  p.PipelineKey(),
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     vs,
			EntryPoint: vert.EntryPoint(),
			Buffers:    p.VertexLayouts(),
		},
		Fragment: &wgpu.FragmentState{
			Module:     fs,
			EntryPoint: frag.EntryPoint(),
			Targets:    []wgpu.ColorTargetState{p.ColorTarget(b.format)},
		},
		Primitive:   p.Primitive(),
		Multisample: wgpu.MultisampleState{Count: uint32(b.samples), Mask: ^uint32(0)},
	})
	if err != nil {
		return fmt.Errorf("render pipeline %s: %w", p.PipelineKey(), err)
	}
	p.SetRenderPipeline(created)
	return nil
}

func (b *wgpuRendererBackend) InitVertexBuffer(provider bind_group_provider.BindGroupProvider, data []byte, count int, stride uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	buf, err := b.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    provider.Label() + " vertices",
		Contents: data,
		Usage:    wgpu.BufferUsageVertex,
	})
	if err != nil {
		return fmt.Errorf("vertex buffer %s: %w", provider.Label(), err)
	}
	if old := provider.VertexBuffer(); old != nil {
		old.Release()
	}
	provider.SetVertexBuffer(buf, count, stride)
	return nil
}

func (b *wgpuRendererBackend) InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(descriptor.Entries) == 0 {
		return nil
	}
	if provider.BindGroupLayout() == nil {
		layout, err := b.device.CreateBindGroupLayout(&descriptor)
		if err != nil {
			return fmt.Errorf("bind group layout %s: %w", provider.Label(), err)
		}
		provider.SetBindGroupLayout(layout)
	}

	entries := make([]wgpu.BindGroupEntry, 0, len(descriptor.Entries))
	for _, e := range descriptor.Entries {
		if e.Buffer.Type != wgpu.BufferBindingTypeUniform {
			return fmt.Errorf("%s binding %d is not a uniform buffer", provider.Label(), e.Binding)
		}
		binding := int(e.Binding)
		if provider.Buffer(binding) == nil {
			buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
				Label: fmt.Sprintf("%s uniform %d", provider.Label(), binding),
				Size:  e.Buffer.MinBindingSize,
				Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
			})
			if err != nil {
				return fmt.Errorf("uniform buffer %s/%d: %w", provider.Label(), binding, err)
			}
			provider.SetBuffer(binding, buf)
		}
		entries = append(entries, wgpu.BindGroupEntry{
			Binding: e.Binding,
			Buffer:  provider.Buffer(binding),
			Size:    wgpu.WholeSize,
		})
	}

	group, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   provider.Label(),
		Layout:  provider.BindGroupLayout(),
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("bind group %s: %w", provider.Label(), err)
	}
	provider.SetBindGroup(group)
	return nil
}

func (b *wgpuRendererBackend) WriteBuffers(writes []bind_group_provider.BufferWrite) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, w := range writes {
		buf := w.Provider.Buffer(w.Binding)
		if buf == nil {
			common.Logger().Warn("buffer write skipped, binding not initialized",
				"provider", w.Provider.Label(), "binding", w.Binding)
			continue
		}
		b.queue.WriteBuffer(buf, w.Offset, w.Data)
	}
}

func (b *wgpuRendererBackend) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	// wgpu-native refuses a second acquire while the last image is unpresented
	if b.frame.texture != nil {
		return errors.New("previous frame surface not yet presented")
	}
	if !b.configured {
		return errors.New("surface not configured")
	}

	tex, err := b.surface.GetCurrentTexture()
	if err != nil {
		return fmt.Errorf("acquire surface texture: %w", err)
	}
	b.frame.texture = tex
	if b.frame.view, err = tex.CreateView(nil); err != nil {
		b.releaseFrame()
		return fmt.Errorf("surface view: %w", err)
	}
	if b.frame.encoder, err = b.device.CreateCommandEncoder(nil); err != nil {
		b.releaseFrame()
		return fmt.Errorf("command encoder: %w", err)
	}
	b.frame.pass = b.frame.encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{b.colourAttachment()},
	})
	return nil
}

// colourAttachment targets the swapchain view directly, or renders into the multisampled
// texture and resolves into the swapchain view. The multisampled contents are not kept.
func (b *wgpuRendererBackend) colourAttachment() wgpu.RenderPassColorAttachment {
	a := wgpu.RenderPassColorAttachment{
		View:       b.frame.view,
		LoadOp:     wgpu.LoadOpClear,
		StoreOp:    wgpu.StoreOpStore,
		ClearValue: b.clearColor,
	}
	if b.msaaView != nil {
		a.View, a.ResolveTarget = b.msaaView, b.frame.view
		a.StoreOp = wgpu.StoreOpDiscard
	}
	return a
}

func (b *wgpuRendererBackend) DrawCall(p pipeline.Pipeline, meshProvider bind_group_provider.BindGroupProvider, bindGroups []bind_group_provider.BindGroupProvider) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	pass := b.frame.pass
	if pass == nil {
		return ErrNoFrame
	}
	pass.SetPipeline(p.RenderPipeline())
	for i, bg := range bindGroups {
		pass.SetBindGroup(uint32(i), bg.BindGroup(), nil)
	}
	pass.SetVertexBuffer(0, meshProvider.VertexBuffer(), 0, wgpu.WholeSize)
	pass.Draw(uint32(meshProvider.VertexCount()), 1, 0, 0)
	return nil
}

func (b *wgpuRendererBackend) EndFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frame.pass == nil {
		return ErrNoFrame
	}
	err := b.frame.pass.End()
	release(&b.frame.pass)
	if err != nil {
		b.releaseFrame()
		return fmt.Errorf("end render pass: %w", err)
	}

	cmd, err := b.frame.encoder.Finish(nil)
	release(&b.frame.encoder)
	if err != nil {
		b.releaseFrame()
		return fmt.Errorf("finish command encoder: %w", err)
	}
	defer cmd.Release()
	b.queue.Submit(cmd)
	return nil
}

func (b *wgpuRendererBackend) Present() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frame.texture == nil {
		return
	}
	b.surface.Present()
	b.releaseFrame()
}

func (b *wgpuRendererBackend) releaseFrame() {
	release(&b.frame.pass)
	release(&b.frame.encoder)
	release(&b.frame.view)
	release(&b.frame.texture)
}

func (b *wgpuRendererBackend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.releaseFrame()
	release(&b.msaaView)
	release(&b.msaa)
	release(&b.queue)
	release(&b.device)
	release(&b.adapter)
	release(&b.surface)
	release(&b.instance)
	b.configured = false
}

// release frees a wgpu handle once and clears the field that held it.
func release[T any, P interface {
	*T
	Release()
}](handle *P) {
	if *handle != nil {
		(*handle).Release()
		*handle = nil
	}
}

// mergeBindGroupLayouts combines the vertex and fragment stage layouts into one descriptor per
// group. A binding declared by both stages keeps one entry with both visibility flags set.
// Entries are ordered by binding.
//
// Parameters:
//   - vertexLayouts: bind group layout descriptors reflected from the vertex shader
//   - fragmentLayouts: bind group layout descriptors reflected from the fragment shader
//
// Returns:
//   - map[int]wgpu.BindGroupLayoutDescriptor: the merged descriptors keyed by group index
func mergeBindGroupLayouts(vertexLayouts, fragmentLayouts map[int]wgpu.BindGroupLayoutDescriptor) map[int]wgpu.BindGroupLayoutDescriptor {
	byGroup := make(map[int]map[uint32]wgpu.BindGroupLayoutEntry)
	for _, stage := range []map[int]wgpu.BindGroupLayoutDescriptor{vertexLayouts, fragmentLayouts} {
		for g, desc := range stage {
			if byGroup[g] == nil {
				byGroup[g] = make(map[uint32]wgpu.BindGroupLayoutEntry)
			}
			for _, e := range desc.Entries {
				if seen, ok := byGroup[g][e.Binding]; ok {
					e.Visibility |= seen.Visibility
				}
				byGroup[g][e.Binding] = e
			}
		}
	}

	merged := make(map[int]wgpu.BindGroupLayoutDescriptor, len(byGroup))
	for g, entries := range byGroup {
		merged[g] = wgpu.BindGroupLayoutDescriptor{
			Entries: slices.SortedFunc(maps.Values(entries), func(a, b wgpu.BindGroupLayoutEntry) int {
				return cmp.Compare(a.Binding, b.Binding)
			}),
		}
	}
	return merged
}
