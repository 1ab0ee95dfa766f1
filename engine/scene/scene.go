package scene

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-triangle/common"
	"github.com/Carmen-Shannon/oxy-triangle/engine/renderer"
	"github.com/Carmen-Shannon/oxy-triangle/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-triangle/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-triangle/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-triangle/engine/triangle"
)

// ErrNotInitialized is returned by DrawCalls before Init has succeeded.
var ErrNotInitialized = errors.New("scene not initialized")

// Scene is one triangle draw: the vertex sequence and fragment uniforms on the host, the
// providers holding their GPU copies and the pipeline drawing them. Update runs on the tick
// goroutine and DrawCalls on the render goroutine, so every method is safe for concurrent use.
type Scene interface {
	// Name labels the scene and its GPU resources.
	Name() string

	// Active scenes are drawn by the engine; inactive ones are kept but skipped.
	Active() bool
	SetActive(active bool)

	Renderer() renderer.Renderer
	Pipeline() pipeline.Pipeline

	// Init registers the pipeline, which validates it against the host layouts, uploads the
	// vertices and creates the uniform bind group.
	//
	// Returns:
	//   - error: a validation, stride or GPU error
	Init() error

	// Update moves the brightness animation on by deltaTime seconds. It does nothing while
	// the scene is not animated.
	Update(deltaTime float32)

	// Brightness is the uniform the next DrawCalls writes. SetBrightness accepts any value;
	// the render target clamps what it cannot store.
	Brightness() float32
	SetBrightness(b float32)

	Animated() bool
	SetAnimated(animated bool)

	// Vertices returns a copy of the vertex sequence.
	Vertices() []triangle.GPUVertex

	// SetVertices replaces the vertex sequence and, once initialised, uploads it straight away.
	// A rejected upload leaves the previous sequence in place.
	//
	// Parameters:
	//   - vertices: a whole number of triangles
	//
	// Returns:
	//   - error: a stride or vertex count error from the renderer
	SetVertices(vertices []triangle.GPUVertex) error

	// DrawCalls writes the uniforms and records the draw. Call it between the renderer's
	// BeginFrame and EndFrame.
	//
	// Returns:
	//   - error: ErrNotInitialized, a missing bind group provider, or the renderer's draw error
	DrawCalls() error

	// Release frees the GPU buffers and bind group; Init has to run again before drawing.
	Release()
}

// hostState is what Update and the setters change between frames.
type hostState struct {
	vertices []triangle.GPUVertex
	uniforms triangle.GPUFragmentUniforms
	animated bool
	elapsed  float64
	ready    bool
}

type scene struct {
	name     string
	r        renderer.Renderer
	pipeline pipeline.Pipeline
	active   atomic.Bool

	meshProvider, uniformProvider bind_group_provider.BindGroupProvider

	mu sync.RWMutex
	hostState
}

var _ Scene = &scene{}

// NewScene creates an active scene drawing the default triangle with p through r at full
// brightness. Init has to succeed before the first frame.
//
// Parameters:
//   - name: labels the scene and its GPU resources
//   - r: the renderer owning the GPU
//   - p: a triangle pipeline, see NewTrianglePipeline
//   - options: see the With* functions
//
// Returns:
//   - Scene: the scene
func NewScene(name string, r renderer.Renderer, p pipeline.Pipeline, options ...SceneBuilderOption) Scene {
	s := &scene{
		name:            name,
		r:               r,
		pipeline:        p,
		meshProvider:    bind_group_provider.NewBindGroupProvider(name + " Mesh"),
		uniformProvider: bind_group_provider.NewBindGroupProvider(name + " Uniforms"),
		hostState: hostState{
			vertices: triangle.DefaultVertices(),
			uniforms: triangle.GPUFragmentUniforms{Brightness: 1},
		},
	}
	s.active.Store(true)
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *scene) Name() string { return s.name }
func (s *scene) Active() bool { return s.active.Load() }
func (s *scene) SetActive(active bool) { s.active.Store(active) }
func (s *scene) Renderer() renderer.Renderer { return s.r }
func (s *scene) Pipeline() pipeline.Pipeline { return s.pipeline }

func (s *scene) Init() error {
	if s.r == nil {
		return fmt.Errorf("scene %q: no renderer", s.name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.r.RegisterPipelines(s.pipeline); err != nil {
		return fmt.Errorf("scene %q: %w", s.name, err)
	}
	if err := s.upload(s.vertices); err != nil {
		return err
	}
	desc := s.pipeline.Shader(shader.ShaderTypeFragment).BindGroupLayoutDescriptor(triangle.UniformGroup)
	if err := s.r.InitBindGroup(s.uniformProvider, desc); err != nil {
		return fmt.Errorf("scene %q: uniforms: %w", s.name, err)
	}

	s.ready = true
	common.Logger().Info("scene initialized", "scene", s.name, "vertices", len(s.vertices))
	return nil
}

func (s *scene) upload(vertices []triangle.GPUVertex) error {
	if err := s.r.InitVertexBuffer(s.meshProvider, triangle.MarshalVertices(vertices), triangle.GPUVertexSize); err != nil {
		return fmt.Errorf("scene %q: %w", s.name, err)
	}
	return nil
}

func (s *scene) Update(deltaTime float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.animated {
		s.elapsed += float64(deltaTime)
		s.uniforms.Brightness = triangle.AnimatedBrightness(s.elapsed)
	}
}

func (s *scene) Brightness() float32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.uniforms.Brightness
}

func (s *scene) SetBrightness(b float32) {
	s.mu.Lock()
	s.uniforms.Brightness = b
	s.mu.Unlock()
}

func (s *scene) Animated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.animated
}

func (s *scene) SetAnimated(animated bool) {
	s.mu.Lock()
	s.animated = animated
	s.mu.Unlock()
}

func (s *scene) Vertices() []triangle.GPUVertex {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.vertices)
}

func (s *scene) SetVertices(vertices []triangle.GPUVertex) error {
	next := slices.Clone(vertices)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		if err := s.upload(next); err != nil {
			return err
		}
	}
	s.vertices = next
	return nil
}

func (s *scene) DrawCalls() error {
	s.mu.RLock()
	ready, uniforms := s.ready, s.uniforms
	s.mu.RUnlock()

	if !ready {
		return fmt.Errorf("scene %q: %w", s.name, ErrNotInitialized)
	}

	// the queue copies the bytes, so the host value is free to change once this returns
	s.r.WriteBuffers([]bind_group_provider.BufferWrite{{
		Provider: s.uniformProvider,
		Binding:  triangle.UniformBinding,
		Data:     uniforms.Marshal(),
	}})

	groups, err := s.bindGroups()
	if err != nil {
		return err
	}
	if err := s.r.DrawCall(s.pipeline.PipelineKey(), s.meshProvider, groups); err != nil {
		return fmt.Errorf("scene %q: draw: %w", s.name, err)
	}
	return nil
}

// providerFor maps one annotation of the pipeline's shaders to the provider backing it, nil
// when the scene does not back it.
func (s *scene) providerFor(a shader.Annotation) bind_group_provider.BindGroupProvider {
	switch {
	case a.Type == shader.AnnotationTypeProvider && a.Args[0] == shader.AnnotationArgUniforms,
		a.Type == shader.AnnotationTypeBindingGroup && a.Args[2] == shader.AnnotationArgFragmentUniforms:
		return s.uniformProvider
	}
	return nil
}

// bindGroups lists one provider per group the shaders declare, so that groups[i] is bound at
// @group(i). A group with no provider is an error.
func (s *scene) bindGroups() ([]bind_group_provider.BindGroupProvider, error) {
	byGroup := make(map[int]bind_group_provider.BindGroupProvider)
	count := 0
	for _, st := range []shader.ShaderType{shader.ShaderTypeVertex, shader.ShaderTypeFragment} {
		sh := s.pipeline.Shader(st)
		if sh == nil {
			continue
		}
		for _, a := range sh.Declarations() {
			if a.Group == nil {
				continue
			}
			count = max(count, *a.Group+1)
			if p := s.providerFor(a); p != nil {
				byGroup[*a.Group] = p
			}
		}
	}

	groups := make([]bind_group_provider.BindGroupProvider, count)
	for g := range groups {
		if groups[g] = byGroup[g]; groups[g] == nil {
			return nil, fmt.Errorf("scene %q: nothing provides @group(%d)", s.name, g)
		}
	}
	return groups, nil
}

func (s *scene) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meshProvider.Release()
	s.uniformProvider.Release()
	s.ready = false
}
