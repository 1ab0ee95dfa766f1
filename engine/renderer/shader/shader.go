package shader

import (
	"errors"
	"fmt"
	"os"

	"github.com/cogentcore/webgpu/wgpu"
)

// ShaderType identifies which render stage a shader feeds.
type ShaderType int

const (
	// ShaderTypeVertex consumes the vertex buffer.
	ShaderTypeVertex ShaderType = iota

	// ShaderTypeFragment shades the rasterised triangle.
	ShaderTypeFragment
)

func (t ShaderType) String() string {
	switch t {
	case ShaderTypeVertex:
		return "vertex"
	case ShaderTypeFragment:
		return "fragment"
	default:
		return fmt.Sprintf("ShaderType(%d)", int(t))
	}
}

func (t ShaderType) visibility() wgpu.ShaderStage {
	switch t {
	case ShaderTypeVertex:
		return wgpu.ShaderStageVertex
	case ShaderTypeFragment:
		return wgpu.ShaderStageFragment
	default:
		return wgpu.ShaderStageNone
	}
}

// ErrNoEntryPoint is returned when a shader source has no entry point for its declared stage.
var ErrNoEntryPoint = errors.New("shader: no entry point for stage")

// Shader is one pre-processed WGSL stage with the layouts reflected from its source. The
// pipeline builder checks those layouts against the host GPU types before any GPU object
// exists.
type Shader interface {
	// Key identifies the shader in labels and errors.
	Key() string

	// Source is the WGSL after annotation expansion.
	Source() string

	// ShaderType is the stage the shader was built for.
	ShaderType() ShaderType

	// EntryPoint is the name of the stage's entry function.
	EntryPoint() string

	// Module is the descriptor the backend compiles.
	Module() *wgpu.ShaderModuleDescriptor

	// BindGroupLayoutDescriptor returns the reflected layout of one group, empty if the
	// shader declares nothing there.
	//
	// Parameters:
	//   - group: the @group index
	//
	// Returns:
	//   - wgpu.BindGroupLayoutDescriptor: the uniform entries of the group, by binding
	BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor

	// BindGroupLayoutDescriptors returns every reflected group layout keyed by group index.
	BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor

	// UniformBindingSize reports the WGSL size of the uniform declared at a slot.
	//
	// Parameters:
	//   - group: the bind group index
	//   - binding: the binding index within the group
	//
	// Returns:
	//   - uint64: the declared size in bytes
	//   - bool: false if nothing is declared at the slot or its type did not resolve
	UniformBindingSize(group, binding int) (uint64, bool)

	// VertexLayout returns the reflected layout of one vertex buffer slot, or nil.
	VertexLayout(slot int) []wgpu.VertexBufferLayout

	// VertexLayouts returns every reflected vertex buffer layout keyed by slot. Only vertex
	// shaders have any.
	VertexLayouts() map[int][]wgpu.VertexBufferLayout

	// Declarations lists the group and provider annotations of the source, in order.
	Declarations() []Annotation
}

type reflection struct {
	entryPoint    string
	groups        map[int]wgpu.BindGroupLayoutDescriptor
	vertexLayouts map[int][]wgpu.VertexBufferLayout
}

type shader struct {
	key          string
	shaderType   ShaderType
	source       string
	module       *wgpu.ShaderModuleDescriptor
	declarations []Annotation
	reflection
}

var _ Shader = &shader{}

// NewShader reads a WGSL file and builds a Shader from it.
//
// Parameters:
//   - key: a unique identifier for the shader
//   - shaderType: the stage the shader feeds
//   - sourcePath: the file to read
//
// Returns:
//   - Shader: the pre-processed shader with its reflected layouts
//   - error: an error if the file cannot be read or the source cannot be processed
func NewShader(key string, shaderType ShaderType, sourcePath string) (Shader, error) {
	if sourcePath == "" {
		return nil, fmt.Errorf("shader %s: empty source path", key)
	}
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("shader %s: read %q: %w", key, sourcePath, err)
	}
	return NewShaderFromSource(key, shaderType, string(data))
}

// NewShaderFromSource builds a Shader from WGSL held in memory, typically an embedded asset.
// The source may contain @oxy: annotations.
//
// Parameters:
//   - key: a unique identifier for the shader
//   - shaderType: the stage the shader feeds
//   - source: the raw WGSL source
//
// Returns:
//   - Shader: the pre-processed shader with its reflected layouts
//   - error: an error if pre-processing fails or the source has no entry point for shaderType
func NewShaderFromSource(key string, shaderType ShaderType, source string) (Shader, error) {
	pp := NewPreProcessor()
	processed, err := pp.Process(source)
	if err != nil {
		return nil, fmt.Errorf("shader %s: pre-process: %w", key, err)
	}

	s := &shader{
		key:          key,
		shaderType:   shaderType,
		source:       processed,
		declarations: pp.Declarations(),
		reflection:   reflectSource(processed, shaderType),
	}
	if s.entryPoint == "" {
		return nil, fmt.Errorf("shader %s: %w %s", key, ErrNoEntryPoint, shaderType)
	}
	s.module = &wgpu.ShaderModuleDescriptor{
		Label:          key,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: processed},
	}
	return s, nil
}

// reflectSource reads the entry point, uniform groups and (vertex stage only) vertex buffer
// layouts out of pre-processed source.
func reflectSource(source string, shaderType ShaderType) reflection {
	r := reflection{
		entryPoint:    parseEntryPoint(source, shaderType),
		groups:        parseBindGroupLayouts(source, shaderType.visibility()),
		vertexLayouts: map[int][]wgpu.VertexBufferLayout{},
	}
	if shaderType == ShaderTypeVertex {
		r.vertexLayouts = parseVertexLayouts(source)
	}
	return r
}

func (s *shader) Key() string                          { return s.key }
func (s *shader) Source() string                       { return s.source }
func (s *shader) ShaderType() ShaderType               { return s.shaderType }
func (s *shader) EntryPoint() string                   { return s.entryPoint }
func (s *shader) Module() *wgpu.ShaderModuleDescriptor { return s.module }
func (s *shader) Declarations() []Annotation           { return s.declarations }

func (s *shader) BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor {
	return s.groups[group]
}

func (s *shader) BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	return s.groups
}

func (s *shader) UniformBindingSize(group, binding int) (uint64, bool) {
	for _, e := range s.groups[group].Entries {
		if int(e.Binding) == binding && e.Buffer.MinBindingSize > 0 {
			return e.Buffer.MinBindingSize, true
		}
	}
	return 0, false
}

func (s *shader) VertexLayout(slot int) []wgpu.VertexBufferLayout {
	return s.vertexLayouts[slot]
}

func (s *shader) VertexLayouts() map[int][]wgpu.VertexBufferLayout {
	return s.vertexLayouts
}
