package triangle

import (
	"bytes"
	_ "embed"
	"encoding/binary"
	"fmt"
	"math"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-triangle/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// GPUVertexSource is the canonical WGSL definition of the VertexInput struct for the triangle pipeline.
// Matches GPUVertex layout exactly (24 bytes, tightly packed vertex attributes).
//
//go:embed assets/vertex.wgsl
var GPUVertexSource string

// GPUVertexSize is the byte size and array stride of a single GPUVertex.
const GPUVertexSize = 24

// GPUVertex is the GPU-aligned representation of a single triangle corner.
// Matches the WGSL VertexInput struct layout exactly (see GPUVertexSource).
// Size: 24 bytes. Vertex buffer attributes carry explicit offsets, so no padding is inserted
// between Colour and Position.
type GPUVertex struct {
	Colour   [4]float32 // offset  0: RGBA colour, passed through unclamped (vec4<f32>, @location(0))
	Position [2]float32 // offset 16: position in normalized device coordinates (vec2<f32>, @location(1))
}

// compile-time size pin: both lines fail to build if GPUVertex stops being 24 bytes.
var (
	_ [GPUVertexSize - unsafe.Sizeof(GPUVertex{})]struct{}
	_ [unsafe.Sizeof(GPUVertex{}) - GPUVertexSize]struct{}
)

// Size returns the size of the GPUVertex struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes (24)
func (g *GPUVertex) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUVertex struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 24-byte buffer ready for GPU upload
func (g *GPUVertex) Marshal() []byte {
	buf := make([]byte, GPUVertexSize)
	g.put(buf)
	return buf
}

// Unmarshal reads a GPUVertex back from its 24-byte GPU representation.
// Component values are copied bit-for-bit; NaN, Inf and out-of-range values are preserved.
//
// Parameters:
//   - data: at least 24 bytes of little-endian vertex data
//
// Returns:
//   - error: an error if data is shorter than a single vertex
func (g *GPUVertex) Unmarshal(data []byte) error {
	if len(data) < GPUVertexSize {
		return fmt.Errorf("vertex data is %d bytes, need %d", len(data), GPUVertexSize)
	}
	for i := range 4 {
		g.Colour[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	for i := range 2 {
		g.Position[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[16+i*4:]))
	}
	return nil
}

func (g *GPUVertex) put(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(g.Colour[0]))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(g.Colour[1]))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(g.Colour[2]))
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(g.Colour[3]))
	binary.LittleEndian.PutUint32(buf[16:20], math.Float32bits(g.Position[0]))
	binary.LittleEndian.PutUint32(buf[20:24], math.Float32bits(g.Position[1]))
}

// MarshalVertices serializes an ordered vertex sequence into one contiguous buffer.
// Vertex i occupies bytes [i*24, (i+1)*24). The sequence length is not checked here;
// the renderer rejects counts that do not form whole triangles when the buffer is bound.
//
// Parameters:
//   - vertices: the vertex sequence, in draw order
//
// Returns:
//   - []byte: len(vertices)*24 bytes, or nil for an empty sequence
func MarshalVertices(vertices []GPUVertex) []byte {
	if len(vertices) == 0 {
		return nil
	}
	// GPUVertex has no padding, so on little-endian hosts its memory is already the GPU encoding.
	if common.NativeLittleEndian() {
		return bytes.Clone(common.SliceToBytes(vertices))
	}
	buf := make([]byte, len(vertices)*GPUVertexSize)
	for i := range vertices {
		vertices[i].put(buf[i*GPUVertexSize:])
	}
	return buf
}

// UnmarshalVertices decodes a contiguous vertex buffer back into its vertex sequence.
//
// Parameters:
//   - data: a buffer whose length is a multiple of 24
//
// Returns:
//   - []GPUVertex: the decoded vertices in buffer order
//   - error: an error if the buffer length is not a whole number of vertices
func UnmarshalVertices(data []byte) ([]GPUVertex, error) {
	if len(data)%GPUVertexSize != 0 {
		return nil, fmt.Errorf("vertex buffer length %d is not a multiple of the %d-byte stride", len(data), GPUVertexSize)
	}
	out := make([]GPUVertex, len(data)/GPUVertexSize)
	for i := range out {
		if err := out[i].Unmarshal(data[i*GPUVertexSize:]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// VertexBufferLayout returns the host-side declaration of the GPUVertex layout for vertex buffer slot 0.
// Offsets and stride are taken from the Go struct itself so the declaration cannot drift from Marshal.
//
// Returns:
//   - wgpu.VertexBufferLayout: per-vertex layout with colour at location 0 and position at location 1
func VertexBufferLayout() wgpu.VertexBufferLayout {
	return wgpu.VertexBufferLayout{
		ArrayStride: uint64(unsafe.Sizeof(GPUVertex{})),
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes: []wgpu.VertexAttribute{
			{
				Format:         wgpu.VertexFormatFloat32x4,
				Offset:         uint64(unsafe.Offsetof(GPUVertex{}.Colour)),
				ShaderLocation: 0,
			},
			{
				Format:         wgpu.VertexFormatFloat32x2,
				Offset:         uint64(unsafe.Offsetof(GPUVertex{}.Position)),
				ShaderLocation: 1,
			},
		},
	}
}

// GPUFragmentUniformsSource is the canonical WGSL definition of the FragmentUniforms struct.
// Matches GPUFragmentUniforms layout exactly (4 bytes).
//
//go:embed assets/fragment_uniforms.wgsl
var GPUFragmentUniformsSource string

// GPUFragmentUniformsSize is the byte size of GPUFragmentUniforms and the uniform binding it fills.
const GPUFragmentUniformsSize = 4

// GPUFragmentUniforms is the GPU-aligned representation of the per-draw fragment parameters.
// Matches the WGSL FragmentUniforms struct layout exactly (see GPUFragmentUniformsSource).
// Size: 4 bytes.
type GPUFragmentUniforms struct {
	Brightness float32 // offset 0: multiplier applied to the fragment colour (f32)
}

var (
	_ [GPUFragmentUniformsSize - unsafe.Sizeof(GPUFragmentUniforms{})]struct{}
	_ [unsafe.Sizeof(GPUFragmentUniforms{}) - GPUFragmentUniformsSize]struct{}
)

// Size returns the size of the GPUFragmentUniforms struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes (4)
func (g *GPUFragmentUniforms) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUFragmentUniforms struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 4-byte buffer ready for GPU upload
func (g *GPUFragmentUniforms) Marshal() []byte {
	if common.NativeLittleEndian() {
		return bytes.Clone(common.StructToBytes(g))
	}
	buf := make([]byte, GPUFragmentUniformsSize)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(g.Brightness))
	return buf
}

// Unmarshal reads GPUFragmentUniforms back from its 4-byte GPU representation.
//
// Parameters:
//   - data: at least 4 bytes of little-endian uniform data
//
// Returns:
//   - error: an error if data is shorter than the struct
func (g *GPUFragmentUniforms) Unmarshal(data []byte) error {
	if len(data) < GPUFragmentUniformsSize {
		return fmt.Errorf("fragment uniform data is %d bytes, need %d", len(data), GPUFragmentUniformsSize)
	}
	g.Brightness = math.Float32frombits(binary.LittleEndian.Uint32(data[0:4]))
	return nil
}
