package triangle

import (
	"math"
	"testing"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGPUVertexLayout(t *testing.T) {
	var v GPUVertex
	assert.Equal(t, 24, v.Size())
	assert.Equal(t, uintptr(0), unsafe.Offsetof(v.Colour))
	assert.Equal(t, uintptr(16), unsafe.Offsetof(v.Position))
	assert.Len(t, v.Marshal(), 24)

	var u GPUFragmentUniforms
	assert.Equal(t, 4, u.Size())
	assert.Len(t, u.Marshal(), 4)
}

func TestMarshalVerticesTriangleIs72Bytes(t *testing.T) {
	buf := MarshalVertices(DefaultVertices())
	assert.Len(t, buf, 3*GPUVertexSize)
	assert.Nil(t, MarshalVertices(nil))
}

func TestGPUVertexMarshalByteOrder(t *testing.T) {
	v := GPUVertex{Colour: [4]float32{1, 0, 0, 1}, Position: [2]float32{0, 1}}
	buf := v.Marshal()

	one := []byte{0x00, 0x00, 0x80, 0x3f}
	zero := []byte{0, 0, 0, 0}
	assert.Equal(t, one, buf[0:4])
	assert.Equal(t, zero, buf[4:8])
	assert.Equal(t, zero, buf[8:12])
	assert.Equal(t, one, buf[12:16])
	assert.Equal(t, zero, buf[16:20])
	assert.Equal(t, one, buf[20:24])
}

func TestGPUVertexRoundTripIsBitIdentical(t *testing.T) {
	nan := math.Float32frombits(0x7fc00001)
	tests := []struct {
		name string
		in   GPUVertex
	}{
		{"nominal", GPUVertex{Colour: [4]float32{0.25, 0.5, 0.75, 1}, Position: [2]float32{-0.5, 0.5}}},
		{"out of range colour", GPUVertex{Colour: [4]float32{2, -1, 7.5, -0.25}, Position: [2]float32{0, 0}}},
		{"clipped position", GPUVertex{Colour: Red, Position: [2]float32{-3, 12}}},
		{"non finite", GPUVertex{
			Colour:   [4]float32{nan, float32(math.Inf(1)), float32(math.Inf(-1)), math.Float32frombits(0x80000000)},
			Position: [2]float32{math.SmallestNonzeroFloat32, math.MaxFloat32},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out GPUVertex
			require.NoError(t, out.Unmarshal(tt.in.Marshal()))
			for i := range 4 {
				assert.Equal(t, math.Float32bits(tt.in.Colour[i]), math.Float32bits(out.Colour[i]), "colour[%d]", i)
			}
			for i := range 2 {
				assert.Equal(t, math.Float32bits(tt.in.Position[i]), math.Float32bits(out.Position[i]), "position[%d]", i)
			}
		})
	}
}

func TestGPUFragmentUniformsRoundTrip(t *testing.T) {
	for _, b := range []float32{1, 0.5, 0, -4, 1e9, float32(math.Inf(1))} {
		in := GPUFragmentUniforms{Brightness: b}
		var out GPUFragmentUniforms
		require.NoError(t, out.Unmarshal(in.Marshal()))
		assert.Equal(t, math.Float32bits(b), math.Float32bits(out.Brightness))
	}
}

func TestUnmarshalShortBuffers(t *testing.T) {
	var v GPUVertex
	assert.Error(t, v.Unmarshal(make([]byte, 23)))
	var u GPUFragmentUniforms
	assert.Error(t, u.Unmarshal(make([]byte, 3)))
}

func TestUnmarshalVertices(t *testing.T) {
	in := DefaultVertices()
	out, err := UnmarshalVertices(MarshalVertices(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = UnmarshalVertices(make([]byte, 25))
	assert.Error(t, err)
}

func TestMarshalIsRepeatable(t *testing.T) {
	vertices := DefaultVertices()
	uniforms := GPUFragmentUniforms{Brightness: 0.5}

	assert.Equal(t, MarshalVertices(vertices), MarshalVertices(vertices))
	assert.Equal(t, uniforms.Marshal(), uniforms.Marshal())
}

func TestMarshalVerticesMatchesPerVertexEncoding(t *testing.T) {
	vertices := append(DefaultVertices(), GPUVertex{
		Colour:   [4]float32{float32(math.NaN()), float32(math.Inf(-1)), -0.5, 2},
		Position: [2]float32{float32(math.Inf(1)), -1e-40},
	})
	var want []byte
	for i := range vertices {
		want = append(want, vertices[i].Marshal()...)
	}
	got := MarshalVertices(vertices)
	assert.Equal(t, want, got)

	got[0] ^= 0xff
	assert.Equal(t, Red, vertices[0].Colour, "marshalled buffer does not alias the vertices")
}

func TestVertexBufferLayout(t *testing.T) {
	layout := VertexBufferLayout()
	assert.Equal(t, uint64(24), layout.ArrayStride)
	assert.Equal(t, wgpu.VertexStepModeVertex, layout.StepMode)
	require.Len(t, layout.Attributes, 2)

	assert.Equal(t, wgpu.VertexFormatFloat32x4, layout.Attributes[0].Format)
	assert.Equal(t, uint64(0), layout.Attributes[0].Offset)
	assert.Equal(t, uint32(0), layout.Attributes[0].ShaderLocation)

	assert.Equal(t, wgpu.VertexFormatFloat32x2, layout.Attributes[1].Format)
	assert.Equal(t, uint64(16), layout.Attributes[1].Offset)
	assert.Equal(t, uint32(1), layout.Attributes[1].ShaderLocation)
}
