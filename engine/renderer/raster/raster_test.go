package raster

import (
	"image/color"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-triangle/engine/triangle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const size = 64

func render(t *testing.T, brightness float32, opts ...RasterOption) [][4]uint8 {
	t.Helper()
	img, err := Rasterize(size, size, triangle.DefaultVertices(), triangle.GPUFragmentUniforms{Brightness: brightness}, opts...)
	require.NoError(t, err)
	out := make([][4]uint8, 0, size*size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			c := img.RGBAAt(x, y)
			out = append(out, [4]uint8{c.R, c.G, c.B, c.A})
		}
	}
	return out
}

func at(pixels [][4]uint8, x, y int) [4]uint8 {
	return pixels[y*size+x]
}

func TestNDCMapping(t *testing.T) {
	x, y := NDCToPixel([2]float32{-1, 1}, 800, 600)
	assert.Equal(t, 0.0, x)
	assert.Equal(t, 0.0, y)

	x, y = NDCToPixel([2]float32{1, -1}, 800, 600)
	assert.Equal(t, 800.0, x)
	assert.Equal(t, 600.0, y)

	x, y = NDCToPixel([2]float32{0, 0}, 800, 600)
	assert.Equal(t, 400.0, x)
	assert.Equal(t, 300.0, y)

	ndc := PixelCenterToNDC(0, 0, 2, 2)
	assert.Equal(t, [2]float32{-0.5, 0.5}, ndc)
}

func TestRasterizeCorners(t *testing.T) {
	pixels := render(t, 1)

	top := at(pixels, 31, 1)
	assert.Greater(t, top[0], uint8(240), "top is red")
	assert.Less(t, top[1], uint8(16))
	assert.Less(t, top[2], uint8(16))

	bottomLeft := at(pixels, 1, 62)
	assert.Greater(t, bottomLeft[1], uint8(230), "bottom-left is green")
	assert.Less(t, bottomLeft[0], uint8(20))
	assert.Less(t, bottomLeft[2], uint8(20))

	bottomRight := at(pixels, 62, 62)
	assert.Greater(t, bottomRight[2], uint8(230), "bottom-right is blue")
	assert.Less(t, bottomRight[0], uint8(20))
	assert.Less(t, bottomRight[1], uint8(20))

	centre := at(pixels, 31, 42)
	for ch := range 3 {
		assert.InDelta(t, 85, int(centre[ch]), 12, "centre channel %d", ch)
	}
	assert.Equal(t, uint8(255), centre[3])
}

func TestRasterizeOutsideIsClear(t *testing.T) {
	pixels := render(t, 1)
	assert.Equal(t, [4]uint8{0, 0, 0, 255}, at(pixels, 0, 0))
	assert.Equal(t, [4]uint8{0, 0, 0, 255}, at(pixels, 63, 0))
	assert.Equal(t, [4]uint8{0, 0, 0, 255}, at(pixels, 2, 30))

	custom, err := Rasterize(size, size, triangle.DefaultVertices(), triangle.GPUFragmentUniforms{Brightness: 1},
		WithClearColor(color.RGBA{R: 10, G: 20, B: 30, A: 255}))
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 10, G: 20, B: 30, A: 255}, custom.RGBAAt(0, 0))
}

func TestBrightnessScalesColour(t *testing.T) {
	full := render(t, 1)
	half := render(t, 0.5)
	dark := render(t, 0)

	for i := range full {
		if full[i] == [4]uint8{0, 0, 0, 255} {
			continue
		}
		for ch := range 3 {
			want := float64(full[i][ch]) / 2
			assert.LessOrEqual(t, math.Abs(float64(half[i][ch])-want), 1.0, "pixel %d channel %d", i, ch)
			assert.Zero(t, dark[i][ch])
		}
		assert.Equal(t, uint8(255), half[i][3], "alpha is not scaled")
		assert.Equal(t, uint8(255), dark[i][3], "alpha is not scaled")
	}
}

func TestBrightnessClampsAtQuantisation(t *testing.T) {
	bright := render(t, 4)
	assert.Equal(t, uint8(255), at(bright, 31, 1)[0])
	assert.Equal(t, uint8(255), at(bright, 31, 42)[0])
}

func TestRasterizeDrawsBothWindings(t *testing.T) {
	v := triangle.DefaultVertices()
	cw := []triangle.GPUVertex{v[0], v[2], v[1]}

	ccwImg, err := Rasterize(size, size, v, triangle.GPUFragmentUniforms{Brightness: 1})
	require.NoError(t, err)
	cwImg, err := Rasterize(size, size, cw, triangle.GPUFragmentUniforms{Brightness: 1})
	require.NoError(t, err)
	assert.Equal(t, ccwImg.Pix, cwImg.Pix)
}

func TestSharedEdgeCoveredOnce(t *testing.T) {
	quad := []triangle.GPUVertex{
		{Position: [2]float32{-1, -1}}, {Position: [2]float32{1, -1}}, {Position: [2]float32{1, 1}},
		{Position: [2]float32{-1, -1}}, {Position: [2]float32{1, 1}}, {Position: [2]float32{-1, 1}},
	}
	const n = 8
	counts := make([]int, n*n)
	for i := 0; i < len(quad); i += 3 {
		forEachCoveredRows(n, n, quad[i:i+3], 0, n, func(px, py int, _ [3]float64) {
			counts[py*n+px]++
		})
	}
	for i, c := range counts {
		assert.Equal(t, 1, c, "pixel %d", i)
	}
}

func TestBarycentricWeightsSumToOne(t *testing.T) {
	forEachCoveredRows(size, size, triangle.DefaultVertices(), 0, size, func(px, py int, l [3]float64) {
		assert.InDelta(t, 1.0, l[0]+l[1]+l[2], 1e-9)
	})
}

func TestDegenerateAndNonFiniteDrawNothing(t *testing.T) {
	tests := []struct {
		name     string
		vertices []triangle.GPUVertex
	}{
		{
			name: "collinear",
			vertices: []triangle.GPUVertex{
				{Colour: triangle.Red, Position: [2]float32{-1, 0}},
				{Colour: triangle.Red, Position: [2]float32{0, 0}},
				{Colour: triangle.Red, Position: [2]float32{1, 0}},
			},
		},
		{
			name: "nan position",
			vertices: []triangle.GPUVertex{
				{Colour: triangle.Red, Position: [2]float32{float32(math.NaN()), 1}},
				{Colour: triangle.Red, Position: [2]float32{-1, -1}},
				{Colour: triangle.Red, Position: [2]float32{1, -1}},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := Rasterize(16, 16, tt.vertices, triangle.GPUFragmentUniforms{Brightness: 1})
			require.NoError(t, err)
			for i := 0; i < len(img.Pix); i += 4 {
				assert.Equal(t, []uint8{0, 0, 0, 255}, img.Pix[i:i+4])
			}
		})
	}
}

func TestRasterizeRejectsBadInput(t *testing.T) {
	_, err := Rasterize(0, 10, triangle.DefaultVertices(), triangle.GPUFragmentUniforms{})
	assert.ErrorIs(t, err, ErrBadTarget)

	_, err = Rasterize(10, 10, triangle.DefaultVertices()[:2], triangle.GPUFragmentUniforms{})
	assert.Error(t, err)
}

func TestCoverageMaskAgreesWithRasterize(t *testing.T) {
	mask := CoverageMask(size, size, triangle.DefaultVertices())
	pixels := render(t, 1)

	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			a := mask.AlphaAt(x, y).A
			drawn := at(pixels, x, y) != [4]uint8{0, 0, 0, 255}
			switch a {
			case 255:
				assert.True(t, drawn, "fully covered pixel (%d,%d) not drawn", x, y)
			case 0:
				assert.False(t, drawn, "uncovered pixel (%d,%d) drawn", x, y)
			}
		}
	}
}

func TestAntialiasSoftensEdges(t *testing.T) {
	hard := render(t, 1)
	soft := render(t, 1, WithAntialias(true))

	assert.Equal(t, at(hard, 31, 42), at(soft, 31, 42), "interior pixels match")
	assert.Equal(t, at(hard, 0, 0), at(soft, 0, 0), "exterior pixels match")

	var blended int
	for i := range soft {
		if soft[i] != hard[i] {
			blended++
		}
	}
	assert.Positive(t, blended, "edge pixels resolve between the clear colour and the triangle")

	var partial int
	mask := CoverageMask(size, size, triangle.DefaultVertices())
	for _, a := range mask.Pix {
		if a > 0 && a < 255 {
			partial++
		}
	}
	assert.Positive(t, partial)
}

func TestAntialiasSharedEdgeHasNoSeam(t *testing.T) {
	white := [4]float32{1, 1, 1, 1}
	quad := []triangle.GPUVertex{
		{Colour: white, Position: [2]float32{-1, 1}},
		{Colour: white, Position: [2]float32{1, 1}},
		{Colour: white, Position: [2]float32{1, -1}},
		{Colour: white, Position: [2]float32{-1, 1}},
		{Colour: white, Position: [2]float32{1, -1}},
		{Colour: white, Position: [2]float32{-1, -1}},
	}
	for _, n := range []int{32, 33} {
		img, err := Rasterize(n, n, quad, triangle.GPUFragmentUniforms{Brightness: 1}, WithAntialias(true))
		require.NoError(t, err)
		for y := 0; y < n; y++ {
			for x := 0; x < n; x++ {
				require.Equal(t, color.RGBA{255, 255, 255, 255}, img.RGBAAt(x, y), "%dx%d pixel (%d,%d)", n, n, x, y)
			}
		}
	}
}

func TestResolveAveragesSamples(t *testing.T) {
	got := resolve([]color.RGBA{{R: 255, A: 255}, {R: 255, A: 255}, {A: 255}, {A: 255}})
	assert.Equal(t, color.RGBA{R: 128, A: 255}, got)
}

func TestWorkerPoolMatchesSerial(t *testing.T) {
	vertices := append(triangle.DefaultVertices(),
		triangle.GPUVertex{Colour: triangle.Blue, Position: [2]float32{-0.5, 0.5}},
		triangle.GPUVertex{Colour: triangle.Blue, Position: [2]float32{0.5, 0.5}},
		triangle.GPUVertex{Colour: triangle.Red, Position: [2]float32{0, -0.5}},
	)
	uniforms := triangle.GPUFragmentUniforms{Brightness: 0.75}

	serial, err := Rasterize(100, 70, vertices, uniforms)
	require.NoError(t, err)

	pool := worker.NewDynamicWorkerPool(4, 64, time.Second)
	parallel, err := Rasterize(100, 70, vertices, uniforms, WithWorkerPool(pool))
	require.NoError(t, err)

	assert.Equal(t, serial.Pix, parallel.Pix)
}

func TestWorkerPoolMatchesSerialAntialiased(t *testing.T) {
	uniforms := triangle.GPUFragmentUniforms{Brightness: 1}
	serial, err := Rasterize(90, 50, triangle.DefaultVertices(), uniforms, WithAntialias(true))
	require.NoError(t, err)

	pool := worker.NewDynamicWorkerPool(3, 64, time.Second)
	parallel, err := Rasterize(90, 50, triangle.DefaultVertices(), uniforms, WithAntialias(true), WithWorkerPool(pool))
	require.NoError(t, err)

	assert.Equal(t, serial.Pix, parallel.Pix)
}

// compactWGSL drops line comments and all whitespace so statements compare independently of formatting.
func compactWGSL(src string) string {
	var b strings.Builder
	for _, line := range strings.Split(src, "\n") {
		if i := strings.Index(line, "//"); i >= 0 {
			line = line[:i]
		}
		b.WriteString(strings.Join(strings.Fields(line), ""))
	}
	return b.String()
}

// Rasterize scales rgb by brightness, keeps alpha and maps positions with w = 1. These are the
// statements in the embedded shaders that make the GPU do the same.
func TestEmbeddedShadersMatchReferenceShading(t *testing.T) {
	frag := compactWGSL(triangle.FragmentShaderSource)
	assert.Contains(t, frag, "returnvec4<f32>(colour.rgb*uniforms.brightness,colour.a);")
	assert.Equal(t, 1, strings.Count(frag, "return"), "fragment stage has a single output path")

	vert := compactWGSL(triangle.VertexShaderSource)
	assert.Contains(t, vert, "output.position=vec4<f32>(input.position,0.0,1.0);")
	assert.Contains(t, vert, "output.colour=input.colour;")
	assert.Equal(t, 1, strings.Count(vert, "output.colour="), "colour passes through unmodified")
}
