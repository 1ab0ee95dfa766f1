// Package raster is a CPU reference for the triangle pipeline. It reproduces what the GPU
// draws for a vertex sequence and fragment uniforms, so frames can be checked without an adapter.
//
// Coordinates follow WebGPU: normalized device x runs left to right and y runs bottom to top,
// while image rows run top to bottom. Coverage is sampled at pixel centres with the top-left
// fill rule, colours are interpolated linearly across each triangle, and the interpolated rgb
// is scaled by the brightness uniform before being quantised to 8 bits. With antialiasing the
// target holds four samples per pixel at the standard 4x positions and is resolved by averaging.
package raster

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"sync"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-triangle/engine/triangle"
	"golang.org/x/image/vector"
)

// ErrBadTarget is returned for a non-positive image size.
var ErrBadTarget = errors.New("raster target must have positive width and height")

// RasterOption is a functional option used to configure Rasterize.
type RasterOption func(*rasterConfig)

type rasterConfig struct {
	clearColor color.RGBA
	antialias  bool
	pool       worker.DynamicWorkerPool
}

// rowsPerTask is the height of the band each pool task shades.
const rowsPerTask = 16

// WithClearColor sets the colour of pixels no triangle covers. Defaults to opaque black.
//
// Parameters:
//   - c: the clear colour
//
// Returns:
//   - RasterOption: a function that sets the clear colour
func WithClearColor(c color.RGBA) RasterOption {
	return func(cfg *rasterConfig) {
		cfg.clearColor = c
	}
}

// WithAntialias renders into a 4x multisampled target and resolves it: each pixel is shaded once
// at its centre, the colour is stored in every sample the triangle covers, and the samples are
// averaged. Edges shared by two triangles cover each sample exactly once, so they leave no seam.
//
// Parameters:
//   - enabled: true to blend by coverage
//
// Returns:
//   - RasterOption: a function that sets antialiasing
func WithAntialias(enabled bool) RasterOption {
	return func(cfg *rasterConfig) {
		cfg.antialias = enabled
	}
}

// WithWorkerPool shades each triangle in row bands on pool. Triangles still complete in order,
// so the output is identical to the serial path.
//
// Parameters:
//   - pool: the worker pool to submit row bands to
//
// Returns:
//   - RasterOption: a function that sets the worker pool
func WithWorkerPool(pool worker.DynamicWorkerPool) RasterOption {
	return func(cfg *rasterConfig) {
		cfg.pool = pool
	}
}

// point is a vertex position in pixel space, y down.
type point struct {
	x, y float64
}

// samples4x are the standard 4x multisample positions within a pixel, from its top-left corner.
var samples4x = []point{{0.375, 0.125}, {0.875, 0.375}, {0.125, 0.625}, {0.625, 0.875}}

var centreSample = []point{{0.5, 0.5}}

// NDCToPixel maps a normalized device position to pixel space for a width × height target.
// (-1, 1) maps to the top-left corner (0, 0) and (1, -1) to (width, height).
//
// Parameters:
//   - ndc: the normalized device position
//   - width: target width in pixels
//   - height: target height in pixels
//
// Returns:
//   - float64: the pixel-space x
//   - float64: the pixel-space y
func NDCToPixel(ndc [2]float32, width, height int) (float64, float64) {
	x := (float64(ndc[0]) + 1) * 0.5 * float64(width)
	y := (1 - float64(ndc[1])) * 0.5 * float64(height)
	return x, y
}

// PixelCenterToNDC returns the normalized device position of the centre of pixel (px, py).
//
// Parameters:
//   - px: pixel column
//   - py: pixel row, 0 at the top
//   - width: target width in pixels
//   - height: target height in pixels
//
// Returns:
//   - [2]float32: the normalized device position
func PixelCenterToNDC(px, py, width, height int) [2]float32 {
	x := (float64(px)+0.5)/float64(width)*2 - 1
	y := 1 - (float64(py)+0.5)/float64(height)*2
	return [2]float32{float32(x), float32(y)}
}

// Rasterize draws a triangle list into a new width × height image. Triangles are drawn in order
// with later triangles replacing earlier ones, matching a pipeline with blending disabled.
// Both windings are drawn. Degenerate triangles and triangles with non-finite positions draw nothing.
//
// Parameters:
//   - width: image width in pixels
//   - height: image height in pixels
//   - vertices: the vertex sequence, three vertices per triangle
//   - uniforms: the fragment uniforms in effect for the draw
//   - opts: optional clear colour and antialiasing
//
// Returns:
//   - *image.RGBA: the rendered image
//   - error: ErrBadTarget, or an error if the vertex count is not a multiple of three
func Rasterize(width, height int, vertices []triangle.GPUVertex, uniforms triangle.GPUFragmentUniforms, opts ...RasterOption) (*image.RGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrBadTarget, width, height)
	}
	if len(vertices)%triangle.VerticesPerTriangle != 0 {
		return nil, fmt.Errorf("vertex count %d is not a multiple of %d", len(vertices), triangle.VerticesPerTriangle)
	}

	cfg := rasterConfig{clearColor: color.RGBA{A: 255}}
	for _, opt := range opts {
		opt(&cfg)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i+0] = cfg.clearColor.R
		img.Pix[i+1] = cfg.clearColor.G
		img.Pix[i+2] = cfg.clearColor.B
		img.Pix[i+3] = cfg.clearColor.A
	}
	if cfg.antialias {
		drawMultisampled(img, vertices, uniforms.Brightness, cfg)
		return img, nil
	}

	for i := 0; i < len(vertices); i += triangle.VerticesPerTriangle {
		tri := vertices[i : i+triangle.VerticesPerTriangle]
		draw := func(y0, y1 int) {
			forEachCoveredRows(width, height, tri, y0, y1, func(px, py int, l [3]float64) {
				img.SetRGBA(px, py, shade(tri, l, uniforms.Brightness))
			})
		}
		if cfg.pool == nil {
			draw(0, height)
			continue
		}
		parallelRows(cfg.pool, height, draw)
	}
	return img, nil
}

// parallelRows runs fn over [0, height) in bands on pool and waits for every band.
// Bands never share a row, so fn may write its rows without locking.
func parallelRows(pool worker.DynamicWorkerPool, height int, fn func(y0, y1 int)) {
	var wg sync.WaitGroup
	id := 0
	for y0 := 0; y0 < height; y0 += rowsPerTask {
		y1 := min(y0+rowsPerTask, height)
		wg.Add(1)
		pool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()
				fn(y0, y1)
				return nil, nil
			},
		})
		id++
	}
	wg.Wait()
}

// forEachCoveredRows calls fn for every pixel in rows [y0, y1) whose centre lies inside the
// triangle, with the barycentric weights of that centre. A centre exactly on a shared edge
// belongs to one triangle only.
func forEachCoveredRows(width, height int, tri []triangle.GPUVertex, y0, y1 int, fn func(px, py int, l [3]float64)) {
	forEachCoveredSample(width, height, tri, y0, y1, centreSample, func(px, py, _ int, l [3]float64) {
		fn(px, py, l)
	})
}

// forEachCoveredSample calls fn for every sample position of every pixel in rows [y0, y1) that
// lies inside the triangle, with the sample index and its barycentric weights. The top-left rule
// applies per sample.
func forEachCoveredSample(width, height int, tri []triangle.GPUVertex, y0, y1 int, samples []point, fn func(px, py, k int, l [3]float64)) {
	p, ok := toPixelSpace(width, height, tri)
	if !ok {
		return
	}
	area := edge(p[0], p[1], p[2])
	if area == 0 {
		return
	}
	order := [3]int{0, 1, 2}
	if area < 0 {
		// Reorder so that area is positive; the weights below are mapped back through order.
		p[1], p[2] = p[2], p[1]
		order = [3]int{0, 2, 1}
		area = -area
	}

	minX, maxX, minY, maxY := bounds(p, width, height)
	minY = max(minY, y0)
	maxY = min(maxY, y1-1)
	bias := [3]bool{
		isTopLeft(p[1], p[2]),
		isTopLeft(p[2], p[0]),
		isTopLeft(p[0], p[1]),
	}

	for py := minY; py <= maxY; py++ {
		for px := minX; px <= maxX; px++ {
			for k, off := range samples {
				s := point{float64(px) + off.x, float64(py) + off.y}
				w := [3]float64{
					edge(p[1], p[2], s),
					edge(p[2], p[0], s),
					edge(p[0], p[1], s),
				}
				if !inside(w, bias) {
					continue
				}
				var l [3]float64
				for j := range 3 {
					l[order[j]] = w[j] / area
				}
				fn(px, py, k, l)
			}
		}
	}
}

// drawMultisampled draws the triangle list into a 4x sample buffer initialised from img and
// resolves it back into img. Each pixel a triangle touches is shaded once, at its centre.
func drawMultisampled(img *image.RGBA, vertices []triangle.GPUVertex, brightness float32, cfg rasterConfig) {
	width, height := img.Bounds().Dx(), img.Bounds().Dy()
	n := len(samples4x)
	buf := make([]color.RGBA, width*height*n)
	for i := range buf {
		buf[i] = cfg.clearColor
	}

	for i := 0; i < len(vertices); i += triangle.VerticesPerTriangle {
		tri := vertices[i : i+triangle.VerticesPerTriangle]
		p, ok := toPixelSpace(width, height, tri)
		if !ok {
			continue
		}
		area := edge(p[0], p[1], p[2])
		draw := func(y0, y1 int) {
			lastX, lastY := -1, -1
			var fg color.RGBA
			forEachCoveredSample(width, height, tri, y0, y1, samples4x, func(px, py, k int, _ [3]float64) {
				if px != lastX || py != lastY {
					c := point{float64(px) + 0.5, float64(py) + 0.5}
					fg = shade(tri, clampWeights([3]float64{
						edge(p[1], p[2], c) / area,
						edge(p[2], p[0], c) / area,
						edge(p[0], p[1], c) / area,
					}), brightness)
					lastX, lastY = px, py
				}
				buf[(py*width+px)*n+k] = fg
			})
		}
		if cfg.pool == nil {
			draw(0, height)
			continue
		}
		parallelRows(cfg.pool, height, draw)
	}

	for py := 0; py < height; py++ {
		for px := 0; px < width; px++ {
			img.SetRGBA(px, py, resolve(buf[(py*width+px)*n:(py*width+px+1)*n]))
		}
	}
}

// resolve box-filters the samples of one pixel.
func resolve(samples []color.RGBA) color.RGBA {
	var r, g, b, a int
	for _, c := range samples {
		r += int(c.R)
		g += int(c.G)
		b += int(c.B)
		a += int(c.A)
	}
	n := len(samples)
	return color.RGBA{
		R: uint8((r + n/2) / n),
		G: uint8((g + n/2) / n),
		B: uint8((b + n/2) / n),
		A: uint8((a + n/2) / n),
	}
}

// CoverageMask returns the area coverage of every pixel by the triangles in vertices.
// Unlike Rasterize, coverage is fractional along edges.
//
// Parameters:
//   - width: mask width in pixels
//   - height: mask height in pixels
//   - vertices: the vertex sequence, three vertices per triangle
//
// Returns:
//   - *image.Alpha: per-pixel coverage, 255 for fully covered pixels
func CoverageMask(width, height int, vertices []triangle.GPUVertex) *image.Alpha {
	out := image.NewAlpha(image.Rect(0, 0, width, height))
	for i := 0; i+triangle.VerticesPerTriangle <= len(vertices); i += triangle.VerticesPerTriangle {
		m := coverage(width, height, vertices[i:i+triangle.VerticesPerTriangle])
		if m == nil {
			continue
		}
		for j, a := range m.Pix {
			if a > out.Pix[j] {
				out.Pix[j] = a
			}
		}
	}
	return out
}

func coverage(width, height int, tri []triangle.GPUVertex) *image.Alpha {
	p, ok := toPixelSpace(width, height, tri)
	if !ok || edge(p[0], p[1], p[2]) == 0 {
		return nil
	}
	z := vector.NewRasterizer(width, height)
	z.MoveTo(float32(p[0].x), float32(p[0].y))
	z.LineTo(float32(p[1].x), float32(p[1].y))
	z.LineTo(float32(p[2].x), float32(p[2].y))
	z.ClosePath()

	mask := image.NewAlpha(image.Rect(0, 0, width, height))
	z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
	return mask
}

func toPixelSpace(width, height int, tri []triangle.GPUVertex) ([3]point, bool) {
	var p [3]point
	for i := range 3 {
		x, y := NDCToPixel(tri[i].Position, width, height)
		if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
			return p, false
		}
		p[i] = point{x, y}
	}
	return p, true
}

// edge is twice the signed area of (a, b, p); positive when p is clockwise of a→b on a y-down grid.
func edge(a, b, p point) float64 {
	return (b.x-a.x)*(p.y-a.y) - (b.y-a.y)*(p.x-a.x)
}

// isTopLeft reports whether a→b is a top or left edge of a clockwise (y-down) triangle.
func isTopLeft(a, b point) bool {
	dx, dy := b.x-a.x, b.y-a.y
	return (dy == 0 && dx > 0) || dy < 0
}

func inside(w [3]float64, bias [3]bool) bool {
	for k := range 3 {
		if w[k] < 0 || (w[k] == 0 && !bias[k]) {
			return false
		}
	}
	return true
}

func bounds(p [3]point, width, height int) (minX, maxX, minY, maxY int) {
	clamp := func(v float64, hi int) int {
		return int(math.Max(0, math.Min(v, float64(hi))))
	}
	minX = clamp(math.Floor(math.Min(p[0].x, math.Min(p[1].x, p[2].x))), width-1)
	maxX = clamp(math.Ceil(math.Max(p[0].x, math.Max(p[1].x, p[2].x))), width-1)
	minY = clamp(math.Floor(math.Min(p[0].y, math.Min(p[1].y, p[2].y))), height-1)
	maxY = clamp(math.Ceil(math.Max(p[0].y, math.Max(p[1].y, p[2].y))), height-1)
	return
}

func clampWeights(l [3]float64) [3]float64 {
	var sum float64
	for k := range 3 {
		l[k] = math.Max(0, l[k])
		sum += l[k]
	}
	if sum == 0 {
		return [3]float64{1.0 / 3, 1.0 / 3, 1.0 / 3}
	}
	for k := range 3 {
		l[k] /= sum
	}
	return l
}

// shade interpolates the vertex colours and applies the fragment stage: rgb is scaled by
// brightness and alpha passes through.
func shade(tri []triangle.GPUVertex, l [3]float64, brightness float32) color.RGBA {
	var c [4]float64
	for k := range 3 {
		for ch := range 4 {
			c[ch] += l[k] * float64(tri[k].Colour[ch])
		}
	}
	b := float64(brightness)
	return color.RGBA{
		R: quantise(c[0] * b),
		G: quantise(c[1] * b),
		B: quantise(c[2] * b),
		A: quantise(c[3]),
	}
}

// quantise converts a unorm channel to 8 bits, clamping out-of-range values. NaN maps to 0.
func quantise(v float64) uint8 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(math.Round(v * 255))
}
