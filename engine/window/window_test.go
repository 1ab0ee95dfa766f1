package window

import (
	"testing"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/stretchr/testify/assert"
)

func TestNewEngineWindowDefaults(t *testing.T) {
	w := newEngineWindow()
	assert.Equal(t, DefaultTitle, w.title)
	assert.Equal(t, DefaultWidth, w.Width())
	assert.Equal(t, DefaultHeight, w.Height())
	assert.Nil(t, w.SurfaceDescriptor())
	assert.False(t, w.IsRunning())
	assert.Error(t, w.Close())
}

func TestNewEngineWindowOptions(t *testing.T) {
	w := newEngineWindow(WithTitle("triangle"), WithSize(1024, 768))
	assert.Equal(t, "triangle", w.title)
	assert.Equal(t, 1024, w.Width())
	assert.Equal(t, 768, w.Height())
}

func TestNewEngineWindowClampsToBounds(t *testing.T) {
	w := newEngineWindow(WithSize(5000, 10), WithSizeLimits(200, 240, 1920, 1200))
	assert.Equal(t, 1920, w.Width())
	assert.Equal(t, 240, w.Height())

	w = newEngineWindow(WithSizeLimits(0, 0, 0, 0), WithSize(5000, 10))
	assert.Equal(t, 5000, w.Width())
	assert.Equal(t, 10, w.Height())
}

func TestWithSizeZeroKeepsDefault(t *testing.T) {
	w := newEngineWindow(WithSize(0, 700))
	assert.Equal(t, DefaultWidth, w.Width())
	assert.Equal(t, 700, w.Height())
}

func TestCallbacksAreStored(t *testing.T) {
	w := newEngineWindow()
	var got [2]int
	w.SetResizeCallback(func(width, height int) { got = [2]int{width, height} })
	w.onResize(640, 480)
	assert.Equal(t, [2]int{640, 480}, got)

	var key uint32
	w.SetKeyDownCallback(func(k uint32) { key = k })
	w.onKeyDown(32)
	assert.Equal(t, uint32(32), key)
}

func TestEmptyTitleKeepsDefault(t *testing.T) {
	w := newEngineWindow(WithTitle(""))
	assert.Equal(t, DefaultTitle, w.title)
}

func TestHandleKeyRoutesPressAndRelease(t *testing.T) {
	w := newEngineWindow()
	var down, up []uint32
	w.SetKeyDownCallback(func(k uint32) { down = append(down, k) })
	w.SetKeyUpCallback(func(k uint32) { up = append(up, k) })

	w.handleKey(nil, glfw.KeySpace, 0, glfw.Press, 0)
	w.handleKey(nil, glfw.KeySpace, 0, glfw.Repeat, 0)
	w.handleKey(nil, glfw.KeySpace, 0, glfw.Release, 0)
	w.handleKey(nil, glfw.KeyEscape, 0, glfw.Release, 0)

	assert.Equal(t, []uint32{uint32(glfw.KeySpace), uint32(glfw.KeySpace)}, down)
	assert.Equal(t, []uint32{uint32(glfw.KeySpace)}, up)
}
