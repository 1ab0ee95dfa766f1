package window

import (
	"fmt"
	"runtime"

	"github.com/Carmen-Shannon/oxy-triangle/common"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/glfw/v3.3/glfw"
)

const (
	// DefaultTitle is the title used when WithTitle is not given.
	DefaultTitle = "Hello, Triangle"

	// DefaultWidth and DefaultHeight are the initial client size in pixels.
	DefaultWidth  = 800
	DefaultHeight = 600
)

// Window is the platform window the renderer presents into. It reports framebuffer resizes
// and key events, and closes itself on Escape.
type Window interface {
	// SetUpdateCallback sets a function run once per ProcessMessages iteration, or nil.
	SetUpdateCallback(callback func())

	// SetResizeCallback sets the function receiving the new framebuffer size in pixels.
	SetResizeCallback(callback func(width, height int))

	// SetKeyDownCallback sets the function receiving GLFW key codes on press and repeat.
	// Escape is handled by the window and never forwarded.
	SetKeyDownCallback(callback func(keyCode uint32))

	// SetKeyUpCallback sets the function receiving GLFW key codes on release.
	SetKeyUpCallback(callback func(keyCode uint32))

	// SurfaceDescriptor describes the native surface for wgpu, or nil before the platform
	// window exists.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the per-platform descriptor from wgpuglfw
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// IsRunning reports whether the window is open and has not been asked to close.
	IsRunning() bool

	// Close destroys the window. Later calls do nothing.
	//
	// Returns:
	//   - error: an error if the platform window was never created
	Close() error

	// ProcessMessages polls events until the window stops running, calling the update
	// callback after each poll.
	ProcessMessages()

	// Width and Height are the current framebuffer size in pixels.
	Width() int
	Height() int
}

type sizeLimits struct {
	minWidth, minHeight int
	maxWidth, maxHeight int
}

// clamp bounds a requested size to the limits; zero limits are ignored.
func (l sizeLimits) clamp(width, height int) (int, int) {
	bound := func(v, lo, hi int) int {
		if lo > 0 {
			v = max(v, lo)
		}
		if hi > 0 {
			v = min(v, hi)
		}
		return v
	}
	return bound(width, l.minWidth, l.maxWidth), bound(height, l.minHeight, l.maxHeight)
}

type engineWindow struct {
	title         string
	limits        sizeLimits
	width, height int

	// nil until the platform window is created
	glfw      *glfw.Window
	running   bool
	destroyed bool

	onUpdate  func()
	onResize  func(width, height int)
	onKeyDown func(keyCode uint32)
	onKeyUp   func(keyCode uint32)
}

var _ Window = &engineWindow{}

// NewWindow opens a GLFW window configured by options. The calling goroutine is locked to its
// OS thread and must be the one that later calls ProcessMessages and Close.
//
// Parameters:
//   - options: functional options, see the With* functions
//
// Returns:
//   - Window: the open window
//   - error: an error if GLFW or the window could not be created
func NewWindow(options ...WindowBuilderOption) (Window, error) {
	w := newEngineWindow(options...)
	runtime.LockOSThread()
	if err := w.open(); err != nil {
		return nil, fmt.Errorf("failed to create platform window: %w", err)
	}
	common.Logger().Info("window created", "title", w.title, "width", w.width, "height", w.height)
	return w, nil
}

// newEngineWindow applies defaults and options without touching GLFW.
func newEngineWindow(options ...WindowBuilderOption) *engineWindow {
	w := &engineWindow{
		title:  DefaultTitle,
		limits: sizeLimits{minWidth: 200, minHeight: 200, maxWidth: 1600, maxHeight: 1200},
		width:  DefaultWidth,
		height: DefaultHeight,
	}
	for _, opt := range options {
		opt(w)
	}
	w.width, w.height = w.limits.clamp(w.width, w.height)
	return w
}

func (w *engineWindow) SetUpdateCallback(callback func())                  { w.onUpdate = callback }
func (w *engineWindow) SetResizeCallback(callback func(width, height int)) { w.onResize = callback }
func (w *engineWindow) SetKeyDownCallback(callback func(keyCode uint32))   { w.onKeyDown = callback }
func (w *engineWindow) SetKeyUpCallback(callback func(keyCode uint32))     { w.onKeyUp = callback }

func (w *engineWindow) Width() int  { return w.width }
func (w *engineWindow) Height() int { return w.height }

func (w *engineWindow) ProcessMessages() {
	for w.IsRunning() {
		glfw.PollEvents()
		if !w.IsRunning() {
			return
		}
		if w.onUpdate != nil {
			w.onUpdate()
		}
		runtime.Gosched()
	}
}
