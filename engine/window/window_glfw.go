package window

import (
	"errors"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// open creates the GLFW window without a client API, since wgpu owns the surface, and wires
// key and framebuffer-size events.
func (w *engineWindow) open() error {
	if err := glfw.Init(); err != nil {
		return fmt.Errorf("initialize GLFW: %w", err)
	}
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)

	win, err := glfw.CreateWindow(w.width, w.height, w.title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return fmt.Errorf("create GLFW window: %w", err)
	}
	l := w.limits
	win.SetSizeLimits(glfwBound(l.minWidth), glfwBound(l.minHeight), glfwBound(l.maxWidth), glfwBound(l.maxHeight))
	win.SetKeyCallback(w.handleKey)

	// framebuffer size, not window size: they differ on high-DPI displays and the surface
	// is configured in pixels
	win.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.width, w.height = width, height
		if w.onResize != nil {
			w.onResize(width, height)
		}
	})
	w.width, w.height = win.GetFramebufferSize()

	w.glfw = win
	w.running = true
	return nil
}

// glfwBound maps an unset (zero) limit to glfw.DontCare.
func glfwBound(v int) int {
	if v <= 0 {
		return glfw.DontCare
	}
	return v
}

func (w *engineWindow) handleKey(win *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
	switch {
	case key == glfw.KeyEscape:
		if action == glfw.Press {
			w.running = false
			win.SetShouldClose(true)
		}
	case action == glfw.Release:
		if w.onKeyUp != nil {
			w.onKeyUp(uint32(key))
		}
	case w.onKeyDown != nil:
		w.onKeyDown(uint32(key))
	}
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	if w.glfw == nil {
		return nil
	}
	return wgpuglfw.GetSurfaceDescriptor(w.glfw)
}

func (w *engineWindow) IsRunning() bool {
	return w.glfw != nil && w.running && !w.destroyed && !w.glfw.ShouldClose()
}

func (w *engineWindow) Close() error {
	if w.glfw == nil {
		return errors.New("window is not initialized")
	}
	if w.destroyed {
		return nil
	}
	w.running = false
	w.destroyed = true
	w.glfw.Destroy()
	glfw.Terminate()
	return nil
}
