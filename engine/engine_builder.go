package engine

import (
	"github.com/Carmen-Shannon/oxy-triangle/engine/scene"
	"github.com/Carmen-Shannon/oxy-triangle/engine/window"
)

// EngineBuilderOption configures an engine in NewEngine.
type EngineBuilderOption func(*engine)

// WithProfiling turns frame timing logs on or off from the start.
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) { e.profile.Store(enabled) }
}

// WithTickRate sets the scene update rate in ticks per second. Values <= 0 mean 60.
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) { e.tickEvery = tickInterval(fps) }
}

// WithWindow gives the engine the window whose events Run pumps. Without one Run fails
// with ErrNoWindow.
//
// Parameters:
//   - w: the window, typically from window.NewWindow
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) { e.window = w }
}

// WithScene registers s under key, as AddScene does.
func WithScene(key int, s scene.Scene) EngineBuilderOption {
	return func(e *engine) { e.scenes[key] = s }
}

// WithRenderFrameLimit caps the render loop at fps frames per second. 0 leaves it uncapped.
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) { e.frameEvery = frameInterval(fps) }
}
