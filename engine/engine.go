package engine

import (
	"errors"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-triangle/common"
	"github.com/Carmen-Shannon/oxy-triangle/engine/profiler"
	"github.com/Carmen-Shannon/oxy-triangle/engine/renderer"
	"github.com/Carmen-Shannon/oxy-triangle/engine/scene"
	"github.com/Carmen-Shannon/oxy-triangle/engine/window"
)

// ErrNoWindow is returned by Run when the engine was built without a window.
var ErrNoWindow = errors.New("engine has no window")

// Engine runs a window's event pump on the calling goroutine, a fixed-rate tick goroutine
// that updates scenes, and a render goroutine that draws them.
type Engine interface {
	// Window returns the window the engine pumps, or nil.
	Window() window.Window

	// EnableProfiler starts logging frame timings from the render goroutine.
	EnableProfiler()

	// DisableProfiler stops logging frame timings.
	DisableProfiler()

	// SetTickRate changes how many times per second scenes are updated. Values <= 0 mean 60.
	// While running, the new rate applies from the next tick.
	SetTickRate(fps float64)

	// SetTickCallback registers a function run at the start of every tick with the seconds
	// elapsed since the previous tick.
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers a function run after every rendered frame with the seconds
	// elapsed since the previous frame.
	SetRenderCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit caps the render loop at fps frames per second. 0 removes the cap.
	SetRenderFrameLimit(fps float64)

	// AddScene registers s under key. Scenes are updated and drawn in ascending key order,
	// all within a single render pass per frame.
	//
	// Parameters:
	//   - key: the z-index, lower draws first
	//   - s: the scene to register
	AddScene(key int, s scene.Scene)

	// RemoveScene unregisters the scene under key.
	RemoveScene(key int)

	// Scene returns the scene under key, or nil.
	Scene(key int) scene.Scene

	// Scenes returns a copy of the registry.
	Scenes() map[int]scene.Scene

	// Run starts the tick and render goroutines and pumps window events until the window
	// closes or Quit is called. Both goroutines have exited and the window is closed when
	// Run returns.
	//
	// Returns:
	//   - error: ErrNoWindow if no window was configured, or the window close error
	Run() error

	// Quit asks Run to stop. Calling it more than once is harmless.
	Quit()
}

type engine struct {
	window   window.Window
	profiler *profiler.Profiler
	profile  atomic.Bool

	tickEvery  time.Duration
	tickRates  chan time.Duration
	frameEvery time.Duration // 0 means uncapped
	onTick     func(deltaTime float32)
	onFrame    func(deltaTime float32)

	mu     sync.RWMutex
	scenes map[int]scene.Scene

	running  atomic.Bool
	loops    sync.WaitGroup
	quit     chan struct{}
	quitOnce sync.Once
}

var _ Engine = &engine{}

// NewEngine builds an engine from options. A configured window has its resize events routed
// to every scene renderer.
//
// Parameters:
//   - options: functional options, see the With* functions
//
// Returns:
//   - Engine: the engine, not yet running
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		profiler:  profiler.NewProfiler(),
		tickEvery: tickInterval(0),
		tickRates: make(chan time.Duration, 1),
		scenes:    make(map[int]scene.Scene),
		quit:      make(chan struct{}),
	}
	for _, opt := range options {
		opt(e)
	}
	if e.window != nil {
		e.window.SetResizeCallback(e.resize)
	}
	return e
}

func (e *engine) Window() window.Window { return e.window }

func (e *engine) EnableProfiler()  { e.profile.Store(true) }
func (e *engine) DisableProfiler() { e.profile.Store(false) }

func (e *engine) Run() error {
	if e.window == nil {
		return ErrNoWindow
	}
	e.running.Store(true)

	// Quit from another goroutine ends the pump by closing the window, which has to wait
	// for the render loop to let go of the surface.
	e.window.SetUpdateCallback(func() {
		select {
		case <-e.quit:
			e.loops.Wait()
			if err := e.window.Close(); err != nil {
				common.Logger().Warn("close window", "err", err)
			}
		default:
		}
	})

	e.loops.Add(2)
	go e.tickLoop()
	go e.renderLoop()

	e.window.ProcessMessages()
	e.Quit()
	e.loops.Wait()
	return e.window.Close()
}

func (e *engine) Quit() {
	e.quitOnce.Do(func() {
		e.running.Store(false)
		close(e.quit)
	})
}

func (e *engine) tickLoop() {
	defer e.loops.Done()

	ticker := time.NewTicker(e.tickEvery)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-e.quit:
			return
		case every := <-e.tickRates:
			e.tickEvery = every
			ticker.Reset(every)
		case now := <-ticker.C:
			e.tick(float32(now.Sub(last).Seconds()))
			last = now
		}
	}
}

func (e *engine) tick(dt float32) {
	if e.onTick != nil {
		e.onTick(dt)
	}
	for _, s := range e.activeScenes() {
		s.Update(dt)
	}
}

// renderLoop draws frames back to back, sleeping out the rest of frameEvery when capped.
// A panic while drawing is logged and stops the engine.
func (e *engine) renderLoop() {
	defer e.loops.Done()
	defer func() {
		if r := recover(); r != nil {
			common.Logger().Error("render goroutine recovered from panic", "panic", r)
			e.Quit()
		}
	}()

	last := time.Now()
	for {
		select {
		case <-e.quit:
			return
		default:
		}

		start := time.Now()
		dt := float32(start.Sub(last).Seconds())
		last = start

		if err := e.renderFrame(); err != nil {
			common.Logger().Warn("frame skipped", "err", err)
		}
		if e.onFrame != nil {
			e.onFrame(dt)
		}
		if e.profile.Load() {
			e.profiler.Tick()
		}
		if wait := e.frameEvery - time.Since(start); e.frameEvery > 0 && wait > 0 {
			time.Sleep(wait)
		}
	}
}

// renderFrame draws every active scene inside one render pass owned by the lowest scene's
// renderer. A scene that fails to draw is logged and the others still draw.
func (e *engine) renderFrame() error {
	active := e.activeScenes()
	if len(active) == 0 || active[0].Renderer() == nil {
		return nil
	}
	r := active[0].Renderer()

	if err := r.BeginFrame(); err != nil {
		return err
	}
	for _, s := range active {
		if err := s.DrawCalls(); err != nil {
			common.Logger().Warn("draw scene", "scene", s.Name(), "err", err)
		}
	}
	if err := r.EndFrame(); err != nil {
		return err
	}
	r.Present()
	return nil
}

func (e *engine) activeScenes() []scene.Scene {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var active []scene.Scene
	for _, k := range slices.Sorted(maps.Keys(e.scenes)) {
		if s := e.scenes[k]; s != nil && s.Active() {
			active = append(active, s)
		}
	}
	return active
}

// resize reconfigures each distinct scene renderer once.
func (e *engine) resize(width, height int) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	done := make(map[renderer.Renderer]bool)
	for _, s := range e.scenes {
		r := s.Renderer()
		if r == nil || done[r] {
			continue
		}
		done[r] = true
		if err := r.Resize(width, height); err != nil {
			common.Logger().Warn("resize renderer", "width", width, "height", height, "err", err)
		}
	}
}

func (e *engine) SetTickRate(fps float64) {
	every := tickInterval(fps)
	if !e.running.Load() {
		e.tickEvery = every
		return
	}
	// keep only the latest pending rate
	for {
		select {
		case e.tickRates <- every:
			return
		default:
			select {
			case <-e.tickRates:
			default:
			}
		}
	}
}

func (e *engine) SetTickCallback(callback func(deltaTime float32))   { e.onTick = callback }
func (e *engine) SetRenderCallback(callback func(deltaTime float32)) { e.onFrame = callback }
func (e *engine) SetRenderFrameLimit(fps float64)                    { e.frameEvery = frameInterval(fps) }

func (e *engine) AddScene(key int, s scene.Scene) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scenes[key] = s
}

func (e *engine) RemoveScene(key int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.scenes, key)
}

func (e *engine) Scene(key int) scene.Scene {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.scenes[key]
}

func (e *engine) Scenes() map[int]scene.Scene {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return maps.Clone(e.scenes)
}

// tickInterval is the ticker period for fps updates per second, 60 when fps <= 0.
func tickInterval(fps float64) time.Duration {
	if fps <= 0 {
		fps = 60
	}
	return time.Duration(float64(time.Second) / fps)
}

// frameInterval is the minimum frame duration for an fps cap, 0 when uncapped.
func frameInterval(fps float64) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / fps)
}
