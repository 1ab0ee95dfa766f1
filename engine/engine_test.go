package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-triangle/engine/renderer"
	"github.com/Carmen-Shannon/oxy-triangle/engine/scene"
	"github.com/Carmen-Shannon/oxy-triangle/engine/window"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRenderer records the frame lifecycle. Unused Renderer methods panic via the nil embed.
type fakeRenderer struct {
	renderer.Renderer
	calls    []string
	beginErr error
	resizes  [][2]int
}

func (r *fakeRenderer) BeginFrame() error {
	r.calls = append(r.calls, "begin")
	return r.beginErr
}

func (r *fakeRenderer) EndFrame() error {
	r.calls = append(r.calls, "end")
	return nil
}

func (r *fakeRenderer) Present() {
	r.calls = append(r.calls, "present")
}

func (r *fakeRenderer) Resize(width, height int) error {
	r.resizes = append(r.resizes, [2]int{width, height})
	return nil
}

type fakeScene struct {
	scene.Scene
	name    string
	active  bool
	r       *fakeRenderer
	drawErr error
	updates []float32
}

func (s *fakeScene) Name() string                { return s.name }
func (s *fakeScene) Active() bool                { return s.active }
func (s *fakeScene) Renderer() renderer.Renderer { return s.r }
func (s *fakeScene) Update(dt float32)           { s.updates = append(s.updates, dt) }

func (s *fakeScene) DrawCalls() error {
	s.r.calls = append(s.r.calls, "draw:"+s.name)
	return s.drawErr
}

type fakeWindow struct {
	window.Window
	onResize func(width, height int)
}

func (w *fakeWindow) SetResizeCallback(callback func(width, height int)) {
	w.onResize = callback
}

func TestRenderFrameOrdersScenesInOnePass(t *testing.T) {
	r := &fakeRenderer{}
	e := NewEngine(
		WithScene(2, &fakeScene{name: "top", active: true, r: r}),
		WithScene(1, &fakeScene{name: "bottom", active: true, r: r}),
		WithScene(3, &fakeScene{name: "hidden", active: false, r: r}),
	).(*engine)

	require.NoError(t, e.renderFrame())
	assert.Equal(t, []string{"begin", "draw:bottom", "draw:top", "end", "present"}, r.calls)
}

func TestRenderFrameContinuesAfterSceneError(t *testing.T) {
	r := &fakeRenderer{}
	e := NewEngine(
		WithScene(0, &fakeScene{name: "broken", active: true, r: r, drawErr: errors.New("boom")}),
		WithScene(1, &fakeScene{name: "ok", active: true, r: r}),
	).(*engine)

	require.NoError(t, e.renderFrame())
	assert.Equal(t, []string{"begin", "draw:broken", "draw:ok", "end", "present"}, r.calls)
}

func TestRenderFrameSkipsWhenBeginFails(t *testing.T) {
	r := &fakeRenderer{beginErr: renderer.ErrNoFrame}
	e := NewEngine(WithScene(0, &fakeScene{name: "s", active: true, r: r})).(*engine)

	assert.ErrorIs(t, e.renderFrame(), renderer.ErrNoFrame)
	assert.Equal(t, []string{"begin"}, r.calls)
}

func TestRenderFrameWithoutScenes(t *testing.T) {
	e := NewEngine().(*engine)
	assert.NoError(t, e.renderFrame())
}

func TestTickUpdatesActiveScenes(t *testing.T) {
	active := &fakeScene{name: "a", active: true, r: &fakeRenderer{}}
	inactive := &fakeScene{name: "b", r: &fakeRenderer{}}
	var ticked float32
	e := NewEngine(WithScene(0, active), WithScene(1, inactive)).(*engine)
	e.SetTickCallback(func(dt float32) { ticked += dt })

	e.tick(0.25)
	e.tick(0.25)
	assert.Equal(t, float32(0.5), ticked)
	assert.Equal(t, []float32{0.25, 0.25}, active.updates)
	assert.Empty(t, inactive.updates)
}

func TestResizeReachesEachRendererOnce(t *testing.T) {
	shared := &fakeRenderer{}
	other := &fakeRenderer{}
	w := &fakeWindow{}
	NewEngine(
		WithWindow(w),
		WithScene(0, &fakeScene{name: "a", r: shared}),
		WithScene(1, &fakeScene{name: "b", r: shared}),
		WithScene(2, &fakeScene{name: "c", r: other}),
	)
	require.NotNil(t, w.onResize)

	w.onResize(640, 480)
	assert.Equal(t, [][2]int{{640, 480}}, shared.resizes)
	assert.Equal(t, [][2]int{{640, 480}}, other.resizes)
}

func TestSceneRegistry(t *testing.T) {
	e := NewEngine()
	s := &fakeScene{name: "s"}
	e.AddScene(4, s)
	assert.Same(t, s, e.Scene(4))

	cp := e.Scenes()
	delete(cp, 4)
	assert.NotNil(t, e.Scene(4))

	e.RemoveScene(4)
	assert.Nil(t, e.Scene(4))
}

func TestRates(t *testing.T) {
	assert.Equal(t, time.Second/60, tickInterval(0))
	assert.Equal(t, 10*time.Millisecond, tickInterval(100))
	assert.Zero(t, frameInterval(0))
	assert.Equal(t, 20*time.Millisecond, frameInterval(50))

	e := NewEngine(WithTickRate(30), WithRenderFrameLimit(120)).(*engine)
	assert.Equal(t, tickInterval(30), e.tickEvery)
	assert.Equal(t, frameInterval(120), e.frameEvery)

	e.SetTickRate(-1)
	assert.Equal(t, time.Second/60, e.tickEvery)
}

func TestSetTickRateWhileRunningKeepsLatest(t *testing.T) {
	e := NewEngine().(*engine)
	e.running.Store(true)

	e.SetTickRate(10)
	e.SetTickRate(20)
	require.Len(t, e.tickRates, 1)
	assert.Equal(t, tickInterval(20), <-e.tickRates)
	assert.Equal(t, tickInterval(0), e.tickEvery)
}

func TestRunWithoutWindow(t *testing.T) {
	assert.ErrorIs(t, NewEngine().Run(), ErrNoWindow)
}

func TestQuitIsIdempotent(t *testing.T) {
	e := NewEngine()
	e.Quit()
	e.Quit()
	_, open := <-e.(*engine).quit
	assert.False(t, open)
}
