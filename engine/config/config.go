// Package config loads the demo's TOML configuration.
//
// A file may set any subset of keys; missing keys keep their Default value and unknown keys are
// rejected. Example:
//
//	[window]
//	title = "Hello, Triangle"
//	width = 800
//	height = 600
//
//	[renderer]
//	present_mode = "vsync"
//	msaa = 4
//	clear_color = [0.0, 0.0, 0.0, 1.0]
//
//	[triangle]
//	brightness = 1.0
//	animate = true
package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Carmen-Shannon/oxy-triangle/engine/renderer"
	"github.com/Carmen-Shannon/oxy-triangle/engine/scene"
	"github.com/Carmen-Shannon/oxy-triangle/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/pelletier/go-toml/v2"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid config")

// Config is the full demo configuration.
type Config struct {
	Window   WindowConfig   `toml:"window"`
	Renderer RendererConfig `toml:"renderer"`
	Triangle TriangleConfig `toml:"triangle"`
	Engine   EngineConfig   `toml:"engine"`
}

// WindowConfig configures the platform window.
type WindowConfig struct {
	Title  string `toml:"title"`
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
}

// RendererConfig configures the surface and render target.
type RendererConfig struct {
	// PresentMode is "vsync" or "uncapped".
	PresentMode string `toml:"present_mode"`
	// MSAA is the sample count, 1 or 4.
	MSAA          uint32     `toml:"msaa"`
	ForceSoftware bool       `toml:"force_software"`
	ClearColor    [4]float64 `toml:"clear_color"`
}

// TriangleConfig configures the triangle scene.
type TriangleConfig struct {
	Brightness float32 `toml:"brightness"`
	Animate    bool    `toml:"animate"`
}

// EngineConfig configures the engine loops.
type EngineConfig struct {
	TickRate   float64 `toml:"tick_rate"`
	FrameLimit float64 `toml:"frame_limit"`
	Profiling  bool    `toml:"profiling"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Window: WindowConfig{
			Title:  window.DefaultTitle,
			Width:  window.DefaultWidth,
			Height: window.DefaultHeight,
		},
		Renderer: RendererConfig{
			PresentMode: renderer.PresentModeVSync.String(),
			MSAA:        uint32(renderer.MSAA4x),
			ClearColor:  [4]float64{0, 0, 0, 1},
		},
		Triangle: TriangleConfig{
			Brightness: 1,
			Animate:    true,
		},
		Engine: EngineConfig{
			TickRate: 60,
		},
	}
}

// Load reads and validates the TOML file at path over Default.
//
// Parameters:
//   - path: the config file path
//
// Returns:
//   - Config: the loaded configuration
//   - error: an open, decode or validation error
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := Decode(f)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Decode reads TOML from r over Default and validates the result.
//
// Parameters:
//   - r: the TOML source
//
// Returns:
//   - Config: the decoded configuration
//   - error: a decode error, a *toml.StrictMissingError for unknown keys, or a validation error
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(r).DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var missing *toml.StrictMissingError
		if errors.As(err, &missing) {
			return Config{}, fmt.Errorf("unknown keys: %w", err)
		}
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Encode writes cfg as TOML.
//
// Parameters:
//   - w: the destination
//
// Returns:
//   - error: an encode or write error
func (c Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}

// Validate checks ranges and enumerations. Brightness is not range-checked; out-of-range
// output is clamped by the render target.
//
// Returns:
//   - error: an error wrapping ErrInvalid naming the first bad key
func (c Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("%w: window size %dx%d must be positive", ErrInvalid, c.Window.Width, c.Window.Height)
	}
	if _, err := c.presentMode(); err != nil {
		return err
	}
	switch renderer.MSAASampleCount(c.Renderer.MSAA) {
	case renderer.MSAAOff, renderer.MSAA4x:
	default:
		return fmt.Errorf("%w: renderer.msaa must be 1 or 4, got %d", ErrInvalid, c.Renderer.MSAA)
	}
	for i, ch := range c.Renderer.ClearColor {
		if ch < 0 || ch > 1 {
			return fmt.Errorf("%w: renderer.clear_color[%d] = %g is outside [0, 1]", ErrInvalid, i, ch)
		}
	}
	if c.Engine.TickRate < 0 || c.Engine.FrameLimit < 0 {
		return fmt.Errorf("%w: engine rates must not be negative", ErrInvalid)
	}
	return nil
}

func (c Config) presentMode() (renderer.PresentMode, error) {
	switch c.Renderer.PresentMode {
	case renderer.PresentModeVSync.String():
		return renderer.PresentModeVSync, nil
	case renderer.PresentModeUncapped.String():
		return renderer.PresentModeUncapped, nil
	default:
		return 0, fmt.Errorf("%w: renderer.present_mode must be %q or %q, got %q", ErrInvalid,
			renderer.PresentModeVSync, renderer.PresentModeUncapped, c.Renderer.PresentMode)
	}
}

// WindowOptions converts the [window] section to window builder options.
func (c Config) WindowOptions() []window.WindowBuilderOption {
	return []window.WindowBuilderOption{
		window.WithTitle(c.Window.Title),
		window.WithSize(c.Window.Width, c.Window.Height),
	}
}

// RendererOptions converts the [renderer] section to renderer builder options.
// The config must have passed Validate.
func (c Config) RendererOptions() []renderer.RendererBuilderOption {
	mode, _ := c.presentMode()
	cc := c.Renderer.ClearColor
	return []renderer.RendererBuilderOption{
		renderer.WithPresentMode(mode),
		renderer.WithMSAA(renderer.MSAASampleCount(c.Renderer.MSAA)),
		renderer.WithForceSoftwareRenderer(c.Renderer.ForceSoftware),
		renderer.WithClearColor(wgpu.Color{R: cc[0], G: cc[1], B: cc[2], A: cc[3]}),
	}
}

// SceneOptions converts the [triangle] section to scene builder options.
func (c Config) SceneOptions() []scene.SceneBuilderOption {
	opts := []scene.SceneBuilderOption{scene.WithBrightness(c.Triangle.Brightness)}
	if c.Triangle.Animate {
		opts = append(opts, scene.WithAnimated(true))
	}
	return opts
}
