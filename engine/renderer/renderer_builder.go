package renderer

import "github.com/cogentcore/webgpu/wgpu"

// RendererBuilderOption configures a renderer in NewRenderer.
type RendererBuilderOption func(*renderer)

// WithPresentMode sets the initial present mode. The default is PresentModeVSync.
func WithPresentMode(mode PresentMode) RendererBuilderOption {
	return func(r *renderer) { r.presentMode = mode }
}

// WithMSAA sets the colour target's sample count. The default is MSAA4x.
func WithMSAA(count MSAASampleCount) RendererBuilderOption {
	return func(r *renderer) { r.msaa = count }
}

// WithForceSoftwareRenderer requests wgpu's fallback adapter instead of a hardware GPU.
// The fallback needs a software Vulkan driver such as lavapipe or SwiftShader installed.
//
// Parameters:
//   - force: true for the fallback adapter
//
// Returns:
//   - RendererBuilderOption: option function to apply
func WithForceSoftwareRenderer(force bool) RendererBuilderOption {
	return func(r *renderer) { r.forceFallbackAdapter = force }
}

// WithClearColor sets the colour frames are cleared to. The default is opaque black.
func WithClearColor(c wgpu.Color) RendererBuilderOption {
	return func(r *renderer) { r.clearColor = c }
}
