package window

import "cmp"

// WindowBuilderOption configures a window in NewWindow.
type WindowBuilderOption func(w *engineWindow)

// WithTitle sets the title bar text. An empty title keeps DefaultTitle.
func WithTitle(title string) WindowBuilderOption {
	return func(w *engineWindow) { w.title = cmp.Or(title, DefaultTitle) }
}

// WithSize sets the requested client size in pixels. It is clamped to the size limits, and
// zero keeps the default for that axis.
func WithSize(width, height int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.width = cmp.Or(width, w.width)
		w.height = cmp.Or(height, w.height)
	}
}

// WithSizeLimits bounds the client size, initially and while the user resizes. A zero bound
// leaves that side unbounded.
//
// Parameters:
//   - minWidth, minHeight: the smallest allowed size in pixels
//   - maxWidth, maxHeight: the largest allowed size in pixels
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithSizeLimits(minWidth, minHeight, maxWidth, maxHeight int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.limits = sizeLimits{minWidth: minWidth, minHeight: minHeight, maxWidth: maxWidth, maxHeight: maxHeight}
	}
}
