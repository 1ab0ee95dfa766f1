package shader

import (
	"errors"
	"fmt"

	"github.com/gogpu/naga"
)

// ErrCompile wraps every failure reported by the WGSL front end.
var ErrCompile = errors.New("shader: compile failed")

// Compile runs WGSL source through the naga front end and back end without touching a GPU.
// It catches syntax and type errors before the source reaches a device, where wgpu would
// only report them through the uncaptured error callback.
//
// Parameters:
//   - source: pre-processed WGSL source
//
// Returns:
//   - error: nil if the source compiles, otherwise an error matching ErrCompile
func Compile(source string) error {
	if _, err := naga.Compile(source); err != nil {
		return fmt.Errorf("%w: %w", ErrCompile, err)
	}
	return nil
}

// CompileShader checks the pre-processed source of s with Compile.
//
// Parameters:
//   - s: the shader to check
//
// Returns:
//   - error: nil if the shader compiles, otherwise an error matching ErrCompile
func CompileShader(s Shader) error {
	if err := Compile(s.Source()); err != nil {
		return fmt.Errorf("shader %s: %w", s.Key(), err)
	}
	return nil
}
