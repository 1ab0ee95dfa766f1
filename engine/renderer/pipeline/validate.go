package pipeline

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-triangle/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

var (
	// ErrMissingShader is returned by Validate when a stage has no shader.
	ErrMissingShader = errors.New("pipeline: missing shader")

	// ErrLayoutMismatch matches every *LayoutMismatchError.
	ErrLayoutMismatch = errors.New("pipeline: layout mismatch between host and shader")
)

// LayoutMismatchError reports one difference between a host data layout and the layout a shader declares.
type LayoutMismatchError struct {
	// Pipeline is the key of the pipeline being validated.
	Pipeline string
	// Field names the mismatching property, e.g. "array stride" or "attribute @location(1) offset".
	Field string
	// Host and Shader are the two disagreeing values.
	Host, Shader string
}

func (e *LayoutMismatchError) Error() string {
	return fmt.Sprintf("pipeline %s: %s: host declares %s, shader declares %s", e.Pipeline, e.Field, e.Host, e.Shader)
}

func (e *LayoutMismatchError) Unwrap() error {
	return ErrLayoutMismatch
}

func (p *pipeline) mismatch(field string, host, declared any) error {
	return &LayoutMismatchError{
		Pipeline: p.pipelineKey,
		Field:    field,
		Host:     fmt.Sprint(host),
		Shader:   fmt.Sprint(declared),
	}
}

func (p *pipeline) Validate() error {
	if p.vertexShader == nil {
		return fmt.Errorf("%w: %s has no vertex shader", ErrMissingShader, p.pipelineKey)
	}
	if p.fragmentShader == nil {
		return fmt.Errorf("%w: %s has no fragment shader", ErrMissingShader, p.pipelineKey)
	}
	for _, s := range []shader.Shader{p.vertexShader, p.fragmentShader} {
		if err := shader.CompileShader(s); err != nil {
			return fmt.Errorf("pipeline %s: %w", p.pipelineKey, err)
		}
	}

	if p.vertexContract != nil {
		if err := p.validateVertexLayout(*p.vertexContract); err != nil {
			return err
		}
	}
	for _, c := range p.uniformContracts {
		if err := p.validateUniform(c); err != nil {
			return err
		}
	}
	return nil
}

func (p *pipeline) validateVertexLayout(host wgpu.VertexBufferLayout) error {
	reflected := p.vertexShader.VertexLayout(0)
	if len(reflected) == 0 {
		return p.mismatch("vertex input", "a vertex buffer", "no vertex input struct")
	}
	declared := reflected[0]

	if host.ArrayStride != declared.ArrayStride {
		return p.mismatch("array stride", host.ArrayStride, declared.ArrayStride)
	}
	if host.StepMode != declared.StepMode {
		return p.mismatch("step mode", host.StepMode, declared.StepMode)
	}
	if len(host.Attributes) != len(declared.Attributes) {
		return p.mismatch("attribute count", len(host.Attributes), len(declared.Attributes))
	}

	byLocation := make(map[uint32]wgpu.VertexAttribute, len(declared.Attributes))
	for _, a := range declared.Attributes {
		byLocation[a.ShaderLocation] = a
	}
	for _, h := range host.Attributes {
		d, ok := byLocation[h.ShaderLocation]
		field := fmt.Sprintf("attribute @location(%d)", h.ShaderLocation)
		if !ok {
			return p.mismatch(field, "present", "absent")
		}
		if h.Format != d.Format {
			return p.mismatch(field+" format", h.Format, d.Format)
		}
		if h.Offset != d.Offset {
			return p.mismatch(field+" offset", h.Offset, d.Offset)
		}
	}
	return nil
}

func (p *pipeline) validateUniform(c UniformContract) error {
	field := fmt.Sprintf("@group(%d) @binding(%d) size", c.Group, c.Binding)
	for _, s := range []shader.Shader{p.fragmentShader, p.vertexShader} {
		size, ok := s.UniformBindingSize(c.Group, c.Binding)
		if !ok {
			continue
		}
		if size != c.Size {
			return p.mismatch(field, c.Size, size)
		}
		return nil
	}
	return p.mismatch(field, c.Size, "no buffer")
}
