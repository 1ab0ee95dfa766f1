package scene

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-triangle/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-triangle/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-triangle/engine/triangle"
)

// NewTrianglePipeline builds the coloured-triangle pipeline from the embedded shaders, with the
// vertex and uniform contracts of triangle.GPUVertex and triangle.GPUFragmentUniforms.
//
// Parameters:
//   - key: the pipeline cache key
//   - opts: extra pipeline options applied after the contracts
//
// Returns:
//   - pipeline.Pipeline: the pipeline, not yet registered with a renderer
//   - error: a shader parse error
func NewTrianglePipeline(key string, opts ...pipeline.PipelineBuilderOption) (pipeline.Pipeline, error) {
	vert, err := shader.NewShaderFromSource(key+"-vert", shader.ShaderTypeVertex, triangle.VertexShaderSource)
	if err != nil {
		return nil, fmt.Errorf("vertex shader: %w", err)
	}
	frag, err := shader.NewShaderFromSource(key+"-frag", shader.ShaderTypeFragment, triangle.FragmentShaderSource)
	if err != nil {
		return nil, fmt.Errorf("fragment shader: %w", err)
	}

	base := []pipeline.PipelineBuilderOption{
		pipeline.WithVertexShader(vert),
		pipeline.WithFragmentShader(frag),
		pipeline.WithVertexContract(triangle.VertexBufferLayout()),
		pipeline.WithUniformContract(triangle.UniformGroup, triangle.UniformBinding, triangle.GPUFragmentUniformsSize),
	}
	return pipeline.NewPipeline(key, append(base, opts...)...), nil
}
