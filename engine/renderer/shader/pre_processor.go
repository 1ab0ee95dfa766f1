// pre_processor.go expands @oxy: annotations into plain WGSL and records the declared slots
// so the renderer can size and fill them.
package shader

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-triangle/engine/triangle"
)

// hostStruct is a WGSL struct owned by the host: its declaration and its WGSL type name.
type hostStruct struct {
	source   string
	typeName string
}

type preProcessor struct {
	structs map[AnnotationArg]hostStruct

	// declarations is reset at the start of each Process call.
	declarations []Annotation
}

// PreProcessor rewrites WGSL source containing @oxy: annotations into plain WGSL.
type PreProcessor interface {
	// Process replaces every annotation in source with its WGSL output. include annotations
	// become the registered struct declaration (once per struct), group annotations become
	// uniform declarations and provider annotations produce nothing but are recorded.
	//
	// Parameters:
	//   - source: the raw WGSL source
	//
	// Returns:
	//   - string: the processed WGSL source
	//   - error: an error if any annotation is malformed
	Process(source string) (string, error)

	// Declarations returns the group and provider annotations seen by the last Process call, in source order.
	Declarations() []Annotation
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a PreProcessor that knows the triangle's vertex and uniform structs.
func NewPreProcessor() PreProcessor {
	return &preProcessor{
		structs: map[AnnotationArg]hostStruct{
			AnnotationArgVertex:           {triangle.GPUVertexSource, "VertexInput"},
			AnnotationArgFragmentUniforms: {triangle.GPUFragmentUniformsSource, "FragmentUniforms"},
		},
	}
}

func (p *preProcessor) Process(source string) (string, error) {
	p.declarations = p.declarations[:0]
	included := make(map[AnnotationArg]bool)

	var out strings.Builder
	for i, line := range strings.Split(source, "\n") {
		if i > 0 {
			out.WriteByte('\n')
		}
		a, err := parseAnnotation(line, i+1)
		if err != nil {
			return "", err
		}
		if a == nil {
			out.WriteString(line)
			continue
		}

		switch a.Type {
		case annotationTypeInclude:
			if !included[a.Args[0]] {
				included[a.Args[0]] = true
				out.WriteString(p.structs[a.Args[0]].source)
			}
		case AnnotationTypeBindingGroup:
			fmt.Fprintf(&out, "@group(%d) @binding(%d) var<uniform> %s: %s;", *a.Group, *a.Binding, a.Args[1], p.structs[a.Args[2]].typeName)
			p.declarations = append(p.declarations, *a)
		case AnnotationTypeProvider:
			p.declarations = append(p.declarations, *a)
		}
	}
	return out.String(), nil
}

func (p *preProcessor) Declarations() []Annotation {
	return p.declarations
}
