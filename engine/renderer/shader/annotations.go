// annotations.go defines the @oxy: comment annotations the WGSL pre-processor understands.
// They inject host-owned struct declarations into a shader and declare the bind group slots
// the host fills, so a shader never carries its own copy of a layout.
package shader

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

const annotationPrefix = "@oxy:"

// AnnotationType identifies the kind of annotation parsed from a WGSL comment line.
type AnnotationType string

const (
	// annotationTypeInclude pastes a registered struct declaration at the annotation site.
	// It is consumed entirely during pre-processing.
	//
	// Syntax: //@oxy:include <struct_type>
	annotationTypeInclude AnnotationType = "include"

	// AnnotationTypeBindingGroup generates a @group/@binding uniform declaration and is
	// recorded in the pre-processor's declarations.
	//
	// Syntax: //@oxy:group <group> <binding> storage_uniform <var_name> <struct_type>
	AnnotationTypeBindingGroup AnnotationType = "group"

	// AnnotationTypeProvider records which host resource fills a hand-written binding
	// without generating any WGSL.
	//
	// Syntax: //@oxy:provider <group> <binding> <provider_identity>
	AnnotationTypeProvider AnnotationType = "provider"
)

// Annotation is one parsed @oxy: line.
type Annotation struct {
	Type AnnotationType

	// Args depends on Type:
	//   - include:  [0] = struct type
	//   - group:    [0] = address space, [1] = var name, [2] = struct type
	//   - provider: [0] = provider identity
	Args []AnnotationArg

	// Line is 1-based.
	Line int

	// Group and Binding are set for group and provider annotations.
	Group   *int
	Binding *int
}

// AnnotationArg is a typed argument of an annotation.
type AnnotationArg string

const (
	// AnnotationArgVertex names the VertexInput struct (engine/triangle/assets/vertex.wgsl).
	AnnotationArgVertex AnnotationArg = "vertex"

	// AnnotationArgFragmentUniforms names the FragmentUniforms struct (engine/triangle/assets/fragment_uniforms.wgsl).
	AnnotationArgFragmentUniforms AnnotationArg = "fragment_uniforms"

	// AnnotationArgUniforms identifies the per-draw uniform buffer owned by the scene.
	AnnotationArgUniforms AnnotationArg = "uniforms"

	annotationArgUniformSpace AnnotationArg = "storage_uniform"
)

// annotationArity is the number of fields after the annotation type.
var annotationArity = map[AnnotationType]int{
	annotationTypeInclude:      1,
	AnnotationTypeBindingGroup: 5,
	AnnotationTypeProvider:     3,
}

// parseAnnotation parses one WGSL source line. Lines without the @oxy: prefix return nil
// and no error.
//
// Parameters:
//   - line: the raw WGSL source line
//   - lineNum: the 1-based line number for error reporting
//
// Returns:
//   - *Annotation: the parsed annotation, or nil if the line is not an annotation
//   - error: a descriptive error if the annotation is malformed
func parseAnnotation(line string, lineNum int) (*Annotation, error) {
	_, body, ok := strings.Cut(strings.TrimSpace(line), annotationPrefix)
	if !ok {
		return nil, nil
	}
	fields := strings.Fields(body)
	if len(fields) == 0 {
		return nil, fmt.Errorf("line %d: empty @oxy annotation", lineNum)
	}

	a := &Annotation{Type: AnnotationType(fields[0]), Line: lineNum}
	arity, known := annotationArity[a.Type]
	if !known {
		return nil, fmt.Errorf("line %d: unknown @oxy annotation type %q", lineNum, fields[0])
	}
	args := fields[1:]
	if len(args) != arity {
		return nil, fmt.Errorf("line %d: @oxy %s annotation takes %d arguments, got %d", lineNum, a.Type, arity, len(args))
	}

	if a.Type == annotationTypeInclude {
		a.Args = []AnnotationArg{AnnotationArg(args[0])}
		return a.checked(a.expect(0, "struct type", AnnotationArgVertex, AnnotationArgFragmentUniforms))
	}

	group, gerr := strconv.Atoi(args[0])
	binding, berr := strconv.Atoi(args[1])
	if gerr != nil || berr != nil || group < 0 || binding < 0 {
		return nil, fmt.Errorf("line %d: invalid slot %s %s", lineNum, args[0], args[1])
	}
	a.Group, a.Binding = &group, &binding

	if a.Type == AnnotationTypeProvider {
		a.Args = []AnnotationArg{AnnotationArg(args[2])}
		return a.checked(a.expect(0, "provider identity", AnnotationArgUniforms))
	}
	a.Args = []AnnotationArg{AnnotationArg(args[2]), AnnotationArg(args[3]), AnnotationArg(args[4])}
	if err := a.expect(0, "address space", annotationArgUniformSpace); err != nil {
		return nil, err
	}
	return a.checked(a.expect(2, "struct type", AnnotationArgVertex, AnnotationArgFragmentUniforms))
}

func (a *Annotation) expect(i int, what string, valid ...AnnotationArg) error {
	if slices.Contains(valid, a.Args[i]) {
		return nil
	}
	return fmt.Errorf("line %d: unknown %s %q in @oxy %s annotation", a.Line, what, a.Args[i], a.Type)
}

func (a *Annotation) checked(err error) (*Annotation, error) {
	if err != nil {
		return nil, err
	}
	return a, nil
}
