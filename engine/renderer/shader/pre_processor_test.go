package shader

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreProcessorExpandsAnnotations(t *testing.T) {
	pp := NewPreProcessor()
	src := strings.Join([]string{
		"//@oxy:include fragment_uniforms",
		"//@oxy:include fragment_uniforms",
		"//@oxy:group 0 0 storage_uniform uniforms fragment_uniforms",
		"//@oxy:provider 0 1 uniforms",
		"@fragment fn main() {}",
	}, "\n")

	out, err := pp.Process(src)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "struct FragmentUniforms"))
	assert.Contains(t, out, "@group(0) @binding(0) var<uniform> uniforms: FragmentUniforms;")
	assert.Contains(t, out, "@fragment fn main() {}")
	assert.NotContains(t, out, "@oxy:")

	decls := pp.Declarations()
	require.Len(t, decls, 2)
	assert.Equal(t, AnnotationTypeBindingGroup, decls[0].Type)
	assert.Equal(t, 3, decls[0].Line)
	assert.Equal(t, AnnotationTypeProvider, decls[1].Type)
	assert.Equal(t, 1, *decls[1].Binding)

	_, err = pp.Process("@fragment fn main() {}")
	require.NoError(t, err)
	assert.Empty(t, pp.Declarations())
}

func TestParseAnnotationRejectsMalformedLines(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{name: "empty", line: "//@oxy:"},
		{name: "unknown type", line: "//@oxy:import vertex"},
		{name: "unknown struct", line: "//@oxy:include camera"},
		{name: "missing argument", line: "//@oxy:group 0 0 storage_uniform uniforms"},
		{name: "negative group", line: "//@oxy:group -1 0 storage_uniform uniforms fragment_uniforms"},
		{name: "storage buffer", line: "//@oxy:group 0 0 storage_read lights fragment_uniforms"},
		{name: "unknown provider", line: "//@oxy:provider 0 0 camera"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := parseAnnotation(tt.line, 7)
			assert.Nil(t, a)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "line 7")
		})
	}

	a, err := parseAnnotation("fn main() {}", 1)
	assert.NoError(t, err)
	assert.Nil(t, a)
}
