package shader

import (
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// member is one field of a WGSL struct. location is -1 when the field has no @location.
type member struct {
	name     string
	typ      string
	location int
	builtin  bool
}

type structDecl struct {
	name    string
	members []member
}

var (
	structRe = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)

	// memberRe splits a struct field into its leading attributes, name and type.
	memberRe    = regexp.MustCompile(`^((?:@\w+\([^)]*\)\s*)*)(\w+)\s*:\s*(\S.*)$`)
	attributeRe = regexp.MustCompile(`@(location|builtin)\((\w+)\)`)

	entryRe = regexp.MustCompile(`@(vertex|fragment)\s+fn\s+(\w+)`)

	// bindingRe matches declarations like: @group(0) @binding(0) var<uniform> uniforms: FragmentUniforms;
	bindingRe = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var<([^>]*)>\s+\w+\s*:\s*([^;]+?)\s*;`)
)

// stripComments drops // line comments and nested /* */ block comments.
// Newlines that end a line comment are kept.
func stripComments(src string) string {
	var b strings.Builder
	b.Grow(len(src))
	depth := 0
	for i := 0; i < len(src); i++ {
		rest := src[i:]
		switch {
		case strings.HasPrefix(rest, "/*"):
			depth++
			i++
		case depth > 0 && strings.HasPrefix(rest, "*/"):
			depth--
			i++
		case depth > 0:
		case strings.HasPrefix(rest, "//"):
			for i < len(src) && src[i] != '\n' {
				i++
			}
			if i < len(src) {
				b.WriteByte('\n')
			}
		default:
			b.WriteByte(src[i])
		}
	}
	return b.String()
}

// structDecls lists the struct declarations of comment-free source in source order.
func structDecls(src string) []structDecl {
	var decls []structDecl
	for _, m := range structRe.FindAllStringSubmatch(src, -1) {
		d := structDecl{name: m[1]}
		for _, field := range strings.Split(m[2], ",") {
			parts := memberRe.FindStringSubmatch(strings.TrimSpace(field))
			if parts == nil {
				continue
			}
			f := member{name: parts[2], typ: strings.TrimSpace(parts[3]), location: -1}
			for _, attr := range attributeRe.FindAllStringSubmatch(parts[1], -1) {
				switch attr[1] {
				case "builtin":
					f.builtin = true
				case "location":
					if loc, err := strconv.Atoi(attr[2]); err == nil {
						f.location = loc
					}
				}
			}
			d.members = append(d.members, f)
		}
		decls = append(decls, d)
	}
	return decls
}

// parseVertexLayouts reflects the vertex buffers a vertex shader reads. Each struct made only
// of @location attributes becomes one buffer slot, numbered in source order. Structs mixing in
// @builtin members (stage outputs) or unknown attribute types are skipped.
//
// Parameters:
//   - source: the pre-processed WGSL source
//
// Returns:
//   - map[int][]wgpu.VertexBufferLayout: layouts keyed by buffer slot
func parseVertexLayouts(source string) map[int][]wgpu.VertexBufferLayout {
	layouts := make(map[int][]wgpu.VertexBufferLayout)
	for _, d := range structDecls(stripComments(source)) {
		if l, ok := vertexLayout(d); ok {
			layouts[len(layouts)] = []wgpu.VertexBufferLayout{l}
		}
	}
	return layouts
}

// parseBindGroupLayouts reflects the uniform buffer declarations of a shader stage into one
// layout descriptor per group, entries ordered by binding. MinBindingSize is the WGSL size of
// the bound type when it resolves. Declarations in any other address space are ignored.
//
// Parameters:
//   - source: the pre-processed WGSL source
//   - visibility: the stage flag set on every entry
//
// Returns:
//   - map[int]wgpu.BindGroupLayoutDescriptor: descriptors keyed by group index
func parseBindGroupLayouts(source string, visibility wgpu.ShaderStage) map[int]wgpu.BindGroupLayoutDescriptor {
	src := stripComments(source)
	sizes := structLayouts(structDecls(src))

	descs := make(map[int]wgpu.BindGroupLayoutDescriptor)
	for _, m := range bindingRe.FindAllStringSubmatch(src, -1) {
		if strings.TrimSpace(m[3]) != "uniform" {
			continue
		}
		group, _ := strconv.Atoi(m[1])
		binding, _ := strconv.Atoi(m[2])

		entry := wgpu.BindGroupLayoutEntry{Binding: uint32(binding), Visibility: visibility}
		entry.Buffer.Type = wgpu.BufferBindingTypeUniform
		typ := strings.TrimSpace(m[4])
		if l, ok := primitiveLayouts[typ]; ok {
			entry.Buffer.MinBindingSize = l.size
		} else if l, ok := sizes[typ]; ok {
			entry.Buffer.MinBindingSize = l.size
		}

		desc := descs[group]
		desc.Entries = append(desc.Entries, entry)
		descs[group] = desc
	}

	for _, desc := range descs {
		slices.SortFunc(desc.Entries, func(a, b wgpu.BindGroupLayoutEntry) int {
			return int(a.Binding) - int(b.Binding)
		})
	}
	return descs
}

// parseEntryPoint returns the name of the first function attributed with the given stage,
// or an empty string when there is none.
func parseEntryPoint(source string, shaderType ShaderType) string {
	for _, m := range entryRe.FindAllStringSubmatch(stripComments(source), -1) {
		if m[1] == shaderType.String() {
			return m[2]
		}
	}
	return ""
}
