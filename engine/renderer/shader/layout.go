package shader

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// typeLayout is the byte size and alignment of a host-shareable WGSL type.
type typeLayout struct {
	size  uint64
	align uint64
}

// scalarKinds are the 32-bit scalars a vertex attribute or uniform member can be built from.
// formats holds the vertex format for widths one to four.
var scalarKinds = []struct {
	name    string
	suffix  string
	formats [4]wgpu.VertexFormat
}{
	{"f32", "f", [4]wgpu.VertexFormat{wgpu.VertexFormatFloat32, wgpu.VertexFormatFloat32x2, wgpu.VertexFormatFloat32x3, wgpu.VertexFormatFloat32x4}},
	{"i32", "i", [4]wgpu.VertexFormat{wgpu.VertexFormatSint32, wgpu.VertexFormatSint32x2, wgpu.VertexFormatSint32x3, wgpu.VertexFormatSint32x4}},
	{"u32", "u", [4]wgpu.VertexFormat{wgpu.VertexFormatUint32, wgpu.VertexFormatUint32x2, wgpu.VertexFormatUint32x3, wgpu.VertexFormatUint32x4}},
}

var primitiveLayouts, attributeFormats = primitiveTables()

// primitiveTables spells out every scalar and vector name, long form (vec3<f32>) and
// alias (vec3f), with its layout and vertex format. A three-wide vector aligns like a
// four-wide one.
func primitiveTables() (map[string]typeLayout, map[string]wgpu.VertexFormat) {
	layouts := make(map[string]typeLayout)
	formats := make(map[string]wgpu.VertexFormat)
	for _, k := range scalarKinds {
		for width := 1; width <= 4; width++ {
			size := uint64(4 * width)
			align := size
			if width == 3 {
				align = 16
			}
			names := []string{k.name}
			if width > 1 {
				names = []string{fmt.Sprintf("vec%d<%s>", width, k.name), fmt.Sprintf("vec%d%s", width, k.suffix)}
			}
			for _, name := range names {
				layouts[name] = typeLayout{size: size, align: align}
				formats[name] = k.formats[width-1]
			}
		}
	}
	return layouts, formats
}

func alignUp(v, align uint64) uint64 {
	if r := v % align; r != 0 {
		return v + align - r
	}
	return v
}

// structLayouts computes the uniform-buffer layout of every struct in decls whose members
// resolve to primitives or other structs in decls. Members are placed at their next aligned
// offset and the struct is padded to its widest member alignment. @builtin members are
// stage plumbing and take no space. Structs that cannot be resolved are left out.
//
// Parameters:
//   - decls: the struct declarations found in one shader source
//
// Returns:
//   - map[string]typeLayout: layouts keyed by struct name
func structLayouts(decls []structDecl) map[string]typeLayout {
	byName := make(map[string]structDecl, len(decls))
	for _, d := range decls {
		byName[d.name] = d
	}
	done := make(map[string]typeLayout, len(decls))
	inProgress := make(map[string]bool)

	var resolve func(typ string) (typeLayout, bool)
	resolve = func(typ string) (typeLayout, bool) {
		if l, ok := primitiveLayouts[typ]; ok {
			return l, true
		}
		if l, ok := done[typ]; ok {
			return l, true
		}
		d, ok := byName[typ]
		if !ok || inProgress[typ] {
			return typeLayout{}, false
		}
		inProgress[typ] = true
		defer delete(inProgress, typ)

		var offset uint64
		align := uint64(1)
		for _, m := range d.members {
			if m.builtin {
				continue
			}
			ml, ok := resolve(m.typ)
			if !ok {
				return typeLayout{}, false
			}
			offset = alignUp(offset, ml.align) + ml.size
			align = max(align, ml.align)
		}
		l := typeLayout{size: alignUp(offset, align), align: align}
		done[typ] = l
		return l, true
	}

	for _, d := range decls {
		resolve(d.name)
	}
	return done
}

// vertexLayout packs a vertex input struct into a buffer layout: attributes back to back in
// declaration order, stride equal to their summed size. It fails when a member is not a plain
// @location attribute of a known format.
func vertexLayout(d structDecl) (wgpu.VertexBufferLayout, bool) {
	layout := wgpu.VertexBufferLayout{StepMode: wgpu.VertexStepModeVertex}
	for _, m := range d.members {
		format, ok := attributeFormats[m.typ]
		if !ok || m.builtin || m.location < 0 {
			return wgpu.VertexBufferLayout{}, false
		}
		layout.Attributes = append(layout.Attributes, wgpu.VertexAttribute{
			Format:         format,
			Offset:         layout.ArrayStride,
			ShaderLocation: uint32(m.location),
		})
		layout.ArrayStride += primitiveLayouts[m.typ].size
	}
	return layout, len(layout.Attributes) > 0
}
