// Package scene holds the scene graph built by format decoders: entities,
// draw batches, triangles, textures and coordinate hierarchies.
package scene

import (
	"fmt"
	"strings"

	"github.com/Faultbox/psxscan/pkg/math"
)

// RenderFlags is the set of render-state bits a triangle is drawn with.
type RenderFlags uint16

const (
	FlagTextured RenderFlags = 1 << iota
	FlagUnlit
	FlagDoubleSided
	FlagSemiTransparent
	FlagGouraud
	FlagSubdivision
)

var flagNames = []struct {
	flag RenderFlags
	name string
}{
	{FlagTextured, "Textured"},
	{FlagUnlit, "Unlit"},
	{FlagDoubleSided, "DoubleSided"},
	{FlagSemiTransparent, "SemiTransparent"},
	{FlagGouraud, "Gouraud"},
	{FlagSubdivision, "Subdivision"},
}

// String returns the set flags joined with '|'.
func (f RenderFlags) String() string {
	if f == 0 {
		return "None"
	}
	var parts []string
	for _, fn := range flagNames {
		if f&fn.flag != 0 {
			parts = append(parts, fn.name)
		}
	}
	return strings.Join(parts, "|")
}

// MixtureRate is the PSX semi-transparency blend mode.
type MixtureRate uint8

const (
	MixtureBlend50 MixtureRate = iota // 0.5B + 0.5F
	MixtureAdd                        // B + F
	MixtureSub                        // B - F
	MixtureAdd25                      // B + 0.25F
	MixtureNone
)

// String returns a human-readable mixture name.
func (m MixtureRate) String() string {
	switch m {
	case MixtureBlend50:
		return "Blend50"
	case MixtureAdd:
		return "Add"
	case MixtureSub:
		return "Sub"
	case MixtureAdd25:
		return "Add25"
	case MixtureNone:
		return "None"
	default:
		return fmt.Sprintf("Unknown(%d)", m)
	}
}

// RenderInfo is the batching key. Triangles with equal RenderInfo share a
// draw batch.
type RenderInfo struct {
	TexturePage uint32
	Flags       RenderFlags
	Mixture     MixtureRate
}

// Color is an 8-bit RGB vertex color.
type Color struct {
	R, G, B uint8
}

// White is the neutral vertex color.
var White = Color{R: 255, G: 255, B: 255}

// NoJoint marks a vertex that is not bound to a joint.
const NoJoint = -1

// TiledArea describes a repeating texture window in texels.
type TiledArea struct {
	X, Y, Width, Height uint8
}

// Triangle is one textured/colored triangle. It is built once and never
// modified after being added to an Assembler.
type Triangle struct {
	Vertices [3]math.Vec3
	Normals  [3]math.Vec3
	Colors   [3]Color
	UVs      [3]math.Vec2 // normalized to the texture page
	Joints   [3]int       // NoJoint when unbound
	Tiled    *TiledArea
}

// NewTriangle returns a triangle with white colors and no joints.
func NewTriangle(vertices [3]math.Vec3, normals [3]math.Vec3) Triangle {
	return Triangle{
		Vertices: vertices,
		Normals:  normals,
		Colors:   [3]Color{White, White, White},
		Joints:   [3]int{NoJoint, NoJoint, NoJoint},
	}
}

// HasJoints reports whether any vertex is bound to a joint.
func (t Triangle) HasJoints() bool {
	return t.Joints[0] != NoJoint || t.Joints[1] != NoJoint || t.Joints[2] != NoJoint
}

// FaceNormal returns the normalized geometric normal.
func (t Triangle) FaceNormal() math.Vec3 {
	e1 := t.Vertices[1].Sub(t.Vertices[0])
	e2 := t.Vertices[2].Sub(t.Vertices[0])
	return e1.Cross(e2).Normalize()
}

// UVScale converts 8-bit texel coordinates to the normalized range.
const UVScale = 1.0 / 256.0

// TexelUV converts an 8-bit texel coordinate pair.
func TexelUV(u, v uint8) math.Vec2 {
	return math.Vec2{X: float32(u) * UVScale, Y: float32(v) * UVScale}
}

// lastTexel is the normalized coordinate of texel 255.
const lastTexel = 255 * UVScale

// fixUVSeams extends coordinates that end on the last texel of a page to
// the page edge. Texel coordinates are inclusive, so a triangle spanning to
// texel 255 covers the whole texel and would otherwise leave a one-texel
// seam against its neighbor.
func fixUVSeams(tri Triangle) Triangle {
	fix := func(get func(math.Vec2) float32, set func(*math.Vec2)) {
		lo := min(get(tri.UVs[0]), get(tri.UVs[1]), get(tri.UVs[2]))
		for i := range tri.UVs {
			if get(tri.UVs[i]) == lastTexel && lo < lastTexel {
				set(&tri.UVs[i])
			}
		}
	}
	fix(func(v math.Vec2) float32 { return v.X }, func(v *math.Vec2) { v.X = 1 })
	fix(func(v math.Vec2) float32 { return v.Y }, func(v *math.Vec2) { v.Y = 1 })
	return tri
}
