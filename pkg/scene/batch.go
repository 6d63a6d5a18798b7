package scene

import "github.com/Faultbox/psxscan/pkg/math"

// NoCoordinate marks a batch that is not bound to a coordinate.
const NoCoordinate = -1

// Batch is one group of triangles drawn with the same render state.
type Batch struct {
	Info      RenderInfo
	Triangles []Triangle

	Transform  math.Mat4 // local transform attached at flush
	Coordinate int       // index into the entity hierarchy, or NoCoordinate

	// World is Transform resolved against the entity hierarchy by
	// Entity.Finalize.
	World math.Mat4
}

// TextureKey returns the lookup key of the texture this batch samples. The
// texture itself may be recovered later, or from a different record.
func (b *Batch) TextureKey() uint32 {
	return b.Info.TexturePage
}

// Textured reports whether the batch samples a texture.
func (b *Batch) Textured() bool {
	return b.Info.Flags&FlagTextured != 0
}

// Assembler groups triangles by RenderInfo. Group order follows the first
// time each key was seen; triangle order within a group is preserved.
type Assembler struct {
	groups map[RenderInfo][]Triangle
	order  []RenderInfo
	count  int
}

// NewAssembler returns an empty assembler.
func NewAssembler() *Assembler {
	return &Assembler{groups: make(map[RenderInfo][]Triangle)}
}

// Add appends a triangle to the group for info. Textured triangles get UV
// seam correction first.
func (a *Assembler) Add(info RenderInfo, tri Triangle) {
	if info.Flags&FlagTextured != 0 {
		tri = fixUVSeams(tri)
	}
	group, ok := a.groups[info]
	if !ok {
		a.order = append(a.order, info)
	}
	a.groups[info] = append(group, tri)
	a.count++
}

// Len returns the number of buffered triangles.
func (a *Assembler) Len() int {
	return a.count
}

// Flush materializes one batch per non-empty group, attaches transform and
// coordinate, and clears the assembler for the next sub-object.
func (a *Assembler) Flush(transform math.Mat4, coordinate int) []*Batch {
	var batches []*Batch
	for _, info := range a.order {
		tris := a.groups[info]
		if len(tris) == 0 {
			continue
		}
		batches = append(batches, &Batch{
			Info:       info,
			Triangles:  tris,
			Transform:  transform,
			Coordinate: coordinate,
			World:      transform,
		})
	}
	clear(a.groups)
	a.order = a.order[:0]
	a.count = 0
	return batches
}
