package scene

import (
	"errors"
	"fmt"

	"github.com/Faultbox/psxscan/pkg/anim"
	"github.com/Faultbox/psxscan/pkg/asset"
	"github.com/Faultbox/psxscan/pkg/math"
)

// ErrEmptyEntity is returned by Finalize for an entity with no triangles.
var ErrEmptyEntity = errors.New("entity has no triangles")

// Bounds is an axis-aligned bounding box.
type Bounds struct {
	Min, Max math.Vec3
	Valid    bool
}

// Extend grows b to contain p.
func (b *Bounds) Extend(p math.Vec3) {
	if !b.Valid {
		b.Min, b.Max, b.Valid = p, p, true
		return
	}
	b.Min = b.Min.Min(p)
	b.Max = b.Max.Max(p)
}

// Size returns the box extent.
func (b Bounds) Size() math.Vec3 {
	return b.Max.Sub(b.Min)
}

// Entity is one recovered model: its draw batches, the textures and
// animations decoded alongside it, and an optional coordinate hierarchy.
type Entity struct {
	Origin asset.Origin
	Label  string

	Batches    []*Batch
	Hierarchy  *Hierarchy
	Textures   []*Texture
	Animations []*anim.Animation
	Bounds     Bounds
	finalized  bool
}

// AddBatches appends flushed batches.
func (e *Entity) AddBatches(batches ...*Batch) {
	e.Batches = append(e.Batches, batches...)
}

// OwnTexture records tex as produced with this entity.
func (e *Entity) OwnTexture(tex *Texture) {
	tex.owners++
	e.Textures = append(e.Textures, tex)
}

// RemoveTexture detaches tex without disposing it. It reports whether tex
// was owned.
func (e *Entity) RemoveTexture(tex *Texture) bool {
	for i, t := range e.Textures {
		if t == tex {
			tex.owners--
			e.Textures = append(e.Textures[:i], e.Textures[i+1:]...)
			return true
		}
	}
	return false
}

// OwnAnimation records a as produced with this entity.
func (e *Entity) OwnAnimation(a *anim.Animation) {
	e.Animations = append(e.Animations, a)
}

// TriangleCount returns the number of triangles across every batch.
func (e *Entity) TriangleCount() int {
	n := 0
	for _, b := range e.Batches {
		n += len(b.Triangles)
	}
	return n
}

// Finalize resolves every batch's world matrix against the hierarchy and
// computes bounds in world space. It fails for an empty entity, an invalid
// hierarchy, or a batch bound to a missing coordinate.
func (e *Entity) Finalize() error {
	if e.finalized {
		return nil
	}
	if e.TriangleCount() == 0 {
		return ErrEmptyEntity
	}
	if e.Hierarchy != nil {
		if err := e.Hierarchy.Validate(); err != nil {
			return err
		}
	}

	var bounds Bounds
	for i, b := range e.Batches {
		world := b.Transform
		if b.Coordinate != NoCoordinate {
			if e.Hierarchy == nil {
				return fmt.Errorf("%w: batch %d bound to coordinate %d without a hierarchy", ErrInvalidHierarchy, i, b.Coordinate)
			}
			coord, err := e.Hierarchy.WorldMatrix(b.Coordinate)
			if err != nil {
				return fmt.Errorf("batch %d: %w", i, err)
			}
			world = coord.Mul(b.Transform)
		}
		b.World = world
		for _, tri := range b.Triangles {
			for _, v := range tri.Vertices {
				bounds.Extend(world.TransformPoint(v))
			}
		}
	}
	e.Bounds = bounds
	e.finalized = true
	return nil
}

// Dispose releases the entity's hold on its textures and disposes those no
// other entity still lists.
func (e *Entity) Dispose() {
	for _, t := range e.Textures {
		t.owners--
		if t.owners <= 0 {
			t.Dispose()
		}
	}
	e.Textures = nil
}

func (e *Entity) String() string {
	return fmt.Sprintf("%s batches=%d tris=%d", e.Origin, len(e.Batches), e.TriangleCount())
}
