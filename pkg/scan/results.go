package scan

import (
	"github.com/Faultbox/psxscan/pkg/anim"
	"github.com/Faultbox/psxscan/pkg/scene"
)

// Decoder recognizes one format at the cursor's base offset.
//
// Decode fills r with whatever it recovered and returns nil, or returns an
// error wrapping ErrMismatch when the bytes are not a record. Textures added
// to r are owned by the scanner until forwarded.
type Decoder interface {
	Format() string
	MinIncrement() int64
	Decode(c *Cursor, r *Results) error
}

// Results is the candidate set of one decode attempt.
type Results struct {
	Entities   []*scene.Entity
	Textures   []*scene.Texture
	Animations []*anim.Animation
}

// AddEntity appends an entity candidate.
func (r *Results) AddEntity(e *scene.Entity) {
	r.Entities = append(r.Entities, e)
}

// AddTexture appends a texture candidate.
func (r *Results) AddTexture(t *scene.Texture) {
	r.Textures = append(r.Textures, t)
}

// AddAnimation appends an animation candidate.
func (r *Results) AddAnimation(a *anim.Animation) {
	r.Animations = append(r.Animations, a)
}

// Empty reports whether nothing was recovered.
func (r *Results) Empty() bool {
	return len(r.Entities) == 0 && len(r.Textures) == 0 && len(r.Animations) == 0
}

// Len returns the total number of candidates.
func (r *Results) Len() int {
	return len(r.Entities) + len(r.Textures) + len(r.Animations)
}

// reject disposes tex and removes it from every entity candidate.
func (r *Results) reject(tex *scene.Texture) {
	tex.Dispose()
	for _, e := range r.Entities {
		e.RemoveTexture(tex)
	}
}

// discard drops every candidate, disposing the textures.
func (r *Results) discard() {
	for _, t := range r.Textures {
		r.reject(t)
	}
	for _, e := range r.Entities {
		e.Dispose()
	}
	r.reset()
}

// reset clears the candidate slices without disposing anything. Pointers
// are zeroed so nothing from one attempt survives into the next.
func (r *Results) reset() {
	clear(r.Entities)
	clear(r.Textures)
	clear(r.Animations)
	r.Entities = r.Entities[:0]
	r.Textures = r.Textures[:0]
	r.Animations = r.Animations[:0]
}
