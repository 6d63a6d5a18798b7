// Package limits holds the sanity thresholds used to bound counts read from
// untrusted dump data.
//
// An arbitrary probe offset routinely aliases into unrelated bytes, so every
// count a decoder reads is checked against one of these bounds before it is
// used to allocate or loop. Limits are plain values threaded into decoders at
// construction; there is no package-level state.
package limits

import (
	"errors"
	"fmt"
)

// ErrLimitExceeded is returned when a count read from data is out of range.
var ErrLimitExceeded = errors.New("sanity limit exceeded")

// Limits bounds the sizes of structures decoded from a dump.
type Limits struct {
	MaxObjects     int `yaml:"max_objects"`
	MaxVertices    int `yaml:"max_vertices"`
	MaxNormals     int `yaml:"max_normals"`
	MaxPrimitives  int `yaml:"max_primitives"`
	MaxCoordinates int `yaml:"max_coordinates"`

	MaxTextureWidth  int `yaml:"max_texture_width"`
	MaxTextureHeight int `yaml:"max_texture_height"`
	MaxClutColors    int `yaml:"max_clut_colors"`
	MaxClutCount     int `yaml:"max_clut_count"`
	MaxTextures      int `yaml:"max_textures"`

	MaxAnimObjects   int `yaml:"max_anim_objects"`
	MaxAnimFrames    int `yaml:"max_anim_frames"`
	MaxInstructions  int `yaml:"max_instructions"`
	MaxParameterWord int `yaml:"max_parameter_words"`

	// Strict rejects records containing primitive kinds a decoder does not
	// understand instead of skipping them.
	Strict bool `yaml:"strict" env:"PSXSCAN_STRICT"`
}

// Default returns the thresholds used when no configuration overrides them.
func Default() Limits {
	return Limits{
		MaxObjects:     512,
		MaxVertices:    8192,
		MaxNormals:     8192,
		MaxPrimitives:  16384,
		MaxCoordinates: 512,

		MaxTextureWidth:  1024,
		MaxTextureHeight: 512,
		MaxClutColors:    256,
		MaxClutCount:     256,
		MaxTextures:      64,

		MaxAnimObjects:   512,
		MaxAnimFrames:    5000,
		MaxInstructions:  65536,
		MaxParameterWord: 1 << 20,
	}
}

// Check returns an error unless 0 <= n <= max. A zero max disables the bound.
func Check(what string, n int64, max int) error {
	if n < 0 {
		return fmt.Errorf("%w: %s count %d is negative", ErrLimitExceeded, what, n)
	}
	if max > 0 && n > int64(max) {
		return fmt.Errorf("%w: %s count %d exceeds %d", ErrLimitExceeded, what, n, max)
	}
	return nil
}

// CheckNonZero is Check for counts that must be at least one.
func CheckNonZero(what string, n int64, max int) error {
	if n == 0 {
		return fmt.Errorf("%w: %s count is zero", ErrLimitExceeded, what)
	}
	return Check(what, n, max)
}

// Merge returns l with every zero field replaced by the matching field of
// fallback. Strict is taken from l.
func (l Limits) Merge(fallback Limits) Limits {
	pick := func(v, d int) int {
		if v == 0 {
			return d
		}
		return v
	}
	return Limits{
		MaxObjects:       pick(l.MaxObjects, fallback.MaxObjects),
		MaxVertices:      pick(l.MaxVertices, fallback.MaxVertices),
		MaxNormals:       pick(l.MaxNormals, fallback.MaxNormals),
		MaxPrimitives:    pick(l.MaxPrimitives, fallback.MaxPrimitives),
		MaxCoordinates:   pick(l.MaxCoordinates, fallback.MaxCoordinates),
		MaxTextureWidth:  pick(l.MaxTextureWidth, fallback.MaxTextureWidth),
		MaxTextureHeight: pick(l.MaxTextureHeight, fallback.MaxTextureHeight),
		MaxClutColors:    pick(l.MaxClutColors, fallback.MaxClutColors),
		MaxClutCount:     pick(l.MaxClutCount, fallback.MaxClutCount),
		MaxTextures:      pick(l.MaxTextures, fallback.MaxTextures),
		MaxAnimObjects:   pick(l.MaxAnimObjects, fallback.MaxAnimObjects),
		MaxAnimFrames:    pick(l.MaxAnimFrames, fallback.MaxAnimFrames),
		MaxInstructions:  pick(l.MaxInstructions, fallback.MaxInstructions),
		MaxParameterWord: pick(l.MaxParameterWord, fallback.MaxParameterWord),
		Strict:           l.Strict,
	}
}
