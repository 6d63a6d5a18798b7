package scene

import (
	"fmt"
	"sync/atomic"

	"github.com/Faultbox/psxscan/pkg/asset"
)

// live counts textures that were created and not yet disposed.
var live atomic.Int64

// LiveTextures returns the number of undisposed textures in the process.
func LiveTextures() int64 {
	return live.Load()
}

// Texture is a recovered VRAM image. Pixel data is kept in its raw PSX
// encoding; Palettes hold 15-bit CLUT entries for indexed depths.
type Texture struct {
	Origin asset.Origin
	Label  string

	Key    uint32 // texture page lookup key
	X, Y   int    // VRAM position in 16-bit units
	Width  int    // in pixels
	Height int
	BPP    int

	Pixels   []byte
	Palettes [][]uint16

	SemiTransparent bool // any entry has the STP bit
	HasBlackKey     bool // any entry is the transparent 0x0000

	owners   int // entities listing this texture
	disposed bool
}

// NewTexture returns a live texture. Ownership passes to whoever receives
// it; the owner must call Dispose once the texture is no longer needed.
func NewTexture(key uint32, width, height, bpp int) *Texture {
	live.Add(1)
	return &Texture{Key: key, Width: width, Height: height, BPP: bpp}
}

// Dispose releases the pixel data. Calling it more than once is safe.
func (t *Texture) Dispose() {
	if t == nil || t.disposed {
		return
	}
	t.disposed = true
	t.Pixels = nil
	t.Palettes = nil
	live.Add(-1)
}

// Owned reports whether any entity lists t among its textures. An owned
// texture is disposed by its entity.
func (t *Texture) Owned() bool {
	return t.owners > 0
}

// Disposed reports whether Dispose was called.
func (t *Texture) Disposed() bool {
	return t.disposed
}

// Indexed reports whether the texture uses a palette.
func (t *Texture) Indexed() bool {
	return t.BPP == 4 || t.BPP == 8
}

// Colors returns the palette size for indexed depths and 0 otherwise.
func (t *Texture) Colors() int {
	switch t.BPP {
	case 4:
		return 16
	case 8:
		return 256
	}
	return 0
}

// ScanPalettes sets SemiTransparent and HasBlackKey from the palette (or,
// for 16-bit textures, the pixel) entries.
func (t *Texture) ScanPalettes() {
	check := func(c uint16) {
		if c&0x8000 != 0 {
			t.SemiTransparent = true
		}
		if c == 0 {
			t.HasBlackKey = true
		}
	}
	for _, pal := range t.Palettes {
		for _, c := range pal {
			check(c)
		}
	}
	if t.BPP == 16 {
		for i := 0; i+1 < len(t.Pixels); i += 2 {
			check(uint16(t.Pixels[i]) | uint16(t.Pixels[i+1])<<8)
		}
	}
}

func (t *Texture) String() string {
	return fmt.Sprintf("%s page=%d %dx%d %dbpp", t.Origin, t.Key, t.Width, t.Height, t.BPP)
}

// TextureSet is a lookup of textures by page key, used to resolve batch
// texture keys after recovery.
type TextureSet struct {
	byKey map[uint32][]*Texture
}

// NewTextureSet returns an empty set.
func NewTextureSet() *TextureSet {
	return &TextureSet{byKey: make(map[uint32][]*Texture)}
}

// Add indexes tex under its key. Later additions shadow earlier ones.
func (s *TextureSet) Add(tex *Texture) {
	s.byKey[tex.Key] = append(s.byKey[tex.Key], tex)
}

// Lookup returns the most recently added texture for key.
func (s *TextureSet) Lookup(key uint32) (*Texture, bool) {
	list := s.byKey[key]
	if len(list) == 0 {
		return nil, false
	}
	return list[len(list)-1], true
}

// Resolve returns the texture for each textured batch of e, and the keys
// that had no match.
func (s *TextureSet) Resolve(e *Entity) (map[*Batch]*Texture, []uint32) {
	found := make(map[*Batch]*Texture)
	var missing []uint32
	seen := make(map[uint32]bool)
	for _, b := range e.Batches {
		if !b.Textured() {
			continue
		}
		if tex, ok := s.Lookup(b.TextureKey()); ok {
			found[b] = tex
			continue
		}
		if !seen[b.TextureKey()] {
			seen[b.TextureKey()] = true
			missing = append(missing, b.TextureKey())
		}
	}
	return found, missing
}
