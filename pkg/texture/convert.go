// Package texture converts recovered VRAM images to standard image types and
// writes them out.
package texture

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/Faultbox/psxscan/pkg/scene"
)

var (
	// ErrDisposed is returned for a texture whose pixels were released.
	ErrDisposed = errors.New("texture is disposed")

	// ErrNoPalette is returned when an indexed texture lacks the requested CLUT.
	ErrNoPalette = errors.New("palette not present")
)

// Color15 expands a 15-bit PSX color (5 bits each of R, G, B from the low
// bits up) to RGBA. 0x0000 is the transparent black key; every other entry
// is opaque.
func Color15(c uint16) color.RGBA {
	if IsBlackKey(c) {
		return color.RGBA{}
	}
	expand := func(v uint16) uint8 {
		v &= 0x1F
		return uint8(v<<3 | v>>2)
	}
	return color.RGBA{R: expand(c), G: expand(c >> 5), B: expand(c >> 10), A: 255}
}

// IsBlackKey reports whether a 15-bit entry is the fully transparent key.
// Black with the STP bit set stays opaque.
func IsBlackKey(c uint16) bool {
	return c == 0
}

// ToRGBA decodes t using CLUT row palette for indexed depths.
func ToRGBA(t *scene.Texture, palette int) (*image.RGBA, error) {
	if t == nil || t.Disposed() {
		return nil, ErrDisposed
	}
	if t.Width <= 0 || t.Height <= 0 {
		return nil, fmt.Errorf("texture has size %dx%d", t.Width, t.Height)
	}
	stride := len(t.Pixels) / t.Height
	if stride*8 < t.Width*t.BPP {
		return nil, fmt.Errorf("texture pixel data too short: %d bytes for %dx%d %dbpp",
			len(t.Pixels), t.Width, t.Height, t.BPP)
	}

	var clut []uint16
	if t.Indexed() {
		if palette < 0 || palette >= len(t.Palettes) {
			return nil, fmt.Errorf("%w: CLUT %d of %d", ErrNoPalette, palette, len(t.Palettes))
		}
		clut = t.Palettes[palette]
	}
	lookup := func(i int) color.RGBA {
		if i >= len(clut) {
			return color.RGBA{}
		}
		return Color15(clut[i])
	}

	img := image.NewRGBA(image.Rect(0, 0, t.Width, t.Height))
	for y := 0; y < t.Height; y++ {
		row := t.Pixels[y*stride : (y+1)*stride]
		for x := 0; x < t.Width; x++ {
			var c color.RGBA
			switch t.BPP {
			case 4:
				b := row[x/2]
				if x%2 == 1 {
					b >>= 4
				}
				c = lookup(int(b & 0x0F))
			case 8:
				c = lookup(int(row[x]))
			case 16:
				c = Color15(uint16(row[x*2]) | uint16(row[x*2+1])<<8)
			case 24:
				c = color.RGBA{R: row[x*3], G: row[x*3+1], B: row[x*3+2], A: 255}
			default:
				return nil, fmt.Errorf("unsupported depth %dbpp", t.BPP)
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img, nil
}
