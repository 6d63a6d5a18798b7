package formats

import (
	"encoding/binary"
	"fmt"

	"github.com/Faultbox/psxscan/pkg/limits"
	"github.com/Faultbox/psxscan/pkg/scan"
	"github.com/Faultbox/psxscan/pkg/scene"
)

// TIM constants.
const (
	TIMID       = 0x10
	TIMFlagCLUT = 0x08

	timBlockHeader = 12
)

// TIMPixelMode is the pixel depth code of a TIM image.
type TIMPixelMode uint32

// Pixel modes.
const (
	TIM4BPP  TIMPixelMode = 0
	TIM8BPP  TIMPixelMode = 1
	TIM16BPP TIMPixelMode = 2
	TIM24BPP TIMPixelMode = 3
)

// BPP returns the bits per pixel.
func (m TIMPixelMode) BPP() int {
	switch m {
	case TIM4BPP:
		return 4
	case TIM8BPP:
		return 8
	case TIM16BPP:
		return 16
	case TIM24BPP:
		return 24
	default:
		return 0
	}
}

// PixelWidth converts an image width in 16-bit VRAM units to pixels.
func (m TIMPixelMode) PixelWidth(units int) int {
	switch m {
	case TIM4BPP:
		return units * 4
	case TIM8BPP:
		return units * 2
	case TIM24BPP:
		return units * 2 / 3
	default:
		return units
	}
}

// TexturePageKey returns the texture page holding VRAM position (x, y).
// Pages are 64 units wide and 256 lines high, 16 per row.
func TexturePageKey(x, y int) uint32 {
	return uint32(x/64 + (y/256)*16)
}

// timBlock is the header of a CLUT or image block.
type timBlock struct {
	Length uint32
	X, Y   uint16
	W, H   uint16
}

func readTIMBlock(c *scan.Cursor) timBlock {
	return timBlock{Length: c.U32(), X: c.U16(), Y: c.U16(), W: c.U16(), H: c.U16()}
}

func (b timBlock) check(what string) error {
	if b.W == 0 || b.H == 0 {
		return scan.Mismatch("TIM %s block is empty", what)
	}
	if want := uint32(timBlockHeader) + uint32(b.W)*uint32(b.H)*2; b.Length != want {
		return scan.Mismatch("TIM %s block length %d, want %d", what, b.Length, want)
	}
	if int(b.X)+int(b.W) > 1024 || int(b.Y)+int(b.H) > 512 {
		return scan.Mismatch("TIM %s block outside VRAM at (%d, %d)", what, b.X, b.Y)
	}
	return nil
}

// parseTIM reads one TIM image at the cursor position and leaves the cursor
// just past it. No texture is allocated unless the whole image is valid.
func parseTIM(c *scan.Cursor, lim limits.Limits) (*scene.Texture, error) {
	id := c.U32()
	flags := c.U32()
	if err := c.Err(); err != nil {
		return nil, err
	}
	if id != TIMID {
		return nil, scan.Mismatch("TIM id 0x%X", id)
	}
	if flags&^(TIMFlagCLUT|0x7) != 0 || flags&0x7 > uint32(TIM24BPP) {
		return nil, scan.Mismatch("TIM flags 0x%X", flags)
	}
	mode := TIMPixelMode(flags & 0x7)
	hasCLUT := flags&TIMFlagCLUT != 0

	var palettes [][]uint16
	if hasCLUT {
		clut := readTIMBlock(c)
		if err := c.Err(); err != nil {
			return nil, err
		}
		if err := clut.check("CLUT"); err != nil {
			return nil, err
		}
		if err := limits.Check("CLUT colors", int64(clut.W), lim.MaxClutColors); err != nil {
			return nil, err
		}
		if err := limits.Check("CLUTs", int64(clut.H), lim.MaxClutCount); err != nil {
			return nil, err
		}
		raw := c.Bytes(int(clut.W) * int(clut.H) * 2)
		if err := c.Err(); err != nil {
			return nil, err
		}
		palettes = make([][]uint16, clut.H)
		for i := range palettes {
			pal := make([]uint16, clut.W)
			for j := range pal {
				pal[j] = binary.LittleEndian.Uint16(raw[(i*int(clut.W)+j)*2:])
			}
			palettes[i] = pal
		}
	} else if mode == TIM4BPP || mode == TIM8BPP {
		return nil, scan.Mismatch("indexed TIM without CLUT")
	}

	img := readTIMBlock(c)
	if err := c.Err(); err != nil {
		return nil, err
	}
	if err := img.check("image"); err != nil {
		return nil, err
	}
	width := mode.PixelWidth(int(img.W))
	if err := limits.CheckNonZero("texture width", int64(width), lim.MaxTextureWidth); err != nil {
		return nil, err
	}
	if err := limits.Check("texture height", int64(img.H), lim.MaxTextureHeight); err != nil {
		return nil, err
	}
	pixels := c.Bytes(int(img.W) * int(img.H) * 2)
	if err := c.Err(); err != nil {
		return nil, fmt.Errorf("TIM image data: %w", err)
	}

	tex := scene.NewTexture(TexturePageKey(int(img.X), int(img.Y)), width, int(img.H), mode.BPP())
	tex.X, tex.Y = int(img.X), int(img.Y)
	tex.Pixels = pixels
	tex.Palettes = palettes
	tex.ScanPalettes()
	return tex, nil
}

// TIMDecoder recovers standalone TIM textures.
type TIMDecoder struct {
	Limits limits.Limits
}

// NewTIMDecoder returns a TIM decoder bounded by lim.
func NewTIMDecoder(lim limits.Limits) *TIMDecoder {
	return &TIMDecoder{Limits: lim.Merge(limits.Default())}
}

func (d *TIMDecoder) Format() string { return "TIM" }

// MinIncrement is 4: TIM records are word aligned.
func (d *TIMDecoder) MinIncrement() int64 { return 4 }

// Decode reads a TIM at the cursor base.
func (d *TIMDecoder) Decode(c *scan.Cursor, r *scan.Results) error {
	tex, err := parseTIM(c, d.Limits)
	if err != nil {
		return err
	}
	r.AddTexture(tex)
	return nil
}
