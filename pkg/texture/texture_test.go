package texture

import (
	"bytes"
	"errors"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/ftrvxmtrx/tga"

	"github.com/Faultbox/psxscan/pkg/asset"
	"github.com/Faultbox/psxscan/pkg/scene"
)

const (
	red   = 0x001F
	green = 0x03E0
	blue  = 0x7C00
	stp   = 0x8000
)

func indexed4() *scene.Texture {
	t := scene.NewTexture(0, 4, 2, 4)
	t.Origin = asset.Origin{Name: "dump_40", Index: 1}
	t.Pixels = []byte{0x10, 0x32, 0x23, 0x01}
	pal := make([]uint16, 16)
	pal[0], pal[1], pal[2], pal[3] = 0, red, green, blue|stp
	t.Palettes = [][]uint16{pal, make([]uint16, 16)}
	return t
}

func TestColor15(t *testing.T) {
	tests := []struct {
		in   uint16
		want color.RGBA
	}{
		{0, color.RGBA{}},
		{stp, color.RGBA{A: 255}},
		{red, color.RGBA{R: 255, A: 255}},
		{green, color.RGBA{G: 255, A: 255}},
		{blue | stp, color.RGBA{B: 255, A: 255}},
		{0x10 << 5, color.RGBA{G: 0x84, A: 255}},
	}
	for _, tt := range tests {
		if got := Color15(tt.in); got != tt.want {
			t.Errorf("Color15(0x%04X) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestToRGBA(t *testing.T) {
	t.Run("4bpp low nibble first", func(t *testing.T) {
		tex := indexed4()
		defer tex.Dispose()
		img, err := ToRGBA(tex, 0)
		if err != nil {
			t.Fatalf("ToRGBA: %v", err)
		}
		want := [][]color.RGBA{
			{{}, Color15(red), Color15(green), Color15(blue)},
			{Color15(blue), Color15(green), Color15(red), {}},
		}
		for y, row := range want {
			for x, c := range row {
				if got := img.RGBAAt(x, y); got != c {
					t.Errorf("pixel (%d,%d) = %v, want %v", x, y, got, c)
				}
			}
		}
	})

	t.Run("16bpp and 24bpp", func(t *testing.T) {
		t16 := scene.NewTexture(0, 2, 1, 16)
		defer t16.Dispose()
		t16.Pixels = []byte{0x1F, 0x00, 0x00, 0x00}
		img, err := ToRGBA(t16, 0)
		if err != nil || img.RGBAAt(0, 0) != Color15(red) || img.RGBAAt(1, 0).A != 0 {
			t.Errorf("16bpp decode wrong: %v", err)
		}

		t24 := scene.NewTexture(0, 2, 1, 24)
		defer t24.Dispose()
		t24.Pixels = []byte{1, 2, 3, 4, 5, 6}
		img, err = ToRGBA(t24, 0)
		if err != nil || img.RGBAAt(1, 0) != (color.RGBA{4, 5, 6, 255}) {
			t.Errorf("24bpp decode wrong: %v", err)
		}
	})

	t.Run("errors", func(t *testing.T) {
		tex := indexed4()
		if _, err := ToRGBA(tex, 2); !errors.Is(err, ErrNoPalette) {
			t.Errorf("expected ErrNoPalette, got %v", err)
		}
		tex.Pixels = tex.Pixels[:2]
		if _, err := ToRGBA(tex, 0); err == nil {
			t.Error("expected error for short pixel data")
		}
		tex.Dispose()
		if _, err := ToRGBA(tex, 0); !errors.Is(err, ErrDisposed) {
			t.Errorf("expected ErrDisposed, got %v", err)
		}
	})
}

func TestExport(t *testing.T) {
	tex := indexed4()
	defer tex.Dispose()
	dir := filepath.Join(t.TempDir(), "out")

	paths, err := Export(tex, dir, FormatTGA)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(paths) != 2 || filepath.Base(paths[0]) != "dump_40_1_clut0.tga" {
		t.Fatalf("paths = %v", paths)
	}

	f, err := os.Open(paths[0])
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := tga.Decode(f)
	if err != nil {
		t.Fatalf("tga.Decode: %v", err)
	}
	r, g, b, a := img.At(1, 0).RGBA()
	if r>>8 != 255 || g != 0 || b != 0 || a>>8 != 255 {
		t.Errorf("exported pixel = %d %d %d %d", r>>8, g>>8, b>>8, a>>8)
	}
}

func TestEncodeFormats(t *testing.T) {
	tex := indexed4()
	defer tex.Dispose()
	img, err := ToRGBA(tex, 0)
	if err != nil {
		t.Fatal(err)
	}

	for _, format := range Formats {
		var buf bytes.Buffer
		if err := Encode(&buf, img, format); err != nil || buf.Len() == 0 {
			t.Errorf("Encode(%s) = %d bytes, %v", format, buf.Len(), err)
		}
		if format == FormatPNG {
			back, err := png.Decode(&buf)
			if err != nil || back.Bounds() != img.Bounds() {
				t.Errorf("png round trip: %v", err)
			}
		}
	}
	if err := Encode(&bytes.Buffer{}, img, "gif"); err == nil {
		t.Error("expected error for unknown format")
	}
	if !ValidFormat("PNG") || ValidFormat("gif") {
		t.Error("ValidFormat mismatch")
	}
}

func TestFileName(t *testing.T) {
	tex := scene.NewTexture(0, 1, 1, 16)
	defer tex.Dispose()
	tex.Origin = asset.Origin{Name: "game_1A0", SubFormat: "TIM"}
	if got := FileName(tex, "PNG"); got != "game_1A0_0_tim.png" {
		t.Errorf("FileName = %q", got)
	}
}
