package texture

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/bmp"

	"github.com/Faultbox/psxscan/pkg/scene"
)

// Image file formats.
const (
	FormatTGA = "tga"
	FormatPNG = "png"
	FormatBMP = "bmp"
)

// Formats lists the supported export formats.
var Formats = []string{FormatTGA, FormatPNG, FormatBMP}

// ValidFormat reports whether name is a supported export format.
func ValidFormat(name string) bool {
	for _, f := range Formats {
		if strings.EqualFold(f, name) {
			return true
		}
	}
	return false
}

// Encode writes img to w in the named format.
func Encode(w io.Writer, img image.Image, format string) error {
	switch strings.ToLower(format) {
	case FormatTGA:
		return tga.Encode(w, img)
	case FormatPNG:
		return png.Encode(w, img)
	case FormatBMP:
		return bmp.Encode(w, img)
	}
	return fmt.Errorf("unknown image format %q", format)
}

// FileName returns the export name of t: its display name, its ordinal at
// the offset and, for containers, the sub-format.
func FileName(t *scene.Texture, format string) string {
	name := fmt.Sprintf("%s_%d", t.Origin.Name, t.Origin.Index)
	if t.Origin.SubFormat != "" {
		name += "_" + strings.ToLower(t.Origin.SubFormat)
	}
	return name + "." + strings.ToLower(format)
}

// Export writes every CLUT row of t (or the single image of a direct-color
// texture) into dir and returns the paths written.
func Export(t *scene.Texture, dir, format string) ([]string, error) {
	palettes := 1
	if t.Indexed() {
		palettes = len(t.Palettes)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	base := FileName(t, format)
	ext := filepath.Ext(base)
	var paths []string
	for p := range palettes {
		img, err := ToRGBA(t, p)
		if err != nil {
			return paths, err
		}
		name := base
		if palettes > 1 {
			name = fmt.Sprintf("%s_clut%d%s", strings.TrimSuffix(base, ext), p, ext)
		}
		path := filepath.Join(dir, name)
		if err := writeImage(path, img, format); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeImage(path string, img image.Image, format string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(f, img, format); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
