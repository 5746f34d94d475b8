// Package render draws distance fields, scenes and marched rays into images
// and plots for display and inspection.
package render

import (
	"fmt"
	"image"
	"image/color"

	"github.com/chewxy/math32"
	"github.com/fogleman/fauxgl"
	"github.com/soypat/sdfray/compute"
	"github.com/soypat/sdfray/scene"
)

// Mode selects what the background of an overlay shows.
type Mode uint8

const (
	_ Mode = iota
	// ModeShapes draws the scene's shapes in their colors.
	ModeShapes
	// ModeField draws the distance field in grayscale under the shapes' outlines.
	ModeField
)

func (m Mode) String() string {
	switch m {
	case ModeShapes:
		return "shapes"
	case ModeField:
		return "field"
	}
	return fmt.Sprintf("Mode(%d)", uint8(m))
}

// ParseMode parses the name of a display mode as returned by [Mode.String].
func ParseMode(s string) (Mode, error) {
	switch s {
	case "shapes", "":
		return ModeShapes, nil
	case "field":
		return ModeField, nil
	}
	return 0, &scene.ConfigError{Field: "display mode", Index: -1, Msg: fmt.Sprintf("unknown mode %q", s)}
}

// FieldImage returns the field as a grayscale image where intensity is the
// distance relative to the field's scale. Distances inside shapes are black
// and distances beyond the scale are white.
func FieldImage(f compute.Field) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, f.Width, f.Height))
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			img.Pix[y*img.Stride+x] = fieldGray(f, x, y)
		}
	}
	return img
}

func fieldGray(f compute.Field, x, y int) uint8 {
	if f.Format == compute.FormatRGBA8 {
		// Stored intensity is exact, avoid the round trip through distance.
		return f.Pix[(y*f.Width+x)*4]
	}
	v := f.At(x, y) / f.Scale
	return uint8(math32.Round(255 * math32.Min(math32.Max(v, 0), 1)))
}

// SavePNG writes img to path as a PNG file.
func SavePNG(path string, img image.Image) error {
	err := fauxgl.SavePNG(path, img)
	if err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}

func nrgba(c scene.Color) color.NRGBA {
	return color.NRGBA{R: unit8(c.R), G: unit8(c.G), B: unit8(c.B), A: 255}
}

func unit8(v float32) uint8 {
	return uint8(math32.Round(255 * math32.Min(math32.Max(v, 0), 1)))
}
