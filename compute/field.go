package compute

import (
	"encoding/binary"

	"github.com/chewxy/math32"
	"github.com/soypat/glgl/math/ms2"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Field is a dense row-major grid of distances with its origin at the top
// left pixel. Pixel (x,y) holds the distance at scene coordinates (x,y).
type Field struct {
	Width, Height int
	Format        PixelFormat
	// Scale is the distance encoded as full intensity in FormatRGBA8.
	Scale float32
	Pix   []byte
}

// At returns the distance stored at pixel (x,y). Coordinates outside the
// field are clamped to its border.
func (f Field) At(x, y int) float32 {
	x = clampi(x, 0, f.Width-1)
	y = clampi(y, 0, f.Height-1)
	off := (y*f.Width + x) * f.Format.BytesPerPixel()
	switch f.Format {
	case FormatRGBA8:
		return float32(f.Pix[off]) / 255 * f.Scale
	case FormatR32F:
		return math32.Float32frombits(binary.LittleEndian.Uint32(f.Pix[off:]))
	}
	panic("invalid pixel format " + f.Format.String())
}

// Distance returns the stored distance of the pixel containing p. The
// coordinates of p are truncated to integers.
func (f Field) Distance(p ms2.Vec) float32 {
	return f.At(int(p.X), int(p.Y))
}

// Tolerance returns the quantization step of stored distances.
func (f Field) Tolerance() float32 {
	if f.Format == FormatRGBA8 {
		return f.Scale / 255
	}
	return 0
}

// Clone returns a copy of f that does not alias its pixels.
func (f Field) Clone() Field {
	f.Pix = append([]byte(nil), f.Pix...)
	return f
}

// Distances appends all distances of the field in row-major order to dst.
func (f Field) Distances(dst []float32) []float32 {
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			dst = append(dst, f.At(x, y))
		}
	}
	return dst
}

// FieldStats summarizes the finite distances of a field.
type FieldStats struct {
	Min, Max, Mean, StdDev float64
	// Inside is the fraction of pixels inside a primitive.
	Inside float64
}

// Stats returns statistics of the field's finite distances.
func (f Field) Stats() FieldStats {
	var d []float64
	var inside int
	for _, v := range f.Distances(nil) {
		if math32.IsInf(v, 0) || math32.IsNaN(v) {
			continue
		}
		if v < 0 || (f.Format == FormatRGBA8 && v == 0) {
			inside++
		}
		d = append(d, float64(v))
	}
	if len(d) == 0 {
		return FieldStats{}
	}
	mean, std := stat.MeanStdDev(d, nil)
	return FieldStats{
		Min:    floats.Min(d),
		Max:    floats.Max(d),
		Mean:   mean,
		StdDev: std,
		Inside: float64(inside) / float64(f.Width*f.Height),
	}
}

func clampi(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
