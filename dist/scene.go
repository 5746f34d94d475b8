package dist

import (
	"errors"

	"github.com/chewxy/math32"
	"github.com/soypat/glgl/math/ms2"
	"github.com/soypat/sdfray/scene"
)

// Scene evaluates a primitive set directly on the CPU. It is the reference
// distance source: every query recomputes the exact distance.
type Scene struct {
	Set *scene.Set
	// K is the smoothing parameter, see [SmoothMin].
	K float32
}

// Distance returns the signed distance from p to the scene.
func (s Scene) Distance(p ms2.Vec) float32 {
	return Set(p, s.Set, s.K)
}

// Tolerance is zero since distances are exact.
func (s Scene) Tolerance() float32 { return 0 }

// Evaluate evaluates the scene over pos positions and stores the result in dist.
// dist and pos must be of same length.
func (s Scene) Evaluate(pos []ms2.Vec, dist []float32) error {
	if len(pos) != len(dist) {
		return errors.New("position and distance buffers length mismatch")
	}
	if s.Set == nil {
		return errors.New("nil scene")
	}
	for i := range dist {
		dist[i] = math32.Inf(1)
	}
	for _, c := range s.Set.Circles {
		for i, p := range pos {
			dist[i] = SmoothMin(dist[i], Circle(p, c.Position, c.Radius), s.K)
		}
	}
	for _, r := range s.Set.Rects {
		center, half := r.Center(), r.HalfExtent()
		for i, p := range pos {
			dist[i] = SmoothMin(dist[i], Rectangle(p, center, half), s.K)
		}
	}
	return nil
}

// Bounds returns the box containing all primitives of the scene.
// An empty scene has a zero box.
func (s Scene) Bounds() ms2.Box {
	if s.Set == nil || s.Set.Len() == 0 {
		return ms2.Box{}
	}
	min := ms2.Vec{X: math32.MaxFloat32, Y: math32.MaxFloat32}
	max := ms2.Scale(-1, min)
	for _, c := range s.Set.Circles {
		r := ms2.Vec{X: c.Radius, Y: c.Radius}
		min = ms2.MinElem(min, ms2.Sub(c.Position, r))
		max = ms2.MaxElem(max, ms2.Add(c.Position, r))
	}
	for _, r := range s.Set.Rects {
		bb := r.Bounds()
		min = ms2.MinElem(min, bb.Min)
		max = ms2.MaxElem(max, bb.Max)
	}
	return ms2.Box{Min: min, Max: max}
}

// PixelCenters appends the sampling positions of a width by height pixel
// grid in row-major order. Pixel (x,y) is sampled at integer coordinates (x,y).
func PixelCenters(dst []ms2.Vec, width, height int) []ms2.Vec {
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			dst = append(dst, ms2.Vec{X: float32(x), Y: float32(y)})
		}
	}
	return dst
}
