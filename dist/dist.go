// Package dist implements exact signed distance functions for the scene
// primitives and their min-reduction over a whole scene.
//
// Distances are negative inside a shape, zero on its boundary and positive
// outside. The same reductions are implemented by the device kernels so the
// direct evaluation path and the field sampling path agree.
package dist

import (
	"github.com/chewxy/math32"
	"github.com/soypat/glgl/math/ms2"
	"github.com/soypat/sdfray/scene"
)

// Circle returns the signed distance from p to the circle centered at c with radius r.
func Circle(p, c ms2.Vec, r float32) float32 {
	return ms2.Norm(ms2.Sub(c, p)) - r
}

// Rectangle returns the signed distance from p to the axis aligned box
// centered at c with half extent h.
func Rectangle(p, c, h ms2.Vec) float32 {
	d := ms2.Sub(ms2.AbsElem(ms2.Sub(p, c)), h)
	return ms2.Norm(ms2.MaxElem(d, ms2.Vec{})) + math32.Min(math32.Max(d.X, d.Y), 0)
}

// Primitive returns the signed distance from p to prim.
func Primitive(p ms2.Vec, prim scene.Primitive) float32 {
	switch prim.Kind {
	case scene.KindCircle:
		return Circle(p, prim.Center, prim.Size.X)
	case scene.KindRect:
		return Rectangle(p, prim.Center, prim.Size)
	}
	panic("unknown primitive kind " + prim.Kind.String())
}

// SmoothMin blends a and b over a region of size k. For k<=0 it is the exact minimum.
func SmoothMin(a, b, k float32) float32 {
	if k <= 0 || math32.IsInf(a, 1) || math32.IsInf(b, 1) {
		return math32.Min(a, b)
	}
	h := clampf(0.5+0.5*(b-a)/k, 0, 1)
	return mixf(b, a, h) - k*h*(1-h)
}

// Set returns the distance from p to the closest primitive of s, circles
// reduced before rectangles. An empty set is infinitely far away.
// k is the blending parameter passed to [SmoothMin].
func Set(p ms2.Vec, s *scene.Set, k float32) float32 {
	d := math32.Inf(1)
	for _, c := range s.Circles {
		d = SmoothMin(d, Circle(p, c.Position, c.Radius), k)
	}
	for _, r := range s.Rects {
		d = SmoothMin(d, Rectangle(p, r.Center(), r.HalfExtent()), k)
	}
	return d
}

// Segment returns the unsigned distance from p to the segment from a to b.
func Segment(p, a, b ms2.Vec) float32 {
	pa, ba := ms2.Sub(p, a), ms2.Sub(b, a)
	den := ms2.Dot(ba, ba)
	if den == 0 {
		return ms2.Norm(pa)
	}
	h := clampf(ms2.Dot(pa, ba)/den, 0, 1)
	return ms2.Norm(ms2.Sub(pa, ms2.Scale(h, ba)))
}

func clampf(v, min, max float32) float32 {
	return math32.Min(max, math32.Max(v, min))
}

func mixf(x, y, a float32) float32 {
	return x*(1-a) + y*a
}
