package render

import (
	"errors"
	"fmt"
	"image"

	"github.com/chewxy/math32"
	"github.com/nfnt/resize"
	"github.com/soypat/glgl/math/ms2"
	"github.com/soypat/sdfray/compute"
	"github.com/soypat/sdfray/dist"
	"github.com/soypat/sdfray/march"
	"github.com/soypat/sdfray/scene"
)

// Overlay rasterizes a scene and a marched ray by evaluating the distance to
// every shape at each sample. Images are drawn at Supersample times the
// output resolution and downsampled for antialiasing.
type Overlay struct {
	Mode Mode
	// Supersample is the amount of samples per output pixel along each axis.
	Supersample int
	Background  scene.Color
	Ray         scene.Color
	// Glow is added to the color under each step's clearance circle.
	Glow scene.Color
	// LineWidth of the ray, shape outlines and glow circles in pixels.
	LineWidth float32
}

// DefaultOverlay returns the overlay used by the viewer.
func DefaultOverlay() Overlay {
	return Overlay{
		Mode:        ModeShapes,
		Supersample: 2,
		Background:  scene.ColorFromHex("#FFF8E3"),
		Ray:         scene.ColorFromHex("#D9261C"),
		Glow:        scene.ColorFromHex("#304060"),
		LineWidth:   2,
	}
}

// Draw returns a width x height image of set with ray's trajectory on top.
// field is required in [ModeField] and must match the image size. ray may
// be nil.
func (o Overlay) Draw(width, height int, set *scene.Set, field *compute.Field, ray *march.Ray) (image.Image, error) {
	if width <= 0 || height <= 0 {
		return nil, &scene.ConfigError{Field: "overlay size", Index: -1, Msg: fmt.Sprintf("%dx%d", width, height)}
	}
	if o.Mode == ModeField {
		if field == nil {
			return nil, errors.New("field display mode requires a field")
		} else if field.Width != width || field.Height != height {
			return nil, fmt.Errorf("field %dx%d does not match overlay %dx%d", field.Width, field.Height, width, height)
		}
	}
	ss := o.Supersample
	if ss < 1 {
		ss = 1
	}
	canvas := image.NewNRGBA(image.Rect(0, 0, width*ss, height*ss))
	prims := set.Primitives(nil)
	var steps []march.Step
	var origin, end ms2.Vec
	if ray != nil {
		steps, origin, end = ray.Steps(), ray.Origin(), ray.End()
	}
	half := o.LineWidth / 2
	inv := 1 / float32(ss)
	for cy := 0; cy < height*ss; cy++ {
		for cx := 0; cx < width*ss; cx++ {
			p := ms2.Vec{X: (float32(cx) + 0.5) * inv, Y: (float32(cy) + 0.5) * inv}
			c := o.Background
			if o.Mode == ModeField {
				g := float32(fieldGray(*field, int(p.X), int(p.Y))) / 255
				c = scene.Color{R: g, G: g, B: g}
			}
			for _, prim := range prims {
				d := dist.Primitive(p, prim)
				if (o.Mode == ModeField && math32.Abs(d) <= half) || (o.Mode != ModeField && d <= 0) {
					c = prim.Color
				}
			}
			if ray != nil {
				for _, step := range steps {
					if math32.Abs(dist.Circle(p, step.Pos, step.Radius)) <= half {
						c = addColor(c, o.Glow)
					}
				}
				if dist.Segment(p, origin, end) <= half || dist.Circle(p, end, 2*o.LineWidth) <= 0 {
					c = o.Ray
				}
			}
			canvas.SetNRGBA(cx, cy, nrgba(c))
		}
	}
	if ss == 1 {
		return canvas, nil
	}
	return resize.Resize(uint(width), uint(height), canvas, resize.Bilinear), nil
}

// addColor blends b additively onto a, saturating at full intensity.
func addColor(a, b scene.Color) scene.Color {
	return scene.Color{
		R: math32.Min(a.R+b.R, 1),
		G: math32.Min(a.G+b.G, 1),
		B: math32.Min(a.B+b.B, 1),
	}
}
