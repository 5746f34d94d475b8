//go:build gl

package glcompute_test

import (
	"errors"
	"runtime"
	"testing"

	"github.com/chewxy/math32"
	"github.com/soypat/glgl/math/ms2"
	"github.com/soypat/sdfray/compute"
	"github.com/soypat/sdfray/compute/glcompute"
	"github.com/soypat/sdfray/dist"
	"github.com/soypat/sdfray/scene"
	"golang.org/x/exp/rand"
)

func init() {
	runtime.LockOSThread() // For GL.
}

func TestFieldCPUvsGPU(t *testing.T) {
	const w, h = 70, 45
	s := scene.Generate(rand.NewSource(3), scene.GenerateConfig{Width: w, Height: h, Circles: 5, Rects: 4, Walls: 1})
	for _, format := range []compute.PixelFormat{compute.FormatR32F, compute.FormatRGBA8} {
		m, err := compute.Open(compute.Config{Backend: glcompute.Name, Width: w, Height: h, Format: format})
		if errors.Is(err, compute.ErrNoDevice) {
			t.Skip("no GL 4.6 context available")
		} else if err != nil {
			t.Fatal(err)
		}
		if err := m.Sync(&s); err != nil {
			t.Fatal(err)
		}
		field, err := compute.NewEvaluator(m).Evaluate(4)
		if err != nil {
			t.Fatal(err)
		}
		tol := float32(1e-3)
		if format == compute.FormatRGBA8 {
			tol = field.Tolerance()
		}
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				pos := ms2.Vec{X: float32(x), Y: float32(y)}
				dc := dist.Set(pos, &s, 4)
				if format == compute.FormatRGBA8 {
					dc = math32.Min(math32.Max(dc, 0), field.Scale)
				}
				dg := field.At(x, y)
				if diff := math32.Abs(dg - dc); diff > tol {
					t.Errorf("%s pos=%+v cpu=%f, gpu=%f (diff=%f)", format, pos, dc, dg, diff)
				}
			}
		}
		if err := m.Close(); err != nil {
			t.Fatal(err)
		}
	}
}
