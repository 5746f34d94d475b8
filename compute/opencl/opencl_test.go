//go:build opencl

package opencl_test

import (
	"errors"
	"testing"

	"github.com/chewxy/math32"
	"github.com/soypat/glgl/math/ms2"
	"github.com/soypat/sdfray/compute"
	"github.com/soypat/sdfray/compute/opencl"
	"github.com/soypat/sdfray/dist"
	"github.com/soypat/sdfray/scene"
	"golang.org/x/exp/rand"
)

func openOrSkip(t *testing.T, cfg compute.Config) *compute.Manager {
	t.Helper()
	cfg.Backend = opencl.Name
	m, err := compute.Open(cfg)
	if errors.Is(err, compute.ErrNoDevice) {
		t.Skip("no OpenCL GPU available")
	} else if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestFieldCPUvsGPU(t *testing.T) {
	const w, h = 101, 67
	s := scene.Generate(rand.NewSource(1), scene.GenerateConfig{Width: w, Height: h, Circles: 8, Rects: 6, Walls: 1})
	m := openOrSkip(t, compute.Config{Width: w, Height: h, Format: compute.FormatR32F})
	defer m.Close()
	if err := m.Sync(&s); err != nil {
		t.Fatal(err)
	}
	for _, k := range []float32{0, 6} {
		field, err := compute.NewEvaluator(m).Evaluate(k)
		if err != nil {
			t.Fatal(err)
		}
		const tol = 1e-3
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				pos := ms2.Vec{X: float32(x), Y: float32(y)}
				dc := dist.Set(pos, &s, k)
				dg := field.At(x, y)
				diff := math32.Abs(dg - dc)
				if diff > tol {
					t.Errorf("pos=%+v cpu=%f, gpu=%f (diff=%f)", pos, dc, dg, diff)
				}
			}
		}
	}
}

func TestResizeOnDevice(t *testing.T) {
	m := openOrSkip(t, compute.Config{Width: 32, Height: 32})
	defer m.Close()
	ev := compute.NewEvaluator(m)
	for _, n := range []int{4, 0, 9, 9, 1} {
		circles := make([]scene.Circle, n)
		for i := range circles {
			circles[i] = scene.Circle{Position: ms2.Vec{X: float32(4 * i), Y: 16}, Radius: 3}
		}
		if err := m.SyncCircles(circles); err != nil {
			t.Fatal(err)
		}
		if _, err := ev.Evaluate(0); err != nil {
			t.Fatal(err)
		}
	}
}
