package march_test

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/soypat/glgl/math/ms2"
	"github.com/soypat/sdfray/compute"
	"github.com/soypat/sdfray/dist"
	"github.com/soypat/sdfray/march"
	"github.com/soypat/sdfray/scene"
	"gonum.org/v1/gonum/floats/scalar"
)

var (
	origin = ms2.Vec{X: 20, Y: 20}
	bounds = ms2.Box{Max: ms2.Vec{X: 800, Y: 600}}
)

func TestMarchEmptyScene(t *testing.T) {
	var s scene.Set
	ray := march.NewRay(origin, bounds)
	for _, target := range []ms2.Vec{
		{X: 500, Y: 400},
		{X: 2000, Y: -300}, // Clamped to (800,0).
		{X: 20, Y: 590},
	} {
		ray.Update(target)
		if ray.State() != march.Armed {
			t.Fatalf("want armed ray after update, got %s", ray.State())
		}
		reason := ray.March(dist.Scene{Set: &s}, march.DefaultConfig())
		if reason != march.ReachedTarget {
			t.Fatalf("target %+v: want %s, got %s", target, march.ReachedTarget, reason)
		}
		if len(ray.Steps()) != 1 {
			t.Errorf("target %+v: want a single step in empty scene, got %d", target, len(ray.Steps()))
		}
		if ray.Traveled() != ray.Length() {
			t.Errorf("traveled %f, length %f", ray.Traveled(), ray.Length())
		}
		end := ray.End()
		want := ms2.Add(origin, ms2.Scale(ray.Traveled(), ray.Direction()))
		if end != want {
			t.Errorf("end %+v != origin+dir*traveled %+v", end, want)
		}
		clamped := ms2.MinElem(ms2.MaxElem(target, bounds.Min), bounds.Max)
		if d := ms2.Norm(ms2.Sub(end, clamped)); d > 1e-3 {
			t.Errorf("end %+v far from clamped target %+v", end, clamped)
		}
		if ray.State() != march.Terminated {
			t.Errorf("want terminated ray, got %s", ray.State())
		}
	}
}

func TestMarchHitCircle(t *testing.T) {
	dir := ms2.Vec{X: 0.6, Y: 0.8}
	center := ms2.Add(origin, ms2.Scale(100, dir))
	s := scene.Set{Circles: []scene.Circle{{Position: center, Radius: 20}}}
	ray := march.NewRay(origin, bounds)
	ray.Update(ms2.Add(origin, ms2.Scale(300, dir)))
	cfg := march.DefaultConfig()
	reason := ray.March(dist.Scene{Set: &s}, cfg)
	if reason != march.HitSurface {
		t.Fatalf("want %s, got %s", march.HitSurface, reason)
	}
	if !scalar.EqualWithinAbs(float64(ray.Traveled()), 80, float64(cfg.Threshold)) {
		t.Errorf("want traveled≈80, got %f", ray.Traveled())
	}
	// Every step is a safe step: the recorded radius never exceeds the true distance.
	for i, step := range ray.Steps() {
		trueDist := dist.Set(step.Pos, &s, 0)
		if step.Radius > trueDist+1e-3 {
			t.Errorf("step %d radius %f exceeds distance %f", i, step.Radius, trueDist)
		}
	}
}

func TestMarchMaxSteps(t *testing.T) {
	// A circle grazing the ray forces many small steps.
	s := scene.Set{Circles: []scene.Circle{{Position: ms2.Vec{X: 300, Y: 25.5}, Radius: 5}}}
	ray := march.NewRay(origin, bounds)
	ray.Update(ms2.Vec{X: 790, Y: 20})
	reason := ray.March(dist.Scene{Set: &s}, march.Config{MaxSteps: 3, Threshold: 0.01})
	if reason != march.MaxSteps {
		t.Fatalf("want %s, got %s", march.MaxSteps, reason)
	}
	if len(ray.Steps()) != 3 {
		t.Errorf("want 3 steps, got %d", len(ray.Steps()))
	}
	if ray.Traveled() >= ray.Length() {
		t.Error("ray should not have reached its target")
	}
}

func TestZeroLengthRay(t *testing.T) {
	var s scene.Set
	ray := march.NewRay(origin, bounds)
	ray.Update(origin)
	if ray.Direction() != (ms2.Vec{}) {
		t.Errorf("want zero direction, got %+v", ray.Direction())
	}
	reason := ray.March(dist.Scene{Set: &s}, march.DefaultConfig())
	if reason != march.ReachedTarget || len(ray.Steps()) != 0 || ray.End() != origin {
		t.Errorf("zero length ray: reason=%s steps=%d end=%+v", reason, len(ray.Steps()), ray.End())
	}
}

func TestOriginInsideShape(t *testing.T) {
	s := scene.Set{Circles: []scene.Circle{{Position: origin, Radius: 10}}}
	ray := march.NewRay(origin, bounds)
	ray.Update(ms2.Vec{X: 400, Y: 400})
	reason := ray.March(dist.Scene{Set: &s}, march.DefaultConfig())
	if reason != march.HitSurface || ray.Traveled() != 0 || len(ray.Steps()) != 0 {
		t.Errorf("reason=%s traveled=%f steps=%d", reason, ray.Traveled(), len(ray.Steps()))
	}
}

func TestMarchFieldMatchesDirect(t *testing.T) {
	const w, h = 200, 150
	s := scene.Set{
		Circles: []scene.Circle{{Position: ms2.Vec{X: 150, Y: 100}, Radius: 20}},
		Rects:   []scene.Rectangle{{Position: ms2.Vec{X: 60, Y: 0}, Size: ms2.Vec{X: 10, Y: 40}}},
	}
	m, err := compute.Open(compute.Config{Backend: compute.EmulatedBackend, Width: w, Height: h, Format: compute.FormatR32F})
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()
	if err := m.Sync(&s); err != nil {
		t.Fatal(err)
	}
	field, err := compute.NewEvaluator(m).Evaluate(0)
	if err != nil {
		t.Fatal(err)
	}
	pixBounds := ms2.Box{Max: ms2.Vec{X: w, Y: h}}
	for _, target := range []ms2.Vec{{X: 190, Y: 140}, {X: 199, Y: 20}, {X: 100, Y: 149}} {
		direct := march.NewRay(origin, pixBounds)
		direct.Update(target)
		direct.March(dist.Scene{Set: &s}, march.DefaultConfig())
		sampled := march.NewRay(origin, pixBounds)
		sampled.Update(target)
		sampled.March(field, march.Config{MaxSteps: march.DefaultMaxSteps, Threshold: march.DefaultThreshold})
		if direct.Termination() != sampled.Termination() {
			t.Errorf("target %+v: direct %s, sampled %s", target, direct.Termination(), sampled.Termination())
		}
		// Pixel truncation displaces samples by under one unit per axis.
		if diff := math32.Abs(direct.Traveled() - sampled.Traveled()); diff > 4 {
			t.Errorf("target %+v: direct traveled %f, sampled %f", target, direct.Traveled(), sampled.Traveled())
		}
	}
}

type constantSource struct {
	d, tol float32
}

func (c constantSource) Distance(ms2.Vec) float32 { return c.d }
func (c constantSource) Tolerance() float32       { return c.tol }

func TestSourceTolerance(t *testing.T) {
	cfg := march.Config{MaxSteps: 10, Threshold: 1}
	ray := march.NewRay(ms2.Vec{}, ms2.Box{Max: ms2.Vec{X: 100, Y: 100}})
	ray.Update(ms2.Vec{X: 100})
	if reason := ray.March(constantSource{d: 3}, cfg); reason != march.MaxSteps {
		t.Fatalf("exact source: want %s, got %s", march.MaxSteps, reason)
	}
	// A coarse source cannot resolve distances below its tolerance.
	ray.Update(ms2.Vec{X: 100})
	if reason := ray.March(constantSource{d: 3, tol: 5}, cfg); reason != march.HitSurface {
		t.Fatalf("coarse source: want %s, got %s", march.HitSurface, reason)
	}
}

func TestRemarchNotArmed(t *testing.T) {
	var s scene.Set
	ray := march.NewRay(origin, bounds)
	ray.Update(ms2.Vec{X: 100, Y: 20})
	ray.March(dist.Scene{Set: &s}, march.DefaultConfig())
	first := ray.Traveled()
	ray.March(dist.Scene{Set: &s}, march.DefaultConfig())
	if ray.Traveled() != first || len(ray.Steps()) != 1 {
		t.Errorf("remarch accumulated state: traveled=%f steps=%d", ray.Traveled(), len(ray.Steps()))
	}
}
