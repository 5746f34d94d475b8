package scene

import (
	"errors"
	"reflect"
	"testing"

	"github.com/chewxy/math32"
	"github.com/soypat/glgl/math/ms2"
	"golang.org/x/exp/rand"
)

func TestRectangleProjection(t *testing.T) {
	r := Rectangle{Position: ms2.Vec{X: 10, Y: 20}, Size: ms2.Vec{X: 4, Y: 8}}
	p := r.Primitive()
	if p.Kind != KindRect {
		t.Fatalf("want rect kind, got %s", p.Kind)
	}
	if p.Center != (ms2.Vec{X: 12, Y: 24}) {
		t.Errorf("center: got %+v", p.Center)
	}
	if p.Size != (ms2.Vec{X: 2, Y: 4}) {
		t.Errorf("half extent: got %+v", p.Size)
	}
}

func TestPrimitivesOrder(t *testing.T) {
	s := Set{
		Circles: []Circle{{Radius: 1}, {Radius: 2}},
		Rects:   []Rectangle{{Size: ms2.Vec{X: 1, Y: 1}}},
	}
	prims := s.Primitives(nil)
	if len(prims) != s.Len() {
		t.Fatalf("want %d primitives, got %d", s.Len(), len(prims))
	}
	kinds := []Kind{prims[0].Kind, prims[1].Kind, prims[2].Kind}
	if !reflect.DeepEqual(kinds, []Kind{KindCircle, KindCircle, KindRect}) {
		t.Errorf("circles must precede rectangles, got %v", kinds)
	}
}

func TestValidate(t *testing.T) {
	for _, test := range []struct {
		set     Set
		invalid bool
	}{
		{set: Set{}},
		{set: Set{Circles: []Circle{{Radius: 0}}}},
		{set: Set{Circles: []Circle{{Radius: -1}}}, invalid: true},
		{set: Set{Circles: []Circle{{Radius: math32.NaN()}}}, invalid: true},
		{set: Set{Circles: []Circle{{Position: ms2.Vec{X: math32.Inf(1)}, Radius: 1}}}, invalid: true},
		{set: Set{Rects: []Rectangle{{Size: ms2.Vec{X: 1, Y: -1}}}}, invalid: true},
		{set: Set{Rects: []Rectangle{{Size: ms2.Vec{X: 1, Y: 2}}}}},
	} {
		err := test.set.Validate()
		var cfgErr *ConfigError
		if test.invalid && !errors.As(err, &cfgErr) {
			t.Errorf("%+v: want ConfigError, got %v", test.set, err)
		} else if !test.invalid && err != nil {
			t.Errorf("%+v: unexpected error %v", test.set, err)
		}
	}
}

func TestGenerate(t *testing.T) {
	cfg := GenerateConfig{Width: 800, Height: 600, Circles: 20, Rects: 10, Walls: 4}
	s := Generate(rand.NewSource(1), cfg)
	if len(s.Circles) != cfg.Circles || len(s.Rects) != cfg.Rects+cfg.Walls {
		t.Fatalf("got %d circles %d rects", len(s.Circles), len(s.Rects))
	}
	for i, c := range s.Circles {
		if c.Radius < MinCircleRadius || c.Radius > MaxCircleRadius {
			t.Errorf("circle %d radius %f out of range", i, c.Radius)
		}
		if c.Position.X < 0 || c.Position.X > cfg.Width || c.Position.Y < 0 || c.Position.Y > cfg.Height {
			t.Errorf("circle %d outside area: %+v", i, c.Position)
		}
	}
	for i, r := range s.Rects[cfg.Rects:] {
		if r.Color != Black {
			t.Errorf("wall %d not black", i)
		}
		long := math32.Max(r.Size.X, r.Size.Y)
		short := math32.Min(r.Size.X, r.Size.Y)
		if long < MinWallLength || short > MaxWallWidth {
			t.Errorf("wall %d has bad size %+v", i, r.Size)
		}
	}
	if err := s.Validate(); err != nil {
		t.Fatal(err)
	}
	again := Generate(rand.NewSource(1), cfg)
	if !reflect.DeepEqual(s, again) {
		t.Error("same seed generated different scenes")
	}
}

func TestColorFromHex(t *testing.T) {
	c := ColorFromHex("#ff0000")
	if c.R != 1 || c.G != 0 || c.B != 0 {
		t.Errorf("got %+v", c)
	}
	if RGB8(255, 0, 0) != c {
		t.Errorf("RGB8 mismatch")
	}
}
