package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/soypat/glgl/math/ms2"
	"github.com/soypat/sdfray/compute"
	"github.com/soypat/sdfray/march"
	"github.com/soypat/sdfray/scene"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	err := os.WriteFile(path, []byte(content), 0o644)
	if err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.March.Origin.Vec() != (ms2.Vec{X: 20, Y: 20}) {
		t.Errorf("default origin %+v", cfg.March.Origin)
	}
	if cfg.March.MaxSteps != march.DefaultMaxSteps {
		t.Errorf("default max steps %d", cfg.March.MaxSteps)
	}
	s := cfg.BuildScene(cfg.Scene.Seed)
	if len(s.Circles) != Circles || len(s.Rects) != Rects+1 {
		t.Errorf("default scene has %d circles and %d rects", len(s.Circles), len(s.Rects))
	}
	wall := s.Rects[len(s.Rects)-1]
	if wall.Color != scene.Black || wall.Size != (ms2.Vec{X: 100, Y: 700}) {
		t.Errorf("default wall %+v", wall)
	}
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `{
		"width": 320,
		"height": 240,
		"format": "r32f",
		"k": 8,
		"march": {"source": "direct", "origin": {"x": 5, "y": 6}, "targets": [{"x": 300, "y": 10}, {"x": 10, "y": 200}]},
		"scene": {"seed": 7, "circles": 2, "palette": ["#ff0000", "0f0"], "circleList": [{"center": {"x": 1, "y": 2}, "radius": 3, "color": "#00f"}]}
	}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != 320 || cfg.Height != 240 || cfg.K != 8 {
		t.Errorf("loaded %dx%d k=%v", cfg.Width, cfg.Height, cfg.K)
	}
	ccfg, err := cfg.Compute()
	if err != nil {
		t.Fatal(err)
	}
	if ccfg.Format != compute.FormatR32F || ccfg.Backend != compute.EmulatedBackend {
		t.Errorf("compute config %+v", ccfg)
	}
	// Defaults fill what the file omits.
	if cfg.March.MaxSteps != march.DefaultMaxSteps || cfg.Frames != Frames {
		t.Errorf("defaults not applied: %+v", cfg.March)
	}
	if got := cfg.Target(3); got != (ms2.Vec{X: 10, Y: 200}) {
		t.Errorf("target cycling: got %+v", got)
	}
	s := cfg.BuildScene(cfg.Scene.Seed)
	if len(s.Circles) != 3 || len(s.Rects) != Rects {
		t.Fatalf("scene has %d circles %d rects", len(s.Circles), len(s.Rects))
	}
	if got := s.Circles[2]; got.Radius != 3 || got.Color != (scene.Color{B: 1}) {
		t.Errorf("explicit circle %+v", got)
	}
	red, green := scene.ColorFromHex("#ff0000"), scene.ColorFromHex("#0f0")
	for i, c := range s.Circles[:2] {
		if c.Color != red && c.Color != green {
			t.Errorf("circle %d color %+v not from palette", i, c.Color)
		}
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file: got %v", err)
	}
	for _, test := range []struct {
		name    string
		content string
	}{
		{name: "syntax", content: `{"width": }`},
		{name: "format", content: `{"format": "rgb565"}`},
		{name: "mode", content: `{"output": {"mode": "wireframe"}}`},
		{name: "source", content: `{"march": {"source": "sonar"}}`},
		{name: "k", content: `{"k": -1}`},
		{name: "palette", content: `{"scene": {"palette": ["#12345"]}}`},
		{name: "radius", content: `{"scene": {"circleList": [{"radius": -2}]}}`},
		{name: "counts", content: `{"scene": {"walls": -1}}`},
		{name: "width", content: `{"width": -5}`},
		{name: "height", content: `{"height": -1}`},
		{name: "frames", content: `{"frames": -2}`},
		{name: "maxSteps", content: `{"march": {"maxSteps": -1}}`},
		{name: "threshold", content: `{"march": {"threshold": -0.5}}`},
		{name: "supersample", content: `{"output": {"supersample": -4}}`},
		{name: "scale", content: `{"scale": -1}`},
	} {
		_, err := Load(writeConfig(t, test.content))
		if err == nil {
			t.Errorf("%s: expected error", test.name)
		}
	}
}

func TestNegativeResolution(t *testing.T) {
	for _, content := range []string{`{"width": -5}`, `{"height": -720}`} {
		_, err := Load(writeConfig(t, content))
		var cerr *scene.ConfigError
		if !errors.As(err, &cerr) {
			t.Fatalf("%s: want config error, got %v", content, err)
		}
	}
	// Zero is unset and takes the default.
	cfg, err := Load(writeConfig(t, `{"width": 0, "height": 0}`))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != Width || cfg.Height != Height {
		t.Errorf("zero resolution not defaulted: %dx%d", cfg.Width, cfg.Height)
	}
}

func TestConfigError(t *testing.T) {
	_, err := Load(writeConfig(t, `{"scene": {"rectList": [{"size": {"x": -1, "y": 2}}]}}`))
	var cerr *scene.ConfigError
	if !errors.As(err, &cerr) || cerr.Index != 0 {
		t.Fatalf("want config error at index 0, got %v", err)
	}
}

func TestDefaultTarget(t *testing.T) {
	cfg := Default()
	if got := cfg.Target(0); got != (ms2.Vec{X: Width, Y: Height}) {
		t.Errorf("default target %+v", got)
	}
	if cfg.Bounds().Max != (ms2.Vec{X: Width, Y: Height}) {
		t.Errorf("bounds %+v", cfg.Bounds())
	}
}
