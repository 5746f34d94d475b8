// Package config holds the JSON configuration of the sdfray viewer.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/soypat/glgl/math/ms2"
	"github.com/soypat/sdfray/compute"
	"github.com/soypat/sdfray/march"
	"github.com/soypat/sdfray/render"
	"github.com/soypat/sdfray/scene"
	"golang.org/x/exp/rand"
)

// Defaults.
const (
	Width     = 1280
	Height    = 720
	Frames    = 1
	OriginX   = 20
	OriginY   = 20
	Circles   = 3
	Rects     = 3
	OutDir    = "."
	OverlayFn = "overlay.png"
)

// Sources of distances for marching.
const (
	SourceField  = "field"
	SourceDirect = "direct"
)

// Vec2 is a point or size in field units.
type Vec2 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

// Vec converts v to a vector.
func (v Vec2) Vec() ms2.Vec { return ms2.Vec{X: v.X, Y: v.Y} }

// CircleCfg is a circle placed explicitly in the scene.
type CircleCfg struct {
	Center Vec2    `json:"center"`
	Radius float32 `json:"radius"`
	Color  string  `json:"color,omitempty"` // "#rrggbb"
}

// RectCfg is a rectangle placed explicitly in the scene.
type RectCfg struct {
	Position Vec2   `json:"position"` // top-left corner
	Size     Vec2   `json:"size"`
	Color    string `json:"color,omitempty"`
}

// SceneCfg configures the generated and explicit shapes of the scene.
type SceneCfg struct {
	Seed    uint64 `json:"seed"`
	Circles int    `json:"circles"`
	Rects   int    `json:"rects"`
	Walls   int    `json:"walls"`
	// Palette of hex colors for generated shapes. Random colors when empty.
	Palette []string `json:"palette,omitempty"`
	// Explicit shapes added after the generated ones.
	CircleList []CircleCfg `json:"circleList,omitempty"`
	RectList   []RectCfg   `json:"rectList,omitempty"`
}

// MarchCfg configures the ray of each frame.
type MarchCfg struct {
	Source    string  `json:"source,omitempty"` // "field" or "direct"
	MaxSteps  int     `json:"maxSteps,omitempty"`
	Threshold float32 `json:"threshold,omitempty"`
	Origin    Vec2    `json:"origin"`
	// Targets are marched one per frame, cycling when frames outnumber them.
	Targets []Vec2 `json:"targets,omitempty"`
}

// OutputCfg names the files written each frame. Empty names are skipped.
type OutputCfg struct {
	Dir         string `json:"dir,omitempty"`
	Field       string `json:"field,omitempty"`
	Overlay     string `json:"overlay,omitempty"`
	Plot        string `json:"plot,omitempty"`
	Mode        string `json:"mode,omitempty"` // "shapes" or "field"
	Supersample int    `json:"supersample,omitempty"`
}

// Config is the top level configuration file.
type Config struct {
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	Backend   string  `json:"backend,omitempty"`
	Format    string  `json:"format,omitempty"` // "rgba8" or "r32f"
	Scale     float32 `json:"scale,omitempty"`
	KernelDir string  `json:"kernelDir,omitempty"`
	// K is the blending distance of the field. Zero is a hard union.
	K      float32   `json:"k"`
	Frames int       `json:"frames,omitempty"`
	March  MarchCfg  `json:"march"`
	Scene  SceneCfg  `json:"scene"`
	Output OutputCfg `json:"output"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Width:   Width,
		Height:  Height,
		Backend: compute.EmulatedBackend,
		Format:  compute.FormatRGBA8.String(),
		Frames:  Frames,
		March: MarchCfg{
			Source:    SourceField,
			MaxSteps:  march.DefaultMaxSteps,
			Threshold: march.DefaultThreshold,
			Origin:    Vec2{X: OriginX, Y: OriginY},
		},
		Scene: SceneCfg{
			Seed:    1,
			Circles: Circles,
			Rects:   Rects,
			RectList: []RectCfg{
				{Position: Vec2{X: 500, Y: 500}, Size: Vec2{X: 100, Y: 700}, Color: "#000000"},
			},
		},
		Output: OutputCfg{
			Dir:         OutDir,
			Overlay:     OverlayFn,
			Mode:        render.ModeShapes.String(),
			Supersample: 2,
		},
	}
}

// Load reads a configuration file. Fields missing from the file take their
// default values, then the result is validated.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	// Explicit shapes in the file replace the default ones.
	cfg.Scene.RectList = nil
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate fills in zero values with defaults and checks the configuration.
// Negative sizes, counts and thresholds are rejected.
func (cfg *Config) Validate() error {
	if err := cfg.checkNegative(); err != nil {
		return err
	}
	if cfg.Width == 0 {
		cfg.Width = Width
	}
	if cfg.Height == 0 {
		cfg.Height = Height
	}
	if cfg.Backend == "" {
		cfg.Backend = compute.EmulatedBackend
	}
	if cfg.Frames == 0 {
		cfg.Frames = Frames
	}
	if cfg.March.MaxSteps == 0 {
		cfg.March.MaxSteps = march.DefaultMaxSteps
	}
	if cfg.March.Threshold == 0 {
		cfg.March.Threshold = march.DefaultThreshold
	}
	if cfg.March.Source == "" {
		cfg.March.Source = SourceField
	}
	if cfg.Output.Dir == "" {
		cfg.Output.Dir = OutDir
	}
	if cfg.Output.Supersample == 0 {
		cfg.Output.Supersample = 1
	}
	if _, err := cfg.PixelFormat(); err != nil {
		return err
	}
	if _, err := cfg.Mode(); err != nil {
		return err
	}
	switch cfg.March.Source {
	case SourceField, SourceDirect:
	default:
		return &scene.ConfigError{Field: "march source", Index: -1, Msg: fmt.Sprintf("unknown source %q", cfg.March.Source)}
	}
	for i, hex := range cfg.Scene.Palette {
		if !isHexColor(hex) {
			return &scene.ConfigError{Field: "palette", Index: i, Msg: fmt.Sprintf("bad color %q", hex)}
		}
	}
	for i, c := range cfg.Scene.CircleList {
		if c.Color != "" && !isHexColor(c.Color) {
			return &scene.ConfigError{Field: "circle color", Index: i, Msg: fmt.Sprintf("bad color %q", c.Color)}
		}
	}
	for i, r := range cfg.Scene.RectList {
		if r.Color != "" && !isHexColor(r.Color) {
			return &scene.ConfigError{Field: "rect color", Index: i, Msg: fmt.Sprintf("bad color %q", r.Color)}
		}
	}
	s := cfg.explicitShapes()
	return s.Validate()
}

// PixelFormat returns the parsed field format.
func (cfg *Config) PixelFormat() (compute.PixelFormat, error) {
	return compute.ParsePixelFormat(cfg.Format)
}

// Mode returns the parsed overlay display mode.
func (cfg *Config) Mode() (render.Mode, error) {
	return render.ParseMode(cfg.Output.Mode)
}

// Compute returns the configuration of the compute manager.
func (cfg *Config) Compute() (compute.Config, error) {
	format, err := cfg.PixelFormat()
	if err != nil {
		return compute.Config{}, err
	}
	return compute.Config{
		Backend:   cfg.Backend,
		Width:     cfg.Width,
		Height:    cfg.Height,
		Format:    format,
		Scale:     cfg.Scale,
		KernelDir: cfg.KernelDir,
	}, nil
}

// MarchConfig returns the marching parameters.
func (cfg *Config) MarchConfig() march.Config {
	return march.Config{MaxSteps: cfg.March.MaxSteps, Threshold: cfg.March.Threshold}
}

// Target returns the target marched at the given frame. Without configured
// targets rays aim at the far corner of the field.
func (cfg *Config) Target(frame int) ms2.Vec {
	if len(cfg.March.Targets) == 0 {
		return ms2.Vec{X: float32(cfg.Width), Y: float32(cfg.Height)}
	}
	return cfg.March.Targets[frame%len(cfg.March.Targets)].Vec()
}

// Bounds returns the box ray targets are clamped to.
func (cfg *Config) Bounds() ms2.Box {
	return ms2.Box{Max: ms2.Vec{X: float32(cfg.Width), Y: float32(cfg.Height)}}
}

// BuildScene generates the random scene seeded with seed and appends the
// explicit shapes.
func (cfg *Config) BuildScene(seed uint64) scene.Set {
	palette := make([]scene.Color, len(cfg.Scene.Palette))
	for i, hex := range cfg.Scene.Palette {
		palette[i] = scene.ColorFromHex(hex)
	}
	s := scene.Generate(rand.NewSource(seed), scene.GenerateConfig{
		Width:   float32(cfg.Width),
		Height:  float32(cfg.Height),
		Circles: cfg.Scene.Circles,
		Rects:   cfg.Scene.Rects,
		Walls:   cfg.Scene.Walls,
		Palette: palette,
	})
	explicit := cfg.explicitShapes()
	s.Circles = append(s.Circles, explicit.Circles...)
	s.Rects = append(s.Rects, explicit.Rects...)
	return s
}

// checkNegative rejects settings below zero. Zero means unset.
func (cfg *Config) checkNegative() error {
	ints := []struct {
		field string
		v     int
	}{
		{"width", cfg.Width},
		{"height", cfg.Height},
		{"frames", cfg.Frames},
		{"march maxSteps", cfg.March.MaxSteps},
		{"output supersample", cfg.Output.Supersample},
		{"scene circles", cfg.Scene.Circles},
		{"scene rects", cfg.Scene.Rects},
		{"scene walls", cfg.Scene.Walls},
	}
	for _, c := range ints {
		if c.v < 0 {
			return &scene.ConfigError{Field: c.field, Index: -1, Msg: fmt.Sprintf("must not be negative, got %d", c.v)}
		}
	}
	floats := []struct {
		field string
		v     float32
	}{
		{"march threshold", cfg.March.Threshold},
		{"k", cfg.K},
		{"scale", cfg.Scale},
	}
	for _, c := range floats {
		if c.v < 0 {
			return &scene.ConfigError{Field: c.field, Index: -1, Msg: fmt.Sprintf("must not be negative, got %v", c.v)}
		}
	}
	return nil
}

func (cfg *Config) explicitShapes() scene.Set {
	var s scene.Set
	for _, c := range cfg.Scene.CircleList {
		s.Circles = append(s.Circles, scene.Circle{Position: c.Center.Vec(), Radius: c.Radius, Color: hexOrBlack(c.Color)})
	}
	for _, r := range cfg.Scene.RectList {
		s.Rects = append(s.Rects, scene.Rectangle{Position: r.Position.Vec(), Size: r.Size.Vec(), Color: hexOrBlack(r.Color)})
	}
	return s
}

func hexOrBlack(hex string) scene.Color {
	if hex == "" {
		return scene.Black
	}
	return scene.ColorFromHex(hex)
}

func isHexColor(s string) bool {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 3 && len(s) != 6 {
		return false
	}
	for _, c := range s {
		if !strings.ContainsRune("0123456789abcdefABCDEF", c) {
			return false
		}
	}
	return true
}
