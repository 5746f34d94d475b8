package scene

import (
	"github.com/soypat/glgl/math/ms2"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Generation limits for random scenes.
const (
	MinCircleRadius = 10
	MaxCircleRadius = 80
	MinRectSide     = 50
	MaxRectSide     = 100
	MinWallWidth    = 10
	MaxWallWidth    = 30
	MinWallLength   = 500
	MaxWallLength   = 700
)

// GenerateConfig controls random scene generation.
type GenerateConfig struct {
	// Width and Height of the area primitives are placed in.
	Width, Height float32
	Circles       int
	Rects         int
	// Walls are long black rectangles, vertical or horizontal with equal probability.
	Walls int
	// Palette colors are picked at random for circles and rectangles.
	// If empty colors are random.
	Palette []Color
}

// Generate returns a random scene using src as source of randomness.
// The same source state produces the same scene.
func Generate(src rand.Source, cfg GenerateConfig) Set {
	rng := rand.New(src)
	uniform := func(min, max float64) float32 {
		return float32(distuv.Uniform{Min: min, Max: max, Src: src}.Rand())
	}
	randPos := func() ms2.Vec {
		return ms2.Vec{X: uniform(0, float64(cfg.Width)), Y: uniform(0, float64(cfg.Height))}
	}
	randColor := func() Color {
		if len(cfg.Palette) > 0 {
			return cfg.Palette[rng.Intn(len(cfg.Palette))]
		}
		return RGB8(uint8(rng.Intn(256)), uint8(rng.Intn(256)), uint8(rng.Intn(256)))
	}
	var s Set
	for i := 0; i < cfg.Circles; i++ {
		s.Circles = append(s.Circles, Circle{
			Position: randPos(),
			Radius:   uniform(MinCircleRadius, MaxCircleRadius),
			Color:    randColor(),
		})
	}
	for i := 0; i < cfg.Rects; i++ {
		s.Rects = append(s.Rects, Rectangle{
			Position: randPos(),
			Size:     ms2.Vec{X: uniform(MinRectSide, MaxRectSide), Y: uniform(MinRectSide, MaxRectSide)},
			Color:    randColor(),
		})
	}
	for i := 0; i < cfg.Walls; i++ {
		size := ms2.Vec{X: uniform(MinWallWidth, MaxWallWidth), Y: uniform(MinWallLength, MaxWallLength)}
		if rng.Intn(2) == 1 {
			size.X, size.Y = size.Y, size.X
		}
		s.Rects = append(s.Rects, Rectangle{Position: randPos(), Size: size, Color: Black})
	}
	return s
}
