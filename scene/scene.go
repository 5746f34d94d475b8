// Package scene holds the primitive set that is rendered each frame: circles
// and axis aligned rectangles with their colors.
package scene

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/fogleman/fauxgl"
	"github.com/soypat/glgl/math/ms2"
)

// Color is a normalized RGB color. Components are expected in [0,1].
type Color struct {
	R, G, B float32
}

// RGB8 returns the normalized color of 8 bit components.
func RGB8(r, g, b uint8) Color {
	return Color{R: float32(r) / 255, G: float32(g) / 255, B: float32(b) / 255}
}

// ColorFromHex parses colors of the form "#rrggbb" or "#rgb".
func ColorFromHex(hex string) Color {
	c := fauxgl.HexColor(hex)
	return Color{R: float32(c.R), G: float32(c.G), B: float32(c.B)}
}

// Black is the color given to walls.
var Black = Color{}

// Circle is a filled circle centered at Position.
type Circle struct {
	Position ms2.Vec
	Radius   float32
	Color    Color
}

// Rectangle is an axis aligned rectangle. Position is its top-left corner
// and Size the full extent along each axis.
type Rectangle struct {
	Position ms2.Vec
	Size     ms2.Vec
	Color    Color
}

// HalfExtent returns half of the rectangle's size, which is also
// its geometric center in local coordinates.
func (r Rectangle) HalfExtent() ms2.Vec { return ms2.Scale(0.5, r.Size) }

// Center returns the rectangle's center in scene coordinates.
func (r Rectangle) Center() ms2.Vec { return ms2.Add(r.Position, r.HalfExtent()) }

// Bounds returns the box covered by the rectangle.
func (r Rectangle) Bounds() ms2.Box {
	return ms2.Box{Min: r.Position, Max: ms2.Add(r.Position, r.Size)}
}

// Kind identifies the shape of a [Primitive].
type Kind uint8

const (
	_ Kind = iota
	KindCircle
	KindRect
)

func (k Kind) String() string {
	switch k {
	case KindCircle:
		return "circle"
	case KindRect:
		return "rect"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Primitive is the uniform representation of a circle or rectangle used by
// distance evaluation. For circles Size.X holds the radius, for rectangles
// Size is the half extent.
type Primitive struct {
	Kind   Kind
	Center ms2.Vec
	Size   ms2.Vec
	Color  Color
}

// Primitive returns the circle as a tagged primitive.
func (c Circle) Primitive() Primitive {
	return Primitive{Kind: KindCircle, Center: c.Position, Size: ms2.Vec{X: c.Radius}, Color: c.Color}
}

// Primitive returns the rectangle as a tagged primitive.
func (r Rectangle) Primitive() Primitive {
	return Primitive{Kind: KindRect, Center: r.Center(), Size: r.HalfExtent(), Color: r.Color}
}

// Set is a snapshot of the scene. Ordering is irrelevant to the distance
// field but is kept stable while a frame is produced.
type Set struct {
	Circles []Circle
	Rects   []Rectangle
}

// Len returns the total amount of primitives in the set.
func (s *Set) Len() int { return len(s.Circles) + len(s.Rects) }

// Primitives appends the set's primitives to dst, circles first, and returns
// the extended slice.
func (s *Set) Primitives(dst []Primitive) []Primitive {
	for _, c := range s.Circles {
		dst = append(dst, c.Primitive())
	}
	for _, r := range s.Rects {
		dst = append(dst, r.Primitive())
	}
	return dst
}

// Clone returns a deep copy of the set.
func (s *Set) Clone() Set {
	return Set{
		Circles: append([]Circle(nil), s.Circles...),
		Rects:   append([]Rectangle(nil), s.Rects...),
	}
}

// ConfigError reports invalid scene or evaluator parameters. It is returned
// before any device work is done.
type ConfigError struct {
	Field string
	Index int // -1 when not applicable.
	Msg   string
}

func (e *ConfigError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("invalid %s[%d]: %s", e.Field, e.Index, e.Msg)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}

// Validate checks all primitives have finite positions and
// non-negative finite dimensions.
func (s *Set) Validate() error {
	for i, c := range s.Circles {
		if !finiteVec(c.Position) {
			return &ConfigError{Field: "circle position", Index: i, Msg: "not finite"}
		}
		if !finite(c.Radius) || c.Radius < 0 {
			return &ConfigError{Field: "circle radius", Index: i, Msg: fmt.Sprintf("got %v", c.Radius)}
		}
	}
	for i, r := range s.Rects {
		if !finiteVec(r.Position) {
			return &ConfigError{Field: "rect position", Index: i, Msg: "not finite"}
		}
		if !finiteVec(r.Size) || r.Size.X < 0 || r.Size.Y < 0 {
			return &ConfigError{Field: "rect size", Index: i, Msg: fmt.Sprintf("got %+v", r.Size)}
		}
	}
	return nil
}

func finite(f float32) bool { return !math32.IsNaN(f) && !math32.IsInf(f, 0) }

func finiteVec(v ms2.Vec) bool { return finite(v.X) && finite(v.Y) }
