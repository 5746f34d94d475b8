// Package march traces 2D rays through a signed distance field by sphere
// tracing: at each step the ray advances by the distance to the closest
// surface, which is always a safe step.
package march

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/soypat/glgl/math/ms2"
)

// DistanceSource returns signed distances to the scene.
type DistanceSource interface {
	Distance(p ms2.Vec) float32
	// Tolerance is the largest error of returned distances. Sources that
	// quantize distances report their quantization step.
	Tolerance() float32
}

// Marching defaults.
const (
	// DefaultThreshold is the distance below which a ray is considered to
	// have hit a surface.
	DefaultThreshold = 1
	// FieldThreshold is a hit threshold suited to distances sampled from a
	// coarse 8 bit field.
	FieldThreshold = 10
	// DefaultMaxSteps is the default amount of marching steps.
	DefaultMaxSteps = 64
)

// Config controls a march.
type Config struct {
	MaxSteps  int
	Threshold float32
}

// DefaultConfig returns the default marching configuration.
func DefaultConfig() Config {
	return Config{MaxSteps: DefaultMaxSteps, Threshold: DefaultThreshold}
}

// State is the lifecycle state of a [Ray].
type State uint8

const (
	// Armed rays have a target and have not marched yet.
	Armed State = iota
	// Marching rays are inside [Ray.March].
	Marching
	// Terminated rays hold a complete trajectory.
	Terminated
)

func (s State) String() string {
	switch s {
	case Armed:
		return "armed"
	case Marching:
		return "marching"
	case Terminated:
		return "terminated"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// Termination is the reason a march stopped.
type Termination uint8

const (
	NotTerminated Termination = iota
	// HitSurface means the distance fell below the threshold.
	HitSurface
	// ReachedTarget means the ray traveled its whole length without a hit.
	ReachedTarget
	// MaxSteps means the step budget ran out first.
	MaxSteps
)

func (t Termination) String() string {
	switch t {
	case NotTerminated:
		return "not terminated"
	case HitSurface:
		return "hit surface"
	case ReachedTarget:
		return "reached target"
	case MaxSteps:
		return "max steps"
	}
	return fmt.Sprintf("Termination(%d)", uint8(t))
}

// Step is one marching step: the position the distance was sampled at and
// the radius of the empty circle around it.
type Step struct {
	Pos    ms2.Vec
	Radius float32
}

// Ray is a ray with a fixed origin that is re-aimed with [Ray.Update] and
// traced with [Ray.March].
type Ray struct {
	origin   ms2.Vec
	bounds   ms2.Box
	dir      ms2.Vec
	length   float32
	traveled float32
	steps    []Step
	state    State
	reason   Termination
}

// NewRay returns a ray starting at origin. Targets are clamped to bounds.
func NewRay(origin ms2.Vec, bounds ms2.Box) *Ray {
	return &Ray{origin: origin, bounds: bounds, state: Terminated}
}

// Update aims the ray at target, clamped into the ray's bounds. The
// trajectory is cleared and the ray is armed.
func (r *Ray) Update(target ms2.Vec) {
	target = ms2.MinElem(ms2.MaxElem(target, r.bounds.Min), r.bounds.Max)
	delta := ms2.Sub(target, r.origin)
	r.length = ms2.Norm(delta)
	if r.length > 0 {
		r.dir = ms2.Scale(1/r.length, delta)
	} else {
		r.dir = ms2.Vec{}
	}
	r.traveled = 0
	r.steps = r.steps[:0]
	r.state = Armed
	r.reason = NotTerminated
}

// March traces the ray through src. It returns the reason it stopped.
// Marching a ray that is not armed retraces its last target.
//
// The effective hit threshold is the larger of cfg.Threshold and the
// source's tolerance. Each advance is limited to the remaining length so
// the ray never passes its target.
func (r *Ray) March(src DistanceSource, cfg Config) Termination {
	if r.state != Armed {
		r.traveled = 0
		r.steps = r.steps[:0]
	}
	r.state = Marching
	threshold := math32.Max(cfg.Threshold, src.Tolerance())
	r.reason = MaxSteps
	for i := 0; i < cfg.MaxSteps; i++ {
		remaining := r.length - r.traveled
		if remaining <= 0 {
			r.reason = ReachedTarget
			break
		}
		pos := r.at(r.traveled)
		d := src.Distance(pos)
		if d < threshold {
			r.reason = HitSurface
			break
		}
		advance := math32.Min(d, remaining)
		radius := d
		if math32.IsInf(d, 1) {
			radius = advance
		}
		r.steps = append(r.steps, Step{Pos: pos, Radius: radius})
		r.traveled += advance
		if r.traveled >= r.length {
			r.traveled = r.length
			r.reason = ReachedTarget
			break
		}
	}
	r.state = Terminated
	return r.reason
}

// at returns the point at distance t along the ray.
func (r *Ray) at(t float32) ms2.Vec {
	return ms2.Add(r.origin, ms2.Scale(t, r.dir))
}

// Origin returns the ray's fixed starting point.
func (r *Ray) Origin() ms2.Vec { return r.origin }

// Direction returns the unit direction, or zero for a zero length ray.
func (r *Ray) Direction() ms2.Vec { return r.dir }

// Length returns the distance from origin to the clamped target.
func (r *Ray) Length() float32 { return r.length }

// Traveled returns how far the ray advanced in its last march.
func (r *Ray) Traveled() float32 { return r.traveled }

// End returns the end point of the traveled segment.
func (r *Ray) End() ms2.Vec { return r.at(r.traveled) }

// Target returns the clamped target point.
func (r *Ray) Target() ms2.Vec { return r.at(r.length) }

// Steps returns the trajectory of the last march. The slice is reused by
// the next march.
func (r *Ray) Steps() []Step { return r.steps }

// State returns the ray's lifecycle state.
func (r *Ray) State() State { return r.state }

// Termination returns the reason the last march stopped.
func (r *Ray) Termination() Termination { return r.reason }
