package sdfray

import (
	"fmt"
	"time"

	"github.com/soypat/glgl/math/ms2"
	"github.com/soypat/sdfray/compute"
	"github.com/soypat/sdfray/dist"
	"github.com/soypat/sdfray/internal/logging"
	"github.com/soypat/sdfray/march"
	"github.com/soypat/sdfray/scene"
)

// Source selects where a frame's ray reads its distances from.
type Source uint8

const (
	_ Source = iota
	// FromField samples the field evaluated on the device.
	FromField
	// FromScene evaluates the exact distance functions at each step.
	FromScene
)

func (s Source) String() string {
	switch s {
	case FromField:
		return "field"
	case FromScene:
		return "scene"
	}
	return fmt.Sprintf("Source(%d)", uint8(s))
}

// Pipeline runs frames: it syncs the scene to the device, evaluates the
// distance field and marches one ray from a fixed origin.
// A Pipeline is not safe for concurrent use.
type Pipeline struct {
	m   *compute.Manager
	ev  *compute.Evaluator
	ray *march.Ray
	// March configures the ray of each frame.
	March  march.Config
	Source Source
	frames int
}

// NewPipeline returns a pipeline using the resources of m. Rays start at
// origin and their targets are clamped to the field. The caller keeps
// ownership of m.
func NewPipeline(m *compute.Manager, origin ms2.Vec) *Pipeline {
	bounds := ms2.Box{Max: ms2.Vec{X: float32(m.Width()), Y: float32(m.Height())}}
	return &Pipeline{
		m:      m,
		ev:     compute.NewEvaluator(m),
		ray:    march.NewRay(origin, bounds),
		March:  march.DefaultConfig(),
		Source: FromField,
	}
}

// Frame is the result of [Pipeline.Frame].
type Frame struct {
	// Field is owned by the pipeline and overwritten by the next frame.
	Field compute.Field
	// Ray holds the trajectory of this frame until the next one.
	Ray         *march.Ray
	Termination march.Termination
	// Time spent in each stage.
	Sync, Evaluate, March time.Duration
}

// Total returns the time spent producing the frame.
func (f Frame) Total() time.Duration { return f.Sync + f.Evaluate + f.March }

// Frame syncs s, evaluates its field with blending distance k and marches
// the pipeline's ray towards target.
func (p *Pipeline) Frame(s *scene.Set, k float32, target ms2.Vec) (Frame, error) {
	start := time.Now()
	if err := p.m.Sync(s); err != nil {
		return Frame{}, err
	}
	synced := time.Now()
	field, err := p.ev.Evaluate(k)
	if err != nil {
		return Frame{}, err
	}
	evaluated := time.Now()

	var src march.DistanceSource = field
	if p.Source == FromScene {
		src = dist.Scene{Set: s, K: k}
	}
	p.ray.Update(target)
	reason := p.ray.March(src, p.March)
	frame := Frame{
		Field:       field,
		Ray:         p.ray,
		Termination: reason,
		Sync:        synced.Sub(start),
		Evaluate:    evaluated.Sub(synced),
		March:       time.Since(evaluated),
	}
	p.frames++
	logging.Logger().Debug("frame",
		"n", p.frames,
		"source", p.Source.String(),
		"termination", reason.String(),
		"steps", len(p.ray.Steps()),
		"traveled", p.ray.Traveled(),
		"sync", frame.Sync,
		"evaluate", frame.Evaluate,
		"march", frame.March,
	)
	return frame, nil
}

// Frames returns the amount of frames produced so far.
func (p *Pipeline) Frames() int { return p.frames }

// Ray returns the pipeline's ray.
func (p *Pipeline) Ray() *march.Ray { return p.ray }
