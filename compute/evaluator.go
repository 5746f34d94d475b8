package compute

import (
	"github.com/soypat/sdfray/internal/logging"
)

// LocalSize is the side of the square work group used for dispatches.
const LocalSize = 16

// Kernel argument indices of the distance kernel.
const (
	ArgImage = iota
	ArgCircleCenters
	ArgCircleRadii
	ArgCircleColors
	ArgCircleCount
	ArgRectCenters
	ArgRectExtents
	ArgRectColors
	ArgRectCount
	ArgK
	numArgs
)

// Evaluator runs the distance kernel of a [Manager] and reads the field back.
type Evaluator struct {
	m   *Manager
	pix []byte
}

// NewEvaluator returns an evaluator for the resources of m.
func NewEvaluator(m *Manager) *Evaluator {
	return &Evaluator{m: m}
}

// Evaluate computes the distance field of the synced scene. k is forwarded
// to the kernel as its blending parameter.
//
// The returned field's pixels are owned by the evaluator and are
// overwritten by the next call. Use [Field.Clone] to keep them.
func (e *Evaluator) Evaluate(k float32) (Field, error) {
	m := e.m
	if err := m.usable(); err != nil {
		return Field{}, err
	}
	// Primitives never synced are evaluated as an empty scene.
	if err := m.circles.resize(m.rt, m.circles.n); err != nil {
		return Field{}, m.fail(err)
	}
	if err := m.rects.resize(m.rt, m.rects.n); err != nil {
		return Field{}, m.fail(err)
	}
	args := [numArgs]any{
		ArgImage:         m.image,
		ArgCircleCenters: m.circles.attrs[0].dev,
		ArgCircleRadii:   m.circles.attrs[1].dev,
		ArgCircleColors:  m.circles.attrs[2].dev,
		ArgCircleCount:   int32(m.circles.n),
		ArgRectCenters:   m.rects.attrs[0].dev,
		ArgRectExtents:   m.rects.attrs[1].dev,
		ArgRectColors:    m.rects.attrs[2].dev,
		ArgRectCount:     int32(m.rects.n),
		ArgK:             k,
	}
	for i, arg := range args {
		if err := m.rt.SetArg(i, arg); err != nil {
			return Field{}, m.fail(&DeviceError{Op: "set kernel argument", Err: err})
		}
	}
	global := [2]int{roundUp(m.cfg.Width, LocalSize), roundUp(m.cfg.Height, LocalSize)}
	logging.Logger().Debug("dispatching distance kernel", "global", global, "circles", m.circles.n, "rects", m.rects.n, "k", k)
	if err := m.rt.Dispatch(global, [2]int{LocalSize, LocalSize}); err != nil {
		return Field{}, m.fail(&DeviceError{Op: "dispatch kernel", Err: err})
	}
	size := m.cfg.Width * m.cfg.Height * m.cfg.Format.BytesPerPixel()
	if len(e.pix) != size {
		e.pix = make([]byte, size)
	}
	if err := m.rt.ReadImage(m.image, e.pix); err != nil {
		return Field{}, m.fail(&DeviceError{Op: "read image", Err: err})
	}
	return Field{
		Width:  m.cfg.Width,
		Height: m.cfg.Height,
		Format: m.cfg.Format,
		Scale:  m.cfg.Scale,
		Pix:    e.pix,
	}, nil
}

// roundUp rounds n up to a multiple of m.
func roundUp(n, m int) int {
	return (n + m - 1) / m * m
}
