package compute

import (
	"errors"
	"fmt"

	"github.com/soypat/sdfray/internal/logging"
	"github.com/soypat/sdfray/kernels"
	"github.com/soypat/sdfray/scene"
)

// Config configures a [Manager].
type Config struct {
	// Backend is the registered backend name, see [Available].
	Backend string
	// Width and Height of the distance field in pixels.
	Width, Height int
	// Format of the field image. Zero value is [FormatRGBA8].
	Format PixelFormat
	// Scale is the distance encoded as full intensity in [FormatRGBA8]
	// fields. Zero value uses the field width.
	Scale float32
	// KernelDir overrides the embedded kernel sources when not empty.
	KernelDir string
}

// Validate checks the configuration and fills in defaults.
func (cfg *Config) Validate() error {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return &ConfigError{Field: "resolution", Index: -1, Msg: fmt.Sprintf("%dx%d must be positive", cfg.Width, cfg.Height)}
	}
	if cfg.Format == 0 {
		cfg.Format = FormatRGBA8
	}
	if cfg.Format.BytesPerPixel() == 0 {
		return &ConfigError{Field: "pixel format", Index: -1, Msg: cfg.Format.String()}
	}
	if cfg.Scale == 0 {
		cfg.Scale = float32(cfg.Width)
	}
	if !(cfg.Scale > 0) {
		return &ConfigError{Field: "scale", Index: -1, Msg: fmt.Sprintf("got %v", cfg.Scale)}
	}
	return nil
}

// Manager owns the device resources for one distance field: the runtime,
// the output image and the circle and rectangle buffers.
// A Manager is not safe for concurrent use.
type Manager struct {
	cfg     Config
	backend string
	rt      Runtime
	image   Memory
	circles group
	rects   group
	// err is the first device error. It is returned by every later call.
	err    error
	closed bool
}

// Open validates cfg, opens the configured backend and allocates the
// output image. On failure every resource created so far is released.
func Open(cfg Config) (*Manager, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}
	backend, err := Lookup(cfg.Backend)
	if err != nil {
		return nil, err
	}
	src, err := kernels.Load(cfg.KernelDir, backend.Source())
	if err != nil {
		return nil, &DeviceError{Op: "load kernel source", Err: err}
	}
	defs := []kernels.Define{{Name: "FIELD_INV_SCALE", Value: 1}}
	if cfg.Format == FormatRGBA8 {
		defs[0].Value = 1 / cfg.Scale
	} else {
		defs = append(defs, kernels.Define{Name: "FIELD_R32F", Flag: true})
	}
	rt, err := backend.Open(kernels.WithDefines(src, defs...))
	if err != nil {
		return nil, deviceErr("open "+backend.Name(), err)
	}
	m := &Manager{
		cfg:     cfg,
		backend: backend.Name(),
		rt:      rt,
		circles: newCircleGroup(),
		rects:   newRectGroup(),
	}
	m.image, err = rt.CreateImage(cfg.Width, cfg.Height, cfg.Format)
	if err != nil {
		m.Close()
		return nil, &DeviceError{Op: "create image", Err: err}
	}
	logging.Logger().Info("compute device opened", "backend", backend.Name(), "device", rt.Device(),
		"width", cfg.Width, "height", cfg.Height, "format", cfg.Format.String())
	return m, nil
}

// SyncCircles uploads circles to the device, reallocating the circle
// buffers if their count changed.
func (m *Manager) SyncCircles(circles []scene.Circle) error {
	if err := m.usable(); err != nil {
		return err
	}
	set := scene.Set{Circles: circles}
	if err := set.Validate(); err != nil {
		return err
	}
	if err := m.circles.resize(m.rt, len(circles)); err != nil {
		return m.fail(err)
	}
	m.circles.fillCircles(circles)
	return m.fail(m.circles.upload(m.rt))
}

// SyncRects uploads rectangles to the device, reallocating the rectangle
// buffers if their count changed.
func (m *Manager) SyncRects(rects []scene.Rectangle) error {
	if err := m.usable(); err != nil {
		return err
	}
	set := scene.Set{Rects: rects}
	if err := set.Validate(); err != nil {
		return err
	}
	if err := m.rects.resize(m.rt, len(rects)); err != nil {
		return m.fail(err)
	}
	m.rects.fillRects(rects)
	return m.fail(m.rects.upload(m.rt))
}

// Sync uploads the whole scene.
func (m *Manager) Sync(s *scene.Set) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if err := m.SyncCircles(s.Circles); err != nil {
		return err
	}
	return m.SyncRects(s.Rects)
}

// Counts returns the number of circles and rectangles on the device.
func (m *Manager) Counts() (circles, rects int) { return m.circles.n, m.rects.n }

// Width returns the field width in pixels.
func (m *Manager) Width() int { return m.cfg.Width }

// Height returns the field height in pixels.
func (m *Manager) Height() int { return m.cfg.Height }

// Format returns the pixel format of the field image.
func (m *Manager) Format() PixelFormat { return m.cfg.Format }

// Scale returns the distance encoded as full intensity.
func (m *Manager) Scale() float32 { return m.cfg.Scale }

// Backend returns the name of the backend the manager was opened with.
func (m *Manager) Backend() string { return m.backend }

// Device returns the name of the device in use.
func (m *Manager) Device() string { return m.rt.Device() }

// Err returns the device error that disabled the manager, if any.
func (m *Manager) Err() error { return m.err }

// Close releases buffers, the image and the runtime. It is safe to call
// more than once and on a partially opened manager.
func (m *Manager) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	m.circles.release()
	m.rects.release()
	var errs []error
	if m.image != nil {
		errs = append(errs, m.image.Release())
		m.image = nil
	}
	if m.rt != nil {
		errs = append(errs, m.rt.Release())
	}
	err := errors.Join(errs...)
	if err != nil {
		logging.Logger().Warn("releasing compute resources", "err", err)
		return &DeviceError{Op: "release", Err: err}
	}
	logging.Logger().Info("compute device closed")
	return nil
}

func (m *Manager) usable() error {
	if m.closed {
		return ErrClosed
	}
	return m.err
}

// fail records err as the sticky device error. nil is a no-op.
func (m *Manager) fail(err error) error {
	if err != nil && m.err == nil {
		m.err = err
	}
	return err
}
