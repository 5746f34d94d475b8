// Package compute manages the device resources used to evaluate the scene's
// signed distance field and runs the field kernel over a pixel grid.
//
// A [Backend] opens a [Runtime] bound to one device with a built kernel. The
// [Manager] owns the runtime, the output image and the primitive buffers and
// keeps the latter in sync with the scene. The [Evaluator] dispatches the
// kernel and reads the field back to the host.
//
// Device failures are reported as [*DeviceError] and are fatal to the
// Manager that produced them.
package compute

import (
	"errors"
	"fmt"

	"github.com/soypat/sdfray/scene"
)

// Runtime is a device with a command queue and a built distance kernel.
// All operations block until the device has completed them.
type Runtime interface {
	// Device returns a human readable name of the selected device.
	Device() string
	// CreateBuffer allocates a read-only device buffer of size bytes.
	CreateBuffer(size int) (Memory, error)
	// WriteBuffer copies data into the start of buf.
	WriteBuffer(buf Memory, data []byte) error
	// CreateImage allocates a write-only 2D image.
	CreateImage(width, height int, format PixelFormat) (Memory, error)
	// SetArg binds a kernel argument. value is a [Memory], int32 or float32.
	SetArg(index int, value any) error
	// Dispatch runs the kernel over a global grid split in local work groups.
	// Each global dimension is a multiple of the local one.
	Dispatch(global, local [2]int) error
	// ReadImage copies the whole image into dst.
	ReadImage(img Memory, dst []byte) error
	// Release frees the kernel, program, queue and context in that order.
	Release() error
}

// Memory is a device allocation.
type Memory interface {
	// Size returns the allocation size in bytes.
	Size() int
	Release() error
}

// Backend opens runtimes on a family of devices.
type Backend interface {
	Name() string
	// Source returns the name of the kernel source the backend builds.
	Source() string
	// Open selects a device, creates its context and queue and builds src,
	// which must contain the distance kernel entry point.
	Open(src []byte) (Runtime, error)
}

// PixelFormat is the layout of the distance field image.
type PixelFormat uint8

const (
	_ PixelFormat = iota
	// FormatRGBA8 stores the distance divided by the field scale in the red
	// channel as a normalized byte. Negative distances saturate to zero.
	FormatRGBA8
	// FormatR32F stores the raw signed distance as a little endian float32.
	FormatR32F
)

// BytesPerPixel returns the size of one pixel.
func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case FormatRGBA8, FormatR32F:
		return 4
	}
	return 0
}

func (f PixelFormat) String() string {
	switch f {
	case FormatRGBA8:
		return "rgba8"
	case FormatR32F:
		return "r32f"
	}
	return fmt.Sprintf("PixelFormat(%d)", uint8(f))
}

// ParsePixelFormat parses the names returned by [PixelFormat.String].
func ParsePixelFormat(s string) (PixelFormat, error) {
	switch s {
	case "rgba8", "":
		return FormatRGBA8, nil
	case "r32f":
		return FormatR32F, nil
	}
	return 0, &ConfigError{Field: "pixel format", Index: -1, Msg: fmt.Sprintf("unknown format %q", s)}
}

// ConfigError reports invalid parameters, detected before any device work.
type ConfigError = scene.ConfigError

var (
	// ErrNoDevice is wrapped by the DeviceError returned when no GPU is found.
	ErrNoDevice = errors.New("no GPU device found")
	// ErrUnavailable is returned by backends not compiled into the binary.
	ErrUnavailable = errors.New("backend not available in this build")
	// ErrClosed is returned by operations on a closed Manager.
	ErrClosed = errors.New("compute manager closed")
)

// DeviceError is a failure of the device or its API. The Manager that
// returned it refuses further work.
type DeviceError struct {
	// Op is the operation that failed.
	Op  string
	Err error
	// Log holds the compiler output when building the kernel failed.
	Log string
}

func (e *DeviceError) Error() string {
	msg := "compute: " + e.Op + ": " + e.Err.Error()
	if e.Log != "" {
		msg += "\n" + e.Log
	}
	return msg
}

func (e *DeviceError) Unwrap() error { return e.Err }

// deviceErr wraps err as a DeviceError unless it already is one.
func deviceErr(op string, err error) error {
	var derr *DeviceError
	if errors.As(err, &derr) {
		return err
	}
	return &DeviceError{Op: op, Err: err}
}
