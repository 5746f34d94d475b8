package compute

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/chewxy/math32"
	"github.com/soypat/glgl/math/ms2"
	"github.com/soypat/sdfray/dist"
	"github.com/soypat/sdfray/kernels"
)

// EmulatedBackend is the name of the software backend. It is always registered.
const EmulatedBackend = "emulated"

func init() {
	Register(emulatedBackend{})
}

type emulatedBackend struct{}

func (emulatedBackend) Name() string   { return EmulatedBackend }
func (emulatedBackend) Source() string { return kernels.OpenCL }
func (emulatedBackend) Open(src []byte) (Runtime, error) {
	return NewEmulator(src)
}

// Emulator is a Runtime that executes the distance kernel on the CPU with
// the same work group decomposition, argument binding and image encoding as
// a device. It tracks its allocations so leaks can be detected.
type Emulator struct {
	mem        bufPool[byte]
	invScale   float32
	args       [numArgs]any
	dispatches int
	released   bool
}

// NewEmulator "builds" src. The build fails if src lacks the kernel entry
// point. FIELD_INV_SCALE definitions in src are honored.
func NewEmulator(src []byte) (*Emulator, error) {
	if !bytes.Contains(src, []byte("void "+kernels.EntryPoint)) {
		return nil, &DeviceError{
			Op:  "build program",
			Err: errors.New("build failed"),
			Log: fmt.Sprintf("error: no kernel named %q in program source", kernels.EntryPoint),
		}
	}
	e := &Emulator{invScale: 1}
	if v, ok := parseDefine(src, "FIELD_INV_SCALE"); ok {
		e.invScale = v
	}
	return e, nil
}

func (e *Emulator) Device() string { return "software emulator" }

func (e *Emulator) CreateBuffer(size int) (Memory, error) {
	if err := e.check(); err != nil {
		return nil, err
	}
	if size <= 0 {
		return nil, fmt.Errorf("invalid buffer size %d", size)
	}
	return &emuBuffer{e: e, data: e.mem.Acquire(size)}, nil
}

func (e *Emulator) WriteBuffer(buf Memory, data []byte) error {
	if err := e.check(); err != nil {
		return err
	}
	b, ok := buf.(*emuBuffer)
	if !ok || b.released {
		return errors.New("invalid memory object")
	}
	if len(data) > len(b.data) {
		return fmt.Errorf("write of %d bytes overflows %d byte buffer", len(data), len(b.data))
	}
	copy(b.data, data)
	return nil
}

func (e *Emulator) CreateImage(width, height int, format PixelFormat) (Memory, error) {
	if err := e.check(); err != nil {
		return nil, err
	}
	bpp := format.BytesPerPixel()
	if width <= 0 || height <= 0 || bpp == 0 {
		return nil, fmt.Errorf("invalid image %dx%d %s", width, height, format)
	}
	img := &emuImage{width: width, height: height, format: format}
	img.e = e
	img.data = e.mem.Acquire(width * height * bpp)
	return img, nil
}

func (e *Emulator) SetArg(index int, value any) error {
	if err := e.check(); err != nil {
		return err
	}
	if index < 0 || index >= numArgs {
		return fmt.Errorf("invalid argument index %d", index)
	}
	var ok bool
	switch index {
	case ArgImage:
		_, ok = value.(*emuImage)
	case ArgCircleCount, ArgRectCount:
		_, ok = value.(int32)
	case ArgK:
		_, ok = value.(float32)
	default:
		_, ok = value.(*emuBuffer)
	}
	if !ok {
		return fmt.Errorf("invalid value %T for argument %d", value, index)
	}
	e.args[index] = value
	return nil
}

// Dispatch runs one work item per global grid point, work group by work group.
// Work items outside the image return without writing.
func (e *Emulator) Dispatch(global, local [2]int) error {
	if err := e.check(); err != nil {
		return err
	}
	for i := range global {
		if local[i] <= 0 || global[i] <= 0 || global[i]%local[i] != 0 {
			return fmt.Errorf("invalid work size global=%v local=%v", global, local)
		}
	}
	for i, arg := range e.args {
		if arg == nil {
			return fmt.Errorf("kernel argument %d not set", i)
		}
		if mem, ok := arg.(interface{ isReleased() bool }); ok && mem.isReleased() {
			return fmt.Errorf("kernel argument %d was released", i)
		}
	}
	img := e.args[ArgImage].(*emuImage)
	k := e.args[ArgK].(float32)
	nc := int(e.args[ArgCircleCount].(int32))
	nr := int(e.args[ArgRectCount].(int32))
	cc, err := e.vecArg(ArgCircleCenters, nc)
	if err != nil {
		return err
	}
	radii := e.args[ArgCircleRadii].(*emuBuffer).data
	if len(radii) < nc*sizeFloat {
		return fmt.Errorf("argument %d too small for %d elements", ArgCircleRadii, nc)
	}
	rc, err := e.vecArg(ArgRectCenters, nr)
	if err != nil {
		return err
	}
	rh, err := e.vecArg(ArgRectExtents, nr)
	if err != nil {
		return err
	}
	cr := make([]float32, nc)
	for i := range cr {
		cr[i] = getFloat(radii[i*sizeFloat:])
	}

	for gy := 0; gy < global[1]; gy += local[1] {
		for gx := 0; gx < global[0]; gx += local[0] {
			for ly := 0; ly < local[1]; ly++ {
				for lx := 0; lx < local[0]; lx++ {
					x, y := gx+lx, gy+ly
					if x >= img.width || y >= img.height {
						continue
					}
					p := ms2.Vec{X: float32(x), Y: float32(y)}
					d := math32.Inf(1)
					for i := range cr {
						d = dist.SmoothMin(d, dist.Circle(p, cc[i], cr[i]), k)
					}
					for i := range rc {
						d = dist.SmoothMin(d, dist.Rectangle(p, rc[i], rh[i]), k)
					}
					img.store(x, y, d*e.invScale)
				}
			}
		}
	}
	e.dispatches++
	return nil
}

func (e *Emulator) ReadImage(img Memory, dst []byte) error {
	if err := e.check(); err != nil {
		return err
	}
	im, ok := img.(*emuImage)
	if !ok || im.released {
		return errors.New("invalid image object")
	}
	if len(dst) != len(im.data) {
		return fmt.Errorf("read of %d bytes from %d byte image", len(dst), len(im.data))
	}
	copy(dst, im.data)
	return nil
}

// Release releases the emulated device. It fails if any allocation is still alive.
func (e *Emulator) Release() error {
	if e.released {
		return errors.New("emulator already released")
	}
	e.released = true
	e.args = [numArgs]any{}
	return e.AssertAllReleased()
}

// AssertAllReleased checks all buffers and images have been released.
func (e *Emulator) AssertAllReleased() error {
	return e.mem.assertAllReleased()
}

// Allocations returns the number of live buffers and images.
func (e *Emulator) Allocations() int { return e.mem.inUse() }

// Dispatches returns the number of completed kernel dispatches.
func (e *Emulator) Dispatches() int { return e.dispatches }

func (e *Emulator) check() error {
	if e.released {
		return errors.New("use of released emulator")
	}
	return nil
}

func (e *Emulator) vecArg(index, n int) ([]ms2.Vec, error) {
	data := e.args[index].(*emuBuffer).data
	if len(data) < n*sizeFloat2 {
		return nil, fmt.Errorf("argument %d too small for %d elements", index, n)
	}
	v := make([]ms2.Vec, n)
	for i := range v {
		v[i] = getVec(data[i*sizeFloat2:])
	}
	return v, nil
}

type emuBuffer struct {
	e        *Emulator
	data     []byte
	released bool
}

func (b *emuBuffer) Size() int        { return len(b.data) }
func (b *emuBuffer) isReleased() bool { return b.released }
func (b *emuBuffer) Release() error {
	if b.released {
		return errors.New("double release of memory object")
	}
	b.released = true
	return b.e.mem.Release(b.data)
}

type emuImage struct {
	emuBuffer
	width, height int
	format        PixelFormat
}

// store writes v as a device would for the image format. Normalized
// formats saturate to [0,1] and round to nearest.
func (img *emuImage) store(x, y int, v float32) {
	off := (y*img.width + x) * img.format.BytesPerPixel()
	switch img.format {
	case FormatRGBA8:
		if math32.IsNaN(v) {
			v = 0
		}
		v = math32.Min(math32.Max(v, 0), 1)
		px := img.data[off : off+4]
		px[0] = uint8(v*255 + 0.5)
		px[1], px[2], px[3] = 0, 0, 255
	case FormatR32F:
		putFloat(img.data[off:], v)
	}
}

// parseDefine returns the value of a "#define name value" line in src.
func parseDefine(src []byte, name string) (float32, bool) {
	sc := bufio.NewScanner(bytes.NewReader(src))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) != 3 || fields[0] != "#define" || fields[1] != name {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSuffix(fields[2], "f"), 32)
		if err != nil {
			return 0, false
		}
		return float32(v), true
	}
	return 0, false
}
