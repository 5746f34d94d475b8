//go:build opencl

// Package opencl registers the "opencl" compute backend. It runs the
// distance kernel on the first GPU found in platform then device order.
//
// The backend requires building with the opencl tag and an OpenCL ICD
// loader. Without the tag the registered backend reports [compute.ErrUnavailable].
package opencl

import (
	"errors"
	"fmt"
	"strings"
	"unsafe"

	"github.com/jgillich/go-opencl/cl"
	"github.com/soypat/sdfray/compute"
	"github.com/soypat/sdfray/internal/logging"
	"github.com/soypat/sdfray/kernels"
)

// Name of the backend in the compute registry.
const Name = "opencl"

func init() {
	compute.Register(backend{})
}

type backend struct{}

func (backend) Name() string   { return Name }
func (backend) Source() string { return kernels.OpenCL }

func (backend) Open(src []byte) (compute.Runtime, error) {
	device, err := selectDevice()
	if err != nil {
		return nil, err
	}
	logging.Logger().Info("selected OpenCL device", "device", device.Name(), "vendor", device.Vendor())
	rt := &runtime{device: device}
	rt.context, err = cl.CreateContext([]*cl.Device{device})
	if err != nil {
		return nil, &compute.DeviceError{Op: "create context", Err: err}
	}
	rt.queue, err = rt.context.CreateCommandQueue(device, 0)
	if err != nil {
		rt.Release()
		return nil, &compute.DeviceError{Op: "create command queue", Err: err}
	}
	rt.program, err = rt.context.CreateProgramWithSource([]string{string(src)})
	if err != nil {
		rt.Release()
		return nil, &compute.DeviceError{Op: "create program", Err: err}
	}
	err = rt.program.BuildProgram([]*cl.Device{device}, "")
	if err != nil {
		rt.Release()
		derr := &compute.DeviceError{Op: "build program", Err: err}
		if buildErr, ok := err.(cl.BuildError); ok {
			derr.Err = errors.New("build failed")
			derr.Log = string(buildErr)
		}
		return nil, derr
	}
	rt.kernel, err = rt.program.CreateKernel(kernels.EntryPoint)
	if err != nil {
		rt.Release()
		return nil, &compute.DeviceError{Op: "create kernel " + kernels.EntryPoint, Err: err}
	}
	return rt, nil
}

func selectDevice() (*cl.Device, error) {
	platforms, err := cl.GetPlatforms()
	if err != nil {
		msg := "query platforms"
		if strings.Contains(err.Error(), "-1001") {
			msg += ": no ICD loader reported any platforms"
		}
		return nil, &compute.DeviceError{Op: msg, Err: err}
	}
	for _, p := range platforms {
		devices, err := p.GetDevices(cl.DeviceTypeGPU)
		if err != nil && err != cl.ErrDeviceNotFound {
			logging.Logger().Debug("skipping OpenCL platform", "platform", p.Name(), "err", err)
			continue
		}
		if len(devices) > 0 {
			return devices[0], nil
		}
	}
	return nil, &compute.DeviceError{Op: "select device", Err: compute.ErrNoDevice}
}

type runtime struct {
	device  *cl.Device
	context *cl.Context
	queue   *cl.CommandQueue
	program *cl.Program
	kernel  *cl.Kernel
}

type memory struct {
	mem  *cl.MemObject
	size int
}

func (m *memory) Size() int { return m.size }

func (m *memory) Release() error {
	if m.mem == nil {
		return errors.New("double release of memory object")
	}
	m.mem.Release()
	m.mem = nil
	return nil
}

func (rt *runtime) Device() string { return rt.device.Name() }

func (rt *runtime) CreateBuffer(size int) (compute.Memory, error) {
	mem, err := rt.context.CreateEmptyBuffer(cl.MemReadOnly, size)
	if err != nil {
		return nil, err
	}
	return &memory{mem: mem, size: size}, nil
}

func (rt *runtime) WriteBuffer(buf compute.Memory, data []byte) error {
	m := buf.(*memory)
	if len(data) == 0 {
		return nil
	}
	if len(data) > m.size {
		return fmt.Errorf("write of %d bytes overflows %d byte buffer", len(data), m.size)
	}
	_, err := rt.queue.EnqueueWriteBuffer(m.mem, true, 0, len(data), unsafe.Pointer(&data[0]), nil)
	return err
}

func (rt *runtime) CreateImage(width, height int, format compute.PixelFormat) (compute.Memory, error) {
	order, dtype := cl.ChannelOrderRGBA, cl.ChannelDataTypeUNormInt8
	if format == compute.FormatR32F {
		order, dtype = cl.ChannelOrderR, cl.ChannelDataTypeFloat
	}
	mem, err := rt.context.CreateImageSimple(cl.MemWriteOnly, width, height, order, dtype, nil)
	if err != nil {
		return nil, err
	}
	return &image{memory: memory{mem: mem, size: width * height * format.BytesPerPixel()}, width: width, height: height}, nil
}

type image struct {
	memory
	width, height int
}

func (rt *runtime) SetArg(index int, value any) error {
	switch v := value.(type) {
	case *memory:
		return rt.kernel.SetArgBuffer(index, v.mem)
	case *image:
		return rt.kernel.SetArgBuffer(index, v.mem)
	case int32:
		return rt.kernel.SetArgInt32(index, v)
	case float32:
		return rt.kernel.SetArgFloat32(index, v)
	}
	return fmt.Errorf("unsupported kernel argument type %T", value)
}

func (rt *runtime) Dispatch(global, local [2]int) error {
	_, err := rt.queue.EnqueueNDRangeKernel(rt.kernel, nil, global[:], local[:], nil)
	if err != nil {
		return err
	}
	return rt.queue.Finish()
}

func (rt *runtime) ReadImage(img compute.Memory, dst []byte) error {
	im := img.(*image)
	if len(dst) != im.size {
		return fmt.Errorf("read of %d bytes from %d byte image", len(dst), im.size)
	}
	_, err := rt.queue.EnqueueReadImage(im.mem, true, [3]int{}, [3]int{im.width, im.height, 1}, 0, 0, dst, nil)
	return err
}

// Release frees whatever was created, newest first.
func (rt *runtime) Release() error {
	if rt.kernel != nil {
		rt.kernel.Release()
		rt.kernel = nil
	}
	if rt.program != nil {
		rt.program.Release()
		rt.program = nil
	}
	if rt.queue != nil {
		rt.queue.Release()
		rt.queue = nil
	}
	if rt.context != nil {
		rt.context.Release()
		rt.context = nil
	}
	return nil
}
