//go:build gl

// Package glcompute registers the "gl" compute backend, which runs the
// distance field as an OpenGL 4.6 compute shader in a hidden window.
//
// OpenGL calls must come from the thread that opened the backend. Callers
// should lock their goroutine with runtime.LockOSThread before opening it.
package glcompute

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"unsafe"

	"github.com/go-gl/gl/all-core/gl"
	"github.com/soypat/glgl/v4.6-core/glgl"
	"github.com/soypat/sdfray/compute"
	"github.com/soypat/sdfray/internal/logging"
	"github.com/soypat/sdfray/kernels"
)

// Name of the backend in the compute registry.
const Name = "gl"

func init() {
	compute.Register(backend{})
}

type backend struct{}

func (backend) Name() string   { return Name }
func (backend) Source() string { return kernels.Compute }

func (backend) Open(src []byte) (compute.Runtime, error) {
	_, terminate, err := glgl.InitWithCurrentWindow33(glgl.WindowConfig{
		Title:   "sdfray",
		Version: [2]int{4, 6},
		Width:   1,
		Height:  1,
	})
	if err != nil {
		return nil, &compute.DeviceError{Op: "create GL context", Err: errors.Join(compute.ErrNoDevice, err)}
	}
	rt := &runtime{terminate: terminate}
	rt.device = gl.GoStr(gl.GetString(gl.RENDERER))
	logging.Logger().Info("selected GL device", "device", rt.device, "version", gl.GoStr(gl.GetString(gl.VERSION)))

	var combined bytes.Buffer
	combined.WriteString("#shader compute\n")
	combined.Write(src)
	ss, err := glgl.ParseCombined(&combined)
	if err != nil {
		rt.Release()
		return nil, &compute.DeviceError{Op: "parse shader", Err: err}
	}
	rt.prog, err = glgl.CompileProgram(ss)
	if err != nil {
		rt.Release()
		return nil, &compute.DeviceError{Op: "build program", Err: errors.New("compile failed"), Log: err.Error()}
	}
	rt.prog.Bind()
	return rt, nil
}

type runtime struct {
	device    string
	prog      glgl.Program
	terminate func()
}

type buffer struct {
	id   uint32
	size int
}

func (b *buffer) Size() int { return b.size }

func (b *buffer) Release() error {
	if b.id == 0 {
		return errors.New("double release of shader storage buffer")
	}
	gl.DeleteBuffers(1, &b.id)
	b.id = 0
	return nil
}

type image struct {
	id             uint32
	width, height  int
	format         compute.PixelFormat
	internalFormat uint32
	pixelFormat    uint32
	xtype          uint32
	size           int
}

func (im *image) Size() int { return im.size }

// Release deletes the texture.
func (im *image) Release() error {
	if im.id == 0 {
		return errors.New("double release of image")
	}
	gl.DeleteTextures(1, &im.id)
	im.id = 0
	return glError("delete texture")
}

func (rt *runtime) Device() string { return rt.device }

func (rt *runtime) CreateBuffer(size int) (compute.Memory, error) {
	b := &buffer{size: size}
	gl.GenBuffers(1, &b.id)
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, b.id)
	gl.BufferData(gl.SHADER_STORAGE_BUFFER, size, nil, gl.DYNAMIC_DRAW)
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, 0)
	if err := glError("allocate buffer"); err != nil {
		gl.DeleteBuffers(1, &b.id)
		return nil, err
	}
	return b, nil
}

func (rt *runtime) WriteBuffer(mem compute.Memory, data []byte) error {
	b := mem.(*buffer)
	if len(data) == 0 {
		return nil
	}
	if len(data) > b.size {
		return fmt.Errorf("write of %d bytes overflows %d byte buffer", len(data), b.size)
	}
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, b.id)
	gl.BufferSubData(gl.SHADER_STORAGE_BUFFER, 0, len(data), unsafe.Pointer(&data[0]))
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, 0)
	return glError("write buffer")
}

// CreateImage allocates immutable texture storage and binds it write-only
// to the image unit of the kernel's image argument.
func (rt *runtime) CreateImage(width, height int, format compute.PixelFormat) (compute.Memory, error) {
	im := &image{
		width:          width,
		height:         height,
		format:         format,
		internalFormat: gl.RGBA8,
		pixelFormat:    gl.RGBA,
		xtype:          gl.UNSIGNED_BYTE,
		size:           width * height * format.BytesPerPixel(),
	}
	if format == compute.FormatR32F {
		im.internalFormat, im.pixelFormat, im.xtype = gl.R32F, gl.RED, gl.FLOAT
	}
	gl.GenTextures(1, &im.id)
	gl.BindTexture(gl.TEXTURE_2D, im.id)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.TexStorage2D(gl.TEXTURE_2D, 1, im.internalFormat, int32(width), int32(height))
	gl.BindImageTexture(compute.ArgImage, im.id, 0, false, 0, gl.WRITE_ONLY, im.internalFormat)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	if err := glError("create image"); err != nil {
		gl.DeleteTextures(1, &im.id)
		return nil, err
	}
	return im, nil
}

// SetArg binds buffers to the storage block whose binding equals index and
// scalars to the uniform whose location equals index. The image is bound to
// its unit when created.
func (rt *runtime) SetArg(index int, value any) error {
	switch v := value.(type) {
	case *image:
		if index != compute.ArgImage {
			return fmt.Errorf("image bound to argument %d", index)
		}
		return nil
	case *buffer:
		gl.BindBufferBase(gl.SHADER_STORAGE_BUFFER, uint32(index), v.id)
	case int32:
		gl.Uniform1i(int32(index), v)
	case float32:
		gl.Uniform1f(int32(index), v)
	default:
		return fmt.Errorf("unsupported kernel argument type %T", value)
	}
	return glError(fmt.Sprintf("set argument %d", index))
}

func (rt *runtime) Dispatch(global, local [2]int) error {
	if local != [2]int{compute.LocalSize, compute.LocalSize} {
		return fmt.Errorf("local size %v does not match shader layout", local)
	}
	return rt.prog.RunCompute(global[0]/local[0], global[1]/local[1], 1)
}

func (rt *runtime) ReadImage(mem compute.Memory, dst []byte) error {
	im := mem.(*image)
	if im.id == 0 {
		return errors.New("read of released image")
	}
	if len(dst) != im.size {
		return fmt.Errorf("read of %d bytes from %d byte image", len(dst), im.size)
	}
	gl.MemoryBarrier(gl.TEXTURE_UPDATE_BARRIER_BIT)
	gl.BindTexture(gl.TEXTURE_2D, im.id)
	defer gl.BindTexture(gl.TEXTURE_2D, 0)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	if im.format != compute.FormatR32F {
		gl.GetTexImage(gl.TEXTURE_2D, 0, im.pixelFormat, im.xtype, unsafe.Pointer(&dst[0]))
		return glError("read image")
	}
	f := make([]float32, len(dst)/4)
	gl.GetTexImage(gl.TEXTURE_2D, 0, im.pixelFormat, im.xtype, unsafe.Pointer(&f[0]))
	for i, v := range f {
		bits := math.Float32bits(v)
		dst[4*i] = byte(bits)
		dst[4*i+1] = byte(bits >> 8)
		dst[4*i+2] = byte(bits >> 16)
		dst[4*i+3] = byte(bits >> 24)
	}
	return glError("read image")
}

// Release destroys the GL context along with every object created in it.
func (rt *runtime) Release() error {
	if rt.terminate == nil {
		return nil
	}
	rt.terminate()
	rt.terminate = nil
	return nil
}

func glError(op string) error {
	if code := gl.GetError(); code != gl.NO_ERROR {
		return fmt.Errorf("%s: GL error 0x%x", op, code)
	}
	return nil
}
