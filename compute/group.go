package compute

import (
	"encoding/binary"

	"github.com/chewxy/math32"
	"github.com/soypat/glgl/math/ms2"
	"github.com/soypat/sdfray/internal/logging"
	"github.com/soypat/sdfray/scene"
)

// Device element sizes. float3 occupies the space of a float4.
const (
	sizeFloat  = 4
	sizeFloat2 = 8
	sizeFloat3 = 16
)

// attribute is one per-primitive array, held in the host in device layout
// and mirrored by a device buffer.
type attribute struct {
	elemSize int
	host     []byte
	dev      Memory
}

// group is the set of attributes of one primitive kind. Its attributes are
// always reallocated together so they never disagree on the element count.
type group struct {
	name  string
	attrs [3]attribute
	// n is the logical element count. Device buffers hold max(n,1) elements
	// since zero sized device buffers are not allowed.
	n         int
	allocated bool
}

func newGroup(name string, elemSizes [3]int) group {
	g := group{name: name}
	for i, sz := range elemSizes {
		g.attrs[i].elemSize = sz
	}
	return g
}

func newCircleGroup() group { return newGroup("circles", [3]int{sizeFloat2, sizeFloat, sizeFloat3}) }
func newRectGroup() group   { return newGroup("rects", [3]int{sizeFloat2, sizeFloat2, sizeFloat3}) }

// resize reallocates the group's buffers when n differs from the current
// count or the group is unallocated. On failure the group is left unchanged.
func (g *group) resize(rt Runtime, n int) error {
	if g.allocated && g.n == n {
		return nil
	}
	var fresh [3]Memory
	elems := n
	if elems < 1 {
		elems = 1
	}
	for i := range g.attrs {
		mem, err := rt.CreateBuffer(elems * g.attrs[i].elemSize)
		if err != nil {
			for _, m := range fresh[:i] {
				m.Release()
			}
			return &DeviceError{Op: "allocate " + g.name + " buffers", Err: err}
		}
		fresh[i] = mem
	}
	logging.Logger().Debug("reallocated primitive buffers", "group", g.name, "from", g.n, "to", n)
	g.release()
	for i := range g.attrs {
		a := &g.attrs[i]
		a.dev = fresh[i]
		size := n * a.elemSize
		if cap(a.host) >= size {
			a.host = a.host[:size]
		} else {
			a.host = make([]byte, size)
		}
	}
	g.n = n
	g.allocated = true
	return nil
}

// upload writes all host attributes to the device.
func (g *group) upload(rt Runtime) error {
	if g.n == 0 {
		return nil // Placeholder buffers are never read.
	}
	for i := range g.attrs {
		err := rt.WriteBuffer(g.attrs[i].dev, g.attrs[i].host)
		if err != nil {
			return &DeviceError{Op: "write " + g.name + " buffer", Err: err}
		}
	}
	return nil
}

// release frees device buffers. Release errors are logged since there is
// nothing left to do with them.
func (g *group) release() {
	for i := range g.attrs {
		a := &g.attrs[i]
		if a.dev == nil {
			continue
		}
		if err := a.dev.Release(); err != nil {
			logging.Logger().Warn("releasing device buffer", "group", g.name, "err", err)
		}
		a.dev = nil
	}
	g.allocated = false
}

// fillCircles writes circles into the host attributes. len(circles) must equal g.n.
func (g *group) fillCircles(circles []scene.Circle) {
	centers, radii, colors := g.attrs[0].host, g.attrs[1].host, g.attrs[2].host
	for i, c := range circles {
		putVec(centers[i*sizeFloat2:], c.Position)
		putFloat(radii[i*sizeFloat:], c.Radius)
		putColor(colors[i*sizeFloat3:], c.Color)
	}
}

// fillRects writes rectangles into the host attributes as center and half
// extent. len(rects) must equal g.n.
func (g *group) fillRects(rects []scene.Rectangle) {
	centers, extents, colors := g.attrs[0].host, g.attrs[1].host, g.attrs[2].host
	for i, r := range rects {
		putVec(centers[i*sizeFloat2:], r.Center())
		putVec(extents[i*sizeFloat2:], r.HalfExtent())
		putColor(colors[i*sizeFloat3:], r.Color)
	}
}

func putFloat(b []byte, v float32) {
	binary.LittleEndian.PutUint32(b, math32.Float32bits(v))
}

func putVec(b []byte, v ms2.Vec) {
	putFloat(b, v.X)
	putFloat(b[4:], v.Y)
}

func putColor(b []byte, c scene.Color) {
	putFloat(b, c.R)
	putFloat(b[4:], c.G)
	putFloat(b[8:], c.B)
	putFloat(b[12:], 0)
}

func getFloat(b []byte) float32 {
	return math32.Float32frombits(binary.LittleEndian.Uint32(b))
}

func getVec(b []byte) ms2.Vec {
	return ms2.Vec{X: getFloat(b), Y: getFloat(b[4:])}
}
