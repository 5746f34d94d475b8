//go:build !gl

package glcompute

import (
	"github.com/soypat/sdfray/compute"
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

func (backend) Open([]byte) (compute.Runtime, error) {
	return nil, &compute.DeviceError{Op: "open " + Name + " (build with -tags gl)", Err: compute.ErrUnavailable}
}
