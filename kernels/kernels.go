// Package kernels provides the device source code for distance field
// evaluation. Sources are embedded in the binary and may be overridden by
// files of the same name in a directory.
package kernels

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Source names.
const (
	OpenCL  = "sdf.cl"
	Compute = "sdf.comp"
)

// EntryPoint is the name of the kernel function in [OpenCL] sources.
const EntryPoint = "calcSDF"

//go:embed sdf.cl sdf.comp
var embedded embed.FS

// Load returns the source named name. If dir is not empty the source is read
// from dir instead of the embedded copies.
func Load(dir, name string) ([]byte, error) {
	if dir != "" {
		src, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("loading kernel %q: %w", name, err)
		}
		return src, nil
	}
	src, err := embedded.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("loading embedded kernel %q: %w", name, err)
	}
	return src, nil
}

// Define is a preprocessor definition prepended to kernel sources.
// A define with Flag set is emitted without a value.
type Define struct {
	Name  string
	Value float32
	Flag  bool
}

// WithDefines returns src with defs inserted as #define lines. Definitions go
// after a leading #version directive when src has one, as GLSL requires.
func WithDefines(src []byte, defs ...Define) []byte {
	var insertAt int
	if bytes.HasPrefix(bytes.TrimLeft(src, " \t\r\n"), []byte("#version")) {
		start := bytes.Index(src, []byte("#version"))
		nl := bytes.IndexByte(src[start:], '\n')
		if nl < 0 {
			insertAt = len(src)
		} else {
			insertAt = start + nl + 1
		}
	}
	out := make([]byte, 0, len(src)+32*len(defs)+1)
	out = append(out, src[:insertAt]...)
	if insertAt == len(src) && insertAt > 0 {
		out = append(out, '\n')
	}
	for _, def := range defs {
		out = AppendDefine(out, def)
	}
	out = append(out, src[insertAt:]...)
	return out
}

// AppendDefine appends a #define line for def to b.
func AppendDefine(b []byte, def Define) []byte {
	b = append(b, "#define "...)
	b = append(b, def.Name...)
	if !def.Flag {
		b = append(b, ' ')
		b = AppendFloat(b, def.Value)
	}
	return append(b, '\n')
}

// AppendFloat appends v in a form both OpenCL C and GLSL parse as a float literal.
func AppendFloat(b []byte, v float32) []byte {
	start := len(b)
	b = strconv.AppendFloat(b, float64(v), 'f', -1, 32)
	if bytes.IndexByte(b[start:], '.') < 0 {
		b = append(b, '.', '0')
	}
	return b
}
