package kernels

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEmbedded(t *testing.T) {
	for _, name := range []string{OpenCL, Compute} {
		src, err := Load("", name)
		if err != nil {
			t.Fatal(err)
		}
		if len(src) == 0 {
			t.Errorf("%s: empty source", name)
		}
	}
	src, _ := Load("", OpenCL)
	if !bytes.Contains(src, []byte("__kernel void "+EntryPoint)) {
		t.Errorf("%s lacks entry point %s", OpenCL, EntryPoint)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load("", "missing.cl")
	if err == nil {
		t.Fatal("expected error for missing embedded kernel")
	}
	_, err = Load(t.TempDir(), OpenCL)
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected not exist error, got %v", err)
	}
}

func TestLoadOverride(t *testing.T) {
	dir := t.TempDir()
	const custom = "__kernel void calcSDF() {}"
	err := os.WriteFile(filepath.Join(dir, OpenCL), []byte(custom), 0o644)
	if err != nil {
		t.Fatal(err)
	}
	src, err := Load(dir, OpenCL)
	if err != nil {
		t.Fatal(err)
	}
	if string(src) != custom {
		t.Errorf("override not loaded, got %q", src)
	}
}

func TestWithDefines(t *testing.T) {
	for _, test := range []struct {
		src  string
		defs []Define
		want string
	}{
		{
			src:  "kernel",
			defs: []Define{{Name: "A", Value: 0.5}},
			want: "#define A 0.5\nkernel",
		},
		{
			src:  "#version 460\nvoid main(){}",
			defs: []Define{{Name: "B", Value: 2}, {Name: "C", Flag: true}},
			want: "#version 460\n#define B 2.0\n#define C\nvoid main(){}",
		},
		{
			src:  "#version 460",
			defs: []Define{{Name: "D", Value: -1.25}},
			want: "#version 460\n#define D -1.25\n",
		},
	} {
		got := string(WithDefines([]byte(test.src), test.defs...))
		if got != test.want {
			t.Errorf("want %q, got %q", test.want, got)
		}
	}
}

func TestAppendFloat(t *testing.T) {
	for _, test := range []struct {
		v    float32
		want string
	}{
		{v: 1, want: "1.0"},
		{v: 0.25, want: "0.25"},
		{v: 0.125, want: "0.125"},
		{v: -3, want: "-3.0"},
	} {
		got := string(AppendFloat(nil, test.v))
		if got != test.want {
			t.Errorf("%v: want %q, got %q", test.v, test.want, got)
		}
	}
}
