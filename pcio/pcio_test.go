package pcio_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/soypat/pcmesh"
	"github.com/soypat/pcmesh/internal/d3"
	"github.com/soypat/pcmesh/pcio"
	"github.com/soypat/pcmesh/render"
	"gonum.org/v1/gonum/spatial/r3"
)

var wantPoints = pcmesh.PointSet{
	{X: 1, Y: 2, Z: 3},
	{X: -0.5, Y: 0.25, Z: 1e3},
	{X: 0, Y: 0, Z: -7},
}

func checkPoints(t *testing.T, got pcmesh.PointSet, tol float64) {
	t.Helper()
	if len(got) != len(wantPoints) {
		t.Fatalf("got %d points. want %d", len(got), len(wantPoints))
	}
	for i := range got {
		if !d3.EqualWithin(got[i], wantPoints[i], tol) {
			t.Errorf("point %d: got %v. want %v", i, got[i], wantPoints[i])
		}
	}
}

func TestReadPLYASCII(t *testing.T) {
	const data = `ply
format ascii 1.0
comment colored cloud
element vertex 3
property float x
property float y
property float z
property uchar red
property uchar green
property uchar blue
element face 1
property list uchar int vertex_indices
end_header
1 2 3 255 0 0
-0.5 0.25 1000 0 255 0
0 0 -7 12 12 12
3 0 1 2
`
	got, err := pcio.Read(strings.NewReader(data), pcio.FormatPLY)
	if err != nil {
		t.Fatal(err)
	}
	checkPoints(t, got, 0)
}

func TestReadPLYBinary(t *testing.T) {
	var b bytes.Buffer
	b.WriteString("ply\nformat binary_little_endian 1.0\n" +
		"element vertex 3\nproperty float x\nproperty float y\nproperty float z\n" +
		"property uchar red\nproperty uchar green\nproperty uchar blue\n" +
		"end_header\n")
	for _, p := range wantPoints {
		binary.Write(&b, binary.LittleEndian, []float32{float32(p.X), float32(p.Y), float32(p.Z)})
		binary.Write(&b, binary.LittleEndian, []uint8{10, 20, 30})
	}
	got, err := pcio.Read(&b, pcio.FormatPLY)
	if err != nil {
		t.Fatal(err)
	}
	checkPoints(t, got, 0)
}

func TestReadPLYMalformed(t *testing.T) {
	for name, data := range map[string]string{
		"no magic":      "PLY\nformat ascii 1.0\nend_header\n",
		"no format":     "ply\nelement vertex 0\nend_header\n",
		"no end_header": "ply\nformat ascii 1.0\nelement vertex 1\n",
		"missing z":     "ply\nformat ascii 1.0\nelement vertex 1\nproperty float x\nproperty float y\nend_header\n1 2\n",
		"no vertices":   "ply\nformat ascii 1.0\nelement face 0\nproperty list uchar int vertex_indices\nend_header\n",
		"bad type":      "ply\nformat ascii 1.0\nelement vertex 1\nproperty float128 x\nend_header\n",
		"bad number":    "ply\nformat ascii 1.0\nelement vertex 1\nproperty float x\nproperty float y\nproperty float z\nend_header\n1 two 3\n",
		"truncated":     "ply\nformat ascii 1.0\nelement vertex 2\nproperty float x\nproperty float y\nproperty float z\nend_header\n1 2 3\n4 5\n",
		"short binary":  "ply\nformat binary_little_endian 1.0\nelement vertex 1\nproperty float x\nproperty float y\nproperty float z\nend_header\n\x00\x00",
		"huge count":    "ply\nformat binary_little_endian 1.0\nelement vertex 999999999999\nproperty float x\nproperty float y\nproperty float z\nend_header\n\x00\x00\x00\x00",
		"huge ascii":    "ply\nformat ascii 1.0\nelement vertex 999999999999\nproperty float x\nproperty float y\nproperty float z\nend_header\n1 2 3\n",
		"empty element": "ply\nformat ascii 1.0\nelement vertex 1\nproperty float x\nproperty float y\nproperty float z\nelement junk 999999999999\nend_header\n1 2 3\n",
		"huge face":     "ply\nformat ascii 1.0\nelement vertex 1\nproperty float x\nproperty float y\nproperty float z\nelement face 9223372036854775807\nproperty list uchar int vertex_indices\nend_header\n1 2 3\n",
	} {
		_, err := pcio.Read(strings.NewReader(data), pcio.FormatPLY)
		if !errors.Is(err, pcmesh.ErrFileFormat) {
			t.Errorf("%s: got error %v. want ErrFileFormat", name, err)
		}
	}
}

func TestReadXYZ(t *testing.T) {
	const data = `# x y z intensity
1 2 3 0.5

-0.5,0.25,1000
// trailing comment
0	0	-7	1 2 3
`
	got, err := pcio.Read(strings.NewReader(data), pcio.FormatXYZ)
	if err != nil {
		t.Fatal(err)
	}
	checkPoints(t, got, 0)

	const pts = "3\n1 2 3\n-0.5 0.25 1000\n0 0 -7\n"
	got, err = pcio.Read(strings.NewReader(pts), pcio.FormatXYZ)
	if err != nil {
		t.Fatal(err)
	}
	checkPoints(t, got, 0)

	for _, bad := range []string{"1 2\n", "1 2 x\n", "1 2 3\n4\n"} {
		_, err = pcio.Read(strings.NewReader(bad), pcio.FormatXYZ)
		if !errors.Is(err, pcmesh.ErrFileFormat) {
			t.Errorf("%q: got error %v. want ErrFileFormat", bad, err)
		}
	}
}

func TestReadPCD(t *testing.T) {
	const ascii = `# .PCD v0.7 - Point Cloud Data file format
VERSION 0.7
FIELDS rgb x y z
SIZE 4 4 4 4
TYPE U F F F
COUNT 1 1 1 1
WIDTH 3
HEIGHT 1
VIEWPOINT 0 0 0 1 0 0 0
POINTS 3
DATA ascii
255 1 2 3
0 -0.5 0.25 1000
7 0 0 -7
`
	got, err := pcio.Read(strings.NewReader(ascii), pcio.FormatPCD)
	if err != nil {
		t.Fatal(err)
	}
	checkPoints(t, got, 0)

	var b bytes.Buffer
	b.WriteString("VERSION 0.7\nFIELDS x y z normal\nSIZE 8 8 4 4\nTYPE F F F F\nCOUNT 1 1 1 3\nWIDTH 3\nHEIGHT 1\nDATA binary\n")
	for _, p := range wantPoints {
		binary.Write(&b, binary.LittleEndian, p.X)
		binary.Write(&b, binary.LittleEndian, p.Y)
		binary.Write(&b, binary.LittleEndian, float32(p.Z))
		binary.Write(&b, binary.LittleEndian, []float32{0, 0, 1})
	}
	got, err = pcio.Read(&b, pcio.FormatPCD)
	if err != nil {
		t.Fatal(err)
	}
	checkPoints(t, got, 0)

	for name, data := range map[string]string{
		"compressed":   "FIELDS x y z\nPOINTS 1\nDATA binary_compressed\n",
		"huge binary":  "FIELDS x y z\nPOINTS 999999999999\nDATA binary\n\x00\x00\x80\x3f",
		"huge ascii":   "FIELDS x y z\nPOINTS 999999999999\nDATA ascii\n1 2 3\n",
		"huge width":   "FIELDS x y z\nWIDTH 999999999999\nHEIGHT 1\nDATA ascii\n1 2 3\n",
		"short points": "FIELDS x y z\nPOINTS 2\nDATA ascii\n1 2 3\n",
	} {
		_, err = pcio.Read(strings.NewReader(data), pcio.FormatPCD)
		if !errors.Is(err, pcmesh.ErrFileFormat) {
			t.Errorf("%s: got error %v. want ErrFileFormat", name, err)
		}
	}
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cloud.XYZ")
	if err := os.WriteFile(path, []byte("1 2 3\n-0.5 0.25 1000\n0 0 -7\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := pcio.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	checkPoints(t, got, 0)

	_, err = pcio.ReadFile(filepath.Join(dir, "cloud.las"))
	if !errors.Is(err, pcmesh.ErrFileFormat) {
		t.Errorf("unknown extension: got error %v. want ErrFileFormat", err)
	}
	_, err = pcio.ReadFile(filepath.Join(dir, "missing.ply"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("missing file: got error %v. want fs.ErrNotExist", err)
	}
}

func TestReadWrittenMesh(t *testing.T) {
	m := pcmesh.Mesh{
		Vertices:  wantPoints,
		Normals:   []r3.Vec{{Z: 1}, {Z: 1}, {Z: 1}},
		Triangles: [][3]int{{0, 1, 2}},
	}
	path := filepath.Join(t.TempDir(), "mesh.ply")
	if err := render.WriteMeshFile(path, &m); err != nil {
		t.Fatal(err)
	}
	got, err := pcio.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	// Written as float32.
	checkPoints(t, got, 1e3*math.Pow(2, -23))
}

func TestReadSTL(t *testing.T) {
	m := pcmesh.Mesh{
		Vertices:  wantPoints,
		Normals:   make([]r3.Vec, 3),
		Triangles: [][3]int{{0, 1, 2}, {2, 1, 0}},
	}
	path := filepath.Join(t.TempDir(), "mesh.STL")
	if err := render.WriteMeshFile(path, &m); err != nil {
		t.Fatal(err)
	}
	got, err := pcio.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	checkPoints(t, got, 1e3*math.Pow(2, -23))

	_, err = pcio.Read(strings.NewReader("solid ascii"), pcio.FormatSTL)
	if !errors.Is(err, pcmesh.ErrFileFormat) {
		t.Errorf("short STL: got error %v. want ErrFileFormat", err)
	}
}
