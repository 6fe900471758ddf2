package render_test

import (
	"bytes"
	"errors"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/soypat/pcmesh"
	"github.com/soypat/pcmesh/mesh"
	"github.com/soypat/pcmesh/render"
	"gonum.org/v1/gonum/spatial/r3"
)

func sphereMesh(t testing.TB) pcmesh.Mesh {
	f := distanceField(12, 1.5)
	raw, err := render.MarchingCubes(f, sphereRadius)
	if err != nil {
		t.Fatal(err)
	}
	return mesh.Assemble(raw, f.Grid)
}

func TestSTLCreateWriteRead(t *testing.T) {
	m := sphereMesh(t)
	path := filepath.Join(t.TempDir(), "sphere.stl")
	err := render.CreateSTL(path, render.NewMeshReader(&m))
	if err != nil {
		t.Fatal(err)
	}
	bfile, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	model, err := render.RenderAll(render.NewMeshReader(&m))
	if err != nil {
		t.Fatal(err)
	}
	if len(model) != len(m.Triangles) {
		t.Fatalf("RenderAll read %d triangles. want %d", len(model), len(m.Triangles))
	}
	var b bytes.Buffer
	err = render.WriteSTL(&b, model)
	if err != nil {
		t.Fatal(err)
	}
	if b.Len() != len(bfile) || b.Len() != 84+50*len(model) {
		t.Fatal("WriteSTL and CreateSTL output length mismatch")
	}
	if b.String() != string(bfile) {
		t.Fatal("WriteSTL and CreateSTL output mismatch")
	}
}

func TestWriteMeshFile(t *testing.T) {
	m := sphereMesh(t)
	dir := t.TempDir()
	for _, name := range []string{"out.ply", "out.stl", "upper.PLY"} {
		path := filepath.Join(dir, name)
		if err := render.WriteMeshFile(path, &m); err != nil {
			t.Fatal(err)
		}
		b, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if filepath.Ext(name) == ".stl" {
			if len(b) != 84+50*len(m.Triangles) {
				t.Errorf("%s: got %d bytes. want %d", name, len(b), 84+50*len(m.Triangles))
			}
		} else if !bytes.HasPrefix(b, []byte("ply\n")) || !bytes.Contains(b, []byte("format binary_little_endian 1.0\n")) {
			t.Errorf("%s: missing binary PLY header", name)
		}
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Errorf("got %d files in output directory, temporary files left behind?", len(entries))
	}
}

func TestWriteMeshFileNoPartialOutput(t *testing.T) {
	dir := t.TempDir()
	m := sphereMesh(t)
	err := render.WriteMeshFile(filepath.Join(dir, "out.obj"), &m)
	if !errors.Is(err, pcmesh.ErrFileFormat) {
		t.Errorf("unsupported extension: got %v. want ErrFileFormat", err)
	}
	bad := pcmesh.Mesh{
		Vertices:  []r3.Vec{{X: math.MaxFloat64}, {Y: 1}, {Z: 1}},
		Normals:   make([]r3.Vec, 3),
		Triangles: [][3]int{{0, 1, 2}},
	}
	for _, name := range []string{"bad.ply", "bad.stl"} {
		err = render.WriteMeshFile(filepath.Join(dir, name), &bad)
		if !errors.Is(err, pcmesh.ErrNumerical) {
			t.Errorf("%s: got %v. want ErrNumerical", name, err)
		}
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		t.Errorf("failed write left %q behind", e.Name())
	}
	err = render.WriteMeshFile(filepath.Join(dir, "missing", "out.ply"), &m)
	if err == nil {
		t.Error("expected error writing to a missing directory")
	}
}

func TestMeshReaderChunks(t *testing.T) {
	m := sphereMesh(t)
	r := render.NewMeshReader(&m)
	buf := make([]pcmesh.Triangle3, 7)
	var total int
	for {
		n, err := r.ReadTriangles(buf)
		for i := 0; i < n; i++ {
			if buf[i] != m.Triangle(total+i) {
				t.Fatalf("triangle %d out of order", total+i)
			}
		}
		total += n
		if err != nil {
			break
		}
	}
	if total != len(m.Triangles) {
		t.Errorf("read %d triangles. want %d", total, len(m.Triangles))
	}
}

func TestSavePreviewPNG(t *testing.T) {
	const width, height = 64, 48
	m := sphereMesh(t)
	dir := t.TempDir()
	stlPath := filepath.Join(dir, "sphere.stl")
	pngPath := filepath.Join(dir, "sphere.png")
	if err := render.WriteMeshFile(stlPath, &m); err != nil {
		t.Fatal(err)
	}
	if err := render.SavePreviewPNG(stlPath, pngPath, width, height, render.DefaultPreviewView()); err != nil {
		t.Fatal(err)
	}
	fp, err := os.Open(pngPath)
	if err != nil {
		t.Fatal(err)
	}
	defer fp.Close()
	img, err := png.Decode(fp)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != width || b.Dy() != height {
		t.Errorf("got preview size %dx%d. want %dx%d", b.Dx(), b.Dy(), width, height)
	}
}

func TestReadSTLTruncated(t *testing.T) {
	m := sphereMesh(t)
	model, err := render.RenderAll(render.NewMeshReader(&m))
	if err != nil {
		t.Fatal(err)
	}
	var b bytes.Buffer
	if err := render.WriteSTL(&b, model); err != nil {
		t.Fatal(err)
	}
	got, err := render.ReadSTL(bytes.NewReader(b.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(model) {
		t.Fatalf("read %d triangles. want %d", len(got), len(model))
	}
	for _, n := range []int{0, 40, b.Len() - 10} {
		_, err := render.ReadSTL(bytes.NewReader(b.Bytes()[:n]))
		if !errors.Is(err, pcmesh.ErrFileFormat) {
			t.Errorf("truncated to %d bytes: got %v. want ErrFileFormat", n, err)
		}
	}
}
