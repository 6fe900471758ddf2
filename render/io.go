package render

import (
	"io"

	"github.com/soypat/pcmesh"
)

// RenderAll reads the full contents of a Renderer and returns the slice read.
// It does not return error on io.EOF, like the io.ReadAll implementation.
func RenderAll(r Renderer) ([]pcmesh.Triangle3, error) {
	var err error
	var nt int
	result := make([]pcmesh.Triangle3, 0, 1<<12)
	buf := make([]pcmesh.Triangle3, 1024)
	for {
		nt, err = r.ReadTriangles(buf)
		result = append(result, buf[:nt]...)
		if err != nil {
			break
		}
	}
	if err == io.EOF {
		return result, nil
	}
	return result, err
}

// NewMeshReader returns a Renderer streaming the triangles of m in index order.
func NewMeshReader(m *pcmesh.Mesh) Renderer {
	return &meshReader{m: m}
}

type meshReader struct {
	m    *pcmesh.Mesh
	next int
}

func (r *meshReader) ReadTriangles(dst []pcmesh.Triangle3) (n int, err error) {
	if len(dst) == 0 {
		panic("cannot write to empty triangle slice")
	}
	for n < len(dst) && r.next < len(r.m.Triangles) {
		dst[n] = r.m.Triangle(r.next)
		n++
		r.next++
	}
	if r.next == len(r.m.Triangles) {
		return n, io.EOF
	}
	return n, nil
}
