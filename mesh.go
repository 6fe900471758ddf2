package pcmesh

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// Triangle3 is a 3D triangle.
type Triangle3 [3]r3.Vec

// Normal returns the unit normal of the triangle following the
// right hand rule over its vertex order.
func (t Triangle3) Normal() r3.Vec {
	e1 := r3.Sub(t[1], t[0])
	e2 := r3.Sub(t[2], t[0])
	return r3.Unit(r3.Cross(e1, e2))
}

// RawMesh is the output of iso-surface extraction. Vertices are in grid-index space.
type RawMesh struct {
	Vertices  []r3.Vec
	Triangles [][3]int
}

// Validate checks every triangle index is within the vertex range.
func (m RawMesh) Validate() error {
	return validateIndices(len(m.Vertices), m.Triangles)
}

// Mesh is a world space triangle mesh with one normal per vertex.
// It is not mutated after normal computation.
type Mesh struct {
	Vertices  []r3.Vec
	Normals   []r3.Vec
	Triangles [][3]int
	// DegenerateVertices counts vertices without a nonzero-area incident
	// triangle. Their normal is the zero vector.
	DegenerateVertices int
}

// Triangle returns the ith triangle's geometry.
func (m *Mesh) Triangle(i int) Triangle3 {
	t := m.Triangles[i]
	return Triangle3{m.Vertices[t[0]], m.Vertices[t[1]], m.Vertices[t[2]]}
}

// Degenerate reports whether any vertex normal is undefined.
func (m *Mesh) Degenerate() bool { return m.DegenerateVertices > 0 }

// Err returns an error wrapping ErrDegenerateMesh if the mesh is flagged.
// The mesh is still usable in that case.
func (m *Mesh) Err() error {
	if !m.Degenerate() {
		return nil
	}
	return fmt.Errorf("%w: %d of %d vertices have no defined normal", ErrDegenerateMesh, m.DegenerateVertices, len(m.Vertices))
}

// Validate checks the mesh invariants.
func (m *Mesh) Validate() error {
	if len(m.Normals) != len(m.Vertices) {
		return fmt.Errorf("%d normals for %d vertices", len(m.Normals), len(m.Vertices))
	}
	return validateIndices(len(m.Vertices), m.Triangles)
}

func validateIndices(nv int, tris [][3]int) error {
	for i, t := range tris {
		for _, vi := range t {
			if vi < 0 || vi >= nv {
				return fmt.Errorf("triangle %d references vertex %d out of range [0, %d)", i, vi, nv)
			}
		}
	}
	return nil
}
