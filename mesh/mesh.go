// Package mesh turns raw iso-surface output into world space meshes with
// per-vertex normals.
package mesh

import (
	"math"

	"github.com/soypat/pcmesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// Assemble maps the grid-index space vertices of raw to world space with
// v' = v*VoxelSize + Origin and computes one normal per vertex as the
// normalized area weighted sum of its incident face normals. Face normals
// follow the triangle winding. Vertices whose summed normal vanishes get the
// zero normal. Only those without any nonzero-area incident triangle are
// counted in DegenerateVertices.
//
// raw's triangles are adopted by the returned mesh, not copied.
func Assemble(raw pcmesh.RawMesh, grid pcmesh.Grid) pcmesh.Mesh {
	m := pcmesh.Mesh{
		Vertices:  make([]r3.Vec, len(raw.Vertices)),
		Normals:   make([]r3.Vec, len(raw.Vertices)),
		Triangles: raw.Triangles,
	}
	for i, v := range raw.Vertices {
		m.Vertices[i] = grid.ToWorld(v)
	}
	hasArea := make([]bool, len(m.Vertices))
	for _, t := range m.Triangles {
		a, b, c := m.Vertices[t[0]], m.Vertices[t[1]], m.Vertices[t[2]]
		// Cross product magnitude is twice the face area.
		n := r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
		if area := r3.Norm(n); area == 0 || math.IsNaN(area) {
			continue
		}
		for _, vi := range t {
			m.Normals[vi] = r3.Add(m.Normals[vi], n)
			hasArea[vi] = true
		}
	}
	for i, n := range m.Normals {
		if !hasArea[i] {
			m.DegenerateVertices++
		}
		norm := r3.Norm(n)
		if norm == 0 || math.IsNaN(norm) {
			m.Normals[i] = r3.Vec{}
			continue
		}
		m.Normals[i] = r3.Scale(1/norm, n)
	}
	return m
}

// ToGridSpace maps the world space vertices of m back to grid-index space.
func ToGridSpace(m *pcmesh.Mesh, grid pcmesh.Grid) []r3.Vec {
	out := make([]r3.Vec, len(m.Vertices))
	for i, v := range m.Vertices {
		out[i] = grid.ToGrid(v)
	}
	return out
}
