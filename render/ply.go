package render

import (
	"fmt"
	"io"
	"math"

	"github.com/EliCDavis/polyform/formats/ply"
	"github.com/EliCDavis/polyform/modeling"
	"github.com/EliCDavis/vector/vector3"
	"github.com/soypat/pcmesh"
)

// WritePLY writes m to w as a binary little endian PLY file with per-vertex
// normals. Vertices and faces are written in mesh order.
func WritePLY(w io.Writer, m *pcmesh.Mesh) error {
	if len(m.Normals) != len(m.Vertices) {
		return fmt.Errorf("%d normals for %d vertices", len(m.Normals), len(m.Vertices))
	}
	if len(m.Vertices) > math.MaxInt32 {
		return fmt.Errorf("%w: %d vertices overflow PLY int indices", pcmesh.ErrFileFormat, len(m.Vertices))
	}
	positions := make([]vector3.Float64, len(m.Vertices))
	normals := make([]vector3.Float64, len(m.Normals))
	for i, v := range m.Vertices {
		n := m.Normals[i]
		if !vec32From(v).finite() || !vec32From(n).finite() {
			return fmt.Errorf("%w: vertex %d not representable as float32", pcmesh.ErrNumerical, i)
		}
		positions[i] = vector3.New(v.X, v.Y, v.Z)
		normals[i] = vector3.New(n.X, n.Y, n.Z)
	}
	indices := make([]int, 0, 3*len(m.Triangles))
	for _, t := range m.Triangles {
		indices = append(indices, t[0], t[1], t[2])
	}
	model := modeling.NewTriangleMesh(indices).
		SetFloat3Attribute(modeling.PositionAttribute, positions).
		SetFloat3Attribute(modeling.NormalAttribute, normals)
	return ply.Write(w, model, ply.BinaryLittleEndian)
}
