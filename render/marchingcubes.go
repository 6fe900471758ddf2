package render

import (
	"fmt"
	"math"
	"runtime"

	"github.com/soypat/pcmesh"
	"github.com/soypat/pcmesh/field"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"
)

// MarchingCubes extracts the iso-surface of f at level iso as an indexed
// triangle mesh with vertices in grid-index space. Each grid edge crossing
// the surface yields exactly one vertex shared by all triangles touching it.
// Triangles are wound so their right hand normal points towards increasing
// field values.
//
// Nodes one step outside the grid read as iso plus one voxel size, so regions
// below iso that reach the grid boundary are capped and the surface is closed.
// Capping vertices lie within one voxel outside the grid. A field with no
// value at or above iso has nothing to enclose and yields an empty mesh.
//
// x-slabs of cells are triangulated concurrently and merged in slab order,
// so the output is the same for any GOMAXPROCS.
func MarchingCubes(f *field.Field, iso float64) (pcmesh.RawMesh, error) {
	if f == nil || len(f.Values) == 0 {
		return pcmesh.RawMesh{}, fmt.Errorf("%w: no field to extract", pcmesh.ErrEmptyInput)
	}
	if err := f.Validate(); err != nil {
		return pcmesh.RawMesh{}, err
	}
	if math.IsNaN(iso) || math.IsInf(iso, 0) {
		return pcmesh.RawMesh{}, fmt.Errorf("%w: iso-level %g", pcmesh.ErrNumerical, iso)
	}
	if !slices.ContainsFunc(f.Values, func(v float64) bool { return v >= iso }) {
		return pcmesh.RawMesh{}, nil
	}
	// Cells -1 through Cells along each axis.
	slabs := make([]mcSlab, f.Grid.Cells[0]+2)
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range slabs {
		i := i
		g.Go(func() error {
			slabs[i] = marchSlab(f, iso, i-1)
			return nil
		})
	}
	g.Wait()
	return mergeSlabs(slabs), nil
}

// mcSlab is the triangulation of one x-slab of cells with slab-local vertex indices.
type mcSlab struct {
	keys      []int // edge key of each local vertex
	vertices  []r3.Vec
	triangles [][3]int
}

// marchSlab triangulates cells (i, *, *) including the ring of cells
// just outside the grid.
func marchSlab(f *field.Field, iso float64, i int) mcSlab {
	var (
		s       mcSlab
		local   = make(map[int]int)
		cells   = f.Grid.Cells
		outside = iso + f.Grid.VoxelSize
		values  [8]float64
		nodes   [8]pcmesh.V3i
		edgeVi  [12]int
	)
	for j := -1; j <= cells[1]; j++ {
		for k := -1; k <= cells[2]; k++ {
			base := pcmesh.V3i{i, j, k}
			index := 0
			for c, off := range mcCornerOffsets {
				nodes[c] = base.Add(off)
				values[c] = outside
				if inGrid(cells, nodes[c]) {
					values[c] = f.At(nodes[c])
				}
				if values[c] < iso {
					index |= 1 << c
				}
			}
			table := mcTriangleTable[index]
			if len(table) == 0 {
				continue
			}
			for _, e := range table {
				key := edgeKey(f.Grid, nodes, e)
				vi, ok := local[key]
				if !ok {
					vi = len(s.vertices)
					local[key] = vi
					s.keys = append(s.keys, key)
					s.vertices = append(s.vertices, edgeVertex(nodes, values, e, iso))
				}
				edgeVi[e] = vi
			}
			for t := 0; t < len(table); t += 3 {
				// Reversed table order points the normal away from the region below iso.
				s.triangles = append(s.triangles, [3]int{
					edgeVi[table[t+2]],
					edgeVi[table[t+1]],
					edgeVi[table[t]],
				})
			}
		}
	}
	return s
}

func inGrid(cells, n pcmesh.V3i) bool {
	return n[0] >= 0 && n[1] >= 0 && n[2] >= 0 &&
		n[0] <= cells[0] && n[1] <= cells[1] && n[2] <= cells[2]
}

// edgeKey identifies a lattice edge by its lower endpoint node and axis.
// Nodes are indexed in the lattice grown by one node on every side.
func edgeKey(g pcmesh.Grid, nodes [8]pcmesh.V3i, e int) int {
	a, b := nodes[mcPairTable[e][0]], nodes[mcPairTable[e][1]]
	lo, axis := lowerEndpoint(a, b)
	nn := g.Nodes().AddScalar(2)
	lo = lo.AddScalar(1)
	return 3*((lo[0]*nn[1]+lo[1])*nn[2]+lo[2]) + axis
}

// lowerEndpoint returns the endpoint of a lattice edge with the smaller
// coordinate and the axis the edge runs along.
func lowerEndpoint(a, b pcmesh.V3i) (pcmesh.V3i, int) {
	for axis := 0; axis < 3; axis++ {
		switch {
		case a[axis] < b[axis]:
			return a, axis
		case b[axis] < a[axis]:
			return b, axis
		}
	}
	panic("zero length lattice edge")
}

// edgeVertex interpolates the iso crossing on edge e in grid-index space.
// Interpolation always runs from the lower to the upper endpoint so that
// neighboring cells and slabs compute bit identical positions.
func edgeVertex(nodes [8]pcmesh.V3i, values [8]float64, e int, iso float64) r3.Vec {
	ca, cb := mcPairTable[e][0], mcPairTable[e][1]
	if lo, _ := lowerEndpoint(nodes[ca], nodes[cb]); lo != nodes[ca] {
		ca, cb = cb, ca
	}
	return interpolate(nodes[ca].ToV3(), nodes[cb].ToV3(), values[ca], values[cb], iso)
}

// interpolate returns the point between p0 and p1 where the linear
// interpolant of v0 and v1 equals iso. Equal values give the midpoint.
func interpolate(p0, p1 r3.Vec, v0, v1, iso float64) r3.Vec {
	if v0 == v1 {
		return r3.Scale(0.5, r3.Add(p0, p1))
	}
	t := (iso - v0) / (v1 - v0)
	t = math.Max(0, math.Min(1, t))
	return r3.Add(p0, r3.Scale(t, r3.Sub(p1, p0)))
}

// mergeSlabs joins slab triangulations, deduplicating the vertices that
// lie on the faces shared by adjacent slabs.
func mergeSlabs(slabs []mcSlab) pcmesh.RawMesh {
	var nv, nt int
	for _, s := range slabs {
		nv += len(s.vertices)
		nt += len(s.triangles)
	}
	m := pcmesh.RawMesh{
		Vertices:  make([]r3.Vec, 0, nv),
		Triangles: make([][3]int, 0, nt),
	}
	global := make(map[int]int, nv)
	var remap []int
	for _, s := range slabs {
		remap = remap[:0]
		for li, key := range s.keys {
			gi, ok := global[key]
			if !ok {
				gi = len(m.Vertices)
				global[key] = gi
				m.Vertices = append(m.Vertices, s.vertices[li])
			}
			remap = append(remap, gi)
		}
		for _, t := range s.triangles {
			m.Triangles = append(m.Triangles, [3]int{remap[t[0]], remap[t[1]], remap[t[2]]})
		}
	}
	return m
}
