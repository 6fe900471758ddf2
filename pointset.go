package pcmesh

import (
	"fmt"
	"math"

	"github.com/soypat/pcmesh/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// PointSet is an ordered sequence of points. Order carries no meaning
// beyond index addressing.
type PointSet []r3.Vec

// Bounds returns the bounding box of the set.
func (ps PointSet) Bounds() (d3.Box, error) {
	if len(ps) == 0 {
		return d3.Box{}, ErrEmptyInput
	}
	return d3.BoxOf(d3.Set(ps)), nil
}

// Validate returns an error wrapping ErrNumerical if any coordinate is NaN or Inf.
func (ps PointSet) Validate() error {
	for i, p := range ps {
		if !d3.IsFinite(p) {
			return fmt.Errorf("%w: point %d is %v", ErrNumerical, i, p)
		}
	}
	return nil
}

// Grid is an axis aligned lattice of Cells[i]+1 nodes along axis i spaced
// VoxelSize apart starting at Origin.
type Grid struct {
	Origin    r3.Vec
	VoxelSize float64
	Cells     V3i
}

// NewGrid returns the grid with the given voxel size spanning bb.
// Degenerate (flat) axes get a single cell so that every axis has two nodes.
func NewGrid(bb d3.Box, voxelSize float64) Grid {
	cells := d3.CeilElem(d3.DivElem(bb.Size(), d3.Elem(voxelSize)))
	g := Grid{Origin: bb.Min, VoxelSize: voxelSize}
	for i, c := range [3]float64{cells.X, cells.Y, cells.Z} {
		g.Cells[i] = int(math.Max(1, c))
	}
	return g
}

// Nodes returns the node count along each axis.
func (g Grid) Nodes() V3i { return g.Cells.AddScalar(1) }

// NodeCount returns the total number of grid nodes.
func (g Grid) NodeCount() int { return g.Nodes().Prod() }

// Index returns the lattice order index of node n. The z index varies fastest.
func (g Grid) Index(n V3i) int {
	nn := g.Nodes()
	return (n[0]*nn[1]+n[1])*nn[2] + n[2]
}

// Position returns the world position of node n.
func (g Grid) Position(n V3i) r3.Vec {
	return r3.Add(g.Origin, r3.Scale(g.VoxelSize, n.ToV3()))
}

// ToWorld maps a grid-index space coordinate to world space.
func (g Grid) ToWorld(v r3.Vec) r3.Vec {
	return r3.Add(r3.Scale(g.VoxelSize, v), g.Origin)
}

// ToGrid is the inverse of ToWorld.
func (g Grid) ToGrid(v r3.Vec) r3.Vec {
	return r3.Scale(1/g.VoxelSize, r3.Sub(v, g.Origin))
}
