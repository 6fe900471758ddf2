// Package field builds unsigned distance fields over regular grids and
// selects the iso-level of the surface to extract from them.
package field

import (
	"fmt"
	"math"
	"runtime"

	"github.com/soypat/pcmesh"
	"github.com/soypat/pcmesh/spatial"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"
)

// Field holds one value per grid node in lattice order.
type Field struct {
	Grid   pcmesh.Grid
	Values []float64
}

// Build evaluates the distance from every grid node to the nearest indexed
// point. x-slabs of the grid are evaluated concurrently. A NaN or infinite
// result is fatal and returned as an error wrapping pcmesh.ErrNumerical.
func Build(grid pcmesh.Grid, idx *spatial.Index) (*Field, error) {
	if idx == nil || idx.Len() == 0 {
		return nil, pcmesh.ErrEmptyIndex
	}
	if !(grid.VoxelSize > 0) {
		return nil, fmt.Errorf("%w: grid voxel size %g", pcmesh.ErrInvalidConfig, grid.VoxelSize)
	}
	n := grid.Nodes()
	f := &Field{
		Grid:   grid,
		Values: make([]float64, grid.NodeCount()),
	}
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := 0; i < n[0]; i++ {
		i := i
		g.Go(func() error {
			node := pcmesh.V3i{i, 0, 0}
			for j := 0; j < n[1]; j++ {
				node[1] = j
				for k := 0; k < n[2]; k++ {
					node[2] = k
					f.Values[grid.Index(node)], _ = idx.Nearest(grid.Position(node))
				}
			}
			return nil
		})
	}
	g.Wait()
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// Validate returns an error wrapping pcmesh.ErrNumerical if any value is NaN or infinite.
func (f *Field) Validate() error {
	if len(f.Values) != f.Grid.NodeCount() {
		return fmt.Errorf("field has %d values for %d grid nodes", len(f.Values), f.Grid.NodeCount())
	}
	for i, v := range f.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: distance field value %g at node %d", pcmesh.ErrNumerical, v, i)
		}
	}
	return nil
}

// At returns the value at node n.
func (f *Field) At(n pcmesh.V3i) float64 {
	return f.Values[f.Grid.Index(n)]
}

// MinMax returns the smallest and largest field values.
func (f *Field) MinMax() (min, max float64) {
	min, max = math.Inf(1), math.Inf(-1)
	for _, v := range f.Values {
		min = math.Min(min, v)
		max = math.Max(max, v)
	}
	return min, max
}

// Release drops the field values. The field is unusable afterwards.
func (f *Field) Release() {
	f.Values = nil
}

// IsoLevel returns the given percentile, in (0, 100], of values. values is not modified.
// Percentiles interpolate linearly between closest ranks, so the 20th
// percentile of 1..5 is 1.8. The result lies between the minimum and maximum of values.
func IsoLevel(values []float64, percentile float64) (float64, error) {
	if len(values) == 0 {
		return 0, fmt.Errorf("%w: no field values for iso-level", pcmesh.ErrEmptyInput)
	}
	if !(percentile > 0 && percentile <= 100) {
		return 0, fmt.Errorf("%w: percentile must be in (0, 100], got %g", pcmesh.ErrInvalidConfig, percentile)
	}
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("%w: value %g at %d", pcmesh.ErrNumerical, v, i)
		}
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	h := float64(len(sorted)-1) * percentile / 100
	lo := int(h)
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1], nil
	}
	iso := sorted[lo] + (h-float64(lo))*(sorted[lo+1]-sorted[lo])
	return math.Max(sorted[0], math.Min(iso, sorted[len(sorted)-1])), nil
}
