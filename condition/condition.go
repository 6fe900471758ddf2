// Package condition reduces and cleans raw point clouds and sizes the
// distance field grid so that it respects a voxel budget.
package condition

import (
	"fmt"
	"math"

	"github.com/soypat/pcmesh"
	"github.com/soypat/pcmesh/internal/d3"
	"github.com/soypat/pcmesh/spatial"
	"github.com/unixpickle/essentials"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"
)

// tieTolerance is the relative slack under which an outlier score is
// considered equal to the cutoff.
const tieTolerance = 1e-9

// Result is the output of Condition.
type Result struct {
	Points pcmesh.PointSet
	Bounds d3.Box
	Grid   pcmesh.Grid
	Stats  Stats
}

// Stats records point counts after each conditioning step.
type Stats struct {
	Input         int
	Downsampled   int
	AfterOutliers int
	// Redownsampled is zero when the second downsample did not run.
	Redownsampled int
	// VoxelScaled is set when the base voxel size was enlarged to fit the grid budget.
	VoxelScaled bool
}

// Condition downsamples points, removes statistical outliers, enforces the
// point budget and computes the distance field grid. Points is consumed.
func Condition(points pcmesh.PointSet, cfg pcmesh.Config, hooks *pcmesh.Hooks) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	if len(points) == 0 {
		return Result{}, pcmesh.ErrEmptyInput
	}
	if err := points.Validate(); err != nil {
		return Result{}, err
	}
	var res Result
	res.Stats.Input = len(points)
	err := hooks.Run(pcmesh.StageDownsample, func() error {
		points = Downsample(points, cfg.DownsampleVoxelSize)
		res.Stats.Downsampled = len(points)
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	err = hooks.Run(pcmesh.StageOutliers, func() (err error) {
		points, err = RemoveOutliers(points, cfg.OutlierNeighbors, cfg.OutlierStdRatio)
		res.Stats.AfterOutliers = len(points)
		return err
	})
	if err != nil {
		return Result{}, err
	}

	if len(points) > cfg.ReduceAbovePointCount {
		err = hooks.Run(pcmesh.StageRedownsample, func() error {
			points = Downsample(points, 2*cfg.DownsampleVoxelSize)
			res.Stats.Redownsampled = len(points)
			return nil
		})
		if err != nil {
			return Result{}, err
		}
	}
	if len(points) > cfg.MaxPointCount {
		return Result{}, &pcmesh.TooManyPointsError{Count: len(points), Max: cfg.MaxPointCount}
	}

	err = hooks.Run(pcmesh.StageGrid, func() error {
		bb, err := points.Bounds()
		if err != nil {
			return err
		}
		grid, err := GridFor(bb, cfg.BaseVoxelSize, cfg.MaxGridDimension)
		if err != nil {
			return err
		}
		res.Bounds = bb
		res.Grid = grid
		res.Stats.VoxelScaled = grid.VoxelSize != cfg.BaseVoxelSize
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	res.Points = points
	return res, nil
}

type voxelAccum struct {
	sum r3.Vec
	n   int
}

// Downsample replaces all points within each voxel of the given size by
// their centroid. Voxels are aligned to the set's minimum corner shifted by
// half a voxel. The output is ordered by voxel index and never longer than
// the input.
func Downsample(points pcmesh.PointSet, voxelSize float64) pcmesh.PointSet {
	if len(points) == 0 {
		return nil
	}
	origin := r3.Sub(d3.Set(points).Min(), d3.Elem(voxelSize/2))
	voxels := make(map[pcmesh.V3i]voxelAccum, len(points)/4)
	for _, p := range points {
		key := voxelKey(p, origin, voxelSize)
		v := voxels[key]
		v.sum = r3.Add(v.sum, p)
		v.n++
		voxels[key] = v
	}
	keys := maps.Keys(voxels)
	slices.SortFunc(keys, func(a, b pcmesh.V3i) bool { return a.Less(b) })
	out := make(pcmesh.PointSet, len(keys))
	for i, key := range keys {
		v := voxels[key]
		out[i] = r3.Scale(1/float64(v.n), v.sum)
	}
	return out
}

func voxelKey(p, origin r3.Vec, voxelSize float64) pcmesh.V3i {
	return pcmesh.R3ToI(d3.FloorElem(r3.Scale(1/voxelSize, r3.Sub(p, origin))))
}

// RemoveOutliers discards points whose mean distance to their k nearest
// neighbors (the point itself included) exceeds mean + stdRatio*stddev of
// that statistic over the whole set. Scores within a relative 1e-9 of the
// cutoff count as ties and are kept. Sets of one point are returned as is.
func RemoveOutliers(points pcmesh.PointSet, k int, stdRatio float64) (pcmesh.PointSet, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: outlier neighbor count must be positive, got %d", pcmesh.ErrInvalidConfig, k)
	}
	if len(points) <= 1 {
		return points, nil
	}
	scores, err := OutlierScores(points, k)
	if err != nil {
		return nil, err
	}
	mean, std := stat.MeanStdDev(scores, nil)
	cutoff := mean + stdRatio*std
	if math.IsNaN(cutoff) || math.IsInf(cutoff, 0) {
		return nil, fmt.Errorf("%w: outlier cutoff is %g", pcmesh.ErrNumerical, cutoff)
	}
	cutoff += tieTolerance * math.Abs(cutoff)
	kept := make(pcmesh.PointSet, 0, len(points))
	for i, p := range points {
		if scores[i] <= cutoff {
			kept = append(kept, p)
		}
	}
	return kept, nil
}

// OutlierScores returns the mean distance of every point to its k nearest
// neighbors within the set. Scores are computed concurrently.
func OutlierScores(points pcmesh.PointSet, k int) ([]float64, error) {
	idx, err := spatial.New(points)
	if err != nil {
		return nil, err
	}
	scores := make([]float64, len(points))
	essentials.ConcurrentMap(0, len(points), func(i int) {
		neighbors := idx.KNearest(points[i], k)
		sum := 0.0
		for _, n := range neighbors {
			sum += n.Dist
		}
		scores[i] = sum / float64(len(neighbors))
	})
	return scores, nil
}

// GridFor returns the distance field grid spanning bb. The voxel size
// starts at baseVoxel and, if some axis would need more than maxDim cells,
// grows to the smallest size that fits the longest axis in maxDim cells.
func GridFor(bb d3.Box, baseVoxel float64, maxDim int) (pcmesh.Grid, error) {
	if !(baseVoxel > 0) || maxDim < 1 {
		return pcmesh.Grid{}, fmt.Errorf("%w: voxel size %g, max grid dimension %d", pcmesh.ErrInvalidConfig, baseVoxel, maxDim)
	}
	if !d3.IsFinite(bb.Min) || !d3.IsFinite(bb.Max) {
		return pcmesh.Grid{}, fmt.Errorf("%w: bounding box %v", pcmesh.ErrNumerical, bb)
	}
	voxel := baseVoxel
	grid := pcmesh.NewGrid(bb, voxel)
	if grid.Cells.Max() > maxDim {
		size := bb.Size()
		voxel = math.Max(size.X, math.Max(size.Y, size.Z)) / float64(maxDim)
		grid = pcmesh.NewGrid(bb, voxel)
		// Rounding may leave the longest axis one cell over budget.
		for grid.Cells.Max() > maxDim {
			voxel *= 1 + 1e-12
			grid = pcmesh.NewGrid(bb, voxel)
		}
	}
	return grid, nil
}
