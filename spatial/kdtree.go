// Package spatial provides exact nearest neighbor queries over point sets.
package spatial

import (
	"math"
	"sort"

	"github.com/soypat/pcmesh"
	"github.com/soypat/pcmesh/internal/d3"
	"github.com/unixpickle/essentials"
	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	_ kdtree.Interface  = kdPoints{}
	_ kdtree.Bounder    = kdPoints{}
	_ kdtree.Comparable = kdPoint{}
)

// Index is a kd-tree over a point set. It is read-only after construction
// and safe for concurrent queries.
type Index struct {
	tree   kdtree.Tree
	points pcmesh.PointSet
}

// Neighbor is a point returned by a k-nearest-neighbor query.
type Neighbor struct {
	ID   int
	Dist float64
}

// New builds an index over points. The index keeps a reference to points
// for Point lookups; callers must not modify them afterwards.
func New(points pcmesh.PointSet) (*Index, error) {
	if len(points) == 0 {
		return nil, pcmesh.ErrEmptyIndex
	}
	kd := make(kdPoints, len(points))
	for i, p := range points {
		kd[i] = kdPoint{Vec: p, id: i}
	}
	tree := kdtree.New(kd, true)
	return &Index{tree: *tree, points: points}, nil
}

// Len returns the number of indexed points.
func (idx *Index) Len() int { return len(idx.points) }

// Point returns the indexed point with the given id.
func (idx *Index) Point(id int) r3.Vec { return idx.points[id] }

// Nearest returns the Euclidean distance from q to the closest indexed point and its id.
func (idx *Index) Nearest(q r3.Vec) (dist float64, id int) {
	got, dist2 := idx.tree.Nearest(kdPoint{Vec: q, id: -1})
	return math.Sqrt(dist2), got.(kdPoint).id
}

// KNearest returns the k closest indexed points to q sorted by ascending
// distance. A stored point coincident with q is included. If k exceeds
// Len all points are returned.
func (idx *Index) KNearest(q r3.Vec, k int) []Neighbor {
	if k <= 0 {
		return nil
	}
	k = min(k, idx.Len())
	keep := kdtree.NewNKeeper(k)
	idx.tree.NearestSet(keep, kdPoint{Vec: q, id: -1})
	neighbors := make([]Neighbor, 0, k)
	for _, c := range keep.Heap {
		if c.Comparable == nil {
			continue // Sentinel of the keeper heap.
		}
		neighbors = append(neighbors, Neighbor{ID: c.Comparable.(kdPoint).id, Dist: math.Sqrt(c.Dist)})
	}
	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].Dist != neighbors[j].Dist {
			return neighbors[i].Dist < neighbors[j].Dist
		}
		return neighbors[i].ID < neighbors[j].ID
	})
	return neighbors
}

// NearestBatch stores the nearest point distance of every query in dst and
// returns it. dst is allocated if shorter than qs. Queries run concurrently.
func (idx *Index) NearestBatch(qs []r3.Vec, dst []float64) []float64 {
	if len(dst) < len(qs) {
		dst = make([]float64, len(qs))
	}
	dst = dst[:len(qs)]
	essentials.ConcurrentMap(0, len(qs), func(i int) {
		dst[i], _ = idx.Nearest(qs[i])
	})
	return dst
}

type kdPoints []kdPoint

type kdPoint struct {
	r3.Vec
	id int
}

func (k kdPoints) Index(i int) kdtree.Comparable { return k[i] }

// Len returns the length of the list.
func (k kdPoints) Len() int { return len(k) }

// Pivot partitions the list based on the dimension specified.
func (k kdPoints) Pivot(d kdtree.Dim) int {
	p := kdPlane{dim: d, points: k}
	return kdtree.Partition(p, kdtree.MedianOfMedians(p))
}

// Slice returns a slice of the list using zero-based half
// open indexing equivalent to built-in slice indexing.
func (k kdPoints) Slice(start, end int) kdtree.Interface {
	return k[start:end]
}

func (k kdPoints) Bounds() *kdtree.Bounding {
	bb := d3.Box{Min: d3.Elem(math.MaxFloat64), Max: d3.Elem(-math.MaxFloat64)}
	for _, p := range k {
		bb = bb.Include(p.Vec)
	}
	return &kdtree.Bounding{
		Min: kdPoint{Vec: bb.Min, id: -1},
		Max: kdPoint{Vec: bb.Max, id: -1},
	}
}

// Compare returns the signed distance of a from the plane passing through
// b and perpendicular to the dimension d.
//
// Given c = a.Compare(b, d):
//
//	c = a_d - b_d
func (a kdPoint) Compare(b kdtree.Comparable, d kdtree.Dim) float64 {
	return kdComp(a.Vec, b.(kdPoint).Vec, d)
}

// Dims returns the number of dimensions described in the Comparable.
func (a kdPoint) Dims() int { return 3 }

// Distance returns the squared Euclidean distance between the receiver and
// the parameter.
func (a kdPoint) Distance(b kdtree.Comparable) float64 {
	return r3.Norm2(r3.Sub(a.Vec, b.(kdPoint).Vec))
}

func kdComp(a, b r3.Vec, d kdtree.Dim) float64 {
	switch d {
	case 0:
		return a.X - b.X
	case 1:
		return a.Y - b.Y
	case 2:
		return a.Z - b.Z
	}
	panic("unreachable")
}

type kdPlane struct {
	dim    kdtree.Dim
	points kdPoints
}

func (p kdPlane) Less(i, j int) bool {
	return kdComp(p.points[i].Vec, p.points[j].Vec, p.dim) < 0
}
func (p kdPlane) Swap(i, j int) {
	p.points[i], p.points[j] = p.points[j], p.points[i]
}
func (p kdPlane) Len() int {
	return len(p.points)
}
func (p kdPlane) Slice(start, end int) kdtree.SortSlicer {
	p.points = p.points[start:end]
	return p
}
